// Package webtest builds an in-memory API environment for handler tests.
package webtest

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/GoLoginSystem/GoLoginSystem/internal/auth"
	"github.com/GoLoginSystem/GoLoginSystem/internal/config"
	"github.com/GoLoginSystem/GoLoginSystem/internal/db/controller/loginhistory"
	userctl "github.com/GoLoginSystem/GoLoginSystem/internal/db/controller/user"
	"github.com/GoLoginSystem/GoLoginSystem/internal/db/models"
	"github.com/GoLoginSystem/GoLoginSystem/internal/web/handler"
	"github.com/GoLoginSystem/GoLoginSystem/internal/web/revocation"
)

const (
	// Issuer is the issuer of tokens minted by the environment.
	Issuer = "loginsystem"
	// Audience is the audience of tokens minted by the environment.
	Audience = "loginsystem-api"
	// ExternalIssuer is the issuer of the simulated identity provider.
	ExternalIssuer = "https://idp.example.com/realms/corp"
	// ClientID is the audience the identity provider issues tokens for.
	ClientID = "loginsystem-web"

	signingKey = "0123456789abcdef0123456789abcdef-webtest"
)

// Env is a wired API environment. The directory is unreachable and the dev
// fallback table (admin, editor, viewer) answers password logins.
type Env struct {
	App    *fiber.App
	Config *config.Config
	Deps   *handler.Deps
	DB     *gorm.DB
	IdPKey *rsa.PrivateKey
}

// InitFunc registers the handler under test.
type InitFunc func(app *fiber.App, cfg *config.Config, deps *handler.Deps) error

// New creates an environment and registers every init.
func New(t *testing.T, inits ...InitFunc) *Env {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.LoginHistory{}))

	users, err := userctl.NewStore(db)
	require.NoError(t, err)

	history, err := loginhistory.NewLog(db)
	require.NoError(t, err)

	idpKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tokens, err := auth.NewTokenService(&auth.TokenConfig{
		Issuer:     Issuer,
		Audience:   Audience,
		SigningKey: signingKey,
	}, auth.NewStaticOIDCVerifier(ExternalIssuer, ClientID, &idpKey.PublicKey), nil)
	require.NoError(t, err)

	passwords, err := auth.NewFallbackDirectory(true, auth.UnavailableDirectory{}, auth.DefaultFallbackUsers())
	require.NoError(t, err)

	authenticator, err := auth.NewAuthenticator(auth.Options{
		Passwords:     passwords,
		Tokens:        tokens,
		Users:         users,
		Audit:         history,
		Revocations:   revocation.NewMemory(0),
		VerifyTimeout: 5 * time.Second,
	})
	require.NoError(t, err)

	cfg := &config.Config{DevMode: true}
	deps := &handler.Deps{Auth: authenticator, Users: users, History: history}

	app := fiber.New(fiber.Config{CaseSensitive: true, Immutable: true})

	for _, register := range inits {
		require.NoError(t, register(app, cfg, deps))
	}

	return &Env{App: app, Config: cfg, Deps: deps, DB: db, IdPKey: idpKey}
}

// Do sends a request with an optional bearer token and JSON body.
func (e *Env) Do(t *testing.T, method, target, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		raw, ok := body.(string)
		if !ok {
			encoded, err := json.Marshal(body)
			require.NoError(t, err)

			raw = string(encoded)
		}

		reader = bytes.NewBufferString(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(fiber.HeaderUserAgent, "webtest")

	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := e.App.Test(req, -1)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, out
}

// Login signs in a fallback user through the authenticator and returns the token.
func (e *Env) Login(t *testing.T, username, password string) string {
	t.Helper()

	result, err := e.Deps.Auth.Login(t.Context(), auth.Attempt{Username: username, Password: password})
	require.NoError(t, err)

	return result.Token
}

// ExternalToken signs claims as the identity provider. Issuer, audience and
// expiry are filled in when absent.
func (e *Env) ExternalToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	now := time.Now()

	defaults := jwt.MapClaims{
		"iss": ExternalIssuer,
		"aud": ClientID,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	for k, v := range defaults {
		if _, ok := claims[k]; !ok {
			claims[k] = v
		}
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(e.IdPKey)
	require.NoError(t, err)

	return raw
}
