package daemon

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"

	"github.com/GoLoginSystem/GoLoginSystem/internal/auth"
	"github.com/GoLoginSystem/GoLoginSystem/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		DevMode: true,
		DB:      config.DB{GormEngine: config.EngineSQLite, Name: ":memory:"},
		Webserver: config.Webserver{
			Port:         8080,
			URL:          "http://localhost:8080",
			ShutDownTime: 1,
			RevocationGC: 60,
		},
		Auth: config.Auth{
			Token:    auth.TokenConfig{Issuer: "loginsystem", Audience: "loginsystem-api"},
			Fallback: config.Fallback{Enabled: true},
		},
	}
}

func TestNew_DevModeEndToEnd(t *testing.T) {
	cfg := testConfig()

	d, err := New(t.Context(), cfg)
	require.NoError(t, err)

	t.Cleanup(d.Close)

	assert.NotEmpty(t, cfg.Auth.Token.SigningKey, "dev mode generates a signing key")

	req := httptest.NewRequest(fiber.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"admin","password":"admin123"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := d.webService.App.Test(req, -1)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"role":"Admin"`)
}

func TestNew_ProductionRequiresSigningKey(t *testing.T) {
	cfg := testConfig()
	cfg.DevMode = false

	_, err := New(t.Context(), cfg)
	require.ErrorIs(t, err, config.ErrSigningKeyRequired)
}

func TestDialector(t *testing.T) {
	for _, engine := range []string{config.EngineMySQL, config.EnginePostgres, config.EngineSQLite} {
		d, err := dialector(&config.Config{DB: config.DB{GormEngine: engine, Name: "x"}})
		require.NoError(t, err, engine)
		assert.NotNil(t, d, engine)
	}

	_, err := dialector(&config.Config{DB: config.DB{GormEngine: "oracle"}})
	require.ErrorIs(t, err, config.ErrUnsupportedEngine)
}

func TestSQLLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, sqlLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, sqlLogLevel("Error"))
	assert.Equal(t, gormlogger.Info, sqlLogLevel("info"))
	assert.Equal(t, gormlogger.Warn, sqlLogLevel(""))
}

func TestNewPasswordVerifier(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*config.Config)
		fallback bool
	}{
		{name: "dev mode with fallback", mutate: func(*config.Config) {}, fallback: true},
		{name: "fallback ignored outside dev mode", mutate: func(c *config.Config) { c.DevMode = false }},
		{name: "fallback disabled", mutate: func(c *config.Config) { c.Auth.Fallback.Enabled = false }},
		{
			name: "ldap behind the fallback",
			mutate: func(c *config.Config) {
				c.Auth.LDAP = auth.LDAPConfig{Enabled: true, Host: "127.0.0.1", Port: 1}
			},
			fallback: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)

			v, err := newPasswordVerifier(cfg)
			require.NoError(t, err)

			_, isFallback := v.(*auth.FallbackDirectory)
			assert.Equal(t, tt.fallback, isFallback)
		})
	}
}

func TestNewTokenVerifierDisabled(t *testing.T) {
	v, err := newTokenVerifier(t.Context(), testConfig())
	require.NoError(t, err)
	assert.Nil(t, v)
}
