package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/GoLoginSystem/GoLoginSystem/internal/db/models"
	"github.com/GoLoginSystem/GoLoginSystem/internal/identity"
	"github.com/GoLoginSystem/GoLoginSystem/internal/rbac"
)

const (
	// DefaultTokenLifetime is the access token lifetime when none is configured.
	DefaultTokenLifetime = 60 * time.Minute

	// minSecretLength is the minimum HMAC secret length in bytes.
	minSecretLength = 32
)

// ErrSigningKeyTooShort is returned when an HMAC secret is shorter than 32 bytes.
var ErrSigningKeyTooShort = errors.New("token signing secret must be at least 32 bytes")

// TokenConfig configures access token issuance.
type TokenConfig struct {
	// Issuer is written to and required in the "iss" claim.
	Issuer string
	// Audience is written to and required in the "aud" claim.
	Audience string
	// SigningKey is either an HMAC secret (HS256) or a PEM encoded RSA private key (RS256).
	SigningKey string
	// Lifetime is the validity window of issued tokens.
	Lifetime time.Duration
}

// AccessClaims are the claims of an access token issued by this service.
// The subject is the local user id.
type AccessClaims struct {
	Username    string    `json:"preferred_username"`
	DisplayName string    `json:"name,omitempty"`
	Email       string    `json:"email,omitempty"`
	Role        rbac.Role `json:"role"`
	// Roles is the flat repeatable role claim consumed by role based authorization.
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Permissions resolves the permission set of the claimed role.
func (c *AccessClaims) Permissions() []string {
	return rbac.PermissionsFor(c.Role)
}

// Token is a signed access token.
type Token struct {
	Raw       string
	ID        string
	ExpiresAt time.Time
}

// TokenService issues and validates access tokens and validates external
// identity provider tokens.
type TokenService struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	issuer    string
	audience  string
	lifetime  time.Duration
	now       func() time.Time

	external   TokenVerifier
	normalizer *identity.Normalizer
}

// NewTokenService creates a token service. external may be nil, in which case
// ValidateExternal always fails.
func NewTokenService(cfg *TokenConfig, external TokenVerifier, normalizer *identity.Normalizer) (*TokenService, error) {
	if cfg == nil || cfg.SigningKey == "" {
		return nil, ErrSigningKeyEmpty
	}

	s := &TokenService{
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		lifetime:   cfg.Lifetime,
		now:        time.Now,
		external:   external,
		normalizer: normalizer,
	}

	if s.lifetime <= 0 {
		s.lifetime = DefaultTokenLifetime
	}

	if s.normalizer == nil {
		s.normalizer = identity.NewNormalizer(nil)
	}

	if strings.HasPrefix(strings.TrimSpace(cfg.SigningKey), "-----BEGIN") {
		key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.SigningKey))
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA signing key: %w", err)
		}

		s.method = jwt.SigningMethodRS256
		s.signKey = key
		s.verifyKey = &key.PublicKey

		return s, nil
	}

	if len(cfg.SigningKey) < minSecretLength {
		return nil, ErrSigningKeyTooShort
	}

	s.method = jwt.SigningMethodHS256
	s.signKey = []byte(cfg.SigningKey)
	s.verifyKey = s.signKey

	return s, nil
}

// Issuer returns the issuer written into issued tokens.
func (s *TokenService) Issuer() string {
	return s.issuer
}

// PublicKey returns the RSA verification key, or nil for HMAC signing.
func (s *TokenService) PublicKey() *rsa.PublicKey {
	key, _ := s.verifyKey.(*rsa.PublicKey)
	return key
}

// Issue signs an access token for user carrying its stored role.
func (s *TokenService) Issue(user *models.User) (*Token, error) {
	now := s.now()
	expiresAt := now.Add(s.lifetime)
	id := uuid.NewString()

	claims := &AccessClaims{
		Username:    user.ExternalUsername,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Role:        user.Role,
		Roles:       []string{user.Role.String()},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        id,
		},
	}

	raw, err := jwt.NewWithClaims(s.method, claims).SignedString(s.signKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	return &Token{Raw: raw, ID: id, ExpiresAt: expiresAt.UTC().Truncate(time.Second)}, nil
}

// Validate checks signature, signing method, issuer, audience and expiry of
// an access token issued by this service. Any failure is ErrTokenInvalid.
func (s *TokenService) Validate(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}

	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.verifyKey, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return claims, nil
}

// ValidateExternal verifies a token of the external identity provider and maps
// it onto access claims: the nested role document is flattened into Roles and
// Role is derived from the resulting groups. The subject is the provider's
// subject, not a local user id.
func (s *TokenService) ValidateExternal(ctx context.Context, raw string) (*AccessClaims, identity.Identity, error) {
	if s.external == nil {
		return nil, identity.Identity{}, fmt.Errorf("%w: %w", ErrTokenInvalid, ErrNoTokenVerifier)
	}

	verified, err := s.external.VerifyToken(ctx, raw)
	if err != nil {
		return nil, identity.Identity{}, err
	}

	id, err := s.normalizer.Normalize(verified)
	if err != nil {
		return nil, identity.Identity{}, err
	}

	role := rbac.DeriveRole(id.Groups)

	claims := &AccessClaims{
		Username:    id.ExternalUsername,
		DisplayName: id.DisplayName,
		Email:       id.Email,
		Role:        role,
		Roles:       append([]string(nil), id.Groups...),
	}

	// registered claims were already checked by the verifier
	unverified := PeekClaims(raw)
	if unverified != nil {
		claims.Subject, _ = unverified.GetSubject()
		claims.Issuer, _ = unverified.GetIssuer()
		claims.Audience, _ = unverified.GetAudience()
		claims.ExpiresAt, _ = unverified.GetExpirationTime()
		claims.IssuedAt, _ = unverified.GetIssuedAt()

		if jti, ok := unverified["jti"].(string); ok {
			claims.ID = jti
		}
	}

	return claims, id, nil
}

// PeekClaims decodes the claims of raw without verifying the signature.
// The result is only fit for routing and audit labels, never for authorization.
func PeekClaims(raw string) jwt.MapClaims {
	claims := jwt.MapClaims{}

	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil
	}

	return claims
}

// auditUsername picks the best attempted username from an unverified token.
func auditUsername(raw string) string {
	claims := PeekClaims(raw)

	for _, key := range []string{identity.ClaimPreferredUsername, identity.ClaimSubject} {
		if v, ok := claims[key].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}

	return "unknown"
}
