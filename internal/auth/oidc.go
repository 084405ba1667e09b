package auth

import (
	"context"
	"crypto"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/GoLoginSystem/GoLoginSystem/internal/identity"
)

// OIDCConfig holds the trust settings for bearer tokens issued by an external identity provider.
type OIDCConfig struct {
	// Enabled indicates if external token verification is enabled.
	Enabled bool
	// Issuer is the expected "iss" and the discovery base URL (e.g., "https://keycloak/realms/main").
	Issuer string
	// Audience is the expected "aud", usually the client id.
	Audience string
	// UserInfoEnrichment fetches missing name/email claims from the userinfo endpoint.
	UserInfoEnrichment bool
}

// OIDCVerifier verifies external bearer tokens against the issuer's published keys.
type OIDCVerifier struct {
	issuer   string
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	enrich   bool
}

// NewOIDCVerifier discovers the issuer and creates a verifier that checks
// signature, issuer, audience and expiry.
func NewOIDCVerifier(ctx context.Context, config *OIDCConfig) (*OIDCVerifier, error) {
	if config == nil || !config.Enabled {
		return nil, ErrOIDCDisabled
	}

	provider, err := oidc.NewProvider(ctx, config.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	return &OIDCVerifier{
		issuer:   config.Issuer,
		provider: provider,
		verifier: provider.Verifier(&oidc.Config{ClientID: config.Audience}),
		enrich:   config.UserInfoEnrichment,
	}, nil
}

// NewStaticOIDCVerifier creates a verifier trusting a fixed set of public keys
// instead of the issuer's discovery document. Userinfo enrichment is not available.
func NewStaticOIDCVerifier(issuer, audience string, keys ...crypto.PublicKey) *OIDCVerifier {
	keySet := &oidc.StaticKeySet{PublicKeys: keys}

	return &OIDCVerifier{
		issuer:   issuer,
		verifier: oidc.NewVerifier(issuer, keySet, &oidc.Config{ClientID: audience}),
	}
}

// Issuer returns the expected token issuer.
func (v *OIDCVerifier) Issuer() string {
	return v.issuer
}

// VerifyToken implements TokenVerifier.
func (v *OIDCVerifier) VerifyToken(ctx context.Context, raw string) (identity.Claims, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	var claims identity.Claims
	if err = idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: failed to parse claims: %w", ErrTokenInvalid, err)
	}

	if v.enrich && v.provider != nil {
		v.enrichFromUserInfo(ctx, raw, claims)
	}

	return claims, nil
}

// enrichFromUserInfo fills name and email from the userinfo endpoint when the
// token does not carry them. Token claims always win; failures are ignored.
func (v *OIDCVerifier) enrichFromUserInfo(ctx context.Context, raw string, claims identity.Claims) {
	_, hasName := claims.String(identity.ClaimName)
	_, hasEmail := claims.String(identity.ClaimEmail)

	if hasName && hasEmail {
		return
	}

	userInfo, err := v.provider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: raw}))
	if err != nil {
		log.Debug().Err(err).Msg("userinfo enrichment failed")
		return
	}

	var extra identity.Claims
	if err = userInfo.Claims(&extra); err != nil {
		log.Debug().Err(err).Msg("failed to parse userinfo claims")
		return
	}

	for _, key := range []string{identity.ClaimName, identity.ClaimEmail, identity.ClaimPreferredUsername} {
		if _, ok := claims.String(key); ok {
			continue
		}

		if value, ok := extra.String(key); ok {
			claims[key] = value
		}
	}
}
