package auth

import (
	"errors"

	"github.com/GoLoginSystem/GoLoginSystem/internal/identity"
)

var (
	// ErrBadInput is returned when a request is missing required fields.
	// Such requests are rejected before verification and are not audited.
	ErrBadInput = errors.New("bad input")

	// ErrInvalidCredentials is returned when the identity source rejects the
	// username/password pair. Unknown users and wrong passwords are not distinguished.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenInvalid is returned when a bearer token fails signature, issuer,
	// audience or expiry checks, or has been revoked.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrIdentitySourceUnavailable is returned when the directory or identity
	// provider cannot be reached or does not answer within the verify timeout.
	ErrIdentitySourceUnavailable = errors.New("identity source unavailable")

	// ErrIdentityIncomplete is returned when verified claims carry no usable username.
	ErrIdentityIncomplete = identity.ErrIdentityIncomplete

	// ErrPersistence is returned when reconciliation or the success audit write fails.
	// No token is issued when this error is returned.
	ErrPersistence = errors.New("persistence failure")

	// ErrLDAPDisabled is returned when LDAP authentication is disabled via configuration.
	ErrLDAPDisabled = errors.New("ldap authentication is disabled")

	// ErrOIDCDisabled is returned when OIDC token verification is disabled via configuration.
	ErrOIDCDisabled = errors.New("oidc authentication is disabled")

	// ErrFallbackRequiresDevMode is returned when fallback credentials are configured
	// outside a development deployment.
	ErrFallbackRequiresDevMode = errors.New("fallback credentials require dev mode")

	// ErrSigningKeyEmpty is returned when the token service is created without key material.
	ErrSigningKeyEmpty = errors.New("token signing key is empty")

	// ErrNoTokenVerifier is returned by token-mode operations when no external
	// token verifier is configured.
	ErrNoTokenVerifier = errors.New("no external token verifier configured")

	// ErrAuthenticatorMisconfigured is returned when a required collaborator is missing.
	ErrAuthenticatorMisconfigured = errors.New("authenticator is missing a required collaborator")

	// ErrRevocationUnavailable is returned by Logout when no revocation list is configured.
	ErrRevocationUnavailable = errors.New("token revocation is not configured")

	// errUserNotFound and errMultipleUsersFound are directory lookup outcomes.
	// Both surface to callers as ErrInvalidCredentials.
	errUserNotFound       = errors.New("user not found")
	errMultipleUsersFound = errors.New("multiple users found")
)

// Audit failure reasons stored in the login history.
const (
	ReasonInvalidCredentials        = "InvalidCredentials"
	ReasonTokenInvalid              = "TokenInvalid"
	ReasonIdentitySourceUnavailable = "IdentitySourceUnavailable"
	ReasonIdentityIncomplete        = "IdentityIncomplete"
	ReasonPersistence               = "PersistenceError"
	ReasonBadInput                  = "BadInput"
	ReasonInternal                  = "InternalError"
)

// Reason maps an authentication error to the failure reason recorded in the audit log.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrTokenInvalid):
		return ReasonTokenInvalid
	case errors.Is(err, ErrIdentitySourceUnavailable):
		return ReasonIdentitySourceUnavailable
	case errors.Is(err, ErrIdentityIncomplete):
		return ReasonIdentityIncomplete
	case errors.Is(err, ErrPersistence):
		return ReasonPersistence
	case errors.Is(err, ErrBadInput):
		return ReasonBadInput
	case errors.Is(err, ErrInvalidCredentials):
		return ReasonInvalidCredentials
	default:
		return ReasonInternal
	}
}
