package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GoLoginSystem/GoLoginSystem/internal/db/controller/loginhistory"
	userctl "github.com/GoLoginSystem/GoLoginSystem/internal/db/controller/user"
	"github.com/GoLoginSystem/GoLoginSystem/internal/db/models"
	"github.com/GoLoginSystem/GoLoginSystem/internal/identity"
	"github.com/GoLoginSystem/GoLoginSystem/internal/rbac"
)

// UserStore is the part of the user store the authenticator needs.
type UserStore interface {
	Reconcile(ctx context.Context, id identity.Identity, role rbac.Role) (*models.User, error)
	GetActiveByID(ctx context.Context, id string) (*models.User, error)
	GetActiveByUsername(ctx context.Context, username string) (*models.User, error)
}

// AuditLog records authentication attempts.
type AuditLog interface {
	Record(ctx context.Context, e loginhistory.Entry) (*models.LoginHistory, error)
}

// RevocationList stores revoked token hashes until they expire.
// It is satisfied by the fiber storage drivers.
type RevocationList interface {
	Get(key string) ([]byte, error)
	Set(key string, val []byte, exp time.Duration) error
}

// ClientInfo describes where an attempt came from.
type ClientInfo struct {
	SourceAddress string
	UserAgent     string
}

// Attempt is a password mode login attempt.
type Attempt struct {
	Username string
	Password string
	ClientInfo
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token       string
	ExpiresAt   time.Time
	User        *models.User
	Role        rbac.Role
	Permissions []string
}

// Principal is the caller behind a validated bearer token.
type Principal struct {
	// User is the active local user. For external tokens without a local user
	// it is synthesized from the token claims and has an empty ID.
	User        *models.User
	Role        rbac.Role
	Permissions []string
	Claims      *AccessClaims
	// External reports whether the token was issued by the external identity provider.
	External  bool
	TokenHash string
	ExpiresAt time.Time
}

// Can reports whether the principal holds permission.
func (p *Principal) Can(permission string) bool {
	for _, perm := range p.Permissions {
		if perm == permission {
			return true
		}
	}

	return false
}

// Options wires the authenticator collaborators.
type Options struct {
	// Passwords verifies password mode attempts. Required.
	Passwords PasswordVerifier
	// Tokens issues and validates access tokens. Required.
	Tokens *TokenService
	// Normalizer maps verified claims to identities. Defaults to the standard claim names.
	Normalizer *identity.Normalizer
	// Users reconciles identities into local users. Required.
	Users UserStore
	// Audit records every attempt. Required.
	Audit AuditLog
	// Revocations backs Logout. Optional.
	Revocations RevocationList
	// VerifyTimeout bounds every call to the identity source.
	VerifyTimeout time.Duration
}

// Authenticator runs the login flow: verify, normalize, derive the role,
// reconcile the user, record the attempt and issue a token.
type Authenticator struct {
	passwords     PasswordVerifier
	tokens        *TokenService
	normalizer    *identity.Normalizer
	users         UserStore
	audit         AuditLog
	revocations   RevocationList
	verifyTimeout time.Duration
}

// NewAuthenticator creates an authenticator.
func NewAuthenticator(opts Options) (*Authenticator, error) {
	if opts.Passwords == nil || opts.Tokens == nil || opts.Users == nil || opts.Audit == nil {
		return nil, ErrAuthenticatorMisconfigured
	}

	if opts.Normalizer == nil {
		opts.Normalizer = identity.NewNormalizer(nil)
	}

	if opts.VerifyTimeout <= 0 {
		opts.VerifyTimeout = DefaultVerifyTimeout
	}

	return &Authenticator{
		passwords:     opts.Passwords,
		tokens:        opts.Tokens,
		normalizer:    opts.Normalizer,
		users:         opts.Users,
		audit:         opts.Audit,
		revocations:   opts.Revocations,
		verifyTimeout: opts.VerifyTimeout,
	}, nil
}

// Login authenticates a username/password pair.
//
// Missing fields are rejected with ErrBadInput before verification and are
// not recorded. Every other outcome is recorded exactly once. Denials return
// the precise error; callers must present them uniformly. When the success
// entry cannot be written the login fails with ErrPersistence, but the user
// row reconciled just before keeps its new last login time.
func (a *Authenticator) Login(ctx context.Context, attempt Attempt) (*LoginResult, error) {
	started := time.Now()

	if strings.TrimSpace(attempt.Username) == "" || attempt.Password == "" {
		return nil, ErrBadInput
	}

	claims, err := a.verifyPassword(ctx, attempt.Username, attempt.Password)
	if err != nil {
		return nil, a.deny(ctx, modePassword, started, attempt.Username, attempt.ClientInfo, err)
	}

	id, err := a.normalizer.Normalize(claims)
	if err != nil {
		return nil, a.deny(ctx, modePassword, started, attempt.Username, attempt.ClientInfo, err)
	}

	user, err := a.reconcile(ctx, id, rbac.DeriveRole(id.Groups))
	if err != nil {
		return nil, a.deny(ctx, modePassword, started, attempt.Username, attempt.ClientInfo, err)
	}

	token, err := a.tokens.Issue(user)
	if err != nil {
		return nil, a.deny(ctx, modePassword, started, attempt.Username, attempt.ClientInfo, err)
	}

	if err = a.recordSuccess(ctx, attempt.Username, user, attempt.ClientInfo); err != nil {
		observeAttempt(modePassword, started, err)

		return nil, err
	}

	observeAttempt(modePassword, started, nil)

	log.Info().Str("username", attempt.Username).Str("user_id", user.ID).Str("role", user.Role.String()).
		Msg("login succeeded")

	return &LoginResult{
		Token:       token.Raw,
		ExpiresAt:   token.ExpiresAt,
		User:        user,
		Role:        user.Role,
		Permissions: rbac.PermissionsFor(user.Role),
	}, nil
}

// verifyPassword asks the directory under the verify timeout. A fallback
// directory is consulted outside that deadline, so a directory that times out
// still leaves the fallback its chance to answer.
func (a *Authenticator) verifyPassword(ctx context.Context, username, password string) (identity.Claims, error) {
	verifier := a.passwords

	fallback, degradable := a.passwords.(degradableVerifier)
	if degradable {
		verifier = fallback.Primary()
	}

	claims, err := boundedVerify(ctx, a.verifyTimeout, func(ctx context.Context) (identity.Claims, error) {
		return verifier.VerifyPassword(ctx, username, password)
	})
	if !degradable || !errors.Is(err, ErrIdentitySourceUnavailable) || ctx.Err() != nil {
		return claims, err
	}

	log.Warn().Err(err).Str("username", username).Msg("directory unavailable, using development fallback credentials")

	return fallback.VerifyFallback(username, password)
}

// Exchange is the token mode login: an external identity provider token is
// verified, normalized, reconciled and recorded like a password login. The
// external token itself is returned as the bearer token. Authorization uses
// the role derived from the token's claims.
func (a *Authenticator) Exchange(ctx context.Context, raw string, client ClientInfo) (*LoginResult, error) {
	started := time.Now()

	if strings.TrimSpace(raw) == "" {
		return nil, ErrBadInput
	}

	external, err := a.validateExternal(ctx, raw)
	if err != nil {
		return nil, a.deny(ctx, modeToken, started, auditUsername(raw), client, err)
	}

	username := external.claims.Username

	user, err := a.reconcile(ctx, external.identity, external.claims.Role)
	if err != nil {
		return nil, a.deny(ctx, modeToken, started, username, client, err)
	}

	if err = a.recordSuccess(ctx, username, user, client); err != nil {
		observeAttempt(modeToken, started, err)

		return nil, err
	}

	observeAttempt(modeToken, started, nil)

	log.Info().Str("username", username).Str("user_id", user.ID).Str("role", external.claims.Role.String()).
		Msg("token login succeeded")

	var expiresAt time.Time
	if external.claims.ExpiresAt != nil {
		expiresAt = external.claims.ExpiresAt.UTC()
	}

	return &LoginResult{
		Token:       raw,
		ExpiresAt:   expiresAt,
		User:        user,
		Role:        external.claims.Role,
		Permissions: rbac.PermissionsFor(external.claims.Role),
	}, nil
}

// Resolve validates a bearer token and returns its principal. Tokens issued by
// this service are checked locally and must belong to an active user; other
// tokens go through the external verifier. Revoked tokens are rejected.
// Resolution is an authorization step and is not recorded in the login history.
func (a *Authenticator) Resolve(ctx context.Context, raw string) (*Principal, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty token", ErrTokenInvalid)
	}

	hash := TokenHash(raw)

	revoked, err := a.isRevoked(hash)
	if err != nil {
		return nil, err
	}

	if revoked {
		return nil, fmt.Errorf("%w: revoked", ErrTokenInvalid)
	}

	if iss, _ := PeekClaims(raw).GetIssuer(); iss == a.tokens.Issuer() {
		return a.resolveOwn(ctx, raw, hash)
	}

	return a.resolveExternal(ctx, raw, hash)
}

func (a *Authenticator) resolveOwn(ctx context.Context, raw, hash string) (*Principal, error) {
	claims, err := a.tokens.Validate(raw)
	if err != nil {
		return nil, err
	}

	user, err := a.users.GetActiveByID(ctx, claims.Subject)

	switch {
	case errors.Is(err, userctl.ErrUserNotFound):
		return nil, fmt.Errorf("%w: user is no longer active", ErrTokenInvalid)
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	return &Principal{
		User:        user,
		Role:        claims.Role,
		Permissions: claims.Permissions(),
		Claims:      claims,
		TokenHash:   hash,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

func (a *Authenticator) resolveExternal(ctx context.Context, raw, hash string) (*Principal, error) {
	external, err := a.validateExternal(ctx, raw)
	if err != nil {
		return nil, err
	}

	claims := external.claims

	user, err := a.users.GetActiveByUsername(ctx, claims.Username)

	switch {
	case errors.Is(err, userctl.ErrUserNotFound):
		user = &models.User{
			ExternalUsername: claims.Username,
			DisplayName:      claims.DisplayName,
			Email:            claims.Email,
			Role:             claims.Role,
			IsActive:         true,
		}
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	p := &Principal{
		User:        user,
		Role:        claims.Role,
		Permissions: claims.Permissions(),
		Claims:      claims,
		External:    true,
		TokenHash:   hash,
	}

	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}

	return p, nil
}

// Logout revokes raw until it expires. The token must still be valid.
func (a *Authenticator) Logout(ctx context.Context, raw string) error {
	if a.revocations == nil {
		return ErrRevocationUnavailable
	}

	p, err := a.Resolve(ctx, raw)
	if err != nil {
		return err
	}

	ttl := time.Until(p.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	if err = a.revocations.Set(p.TokenHash, []byte{1}, ttl); err != nil {
		return fmt.Errorf("%w: failed to revoke token: %w", ErrPersistence, err)
	}

	log.Info().Str("username", p.User.ExternalUsername).Msg("token revoked")

	return nil
}

func (a *Authenticator) isRevoked(hash string) (bool, error) {
	if a.revocations == nil {
		return false, nil
	}

	val, err := a.revocations.Get(hash)
	if err != nil {
		return false, fmt.Errorf("%w: failed to read revocation list: %w", ErrPersistence, err)
	}

	return len(val) > 0, nil
}

type externalResult struct {
	claims   *AccessClaims
	identity identity.Identity
}

func (a *Authenticator) validateExternal(ctx context.Context, raw string) (externalResult, error) {
	return boundedVerify(ctx, a.verifyTimeout, func(ctx context.Context) (externalResult, error) {
		claims, id, err := a.tokens.ValidateExternal(ctx, raw)

		return externalResult{claims: claims, identity: id}, err
	})
}

func (a *Authenticator) reconcile(ctx context.Context, id identity.Identity, role rbac.Role) (*models.User, error) {
	user, err := a.users.Reconcile(ctx, id, role)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	return user, nil
}

// recordSuccess writes the success entry. A failed write aborts the login so
// no token is handed out for an unrecorded login.
func (a *Authenticator) recordSuccess(ctx context.Context, username string, user *models.User, client ClientInfo) error {
	_, err := a.audit.Record(context.WithoutCancel(ctx), loginhistory.Entry{
		Username:      username,
		Success:       true,
		SourceAddress: client.SourceAddress,
		UserAgent:     client.UserAgent,
		UserID:        user.ID,
	})
	if err != nil {
		auditWriteFailures.Inc()
		log.Error().Err(err).Str("username", username).Msg("failed to record successful login, aborting")

		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	return nil
}

// deny records a failed attempt and returns err unchanged.
// A failed audit write is logged and never replaces err.
func (a *Authenticator) deny(
	ctx context.Context,
	mode string,
	started time.Time,
	username string,
	client ClientInfo,
	err error,
) error {
	reason := Reason(err)

	if _, errRecord := a.audit.Record(context.WithoutCancel(ctx), loginhistory.Entry{
		Username:      username,
		FailureReason: reason,
		SourceAddress: client.SourceAddress,
		UserAgent:     client.UserAgent,
	}); errRecord != nil {
		auditWriteFailures.Inc()
		log.Error().Err(errRecord).Str("username", username).Str("reason", reason).
			Msg("failed to record failed login")
	}

	observeAttempt(mode, started, err)

	log.Info().Err(err).Str("username", username).Str("mode", mode).Str("reason", reason).Msg("login denied")

	return err
}

// TokenHash is the revocation key of a raw token.
func TokenHash(raw string) string {
	sum := sha256.Sum256([]byte(raw))

	return hex.EncodeToString(sum[:])
}
