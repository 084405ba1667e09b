package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"

	"github.com/GoLoginSystem/GoLoginSystem/internal/identity"
)

// FallbackUser is one development-only credential accepted when the directory is unreachable.
type FallbackUser struct {
	Username    string
	Password    string
	DisplayName string
	Email       string
	Groups      []string
}

// DefaultFallbackUsers returns the stock development accounts, one per role.
func DefaultFallbackUsers() []FallbackUser {
	return []FallbackUser{
		{
			Username: "admin", Password: "admin123", DisplayName: "Administrator",
			Email: "admin@company.com", Groups: []string{"Administrators"},
		},
		{
			Username: "editor", Password: "editor123", DisplayName: "Content Editor",
			Email: "editor@company.com", Groups: []string{"Editors"},
		},
		{
			Username: "viewer", Password: "viewer123", DisplayName: "Content Viewer",
			Email: "viewer@company.com", Groups: []string{"Viewers"},
		},
	}
}

type fallbackEntry struct {
	hash   string
	claims identity.Claims
}

// FallbackDirectory wraps the primary directory and answers from a fixed
// credential table only when the primary reports itself unavailable.
// It can only be constructed in dev mode.
type FallbackDirectory struct {
	primary PasswordVerifier
	entries map[string]fallbackEntry
	// dummy is compared for unknown usernames so they cost the same as known ones.
	dummy string
}

// NewFallbackDirectory creates the development fallback around primary.
// Outside dev mode it returns ErrFallbackRequiresDevMode. An empty users list
// selects DefaultFallbackUsers.
func NewFallbackDirectory(devMode bool, primary PasswordVerifier, users []FallbackUser) (*FallbackDirectory, error) {
	if !devMode {
		return nil, ErrFallbackRequiresDevMode
	}

	if primary == nil {
		primary = UnavailableDirectory{}
	}

	if len(users) == 0 {
		users = DefaultFallbackUsers()
	}

	dummy, err := argon2id.CreateHash("fallback-dummy-password", argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash dummy password: %w", err)
	}

	d := &FallbackDirectory{
		primary: primary,
		entries: make(map[string]fallbackEntry, len(users)),
		dummy:   dummy,
	}

	for _, u := range users {
		if u.Username == "" || u.Password == "" {
			continue
		}

		hash, errHash := argon2id.CreateHash(u.Password, argon2id.DefaultParams)
		if errHash != nil {
			return nil, fmt.Errorf("failed to hash fallback password for %s: %w", u.Username, errHash)
		}

		claims := identity.Claims{
			identity.ClaimSubject:           u.Username,
			identity.ClaimPreferredUsername: u.Username,
			identity.ClaimGroups:            append([]string(nil), u.Groups...),
		}

		if u.DisplayName != "" {
			claims[identity.ClaimName] = u.DisplayName
		}

		if u.Email != "" {
			claims[identity.ClaimEmail] = u.Email
		}

		d.entries[u.Username] = fallbackEntry{hash: hash, claims: claims}
	}

	log.Warn().Int("users", len(d.entries)).Msg("development fallback credentials are enabled")

	return d, nil
}

// Primary returns the directory the fallback stands in for.
func (d *FallbackDirectory) Primary() PasswordVerifier {
	return d.primary
}

// VerifyPassword implements PasswordVerifier. The fixed table is consulted
// only when the primary reports ErrIdentitySourceUnavailable.
func (d *FallbackDirectory) VerifyPassword(ctx context.Context, username, password string) (identity.Claims, error) {
	claims, err := d.primary.VerifyPassword(ctx, username, password)
	if !errors.Is(err, ErrIdentitySourceUnavailable) {
		return claims, err
	}

	log.Warn().Err(err).Str("username", username).Msg("directory unavailable, using development fallback credentials")

	return d.VerifyFallback(username, password)
}

// VerifyFallback checks username and password against the fixed table only.
func (d *FallbackDirectory) VerifyFallback(username, password string) (identity.Claims, error) {
	entry, ok := d.entries[username]

	hash := d.dummy
	if ok {
		hash = entry.hash
	}

	match, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to compare fallback password: %w", err)
	}

	if !ok || !match {
		return nil, ErrInvalidCredentials
	}

	out := make(identity.Claims, len(entry.claims))
	for k, v := range entry.claims {
		out[k] = v
	}

	return out, nil
}
