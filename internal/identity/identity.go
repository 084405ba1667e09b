// Package identity turns authentication-source specific claim sets into the
// canonical Identity used by the rest of the application.
package identity

import "errors"

// ErrIdentityIncomplete is returned when no usable username can be resolved from a claim set.
var ErrIdentityIncomplete = errors.New("identity incomplete: no usable username claim")

// Standard claim names shared by directory lookups and OIDC tokens.
const (
	ClaimSubject           = "sub"
	ClaimPreferredUsername = "preferred_username"
	ClaimName              = "name"
	ClaimEmail             = "email"
	ClaimGroups            = "groups"
	ClaimRoles             = "roles"
	ClaimRealmAccess       = "realm_access"
)

// Identity is the normalized result of one authentication event.
// It is never persisted as-is.
type Identity struct {
	ExternalUsername string
	DisplayName      string
	Email            string
	// Groups is an ordered set: first occurrence wins, no duplicates.
	Groups []string
}

// Claims is an unordered bag of asserted facts, either decoded from a bearer
// token or assembled from a directory lookup.
type Claims map[string]any

// String returns the claim value when it is a non-blank string.
func (c Claims) String(key string) (string, bool) {
	v, ok := c[key]
	if !ok {
		return "", false
	}

	s, ok := v.(string)
	if !ok || isBlank(s) {
		return "", false
	}

	return s, true
}

// Strings returns the claim value as a string list.
// A single string value is treated as a one element list, non string entries are skipped.
func (c Claims) Strings(key string) []string {
	switch v := c[key].(type) {
	case string:
		if isBlank(v) {
			return nil
		}

		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))

		for _, item := range v {
			if s, ok := item.(string); ok && !isBlank(s) {
				out = append(out, s)
			}
		}

		return out
	default:
		return nil
	}
}
