package identity

import (
	"encoding/json"
	"strings"
)

// Extractor is one named strategy for pulling a single value out of a claim set.
type Extractor struct {
	Name    string
	Extract func(Claims) (string, bool)
}

// Claim returns an extractor reading the string claim key.
func Claim(key string) Extractor {
	return Extractor{
		Name: key,
		Extract: func(c Claims) (string, bool) {
			s, ok := c.String(key)
			if !ok {
				return "", false
			}

			return strings.TrimSpace(s), true
		},
	}
}

// FirstOf composes extractors: the first one yielding a value wins.
// It returns the value and the name of the winning extractor.
func FirstOf(extractors ...Extractor) func(Claims) (string, string, bool) {
	return func(c Claims) (string, string, bool) {
		for _, e := range extractors {
			if v, ok := e.Extract(c); ok {
				return v, e.Name, true
			}
		}

		return "", "", false
	}
}

// rolesDocument is the nested structure carrying a role list, e.g. Keycloak's
// realm_access claim: {"roles": ["admin", "offline_access"]}.
type rolesDocument struct {
	Roles []string `json:"roles"`
}

// nestedRoles parses the nested roles document stored under key.
// The value may be a decoded JSON object or a JSON encoded string. Anything
// malformed yields no roles instead of an error.
func nestedRoles(c Claims, key string) []string {
	raw, ok := c[key]
	if !ok || raw == nil {
		return nil
	}

	var data []byte

	switch v := raw.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		var err error

		if data, err = json.Marshal(v); err != nil {
			return nil
		}
	}

	var doc rolesDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil
	}

	out := make([]string, 0, len(doc.Roles))

	for _, r := range doc.Roles {
		if !isBlank(r) {
			out = append(out, r)
		}
	}

	return out
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
