package identity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_UsernameResolutionOrder(t *testing.T) {
	n := NewNormalizer(nil)

	testCases := []struct {
		name   string
		claims Claims
		want   string
	}{
		{
			name:   "preferred username wins",
			claims: Claims{"preferred_username": "jdoe", "name": "John Doe", "sub": "f1c2"},
			want:   "jdoe",
		},
		{
			name:   "falls back to name",
			claims: Claims{"name": "John Doe", "sub": "f1c2"},
			want:   "John Doe",
		},
		{
			name:   "falls back to subject",
			claims: Claims{"sub": "f1c2"},
			want:   "f1c2",
		},
		{
			name:   "blank preferred username is skipped",
			claims: Claims{"preferred_username": "  ", "sub": "f1c2"},
			want:   "f1c2",
		},
		{
			name:   "non string preferred username is skipped",
			claims: Claims{"preferred_username": 42, "name": "jd"},
			want:   "jd",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := n.Normalize(tc.claims)
			require.NoError(t, err)
			assert.Equal(t, tc.want, id.ExternalUsername)
		})
	}
}

func TestNormalize_Incomplete(t *testing.T) {
	n := NewNormalizer(nil)

	for _, claims := range []Claims{
		nil,
		{},
		{"email": "x@example.com"},
		{"sub": "", "name": " "},
	} {
		_, err := n.Normalize(claims)
		require.ErrorIs(t, err, ErrIdentityIncomplete)
	}
}

func TestNormalize_DisplayNameAndEmail(t *testing.T) {
	n := NewNormalizer(nil)

	id, err := n.Normalize(Claims{"preferred_username": "jdoe", "name": "John Doe", "email": "jdoe@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "John Doe", id.DisplayName)
	assert.Equal(t, "jdoe@example.com", id.Email)

	id, err = n.Normalize(Claims{"preferred_username": "jdoe"})
	require.NoError(t, err)
	assert.Equal(t, "jdoe", id.DisplayName)
	assert.Empty(t, id.Email)

	id, err = n.Normalize(Claims{"sub": "f1c2"})
	require.NoError(t, err)
	assert.Equal(t, "f1c2", id.DisplayName)
}

func TestNormalize_NestedRolesObject(t *testing.T) {
	n := NewNormalizer(nil)

	// shape produced by json decoding a Keycloak access token
	var claims Claims
	require.NoError(t, json.Unmarshal([]byte(`{
		"sub": "2f0c",
		"preferred_username": "editor1",
		"realm_access": {"roles": ["editor", "offline_access", "editor"]},
		"groups": ["/staff"]
	}`), &claims))

	id, err := n.Normalize(claims)
	require.NoError(t, err)
	assert.Equal(t, []string{"/staff", "editor", "offline_access"}, id.Groups)
}

func TestNormalize_NestedRolesEncodedString(t *testing.T) {
	n := NewNormalizer(nil)

	id, err := n.Normalize(Claims{
		"preferred_username": "a",
		"realm_access":       `{"roles":["Administrators"]}`,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Administrators"}, id.Groups)
}

func TestNormalize_MalformedNestedRolesDegrades(t *testing.T) {
	n := NewNormalizer(nil)

	for _, bad := range []any{
		`{"roles": "admin"`,
		`not json`,
		map[string]any{"roles": "admin"},
		map[string]any{"roles": []any{1, 2}},
		42,
	} {
		id, err := n.Normalize(Claims{"preferred_username": "a", "realm_access": bad})
		require.NoError(t, err, "value %v", bad)
		assert.Empty(t, id.Groups, "value %v", bad)
	}
}

func TestNormalize_CustomClaimNames(t *testing.T) {
	n := NewNormalizer(&Config{GroupsClaim: "memberOf", RolesClaim: "resource_access_app"})

	id, err := n.Normalize(Claims{
		"preferred_username":  "a",
		"memberOf":            []any{"Editors"},
		"groups":              []any{"ignored"},
		"resource_access_app": map[string]any{"roles": []any{"viewer"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Editors", "viewer"}, id.Groups)
}

func TestFirstOf(t *testing.T) {
	pick := FirstOf(Claim("a"), Claim("b"))

	v, name, ok := pick(Claims{"b": "2"})
	assert.True(t, ok)
	assert.Equal(t, "2", v)
	assert.Equal(t, "b", name)

	_, _, ok = pick(Claims{"c": "3"})
	assert.False(t, ok)
}

func TestClaimsStrings(t *testing.T) {
	c := Claims{
		"single": "one",
		"typed":  []string{"a", "b"},
		"mixed":  []any{"a", 1, "", "b"},
		"number": 3,
	}

	assert.Equal(t, []string{"one"}, c.Strings("single"))
	assert.Equal(t, []string{"a", "b"}, c.Strings("typed"))
	assert.Equal(t, []string{"a", "b"}, c.Strings("mixed"))
	assert.Nil(t, c.Strings("number"))
	assert.Nil(t, c.Strings("missing"))
}
