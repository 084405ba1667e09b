package identity

// Config selects the claim names the Normalizer reads groups from.
type Config struct {
	// GroupsClaim is a flat list claim holding group names. Defaults to "groups".
	GroupsClaim string
	// RolesClaim is the nested document claim carrying a "roles" list. Defaults to "realm_access".
	RolesClaim string
}

// Normalizer converts claim sets into Identity values.
type Normalizer struct {
	groupsClaim string
	rolesClaim  string

	username    func(Claims) (string, string, bool)
	displayName func(Claims) (string, string, bool)
	email       func(Claims) (string, string, bool)
}

// NewNormalizer creates a Normalizer. A nil config selects the defaults.
func NewNormalizer(cfg *Config) *Normalizer {
	n := &Normalizer{
		groupsClaim: ClaimGroups,
		rolesClaim:  ClaimRealmAccess,
		username:    FirstOf(Claim(ClaimPreferredUsername), Claim(ClaimName), Claim(ClaimSubject)),
		displayName: FirstOf(Claim(ClaimName), Claim(ClaimPreferredUsername)),
		email:       FirstOf(Claim(ClaimEmail)),
	}

	if cfg != nil {
		if cfg.GroupsClaim != "" {
			n.groupsClaim = cfg.GroupsClaim
		}

		if cfg.RolesClaim != "" {
			n.rolesClaim = cfg.RolesClaim
		}
	}

	return n
}

// Normalize resolves the canonical identity from claims.
//
// Username order: preferred_username, name, sub. If none is present the
// result is ErrIdentityIncomplete. Groups are the union, in order, of the flat
// groups claim, the flat roles claim and every role of the nested roles document.
func (n *Normalizer) Normalize(claims Claims) (Identity, error) {
	username, _, ok := n.username(claims)
	if !ok {
		return Identity{}, ErrIdentityIncomplete
	}

	displayName, _, ok := n.displayName(claims)
	if !ok {
		displayName = username
	}

	email, _, _ := n.email(claims)

	return Identity{
		ExternalUsername: username,
		DisplayName:      displayName,
		Email:            email,
		Groups:           n.Groups(claims),
	}, nil
}

// Groups returns the flattened, de-duplicated group list of claims.
func (n *Normalizer) Groups(claims Claims) []string {
	var (
		seen   = make(map[string]struct{})
		groups = make([]string, 0)
	)

	add := func(values []string) {
		for _, v := range values {
			if _, dup := seen[v]; dup {
				continue
			}

			seen[v] = struct{}{}
			groups = append(groups, v)
		}
	}

	add(claims.Strings(n.groupsClaim))

	if n.groupsClaim != ClaimRoles {
		add(claims.Strings(ClaimRoles))
	}

	add(nestedRoles(claims, n.rolesClaim))

	return groups
}
