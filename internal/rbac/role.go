// Package rbac implements the application roles, the group to role derivation
// and the static role to permission table.
package rbac

import "strings"

// Role is the coarse-grained unit of authorization.
type Role string

const (
	// RoleAdmin has every permission.
	RoleAdmin Role = "Admin"
	// RoleEditor can read and write content.
	RoleEditor Role = "Editor"
	// RoleViewer can only read content.
	RoleViewer Role = "Viewer"
)

// Roles lists every role ordered from most to least privileged.
var Roles = []Role{RoleAdmin, RoleEditor, RoleViewer} //nolint:gochecknoglobals

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r.rank() > 0
}

// AtLeast reports whether r is as privileged as other.
// Unknown roles are never at least anything.
func (r Role) AtLeast(other Role) bool {
	if !r.Valid() {
		return false
	}

	return r.rank() >= other.rank()
}

func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 3 //nolint:mnd
	case RoleEditor:
		return 2 //nolint:mnd
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

// ParseRole maps s case-insensitively onto a known role.
// The second return value is false for unknown input, in which case RoleViewer is returned.
func ParseRole(s string) (Role, bool) {
	for _, r := range Roles {
		if strings.EqualFold(strings.TrimSpace(s), string(r)) {
			return r, true
		}
	}

	return RoleViewer, false
}
