package rbac

// Permission constants. Each permission is a resource:action token.
const (
	// PermContentRead allows reading content.
	PermContentRead = "content:read"
	// PermContentCreate allows creating content.
	PermContentCreate = "content:create"
	// PermContentUpdate allows editing content.
	PermContentUpdate = "content:update"
	// PermContentDelete allows deleting content.
	PermContentDelete = "content:delete"

	// PermUsersRead allows listing users and reading the login history.
	PermUsersRead = "users:read"
	// PermUsersUpdate allows editing users, including their role.
	PermUsersUpdate = "users:update"
	// PermUsersDelete allows deactivating users.
	PermUsersDelete = "users:delete"

	// PermSystemAdmin marks full administrative access.
	PermSystemAdmin = "system:admin"
)

var permissionTable = map[Role][]string{ //nolint:gochecknoglobals
	RoleAdmin: {
		PermContentRead, PermContentCreate, PermContentUpdate, PermContentDelete,
		PermUsersRead, PermUsersUpdate, PermUsersDelete,
		PermSystemAdmin,
	},
	RoleEditor: {
		PermContentRead, PermContentCreate, PermContentUpdate,
	},
	RoleViewer: {
		PermContentRead,
	},
}

// PermissionsFor returns the ordered permission set of role.
// Unknown roles get the viewer set, never an empty set.
// The returned slice is a copy and may be modified by the caller.
func PermissionsFor(role Role) []string {
	perms, ok := permissionTable[role]
	if !ok {
		perms = permissionTable[RoleViewer]
	}

	out := make([]string, len(perms))
	copy(out, perms)

	return out
}

// PermissionsForName resolves a role given as a free-form string,
// e.g. a role claim read from a token.
func PermissionsForName(role string) []string {
	r, _ := ParseRole(role)

	return PermissionsFor(r)
}

// HasPermission reports whether role grants permission.
func HasPermission(role Role, permission string) bool {
	for _, p := range PermissionsFor(role) {
		if p == permission {
			return true
		}
	}

	return false
}
