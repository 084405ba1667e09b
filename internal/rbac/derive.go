package rbac

import "strings"

// DeriveRole maps a directory group list (or a flattened token role list) onto
// exactly one role.
//
// The match is a case-insensitive substring match, not an exact one: any group
// containing "admin" (which covers "administrator") yields RoleAdmin, otherwise
// any group containing "editor" yields RoleEditor, otherwise RoleViewer.
// This broad match is the documented policy and it is security relevant: a group
// literally named "NonAdminStuff" elevates its members to RoleAdmin. Directory
// group names must be curated with that in mind.
//
// An empty group list yields RoleViewer.
func DeriveRole(groups []string) Role {
	var editor bool

	for _, g := range groups {
		name := strings.ToLower(g)

		if strings.Contains(name, "admin") || strings.Contains(name, "administrator") {
			return RoleAdmin
		}

		if strings.Contains(name, "editor") {
			editor = true
		}
	}

	if editor {
		return RoleEditor
	}

	return RoleViewer
}
