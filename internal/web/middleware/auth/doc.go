// Package auth provides bearer token middleware for the API.
//
// New resolves the "Authorization: Bearer" token through the authenticator and
// stores the principal in fiber.Locals. RequirePermission then checks the
// principal's role permissions:
//
//	app.Get("/api/users", authmiddleware.New(authenticator),
//		authmiddleware.RequirePermission(rbac.PermUsersRead), handler)
//
// Missing, invalid and revoked tokens get 401, missing permissions 403.
package auth
