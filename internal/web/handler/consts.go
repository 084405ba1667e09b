package handler

const (
	// APIPath is the prefix of every API route.
	APIPath = "/api"

	// RootPath is the root path of a route group.
	RootPath = "/"

	// ErrNilACDFatalLogMsg is used if app, cfg or deps is nil.
	ErrNilACDFatalLogMsg = "app, cfg or deps is nil"

	// MsgInvalidCredentials is the only message any authentication denial produces.
	MsgInvalidCredentials = "invalid credentials"

	// MsgUnauthorized is returned for missing, invalid or revoked bearer tokens.
	MsgUnauthorized = "unauthorized"

	// MsgForbidden is returned when the caller lacks a permission.
	MsgForbidden = "forbidden"

	// MsgInternal is returned for persistence and other server side failures.
	MsgInternal = "internal server error"
)
