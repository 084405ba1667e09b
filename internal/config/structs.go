package config

import (
	"time"

	"github.com/GoLoginSystem/GoLoginSystem/internal/auth"
	"github.com/GoLoginSystem/GoLoginSystem/internal/identity"
	"github.com/GoLoginSystem/GoLoginSystem/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development, required for fallback credentials
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Auth      Auth
}

// Webserver implement webserver settings.
type Webserver struct {
	DisableRecover bool   // disable recover middleware
	Port           int    // listening port for the webserver
	ShutDownTime   int    // seconds to drain before the listener is closed
	URL            string // base url for the webserver
	BodyLimit      int    // max request body size in bytes
	RevocationGC   int    // seconds between revocation list expiry sweeps
}

// Auth groups the identity source, token and fallback settings.
type Auth struct {
	// VerifyTimeout bounds every call to the directory or identity provider.
	VerifyTimeout time.Duration
	LDAP          auth.LDAPConfig
	OIDC          auth.OIDCConfig
	Claims        identity.Config
	Token         auth.TokenConfig
	Fallback      Fallback
}

// Fallback holds the development-only credentials used when the directory is unreachable.
// They are ignored unless DevMode is set.
type Fallback struct {
	Enabled bool
	Users   []auth.FallbackUser
}
