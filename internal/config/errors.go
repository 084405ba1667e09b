package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrUnsupportedEngine error if config db.gormEngine is not mysql, postgres or sqlite.
	ErrUnsupportedEngine = errors.New("toml config db.gormEngine must be mysql, postgres or sqlite")

	// ErrLDAPHostEmpty error if LDAP is enabled without a host.
	ErrLDAPHostEmpty = errors.New("toml config auth.ldap.host can not be empty when ldap is enabled")

	// ErrOIDCIssuerEmpty error if OIDC is enabled without issuer or audience.
	ErrOIDCIssuerEmpty = errors.New("toml config auth.oidc.issuer and auth.oidc.audience are required when oidc is enabled")

	// ErrIssuerClash error if access tokens would carry the external identity provider's issuer.
	ErrIssuerClash = errors.New("toml config auth.token.issuer must differ from auth.oidc.issuer")

	// ErrSigningKeyRequired error if no token signing key is configured outside dev mode.
	ErrSigningKeyRequired = errors.New("toml config auth.token.signingKey is required outside dev mode")
)
