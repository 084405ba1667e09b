// Package main provides the entry point of the login system.
// It authenticates users against an LDAP directory or an external OIDC
// identity provider, reconciles them into local user records, issues signed
// access tokens with one application role and records every login attempt.
// The API is served with Fiber and persisted with gorm.
package main
