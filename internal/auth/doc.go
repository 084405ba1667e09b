// Package auth authenticates users against external identity sources and
// issues the application's access tokens.
//
// Two kinds of attempts are supported:
//   - Password mode: a username/password pair is checked by a PasswordVerifier,
//     normally the LDAP/Active Directory directory (LDAPVerifier).
//   - Token mode: a bearer token of an external OIDC identity provider is
//     checked by a TokenVerifier (OIDCVerifier) against the issuer's keys.
//
// # Login flow
//
// Authenticator drives every attempt through the same steps:
//
//	verify -> normalize claims -> derive role -> reconcile user -> record attempt -> issue token
//
// Verification runs under a bounded timeout; a timeout or connectivity error
// is ErrIdentitySourceUnavailable and is never retried here. Every attempt
// that passes input validation is recorded exactly once in the login history.
// A failed audit write on a denial is logged and the denial stands; a failed
// audit write on a success aborts the login with ErrPersistence before the
// token leaves the package.
//
// # Denials
//
// Callers must present all denials the same way. The precise cause is kept in
// the login history, see Reason.
//
// # Development fallback
//
// FallbackDirectory answers from a fixed credential table when the directory
// is unreachable. It refuses to be constructed outside dev mode.
//
// Example usage:
//
//	tokens, err := auth.NewTokenService(&auth.TokenConfig{
//	    Issuer: "loginsystem", Audience: "loginsystem-api", SigningKey: key,
//	}, oidcVerifier, normalizer)
//
//	a, err := auth.NewAuthenticator(auth.Options{
//	    Passwords: ldapVerifier, Tokens: tokens, Users: users, Audit: history,
//	})
//
//	res, err := a.Login(ctx, auth.Attempt{Username: "jdoe", Password: "secret"})
package auth
