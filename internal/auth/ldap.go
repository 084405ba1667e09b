package auth

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog/log"

	"github.com/GoLoginSystem/GoLoginSystem/internal/identity"
)

// LDAPConfig holds LDAP/Active Directory configuration for authentication.
type LDAPConfig struct {
	// Enabled indicates if LDAP authentication is enabled.
	Enabled bool
	// Host is the LDAP server hostname or IP address.
	Host string
	// Port is the LDAP server port (typically 389 for LDAP, 636 for LDAPS).
	Port int
	// UseSSL enables LDAPS (LDAP over SSL/TLS).
	UseSSL bool
	// UseTLS enables StartTLS to upgrade an LDAP connection to TLS.
	UseTLS bool
	// SkipVerify skips TLS certificate verification (insecure, for testing only).
	SkipVerify bool
	// BindDN is the distinguished name of the service account used for searches.
	BindDN string
	// BindPassword is the password for the bind DN.
	BindPassword string
	// BaseDN is the base distinguished name for user searches.
	BaseDN string
	// UserFilter is the LDAP filter for finding users (e.g., "(sAMAccountName={username})").
	UserFilter string
	// GroupBaseDN is the base distinguished name for group searches.
	GroupBaseDN string
	// GroupFilter is the LDAP filter for finding groups (e.g., "(member={userdn})").
	GroupFilter string
	// UsernameAttr is the attribute containing the username (e.g., "uid", "sAMAccountName").
	UsernameAttr string
	// EmailAttr is the attribute containing the email address.
	EmailAttr string
	// DisplayNameAttr is the attribute containing the display name.
	DisplayNameAttr string
	// FirstNameAttr and LastNameAttr build the display name when DisplayNameAttr is empty.
	FirstNameAttr string
	LastNameAttr  string
	// GroupNameAttr is the group attribute reported as the group name (e.g., "cn").
	GroupNameAttr string
	// Timeout is the dial and operation timeout in seconds.
	Timeout int
}

// LDAPVerifier verifies passwords against an LDAP directory.
type LDAPVerifier struct {
	config *LDAPConfig
}

// NewLDAPVerifier creates a new LDAP password verifier.
func NewLDAPVerifier(config *LDAPConfig) (*LDAPVerifier, error) {
	if config == nil || !config.Enabled {
		return nil, ErrLDAPDisabled
	}

	cfg := *config

	if cfg.UserFilter == "" {
		cfg.UserFilter = "(uid={username})"
	}

	if cfg.GroupFilter == "" {
		cfg.GroupFilter = "(member={userdn})"
	}

	if cfg.UsernameAttr == "" {
		cfg.UsernameAttr = "uid"
	}

	if cfg.EmailAttr == "" {
		cfg.EmailAttr = "mail"
	}

	if cfg.DisplayNameAttr == "" {
		cfg.DisplayNameAttr = "displayName"
	}

	if cfg.FirstNameAttr == "" {
		cfg.FirstNameAttr = "givenName"
	}

	if cfg.LastNameAttr == "" {
		cfg.LastNameAttr = "sn"
	}

	if cfg.GroupNameAttr == "" {
		cfg.GroupNameAttr = "cn"
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 10
	}

	return &LDAPVerifier{config: &cfg}, nil
}

func (v *LDAPVerifier) timeout() time.Duration {
	return time.Duration(v.config.Timeout) * time.Second
}

// connect establishes a connection to the LDAP server.
func (v *LDAPVerifier) connect(ctx context.Context) (*ldap.Conn, error) {
	hostPort := net.JoinHostPort(v.config.Host, strconv.Itoa(v.config.Port))

	ldapURL := "ldap://" + hostPort
	if v.config.UseSSL {
		ldapURL = "ldaps://" + hostPort
	}

	var tlsConfig *tls.Config
	if v.config.UseSSL || v.config.UseTLS {
		tlsConfig = &tls.Config{
			InsecureSkipVerify: v.config.SkipVerify, //nolint:gosec // skipping verifying tls is ok
			ServerName:         v.config.Host,
		}
	}

	dialer := &net.Dialer{Timeout: v.timeout()}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	conn, err := ldap.DialURL(ldapURL, ldap.DialWithTLSConfig(tlsConfig), ldap.DialWithDialer(dialer))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to LDAP server: %w", ErrIdentitySourceUnavailable, err)
	}

	if !v.config.UseSSL && v.config.UseTLS {
		if errStartTLS := conn.StartTLS(tlsConfig); errStartTLS != nil {
			closeConn(conn)

			return nil, fmt.Errorf("%w: failed to start TLS: %w", ErrIdentitySourceUnavailable, errStartTLS)
		}
	}

	conn.SetTimeout(v.timeout())

	return conn, nil
}

func closeConn(conn *ldap.Conn) {
	if err := conn.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close LDAP connection")
	}
}

// VerifyPassword binds as the user and returns the directory claims:
// sub is the user DN, groups are the names of the groups the user belongs to.
func (v *LDAPVerifier) VerifyPassword(ctx context.Context, username, password string) (identity.Claims, error) {
	// an empty password would be an unauthenticated bind, which most servers accept
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	conn, err := v.connect(ctx)
	if err != nil {
		return nil, err
	}

	defer closeConn(conn)

	if err = v.bindService(conn); err != nil {
		return nil, classifyLDAPError(err, false)
	}

	entry, err := v.searchUserEntry(conn, username)
	if err != nil {
		return nil, classifyLDAPError(err, true)
	}

	if err = conn.Bind(entry.DN, password); err != nil {
		return nil, classifyLDAPError(fmt.Errorf("authentication failed: %w", err), true)
	}

	if err = v.bindService(conn); err != nil {
		return nil, classifyLDAPError(err, false)
	}

	groups, err := v.userGroups(conn, entry.DN)
	if err != nil {
		return nil, classifyLDAPError(fmt.Errorf("failed to get user groups: %w", err), false)
	}

	return v.claimsFromEntry(entry, username, groups), nil
}

func (v *LDAPVerifier) claimsFromEntry(entry *ldap.Entry, username string, groups []string) identity.Claims {
	preferred := entry.GetAttributeValue(v.config.UsernameAttr)
	if preferred == "" {
		preferred = username
	}

	displayName := entry.GetAttributeValue(v.config.DisplayNameAttr)
	if displayName == "" {
		displayName = strings.TrimSpace(entry.GetAttributeValue(v.config.FirstNameAttr) + " " +
			entry.GetAttributeValue(v.config.LastNameAttr))
	}

	claims := identity.Claims{
		identity.ClaimSubject:           entry.DN,
		identity.ClaimPreferredUsername: preferred,
		identity.ClaimGroups:            groups,
	}

	if displayName != "" {
		claims[identity.ClaimName] = displayName
	}

	if email := entry.GetAttributeValue(v.config.EmailAttr); email != "" {
		claims[identity.ClaimEmail] = email
	}

	return claims
}

// bindService binds with the configured service account, if any.
func (v *LDAPVerifier) bindService(conn *ldap.Conn) error {
	if v.config.BindDN == "" {
		return nil
	}

	if err := conn.Bind(v.config.BindDN, v.config.BindPassword); err != nil {
		return fmt.Errorf("failed to bind with service account: %w", err)
	}

	return nil
}

// searchUserEntry searches LDAP for the given username and returns a single entry.
func (v *LDAPVerifier) searchUserEntry(conn *ldap.Conn, username string) (*ldap.Entry, error) {
	userFilter := strings.ReplaceAll(v.config.UserFilter, "{username}", ldap.EscapeFilter(username))
	searchRequest := ldap.NewSearchRequest(
		v.config.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		2,
		v.config.Timeout,
		false,
		userFilter,
		[]string{
			v.config.UsernameAttr,
			v.config.EmailAttr,
			v.config.DisplayNameAttr,
			v.config.FirstNameAttr,
			v.config.LastNameAttr,
			"dn",
		},
		nil,
	)

	searchResult, err := conn.Search(searchRequest)
	if err != nil && !ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded) {
		return nil, fmt.Errorf("failed to search for user: %w", err)
	}

	if searchResult == nil {
		return nil, errUserNotFound
	}

	switch len(searchResult.Entries) {
	case 0:
		return nil, errUserNotFound
	case 1:
		return searchResult.Entries[0], nil
	default:
		return nil, errMultipleUsersFound
	}
}

// userGroups returns the names of the groups userDN is a member of.
func (v *LDAPVerifier) userGroups(conn *ldap.Conn, userDN string) ([]string, error) {
	if v.config.GroupBaseDN == "" {
		return nil, nil
	}

	groupFilter := strings.ReplaceAll(v.config.GroupFilter, "{userdn}", ldap.EscapeFilter(userDN))
	searchRequest := ldap.NewSearchRequest(
		v.config.GroupBaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0,
		v.config.Timeout,
		false,
		groupFilter,
		[]string{v.config.GroupNameAttr, "dn"},
		nil,
	)

	searchResult, err := conn.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to search for groups: %w", err)
	}

	groups := make([]string, 0, len(searchResult.Entries))

	for _, entry := range searchResult.Entries {
		name := entry.GetAttributeValue(v.config.GroupNameAttr)
		if name == "" {
			name = entry.DN
		}

		groups = append(groups, name)
	}

	return groups, nil
}

// classifyLDAPError maps directory errors onto the authentication taxonomy.
// userStep reports whether err came from looking up or binding as the user;
// only those steps can yield ErrInvalidCredentials.
func classifyLDAPError(err error, userStep bool) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrIdentitySourceUnavailable), errors.Is(err, ErrInvalidCredentials):
		return err
	case userStep && (errors.Is(err, errUserNotFound) || errors.Is(err, errMultipleUsersFound)):
		return fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	case userStep && ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials):
		return fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	default:
		return fmt.Errorf("%w: %w", ErrIdentitySourceUnavailable, err)
	}
}

// TestConnection dials the server and binds the service account.
func (v *LDAPVerifier) TestConnection(ctx context.Context) error {
	conn, err := v.connect(ctx)
	if err != nil {
		return err
	}

	defer closeConn(conn)

	return v.bindService(conn)
}
