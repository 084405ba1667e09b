package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoLoginSystem/GoLoginSystem/internal/identity"
)

// stubVerifier is a PasswordVerifier returning fixed results.
type stubVerifier struct {
	claims identity.Claims
	err    error
	calls  int
}

func (s *stubVerifier) VerifyPassword(context.Context, string, string) (identity.Claims, error) {
	s.calls++

	return s.claims, s.err
}

// blockingVerifier never answers before its context ends.
type blockingVerifier struct{}

func (blockingVerifier) VerifyPassword(ctx context.Context, _, _ string) (identity.Claims, error) {
	<-ctx.Done()

	return nil, ctx.Err()
}

func TestReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: ErrInvalidCredentials, want: ReasonInvalidCredentials},
		{err: fmt.Errorf("%w: bind failed", ErrInvalidCredentials), want: ReasonInvalidCredentials},
		{err: ErrTokenInvalid, want: ReasonTokenInvalid},
		{err: fmt.Errorf("%w: timeout", ErrIdentitySourceUnavailable), want: ReasonIdentitySourceUnavailable},
		{err: identity.ErrIdentityIncomplete, want: ReasonIdentityIncomplete},
		{err: fmt.Errorf("%w: db down", ErrPersistence), want: ReasonPersistence},
		{err: ErrBadInput, want: ReasonBadInput},
		{err: errors.New("boom"), want: ReasonInternal},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Reason(tt.err))
		})
	}
}

func TestBoundedVerify(t *testing.T) {
	t.Run("result before deadline", func(t *testing.T) {
		got, err := boundedVerify(context.Background(), time.Second, func(context.Context) (string, error) {
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
	})

	t.Run("error before deadline is passed through", func(t *testing.T) {
		_, err := boundedVerify(context.Background(), time.Second, func(context.Context) (string, error) {
			return "", ErrInvalidCredentials
		})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("deadline is source unavailable", func(t *testing.T) {
		started := time.Now()

		_, err := boundedVerify(context.Background(), 20*time.Millisecond, func(ctx context.Context) (identity.Claims, error) {
			return blockingVerifier{}.VerifyPassword(ctx, "u", "p")
		})
		require.ErrorIs(t, err, ErrIdentitySourceUnavailable)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(started), time.Second)
	})
}

func TestUnavailableDirectory(t *testing.T) {
	_, err := UnavailableDirectory{}.VerifyPassword(context.Background(), "admin", "admin123")
	require.ErrorIs(t, err, ErrIdentitySourceUnavailable)
}

func TestNewLDAPVerifier_Defaults(t *testing.T) {
	_, err := NewLDAPVerifier(&LDAPConfig{Enabled: false})
	require.ErrorIs(t, err, ErrLDAPDisabled)

	_, err = NewLDAPVerifier(nil)
	require.ErrorIs(t, err, ErrLDAPDisabled)

	cfg := &LDAPConfig{Enabled: true, Host: "ldap.example.com", Port: 389}

	v, err := NewLDAPVerifier(cfg)
	require.NoError(t, err)
	assert.Equal(t, "(uid={username})", v.config.UserFilter)
	assert.Equal(t, "cn", v.config.GroupNameAttr)
	assert.Equal(t, 10, v.config.Timeout)
	assert.Empty(t, cfg.UserFilter, "caller config must not be modified")
}

func TestLDAPVerifier_Unreachable(t *testing.T) {
	v, err := NewLDAPVerifier(&LDAPConfig{Enabled: true, Host: "127.0.0.1", Port: 1, Timeout: 1})
	require.NoError(t, err)

	_, err = v.VerifyPassword(context.Background(), "admin", "admin123")
	require.ErrorIs(t, err, ErrIdentitySourceUnavailable)

	require.ErrorIs(t, v.TestConnection(context.Background()), ErrIdentitySourceUnavailable)
}

func TestLDAPVerifier_EmptyPassword(t *testing.T) {
	v, err := NewLDAPVerifier(&LDAPConfig{Enabled: true, Host: "127.0.0.1", Port: 1})
	require.NoError(t, err)

	_, err = v.VerifyPassword(context.Background(), "admin", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestClassifyLDAPError(t *testing.T) {
	invalidCreds := ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("bad password"))
	network := ldap.NewError(ldap.ErrorNetwork, errors.New("connection reset"))

	tests := []struct {
		name     string
		err      error
		userStep bool
		want     error
	}{
		{name: "user bind rejected", err: invalidCreds, userStep: true, want: ErrInvalidCredentials},
		{name: "service bind rejected", err: invalidCreds, userStep: false, want: ErrIdentitySourceUnavailable},
		{name: "network error", err: network, userStep: true, want: ErrIdentitySourceUnavailable},
		{name: "unknown user", err: errUserNotFound, userStep: true, want: ErrInvalidCredentials},
		{name: "ambiguous user", err: errMultipleUsersFound, userStep: true, want: ErrInvalidCredentials},
		{name: "already classified", err: ErrIdentitySourceUnavailable, userStep: true, want: ErrIdentitySourceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, classifyLDAPError(tt.err, tt.userStep), tt.want)
		})
	}

	require.NoError(t, classifyLDAPError(nil, true))
}

func TestFallbackDirectory(t *testing.T) {
	ctx := context.Background()

	t.Run("refused outside dev mode", func(t *testing.T) {
		d, err := NewFallbackDirectory(false, UnavailableDirectory{}, nil)
		require.ErrorIs(t, err, ErrFallbackRequiresDevMode)
		assert.Nil(t, d)
	})

	d, err := NewFallbackDirectory(true, UnavailableDirectory{}, nil)
	require.NoError(t, err)

	t.Run("default admin when directory unavailable", func(t *testing.T) {
		claims, err := d.VerifyPassword(ctx, "admin", "admin123")
		require.NoError(t, err)

		username, _ := claims.String(identity.ClaimPreferredUsername)
		name, _ := claims.String(identity.ClaimName)
		email, _ := claims.String(identity.ClaimEmail)

		assert.Equal(t, "admin", username)
		assert.Equal(t, "Administrator", name)
		assert.Equal(t, "admin@company.com", email)
		assert.Equal(t, []string{"Administrators"}, claims.Strings(identity.ClaimGroups))
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := d.VerifyPassword(ctx, "viewer", "wrongpassword")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := d.VerifyPassword(ctx, "nobody", "admin123")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("returned claims are copies", func(t *testing.T) {
		claims, err := d.VerifyPassword(ctx, "editor", "editor123")
		require.NoError(t, err)

		claims[identity.ClaimName] = "changed"

		again, err := d.VerifyPassword(ctx, "editor", "editor123")
		require.NoError(t, err)

		name, _ := again.String(identity.ClaimName)
		assert.Equal(t, "Content Editor", name)
	})

	t.Run("reachable directory answers are final", func(t *testing.T) {
		primary := &stubVerifier{err: ErrInvalidCredentials}

		wrapped, err := NewFallbackDirectory(true, primary, nil)
		require.NoError(t, err)

		_, err = wrapped.VerifyPassword(ctx, "admin", "admin123")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Equal(t, 1, primary.calls)

		primary.err = nil
		primary.claims = identity.Claims{identity.ClaimPreferredUsername: "admin", identity.ClaimGroups: []string{"Staff"}}

		claims, err := wrapped.VerifyPassword(ctx, "admin", "anything")
		require.NoError(t, err)
		assert.Equal(t, []string{"Staff"}, claims.Strings(identity.ClaimGroups))
	})

	t.Run("fallback table alone", func(t *testing.T) {
		assert.Equal(t, UnavailableDirectory{}, d.Primary())

		claims, err := d.VerifyFallback("admin", "admin123")
		require.NoError(t, err)
		assert.Equal(t, []string{"Administrators"}, claims.Strings(identity.ClaimGroups))

		_, err = d.VerifyFallback("admin", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("custom users replace the defaults", func(t *testing.T) {
		custom, err := NewFallbackDirectory(true, nil, []FallbackUser{
			{Username: "neweditor", Password: "editor123", Groups: []string{"Editors"}},
		})
		require.NoError(t, err)

		_, err = custom.VerifyPassword(ctx, "neweditor", "editor123")
		require.NoError(t, err)

		_, err = custom.VerifyPassword(ctx, "admin", "admin123")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
