package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GoLoginSystem/GoLoginSystem/internal/identity"
)

// DefaultVerifyTimeout bounds a single call to the identity source.
const DefaultVerifyTimeout = 10 * time.Second

// PasswordVerifier checks a username/password pair against an identity source
// and returns the claims it asserts for the user.
type PasswordVerifier interface {
	VerifyPassword(ctx context.Context, username, password string) (identity.Claims, error)
}

// TokenVerifier checks a bearer token issued by an external identity provider
// and returns its claims.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, raw string) (identity.Claims, error)
}

// UnavailableDirectory is the password verifier used when no directory is configured.
// Every call reports the identity source as unavailable.
type UnavailableDirectory struct{}

// VerifyPassword implements PasswordVerifier.
func (UnavailableDirectory) VerifyPassword(context.Context, string, string) (identity.Claims, error) {
	return nil, fmt.Errorf("%w: no directory configured", ErrIdentitySourceUnavailable)
}

// degradableVerifier is a PasswordVerifier that can still answer after its
// primary identity source reported itself unavailable.
type degradableVerifier interface {
	Primary() PasswordVerifier
	VerifyFallback(username, password string) (identity.Claims, error)
}

type boundedResult[T any] struct {
	value T
	err   error
}

// boundedVerify runs fn with a deadline. When the deadline passes first the
// attempt is reported as ErrIdentitySourceUnavailable; fn keeps running in the
// background until it observes its cancelled context.
func boundedVerify[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		timeout = DefaultVerifyTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan boundedResult[T], 1)

	go func() {
		value, err := fn(ctx)
		done <- boundedResult[T]{value: value, err: err}
	}()

	select {
	case res := <-done:
		if errors.Is(res.err, context.DeadlineExceeded) || errors.Is(res.err, context.Canceled) {
			return res.value, fmt.Errorf("%w: %w", ErrIdentitySourceUnavailable, res.err)
		}

		return res.value, res.err
	case <-ctx.Done():
		var zero T

		return zero, fmt.Errorf("%w: %w", ErrIdentitySourceUnavailable, ctx.Err())
	}
}
