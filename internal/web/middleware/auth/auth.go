package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/GoLoginSystem/GoLoginSystem/internal/auth"
	"github.com/GoLoginSystem/GoLoginSystem/internal/web/handler"
)

const (
	// LocalPrincipal is the fiber.Ctx locals key of the resolved *auth.Principal.
	LocalPrincipal = "principal"

	// LocalUsername is the fiber.Ctx locals key of the caller's username, read by the access log.
	LocalUsername = "username"
)

// Resolver turns a raw bearer token into a principal.
type Resolver interface {
	Resolve(ctx context.Context, raw string) (*auth.Principal, error)
}

// New returns a middleware that requires a valid bearer token.
func New(resolver Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, ok := handler.BearerToken(c)
		if !ok {
			return handler.Error(c, fiber.StatusUnauthorized, handler.MsgUnauthorized)
		}

		principal, err := resolver.Resolve(c.UserContext(), raw)
		if err != nil {
			return handler.BearerError(c, err)
		}

		c.Locals(LocalPrincipal, principal)
		c.Locals(LocalUsername, principal.User.ExternalUsername)

		return c.Next()
	}
}

// RequirePermission returns a middleware that requires the principal set by New
// to hold permission.
func RequirePermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal := Principal(c)
		if principal == nil {
			return handler.Error(c, fiber.StatusUnauthorized, handler.MsgUnauthorized)
		}

		if !principal.Can(permission) {
			return handler.Error(c, fiber.StatusForbidden, handler.MsgForbidden)
		}

		return c.Next()
	}
}

// Principal returns the principal set by New, or nil.
func Principal(c *fiber.Ctx) *auth.Principal {
	p, _ := c.Locals(LocalPrincipal).(*auth.Principal)

	return p
}
