// Package logout revokes bearer tokens.
package logout

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoLoginSystem/GoLoginSystem/internal/auth"
	"github.com/GoLoginSystem/GoLoginSystem/internal/config"
	"github.com/GoLoginSystem/GoLoginSystem/internal/web/handler"
	"github.com/GoLoginSystem/GoLoginSystem/internal/web/handler/login"
)

// Path is the logout endpoint.
const Path = login.Path + "/logout"

// Service is the logout handler service.
type Service struct {
	handler.Service
	auth *auth.Authenticator
}

// Handler is the logout handler.
var Handler = Service{}

// Init initializes the logout handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, deps *handler.Deps) error {
	if app == nil || cfg == nil || deps == nil || deps.Auth == nil {
		return handler.ErrNilDeps
	}

	s.auth = deps.Auth

	app.Post(Path, s.Logout)

	return nil
}

// Logout revokes the bearer token until it expires.
func (s *Service) Logout(c *fiber.Ctx) error {
	raw, ok := handler.BearerToken(c)
	if !ok {
		return handler.Error(c, fiber.StatusUnauthorized, handler.MsgUnauthorized)
	}

	err := s.auth.Logout(c.UserContext(), raw)

	switch {
	case err == nil:
		return c.SendStatus(fiber.StatusNoContent)
	case errors.Is(err, auth.ErrRevocationUnavailable):
		log.Error().Err(err).Msg("logout requested without a revocation list")

		return handler.Error(c, fiber.StatusNotImplemented, err.Error())
	default:
		return handler.BearerError(c, err)
	}
}
