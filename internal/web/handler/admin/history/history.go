// Package history serves the login audit log to administrators.
package history

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoLoginSystem/GoLoginSystem/internal/config"
	"github.com/GoLoginSystem/GoLoginSystem/internal/db/controller/loginhistory"
	"github.com/GoLoginSystem/GoLoginSystem/internal/db/models"
	"github.com/GoLoginSystem/GoLoginSystem/internal/rbac"
	"github.com/GoLoginSystem/GoLoginSystem/internal/web/handler"
	authmiddleware "github.com/GoLoginSystem/GoLoginSystem/internal/web/middleware/auth"
)

// Path is the login history endpoint.
const Path = handler.APIPath + "/login-history"

// Service is the login history handler service.
type Service struct {
	handler.Service
	history *loginhistory.Log
}

// Handler is the login history handler.
var Handler = Service{}

// Init registers the login history route.
func (s *Service) Init(app *fiber.App, cfg *config.Config, deps *handler.Deps) error {
	if app == nil || cfg == nil || deps == nil || deps.Auth == nil || deps.History == nil {
		return handler.ErrNilDeps
	}

	s.history = deps.History

	app.Get(Path,
		authmiddleware.New(deps.Auth),
		authmiddleware.RequirePermission(rbac.PermUsersRead),
		s.List,
	)

	return nil
}

// List returns the newest attempts first, optionally filtered by the
// attempted username. limit defaults to 50 and is capped at 500.
func (s *Service) List(c *fiber.Ctx) error {
	var (
		entries []models.LoginHistory
		err     error
		limit   = c.QueryInt("limit", loginhistory.DefaultLimit)
	)

	if username := c.Query("username"); username != "" {
		entries, err = s.history.ByUsername(c.UserContext(), username, limit)
	} else {
		entries, err = s.history.Recent(c.UserContext(), limit)
	}

	if err != nil {
		log.Error().Err(err).Msg("failed to read login history")

		return handler.Error(c, fiber.StatusInternalServerError, handler.MsgInternal)
	}

	if entries == nil {
		entries = []models.LoginHistory{}
	}

	return c.JSON(entries)
}
