// Package me serves the profile of the authenticated caller.
package me

import (
	"github.com/gofiber/fiber/v2"

	"github.com/GoLoginSystem/GoLoginSystem/internal/config"
	"github.com/GoLoginSystem/GoLoginSystem/internal/web/handler"
	"github.com/GoLoginSystem/GoLoginSystem/internal/web/handler/login"
	authmiddleware "github.com/GoLoginSystem/GoLoginSystem/internal/web/middleware/auth"
)

// Path is the profile endpoint.
const Path = login.Path + "/me"

// Response is the caller's user and effective permissions.
type Response struct {
	User        handler.User `json:"user"`
	Permissions []string     `json:"permissions"`
}

// Service is the profile handler service.
type Service struct {
	handler.Service
}

// Handler is the profile handler.
var Handler = Service{}

// Init registers the profile route.
func (s *Service) Init(app *fiber.App, cfg *config.Config, deps *handler.Deps) error {
	if app == nil || cfg == nil || deps == nil || deps.Auth == nil {
		return handler.ErrNilDeps
	}

	app.Get(Path, authmiddleware.New(deps.Auth), s.Get)

	return nil
}

// Get returns the caller. The role shown is the one authorization uses.
func (s *Service) Get(c *fiber.Ctx) error {
	principal := authmiddleware.Principal(c)
	if principal == nil {
		return handler.Error(c, fiber.StatusUnauthorized, handler.MsgUnauthorized)
	}

	user := handler.NewUser(principal.User)
	user.Role = principal.Role.String()

	return c.JSON(Response{User: user, Permissions: principal.Permissions})
}
