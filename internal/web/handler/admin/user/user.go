// Package user provides the admin endpoints for managing local users.
package user

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoLoginSystem/GoLoginSystem/internal/config"
	"github.com/GoLoginSystem/GoLoginSystem/internal/db/controller/loginhistory"
	userctl "github.com/GoLoginSystem/GoLoginSystem/internal/db/controller/user"
	"github.com/GoLoginSystem/GoLoginSystem/internal/db/models"
	"github.com/GoLoginSystem/GoLoginSystem/internal/rbac"
	"github.com/GoLoginSystem/GoLoginSystem/internal/web/handler"
	authmiddleware "github.com/GoLoginSystem/GoLoginSystem/internal/web/middleware/auth"
)

const (
	// Path is the base path for user management.
	Path = handler.APIPath + "/users"

	msgUserNotFound = "user not found"
)

// UpdateRequest is the body of an admin update. Absent or empty fields are left unchanged.
type UpdateRequest struct {
	DisplayName string `json:"displayName" validate:"omitempty,max=256"`
	Email       string `json:"email" validate:"omitempty,email,max=256"`
	Role        string `json:"role" validate:"omitempty,oneof=Admin Editor Viewer"`
}

// Service provides the user management endpoints.
type Service struct {
	handler.Service
	cfg       *config.Config
	users     *userctl.Store
	history   *loginhistory.Log
	validator *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, deps *handler.Deps) error {
	if app == nil || cfg == nil || deps == nil || deps.Auth == nil || deps.Users == nil || deps.History == nil {
		return handler.ErrNilDeps
	}

	s.cfg = cfg
	s.users = deps.Users
	s.history = deps.History
	s.validator = validator.New()

	router := app.Group(Path, authmiddleware.New(deps.Auth))

	router.Get(handler.RootPath, authmiddleware.RequirePermission(rbac.PermUsersRead), s.List)
	router.Get("/:id", authmiddleware.RequirePermission(rbac.PermUsersRead), s.Get)
	router.Get("/:id/login-history", authmiddleware.RequirePermission(rbac.PermUsersRead), s.LoginHistory)
	router.Put("/:id", authmiddleware.RequirePermission(rbac.PermUsersUpdate), s.Update)
	router.Delete("/:id", authmiddleware.RequirePermission(rbac.PermUsersDelete), s.Delete)

	return nil
}

// List returns all active users.
func (s *Service) List(c *fiber.Ctx) error {
	users, err := s.users.ListActive(c.UserContext())
	if err != nil {
		log.Error().Err(err).Msg("failed to list users")

		return handler.Error(c, fiber.StatusInternalServerError, handler.MsgInternal)
	}

	out := make([]handler.User, 0, len(users))
	for i := range users {
		out = append(out, handler.NewUser(&users[i]))
	}

	return c.JSON(out)
}

// Get returns one active user.
func (s *Service) Get(c *fiber.Ctx) error {
	user, err := s.users.GetActiveByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.storeError(c, err)
	}

	return c.JSON(handler.NewUser(user))
}

// Update changes display name, email or role. It is the only way to change a stored role.
func (s *Service) Update(c *fiber.Ctx) error {
	req := new(UpdateRequest)

	if err := c.BodyParser(req); err != nil {
		return handler.Error(c, fiber.StatusBadRequest, "invalid form data")
	}

	if err := s.validator.Struct(req); err != nil {
		return handler.Error(c, fiber.StatusBadRequest, err.Error())
	}

	var patch userctl.Patch

	if req.DisplayName != "" {
		patch.DisplayName = &req.DisplayName
	}

	if req.Email != "" {
		patch.Email = &req.Email
	}

	if req.Role != "" {
		role, _ := rbac.ParseRole(req.Role)
		patch.Role = &role
	}

	user, err := s.users.Update(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return s.storeError(c, err)
	}

	log.Info().Str("user_id", user.ID).Str("by", authmiddleware.Principal(c).User.ExternalUsername).
		Msg("user updated")

	return c.JSON(handler.NewUser(user))
}

// Delete deactivates a user. The row is kept for the audit trail.
func (s *Service) Delete(c *fiber.Ctx) error {
	id := c.Params("id")

	if caller := authmiddleware.Principal(c); caller.User.ID == id {
		return handler.Error(c, fiber.StatusBadRequest, "cannot deactivate yourself")
	}

	if err := s.users.Deactivate(c.UserContext(), id); err != nil {
		return s.storeError(c, err)
	}

	log.Info().Str("user_id", id).Str("by", authmiddleware.Principal(c).User.ExternalUsername).
		Msg("user deactivated")

	return c.JSON(fiber.Map{"message": "user deactivated"})
}

// LoginHistory returns the recorded attempts of one user.
func (s *Service) LoginHistory(c *fiber.Ctx) error {
	entries, err := s.history.ByUserID(c.UserContext(), c.Params("id"), c.QueryInt("limit", loginhistory.DefaultLimit))
	if err != nil {
		log.Error().Err(err).Msg("failed to read login history")

		return handler.Error(c, fiber.StatusInternalServerError, handler.MsgInternal)
	}

	if entries == nil {
		entries = []models.LoginHistory{}
	}

	return c.JSON(entries)
}

func (s *Service) storeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, userctl.ErrUserNotFound):
		return handler.Error(c, fiber.StatusNotFound, msgUserNotFound)
	case errors.Is(err, userctl.ErrInvalidRole):
		return handler.Error(c, fiber.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Msg("user store failure")

		return handler.Error(c, fiber.StatusInternalServerError, handler.MsgInternal)
	}
}
