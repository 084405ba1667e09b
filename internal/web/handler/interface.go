package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/GoLoginSystem/GoLoginSystem/internal/auth"
	"github.com/GoLoginSystem/GoLoginSystem/internal/config"
	"github.com/GoLoginSystem/GoLoginSystem/internal/db/controller/loginhistory"
	userctl "github.com/GoLoginSystem/GoLoginSystem/internal/db/controller/user"
)

// Deps are the collaborators shared by the API handlers.
type Deps struct {
	Auth    *auth.Authenticator
	Users   *userctl.Store
	History *loginhistory.Log
}

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, cfg *config.Config, deps *Deps) error
}
