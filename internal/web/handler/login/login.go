package login

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/GoLoginSystem/GoLoginSystem/internal/auth"
	"github.com/GoLoginSystem/GoLoginSystem/internal/config"
	"github.com/GoLoginSystem/GoLoginSystem/internal/web/handler"
)

const (
	// Path is the route group of the authentication endpoints.
	Path = handler.APIPath + "/auth"

	// LoginPath is the password mode login.
	LoginPath = Path + "/login"

	// TokenPath is the token mode login with an identity provider token.
	TokenPath = Path + "/token"
)

// Request is the password login body.
type Request struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// Service is the login handler service.
type Service struct {
	handler.Service
	cfg       *config.Config
	auth      *auth.Authenticator
	validator *validator.Validate
}

// Handler is the login handler.
var Handler = Service{}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, deps *handler.Deps) error {
	if app == nil || cfg == nil || deps == nil || deps.Auth == nil {
		return handler.ErrNilDeps
	}

	s.cfg = cfg
	s.auth = deps.Auth
	s.validator = validator.New()

	app.Route(Path, func(router fiber.Router) {
		router.Post("/login", s.Login)
		router.Post("/token", s.Token)
	})

	return nil
}

// Login handles the password mode login.
func (s *Service) Login(c *fiber.Ctx) error {
	req := new(Request)

	if err := c.BodyParser(req); err != nil {
		return handler.Error(c, fiber.StatusBadRequest, ErrInvalidFormData.Error())
	}

	if err := s.validator.Struct(req); err != nil {
		return handler.Error(c, fiber.StatusBadRequest, ErrMissingFields.Error())
	}

	result, err := s.auth.Login(c.UserContext(), auth.Attempt{
		Username:   req.Username,
		Password:   req.Password,
		ClientInfo: handler.ClientInfo(c),
	})
	if err != nil {
		return handler.LoginError(c, err)
	}

	return c.JSON(handler.NewLoginResponse(result))
}

// Token handles the token mode login. The identity provider token is
// verified, the user reconciled and the attempt recorded; the token is echoed back.
func (s *Service) Token(c *fiber.Ctx) error {
	raw, ok := handler.BearerToken(c)
	if !ok {
		return handler.Error(c, fiber.StatusBadRequest, ErrMissingBearer.Error())
	}

	result, err := s.auth.Exchange(c.UserContext(), raw, handler.ClientInfo(c))
	if err != nil {
		return handler.LoginError(c, err)
	}

	return c.JSON(handler.NewLoginResponse(result))
}
