package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/GoLoginSystem/GoLoginSystem/internal/auth"
	"github.com/GoLoginSystem/GoLoginSystem/internal/db/models"
)

// ErrNilDeps is returned by Init when a required collaborator is missing.
var ErrNilDeps = errors.New(ErrNilACDFatalLogMsg)

// User is the public representation of a local user.
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	LastLoginAt time.Time `json:"lastLoginAt"`
}

// NewUser converts a user model to its public representation.
func NewUser(u *models.User) User {
	return User{
		ID:          u.ID,
		Username:    u.ExternalUsername,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Role:        u.Role.String(),
		LastLoginAt: u.LastLoginAt,
	}
}

// LoginResponse is returned by the password and token mode logins.
type LoginResponse struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewLoginResponse converts a login result. The role is the one authorization
// uses, which for external tokens may differ from the stored snapshot.
func NewLoginResponse(r *auth.LoginResult) LoginResponse {
	user := NewUser(r.User)
	user.Role = r.Role.String()

	return LoginResponse{Token: r.Token, User: user, ExpiresAt: r.ExpiresAt}
}

// ClientInfo extracts the attempt origin from the request.
func ClientInfo(c *fiber.Ctx) auth.ClientInfo {
	return auth.ClientInfo{
		SourceAddress: c.IP(),
		UserAgent:     c.Get(fiber.HeaderUserAgent),
	}
}

// BearerToken returns the token of an "Authorization: Bearer" header.
func BearerToken(c *fiber.Ctx) (string, bool) {
	header := c.Get(fiber.HeaderAuthorization)

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)

	return token, token != ""
}

// Error writes a JSON error body.
func Error(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// LoginError maps a login failure to its response. Every authentication
// denial gets the same 401 body, whatever the precise reason.
func LoginError(c *fiber.Ctx, err error) error {
	switch auth.Reason(err) {
	case auth.ReasonBadInput:
		return Error(c, fiber.StatusBadRequest, "username and password are required")
	case auth.ReasonPersistence, auth.ReasonInternal:
		return Error(c, fiber.StatusInternalServerError, MsgInternal)
	default:
		return Error(c, fiber.StatusUnauthorized, MsgInvalidCredentials)
	}
}

// BearerError maps a token resolution failure to its response.
func BearerError(c *fiber.Ctx, err error) error {
	switch auth.Reason(err) {
	case auth.ReasonPersistence, auth.ReasonInternal:
		return Error(c, fiber.StatusInternalServerError, MsgInternal)
	default:
		return Error(c, fiber.StatusUnauthorized, MsgUnauthorized)
	}
}
