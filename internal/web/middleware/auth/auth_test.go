package auth_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoLoginSystem/GoLoginSystem/internal/auth"
	"github.com/GoLoginSystem/GoLoginSystem/internal/db/models"
	"github.com/GoLoginSystem/GoLoginSystem/internal/rbac"
	authmiddleware "github.com/GoLoginSystem/GoLoginSystem/internal/web/middleware/auth"
)

type stubResolver map[string]*auth.Principal

func (s stubResolver) Resolve(_ context.Context, raw string) (*auth.Principal, error) {
	switch raw {
	case "broken-db":
		return nil, fmt.Errorf("%w: connection reset", auth.ErrPersistence)
	case "boom":
		return nil, errors.New("unexpected")
	}

	if p, ok := s[raw]; ok {
		return p, nil
	}

	return nil, auth.ErrTokenInvalid
}

func principal(name string, role rbac.Role) *auth.Principal {
	return &auth.Principal{
		User:        &models.User{ID: name + "-id", ExternalUsername: name, Role: role},
		Role:        role,
		Permissions: rbac.PermissionsFor(role),
	}
}

func newApp() *fiber.App {
	resolver := stubResolver{
		"admin-token":  principal("admin", rbac.RoleAdmin),
		"viewer-token": principal("viewer", rbac.RoleViewer),
	}

	app := fiber.New()
	app.Get("/users",
		authmiddleware.New(resolver),
		authmiddleware.RequirePermission(rbac.PermUsersRead),
		func(c *fiber.Ctx) error {
			return c.SendString(authmiddleware.Principal(c).User.ExternalUsername)
		},
	)
	app.Get("/open", authmiddleware.RequirePermission(rbac.PermContentRead), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	return app
}

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "admin allowed", path: "/users", header: "Bearer admin-token", wantStatus: 200, wantBody: "admin"},
		{name: "scheme is case insensitive", path: "/users", header: "bearer admin-token", wantStatus: 200, wantBody: "admin"},
		{name: "viewer forbidden", path: "/users", header: "Bearer viewer-token", wantStatus: 403, wantBody: `{"error":"forbidden"}`},
		{name: "missing header", path: "/users", wantStatus: 401, wantBody: `{"error":"unauthorized"}`},
		{name: "basic scheme", path: "/users", header: "Basic YWRtaW46YWRtaW4=", wantStatus: 401},
		{name: "empty bearer", path: "/users", header: "Bearer ", wantStatus: 401},
		{name: "unknown token", path: "/users", header: "Bearer forged", wantStatus: 401},
		{name: "storage failure", path: "/users", header: "Bearer broken-db", wantStatus: 500},
		{name: "unexpected failure", path: "/users", header: "Bearer boom", wantStatus: 500},
		{name: "permission without principal", path: "/open", wantStatus: 401},
	}

	app := newApp()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.header)
			}

			resp, err := app.Test(req, -1)
			require.NoError(t, err)

			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantBody != "" {
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Equal(t, tt.wantBody, string(body))
			}
		})
	}
}
