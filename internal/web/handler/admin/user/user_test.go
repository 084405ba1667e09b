package user_test

import (
	"encoding/json"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoLoginSystem/GoLoginSystem/internal/auth"
	"github.com/GoLoginSystem/GoLoginSystem/internal/db/models"
	"github.com/GoLoginSystem/GoLoginSystem/internal/rbac"
	"github.com/GoLoginSystem/GoLoginSystem/internal/web/handler"
	"github.com/GoLoginSystem/GoLoginSystem/internal/web/handler/admin/user"
	"github.com/GoLoginSystem/GoLoginSystem/internal/web/webtest"
)

type fixture struct {
	env      *webtest.Env
	admin    string
	adminID  string
	viewerID string
	editor   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	var s user.Service

	env := webtest.New(t, s.Init)

	login := func(username, password string) *auth.LoginResult {
		result, err := env.Deps.Auth.Login(t.Context(), auth.Attempt{Username: username, Password: password})
		require.NoError(t, err)

		return result
	}

	admin := login("admin", "admin123")
	editor := login("editor", "editor123")
	viewer := login("viewer", "viewer123")

	return &fixture{
		env:      env,
		admin:    admin.Token,
		adminID:  admin.User.ID,
		viewerID: viewer.User.ID,
		editor:   editor.Token,
	}
}

func TestList(t *testing.T) {
	f := newFixture(t)

	resp, body := f.env.Do(t, fiber.MethodGet, user.Path, f.admin, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var users []handler.User
	require.NoError(t, json.Unmarshal(body, &users))
	require.Len(t, users, 3)

	names := []string{users[0].Username, users[1].Username, users[2].Username}
	assert.ElementsMatch(t, []string{"admin", "editor", "viewer"}, names)
}

func TestGet(t *testing.T) {
	f := newFixture(t)

	resp, body := f.env.Do(t, fiber.MethodGet, user.Path+"/"+f.viewerID, f.admin, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got handler.User
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "viewer", got.Username)
	assert.Equal(t, "Viewer", got.Role)

	resp, body = f.env.Do(t, fiber.MethodGet, user.Path+"/does-not-exist", f.admin, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"user not found"}`, string(body))
}

func TestUpdate_RoleChange(t *testing.T) {
	f := newFixture(t)

	resp, body := f.env.Do(t, fiber.MethodPut, user.Path+"/"+f.viewerID, f.admin,
		user.UpdateRequest{Role: "Editor", DisplayName: "Promoted Viewer"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var got handler.User
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "Editor", got.Role)
	assert.Equal(t, "Promoted Viewer", got.DisplayName)
	assert.Equal(t, "viewer@company.com", got.Email, "absent fields are unchanged")

	// the new role survives the next login, reconciliation never touches it
	result, err := f.env.Deps.Auth.Login(t.Context(), auth.Attempt{Username: "viewer", Password: "viewer123"})
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleEditor, result.Role)
	assert.Equal(t, "Content Viewer", result.User.DisplayName, "display name is refreshed from the directory")
}

func TestUpdate_Invalid(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		target string
		body   any
		want   int
	}{
		{name: "unknown role", target: f.viewerID, body: user.UpdateRequest{Role: "Owner"}, want: fiber.StatusBadRequest},
		{name: "bad email", target: f.viewerID, body: user.UpdateRequest{Email: "not-an-email"}, want: fiber.StatusBadRequest},
		{name: "malformed body", target: f.viewerID, body: "{", want: fiber.StatusBadRequest},
		{name: "missing user", target: "nope", body: user.UpdateRequest{Role: "Viewer"}, want: fiber.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := f.env.Do(t, fiber.MethodPut, user.Path+"/"+tt.target, f.admin, tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.env.Do(t, fiber.MethodDelete, user.Path+"/"+f.adminID, f.admin, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "admins cannot deactivate themselves")

	resp, body := f.env.Do(t, fiber.MethodDelete, user.Path+"/"+f.viewerID, f.admin, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	resp, _ = f.env.Do(t, fiber.MethodGet, user.Path+"/"+f.viewerID, f.admin, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = f.env.Do(t, fiber.MethodDelete, user.Path+"/"+f.viewerID, f.admin, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var rows int64
	require.NoError(t, f.env.DB.Model(&models.User{}).Where("external_username = ?", "viewer").Count(&rows).Error)
	assert.Equal(t, int64(1), rows, "deactivation keeps the row")
}

func TestLoginHistory(t *testing.T) {
	f := newFixture(t)

	resp, body := f.env.Do(t, fiber.MethodGet, user.Path+"/"+f.viewerID+"/login-history", f.admin, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var entries []models.LoginHistory
	require.NoError(t, json.Unmarshal(body, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, f.viewerID, *entries[0].UserID)
}

func TestPermissions(t *testing.T) {
	f := newFixture(t)

	for _, tc := range []struct {
		method string
		target string
		body   any
	}{
		{fiber.MethodGet, user.Path, nil},
		{fiber.MethodGet, user.Path + "/" + f.viewerID, nil},
		{fiber.MethodPut, user.Path + "/" + f.viewerID, user.UpdateRequest{Role: "Admin"}},
		{fiber.MethodDelete, user.Path + "/" + f.viewerID, nil},
	} {
		resp, _ := f.env.Do(t, tc.method, tc.target, f.editor, tc.body)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode, tc.method+" "+tc.target)
	}

	resp, _ := f.env.Do(t, fiber.MethodGet, user.Path, "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
