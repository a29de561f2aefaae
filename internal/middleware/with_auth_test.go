package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/waqf-api/internal/middleware"
)

func newWithAuthApp(userID, role string, opts middleware.AuthOptions) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if userID != "" {
			c.Locals(middleware.LocalUserID, userID)
		}
		if role != "" {
			c.Locals(middleware.LocalUserRole, role)
		}
		return c.Next()
	})
	app.Get("/", middleware.WithAuth(func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	}, opts))
	return app
}

func TestWithAuthUserRole(t *testing.T) {
	cases := []struct {
		name   string
		userID string
		role   string
		status int
	}{
		{"user", "u1", "User", fiber.StatusNoContent},
		{"admin keeps user access", "u1", "admin", fiber.StatusNoContent},
		{"guest", "u1", "guest", fiber.StatusForbidden},
		{"anonymous", "", "", fiber.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newWithAuthApp(tc.userID, tc.role, middleware.AuthOptions{Role: middleware.AuthRoleUser})
			resp := perform(t, app)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestWithAuthAdminRole(t *testing.T) {
	app := newWithAuthApp("u1", "user", middleware.AuthOptions{Role: middleware.AuthRoleAdmin})
	require.Equal(t, fiber.StatusForbidden, perform(t, app).StatusCode)

	app = newWithAuthApp("u1", "admin", middleware.AuthOptions{Role: middleware.AuthRoleAdmin})
	require.Equal(t, fiber.StatusNoContent, perform(t, app).StatusCode)
}

func TestWithAuthAnyRole(t *testing.T) {
	app := newWithAuthApp("", "", middleware.AuthOptions{})
	require.Equal(t, fiber.StatusNoContent, perform(t, app).StatusCode)

	app = newWithAuthApp("", "", middleware.AuthOptions{RequireUser: true})
	require.Equal(t, fiber.StatusUnauthorized, perform(t, app).StatusCode)
}

func TestRequireUserGuardsGroup(t *testing.T) {
	for _, tc := range []struct {
		userID string
		role   string
		status int
	}{
		{"", "", fiber.StatusUnauthorized},
		{"u1", "guest", fiber.StatusForbidden},
		{"u1", "user", fiber.StatusNoContent},
		{"root", "admin", fiber.StatusNoContent},
	} {
		app := fiber.New()
		app.Use(func(c *fiber.Ctx) error {
			c.Locals(middleware.LocalUserID, tc.userID)
			c.Locals(middleware.LocalUserRole, tc.role)
			return c.Next()
		})
		group := app.Group("/waqfs", middleware.RequireUser())
		group.Get("", func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusNoContent)
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/waqfs", nil))
		require.NoError(t, err)
		require.Equal(t, tc.status, resp.StatusCode, tc.role)
	}
}

func perform(t *testing.T, app *fiber.App) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}
