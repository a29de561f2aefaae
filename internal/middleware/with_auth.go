package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/waqf-api/internal/models"
	"github.com/noah-isme/waqf-api/internal/utils"
)

// Session roles accepted by WithAuth. AuthRoleAny only requires a signed-in caller when
// RequireUser is set.
const (
	AuthRoleAny   = "any"
	AuthRoleAdmin = string(models.UserRoleAdmin)
	AuthRoleUser  = string(models.UserRoleUser)
)

// AuthOptions configures the WithAuth helper.
type AuthOptions struct {
	Role        string
	RequireUser bool
}

// WithAuth wraps handler with a session role check. Admin sessions satisfy the user role so
// administrators keep donor capabilities.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	role := strings.ToLower(strings.TrimSpace(opts.Role))
	if role == "" {
		role = AuthRoleAny
	}
	requireUser := opts.RequireUser || role != AuthRoleAny

	return func(c *fiber.Ctx) error {
		if requireUser && UserID(c) == "" {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}
		if !sessionRoleAllows(role, UserRole(c)) {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
		}
		return handler(c)
	}
}

// RequireUser is route middleware admitting any donor or admin session.
func RequireUser() fiber.Handler {
	return WithAuth(func(c *fiber.Ctx) error {
		return c.Next()
	}, AuthOptions{Role: AuthRoleUser})
}

func sessionRoleAllows(required, current string) bool {
	switch required {
	case AuthRoleAny:
		return true
	case AuthRoleUser:
		return current == AuthRoleUser || current == AuthRoleAdmin
	default:
		return current == required
	}
}
