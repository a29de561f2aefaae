package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/waqf-api/internal/roles"
	"github.com/noah-isme/waqf-api/internal/utils"
)

// PermissionChecker resolves admin permissions for a user.
type PermissionChecker interface {
	HasPermission(ctx context.Context, userID string, permission roles.Permission) bool
}

// RequirePermission consults the admin registry on every request.
func RequirePermission(checker PermissionChecker, permission roles.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := UserID(c)
		if userID == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		if !checker.HasPermission(c.UserContext(), userID, permission) {
			return utils.SendError(c, fiber.StatusForbidden, fmt.Sprintf("%s permission required", permission))
		}
		return c.Next()
	}
}

func normalizeRoleValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case fmt.Stringer:
		return strings.ToLower(strings.TrimSpace(v.String()))
	default:
		if value == nil {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", value)))
	}
}
