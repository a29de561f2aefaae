package middleware

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/waqf-api/internal/utils"
)

// Locals populated from a verified session token.
const (
	LocalUserID    = "user_id"
	LocalUserRole  = "user_role"
	LocalTokenID   = "token_id"
	LocalTokenExp  = "token_exp"
	LocalUserEmail = "user_email"
)

// RevocationChecker reports whether a session token was signed out.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) bool
}

// JWTProtected returns a middleware that validates JWT bearer tokens. revocations may be nil.
func JWTProtected(secret string, revocations RevocationChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "Bearer "
		if len(authorization) < len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		subject := extractSubject(claims)
		if subject == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token subject")
		}

		tokenID, _ := claims["jti"].(string)
		if revocations != nil && tokenID != "" && revocations.IsRevoked(c.UserContext(), tokenID) {
			return utils.SendError(c, fiber.StatusUnauthorized, "session has been signed out")
		}

		c.Locals(LocalUserID, subject)
		if role := extractUserRoleFromClaims(claims); role != "" {
			c.Locals(LocalUserRole, role)
		}
		if tokenID != "" {
			c.Locals(LocalTokenID, tokenID)
		}
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			c.Locals(LocalTokenExp, exp.Time)
		}
		if email, ok := claims["email"].(string); ok && email != "" {
			c.Locals(LocalUserEmail, email)
		}

		return c.Next()
	}
}

// UserID returns the authenticated subject, or "" for anonymous requests.
func UserID(c *fiber.Ctx) string {
	if value, ok := c.Locals(LocalUserID).(string); ok {
		return value
	}
	return ""
}

// UserRole returns the session role, or "" for anonymous requests.
func UserRole(c *fiber.Ctx) string {
	return normalizeRoleValue(c.Locals(LocalUserRole))
}

// UserEmail returns the email claim of the session token, when present.
func UserEmail(c *fiber.Ctx) string {
	if value, ok := c.Locals(LocalUserEmail).(string); ok {
		return value
	}
	return ""
}

// TokenExpiry returns the expiry of the current session token.
func TokenExpiry(c *fiber.Ctx) time.Time {
	if value, ok := c.Locals(LocalTokenExp).(time.Time); ok {
		return value
	}
	return time.Time{}
}

// TokenID returns the jti of the current session token.
func TokenID(c *fiber.Ctx) string {
	if value, ok := c.Locals(LocalTokenID).(string); ok {
		return value
	}
	return ""
}

func extractSubject(claims jwt.MapClaims) string {
	for _, key := range []string{"sub", "user_id", "id"} {
		switch v := claims[key].(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		case float64:
			if v >= 0 {
				return fmt.Sprintf("%.0f", v)
			}
		}
	}
	return ""
}

func extractUserRoleFromClaims(claims jwt.MapClaims) string {
	candidates := []string{"role", "roles"}
	for _, key := range candidates {
		if value, ok := claims[key]; ok {
			if role := normalizeRole(value); role != "" {
				return role
			}
		}
	}
	return ""
}

func normalizeRole(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok {
				role := strings.ToLower(strings.TrimSpace(str))
				if role != "" {
					return role
				}
			}
		}
	default:
		return ""
	}
	return ""
}
