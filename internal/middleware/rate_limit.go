package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/waqf-api/internal/utils"
)

// RateLimit allows max requests per window for each signed-in user, or per client IP for
// anonymous callers. Buckets are namespaced by identifier so limits on different routes are independent.
func RateLimit(identifier string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			if userID := UserID(c); userID != "" {
				return identifier + ":user:" + userID
			}
			return identifier + ":ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.Fail(c, fiber.StatusTooManyRequests, "too many requests", fiber.Map{
				"limit":          strconv.Itoa(max),
				"window_seconds": strconv.Itoa(int(window.Seconds())),
			})
		},
	})
}
