// middleware/auth.go
package middleware

import (
	"ecolearn-engine/utils"

	"github.com/gofiber/fiber/v2"
)

// UserContextMiddleware extracts the authenticated principal set by the
// Gateway. The engine trusts this identity; authorization decisions
// (who may verify what) are made against the local user snapshot, never
// against gateway-supplied role headers.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-ID")
		if userID == "" {
			utils.Sugar.Warnw("X-User-ID missing on secured route", "path", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through gateway with auth context",
			})
		}

		c.Locals("user_id", userID)
		return c.Next()
	}
}
