package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/codepractice-api/internal/utils"
)

// RequireUser rejects requests that were not identified by an earlier JWT middleware.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if currentUserID(c) == 0 {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		return c.Next()
	}
}

func currentUserID(c *fiber.Ctx) uint {
	switch v := c.Locals("user_id").(type) {
	case uint:
		return v
	case int:
		if v > 0 {
			return uint(v)
		}
	}
	return 0
}
