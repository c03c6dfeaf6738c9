package middleware

import (
	"github.com/gofiber/fiber/v2"

	"tribehub/internal/config"
)

// AdminMiddleware checks if the authenticated user is a superadmin.
// Users with the global "admin" role (first registered user) are also
// treated as superadmins.
func AdminMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("user_id").(string)
		if !ok || userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}

		isSuperadmin := false

		if role, ok := c.Locals("user_role").(string); ok && role == "admin" {
			isSuperadmin = true
		}

		if !isSuperadmin && cfg.IsSuperadmin(userID) {
			isSuperadmin = true
		}

		if !isSuperadmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Superadmin access required",
			})
		}

		c.Locals("is_superadmin", true)
		return c.Next()
	}
}
