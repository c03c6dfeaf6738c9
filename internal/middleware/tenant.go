package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"tribehub/internal/services"
)

// TenantMiddleware resolves the active workspace from the X-Tenant-ID header
// and verifies the authenticated user is a member. Every tenant-scoped route
// sits behind this; handlers read tenant_id and tenant_role from Locals and
// never trust IDs from the request body.
func TenantMiddleware(tenantService *services.TenantService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("user_id").(string)
		if !ok || userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}

		tenantID := c.Get("X-Tenant-ID")
		if tenantID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing X-Tenant-ID header",
			})
		}

		member, err := tenantService.GetMember(c.Context(), tenantID, userID)
		if err != nil {
			log.Printf("🚫 [TENANT] User %s denied for tenant %s: %v", userID, tenantID, err)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Not a member of this workspace",
			})
		}

		c.Locals("tenant_id", tenantID)
		c.Locals("tenant_role", member.Role)
		return c.Next()
	}
}

// RequireTenantManager allows only workspace owners and admins through.
func RequireTenantManager() fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("tenant_role").(string)
		if role != "owner" && role != "admin" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Workspace admin access required",
			})
		}
		return c.Next()
	}
}
