package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"tribehub/internal/services"
)

// serviceError maps a service-layer error to an HTTP response. Plan limit
// violations surface as 402 with the structured limit info so clients can
// render an upgrade prompt; "not found" errors become 404; everything else
// is a 400 because the service layer validates inputs before touching the DB.
func serviceError(c *fiber.Ctx, err error) error {
	var limitErr *services.PlanLimitError
	if errors.As(err, &limitErr) {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error":    limitErr.Error(),
			"resource": limitErr.Resource,
			"limit":    limitErr.Limit,
			"current":  limitErr.Current,
			"tier":     limitErr.Tier,
		})
	}
	if strings.Contains(err.Error(), "not found") {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// locals pulls the authenticated user and active tenant out of the request
// context set by the auth and tenant middleware.
func locals(c *fiber.Ctx) (userID, tenantID string) {
	userID, _ = c.Locals("user_id").(string)
	tenantID, _ = c.Locals("tenant_id").(string)
	return userID, tenantID
}
