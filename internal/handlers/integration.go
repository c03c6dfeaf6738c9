package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"tribehub/internal/services"
)

// IntegrationHandler handles affiliate links and third-party integration
// connections
type IntegrationHandler struct {
	integrationService *services.IntegrationService
}

// NewIntegrationHandler creates a new integration handler
func NewIntegrationHandler(integrationService *services.IntegrationService) *IntegrationHandler {
	return &IntegrationHandler{integrationService: integrationService}
}

// CreateAffiliateLink mints a short tracked link to an absolute URL
// POST /api/affiliate-links
func (h *IntegrationHandler) CreateAffiliateLink(c *fiber.Ctx) error {
	_, tenantID := locals(c)

	var req struct {
		TargetURL string `json:"target_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	link, err := h.integrationService.CreateAffiliateLink(c.Context(), tenantID, req.TargetURL)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(link)
}

// ListAffiliateLinks returns the workspace's tracked links with click counts
// GET /api/affiliate-links
func (h *IntegrationHandler) ListAffiliateLinks(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	links, err := h.integrationService.ListAffiliateLinks(c.Context(), tenantID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"links": links,
		"count": len(links),
	})
}

// DeleteAffiliateLink removes a tracked link
// DELETE /api/affiliate-links/:id
func (h *IntegrationHandler) DeleteAffiliateLink(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	if err := h.integrationService.DeleteAffiliateLink(c.Context(), tenantID, c.Params("id")); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Link deleted",
	})
}

// Redirect resolves a short code, counts the click and 302s to the target.
// Public and unauthenticated; sits behind the redirect rate limiter.
// GET /r/:code
func (h *IntegrationHandler) Redirect(c *fiber.Ctx) error {
	target, err := h.integrationService.ResolveAndCount(c.Context(), c.Params("code"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).SendString("Link not found")
	}
	return c.Redirect(target, fiber.StatusFound)
}

// Connect stores a provider connection for the workspace
// POST /api/integrations/:provider
func (h *IntegrationHandler) Connect(c *fiber.Ctx) error {
	userID, tenantID := locals(c)
	provider := c.Params("provider")

	var req struct {
		Config map[string]string `json:"config"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	integration, err := h.integrationService.Connect(c.Context(), tenantID, provider, req.Config)
	if err != nil {
		return serviceError(c, err)
	}

	log.Printf("🔌 Integration %s connected for tenant %s by %s", provider, tenantID, userID)
	return c.Status(fiber.StatusCreated).JSON(integration)
}

// List returns the workspace's connected integrations
// GET /api/integrations
func (h *IntegrationHandler) List(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	integrations, err := h.integrationService.ListIntegrations(c.Context(), tenantID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"integrations": integrations,
		"count":        len(integrations),
	})
}

// Get returns one provider connection
// GET /api/integrations/:provider
func (h *IntegrationHandler) Get(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	integration, err := h.integrationService.GetIntegration(c.Context(), tenantID, c.Params("provider"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(integration)
}

// SetStatus pauses or resumes a provider connection
// PUT /api/integrations/:provider/status
func (h *IntegrationHandler) SetStatus(c *fiber.Ctx) error {
	_, tenantID := locals(c)

	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.integrationService.SetStatus(c.Context(), tenantID, c.Params("provider"), req.Status); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Integration status updated",
	})
}

// Disconnect removes a provider connection
// DELETE /api/integrations/:provider
func (h *IntegrationHandler) Disconnect(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	if err := h.integrationService.Disconnect(c.Context(), tenantID, c.Params("provider")); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Integration disconnected",
	})
}
