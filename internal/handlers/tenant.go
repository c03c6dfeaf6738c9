package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"tribehub/internal/models"
	"tribehub/internal/services"
)

// TenantHandler handles workspace CRUD, membership and settings endpoints
type TenantHandler struct {
	tenantService   *services.TenantService
	activityService *services.ActivityService
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(tenantService *services.TenantService, activityService *services.ActivityService) *TenantHandler {
	return &TenantHandler{
		tenantService:   tenantService,
		activityService: activityService,
	}
}

// Create provisions a new workspace owned by the caller
// POST /api/tenants
func (h *TenantHandler) Create(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	var req models.CreateTenantRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if strings.TrimSpace(req.Name) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Workspace name is required",
		})
	}

	tenant, err := h.tenantService.Create(c.Context(), userID, &req)
	if err != nil {
		if strings.Contains(err.Error(), "taken") {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return serviceError(c, err)
	}

	log.Printf("🏠 [TENANT] Created %s (%s) for user %s", tenant.Name, tenant.ID, userID)
	h.activityService.Record(c.Context(), tenant.ID, userID, models.ActivityTenantCreated, tenant.ID, tenant.Name)

	return c.Status(fiber.StatusCreated).JSON(tenant)
}

// List returns all workspaces the caller belongs to
// GET /api/tenants
func (h *TenantHandler) List(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	tenants, err := h.tenantService.ListForUser(c.Context(), userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"tenants": tenants,
		"count":   len(tenants),
	})
}

// Get returns the active workspace
// GET /api/tenant
func (h *TenantHandler) Get(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	tenant, err := h.tenantService.Get(c.Context(), tenantID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(tenant)
}

// ListMembers returns the active workspace's member roster
// GET /api/tenant/members
func (h *TenantHandler) ListMembers(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	members, err := h.tenantService.ListMembers(c.Context(), tenantID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"members": members,
		"count":   len(members),
	})
}

// UpdateMemberRole changes a member's role (owner role is immutable)
// PUT /api/tenant/members/:userId
func (h *TenantHandler) UpdateMemberRole(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	memberID := c.Params("userId")

	var req struct {
		Role string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.tenantService.UpdateMemberRole(c.Context(), tenantID, memberID, req.Role); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Member role updated",
	})
}

// RemoveMember removes a member from the workspace (never the owner)
// DELETE /api/tenant/members/:userId
func (h *TenantHandler) RemoveMember(c *fiber.Ctx) error {
	userID, tenantID := locals(c)
	memberID := c.Params("userId")

	if err := h.tenantService.RemoveMember(c.Context(), tenantID, memberID); err != nil {
		return serviceError(c, err)
	}

	log.Printf("🏠 [TENANT] Member %s removed from %s by %s", memberID, tenantID, userID)
	return c.JSON(fiber.Map{
		"message": "Member removed",
	})
}

// GetSettings returns workspace branding and feature flags
// GET /api/tenant/settings
func (h *TenantHandler) GetSettings(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	settings, err := h.tenantService.GetSettings(c.Context(), tenantID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(settings)
}

// UpdateSettings updates workspace branding and feature flags
// PUT /api/tenant/settings
func (h *TenantHandler) UpdateSettings(c *fiber.Ctx) error {
	userID, tenantID := locals(c)

	var settings models.TenantSettings
	if err := c.BodyParser(&settings); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.tenantService.UpdateSettings(c.Context(), tenantID, &settings); err != nil {
		return serviceError(c, err)
	}

	h.activityService.Record(c.Context(), tenantID, userID, models.ActivitySettingsUpdated, tenantID, "")
	return c.JSON(fiber.Map{
		"message": "Settings updated",
	})
}
