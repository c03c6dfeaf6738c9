package handlers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"tribehub/internal/models"
	"tribehub/internal/services"
)

// InviteHandler handles workspace invite endpoints
type InviteHandler struct {
	inviteService   *services.InviteService
	activityService *services.ActivityService
}

// NewInviteHandler creates a new invite handler
func NewInviteHandler(inviteService *services.InviteService, activityService *services.ActivityService) *InviteHandler {
	return &InviteHandler{
		inviteService:   inviteService,
		activityService: activityService,
	}
}

// Create issues a new invite code for the active workspace
// POST /api/invites
func (h *InviteHandler) Create(c *fiber.Ctx) error {
	userID, tenantID := locals(c)

	var req models.CreateInviteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	invite, err := h.inviteService.Create(c.Context(), tenantID, userID, &req)
	if err != nil {
		return serviceError(c, err)
	}

	log.Printf("✉️ [INVITE] %s created invite %s for tenant %s", userID, invite.Code, tenantID)
	return c.Status(fiber.StatusCreated).JSON(invite)
}

// List returns the active workspace's invites
// GET /api/invites
func (h *InviteHandler) List(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	invites, err := h.inviteService.List(c.Context(), tenantID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"invites": invites,
		"count":   len(invites),
	})
}

// Get resolves an invite code for the pre-acceptance landing page. Public:
// exposes only the workspace name, role and expiry state.
// GET /api/invites/:code
func (h *InviteHandler) Get(c *fiber.Ctx) error {
	invite, err := h.inviteService.Get(c.Context(), c.Params("code"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Invite not found",
		})
	}
	return c.JSON(fiber.Map{
		"tenant_name": invite.TenantName,
		"role":        invite.Role,
		"expired":     invite.IsExpired(time.Now()),
		"accepted":    invite.IsAccepted(),
	})
}

// Accept joins the authenticated user to the inviting workspace
// POST /api/invites/:code/accept
func (h *InviteHandler) Accept(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	invite, err := h.inviteService.Accept(c.Context(), c.Params("code"), userID)
	if err != nil {
		return serviceError(c, err)
	}

	log.Printf("✉️ [INVITE] User %s joined tenant %s via %s", userID, invite.TenantID, invite.Code)
	h.activityService.Record(c.Context(), invite.TenantID, userID, models.ActivityMemberJoined, invite.Code, "")

	return c.JSON(invite)
}

// Revoke deletes an unaccepted invite
// DELETE /api/invites/:code
func (h *InviteHandler) Revoke(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	if err := h.inviteService.Revoke(c.Context(), tenantID, c.Params("code")); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Invite revoked",
	})
}
