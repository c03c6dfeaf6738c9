package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"tribehub/internal/models"
	"tribehub/internal/services"
)

// LeadHandler handles CRM lead endpoints
type LeadHandler struct {
	leadService     *services.LeadService
	activityService *services.ActivityService
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(leadService *services.LeadService, activityService *services.ActivityService) *LeadHandler {
	return &LeadHandler{
		leadService:     leadService,
		activityService: activityService,
	}
}

// List returns the workspace's leads, optionally filtered by status
// GET /api/leads?status=NEW
func (h *LeadHandler) List(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	leads, err := h.leadService.List(c.Context(), tenantID, c.Query("status"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"leads": leads,
		"count": len(leads),
	})
}

// Create adds a lead, subject to the workspace's plan limit
// POST /api/leads
func (h *LeadHandler) Create(c *fiber.Ctx) error {
	userID, tenantID := locals(c)

	var req models.CreateLeadRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	lead, err := h.leadService.Create(c.Context(), tenantID, &req)
	if err != nil {
		return serviceError(c, err)
	}

	log.Printf("📇 [LEAD] %s created in %s", lead.ID, tenantID)
	h.activityService.Record(c.Context(), tenantID, userID, models.ActivityLeadCreated, lead.ID, lead.Name)

	return c.Status(fiber.StatusCreated).JSON(lead)
}

// Get returns a single lead
// GET /api/leads/:id
func (h *LeadHandler) Get(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	lead, err := h.leadService.Get(c.Context(), tenantID, c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(lead)
}

// Update applies a partial update; moving a lead to CONTACTED stamps the
// last-contact time when the caller did not supply one
// PUT /api/leads/:id
func (h *LeadHandler) Update(c *fiber.Ctx) error {
	userID, tenantID := locals(c)

	var req models.UpdateLeadRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	lead, err := h.leadService.Update(c.Context(), tenantID, c.Params("id"), &req)
	if err != nil {
		return serviceError(c, err)
	}

	if req.Status != nil {
		h.activityService.Record(c.Context(), tenantID, userID, models.ActivityLeadStatus, lead.ID, lead.Status)
	}
	return c.JSON(lead)
}

// Delete removes a lead
// DELETE /api/leads/:id
func (h *LeadHandler) Delete(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	if err := h.leadService.Delete(c.Context(), tenantID, c.Params("id")); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Lead deleted",
	})
}
