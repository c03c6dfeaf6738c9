package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"tribehub/internal/services"
)

// ActivityHandler serves the per-workspace activity feed
type ActivityHandler struct {
	activityService *services.ActivityService
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(activityService *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

// List returns recent activity events, newest first. Returns an empty feed
// when the activity store is not configured.
// GET /api/activity?limit=50
func (h *ActivityHandler) List(c *fiber.Ctx) error {
	_, tenantID := locals(c)

	if !h.activityService.Enabled() {
		return c.JSON(fiber.Map{
			"events":  []interface{}{},
			"count":   0,
			"enabled": false,
		})
	}

	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	events, err := h.activityService.ListByTenant(c.Context(), tenantID, limit)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"events":  events,
		"count":   len(events),
		"enabled": true,
	})
}
