package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"tribehub/internal/models"
	"tribehub/internal/services"
)

// NotificationHandler handles in-app notification endpoints
type NotificationHandler struct {
	notificationService *services.NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// List returns the caller's notifications, newest first
// GET /api/notifications?unread=true&limit=50
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	userID, tenantID := locals(c)

	unreadOnly := c.Query("unread") == "true"
	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	notifications, err := h.notificationService.List(c.Context(), tenantID, userID, unreadOnly, limit)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"notifications": notifications,
		"count":         len(notifications),
	})
}

// UnreadCount returns the caller's unread badge count
// GET /api/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	userID, tenantID := locals(c)
	count, err := h.notificationService.UnreadCount(c.Context(), tenantID, userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"unread": count,
	})
}

// MarkRead marks one notification read
// PUT /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	userID, tenantID := locals(c)
	if err := h.notificationService.MarkRead(c.Context(), tenantID, userID, c.Params("id")); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Notification marked read",
	})
}

// MarkAllRead marks every notification read and clears the badge
// PUT /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	userID, tenantID := locals(c)
	if err := h.notificationService.MarkAllRead(c.Context(), tenantID, userID); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "All notifications marked read",
	})
}

// GetPreferences returns the caller's per-workspace notification preferences
// GET /api/notifications/preferences
func (h *NotificationHandler) GetPreferences(c *fiber.Ctx) error {
	userID, tenantID := locals(c)
	prefs, err := h.notificationService.GetPreferences(c.Context(), tenantID, userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(prefs)
}

// UpdatePreferences updates the caller's notification preferences. The digest
// cron expression is validated before it is stored.
// PUT /api/notifications/preferences
func (h *NotificationHandler) UpdatePreferences(c *fiber.Ctx) error {
	userID, tenantID := locals(c)

	var prefs models.NotificationPreferences
	if err := c.BodyParser(&prefs); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	prefs.UserID = userID
	prefs.TenantID = tenantID

	if err := h.notificationService.UpdatePreferences(c.Context(), &prefs); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(prefs)
}
