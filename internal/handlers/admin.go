package handlers

import (
	"github.com/gofiber/fiber/v2"

	"tribehub/internal/database"
	"tribehub/internal/services"
)

// AdminHandler serves instance-wide operator endpoints, superadmin only
type AdminHandler struct {
	db          *database.DB
	connManager *services.ConnectionManager
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(db *database.DB, connManager *services.ConnectionManager) *AdminHandler {
	return &AdminHandler{db: db, connManager: connManager}
}

// Stats returns instance-wide counts for the operator dashboard
// GET /api/admin/stats
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	ctx := c.Context()

	counts := fiber.Map{}
	for name, query := range map[string]string{
		"users":   "SELECT COUNT(*) FROM users",
		"tenants": "SELECT COUNT(*) FROM tenants",
		"tasks":   "SELECT COUNT(*) FROM tasks",
		"leads":   "SELECT COUNT(*) FROM leads",
		"posts":   "SELECT COUNT(*) FROM posts",
	} {
		var n int
		if err := h.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to collect stats",
			})
		}
		counts[name] = n
	}

	tierCounts := fiber.Map{}
	rows, err := h.db.QueryContext(ctx, "SELECT tier, COUNT(*) FROM tenants GROUP BY tier")
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var tier string
			var n int
			if rows.Scan(&tier, &n) == nil {
				tierCounts[tier] = n
			}
		}
	}

	return c.JSON(fiber.Map{
		"counts":                counts,
		"tenants_by_tier":       tierCounts,
		"websocket_connections": h.connManager.Count(),
	})
}
