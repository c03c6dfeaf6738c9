package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"tribehub/internal/database"
	"tribehub/internal/services"
)

// HealthHandler reports liveness and dependency health
type HealthHandler struct {
	db          *database.DB
	mongoDB     *database.MongoDB
	redis       *services.RedisService
	connManager *services.ConnectionManager
	startedAt   time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.DB, mongoDB *database.MongoDB, redis *services.RedisService, connManager *services.ConnectionManager) *HealthHandler {
	return &HealthHandler{
		db:          db,
		mongoDB:     mongoDB,
		redis:       redis,
		connManager: connManager,
		startedAt:   time.Now(),
	}
}

// Live is the bare liveness probe
// GET /health
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// Ready checks the dependencies the platform needs to serve traffic. MySQL
// is required; MongoDB and Redis are optional and reported but never fail
// the probe when unconfigured.
// GET /health/ready
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	status := fiber.StatusOK
	checks := fiber.Map{}

	if err := h.db.PingContext(ctx); err != nil {
		checks["mysql"] = "down: " + err.Error()
		status = fiber.StatusServiceUnavailable
	} else {
		checks["mysql"] = "ok"
	}

	if h.mongoDB == nil {
		checks["mongodb"] = "disabled"
	} else if err := h.mongoDB.Ping(ctx); err != nil {
		checks["mongodb"] = "down: " + err.Error()
	} else {
		checks["mongodb"] = "ok"
	}

	if h.redis == nil {
		checks["redis"] = "disabled"
	} else if err := h.redis.Ping(ctx); err != nil {
		checks["redis"] = "down: " + err.Error()
	} else {
		checks["redis"] = "ok"
	}

	checks["websocket_connections"] = h.connManager.Count()

	return c.Status(status).JSON(fiber.Map{
		"status": map[bool]string{true: "ready", false: "degraded"}[status == fiber.StatusOK],
		"checks": checks,
	})
}
