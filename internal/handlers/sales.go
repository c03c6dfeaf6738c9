package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"tribehub/internal/models"
	"tribehub/internal/services"
)

// SalesHandler handles the sales dashboard: config, transactions, computed
// metrics and the XLSX export
type SalesHandler struct {
	salesService *services.SalesService
}

// NewSalesHandler creates a new sales handler
func NewSalesHandler(salesService *services.SalesService) *SalesHandler {
	return &SalesHandler{salesService: salesService}
}

// parseRange reads optional from/to query params as RFC 3339 dates. Zero
// times mean unbounded.
func parseRange(c *fiber.Ctx) (from, to time.Time, err error) {
	if v := c.Query("from"); v != "" {
		from, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return from, to, fmt.Errorf("invalid from date: %w", err)
		}
	}
	if v := c.Query("to"); v != "" {
		to, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return from, to, fmt.Errorf("invalid to date: %w", err)
		}
	}
	return from, to, nil
}

// GetConfig returns the workspace's revenue configuration
// GET /api/sales/config
func (h *SalesHandler) GetConfig(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	cfg, err := h.salesService.GetConfig(c.Context(), tenantID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(cfg)
}

// UpdateConfig replaces the revenue configuration. Percentages are validated
// to the 0-100 range.
// PUT /api/sales/config
func (h *SalesHandler) UpdateConfig(c *fiber.Ctx) error {
	_, tenantID := locals(c)

	var cfg models.SalesConfig
	if err := c.BodyParser(&cfg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.salesService.UpdateConfig(c.Context(), tenantID, &cfg); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Sales config updated",
	})
}

// AddTransaction records one revenue event
// POST /api/sales/transactions
func (h *SalesHandler) AddTransaction(c *fiber.Ctx) error {
	_, tenantID := locals(c)

	var tx models.Transaction
	if err := c.BodyParser(&tx); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	created, err := h.salesService.AddTransaction(c.Context(), tenantID, &tx)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// ListTransactions returns revenue events in the given range, newest first
// GET /api/sales/transactions?from=...&to=...
func (h *SalesHandler) ListTransactions(c *fiber.Ctx) error {
	_, tenantID := locals(c)

	from, to, err := parseRange(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	txs, err := h.salesService.ListTransactions(c.Context(), tenantID, from, to)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"transactions": txs,
		"count":        len(txs),
	})
}

// Metrics returns the computed dashboard summary for the range
// GET /api/sales/metrics?from=...&to=...
func (h *SalesHandler) Metrics(c *fiber.Ctx) error {
	_, tenantID := locals(c)

	from, to, err := parseRange(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	metrics, err := h.salesService.Metrics(c.Context(), tenantID, from, to)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(metrics)
}

// Export streams the range as an XLSX workbook with a transaction sheet and
// a summary sheet. Sits behind the heavy-operation rate limiter.
// GET /api/sales/export?from=...&to=...
func (h *SalesHandler) Export(c *fiber.Ctx) error {
	_, tenantID := locals(c)

	from, to, err := parseRange(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	data, err := h.salesService.ExportXLSX(c.Context(), tenantID, from, to)
	if err != nil {
		return serviceError(c, err)
	}

	filename := fmt.Sprintf("sales-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Send(data)
}
