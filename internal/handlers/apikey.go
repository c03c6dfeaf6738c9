package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"tribehub/internal/models"
	"tribehub/internal/services"
)

// APIKeyHandler handles programmatic API key management
type APIKeyHandler struct {
	apiKeyService *services.APIKeyService
}

// NewAPIKeyHandler creates a new API key handler
func NewAPIKeyHandler(apiKeyService *services.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{apiKeyService: apiKeyService}
}

// Create mints a new key. The plaintext secret appears only in this response;
// the server stores a hash.
// POST /api/keys
func (h *APIKeyHandler) Create(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	var req models.CreateAPIKeyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if strings.TrimSpace(req.Name) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Key name is required",
		})
	}

	resp, err := h.apiKeyService.Create(c.Context(), userID, &req)
	if err != nil {
		return serviceError(c, err)
	}

	log.Printf("🔐 [APIKEY] Key %s created for user %s", resp.Key.ID, userID)
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// List returns the caller's keys without hashes
// GET /api/keys
func (h *APIKeyHandler) List(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	keys, err := h.apiKeyService.List(c.Context(), userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"keys":  keys,
		"count": len(keys),
	})
}

// Revoke disables a key without deleting its audit trail
// POST /api/keys/:id/revoke
func (h *APIKeyHandler) Revoke(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if err := h.apiKeyService.Revoke(c.Context(), userID, c.Params("id")); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Key revoked",
	})
}

// Delete removes a key permanently
// DELETE /api/keys/:id
func (h *APIKeyHandler) Delete(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if err := h.apiKeyService.Delete(c.Context(), userID, c.Params("id")); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Key deleted",
	})
}
