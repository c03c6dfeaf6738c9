package handlers

import (
	"log"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"tribehub/internal/models"
	"tribehub/internal/services"
)

// BillingHandler handles subscription, checkout and payment webhook endpoints
type BillingHandler struct {
	paymentService *services.PaymentService
	userService    *services.UserService
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(paymentService *services.PaymentService, userService *services.UserService) *BillingHandler {
	return &BillingHandler{
		paymentService: paymentService,
		userService:    userService,
	}
}

// GetSubscription returns the active workspace's subscription state
// GET /api/billing/subscription
func (h *BillingHandler) GetSubscription(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	sub, err := h.paymentService.GetSubscription(c.Context(), tenantID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(sub)
}

// CreateCheckout starts a hosted checkout session for a plan upgrade
// POST /api/billing/checkout
func (h *BillingHandler) CreateCheckout(c *fiber.Ctx) error {
	userID, tenantID := locals(c)

	if !h.paymentService.Enabled() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Billing is not configured on this instance",
		})
	}

	var req struct {
		Tier string `json:"tier"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if models.CompareTiers(models.TierFree, req.Tier) >= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Checkout requires a paid tier",
		})
	}

	user, err := h.userService.GetByID(c.Context(), userID)
	if err != nil {
		return serviceError(c, err)
	}

	checkout, err := h.paymentService.CreateCheckoutSession(c.Context(), tenantID, user.Email, req.Tier)
	if err != nil {
		log.Printf("💳 [BILLING] Checkout failed for tenant %s: %v", tenantID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to create checkout session",
		})
	}
	return c.JSON(checkout)
}

// CancelSubscription schedules cancellation at the end of the billing period
// POST /api/billing/cancel
func (h *BillingHandler) CancelSubscription(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	if err := h.paymentService.CancelSubscription(c.Context(), tenantID); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Subscription will cancel at the end of the current period",
	})
}

// ReactivateSubscription undoes a pending cancellation
// POST /api/billing/reactivate
func (h *BillingHandler) ReactivateSubscription(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	if err := h.paymentService.ReactivateSubscription(c.Context(), tenantID); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Subscription reactivated",
	})
}

// Webhook receives DodoPayments events. The signature is verified before any
// processing; the raw payload is archived before state changes are applied.
// POST /api/billing/webhook
func (h *BillingHandler) Webhook(c *fiber.Ctx) error {
	payload := c.Body()

	event, err := h.paymentService.VerifyAndParseWebhook(payload, http.Header(c.GetReqHeaders()))
	if err != nil {
		log.Printf("💳 [BILLING] Webhook rejected: %v", err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid webhook signature",
		})
	}

	if err := h.paymentService.HandleWebhookEvent(c.Context(), event, payload); err != nil {
		log.Printf("💳 [BILLING] Webhook %s (%s) failed: %v", event.ID, event.Type, err)
		// 500 so the provider retries
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Webhook processing failed",
		})
	}

	return c.JSON(fiber.Map{
		"received": true,
	})
}
