package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/dodopayments/dodopayments-go"
	"github.com/dodopayments/dodopayments-go/option"
	"go.mongodb.org/mongo-driver/bson"

	"tribehub/internal/database"
	"tribehub/internal/models"
)

// WebhookEvent is a normalized payment-provider webhook event
type WebhookEvent struct {
	ID   string                 `json:"id"`
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// PlanProduct maps a tier to the provider's product ID
type PlanProduct struct {
	Tier          string
	DodoProductID string
}

// PaymentService handles tenant subscription billing through DodoPayments
type PaymentService struct {
	client        *dodopayments.Client
	webhookSecret string
	baseURL       string
	db            *database.DB
	mongoDB       *database.MongoDB
	tierService   *TierService
	tenantService *TenantService
	products      map[string]PlanProduct // tier -> product
}

// NewPaymentService creates a new payment service. With an empty API key the
// client stays nil and every tenant remains on the free tier.
func NewPaymentService(
	apiKey, webhookSecret, environment, baseURL string,
	db *database.DB,
	mongoDB *database.MongoDB,
	tierService *TierService,
	tenantService *TenantService,
) *PaymentService {
	var client *dodopayments.Client
	if apiKey != "" {
		var envOpt option.RequestOption
		if environment == "test" {
			envOpt = option.WithEnvironmentTestMode()
		} else {
			envOpt = option.WithEnvironmentLiveMode()
		}
		client = dodopayments.NewClient(
			option.WithBearerToken(apiKey),
			envOpt,
		)
		log.Println("✅ DodoPayments client initialized")
	} else {
		log.Println("⚠️ DodoPayments API key not provided, billing disabled")
	}

	return &PaymentService{
		client:        client,
		webhookSecret: webhookSecret,
		baseURL:       baseURL,
		db:            db,
		mongoDB:       mongoDB,
		tierService:   tierService,
		tenantService: tenantService,
		products: map[string]PlanProduct{
			models.TierPro: {Tier: models.TierPro, DodoProductID: "prod_tribehub_pro"},
			models.TierMax: {Tier: models.TierMax, DodoProductID: "prod_tribehub_max"},
		},
	}
}

// Enabled reports whether billing is configured
func (s *PaymentService) Enabled() bool {
	return s.client != nil
}

// CheckoutResponse carries the hosted checkout redirect
type CheckoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
	SessionID   string `json:"session_id"`
}

// GetSubscription returns the tenant's subscription row
func (s *PaymentService) GetSubscription(ctx context.Context, tenantID string) (*models.Subscription, error) {
	var sub models.Subscription
	var customerID, subscriptionID sql.NullString
	var expiresAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		"SELECT tenant_id, tier, status, dodo_customer_id, dodo_subscription_id, expires_at, created_at, updated_at FROM subscriptions WHERE tenant_id = ?",
		tenantID,
	).Scan(&sub.TenantID, &sub.Tier, &sub.Status, &customerID, &subscriptionID, &expiresAt, &sub.CreatedAt, &sub.UpdatedAt)
	if err == sql.ErrNoRows {
		return &models.Subscription{TenantID: tenantID, Tier: models.TierFree, Status: models.SubStatusActive}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	sub.DodoCustomerID = customerID.String
	sub.DodoSubscriptionID = subscriptionID.String
	if expiresAt.Valid {
		sub.ExpiresAt = &expiresAt.Time
	}
	return &sub, nil
}

// CreateCheckoutSession starts a hosted checkout that upgrades the tenant to
// the given tier. The tenant owner's email becomes the provider customer.
func (s *PaymentService) CreateCheckoutSession(ctx context.Context, tenantID, ownerEmail, tier string) (*CheckoutResponse, error) {
	if s.client == nil {
		return nil, fmt.Errorf("billing is not configured")
	}
	product, ok := s.products[tier]
	if !ok {
		return nil, fmt.Errorf("no purchasable plan for tier %q", tier)
	}

	sub, err := s.GetSubscription(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if sub.Tier == tier && sub.IsActive() {
		return nil, fmt.Errorf("tenant is already on the %s plan", tier)
	}

	customerID := sub.DodoCustomerID
	if customerID == "" {
		name := ownerEmail
		if at := strings.Index(ownerEmail, "@"); at > 0 {
			name = ownerEmail[:at]
		}
		customer, err := s.client.Customers.New(ctx, dodopayments.CustomerNewParams{
			Email: dodopayments.F(ownerEmail),
			Name:  dodopayments.F(name),
			Metadata: dodopayments.F(map[string]string{
				"tenant_id": tenantID,
			}),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create customer: %w", err)
		}
		customerID = customer.CustomerID
		if _, err := s.db.ExecContext(ctx,
			"UPDATE subscriptions SET dodo_customer_id = ? WHERE tenant_id = ?", customerID, tenantID,
		); err != nil {
			return nil, fmt.Errorf("failed to store customer ID: %w", err)
		}
	}

	session, err := s.client.CheckoutSessions.New(ctx, dodopayments.CheckoutSessionNewParams{
		CheckoutSessionRequest: dodopayments.CheckoutSessionRequestParam{
			ProductCart: dodopayments.F([]dodopayments.CheckoutSessionRequestProductCartParam{{
				ProductID: dodopayments.F(product.DodoProductID),
				Quantity:  dodopayments.F(int64(1)),
			}}),
			ReturnURL: dodopayments.F(fmt.Sprintf("%s/settings?tab=billing&checkout=success", s.baseURL)),
			Customer: dodopayments.F[dodopayments.CustomerRequestUnionParam](dodopayments.AttachExistingCustomerParam{
				CustomerID: dodopayments.F(customerID),
			}),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &CheckoutResponse{CheckoutURL: session.CheckoutURL, SessionID: session.SessionID}, nil
}

// CancelSubscription requests cancellation at the next billing date
func (s *PaymentService) CancelSubscription(ctx context.Context, tenantID string) error {
	sub, err := s.GetSubscription(ctx, tenantID)
	if err != nil {
		return err
	}
	if sub.DodoSubscriptionID == "" || sub.Tier == models.TierFree {
		return fmt.Errorf("tenant has no paid subscription")
	}
	if s.client != nil {
		_, err = s.client.Subscriptions.Update(ctx, sub.DodoSubscriptionID, dodopayments.SubscriptionUpdateParams{
			CancelAtNextBillingDate: dodopayments.F(true),
		})
		if err != nil {
			return fmt.Errorf("failed to cancel subscription: %w", err)
		}
	}
	return s.setStatus(ctx, tenantID, models.SubStatusPendingCancel)
}

// ReactivateSubscription undoes a pending cancellation
func (s *PaymentService) ReactivateSubscription(ctx context.Context, tenantID string) error {
	sub, err := s.GetSubscription(ctx, tenantID)
	if err != nil {
		return err
	}
	if sub.Status != models.SubStatusPendingCancel {
		return fmt.Errorf("subscription is not pending cancellation")
	}
	if s.client != nil && sub.DodoSubscriptionID != "" {
		_, err = s.client.Subscriptions.Update(ctx, sub.DodoSubscriptionID, dodopayments.SubscriptionUpdateParams{
			CancelAtNextBillingDate: dodopayments.F(false),
		})
		if err != nil {
			return fmt.Errorf("failed to reactivate subscription: %w", err)
		}
	}
	return s.setStatus(ctx, tenantID, models.SubStatusActive)
}

// VerifyWebhook checks a legacy HMAC signature over the raw payload
func (s *PaymentService) VerifyWebhook(payload []byte, signature string) error {
	if s.webhookSecret == "" {
		return fmt.Errorf("webhook secret not configured")
	}
	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return fmt.Errorf("invalid webhook signature")
	}
	return nil
}

// VerifyAndParseWebhook verifies a webhook delivery and normalizes it. The
// SDK's Standard Webhooks verification is preferred; the HMAC path covers
// tests and deployments without an SDK client.
func (s *PaymentService) VerifyAndParseWebhook(payload []byte, headers http.Header) (*WebhookEvent, error) {
	if s.client != nil && s.webhookSecret != "" {
		event, err := s.client.Webhooks.Unwrap(payload, headers, option.WithWebhookKey(s.webhookSecret))
		if err != nil {
			return nil, fmt.Errorf("webhook verification failed: %w", err)
		}
		return s.normalizeSDKEvent(event)
	}

	signature := headers.Get("Webhook-Signature")
	if signature == "" {
		signature = headers.Get("Dodo-Signature")
	}
	if signature == "" {
		return nil, fmt.Errorf("missing webhook signature header")
	}
	if err := s.VerifyWebhook(payload, signature); err != nil {
		return nil, err
	}

	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}
	return &event, nil
}

func (s *PaymentService) normalizeSDKEvent(event *dodopayments.UnwrapWebhookEvent) (*WebhookEvent, error) {
	out := &WebhookEvent{Type: string(event.Type)}

	switch e := event.AsUnion().(type) {
	case dodopayments.SubscriptionActiveWebhookEvent:
		out.ID = e.Data.SubscriptionID
		out.Data = map[string]interface{}{
			"subscription_id":    e.Data.SubscriptionID,
			"customer_id":        e.Data.Customer.CustomerID,
			"product_id":         e.Data.ProductID,
			"current_period_end": e.Data.NextBillingDate.Format(time.RFC3339),
		}
	case dodopayments.SubscriptionUpdatedWebhookEvent:
		out.ID = e.Data.SubscriptionID
		out.Data = map[string]interface{}{
			"subscription_id":    e.Data.SubscriptionID,
			"customer_id":        e.Data.Customer.CustomerID,
			"product_id":         e.Data.ProductID,
			"current_period_end": e.Data.NextBillingDate.Format(time.RFC3339),
		}
	case dodopayments.SubscriptionRenewedWebhookEvent:
		out.ID = e.Data.SubscriptionID
		out.Data = map[string]interface{}{
			"subscription_id":    e.Data.SubscriptionID,
			"customer_id":        e.Data.Customer.CustomerID,
			"current_period_end": e.Data.NextBillingDate.Format(time.RFC3339),
		}
	case dodopayments.SubscriptionOnHoldWebhookEvent:
		out.ID = e.Data.SubscriptionID
		out.Data = map[string]interface{}{
			"subscription_id": e.Data.SubscriptionID,
			"customer_id":     e.Data.Customer.CustomerID,
		}
	case dodopayments.SubscriptionCancelledWebhookEvent:
		out.ID = e.Data.SubscriptionID
		out.Data = map[string]interface{}{
			"subscription_id": e.Data.SubscriptionID,
			"customer_id":     e.Data.Customer.CustomerID,
		}
	case dodopayments.PaymentSucceededWebhookEvent:
		out.ID = e.Data.PaymentID
		out.Data = map[string]interface{}{
			"payment_id":      e.Data.PaymentID,
			"subscription_id": e.Data.SubscriptionID,
		}
	case dodopayments.PaymentFailedWebhookEvent:
		out.ID = e.Data.PaymentID
		out.Data = map[string]interface{}{
			"payment_id":      e.Data.PaymentID,
			"subscription_id": e.Data.SubscriptionID,
		}
	default:
		out.ID = fmt.Sprintf("evt_%d", time.Now().UnixNano())
		out.Data = map[string]interface{}{}
	}
	return out, nil
}

// HandleWebhookEvent applies a verified event to the subscriptions table and
// archives the raw event to Mongo when available.
func (s *PaymentService) HandleWebhookEvent(ctx context.Context, event *WebhookEvent, rawPayload []byte) error {
	s.archiveWebhook(ctx, event, rawPayload)

	switch event.Type {
	case "subscription.active", "subscription.updated", "subscription.renewed":
		return s.applySubscriptionEvent(ctx, event, models.SubStatusActive)
	case "subscription.on_hold":
		return s.applySubscriptionEvent(ctx, event, models.SubStatusOnHold)
	case "subscription.cancelled":
		return s.applySubscriptionEvent(ctx, event, models.SubStatusCancelled)
	case "payment.succeeded", "payment.failed":
		// Payment events are archived for the ledger; tier changes ride the
		// subscription events.
		return nil
	default:
		log.Printf("💳 [BILLING] Ignoring webhook event type %s", event.Type)
		return nil
	}
}

func (s *PaymentService) applySubscriptionEvent(ctx context.Context, event *WebhookEvent, status string) error {
	customerID, _ := event.Data["customer_id"].(string)
	subscriptionID, _ := event.Data["subscription_id"].(string)
	if customerID == "" {
		return fmt.Errorf("webhook event %s carries no customer_id", event.ID)
	}

	var tenantID, currentTier string
	err := s.db.QueryRowContext(ctx,
		"SELECT tenant_id, tier FROM subscriptions WHERE dodo_customer_id = ?", customerID,
	).Scan(&tenantID, &currentTier)
	if err == sql.ErrNoRows {
		return fmt.Errorf("no tenant for customer %s", customerID)
	}
	if err != nil {
		return fmt.Errorf("failed to resolve tenant: %w", err)
	}

	tier := currentTier
	if productID, ok := event.Data["product_id"].(string); ok && productID != "" {
		if t := s.tierForProduct(productID); t != "" {
			tier = t
		}
	}
	if status == models.SubStatusCancelled {
		tier = models.TierFree
	}

	var expiresAt interface{}
	if v, ok := event.Data["current_period_end"].(string); ok && v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			expiresAt = t
		}
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE subscriptions SET tier = ?, status = ?, dodo_subscription_id = ?, expires_at = ? WHERE tenant_id = ?",
		tier, status, subscriptionID, expiresAt, tenantID,
	)
	if err != nil {
		return fmt.Errorf("failed to apply subscription event: %w", err)
	}

	if s.tenantService != nil {
		if err := s.tenantService.UpdateTier(ctx, tenantID, tier); err != nil {
			log.Printf("⚠️ [BILLING] Failed to sync tenant tier: %v", err)
		}
	}
	if s.tierService != nil {
		s.tierService.InvalidateCache(tenantID)
	}

	log.Printf("💳 [BILLING] Tenant %s -> tier %s (%s) via %s", tenantID, tier, status, event.Type)
	return nil
}

func (s *PaymentService) setStatus(ctx context.Context, tenantID, status string) error {
	if _, err := s.db.ExecContext(ctx,
		"UPDATE subscriptions SET status = ? WHERE tenant_id = ?", status, tenantID,
	); err != nil {
		return fmt.Errorf("failed to set subscription status: %w", err)
	}
	if s.tierService != nil {
		s.tierService.InvalidateCache(tenantID)
	}
	return nil
}

func (s *PaymentService) tierForProduct(productID string) string {
	for tier, p := range s.products {
		if p.DodoProductID == productID {
			return tier
		}
	}
	return ""
}

// archiveWebhook stores the raw delivery for replay and debugging
func (s *PaymentService) archiveWebhook(ctx context.Context, event *WebhookEvent, rawPayload []byte) {
	if s.mongoDB == nil {
		return
	}
	coll := s.mongoDB.Collection(database.CollectionWebhookDumps)
	_, err := coll.InsertOne(ctx, bson.M{
		"event_id":    event.ID,
		"event_type":  event.Type,
		"payload":     string(rawPayload),
		"received_at": time.Now(),
	})
	if err != nil {
		log.Printf("⚠️ [BILLING] Failed to archive webhook: %v", err)
	}
}
