package models

import "time"

// AffiliateLink is a tenant-owned tracked link. The public redirect endpoint
// counts clicks.
type AffiliateLink struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Code      string    `json:"code"`
	TargetURL string    `json:"target_url"`
	Clicks    int64     `json:"clicks"`
	CreatedAt time.Time `json:"created_at"`
}

// Integration connection statuses
const (
	IntegrationConnected    = "connected"
	IntegrationDisconnected = "disconnected"
	IntegrationError        = "error"
)

// ConnectedIntegration is an external service a tenant has connected
// (payment processor, mailing list, webhook receiver, ...). Config is an
// opaque JSON blob owned by the integration.
type ConnectedIntegration struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenant_id"`
	Provider  string            `json:"provider"`
	Status    string            `json:"status"`
	Config    map[string]string `json:"config,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
