package models

import "time"

// Tenant plan tiers
const (
	TierFree = "free"
	TierPro  = "pro"
	TierMax  = "max"
)

// Subscription statuses (mirrors the payment provider's lifecycle)
const (
	SubStatusActive        = "active"
	SubStatusOnHold        = "on_hold"
	SubStatusPendingCancel = "pending_cancel"
	SubStatusCancelled     = "cancelled"
)

var tierRank = map[string]int{
	TierFree: 0,
	TierPro:  1,
	TierMax:  2,
}

// CompareTiers returns -1 if the change from -> to is an upgrade,
// 1 if it is a downgrade and 0 if the tiers are equal.
func CompareTiers(from, to string) int {
	f, t := tierRank[from], tierRank[to]
	switch {
	case f < t:
		return -1
	case f > t:
		return 1
	default:
		return 0
	}
}

// TierLimits caps what a tenant on a given tier may create. Zero means
// unlimited. Loaded from the tiers YAML file and hot-reloaded on change.
type TierLimits struct {
	MaxLeads   int `yaml:"max_leads" json:"max_leads"`
	MaxMembers int `yaml:"max_members" json:"max_members"`
	MaxTasks   int `yaml:"max_tasks" json:"max_tasks"`
	MaxModules int `yaml:"max_modules" json:"max_modules"`
}

// Allows reports whether a tenant currently holding `current` rows may add
// one more under this limit.
func (l TierLimits) Allows(limit, current int) bool {
	return limit <= 0 || current < limit
}

// Subscription links a tenant to its payment-provider subscription
type Subscription struct {
	TenantID           string     `json:"tenant_id"`
	Tier               string     `json:"tier"`
	Status             string     `json:"status"`
	DodoCustomerID     string     `json:"-"`
	DodoSubscriptionID string     `json:"-"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// IsActive reports whether the subscription still grants its tier.
// On-hold (grace period) and pending-cancel keep the tier until they resolve.
func (s *Subscription) IsActive() bool {
	switch s.Status {
	case SubStatusActive, SubStatusOnHold, SubStatusPendingCancel:
		return true
	default:
		return false
	}
}
