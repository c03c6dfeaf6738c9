package models

import "time"

// SalesConfig is per-tenant revenue configuration: platform fee, revenue
// splits, custom taxes and manual projection overrides. These are settings
// rows, not a computed ledger.
type SalesConfig struct {
	TenantID        string             `json:"tenant_id"`
	PlatformFeePct  float64            `json:"platform_fee_pct"`
	Splits          map[string]float64 `json:"splits,omitempty"` // label -> pct of net
	CustomTaxes     map[string]float64 `json:"custom_taxes,omitempty"`
	ManualOverrides map[string]float64 `json:"manual_overrides,omitempty"` // e.g. "projected_monthly"
	UpdatedAt       time.Time          `json:"updated_at"`
}

// Transaction is one read-only revenue event for a tenant
type Transaction struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Description string    `json:"description,omitempty"`
	Source      string    `json:"source,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// SalesMetrics is the computed dashboard summary
type SalesMetrics struct {
	Gross            float64            `json:"gross"`
	PlatformFees     float64            `json:"platform_fees"`
	Taxes            float64            `json:"taxes"`
	Net              float64            `json:"net"`
	SplitAmounts     map[string]float64 `json:"split_amounts,omitempty"`
	TransactionCount int                `json:"transaction_count"`
	ProjectedMonthly float64            `json:"projected_monthly"`
}

// ComputeSalesMetrics derives the dashboard summary from the transaction
// list and the tenant's sales configuration. A "projected_monthly" manual
// override wins over the derived projection.
func ComputeSalesMetrics(txs []Transaction, cfg *SalesConfig, now time.Time) *SalesMetrics {
	m := &SalesMetrics{
		SplitAmounts:     map[string]float64{},
		TransactionCount: len(txs),
	}

	var oldest time.Time
	for _, tx := range txs {
		m.Gross += tx.Amount
		if oldest.IsZero() || tx.OccurredAt.Before(oldest) {
			oldest = tx.OccurredAt
		}
	}

	if cfg != nil {
		m.PlatformFees = m.Gross * cfg.PlatformFeePct / 100
		for _, pct := range cfg.CustomTaxes {
			m.Taxes += m.Gross * pct / 100
		}
	}
	m.Net = m.Gross - m.PlatformFees - m.Taxes

	if cfg != nil {
		for label, pct := range cfg.Splits {
			m.SplitAmounts[label] = m.Net * pct / 100
		}
	}

	// Projection: average gross per elapsed day since the oldest transaction,
	// scaled to 30 days. Overridable.
	if !oldest.IsZero() {
		days := now.Sub(oldest).Hours() / 24
		if days < 1 {
			days = 1
		}
		m.ProjectedMonthly = m.Gross / days * 30
	}
	if cfg != nil {
		if v, ok := cfg.ManualOverrides["projected_monthly"]; ok {
			m.ProjectedMonthly = v
		}
	}

	return m
}
