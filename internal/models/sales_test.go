package models

import (
	"math"
	"testing"
	"time"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeSalesMetrics(t *testing.T) {
	now := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	txs := []Transaction{
		{Amount: 600, OccurredAt: now.AddDate(0, 0, -30)},
		{Amount: 400, OccurredAt: now.AddDate(0, 0, -10)},
	}
	cfg := &SalesConfig{
		PlatformFeePct: 10,
		CustomTaxes:    map[string]float64{"vat": 5},
		Splits:         map[string]float64{"instructor": 50},
	}

	m := ComputeSalesMetrics(txs, cfg, now)

	if !almostEqual(m.Gross, 1000) {
		t.Errorf("Gross = %v, want 1000", m.Gross)
	}
	if !almostEqual(m.PlatformFees, 100) {
		t.Errorf("PlatformFees = %v, want 100", m.PlatformFees)
	}
	if !almostEqual(m.Taxes, 50) {
		t.Errorf("Taxes = %v, want 50", m.Taxes)
	}
	if !almostEqual(m.Net, 850) {
		t.Errorf("Net = %v, want 850", m.Net)
	}
	if !almostEqual(m.SplitAmounts["instructor"], 425) {
		t.Errorf("instructor split = %v, want 425", m.SplitAmounts["instructor"])
	}
	if m.TransactionCount != 2 {
		t.Errorf("TransactionCount = %d, want 2", m.TransactionCount)
	}
	// 1000 over 30 elapsed days, scaled to 30 days
	if !almostEqual(m.ProjectedMonthly, 1000) {
		t.Errorf("ProjectedMonthly = %v, want 1000", m.ProjectedMonthly)
	}
}

func TestComputeSalesMetricsManualOverrideWins(t *testing.T) {
	now := time.Now()
	txs := []Transaction{{Amount: 100, OccurredAt: now.AddDate(0, 0, -5)}}
	cfg := &SalesConfig{ManualOverrides: map[string]float64{"projected_monthly": 9999}}

	m := ComputeSalesMetrics(txs, cfg, now)
	if !almostEqual(m.ProjectedMonthly, 9999) {
		t.Errorf("ProjectedMonthly = %v, want manual override 9999", m.ProjectedMonthly)
	}
}

func TestComputeSalesMetricsEmpty(t *testing.T) {
	m := ComputeSalesMetrics(nil, nil, time.Now())
	if m.Gross != 0 || m.Net != 0 || m.TransactionCount != 0 || m.ProjectedMonthly != 0 {
		t.Errorf("empty metrics not zero: %+v", m)
	}
}
