package models

import "testing"

func TestCompareTiers(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		expected int
	}{
		{"free to pro is upgrade", TierFree, TierPro, -1},
		{"free to max is upgrade", TierFree, TierMax, -1},
		{"pro to max is upgrade", TierPro, TierMax, -1},
		{"max to pro is downgrade", TierMax, TierPro, 1},
		{"pro to free is downgrade", TierPro, TierFree, 1},
		{"same tier", TierPro, TierPro, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompareTiers(tt.from, tt.to); got != tt.expected {
				t.Errorf("CompareTiers(%s, %s) = %d, want %d", tt.from, tt.to, got, tt.expected)
			}
		})
	}
}

func TestTierLimitsAllows(t *testing.T) {
	tests := []struct {
		name           string
		limit, current int
		expected       bool
	}{
		{"under limit", 50, 49, true},
		{"at limit", 50, 50, false},
		{"over limit", 50, 51, false},
		{"zero means unlimited", 0, 100000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l TierLimits
			if got := l.Allows(tt.limit, tt.current); got != tt.expected {
				t.Errorf("Allows(%d, %d) = %v, want %v", tt.limit, tt.current, got, tt.expected)
			}
		})
	}
}

func TestSubscriptionIsActive(t *testing.T) {
	tests := []struct {
		status   string
		expected bool
	}{
		{SubStatusActive, true},
		{SubStatusOnHold, true},
		{SubStatusPendingCancel, true},
		{SubStatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			sub := &Subscription{Status: tt.status}
			if sub.IsActive() != tt.expected {
				t.Errorf("IsActive() for %s = %v, want %v", tt.status, sub.IsActive(), tt.expected)
			}
		})
	}
}
