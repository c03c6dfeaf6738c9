package services

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "Acme", "acme"},
		{"spaces", "My Cool Community", "my-cool-community"},
		{"punctuation", "Dev's Corner!", "dev-s-corner"},
		{"leading trailing", "  --Edge--  ", "edge"},
		{"unicode stripped", "café crew", "caf-crew"},
		{"empty", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.input); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPlanLimitError(t *testing.T) {
	err := &PlanLimitError{Resource: "leads", Limit: 50, Current: 50, Tier: "free"}
	msg := err.Error()
	if msg != "free plan limit reached: 50/50 leads" {
		t.Errorf("Unexpected error message: %s", msg)
	}
}
