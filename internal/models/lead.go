package models

import "time"

// Lead statuses
const (
	LeadStatusNew       = "NEW"
	LeadStatusContacted = "CONTACTED"
	LeadStatusQualified = "QUALIFIED"
	LeadStatusWon       = "WON"
	LeadStatusLost      = "LOST"
)

// LeadStatusSequence is the pipeline order shown in the CRM board
var LeadStatusSequence = []string{
	LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusWon, LeadStatusLost,
}

// Lead is one CRM pipeline entry
type Lead struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	Name        string     `json:"name"`
	Email       string     `json:"email,omitempty"`
	Company     string     `json:"company,omitempty"`
	Value       float64    `json:"value"`
	Status      string     `json:"status"`
	LastContact *time.Time `json:"last_contact,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ValidLeadStatus reports whether s is a known pipeline status.
func ValidLeadStatus(s string) bool {
	for _, v := range LeadStatusSequence {
		if v == s {
			return true
		}
	}
	return false
}

// CreateLeadRequest is the payload for POST /api/leads
type CreateLeadRequest struct {
	Name        string     `json:"name"`
	Email       string     `json:"email,omitempty"`
	Company     string     `json:"company,omitempty"`
	Value       float64    `json:"value,omitempty"`
	Status      string     `json:"status,omitempty"`
	LastContact *time.Time `json:"last_contact,omitempty"`
}

// UpdateLeadRequest is the payload for PUT /api/leads/:id
type UpdateLeadRequest struct {
	Name        *string    `json:"name,omitempty"`
	Email       *string    `json:"email,omitempty"`
	Company     *string    `json:"company,omitempty"`
	Value       *float64   `json:"value,omitempty"`
	Status      *string    `json:"status,omitempty"`
	LastContact *time.Time `json:"last_contact,omitempty"`
}
