package models

import "time"

// Invite is a pending invitation into a tenant, addressed by code.
// Codes are unguessable and single-use; expired invites are swept by the
// scheduler.
type Invite struct {
	Code       string     `json:"code"`
	TenantID   string     `json:"tenant_id"`
	TenantName string     `json:"tenant_name,omitempty"`
	Email      string     `json:"email,omitempty"` // empty = open invite link
	Role       string     `json:"role"`
	CreatedBy  string     `json:"created_by"`
	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	AcceptedBy string     `json:"accepted_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// IsExpired reports whether the invite can no longer be accepted.
func (i *Invite) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// IsAccepted reports whether the invite has already been used.
func (i *Invite) IsAccepted() bool {
	return i.AcceptedAt != nil
}

// CreateInviteRequest is the payload for POST /api/invites
type CreateInviteRequest struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	// Days until expiry; 0 means the default (7)
	ExpiresInDays int `json:"expires_in_days,omitempty"`
}
