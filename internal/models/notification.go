package models

import "time"

// Notification types
const (
	NotificationTaskDue    = "task_due"
	NotificationTaskMoved  = "task_moved"
	NotificationLeadWon    = "lead_won"
	NotificationNewPost    = "new_post"
	NotificationNewComment = "new_comment"
	NotificationInvite     = "invite"
	NotificationDigest     = "digest"
)

// Notification is one inbox entry for a user within a tenant
type Notification struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationPreferences controls which notification types a user receives
// in a tenant. Missing rows default to everything enabled.
type NotificationPreferences struct {
	UserID     string    `json:"user_id"`
	TenantID   string    `json:"tenant_id"`
	TaskDue    bool      `json:"task_due"`
	TaskMoved  bool      `json:"task_moved"`
	LeadWon    bool      `json:"lead_won"`
	Community  bool      `json:"community"`
	Digest     bool      `json:"digest"`
	DigestCron string    `json:"digest_cron,omitempty"` // cron expression, validated on write
	UpdatedAt  time.Time `json:"updated_at"`
}

// DefaultNotificationPreferences returns the everything-on default.
func DefaultNotificationPreferences(userID, tenantID string) *NotificationPreferences {
	return &NotificationPreferences{
		UserID:    userID,
		TenantID:  tenantID,
		TaskDue:   true,
		TaskMoved: true,
		LeadWon:   true,
		Community: true,
		Digest:    false,
	}
}

// Allows reports whether the preferences permit the given notification type.
func (p *NotificationPreferences) Allows(notifType string) bool {
	switch notifType {
	case NotificationTaskDue:
		return p.TaskDue
	case NotificationTaskMoved:
		return p.TaskMoved
	case NotificationLeadWon:
		return p.LeadWon
	case NotificationNewPost, NotificationNewComment:
		return p.Community
	case NotificationDigest:
		return p.Digest
	default:
		return true
	}
}
