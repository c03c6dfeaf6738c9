package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"tribehub/internal/database"
	"tribehub/internal/models"
)

var digestCronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NotificationService persists notifications, keeps unread counters in
// Redis, and fans deliveries out to live WebSocket connections on every
// instance through pub/sub.
type NotificationService struct {
	db          *database.DB
	redis       *RedisService
	connManager *ConnectionManager
	pubsub      *PubSubService
}

// NewNotificationService creates a new notification service. redis,
// connManager, and pubsub may be nil in tests; delivery then stops at the
// database write.
func NewNotificationService(db *database.DB, redis *RedisService, connManager *ConnectionManager, pubsub *PubSubService) *NotificationService {
	return &NotificationService{db: db, redis: redis, connManager: connManager, pubsub: pubsub}
}

func unreadKey(tenantID, userID string) string {
	return fmt.Sprintf("notif:unread:%s:%s", tenantID, userID)
}

// Notify creates a notification for a user, honoring their preferences.
// Suppressed types return (nil, nil).
func (s *NotificationService) Notify(ctx context.Context, tenantID, userID, notifType, title, body string) (*models.Notification, error) {
	prefs, err := s.GetPreferences(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if !prefs.Allows(notifType) {
		return nil, nil
	}

	notif := &models.Notification{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now(),
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO notifications (id, tenant_id, user_id, type, title, body) VALUES (?, ?, ?, ?, ?, ?)",
		notif.ID, notif.TenantID, notif.UserID, notif.Type, notif.Title, notif.Body,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	if s.redis != nil {
		if _, err := s.redis.Incr(ctx, unreadKey(tenantID, userID)); err != nil {
			log.Printf("⚠️ [NOTIF] Failed to bump unread counter: %v", err)
		}
	}

	s.deliver(ctx, notif)

	if m := GetMetrics(); m != nil {
		m.RecordNotification(notifType)
	}
	return notif, nil
}

// NotifyTenant sends the notification to every tenant member except the
// actor, applying each member's preferences individually.
func (s *NotificationService) NotifyTenant(ctx context.Context, tenantID, actorID, notifType, title, body string) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id FROM tenant_members WHERE tenant_id = ? AND user_id != ?",
		tenantID, actorID,
	)
	if err != nil {
		return fmt.Errorf("failed to list recipients: %w", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan recipient: %w", err)
		}
		userIDs = append(userIDs, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, userID := range userIDs {
		if _, err := s.Notify(ctx, tenantID, userID, notifType, title, body); err != nil {
			log.Printf("⚠️ [NOTIF] Failed to notify user %s: %v", userID, err)
		}
	}
	return nil
}

// deliver pushes to local connections and publishes for other instances
func (s *NotificationService) deliver(ctx context.Context, notif *models.Notification) {
	msg := models.ServerMessage{Type: "notification", Payload: notif}
	if s.connManager != nil {
		s.connManager.SendToUser(notif.UserID, msg)
	}
	if s.pubsub != nil {
		err := s.pubsub.PublishToUser(ctx, notif.UserID, "notification", map[string]interface{}{
			"id":        notif.ID,
			"tenant_id": notif.TenantID,
			"type":      notif.Type,
			"title":     notif.Title,
			"body":      notif.Body,
		})
		if err != nil {
			log.Printf("⚠️ [NOTIF] Failed to publish notification: %v", err)
		}
	}
}

// List returns the user's notifications in a tenant, newest first
func (s *NotificationService) List(ctx context.Context, tenantID, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := "SELECT id, tenant_id, user_id, type, title, body, is_read, created_at FROM notifications WHERE tenant_id = ? AND user_id = ?"
	if unreadOnly {
		query += " AND is_read = FALSE"
	}
	query += " ORDER BY created_at DESC LIMIT ?"

	rows, err := s.db.QueryContext(ctx, query, tenantID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	notifs := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		var body sql.NullString
		if err := rows.Scan(&n.ID, &n.TenantID, &n.UserID, &n.Type, &n.Title, &body, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Body = body.String
		notifs = append(notifs, n)
	}
	return notifs, rows.Err()
}

// UnreadCount returns the cached unread badge count, falling back to the
// database when the Redis counter is cold.
func (s *NotificationService) UnreadCount(ctx context.Context, tenantID, userID string) (int, error) {
	if s.redis != nil {
		if v, err := s.redis.Get(ctx, unreadKey(tenantID, userID)); err == nil && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				return n, nil
			}
		}
	}

	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE tenant_id = ? AND user_id = ? AND is_read = FALSE",
		tenantID, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread: %w", err)
	}
	if s.redis != nil {
		if err := s.redis.Set(ctx, unreadKey(tenantID, userID), n, 24*time.Hour); err != nil {
			log.Printf("⚠️ [NOTIF] Failed to warm unread counter: %v", err)
		}
	}
	return n, nil
}

// MarkRead marks one notification read and decrements the unread counter
func (s *NotificationService) MarkRead(ctx context.Context, tenantID, userID, notifID string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = TRUE WHERE id = ? AND tenant_id = ? AND user_id = ? AND is_read = FALSE",
		notifID, tenantID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return nil
	}
	if s.redis != nil {
		if _, err := s.redis.Decr(ctx, unreadKey(tenantID, userID)); err != nil {
			log.Printf("⚠️ [NOTIF] Failed to drop unread counter: %v", err)
		}
	}
	return nil
}

// MarkAllRead marks all of the user's notifications read in the tenant
func (s *NotificationService) MarkAllRead(ctx context.Context, tenantID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = TRUE WHERE tenant_id = ? AND user_id = ? AND is_read = FALSE",
		tenantID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	if s.redis != nil {
		if err := s.redis.Delete(ctx, unreadKey(tenantID, userID)); err != nil {
			log.Printf("⚠️ [NOTIF] Failed to reset unread counter: %v", err)
		}
	}
	return nil
}

// GetPreferences returns the user's preferences in the tenant, defaults when
// none are stored
func (s *NotificationService) GetPreferences(ctx context.Context, tenantID, userID string) (*models.NotificationPreferences, error) {
	var p models.NotificationPreferences
	var digestCron sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, tenant_id, task_due, task_moved, lead_won, community, digest, digest_cron, updated_at
		 FROM notification_preferences WHERE user_id = ? AND tenant_id = ?`,
		userID, tenantID,
	).Scan(&p.UserID, &p.TenantID, &p.TaskDue, &p.TaskMoved, &p.LeadWon, &p.Community, &p.Digest, &digestCron, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.DefaultNotificationPreferences(userID, tenantID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}
	p.DigestCron = digestCron.String
	return &p, nil
}

// UpdatePreferences upserts the user's preferences. A digest schedule must
// be a valid five-field cron expression.
func (s *NotificationService) UpdatePreferences(ctx context.Context, prefs *models.NotificationPreferences) error {
	if prefs.Digest && prefs.DigestCron != "" {
		if _, err := digestCronParser.Parse(prefs.DigestCron); err != nil {
			return fmt.Errorf("invalid digest schedule %q: %w", prefs.DigestCron, err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notification_preferences (user_id, tenant_id, task_due, task_moved, lead_won, community, digest, digest_cron)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE task_due = VALUES(task_due), task_moved = VALUES(task_moved),
		   lead_won = VALUES(lead_won), community = VALUES(community), digest = VALUES(digest), digest_cron = VALUES(digest_cron)`,
		prefs.UserID, prefs.TenantID, prefs.TaskDue, prefs.TaskMoved, prefs.LeadWon, prefs.Community, prefs.Digest, prefs.DigestCron,
	)
	if err != nil {
		return fmt.Errorf("failed to update preferences: %w", err)
	}
	return nil
}

// ListDigestSubscribers returns preferences rows with a digest schedule set
func (s *NotificationService) ListDigestSubscribers(ctx context.Context) ([]models.NotificationPreferences, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, tenant_id, task_due, task_moved, lead_won, community, digest, digest_cron, updated_at
		 FROM notification_preferences WHERE digest = TRUE AND digest_cron IS NOT NULL AND digest_cron != ''`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list digest subscribers: %w", err)
	}
	defer rows.Close()

	subs := []models.NotificationPreferences{}
	for rows.Next() {
		var p models.NotificationPreferences
		var digestCron sql.NullString
		if err := rows.Scan(&p.UserID, &p.TenantID, &p.TaskDue, &p.TaskMoved, &p.LeadWon, &p.Community, &p.Digest, &digestCron, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan preferences: %w", err)
		}
		p.DigestCron = digestCron.String
		subs = append(subs, p)
	}
	return subs, rows.Err()
}
