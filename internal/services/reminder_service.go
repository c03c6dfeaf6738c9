package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"tribehub/internal/database"
	"tribehub/internal/models"
)

// ReminderService runs the platform's background sweeps: due-task
// reminders, invite and reset-token expiry, and digest dispatch. Sweeps
// take a Redis lock first so only one instance runs them.
type ReminderService struct {
	scheduler     gocron.Scheduler
	db            *database.DB
	mongoDB       *database.MongoDB
	redis         *RedisService
	notifications *NotificationService
	invites       *InviteService
	users         *UserService
	instanceID    string
}

// NewReminderService creates the background sweep scheduler
func NewReminderService(
	db *database.DB,
	mongoDB *database.MongoDB,
	redis *RedisService,
	notifications *NotificationService,
	invites *InviteService,
	users *UserService,
) (*ReminderService, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &ReminderService{
		scheduler:     scheduler,
		db:            db,
		mongoDB:       mongoDB,
		redis:         redis,
		notifications: notifications,
		invites:       invites,
		users:         users,
		instanceID:    uuid.New().String(),
	}, nil
}

// Start registers the sweep jobs and starts the scheduler
func (s *ReminderService) Start() error {
	log.Println("⏰ Starting reminder service...")

	jobs := []struct {
		name     string
		interval time.Duration
		run      func(context.Context)
	}{
		{"due-task-sweep", 15 * time.Minute, s.sweepDueTasks},
		{"invite-expiry-sweep", time.Hour, s.sweepInvites},
		{"reset-token-sweep", 24 * time.Hour, s.sweepResetTokens},
		{"digest-dispatch", time.Minute, s.dispatchDigests},
	}

	for _, j := range jobs {
		job := j
		_, err := s.scheduler.NewJob(
			gocron.DurationJob(job.interval),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				defer cancel()
				s.withLock(ctx, job.name, job.interval/2, job.run)
			}),
			gocron.WithName(job.name),
		)
		if err != nil {
			return fmt.Errorf("failed to register %s: %w", job.name, err)
		}
	}

	s.scheduler.Start()
	log.Println("✅ Reminder service started")
	return nil
}

// Stop shuts the scheduler down
func (s *ReminderService) Stop() error {
	log.Println("⏹️ Stopping reminder service...")
	return s.scheduler.Shutdown()
}

// withLock runs fn only when this instance wins the sweep's Redis lock.
// Without Redis the sweep runs unguarded (single-instance deployments).
func (s *ReminderService) withLock(ctx context.Context, name string, ttl time.Duration, fn func(context.Context)) {
	if s.redis == nil {
		fn(ctx)
		return
	}

	lockKey := "sweep:lock:" + name
	ok, err := s.redis.AcquireLock(ctx, lockKey, s.instanceID, ttl)
	if err != nil {
		log.Printf("⚠️ [SWEEP] Lock error for %s: %v", name, err)
		return
	}
	if !ok {
		return
	}
	defer func() {
		if _, err := s.redis.ReleaseLock(ctx, lockKey, s.instanceID); err != nil {
			log.Printf("⚠️ [SWEEP] Failed to release lock for %s: %v", name, err)
		}
	}()

	fn(ctx)
}

// sweepDueTasks notifies tenants about tasks coming due in the next 24
// hours. A Redis marker keeps each task to one reminder per day.
func (s *ReminderService) sweepDueTasks(ctx context.Context) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, title, due_date FROM tasks
		 WHERE due_date IS NOT NULL AND due_date BETWEEN ? AND ? AND status != ?`,
		time.Now(), time.Now().Add(24*time.Hour), models.StatusDone,
	)
	if err != nil {
		log.Printf("⚠️ [SWEEP] Due-task query failed: %v", err)
		return
	}
	defer rows.Close()

	type dueTask struct {
		id, tenantID, title string
		dueDate             time.Time
	}
	var tasks []dueTask
	for rows.Next() {
		var t dueTask
		if err := rows.Scan(&t.id, &t.tenantID, &t.title, &t.dueDate); err != nil {
			log.Printf("⚠️ [SWEEP] Due-task scan failed: %v", err)
			return
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		log.Printf("⚠️ [SWEEP] Due-task rows failed: %v", err)
		return
	}

	reminded := 0
	for _, t := range tasks {
		if s.redis != nil {
			key := fmt.Sprintf("reminder:task:%s:%s", t.id, time.Now().Format("2006-01-02"))
			fresh, err := s.redis.SetNX(ctx, key, "1", 25*time.Hour)
			if err != nil || !fresh {
				continue
			}
		}
		err := s.notifications.NotifyTenant(ctx, t.tenantID, "",
			models.NotificationTaskDue,
			fmt.Sprintf("Task due %s", t.dueDate.Format("Jan 2 15:04")),
			t.title)
		if err != nil {
			log.Printf("⚠️ [SWEEP] Failed to notify for task %s: %v", t.id, err)
			continue
		}
		reminded++
	}
	if reminded > 0 {
		log.Printf("⏰ [SWEEP] Sent %d due-task reminders", reminded)
	}
}

func (s *ReminderService) sweepInvites(ctx context.Context) {
	n, err := s.invites.SweepExpired(ctx)
	if err != nil {
		log.Printf("⚠️ [SWEEP] Invite sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("🧹 [SWEEP] Removed %d expired invites", n)
	}
}

func (s *ReminderService) sweepResetTokens(ctx context.Context) {
	n, err := s.users.SweepExpiredResetTokens(ctx)
	if err != nil {
		log.Printf("⚠️ [SWEEP] Reset-token sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("🧹 [SWEEP] Removed %d stale reset tokens", n)
	}
}

// dispatchDigests fires digest notifications whose cron schedule came due in
// the last minute
func (s *ReminderService) dispatchDigests(ctx context.Context) {
	subs, err := s.notifications.ListDigestSubscribers(ctx)
	if err != nil {
		log.Printf("⚠️ [SWEEP] Digest subscriber query failed: %v", err)
		return
	}

	now := time.Now().UTC()
	for _, sub := range subs {
		schedule, err := digestCronParser.Parse(sub.DigestCron)
		if err != nil {
			// Invalid rows are rejected on write; skip any that predate that
			continue
		}
		fireAt := schedule.Next(now.Add(-time.Minute))
		if fireAt.After(now) {
			continue
		}
		s.sendDigest(ctx, sub.TenantID, sub.UserID, fireAt)
	}
}

func (s *ReminderService) sendDigest(ctx context.Context, tenantID, userID string, fireAt time.Time) {
	if s.redis != nil {
		key := fmt.Sprintf("digest:%s:%s:%d", tenantID, userID, fireAt.Unix())
		fresh, err := s.redis.SetNX(ctx, key, "1", 2*time.Hour)
		if err != nil || !fresh {
			return
		}
	}

	unread, err := s.notifications.UnreadCount(ctx, tenantID, userID)
	if err != nil {
		log.Printf("⚠️ [SWEEP] Digest unread count failed: %v", err)
		return
	}

	var dueSoon int
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tasks WHERE tenant_id = ? AND due_date BETWEEN ? AND ? AND status != ?",
		tenantID, time.Now(), time.Now().Add(24*time.Hour), models.StatusDone,
	).Scan(&dueSoon)
	if err != nil {
		log.Printf("⚠️ [SWEEP] Digest task count failed: %v", err)
		return
	}

	body := fmt.Sprintf("%d unread notifications, %d tasks due in the next 24 hours", unread, dueSoon)
	if _, err := s.notifications.Notify(ctx, tenantID, userID, models.NotificationDigest, "Your workspace digest", body); err != nil {
		log.Printf("⚠️ [SWEEP] Failed to send digest: %v", err)
		return
	}

	if s.mongoDB != nil {
		coll := s.mongoDB.Collection(database.CollectionDigestRuns)
		_, err := coll.InsertOne(ctx, bson.M{
			"tenantId": tenantID,
			"userId":   userID,
			"firedAt":  fireAt,
			"sentAt":   time.Now(),
			"unread":   unread,
			"dueSoon":  dueSoon,
		})
		if err != nil {
			log.Printf("⚠️ [SWEEP] Failed to record digest run: %v", err)
		}
	}
}
