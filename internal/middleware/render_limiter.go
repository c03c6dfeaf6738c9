package middleware

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DefaultMaxConcurrentRenders caps simultaneous certificate renders per user.
// Each render holds a headless browser tab, so a low cap keeps memory bounded.
const DefaultMaxConcurrentRenders = 2

// renderSlot tracks concurrent renders for one user with its acquire time.
type renderSlot struct {
	count       atomic.Int32
	lastAcquire atomic.Int64 // unix timestamp of last Acquire
}

// RenderLimiter bounds concurrent PDF renders per user.
type RenderLimiter struct {
	slots      sync.Map // userID -> *renderSlot
	maxPerUser int
	maxSlotAge time.Duration // auto-release slots older than this
}

// NewRenderLimiter creates a new render limiter
func NewRenderLimiter() *RenderLimiter {
	return &RenderLimiter{
		maxPerUser: DefaultMaxConcurrentRenders,
		maxSlotAge: 5 * time.Minute, // renders should finish in seconds
	}
}

// CheckLimit rejects the request if the user already has too many renders
// in flight. The handler must call Release when the render finishes.
func (rl *RenderLimiter) CheckLimit(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	if !rl.Acquire(userID) {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":       "Too many concurrent renders",
			"max_allowed": rl.maxPerUser,
		})
	}

	c.Locals("render_user_id", userID)
	return c.Next()
}

// Acquire increments the concurrent counter for a user.
// Returns false if the limit is exceeded (caller should not proceed).
func (rl *RenderLimiter) Acquire(userID string) bool {
	slot := rl.getOrCreateSlot(userID)
	// Auto-release stale slots before checking (prevents permanent lockout)
	rl.autoReleaseIfStale(userID, slot)
	current := slot.count.Add(1)
	if int(current) > rl.maxPerUser {
		slot.count.Add(-1)
		log.Printf("⚠️ [RENDER] User %s rejected: %d/%d concurrent renders",
			userID, int(current)-1, rl.maxPerUser)
		return false
	}
	slot.lastAcquire.Store(time.Now().Unix())
	return true
}

// Release decrements the concurrent counter for a user.
// Must be called when a render finishes (success or failure).
func (rl *RenderLimiter) Release(userID string) {
	slot := rl.getOrCreateSlot(userID)
	if slot.count.Add(-1) < 0 {
		slot.count.Store(0) // safety: never go negative
	}
}

// autoReleaseIfStale resets the counter to 0 if the slot has been held longer
// than maxSlotAge. This prevents permanent lockout from leaked slots.
func (rl *RenderLimiter) autoReleaseIfStale(userID string, slot *renderSlot) {
	current := slot.count.Load()
	if current <= 0 {
		return
	}
	acquired := slot.lastAcquire.Load()
	if acquired == 0 {
		return
	}
	age := time.Since(time.Unix(acquired, 0))
	if age > rl.maxSlotAge {
		slot.count.Store(0)
		log.Printf("🔓 [RENDER] Auto-released stale slots for user %s (held for %s)",
			userID, age.Round(time.Second))
	}
}

func (rl *RenderLimiter) getOrCreateSlot(userID string) *renderSlot {
	if v, ok := rl.slots.Load(userID); ok {
		return v.(*renderSlot)
	}
	slot := &renderSlot{}
	actual, _ := rl.slots.LoadOrStore(userID, slot)
	return actual.(*renderSlot)
}
