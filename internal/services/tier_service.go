package services

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"time"

	"tribehub/internal/config"
	"tribehub/internal/database"
	"tribehub/internal/models"
)

// tierCacheEntry stores a cached tier with its fetch time for TTL expiry
type tierCacheEntry struct {
	Tier      string
	ExpiresAt *time.Time // subscription expiry, nil when open-ended
	CachedAt  time.Time
}

// TierService resolves a workspace's plan tier and the limits that go with
// it. Tiers come from the subscriptions table; limits come from the
// hot-reloaded tiers file.
type TierService struct {
	db         *database.DB
	tiers      *config.TiersConfig
	cache      map[string]tierCacheEntry // tenantID -> entry
	mu         sync.RWMutex
	defaultTTL time.Duration
}

// NewTierService creates a new tier service
func NewTierService(db *database.DB, tiers *config.TiersConfig) *TierService {
	return &TierService{
		db:         db,
		tiers:      tiers,
		cache:      make(map[string]tierCacheEntry),
		defaultTTL: 5 * time.Minute,
	}
}

// GetTenantTier returns the plan tier for a workspace
func (s *TierService) GetTenantTier(ctx context.Context, tenantID string) string {
	now := time.Now()

	s.mu.RLock()
	if entry, ok := s.cache[tenantID]; ok {
		// Subscription expired mid-cache: re-fetch so the downgrade shows
		if entry.ExpiresAt != nil && entry.ExpiresAt.Before(now) {
			s.mu.RUnlock()
			s.InvalidateCache(tenantID)
			log.Printf("🔄 [TIER] Subscription expired for tenant %s, re-fetching tier", tenantID)
			return s.fetchAndCacheTier(ctx, tenantID)
		}

		if now.Sub(entry.CachedAt) > s.defaultTTL {
			s.mu.RUnlock()
			s.InvalidateCache(tenantID)
			return s.fetchAndCacheTier(ctx, tenantID)
		}

		s.mu.RUnlock()
		return entry.Tier
	}
	s.mu.RUnlock()

	return s.fetchAndCacheTier(ctx, tenantID)
}

// fetchAndCacheTier fetches the tier from the database and caches it
func (s *TierService) fetchAndCacheTier(ctx context.Context, tenantID string) string {
	tier := models.TierFree
	var expiresAt *time.Time

	var sub models.Subscription
	var expires sql.NullTime
	err := s.db.QueryRowContext(ctx,
		"SELECT tier, status, expires_at FROM subscriptions WHERE tenant_id = ?",
		tenantID,
	).Scan(&sub.Tier, &sub.Status, &expires)
	if err == nil {
		if expires.Valid {
			sub.ExpiresAt = &expires.Time
		}
		if sub.IsActive() && (sub.ExpiresAt == nil || sub.ExpiresAt.After(time.Now())) {
			tier = sub.Tier
			expiresAt = sub.ExpiresAt
		}
	} else if err != sql.ErrNoRows {
		log.Printf("⚠️ [TIER] Failed to fetch subscription for tenant %s: %v", tenantID, err)
	}

	s.mu.Lock()
	s.cache[tenantID] = tierCacheEntry{
		Tier:      tier,
		ExpiresAt: expiresAt,
		CachedAt:  time.Now(),
	}
	s.mu.Unlock()

	return tier
}

// GetLimits returns the limits for a workspace based on its tier
func (s *TierService) GetLimits(ctx context.Context, tenantID string) models.TierLimits {
	tier := s.GetTenantTier(ctx, tenantID)
	return s.tiers.Limits(tier)
}

// InvalidateCache removes a tenant from the cache (call when tier changes)
func (s *TierService) InvalidateCache(tenantID string) {
	s.mu.Lock()
	delete(s.cache, tenantID)
	s.mu.Unlock()
}

// CheckLeadLimit checks if the workspace can hold another lead
func (s *TierService) CheckLeadLimit(ctx context.Context, tenantID string, currentCount int) bool {
	limits := s.GetLimits(ctx, tenantID)
	return limits.Allows(limits.MaxLeads, currentCount)
}

// CheckMemberLimit checks if the workspace can add another member
func (s *TierService) CheckMemberLimit(ctx context.Context, tenantID string, currentCount int) bool {
	limits := s.GetLimits(ctx, tenantID)
	return limits.Allows(limits.MaxMembers, currentCount)
}

// CheckTaskLimit checks if the workspace can hold another task
func (s *TierService) CheckTaskLimit(ctx context.Context, tenantID string, currentCount int) bool {
	limits := s.GetLimits(ctx, tenantID)
	return limits.Allows(limits.MaxTasks, currentCount)
}

// CheckModuleLimit checks if the workspace can hold another course module
func (s *TierService) CheckModuleLimit(ctx context.Context, tenantID string, currentCount int) bool {
	limits := s.GetLimits(ctx, tenantID)
	return limits.Allows(limits.MaxModules, currentCount)
}
