package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// PreviewRateLimiter implements three-tier rate limiting for preview fetches:
// global, per target domain, per requesting tenant.
type PreviewRateLimiter struct {
	globalLimiter     *rate.Limiter
	perDomainLimiters *sync.Map // map[string]*rate.Limiter
	perTenantLimiters *sync.Map // map[string]*rate.Limiter
}

// NewPreviewRateLimiter creates a new three-tier rate limiter
func NewPreviewRateLimiter(globalRate float64) *PreviewRateLimiter {
	return &PreviewRateLimiter{
		globalLimiter:     rate.NewLimiter(rate.Limit(globalRate), int(globalRate*2)),
		perDomainLimiters: &sync.Map{},
		perTenantLimiters: &sync.Map{},
	}
}

// Wait applies all three tiers, honoring the robots.txt crawl delay for the
// target domain.
func (rl *PreviewRateLimiter) Wait(ctx context.Context, tenantID, domain string, crawlDelay time.Duration) error {
	// Tier 1: Global rate limit (protect server resources)
	if err := rl.globalLimiter.Wait(ctx); err != nil {
		return err
	}

	// Tier 2: Per-domain rate limit (respect target websites)
	domainLimiter := rl.getOrCreateDomainLimiter(domain, crawlDelay)
	if err := domainLimiter.Wait(ctx); err != nil {
		return err
	}

	// Tier 3: Per-tenant rate limit (fair usage)
	tenantLimiter := rl.getOrCreateTenantLimiter(tenantID)
	return tenantLimiter.Wait(ctx)
}

func (rl *PreviewRateLimiter) getOrCreateDomainLimiter(domain string, crawlDelay time.Duration) *rate.Limiter {
	if limiter, ok := rl.perDomainLimiters.Load(domain); ok {
		return limiter.(*rate.Limiter)
	}

	if crawlDelay <= 0 {
		crawlDelay = 500 * time.Millisecond
	}
	requestsPerSecond := 1.0 / crawlDelay.Seconds()
	if requestsPerSecond > 5.0 {
		requestsPerSecond = 5.0 // Cap at 5 req/s
	}
	if requestsPerSecond < 0.2 {
		requestsPerSecond = 0.2 // Minimum 1 request per 5 seconds
	}

	newLimiter := rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	actual, _ := rl.perDomainLimiters.LoadOrStore(domain, newLimiter)
	return actual.(*rate.Limiter)
}

func (rl *PreviewRateLimiter) getOrCreateTenantLimiter(tenantID string) *rate.Limiter {
	if limiter, ok := rl.perTenantLimiters.Load(tenantID); ok {
		return limiter.(*rate.Limiter)
	}

	newLimiter := rate.NewLimiter(rate.Limit(2.0), 5) // 2 req/s, burst 5
	actual, _ := rl.perTenantLimiters.LoadOrStore(tenantID, newLimiter)
	return actual.(*rate.Limiter)
}
