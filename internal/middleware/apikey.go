package middleware

import (
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"tribehub/internal/models"
	"tribehub/internal/services"
)

// API key rate limits, applied per key prefix
const (
	apiKeyPerMinute int64 = 60
	apiKeyPerHour   int64 = 1000
)

// APIKeyMiddleware validates API keys for programmatic access
// This middleware checks the X-API-Key header and validates the key
func APIKeyMiddleware(apiKeyService *services.APIKeyService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := c.Get("X-API-Key")
		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing API key. Include X-API-Key header.",
			})
		}

		key, err := apiKeyService.ValidateKey(c.Context(), apiKey)
		if err != nil {
			log.Printf("❌ [APIKEY-AUTH] Invalid key attempt: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired API key",
			})
		}

		if key.Revoked {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "API key has been revoked",
			})
		}

		c.Locals("api_key", key)
		c.Locals("user_id", key.UserID)
		c.Locals("auth_type", "api_key")

		return c.Next()
	}
}

// APIKeyOrJWTMiddleware allows authentication via either API key or JWT
// Checks API key first, falls back to JWT
func APIKeyOrJWTMiddleware(apiKeyService *services.APIKeyService, jwtMiddleware fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := c.Get("X-API-Key")
		if apiKey != "" {
			key, err := apiKeyService.ValidateKey(c.Context(), apiKey)
			if err != nil {
				log.Printf("❌ [APIKEY-AUTH] Invalid key: %v", err)
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid or expired API key",
				})
			}

			if key.Revoked {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "API key has been revoked",
				})
			}

			c.Locals("api_key", key)
			c.Locals("user_id", key.UserID)
			c.Locals("auth_type", "api_key")
			return c.Next()
		}

		return jwtMiddleware(c)
	}
}

// RequireScope middleware checks if the authenticated API key has a specific scope
func RequireScope(scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authType, _ := c.Locals("auth_type").(string)
		if authType != "api_key" {
			// JWT auth has full access
			return c.Next()
		}

		key, ok := c.Locals("api_key").(*models.APIKey)
		if !ok {
			return c.Next()
		}

		if !key.HasScope(scope) {
			log.Printf("🚫 [APIKEY-AUTH] Scope denied: %s (has: %v)", scope, key.Scopes)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "API key does not have required permission: " + scope,
			})
		}

		return c.Next()
	}
}

// RateLimitByAPIKey applies rate limiting to API key requests using Redis
func RateLimitByAPIKey(redisService *services.RedisService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authType, _ := c.Locals("auth_type").(string)
		if authType != "api_key" {
			return c.Next()
		}

		key, ok := c.Locals("api_key").(*models.APIKey)
		if !ok || redisService == nil {
			return c.Next()
		}

		keyPrefix := key.KeyPrefix
		ctx := c.Context()

		minuteKey := "ratelimit:minute:" + keyPrefix
		count, err := redisService.Incr(ctx, minuteKey)
		if err != nil {
			log.Printf("⚠️ [RATE-LIMIT] Redis error: %v", err)
			return c.Next() // Allow on error
		}

		if count == 1 {
			redisService.Expire(ctx, minuteKey, time.Minute)
		}

		if count > apiKeyPerMinute {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Rate limit exceeded (per minute)",
				"retry_after": "60 seconds",
			})
		}

		hourKey := "ratelimit:hour:" + keyPrefix
		hourCount, err := redisService.Incr(ctx, hourKey)
		if err != nil {
			return c.Next()
		}

		if hourCount == 1 {
			redisService.Expire(ctx, hourKey, time.Hour)
		}

		if hourCount > apiKeyPerHour {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Rate limit exceeded (per hour)",
				"retry_after": "3600 seconds",
			})
		}

		c.Set("X-RateLimit-Limit-Minute", formatInt64(apiKeyPerMinute))
		c.Set("X-RateLimit-Remaining-Minute", formatInt64(maxInt64(0, apiKeyPerMinute-count)))
		c.Set("X-RateLimit-Limit-Hour", formatInt64(apiKeyPerHour))
		c.Set("X-RateLimit-Remaining-Hour", formatInt64(maxInt64(0, apiKeyPerHour-hourCount)))

		return c.Next()
	}
}

func formatInt64(n int64) string {
	return strconv.FormatInt(n, 10)
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
