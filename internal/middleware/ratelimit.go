package middleware

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/ratelimit"
)

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	// Global limits (per IP), applied to the whole /api group
	GlobalAPIMax        int           // Max requests per minute for all API endpoints
	GlobalAPIExpiration time.Duration // Expiration window

	// Chat admission tiers
	Tiers ratelimit.TierConfig
}

// DefaultRateLimitConfig returns production-safe defaults
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		// Global: 200/min = ~3.3 req/sec - very generous for normal use
		GlobalAPIMax:        200,
		GlobalAPIExpiration: 1 * time.Minute,

		// standard 20 anon / 60 auth per minute, anonymous 10 per minute, daily 500
		Tiers: ratelimit.DefaultTierConfig(),
	}
}

func positiveIntEnv(key string, apply func(n int)) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			apply(n)
		}
	}
}

// LoadRateLimitConfig loads config from environment variables with defaults
func LoadRateLimitConfig() *RateLimitConfig {
	config := DefaultRateLimitConfig()

	// Allow environment overrides for tuning
	positiveIntEnv("RATE_LIMIT_GLOBAL_API", func(n int) { config.GlobalAPIMax = n })
	positiveIntEnv("RATE_LIMIT_STANDARD_ANON", func(n int) { config.Tiers.StandardAnonLimit = int64(n) })
	positiveIntEnv("RATE_LIMIT_STANDARD_AUTH", func(n int) { config.Tiers.StandardAuthLimit = int64(n) })
	positiveIntEnv("RATE_LIMIT_ANONYMOUS", func(n int) { config.Tiers.AnonymousLimit = int64(n) })
	positiveIntEnv("RATE_LIMIT_DAILY", func(n int) { config.Tiers.DailyLimit = int64(n) })

	// Development mode: more lenient limits
	if os.Getenv("ENVIRONMENT") == "development" {
		config.GlobalAPIMax = 1000 // Very high for dev
		config.Tiers.DailyLimit = 5000
		log.Println("⚠️  [RATE-LIMIT] Development mode: using relaxed rate limits")
	}

	return config
}

// GlobalAPIRateLimiter creates a rate limiter for all API requests
// This is the first line of defense against DDoS
func GlobalAPIRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.GlobalAPIMax,
		Expiration: config.GlobalAPIExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "global:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("🚫 [RATE-LIMIT] Global limit reached for IP: %s", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success":     false,
				"error":       "Too many requests. Please slow down.",
				"retry_after": int(config.GlobalAPIExpiration.Seconds()),
			})
		},
		SkipFailedRequests:     false,
		SkipSuccessfulRequests: false,
	})
}
