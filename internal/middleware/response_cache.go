package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/cache"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/models"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/security"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/services"
)

const (
	DefaultResponseCacheTTL        = time.Hour
	DefaultResponseCacheMaxEntries = 500
	DefaultResponseSweepInterval   = 10 * time.Minute
)

// ResponseCache serves repeated stateless questions without calling the responder.
// Requests that carry a sessionId always pass through.
type ResponseCache struct {
	store   cache.Store[models.CachedResponse]
	metrics *services.Metrics
}

// NewResponseCache creates a response cache over store
func NewResponseCache(store cache.Store[models.CachedResponse], metrics *services.Metrics) *ResponseCache {
	return &ResponseCache{store: store, metrics: metrics}
}

// Handler returns the Fiber middleware. Must run after ChatInputValidator.
func (rc *ResponseCache) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, ok := ChatRequestFrom(c)
		if !ok || req.SessionID != "" {
			return c.Next()
		}

		ctx := c.UserContext()
		key := security.CacheKey(req.Message)

		entry, found, err := rc.store.Get(ctx, key)
		if err != nil {
			log.Printf("⚠️  [RESPONSE-CACHE] Lookup failed: %v", err)
		}
		if found {
			rc.metrics.RecordCacheHit("response")
			return c.JSON(models.ChatResponse{
				Success:  true,
				Response: entry.Response,
				Cached:   true,
				Context:  entry.Context,
			})
		}
		rc.metrics.RecordCacheMiss("response")

		if err := c.Next(); err != nil {
			return err
		}

		status := c.Response().StatusCode()
		if status < fiber.StatusOK || status >= fiber.StatusMultipleChoices {
			return nil
		}

		var resp models.ChatResponse
		if err := json.Unmarshal(c.Response().Body(), &resp); err != nil {
			return nil
		}
		if !resp.Success || resp.Cached || resp.Response == "" {
			return nil
		}

		if err := rc.store.Set(ctx, key, models.CachedResponse{Response: resp.Response, Context: resp.Context}); err != nil {
			log.Printf("⚠️  [RESPONSE-CACHE] Failed to store response: %v", err)
		}
		return nil
	}
}

// Size returns the number of cached responses
func (rc *ResponseCache) Size(ctx context.Context) (int, error) {
	return rc.store.Len(ctx)
}

// MaxSize returns the capacity
func (rc *ResponseCache) MaxSize() int {
	return rc.store.Options().MaxEntries
}

// TTL returns the entry lifetime
func (rc *ResponseCache) TTL() time.Duration {
	return rc.store.Options().TTL
}

// Clear drops every cached response
func (rc *ResponseCache) Clear(ctx context.Context) error {
	if err := rc.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear response cache: %w", err)
	}
	return nil
}

// Sweep removes expired responses
func (rc *ResponseCache) Sweep(ctx context.Context) (int, error) {
	return rc.store.Sweep(ctx)
}

// Stats reports size and limits
func (rc *ResponseCache) Stats(ctx context.Context) (models.CacheStats, error) {
	return services.StoreStats(ctx, rc.store.Len, rc.store.Options())
}
