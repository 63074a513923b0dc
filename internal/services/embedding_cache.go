package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/cache"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/embedding"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/models"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/security"
)

const (
	DefaultEmbeddingCacheTTL        = 24 * time.Hour
	DefaultEmbeddingCacheMaxEntries = 1000
	DefaultEmbeddingSweepInterval   = time.Hour
)

// DefaultWarmQueries are the questions members ask most often
var DefaultWarmQueries = []string{
	"What events are coming up?",
	"When is the next event?",
	"How do I register for an event?",
	"Who is on the team?",
	"Who are the leads?",
	"How do I get my certificate?",
	"How can I contact the organizers?",
	"What is GDG?",
	"How do I become a member?",
	"What past events have been held?",
}

// ComputeFunc produces the embedding for text on a cache miss
type ComputeFunc func(ctx context.Context, text string) ([]float32, error)

// WarmReport summarizes a warm-up run
type WarmReport struct {
	Warmed int `json:"warmed"`
	Failed int `json:"failed"`
}

// EmbeddingCache memoizes embedding vectors by normalized text
type EmbeddingCache struct {
	store   cache.Store[[]float32]
	metrics *Metrics
}

// NewEmbeddingCache creates an embedding cache over store
func NewEmbeddingCache(store cache.Store[[]float32], metrics *Metrics) *EmbeddingCache {
	return &EmbeddingCache{store: store, metrics: metrics}
}

// GetEmbedding returns a fresh cached vector or computes and stores one.
// Compute errors are returned and nothing is cached.
func (c *EmbeddingCache) GetEmbedding(ctx context.Context, text string, compute ComputeFunc) ([]float32, error) {
	key := security.CacheKey(text)

	vector, found, err := c.store.Get(ctx, key)
	if err != nil {
		log.Printf("⚠️  [EMBED-CACHE] Lookup failed, computing directly: %v", err)
	}
	if found {
		c.metrics.RecordCacheHit("embedding")
		return vector, nil
	}
	c.metrics.RecordCacheMiss("embedding")

	vector, err = compute(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := c.store.Set(ctx, key, vector); err != nil {
		log.Printf("⚠️  [EMBED-CACHE] Failed to store embedding: %v", err)
	}
	return vector, nil
}

// Provider wraps p so every call goes through the cache
func (c *EmbeddingCache) Provider(p embedding.Provider) embedding.Provider {
	return embedding.ProviderFunc(func(ctx context.Context, text string) ([]float32, error) {
		return c.GetEmbedding(ctx, text, p.Embed)
	})
}

// Warm precomputes embeddings for queries. Failures are logged and skipped.
func (c *EmbeddingCache) Warm(ctx context.Context, queries []string, compute ComputeFunc) WarmReport {
	var report WarmReport
	for _, q := range queries {
		if ctx.Err() != nil {
			break
		}
		if _, err := c.GetEmbedding(ctx, q, compute); err != nil {
			log.Printf("⚠️  [EMBED-CACHE] Failed to warm %q: %v", q, err)
			report.Failed++
			continue
		}
		report.Warmed++
	}
	log.Printf("🔥 [EMBED-CACHE] Warmed %d queries (%d failed)", report.Warmed, report.Failed)
	return report
}

// Sweep removes expired vectors
func (c *EmbeddingCache) Sweep(ctx context.Context) (int, error) {
	return c.store.Sweep(ctx)
}

// Clear drops every cached vector
func (c *EmbeddingCache) Clear(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear embedding cache: %w", err)
	}
	return nil
}

// Stats reports size and limits
func (c *EmbeddingCache) Stats(ctx context.Context) (models.CacheStats, error) {
	return StoreStats(ctx, c.store.Len, c.store.Options())
}

// StoreStats reports a cache store's current size and limits
func StoreStats(ctx context.Context, length func(context.Context) (int, error), opts cache.Options) (models.CacheStats, error) {
	n, err := length(ctx)
	if err != nil {
		return models.CacheStats{}, err
	}
	return models.CacheStats{
		Size:       n,
		MaxSize:    opts.MaxEntries,
		TTLSeconds: int64(opts.TTL / time.Second),
	}, nil
}

// EvictionRecorder returns a cache.Options OnEvict hook that counts evictions for name
func EvictionRecorder(metrics *Metrics, name string) func(key, reason string) {
	return func(_, reason string) {
		metrics.RecordCacheEviction(name, reason)
	}
}
