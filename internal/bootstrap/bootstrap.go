// Package bootstrap builds the support engine's components from configuration.
// The HTTP server and the operator CLI share it.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/cache"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/chunker"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/config"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/database"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/embedding"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/jobs"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/middleware"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/models"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/ratelimit"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/services"
)

// Components is everything the server and CLI operate on
type Components struct {
	Config  *config.Config
	Metrics *services.Metrics

	Mongo *database.MongoDB       // nil when MONGODB_URI is unset
	Redis *services.RedisService // nil when REDIS_URL is unset

	Provider       embedding.Provider // raw provider, uncached
	EmbeddingCache *services.EmbeddingCache
	ResponseCache  *middleware.ResponseCache

	Knowledge services.KnowledgeStore
	Ingestion *services.IngestionService
	Sessions  services.SessionStore
	Responder services.Responder

	Counter       ratelimit.Counter
	MemoryCounter *ratelimit.MemoryCounter // nil when counters live in Redis
}

// Build connects to the configured backends and wires every component.
// Mongo and Redis are optional; their absence falls back to in-memory stores.
func Build(ctx context.Context, cfg *config.Config, metrics *services.Metrics) (*Components, error) {
	c := &Components{Config: cfg, Metrics: metrics}

	if cfg.MongoURI != "" {
		log.Println("🔗 Connecting to MongoDB...")
		mongoDB, err := database.NewMongoDB(cfg.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		if err := mongoDB.Initialize(ctx, cfg.SessionTTL); err != nil {
			mongoDB.Close(ctx)
			return nil, fmt.Errorf("failed to initialize MongoDB: %w", err)
		}
		c.Mongo = mongoDB
	} else {
		log.Println("⚠️  MONGODB_URI not set, knowledge and sessions are kept in memory")
	}

	if cfg.RedisURL != "" {
		redisService, err := services.NewRedisService(cfg.RedisURL)
		if err != nil {
			c.Close(ctx)
			return nil, err
		}
		c.Redis = redisService
	}

	if err := c.buildCaches(); err != nil {
		c.Close(ctx)
		return nil, err
	}
	c.buildCounter()
	c.buildSessions()

	provider, err := embedding.NewOpenAIProvider(embedding.Config{
		BaseURL:           cfg.LLMBaseURL,
		APIKey:            cfg.LLMAPIKey,
		Model:             cfg.EmbeddingModel,
		RequestsPerSecond: cfg.EmbeddingRPS,
		MaxAttempts:       cfg.EmbeddingMaxRetries,
	})
	if err != nil {
		c.Close(ctx)
		return nil, err
	}
	c.Provider = provider
	cached := c.EmbeddingCache.Provider(provider)

	if c.Mongo != nil {
		c.Knowledge = services.NewMongoKnowledgeStore(c.Mongo)
	} else {
		c.Knowledge = services.NewMemoryKnowledgeStore(nil)
	}

	c.Ingestion = services.NewIngestionService(c.Knowledge, cached, services.IngestionConfig{
		Chunking: chunker.Options{
			TargetSize: cfg.ChunkTargetSize,
			Overlap:    cfg.ChunkOverlap,
			MinLength:  chunker.DefaultMinLength,
		},
		Workers: cfg.IngestionWorkers,
	}, metrics)

	model, err := services.NewOpenAIChatModel(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.ChatModel)
	if err != nil {
		c.Close(ctx)
		return nil, err
	}
	c.Responder = services.NewRetrievalResponder(c.Knowledge, cached, model, services.RetrievalResponderConfig{
		TopK: cfg.RetrievalTopK,
	})

	return c, nil
}

func (c *Components) useRedis(backend, what string) bool {
	if backend != config.BackendRedis {
		return false
	}
	if c.Redis == nil {
		log.Printf("⚠️  %s backend is redis but REDIS_URL is not set, using memory", what)
		return false
	}
	return true
}

func (c *Components) buildCaches() error {
	cfg := c.Config

	embeddingOpts := cache.Options{
		TTL:        cfg.EmbeddingCacheTTL,
		MaxEntries: cfg.EmbeddingCacheMaxEntries,
		OnEvict:    services.EvictionRecorder(c.Metrics, "embedding"),
	}
	responseOpts := cache.Options{
		TTL:        cfg.ResponseCacheTTL,
		MaxEntries: cfg.ResponseCacheMaxEntries,
		OnEvict:    services.EvictionRecorder(c.Metrics, "response"),
	}

	var (
		embeddingStore cache.Store[[]float32]
		responseStore  cache.Store[models.CachedResponse]
	)
	switch cfg.CacheBackend {
	case config.BackendMemory, config.BackendRedis, "":
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", cfg.CacheBackend)
	}

	if c.useRedis(cfg.CacheBackend, "Cache") {
		embeddingStore = cache.NewRedisStore[[]float32](c.Redis.Client(), "support:embedding", embeddingOpts)
		responseStore = cache.NewRedisStore[models.CachedResponse](c.Redis.Client(), "support:response", responseOpts)
		log.Println("✅ Caches stored in Redis")
	} else {
		embeddingStore = cache.NewMemoryStore[[]float32](embeddingOpts)
		responseStore = cache.NewMemoryStore[models.CachedResponse](responseOpts)
	}

	c.EmbeddingCache = services.NewEmbeddingCache(embeddingStore, c.Metrics)
	c.ResponseCache = middleware.NewResponseCache(responseStore, c.Metrics)
	return nil
}

func (c *Components) buildCounter() {
	if c.useRedis(c.Config.RateLimitBackend, "Rate limit") {
		c.Counter = ratelimit.NewRedisCounter(c.Redis.Client(), "support:ratelimit")
		log.Println("✅ Rate-limit counters stored in Redis")
		return
	}
	c.MemoryCounter = ratelimit.NewMemoryCounter(nil)
	c.Counter = c.MemoryCounter
}

func (c *Components) buildSessions() {
	storeCfg := services.SessionStoreConfig{
		MaxMessages: c.Config.SessionMaxMessages,
		TTL:         c.Config.SessionTTL,
	}
	if c.Config.SessionBackend == config.BackendMongo && c.Mongo != nil {
		c.Sessions = services.NewMongoSessionStore(c.Mongo, storeCfg)
		return
	}
	if c.Config.SessionBackend == config.BackendMongo {
		log.Println("⚠️  Session backend is mongo but MongoDB is unavailable, using memory")
	}
	c.Sessions = services.NewMemorySessionStore(storeCfg, nil)
}

// Admitter builds the chat admission tiers over the shared counter
func (c *Components) Admitter(tiers ratelimit.TierConfig) *ratelimit.Admitter {
	return ratelimit.NewAdmitter(c.Counter, ratelimit.DefaultTiers(tiers)...)
}

// Job names
const (
	JobEmbeddingSweep   = "embedding-cache-sweep"
	JobResponseSweep    = "response-cache-sweep"
	JobSessionExpiry    = "session-expiry"
	JobRateLimitPrune   = "rate-limit-prune"
	JobKnowledgeCleanup = "knowledge-cleanup"
)

// RegisterJobs schedules every periodic maintenance task
func (c *Components) RegisterJobs(s *jobs.JobScheduler) error {
	cfg := c.Config

	if err := s.Every(JobEmbeddingSweep, cfg.EmbeddingSweepInterval, jobs.NewSweepJob("EMBED-CACHE", c.EmbeddingCache)); err != nil {
		return err
	}
	if err := s.Every(JobResponseSweep, cfg.ResponseSweepInterval, jobs.NewSweepJob("RESPONSE-CACHE", c.ResponseCache)); err != nil {
		return err
	}
	if err := s.Every(JobSessionExpiry, cfg.SessionSweepInterval, jobs.NewSessionExpiryJob(c.Sessions)); err != nil {
		return err
	}
	if c.MemoryCounter != nil {
		if err := s.Every(JobRateLimitPrune, time.Minute, jobs.NewPruneJob(c.MemoryCounter)); err != nil {
			return err
		}
	}
	if cfg.KnowledgeCleanupCron != "" {
		cleanup := jobs.JobFunc(func(ctx context.Context) error {
			report, err := c.Ingestion.Cleanup(ctx)
			if err != nil {
				return err
			}
			log.Printf("🧹 [KNOWLEDGE] Cleanup removed %d invalid and %d duplicate chunks, backfilled %d",
				report.InvalidRemoved, report.DuplicatesRemoved, report.Backfilled)
			return nil
		})
		if err := s.Cron(JobKnowledgeCleanup, cfg.KnowledgeCleanupCron, cleanup); err != nil {
			return err
		}
	}
	return nil
}

// Close releases backend connections
func (c *Components) Close(ctx context.Context) {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Printf("⚠️  Error closing Redis: %v", err)
		}
	}
	if c.Mongo != nil {
		if err := c.Mongo.Close(ctx); err != nil {
			log.Printf("⚠️  Error closing MongoDB: %v", err)
		}
	}
}
