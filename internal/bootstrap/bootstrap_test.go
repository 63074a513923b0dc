package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/config"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/jobs"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/ratelimit"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/services"
)

func testConfig() *config.Config {
	return &config.Config{
		CacheBackend:             config.BackendRedis,
		RateLimitBackend:         config.BackendMemory,
		SessionBackend:           config.BackendMongo,
		EmbeddingModel:           "text-embedding-3-small",
		ChatModel:                "gpt-4o-mini",
		EmbeddingRPS:             5,
		EmbeddingMaxRetries:      3,
		EmbeddingCacheTTL:        24 * time.Hour,
		EmbeddingCacheMaxEntries: 1000,
		EmbeddingSweepInterval:   time.Hour,
		ResponseCacheTTL:         time.Hour,
		ResponseCacheMaxEntries:  500,
		ResponseSweepInterval:    10 * time.Minute,
		SessionMaxMessages:       50,
		SessionTTL:               24 * time.Hour,
		SessionSweepInterval:     30 * time.Minute,
		KnowledgeCleanupCron:     "0 3 * * *",
		ChunkTargetSize:          1000,
		ChunkOverlap:             200,
		IngestionWorkers:         2,
		RetrievalTopK:            4,
	}
}

func TestBuildFallsBackToMemory(t *testing.T) {
	ctx := context.Background()
	c, err := Build(ctx, testConfig(), nil)
	if err != nil {
		t.Fatalf("Failed to build components: %v", err)
	}
	defer c.Close(ctx)

	if c.Mongo != nil || c.Redis != nil {
		t.Fatal("Expected no backend connections without URLs")
	}
	if _, ok := c.Sessions.(*services.MemorySessionStore); !ok {
		t.Errorf("Expected in-memory sessions, got %T", c.Sessions)
	}
	if _, ok := c.Knowledge.(*services.MemoryKnowledgeStore); !ok {
		t.Errorf("Expected in-memory knowledge store, got %T", c.Knowledge)
	}
	if c.MemoryCounter == nil {
		t.Error("Expected in-memory rate counter")
	}

	stats, err := c.EmbeddingCache.Stats(ctx)
	if err != nil {
		t.Fatalf("Failed to read stats: %v", err)
	}
	if stats.MaxSize != 1000 || stats.TTLSeconds != 86400 {
		t.Errorf("Unexpected embedding cache limits: %+v", stats)
	}
	if c.ResponseCache.MaxSize() != 500 || c.ResponseCache.TTL() != time.Hour {
		t.Errorf("Unexpected response cache limits: %d, %v", c.ResponseCache.MaxSize(), c.ResponseCache.TTL())
	}
}

func TestBuildRejectsUnknownCacheBackend(t *testing.T) {
	cfg := testConfig()
	cfg.CacheBackend = "memcached"
	if _, err := Build(context.Background(), cfg, nil); err == nil {
		t.Error("Expected error for unknown cache backend")
	}
}

func TestRegisterJobs(t *testing.T) {
	ctx := context.Background()
	c, err := Build(ctx, testConfig(), nil)
	if err != nil {
		t.Fatalf("Failed to build components: %v", err)
	}
	defer c.Close(ctx)

	s, err := jobs.NewJobScheduler()
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}
	defer s.Stop()

	if err := c.RegisterJobs(s); err != nil {
		t.Fatalf("Failed to register jobs: %v", err)
	}

	names := make(map[string]bool)
	for _, status := range s.GetStatus() {
		names[status.Name] = true
	}
	for _, want := range []string{JobEmbeddingSweep, JobResponseSweep, JobSessionExpiry, JobRateLimitPrune, JobKnowledgeCleanup} {
		if !names[want] {
			t.Errorf("Expected job %s to be registered", want)
		}
	}

	if err := s.RunNow(ctx, JobKnowledgeCleanup); err != nil {
		t.Errorf("Expected cleanup on an empty store to succeed: %v", err)
	}
}

func TestAdmitterUsesConfiguredTiers(t *testing.T) {
	ctx := context.Background()
	c, err := Build(ctx, testConfig(), nil)
	if err != nil {
		t.Fatalf("Failed to build components: %v", err)
	}
	defer c.Close(ctx)

	admitter := c.Admitter(ratelimit.DefaultTierConfig())
	if len(admitter.Tiers()) != 3 {
		t.Errorf("Expected 3 tiers, got %d", len(admitter.Tiers()))
	}
}
