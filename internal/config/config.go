package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend selectors
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Config holds all application configuration
type Config struct {
	Port           string
	Environment    string
	AllowedOrigins string
	MongoURI       string
	RedisURL       string
	JWTSecret      string

	// Superadmin configuration
	SuperadminUserIDs []string

	// Shared-state backends: memory for a single instance, redis/mongo when scaled out
	CacheBackend     string
	RateLimitBackend string
	SessionBackend   string

	// Embedding and generation (OpenAI-compatible)
	LLMBaseURL          string
	LLMAPIKey           string
	EmbeddingModel      string
	ChatModel           string
	EmbeddingRPS        float64
	EmbeddingMaxRetries int

	// Input
	MaxMessageLength int

	// Embedding cache
	EmbeddingCacheTTL        time.Duration
	EmbeddingCacheMaxEntries int
	EmbeddingSweepInterval   time.Duration
	WarmEmbeddingsOnStart    bool

	// Response cache
	ResponseCacheTTL        time.Duration
	ResponseCacheMaxEntries int
	ResponseSweepInterval   time.Duration

	// Sessions
	SessionMaxMessages   int
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration
	HistoryTurns         int

	// Knowledge
	KnowledgeFile        string
	KnowledgeWatch       bool
	KnowledgeCleanupCron string
	ChunkTargetSize      int
	ChunkOverlap         int
	IngestionWorkers     int
	RetrievalTopK        int
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "3001"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:5173"),
		MongoURI:       getEnv("MONGODB_URI", ""),
		RedisURL:       getEnv("REDIS_URL", ""),
		JWTSecret:      getEnv("JWT_SECRET", ""),

		SuperadminUserIDs: getListEnv("SUPERADMIN_USER_IDS"),

		CacheBackend:     getEnv("CACHE_BACKEND", BackendMemory),
		RateLimitBackend: getEnv("RATE_LIMIT_BACKEND", BackendMemory),
		SessionBackend:   getEnv("SESSION_BACKEND", BackendMongo),

		LLMBaseURL:          getEnv("LLM_BASE_URL", ""),
		LLMAPIKey:           getEnv("LLM_API_KEY", ""),
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		ChatModel:           getEnv("CHAT_MODEL", "gpt-4o-mini"),
		EmbeddingRPS:        getFloatEnv("EMBEDDING_RPS", 5),
		EmbeddingMaxRetries: getIntEnv("EMBEDDING_MAX_RETRIES", 3),

		MaxMessageLength: getIntEnv("MAX_MESSAGE_LENGTH", 1000),

		EmbeddingCacheTTL:        getDurationEnv("EMBEDDING_CACHE_TTL", 24*time.Hour),
		EmbeddingCacheMaxEntries: getIntEnv("EMBEDDING_CACHE_MAX_ENTRIES", 1000),
		EmbeddingSweepInterval:   getDurationEnv("EMBEDDING_CACHE_SWEEP_INTERVAL", time.Hour),
		WarmEmbeddingsOnStart:    getBoolEnv("EMBEDDING_CACHE_WARM", true),

		ResponseCacheTTL:        getDurationEnv("RESPONSE_CACHE_TTL", time.Hour),
		ResponseCacheMaxEntries: getIntEnv("RESPONSE_CACHE_MAX_ENTRIES", 500),
		ResponseSweepInterval:   getDurationEnv("RESPONSE_CACHE_SWEEP_INTERVAL", 10*time.Minute),

		SessionMaxMessages:   getIntEnv("SESSION_MAX_MESSAGES", 50),
		SessionTTL:           getDurationEnv("SESSION_TTL", 24*time.Hour),
		SessionSweepInterval: getDurationEnv("SESSION_SWEEP_INTERVAL", 30*time.Minute),
		HistoryTurns:         getIntEnv("HISTORY_TURNS", 10),

		KnowledgeFile:        getEnv("KNOWLEDGE_FILE", ""),
		KnowledgeWatch:       getBoolEnv("KNOWLEDGE_WATCH", false),
		KnowledgeCleanupCron: getEnv("KNOWLEDGE_CLEANUP_CRON", "0 3 * * *"),
		ChunkTargetSize:      getIntEnv("CHUNK_TARGET_SIZE", 1000),
		ChunkOverlap:         getIntEnv("CHUNK_OVERLAP", 200),
		IngestionWorkers:     getIntEnv("INGESTION_WORKERS", 4),
		RetrievalTopK:        getIntEnv("RETRIEVAL_TOP_K", 4),
	}
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsSuperadmin reports whether userID is in the configured superadmin list
func (c *Config) IsSuperadmin(userID string) bool {
	if userID == "" {
		return false
	}
	for _, adminID := range c.SuperadminUserIDs {
		if adminID == userID {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getListEnv(key string) []string {
	value := getEnv(key, "")
	if value == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
