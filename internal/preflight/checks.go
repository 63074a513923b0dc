package preflight

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/config"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/jobs"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/knowledge"
)

// Check statuses
const (
	StatusPass    = "pass"
	StatusFail    = "fail"
	StatusWarning = "warning"
)

// CheckResult represents the result of a preflight check
type CheckResult struct {
	Name    string
	Status  string // "pass", "fail", "warning"
	Message string
	Error   error
}

// Pinger is a backing service connection
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker performs pre-flight checks before server starts
type Checker struct {
	cfg   *config.Config
	mongo Pinger
	redis Pinger
}

// NewChecker creates a new preflight checker. Pass nil for backends that are not configured.
func NewChecker(cfg *config.Config, mongo, redis Pinger) *Checker {
	return &Checker{cfg: cfg, mongo: mongo, redis: redis}
}

// RunAll runs all preflight checks and returns results
func (c *Checker) RunAll(ctx context.Context) []CheckResult {
	log.Println("🔍 Running pre-flight checks...")

	results := []CheckResult{
		c.checkBackend(ctx, "MongoDB", c.mongo, c.cfg.SessionBackend == config.BackendMongo),
		c.checkBackend(ctx, "Redis", c.redis, c.cfg.CacheBackend == config.BackendRedis || c.cfg.RateLimitBackend == config.BackendRedis),
		c.checkAuth(),
		c.checkModelEndpoint(),
		c.checkCleanupSchedule(),
		c.checkKnowledgeFile(),
	}

	passed := 0
	failed := 0
	warnings := 0

	for _, result := range results {
		switch result.Status {
		case StatusPass:
			log.Printf("   ✅ %s: %s", result.Name, result.Message)
			passed++
		case StatusFail:
			log.Printf("   ❌ %s: %s", result.Name, result.Message)
			if result.Error != nil {
				log.Printf("      Error: %v", result.Error)
			}
			failed++
		case StatusWarning:
			log.Printf("   ⚠️  %s: %s", result.Name, result.Message)
			warnings++
		}
	}

	log.Printf("📊 Pre-flight summary: %d passed, %d failed, %d warnings", passed, failed, warnings)

	return results
}

// HasFailures returns true if any check failed
func HasFailures(results []CheckResult) bool {
	for _, result := range results {
		if result.Status == StatusFail {
			return true
		}
	}
	return false
}

// checkBackend pings an optional backend. A backend selected by config but not connected is a warning.
func (c *Checker) checkBackend(ctx context.Context, name string, backend Pinger, selected bool) CheckResult {
	if backend == nil {
		if selected {
			return CheckResult{
				Name:    name,
				Status:  StatusWarning,
				Message: "Selected as a backend but not configured, falling back to memory",
			}
		}
		return CheckResult{Name: name, Status: StatusPass, Message: "Not configured"}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := backend.Ping(pingCtx); err != nil {
		return CheckResult{
			Name:    name,
			Status:  StatusFail,
			Message: "Cannot connect",
			Error:   err,
		}
	}

	return CheckResult{Name: name, Status: StatusPass, Message: "Connection successful"}
}

func (c *Checker) checkAuth() CheckResult {
	if c.cfg.JWTSecret != "" {
		return CheckResult{Name: "Authentication", Status: StatusPass, Message: "JWT secret configured"}
	}
	if c.cfg.IsProduction() {
		return CheckResult{
			Name:    "Authentication",
			Status:  StatusFail,
			Message: "JWT_SECRET is required in production",
		}
	}
	return CheckResult{
		Name:    "Authentication",
		Status:  StatusWarning,
		Message: "JWT_SECRET not set (admin API runs in development mode)",
	}
}

func (c *Checker) checkModelEndpoint() CheckResult {
	if c.cfg.LLMBaseURL == "" && c.cfg.LLMAPIKey == "" && os.Getenv("OPENAI_API_KEY") == "" {
		return CheckResult{
			Name:    "Model Endpoint",
			Status:  StatusWarning,
			Message: "Neither LLM_BASE_URL nor LLM_API_KEY is set, embedding and chat calls will fail",
		}
	}
	return CheckResult{
		Name:    "Model Endpoint",
		Status:  StatusPass,
		Message: fmt.Sprintf("Embedding model %s, chat model %s", c.cfg.EmbeddingModel, c.cfg.ChatModel),
	}
}

func (c *Checker) checkCleanupSchedule() CheckResult {
	if c.cfg.KnowledgeCleanupCron == "" {
		return CheckResult{Name: "Cleanup Schedule", Status: StatusPass, Message: "Disabled"}
	}
	if err := jobs.ValidateCron(c.cfg.KnowledgeCleanupCron); err != nil {
		return CheckResult{
			Name:    "Cleanup Schedule",
			Status:  StatusFail,
			Message: "KNOWLEDGE_CLEANUP_CRON is invalid",
			Error:   err,
		}
	}
	return CheckResult{Name: "Cleanup Schedule", Status: StatusPass, Message: c.cfg.KnowledgeCleanupCron}
}

// checkKnowledgeFile verifies the import file parses before the server relies on it
func (c *Checker) checkKnowledgeFile() CheckResult {
	if c.cfg.KnowledgeFile == "" {
		return CheckResult{Name: "Knowledge File", Status: StatusPass, Message: "Not configured"}
	}

	docs, err := knowledge.LoadSources(c.cfg.KnowledgeFile)
	if err != nil {
		return CheckResult{
			Name:    "Knowledge File",
			Status:  StatusFail,
			Message: fmt.Sprintf("Cannot load %s", c.cfg.KnowledgeFile),
			Error:   err,
		}
	}
	if len(docs) == 0 {
		return CheckResult{
			Name:    "Knowledge File",
			Status:  StatusWarning,
			Message: fmt.Sprintf("%s contains no documents", c.cfg.KnowledgeFile),
		}
	}

	return CheckResult{
		Name:    "Knowledge File",
		Status:  StatusPass,
		Message: fmt.Sprintf("%d documents in %s", len(docs), c.cfg.KnowledgeFile),
	}
}
