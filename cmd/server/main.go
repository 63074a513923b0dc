package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/bootstrap"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/config"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/handlers"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/jobs"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/logging"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/middleware"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/preflight"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/services"
	"github.com/priyanshu-1006/GDG-Edit-sub000/pkg/auth"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting GDG support server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, cache: %s, rate limit: %s, sessions: %s)",
		cfg.Port, cfg.CacheBackend, cfg.RateLimitBackend, cfg.SessionBackend)

	metrics := services.InitMetrics()

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	components, err := bootstrap.Build(startupCtx, cfg, metrics)
	cancelStartup()
	if err != nil {
		log.Fatalf("❌ Failed to initialize services: %v", err)
	}
	defer components.Close(context.Background())

	var mongoPinger, redisPinger preflight.Pinger
	if components.Mongo != nil {
		mongoPinger = components.Mongo
	}
	if components.Redis != nil {
		redisPinger = components.Redis
	}
	if results := preflight.NewChecker(cfg, mongoPinger, redisPinger).RunAll(context.Background()); preflight.HasFailures(results) {
		log.Fatal("❌ Pre-flight checks failed, refusing to start")
	}

	// JWT is optional for chat but required for the admin API
	var jwtAuth *auth.LocalJWTAuth
	if cfg.JWTSecret != "" {
		jwtAuth, err = auth.NewLocalJWTAuth(cfg.JWTSecret, 0)
		if err != nil {
			log.Fatalf("❌ Failed to initialize JWT auth: %v", err)
		}
		log.Println("✅ JWT authentication enabled")
	} else if cfg.IsProduction() {
		log.Fatal("❌ CRITICAL SECURITY ERROR: JWT_SECRET is required in production")
	} else {
		log.Println("⚠️  JWT_SECRET not set, all chat callers are anonymous")
	}

	// Background jobs
	jobScheduler, err := jobs.NewJobScheduler()
	if err != nil {
		log.Fatalf("❌ Failed to create job scheduler: %v", err)
	}
	if err := components.RegisterJobs(jobScheduler); err != nil {
		log.Fatalf("❌ Failed to register background jobs: %v", err)
	}
	jobScheduler.Start()

	// Knowledge import and embedding warm-up run in the background so the server starts immediately
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if cfg.KnowledgeFile != "" {
			syncKnowledge(ctx, components.Ingestion, cfg.KnowledgeFile)
		}
		if cfg.WarmEmbeddingsOnStart {
			components.EmbeddingCache.Warm(ctx, services.DefaultWarmQueries, components.Provider.Embed)
		}
	}()

	if cfg.KnowledgeFile != "" && cfg.KnowledgeWatch {
		go startKnowledgeFileWatcher(cfg.KnowledgeFile, components.Ingestion)
	}

	app := fiber.New(fiber.Config{
		AppName:      "GDG Support v1.0",
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second, // generation can be slow on local models
		IdleTimeout:  120 * time.Second,
		BodyLimit:    10 * 1024 * 1024, // knowledge imports
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("gdg_support")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	rateLimitConfig := middleware.LoadRateLimitConfig()
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, Standard=%d/%d per min, Anonymous=%d/min, Daily=%d",
		rateLimitConfig.GlobalAPIMax,
		rateLimitConfig.Tiers.StandardAnonLimit,
		rateLimitConfig.Tiers.StandardAuthLimit,
		rateLimitConfig.Tiers.AnonymousLimit,
		rateLimitConfig.Tiers.DailyLimit,
	)

	allowCredentials := cfg.AllowedOrigins != "*"
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: allowCredentials,
	}))
	log.Printf("🔒 [SECURITY] CORS allowed origins: %s", cfg.AllowedOrigins)

	healthDeps := map[string]handlers.Pinger{"mongodb": mongoPinger, "redis": redisPinger}
	app.Get("/health", handlers.NewHealthHandler(healthDeps).Handle)

	// Global API rate limiter - first line of DDoS defense
	api := app.Group("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))

	chatHandler := handlers.NewChatHandler(components.Sessions, components.Responder, cfg.HistoryTurns, metrics)
	admitter := components.Admitter(rateLimitConfig.Tiers)

	chat := api.Group("/chat", middleware.OptionalLocalAuthMiddleware(jwtAuth))
	chatPipeline := middleware.ChatPipeline(cfg.MaxMessageLength, admitter, cfg, metrics, components.ResponseCache)
	chat.Post("/", append(chatPipeline, chatHandler.Chat)...)
	chat.Get("/history/:sessionId", chatHandler.History)
	chat.Delete("/history/:sessionId", chatHandler.DeleteHistory)

	admin := api.Group("/admin", middleware.LocalAuthMiddleware(jwtAuth), middleware.AdminMiddleware(cfg))

	cacheAdmin := handlers.NewCacheAdminHandler(components.ResponseCache, components.EmbeddingCache)
	admin.Get("/cache/stats", cacheAdmin.Stats)
	admin.Post("/cache/clear", cacheAdmin.Clear)

	knowledgeAdmin := handlers.NewKnowledgeHandler(components.Ingestion, cfg.KnowledgeFile)
	admin.Post("/knowledge/ingest", knowledgeAdmin.Ingest)
	admin.Post("/knowledge/cleanup", knowledgeAdmin.Cleanup)
	admin.Get("/knowledge/stats", knowledgeAdmin.Stats)

	admin.Get("/jobs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"success": true,
			"jobs":    jobScheduler.GetStatus(),
		})
	})

	log.Printf("💬 Chat endpoint: http://localhost:%s/api/chat", cfg.Port)
	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		if err := jobScheduler.Stop(); err != nil {
			log.Printf("⚠️ Error stopping job scheduler: %v", err)
		}

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// syncKnowledge ingests the knowledge import file
func syncKnowledge(ctx context.Context, ingestion *services.IngestionService, filePath string) {
	log.Printf("🔄 Syncing knowledge from %s...", filePath)

	report, err := ingestion.IngestFile(ctx, filePath, services.IngestOptions{})
	if err != nil {
		log.Printf("❌ Failed to sync knowledge: %v", err)
		return
	}

	log.Printf("✅ Knowledge synced: %d chunks inserted, %d duplicates, %d skipped, %d failed",
		report.Inserted, report.Duplicates, report.Skipped, report.Failed)
}

// startKnowledgeFileWatcher watches the knowledge import file for changes and re-ingests it
func startKnowledgeFileWatcher(filePath string, ingestion *services.IngestionService) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("⚠️  Failed to create file watcher: %v", err)
		return
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		log.Printf("⚠️  Failed to get absolute path for %s: %v", filePath, err)
		return
	}

	// Watch the directory containing the file (more reliable than watching the file directly)
	dir := filepath.Dir(absPath)
	filename := filepath.Base(absPath)

	if err := watcher.Add(dir); err != nil {
		log.Printf("⚠️  Failed to watch directory %s: %v", dir, err)
		return
	}

	log.Printf("👁️  Watching %s for changes (hot-reload enabled)", filePath)

	var debounceTimer *time.Timer
	debounceDuration := 500 * time.Millisecond

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filename {
				continue
			}

			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}

				debounceTimer = time.AfterFunc(debounceDuration, func() {
					ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
					defer cancel()
					syncKnowledge(ctx, ingestion, filePath)
				})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️  File watcher error: %v", err)
		}
	}
}
