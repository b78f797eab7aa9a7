package main

import (
	"context"
	"log"
	"math/rand"
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

	"cryptogram/internal/config"
	"cryptogram/internal/database"
	"cryptogram/internal/handlers"
	"cryptogram/internal/jobs"
	"cryptogram/internal/logging"
	"cryptogram/internal/middleware"
	"cryptogram/internal/services"
	"cryptogram/pkg/auth"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("ℹ️  No .env file found, using environment variables")
	}
	logging.Init()

	cfg := config.Load()

	// Database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}
	log.Printf("✅ Database ready (%s)", db.Dialect())

	// Redis is optional: without it the market cache and job locks degrade
	// to direct fetches and single-instance behavior.
	var redisService *services.RedisService
	if cfg.RedisURL != "" {
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable, continuing without cache: %v", err)
			redisService = nil
		} else {
			defer redisService.Close()
		}
	}

	// Services
	discordService := services.NewDiscordService(cfg.DiscordWebhookURL, cfg.AlertURL())
	errorLogger := services.NewErrorLogger(db, discordService)
	personaService := services.NewPersonaService(db)
	personaScheduler := services.NewPersonaScheduler(db, personaService, rand.New(rand.NewSource(time.Now().UnixNano())))
	marketService := services.NewMarketService(db, redisService, cfg.PriceFeedBaseURL, cfg.CoinIDs)
	contentService := services.NewContentService(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.ContentMaxTokens, cfg.ContentPerMinute)
	metrics := services.InitMetrics()
	posterService := services.NewPosterService(db, personaScheduler, marketService, contentService, discordService, errorLogger, metrics, cfg.DiscordChannel, cfg.CommunityURL)
	feedbackService := services.NewFeedbackService(db)
	communityService := services.NewCommunityService(db)

	// Persona roster from the seed file, with hot reload
	syncPersonas(cfg.PersonasFile, personaService)
	go startPersonasFileWatcher(cfg.PersonasFile, personaService)

	// Admin account
	var jwtAuth *auth.LocalJWTAuth
	if cfg.JWTSecret != "" {
		jwtAuth, err = auth.NewLocalJWTAuth(cfg.JWTSecret, time.Hour)
		if err != nil {
			log.Fatalf("❌ Failed to initialize JWT auth: %v", err)
		}
		if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
			hash, err := auth.HashPassword(cfg.AdminPassword)
			if err != nil {
				log.Fatalf("❌ Failed to hash admin password: %v", err)
			}
			if err := communityService.UpsertAdmin(context.Background(), cfg.AdminEmail, hash); err != nil {
				log.Printf("⚠️  Failed to seed admin user: %v", err)
			} else {
				log.Printf("✅ Admin account ready: %s", cfg.AdminEmail)
			}
		}
	} else {
		log.Println("⚠️  JWT_SECRET not set, admin API disabled")
	}

	// Background jobs
	var jobLocker jobs.Locker
	if redisService != nil {
		jobLocker = redisService
	}
	jobScheduler, err := jobs.NewScheduler(jobLocker, errorLogger)
	if err != nil {
		log.Fatalf("❌ Failed to create job scheduler: %v", err)
	}
	mustRegister := func(name, cronExpr string, fn jobs.JobFunc) {
		if err := jobScheduler.Register(name, cronExpr, fn); err != nil {
			log.Fatalf("❌ Failed to register job %s: %v", name, err)
		}
	}
	mustRegister(jobs.PersonaPosterJobName, cfg.PosterCron, jobs.NewPersonaPosterJob(posterService))
	mustRegister(jobs.PriceCollectorJobName, cfg.PriceCron, jobs.NewPriceCollectorJob(marketService, errorLogger))
	mustRegister(jobs.RetentionCleanupJobName, cfg.RetentionCron, jobs.NewRetentionCleanupJob(db, errorLogger, cfg.RetentionDays))
	jobScheduler.Start()

	// HTTP server
	app := fiber.New(fiber.Config{
		AppName:      "CryptoGram v1.0",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	prometheus := fiberprometheus.New("cryptogram")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: allowedOrigins != "*",
	}))

	// Handlers
	healthHandler := handlers.NewHealthHandler(db)
	coinHandler := handlers.NewCoinHandler(marketService)
	communityHandler := handlers.NewCommunityHandler(communityService)
	feedbackHandler := handlers.NewFeedbackHandler(feedbackService)
	authHandler := handlers.NewAuthHandler(jwtAuth, communityService)
	adminHandler := handlers.NewAdminHandler(personaService, errorLogger, feedbackService, posterService, personaScheduler, jobScheduler)

	// Public routes
	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api", middleware.PublicReadLimiter())
	api.Get("/data", coinHandler.Data)
	api.Get("/posts", communityHandler.ListPosts)
	api.Post("/posts", communityHandler.CreatePost)
	api.Get("/posts/:id", communityHandler.GetPost)
	api.Post("/posts/:id/like", communityHandler.LikePost)
	api.Get("/posts/:id/comments", communityHandler.ListComments)
	api.Post("/posts/:id/comments", communityHandler.AddComment)
	api.Get("/users", communityHandler.ListUsers)
	api.Post("/users", communityHandler.CreateUser)
	api.Get("/users/:id", communityHandler.GetUser)
	api.Post("/discord/feedback", middleware.FeedbackLimiter(), feedbackHandler.Record)

	// Admin routes
	app.Post("/api/auth/login", middleware.LoginLimiter(), authHandler.Login)

	admin := app.Group("/api/admin", middleware.LocalAuthMiddleware(jwtAuth), middleware.AdminMiddleware())
	admin.Get("/personas/stats", adminHandler.PersonaStats)
	admin.Get("/dashboard", adminHandler.Dashboard)
	admin.Get("/errors", adminHandler.RecentErrors)
	admin.Get("/errors/stats", adminHandler.ErrorStats)
	admin.Get("/feedback/analytics", feedbackHandler.Analytics)
	admin.Post("/bot/run", adminHandler.RunBot)

	log.Printf("🚀 CryptoGram server starting on port %s", cfg.Port)
	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("📊 Metrics: http://localhost:%s/metrics", cfg.Port)
	log.Printf("🕐 Jobs: poster (%s), prices (%s), retention (%s)", cfg.PosterCron, cfg.PriceCron, cfg.RetentionCron)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		if err := jobScheduler.Stop(); err != nil {
			log.Printf("⚠️  Error stopping job scheduler: %v", err)
		}
		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️  Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// syncPersonas loads the persona roster from the seed file into the
// database.
func syncPersonas(filePath string, personaService *services.PersonaService) {
	personasConfig, err := config.LoadPersonas(filePath)
	if err != nil {
		log.Printf("⚠️  Failed to load personas from %s: %v", filePath, err)
		return
	}

	if err := personaService.SyncFromConfig(context.Background(), personasConfig); err != nil {
		log.Printf("⚠️  Failed to sync personas: %v", err)
	}
}

// startPersonasFileWatcher watches personas.json and re-syncs on changes.
func startPersonasFileWatcher(filePath string, personaService *services.PersonaService) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("⚠️  Failed to create file watcher: %v", err)
		return
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		log.Printf("⚠️  Failed to get absolute path for %s: %v", filePath, err)
		watcher.Close()
		return
	}

	// Watch the directory; watching the file directly breaks on editors
	// that replace the file on save.
	dir := filepath.Dir(absPath)
	filename := filepath.Base(absPath)

	if err := watcher.Add(dir); err != nil {
		log.Printf("⚠️  Failed to watch directory %s: %v", dir, err)
		watcher.Close()
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
					log.Printf("🔄 Detected changes in %s, re-syncing personas...", filePath)
					syncPersonas(filePath, personaService)
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
