package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"ecolearn-engine/config"
	"ecolearn-engine/handlers"
	"ecolearn-engine/middleware"
	"ecolearn-engine/models"
	"ecolearn-engine/services"
	"ecolearn-engine/store"
	"ecolearn-engine/utils"
	"ecolearn-engine/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	config.LoadEnv()
	if err := config.Env.Validate(); err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	if err := utils.InitLogger(config.Env); err != nil {
		log.Fatal("failed to initialize logger:", err)
	}
	defer utils.Logger.Sync()

	app := fiber.New(fiber.Config{
		BodyLimit: 25 * 1024 * 1024, // proof uploads cap at 20MB, leave form overhead
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware(config.Env.GatewayToken))
	app.Use(middleware.RateLimitMiddleware(config.Env.RateLimitPerMinute))

	allowedOriginsList := strings.Split(config.Env.AllowedOrigins, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Service-Token, X-User-ID",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Backing store: postgres for deployments, memory for local dev.
	// Anything else is a config mistake and fatal at boot.
	var engineStore store.Store
	switch config.Env.StoreBackend {
	case "postgres":
		if config.Env.DatabaseURL == "" {
			log.Fatal("DATABASE_URL environment variable not set")
		}
		db, err := gorm.Open(postgres.Open(config.Env.DatabaseURL), &gorm.Config{})
		if err != nil {
			log.Fatal("failed to connect to database:", err)
		}
		if err := db.AutoMigrate(
			&models.EngineUser{},
			&models.School{},
			&models.Challenge{},
			&models.Submission{},
			&models.UserBadge{},
		); err != nil {
			log.Fatal("failed to migrate database:", err)
		}
		engineStore = store.NewGormStore(db)
	case "memory":
		engineStore = store.NewMemStore(utils.SameProof)
	default:
		log.Fatalf("unknown STORE_BACKEND %q (want postgres or memory)", config.Env.StoreBackend)
	}

	if err := utils.InitMediaStore(config.Env); err != nil {
		log.Fatal("failed to initialize media store:", err)
	}

	badgeService := services.NewBadgeService(engineStore)
	progressionService := services.NewProgressionService(engineStore, badgeService)
	submissionService := services.NewSubmissionService(engineStore, progressionService)
	leaderboardService := services.NewLeaderboardService(engineStore)
	recommendService := services.NewRecommendService(engineStore)
	catalogService := services.NewCatalogService(engineStore)

	if config.Env.SeedCatalog {
		if err := catalogService.SeedCatalog(); err != nil {
			log.Fatal("failed to seed catalog:", err)
		}
	}
	if config.Env.StoreBackend == "memory" {
		if err := catalogService.SeedDemoUsers(); err != nil {
			log.Fatal("failed to seed demo users:", err)
		}
	}

	// Replay awards approved before a crash but never credited.
	if err := progressionService.ReconcileUncredited(); err != nil {
		log.Fatal("failed to reconcile uncredited awards:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Identity sync is optional for local dev; the engine serves seeded
	// users when no profile service is configured.
	if config.Env.SyncServiceURL != "" {
		syncWorker := workers.NewUserSyncWorker(
			engineStore, config.Env.SyncServiceURL, config.Env.SyncServicePath, config.Env.GatewayToken)
		syncWorker.Start(ctx)
	} else {
		utils.Sugar.Warnw("SYNC_SERVICE_URL not set, user sync worker disabled")
	}

	catalogService.StartWindowScheduler()

	// ✅ Setup routes — Gateway auth enforced globally
	handlers.SetupSubmissionRoutes(app, submissionService)
	handlers.SetupProgressionRoutes(app, progressionService, leaderboardService)
	handlers.SetupCatalogRoutes(app, catalogService, recommendService)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"store":  engineStore.Name(),
			"media":  utils.MediaBackendName(),
		})
	})

	go func() {
		if err := app.Listen(":" + config.Env.AppPort); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", config.Env.AppPort)
	log.Printf("✅ Store backend: %s, media backend: %s", engineStore.Name(), utils.MediaBackendName())
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = app.Shutdown()
}
