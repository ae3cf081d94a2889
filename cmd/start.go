package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reward-tracker/core/config"
	"reward-tracker/core/crawler"
	"reward-tracker/core/database"
	"reward-tracker/core/extractor"
	"reward-tracker/core/loader"
	"reward-tracker/core/logger"
	"reward-tracker/core/middleware/auth"
	"reward-tracker/core/middleware/rayid"
	"reward-tracker/core/reconcile"
	"reward-tracker/core/storage"

	"reward-tracker/feature/tracker"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "reward-tracker/docs/swagger"
)

// @title Reward Tracker API
// @version 1.0
// @description API for tracking credit card reward-terms pages.
// @host localhost:8080
// @BasePath /

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the reward tracker server",
	Long:  `Starts the HTTP server, the reconciliation scheduler, and all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 3. Connect to Database
		db, err := database.Connect(cfg.Database)
		if err != nil {
			logg.Fatal("Database connection failed", zap.Error(err))
		}

		store := tracker.NewStore(db)
		if err := store.Migrate(); err != nil {
			logg.Fatal("Database migration failed", zap.Error(err))
		}

		// 4. Initialize Archive Storage (Optional)
		var archive storage.Client
		if cfg.Storage.Enabled {
			client, err := storage.NewClient(cfg.Storage)
			if err != nil {
				logg.Fatal("Failed to create storage client", zap.Error(err))
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := storage.EnsureBucket(ctx, client, cfg.Storage); err != nil {
				cancel()
				logg.Fatal("Failed to prepare archive bucket", zap.Error(err))
			}
			cancel()
			archive = client
			logg.Info("Raw-content archive enabled", zap.String("bucket", cfg.Storage.Bucket))
		}

		// 5. Build the reconciliation pipeline
		fetcher := crawler.New(cfg.Crawler)
		extract := extractor.New(cfg.Extractor)
		pipeline := reconcile.New(fetcher, extract, store, logg)
		service := tracker.NewService(store, pipeline, logg, archive, cfg.Storage.Bucket, cfg.Scheduler.Concurrency)

		// 6. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We will log our own startup message
		})

		// 7. Initialize Feature Loader
		mgr := loader.NewManager()
		mgr.Register(tracker.NewFeature(service))

		// Middleware Registration
		// 1. RayID (Must be first to trace everything)
		app.Use(rayid.New())

		// 2. Logging Middleware (Custom to use Zap + RayID)
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// 2.5 Swagger Documentation (Public)
		app.Get("/swagger/*", swagger.HandlerDefault)

		// 3. Auth (Protect API)
		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		// 8. Load Features
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 9. Scheduler
		scheduler := cron.New()
		if cfg.Scheduler.Enabled {
			_, err := scheduler.AddFunc(cfg.Scheduler.Cron, func() {
				summary, err := service.ReconcileAll(context.Background())
				if err != nil {
					logg.Error("Scheduled reconciliation failed", zap.Error(err))
					return
				}
				logg.Info("Scheduled reconciliation finished",
					zap.Int("total", summary.Total),
					zap.Int("succeeded", summary.Succeeded))
			})
			if err != nil {
				logg.Fatal("Invalid scheduler cron expression",
					zap.String("cron", cfg.Scheduler.Cron), zap.Error(err))
			}
			scheduler.Start()
			logg.Info("Scheduler started", zap.String("cron", cfg.Scheduler.Cron))
		}

		// 10. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(cfg.Server.Addr()); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 11. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		<-scheduler.Stop().Done()
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
