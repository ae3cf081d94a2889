package cmd

import (
	"context"
	"fmt"

	"reward-tracker/core/config"
	"reward-tracker/core/crawler"
	"reward-tracker/core/database"
	"reward-tracker/core/extractor"
	"reward-tracker/core/logger"
	"reward-tracker/core/reconcile"
	"reward-tracker/core/storage"
	"reward-tracker/feature/tracker"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var crawlCardID uint

// crawlCmd runs one reconciliation pass without starting the server.
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Run one reconciliation pass over the tracked cards",
	Long: `Fetch every enabled card's reward-terms page, detect changes,
extract reward rules for changed pages, and commit new versions.

Examples:
  # Reconcile all enabled cards
  reward-tracker crawl

  # Reconcile a single card
  reward-tracker crawl --card 7`,
	RunE: runCrawl,
}

func init() {
	crawlCmd.Flags().UintVar(&crawlCardID, "card", 0, "Reconcile only this card id")
	RootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer l.Sync()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	store := tracker.NewStore(db)
	if err := store.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	var archive storage.Client
	if cfg.Storage.Enabled {
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to connect to storage: %w", err)
		}
		if err := storage.EnsureBucket(ctx, client, cfg.Storage); err != nil {
			return fmt.Errorf("failed to prepare archive bucket: %w", err)
		}
		archive = client
	}

	pipeline := reconcile.New(crawler.New(cfg.Crawler), extractor.New(cfg.Extractor), store, l)
	service := tracker.NewService(store, pipeline, l, archive, cfg.Storage.Bucket, cfg.Scheduler.Concurrency)

	if crawlCardID != 0 {
		outcome, err := service.ReconcileCard(ctx, crawlCardID)
		if err != nil {
			return err
		}
		l.Info("Reconciliation finished",
			zap.Uint("card_id", crawlCardID),
			zap.String("outcome", string(outcome.Kind)),
			zap.String("detail", outcome.Detail))
		return nil
	}

	summary, err := service.ReconcileAll(ctx)
	if err != nil {
		return err
	}

	l.Info("Crawl pass finished",
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("no_change", summary.NoChange),
		zap.Int("failed", summary.Failed),
		zap.Int("ai_failed", summary.AIFailed),
		zap.Int("skipped", summary.Skipped))
	return nil
}
