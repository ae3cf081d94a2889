package cmd

import (
	"context"
	"fmt"

	"reward-tracker/core/config"
	"reward-tracker/core/database"
	"reward-tracker/core/logger"
	"reward-tracker/feature/tracker"

	"github.com/spf13/cobra"
)

var seedFilePath string

// seedCmd loads banks and cards from a YAML file into the database.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed tracked banks and cards from a YAML file",
	Long: `Load bank and card definitions from a YAML file.
Seeding is idempotent: existing banks and cards are left untouched.

Example:
  reward-tracker seed --file cards.yaml`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedFilePath, "file", "cards.yaml", "Path to the seed YAML file")
	RootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
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

	seed, err := tracker.LoadSeedFile(seedFilePath)
	if err != nil {
		return err
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	store := tracker.NewStore(db)
	if err := store.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	service := tracker.NewService(store, nil, l, nil, "", 1)
	if err := service.ApplySeed(ctx, seed); err != nil {
		return fmt.Errorf("failed to apply seed: %w", err)
	}

	l.Info("Seed applied")
	return nil
}
