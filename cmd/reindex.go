package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kallodavid/jobradar/internal/index"
	"github.com/kallodavid/jobradar/internal/store"
)

// newReindexCmd creates the 'reindex' subcommand: a destructive search-index
// rebuild from the listing database.
func newReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Drops and rebuilds the search index from the listing database",
		Long: `Deletes the configured search index, recreates it with the listing
mapping (including the geo_point location field) and bulk-loads every
record whose place resolves to known coordinates.`,
		RunE: runReindex,
	}
}

func runReindex(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	db, err := store.New(ctx, cfg.DB, logger)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	rebuilder, err := index.New(cfg.Index, db, logger)
	if err != nil {
		return fmt.Errorf("init index rebuilder: %w", err)
	}

	stats, err := rebuilder.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	logger.Info("reindex finished",
		zap.Int("indexed", stats.Indexed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("batches", stats.Batches),
	)
	return nil
}
