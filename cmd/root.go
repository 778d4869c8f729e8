// Package cmd defines and implements the CLI commands for the jobradar
// executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kallodavid/jobradar/internal/config"
	"github.com/kallodavid/jobradar/internal/logging"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobradar",
		Short: "Harvests job listings and keeps the listing database current.",
		Long: `jobradar crawls configured job-listing sources, reconciles what it
finds against the listing database (activating new records, refreshing
known ones, retiring vanished ones) and can rebuild the search index
from the listing database.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./jobradar.yaml)")

	cmd.AddCommand(newHarvestCmd())
	cmd.AddCommand(newReindexCmd())

	return cmd
}

// setup loads config and builds the process logger, the shared preamble of
// every subcommand.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

// Execute is the main entry point. An interrupt cancels the command context
// so in-flight pauses and fetches unwind promptly.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
