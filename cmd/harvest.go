package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kallodavid/jobradar/internal/cache"
	"github.com/kallodavid/jobradar/internal/config"
	"github.com/kallodavid/jobradar/internal/crawl"
	"github.com/kallodavid/jobradar/internal/fetch"
	"github.com/kallodavid/jobradar/internal/ops"
	"github.com/kallodavid/jobradar/internal/pipeline"
	"github.com/kallodavid/jobradar/internal/report"
	"github.com/kallodavid/jobradar/internal/source"
	"github.com/kallodavid/jobradar/internal/source/jofogas"
	"github.com/kallodavid/jobradar/internal/source/vmp"
	"github.com/kallodavid/jobradar/internal/store"
)

// newHarvestCmd creates the 'harvest' subcommand: one full
// crawl-reconcile-publish pass over every enabled source.
func newHarvestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "harvest",
		Short: "Crawls enabled sources and reconciles the listing database",
		Long: `Runs one complete pass per enabled source: crawl the listing pages,
reconcile the scraped set against the database's active records, enrich
and persist new listings, retire vanished ones, then render and deliver
the run summary.`,
		RunE: runHarvest,
	}
}

func runHarvest(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if err := cfg.ValidateHarvest(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	ctx := cmd.Context()
	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))
	logger.Info("harvest starting")

	opsSrv := ops.New(cfg.Ops.Addr, logger)
	opsSrv.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = opsSrv.Shutdown(shutdownCtx)
	}()

	pageCache, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("init page cache: %w", err)
	}
	client, err := fetch.New(cfg.Fetch, pageCache, logger)
	if err != nil {
		return fmt.Errorf("init http client: %w", err)
	}

	db, err := store.New(ctx, cfg.DB, logger)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	sites, err := buildSites(cfg, client, logger)
	if err != nil {
		return err
	}

	listPause := crawl.RandomPauser{Min: cfg.Crawl.PauseMin, Max: cfg.Crawl.PauseMax}
	detailPause := crawl.RandomPauser{Min: cfg.Crawl.DetailPauseMin, Max: cfg.Crawl.DetailPauseMax}

	var summaries []pipeline.Summary
	var failed []string
	for _, site := range sites {
		srcLogger := logger.With(zap.String("origin", string(site.Origin())))
		crawler := crawl.New(site, client, listPause, crawl.Config{MaxPages: cfg.Crawl.MaxPages}, srcLogger)
		enricher := pipeline.NewEnricher(site, client, detailPause, srcLogger)
		runner := pipeline.NewRunner(site, crawler, enricher, db, srcLogger)

		sum, err := runner.Run(ctx)
		if err != nil {
			srcLogger.Error("source run failed", zap.Error(err))
			failed = append(failed, string(site.Origin()))
			continue
		}
		summaries = append(summaries, sum)
	}

	rep := report.Report{RunID: runID, FinishedAt: time.Now(), Summaries: summaries}
	body, err := report.Render(rep)
	if err != nil {
		return fmt.Errorf("render summary: %w", err)
	}
	cmd.Println(body)

	mailer := report.NewMailer(cfg.Mail, logger)
	if err := mailer.Send(ctx, rep); err != nil {
		// The database work is committed; a lost mail is an annoyance,
		// not a failed run.
		logger.Warn("summary mail delivery failed", zap.Error(err))
	}

	if len(failed) > 0 {
		return fmt.Errorf("sources failed: %v", failed)
	}
	logger.Info("harvest finished", zap.Int("sources", len(summaries)))
	return nil
}

// buildSites constructs the enabled source adapters in a fixed order.
func buildSites(cfg config.Config, client *fetch.Client, logger *zap.Logger) ([]source.Site, error) {
	var sites []source.Site
	if cfg.VMP.Enabled {
		site, err := vmp.New(cfg.VMP.Config, client, logger)
		if err != nil {
			return nil, fmt.Errorf("init vmp source: %w", err)
		}
		sites = append(sites, site)
	}
	if cfg.Jofogas.Enabled {
		site, err := jofogas.New(cfg.Jofogas.Config, logger)
		if err != nil {
			return nil, fmt.Errorf("init jofogas source: %w", err)
		}
		sites = append(sites, site)
	}
	return sites, nil
}
