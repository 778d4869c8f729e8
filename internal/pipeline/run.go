package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kallodavid/jobradar/internal/record"
	"github.com/kallodavid/jobradar/internal/source"
)

// Store is the persistence surface the pipeline drives. Implemented by the
// Postgres store; narrowed here so tests can swap in a fake.
type Store interface {
	ActiveSet(ctx context.Context, scopeKey string) (map[string]int64, error)
	GlobalActiveSet(ctx context.Context) (map[string]int64, error)
	ActiveCount(ctx context.Context, scopeKey string) (int, error)
	UpsertBatch(ctx context.Context, records []record.CanonicalRecord) (ok, failed int, err error)
	Touch(ctx context.Context, links []string) (int, error)
	Deactivate(ctx context.Context, links []string, scopeKey string) (int, error)
}

// Crawling is the listing-walk surface the pipeline drives.
type Crawling interface {
	Run(ctx context.Context) ([]record.ScrapedRecord, int, error)
}

// Enriching is the detail-enrichment surface the pipeline drives.
type Enriching interface {
	Enrich(ctx context.Context, records []record.ScrapedRecord) (failed int)
}

// Summary is the per-run outcome handed to reporting. ActiveExpected applies
// the set-algebra prediction activeBefore - stale + new; Drift is the
// measured deviation from it and zero on a healthy run.
type Summary struct {
	Origin       string
	ScopeKey     string
	StartedAt    time.Time
	Duration     time.Duration
	PagesVisited int

	Scraped int
	Deduped int

	New     int
	Present int
	Stale   int

	Enriched     int
	EnrichFailed int

	Persisted      int
	PersistFailed  int
	Touched        int
	Deactivated    int
	ActiveBefore   int
	ActiveAfter    int
	ActiveExpected int
	Drift          int
}

// Runner wires one source's full crawl-reconcile-publish pass.
type Runner struct {
	site     source.Site
	crawler  Crawling
	enricher Enriching
	store    Store
	logger   *zap.Logger
	now      func() time.Time
}

// NewRunner constructs a Runner for one source.
func NewRunner(site source.Site, crawler Crawling, enricher Enriching, store Store, logger *zap.Logger) *Runner {
	return &Runner{
		site:     site,
		crawler:  crawler,
		enricher: enricher,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// Run executes one complete pass for the runner's source:
//
//	login -> snapshot active state -> crawl -> dedupe -> reconcile ->
//	touch present -> deactivate stale -> enrich new -> upsert new ->
//	re-count and check the invariant.
//
// Novelty is judged against the global active set so a record surfacing
// under a second scope is not re-treated as new; staleness is judged only
// against this scope's active set so one scope's run never deactivates
// another's rows. Invariant drift is reported, never fatal: the summary is
// the place a partial or inconsistent run becomes visible.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	start := r.now()
	sum := Summary{
		Origin:    string(r.site.Origin()),
		ScopeKey:  r.site.ScopeKey(),
		StartedAt: start,
	}

	if err := r.site.Login(ctx); err != nil {
		return sum, fmt.Errorf("login: %w", err)
	}

	activeBefore, err := r.store.ActiveCount(ctx, sum.ScopeKey)
	if err != nil {
		return sum, fmt.Errorf("count active before run: %w", err)
	}
	sum.ActiveBefore = activeBefore

	scopeActive, err := r.store.ActiveSet(ctx, sum.ScopeKey)
	if err != nil {
		return sum, fmt.Errorf("load scope active set: %w", err)
	}
	globalActive, err := r.store.GlobalActiveSet(ctx)
	if err != nil {
		return sum, fmt.Errorf("load global active set: %w", err)
	}

	scraped, pages, err := r.crawler.Run(ctx)
	if err != nil {
		return sum, fmt.Errorf("crawl listing: %w", err)
	}
	sum.PagesVisited = pages
	sum.Scraped = len(scraped)

	deduped := Dedupe(scraped)
	sum.Deduped = len(deduped)

	ids := make([]string, len(deduped))
	byID := make(map[string]int, len(deduped))
	for i, rec := range deduped {
		ids[i] = rec.Link
		byID[rec.Link] = i
	}

	// Novelty against the global set, staleness against the scope's own.
	globalPart := Reconcile(ids, globalActive)
	scopePart := Reconcile(ids, scopeActive)
	sum.New = len(globalPart.New)
	sum.Present = len(globalPart.Present)
	sum.Stale = len(scopePart.Stale)

	r.logger.Info("reconciled scraped set",
		zap.String("scope", sum.ScopeKey),
		zap.Int("scraped", sum.Deduped),
		zap.Int("new", sum.New),
		zap.Int("present", sum.Present),
		zap.Int("stale", sum.Stale),
	)

	touched, err := r.store.Touch(ctx, globalPart.Present)
	if err != nil {
		return sum, fmt.Errorf("touch present records: %w", err)
	}
	sum.Touched = touched

	deactivated, err := r.store.Deactivate(ctx, scopePart.Stale, sum.ScopeKey)
	if err != nil {
		return sum, fmt.Errorf("deactivate stale records: %w", err)
	}
	sum.Deactivated = deactivated

	fresh := make([]record.ScrapedRecord, 0, len(globalPart.New))
	for _, id := range globalPart.New {
		fresh = append(fresh, deduped[byID[id]])
	}
	sum.EnrichFailed = r.enricher.Enrich(ctx, fresh)
	sum.Enriched = len(fresh) - sum.EnrichFailed

	canonical := make([]record.CanonicalRecord, 0, len(fresh))
	for _, rec := range fresh {
		canonical = append(canonical, record.Canonical(rec, r.site.Origin()))
	}
	persisted, persistFailed, err := r.store.UpsertBatch(ctx, canonical)
	if err != nil {
		return sum, fmt.Errorf("persist new records: %w", err)
	}
	sum.Persisted = persisted
	sum.PersistFailed = persistFailed

	activeAfter, err := r.store.ActiveCount(ctx, sum.ScopeKey)
	if err != nil {
		return sum, fmt.Errorf("count active after run: %w", err)
	}
	sum.ActiveAfter = activeAfter
	sum.ActiveExpected = sum.ActiveBefore - sum.Stale + sum.New
	sum.Drift = sum.ActiveAfter - sum.ActiveExpected
	if sum.Drift != 0 {
		r.logger.Warn("active-count invariant drifted",
			zap.String("scope", sum.ScopeKey),
			zap.Int("expected", sum.ActiveExpected),
			zap.Int("actual", sum.ActiveAfter),
			zap.Int("drift", sum.Drift),
		)
	}

	sum.Duration = r.now().Sub(start)
	r.logger.Info("run finished",
		zap.String("origin", sum.Origin),
		zap.Duration("duration", sum.Duration),
		zap.Int("persisted", sum.Persisted),
		zap.Int("deactivated", sum.Deactivated),
	)
	return sum, nil
}
