// Package crawl drives pagination over a source's listing endpoint,
// yielding the full ordered-by-arrival scraped set for one scope.
package crawl

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kallodavid/jobradar/internal/fetch"
	"github.com/kallodavid/jobradar/internal/metrics"
	"github.com/kallodavid/jobradar/internal/record"
	"github.com/kallodavid/jobradar/internal/source"
)

// defaultMaxPages bounds the cursor against a source whose end signal
// misbehaves.
const defaultMaxPages = 500

// Fetcher is the slice of the HTTP client the crawler needs.
type Fetcher interface {
	Get(ctx context.Context, url string) (fetch.Response, error)
}

// Config controls crawl behavior.
type Config struct {
	MaxPages int
}

// Crawler walks a source's listing pages. Two discovery modes: when the
// first page's markup exposes a pagination control, the page range is
// resolved once and iterated; otherwise the crawler probes with the
// rows>=capacity heuristic. Both modes produce the same result shape.
type Crawler struct {
	site     source.Site
	fetcher  Fetcher
	pause    Pauser
	maxPages int
	logger   *zap.Logger
}

// New constructs a Crawler.
func New(site source.Site, fetcher Fetcher, pause Pauser, cfg Config, logger *zap.Logger) *Crawler {
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	return &Crawler{
		site:     site,
		fetcher:  fetcher,
		pause:    pause,
		maxPages: maxPages,
		logger:   logger,
	}
}

// Run crawls the whole scope. An unreachable first page is fatal (it defines
// the scope); an unreachable later page stops the crawl early with whatever
// was collected, since a partial set still reconciles safely. Returns the
// scraped records and the number of pages visited.
func (c *Crawler) Run(ctx context.Context) ([]record.ScrapedRecord, int, error) {
	firstURL := c.site.PageURL(1)
	resp, err := c.fetcher.Get(ctx, firstURL)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch first listing page: %w", err)
	}

	records, err := c.site.ParseListing(1, resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("parse first listing page: %w", err)
	}
	metrics.TotalPagesScraped.Inc()
	c.logger.Info("listing page scraped", zap.Int("page", 1), zap.Int("rows", len(records)))

	if last, ok := c.site.LastPage(resp.Body); ok {
		rest, pages := c.crawlRange(ctx, 2, last)
		return append(records, rest...), pages + 1, nil
	}

	if len(records) < c.site.PageCapacity() {
		return records, 1, nil
	}
	rest, pages := c.crawlHeuristic(ctx, 2)
	return append(records, rest...), pages + 1, nil
}

// crawlRange iterates a resolved page range.
func (c *Crawler) crawlRange(ctx context.Context, from, to int) ([]record.ScrapedRecord, int) {
	if to > c.maxPages {
		c.logger.Warn("clamping resolved last page", zap.Int("last", to), zap.Int("max", c.maxPages))
		to = c.maxPages
	}
	var out []record.ScrapedRecord
	pages := 0
	for page := from; page <= to; page++ {
		recs, ok := c.fetchPage(ctx, page)
		if !ok {
			break
		}
		pages++
		out = append(out, recs...)
	}
	return out, pages
}

// crawlHeuristic probes pages until one comes back below capacity or empty.
func (c *Crawler) crawlHeuristic(ctx context.Context, from int) ([]record.ScrapedRecord, int) {
	var out []record.ScrapedRecord
	pages := 0
	for page := from; page <= c.maxPages; page++ {
		recs, ok := c.fetchPage(ctx, page)
		if !ok {
			break
		}
		pages++
		out = append(out, recs...)
		if len(recs) == 0 || len(recs) < c.site.PageCapacity() {
			break
		}
	}
	return out, pages
}

// fetchPage pauses politely, fetches and parses one page. ok=false stops the
// crawl; page-level failures reduce coverage instead of aborting the run.
func (c *Crawler) fetchPage(ctx context.Context, page int) ([]record.ScrapedRecord, bool) {
	if err := ctx.Err(); err != nil {
		return nil, false
	}
	c.pause.Pause(ctx)

	url := c.site.PageURL(page)
	resp, err := c.fetcher.Get(ctx, url)
	if err != nil {
		c.logger.Warn("listing page unreachable, stopping crawl early",
			zap.Int("page", page), zap.String("url", url), zap.Error(err))
		return nil, false
	}
	recs, err := c.site.ParseListing(page, resp.Body)
	if err != nil {
		c.logger.Warn("listing page unparseable, stopping crawl early",
			zap.Int("page", page), zap.Error(err))
		return nil, false
	}
	metrics.TotalPagesScraped.Inc()
	c.logger.Info("listing page scraped", zap.Int("page", page), zap.Int("rows", len(recs)))
	return recs, true
}
