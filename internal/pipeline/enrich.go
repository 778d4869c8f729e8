package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/kallodavid/jobradar/internal/crawl"
	"github.com/kallodavid/jobradar/internal/fetch"
	"github.com/kallodavid/jobradar/internal/record"
	"github.com/kallodavid/jobradar/internal/source"
)

// DetailFetcher is the slice of the HTTP client enrichment needs. The cached
// path lets a staged page satisfy the fetch without a network round trip.
type DetailFetcher interface {
	GetCached(ctx context.Context, url string) (fetch.Response, error)
}

// Enricher applies the detail-page extractor to records. It is only ever fed
// the new partition: repeat visibility checks must not re-scrape detail
// pages already known, both for cost and for politeness.
type Enricher struct {
	site    source.Site
	fetcher DetailFetcher
	pause   crawl.Pauser
	logger  *zap.Logger
}

// NewEnricher constructs an Enricher.
func NewEnricher(site source.Site, fetcher DetailFetcher, pause crawl.Pauser, logger *zap.Logger) *Enricher {
	return &Enricher{site: site, fetcher: fetcher, pause: pause, logger: logger}
}

// Enrich fetches and merges detail fields in place, sequentially with a
// polite pause before each fetch. A failed fetch or parse keeps the
// listing-only record (detail fields stay unset) and counts as a failure;
// it never aborts the batch.
func (e *Enricher) Enrich(ctx context.Context, records []record.ScrapedRecord) (failed int) {
	for i := range records {
		if err := ctx.Err(); err != nil {
			failed += len(records) - i
			return failed
		}
		e.pause.Pause(ctx)

		rec := &records[i]
		resp, err := e.fetcher.GetCached(ctx, rec.Link)
		if err != nil {
			e.logger.Warn("detail fetch failed, keeping listing-only record",
				zap.String("link", rec.Link), zap.Error(err))
			failed++
			continue
		}
		if err := e.site.EnrichDetail(rec, resp.Body); err != nil {
			e.logger.Warn("detail parse failed, keeping listing-only record",
				zap.String("link", rec.Link), zap.Error(err))
			failed++
			continue
		}
		e.logger.Info("detail enriched",
			zap.String("link", rec.Link),
			zap.Int("done", i+1),
			zap.Int("total", len(records)),
		)
	}
	return failed
}
