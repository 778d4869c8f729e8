// Package pipeline implements the crawl-reconcile-publish core: identity
// deduplication, set reconciliation against persisted state, selective
// detail enrichment, batched persistence and the closing invariant check.
package pipeline

import "github.com/kallodavid/jobradar/internal/record"

// Dedupe collapses a batch to one record per identity (link), preserving
// arrival order. The first occurrence wins outright; later duplicates from
// pagination overlap or re-listing are dropped, never merged.
func Dedupe(records []record.ScrapedRecord) []record.ScrapedRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]record.ScrapedRecord, 0, len(records))
	for _, rec := range records {
		if rec.Link == "" {
			continue
		}
		if _, dup := seen[rec.Link]; dup {
			continue
		}
		seen[rec.Link] = struct{}{}
		out = append(out, rec)
	}
	return out
}
