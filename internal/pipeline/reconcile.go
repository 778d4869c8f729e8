package pipeline

import "sort"

// Partition is the reconciliation result: three pairwise-disjoint sets over
// record identities. New ∪ Present equals the scraped identities; Present ∪
// Stale equals the persisted active set's keys.
type Partition struct {
	// New are scraped identities absent from the persisted active set.
	New []string
	// Present are identities in both; always classified here even when the
	// scraped content differs from the stored row (content wins at
	// persistence time, not here).
	Present []string
	// Stale are persisted-active identities the crawl no longer observed.
	Stale []string
}

// Reconcile partitions the freshly scraped identity set against a persisted
// active snapshot. Pure set algebra; scrapedIDs is expected deduplicated and
// keeps its arrival order in New/Present, Stale is sorted for determinism.
func Reconcile(scrapedIDs []string, active map[string]int64) Partition {
	var p Partition
	scraped := make(map[string]struct{}, len(scrapedIDs))
	for _, id := range scrapedIDs {
		scraped[id] = struct{}{}
		if _, known := active[id]; known {
			p.Present = append(p.Present, id)
		} else {
			p.New = append(p.New, id)
		}
	}
	for id := range active {
		if _, ok := scraped[id]; !ok {
			p.Stale = append(p.Stale, id)
		}
	}
	sort.Strings(p.Stale)
	return p
}
