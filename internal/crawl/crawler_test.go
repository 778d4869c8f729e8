package crawl

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kallodavid/jobradar/internal/fetch"
	"github.com/kallodavid/jobradar/internal/record"
)

// pagedSite serves a fixed row count per page.
type pagedSite struct {
	capacity int
	lastPage int
	hasLast  bool
	rows     map[int]int
}

func (s *pagedSite) Origin() record.Origin       { return "testsite" }
func (s *pagedSite) ScopeKey() string            { return "scope-1" }
func (s *pagedSite) Login(context.Context) error { return nil }
func (s *pagedSite) PageURL(page int) string {
	return fmt.Sprintf("https://example.com/list?page=%d", page)
}
func (s *pagedSite) PageCapacity() int { return s.capacity }
func (s *pagedSite) LastPage([]byte) (int, bool) {
	return s.lastPage, s.hasLast
}
func (s *pagedSite) ParseListing(page int, _ []byte) ([]record.ScrapedRecord, error) {
	n := s.rows[page]
	out := make([]record.ScrapedRecord, n)
	for i := range out {
		out[i] = record.ScrapedRecord{
			Link: fmt.Sprintf("https://example.com/job/%d-%d", page, i),
			Page: page,
		}
	}
	return out, nil
}
func (s *pagedSite) EnrichDetail(*record.ScrapedRecord, []byte) error { return nil }

type fakeFetcher struct {
	urls   []string
	errFor map[string]error
}

func (f *fakeFetcher) Get(_ context.Context, url string) (fetch.Response, error) {
	f.urls = append(f.urls, url)
	if err, ok := f.errFor[url]; ok {
		return fetch.Response{}, err
	}
	return fetch.Response{Body: []byte("<html></html>"), StatusCode: 200, FinalURL: url}, nil
}

func TestRunWalksResolvedPageRange(t *testing.T) {
	t.Parallel()

	site := &pagedSite{capacity: 40, lastPage: 3, hasLast: true, rows: map[int]int{1: 40, 2: 40, 3: 12}}
	fetcher := &fakeFetcher{}
	c := New(site, fetcher, NoPause{}, Config{}, zap.NewNop())

	records, pages, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, pages)
	assert.Len(t, records, 92)
	assert.Len(t, fetcher.urls, 3, "a resolved range must not probe past the last page")
}

func TestRunStopsOnShortFirstPage(t *testing.T) {
	t.Parallel()

	site := &pagedSite{capacity: 40, rows: map[int]int{1: 17}}
	fetcher := &fakeFetcher{}
	c := New(site, fetcher, NoPause{}, Config{}, zap.NewNop())

	records, pages, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pages)
	assert.Len(t, records, 17)
	assert.Len(t, fetcher.urls, 1)
}

func TestRunHeuristicStopsBelowCapacity(t *testing.T) {
	t.Parallel()

	site := &pagedSite{capacity: 40, rows: map[int]int{1: 40, 2: 40, 3: 5}}
	fetcher := &fakeFetcher{}
	c := New(site, fetcher, NoPause{}, Config{}, zap.NewNop())

	records, pages, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, pages)
	assert.Len(t, records, 85)
}

func TestRunHeuristicProbesPastExactlyFullPage(t *testing.T) {
	t.Parallel()

	// The result set ends exactly on a page boundary: the crawler cannot
	// know that without one extra, empty probe.
	site := &pagedSite{capacity: 40, rows: map[int]int{1: 40, 2: 40, 3: 0}}
	fetcher := &fakeFetcher{}
	c := New(site, fetcher, NoPause{}, Config{}, zap.NewNop())

	records, pages, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, pages)
	assert.Len(t, records, 80)
	assert.Len(t, fetcher.urls, 3, "one empty probe past the boundary, then stop")
}

func TestRunFirstPageFailureIsFatal(t *testing.T) {
	t.Parallel()

	site := &pagedSite{capacity: 40, rows: map[int]int{}}
	fetcher := &fakeFetcher{errFor: map[string]error{
		"https://example.com/list?page=1": errors.New("connection refused"),
	}}
	c := New(site, fetcher, NoPause{}, Config{}, zap.NewNop())

	_, _, err := c.Run(context.Background())
	require.ErrorContains(t, err, "fetch first listing page")
}

func TestRunLaterPageFailureStopsEarly(t *testing.T) {
	t.Parallel()

	site := &pagedSite{capacity: 40, lastPage: 4, hasLast: true, rows: map[int]int{1: 40, 2: 40, 3: 40, 4: 40}}
	fetcher := &fakeFetcher{errFor: map[string]error{
		"https://example.com/list?page=3": errors.New("gateway timeout"),
	}}
	c := New(site, fetcher, NoPause{}, Config{}, zap.NewNop())

	records, pages, err := c.Run(context.Background())
	require.NoError(t, err, "a partial crawl still reconciles safely")
	assert.Equal(t, 2, pages)
	assert.Len(t, records, 80)
}

func TestRunClampsRunawayLastPage(t *testing.T) {
	t.Parallel()

	site := &pagedSite{capacity: 40, lastPage: 9999, hasLast: true, rows: map[int]int{1: 40, 2: 40, 3: 40}}
	fetcher := &fakeFetcher{}
	c := New(site, fetcher, NoPause{}, Config{MaxPages: 3}, zap.NewNop())

	_, pages, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, pages)
}
