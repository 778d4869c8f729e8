package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kallodavid/jobradar/internal/record"
	"github.com/kallodavid/jobradar/internal/source"
)

type fakeSite struct {
	loginErr  error
	detailErr error
	enriched  []string
}

func (f *fakeSite) Origin() record.Origin { return "testsite" }
func (f *fakeSite) ScopeKey() string      { return "scope-1" }
func (f *fakeSite) Login(context.Context) error {
	return f.loginErr
}
func (f *fakeSite) PageURL(page int) string { return "https://example.com/list" }
func (f *fakeSite) PageCapacity() int       { return 40 }
func (f *fakeSite) LastPage([]byte) (int, bool) {
	return 0, false
}
func (f *fakeSite) ParseListing(int, []byte) ([]record.ScrapedRecord, error) {
	return nil, nil
}
func (f *fakeSite) EnrichDetail(rec *record.ScrapedRecord, _ []byte) error {
	if f.detailErr != nil {
		return f.detailErr
	}
	f.enriched = append(f.enriched, rec.Link)
	rec.EmployerName = "Acme Kft."
	return nil
}

type fakeCrawler struct {
	records []record.ScrapedRecord
	pages   int
	err     error
}

func (f *fakeCrawler) Run(context.Context) ([]record.ScrapedRecord, int, error) {
	return f.records, f.pages, f.err
}

type fakeEnricher struct {
	got    []string
	failed int
}

func (f *fakeEnricher) Enrich(_ context.Context, records []record.ScrapedRecord) int {
	for _, r := range records {
		f.got = append(f.got, r.Link)
	}
	return f.failed
}

type fakeStore struct {
	scopeActive  map[string]int64
	globalActive map[string]int64
	countBefore  int
	countAfter   int

	counted     int
	touched     []string
	deactivated []string
	deactScope  string
	upserted    []record.CanonicalRecord
}

func (f *fakeStore) ActiveSet(_ context.Context, scope string) (map[string]int64, error) {
	return f.scopeActive, nil
}
func (f *fakeStore) GlobalActiveSet(context.Context) (map[string]int64, error) {
	return f.globalActive, nil
}
func (f *fakeStore) ActiveCount(context.Context, string) (int, error) {
	f.counted++
	if f.counted == 1 {
		return f.countBefore, nil
	}
	return f.countAfter, nil
}
func (f *fakeStore) UpsertBatch(_ context.Context, records []record.CanonicalRecord) (int, int, error) {
	f.upserted = append(f.upserted, records...)
	return len(records), 0, nil
}
func (f *fakeStore) Touch(_ context.Context, links []string) (int, error) {
	f.touched = links
	return len(links), nil
}
func (f *fakeStore) Deactivate(_ context.Context, links []string, scope string) (int, error) {
	f.deactivated = links
	f.deactScope = scope
	return len(links), nil
}

func scraped(links ...string) []record.ScrapedRecord {
	out := make([]record.ScrapedRecord, len(links))
	for i, l := range links {
		out[i] = record.ScrapedRecord{Link: l, ScopeKey: "scope-1", Title: "t"}
	}
	return out
}

func TestRunnerFullPass(t *testing.T) {
	t.Parallel()

	// Scope holds {b, c}; another scope also holds {x}. Crawl sees {a, b}:
	// a is new, b present, c stale. x must stay untouched.
	st := &fakeStore{
		scopeActive:  map[string]int64{"b": 1, "c": 2},
		globalActive: map[string]int64{"b": 1, "c": 2, "x": 3},
		countBefore:  2,
		countAfter:   2,
	}
	enricher := &fakeEnricher{}
	runner := NewRunner(&fakeSite{}, &fakeCrawler{records: scraped("a", "b"), pages: 1}, enricher, st, zap.NewNop())

	sum, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.New)
	assert.Equal(t, 1, sum.Present)
	assert.Equal(t, 1, sum.Stale)

	assert.Equal(t, []string{"b"}, st.touched)
	assert.Equal(t, []string{"c"}, st.deactivated)
	assert.Equal(t, "scope-1", st.deactScope)

	assert.Equal(t, []string{"a"}, enricher.got, "only new records are enriched")
	require.Len(t, st.upserted, 1)
	assert.Equal(t, "a", st.upserted[0].Link)
	assert.Equal(t, record.Origin("testsite"), st.upserted[0].Origin)
	assert.True(t, st.upserted[0].Active)

	// expected = before - stale + new = 2 - 1 + 1 = 2
	assert.Equal(t, 2, sum.ActiveExpected)
	assert.Zero(t, sum.Drift)
}

func TestRunnerCrossScopeRecordIsNotNew(t *testing.T) {
	t.Parallel()

	// "a" is active under another scope. It must be touched, not
	// re-enriched and re-inserted.
	st := &fakeStore{
		scopeActive:  map[string]int64{},
		globalActive: map[string]int64{"a": 9},
		countBefore:  0,
		countAfter:   0,
	}
	enricher := &fakeEnricher{}
	runner := NewRunner(&fakeSite{}, &fakeCrawler{records: scraped("a"), pages: 1}, enricher, st, zap.NewNop())

	sum, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, sum.New)
	assert.Equal(t, 1, sum.Present)
	assert.Empty(t, enricher.got)
	assert.Empty(t, st.upserted)
	assert.Equal(t, []string{"a"}, st.touched)
}

func TestRunnerReportsDriftWithoutFailing(t *testing.T) {
	t.Parallel()

	st := &fakeStore{
		scopeActive:  map[string]int64{},
		globalActive: map[string]int64{},
		countBefore:  0,
		countAfter:   3,
	}
	runner := NewRunner(&fakeSite{}, &fakeCrawler{records: scraped("a"), pages: 1}, &fakeEnricher{}, st, zap.NewNop())

	sum, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.ActiveExpected)
	assert.Equal(t, 2, sum.Drift)
}

func TestRunnerLoginFailureIsFatal(t *testing.T) {
	t.Parallel()

	site := &fakeSite{loginErr: &source.AuthError{Reason: "rejected"}}
	runner := NewRunner(site, &fakeCrawler{}, &fakeEnricher{}, &fakeStore{}, zap.NewNop())

	_, err := runner.Run(context.Background())
	require.Error(t, err)
	var authErr *source.AuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestRunnerCrawlFailureIsFatal(t *testing.T) {
	t.Parallel()

	runner := NewRunner(&fakeSite{}, &fakeCrawler{err: errors.New("first page down")}, &fakeEnricher{}, &fakeStore{}, zap.NewNop())

	_, err := runner.Run(context.Background())
	require.ErrorContains(t, err, "crawl listing")
}

func TestRunnerDedupesBeforeReconciling(t *testing.T) {
	t.Parallel()

	st := &fakeStore{
		scopeActive:  map[string]int64{},
		globalActive: map[string]int64{},
		countBefore:  0,
		countAfter:   1,
	}
	runner := NewRunner(&fakeSite{}, &fakeCrawler{records: scraped("a", "a", "a"), pages: 2}, &fakeEnricher{}, st, zap.NewNop())

	sum, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Scraped)
	assert.Equal(t, 1, sum.Deduped)
	assert.Equal(t, 1, sum.New)
	require.Len(t, st.upserted, 1)
}
