// Package jofogas adapts the Jófogás classifieds board: an open paginated
// listing with a pagination control and detail pages that embed their data
// in a __NEXT_DATA__ JSON payload.
package jofogas

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/kallodavid/jobradar/internal/record"
	"github.com/kallodavid/jobradar/internal/source"
)

// pageCapacity backs the has-more heuristic only when the pagination control
// is missing from the markup.
const pageCapacity = 50

var lastPageParam = regexp.MustCompile(`[?&]o=(\d+)`)

// Config identifies the board endpoints.
type Config struct {
	BaseDomain     string
	SearchTemplate string // fmt template with one %d for the page number
}

// Site implements source.Site for the Jófogás board.
type Site struct {
	cfg    Config
	logger *zap.Logger
}

// New builds the adapter.
func New(cfg Config, logger *zap.Logger) (*Site, error) {
	if cfg.BaseDomain == "" {
		return nil, fmt.Errorf("jofogas base domain is required")
	}
	if cfg.SearchTemplate == "" {
		cfg.SearchTemplate = cfg.BaseDomain + "/magyarorszag/allasajanlat?pf=b&o=%d"
	}
	if !strings.Contains(cfg.SearchTemplate, "%d") {
		return nil, fmt.Errorf("jofogas search template must contain a %%d page placeholder")
	}
	return &Site{cfg: cfg, logger: logger}, nil
}

// Origin implements source.Site.
func (s *Site) Origin() record.Origin { return record.OriginJofogas }

// ScopeKey is the first-page search URL; the board has one national scope.
func (s *Site) ScopeKey() string { return s.PageURL(1) }

// Login is a no-op; the board needs no session.
func (s *Site) Login(context.Context) error { return nil }

// PageURL implements source.Site.
func (s *Site) PageURL(page int) string {
	return fmt.Sprintf(s.cfg.SearchTemplate, page)
}

// PageCapacity implements source.Site.
func (s *Site) PageCapacity() int { return pageCapacity }

// LastPage resolves the final page number from the pagination control: the
// "last" link's o= parameter when present, otherwise the highest visible
// page number.
func (s *Site) LastPage(firstPage []byte) (int, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(firstPage))
	if err != nil {
		return 0, false
	}

	if href, ok := doc.Find("a.ad-list-pager-item-last").First().Attr("href"); ok {
		if m := lastPageParam.FindStringSubmatch(href); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				return n, true
			}
		}
	}

	last := 0
	doc.Find("a.ad-list-pager-page-number").Each(func(_ int, a *goquery.Selection) {
		if n, err := strconv.Atoi(strings.TrimSpace(a.Text())); err == nil && n > last {
			last = n
		}
	})
	if last > 0 {
		return last, true
	}
	return 0, false
}

// ParseListing extracts one record per result anchor. Only the title and
// link exist on the listing page; everything else comes from enrichment.
func (s *Site) ParseListing(page int, body []byte) ([]record.ScrapedRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &source.ParseError{URL: s.PageURL(page), Reason: err.Error()}
	}

	var records []record.ScrapedRecord
	doc.Find("h3.item-title a.subject").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		link, err := source.ResolveHref(s.cfg.BaseDomain, href)
		if err != nil {
			s.logger.Warn("skipping result with unresolvable href",
				zap.String("href", href), zap.Error(err))
			return
		}
		records = append(records, record.ScrapedRecord{
			Link:     link,
			ScopeKey: s.ScopeKey(),
			Page:     page,
			Title:    strings.TrimSpace(a.Text()),
		})
	})
	return records, nil
}
