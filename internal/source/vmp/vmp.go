// Package vmp adapts the VMP labor-market portal: a login-gated search with
// tabular listing rows and label/value detail tables.
package vmp

import (
	"bytes"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/kallodavid/jobradar/internal/fetch"
	"github.com/kallodavid/jobradar/internal/record"
	"github.com/kallodavid/jobradar/internal/source"
)

// pageCapacity is the observed maximum rows per listing page. Reaching it is
// the heuristic "probably has a next page" signal; the portal exposes no
// reliable pagination control.
const pageCapacity = 40

// Config identifies the portal endpoints and the search scope.
type Config struct {
	BaseURL        string
	LoginPath      string
	SearchPath     string
	Username       string
	Password       string
	Keyword        string
	Category       string
	Location       string
	Radius         string
	EmploymentType string
}

// Site implements source.Site for the VMP portal.
type Site struct {
	cfg    Config
	client *fetch.Client
	logger *zap.Logger
}

// New builds the adapter. Location is required; it defines the scope.
func New(cfg Config, client *fetch.Client, logger *zap.Logger) (*Site, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("vmp base url is required")
	}
	if cfg.Location == "" {
		return nil, fmt.Errorf("vmp location is required")
	}
	if cfg.Radius == "" {
		cfg.Radius = "50"
	}
	if cfg.EmploymentType == "" {
		cfg.EmploymentType = "3"
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/belepes"
	}
	if cfg.SearchPath == "" {
		cfg.SearchPath = "/allas/talalatok"
	}
	return &Site{cfg: cfg, client: client, logger: logger}, nil
}

// Origin implements source.Site.
func (s *Site) Origin() record.Origin { return record.OriginVMP }

// ScopeKey is the search URL without the page cursor, matching the scope
// rows are keyed by in the store.
func (s *Site) ScopeKey() string {
	return s.searchURL(0)
}

// PageURL implements source.Site.
func (s *Site) PageURL(page int) string {
	return s.searchURL(page)
}

// PageCapacity implements source.Site.
func (s *Site) PageCapacity() int { return pageCapacity }

// LastPage always reports no pagination control; the crawler probes with the
// capacity heuristic instead.
func (s *Site) LastPage([]byte) (int, bool) { return 0, false }

// ParseListing extracts one record per table row. Rows with fewer than four
// cells are skipped.
func (s *Site) ParseListing(page int, body []byte) ([]record.ScrapedRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &source.ParseError{URL: s.PageURL(page), Reason: err.Error()}
	}

	var records []record.ScrapedRecord
	doc.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}
		rec := record.ScrapedRecord{
			ScopeKey: s.ScopeKey(),
			Page:     page,
			Title:    strings.TrimSpace(cells.Eq(0).Text()),
			Category: strings.TrimSpace(cells.Eq(1).Text()),
			Place:    strings.TrimSpace(cells.Eq(2).Text()),
			Employer: strings.TrimSpace(cells.Eq(3).Text()),
		}
		href, ok := cells.Eq(0).Find("a").First().Attr("href")
		if !ok {
			return
		}
		link, err := source.ResolveHref(s.cfg.BaseURL, href)
		if err != nil {
			s.logger.Warn("skipping row with unresolvable href",
				zap.String("href", href), zap.Error(err))
			return
		}
		rec.Link = link
		records = append(records, rec)
	})
	return records, nil
}

func (s *Site) searchURL(page int) string {
	q := url.Values{}
	q.Set("kulcsszo", s.cfg.Keyword)
	q.Set("kategoria", s.cfg.Category)
	q.Set("isk", "")
	q.Set("oszk", "")
	q.Set("feor", "")
	q.Set("helyseg", s.cfg.Location)
	q.Set("tavolsag", s.cfg.Radius)
	q.Set("munkaido", s.cfg.EmploymentType)
	q.Set("attelepules", "")
	if page > 0 {
		q.Set("oldal", strconv.Itoa(page))
	}
	q.Set("kereses", "Keresés")
	return s.cfg.BaseURL + s.cfg.SearchPath + "?" + q.Encode()
}
