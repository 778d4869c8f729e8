// Package source defines the contract a job-listing site adapter must
// implement and the failure types extraction can produce.
package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/kallodavid/jobradar/internal/record"
)

// Site is one harvestable job-listing source. Implementations parse the
// site's listing and detail markup into ScrapedRecords; all network I/O
// happens elsewhere, except Login which may need the shared session.
type Site interface {
	// Origin is the value stamped into persisted records.
	Origin() record.Origin

	// ScopeKey is the canonical search-scope string all persisted-state
	// queries for this run are keyed by.
	ScopeKey() string

	// Login establishes a session when the site requires one. A failed
	// login is fatal for the run.
	Login(ctx context.Context) error

	// PageURL renders the listing endpoint URL for a 1-based page cursor.
	PageURL(page int) string

	// PageCapacity is the observed maximum rows per listing page, used by
	// the has-more heuristic when the site exposes no pagination control.
	PageCapacity() int

	// LastPage resolves the final page number from the first page's
	// markup. ok=false means the site exposes no usable control and the
	// crawler must fall back to the capacity heuristic.
	LastPage(firstPage []byte) (last int, ok bool)

	// ParseListing extracts one record per listing row from a page's
	// markup. Malformed rows are skipped, not failed.
	ParseListing(page int, body []byte) ([]record.ScrapedRecord, error)

	// EnrichDetail merges detail-page fields onto an existing record.
	EnrichDetail(rec *record.ScrapedRecord, body []byte) error
}

// AuthError reports a rejected login or session. Fatal for the run.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

// ParseError reports markup whose expected structure is absent. The
// affected record or page is skipped and the run continues.
type ParseError struct {
	URL    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.URL, e.Reason)
}

// NormalizeLabel collapses runs of whitespace inside a label cell so it can
// be matched exactly against the label table.
func NormalizeLabel(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ResolveHref resolves a possibly relative href against a base URL.
func ResolveHref(base, href string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	h, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("parse href: %w", err)
	}
	return b.ResolveReference(h).String(), nil
}

// DedupePreserveOrder keeps the first occurrence of each value.
func DedupePreserveOrder(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
