// Package report renders and delivers the end-of-run summary.
package report

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/kallodavid/jobradar/internal/pipeline"
)

// Report is the rendered input for one harvest run: the per-source summaries
// plus run-level identity and timing.
type Report struct {
	RunID      string
	FinishedAt time.Time
	Summaries  []pipeline.Summary
}

// Healthy reports whether every source ran without invariant drift or
// persistence failures.
func (r Report) Healthy() bool {
	for _, s := range r.Summaries {
		if s.Drift != 0 || s.PersistFailed > 0 {
			return false
		}
	}
	return true
}

var summaryTmpl = template.Must(template.New("summary").Funcs(template.FuncMap{
	"status": func(r Report) string {
		if r.Healthy() {
			return "OK"
		}
		return "ATTENTION"
	},
}).Parse(`Harvest run {{.RunID}} finished {{.FinishedAt.Format "2006-01-02 15:04:05 MST"}} [{{status .}}]
{{range .Summaries}}
Source: {{.Origin}}
  scope:        {{.ScopeKey}}
  duration:     {{.Duration}}
  pages:        {{.PagesVisited}}
  scraped:      {{.Scraped}} ({{.Deduped}} unique)
  new:          {{.New}}
  present:      {{.Present}}
  stale:        {{.Stale}}
  enriched:     {{.Enriched}} ({{.EnrichFailed}} failed)
  persisted:    {{.Persisted}} ({{.PersistFailed}} failed)
  touched:      {{.Touched}}
  deactivated:  {{.Deactivated}}

  database control
    active before:   {{.ActiveBefore}}
    active after:    {{.ActiveAfter}}
    active expected: {{.ActiveExpected}}
    drift:           {{.Drift}}
{{end}}`))

// Render produces the plain-text summary body.
func Render(r Report) (string, error) {
	var b strings.Builder
	if err := summaryTmpl.Execute(&b, r); err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}
	return b.String(), nil
}

// Subject produces the summary mail subject line: total new listings and the
// scopes harvested, flagged when the run needs attention.
func Subject(r Report) string {
	total := 0
	scopes := make([]string, 0, len(r.Summaries))
	for _, s := range r.Summaries {
		total += s.New
		scopes = append(scopes, s.ScopeKey)
	}
	subject := fmt.Sprintf("[jobradar] %d new listings (%s)", total, strings.Join(scopes, ", "))
	if !r.Healthy() {
		subject += " ATTENTION"
	}
	return subject
}
