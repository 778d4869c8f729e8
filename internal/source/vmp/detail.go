package vmp

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kallodavid/jobradar/internal/record"
	"github.com/kallodavid/jobradar/internal/source"
)

// mainLabels maps the detail page's primary-table labels onto record fields.
// Unmatched labels are ignored.
var mainLabels = map[string]func(*record.ScrapedRecord, string){
	"Foglalkoztató neve":                  func(r *record.ScrapedRecord, v string) { r.EmployerName = v },
	"Képviselő neve":                      func(r *record.ScrapedRecord, v string) { r.RepName = v },
	"Felajánlott havi bruttó kereset (Ft)": func(r *record.ScrapedRecord, v string) { r.Compensation = v },
	"Munkavégzés helye":                   func(r *record.ScrapedRecord, v string) { r.Workplace = v },
	"Elvárt iskolai végzettség":           func(r *record.ScrapedRecord, v string) { r.Education = v },
	"Megjegyzés":                          func(r *record.ScrapedRecord, v string) { r.Remarks = v },
}

// supplementaryLabels covers the second tab panel's table.
var supplementaryLabels = map[string]func(*record.ScrapedRecord, string){
	"Teljes/rész munkaidő (óra)":            func(r *record.ScrapedRecord, v string) { r.WorkHours = v },
	"Munkaidő kezdete (óra:perc)":           func(r *record.ScrapedRecord, v string) { r.WorkStart = v },
	"Munkarend":                             func(r *record.ScrapedRecord, v string) { r.Schedule = v },
	"EU-s állampolgár figyelmébe ajánlja?":  func(r *record.ScrapedRecord, v string) { r.EUCitizenNote = v },
	"Speciális követelmények":               func(r *record.ScrapedRecord, v string) { r.SpecialReqs = v },
	"Speciális körülmények":                 func(r *record.ScrapedRecord, v string) { r.SpecialConds = v },
	"A munkakörhöz kapcsolódó juttatások":   func(r *record.ScrapedRecord, v string) { r.Benefits = v },
	"Állásegyeztetés helye":                 func(r *record.ScrapedRecord, v string) { r.InterviewPlace = v },
	"Állásegyeztetés ideje":                 func(r *record.ScrapedRecord, v string) { r.InterviewTime = v },
}

// relocationLabelPrefix is matched by prefix; the portal renders the full
// question text in the label cell.
const relocationLabelPrefix = "Kéri-e az országon belüli áttelepülést"

// EnrichDetail merges detail-page fields onto rec. Labels are matched after
// whitespace normalization; the contact row prefers a mailto anchor over the
// visible cell text.
func (s *Site) EnrichDetail(rec *record.ScrapedRecord, body []byte) error {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return &source.ParseError{URL: rec.Link, Reason: err.Error()}
	}

	doc.Find("table.standardTable tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		label := source.NormalizeLabel(cells.Eq(0).Text())
		value := strings.TrimSpace(cells.Eq(1).Text())

		if label == "Képviselő elérhetőségei" {
			rec.RepContact = contactValue(row, value)
			return
		}
		if set, ok := mainLabels[label]; ok {
			set(rec, value)
		}
	})

	if tag := doc.Find("#tabs-1 a[href^='mailto:']").First(); tag.Length() > 0 {
		if href, ok := tag.Attr("href"); ok {
			rec.Email = strings.TrimPrefix(href, "mailto:")
		}
	}

	doc.Find("div#tabs-2 table.standardTable tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		label := source.NormalizeLabel(cells.Eq(0).Text())
		value := strings.TrimSpace(cells.Eq(1).Text())

		if strings.HasPrefix(label, relocationLabelPrefix) {
			rec.RelocationNote = value
			return
		}
		if set, ok := supplementaryLabels[label]; ok {
			set(rec, value)
		}
	})

	return nil
}

// contactValue prefers a mailto link inside the row, falling back to the
// visible text.
func contactValue(row *goquery.Selection, fallback string) string {
	link := row.Find("a[href]").First()
	if href, ok := link.Attr("href"); ok && strings.HasPrefix(href, "mailto:") {
		return strings.TrimPrefix(href, "mailto:")
	}
	return fallback
}
