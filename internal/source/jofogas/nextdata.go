package jofogas

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kallodavid/jobradar/internal/record"
	"github.com/kallodavid/jobradar/internal/source"
)

var (
	phonePattern = regexp.MustCompile(`(?:\+36|06)\s?\d{1,2}\s?\d{3}\s?\d{4}`)
	emailPattern = regexp.MustCompile(`[\w.-]+@[\w.-]+`)
)

// contact member names that are UI controls, not people.
var nonPersonMembers = map[string]struct{}{
	"show_email":       {},
	"chat":             {},
	"contact_location": {},
	"send_email":       {},
}

type nextData struct {
	Props struct {
		PageProps struct {
			Product product `json:"product"`
		} `json:"pageProps"`
	} `json:"props"`
}

type product struct {
	Subject     string  `json:"subject"`
	CompanyName string  `json:"company_name"`
	Body        string  `json:"body"`
	Price       labeled `json:"price"`
	Parameters  []struct {
		Key    string    `json:"key"`
		Values []labeled `json:"values"`
	} `json:"parameters"`
	ParamGroups struct {
		ContactInfo struct {
			Members []struct {
				Type  string `json:"type"`
				Name  string `json:"name"`
				Value string `json:"value"`
			} `json:"members"`
		} `json:"contact_info"`
	} `json:"param_groups"`
}

type labeled struct {
	Label string `json:"label"`
}

// EnrichDetail populates rec from the page's embedded __NEXT_DATA__ payload:
// direct key lookups for the structured fields, plus phone/email pattern
// scans over the free-text body, deduplicated preserving order and merged
// with the structured contact entries.
func (s *Site) EnrichDetail(rec *record.ScrapedRecord, body []byte) error {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return &source.ParseError{URL: rec.Link, Reason: err.Error()}
	}

	raw := doc.Find("script#__NEXT_DATA__").First().Text()
	if strings.TrimSpace(raw) == "" {
		return &source.ParseError{URL: rec.Link, Reason: "missing __NEXT_DATA__ payload"}
	}
	var data nextData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return &source.ParseError{URL: rec.Link, Reason: "malformed __NEXT_DATA__: " + err.Error()}
	}
	p := data.Props.PageProps.Product
	if p.Subject == "" && p.Body == "" {
		return &source.ParseError{URL: rec.Link, Reason: "empty product payload"}
	}

	remarks := bodyText(p.Body)
	phones := source.DedupePreserveOrder(phonePattern.FindAllString(remarks, -1))

	emails := emailPattern.FindAllString(remarks, -1)
	for _, m := range p.ParamGroups.ContactInfo.Members {
		if m.Type == "email" {
			emails = append(emails, m.Value)
		}
	}
	emails = source.DedupePreserveOrder(emails)

	var contacts []string
	for _, t := range phones {
		contacts = append(contacts, "telefon: "+t)
	}
	for _, e := range emails {
		contacts = append(contacts, "email: "+e)
	}

	repName := ""
	for _, m := range p.ParamGroups.ContactInfo.Members {
		if m.Name == "" {
			continue
		}
		if _, skip := nonPersonMembers[m.Name]; skip {
			continue
		}
		repName = m.Name
		break
	}

	if p.Subject != "" {
		rec.Title = p.Subject
	}
	rec.Category = paramLabel(p, "education")
	rec.Place = normalizePlace(paramLabel(p, "city"))
	rec.Employer = p.CompanyName
	rec.EmployerName = p.CompanyName
	rec.RepName = repName
	rec.RepContact = strings.Join(contacts, ", ")
	rec.Compensation = p.Price.Label
	rec.Education = paramLabel(p, "education")
	rec.Remarks = remarks
	if len(emails) > 0 {
		rec.Email = emails[0]
	}
	return nil
}

func paramLabel(p product, key string) string {
	for _, param := range p.Parameters {
		if param.Key == key && len(param.Values) > 0 {
			return param.Values[0].Label
		}
	}
	return ""
}

// bodyText flattens the HTML body into whitespace-joined plain text.
func bodyText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// normalizePlace collapses Budapest districts to the city itself.
func normalizePlace(place string) string {
	if strings.Contains(strings.ToLower(place), "kerület") {
		return "Budapest"
	}
	return place
}
