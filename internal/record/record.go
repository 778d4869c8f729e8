// Package record defines the listing record types shared across subsystems.
package record

import "time"

// Origin identifies the source site a listing was harvested from.
type Origin string

// Origin values persisted in the store.
const (
	OriginVMP     Origin = "vmp"
	OriginJofogas Origin = "jofogas"
)

// ScrapedRecord is one listing as extracted from a page. It exists only for
// the duration of a run and is translated to a CanonicalRecord before
// persistence. Link is the absolute detail-page URL and is the record's
// identity; empty fields are simply unset.
type ScrapedRecord struct {
	Link     string
	ScopeKey string
	Page     int

	// Listing-page columns.
	Title    string
	Category string
	Place    string
	Employer string

	// Detail-page fields, populated by enrichment.
	EmployerName   string
	RepName        string
	RepContact     string
	Compensation   string
	Workplace      string
	Education      string
	Remarks        string
	Email          string
	WorkHours      string
	WorkStart      string
	Schedule       string
	EUCitizenNote  string
	RelocationNote string
	SpecialReqs    string
	SpecialConds   string
	Benefits       string
	InterviewPlace string
	InterviewTime  string
}

// CanonicalRecord is the persisted shape of a listing. Identity is Link,
// unique across scopes. FirstSeenAt is set by the store on first insert and
// never overwritten; LastSeenAt and Active are refreshed on every
// appearance.
type CanonicalRecord struct {
	Link     string `db:"link"`
	ScopeKey string `db:"scope_key"`
	Origin   Origin `db:"origin"`
	Page     int    `db:"page"`

	Title    string `db:"title"`
	Category string `db:"category"`
	Place    string `db:"place"`
	Employer string `db:"employer"`

	EmployerName   string `db:"employer_name"`
	RepName        string `db:"rep_name"`
	RepContact     string `db:"rep_contact"`
	Compensation   string `db:"compensation"`
	Workplace      string `db:"workplace"`
	Education      string `db:"education"`
	Remarks        string `db:"remarks"`
	Email          string `db:"email"`
	WorkHours      string `db:"work_hours"`
	WorkStart      string `db:"work_start"`
	Schedule       string `db:"schedule"`
	EUCitizenNote  string `db:"eu_citizen_note"`
	RelocationNote string `db:"relocation_note"`
	SpecialReqs    string `db:"special_requirements"`
	SpecialConds   string `db:"special_conditions"`
	Benefits       string `db:"benefits"`
	InterviewPlace string `db:"interview_place"`
	InterviewTime  string `db:"interview_time"`

	Active      bool       `db:"active"`
	FirstSeenAt *time.Time `db:"first_seen_at"`
	LastSeenAt  time.Time  `db:"last_seen_at"`
}

// Canonical translates a scraped record into the persisted shape. The store
// stamps first_seen_at/last_seen_at; Active is true by definition for a
// record just observed.
func Canonical(s ScrapedRecord, origin Origin) CanonicalRecord {
	return CanonicalRecord{
		Link:           s.Link,
		ScopeKey:       s.ScopeKey,
		Origin:         origin,
		Page:           s.Page,
		Title:          s.Title,
		Category:       s.Category,
		Place:          s.Place,
		Employer:       s.Employer,
		EmployerName:   s.EmployerName,
		RepName:        s.RepName,
		RepContact:     s.RepContact,
		Compensation:   s.Compensation,
		Workplace:      s.Workplace,
		Education:      s.Education,
		Remarks:        s.Remarks,
		Email:          s.Email,
		WorkHours:      s.WorkHours,
		WorkStart:      s.WorkStart,
		Schedule:       s.Schedule,
		EUCitizenNote:  s.EUCitizenNote,
		RelocationNote: s.RelocationNote,
		SpecialReqs:    s.SpecialReqs,
		SpecialConds:   s.SpecialConds,
		Benefits:       s.Benefits,
		InterviewPlace: s.InterviewPlace,
		InterviewTime:  s.InterviewTime,
		Active:         true,
	}
}
