package store

import (
	"context"
	"fmt"
	"time"

	"github.com/kallodavid/jobradar/internal/record"
)

// Coordinates is a lat/lon pair for one place name.
type Coordinates struct {
	Lat float64
	Lon float64
}

// AllRecords loads every record, active and retired alike: the input set for
// a full search-index rebuild. Only the fields the index carries are
// selected.
func (s *Store) AllRecords(ctx context.Context) ([]record.CanonicalRecord, error) {
	query := fmt.Sprintf(
		`SELECT link, scope_key, origin, title, category, place, employer, active, first_seen_at, last_seen_at
		 FROM %s ORDER BY id`, s.table)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}
	defer rows.Close()

	var out []record.CanonicalRecord
	for rows.Next() {
		var rec record.CanonicalRecord
		var origin string
		var firstSeen time.Time
		if err := rows.Scan(
			&rec.Link, &rec.ScopeKey, &origin,
			&rec.Title, &rec.Category, &rec.Place, &rec.Employer,
			&rec.Active, &firstSeen, &rec.LastSeenAt,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Origin = record.Origin(origin)
		rec.FirstSeenAt = &firstSeen
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// PlaceCoordinates loads the place->coordinates lookup table used to geotag
// index documents. Keys are the stored place names verbatim; the caller is
// responsible for any normalization before joining.
func (s *Store) PlaceCoordinates(ctx context.Context) (map[string]Coordinates, error) {
	query := fmt.Sprintf(`SELECT place, lat, lon FROM %s`, s.coordTable)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select place coordinates: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Coordinates)
	for rows.Next() {
		var place string
		var c Coordinates
		if err := rows.Scan(&place, &c.Lat, &c.Lon); err != nil {
			return nil, fmt.Errorf("scan coordinates: %w", err)
		}
		out[place] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coordinates: %w", err)
	}
	return out, nil
}
