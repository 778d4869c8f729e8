// Package index rebuilds the search index from the persisted listing records.
package index

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"

	"github.com/kallodavid/jobradar/internal/record"
	"github.com/kallodavid/jobradar/internal/store"
)

// defaultBulkSize is the bulk-request document count.
const defaultBulkSize = 100

// Config holds search index configuration.
type Config struct {
	Addresses []string      `mapstructure:"addresses" yaml:"addresses"`
	Username  string        `mapstructure:"username" yaml:"username"`
	Password  string        `mapstructure:"password" yaml:"password"`
	Index     string        `mapstructure:"index" yaml:"index"`
	BulkSize  int           `mapstructure:"bulk_size" yaml:"bulk_size"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Document is the indexed shape of one listing. Location carries a geo_point
// so the index can serve distance queries; records whose place has no known
// coordinates are not indexed at all.
type Document struct {
	Link      string    `json:"link"`
	Origin    string    `json:"origin"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Place     string    `json:"place"`
	Employer  string    `json:"employer"`
	Active    bool      `json:"active"`
	FirstSeen time.Time `json:"first_seen_at"`
	LastSeen  time.Time `json:"last_seen_at"`
	Location  GeoPoint  `json:"location"`
}

// GeoPoint is the lat/lon pair Elasticsearch expects for geo_point fields.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// mapping is the index schema applied on (re)creation.
const mapping = `{
  "mappings": {
    "properties": {
      "link":          {"type": "keyword"},
      "origin":        {"type": "keyword"},
      "title":         {"type": "text"},
      "category":      {"type": "keyword"},
      "place":         {"type": "keyword"},
      "employer":      {"type": "text"},
      "active":        {"type": "boolean"},
      "first_seen_at": {"type": "date"},
      "last_seen_at":  {"type": "date"},
      "location":      {"type": "geo_point"}
    }
  }
}`

// RecordSource yields the records and coordinate lookup a rebuild indexes.
type RecordSource interface {
	AllRecords(ctx context.Context) ([]record.CanonicalRecord, error)
	PlaceCoordinates(ctx context.Context) (map[string]store.Coordinates, error)
}

// Rebuilder performs destructive search-index rebuilds: drop, recreate with
// the mapping, then bulk-load every record with known coordinates.
type Rebuilder struct {
	client   *es.Client
	source   RecordSource
	index    string
	bulkSize int
	logger   *zap.Logger
}

// Stats summarizes one rebuild.
type Stats struct {
	Indexed int
	// Skipped counts records whose place has no coordinate entry; the
	// geo_point field is mandatory so they cannot be indexed.
	Skipped int
	Batches int
}

// New creates a Rebuilder connected to the configured cluster.
func New(cfg Config, src RecordSource, logger *zap.Logger) (*Rebuilder, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("index.addresses is required")
	}
	if cfg.Index == "" {
		return nil, fmt.Errorf("index.index is required")
	}
	client, err := es.NewClient(es.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create search client: %w", err)
	}
	bulkSize := cfg.BulkSize
	if bulkSize <= 0 {
		bulkSize = defaultBulkSize
	}
	return &Rebuilder{
		client:   client,
		source:   src,
		index:    cfg.Index,
		bulkSize: bulkSize,
		logger:   logger,
	}, nil
}

// NewWithClient constructs a Rebuilder around an existing client (primarily
// for testing against httptest-backed transports).
func NewWithClient(client *es.Client, src RecordSource, index string, bulkSize int, logger *zap.Logger) *Rebuilder {
	if bulkSize <= 0 {
		bulkSize = defaultBulkSize
	}
	return &Rebuilder{client: client, source: src, index: index, bulkSize: bulkSize, logger: logger}
}

// Rebuild drops and recreates the index, then bulk-loads every record whose
// place resolves to coordinates. The geocoding join is by normalized place
// name; records without a match are skipped and counted.
func (r *Rebuilder) Rebuild(ctx context.Context) (Stats, error) {
	var stats Stats

	records, err := r.source.AllRecords(ctx)
	if err != nil {
		return stats, fmt.Errorf("load records: %w", err)
	}
	coords, err := r.source.PlaceCoordinates(ctx)
	if err != nil {
		return stats, fmt.Errorf("load place coordinates: %w", err)
	}
	lookup := make(map[string]store.Coordinates, len(coords))
	for place, c := range coords {
		lookup[normalizePlace(place)] = c
	}

	docs := make([]Document, 0, len(records))
	for _, rec := range records {
		c, ok := lookup[normalizePlace(rec.Place)]
		if !ok {
			stats.Skipped++
			r.logger.Warn("no coordinates for place, skipping record",
				zap.String("place", rec.Place), zap.String("link", rec.Link))
			continue
		}
		doc := Document{
			Link:     rec.Link,
			Origin:   string(rec.Origin),
			Title:    rec.Title,
			Category: rec.Category,
			Place:    rec.Place,
			Employer: rec.Employer,
			Active:   rec.Active,
			LastSeen: rec.LastSeenAt,
			Location: GeoPoint{Lat: c.Lat, Lon: c.Lon},
		}
		if rec.FirstSeenAt != nil {
			doc.FirstSeen = *rec.FirstSeenAt
		}
		docs = append(docs, doc)
	}

	if err := r.deleteIndex(ctx); err != nil {
		return stats, err
	}
	if err := r.createIndex(ctx); err != nil {
		return stats, err
	}

	for start := 0; start < len(docs); start += r.bulkSize {
		end := start + r.bulkSize
		if end > len(docs) {
			end = len(docs)
		}
		if err := r.bulkIndex(ctx, docs[start:end]); err != nil {
			return stats, fmt.Errorf("bulk index batch: %w", err)
		}
		stats.Indexed += end - start
		stats.Batches++
		r.logger.Info("indexed batch",
			zap.Int("batch", stats.Batches),
			zap.Int("docs", end-start),
		)
	}

	r.logger.Info("index rebuilt",
		zap.String("index", r.index),
		zap.Int("indexed", stats.Indexed),
		zap.Int("skipped", stats.Skipped),
	)
	return stats, nil
}

func (r *Rebuilder) deleteIndex(ctx context.Context) error {
	res, err := r.client.Indices.Delete(
		[]string{r.index},
		r.client.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete index: %w", err)
	}
	defer res.Body.Close()
	// A missing index is fine: first rebuild.
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("delete index: %s", string(body))
	}
	return nil
}

func (r *Rebuilder) createIndex(ctx context.Context) error {
	res, err := r.client.Indices.Create(
		r.index,
		r.client.Indices.Create.WithBody(strings.NewReader(mapping)),
		r.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("create index: %s", string(body))
	}
	return nil
}

func (r *Rebuilder) bulkIndex(ctx context.Context, batch []Document) error {
	var buf bytes.Buffer
	for _, doc := range batch {
		action := map[string]map[string]string{
			"index": {"_index": r.index, "_id": docID(doc.Link)},
		}
		if err := json.NewEncoder(&buf).Encode(action); err != nil {
			return fmt.Errorf("encode bulk action: %w", err)
		}
		if err := json.NewEncoder(&buf).Encode(doc); err != nil {
			return fmt.Errorf("encode document: %w", err)
		}
	}

	res, err := r.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		r.client.Bulk.WithContext(ctx),
		r.client.Bulk.WithIndex(r.index),
	)
	if err != nil {
		return fmt.Errorf("bulk request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("bulk request: %s", string(body))
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if bulkResp.Errors {
		return fmt.Errorf("bulk request reported item errors")
	}
	return nil
}

// docID derives a stable document id from the record identity so repeated
// rebuilds address the same documents.
func docID(link string) string {
	sum := sha256.Sum256([]byte(link))
	return hex.EncodeToString(sum[:])
}

// placeReplacements maps known place-name variants to the coordinate
// table's canonical entry.
var placeReplacements = map[string]string{
	"bp.": "budapest",
}

// normalizePlace folds case and whitespace so listing places and coordinate
// rows join even when their capitalization differs. Budapest districts
// ("Budapest III. kerület") all carry the capital's coordinates, so any
// place mentioning Budapest collapses to it.
func normalizePlace(place string) string {
	norm := strings.ToLower(strings.Join(strings.Fields(place), " "))
	if strings.Contains(norm, "budapest") {
		return "budapest"
	}
	for from, to := range placeReplacements {
		if strings.Contains(norm, from) {
			return to
		}
	}
	return norm
}
