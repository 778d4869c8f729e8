// Package store provides the Postgres-backed persistence layer for listing
// records: scoped active-set snapshots, idempotent batched upserts and
// scope-local deactivation.
package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/kallodavid/jobradar/internal/metrics"
	"github.com/kallodavid/jobradar/internal/record"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// defaultBatchSize is the bulk-upsert chunk size.
const defaultBatchSize = 50

// columns is the full upsert column list. first_seen_at is deliberately
// absent from the conflict-update set so the insert-time value survives
// every later upsert of the same identity.
var columns = []string{
	"link", "scope_key", "origin", "page",
	"title", "category", "place", "employer",
	"employer_name", "rep_name", "rep_contact", "compensation",
	"workplace", "education", "remarks", "email",
	"work_hours", "work_start", "schedule", "eu_citizen_note",
	"relocation_note", "special_requirements", "special_conditions",
	"benefits", "interview_place", "interview_time",
	"active", "first_seen_at", "last_seen_at",
}

// Config controls the Postgres connection pool and upsert batching.
type Config struct {
	DSN              string        `mapstructure:"dsn" yaml:"dsn"`
	Table            string        `mapstructure:"table" yaml:"table"`
	CoordinatesTable string        `mapstructure:"coordinates_table" yaml:"coordinates_table"`
	BatchSize        int           `mapstructure:"batch_size" yaml:"batch_size"`
	BatchPause       time.Duration `mapstructure:"batch_pause" yaml:"batch_pause"`
	MaxConns         int32         `mapstructure:"max_conns" yaml:"max_conns"`
	MinConns         int32         `mapstructure:"min_conns" yaml:"min_conns"`
	MaxConnLifetime  time.Duration `mapstructure:"max_conn_lifetime" yaml:"max_conn_lifetime"`
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store persists listing records in Postgres.
type Store struct {
	pool       querier
	table      string
	coordTable string
	batchSize  int
	batchPause time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return newStore(pool, cfg, logger)
}

// NewWithPool constructs a Store from an existing pool (primarily for
// testing with pgxmock).
func NewWithPool(pool querier, cfg Config, logger *zap.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return newStore(pool, cfg, logger)
}

func newStore(pool querier, cfg Config, logger *zap.Logger) (*Store, error) {
	table := cfg.Table
	if table == "" {
		table = "listings"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	coordTable := cfg.CoordinatesTable
	if coordTable == "" {
		coordTable = "place_coordinates"
	}
	if !validTableName.MatchString(coordTable) {
		return nil, fmt.Errorf("invalid coordinates table name %q", coordTable)
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Store{
		pool:       pool,
		table:      table,
		coordTable: coordTable,
		batchSize:  batchSize,
		batchPause: cfg.BatchPause,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger,
	}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// ActiveSet returns link→row-id for every active record under scopeKey: the
// read-only snapshot reconciliation runs against.
func (s *Store) ActiveSet(ctx context.Context, scopeKey string) (map[string]int64, error) {
	query := fmt.Sprintf(`SELECT link, id FROM %s WHERE scope_key = $1 AND active = TRUE`, s.table)
	rows, err := s.pool.Query(ctx, query, scopeKey)
	if err != nil {
		return nil, fmt.Errorf("select active set: %w", err)
	}
	defer rows.Close()
	return scanLinkIDs(rows)
}

// GlobalActiveSet returns link→row-id for every active record regardless of
// scope, for the cross-scope already-known check.
func (s *Store) GlobalActiveSet(ctx context.Context) (map[string]int64, error) {
	query := fmt.Sprintf(`SELECT link, id FROM %s WHERE active = TRUE`, s.table)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select global active set: %w", err)
	}
	defer rows.Close()
	return scanLinkIDs(rows)
}

// ActiveCount returns the number of active records under scopeKey.
func (s *Store) ActiveCount(ctx context.Context, scopeKey string) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE scope_key = $1 AND active = TRUE`, s.table)
	var n int
	if err := s.pool.QueryRow(ctx, query, scopeKey).Scan(&n); err != nil {
		return 0, fmt.Errorf("count active records: %w", err)
	}
	return n, nil
}

// UpsertBatch persists records in bounded batches with one bulk upsert per
// batch. A failed batch falls back to per-record upserts so one malformed
// record cannot sink its batch; per-record failures are counted, not
// retried. A short pause follows each batch to bound write rate.
func (s *Store) UpsertBatch(ctx context.Context, records []record.CanonicalRecord) (ok, failed int, err error) {
	for start := 0; start < len(records); start += s.batchSize {
		end := start + s.batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		if err := s.bulkUpsert(ctx, batch); err != nil {
			s.logger.Warn("bulk upsert failed, falling back to per-record",
				zap.Int("batch_size", len(batch)), zap.Error(err))
			for _, rec := range batch {
				if err := s.upsertOne(ctx, rec); err != nil {
					s.logger.Warn("record upsert failed",
						zap.String("link", rec.Link), zap.Error(err))
					failed++
					metrics.TotalRecordsFailed.Inc()
					continue
				}
				ok++
				metrics.TotalRecordsPersisted.Inc()
			}
		} else {
			ok += len(batch)
			for range batch {
				metrics.TotalRecordsPersisted.Inc()
			}
		}

		if end < len(records) && s.batchPause > 0 {
			select {
			case <-ctx.Done():
				return ok, failed, ctx.Err()
			case <-time.After(s.batchPause):
			}
		}
	}
	return ok, failed, nil
}

// Touch refreshes last_seen_at and re-activates the given identities: the
// freshness-only path for records already known to the store.
func (s *Store) Touch(ctx context.Context, links []string) (int, error) {
	if len(links) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(`UPDATE %s SET active = TRUE, last_seen_at = $1 WHERE link = ANY($2)`, s.table)
	tag, err := s.pool.Exec(ctx, query, s.now(), links)
	if err != nil {
		return 0, fmt.Errorf("touch records: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Deactivate flips the stale identities of scopeKey to inactive, retaining
// them for history. Rows outside the scope are never touched.
func (s *Store) Deactivate(ctx context.Context, links []string, scopeKey string) (int, error) {
	if len(links) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(
		`UPDATE %s SET active = FALSE, last_seen_at = $1 WHERE scope_key = $2 AND link = ANY($3)`,
		s.table,
	)
	tag, err := s.pool.Exec(ctx, query, s.now(), scopeKey, links)
	if err != nil {
		return 0, fmt.Errorf("deactivate records: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) bulkUpsert(ctx context.Context, batch []record.CanonicalRecord) error {
	if len(batch) == 0 {
		return nil
	}
	now := s.now()
	args := make([]any, 0, len(batch)*len(columns))
	placeholders := make([]string, 0, len(batch))
	for i, rec := range batch {
		base := i * len(columns)
		ph := make([]string, len(columns))
		for j := range columns {
			ph[j] = fmt.Sprintf("$%d", base+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(ph, ",")+")")
		args = append(args, recordArgs(rec, now)...)
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES %s %s`,
		s.table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
		conflictClause(),
	)
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("bulk upsert: %w", err)
	}
	return nil
}

func (s *Store) upsertOne(ctx context.Context, rec record.CanonicalRecord) error {
	ph := make([]string, len(columns))
	for j := range columns {
		ph[j] = fmt.Sprintf("$%d", j+1)
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) %s`,
		s.table,
		strings.Join(columns, ", "),
		strings.Join(ph, ","),
		conflictClause(),
	)
	if _, err := s.pool.Exec(ctx, query, recordArgs(rec, s.now())...); err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// conflictClause overwrites every non-identity field on re-observation while
// preserving first_seen_at and forcing the row back to active.
func conflictClause() string {
	var sets []string
	for _, col := range columns {
		switch col {
		case "link", "first_seen_at":
			continue
		case "active":
			sets = append(sets, "active = TRUE")
		default:
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}
	return "ON CONFLICT (link) DO UPDATE SET " + strings.Join(sets, ", ")
}

func recordArgs(rec record.CanonicalRecord, now time.Time) []any {
	return []any{
		rec.Link, rec.ScopeKey, string(rec.Origin), rec.Page,
		rec.Title, rec.Category, rec.Place, rec.Employer,
		rec.EmployerName, rec.RepName, rec.RepContact, rec.Compensation,
		rec.Workplace, rec.Education, rec.Remarks, rec.Email,
		rec.WorkHours, rec.WorkStart, rec.Schedule, rec.EUCitizenNote,
		rec.RelocationNote, rec.SpecialReqs, rec.SpecialConds,
		rec.Benefits, rec.InterviewPlace, rec.InterviewTime,
		true, now, now,
	}
}

func scanLinkIDs(rows pgx.Rows) (map[string]int64, error) {
	out := make(map[string]int64)
	for rows.Next() {
		var link string
		var id int64
		if err := rows.Scan(&link, &id); err != nil {
			return nil, fmt.Errorf("scan active row: %w", err)
		}
		out[link] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active rows: %w", err)
	}
	return out, nil
}
