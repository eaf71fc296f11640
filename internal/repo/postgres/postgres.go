package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/endpointresolver/internal/domain"
	"github.com/hamed0406/endpointresolver/internal/repo"
)

var _ repo.HistoryStore = (*Store)(nil)
var _ repo.AlertStore = (*Store)(nil)

// Schema creates the tables the store needs. Safe to apply repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS resolutions (
  id          TEXT PRIMARY KEY,
  started_at  TIMESTAMPTZ NOT NULL,
  finished_at TIMESTAMPTZ NOT NULL,
  forced      BOOLEAN NOT NULL DEFAULT false,
  outcome     TEXT NOT NULL,
  base_url    TEXT NULL,
  label       TEXT NULL,
  source      TEXT NULL,
  probed      INTEGER NOT NULL DEFAULT 0,
  error       TEXT NULL
);

CREATE INDEX IF NOT EXISTS idx_resolutions_started_at ON resolutions (started_at DESC);

CREATE TABLE IF NOT EXISTS alerts (
  key          TEXT PRIMARY KEY,
  last_state   TEXT NOT NULL DEFAULT '',
  last_sent_at TIMESTAMPTZ NULL
);
`

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	s.log.Info("schema_applied")
	return nil
}

// ---- HistoryStore ----

func (s *Store) Append(ctx context.Context, r *domain.Resolution) error {
	if r.ID == "" {
		r.ID = makeID()
	}
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO resolutions
		   (id, started_at, finished_at, forced, outcome, base_url, label, source, probed, error)
		 VALUES
		   ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		r.ID, r.StartedAt, r.FinishedAt, r.Forced, string(r.Outcome),
		nullable(r.BaseURL), nullable(r.Label), nullable(string(r.Source)), r.Probed, nullable(r.Error),
	)
	if err != nil {
		return fmt.Errorf("insert resolution: %w", err)
	}
	return nil
}

func (s *Store) Recent(ctx context.Context, limit int) ([]domain.Resolution, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, started_at, finished_at, forced, outcome, base_url, label, source, probed, error
  FROM resolutions
 ORDER BY started_at DESC, id DESC
 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent resolutions: %w", err)
	}
	defer rows.Close()

	var out []domain.Resolution
	for rows.Next() {
		var (
			r                                 domain.Resolution
			outcome                           string
			baseURL, label, source, errString sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Forced, &outcome,
			&baseURL, &label, &source, &r.Probed, &errString); err != nil {
			return nil, fmt.Errorf("scan resolution: %w", err)
		}
		r.Outcome = domain.Outcome(outcome)
		r.BaseURL = baseURL.String
		r.Label = label.String
		r.Source = domain.Source(source.String)
		r.Error = errString.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ID format: 20060102Thhmmss.nnnnnnnnn
func makeID() string {
	now := time.Now().UTC()
	return now.Format("20060102T150405.") + fmt.Sprintf("%09d", now.Nanosecond())
}
