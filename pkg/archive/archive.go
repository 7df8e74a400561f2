// Package archive stores finished investigation reports in Postgres.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DEV-EVIIL/INSTA-INFO/pkg/report"
)

// ErrNotFound is returned when no report is archived for a username.
var ErrNotFound = errors.New("no archived report")

// Store is a Postgres-backed report archive.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to Postgres and creates the archive table if needed.
func New(ctx context.Context, connString string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	// The full report is kept as JSONB so old investigations can be re-read
	// after the report shape grows.
	queryTable := `
	CREATE TABLE IF NOT EXISTS investigations (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		report JSONB NOT NULL
	);`

	queryIndex := `
	CREATE INDEX IF NOT EXISTS investigations_username_created_at
		ON investigations (username, created_at DESC);`

	if _, err := s.pool.Exec(ctx, queryTable); err != nil {
		return fmt.Errorf("migration failed (investigations): %w", err)
	}
	if _, err := s.pool.Exec(ctx, queryIndex); err != nil {
		return fmt.Errorf("migration failed (index): %w", err)
	}
	return nil
}

// Save archives r. Saving the same report twice is a no-op.
func (s *Store) Save(ctx context.Context, r *report.Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO investigations (id, username, created_at, report)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING`,
		r.ID, r.Username, r.Timestamp, data)
	if err != nil {
		return fmt.Errorf("save report %s: %w", r.ID, err)
	}
	return nil
}

// Latest returns the most recent archived report for username.
func (s *Store) Latest(ctx context.Context, username string) (*report.Report, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT report FROM investigations
		 WHERE username = $1
		 ORDER BY created_at DESC
		 LIMIT 1`, username).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load report for %s: %w", username, err)
	}

	var r report.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report for %s: %w", username, err)
	}
	return &r, nil
}

// Entry is one row of an account's investigation history.
type Entry struct {
	CreatedAt time.Time
	ID        string
	Followers int
}

// History lists up to limit past investigations of username, newest first.
func (s *Store) History(ctx context.Context, username string, limit int) ([]Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, created_at, (report->'statistics'->>'followers')::int
		 FROM investigations
		 WHERE username = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, username, limit)
	if err != nil {
		return nil, fmt.Errorf("query history for %s: %w", username, err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		err := row.Scan(&e.ID, &e.CreatedAt, &e.Followers)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan history for %s: %w", username, err)
	}
	return entries, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
