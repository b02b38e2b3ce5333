// Package postgres provides the Postgres-backed postcode set.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostcodeSet persists the append-only postcode set in Postgres.
//
// Assumed schema:
//
//	CREATE TABLE unique_postcodes (
//		postcode TEXT PRIMARY KEY,
//		first_seen TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//	CREATE TABLE scan_state (
//		id INT PRIMARY KEY,
//		completed_at TIMESTAMPTZ NOT NULL
//	);
type PostcodeSet struct {
	pool pool
}

// Config controls the Postgres connection pool.
type Config struct {
	DSN      string
	MaxConns int32
}

// New connects a pool and returns the set.
func New(ctx context.Context, cfg Config) (*PostcodeSet, error) {
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
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostcodeSet{pool: p}, nil
}

// NewWithPool constructs a set from an existing pool (primarily for testing).
func NewWithPool(p pool) (*PostcodeSet, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &PostcodeSet{pool: p}, nil
}

// Close releases the underlying pool resources.
func (s *PostcodeSet) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// RecordIfNew inserts the postcode; the ON CONFLICT clause makes the
// check-then-insert atomic so concurrent deliveries of the same postcode
// yield exactly one "new" result.
func (s *PostcodeSet) RecordIfNew(ctx context.Context, postcode string) (bool, error) {
	if postcode == "" {
		return false, errors.New("postcode is required")
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO unique_postcodes (postcode) VALUES ($1) ON CONFLICT (postcode) DO NOTHING`,
		postcode,
	)
	if err != nil {
		return false, fmt.Errorf("insert postcode: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListAll returns every recorded postcode in sorted order.
func (s *PostcodeSet) ListAll(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT postcode FROM unique_postcodes ORDER BY postcode`,
	)
	if err != nil {
		return nil, fmt.Errorf("list postcodes: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var pc string
		if err := rows.Scan(&pc); err != nil {
			return nil, fmt.Errorf("scan postcode row: %w", err)
		}
		out = append(out, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate postcode rows: %w", err)
	}
	return out, nil
}

// LastScanCompleted returns the zero time when no full scan has run yet.
func (s *PostcodeSet) LastScanCompleted(ctx context.Context) (time.Time, error) {
	var at time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT completed_at FROM scan_state WHERE id = 1`,
	).Scan(&at)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("read scan state: %w", err)
	}
	return at, nil
}

// MarkScanCompleted upserts the completion time of a full re-scan.
func (s *PostcodeSet) MarkScanCompleted(ctx context.Context, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scan_state (id, completed_at) VALUES (1, $1)
		 ON CONFLICT (id) DO UPDATE SET completed_at = EXCLUDED.completed_at`,
		at,
	)
	if err != nil {
		return fmt.Errorf("mark scan completed: %w", err)
	}
	return nil
}
