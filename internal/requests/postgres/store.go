// Package postgres provides the Postgres-backed request store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmcallister/catalogue-scraper/internal/catalogue"
)

// ErrNotFound indicates the request ID is unknown.
var ErrNotFound = errors.New("request not found")

type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// Store persists user requests in Postgres.
//
// Assumed schema:
//
//	CREATE TABLE catalogue_requests (
//		request_id TEXT PRIMARY KEY,
//		postcode TEXT NOT NULL,
//		product_name TEXT NOT NULL,
//		discount DOUBLE PRECISION NOT NULL,
//		phone_number TEXT NOT NULL,
//		submitted_at TIMESTAMPTZ NOT NULL
//	);
type Store struct {
	pool pool
}

// Config controls the Postgres connection pool.
type Config struct {
	DSN      string
	MaxConns int32
}

// New connects a pool and returns the store.
func New(ctx context.Context, cfg Config) (*Store, error) {
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
	return &Store{pool: p}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: p}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Create stores a new request.
func (s *Store) Create(ctx context.Context, req catalogue.Request) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO catalogue_requests
			(request_id, postcode, product_name, discount, phone_number, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		req.RequestID,
		req.Postcode,
		req.ProductName,
		req.Discount,
		req.PhoneNumber,
		req.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

// List returns all requests ordered by submission time.
func (s *Store) List(ctx context.Context) ([]catalogue.Request, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT request_id, postcode, product_name, discount, phone_number, submitted_at
		 FROM catalogue_requests
		 ORDER BY submitted_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var out []catalogue.Request
	for rows.Next() {
		var req catalogue.Request
		if err := rows.Scan(
			&req.RequestID,
			&req.Postcode,
			&req.ProductName,
			&req.Discount,
			&req.PhoneNumber,
			&req.SubmittedAt,
		); err != nil {
			return nil, fmt.Errorf("scan request row: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate request rows: %w", err)
	}
	return out, nil
}

// Delete removes a request by ID.
func (s *Store) Delete(ctx context.Context, requestID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM catalogue_requests WHERE request_id = $1`,
		requestID,
	)
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Update applies the non-nil fields of upd to an existing request.
func (s *Store) Update(ctx context.Context, requestID string, upd catalogue.RequestUpdate) error {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if upd.ProductName != nil {
		args = append(args, *upd.ProductName)
		sets = append(sets, fmt.Sprintf("product_name = $%d", len(args)))
	}
	if upd.Discount != nil {
		args = append(args, *upd.Discount)
		sets = append(sets, fmt.Sprintf("discount = $%d", len(args)))
	}
	if upd.PhoneNumber != nil {
		args = append(args, *upd.PhoneNumber)
		sets = append(sets, fmt.Sprintf("phone_number = $%d", len(args)))
	}
	if len(sets) == 0 {
		return errors.New("no fields to update")
	}
	args = append(args, requestID)
	query := fmt.Sprintf(
		`UPDATE catalogue_requests SET %s WHERE request_id = $%d`,
		strings.Join(sets, ", "), len(args),
	)
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
