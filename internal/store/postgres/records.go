// Package postgres provides Postgres-backed persistence for catalogue rows.
package postgres

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmcallister/catalogue-scraper/internal/catalogue"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

type execCloser interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// RecordStore writes catalogue rows into Postgres.
//
// Assumed schema:
//
//	CREATE TABLE catalogue_products (
//		product_key TEXT NOT NULL,
//		postcode TEXT NOT NULL,
//		category TEXT NOT NULL,
//		name TEXT NOT NULL,
//		price TEXT NOT NULL,
//		regular_price TEXT NOT NULL,
//		sale_price TEXT NOT NULL,
//		saving TEXT NOT NULL,
//		option_suffix TEXT NOT NULL,
//		comparative_text TEXT NOT NULL,
//		sale_option TEXT NOT NULL,
//		offer_valid_text TEXT NOT NULL,
//		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//		PRIMARY KEY (postcode, category, product_key)
//	);
type RecordStore struct {
	pool  execCloser
	table string
}

// Config controls the Postgres connection pool used for catalogue rows.
type Config struct {
	DSN      string
	Table    string
	MaxConns int32
}

// NewRecordStore creates a Postgres-backed RecordStore using the provided config.
func NewRecordStore(ctx context.Context, cfg Config) (*RecordStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "catalogue_products"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &RecordStore{pool: pool, table: table}, nil
}

// NewRecordStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewRecordStoreWithPool(pool execCloser, table string) (*RecordStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "catalogue_products"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &RecordStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *RecordStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// PutRow upserts one row keyed by (postcode, category, product_key), so
// retried or concurrent writes for the same product converge.
func (s *RecordStore) PutRow(ctx context.Context, row catalogue.Row) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("record store is not configured")
	}
	if row.ProductKey == "" {
		return fmt.Errorf("product key is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	product_key,
	postcode,
	category,
	name,
	price,
	regular_price,
	sale_price,
	saving,
	option_suffix,
	comparative_text,
	sale_option,
	offer_valid_text,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
ON CONFLICT (postcode, category, product_key) DO UPDATE SET
	name = EXCLUDED.name,
	price = EXCLUDED.price,
	regular_price = EXCLUDED.regular_price,
	sale_price = EXCLUDED.sale_price,
	saving = EXCLUDED.saving,
	option_suffix = EXCLUDED.option_suffix,
	comparative_text = EXCLUDED.comparative_text,
	sale_option = EXCLUDED.sale_option,
	offer_valid_text = EXCLUDED.offer_valid_text,
	updated_at = NOW()
`, s.table)

	if _, err := s.pool.Exec(ctx, query,
		row.ProductKey,
		row.Postcode,
		row.Category,
		row.Name,
		row.Price,
		row.RegularPrice,
		row.SalePrice,
		row.Saving,
		row.OptionSuffix,
		row.ComparativeText,
		row.SaleOption,
		row.OfferValidText,
	); err != nil {
		return fmt.Errorf("upsert catalogue row: %w", err)
	}
	return nil
}
