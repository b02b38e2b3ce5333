// Package memory provides in-memory persistence for development/testing.
package memory

import (
	"context"
	"sync"

	"github.com/jmcallister/catalogue-scraper/internal/catalogue"
)

type rowKey struct {
	postcode   string
	category   string
	productKey string
}

// RecordStore keeps rows in a map keyed by (postcode, category, product).
// Puts overwrite by key, matching the idempotence the pipeline relies on.
type RecordStore struct {
	mu   sync.RWMutex
	rows map[rowKey]catalogue.Row
}

// NewRecordStore constructs an empty store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		rows: make(map[rowKey]catalogue.Row),
	}
}

// PutRow upserts one row.
func (s *RecordStore) PutRow(_ context.Context, row catalogue.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[rowKey{row.Postcode, row.Category, row.ProductKey}] = row
	return nil
}

// Rows returns a copy of every stored row.
func (s *RecordStore) Rows() []catalogue.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalogue.Row, 0, len(s.rows))
	for _, row := range s.rows {
		out = append(out, row)
	}
	return out
}

// RowsFor returns the rows stored for one (postcode, category) pair.
func (s *RecordStore) RowsFor(postcode, category string) []catalogue.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []catalogue.Row
	for key, row := range s.rows {
		if key.postcode == postcode && key.category == category {
			out = append(out, row)
		}
	}
	return out
}
