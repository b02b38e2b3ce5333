// Package store persists extracted product records as normalized rows.
package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/jmcallister/catalogue-scraper/internal/catalogue"
	"github.com/jmcallister/catalogue-scraper/internal/metrics"
)

// Writer normalizes product records into rows and writes them best-effort.
type Writer struct {
	records catalogue.RecordStore
	logger  *zap.Logger
}

// NewWriter constructs a Writer over the given record store.
func NewWriter(records catalogue.RecordStore, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{
		records: records,
		logger:  logger,
	}
}

// WriteAll persists one row per record, keyed (postcode, category,
// productKey). Writes are attempted per record: a failure is logged and
// counted but never aborts the rest of the batch. Returns the number of
// rows written.
func (w *Writer) WriteAll(ctx context.Context, postcode, category string, records []catalogue.ProductRecord) int {
	written := 0
	for _, rec := range records {
		row := catalogue.NormalizeRow(postcode, category, rec)
		if err := w.records.PutRow(ctx, row); err != nil {
			metrics.RowWriteFailed()
			w.logger.Error("row write failed",
				zap.String("postcode", postcode),
				zap.String("category", category),
				zap.String("product_key", row.ProductKey),
				zap.Error(err))
			continue
		}
		written++
	}
	return written
}
