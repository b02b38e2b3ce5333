// Package metrics exposes Prometheus collectors for the scraping pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scanJobsTotal              *prometheus.CounterVec
	productsExtractedTotal     *prometheus.CounterVec
	categoryPages              prometheus.Histogram
	snapshotsCapturedTotal     *prometheus.CounterVec
	feedEventsTotal            *prometheus.CounterVec
	rowWriteFailuresTotal      prometheus.Counter
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scanJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalogue_scan_jobs_total",
				Help: "Total number of postcode scan jobs processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		productsExtractedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalogue_products_extracted_total",
				Help: "Total number of product records extracted, labeled by category.",
			},
			[]string{"category"},
		)

		categoryPages = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "catalogue_category_pages",
				Help:    "Histogram of pagination advances consumed per category.",
				Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
			},
		)

		snapshotsCapturedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalogue_snapshots_captured_total",
				Help: "Total diagnostic snapshots captured, labeled by failing step.",
			},
			[]string{"step"},
		)

		feedEventsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalogue_feed_events_total",
				Help: "Total change feed events consumed, labeled by op and outcome.",
			},
			[]string{"op", "outcome"},
		)

		rowWriteFailuresTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "catalogue_row_write_failures_total",
				Help: "Total per-record store write failures.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ScanJobCompleted records one finished scan job.
func ScanJobCompleted(outcome string) {
	if scanJobsTotal == nil {
		return
	}
	scanJobsTotal.WithLabelValues(outcome).Inc()
}

// ProductsExtracted adds to the per-category extraction counter.
func ProductsExtracted(category string, n int) {
	if productsExtractedTotal == nil || n <= 0 {
		return
	}
	productsExtractedTotal.WithLabelValues(category).Add(float64(n))
}

// ObserveCategoryPages records the pagination depth of one category.
func ObserveCategoryPages(pages int) {
	if categoryPages == nil {
		return
	}
	categoryPages.Observe(float64(pages))
}

// SnapshotCaptured records a diagnostic snapshot write.
func SnapshotCaptured(step string) {
	if snapshotsCapturedTotal == nil {
		return
	}
	snapshotsCapturedTotal.WithLabelValues(step).Inc()
}

// FeedEvent records one consumed change feed event.
func FeedEvent(op, outcome string) {
	if feedEventsTotal == nil {
		return
	}
	feedEventsTotal.WithLabelValues(op, outcome).Inc()
}

// RowWriteFailed counts one failed record write.
func RowWriteFailed() {
	if rowWriteFailuresTotal == nil {
		return
	}
	rowWriteFailuresTotal.Inc()
}

// ObserveHTTPRequest records a completed HTTP request.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if httpRequestsTotal == nil || httpRequestDurationSeconds == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
