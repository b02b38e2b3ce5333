// Package main hosts the catalogue scraper service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, and request management endpoints. Submissions are
//     validated, persisted via the RequestStore, and emitted onto the change feed as insert events.
//   - Change feed: internal/feed consumes insert events, deduplicates postcodes against the append-only PostcodeSet,
//     and enqueues one scan job per never-seen postcode. The feed rides Pub/Sub when enabled, otherwise events are
//     handled in process.
//   - Dispatcher & queue: scan jobs flow through a bounded in-memory queue sized by config.Scraper.QueueDepth and are
//     fanned out to a fixed worker pool sized by config.Scraper.Concurrency. Context cancellation stops workers
//     cleanly on shutdown.
//   - Scrape pipeline: each worker optionally probes site reachability with a plain HTTP GET, then drives a dedicated
//     Chromedp browser session through postcode entry, autocomplete selection, and per-category pagination. Rendered
//     pages are parsed with goquery; missing fields default to "NA".
//   - Persistence & fanout: product rows are upserted keyed by (postcode, category, product) into memory or Postgres.
//     Diagnostic snapshots of failed navigation steps go to the configured BlobStore (memory/local/GCS). A scan
//     summary is published to Pub/Sub when a topic is configured.
//   - Scheduling: a background loop re-enqueues every known postcode once the last completed sweep is older than the
//     configured staleness window. Local mode disables the loop.
//   - Configuration & plumbing: Viper populates config from env/files; zap provides structured logging; Prometheus
//     metrics are exported via the metrics middleware and /metrics handler.
//
// Operational notes:
//   - Concurrency model: bounded queue + fixed worker pool; each job owns its browser session exclusively. Shutdown is
//     coordinated via context cancellation propagated from main through dispatcher to workers.
//   - Rate limiting: a shared token bucket paces scan job starts against the catalogue site.
//   - Observability: zap logs carry postcodes and categories at key transitions; Prometheus counters/histograms track
//     API and scrape activity.
//
// Quick checklist:
//   - Configure env vars: CATALOGUE_SERVER_PORT, CATALOGUE_CATALOGUE_URL (required), CATALOGUE_SCRAPER_CONCURRENCY,
//     CATALOGUE_DB_PROVIDER/DSN, snapshots (CATALOGUE_SNAPSHOTS_*), and pubsub settings when running beyond memory.
//   - Run locally: go run ./cmd/cataloguescraper -config config.yaml (or rely solely on env overrides).
package main
