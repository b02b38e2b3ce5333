// Package main wires together the catalogue scraper service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/jmcallister/catalogue-scraper/internal/api"
	"github.com/jmcallister/catalogue-scraper/internal/catalogue"
	"github.com/jmcallister/catalogue-scraper/internal/clock/system"
	"github.com/jmcallister/catalogue-scraper/internal/config"
	dedupmemory "github.com/jmcallister/catalogue-scraper/internal/dedup/memory"
	deduppostgres "github.com/jmcallister/catalogue-scraper/internal/dedup/postgres"
	"github.com/jmcallister/catalogue-scraper/internal/dispatcher"
	"github.com/jmcallister/catalogue-scraper/internal/extractor"
	"github.com/jmcallister/catalogue-scraper/internal/feed"
	feedpubsub "github.com/jmcallister/catalogue-scraper/internal/feed/pubsub"
	"github.com/jmcallister/catalogue-scraper/internal/hash/sha256"
	"github.com/jmcallister/catalogue-scraper/internal/id/uuid"
	"github.com/jmcallister/catalogue-scraper/internal/logging"
	"github.com/jmcallister/catalogue-scraper/internal/metrics"
	"github.com/jmcallister/catalogue-scraper/internal/navigator"
	"github.com/jmcallister/catalogue-scraper/internal/policy/ratelimit"
	"github.com/jmcallister/catalogue-scraper/internal/probe"
	pubsubpublisher "github.com/jmcallister/catalogue-scraper/internal/publisher/pubsub"
	queuememory "github.com/jmcallister/catalogue-scraper/internal/queue/memory"
	requestsmemory "github.com/jmcallister/catalogue-scraper/internal/requests/memory"
	requestspostgres "github.com/jmcallister/catalogue-scraper/internal/requests/postgres"
	"github.com/jmcallister/catalogue-scraper/internal/scheduler"
	storagegcs "github.com/jmcallister/catalogue-scraper/internal/storage/gcs"
	storagelocal "github.com/jmcallister/catalogue-scraper/internal/storage/local"
	storagememory "github.com/jmcallister/catalogue-scraper/internal/storage/memory"
	"github.com/jmcallister/catalogue-scraper/internal/store"
	storememory "github.com/jmcallister/catalogue-scraper/internal/store/memory"
	storepostgres "github.com/jmcallister/catalogue-scraper/internal/store/postgres"
	"github.com/jmcallister/catalogue-scraper/internal/worker"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := system.New()
	idGen := uuid.New()
	hasher := sha256.New()

	snapshots, err := buildSnapshotStore(ctx, cfg)
	if err != nil {
		logger.Fatal("snapshot store init failed", zap.Error(err))
	}

	var (
		postcodes catalogue.PostcodeSet
		records   catalogue.RecordStore
		requests  catalogue.RequestStore
	)
	switch cfg.DB.Provider {
	case "postgres":
		pgSet, err := deduppostgres.New(ctx, deduppostgres.Config{DSN: cfg.DB.DSN, MaxConns: cfg.DB.MaxConns})
		if err != nil {
			logger.Fatal("postcode set init failed", zap.Error(err))
		}
		defer pgSet.Close()
		pgRecords, err := storepostgres.NewRecordStore(ctx, storepostgres.Config{DSN: cfg.DB.DSN, MaxConns: cfg.DB.MaxConns})
		if err != nil {
			logger.Fatal("record store init failed", zap.Error(err))
		}
		defer pgRecords.Close()
		pgRequests, err := requestspostgres.New(ctx, requestspostgres.Config{DSN: cfg.DB.DSN, MaxConns: cfg.DB.MaxConns})
		if err != nil {
			logger.Fatal("request store init failed", zap.Error(err))
		}
		defer pgRequests.Close()
		postcodes, records, requests = pgSet, pgRecords, pgRequests
	default:
		postcodes = dedupmemory.NewPostcodeSet()
		records = storememory.NewRecordStore()
		requests = requestsmemory.NewStore()
	}

	queue := queuememory.NewQueue(cfg.Scraper.QueueDepth)
	writer := store.NewWriter(records, logger.Named("writer"))
	limiter := ratelimit.New(ratelimit.Config{RPS: cfg.Scraper.RPS, Burst: cfg.Scraper.Burst})

	var prober worker.Prober
	if cfg.Probe.Enabled {
		prober = probe.New(probe.Config{
			UserAgent: cfg.Browser.UserAgent,
			Timeout:   time.Duration(cfg.Probe.TimeoutSeconds) * time.Second,
		}, logger.Named("probe"))
	}

	navCfg := navigator.Config{
		Headless:            cfg.Browser.Headless,
		UserAgent:           cfg.Browser.UserAgent,
		NavTimeout:          time.Duration(cfg.Browser.NavTimeoutSec) * time.Second,
		PostcodeWait:        time.Duration(cfg.Browser.PostcodeWaitSec) * time.Second,
		SuggestionWait:      time.Duration(cfg.Browser.SuggestionWaitSec) * time.Second,
		NextControlWait:     time.Duration(cfg.Browser.NextControlWaitSec) * time.Second,
		CategorySettle:      time.Duration(cfg.Browser.CategorySettleMs) * time.Millisecond,
		ScrollSettle:        time.Duration(cfg.Browser.ScrollSettleMs) * time.Millisecond,
		RenderSettle:        time.Duration(cfg.Browser.RenderSettleMs) * time.Millisecond,
		MaxPagesPerCategory: cfg.Catalogue.MaxPagesPerCategory,
		SnapshotPrefix:      cfg.Snapshots.Prefix,
	}
	extract := extractor.New(extractor.DefaultSelectors())
	botLogger := logger.Named("navigator")
	bots := func(ctx context.Context, postcode string) (catalogue.Bot, error) {
		return navigator.NewSession(ctx, postcode, navCfg, navigator.DefaultSelectors(), extract, snapshots, hasher, botLogger)
	}

	var summaries catalogue.Publisher
	if cfg.PubSub.Enabled {
		pub, err := pubsubpublisher.New(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Fatal("pubsub publisher init failed", zap.Error(err))
		}
		defer func() {
			_ = pub.Close()
		}()
		summaries = pub
	}

	workerCfg := worker.Config{
		CatalogueURL: cfg.Catalogue.URL,
		Topic:        cfg.PubSub.TopicName,
	}
	var workers []*worker.Worker
	for i := 0; i < cfg.Scraper.Concurrency; i++ {
		workers = append(workers, worker.New(
			queue,
			bots,
			writer,
			summaries,
			clock,
			limiter,
			prober,
			workerCfg,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	dispatch := dispatcher.New(queue, workers)

	consumer := feed.NewConsumer(postcodes, queue, clock, logger.Named("feed"))

	// The change feed either rides Pub/Sub or is handled in process.
	var notifier catalogue.ChangeNotifier
	if cfg.PubSub.Enabled && summaries != nil {
		notifier = feed.NewPublisherNotifier(summaries, cfg.PubSub.TopicName)
		source, err := feedpubsub.New(ctx, cfg.PubSub.ProjectID, cfg.PubSub.Subscription, consumer, logger.Named("feed-source"))
		if err != nil {
			logger.Fatal("change feed source init failed", zap.Error(err))
		}
		defer func() {
			_ = source.Close()
		}()
		go func() {
			if err := source.Run(ctx); err != nil {
				logger.Error("change feed source stopped", zap.Error(err))
				stop()
			}
		}()
	} else {
		notifier = feed.NewDirectNotifier(consumer)
	}

	apiServer := api.NewServer(requests, notifier, idGen, clock, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("dispatcher started", zap.Int("workers", len(workers)))
		dispatch.Run(ctx)
	}()

	// Local mode skips the periodic re-scan loop; scans still trigger off
	// the change feed.
	if !cfg.Scheduler.Local {
		sched := scheduler.New(postcodes, queue, clock, cfg.RescanWindow(), cfg.CheckInterval(), logger.Named("scheduler"))
		go sched.Run(ctx)
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	queue.Close()
	logger.Info("shutdown complete")
}

func buildSnapshotStore(ctx context.Context, cfg config.Config) (catalogue.BlobStore, error) {
	switch cfg.Snapshots.Provider {
	case "local":
		return storagelocal.New(storagelocal.Config{BaseDir: cfg.Snapshots.BaseDir})
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		return storagegcs.New(client, storagegcs.Config{Bucket: cfg.Snapshots.GCSBucket})
	default:
		return storagememory.NewBlobStore(), nil
	}
}
