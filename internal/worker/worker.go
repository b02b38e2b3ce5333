// Package worker implements the postcode scan execution loop.
package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/jmcallister/catalogue-scraper/internal/catalogue"
	"github.com/jmcallister/catalogue-scraper/internal/metrics"
	"github.com/jmcallister/catalogue-scraper/internal/store"
)

// Pacer gates the start of each scan job.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Prober checks that the catalogue site answers before a browser session
// is started.
type Prober interface {
	Check(ctx context.Context, url string) error
}

// Config controls Worker behavior.
type Config struct {
	CatalogueURL string
	Topic        string
}

// Worker consumes scan jobs and drives one browser session per postcode.
type Worker struct {
	queue     catalogue.Queue
	bots      catalogue.BotFactory
	writer    *store.Writer
	publisher catalogue.Publisher
	clock     catalogue.Clock
	pacer     Pacer
	prober    Prober
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Worker. pacer, prober, and publisher are optional.
func New(
	queue catalogue.Queue,
	bots catalogue.BotFactory,
	writer *store.Writer,
	publisher catalogue.Publisher,
	clock catalogue.Clock,
	pacer Pacer,
	prober Prober,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:     queue,
		bots:      bots,
		writer:    writer,
		publisher: publisher,
		clock:     clock,
		pacer:     pacer,
		prober:    prober,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run blocks, consuming scan jobs until the context finishes. A failed job
// never stops the loop; the next postcode is picked up regardless.
func (w *Worker) Run(ctx context.Context) {
	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued scan job", zap.String("postcode", job.Postcode))
		w.processJob(ctx, job)
	}
}

func (w *Worker) processJob(ctx context.Context, job catalogue.ScanJob) {
	log := w.logger.With(zap.String("postcode", job.Postcode))

	if w.pacer != nil {
		if err := w.pacer.Wait(ctx); err != nil {
			if ctx.Err() == nil {
				log.Error("rate limit wait failed", zap.Error(err))
			}
			metrics.ScanJobCompleted("canceled")
			return
		}
	}
	if w.prober != nil {
		if err := w.prober.Check(ctx, w.cfg.CatalogueURL); err != nil {
			log.Error("catalogue site unreachable", zap.Error(err))
			metrics.ScanJobCompleted("unreachable")
			return
		}
	}

	bot, err := w.bots(ctx, job.Postcode)
	if err != nil {
		log.Error("browser session start failed", zap.Error(err))
		metrics.ScanJobCompleted("failed")
		return
	}
	defer bot.Close()

	if err := w.navigate(ctx, bot, job.Postcode); err != nil {
		log.Error("postcode navigation failed", zap.Error(err))
		metrics.ScanJobCompleted("failed")
		return
	}

	categories := bot.CategoryList(ctx)
	if len(categories) == 0 {
		log.Warn("no categories found")
	}

	summary := catalogue.ScanSummary{Postcode: job.Postcode}
	for _, category := range categories {
		if !bot.OpenCategory(ctx, category) {
			log.Warn("category open failed", zap.String("category", category))
			summary.Failed++
			continue
		}
		result := bot.ExtractCategory(ctx, category)
		written := w.writer.WriteAll(ctx, job.Postcode, category, result.Records)
		metrics.ProductsExtracted(category, written)
		metrics.ObserveCategoryPages(result.PagesAdvanced)
		summary.Categories++
		summary.Products += written
		log.Info("category scraped",
			zap.String("category", category),
			zap.Int("products", written),
			zap.Int("pages", result.PagesAdvanced))
	}
	summary.FinishedAt = w.clock.Now()

	w.publishSummary(ctx, summary, log)
	metrics.ScanJobCompleted("succeeded")
	log.Info("postcode scan finished",
		zap.Int("categories", summary.Categories),
		zap.Int("products", summary.Products),
		zap.Int("failed_categories", summary.Failed))
}

// navigate walks the entry sequence that scopes the catalogue to one
// postcode. Any failure here abandons the job since nothing after it can
// produce postcode-correct data.
func (w *Worker) navigate(ctx context.Context, bot catalogue.Bot, postcode string) error {
	if err := bot.LandFirstPage(ctx, w.cfg.CatalogueURL); err != nil {
		return err
	}
	if err := bot.EnterPostcode(ctx, postcode); err != nil {
		return err
	}
	if err := bot.SelectFirstPostcodeOption(ctx); err != nil {
		return err
	}
	return bot.OpenCatalogue(ctx)
}

func (w *Worker) publishSummary(ctx context.Context, summary catalogue.ScanSummary, log *zap.Logger) {
	if w.publisher == nil || w.cfg.Topic == "" {
		return
	}
	id, err := w.publisher.Publish(ctx, w.cfg.Topic, summary)
	if err != nil {
		log.Warn("scan summary publish failed", zap.Error(err))
		return
	}
	log.Debug("scan summary published", zap.String("message_id", id))
}
