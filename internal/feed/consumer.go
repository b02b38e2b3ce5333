// Package feed consumes request change events and turns inserts into scan jobs.
package feed

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jmcallister/catalogue-scraper/internal/catalogue"
	"github.com/jmcallister/catalogue-scraper/internal/metrics"
)

// Consumer applies the insert-only, first-seen-only policy to the change
// feed: only INSERT events for postcodes never seen before produce a job.
type Consumer struct {
	postcodes catalogue.PostcodeSet
	queue     catalogue.Queue
	clock     catalogue.Clock
	logger    *zap.Logger
}

// NewConsumer constructs a Consumer.
func NewConsumer(postcodes catalogue.PostcodeSet, queue catalogue.Queue, clock catalogue.Clock, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		postcodes: postcodes,
		queue:     queue,
		clock:     clock,
		logger:    logger,
	}
}

// HandleEvent processes one change event. Non-insert events and already
// known postcodes are skipped without error; only enqueue or store
// failures propagate so the source can redeliver.
func (c *Consumer) HandleEvent(ctx context.Context, ev catalogue.ChangeEvent) error {
	op := string(ev.Op)
	if ev.Op != catalogue.OpInsert {
		metrics.FeedEvent(op, "skipped")
		c.logger.Debug("ignoring non-insert change event", zap.String("op", op))
		return nil
	}
	postcode := strings.TrimSpace(ev.NewValue.Postcode)
	if postcode == "" {
		metrics.FeedEvent(op, "skipped")
		c.logger.Warn("insert event without postcode")
		return nil
	}

	isNew, err := c.postcodes.RecordIfNew(ctx, postcode)
	if err != nil {
		metrics.FeedEvent(op, "error")
		return err
	}
	if !isNew {
		metrics.FeedEvent(op, "duplicate")
		c.logger.Debug("postcode already known", zap.String("postcode", postcode))
		return nil
	}

	job := catalogue.ScanJob{
		Postcode:  postcode,
		Submitted: c.now(),
	}
	if err := c.queue.Enqueue(ctx, job); err != nil {
		metrics.FeedEvent(op, "error")
		return err
	}
	metrics.FeedEvent(op, "enqueued")
	c.logger.Info("new postcode enqueued", zap.String("postcode", postcode))
	return nil
}

func (c *Consumer) now() time.Time {
	if c.clock == nil {
		return time.Now().UTC()
	}
	return c.clock.Now()
}
