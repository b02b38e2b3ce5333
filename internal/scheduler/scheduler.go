// Package scheduler drives the periodic full re-scan of known postcodes.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jmcallister/catalogue-scraper/internal/catalogue"
)

// IsRescanDue reports whether a full re-scan should run. A zero
// lastCompleted means no scan has ever finished, which is always due.
// Otherwise a scan is due once strictly more than window has elapsed.
func IsRescanDue(lastCompleted, now time.Time, window time.Duration) bool {
	if lastCompleted.IsZero() {
		return true
	}
	return now.Sub(lastCompleted) > window
}

// Scheduler periodically re-enqueues every known postcode.
type Scheduler struct {
	postcodes catalogue.PostcodeSet
	queue     catalogue.Queue
	clock     catalogue.Clock
	window    time.Duration
	interval  time.Duration
	logger    *zap.Logger
}

// New constructs a Scheduler. window is the minimum age of the last
// completed scan before the next one starts; interval is how often the
// check runs.
func New(postcodes catalogue.PostcodeSet, queue catalogue.Queue, clock catalogue.Clock, window, interval time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		postcodes: postcodes,
		queue:     queue,
		clock:     clock,
		window:    window,
		interval:  interval,
		logger:    logger,
	}
}

// RunOnce checks whether a re-scan is due and, if so, enqueues a job for
// every known postcode and records the completion time. Returns the
// number of jobs enqueued.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	last, err := s.postcodes.LastScanCompleted(ctx)
	if err != nil {
		return 0, err
	}
	now := s.clock.Now()
	if !IsRescanDue(last, now, s.window) {
		s.logger.Debug("re-scan not due",
			zap.Time("last_completed", last),
			zap.Duration("window", s.window))
		return 0, nil
	}

	postcodes, err := s.postcodes.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	enqueued := 0
	for _, pc := range postcodes {
		job := catalogue.ScanJob{
			Postcode:  pc,
			Submitted: now,
		}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			s.logger.Error("enqueue re-scan job failed",
				zap.String("postcode", pc),
				zap.Error(err))
			continue
		}
		enqueued++
	}
	if err := s.postcodes.MarkScanCompleted(ctx, now); err != nil {
		return enqueued, err
	}
	s.logger.Info("re-scan sweep enqueued",
		zap.Int("postcodes", enqueued),
		zap.Time("completed_at", now))
	return enqueued, nil
}

// Run loops until ctx is cancelled, checking every interval whether a
// re-scan is due.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started",
		zap.Duration("window", s.window),
		zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("re-scan check failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping")
			return
		case <-ticker.C:
		}
	}
}
