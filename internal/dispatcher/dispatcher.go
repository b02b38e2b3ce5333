// Package dispatcher manages worker fan-out over the scan job queue.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmcallister/catalogue-scraper/internal/catalogue"
	"github.com/jmcallister/catalogue-scraper/internal/worker"
)

// Dispatcher fans out queued scan jobs to a pool of workers.
type Dispatcher struct {
	queue   catalogue.Queue
	workers []*worker.Worker
}

// New creates a Dispatcher.
func New(queue catalogue.Queue, workers []*worker.Worker) *Dispatcher {
	return &Dispatcher{
		queue:   queue,
		workers: workers,
	}
}

// Run starts all workers and blocks until the context finishes.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}
	<-ctx.Done()
	wg.Wait()
}

// Enqueue proxies to the underlying queue.
func (d *Dispatcher) Enqueue(ctx context.Context, job catalogue.ScanJob) error {
	if err := d.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}
