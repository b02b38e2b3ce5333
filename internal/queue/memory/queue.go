// Package memory provides queue implementations for local development.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jmcallister/catalogue-scraper/internal/catalogue"
)

// ErrClosed is returned by Enqueue once the queue has been closed.
var ErrClosed = errors.New("queue closed")

// Queue is a bounded in-memory scan queue with context-aware operations.
type Queue struct {
	ch     chan catalogue.ScanJob
	mu     sync.RWMutex
	closed bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch: make(chan catalogue.ScanJob, capacity),
	}
}

// Enqueue pushes a scan job into the queue or returns if the context ends.
// After Close it returns ErrClosed; the read lock held across the send
// keeps Close from closing the channel under a blocked producer.
func (q *Queue) Enqueue(ctx context.Context, job catalogue.ScanJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- job:
		return nil
	}
}

// Dequeue pops the next scan job, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (catalogue.ScanJob, error) {
	select {
	case <-ctx.Done():
		return catalogue.ScanJob{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case job, ok := <-q.ch:
		if !ok {
			return catalogue.ScanJob{}, ErrClosed
		}
		return job, nil
	}
}

// Close closes the underlying channel for shutdown. It waits for in-flight
// enqueues to drain, so producer contexts must be cancelled first.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
