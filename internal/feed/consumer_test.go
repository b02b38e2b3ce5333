package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jmcallister/catalogue-scraper/internal/catalogue"
	dedupmemory "github.com/jmcallister/catalogue-scraper/internal/dedup/memory"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type captureQueue struct {
	mu   sync.Mutex
	jobs []catalogue.ScanJob
	err  error
}

func (q *captureQueue) Enqueue(_ context.Context, job catalogue.ScanJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *captureQueue) Dequeue(context.Context) (catalogue.ScanJob, error) {
	return catalogue.ScanJob{}, context.Canceled
}

func newConsumer(t *testing.T, queue *captureQueue) (*Consumer, *dedupmemory.PostcodeSet) {
	t.Helper()
	set := dedupmemory.NewPostcodeSet()
	now := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	return NewConsumer(set, queue, fixedClock{now: now}, zap.NewNop()), set
}

func TestHandleEventInsertEnqueuesNewPostcode(t *testing.T) {
	t.Parallel()

	queue := &captureQueue{}
	c, set := newConsumer(t, queue)

	ev := catalogue.ChangeEvent{
		Op:       catalogue.OpInsert,
		NewValue: catalogue.ChangeValue{Postcode: "3220"},
	}
	require.NoError(t, c.HandleEvent(context.Background(), ev))
	require.Len(t, queue.jobs, 1)
	require.Equal(t, "3220", queue.jobs[0].Postcode)

	known, err := set.ListAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"3220"}, known)
}

func TestHandleEventDuplicatePostcodeSkipped(t *testing.T) {
	t.Parallel()

	queue := &captureQueue{}
	c, _ := newConsumer(t, queue)

	ev := catalogue.ChangeEvent{
		Op:       catalogue.OpInsert,
		NewValue: catalogue.ChangeValue{Postcode: "3220"},
	}
	require.NoError(t, c.HandleEvent(context.Background(), ev))
	require.NoError(t, c.HandleEvent(context.Background(), ev))
	require.Len(t, queue.jobs, 1)
}

func TestHandleEventIgnoresNonInsertOps(t *testing.T) {
	t.Parallel()

	queue := &captureQueue{}
	c, set := newConsumer(t, queue)

	for _, op := range []catalogue.ChangeOp{catalogue.OpModify, catalogue.OpRemove} {
		ev := catalogue.ChangeEvent{
			Op:       op,
			NewValue: catalogue.ChangeValue{Postcode: "3220"},
		}
		require.NoError(t, c.HandleEvent(context.Background(), ev))
	}
	require.Empty(t, queue.jobs)

	known, err := set.ListAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, known)
}

func TestHandleEventIgnoresBlankPostcode(t *testing.T) {
	t.Parallel()

	queue := &captureQueue{}
	c, _ := newConsumer(t, queue)

	ev := catalogue.ChangeEvent{
		Op:       catalogue.OpInsert,
		NewValue: catalogue.ChangeValue{Postcode: "   "},
	}
	require.NoError(t, c.HandleEvent(context.Background(), ev))
	require.Empty(t, queue.jobs)
}

func TestHandleEventEnqueueFailurePropagates(t *testing.T) {
	t.Parallel()

	queue := &captureQueue{err: errors.New("queue full")}
	c, _ := newConsumer(t, queue)

	ev := catalogue.ChangeEvent{
		Op:       catalogue.OpInsert,
		NewValue: catalogue.ChangeValue{Postcode: "3220"},
	}
	require.Error(t, c.HandleEvent(context.Background(), ev))
}

func TestDirectNotifierDelegates(t *testing.T) {
	t.Parallel()

	queue := &captureQueue{}
	c, _ := newConsumer(t, queue)
	n := NewDirectNotifier(c)

	ev := catalogue.ChangeEvent{
		Op:       catalogue.OpInsert,
		NewValue: catalogue.ChangeValue{Postcode: "2000"},
	}
	require.NoError(t, n.NotifyChange(context.Background(), ev))
	require.Len(t, queue.jobs, 1)
}
