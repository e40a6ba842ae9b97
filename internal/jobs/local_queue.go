package jobs

import (
	"context"
	"sync"

	"github.com/slotter-org/cs-ai-agent/internal/metrics"
)

// LocalQueue is the in-process fallback used when Redis is unavailable.
// Jobs still queued at shutdown are lost.
type LocalQueue struct {
	ch     chan SaveJob
	done   chan struct{}
	closed sync.Once
}

func NewLocalQueue(size int) *LocalQueue {
	if size <= 0 {
		size = 64
	}
	return &LocalQueue{
		ch:   make(chan SaveJob, size),
		done: make(chan struct{}),
	}
}

func (q *LocalQueue) Enqueue(ctx context.Context, job SaveJob) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	select {
	case q.ch <- job:
		metrics.SaveQueueDepth.Set(float64(len(q.ch)))
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (q *LocalQueue) Dequeue(ctx context.Context) (SaveJob, error) {
	select {
	case job := <-q.ch:
		metrics.SaveQueueDepth.Set(float64(len(q.ch)))
		return job, nil
	case <-q.done:
		return SaveJob{}, ErrQueueClosed
	case <-ctx.Done():
		return SaveJob{}, ctx.Err()
	}
}

func (q *LocalQueue) Close() error {
	q.closed.Do(func() { close(q.done) })
	return nil
}
