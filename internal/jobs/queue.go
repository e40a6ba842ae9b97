// Package jobs carries save-reminder requests from the HTTP handler to the
// background worker.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/slotter-org/cs-ai-agent/internal/services"
)

var (
	ErrQueueClosed = errors.New("save queue closed")
	ErrQueueFull   = errors.New("save queue full")
)

type SaveJob struct {
	Request    services.SaveRequest `json:"request"`
	EnqueuedAt time.Time            `json:"enqueued_at"`
}

// SaveQueue is a FIFO of save jobs. Dequeue blocks until a job arrives or
// ctx is done.
type SaveQueue interface {
	Enqueue(ctx context.Context, job SaveJob) error
	Dequeue(ctx context.Context) (SaveJob, error)
	Close() error
}
