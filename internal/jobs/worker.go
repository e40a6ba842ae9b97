package jobs

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/slotter-org/cs-ai-agent/internal/logger"
	"github.com/slotter-org/cs-ai-agent/internal/metrics"
	"github.com/slotter-org/cs-ai-agent/internal/services"
)

const (
	defaultJobTimeout = 2 * time.Minute
	retryBackoff      = time.Second
)

// Worker drains the save queue through the reminder service.
type Worker struct {
	log         *logger.Logger
	queue       SaveQueue
	reminders   services.ReminderService
	concurrency int
	jobTimeout  time.Duration
}

func NewWorker(log *logger.Logger, queue SaveQueue, reminders services.ReminderService, concurrency int) *Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Worker{
		log:         log.With("component", "SaveWorker"),
		queue:       queue,
		reminders:   reminders,
		concurrency: concurrency,
		jobTimeout:  defaultJobTimeout,
	}
}

// Run blocks until ctx is cancelled or the queue is closed.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("Save worker started", "concurrency", w.concurrency)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		g.Go(func() error { return w.loop(gctx) })
	}
	err := g.Wait()
	w.log.Info("Save worker stopped")
	return err
}

func (w *Worker) loop(ctx context.Context) error {
	for {
		job, err := w.queue.Dequeue(ctx)
		switch {
		case err == nil:
			w.process(ctx, job)
		case errors.Is(err, ErrQueueClosed), ctx.Err() != nil:
			return nil
		default:
			w.log.Warn("Dequeue failed, retrying", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(retryBackoff):
			}
		}
	}
}

func (w *Worker) process(ctx context.Context, job SaveJob) {
	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	log := w.log.With("uniqueID", job.Request.UniqueID)
	if err := w.reminders.SaveAndConfirm(jobCtx, job.Request); err != nil {
		metrics.SaveJobsTotal.WithLabelValues("error").Inc()
		log.Error("Save job failed", "error", err, "queuedFor", time.Since(job.EnqueuedAt))
		return
	}
	metrics.SaveJobsTotal.WithLabelValues("ok").Inc()
	log.Info("Save job done", "tasks", len(job.Request.TasksTimes))
}
