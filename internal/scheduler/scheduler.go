package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/mileusna/crontab"

	"github.com/slotter-org/cs-ai-agent/internal/logger"
	"github.com/slotter-org/cs-ai-agent/internal/services"
)

const (
	DefaultReminderCron = "* * * * *"
	ScanJobTimeout      = 50 * time.Second
	TriggerCron         = "cron"
)

// Scheduler runs the reminder scan on a cron expression inside the server.
type Scheduler struct {
	log       *logger.Logger
	ctab      *crontab.Crontab
	reminders services.ReminderService
	expr      string
}

func New(log *logger.Logger, reminders services.ReminderService, expr string) *Scheduler {
	if expr == "" {
		expr = DefaultReminderCron
	}
	return &Scheduler{
		log:       log.With("component", "Scheduler"),
		ctab:      crontab.New(),
		reminders: reminders,
		expr:      expr,
	}
}

// Run registers the scan job and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.ctab.AddJob(s.expr, func() { s.scan(ctx) }); err != nil {
		s.ctab.Shutdown()
		return fmt.Errorf("schedule reminder scan %q: %w", s.expr, err)
	}
	s.log.Info("Reminder scan scheduled", "cron", s.expr)

	<-ctx.Done()
	s.ctab.Shutdown()
	s.log.Info("Scheduler stopped")
	return nil
}

func (s *Scheduler) scan(parent context.Context) {
	if parent.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, ScanJobTimeout)
	defer cancel()
	if _, err := s.reminders.ScanAndNotify(ctx, TriggerCron); err != nil {
		s.log.Error("Scheduled reminder scan failed", "error", err)
	}
}
