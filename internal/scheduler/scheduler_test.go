package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotter-org/cs-ai-agent/internal/logger"
	"github.com/slotter-org/cs-ai-agent/internal/services"
	"github.com/slotter-org/cs-ai-agent/internal/types"
)

type countingReminders struct {
	services.ReminderService
	scans   atomic.Int32
	trigger atomic.Value
}

func (c *countingReminders) ScanAndNotify(ctx context.Context, trigger string) ([]*types.Task, error) {
	c.scans.Add(1)
	c.trigger.Store(trigger)
	return nil, nil
}

func TestRunRejectsBadExpression(t *testing.T) {
	s := New(logger.NewNop(), &countingReminders{}, "every minute please")
	err := s.Run(context.Background())
	assert.Error(t, err)
}

func TestScanUsesCronTrigger(t *testing.T) {
	rec := &countingReminders{}
	s := New(logger.NewNop(), rec, "")
	assert.Equal(t, DefaultReminderCron, s.expr)

	s.scan(context.Background())
	require.Equal(t, int32(1), rec.scans.Load())
	assert.Equal(t, TriggerCron, rec.trigger.Load())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.scan(ctx)
	assert.Equal(t, int32(1), rec.scans.Load(), "no scan after shutdown")
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New(logger.NewNop(), &countingReminders{}, DefaultReminderCron)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
