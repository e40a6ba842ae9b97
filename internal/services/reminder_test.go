package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/slotter-org/cs-ai-agent/internal/logger"
	"github.com/slotter-org/cs-ai-agent/internal/repos"
	"github.com/slotter-org/cs-ai-agent/internal/testutil"
	"github.com/slotter-org/cs-ai-agent/internal/types"
	"github.com/slotter-org/cs-ai-agent/internal/utils"
)

type fakeEmail struct {
	mu            sync.Mutex
	fail          bool
	reminders     []string
	confirmations []int
}

func (f *fakeEmail) SendEmail(context.Context, string, string, string, string) error { return nil }

func (f *fakeEmail) SendTaskReminder(ctx context.Context, actionItem string, due time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reminders = append(f.reminders, actionItem)
	if f.fail {
		return errors.New("smtp down")
	}
	return nil
}

func (f *fakeEmail) SendSaveConfirmation(ctx context.Context, taskCount int, addedOn time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmations = append(f.confirmations, taskCount)
	return nil
}

type recordedEvent struct {
	kind string
	data interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) Publish(ctx context.Context, eventType string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{kind: eventType, data: data})
}

// 16:00Z is 10:00 on the -6h wall clock.
var scanNow = time.Date(2025, 2, 7, 16, 0, 0, 0, time.UTC)

type reminderFixture struct {
	db     *gorm.DB
	svc    ReminderService
	email  *fakeEmail
	events *fakePublisher
	tasks  repos.TaskRepo
}

func newReminderFixture(t *testing.T) *reminderFixture {
	t.Helper()
	gdb := testutil.NewTestDB(t)
	log := logger.NewNop()
	email := &fakeEmail{}
	events := &fakePublisher{}
	taskRepo := repos.NewTaskRepo(gdb, log)
	clock := utils.NewFixedOffsetClock(-6).WithNow(func() time.Time { return scanNow })
	svc := NewReminderService(log, gdb, repos.NewTranscriptRepo(gdb, log), taskRepo, email, nil, clock, events)
	return &reminderFixture{db: gdb, svc: svc, email: email, events: events, tasks: taskRepo}
}

func item(name, start string) types.ActionItem {
	return types.ActionItem{ActionItem: name, StartDatetime: start, EndDatetime: start}
}

func TestSaveTranscriptRoundTrip(t *testing.T) {
	f := newReminderFixture(t)
	ctx := context.Background()

	req := SaveRequest{
		TranscriptText: "weekly sync",
		UniqueID:       "u-1",
		TasksTimes: []types.ActionItem{
			{ActionItem: "A", StartDatetime: "2025-02-07T10:00:00Z", EndDatetime: "2025-02-07T12:00:00Z"},
			{ActionItem: "B", StartDatetime: "2025-02-08T09:00", EndDatetime: "2025-02-08T09:30"},
			{ActionItem: "C", StartDatetime: "2025-02-09 14:00:00", EndDatetime: ""},
		},
	}
	require.NoError(t, f.svc.SaveAndConfirm(ctx, req))

	done, err := f.svc.SaveStatus(ctx, "u-1")
	require.NoError(t, err)
	assert.True(t, done)

	tr, tasks, err := f.svc.SaveTranscript(ctx, req)
	require.NoError(t, err)
	require.Len(t, tr.TaskIDs(), 3)
	require.Len(t, tasks, 3)
	assert.Equal(t, "A", tasks[0].ActionItem)
	assert.True(t, time.Date(2025, 2, 7, 12, 0, 0, 0, time.UTC).Equal(tasks[0].EndDatetime))
	assert.True(t, tasks[2].StartDatetime.Equal(tasks[2].EndDatetime))
	for _, task := range tasks {
		assert.False(t, task.Sent)
		assert.False(t, task.Completed)
		assert.Equal(t, tr.ID, task.RelatedTranscriptRecordID)
	}
	assert.True(t, time.Date(2025, 2, 7, 10, 0, 0, 0, time.UTC).Equal(tr.DateAdded))

	var count int64
	require.NoError(t, f.db.Model(&types.Transcript{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	assert.Equal(t, []int{3}, f.email.confirmations)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, EventTranscriptSaved, f.events.events[0].kind)
}

func TestSaveTranscriptValidation(t *testing.T) {
	f := newReminderFixture(t)
	ctx := context.Background()

	err := f.svc.SaveAndConfirm(ctx, SaveRequest{TranscriptText: "  "})
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = f.svc.SaveTranscript(ctx, SaveRequest{TranscriptText: "x", TasksTimes: []types.ActionItem{item("bad", "soon")}})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.SaveStatus(ctx, "")
	assert.ErrorIs(t, err, ErrValidation)

	done, err := f.svc.SaveStatus(ctx, "never-saved")
	require.NoError(t, err)
	assert.False(t, done)
	assert.Empty(t, f.email.confirmations)
}

func TestScanAndNotifyRespectsLeadTime(t *testing.T) {
	f := newReminderFixture(t)
	ctx := context.Background()

	_, tasks, err := f.svc.SaveTranscript(ctx, SaveRequest{
		TranscriptText: "t",
		TasksTimes: []types.ActionItem{
			item("started", "2025-02-07T09:00:00Z"),
			item("edge", "2025-02-07T10:05:00Z"),
			item("later", "2025-02-07T10:06:00Z"),
			item("yesterday", "2025-02-06T10:00:00Z"),
		},
	})
	require.NoError(t, err)

	loaded, err := f.svc.ScanAndNotify(ctx, "test")
	require.NoError(t, err)
	assert.Len(t, loaded, 3)
	assert.ElementsMatch(t, []string{"started", "edge"}, f.email.reminders)

	sent := map[string]bool{}
	for _, task := range tasks {
		got, err := f.tasks.GetByID(ctx, nil, task.ID)
		require.NoError(t, err)
		sent[got.ActionItem] = got.Sent
	}
	assert.Equal(t, map[string]bool{"started": true, "edge": true, "later": false, "yesterday": false}, sent)

	_, err = f.svc.ScanAndNotify(ctx, "test")
	require.NoError(t, err)
	assert.Len(t, f.email.reminders, 2, "a task is reminded once")

	kinds := 0
	for _, e := range f.events.events {
		if e.kind == EventTaskReminderSent {
			kinds++
		}
	}
	assert.Equal(t, 2, kinds)
}

func TestScanAndNotifyMarksSentWhenEmailFails(t *testing.T) {
	f := newReminderFixture(t)
	f.email.fail = true
	ctx := context.Background()

	_, tasks, err := f.svc.SaveTranscript(ctx, SaveRequest{
		TranscriptText: "t",
		TasksTimes:     []types.ActionItem{item("due", "2025-02-07T10:01:00Z")},
	})
	require.NoError(t, err)

	_, err = f.svc.ScanAndNotify(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, []string{"due"}, f.email.reminders)

	got, err := f.tasks.GetByID(ctx, nil, tasks[0].ID)
	require.NoError(t, err)
	assert.True(t, got.Sent)
}
