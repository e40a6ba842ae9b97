package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotter-org/cs-ai-agent/internal/logger"
	"github.com/slotter-org/cs-ai-agent/internal/repos"
	"github.com/slotter-org/cs-ai-agent/internal/testutil"
	"github.com/slotter-org/cs-ai-agent/internal/types"
	"github.com/slotter-org/cs-ai-agent/internal/utils"
)

func TestTaskDataDeleteKeepsTranscriptConsistent(t *testing.T) {
	gdb := testutil.NewTestDB(t)
	log := logger.NewNop()
	trRepo := repos.NewTranscriptRepo(gdb, log)
	taskRepo := repos.NewTaskRepo(gdb, log)
	clock := utils.NewFixedOffsetClock(-6).WithNow(func() time.Time { return scanNow })
	saver := NewReminderService(log, gdb, trRepo, taskRepo, &fakeEmail{}, nil, clock, nil)
	data := NewTaskDataService(log, gdb, trRepo, taskRepo)
	ctx := context.Background()

	tr, tasks, err := saver.SaveTranscript(ctx, SaveRequest{
		TranscriptText: "t",
		UniqueID:       "u-del",
		TasksTimes: []types.ActionItem{
			item("one", "2025-02-07T11:00:00Z"),
			item("two", "2025-02-07T12:00:00Z"),
		},
	})
	require.NoError(t, err)

	require.NoError(t, data.DeleteTask(ctx, tasks[0].ID.String()))

	got, err := trRepo.GetByID(ctx, nil, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{tasks[1].ID}, got.TaskIDs())

	found, err := data.FindTasks(ctx, []string{tasks[0].ID.String(), tasks[1].ID.String()})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "two", found[0].ActionItem)

	assert.ErrorIs(t, data.DeleteTask(ctx, tasks[0].ID.String()), repos.ErrNotFound)
	assert.ErrorIs(t, data.DeleteTask(ctx, "not-a-uuid"), ErrValidation)
}

func TestTaskDataUpdateAndList(t *testing.T) {
	gdb := testutil.NewTestDB(t)
	log := logger.NewNop()
	trRepo := repos.NewTranscriptRepo(gdb, log)
	taskRepo := repos.NewTaskRepo(gdb, log)
	clock := utils.NewFixedOffsetClock(-6).WithNow(func() time.Time { return scanNow })
	saver := NewReminderService(log, gdb, trRepo, taskRepo, &fakeEmail{}, nil, clock, nil)
	data := NewTaskDataService(log, gdb, trRepo, taskRepo)
	ctx := context.Background()

	_, tasks, err := saver.SaveTranscript(ctx, SaveRequest{TranscriptText: "t", TasksTimes: []types.ActionItem{item("one", "2025-02-07T11:00:00Z")}})
	require.NoError(t, err)

	done := true
	updated, err := data.UpdateTask(ctx, tasks[0].ID.String(), types.TaskPatch{Completed: &done})
	require.NoError(t, err)
	assert.True(t, updated.Completed)

	_, err = data.UpdateTask(ctx, uuid.NewString(), types.TaskPatch{Completed: &done})
	assert.ErrorIs(t, err, repos.ErrNotFound)

	all, err := data.ListTranscripts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestConversationSaveTruncatesName(t *testing.T) {
	gdb := testutil.NewTestDB(t)
	log := logger.NewNop()
	clock := utils.NewFixedOffsetClock(-6).WithNow(func() time.Time { return scanNow })
	svc := NewConversationService(log, repos.NewConversationRepo(gdb, log), clock)
	ctx := context.Background()

	long := "Please summarize the meeting we had yesterday about the roadmap"
	conv, err := svc.Save(ctx, "thread_1", long)
	require.NoError(t, err)
	assert.Equal(t, long[:45], conv.ChatName)

	_, err = svc.Save(ctx, "", "x")
	assert.ErrorIs(t, err, ErrValidation)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "thread_1", all[0].ThreadID)
}
