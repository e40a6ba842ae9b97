package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/slotter-org/cs-ai-agent/internal/logger"
	"github.com/slotter-org/cs-ai-agent/internal/repos"
	"github.com/slotter-org/cs-ai-agent/internal/types"
)

const recentTranscriptsLimit = 100

// TaskDataService backs the data browsing and task editing routes.
type TaskDataService interface {
	ListTranscripts(ctx context.Context) ([]*types.Transcript, error)
	FindTasks(ctx context.Context, ids []string) ([]*types.Task, error)
	UpdateTask(ctx context.Context, id string, patch types.TaskPatch) (*types.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

type taskDataService struct {
	log            *logger.Logger
	db             *gorm.DB
	transcriptRepo repos.TranscriptRepo
	taskRepo       repos.TaskRepo
}

func NewTaskDataService(log *logger.Logger, db *gorm.DB, transcriptRepo repos.TranscriptRepo, taskRepo repos.TaskRepo) TaskDataService {
	return &taskDataService{
		log:            log.With("service", "TaskDataService"),
		db:             db,
		transcriptRepo: transcriptRepo,
		taskRepo:       taskRepo,
	}
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid id %q", ErrValidation, raw)
	}
	return id, nil
}

func (ts *taskDataService) ListTranscripts(ctx context.Context) ([]*types.Transcript, error) {
	return ts.transcriptRepo.ListRecent(ctx, nil, recentTranscriptsLimit)
}

func (ts *taskDataService) FindTasks(ctx context.Context, ids []string) ([]*types.Task, error) {
	parsed := make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		id, err := parseID(raw)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, id)
	}
	return ts.taskRepo.GetByIDs(ctx, nil, parsed)
}

func (ts *taskDataService) UpdateTask(ctx context.Context, id string, patch types.TaskPatch) (*types.Task, error) {
	taskID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	task, err := ts.taskRepo.Update(ctx, nil, taskID, patch)
	if err != nil {
		if !errors.Is(err, repos.ErrNotFound) {
			ts.log.Error("Failed to update task", "taskID", taskID, "error", err)
		}
		return nil, err
	}
	return task, nil
}

// DeleteTask removes the task and its id from the owning transcript in one
// transaction, with the transcript row locked.
func (ts *taskDataService) DeleteTask(ctx context.Context, id string) error {
	taskID, err := parseID(id)
	if err != nil {
		return err
	}
	return ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := ts.taskRepo.GetByID(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if task.RelatedTranscriptRecordID != uuid.Nil {
			err := ts.transcriptRepo.RemoveTaskID(ctx, tx, task.RelatedTranscriptRecordID, taskID)
			if err != nil && !errors.Is(err, repos.ErrNotFound) {
				return err
			}
		}
		if err := ts.taskRepo.Delete(ctx, tx, taskID); err != nil {
			return err
		}
		ts.log.Info("Task deleted", "taskID", taskID, "transcriptID", task.RelatedTranscriptRecordID)
		return nil
	})
}
