package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/slotter-org/cs-ai-agent/internal/logger"
	"github.com/slotter-org/cs-ai-agent/internal/types"
)

type TaskRepo interface {
	CreateTasks(ctx context.Context, tx *gorm.DB, tasks []*types.Task) ([]*types.Task, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Task, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Task, error)
	ListByTranscriptID(ctx context.Context, tx *gorm.DB, transcriptID uuid.UUID) ([]*types.Task, error)
	ListStartingBetween(ctx context.Context, tx *gorm.DB, from, to time.Time) ([]*types.Task, error)
	Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, patch types.TaskPatch) (*types.Task, error)
	MarkSent(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type taskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRepo(db *gorm.DB, baseLog *logger.Logger) TaskRepo {
	return &taskRepo{
		db:  db,
		log: baseLog.With("repo", "TaskRepo"),
	}
}

func (tr *taskRepo) CreateTasks(ctx context.Context, tx *gorm.DB, tasks []*types.Task) ([]*types.Task, error) {
	if tx == nil {
		tx = tr.db
	}
	if len(tasks) == 0 {
		return tasks, nil
	}
	for _, t := range tasks {
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
	}
	if err := tx.WithContext(ctx).Create(&tasks).Error; err != nil {
		tr.log.Error("failed to create tasks", "count", len(tasks), "error", err)
		return nil, err
	}
	return tasks, nil
}

func (tr *taskRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Task, error) {
	if tx == nil {
		tx = tr.db
	}
	var t types.Task
	if err := tx.WithContext(ctx).
		Where("id = ?", id).
		First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// GetByIDs returns the tasks in the order of ids. Ids with no matching row
// are skipped.
func (tr *taskRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Task, error) {
	if tx == nil {
		tx = tr.db
	}
	if len(ids) == 0 {
		return []*types.Task{}, nil
	}
	var found []*types.Task
	if err := tx.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&found).Error; err != nil {
		tr.log.Error("failed to get tasks by ids", "error", err)
		return nil, err
	}
	byID := make(map[uuid.UUID]*types.Task, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}
	ordered := make([]*types.Task, 0, len(found))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			ordered = append(ordered, t)
		}
	}
	return ordered, nil
}

func (tr *taskRepo) ListByTranscriptID(ctx context.Context, tx *gorm.DB, transcriptID uuid.UUID) ([]*types.Task, error) {
	if tx == nil {
		tx = tr.db
	}
	var tasks []*types.Task
	if err := tx.WithContext(ctx).
		Where("related_transcript_record_id = ?", transcriptID).
		Order("start_datetime ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (tr *taskRepo) ListStartingBetween(ctx context.Context, tx *gorm.DB, from, to time.Time) ([]*types.Task, error) {
	if tx == nil {
		tx = tr.db
	}
	var tasks []*types.Task
	if err := tx.WithContext(ctx).
		Where("start_datetime >= ? AND start_datetime <= ?", from, to).
		Order("start_datetime ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (tr *taskRepo) Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, patch types.TaskPatch) (*types.Task, error) {
	if tx == nil {
		tx = tr.db
	}
	if !patch.IsEmpty() {
		res := tx.WithContext(ctx).
			Model(&types.Task{}).
			Where("id = ?", id).
			Updates(patch.Columns())
		if res.Error != nil {
			tr.log.Error("failed to update task", "taskID", id, "error", res.Error)
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return tr.GetByID(ctx, tx, id)
}

func (tr *taskRepo) MarkSent(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	if tx == nil {
		tx = tr.db
	}
	res := tx.WithContext(ctx).
		Model(&types.Task{}).
		Where("id = ?", id).
		Update("sent", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (tr *taskRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	if tx == nil {
		tx = tr.db
	}
	res := tx.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.Task{})
	if res.Error != nil {
		tr.log.Error("failed to delete task", "taskID", id, "error", res.Error)
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
