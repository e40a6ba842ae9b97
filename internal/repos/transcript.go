package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/slotter-org/cs-ai-agent/internal/logger"
	"github.com/slotter-org/cs-ai-agent/internal/types"
)

type TranscriptRepo interface {
	Create(ctx context.Context, tx *gorm.DB, transcript *types.Transcript) (*types.Transcript, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Transcript, error)
	GetByUniqueID(ctx context.Context, tx *gorm.DB, uniqueID string) (*types.Transcript, error)
	ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Transcript, error)
	SetTaskIDs(ctx context.Context, tx *gorm.DB, id uuid.UUID, taskIDs []uuid.UUID) error
	RemoveTaskID(ctx context.Context, tx *gorm.DB, id uuid.UUID, taskID uuid.UUID) error
}

type transcriptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTranscriptRepo(db *gorm.DB, baseLog *logger.Logger) TranscriptRepo {
	return &transcriptRepo{
		db:  db,
		log: baseLog.With("repo", "TranscriptRepo"),
	}
}

func (tr *transcriptRepo) Create(ctx context.Context, tx *gorm.DB, transcript *types.Transcript) (*types.Transcript, error) {
	if tx == nil {
		tx = tr.db
	}
	if transcript.ID == uuid.Nil {
		transcript.ID = uuid.New()
	}
	if transcript.IdsOfInsertedTasks == nil {
		transcript.IdsOfInsertedTasks = []uuid.UUID{}
	}
	if transcript.DateAdded.IsZero() {
		transcript.DateAdded = time.Now().UTC()
	}
	if err := tx.WithContext(ctx).Create(transcript).Error; err != nil {
		tr.log.Error("failed to create transcript", "error", err)
		return nil, err
	}
	return transcript, nil
}

func (tr *transcriptRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Transcript, error) {
	if tx == nil {
		tx = tr.db
	}
	var t types.Transcript
	if err := tx.WithContext(ctx).
		Where("id = ?", id).
		First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (tr *transcriptRepo) GetByUniqueID(ctx context.Context, tx *gorm.DB, uniqueID string) (*types.Transcript, error) {
	if tx == nil {
		tx = tr.db
	}
	var t types.Transcript
	if err := tx.WithContext(ctx).
		Where("unique_id = ?", uniqueID).
		First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (tr *transcriptRepo) ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Transcript, error) {
	if tx == nil {
		tx = tr.db
	}
	var ts []*types.Transcript
	if err := tx.WithContext(ctx).
		Order("date_added DESC").
		Limit(limit).
		Find(&ts).Error; err != nil {
		tr.log.Error("failed to list transcripts", "error", err)
		return nil, err
	}
	return ts, nil
}

func (tr *transcriptRepo) SetTaskIDs(ctx context.Context, tx *gorm.DB, id uuid.UUID, taskIDs []uuid.UUID) error {
	if tx == nil {
		tx = tr.db
	}
	res := tx.WithContext(ctx).
		Model(&types.Transcript{}).
		Where("id = ?", id).
		Update("ids_of_inserted_tasks", datatypes.NewJSONSlice(taskIDs))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveTaskID drops taskID from the transcript's task list. The transcript
// row is locked for the rest of tx, so callers must pass a transaction to
// keep concurrent removals from overwriting each other.
func (tr *transcriptRepo) RemoveTaskID(ctx context.Context, tx *gorm.DB, id uuid.UUID, taskID uuid.UUID) error {
	if tx == nil {
		tx = tr.db
	}
	var t types.Transcript
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&t).Error; err != nil {
		return notFound(err)
	}
	kept := make([]uuid.UUID, 0, len(t.IdsOfInsertedTasks))
	for _, existing := range t.IdsOfInsertedTasks {
		if existing != taskID {
			kept = append(kept, existing)
		}
	}
	if len(kept) == len(t.IdsOfInsertedTasks) {
		return nil
	}
	return tr.SetTaskIDs(ctx, tx, id, kept)
}
