package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/slotter-org/cs-ai-agent/internal/logger"
	"github.com/slotter-org/cs-ai-agent/internal/types"
)

type ConversationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, conv *types.Conversation) (*types.Conversation, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.Conversation, error)
	GetByThreadID(ctx context.Context, tx *gorm.DB, threadID string) (*types.Conversation, error)
}

type conversationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConversationRepo(db *gorm.DB, baseLog *logger.Logger) ConversationRepo {
	return &conversationRepo{
		db:  db,
		log: baseLog.With("repo", "ConversationRepo"),
	}
}

func (cr *conversationRepo) Create(ctx context.Context, tx *gorm.DB, conv *types.Conversation) (*types.Conversation, error) {
	if tx == nil {
		tx = cr.db
	}
	if conv.ID == uuid.Nil {
		conv.ID = uuid.New()
	}
	if conv.DateAdded.IsZero() {
		conv.DateAdded = time.Now().UTC()
	}
	if err := tx.WithContext(ctx).Create(conv).Error; err != nil {
		cr.log.Error("failed to create conversation", "error", err)
		return nil, err
	}
	return conv, nil
}

func (cr *conversationRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Conversation, error) {
	if tx == nil {
		tx = cr.db
	}
	var convs []*types.Conversation
	if err := tx.WithContext(ctx).
		Order("date_added DESC").
		Find(&convs).Error; err != nil {
		cr.log.Error("failed to list conversations", "error", err)
		return nil, err
	}
	return convs, nil
}

func (cr *conversationRepo) GetByThreadID(ctx context.Context, tx *gorm.DB, threadID string) (*types.Conversation, error) {
	if tx == nil {
		tx = cr.db
	}
	var conv types.Conversation
	if err := tx.WithContext(ctx).
		Where("thread_id = ?", threadID).
		First(&conv).Error; err != nil {
		return nil, notFound(err)
	}
	return &conv, nil
}
