package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/slotter-org/cs-ai-agent/internal/logger"
	"github.com/slotter-org/cs-ai-agent/internal/repos"
	"github.com/slotter-org/cs-ai-agent/internal/types"
	"github.com/slotter-org/cs-ai-agent/internal/utils"
)

type ConversationService interface {
	Save(ctx context.Context, threadID string, chatName string) (*types.Conversation, error)
	List(ctx context.Context) ([]*types.Conversation, error)
}

type conversationService struct {
	log   *logger.Logger
	repo  repos.ConversationRepo
	clock *utils.WallClock
}

func NewConversationService(log *logger.Logger, repo repos.ConversationRepo, clock *utils.WallClock) ConversationService {
	return &conversationService{
		log:   log.With("service", "ConversationService"),
		repo:  repo,
		clock: clock,
	}
}

func (cs *conversationService) Save(ctx context.Context, threadID string, chatName string) (*types.Conversation, error) {
	if strings.TrimSpace(threadID) == "" {
		return nil, fmt.Errorf("%w: thread_id is required", ErrValidation)
	}
	conv, err := cs.repo.Create(ctx, nil, &types.Conversation{
		ThreadID:  threadID,
		ChatName:  utils.Truncate(chatName, types.ChatNameMaxLen),
		DateAdded: cs.clock.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}
	cs.log.Debug("Conversation saved", "threadID", threadID)
	return conv, nil
}

func (cs *conversationService) List(ctx context.Context) ([]*types.Conversation, error) {
	return cs.repo.List(ctx, nil)
}
