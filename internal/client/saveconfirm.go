package client

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultSaveInterval = 3500 * time.Millisecond
	DefaultSavePolls    = 8
)

var ErrSaveNotConfirmed = errors.New("save was not confirmed")

type SaveState int

const (
	SaveIdle SaveState = iota
	SaveLoading
	SaveSuccess
	SaveError
)

func (s SaveState) String() string {
	switch s {
	case SaveIdle:
		return "idle"
	case SaveLoading:
		return "loading"
	case SaveSuccess:
		return "success"
	case SaveError:
		return "error"
	}
	return fmt.Sprintf("SaveState(%d)", int(s))
}

type SaveAPI interface {
	StartSave(ctx context.Context, req SaveReminderRequest) error
	SaveStatus(ctx context.Context, uniqueID string) (bool, error)
}

// SaveConfirmer starts a save and polls until the server reports it stored.
type SaveConfirmer struct {
	API      SaveAPI
	Clock    Clock
	Interval time.Duration
	MaxPolls int
}

func NewSaveConfirmer(api SaveAPI) *SaveConfirmer {
	return &SaveConfirmer{
		API:      api,
		Clock:    RealClock,
		Interval: DefaultSaveInterval,
		MaxPolls: DefaultSavePolls,
	}
}

// Confirm returns SaveSuccess on the first positive status. A failed status
// call counts as one unsuccessful poll.
func (s *SaveConfirmer) Confirm(ctx context.Context, req SaveReminderRequest) (SaveState, error) {
	if req.UniqueID == "" {
		return SaveError, errors.New("unique_id is required")
	}
	if err := s.API.StartSave(ctx, req); err != nil {
		return SaveError, fmt.Errorf("start save: %w", err)
	}
	clock := s.Clock
	if clock == nil {
		clock = RealClock
	}
	polls := s.MaxPolls
	if polls <= 0 {
		polls = DefaultSavePolls
	}

	var lastErr error
	for i := 0; i < polls; i++ {
		select {
		case <-ctx.Done():
			return SaveError, ctx.Err()
		case <-clock.After(s.Interval):
		}
		ok, err := s.API.SaveStatus(ctx, req.UniqueID)
		if err != nil {
			lastErr = err
			continue
		}
		if ok {
			return SaveSuccess, nil
		}
	}
	if lastErr != nil {
		return SaveError, fmt.Errorf("%w after %d polls: %v", ErrSaveNotConfirmed, polls, lastErr)
	}
	return SaveError, fmt.Errorf("%w after %d polls", ErrSaveNotConfirmed, polls)
}
