package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/slotter-org/cs-ai-agent/internal/types"
	"github.com/slotter-org/cs-ai-agent/internal/utils"
)

const (
	DefaultPollInterval = 2500 * time.Millisecond
	// DefaultMaxAttempts bounds a run to ten minutes of polling.
	DefaultMaxAttempts = 240

	transcriptDateOffset = -6 * time.Hour
)

var (
	ErrRunFailed   = errors.New("run did not complete")
	ErrRunTimedOut = errors.New("run still pending after max attempts")
)

type RunState int

const (
	RunSubmitted RunState = iota
	RunPolling
	RunCompleted
	RunFailed
	RunTimedOut
)

func (s RunState) String() string {
	switch s {
	case RunSubmitted:
		return "submitted"
	case RunPolling:
		return "polling"
	case RunCompleted:
		return "completed"
	case RunFailed:
		return "failed"
	case RunTimedOut:
		return "timed_out"
	}
	return fmt.Sprintf("RunState(%d)", int(s))
}

// RunAPI is the part of Client the poller needs.
type RunAPI interface {
	PostMessage(ctx context.Context, threadID, text string, mode types.Mode, fileIDs []string) (string, error)
	RunStatus(ctx context.Context, threadID, runID string) (RunStatusResponse, error)
	RetrieveMessage(ctx context.Context, threadID string, mode types.Mode) (string, error)
}

type RunRequest struct {
	Message  string
	Mode     types.Mode
	ThreadID string
	FileIDs  []string
}

// RunPoller submits a message, polls the run until it finishes and fetches
// the reply exactly once.
type RunPoller struct {
	API      RunAPI
	Clock    Clock
	Interval time.Duration
	// MaxAttempts of 0 polls until ctx is done.
	MaxAttempts int
	// OnState, when set, is called on every state change.
	OnState func(RunState)
}

func NewRunPoller(api RunAPI) *RunPoller {
	return &RunPoller{
		API:         api,
		Clock:       RealClock,
		Interval:    DefaultPollInterval,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// TranscriptDateClause is appended to transcript-mode messages so the
// assistant can resolve relative dates.
func TranscriptDateClause(now time.Time) string {
	return "\n\n                If there is no specific date in this transcript use this day of today: " +
		utils.FormatJSDate(now.Add(transcriptDateOffset)) +
		"\n                "
}

func (p *RunPoller) setState(s RunState) {
	if p.OnState != nil {
		p.OnState(s)
	}
}

func (p *RunPoller) Run(ctx context.Context, req RunRequest) (types.Reply, error) {
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("unknown mode %q", req.Mode)
	}
	clock := p.Clock
	if clock == nil {
		clock = RealClock
	}
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	text := req.Message
	if req.Mode == types.ModeTranscript {
		text += TranscriptDateClause(clock.Now())
	}
	runID, err := p.API.PostMessage(ctx, req.ThreadID, text, req.Mode, req.FileIDs)
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	p.setState(RunSubmitted)

	p.setState(RunPolling)
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-clock.After(interval):
		}
		status, err := p.API.RunStatus(ctx, req.ThreadID, runID)
		if err != nil {
			p.setState(RunFailed)
			return nil, fmt.Errorf("poll run %s: %w", runID, err)
		}
		if status.Completed || status.Status == types.RunStatusCompleted {
			break
		}
		if status.Status.Terminal() {
			p.setState(RunFailed)
			return nil, fmt.Errorf("%w: run %s is %s", ErrRunFailed, runID, status.Status)
		}
		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			p.setState(RunTimedOut)
			return nil, fmt.Errorf("%w: run %s after %d polls", ErrRunTimedOut, runID, attempt)
		}
	}
	p.setState(RunCompleted)

	raw, err := p.API.RetrieveMessage(ctx, req.ThreadID, req.Mode)
	if err != nil {
		return nil, fmt.Errorf("fetch reply: %w", err)
	}
	return types.ParseReply(req.Mode, raw)
}
