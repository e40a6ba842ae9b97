package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type Mode string

const (
	ModeCasual     Mode = "casual"
	ModeTranscript Mode = "transcript"
)

func (m Mode) Valid() bool {
	return m == ModeCasual || m == ModeTranscript
}

type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCancelling     RunStatus = "cancelling"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusExpired        RunStatus = "expired"
	RunStatusIncomplete     RunStatus = "incomplete"
)

// Terminal reports whether the run will not change state anymore.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled, RunStatusExpired, RunStatusIncomplete:
		return true
	}
	return false
}

// ThreadMessage is one text message of a provider thread.
type ThreadMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ActionItem is the wire shape of an extracted task. Datetimes stay strings
// until the save flow parses them.
type ActionItem struct {
	ActionItem    string `json:"action_item"`
	StartDatetime string `json:"start_datetime"`
	EndDatetime   string `json:"end_datetime"`
}

// Reply is either a CasualReply or a SummaryReply.
type Reply interface {
	Mode() Mode
}

type CasualReply struct {
	Text string
}

func (CasualReply) Mode() Mode { return ModeCasual }

type SummaryReply struct {
	Answer      string       `json:"nl_answer_to_user"`
	ActionItems []ActionItem `json:"action_items"`
}

func (SummaryReply) Mode() Mode { return ModeTranscript }

var ErrMalformedReply = errors.New("assistant reply is not a valid summary")

// ParseReply validates raw assistant output for the given mode. Transcript
// replies must decode as a summary object; a markdown json fence is tolerated.
func ParseReply(mode Mode, raw string) (Reply, error) {
	switch mode {
	case ModeCasual:
		return CasualReply{Text: raw}, nil
	case ModeTranscript:
		var wire struct {
			Answer      *string      `json:"nl_answer_to_user"`
			ActionItems []ActionItem `json:"action_items"`
		}
		if err := json.Unmarshal([]byte(StripJSONFence(raw)), &wire); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
		}
		if wire.Answer == nil && wire.ActionItems == nil {
			return nil, fmt.Errorf("%w: missing nl_answer_to_user and action_items", ErrMalformedReply)
		}
		reply := SummaryReply{ActionItems: wire.ActionItems}
		if wire.Answer != nil {
			reply.Answer = *wire.Answer
		}
		if reply.ActionItems == nil {
			reply.ActionItems = []ActionItem{}
		}
		return reply, nil
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
}

// StripJSONFence removes ```json ... ``` wrappers some models add.
func StripJSONFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
