package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReplySummaryKeepsFieldsVerbatim(t *testing.T) {
	raw := `{"nl_answer_to_user":"x","action_items":[{"action_item":"A","start_datetime":"2025-02-07T10:00:00Z","end_datetime":"2025-02-07T12:00:00Z"}]}`

	reply, err := ParseReply(ModeTranscript, raw)
	require.NoError(t, err)

	summary, ok := reply.(SummaryReply)
	require.True(t, ok)
	assert.Equal(t, "x", summary.Answer)
	require.Len(t, summary.ActionItems, 1)
	assert.Equal(t, ActionItem{
		ActionItem:    "A",
		StartDatetime: "2025-02-07T10:00:00Z",
		EndDatetime:   "2025-02-07T12:00:00Z",
	}, summary.ActionItems[0])
}

func TestParseReplyStripsFence(t *testing.T) {
	raw := "```json\n{\"nl_answer_to_user\":\"ok\",\"action_items\":[]}\n```"
	reply, err := ParseReply(ModeTranscript, raw)
	require.NoError(t, err)
	assert.Equal(t, "ok", reply.(SummaryReply).Answer)
	assert.Empty(t, reply.(SummaryReply).ActionItems)
}

func TestParseReplyMalformedIsFatal(t *testing.T) {
	for _, raw := range []string{"Sure! Here are your tasks.", `{"foo":1}`, ""} {
		_, err := ParseReply(ModeTranscript, raw)
		assert.True(t, errors.Is(err, ErrMalformedReply), "raw %q", raw)
	}
}

func TestParseReplyCasualPassesThrough(t *testing.T) {
	reply, err := ParseReply(ModeCasual, "not json {")
	require.NoError(t, err)
	assert.Equal(t, CasualReply{Text: "not json {"}, reply)
	assert.Equal(t, ModeCasual, reply.Mode())
}

func TestParseReplyUnknownMode(t *testing.T) {
	_, err := ParseReply(Mode("poetry"), "x")
	assert.Error(t, err)
}

func TestRunStatusTerminal(t *testing.T) {
	assert.True(t, RunStatusCompleted.Terminal())
	assert.True(t, RunStatusExpired.Terminal())
	assert.False(t, RunStatusQueued.Terminal())
	assert.False(t, RunStatusRequiresAction.Terminal())
}
