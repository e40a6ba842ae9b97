package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotter-org/cs-ai-agent/internal/client"
	"github.com/slotter-org/cs-ai-agent/internal/types"
)

type fakeBackend struct {
	savedConvos []string
	transcribed []string
}

func (f *fakeBackend) CreateThread(context.Context) (string, error) { return "thread_1", nil }

func (f *fakeBackend) RetrieveAllMessages(context.Context, string) ([]types.ThreadMessage, error) {
	return []types.ThreadMessage{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}}, nil
}

func (f *fakeBackend) SaveConversation(_ context.Context, _ string, name string) error {
	f.savedConvos = append(f.savedConvos, name)
	return nil
}

func (f *fakeBackend) ListConversations(context.Context) ([]types.Conversation, error) {
	return []types.Conversation{{ThreadID: "thread_9", ChatName: "Budget"}}, nil
}

func (f *fakeBackend) TranscribeAudio(_ context.Context, paths ...string) (string, error) {
	f.transcribed = append(f.transcribed, paths...)
	return "spoken words", nil
}

func (f *fakeBackend) TranscribeVideo(context.Context, ...string) (string, error) { return "", nil }

func (f *fakeBackend) UploadImages(context.Context, ...string) ([]string, error) {
	return []string{"file_1"}, nil
}

func (f *fakeBackend) ExtractPDF(context.Context, string) (string, error) { return "pdf text", nil }

type fakeRunner struct {
	reqs  []client.RunRequest
	reply types.Reply
	err   error
}

func (f *fakeRunner) Run(_ context.Context, req client.RunRequest) (types.Reply, error) {
	f.reqs = append(f.reqs, req)
	return f.reply, f.err
}

type fakeSaver struct {
	req   client.SaveReminderRequest
	state client.SaveState
	err   error
}

func (f *fakeSaver) Confirm(_ context.Context, req client.SaveReminderRequest) (client.SaveState, error) {
	f.req = req
	return f.state, f.err
}

// drain runs cmd and feeds every resulting message back into m.
func drain(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			drain(t, m, c)
		}
		return
	}
	_, next := m.Update(msg)
	drain(t, m, next)
}

func enter(t *testing.T, m *Model, line string) {
	t.Helper()
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(line)})
	require.Nil(t, cmd)
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drain(t, m, cmd)
}

func newTestModel(runner *fakeRunner, saver *fakeSaver) (*Model, *fakeBackend) {
	be := &fakeBackend{}
	m := New(be, runner, saver)
	return m, be
}

func TestFirstMessageSavesConversation(t *testing.T) {
	runner := &fakeRunner{reply: types.CasualReply{Text: "hey"}}
	m, be := newTestModel(runner, &fakeSaver{})
	drain(t, m, m.Init())
	require.Equal(t, "thread_1", m.threadID)

	long := strings.Repeat("a", 60)
	enter(t, m, long)
	enter(t, m, "second")

	assert.Equal(t, []string{strings.Repeat("a", 45)}, be.savedConvos)
	require.Len(t, runner.reqs, 2)
	assert.Equal(t, types.ModeCasual, runner.reqs[0].Mode)
	assert.Equal(t, "hey", m.history[len(m.history)-1].Text)
	assert.False(t, m.busy)
}

func TestTranscriptReplyFillsItemsAndConfirm(t *testing.T) {
	runner := &fakeRunner{reply: types.SummaryReply{
		Answer:      "Two tasks",
		ActionItems: []types.ActionItem{{ActionItem: "Call Bob", StartDatetime: "2025-02-07T10:00"}, {ActionItem: "Email Ann"}},
	}}
	saver := &fakeSaver{state: client.SaveSuccess}
	m, _ := newTestModel(runner, saver)
	drain(t, m, m.Init())

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, types.ModeTranscript, m.mode)
	enter(t, m, "meeting notes")
	require.Len(t, m.items, 2)

	enter(t, m, "/edit 2 start 2025-02-07T11:00")
	enter(t, m, "/add Book room")
	enter(t, m, "/del 1")
	require.Len(t, m.items, 2)
	assert.Equal(t, "2025-02-07T11:00", m.items[0].StartDatetime)
	assert.Equal(t, "Book room", m.items[1].ActionItem)

	enter(t, m, "/confirm")
	assert.Equal(t, client.SaveSuccess, m.saveState)
	assert.Equal(t, "meeting notes", saver.req.TranscriptText)
	assert.Len(t, saver.req.TasksTimes, 2)
	assert.NotEmpty(t, saver.req.UniqueID)
	assert.Empty(t, m.items)
}

func TestConfirmFailureShowsError(t *testing.T) {
	runner := &fakeRunner{reply: types.SummaryReply{ActionItems: []types.ActionItem{{ActionItem: "A"}}}}
	saver := &fakeSaver{state: client.SaveError, err: client.ErrSaveNotConfirmed}
	m, _ := newTestModel(runner, saver)
	drain(t, m, m.Init())
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	enter(t, m, "notes")
	enter(t, m, "/confirm")

	assert.Equal(t, client.SaveError, m.saveState)
	assert.Contains(t, m.View(), "Saving failed.")
	assert.Len(t, m.items, 1)
}

func TestRunErrorShowsGenericMessage(t *testing.T) {
	runner := &fakeRunner{err: errors.New("boom")}
	m, _ := newTestModel(runner, &fakeSaver{})
	drain(t, m, m.Init())
	enter(t, m, "hello")

	assert.Equal(t, errorReply, m.history[len(m.history)-1].Text)
}

func TestUploadsFeedInputAndAttachments(t *testing.T) {
	runner := &fakeRunner{reply: types.CasualReply{Text: "nice picture"}}
	m, be := newTestModel(runner, &fakeSaver{})
	drain(t, m, m.Init())

	enter(t, m, "/audio /tmp/memo.m4a")
	assert.Equal(t, []string{"/tmp/memo.m4a"}, be.transcribed)
	assert.Equal(t, "spoken words", m.input)

	m.input = ""
	enter(t, m, "/image /tmp/a.png")
	enter(t, m, "what is this")
	require.Len(t, runner.reqs, 1)
	assert.Equal(t, []string{"file_1"}, runner.reqs[0].FileIDs)
	assert.Empty(t, m.attachedFiles)
}

func TestOpenThreadLoadsHistory(t *testing.T) {
	m, be := newTestModel(&fakeRunner{reply: types.CasualReply{Text: "ok"}}, &fakeSaver{})
	enter(t, m, "/open thread_7")
	assert.Equal(t, "thread_7", m.threadID)
	require.Len(t, m.history, 2)

	enter(t, m, "more")
	assert.Empty(t, be.savedConvos)
}

func TestQuitCommand(t *testing.T) {
	m, _ := newTestModel(&fakeRunner{}, &fakeSaver{})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/quit")})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}
