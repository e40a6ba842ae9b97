// Package tui is the terminal chat client: a bubbletea program over the
// HTTP API.
package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/slotter-org/cs-ai-agent/internal/client"
	"github.com/slotter-org/cs-ai-agent/internal/types"
	"github.com/slotter-org/cs-ai-agent/internal/utils"
)

const (
	errorReply  = "Error: Something went wrong."
	callTimeout = 15 * time.Minute
)

// Backend is the part of client.Client the UI calls directly.
type Backend interface {
	CreateThread(ctx context.Context) (string, error)
	RetrieveAllMessages(ctx context.Context, threadID string) ([]types.ThreadMessage, error)
	SaveConversation(ctx context.Context, threadID, chatName string) error
	ListConversations(ctx context.Context) ([]types.Conversation, error)
	TranscribeAudio(ctx context.Context, paths ...string) (string, error)
	TranscribeVideo(ctx context.Context, paths ...string) (string, error)
	UploadImages(ctx context.Context, paths ...string) ([]string, error)
	ExtractPDF(ctx context.Context, path string) (string, error)
}

type Runner interface {
	Run(ctx context.Context, req client.RunRequest) (types.Reply, error)
}

type Saver interface {
	Confirm(ctx context.Context, req client.SaveReminderRequest) (client.SaveState, error)
}

type entry struct {
	Role string
	Text string
}

type Model struct {
	api    Backend
	runner Runner
	saver  Saver

	mode          types.Mode
	threadID      string
	convoSaved    bool
	history       []entry
	input         string
	attachedFiles []string

	items          []types.ActionItem
	lastTranscript string
	saveState      client.SaveState

	busy   bool
	status string
	width  int
	height int
}

func New(api Backend, runner Runner, saver Saver) *Model {
	return &Model{
		api:    api,
		runner: runner,
		saver:  saver,
		mode:   types.ModeCasual,
	}
}

type (
	threadMsg struct {
		threadID string
		err      error
	}
	replyMsg struct {
		mode  types.Mode
		reply types.Reply
		err   error
	}
	uploadMsg struct {
		kind    string
		text    string
		fileIDs []string
		err     error
	}
	saveMsg struct {
		state client.SaveState
		err   error
	}
	convosMsg struct {
		convos []types.Conversation
		err    error
	}
	openMsg struct {
		threadID string
		messages []types.ThreadMessage
		err      error
	}
	convoSavedMsg struct {
		err error
	}
)

func withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), callTimeout)
}

func (m *Model) Init() tea.Cmd {
	return m.createThread()
}

func (m *Model) createThread() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		id, err := api.CreateThread(ctx)
		return threadMsg{threadID: id, err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case threadMsg:
		if msg.err != nil {
			m.status = "could not create thread: " + msg.err.Error()
			return m, nil
		}
		m.threadID = msg.threadID
		m.convoSaved = false
		m.status = "new thread " + msg.threadID
		return m, nil

	case replyMsg:
		m.busy = false
		if msg.err != nil {
			m.history = append(m.history, entry{Role: "assistant", Text: errorReply})
			m.status = msg.err.Error()
			return m, nil
		}
		switch r := msg.reply.(type) {
		case types.CasualReply:
			m.history = append(m.history, entry{Role: "assistant", Text: r.Text})
		case types.SummaryReply:
			m.history = append(m.history, entry{Role: "assistant", Text: r.Answer})
			m.items = append([]types.ActionItem(nil), r.ActionItems...)
			m.saveState = client.SaveIdle
		}
		m.status = ""
		return m, nil

	case uploadMsg:
		m.busy = false
		if msg.err != nil {
			m.status = msg.kind + " failed: " + msg.err.Error()
			return m, nil
		}
		if len(msg.fileIDs) > 0 {
			m.attachedFiles = append(m.attachedFiles, msg.fileIDs...)
			m.status = "attached " + strings.Join(msg.fileIDs, ", ")
			return m, nil
		}
		if m.input != "" {
			m.input += "\n"
		}
		m.input += msg.text
		m.status = msg.kind + " inserted into input"
		return m, nil

	case saveMsg:
		m.saveState = msg.state
		if msg.err != nil {
			m.status = "save failed: " + msg.err.Error()
			return m, nil
		}
		m.status = "tasks saved"
		m.items = nil
		return m, nil

	case convosMsg:
		if msg.err != nil {
			m.status = "could not list conversations: " + msg.err.Error()
			return m, nil
		}
		if len(msg.convos) == 0 {
			m.status = "no saved conversations"
			return m, nil
		}
		var b strings.Builder
		for _, c := range msg.convos {
			b.WriteString(c.ThreadID + "  " + c.ChatName + "\n")
		}
		m.history = append(m.history, entry{Role: "system", Text: strings.TrimRight(b.String(), "\n")})
		m.status = ""
		return m, nil

	case openMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "could not open thread: " + msg.err.Error()
			return m, nil
		}
		m.threadID = msg.threadID
		m.convoSaved = true
		m.items = nil
		m.history = m.history[:0]
		for _, tm := range msg.messages {
			m.history = append(m.history, entry{Role: tm.Role, Text: tm.Content})
		}
		m.status = "opened " + msg.threadID
		return m, nil

	case convoSavedMsg:
		if msg.err != nil {
			m.convoSaved = false
			m.status = "conversation not saved: " + msg.err.Error()
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyTab:
		if m.mode == types.ModeCasual {
			m.mode = types.ModeTranscript
		} else {
			m.mode = types.ModeCasual
		}
		return m, nil
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
		return m, nil
	case tea.KeySpace:
		m.input += " "
		return m, nil
	case tea.KeyRunes:
		m.input += string(msg.Runes)
		return m, nil
	case tea.KeyEnter:
		line := strings.TrimSpace(m.input)
		m.input = ""
		if line == "" {
			return m, nil
		}
		if strings.HasPrefix(line, "/") {
			return m.runCommand(line)
		}
		return m, m.send(line)
	}
	return m, nil
}

func (m *Model) hasUserMessage() bool {
	for _, e := range m.history {
		if e.Role == "user" {
			return true
		}
	}
	return false
}

// send posts text on the current thread. The first user message of a fresh
// thread also saves the conversation under its first 45 characters.
func (m *Model) send(text string) tea.Cmd {
	if m.busy {
		m.status = "still waiting for the previous reply"
		m.input = text
		return nil
	}
	if m.threadID == "" {
		m.status = "no thread yet, try /new"
		m.input = text
		return nil
	}

	var cmds []tea.Cmd
	if !m.convoSaved && !m.hasUserMessage() {
		m.convoSaved = true
		api, threadID, name := m.api, m.threadID, utils.Truncate(text, types.ChatNameMaxLen)
		cmds = append(cmds, func() tea.Msg {
			ctx, cancel := withTimeout()
			defer cancel()
			return convoSavedMsg{err: api.SaveConversation(ctx, threadID, name)}
		})
	}

	m.history = append(m.history, entry{Role: "user", Text: text})
	if m.mode == types.ModeTranscript {
		m.lastTranscript = text
	}
	m.busy = true
	m.status = "thinking..."

	req := client.RunRequest{Message: text, Mode: m.mode, ThreadID: m.threadID, FileIDs: m.attachedFiles}
	m.attachedFiles = nil
	runner := m.runner
	cmds = append(cmds, func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		reply, err := runner.Run(ctx, req)
		return replyMsg{mode: req.Mode, reply: reply, err: err}
	})
	return tea.Batch(cmds...)
}

func (m *Model) confirmSave() tea.Cmd {
	req := client.SaveReminderRequest{
		TranscriptText: m.lastTranscript,
		TasksTimes:     append([]types.ActionItem(nil), m.items...),
		UniqueID:       uuid.NewString(),
	}
	m.saveState = client.SaveLoading
	m.status = "saving tasks..."
	saver := m.saver
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		state, err := saver.Confirm(ctx, req)
		return saveMsg{state: state, err: err}
	}
}
