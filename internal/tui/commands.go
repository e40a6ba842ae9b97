package tui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/slotter-org/cs-ai-agent/internal/types"
)

const helpText = `/new                      start a new thread
/open <threadId>          load a saved thread
/convos                   list saved conversations
/audio|/video <path>      transcribe into the input
/doc <path>               extract PDF text into the input
/image <path>             attach an image to the next message
/edit <n> <field> <value> field is action, start or end
/add [action]             add an action item
/del <n>                  remove an action item
/confirm                  save the action items as reminders
/quit                     exit
Tab toggles casual / transcript mode.`

func (m *Model) runCommand(line string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]
	rest := strings.TrimSpace(strings.TrimPrefix(line, name))

	switch name {
	case "/quit", "/exit":
		return m, tea.Quit

	case "/help":
		m.history = append(m.history, entry{Role: "system", Text: helpText})
		return m, nil

	case "/new":
		m.history = nil
		m.items = nil
		m.attachedFiles = nil
		m.threadID = ""
		m.status = "creating thread..."
		return m, m.createThread()

	case "/open":
		if len(args) != 1 {
			m.status = "usage: /open <threadId>"
			return m, nil
		}
		m.busy = true
		api, threadID := m.api, args[0]
		return m, func() tea.Msg {
			ctx, cancel := withTimeout()
			defer cancel()
			msgs, err := api.RetrieveAllMessages(ctx, threadID)
			return openMsg{threadID: threadID, messages: msgs, err: err}
		}

	case "/convos":
		api := m.api
		return m, func() tea.Msg {
			ctx, cancel := withTimeout()
			defer cancel()
			convos, err := api.ListConversations(ctx)
			return convosMsg{convos: convos, err: err}
		}

	case "/audio", "/video", "/doc", "/image":
		if rest == "" {
			m.status = "usage: " + name + " <path>"
			return m, nil
		}
		m.busy = true
		m.status = "uploading " + rest + "..."
		return m, m.upload(strings.TrimPrefix(name, "/"), rest)

	case "/edit":
		if err := m.editItem(args); err != nil {
			m.status = err.Error()
		}
		return m, nil

	case "/add":
		m.items = append(m.items, types.ActionItem{ActionItem: rest})
		m.status = fmt.Sprintf("added item %d", len(m.items))
		return m, nil

	case "/del":
		n, err := m.itemIndex(args)
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.items = append(m.items[:n], m.items[n+1:]...)
		return m, nil

	case "/confirm":
		if m.lastTranscript == "" {
			m.status = "send a transcript first"
			return m, nil
		}
		return m, m.confirmSave()
	}

	m.status = "unknown command " + name + ", try /help"
	return m, nil
}

func (m *Model) upload(kind, path string) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		out := uploadMsg{kind: kind}
		switch kind {
		case "audio":
			out.text, out.err = api.TranscribeAudio(ctx, path)
		case "video":
			out.text, out.err = api.TranscribeVideo(ctx, path)
		case "doc":
			out.text, out.err = api.ExtractPDF(ctx, path)
		case "image":
			out.fileIDs, out.err = api.UploadImages(ctx, path)
		}
		return out
	}
}

// itemIndex reads a 1-based item number.
func (m *Model) itemIndex(args []string) (int, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("missing item number")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(m.items) {
		return 0, fmt.Errorf("no action item %q", args[0])
	}
	return n - 1, nil
}

func (m *Model) editItem(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: /edit <n> <action|start|end> <value>")
	}
	n, err := m.itemIndex(args)
	if err != nil {
		return err
	}
	value := strings.Join(args[2:], " ")
	switch args[1] {
	case "action":
		m.items[n].ActionItem = value
	case "start":
		m.items[n].StartDatetime = value
	case "end":
		m.items[n].EndDatetime = value
	default:
		return fmt.Errorf("unknown field %q", args[1])
	}
	return nil
}
