package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/slotter-org/cs-ai-agent/internal/client"
	"github.com/slotter-org/cs-ai-agent/internal/types"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	systemStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	successStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	tableStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("245")).Padding(0, 1)
)

func (m *Model) View() string {
	var b strings.Builder

	thread := m.threadID
	if thread == "" {
		thread = "-"
	}
	b.WriteString(headerStyle.Render(fmt.Sprintf("CS AI Agent  [%s]  thread %s", m.mode, thread)))
	b.WriteString("\n\n")

	for _, e := range m.visibleHistory() {
		switch e.Role {
		case "user":
			b.WriteString(userStyle.Render("you: ") + e.Text)
		case "system":
			b.WriteString(systemStyle.Render(e.Text))
		default:
			if e.Text == errorReply {
				b.WriteString(errorStyle.Render(e.Text))
			} else {
				b.WriteString(assistantStyle.Render("agent: " + e.Text))
			}
		}
		b.WriteString("\n")
	}

	if len(m.items) > 0 {
		b.WriteString("\n")
		b.WriteString(tableStyle.Render(renderItems(m.items)))
		b.WriteString("\n")
	}

	switch m.saveState {
	case client.SaveLoading:
		b.WriteString(statusStyle.Render("saving...") + "\n")
	case client.SaveSuccess:
		b.WriteString(successStyle.Render("Tasks saved, reminders scheduled.") + "\n")
	case client.SaveError:
		b.WriteString(errorStyle.Render("Saving failed.") + "\n")
	}

	if len(m.attachedFiles) > 0 {
		b.WriteString(statusStyle.Render(fmt.Sprintf("%d image(s) attached", len(m.attachedFiles))) + "\n")
	}
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status) + "\n")
	}
	b.WriteString("> " + m.input)
	return b.String()
}

// visibleHistory keeps the tail that fits the terminal.
func (m *Model) visibleHistory() []entry {
	if m.height <= 0 {
		return m.history
	}
	limit := m.height - 8 - len(m.items)
	if limit < 1 {
		limit = 1
	}
	if len(m.history) <= limit {
		return m.history
	}
	return m.history[len(m.history)-limit:]
}

func renderItems(items []types.ActionItem) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-3s %-40s %-20s %-20s\n", "#", "action item", "start", "end"))
	for i, it := range items {
		b.WriteString(fmt.Sprintf("%-3d %-40s %-20s %-20s\n", i+1, it.ActionItem, it.StartDatetime, it.EndDatetime))
	}
	return strings.TrimRight(b.String(), "\n")
}
