package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/slotter-org/cs-ai-agent/internal/client"
	"github.com/slotter-org/cs-ai-agent/internal/tui"
	"github.com/slotter-org/cs-ai-agent/internal/utils"
)

func main() {
	_ = godotenv.Load()

	// stdout belongs to the terminal UI, so env lookups are not logged.
	baseURL := utils.GetEnv("CS_AI_AGENT_URL", "http://localhost:8080", nil)
	timeout := utils.GetEnvAsDuration("CS_AI_AGENT_TIMEOUT", client.DefaultTimeout, nil)
	maxAttempts := utils.GetEnvAsInt("RUN_MAX_ATTEMPTS", client.DefaultMaxAttempts, nil)

	api := client.New(baseURL, timeout)
	poller := client.NewRunPoller(api)
	poller.MaxAttempts = maxAttempts

	model := tui.New(api, poller, client.NewSaveConfirmer(api))
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "chat-tui: %v\n", err)
		os.Exit(1)
	}
}
