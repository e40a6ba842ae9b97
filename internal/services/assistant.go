package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	openai "github.com/sashabaranov/go-openai"

	"github.com/slotter-org/cs-ai-agent/internal/logger"
	"github.com/slotter-org/cs-ai-agent/internal/metrics"
	"github.com/slotter-org/cs-ai-agent/internal/types"
	"github.com/slotter-org/cs-ai-agent/internal/utils"
)

const (
	memoryMarker           = "DYNAMIC MEMORY:"
	defaultOpenAIBaseURL   = "https://api.openai.com/v1"
	defaultTranscribeModel = "gpt-4o-transcribe"
	defaultCompletionModel = "gpt-4o"
	messagesPageSize       = 100
)

var availableModels = []string{
	"gpt-4o", "gpt-4o-mini", "o1", "o3-mini", "gpt-4.5-preview", "o3-mini-2025-01-31",
	"o1-2024-12-17", "gpt-4o-mini-2024-07-18", "gpt-4o-2024-11-20", "gpt-4o-2024-08-06",
	"gpt-4o-2024-05-13", "gpt-4.5-preview-2025-02-27",
}

const transcriptSystemPrompt = `You are given the transcription of a work meeting. Extract every action item discussed and the timeline mentioned for it.
Return a JSON object shaped as:
{
  "nl_answer_to_user": "A brief natural language summary for the user",
  "action_items": [
    {"action_item": "...", "start_datetime": "...", "end_datetime": "..."}
  ]
}`

const casualSystemPrompt = `You are a personal assistant having an ordinary conversation with your user. Respond to their messages as you normally would.`

const memoryPromptTemplate = `Here is the current chat history:
%s

Here are the instructions of the assistant the memory belongs to:
%s

Here is the existing memory. Return its whole content, modified only if something needs to be added:
%s

RETURN TYPE: JSON { "new_memory_content": string, "is_memory_update_needed": boolean }`

// AssistantService is the gateway to the provider's assistants API.
type AssistantService interface {
	CreateThread(ctx context.Context) (string, error)
	PostMessage(ctx context.Context, threadID string, text string, mode types.Mode, fileIDs []string) (string, error)
	RunStatus(ctx context.Context, threadID string, runID string) (types.RunStatus, error)
	RetrieveLastMessage(ctx context.Context, threadID string) (string, error)
	RetrieveAllMessages(ctx context.Context, threadID string) ([]types.ThreadMessage, error)
	UploadFile(ctx context.Context, name string, r io.Reader) (string, error)
	Transcribe(ctx context.Context, name string, r io.Reader) (string, error)
	GetInstructions(ctx context.Context) (string, string, error)
	ModifyInstructions(ctx context.Context, instructions string) error
	CurrentModel(ctx context.Context) (string, error)
	ListModels() []string
	UpdateModel(ctx context.Context, modelID string) error
	UpdateMemory(ctx context.Context, threadID string) (bool, error)
	Complete(ctx context.Context, mode types.Mode, history []types.ThreadMessage) (string, error)
}

type AssistantConfig struct {
	APIKey                string
	BaseURL               string
	CasualAssistantID     string
	TranscriptAssistantID string
	TranscribeModel       string
	CompletionModel       string
	MemoryModel           string
	Timeout               time.Duration
}

// AssistantConfigFromEnv reads the provider settings. OPENAI_KEY_SELECTOR=alt
// switches to the alternate key.
func AssistantConfigFromEnv(log *logger.Logger) AssistantConfig {
	key := utils.GetEnv("OPENAI_API_KEY", "", log)
	if strings.EqualFold(utils.GetEnv("OPENAI_KEY_SELECTOR", "", log), "alt") {
		key = utils.GetEnv("OPENAI_API_KEY_ALT", "", log)
	}
	completion := utils.GetEnv("OPENAI_COMPLETION_MODEL", defaultCompletionModel, log)
	return AssistantConfig{
		APIKey:                key,
		BaseURL:               utils.GetEnv("OPENAI_BASE_URL", defaultOpenAIBaseURL, log),
		CasualAssistantID:     utils.GetEnv("CASUAL_CONVERSATION_ASSISTANT_ID", "", log),
		TranscriptAssistantID: utils.GetEnv("TRANSCRIPT_ANALYZER_ASSISTANT_ID", "", log),
		TranscribeModel:       utils.GetEnv("OPENAI_TRANSCRIBE_MODEL", defaultTranscribeModel, log),
		CompletionModel:       completion,
		MemoryModel:           utils.GetEnv("OPENAI_MEMORY_MODEL", completion, log),
		Timeout:               utils.GetEnvAsDuration("OPENAI_TIMEOUT", 60*time.Second, log),
	}
}

type assistantService struct {
	log    *logger.Logger
	client *openai.Client
	// raw covers the request shapes the typed client lacks: image content
	// parts on messages and reasoning_effort on assistants.
	raw *resty.Client
	cfg AssistantConfig
}

func NewAssistantService(log *logger.Logger, cfg AssistantConfig) (AssistantService, error) {
	serviceLog := log.With("service", "AssistantService")
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Missing OPENAI_API_KEY environment variable")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIBaseURL
	}
	if cfg.TranscribeModel == "" {
		cfg.TranscribeModel = defaultTranscribeModel
	}
	if cfg.CompletionModel == "" {
		cfg.CompletionModel = defaultCompletionModel
	}
	if cfg.MemoryModel == "" {
		cfg.MemoryModel = cfg.CompletionModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.CasualAssistantID == "" || cfg.TranscriptAssistantID == "" {
		serviceLog.Warn("Assistant ids not fully configured; runs for the missing mode will be rejected",
			"casualSet", cfg.CasualAssistantID != "", "transcriptSet", cfg.TranscriptAssistantID != "")
	}

	oaCfg := openai.DefaultConfig(cfg.APIKey)
	oaCfg.BaseURL = cfg.BaseURL

	raw := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("OpenAI-Beta", "assistants=v2").
		SetTimeout(cfg.Timeout)

	return &assistantService{
		log:    serviceLog,
		client: openai.NewClientWithConfig(oaCfg),
		raw:    raw,
		cfg:    cfg,
	}, nil
}

func observe(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.AssistantCallsTotal.WithLabelValues(operation, status).Inc()
}

func (as *assistantService) assistantFor(mode types.Mode) (string, error) {
	var id string
	switch mode {
	case types.ModeCasual:
		id = as.cfg.CasualAssistantID
	case types.ModeTranscript:
		id = as.cfg.TranscriptAssistantID
	default:
		return "", fmt.Errorf("%w: unknown mode %q", ErrValidation, mode)
	}
	if id == "" {
		return "", fmt.Errorf("%w: no assistant configured for mode %q", ErrValidation, mode)
	}
	return id, nil
}

func (as *assistantService) CreateThread(ctx context.Context) (string, error) {
	thread, err := as.client.CreateThread(ctx, openai.ThreadRequest{})
	observe("create_thread", err)
	if err != nil {
		as.log.Error("Failed to create thread", "error", err)
		return "", fmt.Errorf("create thread: %w", err)
	}
	return thread.ID, nil
}

type rawContentPart struct {
	Type      string            `json:"type"`
	Text      string            `json:"text,omitempty"`
	ImageFile *openai.ImageFile `json:"image_file,omitempty"`
}

type rawMessageRequest struct {
	Role    string           `json:"role"`
	Content []rawContentPart `json:"content"`
}

func (as *assistantService) PostMessage(ctx context.Context, threadID string, text string, mode types.Mode, fileIDs []string) (string, error) {
	if threadID == "" {
		return "", fmt.Errorf("%w: threadId is required", ErrValidation)
	}
	assistantID, err := as.assistantFor(mode)
	if err != nil {
		return "", err
	}

	if len(fileIDs) > 0 {
		err = as.postMessageWithImages(ctx, threadID, text, fileIDs)
	} else {
		_, err = as.client.CreateMessage(ctx, threadID, openai.MessageRequest{
			Role:    string(openai.ThreadMessageRoleUser),
			Content: text,
		})
	}
	observe("create_message", err)
	if err != nil {
		as.log.Error("Failed to add message to thread", "threadID", threadID, "error", err)
		return "", fmt.Errorf("create message: %w", err)
	}

	run, err := as.client.CreateRun(ctx, threadID, openai.RunRequest{AssistantID: assistantID})
	observe("create_run", err)
	if err != nil {
		as.log.Error("Failed to start run", "threadID", threadID, "mode", mode, "error", err)
		return "", fmt.Errorf("create run: %w", err)
	}
	as.log.Debug("Run started", "threadID", threadID, "runID", run.ID, "mode", mode)
	return run.ID, nil
}

func (as *assistantService) postMessageWithImages(ctx context.Context, threadID string, text string, fileIDs []string) error {
	parts := []rawContentPart{{Type: "text", Text: text}}
	for _, id := range fileIDs {
		parts = append(parts, rawContentPart{Type: "image_file", ImageFile: &openai.ImageFile{FileID: id}})
	}
	resp, err := as.raw.R().
		SetContext(ctx).
		SetBody(rawMessageRequest{Role: "user", Content: parts}).
		Post("/threads/" + threadID + "/messages")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("provider returned %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

func (as *assistantService) RunStatus(ctx context.Context, threadID string, runID string) (types.RunStatus, error) {
	if threadID == "" || runID == "" {
		return "", fmt.Errorf("%w: thread_id and id_of_run are required", ErrValidation)
	}
	run, err := as.client.RetrieveRun(ctx, threadID, runID)
	observe("retrieve_run", err)
	if err != nil {
		as.log.Error("Failed to retrieve run", "threadID", threadID, "runID", runID, "error", err)
		return "", fmt.Errorf("retrieve run: %w", err)
	}
	return types.RunStatus(run.Status), nil
}

func (as *assistantService) RetrieveLastMessage(ctx context.Context, threadID string) (string, error) {
	if threadID == "" {
		return "", fmt.Errorf("%w: threadId is required", ErrValidation)
	}
	limit := 1
	order := "desc"
	list, err := as.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	observe("list_messages", err)
	if err != nil {
		as.log.Error("Failed to list messages", "threadID", threadID, "error", err)
		return "", fmt.Errorf("list messages: %w", err)
	}
	if len(list.Messages) == 0 || len(list.Messages[0].Content) == 0 {
		return "", nil
	}
	first := list.Messages[0].Content[0]
	if first.Type != "text" || first.Text == nil {
		return "", nil
	}
	return first.Text.Value, nil
}

// RetrieveAllMessages returns the thread's text messages oldest first.
func (as *assistantService) RetrieveAllMessages(ctx context.Context, threadID string) ([]types.ThreadMessage, error) {
	if threadID == "" {
		return nil, fmt.Errorf("%w: threadId is required", ErrValidation)
	}
	limit := messagesPageSize
	order := "desc"
	var after *string
	var newestFirst []types.ThreadMessage
	for {
		list, err := as.client.ListMessage(ctx, threadID, &limit, &order, after, nil, nil)
		observe("list_messages", err)
		if err != nil {
			as.log.Error("Failed to list messages", "threadID", threadID, "error", err)
			return nil, fmt.Errorf("list messages: %w", err)
		}
		for _, msg := range list.Messages {
			for _, c := range msg.Content {
				if c.Type == "text" && c.Text != nil {
					newestFirst = append(newestFirst, types.ThreadMessage{Role: msg.Role, Content: c.Text.Value})
				}
			}
		}
		if !list.HasMore || list.LastID == nil {
			break
		}
		after = list.LastID
	}

	out := make([]types.ThreadMessage, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		out = append(out, newestFirst[i])
	}
	return out, nil
}

func (as *assistantService) UploadFile(ctx context.Context, name string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	file, err := as.client.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    name,
		Bytes:   data,
		Purpose: openai.PurposeAssistants,
	})
	observe("upload_file", err)
	if err != nil {
		as.log.Error("Failed to upload file", "name", name, "error", err)
		return "", fmt.Errorf("upload file: %w", err)
	}
	return file.ID, nil
}

func (as *assistantService) Transcribe(ctx context.Context, name string, r io.Reader) (string, error) {
	resp, err := as.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    as.cfg.TranscribeModel,
		FilePath: name,
		Reader:   r,
	})
	observe("transcribe", err)
	if err != nil {
		as.log.Error("Failed to transcribe audio", "name", name, "error", err)
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return resp.Text, nil
}

func (as *assistantService) casualAssistant(ctx context.Context) (openai.Assistant, error) {
	if as.cfg.CasualAssistantID == "" {
		return openai.Assistant{}, fmt.Errorf("CASUAL_CONVERSATION_ASSISTANT_ID is not defined")
	}
	a, err := as.client.RetrieveAssistant(ctx, as.cfg.CasualAssistantID)
	observe("retrieve_assistant", err)
	if err != nil {
		as.log.Error("Failed to retrieve assistant", "assistantID", as.cfg.CasualAssistantID, "error", err)
		return openai.Assistant{}, fmt.Errorf("retrieve assistant: %w", err)
	}
	return a, nil
}

// SplitInstructions separates the static instructions from the memory block
// appended after the memory marker.
func SplitInstructions(raw string) (string, string) {
	parts := strings.SplitN(raw, memoryMarker, 3)
	instructions := parts[0]
	memory := ""
	if len(parts) > 1 {
		memory = parts[1]
	}
	return instructions, memory
}

// JoinInstructions is the inverse of SplitInstructions.
func JoinInstructions(instructions, memory string) string {
	return strings.TrimSpace(instructions) + "\n\n" + memoryMarker + "\n" + strings.TrimSpace(memory)
}

func (as *assistantService) GetInstructions(ctx context.Context) (string, string, error) {
	a, err := as.casualAssistant(ctx)
	if err != nil {
		return "", "", err
	}
	raw := ""
	if a.Instructions != nil {
		raw = *a.Instructions
	}
	instructions, memory := SplitInstructions(raw)
	return instructions, memory, nil
}

func (as *assistantService) ModifyInstructions(ctx context.Context, instructions string) error {
	a, err := as.casualAssistant(ctx)
	if err != nil {
		return err
	}
	_, err = as.client.ModifyAssistant(ctx, a.ID, openai.AssistantRequest{
		Model:        a.Model,
		Instructions: &instructions,
	})
	observe("modify_assistant", err)
	if err != nil {
		as.log.Error("Failed to modify instructions", "assistantID", a.ID, "error", err)
		return fmt.Errorf("modify assistant: %w", err)
	}
	return nil
}

func (as *assistantService) CurrentModel(ctx context.Context) (string, error) {
	a, err := as.casualAssistant(ctx)
	if err != nil {
		return "", err
	}
	return a.Model, nil
}

func (as *assistantService) ListModels() []string {
	out := make([]string, len(availableModels))
	copy(out, availableModels)
	return out
}

// IsReasoningModel reports whether the model takes reasoning_effort instead
// of sampling parameters.
func IsReasoningModel(modelID string) bool {
	return strings.Contains(modelID, "o1") || strings.Contains(modelID, "o3")
}

// ModelUpdate is the body sent to both assistants on a model switch. Null
// values clear settings the new model does not accept.
func ModelUpdate(modelID string) map[string]interface{} {
	body := map[string]interface{}{"model": modelID}
	if IsReasoningModel(modelID) {
		body["reasoning_effort"] = "medium"
		body["temperature"] = nil
		body["top_p"] = nil
	} else {
		body["reasoning_effort"] = nil
	}
	return body
}

func (as *assistantService) UpdateModel(ctx context.Context, modelID string) error {
	if strings.TrimSpace(modelID) == "" {
		return fmt.Errorf("%w: Missing model_id in request body", ErrValidation)
	}
	body := ModelUpdate(modelID)
	for _, id := range []string{as.cfg.CasualAssistantID, as.cfg.TranscriptAssistantID} {
		if id == "" {
			continue
		}
		resp, err := as.raw.R().
			SetContext(ctx).
			SetBody(body).
			Post("/assistants/" + id)
		if err == nil && resp.IsError() {
			err = fmt.Errorf("provider returned %d: %s", resp.StatusCode(), resp.String())
		}
		observe("modify_assistant", err)
		if err != nil {
			as.log.Error("Failed to update assistant model", "assistantID", id, "modelID", modelID, "error", err)
			return fmt.Errorf("update model of %s: %w", id, err)
		}
	}
	as.log.Info("Assistant model updated", "modelID", modelID)
	return nil
}

type memoryDecision struct {
	NewMemoryContent     string `json:"new_memory_content"`
	IsMemoryUpdateNeeded bool   `json:"is_memory_update_needed"`
}

// UpdateMemory asks the model whether the conversation adds anything worth
// remembering and rewrites the casual assistant's memory block if so.
func (as *assistantService) UpdateMemory(ctx context.Context, threadID string) (bool, error) {
	history, err := as.RetrieveAllMessages(ctx, threadID)
	if err != nil {
		return false, err
	}
	instructions, memory, err := as.GetInstructions(ctx)
	if err != nil {
		return false, err
	}

	var sb strings.Builder
	for _, m := range history {
		fmt.Fprintf(&sb, "Role: %s\nContent: %s\n\n", m.Role, m.Content)
	}

	resp, err := as.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: as.cfg.MemoryModel,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: fmt.Sprintf(memoryPromptTemplate, sb.String(), instructions, memory),
		}},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	observe("memory_completion", err)
	if err != nil {
		as.log.Error("Memory completion failed", "threadID", threadID, "error", err)
		return false, fmt.Errorf("memory completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return false, fmt.Errorf("memory completion returned no choices")
	}

	var decision memoryDecision
	if err := json.Unmarshal([]byte(types.StripJSONFence(resp.Choices[0].Message.Content)), &decision); err != nil {
		return false, fmt.Errorf("decode memory decision: %w", err)
	}
	if !decision.IsMemoryUpdateNeeded || strings.TrimSpace(decision.NewMemoryContent) == "" {
		as.log.Debug("Memory unchanged", "threadID", threadID)
		return false, nil
	}
	if err := as.ModifyInstructions(ctx, JoinInstructions(instructions, decision.NewMemoryContent)); err != nil {
		return false, err
	}
	as.log.Info("Assistant memory updated", "threadID", threadID)
	return true, nil
}

// Complete runs a plain chat completion with the mode's system prompt in
// front of history. Code fences are stripped from the answer.
func (as *assistantService) Complete(ctx context.Context, mode types.Mode, history []types.ThreadMessage) (string, error) {
	var system string
	switch mode {
	case types.ModeTranscript:
		system = transcriptSystemPrompt
	case types.ModeCasual:
		system = casualSystemPrompt
	default:
		return "", fmt.Errorf("%w: unknown mode %q", ErrValidation, mode)
	}
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	for _, m := range history {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	req := openai.ChatCompletionRequest{Model: as.cfg.CompletionModel, Messages: msgs}
	if mode == types.ModeTranscript {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	resp, err := as.client.CreateChatCompletion(ctx, req)
	observe("chat_completion", err)
	if err != nil {
		as.log.Error("Chat completion failed", "mode", mode, "error", err)
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return types.StripJSONFence(resp.Choices[0].Message.Content), nil
}
