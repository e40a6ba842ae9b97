// Package client talks to the CS AI Agent HTTP API. It is what the terminal
// chat UI is built on.
package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/slotter-org/cs-ai-agent/internal/types"
)

const DefaultTimeout = 2 * time.Minute

type Client struct {
	baseURL    string
	httpClient *resty.Client
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
}

type errorBody struct {
	Error string `json:"error"`
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		baseURL: baseURL,
		httpClient: resty.New().
			SetBaseURL(baseURL).
			SetHeader("User-Agent", "cs-ai-agent-tui/1.0").
			SetTimeout(timeout),
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var apiErr errorBody
	req := c.httpClient.R().SetContext(ctx).SetError(&apiErr)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return checkResponse(resp, &apiErr)
}

func checkResponse(resp *resty.Response, apiErr *errorBody) error {
	if !resp.IsError() {
		return nil
	}
	msg := apiErr.Error
	if msg == "" {
		msg = resp.String()
	}
	return &APIError{Status: resp.StatusCode(), Message: msg}
}

func (c *Client) CreateThread(ctx context.Context) (string, error) {
	var out struct {
		ThreadID string `json:"threadId"`
	}
	if err := c.do(ctx, resty.MethodGet, "/api/chat/create-thread", nil, &out); err != nil {
		return "", err
	}
	return out.ThreadID, nil
}

func (c *Client) PostMessage(ctx context.Context, threadID, text string, mode types.Mode, fileIDs []string) (string, error) {
	body := map[string]interface{}{
		"userMessage":   text,
		"mode":          mode,
		"threadId":      threadID,
		"file_ids_LIST": fileIDs,
	}
	var out struct {
		RunID string `json:"id_of_run"`
	}
	if err := c.do(ctx, resty.MethodPost, "/api/chat/post-message", body, &out); err != nil {
		return "", err
	}
	return out.RunID, nil
}

type RunStatusResponse struct {
	Completed bool            `json:"run_completed"`
	Status    types.RunStatus `json:"status"`
}

func (c *Client) RunStatus(ctx context.Context, threadID, runID string) (RunStatusResponse, error) {
	var out RunStatusResponse
	err := c.do(ctx, resty.MethodPost, "/api/chat/get-status", map[string]string{
		"thread_id": threadID,
		"id_of_run": runID,
	}, &out)
	return out, err
}

func (c *Client) RetrieveMessage(ctx context.Context, threadID string, mode types.Mode) (string, error) {
	var out struct {
		Response string `json:"response"`
	}
	err := c.do(ctx, resty.MethodPost, "/api/chat/retrieve-message", map[string]interface{}{
		"threadId": threadID,
		"mode":     mode,
	}, &out)
	return out.Response, err
}

func (c *Client) RetrieveAllMessages(ctx context.Context, threadID string) ([]types.ThreadMessage, error) {
	var out struct {
		Response []types.ThreadMessage `json:"response"`
	}
	err := c.do(ctx, resty.MethodPost, "/api/chat/retrieve-all-messages", map[string]string{"threadId": threadID}, &out)
	return out.Response, err
}

func (c *Client) SaveConversation(ctx context.Context, threadID, chatName string) error {
	return c.do(ctx, resty.MethodPost, "/api/conversation/save", map[string]string{
		"thread_id": threadID,
		"chat_name": chatName,
	}, nil)
}

func (c *Client) ListConversations(ctx context.Context) ([]types.Conversation, error) {
	var out []types.Conversation
	err := c.do(ctx, resty.MethodGet, "/api/conversation/retrieve-all", nil, &out)
	return out, err
}

// SaveReminderRequest mirrors the body of /api/save-reminder/start.
type SaveReminderRequest struct {
	TranscriptText string             `json:"transcript_text"`
	TasksTimes     []types.ActionItem `json:"tasks_times"`
	UniqueID       string             `json:"unique_id"`
}

func (c *Client) StartSave(ctx context.Context, req SaveReminderRequest) error {
	return c.do(ctx, resty.MethodPost, "/api/save-reminder/start", req, nil)
}

func (c *Client) SaveStatus(ctx context.Context, uniqueID string) (bool, error) {
	var out struct {
		Success bool `json:"success"`
	}
	var apiErr errorBody
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("unique_id", uniqueID).
		SetResult(&out).
		SetError(&apiErr).
		Get("/api/save-reminder/get-status")
	if err != nil {
		return false, fmt.Errorf("save status: %w", err)
	}
	if err := checkResponse(resp, &apiErr); err != nil {
		return false, err
	}
	return out.Success, nil
}

func (c *Client) uploadFiles(ctx context.Context, path, field string, files []string, result interface{}) error {
	var apiErr errorBody
	req := c.httpClient.R().SetContext(ctx).SetResult(result).SetError(&apiErr)
	for i, f := range files {
		key := field
		if strings.HasSuffix(field, "[]") {
			key = fmt.Sprintf("%s%d]", strings.TrimSuffix(field, "]"), i)
		} else if len(files) > 1 {
			key = fmt.Sprintf("%s%d", field, i)
		}
		req.SetFile(key, f)
	}
	resp, err := req.Post(path)
	if err != nil {
		return fmt.Errorf("upload to %s: %w", path, err)
	}
	return checkResponse(resp, &apiErr)
}

type transcriptionResponse struct {
	Success       bool   `json:"success"`
	Transcription string `json:"transcription"`
}

func (c *Client) TranscribeAudio(ctx context.Context, paths ...string) (string, error) {
	var out transcriptionResponse
	if err := c.uploadFiles(ctx, "/api/assistant/audio/transcribe", "audio", paths, &out); err != nil {
		return "", err
	}
	return out.Transcription, nil
}

func (c *Client) TranscribeVideo(ctx context.Context, paths ...string) (string, error) {
	var out transcriptionResponse
	if err := c.uploadFiles(ctx, "/api/assistant/video/transcribe", "video", paths, &out); err != nil {
		return "", err
	}
	return out.Transcription, nil
}

func (c *Client) UploadImages(ctx context.Context, paths ...string) ([]string, error) {
	var out struct {
		FileIDs []string `json:"file_ids_list"`
	}
	if err := c.uploadFiles(ctx, "/api/assistant/files/upload", "images[]", paths, &out); err != nil {
		return nil, err
	}
	return out.FileIDs, nil
}

// ExtractPDF sends the file as the raw request body.
func (c *Client) ExtractPDF(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", err
	}
	var out struct {
		Text string `json:"text"`
	}
	var apiErr errorBody
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/pdf").
		SetBody(data).
		SetResult(&out).
		SetError(&apiErr).
		Post("/api/assistant/files/extract")
	if err != nil {
		return "", fmt.Errorf("extract pdf: %w", err)
	}
	if err := checkResponse(resp, &apiErr); err != nil {
		return "", err
	}
	return out.Text, nil
}
