package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/slotter-org/cs-ai-agent/internal/services"
	"github.com/slotter-org/cs-ai-agent/internal/types"
)

type ChatHandler struct {
	assistant services.AssistantService
}

func NewChatHandler(assistant services.AssistantService) *ChatHandler {
	return &ChatHandler{assistant: assistant}
}

func (ch *ChatHandler) CreateThread(c *gin.Context) {
	threadID, err := ch.assistant.CreateThread(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threadId": threadID})
}

func (ch *ChatHandler) PostMessage(c *gin.Context) {
	var req struct {
		UserMessage string   `json:"userMessage"`
		Mode        string   `json:"mode"`
		ThreadID    string   `json:"threadId"`
		FileIDs     []string `json:"file_ids_LIST"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.ThreadID == "" || strings.TrimSpace(req.UserMessage) == "" {
		badRequest(c, "threadId and userMessage are required")
		return
	}
	runID, err := ch.assistant.PostMessage(c.Request.Context(), req.ThreadID, req.UserMessage, types.Mode(req.Mode), req.FileIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id_of_run": runID})
}

func (ch *ChatHandler) GetStatus(c *gin.Context) {
	var req struct {
		ThreadID string `json:"thread_id"`
		RunID    string `json:"id_of_run"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ThreadID == "" || req.RunID == "" {
		badRequest(c, "thread_id and id_of_run are required")
		return
	}
	status, err := ch.assistant.RunStatus(c.Request.Context(), req.ThreadID, req.RunID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_completed": status == types.RunStatusCompleted,
		"status":        status,
	})
}

// RetrieveMessage returns the newest message verbatim. Transcript replies are
// parsed by the caller.
func (ch *ChatHandler) RetrieveMessage(c *gin.Context) {
	var req struct {
		ThreadID string `json:"threadId"`
		Mode     string `json:"mode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ThreadID == "" {
		badRequest(c, "threadId is required")
		return
	}
	text, err := ch.assistant.RetrieveLastMessage(c.Request.Context(), req.ThreadID)
	if err != nil {
		respondError(c, err)
		return
	}
	if types.Mode(req.Mode) == types.ModeTranscript {
		text = types.StripJSONFence(text)
	}
	c.JSON(http.StatusOK, gin.H{"response": text})
}

func (ch *ChatHandler) RetrieveAllMessages(c *gin.Context) {
	var req struct {
		ThreadID string `json:"threadId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ThreadID == "" {
		badRequest(c, "threadId is required")
		return
	}
	msgs, err := ch.assistant.RetrieveAllMessages(c.Request.Context(), req.ThreadID)
	if err != nil {
		respondError(c, err)
		return
	}
	if msgs == nil {
		msgs = []types.ThreadMessage{}
	}
	c.JSON(http.StatusOK, gin.H{"response": msgs})
}

// Chat is the direct completion route used before threads existed.
func (ch *ChatHandler) Chat(c *gin.Context) {
	var req struct {
		Prompt          string                `json:"prompt"`
		Mode            string                `json:"mode"`
		MessagesHistory []types.ThreadMessage `json:"messagesHistory"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		badRequest(c, "prompt is required")
		return
	}
	history := append(req.MessagesHistory, types.ThreadMessage{Role: "user", Content: req.Prompt})
	answer, err := ch.assistant.Complete(c.Request.Context(), types.Mode(req.Mode), history)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}
