package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/slotter-org/cs-ai-agent/internal/services"
)

// AssistantHandler manages the casual assistant's configuration.
type AssistantHandler struct {
	assistant services.AssistantService
}

func NewAssistantHandler(assistant services.AssistantService) *AssistantHandler {
	return &AssistantHandler{assistant: assistant}
}

func (ah *AssistantHandler) GetInstructions(c *gin.Context) {
	instructions, memory, err := ah.assistant.GetInstructions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"instructions": instructions, "currentMemory": memory})
}

func (ah *AssistantHandler) ModifyInstructions(c *gin.Context) {
	var req struct {
		NewInstructions string `json:"newInstructions"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.NewInstructions) == "" {
		badRequest(c, "newInstructions is required")
		return
	}
	if err := ah.assistant.ModifyInstructions(c.Request.Context(), req.NewInstructions); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (ah *AssistantHandler) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"model_ids": ah.assistant.ListModels()})
}

func (ah *AssistantHandler) GetModel(c *gin.Context) {
	model, err := ah.assistant.CurrentModel(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"current_model_id": model})
}

func (ah *AssistantHandler) UpdateModel(c *gin.Context) {
	var req struct {
		ModelID string `json:"model_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ModelID == "" {
		badRequest(c, "model_id is required")
		return
	}
	if err := ah.assistant.UpdateModel(c.Request.Context(), req.ModelID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (ah *AssistantHandler) ModifyMemory(c *gin.Context) {
	var req struct {
		ThreadID string `json:"threadId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ThreadID == "" {
		badRequest(c, "threadId is required")
		return
	}
	updated, err := ah.assistant.UpdateMemory(c.Request.Context(), req.ThreadID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"was_memory_updated": updated})
}
