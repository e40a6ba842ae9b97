package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/slotter-org/cs-ai-agent/internal/services"
	"github.com/slotter-org/cs-ai-agent/internal/types"
)

type ConversationHandler struct {
	conversations services.ConversationService
}

func NewConversationHandler(conversations services.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

func (ch *ConversationHandler) Save(c *gin.Context) {
	var req struct {
		ThreadID string `json:"thread_id"`
		ChatName string `json:"chat_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if _, err := ch.conversations.Save(c.Request.Context(), req.ThreadID, req.ChatName); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (ch *ConversationHandler) RetrieveAll(c *gin.Context) {
	convos, err := ch.conversations.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if convos == nil {
		convos = []*types.Conversation{}
	}
	c.JSON(http.StatusOK, convos)
}
