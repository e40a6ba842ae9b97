package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/slotter-org/cs-ai-agent/internal/jobs"
	"github.com/slotter-org/cs-ai-agent/internal/services"
)

type SaveReminderHandler struct {
	queue     jobs.SaveQueue
	reminders services.ReminderService
}

func NewSaveReminderHandler(queue jobs.SaveQueue, reminders services.ReminderService) *SaveReminderHandler {
	return &SaveReminderHandler{queue: queue, reminders: reminders}
}

// Start queues the save and answers before anything is persisted. Clients
// poll GetStatus with the same unique_id.
func (sh *SaveReminderHandler) Start(c *gin.Context) {
	var req services.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, err)
		return
	}
	if req.UniqueID == "" {
		req.UniqueID = uuid.NewString()
	}
	err := sh.queue.Enqueue(c.Request.Context(), jobs.SaveJob{Request: req, EnqueuedAt: time.Now()})
	if errors.Is(err, jobs.ErrQueueFull) || errors.Is(err, jobs.ErrQueueClosed) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "save queue unavailable, retry later"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "unique_id": req.UniqueID})
}

func (sh *SaveReminderHandler) GetStatus(c *gin.Context) {
	uniqueID := c.Query("unique_id")
	if uniqueID == "" {
		badRequest(c, "unique_id is required")
		return
	}
	saved, err := sh.reminders.SaveStatus(c.Request.Context(), uniqueID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": saved})
}

// SaveSync persists inline and sends the confirmation before answering.
func (sh *SaveReminderHandler) SaveSync(c *gin.Context) {
	var req services.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if err := sh.reminders.SaveAndConfirm(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
