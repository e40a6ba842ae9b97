package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/slotter-org/cs-ai-agent/internal/services"
	"github.com/slotter-org/cs-ai-agent/internal/types"
)

const TriggerHTTP = "http"

type CronHandler struct {
	reminders services.ReminderService
}

func NewCronHandler(reminders services.ReminderService) *CronHandler {
	return &CronHandler{reminders: reminders}
}

// CheckTasks runs one reminder scan. Email failures still answer 200.
func (ch *CronHandler) CheckTasks(c *gin.Context) {
	tasks, err := ch.reminders.ScanAndNotify(c.Request.Context(), TriggerHTTP)
	if err != nil {
		respondError(c, err)
		return
	}
	if tasks == nil {
		tasks = []*types.Task{}
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}
