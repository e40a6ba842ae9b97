package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/slotter-org/cs-ai-agent/internal/services"
	"github.com/slotter-org/cs-ai-agent/internal/types"
	"github.com/slotter-org/cs-ai-agent/internal/utils"
)

type DataHandler struct {
	data services.TaskDataService
}

func NewDataHandler(data services.TaskDataService) *DataHandler {
	return &DataHandler{data: data}
}

func (dh *DataHandler) Retrieve(c *gin.Context) {
	transcripts, err := dh.data.ListTranscripts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if transcripts == nil {
		transcripts = []*types.Transcript{}
	}
	c.JSON(http.StatusOK, gin.H{"allTranscripts": transcripts})
}

func (dh *DataHandler) FindTasksByID(c *gin.Context) {
	var req struct {
		TaskIDs []string `json:"tasks_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	tasks, err := dh.data.FindTasks(c.Request.Context(), req.TaskIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	if tasks == nil {
		tasks = []*types.Task{}
	}
	c.JSON(http.StatusOK, gin.H{"tasks_to_return": tasks})
}

type updateTaskRequest struct {
	ID            string  `json:"id"`
	ActionItem    *string `json:"action_item"`
	StartDatetime *string `json:"start_datetime"`
	EndDatetime   *string `json:"end_datetime"`
	Sent          *bool   `json:"sent"`
	Completed     *bool   `json:"completed"`
}

func (r updateTaskRequest) patch() (types.TaskPatch, error) {
	p := types.TaskPatch{ActionItem: r.ActionItem, Sent: r.Sent, Completed: r.Completed}
	parse := func(raw *string) (*time.Time, error) {
		if raw == nil {
			return nil, nil
		}
		t, err := utils.ParseWallClock(*raw)
		if err != nil {
			return nil, err
		}
		return &t, nil
	}
	var err error
	if p.StartDatetime, err = parse(r.StartDatetime); err != nil {
		return p, err
	}
	if p.EndDatetime, err = parse(r.EndDatetime); err != nil {
		return p, err
	}
	return p, nil
}

func (dh *DataHandler) UpdateTask(c *gin.Context) {
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	patch, err := req.patch()
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	task, err := dh.data.UpdateTask(c.Request.Context(), req.ID, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

func (dh *DataHandler) DeleteTask(c *gin.Context) {
	var req struct {
		ID string `json:"id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if err := dh.data.DeleteTask(c.Request.Context(), req.ID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
