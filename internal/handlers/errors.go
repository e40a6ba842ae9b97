package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/slotter-org/cs-ai-agent/internal/errordata"
	"github.com/slotter-org/cs-ai-agent/internal/repos"
	"github.com/slotter-org/cs-ai-agent/internal/services"
)

// respondError maps service errors onto status codes. Upstream and storage
// failures never leak their message to the client; it is kept in errordata
// for the request logger instead.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "something went wrong"
	switch {
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
		msg = err.Error()
	case errors.Is(err, repos.ErrNotFound):
		status = http.StatusNotFound
		msg = "not found"
	}
	if ed := errordata.GetErrorData(c.Request.Context()); ed != nil {
		ed.Set(status, err.Error())
	}
	c.JSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	if ed := errordata.GetErrorData(c.Request.Context()); ed != nil {
		ed.Set(http.StatusBadRequest, msg)
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
