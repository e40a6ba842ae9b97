package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/slotter-org/cs-ai-agent/internal/handlers"
	"github.com/slotter-org/cs-ai-agent/internal/jobs"
	"github.com/slotter-org/cs-ai-agent/internal/logger"
	"github.com/slotter-org/cs-ai-agent/internal/middleware"
	"github.com/slotter-org/cs-ai-agent/internal/socket"
)

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()
	return NewRouter(RouterConfig{
		Log:                 log,
		ChatHandler:         handlers.NewChatHandler(nil),
		ConversationHandler: handlers.NewConversationHandler(nil),
		SaveReminderHandler: handlers.NewSaveReminderHandler(jobs.NewLocalQueue(1), nil),
		DataHandler:         handlers.NewDataHandler(nil),
		MediaHandler:        handlers.NewMediaHandler(nil),
		AssistantHandler:    handlers.NewAssistantHandler(nil),
		CronHandler:         handlers.NewCronHandler(nil),
		CronAuthMiddleware:  middleware.NewCronAuthMiddleware(log, "secret"),
		WsHandler:           handlers.WsHandler(socket.NewHub(log), log),
	})
}

func TestHealthAndMetrics(t *testing.T) {
	r := testRouter()
	for _, path := range []string{"/healthz", "/metrics"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestCronRouteRequiresSecret(t *testing.T) {
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/cron/check-tasks", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestIDHeader(t *testing.T) {
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestParseOrigins(t *testing.T) {
	assert.Equal(t, []string{"https://a.example", "http://b"}, ParseOrigins(" https://a.example, ,http://b"))
	assert.Nil(t, ParseOrigins(""))
}
