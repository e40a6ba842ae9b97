package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/slotter-org/cs-ai-agent/internal/handlers"
	"github.com/slotter-org/cs-ai-agent/internal/logger"
	"github.com/slotter-org/cs-ai-agent/internal/middleware"
)

var defaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

type RouterConfig struct {
	Log                 *logger.Logger
	AllowedOrigins      []string
	ChatHandler         *handlers.ChatHandler
	ConversationHandler *handlers.ConversationHandler
	SaveReminderHandler *handlers.SaveReminderHandler
	DataHandler         *handlers.DataHandler
	MediaHandler        *handlers.MediaHandler
	AssistantHandler    *handlers.AssistantHandler
	CronHandler         *handlers.CronHandler
	CronAuthMiddleware  *middleware.CronAuthMiddleware
	WsHandler           gin.HandlerFunc
}

// ParseOrigins splits a comma separated CORS_ORIGINS value.
func ParseOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	//-----------------------------------------
	// Cors Setup
	//-----------------------------------------
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = defaultAllowedOrigins
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	}))
	router.Use(middleware.AttachRequestContext(), middleware.RequestLogger(cfg.Log))

	//-----------------------------------------
	// Health + Metrics
	//-----------------------------------------
	router.GET("/healthz", handlers.Healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")

	//Chat
	chat := api.Group("/chat")
	chat.GET("/create-thread", cfg.ChatHandler.CreateThread)
	chat.POST("/post-message", cfg.ChatHandler.PostMessage)
	chat.POST("/get-status", cfg.ChatHandler.GetStatus)
	chat.POST("/retrieve-message", cfg.ChatHandler.RetrieveMessage)
	chat.POST("/retrieve-all-messages", cfg.ChatHandler.RetrieveAllMessages)
	api.POST("/chat", cfg.ChatHandler.Chat)

	//Conversations
	api.POST("/conversation/save", cfg.ConversationHandler.Save)
	api.GET("/conversation/retrieve-all", cfg.ConversationHandler.RetrieveAll)

	//Save reminder
	api.POST("/save-reminder", cfg.SaveReminderHandler.SaveSync)
	api.POST("/save-reminder/start", cfg.SaveReminderHandler.Start)
	api.GET("/save-reminder/get-status", cfg.SaveReminderHandler.GetStatus)

	//Data
	data := api.Group("/data")
	data.GET("/retrieve", cfg.DataHandler.Retrieve)
	data.POST("/find-tasks-by-id", cfg.DataHandler.FindTasksByID)
	data.POST("/updateTask", cfg.DataHandler.UpdateTask)
	data.POST("/deleteTask", cfg.DataHandler.DeleteTask)

	//Assistant
	assistant := api.Group("/assistant")
	assistant.POST("/audio/transcribe", cfg.MediaHandler.TranscribeAudio)
	assistant.POST("/video/transcribe", cfg.MediaHandler.TranscribeVideo)
	assistant.POST("/files/upload", cfg.MediaHandler.UploadImages)
	assistant.POST("/files/extract", cfg.MediaHandler.ExtractPDF)
	assistant.GET("/instructions/get", cfg.AssistantHandler.GetInstructions)
	assistant.POST("/instructions/modify", cfg.AssistantHandler.ModifyInstructions)
	assistant.GET("/models/list", cfg.AssistantHandler.ListModels)
	assistant.GET("/models/get", cfg.AssistantHandler.GetModel)
	assistant.POST("/models/update", cfg.AssistantHandler.UpdateModel)
	assistant.POST("/memory/modify", cfg.AssistantHandler.ModifyMemory)

	//Cron
	api.GET("/cron/check-tasks", cfg.CronAuthMiddleware.RequireCronSecret(), cfg.CronHandler.CheckTasks)

	//Websocket
	api.GET("/ws", cfg.WsHandler)

	return router
}
