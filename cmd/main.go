package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/slotter-org/cs-ai-agent/internal/db"
	"github.com/slotter-org/cs-ai-agent/internal/handlers"
	"github.com/slotter-org/cs-ai-agent/internal/jobs"
	"github.com/slotter-org/cs-ai-agent/internal/logger"
	"github.com/slotter-org/cs-ai-agent/internal/middleware"
	"github.com/slotter-org/cs-ai-agent/internal/repos"
	"github.com/slotter-org/cs-ai-agent/internal/scheduler"
	"github.com/slotter-org/cs-ai-agent/internal/server"
	"github.com/slotter-org/cs-ai-agent/internal/services"
	"github.com/slotter-org/cs-ai-agent/internal/socket"
	"github.com/slotter-org/cs-ai-agent/internal/utils"
)

func main() {
	_ = godotenv.Load()

	// Logger Setup
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Environment Variables
	log.Info("Attempting to load environment variables for Main now...")
	port := utils.GetEnv("PORT", "8080", log)
	redisAddress := utils.GetEnv("REDIS_ADDRESS", "", log)
	redisPassword := utils.GetEnv("REDIS_PASSWORD", "", log)
	reminderCron := utils.GetEnv("REMINDER_CRON", scheduler.DefaultReminderCron, log)
	cronSecret := utils.GetEnv("CRON_SECRET", "", log)
	saveQueueSize := utils.GetEnvAsInt("SAVE_QUEUE_SIZE", 64, log)
	saveWorkers := utils.GetEnvAsInt("SAVE_WORKERS", 2, log)
	corsOrigins := utils.GetEnv("CORS_ORIGINS", "", log)
	shutdownTimeout := utils.GetEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second, log)
	log.Debug("Environment variables loaded for Main :)",
		"port", port,
		"redisAddress", redisAddress,
		"reminderCron", reminderCron,
		"saveQueueSize", saveQueueSize,
		"saveWorkers", saveWorkers,
	)

	// Postgres Setup
	log.Info("Setting Up Postgres from Main now...")
	postgresService := db.NewPostgresService(log)
	thePG, err := postgresService.DB(ctx)
	if err != nil {
		log.Error("Fatal error: Cannot connect to Postgres", "error", err)
		os.Exit(1)
	}
	defer postgresService.Close()
	if err := postgresService.AutoMigrateAll(ctx); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	log.Info("Postgres Setup From Main Successful :)")

	// Repositories Setup
	log.Info("Setting Up Repositories from Main now...")
	conversationRepo := repos.NewConversationRepo(thePG, log)
	transcriptRepo := repos.NewTranscriptRepo(thePG, log)
	taskRepo := repos.NewTaskRepo(thePG, log)
	log.Info("Repositories Set Up From Main Successful :)")

	// Websocket Setup
	log.Info("Setting Up Websocket Hub From Main Now...")
	wsHub := socket.NewHub(log)
	var redisPubSub *socket.RedisPubSub
	if redisAddress != "" {
		redisPubSub, err = socket.NewRedisPubSub(log, redisAddress, redisPassword, "")
		if err != nil {
			log.Warn("Failed to init redis pubsub", "error", err)
		} else if err := redisPubSub.StartSubscriber(ctx, wsHub); err != nil {
			log.Warn("Failed to subscribe to Redis pub/sub", "error", err)
			redisPubSub = nil
		} else {
			wsHub.SetRedisPubSub(redisPubSub)
			log.Info("Redis pubsub is active!")
		}
	}
	log.Info("Websocket Hub Set Up From Main Successful :)")

	// Services Setup
	log.Info("Setting up Services from Main now...")
	clock := utils.WallClockFromEnv(log)
	log.Info("Reminder clock configured", "clock", clock.String())
	emailService, err := services.NewEmailService(log)
	if err != nil {
		log.Error("Fatal error: Cannot init EmailService", "error", err)
		os.Exit(1)
	}
	textService, err := services.NewTextService(log)
	if err != nil {
		log.Warn("SMS reminders disabled", "error", err)
		textService = nil
	}
	assistantService, err := services.NewAssistantService(log, services.AssistantConfigFromEnv(log))
	if err != nil {
		log.Error("Fatal error: Cannot init AssistantService", "error", err)
		os.Exit(1)
	}
	mediaService := services.NewMediaService(log, assistantService)
	reminderService := services.NewReminderService(log, thePG, transcriptRepo, taskRepo, emailService, textService, clock, wsHub)
	taskDataService := services.NewTaskDataService(log, thePG, transcriptRepo, taskRepo)
	conversationService := services.NewConversationService(log, conversationRepo, clock)
	log.Info("Services Set Up From Main Successful :)")

	// Save Queue Setup
	log.Info("Setting Up Save Queue from Main now...")
	var saveQueue jobs.SaveQueue
	if redisAddress != "" {
		redisQueue, err := jobs.NewRedisQueue(log, redisAddress, redisPassword, "")
		if err != nil {
			log.Warn("Redis queue unavailable, using in-process queue", "error", err)
		} else {
			saveQueue = redisQueue
		}
	}
	if saveQueue == nil {
		saveQueue = jobs.NewLocalQueue(saveQueueSize)
	}
	log.Info("Save Queue Set Up From Main Successful :)")

	// Handler Setup
	log.Info("Setting Up Handlers from Main now...")
	router := server.NewRouter(server.RouterConfig{
		Log:                 log,
		AllowedOrigins:      server.ParseOrigins(corsOrigins),
		ChatHandler:         handlers.NewChatHandler(assistantService),
		ConversationHandler: handlers.NewConversationHandler(conversationService),
		SaveReminderHandler: handlers.NewSaveReminderHandler(saveQueue, reminderService),
		DataHandler:         handlers.NewDataHandler(taskDataService),
		MediaHandler:        handlers.NewMediaHandler(mediaService),
		AssistantHandler:    handlers.NewAssistantHandler(assistantService),
		CronHandler:         handlers.NewCronHandler(reminderService),
		CronAuthMiddleware:  middleware.NewCronAuthMiddleware(log, cronSecret),
		WsHandler:           handlers.WsHandler(wsHub, log),
	})
	log.Info("Router Set Up From Main Successful :)")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return jobs.NewWorker(log, saveQueue, reminderService, saveWorkers).Run(gctx)
	})
	g.Go(func() error {
		return scheduler.New(log, reminderService, reminderCron).Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		_ = saveQueue.Close()
		if redisPubSub != nil {
			redisPubSub.Stop()
		}
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("Server stopped :)")
}
