package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/slotter-org/cs-ai-agent/internal/logger"
	"github.com/slotter-org/cs-ai-agent/internal/metrics"
	"github.com/slotter-org/cs-ai-agent/internal/repos"
	"github.com/slotter-org/cs-ai-agent/internal/types"
	"github.com/slotter-org/cs-ai-agent/internal/utils"
)

// ReminderLeadTime is how far ahead of a task's start the reminder goes out.
const ReminderLeadTime = 5 * time.Minute

type SaveRequest struct {
	TranscriptText string             `json:"transcript_text"`
	TasksTimes     []types.ActionItem `json:"tasks_times"`
	UniqueID       string             `json:"unique_id"`
}

func (r SaveRequest) Validate() error {
	if strings.TrimSpace(r.TranscriptText) == "" {
		return fmt.Errorf("%w: transcript_text is required", ErrValidation)
	}
	return nil
}

type ReminderService interface {
	SaveTranscript(ctx context.Context, req SaveRequest) (*types.Transcript, []*types.Task, error)
	SaveAndConfirm(ctx context.Context, req SaveRequest) error
	SaveStatus(ctx context.Context, uniqueID string) (bool, error)
	ScanAndNotify(ctx context.Context, trigger string) ([]*types.Task, error)
}

type reminderService struct {
	log            *logger.Logger
	db             *gorm.DB
	transcriptRepo repos.TranscriptRepo
	taskRepo       repos.TaskRepo
	email          EmailService
	text           TextService
	clock          *utils.WallClock
	events         EventPublisher

	// scans from the cron and the HTTP route must not overlap
	scanMu sync.Mutex
}

// NewReminderService wires the save and scan flows. text and events may be
// nil; SMS is then skipped and events are dropped.
func NewReminderService(
	log *logger.Logger,
	db *gorm.DB,
	transcriptRepo repos.TranscriptRepo,
	taskRepo repos.TaskRepo,
	email EmailService,
	text TextService,
	clock *utils.WallClock,
	events EventPublisher,
) ReminderService {
	if events == nil {
		events = noopPublisher{}
	}
	return &reminderService{
		log:            log.With("service", "ReminderService"),
		db:             db,
		transcriptRepo: transcriptRepo,
		taskRepo:       taskRepo,
		email:          email,
		text:           text,
		clock:          clock,
		events:         events,
	}
}

func toTask(item types.ActionItem, transcriptID uuid.UUID) (*types.Task, error) {
	start, err := utils.ParseWallClock(item.StartDatetime)
	if err != nil {
		return nil, fmt.Errorf("%w: start_datetime of %q: %v", ErrValidation, item.ActionItem, err)
	}
	end := start
	if strings.TrimSpace(item.EndDatetime) != "" {
		end, err = utils.ParseWallClock(item.EndDatetime)
		if err != nil {
			return nil, fmt.Errorf("%w: end_datetime of %q: %v", ErrValidation, item.ActionItem, err)
		}
	}
	return &types.Task{
		ActionItem:                item.ActionItem,
		StartDatetime:             start,
		EndDatetime:               end,
		Sent:                      false,
		Completed:                 false,
		RelatedTranscriptRecordID: transcriptID,
	}, nil
}

// SaveTranscript stores the transcript and its tasks in one transaction. A
// unique id that was already saved returns the stored record unchanged.
func (rs *reminderService) SaveTranscript(ctx context.Context, req SaveRequest) (*types.Transcript, []*types.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}
	if req.UniqueID == "" {
		req.UniqueID = uuid.NewString()
	}

	if existing, err := rs.transcriptRepo.GetByUniqueID(ctx, nil, req.UniqueID); err == nil {
		rs.log.Info("Transcript already saved, skipping", "uniqueID", req.UniqueID)
		tasks, err := rs.taskRepo.GetByIDs(ctx, nil, existing.TaskIDs())
		return existing, tasks, err
	} else if !errors.Is(err, repos.ErrNotFound) {
		return nil, nil, fmt.Errorf("lookup transcript: %w", err)
	}

	transcript := &types.Transcript{
		ID:         uuid.New(),
		Transcript: req.TranscriptText,
		UniqueID:   req.UniqueID,
		DateAdded:  rs.clock.Now(),
	}
	tasks := make([]*types.Task, 0, len(req.TasksTimes))
	for _, item := range req.TasksTimes {
		task, err := toTask(item, transcript.ID)
		if err != nil {
			return nil, nil, err
		}
		tasks = append(tasks, task)
	}

	err := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := rs.transcriptRepo.Create(ctx, tx, transcript); err != nil {
			return err
		}
		created, err := rs.taskRepo.CreateTasks(ctx, tx, tasks)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(created))
		for _, t := range created {
			ids = append(ids, t.ID)
		}
		transcript.IdsOfInsertedTasks = ids
		return rs.transcriptRepo.SetTaskIDs(ctx, tx, transcript.ID, ids)
	})
	if err != nil {
		rs.log.Error("Failed to save transcript", "uniqueID", req.UniqueID, "error", err)
		return nil, nil, fmt.Errorf("save transcript: %w", err)
	}
	rs.log.Info("Transcript saved", "uniqueID", req.UniqueID, "tasks", len(tasks))
	return transcript, tasks, nil
}

// SaveAndConfirm saves, then emails one confirmation and publishes the
// saved event. A failed confirmation email does not fail the save.
func (rs *reminderService) SaveAndConfirm(ctx context.Context, req SaveRequest) error {
	transcript, tasks, err := rs.SaveTranscript(ctx, req)
	if err != nil {
		return err
	}
	if err := rs.email.SendSaveConfirmation(ctx, len(tasks), rs.clock.Now()); err != nil {
		metrics.RemindersTotal.WithLabelValues("confirmation", "error").Inc()
		rs.log.Warn("Confirmation email failed", "uniqueID", transcript.UniqueID, "error", err)
	} else {
		metrics.RemindersTotal.WithLabelValues("confirmation", "ok").Inc()
	}
	rs.events.Publish(ctx, EventTranscriptSaved, map[string]interface{}{
		"unique_id":  transcript.UniqueID,
		"id":         transcript.ID,
		"task_count": len(tasks),
	})
	return nil
}

func (rs *reminderService) SaveStatus(ctx context.Context, uniqueID string) (bool, error) {
	if uniqueID == "" {
		return false, fmt.Errorf("%w: unique_id is required", ErrValidation)
	}
	_, err := rs.transcriptRepo.GetByUniqueID(ctx, nil, uniqueID)
	if errors.Is(err, repos.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup transcript: %w", err)
	}
	return true, nil
}

// ScanAndNotify reminds about every unsent task of the current day that
// starts within ReminderLeadTime (or already started) and marks it sent. A
// task is marked sent even when its email fails, so it is never retried.
func (rs *reminderService) ScanAndNotify(ctx context.Context, trigger string) ([]*types.Task, error) {
	rs.scanMu.Lock()
	defer rs.scanMu.Unlock()

	now := rs.clock.Now()
	dayStart, dayEnd := rs.clock.Today()
	threshold := now.Add(ReminderLeadTime)

	tasks, err := rs.taskRepo.ListStartingBetween(ctx, nil, dayStart, dayEnd)
	if err != nil {
		metrics.ReminderScansTotal.WithLabelValues(trigger, "error").Inc()
		rs.log.Error("Failed to load today's tasks", "error", err)
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	sent := 0
	for _, task := range tasks {
		if task.Sent || task.StartDatetime.After(threshold) {
			continue
		}
		rs.notify(ctx, task)
		if err := rs.taskRepo.MarkSent(ctx, nil, task.ID); err != nil {
			metrics.ReminderScansTotal.WithLabelValues(trigger, "error").Inc()
			rs.log.Error("Failed to mark task sent", "taskID", task.ID, "error", err)
			return nil, fmt.Errorf("mark task sent: %w", err)
		}
		task.Sent = true
		sent++
		rs.events.Publish(ctx, EventTaskReminderSent, task)
	}

	metrics.ReminderScansTotal.WithLabelValues(trigger, "ok").Inc()
	rs.log.Info("Reminder scan finished", "trigger", trigger, "loaded", len(tasks), "sent", sent, "threshold", threshold)
	return tasks, nil
}

func (rs *reminderService) notify(ctx context.Context, task *types.Task) {
	if err := rs.email.SendTaskReminder(ctx, task.ActionItem, task.EndDatetime); err != nil {
		metrics.RemindersTotal.WithLabelValues("email", "error").Inc()
		rs.log.Warn("Reminder email failed; task will still be marked sent", "taskID", task.ID, "error", err)
	} else {
		metrics.RemindersTotal.WithLabelValues("email", "ok").Inc()
	}
	if rs.text == nil {
		return
	}
	if err := rs.text.SendTaskReminder(ctx, task.ActionItem, FormatEmailDate(task.EndDatetime)); err != nil {
		metrics.RemindersTotal.WithLabelValues("sms", "error").Inc()
		rs.log.Warn("Reminder text failed", "taskID", task.ID, "error", err)
		return
	}
	metrics.RemindersTotal.WithLabelValues("sms", "ok").Inc()
}
