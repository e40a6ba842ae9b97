package services

import "context"

const (
	EventTranscriptSaved  = "transcript_saved"
	EventTaskReminderSent = "task_reminder_sent"
)

// EventPublisher fans domain events out to connected clients.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{})
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, interface{}) {}
