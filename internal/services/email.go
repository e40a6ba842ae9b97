package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/slotter-org/cs-ai-agent/internal/logger"
	"github.com/slotter-org/cs-ai-agent/internal/templates"
	"github.com/slotter-org/cs-ai-agent/internal/utils"
)

// EmailService delivers the reminder and confirmation emails to the single
// configured recipient.
type EmailService interface {
	SendEmail(ctx context.Context, toEmail string, subject string, plainText string, htmlContent string) error
	SendTaskReminder(ctx context.Context, actionItem string, due time.Time) error
	SendSaveConfirmation(ctx context.Context, taskCount int, addedOn time.Time) error
}

type emailService struct {
	log            *logger.Logger
	client         *sendgrid.Client
	fromEmail      string
	fromName       string
	recipientEmail string
	recipientName  string
}

func NewEmailService(log *logger.Logger) (EmailService, error) {
	serviceLog := log.With("service", "EmailService")
	apiKey := utils.GetEnv("SENDGRID_API_KEY", "", serviceLog)
	if apiKey == "" {
		return nil, fmt.Errorf("Missing SENDGRID_API_KEY environment variable")
	}
	recipient := utils.GetEnv("RECIPIENT_EMAIL", "", serviceLog)
	if recipient == "" {
		return nil, fmt.Errorf("Missing RECIPIENT_EMAIL environment variable")
	}
	fromEmail := utils.GetEnv("SENDGRID_FROM_EMAIL", "", serviceLog)
	if fromEmail == "" {
		serviceLog.Warn("SENDGRID_FROM_EMAIL not set; using fallback no-reply@cs-ai-agent.app")
		fromEmail = "no-reply@cs-ai-agent.app"
	}
	return &emailService{
		log:            serviceLog,
		client:         sendgrid.NewSendClient(apiKey),
		fromEmail:      fromEmail,
		fromName:       utils.GetEnv("SENDGRID_FROM_NAME", "CS AI Agent", serviceLog),
		recipientEmail: recipient,
		recipientName:  utils.GetEnv("RECIPIENT_NAME", "", serviceLog),
	}, nil
}

func (es *emailService) SendEmail(ctx context.Context, toEmail string, subject string, plainText string, htmlContent string) error {
	from := mail.NewEmail(es.fromName, es.fromEmail)
	to := mail.NewEmail(es.recipientName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, htmlContent)
	response, err := es.client.SendWithContext(ctx, message)
	if err != nil {
		es.log.Warn("Sendgrid email send failed", "error", err)
		return err
	}
	if response.StatusCode >= 400 {
		es.log.Warn("Sendgrid rejected email", "statusCode", response.StatusCode, "body", response.Body)
		return fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}
	es.log.Info("Email sent", "to", toEmail, "statusCode", response.StatusCode)
	return nil
}

func (es *emailService) SendTaskReminder(ctx context.Context, actionItem string, due time.Time) error {
	dueDate := FormatEmailDate(due)
	html, err := templates.RenderReminderHTML(templates.ReminderEmailData{
		RecipientName: es.recipientName,
		Type:          templates.ReminderEmailTypeTask,
		ActionItem:    actionItem,
		DueDate:       dueDate,
	})
	if err != nil {
		return fmt.Errorf("render reminder email: %w", err)
	}
	plain := fmt.Sprintf("This is a reminder that you are supposed to complete %s by %s.", actionItem, dueDate)
	return es.SendEmail(ctx, es.recipientEmail, ReminderSubject(actionItem), plain, html)
}

func (es *emailService) SendSaveConfirmation(ctx context.Context, taskCount int, addedOn time.Time) error {
	added := FormatEmailDate(addedOn)
	html, err := templates.RenderReminderHTML(templates.ReminderEmailData{
		RecipientName: es.recipientName,
		Type:          templates.ReminderEmailTypeConfirmation,
		TaskCount:     taskCount,
		AddedOn:       added,
		Signature:     "Your CS AI Agent",
	})
	if err != nil {
		return fmt.Errorf("render confirmation email: %w", err)
	}
	plain := fmt.Sprintf("This is a confirmation that %d tasks has been successfully added on %s.", taskCount, added)
	subject := "Task Reminder - Confirmation | " + shortTag()
	return es.SendEmail(ctx, es.recipientEmail, subject, plain, html)
}

// ReminderSubject is "Task Reminder - <first 10 chars>[...] | <tag>". The
// random tag keeps mail clients from threading separate reminders.
func ReminderSubject(actionItem string) string {
	head := utils.Truncate(actionItem, 10)
	if head != actionItem {
		head += "..."
	}
	return fmt.Sprintf("Task Reminder - %s | %s", head, shortTag())
}

// FormatEmailDate renders t as "MM/DD/YYYY, HH:MM" (24h).
func FormatEmailDate(t time.Time) string {
	return t.UTC().Format("01/02/2006, 15:04")
}

func shortTag() string {
	return uuid.NewString()[:4]
}
