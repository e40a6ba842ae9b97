package services

import (
	"context"
	"fmt"

	twilio "github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/slotter-org/cs-ai-agent/internal/logger"
	"github.com/slotter-org/cs-ai-agent/internal/utils"
)

// TextService sends SMS reminders next to the email ones. It is optional:
// NewTextService fails when Twilio is not configured and callers skip SMS.
type TextService interface {
	SendText(ctx context.Context, toNumber string, body string) error
	SendTaskReminder(ctx context.Context, actionItem string, due string) error
}

type textService struct {
	log       *logger.Logger
	client    *twilio.RestClient
	from      string
	recipient string
}

func NewTextService(log *logger.Logger) (TextService, error) {
	serviceLog := log.With("service", "TextService")
	accountSid := utils.GetEnv("TWILIO_ACCOUNT_SID", "", serviceLog)
	authToken := utils.GetEnv("TWILIO_AUTH_TOKEN", "", serviceLog)
	fromNumber := utils.GetEnv("TWILIO_FROM_NUMBER", "", serviceLog)
	recipient := utils.GetEnv("RECIPIENT_PHONE", "", serviceLog)

	if accountSid == "" || authToken == "" || fromNumber == "" || recipient == "" {
		return nil, fmt.Errorf("Missing Twilio env variables: TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, TWILIO_FROM_NUMBER, RECIPIENT_PHONE")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})

	return &textService{
		log:       serviceLog,
		client:    client,
		from:      fromNumber,
		recipient: recipient,
	}, nil
}

func (ts *textService) SendText(ctx context.Context, toNumber string, body string) error {
	params := &openapi.CreateMessageParams{}
	params.SetTo(toNumber)
	params.SetFrom(ts.from)
	params.SetBody(body)

	resp, err := ts.client.Api.CreateMessage(params)
	if err != nil {
		ts.log.Warn("Failed to send Text via Twilio", "error", err)
		return err
	}
	sid, status := "", ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	if resp.Status != nil {
		status = *resp.Status
	}
	ts.log.Info("Successfully sent Text via Twilio", "toNumber", toNumber, "sid", sid, "status", status)
	return nil
}

func (ts *textService) SendTaskReminder(ctx context.Context, actionItem string, due string) error {
	return ts.SendText(ctx, ts.recipient, fmt.Sprintf("Reminder: %s by %s", actionItem, due))
}
