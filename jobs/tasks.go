package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeOfferExpiry sweeps accepted offers whose reservations lapsed.
	TaskTypeOfferExpiry = "offers:expire"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// SMTPConfig carries the outbound mail relay settings.
type SMTPConfig struct {
	Addr string
	From string
}

// NewSendEmailHandler returns the handler processing TaskTypeSendEmail tasks
// against the configured relay. An unset relay logs and drops the mail so
// local environments work without one.
func NewSendEmailHandler(cfg SMTPConfig, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if cfg.Addr == "" {
			logger.Info("mail relay not configured, dropping email",
				slog.String("to", payload.To),
				slog.String("subject", payload.Subject))
			return nil
		}
		var msg strings.Builder
		fmt.Fprintf(&msg, "From: %s\r\n", cfg.From)
		fmt.Fprintf(&msg, "To: %s\r\n", payload.To)
		fmt.Fprintf(&msg, "Subject: %s\r\n", payload.Subject)
		msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
		msg.WriteString(payload.Body)
		if err := smtp.SendMail(cfg.Addr, nil, cfg.From, []string{payload.To}, []byte(msg.String())); err != nil {
			return fmt.Errorf("jobs: send email: %w", err)
		}
		return nil
	}
}

// OfferExpiryPayload bounds a single expiry sweep.
type OfferExpiryPayload struct {
	Limit int `json:"limit"`
}

// NewOfferExpiryTask constructs the recurring expiry sweep task.
func NewOfferExpiryTask(limit int) (*asynq.Task, error) {
	data, err := json.Marshal(OfferExpiryPayload{Limit: limit})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeOfferExpiry, data), nil
}

// OfferExpirer is the slice of the offer service the sweep needs.
type OfferExpirer interface {
	ExpireDue(ctx context.Context, now time.Time, limit int) (int, error)
}

// NewOfferExpiryHandler returns the handler processing TaskTypeOfferExpiry.
func NewOfferExpiryHandler(svc OfferExpirer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload OfferExpiryPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.Limit <= 0 {
			payload.Limit = 100
		}
		expired, err := svc.ExpireDue(ctx, time.Now().UTC(), payload.Limit)
		if err != nil {
			return fmt.Errorf("jobs: offer expiry sweep: %w", err)
		}
		if expired > 0 {
			logger.Info("offer expiry sweep done", slog.Int("expired", expired))
		}
		return nil
	}
}
