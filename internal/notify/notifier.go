// Package notify dispatches customer-facing messages for offer lifecycle
// events. Delivery is asynchronous: the notifier only enqueues, the worker
// sends.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/partshub/partshub/jobs"
)

var subjects = map[string]string{
	"offer_activated": "Your offer is ready",
	"offer_accepted":  "Thanks for accepting your offer",
	"offer_completed": "Your order is complete",
	"offer_cancelled": "Your offer was cancelled",
}

// EmailNotifier enqueues transactional emails through the job queue.
type EmailNotifier struct {
	client *jobs.Client
	logger *slog.Logger
}

func NewEmailNotifier(client *jobs.Client, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{client: client, logger: logger}
}

func (n *EmailNotifier) Notify(ctx context.Context, event string, offerID int64, recipient string) error {
	subject, ok := subjects[event]
	if !ok {
		subject = "Update on your offer"
	}
	payload := jobs.SendEmailPayload{
		To:      recipient,
		Subject: subject,
		Body:    fmt.Sprintf("There is news on your offer #%d (%s). Please contact us if you have questions.", offerID, subject),
	}
	if _, err := n.client.EnqueueSendEmail(ctx, payload); err != nil {
		return fmt.Errorf("notify: enqueue email: %w", err)
	}
	n.logger.Debug("notification enqueued",
		slog.String("event", event),
		slog.Int64("offer_id", offerID))
	return nil
}

// LogNotifier records notifications instead of sending them. Used when no
// queue is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, event string, offerID int64, recipient string) error {
	n.logger.Info("notification (log only)",
		slog.String("event", event),
		slog.Int64("offer_id", offerID),
		slog.String("recipient", recipient))
	return nil
}
