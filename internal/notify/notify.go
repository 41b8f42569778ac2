// Package notify delivers reminders to the configured channels.
//
// Senders return a Result value instead of an error: a delivery failure
// is an outcome to record, never something that aborts the queue item
// that triggered it.
package notify

import (
	"context"

	"github.com/streaky/streakd/internal/domain"
)

// Result is the outcome of one delivery attempt.
type Result struct {
	Success bool
	Err     string
}

// DiscordSender posts a reminder to a user's Discord webhook.
type DiscordSender interface {
	Send(ctx context.Context, webhookURL string, msg domain.ReminderMessage) Result
}

// TelegramSender sends a reminder through a user's Telegram bot.
type TelegramSender interface {
	Send(ctx context.Context, token, chatID string, msg domain.ReminderMessage) Result
}
