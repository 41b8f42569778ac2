package domain

import "time"

// Channel is the delivery channel for a reminder.
type Channel string

const (
	ChannelDiscord  Channel = "discord"
	ChannelTelegram Channel = "telegram"
)

// DeliveryStatus records the outcome of a single channel attempt.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// DeliveryLog is one row per channel attempt. A failed delivery is
// recorded here but does not fail the queue item that produced it.
type DeliveryLog struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	Channel      Channel        `json:"channel"`
	Status       DeliveryStatus `json:"status"`
	ErrorMessage *string        `json:"error_message,omitempty"`
	SentAt       time.Time      `json:"sent_at"`
}
