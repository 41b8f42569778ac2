package domain

import "time"

// User is a notification target. The core treats it as read-only input
// from the user directory; account management lives elsewhere.
type User struct {
	ID             string    `json:"id"`
	GithubUsername string    `json:"github_username"`
	GithubPAT      *string   `json:"-"` // encrypted at rest, never serialized
	DiscordWebhook *string   `json:"discord_webhook,omitempty"`
	TelegramToken  *string   `json:"-"`
	TelegramChatID *string   `json:"telegram_chat_id,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (u *User) HasDiscord() bool {
	return u.DiscordWebhook != nil && *u.DiscordWebhook != ""
}

func (u *User) HasTelegram() bool {
	return u.TelegramToken != nil && *u.TelegramToken != "" &&
		u.TelegramChatID != nil && *u.TelegramChatID != ""
}
