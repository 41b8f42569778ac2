package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/streaky/streakd/internal/domain"
)

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Color       int                 `json:"color"`
	Fields      []discordEmbedField `json:"fields"`
	Footer      struct {
		Text string `json:"text"`
	} `json:"footer"`
	Timestamp string `json:"timestamp"`
}

type discordPayload struct {
	Embeds   []discordEmbed `json:"embeds"`
	Username string         `json:"username"`
}

// DiscordNotifier delivers reminders by POSTing an embed to the user's
// webhook URL. Discord answers 204 No Content on success.
type DiscordNotifier struct {
	httpClient *http.Client
}

func NewDiscordNotifier(timeout time.Duration) *DiscordNotifier {
	return &DiscordNotifier{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (d *DiscordNotifier) Send(ctx context.Context, webhookURL string, msg domain.ReminderMessage) Result {
	embed := discordEmbed{
		Title:       "⚠️ GitHub Streak Alert",
		Description: msg.Text,
		Color:       0xff6b6b,
		Fields: []discordEmbedField{
			{Name: "GitHub Username", Value: msg.Username, Inline: true},
			{Name: "Current Streak", Value: fmt.Sprintf("%d days", msg.CurrentStreak), Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	embed.Footer.Text = "Streaky - Never lose your GitHub streak"

	body, err := json.Marshal(discordPayload{
		Embeds:   []discordEmbed{embed},
		Username: "Streaky Bot",
	})
	if err != nil {
		return Result{Err: fmt.Sprintf("marshal payload: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return Result{Err: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return Result{Err: fmt.Sprintf("Discord request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return Result{Err: fmt.Sprintf("Discord API error: %d %s", resp.StatusCode, detail)}
	}
	return Result{Success: true}
}

var _ DiscordSender = (*DiscordNotifier)(nil)
