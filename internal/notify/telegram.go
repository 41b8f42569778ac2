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

type telegramPayload struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// TelegramNotifier delivers reminders via the Telegram Bot API.
// The base URL is injected from config so tests can point to a local mock.
type TelegramNotifier struct {
	baseURL    string
	httpClient *http.Client
}

func NewTelegramNotifier(baseURL string, timeout time.Duration) *TelegramNotifier {
	return &TelegramNotifier{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (t *TelegramNotifier) Send(ctx context.Context, token, chatID string, msg domain.ReminderMessage) Result {
	text := fmt.Sprintf(
		"⚠️ *GitHub Streak Alert*\n\n%s\n\n👤 *GitHub Username:* %s\n🔥 *Current Streak:* %d days\n\n_Streaky - Never lose your GitHub streak_",
		msg.Text, msg.Username, msg.CurrentStreak,
	)

	body, err := json.Marshal(telegramPayload{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "Markdown",
	})
	if err != nil {
		return Result{Err: fmt.Sprintf("marshal payload: %v", err)}
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{Err: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return Result{Err: fmt.Sprintf("Telegram request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return Result{Err: fmt.Sprintf("Telegram API error: %d %s", resp.StatusCode, detail)}
	}
	return Result{Success: true}
}

var _ TelegramSender = (*TelegramNotifier)(nil)
