package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/streaky/streakd/internal/notify"
)

func TestTelegramSend_Success(t *testing.T) {
	var gotPath string
	var payload struct {
		ChatID    string `json:"chat_id"`
		Text      string `json:"text"`
		ParseMode string `json:"parse_mode"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.Write([]byte(`{"ok":true}`)) //nolint:errcheck
	}))
	defer srv.Close()

	tg := notify.NewTelegramNotifier(srv.URL, 5*time.Second)
	res := tg.Send(context.Background(), "123:secret", "chat-42", reminder())
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Err)
	}

	if gotPath != "/bot123:secret/sendMessage" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if payload.ChatID != "chat-42" {
		t.Fatalf("unexpected chat id: %s", payload.ChatID)
	}
	if payload.ParseMode != "Markdown" {
		t.Fatalf("unexpected parse mode: %s", payload.ParseMode)
	}
	if !strings.Contains(payload.Text, "streak is at risk") {
		t.Fatalf("message text missing reminder: %q", payload.Text)
	}
	if !strings.Contains(payload.Text, "15 days") {
		t.Fatalf("message text missing streak: %q", payload.Text)
	}
}

func TestTelegramSend_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false,"description":"chat not found"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	tg := notify.NewTelegramNotifier(srv.URL, 5*time.Second)
	res := tg.Send(context.Background(), "123:secret", "nope", reminder())
	if res.Success {
		t.Fatal("expected failure on 400")
	}
	if !strings.Contains(res.Err, "400") {
		t.Fatalf("error should carry the status: %q", res.Err)
	}
}
