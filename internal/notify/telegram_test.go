package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/twiced-technology-gmbh/keepbrief/internal/clierr"
	"github.com/twiced-technology-gmbh/keepbrief/internal/config"
)

type fakeBot struct {
	mu       sync.Mutex
	requests []sendRequest
	paths    []string
	// reject maps a parse mode to the status returned for it.
	reject map[string]int
}

func (f *fakeBot) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		f.mu.Lock()
		f.requests = append(f.requests, req)
		f.paths = append(f.paths, r.URL.Path)
		f.mu.Unlock()

		if status, ok := f.reject[req.ParseMode]; ok {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"ok":false,"description":"can't parse entities"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}
}

func newClient(t *testing.T, bot *fakeBot) *Telegram {
	t.Helper()
	srv := httptest.NewServer(bot.handler(t))
	t.Cleanup(srv.Close)

	tg, err := NewTelegram("123:abc", "42", config.NewDefault(), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewTelegram failed: %v", err)
	}
	return tg
}

func TestSendMarkdown(t *testing.T) {
	bot := &fakeBot{}
	tg := newClient(t, bot)

	if err := tg.Send(context.Background(), "*hello*"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(bot.requests) != 1 {
		t.Fatalf("got %d requests, want 1", len(bot.requests))
	}
	req := bot.requests[0]
	if req.ChatID != "42" || req.Text != "*hello*" || req.ParseMode != "Markdown" || !req.DisableWebPagePreview {
		t.Errorf("request = %+v", req)
	}
	if bot.paths[0] != "/bot123:abc/sendMessage" {
		t.Errorf("path = %q", bot.paths[0])
	}
}

func TestSendFallsBackToPlainText(t *testing.T) {
	bot := &fakeBot{reject: map[string]int{"Markdown": http.StatusBadRequest}}
	tg := newClient(t, bot)

	if err := tg.Send(context.Background(), "unbalanced _markup"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(bot.requests) != 2 {
		t.Fatalf("got %d requests, want 2", len(bot.requests))
	}
	if bot.requests[1].ParseMode != "" {
		t.Errorf("retry parse mode = %q, want plain", bot.requests[1].ParseMode)
	}
}

func TestSendFailures(t *testing.T) {
	tests := []struct {
		name      string
		reject    map[string]int
		wantCalls int
	}{
		{"server error is not retried", map[string]int{"Markdown": http.StatusInternalServerError}, 1},
		{"plain text also rejected", map[string]int{"Markdown": http.StatusBadRequest, "": http.StatusBadRequest}, 2},
		{"unauthorized", map[string]int{"Markdown": http.StatusUnauthorized}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot := &fakeBot{reject: tt.reject}
			err := newClient(t, bot).Send(context.Background(), "hi")
			if !clierr.HasCode(err, clierr.NotifyFailed) {
				t.Errorf("err = %v, want NOTIFY_FAILED", err)
			}
			if len(bot.requests) != tt.wantCalls {
				t.Errorf("got %d requests, want %d", len(bot.requests), tt.wantCalls)
			}
		})
	}
}

func TestSendUnreachableHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	const token = "123456:SECRET-bot-token"
	tg, err := NewTelegram(token, "42", config.NewDefault(), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewTelegram failed: %v", err)
	}

	err = tg.Send(context.Background(), "hi")
	if !clierr.HasCode(err, clierr.NotifyFailed) {
		t.Fatalf("err = %v, want NOTIFY_FAILED", err)
	}
	if strings.Contains(err.Error(), token) || strings.Contains(err.Error(), "SECRET") {
		t.Errorf("error leaks the bot token: %v", err)
	}
	if !strings.Contains(err.Error(), "<redacted>") {
		t.Errorf("error = %v, want the redacted request URL", err)
	}
}

func TestSendTruncatesLongMessages(t *testing.T) {
	bot := &fakeBot{}
	tg := newClient(t, bot)

	if err := tg.Send(context.Background(), strings.Repeat("é", 5000)); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	sent := bot.requests[0].Text
	if n := len([]rune(sent)); n > config.DefaultNotifyMaxLength {
		t.Errorf("sent %d runes, limit %d", n, config.DefaultNotifyMaxLength)
	}
	if !strings.HasSuffix(sent, TruncationMarker) {
		t.Error("truncated message lacks marker")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{"short", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"tiny limit", "hello world", 3, "hel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.text, tt.limit); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.text, tt.limit, got, tt.want)
			}
		})
	}

	long := strings.Repeat("x", 100)
	got := Truncate(long, 60)
	if len(got) > 60 || !strings.HasSuffix(got, TruncationMarker) {
		t.Errorf("Truncate(100 x, 60) = %q", got)
	}
}

func TestNewTelegramRequiresCredentials(t *testing.T) {
	if _, err := NewTelegram("", "42", config.NewDefault()); !clierr.HasCode(err, clierr.InvalidInput) {
		t.Errorf("missing token: err = %v", err)
	}
	if _, err := NewTelegram("tok", "", config.NewDefault()); !clierr.HasCode(err, clierr.InvalidInput) {
		t.Errorf("missing chat: err = %v", err)
	}
}
