// Package notify delivers the rendered brief to a Telegram chat.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/twiced-technology-gmbh/keepbrief/internal/clierr"
	"github.com/twiced-technology-gmbh/keepbrief/internal/config"
	"github.com/twiced-technology-gmbh/keepbrief/internal/logging"
)

// DefaultAPIURL is the Telegram Bot API base URL.
const DefaultAPIURL = "https://api.telegram.org"

// TruncationMarker ends a message cut to fit the length limit.
const TruncationMarker = "\n\n_...truncated_"

// truncationSlack is the room left for the marker when cutting a message.
const truncationSlack = 50

var errBadRequest = errors.New("bad request")

// Telegram sends messages through the Bot API sendMessage method.
type Telegram struct {
	token     string
	chatID    string
	baseURL   string
	maxLength int
	parseMode string
	client    *http.Client
	logger    *logging.Logger
}

// Option configures a Telegram client.
type Option func(*Telegram)

// WithBaseURL overrides the Bot API base URL.
func WithBaseURL(url string) Option {
	return func(t *Telegram) { t.baseURL = url }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Telegram) { t.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(t *Telegram) { t.logger = l }
}

// NewTelegram creates a client for the given bot and chat.
func NewTelegram(token, chatID string, cfg *config.Config, opts ...Option) (*Telegram, error) {
	if token == "" || chatID == "" {
		return nil, clierr.New(clierr.InvalidInput,
			"Telegram credentials not set (set TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID)")
	}
	t := &Telegram{
		token:     token,
		chatID:    chatID,
		baseURL:   DefaultAPIURL,
		maxLength: cfg.Notify.MaxLength,
		parseMode: cfg.Notify.ParseMode,
		client:    &http.Client{Timeout: cfg.NotifyTimeout()},
		logger:    logging.NopLogger(),
	}
	if t.maxLength <= 0 {
		t.maxLength = config.DefaultNotifyMaxLength
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Send delivers text. Formatted delivery is tried first; when the API
// rejects the markup with HTTP 400 the message is resent as plain text.
func (t *Telegram) Send(ctx context.Context, text string) error {
	text = Truncate(text, t.maxLength)

	modes := []string{""}
	if t.parseMode != "" {
		modes = []string{t.parseMode, ""}
	}

	var lastErr error
	for _, mode := range modes {
		err := t.send(ctx, text, mode)
		if err == nil {
			t.logger.Info("notification sent", "parse_mode", mode, "length", len([]rune(text)))
			return nil
		}
		lastErr = err
		if !errors.Is(err, errBadRequest) || ctx.Err() != nil {
			break
		}
		t.logger.Warn("formatted message rejected, retrying as plain text", "parse_mode", mode, "error", err.Error())
	}
	return clierr.Wrap(clierr.NotifyFailed, lastErr, "sending Telegram message")
}

type sendRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

func (t *Telegram) send(ctx context.Context, text, mode string) error {
	body, err := json.Marshal(sendRequest{
		ChatID:                t.chatID,
		Text:                  text,
		ParseMode:             mode,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	endpoint := t.baseURL + "/bot" + t.token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", t.redact(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusBadRequest {
		return fmt.Errorf("%w (status 400): %s", errBadRequest, raw)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("api error (status %d): %s", resp.StatusCode, raw)
	}

	var result sendResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("api returned ok=false: %s", result.Description)
	}
	return nil
}

// redact removes the bot token from the request URL carried by transport
// errors.
func (t *Telegram) redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = strings.ReplaceAll(uerr.URL, t.token, "<redacted>")
	}
	return err
}

// Truncate cuts text longer than limit runes and appends TruncationMarker.
// The result never exceeds limit runes.
func Truncate(text string, limit int) string {
	r := []rune(text)
	if len(r) <= limit {
		return text
	}
	marker := []rune(TruncationMarker)
	if limit <= len(marker) {
		return string(r[:max(limit, 0)])
	}
	keep := limit - len(marker)
	if limit > truncationSlack {
		keep = limit - truncationSlack
	}
	return string(r[:keep]) + TruncationMarker
}
