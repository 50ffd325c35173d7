package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"buyer_agent/internal/logger"
)

const apiBase = "https://api.telegram.org"

// Notifier posts negotiation summaries to one Telegram chat.
type Notifier struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
}

// NewNotifier returns nil when credentials are missing; a nil *Notifier is
// safe to call and does nothing.
func NewNotifier(token, chatID string) *Notifier {
	if token == "" || chatID == "" {
		logger.Warnf("Telegram credentials missing, notifications disabled")
		return nil
	}
	return &Notifier{
		token:   token,
		chatID:  chatID,
		baseURL: apiBase,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify sends text as a Markdown message.
func (n *Notifier) Notify(ctx context.Context, text string) error {
	if n == nil {
		return nil
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token)
	payload := map[string]string{
		"chat_id":    n.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	logger.Debugf("Telegram Notify: %s", text)

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("telegram request: invalid base URL %q", n.baseURL)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		// The URL carries the bot token; keep only the cause.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error: status %s: %s", resp.Status, string(raw))
	}
	return nil
}
