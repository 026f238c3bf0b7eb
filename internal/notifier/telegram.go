package notifier

import (
	"context"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// DefaultAPIURL is the Telegram Bot API root.
const DefaultAPIURL = "https://api.telegram.org"

// maxMessageLen is Telegram's limit for one message.
const maxMessageLen = 4096

// Notifier delivers text messages.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	APIURL   string
	client   *resty.Client
	log      *zap.Logger
	// backoff is the first retry delay; it doubles per attempt.
	backoff time.Duration
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string, logger *zap.Logger) *TelegramNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		APIURL:   DefaultAPIURL,
		client:   client,
		log:      logger,
		backoff:  time.Second,
	}
}

func (t *TelegramNotifier) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.APIURL, t.BotToken, method)
}

// Send sends a message to the configured chat.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	if len(text) > maxMessageLen {
		text = truncate(text, maxMessageLen)
	}
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"chat_id":    t.ChatID,
			"text":       text,
			"parse_mode": "HTML",
		}).
		Post(t.endpoint("sendMessage"))
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	if resp.StatusCode() != http.StatusOK || !gjson.GetBytes(resp.Body(), "ok").Bool() {
		return fmt.Errorf("telegram API error: status %d, description: %s",
			resp.StatusCode(), gjson.GetBytes(resp.Body(), "description").String())
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		err := t.Send(ctx, text)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == maxRetries {
			break
		}
		backoff := t.backoff * time.Duration(1<<uint(i))
		t.log.Warn("telegram send failed, retrying",
			zap.Int("attempt", i+1), zap.Int("of", maxRetries+1), zap.Duration("backoff", backoff), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d attempts exhausted: %w", maxRetries+1, lastErr)
}

// truncate cuts text to at most n bytes on a line boundary.
func truncate(text string, n int) string {
	const marker = "\n…"
	end := n - len(marker)
	for end > 0 && !utf8.RuneStart(text[end]) {
		end--
	}
	cut := text[:end]
	for i := len(cut) - 1; i > 0; i-- {
		if cut[i] == '\n' {
			cut = cut[:i]
			break
		}
	}
	return cut + marker
}
