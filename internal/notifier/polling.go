package notifier

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// CommandHandler is called when a user command is received.
type CommandHandler func(ctx context.Context, command string) string

// StartPolling begins long-polling for Telegram commands. Blocks until ctx is cancelled.
// Only messages from the configured chat are handled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	offset := int64(0)
	retryDelay := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			t.log.Info("telegram polling stopped")
			return
		default:
		}

		resp, err := t.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"offset":  strconv.FormatInt(offset, 10),
				"timeout": "30",
			}).
			Get(t.endpoint("getUpdates"))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			t.log.Warn("polling request failed", zap.Error(err))
			sleep(ctx, retryDelay)
			continue
		}

		body := resp.Body()
		if !gjson.GetBytes(body, "ok").Bool() {
			t.log.Warn("polling response not ok",
				zap.Int("status", resp.StatusCode()), zap.String("description", gjson.GetBytes(body, "description").String()))
			sleep(ctx, retryDelay)
			continue
		}

		for _, update := range gjson.GetBytes(body, "result").Array() {
			offset = update.Get("update_id").Int() + 1
			text := strings.TrimSpace(update.Get("message.text").String())
			if text == "" {
				continue
			}
			if chat := update.Get("message.chat.id").String(); t.ChatID != "" && chat != t.ChatID {
				t.log.Warn("ignoring command from unknown chat", zap.String("chat", chat))
				continue
			}
			t.log.Info("received command", zap.String("text", text))
			if reply := handler(ctx, text); reply != "" {
				if err := t.Send(ctx, reply); err != nil {
					t.log.Error("send reply failed", zap.Error(err))
				}
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
