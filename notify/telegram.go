package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// TelegramAPIBase is the Telegram Bot API root.
const TelegramAPIBase = "https://api.telegram.org"

// telegramTextLimit is the sendMessage text cap in characters.
const telegramTextLimit = 4096

// TelegramConfig configures the Telegram channel.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	APIBase  string `yaml:"api_base"`
}

// Configured reports whether every required value is present.
func (c TelegramConfig) Configured() bool {
	return c.BotToken != "" && c.ChatID != ""
}

// Telegram sends alerts with the Bot API sendMessage method. Parameters
// (disable_notification, message_thread_id...) are merged into the call.
type Telegram struct {
	cfg    TelegramConfig
	client *http.Client
}

// NewTelegram returns the Telegram sender.
func NewTelegram(cfg TelegramConfig, client *http.Client) *Telegram {
	if cfg.APIBase == "" {
		cfg.APIBase = TelegramAPIBase
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")
	return &Telegram{cfg: cfg, client: clientOrDefault(client)}
}

// Send implements Sender.
func (t *Telegram) Send(ctx context.Context, msg Message) error {
	text := fmt.Sprintf("%s\n\nOld:\n%s\n\nNew:\n%s", msg.Title, msg.OldMarkdown, msg.NewMarkdown)
	body := map[string]any{
		"chat_id":                  t.cfg.ChatID,
		"text":                     Truncate(text, telegramTextLimit-3),
		"disable_web_page_preview": true,
	}
	mergeParams(body, msg.Params, "chat_id", "text")

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.cfg.APIBase, t.cfg.BotToken)
	return postJSON(ctx, t.client, ChannelTelegram, endpoint, body, nil)
}
