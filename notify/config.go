package notify

import "net/http"

// Config holds the settings of every built-in channel. A channel is
// available iff all of its required values are present.
type Config struct {
	Email    EmailConfig    `yaml:"email"`
	Push     PushConfig     `yaml:"push"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Telegram TelegramConfig `yaml:"telegram"`
	Discord  DiscordConfig  `yaml:"discord"`
}

// BuildRegistry registers every configured channel, in the fixed order
// email, push, webhook, telegram, discord.
func BuildRegistry(cfg Config, client *http.Client) *Registry {
	reg := NewRegistry()
	if cfg.Email.Configured() {
		reg.Register(ChannelEmail, NewEmail(cfg.Email, client))
	}
	if cfg.Push.Configured() {
		reg.Register(ChannelPush, NewPush(cfg.Push, client))
	}
	if cfg.Webhook.Configured() {
		reg.Register(ChannelWebhook, NewWebhook(cfg.Webhook, client))
	}
	if cfg.Telegram.Configured() {
		reg.Register(ChannelTelegram, NewTelegram(cfg.Telegram, client))
	}
	if cfg.Discord.Configured() {
		reg.Register(ChannelDiscord, NewDiscord(cfg.Discord, client))
	}
	return reg
}
