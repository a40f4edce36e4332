package notify

import (
	"context"
	"fmt"
	"net/http"
)

// discordContentLimit is the webhook message content cap in characters.
const discordContentLimit = 2000

// DiscordConfig configures the Discord channel.
type DiscordConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// Configured reports whether every required value is present.
func (c DiscordConfig) Configured() bool {
	return c.WebhookURL != ""
}

// Discord posts alerts to an incoming webhook. Parameters (username,
// avatar_url...) are merged into the body.
type Discord struct {
	cfg    DiscordConfig
	client *http.Client
}

// NewDiscord returns the Discord sender.
func NewDiscord(cfg DiscordConfig, client *http.Client) *Discord {
	return &Discord{cfg: cfg, client: clientOrDefault(client)}
}

// Send implements Sender.
func (d *Discord) Send(ctx context.Context, msg Message) error {
	content := fmt.Sprintf("**%s**\n\n__Old__\n%s\n\n__New__\n%s", msg.Title, msg.OldMarkdown, msg.NewMarkdown)
	body := map[string]any{
		"content": Truncate(content, discordContentLimit-3),
	}
	mergeParams(body, msg.Params, "content")
	return postJSON(ctx, d.client, ChannelDiscord, d.cfg.WebhookURL, body, nil)
}
