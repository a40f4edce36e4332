package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// PushoverEndpoint is the Pushover messages API.
const PushoverEndpoint = "https://api.pushover.net/1/messages.json"

// pushoverMessageLimit is Pushover's message length cap in characters.
const pushoverMessageLimit = 1024

// PushConfig configures the push channel (Pushover).
type PushConfig struct {
	AppToken string `yaml:"app_token"`
	UserKey  string `yaml:"user_key"`
	Endpoint string `yaml:"endpoint"`
}

// Configured reports whether every required value is present.
func (c PushConfig) Configured() bool {
	return c.AppToken != "" && c.UserKey != ""
}

// Push sends alerts through Pushover. Every parameter in the bag (priority,
// sound, device...) is merged into the form, except the credentials.
type Push struct {
	cfg    PushConfig
	client *http.Client
}

// NewPush returns the push sender.
func NewPush(cfg PushConfig, client *http.Client) *Push {
	if cfg.Endpoint == "" {
		cfg.Endpoint = PushoverEndpoint
	}
	return &Push{cfg: cfg, client: clientOrDefault(client)}
}

// Send implements Sender.
func (p *Push) Send(ctx context.Context, msg Message) error {
	text := fmt.Sprintf("Website Content Changed: %s\n\nOld Content:\n%s\n\nNew Content:\n%s",
		msg.URL, msg.OldText, msg.NewText)

	form := url.Values{}
	for k, v := range stringParams(msg.Params) {
		if k == "token" || k == "user" {
			continue
		}
		form.Set(k, v)
	}
	form.Set("token", p.cfg.AppToken)
	form.Set("user", p.cfg.UserKey)
	form.Set("message", Truncate(text, pushoverMessageLimit-3))
	if form.Get("title") == "" {
		form.Set("title", Truncate(msg.Title, 247))
	}
	if form.Get("url") == "" {
		form.Set("url", msg.URL)
	}
	return postForm(ctx, p.client, ChannelPush, p.cfg.Endpoint, form)
}
