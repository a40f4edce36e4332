// Package notify delivers change alerts through a configurable set of
// channels.
//
// Every channel implements one capability, Sender.Send. Channels are
// registered by name in a Registry; the Dispatcher looks senders up by name,
// merges the per-channel parameter bag into the message and runs each send
// under a bounded retry Policy. Channels are dispatched concurrently and a
// failure on one never blocks or cancels another.
//
//	reg := notify.NewRegistry()
//	reg.Register(notify.ChannelEmail, notify.NewEmail(cfg.Email, client))
//	d := notify.NewDispatcher(reg, notify.WithLogger(logger))
//	report := d.Dispatch(ctx, notify.Request{URL: u, OldContent: o, NewContent: n, Channels: reg.Available()})
//	report.Sent() // ["email"]
package notify

import (
	"context"
	"time"
)

// Channel names.
const (
	ChannelEmail    = "email"
	ChannelPush     = "push"
	ChannelWebhook  = "webhook"
	ChannelTelegram = "telegram"
	ChannelDiscord  = "discord"
)

// Sender delivers one structured alert. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Message is the channel-agnostic alert payload. Previews are bounded; the
// full content bodies never travel to a provider.
type Message struct {
	Channel    string    `json:"channel"`
	CheckID    string    `json:"check_id,omitempty"`
	URL        string    `json:"url"`
	Subject    string    `json:"subject"`
	Title      string    `json:"title"`
	DetectedAt time.Time `json:"detected_at"`

	// OldHTML and NewHTML are truncated normalized markup.
	OldHTML string `json:"old_html"`
	NewHTML string `json:"new_html"`
	// OldText and NewText are truncated tag-free text.
	OldText string `json:"old_text"`
	NewText string `json:"new_text"`
	// OldMarkdown and NewMarkdown are truncated markdown renderings.
	OldMarkdown string `json:"old_markdown"`
	NewMarkdown string `json:"new_markdown"`

	// Params is the caller-supplied parameter bag for this channel.
	Params map[string]any `json:"params,omitempty"`
}

// Request is one dispatch: the change and the channels to alert.
type Request struct {
	CheckID    string
	URL        string
	OldContent string
	NewContent string
	Channels   []string
	// Params maps channel name to that channel's parameter bag.
	Params map[string]map[string]any
}
