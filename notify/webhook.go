package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookConfig configures the generic webhook channel.
type WebhookConfig struct {
	URL string `yaml:"url"`
	// Secret, when set, signs the body with HMAC-SHA256 in the
	// X-Signature-256 header ("sha256=<hex>").
	Secret string `yaml:"secret"`
}

// Configured reports whether every required value is present.
func (c WebhookConfig) Configured() bool {
	return c.URL != ""
}

// Webhook POSTs the alert as JSON. The parameter bag travels under "params".
type Webhook struct {
	cfg    WebhookConfig
	client *http.Client
}

// NewWebhook returns the webhook sender.
func NewWebhook(cfg WebhookConfig, client *http.Client) *Webhook {
	return &Webhook{cfg: cfg, client: clientOrDefault(client)}
}

type webhookPayload struct {
	Event      string         `json:"event"`
	CheckID    string         `json:"check_id,omitempty"`
	URL        string         `json:"url"`
	DetectedAt string         `json:"detected_at"`
	OldPreview string         `json:"old_preview"`
	NewPreview string         `json:"new_preview"`
	Params     map[string]any `json:"params,omitempty"`
}

// Send implements Sender.
func (w *Webhook) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(webhookPayload{
		Event:      "content_changed",
		CheckID:    msg.CheckID,
		URL:        msg.URL,
		DetectedAt: msg.DetectedAt.Format(time.RFC3339),
		OldPreview: msg.OldHTML,
		NewPreview: msg.NewHTML,
		Params:     msg.Params,
	})
	if err != nil {
		return Permanent(&SendError{Channel: ChannelWebhook, Err: fmt.Errorf("marshal payload: %w", err)})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return Permanent(&SendError{Channel: ChannelWebhook, Err: fmt.Errorf("build request: %w", err)})
	}
	req.Header.Set("Content-Type", "application/json")
	if w.cfg.Secret != "" {
		req.Header.Set("X-Signature-256", "sha256="+Sign(w.cfg.Secret, body))
	}
	return do(w.client, ChannelWebhook, req)
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
