package notify

import (
	"bytes"
	"context"
	"html/template"
	"net/http"
	"strings"
)

// SendGridEndpoint is the SendGrid v3 mail send API.
const SendGridEndpoint = "https://api.sendgrid.com/v3/mail/send"

// EmailConfig configures the email channel (SendGrid).
type EmailConfig struct {
	APIKey   string `yaml:"api_key"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
	Endpoint string `yaml:"endpoint"`
}

// Configured reports whether every required value is present.
func (c EmailConfig) Configured() bool {
	return c.APIKey != "" && c.From != "" && c.To != ""
}

// Email sends alerts through the SendGrid mail API. The HTML body embeds
// escaped markup previews; the parameter bag becomes SendGrid custom_args.
type Email struct {
	cfg    EmailConfig
	client *http.Client
}

// NewEmail returns the email sender.
func NewEmail(cfg EmailConfig, client *http.Client) *Email {
	if cfg.Endpoint == "" {
		cfg.Endpoint = SendGridEndpoint
	}
	return &Email{cfg: cfg, client: clientOrDefault(client)}
}

var emailTemplate = template.Must(template.New("email").Parse(
	`<html><body><h1>Content changed</h1><h2>URL: {{.URL}}</h2>` +
		`<h3>Old Content:</h3><pre>{{.OldHTML}}</pre>` +
		`<h3>New Content:</h3><pre>{{.NewHTML}}</pre></body></html>`))

type sgAddress struct {
	Email string `json:"email"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgMail struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
	CustomArgs       map[string]string   `json:"custom_args,omitempty"`
}

// Send implements Sender.
func (e *Email) Send(ctx context.Context, msg Message) error {
	var body bytes.Buffer
	if err := emailTemplate.Execute(&body, msg); err != nil {
		return Permanent(&SendError{Channel: ChannelEmail, Err: err})
	}

	plain := strings.Join([]string{
		msg.Subject,
		"",
		"Old Content:",
		msg.OldText,
		"",
		"New Content:",
		msg.NewText,
	}, "\n")

	mail := sgMail{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: e.cfg.To}}}},
		From:             sgAddress{Email: e.cfg.From},
		Subject:          msg.Subject,
		Content: []sgContent{
			{Type: "text/plain", Value: plain},
			{Type: "text/html", Value: body.String()},
		},
	}
	if len(msg.Params) > 0 {
		mail.CustomArgs = stringParams(msg.Params)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	return postJSON(ctx, e.client, ChannelEmail, e.cfg.Endpoint, mail, header)
}
