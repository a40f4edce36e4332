package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Outcome is the delivery result of one channel.
type Outcome struct {
	Channel  string `json:"channel"`
	Sent     bool   `json:"sent"`
	Attempts int    `json:"attempts"`
	Err      error  `json:"-"`
}

// Reason returns the failure reason, empty when sent.
func (o Outcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Report collects the outcomes of one dispatch in requested order.
type Report struct {
	Outcomes []Outcome `json:"outcomes"`
}

// Sent returns the channels that delivered, in requested order.
func (r *Report) Sent() []string {
	out := []string{}
	for _, o := range r.Outcomes {
		if o.Sent {
			out = append(out, o.Channel)
		}
	}
	return out
}

// Failed returns the channels that did not deliver.
func (r *Report) Failed() []string {
	var out []string
	for _, o := range r.Outcomes {
		if !o.Sent {
			out = append(out, o.Channel)
		}
	}
	return out
}

// Dispatcher sends alerts through registered channels.
type Dispatcher struct {
	registry     *Registry
	policy       Policy
	previewLimit int
	logger       *slog.Logger
	now          func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithPolicy sets the retry policy applied to every channel send.
func WithPolicy(p Policy) Option {
	return func(d *Dispatcher) { d.policy = p }
}

// WithPreviewLimit sets the preview length in runes.
func WithPreviewLimit(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.previewLimit = n
		}
	}
}

// WithClock overrides the DetectedAt source.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates a Dispatcher over reg.
func NewDispatcher(reg *Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:     reg,
		policy:       DefaultPolicy(),
		previewLimit: PreviewLimit,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Registry returns the registry the dispatcher sends through.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Dispatch sends req to every requested channel concurrently and waits for
// all of them. It never fails as a whole: per-channel failures are recorded
// in the report.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) *Report {
	base := buildMessage(req, d.previewLimit)
	base.DetectedAt = d.now().UTC()

	report := &Report{Outcomes: make([]Outcome, len(req.Channels))}
	var wg sync.WaitGroup
	for i, name := range req.Channels {
		report.Outcomes[i] = Outcome{Channel: name}

		sender, ok := d.registry.Lookup(name)
		if !ok {
			report.Outcomes[i].Err = ErrUnknownChannel
			d.logger.WarnContext(ctx, "notify: unknown channel", "channel", name, "check_id", req.CheckID)
			continue
		}

		msg := base
		msg.Channel = name
		msg.Params = req.Params[name]

		wg.Add(1)
		go func(out *Outcome) {
			defer wg.Done()
			log := d.logger.With("channel", name, "url", req.URL, "check_id", req.CheckID)
			attempts, err := d.policy.Do(ctx, log, func(ctx context.Context) error {
				return sender.Send(ctx, msg)
			})
			out.Attempts = attempts
			if err != nil {
				out.Err = err
				log.ErrorContext(ctx, "notify: delivery failed", "attempts", attempts, "error", err)
				return
			}
			out.Sent = true
			log.InfoContext(ctx, "notify: sent", "attempts", attempts)
		}(&report.Outcomes[i])
	}
	wg.Wait()
	return report
}
