// Package watcher orchestrates one page check: fetch the target, normalize
// it, compare with the latest stored snapshot, persist and alert on change.
//
// A check is a request/response unit with no state outside the snapshot
// store. The same Service backs the HTTP API, the MCP tools and the
// one-shot CLI.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazyhaar/pagewatch/change"
	"github.com/hazyhaar/pagewatch/extract"
	"github.com/hazyhaar/pagewatch/horosafe"
	"github.com/hazyhaar/pagewatch/idgen"
	"github.com/hazyhaar/pagewatch/notify"
	"github.com/hazyhaar/pagewatch/snapshot"
	"github.com/hazyhaar/pagewatch/watcher/internal/fetch"
)

// Report statuses.
const (
	StatusInitial   = "initial_check"
	StatusUnchanged = "no_change"
	StatusChanged   = "change_detected"
	StatusError     = "error"
)

// Fetcher returns the raw markup of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// CheckRequest is one check invocation.
type CheckRequest struct {
	URL string `json:"url"`
	// Methods names the channels to alert; empty means all available.
	Methods Methods `json:"method,omitempty"`
	// ChannelParams maps a channel name to its parameter bag.
	ChannelParams map[string]map[string]any `json:"channel_params,omitempty"`
	// PushParams is the legacy spelling of ChannelParams["push"].
	PushParams map[string]any `json:"push_params,omitempty"`
}

// Report is the outcome of a check.
type Report struct {
	Status           string   `json:"status"`
	NotificationSent bool     `json:"notification_sent"`
	MethodsUsed      []string `json:"methods_used"`
	Message          string   `json:"message,omitempty"`
	CheckID          string   `json:"check_id,omitempty"`
	Target           string   `json:"target,omitempty"`
}

// ErrorReport renders err in the report shape.
func ErrorReport(err error) *Report {
	return &Report{Status: StatusError, MethodsUsed: []string{}, Message: err.Error()}
}

// Service runs checks.
type Service struct {
	store      snapshot.Store
	fetcher    Fetcher
	dispatcher *notify.Dispatcher
	logger     *slog.Logger
	newID      idgen.Generator
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator sets the check ID generator.
func WithIDGenerator(g idgen.Generator) Option {
	return func(s *Service) { s.newID = g }
}

// New creates a Service. The dispatcher's registry defines the available
// channels.
func New(store snapshot.Store, fetcher Fetcher, dispatcher *notify.Dispatcher, opts ...Option) *Service {
	s := &Service{
		store:      store,
		fetcher:    fetcher,
		dispatcher: dispatcher,
		logger:     slog.Default(),
		newID:      idgen.Prefixed("chk_", idgen.UUIDv7()),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Channels returns the available channel names.
func (s *Service) Channels() []string {
	return s.dispatcher.Registry().Available()
}

// Check runs one check. Errors are ErrInvalidRequest, *FetchError or
// *StorageError; channel failures never fail the check.
func (s *Service) Check(ctx context.Context, req CheckRequest) (*Report, error) {
	checkID := s.newID()
	log := s.logger.With("check_id", checkID)

	target := strings.TrimSpace(req.URL)
	if target == "" {
		return nil, invalid("url is required")
	}
	if _, err := horosafe.CheckTarget(target); err != nil {
		return nil, invalid("url %q: %v", target, err)
	}
	channels := s.dispatcher.Registry().Resolve(req.Methods)

	raw, err := s.fetcher.Fetch(ctx, target)
	if err != nil {
		if errors.Is(err, fetch.ErrBlocked) {
			return nil, invalid("url %q: %v", target, err)
		}
		fe := &FetchError{URL: target, Err: err}
		var se *fetch.StatusError
		if errors.As(err, &se) {
			fe.StatusCode = se.StatusCode
		}
		log.WarnContext(ctx, "watcher: fetch failed", "url", target, "error", err)
		return nil, fe
	}
	content := extract.Normalize(raw)

	targetFP := snapshot.Fingerprint(target)
	log = log.With("url", target, "target", targetFP)

	prev, err := s.store.Latest(ctx, targetFP)
	if err != nil {
		log.ErrorContext(ctx, "watcher: latest snapshot", "error", err)
		return nil, &StorageError{Op: "latest", Err: err}
	}

	report := &Report{
		MethodsUsed: []string{},
		CheckID:     checkID,
		Target:      targetFP,
	}

	result := change.Detect(prev, content)
	switch result {
	case change.Unchanged:
		report.Status = StatusUnchanged

	case change.Initial:
		if err := s.save(ctx, log, targetFP, content); err != nil {
			return nil, err
		}
		report.Status = StatusInitial

	case change.Changed:
		if err := s.save(ctx, log, targetFP, content); err != nil {
			return nil, err
		}
		report.Status = StatusChanged
		if len(channels) > 0 {
			dr := s.dispatcher.Dispatch(ctx, notify.Request{
				CheckID:    checkID,
				URL:        target,
				OldContent: prev.Content,
				NewContent: content,
				Channels:   channels,
				Params:     channelParams(req),
			})
			report.MethodsUsed = dr.Sent()
			report.NotificationSent = len(report.MethodsUsed) > 0
		} else {
			log.WarnContext(ctx, "watcher: change detected but no channel is configured")
		}
	}

	log.InfoContext(ctx, "watcher: check done",
		"status", report.Status,
		"size", len(content),
		"methods_used", report.MethodsUsed)
	return report, nil
}

func (s *Service) save(ctx context.Context, log *slog.Logger, targetFP, content string) error {
	created, err := s.store.Save(ctx, targetFP, content)
	if err != nil {
		log.ErrorContext(ctx, "watcher: save snapshot", "error", err)
		return &StorageError{Op: "save", Err: err}
	}
	log.DebugContext(ctx, "watcher: snapshot saved", "created", created)
	return nil
}

// History returns snapshot metadata for url, newest first.
func (s *Service) History(ctx context.Context, url string, limit int) ([]snapshot.Snapshot, error) {
	target := strings.TrimSpace(url)
	if target == "" {
		return nil, invalid("url is required")
	}
	if limit < 0 {
		return nil, invalid("limit must be positive, got %d", limit)
	}
	snaps, err := s.store.History(ctx, snapshot.Fingerprint(target), limit)
	if err != nil {
		return nil, &StorageError{Op: "history", Err: err}
	}
	if snaps == nil {
		snaps = []snapshot.Snapshot{}
	}
	return snaps, nil
}

// channelParams merges the legacy push_params into the per-channel bags.
// Keys in channel_params win.
func channelParams(req CheckRequest) map[string]map[string]any {
	if len(req.PushParams) == 0 {
		return req.ChannelParams
	}
	out := make(map[string]map[string]any, len(req.ChannelParams)+1)
	for ch, p := range req.ChannelParams {
		out[ch] = p
	}
	push := make(map[string]any, len(req.PushParams)+len(out[notify.ChannelPush]))
	for k, v := range req.PushParams {
		push[k] = v
	}
	for k, v := range out[notify.ChannelPush] {
		push[k] = v
	}
	out[notify.ChannelPush] = push
	return out
}

// String implements fmt.Stringer for log lines and the CLI.
func (r *Report) String() string {
	if r.Status == StatusError {
		return fmt.Sprintf("%s: %s", r.Status, r.Message)
	}
	return fmt.Sprintf("%s (notified: %v)", r.Status, r.MethodsUsed)
}
