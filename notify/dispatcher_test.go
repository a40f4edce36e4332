package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// instantPolicy is DefaultPolicy with recorded, zero-length sleeps.
func instantPolicy(waits *[]time.Duration) Policy {
	var mu sync.Mutex
	p := DefaultPolicy()
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		if waits != nil {
			*waits = append(*waits, d)
		}
		return ctx.Err()
	}
	return p
}

func newTestDispatcher(reg *Registry, waits *[]time.Duration) *Dispatcher {
	return NewDispatcher(reg,
		WithLogger(quietLogger()),
		WithPolicy(instantPolicy(waits)),
		WithClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }),
	)
}

type countingSender struct {
	calls atomic.Int32
	err   error
	last  atomic.Pointer[Message]
}

func (s *countingSender) Send(_ context.Context, msg Message) error {
	s.calls.Add(1)
	s.last.Store(&msg)
	return s.err
}

func TestDispatch_ChannelIsolation(t *testing.T) {
	// WHAT: A channel that always fails does not prevent delivery on another.
	// WHY: Alerts must degrade per channel, never as a whole.
	failing := &countingSender{err: &SendError{Channel: "a", StatusCode: 503}}
	ok := &countingSender{}

	reg := NewRegistry()
	reg.Register("a", failing)
	reg.Register("b", ok)

	report := newTestDispatcher(reg, nil).Dispatch(context.Background(), Request{
		URL:        "https://example.com",
		OldContent: "<p>old</p>",
		NewContent: "<p>new</p>",
		Channels:   []string{"a", "b"},
	})

	if got := report.Sent(); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("sent = %v, want [b]", got)
	}
	if got := report.Failed(); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("failed = %v, want [a]", got)
	}
	if n := failing.calls.Load(); n != 3 {
		t.Errorf("failing attempts = %d, want 3", n)
	}
	if n := ok.calls.Load(); n != 1 {
		t.Errorf("ok attempts = %d, want 1", n)
	}
	if report.Outcomes[0].Reason() == "" {
		t.Error("failed outcome has no reason")
	}
}

func TestDispatch_AllFail(t *testing.T) {
	// WHAT: When every channel fails the report lists nothing as sent.
	// WHY: methods_used is always emitted, so Sent must be an empty slice.
	reg := NewRegistry()
	reg.Register("a", SenderFunc(func(context.Context, Message) error { return errors.New("down") }))

	report := newTestDispatcher(reg, nil).Dispatch(context.Background(), Request{
		URL: "https://example.com", Channels: []string{"a"},
	})
	sent := report.Sent()
	if sent == nil || len(sent) != 0 {
		t.Fatalf("sent = %#v, want empty non-nil", sent)
	}
}

func TestDispatch_UnknownChannel(t *testing.T) {
	reg := NewRegistry()
	reg.Register("a", &countingSender{})

	report := newTestDispatcher(reg, nil).Dispatch(context.Background(), Request{
		URL: "https://example.com", Channels: []string{"a", "ghost"},
	})
	if !errors.Is(report.Outcomes[1].Err, ErrUnknownChannel) {
		t.Fatalf("ghost err = %v, want ErrUnknownChannel", report.Outcomes[1].Err)
	}
	if got := report.Sent(); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("sent = %v", got)
	}
}

func TestDispatch_Message(t *testing.T) {
	// WHAT: Senders receive bounded previews, their own params and the
	// dispatch timestamp.
	// WHY: Full page bodies must never reach a provider.
	s := &countingSender{}
	reg := NewRegistry()
	reg.Register("a", s)

	long := "<p>" + strings.Repeat("x", 5000) + "</p>"
	newTestDispatcher(reg, nil).Dispatch(context.Background(), Request{
		CheckID:    "chk_1",
		URL:        "https://example.com/page",
		OldContent: "<p>old</p>",
		NewContent: long,
		Channels:   []string{"a"},
		Params: map[string]map[string]any{
			"a":     {"priority": 1},
			"other": {"priority": 2},
		},
	})

	msg := s.last.Load()
	if msg == nil {
		t.Fatal("sender not called")
	}
	if msg.Channel != "a" || msg.CheckID != "chk_1" {
		t.Errorf("channel/check = %q/%q", msg.Channel, msg.CheckID)
	}
	if msg.Subject != "Website Content Changed: https://example.com/page" {
		t.Errorf("subject = %q", msg.Subject)
	}
	if n := len([]rune(msg.NewHTML)); n != PreviewLimit+3 {
		t.Errorf("new preview runes = %d, want %d", n, PreviewLimit+3)
	}
	if msg.OldHTML != "<p>old</p>" || msg.OldText != "old" {
		t.Errorf("old previews = %q / %q", msg.OldHTML, msg.OldText)
	}
	if msg.Params["priority"] != 1 {
		t.Errorf("params = %v", msg.Params)
	}
	if !msg.DetectedAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("detected_at = %v", msg.DetectedAt)
	}
}

func TestDispatch_Concurrent(t *testing.T) {
	// WHAT: Channels are sent in parallel.
	// WHY: A slow provider must not delay the others by its full latency.
	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(2)
	blocking := SenderFunc(func(ctx context.Context, _ Message) error {
		started.Done()
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	reg := NewRegistry()
	reg.Register("a", blocking)
	reg.Register("b", blocking)

	go func() {
		started.Wait()
		close(release)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	report := newTestDispatcher(reg, nil).Dispatch(ctx, Request{URL: "u", Channels: []string{"a", "b"}})
	if got := report.Sent(); len(got) != 2 {
		t.Fatalf("sent = %v, want both", got)
	}
}

func TestPolicy_Do(t *testing.T) {
	tests := []struct {
		name         string
		errs         []error
		wantAttempts int
		wantErr      bool
		wantWaits    []time.Duration
	}{
		{"first try", []error{nil}, 1, false, nil},
		{"recovers", []error{errors.New("x"), nil}, 2, false, []time.Duration{4 * time.Second}},
		{"exhausted", []error{errors.New("x"), errors.New("x"), errors.New("x")}, 3, true,
			[]time.Duration{4 * time.Second, 8 * time.Second}},
		{"permanent 4xx", []error{&SendError{Channel: "c", StatusCode: http.StatusUnauthorized}}, 1, true, nil},
		{"429 retried", []error{&SendError{Channel: "c", StatusCode: http.StatusTooManyRequests}, nil}, 2, false,
			[]time.Duration{4 * time.Second}},
		{"wrapped permanent", []error{Permanent(errors.New("bad payload"))}, 1, true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var waits []time.Duration
			p := instantPolicy(&waits)
			i := 0
			attempts, err := p.Do(context.Background(), quietLogger(), func(context.Context) error {
				e := tt.errs[i]
				i++
				return e
			})
			if attempts != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", attempts, tt.wantAttempts)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(waits, tt.wantWaits) {
				t.Errorf("waits = %v, want %v", waits, tt.wantWaits)
			}
		})
	}
}

func TestPolicy_Delay(t *testing.T) {
	// WHAT: Waits double from the base and are capped.
	p := DefaultPolicy()
	want := []time.Duration{4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second}
	for i, w := range want {
		if got := p.Delay(i + 1); got != w {
			t.Errorf("Delay(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestPolicy_Do_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := DefaultPolicy()
	attempts, err := p.Do(ctx, nil, func(context.Context) error { return errors.New("x") })
	if attempts != 1 || err == nil {
		t.Fatalf("attempts=%d err=%v, want 1 and error", attempts, err)
	}
}

func TestRegistry_Resolve(t *testing.T) {
	// WHAT: An empty list or any unknown name falls back to every channel.
	// WHY: A typo must not silently suppress alerts.
	reg := NewRegistry()
	reg.Register(ChannelEmail, &countingSender{})
	reg.Register(ChannelPush, &countingSender{})

	all := []string{ChannelEmail, ChannelPush}
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"empty", nil, all},
		{"subset", []string{ChannelPush}, []string{ChannelPush}},
		{"unknown entry", []string{ChannelPush, "sms"}, all},
		{"duplicates", []string{ChannelPush, ChannelPush, ChannelEmail}, []string{ChannelPush, ChannelEmail}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reg.Resolve(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Resolve(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRegistry_ResolveNoChannels(t *testing.T) {
	reg := NewRegistry()
	if got := reg.Resolve([]string{"email"}); len(got) != 0 {
		t.Fatalf("Resolve = %v, want empty", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"abcdef", 3, "abc..."},
		{"héllo wörld", 5, "héllo..."},
		{"", 3, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.limit); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
		}
	}
}
