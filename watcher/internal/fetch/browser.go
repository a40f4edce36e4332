package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/pagewatch/horosafe"
)

// BrowserConfig configures the headless fetcher.
type BrowserConfig struct {
	// RemoteURL is the DevTools WebSocket URL of an external Chrome.
	// Empty launches a local headless Chrome on first use.
	RemoteURL string
	// Timeout bounds navigation plus load. Default: 30s.
	Timeout time.Duration
	// URLValidator is applied before navigation. Default: horosafe.ValidateURL.
	URLValidator func(string) error
	Logger       *slog.Logger
}

func (c *BrowserConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.URLValidator == nil {
		c.URLValidator = horosafe.ValidateURL
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Browser renders pages in headless Chrome and returns the serialized DOM.
// Chrome is started lazily and shared by concurrent fetches, one tab each.
type Browser struct {
	cfg BrowserConfig

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// NewBrowser returns a Browser fetcher. Chrome is not started until the
// first Fetch.
func NewBrowser(cfg BrowserConfig) *Browser {
	cfg.defaults()
	return &Browser{cfg: cfg}
}

func (b *Browser) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser != nil {
		return b.browser, nil
	}

	wsURL := b.cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("fetch: browser launch: %w", err)
		}
		wsURL = u
		b.lnch = l
		b.cfg.Logger.Info("fetch: launched local chrome", "url", wsURL)
	}

	rb := rod.New().ControlURL(wsURL)
	if err := rb.Connect(); err != nil {
		return nil, fmt.Errorf("fetch: browser connect: %w", err)
	}
	b.browser = rb
	return rb, nil
}

// Fetch navigates a fresh stealth tab to url, waits for load and returns
// document.documentElement.outerHTML.
func (b *Browser) Fetch(ctx context.Context, url string) (string, error) {
	if err := b.cfg.URLValidator(url); err != nil {
		return "", fmt.Errorf("%w: %w", ErrBlocked, err)
	}

	rb, err := b.connect()
	if err != nil {
		return "", err
	}

	page, err := stealth.Page(rb)
	if err != nil {
		return "", fmt.Errorf("fetch: browser tab: %w", err)
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()
	p := page.Context(navCtx)

	if err := p.Navigate(url); err != nil {
		return "", fmt.Errorf("fetch: navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		b.cfg.Logger.Warn("fetch: wait load timeout", "url", url, "error", err)
	}

	res, err := p.Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("fetch: get DOM: %w", err)
	}
	return res.Value.Str(), nil
}

// Close shuts Chrome down if it was started.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var err error
	if b.browser != nil {
		err = b.browser.Close()
		b.browser = nil
	}
	if b.lnch != nil {
		b.lnch.Cleanup()
		b.lnch = nil
	}
	return err
}
