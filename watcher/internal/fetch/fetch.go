// Package fetch retrieves the raw markup of a monitored page.
//
// Two modes exist: HTTP performs a plain GET with SSRF checks on the target
// and on every redirect; Browser renders the page in headless Chrome through
// Rod with stealth applied, for pages that build their content client-side.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hazyhaar/pagewatch/horosafe"
)

// StatusError is returned when the page answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch: %s: http %d", e.URL, e.StatusCode)
}

// ErrBlocked wraps URL validation failures (SSRF guard).
var ErrBlocked = errors.New("fetch: URL blocked")

// Config configures the HTTP fetcher.
type Config struct {
	Timeout  time.Duration // HTTP timeout. Default: 30s.
	MaxBytes int64         // Max response body size. Default: 10MB.
	// UserAgent sent with requests.
	UserAgent string
	// MaxRedirects bounds redirect chains. Default: 5.
	MaxRedirects int
	// URLValidator validates URLs before fetch and on every redirect.
	// Default: horosafe.ValidateURL.
	URLValidator func(string) error
	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = "pagewatch/1.0"
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = 5
	}
	if c.URLValidator == nil {
		c.URLValidator = horosafe.ValidateURL
	}
}

// HTTP fetches pages with a single GET.
type HTTP struct {
	client *http.Client
	config Config
}

// NewHTTP creates an HTTP fetcher with SSRF protection on redirects.
func NewHTTP(cfg Config) *HTTP {
	cfg.defaults()
	validate := cfg.URLValidator
	maxRedirects := cfg.MaxRedirects
	return &HTTP{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				if err := validate(req.URL.String()); err != nil {
					return fmt.Errorf("%w: redirect to %s: %w", ErrBlocked, req.URL.Redacted(), err)
				}
				return nil
			},
		},
		config: cfg,
	}
}

// Fetch GETs url and returns the body as text. Non-2xx answers are
// *StatusError.
func (f *HTTP) Fetch(ctx context.Context, url string) (string, error) {
	if err := f.config.URLValidator(url); err != nil {
		return "", fmt.Errorf("%w: %w", ErrBlocked, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("fetch: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := horosafe.LimitedReadAll(resp.Body, f.config.MaxBytes)
	if err != nil {
		return "", fmt.Errorf("fetch: read body: %w", err)
	}
	return strings.ToValidUTF8(string(body), "�"), nil
}
