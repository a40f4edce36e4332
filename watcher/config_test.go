package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/pagewatch/notify"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagewatch.yaml")
	yml := `
addr: ":9090"
store:
  backend: redis
  namespace: shop
  redis:
    addr: "localhost:6379"
    db: 2
fetch:
  mode: browser
  timeout: 45s
notify:
  push:
    app_token: app
    user_key: usr
  webhook:
    url: https://hooks.example/pagewatch
rate_limit:
  rps: 2
  burst: 4
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	if cfg.Addr != ":9090" || cfg.Store.Backend != StoreRedis || cfg.Store.Redis.DB != 2 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Fetch.Mode != FetchBrowser || cfg.Fetch.Timeout != 45*time.Second {
		t.Errorf("fetch = %+v", cfg.Fetch)
	}
	if cfg.RateLimit.RPS != 2 || cfg.RateLimit.Burst != 4 {
		t.Errorf("rate limit = %+v", cfg.RateLimit)
	}
	got := notify.BuildRegistry(cfg.Notify, nil).Available()
	if strings.Join(got, ",") != "push,webhook" {
		t.Errorf("channels = %v", got)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("store: [unclosed"), 0o600)
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	// WHAT: Environment variables override file values.
	// WHY: Deployments configure channels through the same variables the
	// service has always read.
	env := map[string]string{
		"PORT":                  "8181",
		"STORE":                 "sqlite",
		"BUCKET_NAME":           "pages",
		"FETCH_TIMEOUT":         "10s",
		"ALLOW_PRIVATE_TARGETS": "true",
		"SENDGRID_API_KEY":      "SG.x",
		"SENDGRID_SENDER_EMAIL": "bot@example.com",
		"RECIPIENT_EMAIL":       "me@example.com",
		"PUSHOVER_APP_TOKEN":    "app",
		"PUSHOVER_USER_KEY":     "usr",
		"TELEGRAM_BOT_TOKEN":    "123:abc",
		"RATE_LIMIT_RPS":        "1.5",
	}
	cfg := &Config{Addr: ":1", Store: StoreConfig{Backend: StoreRedis}}
	if err := cfg.ApplyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	cfg.Defaults()

	if cfg.Addr != ":8181" {
		t.Errorf("addr = %q", cfg.Addr)
	}
	if cfg.Store.Backend != StoreSQLite || cfg.Store.SQLitePath != filepath.Join("data", "pages.db") {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Fetch.Timeout != 10*time.Second || !cfg.Fetch.AllowPrivate {
		t.Errorf("fetch = %+v", cfg.Fetch)
	}
	if cfg.RateLimit.RPS != 1.5 {
		t.Errorf("rps = %v", cfg.RateLimit.RPS)
	}
	// Telegram lacks a chat id, so it stays unavailable.
	got := notify.BuildRegistry(cfg.Notify, nil).Available()
	if strings.Join(got, ",") != "email,push" {
		t.Errorf("channels = %v", got)
	}
}

func TestApplyEnv_Invalid(t *testing.T) {
	for _, kv := range [][2]string{
		{"REDIS_DB", "two"},
		{"FETCH_TIMEOUT", "soon"},
		{"ALLOW_PRIVATE_TARGETS", "maybe"},
		{"RATE_LIMIT_RPS", "fast"},
	} {
		cfg := &Config{}
		err := cfg.ApplyEnv(func(k string) string {
			if k == kv[0] {
				return kv[1]
			}
			return ""
		})
		if err == nil {
			t.Errorf("%s=%s: expected error", kv[0], kv[1])
		}
	}
}

func TestDefaultsAndValidate(t *testing.T) {
	cfg := &Config{}
	cfg.Defaults()
	if cfg.Addr != ":8080" || cfg.Store.Backend != StoreSQLite || cfg.Fetch.Mode != FetchHTTP {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Store.SQLitePath != filepath.Join("data", "pagewatch.db") || cfg.Preview != notify.PreviewLimit {
		t.Errorf("defaults = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("validate defaults: %v", err)
	}

	bad := []Config{
		{Store: StoreConfig{Backend: StoreRedis}, Fetch: FetchConfig{Mode: FetchHTTP}},
		{Store: StoreConfig{Backend: "s3"}, Fetch: FetchConfig{Mode: FetchHTTP}},
		{Store: StoreConfig{Backend: StoreSQLite}, Fetch: FetchConfig{Mode: "carrier-pigeon"}},
	}
	for i, c := range bad {
		if err := c.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}
