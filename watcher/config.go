package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/pagewatch/notify"
	"github.com/hazyhaar/pagewatch/shield"
	"github.com/hazyhaar/pagewatch/snapshot"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Fetch modes.
const (
	FetchHTTP    = "http"
	FetchBrowser = "browser"
)

// Config is the top-level pagewatch configuration.
type Config struct {
	Addr      string            `yaml:"addr"`
	LogLevel  string            `yaml:"log_level"`
	Store     StoreConfig       `yaml:"store"`
	Fetch     FetchConfig       `yaml:"fetch"`
	Notify    notify.Config     `yaml:"notify"`
	Preview   int               `yaml:"preview_limit"`
	RateLimit shield.RateConfig `yaml:"rate_limit"`
}

// StoreConfig selects and configures the snapshot backend.
type StoreConfig struct {
	Backend    string               `yaml:"backend"` // sqlite | redis
	SQLitePath string               `yaml:"sqlite_path"`
	Namespace  string               `yaml:"namespace"` // redis key prefix
	Redis      snapshot.RedisConfig `yaml:"redis"`
}

// FetchConfig controls page retrieval.
type FetchConfig struct {
	Mode      string        `yaml:"mode"` // http | browser
	Timeout   time.Duration `yaml:"timeout"`
	MaxBytes  int64         `yaml:"max_bytes"`
	UserAgent string        `yaml:"user_agent"`
	// AllowPrivate disables the SSRF guard, for intranet targets.
	AllowPrivate bool `yaml:"allow_private"`
	// BrowserURL is the DevTools URL of a remote Chrome (browser mode).
	BrowserURL string `yaml:"browser_url"`
}

// LoadConfig reads a YAML configuration file. Defaults are not applied;
// call ApplyEnv then Defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("watcher: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("watcher: parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// ApplyEnv overrides file values with environment variables. getenv is
// normally os.Getenv; empty values leave the field untouched.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}

	if p := getenv("PORT"); p != "" {
		c.Addr = ":" + p
	}
	str(&c.Addr, "ADDR")
	str(&c.LogLevel, "LOG_LEVEL")

	str(&c.Store.Backend, "STORE")
	str(&c.Store.SQLitePath, "SQLITE_PATH")
	str(&c.Store.Namespace, "BUCKET_NAME")
	str(&c.Store.Redis.Addr, "REDIS_ADDR")
	str(&c.Store.Redis.Password, "REDIS_PASSWORD")
	if v := getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("watcher: REDIS_DB: %w", err)
		}
		c.Store.Redis.DB = n
	}

	str(&c.Fetch.Mode, "FETCH_MODE")
	str(&c.Fetch.BrowserURL, "BROWSER_URL")
	if v := getenv("FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("watcher: FETCH_TIMEOUT: %w", err)
		}
		c.Fetch.Timeout = d
	}
	if v := getenv("ALLOW_PRIVATE_TARGETS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("watcher: ALLOW_PRIVATE_TARGETS: %w", err)
		}
		c.Fetch.AllowPrivate = b
	}

	n := &c.Notify
	str(&n.Email.APIKey, "SENDGRID_API_KEY")
	str(&n.Email.From, "SENDGRID_SENDER_EMAIL")
	str(&n.Email.To, "RECIPIENT_EMAIL")
	str(&n.Push.AppToken, "PUSHOVER_APP_TOKEN")
	str(&n.Push.UserKey, "PUSHOVER_USER_KEY")
	str(&n.Webhook.URL, "WEBHOOK_URL")
	str(&n.Webhook.Secret, "WEBHOOK_SECRET")
	str(&n.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	str(&n.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	str(&n.Discord.WebhookURL, "DISCORD_WEBHOOK_URL")

	if v := getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("watcher: RATE_LIMIT_RPS: %w", err)
		}
		c.RateLimit.RPS = f
	}
	return nil
}

// Defaults fills zero values.
func (c *Config) Defaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = StoreSQLite
	}
	if c.Store.SQLitePath == "" {
		c.Store.SQLitePath = filepath.Join("data", "pagewatch.db")
		if c.Store.Namespace != "" {
			c.Store.SQLitePath = filepath.Join("data", c.Store.Namespace+".db")
		}
	}
	if c.Store.Namespace == "" {
		c.Store.Namespace = "pagewatch"
	}
	if c.Fetch.Mode == "" {
		c.Fetch.Mode = FetchHTTP
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = 30 * time.Second
	}
	if c.Preview <= 0 {
		c.Preview = notify.PreviewLimit
	}
}

// Validate rejects settings that cannot work.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreSQLite:
	case StoreRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("watcher: store %q: %w", StoreRedis, snapshot.ErrEmptyRedisAddr)
		}
	default:
		return fmt.Errorf("watcher: unknown store backend %q", c.Store.Backend)
	}
	switch c.Fetch.Mode {
	case FetchHTTP, FetchBrowser:
	default:
		return fmt.Errorf("watcher: unknown fetch mode %q", c.Fetch.Mode)
	}
	return nil
}
