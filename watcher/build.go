package watcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/pagewatch/horosafe"
	"github.com/hazyhaar/pagewatch/snapshot"
	"github.com/hazyhaar/pagewatch/watcher/internal/fetch"
)

// OpenStore opens the configured snapshot backend.
func OpenStore(ctx context.Context, cfg StoreConfig) (snapshot.Store, error) {
	switch cfg.Backend {
	case StoreRedis:
		rdb, err := snapshot.DialRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return snapshot.NewRedisStore(rdb, cfg.Namespace), nil
	case StoreSQLite, "":
		return snapshot.OpenSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("watcher: unknown store backend %q", cfg.Backend)
	}
}

// NewFetcher builds the configured fetcher. The returned close function
// releases the headless browser in browser mode.
func NewFetcher(cfg FetchConfig, logger *slog.Logger) (Fetcher, func() error) {
	validate := horosafe.ValidateURL
	if cfg.AllowPrivate {
		validate = horosafe.AllowPrivate
	}
	if cfg.Mode == FetchBrowser {
		b := fetch.NewBrowser(fetch.BrowserConfig{
			RemoteURL:    cfg.BrowserURL,
			Timeout:      cfg.Timeout,
			URLValidator: validate,
			Logger:       logger,
		})
		return b, b.Close
	}
	return fetch.NewHTTP(fetch.Config{
		Timeout:      cfg.Timeout,
		MaxBytes:     cfg.MaxBytes,
		UserAgent:    cfg.UserAgent,
		URLValidator: validate,
	}), func() error { return nil }
}
