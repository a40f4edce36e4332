// Entry point for the pagewatch service: HTTP API and MCP over streamable
// HTTP, or a single check with -check for cron-driven runs.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/pagewatch/kit"
	"github.com/hazyhaar/pagewatch/notify"
	"github.com/hazyhaar/pagewatch/shield"
	"github.com/hazyhaar/pagewatch/watcher"
)

const version = "1.0.0"

// Exit codes of the one-shot mode.
const (
	exitOK      = 0
	exitInvalid = 1
	exitFailure = 2
)

type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

func main() {
	var (
		configPath    = flag.String("config", "", "YAML configuration file")
		checkURL      = flag.String("check", "", "run a single check of this URL, print the report and exit")
		channelParams = flag.String("channel-params", "", "JSON object of per-channel parameters (with -check)")
		methods       stringList
	)
	flag.Var(&methods, "method", "channel to alert (repeatable, with -check)")
	flag.Parse()

	cfg := &watcher.Config{}
	if *configPath != "" {
		c, err := watcher.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitInvalid)
		}
		cfg = c
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitInvalid)
	}
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitInvalid)
	}

	logger := newLogger(cfg.LogLevel, *checkURL != "")
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := watcher.OpenStore(ctx, cfg.Store)
	if err != nil {
		slog.Error("open store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(exitFailure)
	}
	defer store.Close()

	fetcher, closeFetcher := watcher.NewFetcher(cfg.Fetch, logger)
	defer closeFetcher()

	reg := notify.BuildRegistry(cfg.Notify, nil)
	dispatcher := notify.NewDispatcher(reg,
		notify.WithLogger(logger),
		notify.WithPreviewLimit(cfg.Preview),
	)
	svc := watcher.New(store, fetcher, dispatcher, watcher.WithLogger(logger))

	slog.Info("pagewatch configured",
		"store", cfg.Store.Backend,
		"fetch_mode", cfg.Fetch.Mode,
		"channels", reg.Available())

	if *checkURL != "" {
		req := watcher.CheckRequest{URL: *checkURL, Methods: watcher.Methods(methods)}
		if *channelParams != "" {
			if err := json.Unmarshal([]byte(*channelParams), &req.ChannelParams); err != nil {
				fmt.Fprintf(os.Stderr, "channel-params: %v\n", err)
				os.Exit(exitInvalid)
			}
		}
		code := runOnce(kit.WithTransport(ctx, "cli"), svc, req)
		store.Close()
		closeFetcher()
		os.Exit(code)
	}

	serve(ctx, cfg, svc)
}

// runOnce runs one check and prints the JSON report on stdout.
func runOnce(ctx context.Context, svc *watcher.Service, req watcher.CheckRequest) int {
	report, err := svc.Check(ctx, req)
	code := exitOK
	if err != nil {
		report = watcher.ErrorReport(err)
		code = exitFailure
		if errors.Is(err, watcher.ErrInvalidRequest) {
			code = exitInvalid
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(report)
	return code
}

func serve(ctx context.Context, cfg *watcher.Config, svc *watcher.Service) {
	mcpSrv := mcp.NewServer(&mcp.Implementation{Name: "pagewatch", Version: version}, nil)
	svc.RegisterMCP(mcpSrv)
	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return mcpSrv }, nil)

	stack, rl := shield.DefaultAPIStack(cfg.RateLimit)
	if rl != nil {
		rl.StartGC(ctx.Done())
	}

	r := chi.NewRouter()
	r.Use(shield.Recover)
	for _, mw := range stack {
		r.Use(mw)
	}
	svc.RegisterHTTP(r)
	r.Handle("/mcp", mcpHandler)
	r.Handle("/mcp/*", mcpHandler)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(exitFailure)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// newLogger builds the JSON logger. One-shot runs log to stderr so stdout
// carries only the report.
func newLogger(level string, oneShot bool) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	out := os.Stdout
	if oneShot {
		out = os.Stderr
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lvl}))
}
