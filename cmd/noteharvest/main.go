package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/noteharvest/api"
	"github.com/use-agent/noteharvest/browser"
	"github.com/use-agent/noteharvest/config"
	"github.com/use-agent/noteharvest/enrich"
	"github.com/use-agent/noteharvest/export"
	"github.com/use-agent/noteharvest/harvest"
	"github.com/use-agent/noteharvest/session"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("noteharvest starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"platform", cfg.Platform.BaseURL,
	)

	// ── 3. Launch browser (DOM fallback + ambient credentials) ──────
	b, err := browser.New(cfg.Browser)
	if err != nil {
		slog.Error("failed to launch browser, continuing API-only", "error", err)
		b = nil
	} else {
		defer b.Close()
	}

	// ── 4. Wire the pipeline ────────────────────────────────────────
	client := harvest.NewClient()
	searcher := harvest.NewSearcher(client, cfg.Platform, cfg.Harvest)
	hashtagger := harvest.NewHashtagger(client, cfg.Platform, cfg.Harvest)
	enricher := enrich.NewFetcher(client, cfg.Platform, cfg.Enrich)
	saver := export.FileSaver{Dir: cfg.Export.Dir}

	sess := session.New()
	runner := session.NewRunner(sess, b, client, searcher, hashtagger, enricher, saver, cfg.Scroll)

	// ── 5. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(runner, cfg, startTime)

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// b.Close() runs via defer — kills Chrome.
	slog.Info("noteharvest stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
