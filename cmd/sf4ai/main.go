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

	"github.com/use-agent/sf4ai-go/api"
	"github.com/use-agent/sf4ai-go/browser"
	"github.com/use-agent/sf4ai-go/cache"
	"github.com/use-agent/sf4ai-go/config"
	"github.com/use-agent/sf4ai-go/jobs"
	"github.com/use-agent/sf4ai-go/markdown"
	"github.com/use-agent/sf4ai-go/pipeline"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("sf4ai starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxPages", cfg.Browser.MaxPages,
	)

	// ── 3. Initialise the Browser Pool (launches browser) ───────────
	pool, err := browser.NewPool(cfg.Browser, cfg.Scraper, cfg.AdaptivePool)
	if err != nil {
		slog.Error("failed to initialise browser pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// ── 4. Initialise the Cache (master switch + tier selection) ────
	cc := cache.New(cfg.Cache)

	// ── 5. Initialise the Markdown Converter and Single-URL Pipeline ─
	md := markdown.New()
	p := pipeline.New(pool, cc, md, cfg.Scraper, cfg.Cleaning)

	// ── 6. Initialise the Job Orchestrator ───────────────────────────
	orch := jobs.New(p, cfg.Jobs)

	// ── 7. Setup router ──────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(pool, p, orch, cfg, startTime)

	// ── 8. Start HTTP server ─────────────────────────────────────────
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

	// ── 9. Graceful shutdown ─────────────────────────────────────────
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

	// pool.Close() runs via defer — drains the page pool and kills Chrome.
	// In-flight jobs are not awaited and stop when the process exits; each
	// has persisted its state to disk at its last completed batch boundary,
	// so a restart can inspect (but not resume) them.
	slog.Info("sf4ai stopped")
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
