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

	"github.com/use-agent/pagent/agent"
	"github.com/use-agent/pagent/api"
	"github.com/use-agent/pagent/cache"
	"github.com/use-agent/pagent/cleaner"
	"github.com/use-agent/pagent/config"
	"github.com/use-agent/pagent/engine"
	"github.com/use-agent/pagent/events"
	"github.com/use-agent/pagent/provenance"
	"github.com/use-agent/pagent/registry"
	"github.com/use-agent/pagent/snapshot"
	"github.com/use-agent/pagent/store"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("pagent starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"agent_url", cfg.Agent.BaseURL,
	)

	// ── 3. Open the store ───────────────────────────────────────────
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()
	slog.Info("store opened", "path", st.Path())

	// ── 4. Collaborator client, cleaner, cache ──────────────────────
	agentClient := agent.NewClient(cfg.Agent.BaseURL, cfg.Agent.APIKey, cfg.Agent.CompressThreshold,
		&http.Client{Timeout: cfg.Agent.Timeout})
	cl := cleaner.NewCleaner()
	cc := cache.New(cfg.Cache.MaxEntries)

	// ── 4b. Event sink ──────────────────────────────────────────────
	var sink events.Sink = events.Nop{}
	if cfg.Events.WebhookURL != "" {
		sink = events.NewWebhook(cfg.Events.WebhookURL, cfg.Events.Secret, nil)
		slog.Info("webhook event sink enabled", "url", cfg.Events.WebhookURL)
	}

	// ── 5. Core services ────────────────────────────────────────────
	snapshots := snapshot.NewService(st, cl, sink)
	reg := registry.NewService(st, agentClient, cl, cc, sink, cfg.Agent.CleanThreshold)
	eng := engine.New(st, agentClient, sink)
	prov := provenance.NewService(st)

	// ── 6. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(api.Deps{
		Store:      st,
		Snapshots:  snapshots,
		Registry:   reg,
		Engine:     eng,
		Provenance: prov,
		Cleaner:    cl,
		Fetcher:    agentClient,
	}, cfg, startTime)

	// ── 7. Start HTTP server ────────────────────────────────────────
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

	// ── 8. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete. Learn/Execute calls
	// past their collaborator round-trip finish persisting; the rest abort.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("pagent stopped")
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
