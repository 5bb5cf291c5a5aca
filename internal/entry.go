// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/clipmaster/internal/api"
	"github.com/starford/clipmaster/internal/clipservice"
	"github.com/starford/clipmaster/internal/history"
	"github.com/starford/clipmaster/internal/mainloop"
	"github.com/starford/clipmaster/internal/mcpserver"
	"github.com/starford/clipmaster/internal/metrics"
	"github.com/starford/clipmaster/internal/monitor"
	"github.com/starford/clipmaster/internal/ollama"
	"github.com/starford/clipmaster/internal/pasteboard"
	"github.com/starford/clipmaster/internal/pasteboard/system"
	"github.com/starford/clipmaster/internal/prompt"
	"github.com/starford/clipmaster/internal/settings"
	"github.com/starford/clipmaster/internal/sse"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// MCP owns stdout, so logs go to stderr in that mode.
	var logOut io.Writer = os.Stdout
	if app.mode == ModeMCP {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("settings_path", cfg.Settings.Path),
		slog.String("board", cfg.Monitor.Backend),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure data directories exist.
	for _, p := range []string{cfg.SQLite.Path, cfg.Settings.Path} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}

	// User preferences.
	prefs, err := settings.Open(cfg.Settings.Path, logger)
	if err != nil {
		return fmt.Errorf("init settings: %w", err)
	}

	var (
		rec        metrics.Recorder = metrics.Noop()
		collectors *metrics.Collectors
	)
	if cfg.Metrics.Enabled {
		collectors = metrics.New()
		rec = collectors
	}

	// History store. The application cannot run without it.
	store, err := history.Open(cfg.SQLite.Path,
		history.WithLimit(prefs.HistoryLimit()),
		history.WithLogger(logger),
		history.WithMetrics(rec),
	)
	if err != nil {
		return fmt.Errorf("init history: %w", err)
	}
	defer store.Close()

	board, err := app.openBoard(logger)
	if err != nil {
		return fmt.Errorf("init clipboard: %w", err)
	}

	loop := mainloop.New(logger)
	defer loop.Close()

	mon := monitor.New(loop, board, store,
		monitor.WithInterval(cfg.Monitor.Interval),
		monitor.WithLogger(logger),
		monitor.WithMetrics(rec),
	)
	prompts := prompt.NewSet(prefs, logger)
	client := ollama.NewClient(prefs.OllamaURL,
		ollama.WithTimeout(cfg.Ollama.Timeout),
		ollama.WithLogger(logger),
	)
	ctrl := clipservice.New(clipservice.Deps{
		Loop:      loop,
		Store:     store,
		Gate:      mon,
		Board:     board,
		Prompts:   prompts,
		Generator: client,
		Prefs:     prefs,
	},
		clipservice.WithLogger(logger),
		clipservice.WithMetrics(rec),
		clipservice.WithWriteBackDelay(cfg.Monitor.WriteBackDelay),
	)

	// SSE broker.
	broker := sse.NewBroker(500 * time.Millisecond)
	defer broker.Close()

	ctrl.Subscribe(func(ev clipservice.Event) {
		switch ev.Type {
		case clipservice.EventClipCaptured:
			broker.PublishClipEvent(sse.ClipCaptured, ev.Data)
		case clipservice.EventClipRemoved:
			broker.PublishClipEvent(sse.ClipRemoved, ev.Data)
		default:
			broker.Publish(sse.Event{Type: ev.Type, Data: ev.Data})
		}
	})
	prompts.OnChange(func(all []string, active string) {
		broker.Publish(sse.Event{Type: "prompt.changed", Data: map[string]any{
			"prompts": all,
			"active":  active,
		}})
	})

	g, gCtx := errgroup.WithContext(ctx)

	// External edits to the settings file.
	var urlMu sync.Mutex
	lastURL := prefs.OllamaURL()
	prefs.OnReload(func() {
		prompts.Reload()
		if err := ctrl.SetHistoryLimit(prefs.HistoryLimit()); err != nil {
			logger.Warn("apply history limit failed", slog.String("error", err.Error()))
		}
		urlMu.Lock()
		changed := prefs.OllamaURL() != lastURL
		lastURL = prefs.OllamaURL()
		urlMu.Unlock()
		if changed {
			ctrl.RefreshModels(gCtx)
		}
	})
	if cfg.Settings.Watch && cfg.Settings.Path != "" {
		g.Go(func() error {
			if err := prefs.Watch(gCtx); err != nil {
				logger.Warn("settings watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		models := ctrl.RefreshModels(gCtx)
		logger.Info("models loaded", slog.Int("count", len(models)))
		return nil
	})

	loop.Do(mon.Start)
	defer loop.Do(mon.Stop)

	var httpServer *http.Server
	switch app.mode {
	case ModeMCP:
		mcpSrv := mcpserver.New(ctrl, prompts, app.version)
		g.Go(func() error {
			logger.Info("Serving MCP over stdio")
			if err := mcpSrv.ServeStdio(); err != nil {
				return fmt.Errorf("MCP server error: %w", err)
			}
			// stdin closed: the client is gone.
			return errStdioClosed
		})
	default:
		httpServer = &http.Server{
			Addr:              cfg.App.HTTP.Address(),
			Handler:           newHTTPHandler(cfg, api.Deps{Clips: ctrl, Prompts: prompts, Settings: prefs, Metrics: rec}, collectors, broker),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
	}

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		if httpServer != nil {
			logger.Info("Shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
			}
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) && !errors.Is(err, errStdioClosed) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// Sentinels that end the run group without being reported as failures.
var (
	errShutdown    = errors.New("shutdown requested")
	errStdioClosed = errors.New("stdio closed")
)

func (a *application) openBoard(logger *slog.Logger) (pasteboard.Board, error) {
	if a.board != nil {
		return a.board, nil
	}
	if a.config.Monitor.Backend == BoardMemory {
		logger.Warn("using in-memory clipboard; the system clipboard is not monitored")
		return pasteboard.NewMemory(), nil
	}
	return system.New(logger)
}

func newHTTPHandler(cfg *Config, deps api.Deps, collectors *metrics.Collectors, broker *sse.Broker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if collectors != nil {
		r.Handle("/metrics", collectors.Handler())
	}

	// Mount API routes under /api; SSE lives at /api/events behind the same auth.
	r.Mount("/api", api.NewRouter(deps, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	return r
}
