// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/lickdex/internal/api"
	"github.com/starford/lickdex/internal/catalog"
	"github.com/starford/lickdex/internal/ingest"
	"github.com/starford/lickdex/internal/mcpserver"
	"github.com/starford/lickdex/internal/sse"
	"github.com/starford/lickdex/internal/storage"
)

// components holds what every command needs once configured.
type components struct {
	cfg    *Config
	logger *slog.Logger
	db     *catalog.DB
	svc    *ingest.Service
}

func (rt *components) Close() error {
	return rt.db.Close()
}

func newLogger(app *application) *slog.Logger {
	out := app.logOutput
	if out == nil {
		out = os.Stdout
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
}

// setup applies options and opens the library and catalog.
func setup(opts []Option) (*components, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := newLogger(app)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("library_path", cfg.Library.Path),
		slog.String("inbox_path", cfg.Ingest.Inbox),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Library.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create library dir: %w", err)
	}
	library, err := storage.NewFS(cfg.Library.Path)
	if err != nil {
		return nil, fmt.Errorf("init library: %w", err)
	}

	db, err := catalog.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init catalog: %w", err)
	}

	svc := ingest.NewService(db, library, logger, ingest.Options{
		Workers:       cfg.Ingest.Workers,
		SkipMalformed: cfg.Ingest.SkipMalformed,
	})
	return &components{cfg: cfg, logger: logger, db: db, svc: svc}, nil
}

// openInbox creates the inbox directory and returns a provider on it, or nil
// when no inbox is configured.
func openInbox(cfg *Config) (*storage.FS, error) {
	if cfg.Ingest.Inbox == "" {
		return nil, nil
	}
	if err := os.MkdirAll(cfg.Ingest.Inbox, 0o755); err != nil {
		return nil, fmt.Errorf("create inbox dir: %w", err)
	}
	inbox, err := storage.NewFS(cfg.Ingest.Inbox)
	if err != nil {
		return nil, fmt.Errorf("init inbox: %w", err)
	}
	return inbox, nil
}

func writeStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Run starts the HTTP server, the startup inbox sync and the inbox watcher.
func Run(ctx context.Context, opts ...Option) error {
	rt, err := setup(opts)
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg, logger := rt.cfg, rt.logger

	inbox, err := openInbox(cfg)
	if err != nil {
		return err
	}

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	if inbox != nil {
		if _, err := rt.svc.Sync(ctx, inbox, broker.PublishSongEvent); err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		}
	}

	apiRouter := api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker.PublishSongEvent, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", writeStatus)
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		if err := rt.db.Ping(req.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		writeStatus(w, req)
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if inbox != nil && cfg.Ingest.Watch {
		g.Go(func() error {
			if err := rt.svc.Watch(gCtx, inbox, inbox.Root(), broker.PublishSongEvent); err != nil {
				logger.Error("watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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

		// SSE streams only end when their clients go away.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group once a shutdown was requested, so the watcher
// stops with the server.
var errShutdown = errors.New("shutdown requested")

// RunMCP serves the MCP tools over stdio until the client disconnects.
func RunMCP(_ context.Context, opts ...Option) error {
	rt, err := setup(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.logger.Info("MCP server starting on stdio")
	return mcpserver.New(rt.svc).ServeStdio()
}

// Analyze prints the statistics of a tab file as JSON without touching the
// catalog.
func Analyze(ctx context.Context, data []byte, tracks []int, skipMalformed bool, out io.Writer) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	svc := ingest.NewService(nil, nil, logger, ingest.Options{SkipMalformed: skipMalformed})

	res, err := svc.Analyze(ctx, data, tracks)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
