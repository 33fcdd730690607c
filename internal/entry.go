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
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/databrowser/internal/api"
	"github.com/starford/databrowser/internal/browser"
	"github.com/starford/databrowser/internal/catalog"
	"github.com/starford/databrowser/internal/loop"
	"github.com/starford/databrowser/internal/mcpserver"
	"github.com/starford/databrowser/internal/sse"
	"github.com/starford/databrowser/internal/storage"
	"github.com/starford/databrowser/internal/views"
	"github.com/starford/databrowser/internal/workbench"
	"github.com/starford/databrowser/internal/workspace"
)

// engine is the wired object graph shared by the HTTP and MCP front ends.
type engine struct {
	root    string
	loop    *loop.Loop
	browser *browser.Browser
	ws      *workspace.Workspace
	db      *catalog.DB
	broker  *sse.Broker
	svc     *workbench.Service
}

func newEngine(cfg *Config, logger *slog.Logger) (*engine, error) {
	if err := os.MkdirAll(cfg.Workspace.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace dir: %w", err)
	}
	files, err := storage.NewFS(cfg.Workspace.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("init catalog: %w", err)
	}
	// Container numbers do not survive a restart.
	if err := db.Reset(); err != nil {
		db.Close()
		return nil, fmt.Errorf("reset catalog: %w", err)
	}

	broker := sse.NewBroker(cfg.Engine.EventThrottle)
	lp := loop.New(loop.WithLogger(logger))
	vr := views.NewRegistry(
		views.WithPublisher(broker),
		views.WithLogger(logger),
		views.WithLimit(cfg.Engine.MaxViews),
	)
	b := browser.New(lp, vr,
		browser.WithLogger(logger),
		browser.WithStrictContracts(cfg.Engine.StrictContracts),
	)
	ws := workspace.New(files, lp, b,
		workspace.WithLogger(logger),
		workspace.WithKeepInvisible(cfg.Engine.KeepInvisible),
		workspace.WithRestoreVisibility(cfg.Engine.RestoreVisibility),
	)

	return &engine{
		root:    files.Root(),
		loop:    lp,
		browser: b,
		ws:      ws,
		db:      db,
		broker:  broker,
		svc:     workbench.NewService(lp, b, ws, db, vr),
	}, nil
}

func (e *engine) close() {
	e.broker.Close()
	e.db.Close()
}

// start runs the loop, attaches the catalog and event watchers, loads the
// workspace and keeps it in sync with the data directory.
func (e *engine) start(ctx context.Context, g *errgroup.Group, cfg *Config, logger *slog.Logger) error {
	g.Go(func() error {
		return e.loop.Run(ctx)
	})

	if err := e.loop.Call(ctx, func() error {
		if _, err := catalog.Feed(e.browser, e.db, logger); err != nil {
			return err
		}
		_, err := workbench.Forward(e.browser, e.broker)
		return err
	}); err != nil {
		return fmt.Errorf("attach watchers: %w", err)
	}

	if err := e.ws.Sync(ctx); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	g.Go(func() error {
		return e.ws.Watch(ctx, e.root, func(kind, path string) {
			e.broker.Publish(sse.Event{
				Type: sse.TypeFileChanged,
				Data: map[string]string{"kind": kind, "path": path},
			})
		})
	})

	if cfg.Engine.SweepInterval > 0 {
		g.Go(func() error {
			t := time.NewTicker(cfg.Engine.SweepInterval)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-t.C:
					if err := e.ws.Sync(ctx); err != nil && ctx.Err() == nil {
						logger.Warn("sweep failed", slog.String("error", err.Error()))
					}
				}
			}
		})
	}
	return nil
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger. Stdout belongs to the MCP transport
	// in stdio mode.
	var out io.Writer = os.Stdout
	if app.stdio {
		out = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_path", cfg.Workspace.Path),
		slog.String("catalog_path", cfg.Catalog.Path),
		slog.Bool("strict_contracts", cfg.Engine.StrictContracts),
		slog.Duration("sweep_interval", cfg.Engine.SweepInterval),
		slog.String("log_level", cfg.App.LogLevel.String()))

	e, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer e.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	if err := e.start(gCtx, g, cfg, logger); err != nil {
		cancel()
		_ = g.Wait()
		return err
	}

	if app.stdio {
		g.Go(func() error {
			defer cancel()
			logger.Info("Serving MCP on stdio")
			return mcpserver.New(e.svc).ServeStdio()
		})
	} else {
		serveHTTP(gCtx, g, cfg, e, logger, cancel)
	}

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

func serveHTTP(ctx context.Context, g *errgroup.Group, cfg *Config, e *engine, logger *slog.Logger, stop context.CancelFunc) {
	apiRouter := api.NewRouter(e.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, e.broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := e.svc.ListContainers(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-ctx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Stop the loop, watcher and sweep.
		stop()
		return nil
	})
}
