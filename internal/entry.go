// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/pulsehq/socialpulse/internal/api"
	"github.com/pulsehq/socialpulse/internal/auth"
	"github.com/pulsehq/socialpulse/internal/dashboard"
	"github.com/pulsehq/socialpulse/internal/mcpserver"
	"github.com/pulsehq/socialpulse/internal/sse"
	"github.com/pulsehq/socialpulse/internal/store"
)

// openStore builds the configured store adapter. The dir backend additionally
// returns a watch function to run for external-edit notifications.
func openStore(cfg *StoreConfig, logger *slog.Logger) (store.Store, func(context.Context) error, error) {
	switch cfg.Backend {
	case StoreBackendSQLite:
		st, err := store.OpenSQLite(cfg.Path, cfg.AppID)
		if err != nil {
			return nil, nil, err
		}
		return st, nil, nil
	case StoreBackendDir:
		st, err := store.OpenDir(cfg.Path, cfg.AppID)
		if err != nil {
			return nil, nil, err
		}
		watch := func(ctx context.Context) error { return st.Watch(ctx, logger) }
		return st, watch, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
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

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_backend", cfg.Store.Backend),
		slog.String("store_path", cfg.Store.Path),
		slog.String("app_id", cfg.Store.AppID),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize the store adapter.
	st, storeWatch, err := openStore(&cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer st.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Application-state controller.
	ctrl := dashboard.NewController(st, logger,
		dashboard.WithBroker(broker),
		dashboard.WithAuthOptions(auth.WithScannerOptions(
			auth.WithScanDelays(cfg.Biometric.ScanDelay, cfg.Biometric.SettleDelay))))
	defer ctrl.Close()

	if !cfg.Biometric.Fingerprint {
		_ = ctrl.SetBiometric(auth.ModalityFingerprint, false)
	}
	if !cfg.Biometric.Face {
		_ = ctrl.SetBiometric(auth.ModalityFace, false)
	}

	// Sign in against the adapter (token when configured, anonymous
	// otherwise). Synchronization itself waits for the login gate.
	if err := ctrl.Start(ctx, cfg.Store.Token); err != nil {
		return fmt.Errorf("adapter sign-in: %w", err)
	}

	apiRouter := api.NewRouter(ctrl, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
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

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Dir backend: watch for external document edits.
	if storeWatch != nil {
		g.Go(func() error {
			if err := storeWatch(gCtx); err != nil {
				logger.Warn("store watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Optional MCP stdio surface.
	if app.mcp {
		g.Go(func() error {
			logger.Info("Starting MCP server on stdio")
			if err := mcpserver.New(ctrl).ServeStdio(); err != nil {
				return fmt.Errorf("MCP server error: %w", err)
			}
			return nil
		})
	}

	// Start HTTP server.
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

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
