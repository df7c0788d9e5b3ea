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

	"golang.org/x/sync/errgroup"

	"obsidian-mcp/internal/api"
	"obsidian-mcp/internal/mcpserver"
	"obsidian-mcp/internal/obsidian"
)

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

	// Structured JSON logger on stderr; stdout carries the MCP stdio
	// framing.
	logOut := app.logOut
	if logOut == nil {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("obsidian_url", cfg.Obsidian.BaseURL()),
		slog.String("transport", cfg.App.Transport),
		slog.Bool("verify_ssl", cfg.Obsidian.VerifySSL),
		slog.Int("timeout_seconds", cfg.Obsidian.TimeoutSeconds),
		slog.String("log_level", cfg.App.LogLevel.String()))

	client := obsidian.NewClient(cfg.Obsidian)
	srv := mcpserver.New(client)

	if cfg.App.Transport == TransportStdio {
		logger.Info("Serving MCP over stdio")
		return srv.ServeStdio()
	}

	return runHTTP(ctx, cfg, srv, logger)
}

// runHTTP serves the MCP streamable transport behind the chi router
// with graceful shutdown on SIGINT/SIGTERM.
func runHTTP(ctx context.Context, cfg *Config, srv *mcpserver.Server, logger *slog.Logger) error {
	r := api.NewRouter(srv.HTTPHandler())

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

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

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

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

	logger.Info("Server stopped")
	return nil
}
