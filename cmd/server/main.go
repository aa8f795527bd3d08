// Sentrylens - Sentry Error Analytics and Reporting Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentrylens

// Package main is the entry point for the Sentrylens bridge.
//
// Sentrylens exposes Sentry error analytics to MCP-style hosts through
// three reporting tools: get_project_stats, get_error_trends, and
// get_impact_analysis. Requests are JSON envelopes of the form
// {"tool": ..., "parameters": ...}; responses are the report payload or
// an {"error": ...} envelope.
//
// # Application Architecture
//
// The bridge initializes components in the following order:
//
//  1. Configuration: Load settings from environment variables and config files (Koanf v2)
//  2. Sentry client: Resolve the configured project slug to its ID
//  3. Report builder: Aggregation logic behind the three tools
//  4. Tool router: Envelope parsing, parameter validation, dispatch
//  5. Transport: stdio loop, or Chi HTTP server with optional WebSocket
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (SENTRY_AUTH_TOKEN, SENTRY_ORG, SENTRY_PROJECT, ...)
//   - Config file (config.yaml)
//   - Built-in defaults
//
// # Transports
//
// The default transport is stdio: one request envelope per stdin line,
// one response per stdout line, logs on stderr. Setting
// SERVER_TRANSPORT=http starts an HTTP server instead with POST /mcp
// carrying the same envelopes, plus GET /health, Prometheus GET /metrics,
// and an optional GET /mcp/ws WebSocket endpoint.
//
// # Signal Handling
//
// SIGINT and SIGTERM shut the bridge down gracefully. The HTTP server
// drains in-flight requests within SHUTDOWN_TIMEOUT (default 10s); the
// stdio loop stops after the current request.
//
// # Example Usage
//
// Stdio mode under an MCP host:
//
//	export SENTRY_AUTH_TOKEN=your-token
//	export SENTRY_ORG=your-org
//	export SENTRY_PROJECT=your-project
//	./sentrylens
//
// HTTP mode:
//
//	export SENTRY_AUTH_TOKEN=your-token
//	export SENTRY_ORG=your-org
//	export SENTRY_PROJECT=your-project
//	export SERVER_TRANSPORT=http
//	export HTTP_PORT=8000
//	./sentrylens
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/sentrylens/internal/api"
	"github.com/tomtom215/sentrylens/internal/config"
	"github.com/tomtom215/sentrylens/internal/logging"
	"github.com/tomtom215/sentrylens/internal/report"
	"github.com/tomtom215/sentrylens/internal/sentry"
	"github.com/tomtom215/sentrylens/internal/stdio"
	"github.com/tomtom215/sentrylens/internal/tools"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// The transport is unknown when configuration fails; emit the
		// startup envelope in case a pipe host is listening.
		stdio.WriteStartupFailure(os.Stdout, err)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize zerolog with configuration
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("transport", cfg.Server.Transport).
		Str("organization", cfg.Sentry.Organization).
		Str("project", cfg.Sentry.Project).
		Msg("Starting Sentrylens")

	// Shutdown context, canceled on SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	// The client resolves the project slug to its ID up front, so a bad
	// token or unknown project fails at startup rather than on the
	// first request.
	client, err := sentry.NewClient(ctx, &cfg.Sentry)
	if err != nil {
		if cfg.Server.Transport == "stdio" {
			stdio.WriteStartupFailure(os.Stdout, err)
		}
		logging.Fatal().Err(err).Msg("Failed to initialize Sentry client")
	}
	logging.Info().Msg("Sentry client initialized")

	builder := report.NewBuilder(client)
	router := tools.NewRouter(builder)

	switch cfg.Server.Transport {
	case "http":
		runHTTP(ctx, cfg, router)
	default:
		runStdio(ctx, router)
	}

	logging.Info().Msg("Application stopped gracefully")
}

// runStdio serves request envelopes over stdin/stdout until EOF or
// shutdown.
func runStdio(ctx context.Context, router *tools.Router) {
	server := stdio.NewServer(router, os.Stdin, os.Stdout)

	logging.Info().Msg("Serving on stdio")
	if err := server.Serve(ctx); err != nil {
		logging.Fatal().Err(err).Msg("Stdio transport failed")
	}
}

// runHTTP serves the envelope protocol over HTTP until shutdown,
// draining in-flight requests within the configured timeout.
func runHTTP(ctx context.Context, cfg *config.Config, router *tools.Router) {
	handler := api.NewHandler(router, cfg)
	apiRouter := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      apiRouter.SetupChi(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logging.Info().
			Str("addr", server.Addr).
			Bool("websocket", cfg.Server.WebSocketEnabled).
			Msg("HTTP server listening")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("HTTP server failed")
		}
		return
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("HTTP server shutdown error")
		return
	}
	logging.Info().Msg("HTTP server stopped")
}
