// Sentrylens - Sentry Error Analytics and Reporting Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentrylens

// Package api provides the HTTP transport for the bridge using the Chi
// router.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/sentrylens/internal/config"
	"github.com/tomtom215/sentrylens/internal/middleware"
)

// chiMiddleware adapts http.HandlerFunc middleware to Chi's
// func(http.Handler) http.Handler form so the middleware package's
// components work with r.Use().
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// Router wires the bridge's HTTP routes and middleware.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	config        *config.Config
}

// NewRouter creates a Router for the given handler and configuration
func NewRouter(handler *Handler, cfg *config.Config) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddlewareFromConfig(&cfg.Security),
		config:        cfg,
	}
}

// SetupChi configures all HTTP routes.
//
// The envelope endpoint is rate limited and instrumented; health stays
// unlimited so liveness probes are never throttled away.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order
	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	r.Route("/mcp", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		// Compression stays off the WebSocket route so the upgrade
		// handshake is untouched
		r.With(chimiddleware.Compress(5)).Post("/", router.handler.MCP)

		if router.config.Server.WebSocketEnabled {
			r.Get("/ws", router.handler.WebSocket)
		}
	})

	r.With(chiMiddleware(middleware.PrometheusMetrics)).
		Get("/health", router.handler.Health)

	if router.config.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}
