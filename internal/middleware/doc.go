// Sentrylens - Sentry Error Analytics and Reporting Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentrylens

/*
Package middleware provides HTTP middleware for the bridge's HTTP
transport: request ID tracking and Prometheus instrumentation.

Both components are written as http.HandlerFunc wrappers; the api
package adapts them to Chi's func(http.Handler) http.Handler form.

Usage Example - Request ID:

	mux.HandleFunc("/mcp",
	    middleware.RequestID(handler),
	)

	// Access the request ID in a handler
	func handler(w http.ResponseWriter, r *http.Request) {
	    requestID := middleware.GetRequestID(r.Context())
	    _ = requestID
	}

Every request carries the same request_id through its response header
and its log lines, so a stdio conversation and an HTTP call can be
correlated the same way.

Usage Example - Prometheus Metrics:

	mux.HandleFunc("/mcp",
	    middleware.PrometheusMetrics(handler),
	)

Records request totals and latency by method, path, and status code,
plus an in-flight gauge.

Thread Safety:

  - Request ID uses context.Context (immutable)
  - Prometheus metrics use the client library's atomic collectors

See Also:

  - internal/api: Chi router wiring these components
  - internal/metrics: Prometheus metric definitions
*/
package middleware
