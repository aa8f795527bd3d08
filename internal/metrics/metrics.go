// Sentrylens - Sentry Error Analytics and Reporting Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentrylens

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package provides instrumentation for:
// - Tool dispatch throughput and latency
// - Upstream Sentry API calls
// - HTTP transport latency and throughput
// - Stdio and WebSocket transport activity

var (
	// Tool Dispatch Metrics
	ToolRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tool_requests_total",
			Help: "Total number of tool requests by outcome",
		},
		[]string{"tool", "outcome"}, // outcome: success, validation_error, config_error, upstream_error, protocol_error, unexpected_error
	)

	ToolRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tool_request_duration_seconds",
			Help:    "Tool request duration in seconds, upstream calls included",
			Buckets: prometheus.DefBuckets, // 0.005s, 0.01s, 0.025s, 0.05s, 0.1s, 0.25s, 0.5s, 1s, 2.5s, 5s, 10s
		},
		[]string{"tool"},
	)

	// Upstream Sentry API Metrics
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentry_api_requests_total",
			Help: "Total number of Sentry API requests",
		},
		[]string{"operation", "status_code"}, // status_code "0" means the request never got a response
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentry_api_request_duration_seconds",
			Help:    "Sentry API request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}, // remote API, slower than local work
		},
		[]string{"operation"},
	)

	// HTTP Transport Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Stdio Transport Metrics
	StdioLinesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stdio_lines_total",
			Help: "Total number of stdin lines processed",
		},
		[]string{"outcome"}, // success, error, skipped
	)

	// WebSocket Transport Metrics
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Current number of open WebSocket connections",
		},
	)

	WSMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_total",
			Help: "Total number of WebSocket messages processed",
		},
		[]string{"outcome"},
	)
)

// RecordToolRequest records one tool dispatch
func RecordToolRequest(tool, outcome string, duration time.Duration) {
	ToolRequestsTotal.WithLabelValues(tool, outcome).Inc()
	ToolRequestDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordUpstreamRequest records one Sentry API call. A statusCode of 0
// means the request failed before any response arrived.
func RecordUpstreamRequest(operation string, statusCode int, duration time.Duration) {
	UpstreamRequestsTotal.WithLabelValues(operation, strconv.Itoa(statusCode)).Inc()
	UpstreamRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRateLimitHit records a rejected request on the given endpoint
func RecordRateLimitHit(endpoint string) {
	APIRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordStdioLine records one processed stdin line
func RecordStdioLine(outcome string) {
	StdioLinesTotal.WithLabelValues(outcome).Inc()
}

// TrackWSConnection tracks open WebSocket connections
func TrackWSConnection(inc bool) {
	if inc {
		WSConnectionsActive.Inc()
	} else {
		WSConnectionsActive.Dec()
	}
}

// RecordWSMessage records one processed WebSocket message
func RecordWSMessage(outcome string) {
	WSMessagesTotal.WithLabelValues(outcome).Inc()
}
