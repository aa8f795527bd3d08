// Sentrylens - Sentry Error Analytics and Reporting Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentrylens

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"
)

// getCounterValue extracts the value from a Prometheus counter
func getCounterValue(counter prometheus.Counter) float64 {
	var m io_prometheus_client.Metric
	if err := counter.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// getGaugeValue extracts the value from a Prometheus gauge
func getGaugeValue(gauge prometheus.Gauge) float64 {
	var m io_prometheus_client.Metric
	if err := gauge.Write(&m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

func TestRecordToolRequest(t *testing.T) {
	counter := ToolRequestsTotal.WithLabelValues("get_project_stats", "success")
	before := getCounterValue(counter)

	RecordToolRequest("get_project_stats", "success", 5*time.Millisecond)

	after := getCounterValue(counter)
	if after != before+1 {
		t.Errorf("tool_requests_total = %v, want %v", after, before+1)
	}
}

func TestRecordToolRequestOutcomes(t *testing.T) {
	outcomes := []string{"success", "validation_error", "config_error", "upstream_error", "error"}
	for _, outcome := range outcomes {
		t.Run(outcome, func(t *testing.T) {
			counter := ToolRequestsTotal.WithLabelValues("get_error_trends", outcome)
			before := getCounterValue(counter)

			RecordToolRequest("get_error_trends", outcome, time.Millisecond)

			if after := getCounterValue(counter); after != before+1 {
				t.Errorf("counter = %v, want %v", after, before+1)
			}
		})
	}
}

func TestRecordUpstreamRequest(t *testing.T) {
	t.Run("with status code", func(t *testing.T) {
		counter := UpstreamRequestsTotal.WithLabelValues("list_issues", "200")
		before := getCounterValue(counter)

		RecordUpstreamRequest("list_issues", 200, 20*time.Millisecond)

		if after := getCounterValue(counter); after != before+1 {
			t.Errorf("counter = %v, want %v", after, before+1)
		}
	})

	t.Run("transport failure records status zero", func(t *testing.T) {
		counter := UpstreamRequestsTotal.WithLabelValues("sessions", "0")
		before := getCounterValue(counter)

		RecordUpstreamRequest("sessions", 0, time.Millisecond)

		if after := getCounterValue(counter); after != before+1 {
			t.Errorf("counter = %v, want %v", after, before+1)
		}
	})
}

func TestTrackActiveRequest(t *testing.T) {
	before := getGaugeValue(APIActiveRequests)

	TrackActiveRequest(true)
	if v := getGaugeValue(APIActiveRequests); v != before+1 {
		t.Errorf("active requests = %v, want %v", v, before+1)
	}

	TrackActiveRequest(false)
	if v := getGaugeValue(APIActiveRequests); v != before {
		t.Errorf("active requests = %v, want %v", v, before)
	}
}

func TestTrackWSConnection(t *testing.T) {
	before := getGaugeValue(WSConnectionsActive)

	TrackWSConnection(true)
	TrackWSConnection(true)
	if v := getGaugeValue(WSConnectionsActive); v != before+2 {
		t.Errorf("ws connections = %v, want %v", v, before+2)
	}

	TrackWSConnection(false)
	TrackWSConnection(false)
	if v := getGaugeValue(WSConnectionsActive); v != before {
		t.Errorf("ws connections = %v, want %v", v, before)
	}
}

func TestRecordStdioLine(t *testing.T) {
	counter := StdioLinesTotal.WithLabelValues("success")
	before := getCounterValue(counter)

	RecordStdioLine("success")

	if after := getCounterValue(counter); after != before+1 {
		t.Errorf("stdio lines = %v, want %v", after, before+1)
	}
}

func TestRecordRateLimitHit(t *testing.T) {
	counter := APIRateLimitHits.WithLabelValues("/mcp")
	before := getCounterValue(counter)

	RecordRateLimitHit("/mcp")

	if after := getCounterValue(counter); after != before+1 {
		t.Errorf("rate limit hits = %v, want %v", after, before+1)
	}
}
