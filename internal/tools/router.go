// Sentrylens - Sentry Error Analytics and Reporting Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentrylens

// Package tools routes incoming tool-request envelopes to the report
// builder and renders every failure as an error envelope.
//
// Handle never panics and never returns a Go error: whatever arrives
// on the wire, the caller gets a JSON-marshalable payload plus an HTTP
// status code. The stdio transport ignores the status; the HTTP and
// WebSocket transports forward it.
package tools

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/sentrylens/internal/config"
	"github.com/tomtom215/sentrylens/internal/logging"
	"github.com/tomtom215/sentrylens/internal/metrics"
	"github.com/tomtom215/sentrylens/internal/models"
	"github.com/tomtom215/sentrylens/internal/report"
	"github.com/tomtom215/sentrylens/internal/sentry"
	"github.com/tomtom215/sentrylens/internal/validation"
)

// Tool names accepted in the request envelope.
const (
	ToolProjectStats   = "get_project_stats"
	ToolErrorTrends    = "get_error_trends"
	ToolImpactAnalysis = "get_impact_analysis"
)

// ReportBuilder is the report surface the router dispatches to.
// *report.Builder satisfies it.
type ReportBuilder interface {
	ProjectStats(ctx context.Context, p report.StatsParams) (*models.ProjectStats, error)
	ErrorTrends(ctx context.Context, p report.TrendsParams) (*models.ErrorTrends, error)
	ImpactAnalysis(ctx context.Context, p report.ImpactParams) (*models.ImpactAnalysis, error)
}

// Router dispatches request envelopes to report operations.
type Router struct {
	builder ReportBuilder
}

// NewRouter creates a Router over the given report builder
func NewRouter(builder ReportBuilder) *Router {
	return &Router{builder: builder}
}

// Handle processes one request line and returns the response payload
// with its HTTP status. Protocol failures and everything raised below
// the router render as models.ErrorEnvelope; only typed failures carry
// a type tag.
func (r *Router) Handle(ctx context.Context, line []byte) (any, int) {
	start := time.Now()

	var req models.ToolRequest
	if err := json.Unmarshal(line, &req); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Invalid JSON request")
		metrics.RecordToolRequest("unknown", "protocol_error", time.Since(start))
		return models.ErrorEnvelope{Error: "Invalid JSON request"}, http.StatusBadRequest
	}

	if req.Tool == "" {
		metrics.RecordToolRequest("unknown", "protocol_error", time.Since(start))
		return models.ErrorEnvelope{Error: "Missing required field: tool"}, http.StatusBadRequest
	}

	payload, err := r.dispatch(ctx, req)
	if err != nil {
		envelope, status, outcome := classify(err)
		logging.Ctx(ctx).Error().Err(err).
			Str("tool", req.Tool).
			Str("outcome", outcome).
			Msg("Request handling failed")
		metrics.RecordToolRequest(toolLabel(req.Tool), outcome, time.Since(start))
		return envelope, status
	}

	metrics.RecordToolRequest(req.Tool, "success", time.Since(start))
	return payload, http.StatusOK
}

// errUnknownTool marks an envelope naming a tool the router does not serve.
type errUnknownTool struct {
	tool string
}

func (e *errUnknownTool) Error() string {
	return "Unknown tool: " + e.tool
}

func (r *Router) dispatch(ctx context.Context, req models.ToolRequest) (any, error) {
	switch req.Tool {
	case ToolProjectStats:
		p := report.DefaultStatsParams()
		if err := decodeParams(req.Tool, req.Parameters, &p); err != nil {
			return nil, err
		}
		if err := validation.ValidateStruct(p); err != nil {
			return nil, err
		}
		return r.builder.ProjectStats(ctx, p)

	case ToolErrorTrends:
		p := report.DefaultTrendsParams()
		if err := decodeParams(req.Tool, req.Parameters, &p); err != nil {
			return nil, err
		}
		if err := validation.ValidateStruct(p); err != nil {
			return nil, err
		}
		return r.builder.ErrorTrends(ctx, p)

	case ToolImpactAnalysis:
		p := report.DefaultImpactParams()
		if err := decodeParams(req.Tool, req.Parameters, &p); err != nil {
			return nil, err
		}
		if err := validation.ValidateStruct(p); err != nil {
			return nil, err
		}
		return r.builder.ImpactAnalysis(ctx, p)

	default:
		return nil, &errUnknownTool{tool: req.Tool}
	}
}

// decodeParams strictly decodes the parameters object over the
// prefilled defaults. Unknown parameter names and type mismatches are
// validation failures, never silently ignored.
func decodeParams(tool string, raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		detail := strings.TrimPrefix(err.Error(), "json: ")
		return validation.NewError("Invalid parameters for %s: %s", tool, detail)
	}
	return nil
}

// classify maps an operation failure to its envelope, HTTP status, and
// metric outcome label.
func classify(err error) (models.ErrorEnvelope, int, string) {
	var unknownErr *errUnknownTool
	if errors.As(err, &unknownErr) {
		return models.ErrorEnvelope{Error: unknownErr.Error()}, http.StatusBadRequest, "protocol_error"
	}

	var valErr *validation.ValidationError
	if errors.As(err, &valErr) {
		return models.ErrorEnvelope{Error: valErr.Message, Type: "ValidationError"}, http.StatusBadRequest, "validation_error"
	}

	var cfgErr *config.ConfigError
	if errors.As(err, &cfgErr) {
		return models.ErrorEnvelope{Error: cfgErr.Message, Type: "ConfigError"}, http.StatusInternalServerError, "config_error"
	}

	var upErr *sentry.UpstreamError
	if errors.As(err, &upErr) {
		return models.ErrorEnvelope{Error: upErr.Message, Type: "UpstreamError"}, http.StatusBadGateway, "upstream_error"
	}

	return models.ErrorEnvelope{Error: "Unexpected error: " + err.Error()}, http.StatusInternalServerError, "unexpected_error"
}

// toolLabel bounds the metric label space to the known tool names
func toolLabel(tool string) string {
	switch tool {
	case ToolProjectStats, ToolErrorTrends, ToolImpactAnalysis:
		return tool
	}
	return "unknown"
}
