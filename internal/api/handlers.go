// Sentrylens - Sentry Error Analytics and Reporting Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentrylens

package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sentrylens/internal/config"
	"github.com/tomtom215/sentrylens/internal/logging"
	"github.com/tomtom215/sentrylens/internal/models"
)

// maxRequestBody caps the /mcp request body at the same size as the
// stdio transport's line limit.
const maxRequestBody = 1024 * 1024 // 1 MiB

// ToolRouter handles one request envelope and returns the response
// payload with its HTTP status. *tools.Router satisfies it.
type ToolRouter interface {
	Handle(ctx context.Context, line []byte) (any, int)
}

// Handler processes HTTP requests for the bridge endpoints.
type Handler struct {
	router    ToolRouter
	config    *config.Config
	startTime time.Time
}

// NewHandler creates an API handler over the given tool router
func NewHandler(router ToolRouter, cfg *config.Config) *Handler {
	return &Handler{
		router:    router,
		config:    cfg,
		startTime: time.Now(),
	}
}

// MCP handles POST /mcp: one tool-request envelope in the body, the
// result payload or error envelope out. The status code mirrors the
// envelope classification; the body shape is identical to what the
// stdio transport writes.
func (h *Handler) MCP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to read request body")
		respondJSON(w, http.StatusBadRequest, models.ErrorEnvelope{Error: "Invalid JSON request"})
		return
	}

	payload, status := h.router.Handle(r.Context(), body)
	respondJSON(w, status, payload)
}

// healthStatus is the GET /health response body.
type healthStatus struct {
	Status    string  `json:"status"`
	Version   string  `json:"version"`
	Transport string  `json:"transport"`
	Uptime    float64 `json:"uptime_seconds"`
}

// Health handles health check requests
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, healthStatus{
		Status:    "healthy",
		Version:   "1.0.0",
		Transport: h.config.Server.Transport,
		Uptime:    time.Since(h.startTime).Seconds(),
	})
}

// respondJSON writes a payload as JSON. The fallback body keeps the
// error-envelope contract even when the payload itself will not
// marshal.
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Unexpected error: failed to encode response"}`))
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}
