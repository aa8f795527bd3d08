// Sentrylens - Sentry Error Analytics and Reporting Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentrylens

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/sentrylens/internal/logging"
	"github.com/tomtom215/sentrylens/internal/metrics"
)

const (
	wsWriteWait  = 10 * time.Second
	wsIdleWait   = 60 * time.Second
	wsMaxMessage = maxRequestBody // same cap as the other transports
)

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates browser origins against the CORS
// allowlist. Requests without an Origin header are allowed: the
// envelope protocol's primary clients are scripts and agent runtimes,
// which do not send one.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	for _, allowed := range h.config.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().Str("origin", origin).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// WebSocket handles GET /mcp/ws: one request envelope per message in,
// one response payload per message out, the same framing as the stdio
// transport. The connection closes after 60 seconds of silence;
// clients keep it alive with protocol pings or further requests.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("WebSocket upgrade error")
		return
	}

	metrics.TrackWSConnection(true)
	defer func() {
		metrics.TrackWSConnection(false)
		_ = conn.Close()
	}()

	conn.SetReadLimit(wsMaxMessage)
	if err := conn.SetReadDeadline(time.Now().Add(wsIdleWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	conn.SetPingHandler(func(message string) error {
		if err := conn.SetReadDeadline(time.Now().Add(wsIdleWait)); err != nil {
			return err
		}
		return conn.WriteControl(websocket.PongMessage, []byte(message), time.Now().Add(wsWriteWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Msg("unexpected websocket close error")
			}
			return
		}
		if err := conn.SetReadDeadline(time.Now().Add(wsIdleWait)); err != nil {
			logging.Error().Err(err).Msg("failed to refresh read deadline")
			return
		}

		// Each message is its own request with its own ID
		ctx := logging.ContextWithRequestID(r.Context(), logging.GenerateRequestID())
		payload, status := h.router.Handle(ctx, data)

		outcome := "success"
		if status != http.StatusOK {
			outcome = "error"
		}
		metrics.RecordWSMessage(outcome)

		response, err := json.Marshal(payload)
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Msg("Failed to marshal WebSocket response")
			response = []byte(`{"error":"Unexpected error: failed to encode response"}`)
		}

		if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
			logging.Error().Err(err).Msg("failed to set write deadline")
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, response); err != nil {
			logging.Ctx(ctx).Error().Err(err).Msg("failed to write WebSocket response")
			return
		}
	}
}
