// Sentrylens - Sentry Error Analytics and Reporting Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentrylens

package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/sentrylens/internal/config"
	"github.com/tomtom215/sentrylens/internal/models"
)

// setupWSServer starts a live server over the full Chi router with the
// WebSocket transport enabled.
func setupWSServer(t *testing.T, cfg *config.Config, fake *fakeRouter) *httptest.Server {
	t.Helper()
	handler := NewHandler(fake, cfg)
	router := NewRouter(handler, cfg)
	server := httptest.NewServer(router.SetupChi())
	t.Cleanup(server.Close)
	return server
}

// dialWS connects to the server's /mcp/ws endpoint
func dialWS(t *testing.T, server *httptest.Server, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/mcp/ws"
	return websocket.DefaultDialer.Dial(wsURL, header)
}

func TestWebSocket_EnvelopeRoundTrip(t *testing.T) {
	fake := &fakeRouter{
		payload: map[string]any{"total_errors": 30, "users_affected": 13},
		status:  http.StatusOK,
	}
	server := setupWSServer(t, testServerConfig(), fake)

	conn, resp, err := dialWS(t, server, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	defer conn.Close()

	request := `{"tool": "get_project_stats", "parameters": {"time_range": "24h"}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(request)); err != nil {
		t.Fatalf("Failed to write message: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}

	if fake.callCount() != 1 {
		t.Errorf("router calls = %d, want 1", fake.callCount())
	}
	if fake.lastRequest() != request {
		t.Errorf("router received %q, want the message payload", fake.lastRequest())
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if decoded["total_errors"] != float64(30) {
		t.Errorf("total_errors = %v, want 30", decoded["total_errors"])
	}
}

func TestWebSocket_MultipleRequestsOneConnection(t *testing.T) {
	fake := &fakeRouter{payload: map[string]any{"ok": true}, status: http.StatusOK}
	server := setupWSServer(t, testServerConfig(), fake)

	conn, resp, err := dialWS(t, server, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	defer conn.Close()

	for i := 0; i < 3; i++ {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"tool": "get_error_trends"}`)); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if _, _, err := conn.ReadMessage(); err != nil {
			t.Fatalf("read %d failed: %v", i, err)
		}
	}

	if fake.callCount() != 3 {
		t.Errorf("router calls = %d, want 3", fake.callCount())
	}
}

func TestWebSocket_ErrorEnvelope(t *testing.T) {
	fake := &fakeRouter{
		payload: models.ErrorEnvelope{Error: "Unknown tool: nope"},
		status:  http.StatusBadRequest,
	}
	server := setupWSServer(t, testServerConfig(), fake)

	conn, resp, err := dialWS(t, server, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"tool": "nope"}`)); err != nil {
		t.Fatalf("Failed to write message: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}

	var envelope models.ErrorEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("response is not a valid envelope: %v", err)
	}
	if envelope.Error != "Unknown tool: nope" {
		t.Errorf("error = %q, want %q", envelope.Error, "Unknown tool: nope")
	}
}

func TestWebSocket_OriginRejected(t *testing.T) {
	cfg := testServerConfig()
	cfg.Security.CORSOrigins = []string{"https://dashboard.example.com"}
	fake := &fakeRouter{payload: map[string]any{}, status: http.StatusOK}
	server := setupWSServer(t, cfg, fake)

	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	conn, resp, err := dialWS(t, server, header)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err == nil {
		conn.Close()
		t.Fatal("handshake should fail for a disallowed origin")
	}
	if !errors.Is(err, websocket.ErrBadHandshake) {
		t.Fatalf("err = %v, want bad handshake", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("handshake status = %d, want 403", resp.StatusCode)
	}
}

func TestWebSocket_NoOriginAllowed(t *testing.T) {
	// Script clients send no Origin header and must still connect even
	// when the browser allowlist is restrictive.
	cfg := testServerConfig()
	cfg.Security.CORSOrigins = []string{"https://dashboard.example.com"}
	fake := &fakeRouter{payload: map[string]any{}, status: http.StatusOK}
	server := setupWSServer(t, cfg, fake)

	conn, resp, err := dialWS(t, server, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	conn.Close()
}

func TestWebSocket_AllowedOrigin(t *testing.T) {
	cfg := testServerConfig()
	cfg.Security.CORSOrigins = []string{"https://dashboard.example.com"}
	fake := &fakeRouter{payload: map[string]any{}, status: http.StatusOK}
	server := setupWSServer(t, cfg, fake)

	header := http.Header{"Origin": []string{"https://dashboard.example.com"}}
	conn, resp, err := dialWS(t, server, header)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	conn.Close()
}

func TestWebSocket_PingGetsPong(t *testing.T) {
	fake := &fakeRouter{payload: map[string]any{}, status: http.StatusOK}
	server := setupWSServer(t, testServerConfig(), fake)

	conn, resp, err := dialWS(t, server, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	defer conn.Close()

	pong := make(chan bool, 1)
	conn.SetPongHandler(func(string) error {
		pong <- true
		return nil
	})

	// Control frames are only processed while a read is in flight
	go func() {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, _, _ = conn.ReadMessage()
	}()

	if err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), time.Now().Add(time.Second)); err != nil {
		t.Fatalf("Failed to send ping: %v", err)
	}

	select {
	case <-pong:
		// Success
	case <-time.After(3 * time.Second):
		t.Error("no pong received within 3s")
	}
}
