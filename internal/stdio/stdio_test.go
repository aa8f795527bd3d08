// Sentrylens - Sentry Error Analytics and Reporting Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentrylens

package stdio

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sentrylens/internal/logging"
	"github.com/tomtom215/sentrylens/internal/models"
)

// fakeRouter returns a canned payload and records every line it sees.
type fakeRouter struct {
	payload    any
	status     int
	lines      []string
	requestIDs []string
}

func (f *fakeRouter) Handle(ctx context.Context, line []byte) (any, int) {
	f.lines = append(f.lines, string(line))
	f.requestIDs = append(f.requestIDs, logging.RequestIDFromContext(ctx))
	return f.payload, f.status
}

func TestServeRoundTrip(t *testing.T) {
	fake := &fakeRouter{
		payload: map[string]any{"total_errors": 30},
		status:  http.StatusOK,
	}
	in := strings.NewReader(`{"tool": "get_project_stats"}` + "\n")
	out := &bytes.Buffer{}

	server := NewServer(fake, in, out)
	if err := server.Serve(context.Background()); err != nil {
		t.Fatalf("Serve returned %v, want nil on EOF", err)
	}

	if len(fake.lines) != 1 {
		t.Fatalf("router calls = %d, want 1", len(fake.lines))
	}
	if fake.lines[0] != `{"tool": "get_project_stats"}` {
		t.Errorf("router received %q, want the raw line", fake.lines[0])
	}

	response := strings.TrimSpace(out.String())
	var decoded map[string]any
	if err := json.Unmarshal([]byte(response), &decoded); err != nil {
		t.Fatalf("output line is not valid JSON: %v", err)
	}
	if decoded["total_errors"] != float64(30) {
		t.Errorf("total_errors = %v, want 30", decoded["total_errors"])
	}
}

func TestServeOneResponsePerLine(t *testing.T) {
	fake := &fakeRouter{payload: map[string]any{"ok": true}, status: http.StatusOK}
	in := strings.NewReader(
		`{"tool": "get_project_stats"}` + "\n" +
			`{"tool": "get_error_trends"}` + "\n" +
			`{"tool": "get_impact_analysis", "parameters": {"time_range": "24h"}}` + "\n")
	out := &bytes.Buffer{}

	server := NewServer(fake, in, out)
	if err := server.Serve(context.Background()); err != nil {
		t.Fatalf("Serve returned %v, want nil", err)
	}

	if len(fake.lines) != 3 {
		t.Fatalf("router calls = %d, want 3", len(fake.lines))
	}

	responses := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(responses) != 3 {
		t.Fatalf("output lines = %d, want 3", len(responses))
	}
	for i, line := range responses {
		if !json.Valid([]byte(line)) {
			t.Errorf("output line %d is not valid JSON: %q", i, line)
		}
	}
}

func TestServeSkipsEmptyLines(t *testing.T) {
	fake := &fakeRouter{payload: map[string]any{}, status: http.StatusOK}
	in := strings.NewReader("\n\n" + `{"tool": "get_project_stats"}` + "\n\n")
	out := &bytes.Buffer{}

	server := NewServer(fake, in, out)
	if err := server.Serve(context.Background()); err != nil {
		t.Fatalf("Serve returned %v, want nil", err)
	}

	if len(fake.lines) != 1 {
		t.Errorf("router calls = %d, want 1 (empty lines skipped)", len(fake.lines))
	}
}

func TestServeWhitespaceLineIsARequest(t *testing.T) {
	// Only truly empty lines are skipped. A whitespace-only line goes
	// to the router and fails JSON parsing there.
	fake := &fakeRouter{
		payload: models.ErrorEnvelope{Error: "Invalid JSON request"},
		status:  http.StatusBadRequest,
	}
	in := strings.NewReader("   \n")
	out := &bytes.Buffer{}

	server := NewServer(fake, in, out)
	if err := server.Serve(context.Background()); err != nil {
		t.Fatalf("Serve returned %v, want nil", err)
	}

	if len(fake.lines) != 1 {
		t.Fatalf("router calls = %d, want 1", len(fake.lines))
	}
	if fake.lines[0] != "   " {
		t.Errorf("router received %q, want the whitespace line", fake.lines[0])
	}
}

func TestServeEOFImmediately(t *testing.T) {
	fake := &fakeRouter{payload: map[string]any{}, status: http.StatusOK}
	out := &bytes.Buffer{}

	server := NewServer(fake, strings.NewReader(""), out)
	if err := server.Serve(context.Background()); err != nil {
		t.Fatalf("Serve returned %v, want nil on immediate EOF", err)
	}
	if out.Len() != 0 {
		t.Errorf("output = %q, want empty", out.String())
	}
}

func TestServeAssignsRequestIDs(t *testing.T) {
	fake := &fakeRouter{payload: map[string]any{}, status: http.StatusOK}
	in := strings.NewReader(`{"tool": "a"}` + "\n" + `{"tool": "b"}` + "\n")
	out := &bytes.Buffer{}

	server := NewServer(fake, in, out)
	if err := server.Serve(context.Background()); err != nil {
		t.Fatalf("Serve returned %v, want nil", err)
	}

	if len(fake.requestIDs) != 2 {
		t.Fatalf("request IDs = %d, want 2", len(fake.requestIDs))
	}
	for i, id := range fake.requestIDs {
		if id == "" {
			t.Errorf("request %d has no request ID", i)
		}
	}
	if fake.requestIDs[0] == fake.requestIDs[1] {
		t.Error("request IDs should differ per line")
	}
}

func TestServeLineTooLong(t *testing.T) {
	fake := &fakeRouter{payload: map[string]any{}, status: http.StatusOK}
	in := strings.NewReader(strings.Repeat("x", maxLineSize+1))
	out := &bytes.Buffer{}

	server := NewServer(fake, in, out)
	err := server.Serve(context.Background())
	if err == nil {
		t.Fatal("Serve should fail when a line exceeds the size limit")
	}
	if !errors.Is(err, bufio.ErrTooLong) {
		t.Fatalf("err = %v, want bufio.ErrTooLong", err)
	}
	if len(fake.lines) != 0 {
		t.Error("router should not see the oversized line")
	}

	var envelope models.ErrorEnvelope
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &envelope); err != nil {
		t.Fatalf("output is not a valid envelope: %v", err)
	}
	if envelope.Error != "Invalid JSON request" {
		t.Errorf("error = %q, want %q", envelope.Error, "Invalid JSON request")
	}
}

func TestServeContextCancellation(t *testing.T) {
	fake := &fakeRouter{payload: map[string]any{}, status: http.StatusOK}

	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })
	out := &bytes.Buffer{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	server := NewServer(fake, pr, out)

	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v, want nil on cancellation", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after context cancellation")
	}
}

func TestWriteStartupFailure(t *testing.T) {
	out := &bytes.Buffer{}
	WriteStartupFailure(out, errors.New("Missing required environment variables"))

	var envelope models.ErrorEnvelope
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &envelope); err != nil {
		t.Fatalf("output is not a valid envelope: %v", err)
	}
	want := "Server initialization failed: Missing required environment variables"
	if envelope.Error != want {
		t.Errorf("error = %q, want %q", envelope.Error, want)
	}
	if !strings.HasSuffix(out.String(), "\n") {
		t.Error("envelope line must end with a newline")
	}
}
