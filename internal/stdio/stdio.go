// Sentrylens - Sentry Error Analytics and Reporting Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentrylens

// Package stdio implements the line-oriented standard transport: one
// JSON request envelope per stdin line, one JSON response per stdout
// line. Stdout carries only protocol responses; all logging goes to
// stderr.
package stdio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sentrylens/internal/logging"
	"github.com/tomtom215/sentrylens/internal/metrics"
	"github.com/tomtom215/sentrylens/internal/models"
)

// maxLineSize caps a single request line at the same size as the HTTP
// transport's body limit.
const maxLineSize = 1024 * 1024 // 1 MiB

// ToolRouter handles one request envelope and returns the response
// payload with its status classification. *tools.Router satisfies it.
type ToolRouter interface {
	Handle(ctx context.Context, line []byte) (any, int)
}

// Server reads request envelopes from in and writes responses to out.
type Server struct {
	router ToolRouter
	in     io.Reader
	out    io.Writer
}

// NewServer creates a stdio transport over the given streams. Callers
// pass os.Stdin and os.Stdout in production.
func NewServer(router ToolRouter, in io.Reader, out io.Writer) *Server {
	return &Server{
		router: router,
		in:     in,
		out:    out,
	}
}

// Serve runs the request loop until EOF, a read failure, or context
// cancellation. EOF and cancellation are clean shutdowns. Empty lines
// are skipped; whitespace-only lines are treated as requests and fail
// JSON parsing like any other malformed input.
func (s *Server) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	scanDone := make(chan error, 1)

	go func() {
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				scanDone <- nil
				return
			default:
			}

			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			s.handleLine(ctx, line)
		}
		scanDone <- scanner.Err()
	}()

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutting down stdio transport")
		return nil
	case err := <-scanDone:
		if errors.Is(err, bufio.ErrTooLong) {
			logging.Error().Int("limit_bytes", maxLineSize).Msg("Request line exceeds size limit")
			metrics.RecordStdioLine("error")
			s.writeResponse(models.ErrorEnvelope{Error: "Invalid JSON request"})
			return fmt.Errorf("request line exceeds %d bytes: %w", maxLineSize, err)
		}
		if err != nil {
			return fmt.Errorf("reading requests: %w", err)
		}
		return nil
	}
}

// handleLine routes one request and writes its response line
func (s *Server) handleLine(ctx context.Context, line []byte) {
	ctx = logging.ContextWithRequestID(ctx, logging.GenerateRequestID())

	payload, status := s.router.Handle(ctx, line)

	outcome := "success"
	if status != http.StatusOK {
		outcome = "error"
	}
	metrics.RecordStdioLine(outcome)

	s.writeResponse(payload)
}

func (s *Server) writeResponse(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal response")
		data = []byte(`{"error":"Unexpected error: failed to encode response"}`)
	}

	if _, err := fmt.Fprintf(s.out, "%s\n", data); err != nil {
		logging.Error().Err(err).Msg("Failed to write response")
	}
}

// WriteStartupFailure emits the initialization-failure envelope so a
// host reading the pipe sees a JSON explanation instead of a silent
// exit.
func WriteStartupFailure(out io.Writer, err error) {
	envelope := models.ErrorEnvelope{Error: "Server initialization failed: " + err.Error()}
	data, marshalErr := json.Marshal(envelope)
	if marshalErr != nil {
		return
	}
	_, _ = fmt.Fprintf(out, "%s\n", data)
}
