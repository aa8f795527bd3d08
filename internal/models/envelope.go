// Sentrylens - Sentry Error Analytics and Reporting Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentrylens

package models

import (
	"github.com/goccy/go-json"
)

// ToolRequest is the request envelope accepted over both transports:
// one JSON object per stdin line, or the body of POST /mcp.
// Parameters stays raw here; each tool decodes it against its own
// parameter schema.
type ToolRequest struct {
	Tool       string          `json:"tool"`
	Parameters json.RawMessage `json:"parameters"`
}

// ErrorEnvelope is the failure response envelope. Type carries the
// error classification (ValidationError, ConfigError, UpstreamError)
// and is omitted for unclassified failures and protocol-level errors
// such as malformed JSON or an unknown tool name.
type ErrorEnvelope struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}
