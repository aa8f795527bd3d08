// Sentrylens - Sentry Error Analytics and Reporting Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentrylens

/*
Package models defines data structures for the Sentrylens application.

This package contains all data models exchanged on either side of the
bridge: the request/response envelopes spoken over stdio and HTTP, the
simplified report shapes returned by the three analytics tools, and the
Sentry REST API response models the upstream client decodes. It serves
as the single source of truth for data structure definitions.

Model Categories:

 1. Envelope Models:
    - ToolRequest: the {tool, parameters} request object
    - ErrorEnvelope: the {error, type} failure response

 2. Report Models:
    - ProjectStats, ErrorTrends, ImpactAnalysis: tool results

 3. Sentry API Models:
    - Issue, Project, SessionsResponse, Release: upstream responses
    - FlexInt: tolerant decoding for count fields that arrive as either
      bare numbers or quoted strings depending on the endpoint
*/
package models
