// Sentrylens - Sentry Error Analytics and Reporting Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentrylens

package models

// Sentry REST API Models
// These structures represent responses from the Sentry Web API (version 0)
// Documentation: https://docs.sentry.io/api/

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// FlexInt is an int64 that decodes from either a JSON number or a quoted
// numeric string. The issues endpoint reports counts as strings while the
// sessions endpoint reports them as numbers; FlexInt absorbs both and
// always marshals back as a bare integer.
type FlexInt int64

// Int64 returns the value as a plain int64
func (f FlexInt) Int64() int64 {
	return int64(f)
}

// UnmarshalJSON implements tolerant decoding for number-or-string values
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			fl, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil {
				return fmt.Errorf("cannot parse %q as integer", s)
			}
			*f = FlexInt(int64(fl))
			return nil
		}
		*f = FlexInt(n)
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		var fl float64
		if ferr := json.Unmarshal(data, &fl); ferr != nil {
			return err
		}
		*f = FlexInt(int64(fl))
		return nil
	}
	*f = FlexInt(n)
	return nil
}

// MarshalJSON always emits a bare integer
func (f FlexInt) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(f), 10)), nil
}

// ============================================================================
// Project Models - GET /organizations/{org}/projects/ and
// GET /projects/{org}/{project}/
// ============================================================================

// Project represents a Sentry project record. The organization listing
// returns an array of these; the project detail endpoint returns a single
// one including dateCreated.
type Project struct {
	ID          FlexInt `json:"id"`   // numeric ID, serialized as a string by the API
	Slug        string  `json:"slug"` // URL-safe project identifier
	Name        string  `json:"name,omitempty"`
	DateCreated string  `json:"dateCreated,omitempty"` // RFC3339 creation instant
}

// ============================================================================
// Issue Models - GET /organizations/{org}/issues/
// ============================================================================

// Issue represents one issue group from the issues endpoint
type Issue struct {
	ID        FlexInt `json:"id"`
	Type      string  `json:"type"`  // error kind, e.g. "error", "TypeError"
	Title     string  `json:"title"` // headline message
	Count     FlexInt `json:"count"` // occurrences within the queried window
	UserCount FlexInt `json:"userCount"`
	FirstSeen string  `json:"firstSeen"` // RFC3339, copied through verbatim
	LastSeen  string  `json:"lastSeen"`
}

// IssueList decodes an issues response while retaining the raw JSON.
// The stats breakdown echoes upstream groups untouched, so the original
// bytes must survive alongside the parsed fields.
type IssueList struct {
	Raw   json.RawMessage
	Items []Issue
}

// UnmarshalJSON captures both the parsed items and the raw array
func (l *IssueList) UnmarshalJSON(data []byte) error {
	var items []Issue
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	l.Items = items
	l.Raw = append(l.Raw[:0:0], data...)
	return nil
}

// ============================================================================
// Received-Stats Models - GET /projects/{org}/{project}/stats/
// ============================================================================

// StatsPoint is one [timestamp, count] pair from the received-stats
// endpoint. Timestamps are epoch seconds; both values fit in float64
// exactly at the magnitudes the API produces.
type StatsPoint [2]float64

// Count returns the event count of this bucket
func (p StatsPoint) Count() int64 {
	return int64(p[1])
}

// StatsTimeline is the hourly received-event series, oldest first
type StatsTimeline []StatsPoint

// ============================================================================
// Session Models - GET /organizations/{org}/sessions/
// ============================================================================

// SessionsResponse represents the session aggregate response
type SessionsResponse struct {
	Groups    []SessionGroup `json:"groups"`
	Intervals []string       `json:"intervals"` // RFC3339 bucket boundaries
}

// SessionGroup is one aggregation group with its totals
type SessionGroup struct {
	By     map[string]any     `json:"by,omitempty"`
	Totals map[string]FlexInt `json:"totals"` // keyed by field, e.g. "sum(session)"
}

// Total returns the named aggregate, or 0 when the group omits it
func (g SessionGroup) Total(field string) int64 {
	return g.Totals[field].Int64()
}

// ============================================================================
// Release Models - GET /organizations/{org}/releases/
// ============================================================================

// Release represents one release record
type Release struct {
	Version     string `json:"version"`
	DateCreated string `json:"dateCreated"` // RFC3339, copied through verbatim
	Status      string `json:"status,omitempty"`
}
