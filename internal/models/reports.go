// Sentrylens - Sentry Error Analytics and Reporting Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentrylens

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// TimeRangeWindow reports the resolved [start, end) window of a tool
// call. Start is the project creation instant for "all", otherwise
// end minus the requested duration.
type TimeRangeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ProjectStats is the get_project_stats result
type ProjectStats struct {
	TotalErrors        int64           `json:"total_errors"`
	TotalUsersAffected int64           `json:"total_users_affected"`
	ErrorBreakdown     json.RawMessage `json:"error_breakdown"` // raw upstream issue groups; null unless group_by was supplied
	TimeRange          TimeRangeWindow `json:"time_range"`
}

// ErrorTrends is the get_error_trends result
type ErrorTrends struct {
	Trends    []TrendEntry    `json:"trends"`
	TimeRange TimeRangeWindow `json:"time_range"`
}

// TrendEntry is one trending issue, fields copied from the upstream
// issue record
type TrendEntry struct {
	ErrorType     string  `json:"error_type"`     // from issue "type"
	Message       string  `json:"message"`        // from issue "title"
	Count         FlexInt `json:"count"`
	UsersAffected FlexInt `json:"users_affected"` // from issue "userCount", 0 when absent
	FirstSeen     string  `json:"first_seen"`
	LastSeen      string  `json:"last_seen"`
}

// ImpactAnalysis is the get_impact_analysis result. All three sections
// come from separate upstream queries; a failure in any of them fails
// the whole call.
type ImpactAnalysis struct {
	ErrorStats   ErrorStats      `json:"error_stats"`
	SessionStats SessionStats    `json:"session_stats"`
	ReleaseStats ReleaseStats    `json:"release_stats"`
	TimeRange    TimeRangeWindow `json:"time_range"`
}

// ErrorStats summarizes the received-event series
type ErrorStats struct {
	TotalErrors   int64         `json:"total_errors"` // sum of the per-bucket counts
	ErrorTimeline StatsTimeline `json:"error_timeline"`
}

// SessionStats summarizes the session aggregates
type SessionStats struct {
	TotalSessions int64    `json:"total_sessions"`
	TotalUsers    int64    `json:"total_users"`
	Timeline      []string `json:"timeline"` // interval boundaries echoed from upstream
}

// ReleaseStats summarizes recent releases
type ReleaseStats struct {
	TotalReleases  int              `json:"total_releases"`
	LatestReleases []ReleaseSummary `json:"latest_releases"` // first five releases as returned by upstream
}

// ReleaseSummary is one release in the impact report
type ReleaseSummary struct {
	Version string `json:"version"`
	Created string `json:"created"`
	Status  string `json:"status"` // "unknown" when upstream omits it
}
