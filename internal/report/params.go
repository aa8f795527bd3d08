// Sentrylens - Sentry Error Analytics and Reporting Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentrylens

package report

import "github.com/tomtom215/sentrylens/internal/timerange"

// Tool parameter schemas. The router decodes each request's parameters
// object into one of these with unknown fields rejected, so a caller
// sending a misspelled or unsupported parameter gets a validation
// error instead of a silently ignored field.

// StatsParams selects the window and grouping for ProjectStats.
type StatsParams struct {
	TimeRange   string `json:"time_range"`
	GroupBy     string `json:"group_by"`
	Environment string `json:"environment"`
}

// DefaultStatsParams returns stats parameters covering the whole
// project history with no grouping.
func DefaultStatsParams() StatsParams {
	return StatsParams{TimeRange: timerange.All}
}

// TrendsParams selects the window and frequency floor for ErrorTrends.
type TrendsParams struct {
	TimeRange      string `json:"time_range"`
	MinOccurrences int    `json:"min_occurrences"`
}

// DefaultTrendsParams returns trend parameters covering the whole
// project history with the standard frequency floor.
func DefaultTrendsParams() TrendsParams {
	return TrendsParams{TimeRange: timerange.All, MinOccurrences: 10}
}

// ImpactParams selects the window, and optionally a single issue, for
// ImpactAnalysis. Unlike the other tools the window has no default.
type ImpactParams struct {
	TimeRange string `json:"time_range" validate:"required"`
	IssueID   string `json:"issue_id"`
}

// DefaultImpactParams returns the zero impact parameters.
func DefaultImpactParams() ImpactParams {
	return ImpactParams{}
}
