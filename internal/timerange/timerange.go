// Sentrylens - Sentry Error Analytics and Reporting Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentrylens

// Package timerange parses and resolves the time-range tokens accepted
// by every tool.
//
// A token is either "all", meaning everything since the project was
// created, or a positive integer followed by a unit: 'h' for hours
// (at most 168) or 'd' for days (at most 90). Decimals, uppercase
// units, and compound tokens are rejected.
package timerange

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/sentrylens/internal/models"
	"github.com/tomtom215/sentrylens/internal/validation"
)

// All selects the window from project creation to now
const All = "all"

// Bounds on relative ranges. Longer hour windows should be expressed
// in days, longer day windows as "all".
const (
	MaxHours = 168
	MaxDays  = 90
)

var timeRangePattern = regexp.MustCompile(`^\d+[hd]$`)

// Validate checks a time-range token and returns a ValidationError
// describing the first problem found. "all" is always valid.
func Validate(timeRange string) error {
	if timeRange == All {
		return nil
	}

	if !timeRangePattern.MatchString(timeRange) {
		return validation.NewError(
			"Invalid time range format: %s. Must be a number followed by 'h' (hours) or 'd' (days), or 'all' for all time.",
			timeRange)
	}

	unit := timeRange[len(timeRange)-1]
	digits := timeRange[:len(timeRange)-1]

	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		// Only an int64 overflow gets here, which is far past either cap
		big := strings.TrimLeft(digits, "0")
		if unit == 'h' {
			return validation.NewError(
				"Hour-based time range too large: %sh. Use days for ranges > 168 hours.", big)
		}
		return validation.NewError(
			"Day-based time range too large: %sd. Use 'all' for ranges > 90 days.", big)
	}

	if value <= 0 {
		return validation.NewError("Time range value must be positive, got: %d", value)
	}

	switch {
	case unit == 'h' && value > MaxHours:
		return validation.NewError(
			"Hour-based time range too large: %dh. Use days for ranges > 168 hours.", value)
	case unit == 'd' && value > MaxDays:
		return validation.NewError(
			"Day-based time range too large: %dd. Use 'all' for ranges > 90 days.", value)
	}

	return nil
}

// duration converts a validated relative token to its window length
func duration(timeRange string) time.Duration {
	value, _ := strconv.ParseInt(timeRange[:len(timeRange)-1], 10, 64)
	if timeRange[len(timeRange)-1] == 'h' {
		return time.Duration(value) * time.Hour
	}
	return time.Duration(value) * 24 * time.Hour
}

// ProjectEpoch supplies the project creation instant used as the start
// of an "all" window. The upstream client implements it.
type ProjectEpoch interface {
	ProjectCreatedAt(ctx context.Context) (time.Time, error)
}

// Resolver turns time-range tokens into concrete [start, end] windows.
type Resolver struct {
	epoch ProjectEpoch
	now   func() time.Time
}

// NewResolver creates a Resolver backed by the given epoch source
func NewResolver(epoch ProjectEpoch) *Resolver {
	return &Resolver{epoch: epoch, now: time.Now}
}

// NewResolverWithClock creates a Resolver with an injected clock, for tests
func NewResolverWithClock(epoch ProjectEpoch, now func() time.Time) *Resolver {
	return &Resolver{epoch: epoch, now: now}
}

// Resolve validates the token and returns its concrete window in UTC.
// End is the current instant, read once per call. For "all", the start
// is fetched from the epoch source on every invocation so the window
// always reflects the live project record; epoch failures propagate
// unmodified. For relative tokens, start is end minus the requested
// duration.
func (r *Resolver) Resolve(ctx context.Context, timeRange string) (models.TimeRangeWindow, error) {
	end := r.now().UTC()

	if timeRange == All {
		start, err := r.epoch.ProjectCreatedAt(ctx)
		if err != nil {
			return models.TimeRangeWindow{}, err
		}
		return models.TimeRangeWindow{Start: start.UTC(), End: end}, nil
	}

	if err := Validate(timeRange); err != nil {
		return models.TimeRangeWindow{}, err
	}

	return models.TimeRangeWindow{Start: end.Add(-duration(timeRange)), End: end}, nil
}
