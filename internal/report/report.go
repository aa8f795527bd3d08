// Sentrylens - Sentry Error Analytics and Reporting Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentrylens

// Package report builds the three analytics reports served by the
// bridge: project statistics, error trends, and impact analysis.
//
// Every operation resolves its time-range token first, so validation
// failures and the project-creation lookup for "all" happen before any
// query is issued. Upstream failures propagate typed and untouched;
// the builder never substitutes defaults for a failed query.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/sentrylens/internal/logging"
	"github.com/tomtom215/sentrylens/internal/models"
	"github.com/tomtom215/sentrylens/internal/sentry"
	"github.com/tomtom215/sentrylens/internal/timerange"
)

const (
	trendsLimit        = 100
	latestReleaseCount = 5
)

// statsFields are the aggregation columns requested from the issue
// search for project statistics.
var statsFields = []string{"count()", "users_affected", "timestamp"}

// Upstream is the slice of the Sentry API the builder consumes.
// *sentry.Client satisfies it.
type Upstream interface {
	ProjectCreatedAt(ctx context.Context) (time.Time, error)
	Issues(ctx context.Context, q sentry.IssueQuery) (*models.IssueList, error)
	ReceivedStats(ctx context.Context, statsPeriod string) (models.StatsTimeline, error)
	Sessions(ctx context.Context, statsPeriod, issueID string) (*models.SessionsResponse, error)
	Releases(ctx context.Context, statsPeriod string) ([]models.Release, error)
}

// Builder produces report payloads from upstream query results.
type Builder struct {
	upstream Upstream
	resolver *timerange.Resolver
}

// NewBuilder creates a Builder whose "all" windows start at the
// project creation date reported by the upstream.
func NewBuilder(upstream Upstream) *Builder {
	return &Builder{
		upstream: upstream,
		resolver: timerange.NewResolver(upstream),
	}
}

// applyWindow maps a resolved window onto an issue query. Relative
// tokens pass through as statsPeriod; "all" becomes explicit start and
// end instants because the issue search has no all-time period token.
func applyWindow(q *sentry.IssueQuery, timeRange string, window models.TimeRangeWindow) {
	if timeRange == timerange.All {
		q.Start = window.Start
		q.End = window.End
		return
	}
	q.StatsPeriod = timeRange
}

// ProjectStats sums error and affected-user counts across every issue
// in the window. The raw upstream issue array is included as
// error_breakdown only when a grouping was requested.
func (b *Builder) ProjectStats(ctx context.Context, p StatsParams) (*models.ProjectStats, error) {
	window, err := b.resolver.Resolve(ctx, p.TimeRange)
	if err != nil {
		return nil, err
	}

	q := sentry.IssueQuery{
		Fields:      statsFields,
		Environment: p.Environment,
		GroupBy:     p.GroupBy,
	}
	applyWindow(&q, p.TimeRange, window)

	issues, err := b.upstream.Issues(ctx, q)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).
			Str("time_range", p.TimeRange).
			Msg("Project stats retrieval failed")
		return nil, err
	}

	stats := &models.ProjectStats{TimeRange: window}
	for _, issue := range issues.Items {
		stats.TotalErrors += issue.Count.Int64()
		stats.TotalUsersAffected += issue.UserCount.Int64()
	}
	if p.GroupBy != "" {
		stats.ErrorBreakdown = issues.Raw
	}
	return stats, nil
}

// ErrorTrends lists the most frequent issues in the window, capped at
// 100 and filtered to those seen at least MinOccurrences times.
// Entries keep the upstream frequency ordering.
func (b *Builder) ErrorTrends(ctx context.Context, p TrendsParams) (*models.ErrorTrends, error) {
	window, err := b.resolver.Resolve(ctx, p.TimeRange)
	if err != nil {
		return nil, err
	}

	q := sentry.IssueQuery{
		Query: fmt.Sprintf("times_seen:>=%d", p.MinOccurrences),
		Sort:  "freq",
		Limit: trendsLimit,
	}
	applyWindow(&q, p.TimeRange, window)

	issues, err := b.upstream.Issues(ctx, q)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).
			Str("time_range", p.TimeRange).
			Msg("Error trends retrieval failed")
		return nil, err
	}

	trends := make([]models.TrendEntry, 0, len(issues.Items))
	for _, issue := range issues.Items {
		trends = append(trends, models.TrendEntry{
			ErrorType:     issue.Type,
			Message:       issue.Title,
			Count:         issue.Count,
			UsersAffected: issue.UserCount,
			FirstSeen:     issue.FirstSeen,
			LastSeen:      issue.LastSeen,
		})
	}
	return &models.ErrorTrends{Trends: trends, TimeRange: window}, nil
}

// ImpactAnalysis combines the received-event timeline, session
// aggregates, and recent releases for the window. The three queries
// run sequentially and the report is all-or-nothing: any failure
// aborts the whole operation with no partial result.
//
// The three impact endpoints all accept statsPeriod=all directly, so
// the token is forwarded verbatim; resolving it first still validates
// relative tokens and produces the echoed time_range window.
func (b *Builder) ImpactAnalysis(ctx context.Context, p ImpactParams) (*models.ImpactAnalysis, error) {
	window, err := b.resolver.Resolve(ctx, p.TimeRange)
	if err != nil {
		return nil, err
	}

	timeline, err := b.upstream.ReceivedStats(ctx, p.TimeRange)
	if err != nil {
		return nil, b.impactFailed(ctx, p, err)
	}

	sessions, err := b.upstream.Sessions(ctx, p.TimeRange, p.IssueID)
	if err != nil {
		return nil, b.impactFailed(ctx, p, err)
	}

	releases, err := b.upstream.Releases(ctx, p.TimeRange)
	if err != nil {
		return nil, b.impactFailed(ctx, p, err)
	}

	result := &models.ImpactAnalysis{TimeRange: window}

	for _, point := range timeline {
		result.ErrorStats.TotalErrors += point.Count()
	}
	result.ErrorStats.ErrorTimeline = timeline

	if len(sessions.Groups) > 0 {
		result.SessionStats.TotalSessions = sessions.Groups[0].Total("sum(session)")
		result.SessionStats.TotalUsers = sessions.Groups[0].Total("count_unique(user)")
	}
	result.SessionStats.Timeline = sessions.Intervals
	if result.SessionStats.Timeline == nil {
		result.SessionStats.Timeline = []string{}
	}

	result.ReleaseStats.TotalReleases = len(releases)
	result.ReleaseStats.LatestReleases = latestReleases(releases)

	return result, nil
}

func (b *Builder) impactFailed(ctx context.Context, p ImpactParams, err error) error {
	logging.Ctx(ctx).Error().Err(err).
		Str("time_range", p.TimeRange).
		Str("issue_id", p.IssueID).
		Msg("Impact analysis failed")
	return err
}

// latestReleases summarizes the first releases in upstream order,
// which the API returns newest first.
func latestReleases(releases []models.Release) []models.ReleaseSummary {
	n := len(releases)
	if n > latestReleaseCount {
		n = latestReleaseCount
	}

	latest := make([]models.ReleaseSummary, 0, n)
	for _, rel := range releases[:n] {
		status := rel.Status
		if status == "" {
			status = "unknown"
		}
		latest = append(latest, models.ReleaseSummary{
			Version: rel.Version,
			Created: rel.DateCreated,
			Status:  status,
		})
	}
	return latest
}
