// Sentrylens - Sentry Error Analytics and Reporting Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentrylens

/*
Package sentry provides the HTTP client for the Sentry Web API.

The client authenticates with a bearer token and exposes one typed
method per endpoint the report builder needs: project listing, project
detail, issue listing, received-event stats, session aggregates, and
releases. Construction resolves the configured project slug to its
numeric ID with one upstream call, so a bad slug fails at startup
instead of on the first tool request.

All methods accept a context for cancellation and return *UpstreamError
for transport failures, non-2xx statuses, and undecodable bodies.
Requests are made once; there is no retry or backoff layer.
*/
package sentry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sentrylens/internal/config"
	"github.com/tomtom215/sentrylens/internal/logging"
	"github.com/tomtom215/sentrylens/internal/metrics"
	"github.com/tomtom215/sentrylens/internal/models"
)

// maxErrorBodySize limits the maximum amount of response body read for error reporting
// This prevents unbounded memory allocation when reading large error responses
const maxErrorBodySize = 64 * 1024 // 64KB

// requestTimeout bounds every upstream call independent of the caller's context
const requestTimeout = 30 * time.Second

// UpstreamError indicates a failed request to the Sentry API: a
// transport error, a non-2xx status, or an undecodable response body.
// The router reports it with HTTP 502 and an "UpstreamError" type tag.
type UpstreamError struct {
	Message    string
	StatusCode int // 0 when no response arrived
}

// Error returns the human-readable message
func (e *UpstreamError) Error() string {
	return e.Message
}

// readBodyForError reads the response body for error reporting (max 64KB)
// Returns the body content or a placeholder message if reading fails
// Uses io.LimitReader to prevent unbounded memory allocation
func readBodyForError(r io.Reader) []byte {
	limitedReader := io.LimitReader(r, maxErrorBodySize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// IssueQuery describes one call to the issues endpoint. StatsPeriod and
// the Start/End pair are mutually exclusive: relative tokens go through
// as statsPeriod, "all" becomes an explicit window.
type IssueQuery struct {
	StatsPeriod string
	Start       time.Time
	End         time.Time
	Fields      []string // aggregation fields, e.g. "count()"
	Query       string   // issue search, e.g. "times_seen:>=10"
	Sort        string
	Limit       int
	Environment string
	GroupBy     string
}

// Client handles communication with the Sentry Web API.
//
// Thread Safety: Safe for concurrent use. Each request creates its own
// HTTP request.
type Client struct {
	baseURL   string
	token     string
	org       string
	project   string
	projectID string
	client    *http.Client
}

// NewClient creates a Sentry API client and resolves the configured
// project slug to its numeric ID. Returns a ConfigError when the slug
// does not exist in the organization, or an UpstreamError when the
// lookup itself fails.
func NewClient(ctx context.Context, cfg *config.SentryConfig) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.AuthToken,
		org:     cfg.Organization,
		project: cfg.Project,
		client: &http.Client{
			Timeout: requestTimeout,
		},
	}

	projectID, err := c.resolveProjectID(ctx)
	if err != nil {
		return nil, err
	}
	c.projectID = projectID

	logging.Info().
		Str("organization", c.org).
		Str("project", c.project).
		Str("project_id", c.projectID).
		Msg("Initialized Sentry client")

	return c, nil
}

// resolveProjectID finds the numeric ID for the configured project slug
func (c *Client) resolveProjectID(ctx context.Context) (string, error) {
	var projects []models.Project
	if err := c.get(ctx, "list_projects", fmt.Sprintf("organizations/%s/projects/", c.org), nil, &projects); err != nil {
		return "", err
	}

	for _, p := range projects {
		if p.Slug == c.project {
			return strconv.FormatInt(p.ID.Int64(), 10), nil
		}
	}

	return "", config.NewConfigError("Project %s not found", c.project)
}

// ProjectCreatedAt fetches the project creation instant from the
// project detail endpoint. Called on every "all" resolution, so the
// window start always reflects the live project record.
func (c *Client) ProjectCreatedAt(ctx context.Context) (time.Time, error) {
	var project models.Project
	path := fmt.Sprintf("projects/%s/%s/", c.org, c.project)
	if err := c.get(ctx, "project_detail", path, nil, &project); err != nil {
		return time.Time{}, err
	}

	created, err := time.Parse(time.RFC3339, project.DateCreated)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse project creation date %q: %w", project.DateCreated, err)
	}
	return created, nil
}

// Issues queries the issues endpoint with the given aggregation or
// search parameters.
func (c *Client) Issues(ctx context.Context, q IssueQuery) (*models.IssueList, error) {
	params := url.Values{}
	params.Set("project", c.projectID)

	if q.StatsPeriod != "" {
		params.Set("statsPeriod", q.StatsPeriod)
	} else {
		params.Set("start", q.Start.UTC().Format(time.RFC3339))
		params.Set("end", q.End.UTC().Format(time.RFC3339))
	}
	for _, f := range q.Fields {
		params.Add("field", f)
	}
	if q.Query != "" {
		params.Set("query", q.Query)
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Environment != "" {
		params.Set("environment", q.Environment)
	}
	if q.GroupBy != "" {
		params.Set("groupBy", q.GroupBy)
	}

	var list models.IssueList
	path := fmt.Sprintf("organizations/%s/issues/", c.org)
	if err := c.get(ctx, "list_issues", path, params, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// ReceivedStats fetches the hourly received-event series for the
// project. The statsPeriod token is passed through verbatim.
func (c *Client) ReceivedStats(ctx context.Context, statsPeriod string) (models.StatsTimeline, error) {
	params := url.Values{}
	params.Set("stat", "received")
	params.Set("resolution", "1h")
	params.Set("statsPeriod", statsPeriod)

	var timeline models.StatsTimeline
	path := fmt.Sprintf("projects/%s/%s/stats/", c.org, c.project)
	if err := c.get(ctx, "received_stats", path, params, &timeline); err != nil {
		return nil, err
	}
	return timeline, nil
}

// Sessions fetches session and user aggregates, optionally filtered to
// a single issue.
func (c *Client) Sessions(ctx context.Context, statsPeriod, issueID string) (*models.SessionsResponse, error) {
	params := url.Values{}
	params.Set("project", c.projectID)
	params.Set("statsPeriod", statsPeriod)
	params.Set("interval", "1h")
	params.Add("field", "sum(session)")
	params.Add("field", "count_unique(user)")
	if issueID != "" {
		params.Set("query", "issue:"+issueID)
	}

	var sessions models.SessionsResponse
	path := fmt.Sprintf("organizations/%s/sessions/", c.org)
	if err := c.get(ctx, "sessions", path, params, &sessions); err != nil {
		return nil, err
	}
	return &sessions, nil
}

// Releases lists releases for the project within the stats period
func (c *Client) Releases(ctx context.Context, statsPeriod string) ([]models.Release, error) {
	params := url.Values{}
	params.Set("project", c.projectID)
	params.Set("statsPeriod", statsPeriod)

	var releases []models.Release
	path := fmt.Sprintf("organizations/%s/releases/", c.org)
	if err := c.get(ctx, "releases", path, params, &releases); err != nil {
		return nil, err
	}
	return releases, nil
}

// get performs one authenticated GET request and decodes the JSON
// response into result. op is the logical operation name used for
// logging and metrics.
func (c *Client) get(ctx context.Context, op, path string, params url.Values, result any) error {
	start := time.Now()
	statusCode := 0
	defer func() {
		metrics.RecordUpstreamRequest(op, statusCode, time.Since(start))
	}()

	reqURL := c.baseURL + "/" + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return &UpstreamError{Message: fmt.Sprintf("API request failed: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		logging.Ctx(ctx).Error().
			Str("operation", op).
			Str("endpoint", path).
			Err(err).
			Msg("Sentry API request failed")
		return &UpstreamError{Message: fmt.Sprintf("API request failed: %v", err)}
	}
	defer resp.Body.Close()
	statusCode = resp.StatusCode

	if resp.StatusCode >= 400 {
		body := readBodyForError(resp.Body)
		logging.Ctx(ctx).Error().
			Str("operation", op).
			Str("endpoint", path).
			Int("status_code", resp.StatusCode).
			Msg("Sentry API request failed")
		return &UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("API request failed: %s returned status %d: %s", path, resp.StatusCode, body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		logging.Ctx(ctx).Error().
			Str("operation", op).
			Str("endpoint", path).
			Err(err).
			Msg("Sentry API response undecodable")
		return &UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("API request failed: invalid JSON from %s: %v", path, err),
		}
	}

	return nil
}
