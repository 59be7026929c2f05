package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kurihiro0119/github-repo-analyzer/internal/domain"
)

// Client is the API client for github-repo-analyzer
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-200 response from the analyzer API
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Detail)
}

// IsAPIError reports whether err is a response from a reachable server, as
// opposed to a transport failure
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// AnalyzeResult is an account summary with its cache origin
type AnalyzeResult struct {
	domain.AccountSummary
	Cached bool `json:"cached"`
}

// HistoryResult lists stored snapshots of an account
type HistoryResult struct {
	Username  string             `json:"username"`
	Snapshots []*domain.Snapshot `json:"snapshots"`
}

// HealthStatus is the payload of the health endpoint
type HealthStatus struct {
	Status                string `json:"status"`
	UptimeSeconds         int    `json:"uptime_seconds"`
	GitHubTokenConfigured bool   `json:"github_token_configured"`
	CacheTTLSeconds       int    `json:"cache_ttl_seconds"`
	CacheEntries          int    `json:"cache_entries"`
	Storage               string `json:"storage"`
	// GitHubRateLimit is nil until the server has seen a GitHub response
	GitHubRateLimit *RateLimitStatus `json:"github_rate_limit"`
}

// RateLimitStatus is the GitHub quota tracked by the server
type RateLimitStatus struct {
	Remaining int   `json:"remaining"`
	Reset     int64 `json:"reset"`
}

// Analyze retrieves the summary of an account
func (c *Client) Analyze(ctx context.Context, username string, refresh bool) (*AnalyzeResult, error) {
	params := url.Values{}
	params.Set("username", username)
	if refresh {
		params.Set("refresh", "true")
	}

	var result AnalyzeResult
	if err := c.get(ctx, "/analyze", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// History retrieves stored snapshots of an account, newest first
func (c *Client) History(ctx context.Context, username string, limit int) (*HistoryResult, error) {
	params := url.Values{}
	params.Set("username", username)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var result HistoryResult
	if err := c.get(ctx, "/history", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// LatestSnapshot retrieves the newest stored snapshot of an account with its
// full summary
func (c *Client) LatestSnapshot(ctx context.Context, username string) (*domain.Snapshot, error) {
	params := url.Values{}
	params.Set("username", username)

	var snapshot domain.Snapshot
	if err := c.get(ctx, "/history/latest", params, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// ClearCache drops the server's cached summary of username, or every cached
// summary when username is empty
func (c *Client) ClearCache(ctx context.Context, username string) error {
	path := "/cache"
	if username != "" {
		path += "/" + url.PathEscape(username)
	}
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// Health retrieves the API health status
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if err := c.get(ctx, "/health", nil, &status); err != nil {
		return nil, err
	}
	if status.Status != "ok" {
		return &status, fmt.Errorf("unhealthy status: %s", status.Status)
	}
	return &status, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, params, result)
}

// do sends a request and decodes a JSON body into result when result is not
// nil. Non-2xx responses become *APIError.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, result interface{}) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return err
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Detail: string(body)}
		var payload struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(body, &payload) == nil && payload.Detail != "" {
			apiErr.Detail = payload.Detail
		}
		return apiErr
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(result)
}
