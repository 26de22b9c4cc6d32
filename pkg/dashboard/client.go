// Package dashboard is the server-rendered monitoring UI. Every upstream call goes through the
// gateway transport so the panels get the same caching and fallbacks as the browser.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/terrycain/offline-cache-gateway/pkg/gateway"
)

const DefaultAlertsLimit = 10

// StatusError is a non-2xx answer from upstream.
type StatusError struct {
	Status int
	Path   string
}

func (err *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", err.Path, err.Status)
}

// Client talks to the upstream API. The returned stale flag is true when the gateway answered
// from its dynamic partition after a network failure.
type Client struct {
	HTTP *http.Client
	Base *url.URL
}

// NewClient builds a client for the /api prefix of origin using transport for every request.
func NewClient(origin *url.URL, transport http.RoundTripper) *Client {
	base := origin.ResolveReference(&url.URL{Path: "/api/"})
	return &Client{HTTP: &http.Client{Transport: transport}, Base: base}
}

func (c *Client) url(path string, query url.Values) string {
	u := c.Base.ResolveReference(&url.URL{Path: strings.TrimPrefix(path, "/")})
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) do(req *http.Request, path string) (*http.Response, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return nil, &StatusError{Status: resp.StatusCode, Path: path}
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path, query), nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req, path)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, pkgerrors.Wrap(err, "decode "+path)
	}
	return gateway.Stale(resp), nil
}

func (c *Client) getBytes(ctx context.Context, path string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path, nil), nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.do(req, path)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", pkgerrors.Wrap(err, "read "+path)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func (c *Client) Stats(ctx context.Context) (Stats, bool, error) {
	var stats Stats
	stale, err := c.getJSON(ctx, "/dashboard/stats", nil, &stats)
	return stats, stale, err
}

func (c *Client) Alerts(ctx context.Context, limit int) ([]Alert, bool, error) {
	if limit <= 0 {
		limit = DefaultAlertsLimit
	}
	var resp alertsResponse
	stale, err := c.getJSON(ctx, "/alerts", url.Values{"limit": []string{strconv.Itoa(limit)}}, &resp)
	if resp.Alerts == nil {
		resp.Alerts = []Alert{}
	}
	return resp.Alerts, stale, err
}

func (c *Client) Cameras(ctx context.Context) ([]Camera, bool, error) {
	var resp camerasResponse
	stale, err := c.getJSON(ctx, "/cameras", nil, &resp)
	if resp.Cameras == nil {
		resp.Cameras = []Camera{}
	}
	return resp.Cameras, stale, err
}

func (c *Client) Snapshot(ctx context.Context, cameraID string) ([]byte, string, error) {
	return c.getBytes(ctx, "/cameras/"+url.PathEscape(cameraID)+"/snapshot")
}

func (c *Client) Activity(ctx context.Context) (Activity, bool, error) {
	var activity Activity
	stale, err := c.getJSON(ctx, "/analytics/activity", nil, &activity)
	return activity, stale, err
}

func (c *Client) Events(ctx context.Context) (EventDistribution, bool, error) {
	var events EventDistribution
	stale, err := c.getJSON(ctx, "/analytics/events", nil, &events)
	return events, stale, err
}

func (c *Client) Heatmap(ctx context.Context) (Heatmap, bool, error) {
	var heatmap Heatmap
	stale, err := c.getJSON(ctx, "/analytics/heatmap", nil, &heatmap)
	return heatmap, stale, err
}

func (c *Client) Reports(ctx context.Context) ([]Report, bool, error) {
	var resp reportsResponse
	stale, err := c.getJSON(ctx, "/reports", nil, &resp)
	if resp.Reports == nil {
		resp.Reports = []Report{}
	}
	return resp.Reports, stale, err
}

func (c *Client) DownloadReport(ctx context.Context, reportID string) ([]byte, string, error) {
	return c.getBytes(ctx, "/reports/"+url.PathEscape(reportID)+"/download")
}

func (c *Client) GenerateReport(ctx context.Context, request ReportRequest) (GenerateResult, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return GenerateResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/reports/generate", nil), bytes.NewReader(body))
	if err != nil {
		return GenerateResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req, "/reports/generate")
	if err != nil {
		return GenerateResult{}, err
	}
	defer resp.Body.Close()

	var result GenerateResult
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return GenerateResult{}, pkgerrors.Wrap(err, "decode /reports/generate")
	}
	return result, nil
}
