package upstream

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// SOC Insights endpoints (threat activity rollups and config analytics).

const insightsPrefix = "/api/insights/v1"

func (c *Client) ListInsights(ctx context.Context, status, priority string, limit int) (map[string]any, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	if priority != "" {
		query.Set("priority", priority)
	}
	if limit > 0 {
		query.Set("_limit", strconv.Itoa(limit))
	}
	return c.Do(ctx, http.MethodGet, insightsPrefix+"/insights", query, nil)
}

func (c *Client) GetInsight(ctx context.Context, insightID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, insightsPrefix+"/insights/"+insightID, nil, nil)
}

// UpdateInsightStatus moves an insight through its triage workflow
// (Active / Closed with an optional comment).
func (c *Client) UpdateInsightStatus(ctx context.Context, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPut, insightsPrefix+"/insights/status", nil, body)
}

func (c *Client) GetInsightIndicators(ctx context.Context, insightID string, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, insightsPrefix+"/insights/"+insightID+"/indicators", listLimit(limit), nil)
}

func (c *Client) GetInsightEvents(ctx context.Context, insightID string, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, insightsPrefix+"/insights/"+insightID+"/events", listLimit(limit), nil)
}

func (c *Client) GetInsightAssets(ctx context.Context, insightID string, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, insightsPrefix+"/insights/"+insightID+"/assets", listLimit(limit), nil)
}

func (c *Client) GetInsightComments(ctx context.Context, insightID string, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, insightsPrefix+"/insights/"+insightID+"/comments", listLimit(limit), nil)
}

func (c *Client) ListAnalyticsInsights(ctx context.Context, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, insightsPrefix+"/config-insights/analytics", listLimit(limit), nil)
}

func (c *Client) GetAnalyticsInsight(ctx context.Context, analyticID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, insightsPrefix+"/config-insights/analytics/"+analyticID, nil, nil)
}

func (c *Client) ListPolicyCheckInsights(ctx context.Context, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, insightsPrefix+"/config-insights/policy-check", listLimit(limit), nil)
}

func listLimit(limit int) url.Values {
	query := url.Values{}
	if limit > 0 {
		query.Set("_limit", strconv.Itoa(limit))
	}
	return query
}
