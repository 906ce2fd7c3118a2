package upstream

import (
	"context"
	"net/http"
)

// Advanced Threat Control Firewall (DNS security) endpoints.

func (c *Client) ListSecurityPolicies(ctx context.Context, filter string, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/atcfw/v1/security_policies", listQuery(filter, limit), nil)
}

func (c *Client) GetSecurityPolicy(ctx context.Context, policyID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/atcfw/v1/security_policies/"+policyID, nil, nil)
}

func (c *Client) ListNamedLists(ctx context.Context, filter string, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/atcfw/v1/named_lists", listQuery(filter, limit), nil)
}

func (c *Client) CreateNamedList(ctx context.Context, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/api/atcfw/v1/named_lists", nil, body)
}

func (c *Client) ListContentCategories(ctx context.Context) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/atcfw/v1/content_categories", nil, nil)
}

func (c *Client) ListInternalDomainLists(ctx context.Context, filter string, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/atcfw/v1/internal_domain_lists", listQuery(filter, limit), nil)
}

func (c *Client) CreateInternalDomainList(ctx context.Context, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/api/atcfw/v1/internal_domain_lists", nil, body)
}

func (c *Client) ListCategoryFilters(ctx context.Context, filter string, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/atcfw/v1/category_filters", listQuery(filter, limit), nil)
}

func (c *Client) ListApplicationFilters(ctx context.Context, filter string, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/atcfw/v1/application_filters", listQuery(filter, limit), nil)
}
