package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// NIOS-X as a Service endpoints: universal services, service endpoints,
// access locations, and the consolidated VPN configuration document.

const universalInfraPrefix = "/api/universalinfra/v1"

func (c *Client) ListUniversalServices(ctx context.Context, filter string, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, universalInfraPrefix+"/universalservices", listQuery(filter, limit), nil)
}

func (c *Client) GetUniversalService(ctx context.Context, serviceID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, universalInfraPrefix+"/universalservices/"+serviceID, nil, nil)
}

func (c *Client) DeleteUniversalService(ctx context.Context, serviceID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodDelete, universalInfraPrefix+"/universalservices/"+serviceID, nil, nil)
}

func (c *Client) ListEndpoints(ctx context.Context, filter string, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, universalInfraPrefix+"/endpoints", listQuery(filter, limit), nil)
}

func (c *Client) GetEndpoint(ctx context.Context, endpointID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, universalInfraPrefix+"/endpoints/"+endpointID, nil, nil)
}

func (c *Client) DeleteEndpoint(ctx context.Context, endpointID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodDelete, universalInfraPrefix+"/endpoints/"+endpointID, nil, nil)
}

func (c *Client) ListAccessLocations(ctx context.Context, filter string, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, universalInfraPrefix+"/accesslocations", listQuery(filter, limit), nil)
}

func (c *Client) GetAccessLocation(ctx context.Context, locationID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, universalInfraPrefix+"/accesslocations/"+locationID, nil, nil)
}

func (c *Client) UpdateAccessLocation(ctx context.Context, locationID string, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPut, universalInfraPrefix+"/accesslocations/"+locationID, nil, body)
}

func (c *Client) DeleteAccessLocation(ctx context.Context, locationID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodDelete, universalInfraPrefix+"/accesslocations/"+locationID, nil, nil)
}

func (c *Client) ListSupportedSizes(ctx context.Context) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, universalInfraPrefix+"/supportedsizes", nil, nil)
}

func (c *Client) ListCloudProviderRegions(ctx context.Context, provider string) (map[string]any, error) {
	query := url.Values{}
	if provider != "" {
		query.Set("_filter", fmt.Sprintf("cloud_provider=='%s'", provider))
	}
	return c.Do(ctx, http.MethodGet, universalInfraPrefix+"/cloudproviderregions", query, nil)
}

func (c *Client) ListCapabilities(ctx context.Context) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, universalInfraPrefix+"/capabilities", nil, nil)
}

// ConsolidatedConfigure submits the composite VPN infrastructure document.
// The upstream treats the whole document atomically; conflicts surface as
// 409 and are retried by the pipeline.
func (c *Client) ConsolidatedConfigure(ctx context.Context, payload map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, universalInfraPrefix+"/consolidated/configure", nil, payload)
}

// ---- IAM credentials used by VPN provisioning ----

func (c *Client) ListCredentials(ctx context.Context, filter string) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/iam/v2/keys", listQuery(filter, 0), nil)
}

func (c *Client) CreateCredential(ctx context.Context, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/api/iam/v2/keys", nil, body)
}

func (c *Client) DeleteCredential(ctx context.Context, credentialID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodDelete, "/api/iam/v2/keys/"+credentialID, nil, nil)
}
