package upstream

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// listQuery builds the upstream collection-listing query string. The
// upstream uses _filter / _limit parameter names across every family.
func listQuery(filter string, limit int) url.Values {
	query := url.Values{}
	if limit > 0 {
		query.Set("_limit", strconv.Itoa(limit))
	}
	if filter != "" {
		query.Set("_filter", filter)
	}
	return query
}

// ---- IPAM ----

func (c *Client) ListIPSpaces(ctx context.Context, filter string, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/ddi/v1/ipam/ip_space", listQuery(filter, limit), nil)
}

func (c *Client) ListSubnets(ctx context.Context, filter string, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/ddi/v1/ipam/subnet", listQuery(filter, limit), nil)
}

func (c *Client) GetSubnet(ctx context.Context, id string) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/ddi/v1/ipam/subnet/"+id, nil, nil)
}

func (c *Client) CreateSubnet(ctx context.Context, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/api/ddi/v1/ipam/subnet", nil, body)
}

func (c *Client) UpdateSubnet(ctx context.Context, id string, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPatch, "/api/ddi/v1/ipam/subnet/"+id, nil, body)
}

func (c *Client) DeleteSubnet(ctx context.Context, id string) (map[string]any, error) {
	return c.Do(ctx, http.MethodDelete, "/api/ddi/v1/ipam/subnet/"+id, nil, nil)
}

func (c *Client) ListAddressBlocks(ctx context.Context, filter string, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/ddi/v1/ipam/address_block", listQuery(filter, limit), nil)
}

func (c *Client) CreateAddressBlock(ctx context.Context, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/api/ddi/v1/ipam/address_block", nil, body)
}

func (c *Client) UpdateAddressBlock(ctx context.Context, id string, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPatch, "/api/ddi/v1/ipam/address_block/"+id, nil, body)
}

func (c *Client) DeleteAddressBlock(ctx context.Context, id string) (map[string]any, error) {
	return c.Do(ctx, http.MethodDelete, "/api/ddi/v1/ipam/address_block/"+id, nil, nil)
}

func (c *Client) ListIPAddresses(ctx context.Context, filter string, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/ddi/v1/ipam/address", listQuery(filter, limit), nil)
}

func (c *Client) ListRanges(ctx context.Context, filter string, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/ddi/v1/ipam/range", listQuery(filter, limit), nil)
}

func (c *Client) CreateRange(ctx context.Context, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/api/ddi/v1/ipam/range", nil, body)
}

func (c *Client) UpdateRange(ctx context.Context, id string, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPatch, "/api/ddi/v1/ipam/range/"+id, nil, body)
}

func (c *Client) DeleteRange(ctx context.Context, id string) (map[string]any, error) {
	return c.Do(ctx, http.MethodDelete, "/api/ddi/v1/ipam/range/"+id, nil, nil)
}

func (c *Client) CreateFixedAddress(ctx context.Context, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/api/ddi/v1/ipam/fixed_address", nil, body)
}

func (c *Client) GetFixedAddress(ctx context.Context, id string) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/ddi/v1/ipam/fixed_address/"+id, nil, nil)
}

func (c *Client) UpdateFixedAddress(ctx context.Context, id string, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPatch, "/api/ddi/v1/ipam/fixed_address/"+id, nil, body)
}

func (c *Client) DeleteFixedAddress(ctx context.Context, id string) (map[string]any, error) {
	return c.Do(ctx, http.MethodDelete, "/api/ddi/v1/ipam/fixed_address/"+id, nil, nil)
}

func (c *Client) ListIPAMHosts(ctx context.Context, filter string, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/ddi/v1/ipam/host", listQuery(filter, limit), nil)
}

func (c *Client) GetIPAMHost(ctx context.Context, id string) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/ddi/v1/ipam/host/"+id, nil, nil)
}

func (c *Client) CreateIPAMHost(ctx context.Context, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/api/ddi/v1/ipam/host", nil, body)
}

func (c *Client) UpdateIPAMHost(ctx context.Context, id string, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPatch, "/api/ddi/v1/ipam/host/"+id, nil, body)
}

func (c *Client) DeleteIPAMHost(ctx context.Context, id string) (map[string]any, error) {
	return c.Do(ctx, http.MethodDelete, "/api/ddi/v1/ipam/host/"+id, nil, nil)
}

// ---- DNS ----

func (c *Client) ListDNSRecords(ctx context.Context, filter string, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/ddi/v1/dns/record", listQuery(filter, limit), nil)
}

func (c *Client) CreateDNSRecord(ctx context.Context, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/api/ddi/v1/dns/record", nil, body)
}

// DeleteDNSRecord accepts the fully qualified record id as returned by the
// upstream (dns/record/<uuid>).
func (c *Client) DeleteDNSRecord(ctx context.Context, recordID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodDelete, "/api/ddi/v1/"+recordID, nil, nil)
}

func (c *Client) ListAuthZones(ctx context.Context, filter string, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/ddi/v1/dns/auth_zone", listQuery(filter, limit), nil)
}

func (c *Client) CreateAuthZone(ctx context.Context, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/api/ddi/v1/dns/auth_zone", nil, body)
}

func (c *Client) ListForwardZones(ctx context.Context, filter string, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/ddi/v1/dns/forward_zone", listQuery(filter, limit), nil)
}

func (c *Client) ListDNSViews(ctx context.Context, filter string, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/ddi/v1/dns/view", listQuery(filter, limit), nil)
}

// ---- DHCP ----

func (c *Client) ListDHCPHosts(ctx context.Context, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/ddi/v1/dhcp/host", listQuery("", limit), nil)
}

func (c *Client) GetDHCPHost(ctx context.Context, id string) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/ddi/v1/dhcp/host/"+id, nil, nil)
}

func (c *Client) UpdateDHCPHost(ctx context.Context, id string, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPatch, "/api/ddi/v1/dhcp/host/"+id, nil, body)
}

func (c *Client) ListHardware(ctx context.Context, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/ddi/v1/dhcp/hardware", listQuery("", limit), nil)
}

func (c *Client) CreateHardware(ctx context.Context, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/api/ddi/v1/dhcp/hardware", nil, body)
}

func (c *Client) UpdateHardware(ctx context.Context, id string, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPatch, "/api/ddi/v1/dhcp/hardware/"+id, nil, body)
}

func (c *Client) DeleteHardware(ctx context.Context, id string) (map[string]any, error) {
	return c.Do(ctx, http.MethodDelete, "/api/ddi/v1/dhcp/hardware/"+id, nil, nil)
}

func (c *Client) ListHAGroups(ctx context.Context, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/ddi/v1/dhcp/ha_group", listQuery("", limit), nil)
}

func (c *Client) GetHAGroup(ctx context.Context, id string) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/ddi/v1/dhcp/ha_group/"+id, nil, nil)
}

func (c *Client) ListOptionCodes(ctx context.Context, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/ddi/v1/dhcp/option_code", listQuery("", limit), nil)
}

func (c *Client) CreateOptionCode(ctx context.Context, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/api/ddi/v1/dhcp/option_code", nil, body)
}

func (c *Client) UpdateOptionCode(ctx context.Context, id string, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPatch, "/api/ddi/v1/dhcp/option_code/"+id, nil, body)
}

func (c *Client) DeleteOptionCode(ctx context.Context, id string) (map[string]any, error) {
	return c.Do(ctx, http.MethodDelete, "/api/ddi/v1/dhcp/option_code/"+id, nil, nil)
}

func (c *Client) ListHardwareFilters(ctx context.Context, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/ddi/v1/dhcp/hardware_filter", listQuery("", limit), nil)
}

func (c *Client) CreateHardwareFilter(ctx context.Context, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/api/ddi/v1/dhcp/hardware_filter", nil, body)
}

func (c *Client) UpdateHardwareFilter(ctx context.Context, id string, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPatch, "/api/ddi/v1/dhcp/hardware_filter/"+id, nil, body)
}

func (c *Client) DeleteHardwareFilter(ctx context.Context, id string) (map[string]any, error) {
	return c.Do(ctx, http.MethodDelete, "/api/ddi/v1/dhcp/hardware_filter/"+id, nil, nil)
}

func (c *Client) ListOptionFilters(ctx context.Context, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/ddi/v1/dhcp/option_filter", listQuery("", limit), nil)
}

func (c *Client) CreateOptionFilter(ctx context.Context, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/api/ddi/v1/dhcp/option_filter", nil, body)
}

func (c *Client) UpdateOptionFilter(ctx context.Context, id string, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPatch, "/api/ddi/v1/dhcp/option_filter/"+id, nil, body)
}

func (c *Client) DeleteOptionFilter(ctx context.Context, id string) (map[string]any, error) {
	return c.Do(ctx, http.MethodDelete, "/api/ddi/v1/dhcp/option_filter/"+id, nil, nil)
}

// ---- Federation ----

func (c *Client) ListFederatedRealms(ctx context.Context, filter string, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/ddi/v1/federation/federated_realm", listQuery(filter, limit), nil)
}

func (c *Client) CreateFederatedRealm(ctx context.Context, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/api/ddi/v1/federation/federated_realm", nil, body)
}

func (c *Client) ListFederatedBlocks(ctx context.Context, filter string, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/ddi/v1/federation/federated_block", listQuery(filter, limit), nil)
}

func (c *Client) CreateFederatedBlock(ctx context.Context, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/api/ddi/v1/federation/federated_block", nil, body)
}

// AllocateNextFederatedBlock asks the upstream for the next available
// sub-block inside the given federated block.
func (c *Client) AllocateNextFederatedBlock(ctx context.Context, blockID string, body map[string]any) (map[string]any, error) {
	path := "/api/ddi/v1/federation/federated_block/" + blockID + "/next_available_federated_block"
	return c.Do(ctx, http.MethodPost, path, nil, body)
}

func (c *Client) ListFederatedPools(ctx context.Context, filter string, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/ddi/v1/federation/federated_pool", listQuery(filter, limit), nil)
}

func (c *Client) CreateFederatedPool(ctx context.Context, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/api/ddi/v1/federation/federated_pool", nil, body)
}

func (c *Client) ListDelegations(ctx context.Context, filter string, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/ddi/v1/federation/delegation", listQuery(filter, limit), nil)
}

func (c *Client) CreateDelegation(ctx context.Context, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/api/ddi/v1/federation/delegation", nil, body)
}

func (c *Client) ListOverlappingBlocks(ctx context.Context, filter string, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/ddi/v1/federation/overlapping_block", listQuery(filter, limit), nil)
}

func (c *Client) CreateOverlappingBlock(ctx context.Context, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/api/ddi/v1/federation/overlapping_block", nil, body)
}

func (c *Client) ListReservedBlocks(ctx context.Context, filter string, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/ddi/v1/federation/reserved_block", listQuery(filter, limit), nil)
}

func (c *Client) CreateReservedBlock(ctx context.Context, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/api/ddi/v1/federation/reserved_block", nil, body)
}

func (c *Client) ListForwardDelegations(ctx context.Context, filter string, limit int) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/api/ddi/v1/federation/forward_looking_delegation", listQuery(filter, limit), nil)
}

func (c *Client) CreateForwardDelegation(ctx context.Context, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/api/ddi/v1/federation/forward_looking_delegation", nil, body)
}
