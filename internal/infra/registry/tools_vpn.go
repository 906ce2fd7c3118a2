package registry

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"ddigate/internal/domain"
	"ddigate/internal/infra/pipeline"
	"ddigate/internal/infra/upstream"
)

func registerVPNTools(r *Registry, deps Deps) error {
	niosxaas := deps.NIOSXaaS
	pipe := deps.Pipeline

	tools := []domain.ToolDescriptor{
		{
			Name:           "list_supported_sizes",
			Description:    "List supported NIOS-X endpoint sizes.",
			InputSchema:    objectSchema(nil),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceNIOSXaaS,
			Handler: upstreamHandler(pipe, domain.ServiceNIOSXaaS, "/api/universalinfra/v1/supportedsizes", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return niosxaas.ListSupportedSizes(ctx)
			}),
		},
		{
			Name:        "list_cloud_regions",
			Description: "List cloud provider regions where service endpoints can be deployed.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"provider": stringDefault("Cloud provider", "AWS"),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceNIOSXaaS,
			Handler: upstreamHandler(pipe, domain.ServiceNIOSXaaS, "/api/universalinfra/v1/cloudproviderregions", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return niosxaas.ListCloudProviderRegions(ctx, argString(args, "provider"))
			}),
		},
		{
			Name:           "list_service_capabilities",
			Description:    "List the capability types a universal service can carry.",
			InputSchema:    objectSchema(nil),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceNIOSXaaS,
			Handler: upstreamHandler(pipe, domain.ServiceNIOSXaaS, "/api/universalinfra/v1/capabilities", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return niosxaas.ListCapabilities(ctx)
			}),
		},
		{
			Name:        "list_vpn_services",
			Description: "List universal services (VPN deployments).",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"name_filter": stringProp("Filter by service name (substring match)"),
				"limit":       intDefault("Maximum number of results", 100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceNIOSXaaS,
			Handler: upstreamHandler(pipe, domain.ServiceNIOSXaaS, "/api/universalinfra/v1/universalservices", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				filter := ""
				if has(args, "name_filter") {
					filter = fmt.Sprintf("name~'%s'", argString(args, "name_filter"))
				}
				return niosxaas.ListUniversalServices(ctx, filter, argInt(args, "limit"))
			}),
		},
		{
			Name: "configure_vpn_infrastructure",
			Description: "Create or update complete VPN infrastructure by submitting the " +
				"consolidated configuration document (universal service, credentials, " +
				"endpoints, access locations). The upstream applies the document " +
				"atomically; partial deployments are rejected.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"vpn_payload": mappingProp("Consolidated configuration document"),
			}, "vpn_payload"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceNIOSXaaS,
			// The consolidated API provisions cloud infrastructure and can
			// take minutes to return.
			Timeout: 5 * domain.DefaultRequestTimeout,
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				payload := argMap(args, "vpn_payload")
				if err := validateVPNPayload(payload); err != nil {
					return nil, err
				}
				fingerprint, err := pipeline.CanonicalArgsHash(payload)
				if err != nil {
					return nil, domain.E(domain.KindInternal, "configure_vpn_infrastructure", "fingerprint payload", err)
				}
				ctx = upstream.WithIdempotencyKey(ctx, fingerprint)
				return pipe.Upstream(ctx, domain.ServiceNIOSXaaS, "/api/universalinfra/v1/consolidated/configure", func(ctx context.Context) (map[string]any, error) {
					return niosxaas.ConsolidatedConfigure(ctx, payload)
				})
			},
		},
		{
			Name:        "get_vpn_endpoint_cnames",
			Description: "Get a VPN endpoint's CNAME addresses, used to create the cloud-side customer gateway.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"endpoint_id": stringProp("Endpoint ID; the first endpoint is used when omitted"),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceNIOSXaaS,
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				if has(args, "endpoint_id") {
					resp, err := pipe.Upstream(ctx, domain.ServiceNIOSXaaS, "/api/universalinfra/v1/endpoints", func(ctx context.Context) (map[string]any, error) {
						return niosxaas.GetEndpoint(ctx, argString(args, "endpoint_id"))
					})
					return translateNotFound(resp, err, "endpoint")
				}
				listing, err := pipe.Upstream(ctx, domain.ServiceNIOSXaaS, "/api/universalinfra/v1/endpoints", func(ctx context.Context) (map[string]any, error) {
					return niosxaas.ListEndpoints(ctx, "", 1)
				})
				if err != nil {
					return nil, err
				}
				results, _ := listing["results"].([]any)
				if len(results) == 0 {
					return map[string]any{"found": false, "error": "no endpoints deployed"}, nil
				}
				return results[0], nil
			},
		},
		{
			Name: "delete_vpn_service",
			Description: "Tear down a universal service (VPN deployment) by name. " +
				"Destructive; requires confirm=true.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"service_name": stringProp("Universal service name"),
				"confirm":      boolDefault("Must be true to proceed with deletion", false),
			}, "service_name"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceNIOSXaaS,
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				name := argString(args, "service_name")
				if !argBool(args, "confirm") {
					return map[string]any{
						"deleted": false,
						"warning": fmt.Sprintf("deleting service %q tears down its VPN infrastructure; call again with confirm=true", name),
					}, nil
				}

				listing, err := pipe.Upstream(ctx, domain.ServiceNIOSXaaS, "/api/universalinfra/v1/universalservices", func(ctx context.Context) (map[string]any, error) {
					return niosxaas.ListUniversalServices(ctx, fmt.Sprintf("name=='%s'", name), 1)
				})
				if err != nil {
					return nil, err
				}
				results, _ := listing["results"].([]any)
				if len(results) == 0 {
					return map[string]any{"deleted": false, "error": fmt.Sprintf("service %q not found", name)}, nil
				}
				service, _ := results[0].(map[string]any)
				serviceID, _ := service["id"].(string)
				if serviceID == "" {
					return nil, domain.E(domain.KindInternal, "delete_vpn_service", "service listing missing id", nil)
				}

				resp, err := pipe.Upstream(ctx, domain.ServiceNIOSXaaS, "/api/universalinfra/v1/universalservices", func(ctx context.Context) (map[string]any, error) {
					return niosxaas.DeleteUniversalService(ctx, serviceID)
				})
				if err != nil {
					return nil, err
				}
				resp["deleted"] = true
				resp["service_id"] = serviceID
				return resp, nil
			},
		},
		{
			Name:        "update_vpn_access_location",
			Description: "Update an access location, typically to set cloud tunnel IPs after the provider side comes up.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"location_id":         stringProp("Access location ID"),
				"primary_tunnel_ip":   stringProp("Primary tunnel outside IP"),
				"secondary_tunnel_ip": stringProp("Secondary tunnel outside IP"),
			}, "location_id"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceNIOSXaaS,
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				locationID := argString(args, "location_id")
				current, err := pipe.Upstream(ctx, domain.ServiceNIOSXaaS, "/api/universalinfra/v1/accesslocations", func(ctx context.Context) (map[string]any, error) {
					return niosxaas.GetAccessLocation(ctx, locationID)
				})
				if err != nil {
					return translateNotFound(nil, err, "access location")
				}
				body := applyTunnelIPs(current, argString(args, "primary_tunnel_ip"), argString(args, "secondary_tunnel_ip"))
				return pipe.Upstream(ctx, domain.ServiceNIOSXaaS, "/api/universalinfra/v1/accesslocations", func(ctx context.Context) (map[string]any, error) {
					return niosxaas.UpdateAccessLocation(ctx, locationID, body)
				})
			},
		},
		{
			Name:        "list_vpn_access_locations",
			Description: "List VPN access locations.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"limit": intDefault("Maximum number of results", 100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceNIOSXaaS,
			Handler: upstreamHandler(pipe, domain.ServiceNIOSXaaS, "/api/universalinfra/v1/accesslocations", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return niosxaas.ListAccessLocations(ctx, "", argInt(args, "limit"))
			}),
		},
	}

	for _, tool := range tools {
		if err := r.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

// validateVPNPayload rejects partial consolidated documents before they
// reach the upstream. A valid document names the universal service and its
// operation and includes at least one endpoint or access-location change.
func validateVPNPayload(payload map[string]any) error {
	const op = "configure_vpn_infrastructure"
	if len(payload) == 0 {
		return domain.E(domain.KindSchemaViolation, op, "vpn_payload must not be empty", nil)
	}
	service, ok := payload["universal_service"].(map[string]any)
	if !ok {
		return domain.E(domain.KindSchemaViolation, op, "vpn_payload.universal_service is required", nil)
	}
	operation, _ := service["operation"].(string)
	if operation != "CREATE" && operation != "UPDATE" {
		return domain.E(domain.KindSchemaViolation, op, "universal_service.operation must be CREATE or UPDATE", nil)
	}
	if name, _ := service["name"].(string); name == "" {
		return domain.E(domain.KindSchemaViolation, op, "universal_service.name is required", nil)
	}
	if !hasSectionEntries(payload, "endpoints") && !hasSectionEntries(payload, "access_locations") {
		return domain.E(domain.KindSchemaViolation, op,
			"partial deployment rejected: at least one endpoint or access location change is required", nil)
	}
	return nil
}

func hasSectionEntries(payload map[string]any, section string) bool {
	raw, ok := payload[section].(map[string]any)
	if !ok {
		return false
	}
	for _, verb := range []string{"create", "update", "delete"} {
		if entries, ok := raw[verb].([]any); ok && len(entries) > 0 {
			return true
		}
	}
	return false
}

// applyTunnelIPs rewrites the access_ip of each physical tunnel in the
// fetched access-location document.
func applyTunnelIPs(location map[string]any, primaryIP, secondaryIP string) map[string]any {
	tunnels, _ := location["physical_tunnels"].([]any)
	for _, raw := range tunnels {
		tunnel, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		switch tunnel["path"] {
		case "primary":
			if primaryIP != "" {
				tunnel["access_ip"] = primaryIP
			}
		case "secondary":
			if secondaryIP != "" {
				tunnel["access_ip"] = secondaryIP
			}
		}
	}
	return location
}
