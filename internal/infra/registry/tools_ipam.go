package registry

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"ddigate/internal/domain"
)

func registerIPAMTools(r *Registry, deps Deps) error {
	ddi := deps.DDI
	pipe := deps.Pipeline

	tools := []domain.ToolDescriptor{
		{
			Name:        "list_ip_spaces",
			Description: "List IP spaces. Supports a name filter (substring match) and a result limit.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"name_filter": stringProp("Filter by IP space name (substring match)"),
				"limit":       intDefault("Maximum number of results", 100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/ipam/ip_space", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				filter := ""
				if has(args, "name_filter") {
					filter = fmt.Sprintf("name~'%s'", argString(args, "name_filter"))
				}
				return ddi.ListIPSpaces(ctx, filter, argInt(args, "limit"))
			}),
		},
		{
			Name:        "list_subnets",
			Description: "List IP subnets, optionally scoped to one IP space.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"space": stringProp("IP space ID to filter by"),
				"limit": intDefault("Maximum number of results", 50),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/ipam/subnet", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				filter := ""
				if has(args, "space") {
					filter = fmt.Sprintf("space=='%s'", argString(args, "space"))
				}
				return ddi.ListSubnets(ctx, filter, argInt(args, "limit"))
			}),
		},
		{
			Name:        "get_subnet_info",
			Description: "Look up one subnet by CIDR and return its details and utilization.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"cidr": stringProp("Subnet in CIDR notation, e.g. 192.168.1.0/24"),
			}, "cidr"),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/ipam/subnet", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				address, prefix, ok := splitCIDR(argString(args, "cidr"))
				if !ok {
					return nil, domain.E(domain.KindSchemaViolation, "get_subnet_info", "cidr must be address/prefix", nil)
				}
				filter := fmt.Sprintf("address=='%s' and cidr==%s", address, prefix)
				return ddi.ListSubnets(ctx, filter, 1)
			}),
		},
		{
			Name:        "create_subnet",
			Description: "Create a subnet inside an IP space.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"address": stringProp("CIDR notation, e.g. 192.168.1.0/24"),
				"space":   stringProp("IP space ID"),
				"name":    stringProp("Subnet name"),
				"comment": stringProp("Description"),
				"tags":    mappingProp("Key/value tags"),
			}, "address", "space"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/ipam/subnet", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{
					"address": argString(args, "address"),
					"space":   argString(args, "space"),
				}
				setIf(body, args, "name", "comment", "tags")
				return ddi.CreateSubnet(ctx, body)
			}),
		},
		{
			Name:        "update_subnet",
			Description: "Update a subnet's metadata.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"subnet_id": stringProp("Subnet ID"),
				"name":      stringProp("Subnet name"),
				"comment":   stringProp("Description"),
			}, "subnet_id"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/ipam/subnet", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{}
				setIf(body, args, "name", "comment")
				return ddi.UpdateSubnet(ctx, argString(args, "subnet_id"), body)
			}),
		},
		{
			Name:        "delete_subnet",
			Description: "Delete a subnet by ID.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"subnet_id": stringProp("Subnet ID"),
			}, "subnet_id"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/ipam/subnet", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return ddi.DeleteSubnet(ctx, argString(args, "subnet_id"))
			}),
		},
		{
			Name:        "list_subnet_utilization",
			Description: "Report address utilization for subnets, optionally scoped to one IP space.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"space": stringProp("IP space ID to filter by"),
				"limit": intDefault("Maximum number of subnets to inspect", 50),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceDDI,
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				filter := ""
				if has(args, "space") {
					filter = fmt.Sprintf("space=='%s'", argString(args, "space"))
				}
				resp, err := pipe.Upstream(ctx, domain.ServiceDDI, "/api/ddi/v1/ipam/subnet", func(ctx context.Context) (map[string]any, error) {
					return ddi.ListSubnets(ctx, filter, argInt(args, "limit"))
				})
				if err != nil {
					return nil, err
				}
				return subnetUtilizationReport(resp), nil
			},
		},
		{
			Name:        "list_ip_addresses",
			Description: "List IP addresses, optionally scoped to a subnet.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"subnet": stringProp("Subnet CIDR or ID to scope the listing"),
				"limit":  intDefault("Maximum number of results", 100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/ipam/address", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				filter := ""
				if has(args, "subnet") {
					filter = fmt.Sprintf("parent=='%s'", argString(args, "subnet"))
				}
				return ddi.ListIPAddresses(ctx, filter, argInt(args, "limit"))
			}),
		},
		{
			Name:        "reserve_fixed_address",
			Description: "Reserve a fixed address for a MAC in an IP space.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"address":     stringProp("IP address to reserve"),
				"space":       stringProp("IP space ID"),
				"mac_address": stringProp("Hardware MAC address"),
				"name":        stringProp("Reservation name"),
				"comment":     stringProp("Description"),
			}, "address", "space", "mac_address"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/ipam/fixed_address", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{
					"address":     argString(args, "address"),
					"ip_space":    argString(args, "space"),
					"match_type":  "mac",
					"match_value": argString(args, "mac_address"),
				}
				setIf(body, args, "name", "comment")
				return ddi.CreateFixedAddress(ctx, body)
			}),
		},
		{
			Name:        "get_fixed_address",
			Description: "Get a fixed address reservation by ID.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"address_id": stringProp("Fixed address ID"),
			}, "address_id"),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceDDI,
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				resp, err := pipe.Upstream(ctx, domain.ServiceDDI, "/api/ddi/v1/ipam/fixed_address", func(ctx context.Context) (map[string]any, error) {
					return ddi.GetFixedAddress(ctx, argString(args, "address_id"))
				})
				return translateNotFound(resp, err, "fixed address")
			},
		},
		{
			Name:        "update_fixed_address",
			Description: "Update a fixed address reservation.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"address_id": stringProp("Fixed address ID"),
				"comment":    stringProp("Description"),
			}, "address_id"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/ipam/fixed_address", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{}
				setIf(body, args, "comment")
				return ddi.UpdateFixedAddress(ctx, argString(args, "address_id"), body)
			}),
		},
		{
			Name:        "delete_fixed_address",
			Description: "Delete a fixed address reservation by ID.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"address_id": stringProp("Fixed address ID"),
			}, "address_id"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/ipam/fixed_address", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return ddi.DeleteFixedAddress(ctx, argString(args, "address_id"))
			}),
		},
		{
			Name:        "list_ipam_hosts",
			Description: "List IPAM hosts.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"name_filter": stringProp("Filter by host name (substring match)"),
				"limit":       intDefault("Maximum number of results", 100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/ipam/host", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				filter := ""
				if has(args, "name_filter") {
					filter = fmt.Sprintf("name~'%s'", argString(args, "name_filter"))
				}
				return ddi.ListIPAMHosts(ctx, filter, argInt(args, "limit"))
			}),
		},
		{
			Name:        "get_ipam_host",
			Description: "Get an IPAM host by ID.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"host_id": stringProp("IPAM host ID"),
			}, "host_id"),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceDDI,
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				resp, err := pipe.Upstream(ctx, domain.ServiceDDI, "/api/ddi/v1/ipam/host", func(ctx context.Context) (map[string]any, error) {
					return ddi.GetIPAMHost(ctx, argString(args, "host_id"))
				})
				return translateNotFound(resp, err, "ipam host")
			},
		},
		{
			Name:        "create_ipam_host",
			Description: "Create an IPAM host.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"name":    stringProp("Host name"),
				"comment": stringProp("Description"),
				"tags":    mappingProp("Key/value tags"),
			}, "name"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/ipam/host", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{"name": argString(args, "name")}
				setIf(body, args, "comment", "tags")
				return ddi.CreateIPAMHost(ctx, body)
			}),
		},
		{
			Name:        "update_ipam_host",
			Description: "Update an IPAM host.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"host_id": stringProp("IPAM host ID"),
				"name":    stringProp("Host name"),
				"comment": stringProp("Description"),
			}, "host_id"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/ipam/host", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{}
				setIf(body, args, "name", "comment")
				return ddi.UpdateIPAMHost(ctx, argString(args, "host_id"), body)
			}),
		},
		{
			Name:        "delete_ipam_host",
			Description: "Delete an IPAM host by ID.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"host_id": stringProp("IPAM host ID"),
			}, "host_id"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/ipam/host", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return ddi.DeleteIPAMHost(ctx, argString(args, "host_id"))
			}),
		},
		{
			Name:        "list_ip_ranges",
			Description: "List DHCP ranges.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"space_filter": stringProp("IP space ID to filter by"),
				"limit":        intDefault("Maximum number of results", 100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/ipam/range", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				filter := ""
				if has(args, "space_filter") {
					filter = fmt.Sprintf("space=='%s'", argString(args, "space_filter"))
				}
				return ddi.ListRanges(ctx, filter, argInt(args, "limit"))
			}),
		},
		{
			Name:        "create_ip_range",
			Description: "Create a DHCP range between two addresses.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"start":    stringProp("First address in the range"),
				"end":      stringProp("Last address in the range"),
				"space_id": stringProp("IP space ID"),
				"comment":  stringProp("Description"),
			}, "start", "end", "space_id"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/ipam/range", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{
					"start": argString(args, "start"),
					"end":   argString(args, "end"),
					"space": argString(args, "space_id"),
				}
				setIf(body, args, "comment")
				return ddi.CreateRange(ctx, body)
			}),
		},
		{
			Name:        "update_ip_range",
			Description: "Update a DHCP range.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"range_id": stringProp("Range ID"),
				"comment":  stringProp("Description"),
			}, "range_id"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/ipam/range", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{}
				setIf(body, args, "comment")
				return ddi.UpdateRange(ctx, argString(args, "range_id"), body)
			}),
		},
		{
			Name:        "delete_ip_range",
			Description: "Delete a DHCP range by ID.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"range_id": stringProp("Range ID"),
			}, "range_id"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/ipam/range", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return ddi.DeleteRange(ctx, argString(args, "range_id"))
			}),
		},
		{
			Name:        "list_address_blocks",
			Description: "List address blocks.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"space_filter": stringProp("IP space ID to filter by"),
				"limit":        intDefault("Maximum number of results", 100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/ipam/address_block", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				filter := ""
				if has(args, "space_filter") {
					filter = fmt.Sprintf("space=='%s'", argString(args, "space_filter"))
				}
				return ddi.ListAddressBlocks(ctx, filter, argInt(args, "limit"))
			}),
		},
		{
			Name:        "create_address_block",
			Description: "Create an address block in an IP space.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"address":  stringProp("CIDR notation"),
				"space_id": stringProp("IP space ID"),
				"comment":  stringProp("Description"),
			}, "address", "space_id"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/ipam/address_block", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{
					"address": argString(args, "address"),
					"space":   argString(args, "space_id"),
				}
				setIf(body, args, "comment")
				return ddi.CreateAddressBlock(ctx, body)
			}),
		},
		{
			Name:        "update_address_block",
			Description: "Update an address block.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"block_id": stringProp("Address block ID"),
				"comment":  stringProp("Description"),
			}, "block_id"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/ipam/address_block", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{}
				setIf(body, args, "comment")
				return ddi.UpdateAddressBlock(ctx, argString(args, "block_id"), body)
			}),
		},
		{
			Name:        "delete_address_block",
			Description: "Delete an address block by ID.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"block_id": stringProp("Address block ID"),
			}, "block_id"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/ipam/address_block", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return ddi.DeleteAddressBlock(ctx, argString(args, "block_id"))
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

// splitCIDR separates "10.0.0.0/16" into address and prefix length.
func splitCIDR(cidr string) (address, prefix string, ok bool) {
	for i := len(cidr) - 1; i >= 0; i-- {
		if cidr[i] == '/' {
			address, prefix = cidr[:i], cidr[i+1:]
			return address, prefix, address != "" && prefix != ""
		}
	}
	return "", "", false
}

// subnetUtilizationReport condenses a subnet listing into per-subnet
// utilization rows plus a total.
func subnetUtilizationReport(resp map[string]any) map[string]any {
	results, _ := resp["results"].([]any)
	rows := make([]map[string]any, 0, len(results))
	for _, raw := range results {
		subnet, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		row := map[string]any{
			"id":      subnet["id"],
			"address": subnet["address"],
			"name":    subnet["name"],
		}
		if utilization, ok := subnet["utilization"].(map[string]any); ok {
			row["total_ips"] = utilization["total"]
			row["used_ips"] = utilization["used"]
			row["available_ips"] = utilization["available"]
			row["utilization_percent"] = utilization["utilization"]
		}
		rows = append(rows, row)
	}
	return map[string]any{"count": len(rows), "subnets": rows}
}
