package registry

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"

	"ddigate/internal/domain"
)

func registerDHCPTools(r *Registry, deps Deps) error {
	ddi := deps.DDI
	pipe := deps.Pipeline

	tools := []domain.ToolDescriptor{
		{
			Name:        "list_dhcp_hosts",
			Description: "List DHCP hosts (on-prem DHCP servers).",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"limit": intDefault("Maximum number of results", 100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/dhcp/host", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return ddi.ListDHCPHosts(ctx, argInt(args, "limit"))
			}),
		},
		{
			Name:        "get_dhcp_host",
			Description: "Get a DHCP host by ID.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"host_id": stringProp("DHCP host ID"),
			}, "host_id"),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceDDI,
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				resp, err := pipe.Upstream(ctx, domain.ServiceDDI, "/api/ddi/v1/dhcp/host", func(ctx context.Context) (map[string]any, error) {
					return ddi.GetDHCPHost(ctx, argString(args, "host_id"))
				})
				return translateNotFound(resp, err, "dhcp host")
			},
		},
		{
			Name:        "update_dhcp_host",
			Description: "Update a DHCP host.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"host_id": stringProp("DHCP host ID"),
				"comment": stringProp("Description"),
			}, "host_id"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/dhcp/host", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{}
				setIf(body, args, "comment")
				return ddi.UpdateDHCPHost(ctx, argString(args, "host_id"), body)
			}),
		},
		{
			Name:        "list_hardware",
			Description: "List DHCP hardware entries (MAC registrations).",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"limit": intDefault("Maximum number of results", 100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/dhcp/hardware", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return ddi.ListHardware(ctx, argInt(args, "limit"))
			}),
		},
		{
			Name:        "create_hardware",
			Description: "Register a hardware MAC address.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"mac_address": stringProp("Hardware MAC address"),
				"name":        stringProp("Display name"),
				"comment":     stringProp("Description"),
			}, "mac_address"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/dhcp/hardware", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{"address": argString(args, "mac_address")}
				setIf(body, args, "name", "comment")
				return ddi.CreateHardware(ctx, body)
			}),
		},
		{
			Name:        "update_hardware",
			Description: "Update a hardware entry.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"hardware_id": stringProp("Hardware ID"),
				"comment":     stringProp("Description"),
			}, "hardware_id"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/dhcp/hardware", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{}
				setIf(body, args, "comment")
				return ddi.UpdateHardware(ctx, argString(args, "hardware_id"), body)
			}),
		},
		{
			Name:        "delete_hardware",
			Description: "Delete a hardware entry by ID.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"hardware_id": stringProp("Hardware ID"),
			}, "hardware_id"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/dhcp/hardware", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return ddi.DeleteHardware(ctx, argString(args, "hardware_id"))
			}),
		},
		{
			Name:        "list_ha_groups",
			Description: "List DHCP high-availability groups.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"limit": intDefault("Maximum number of results", 100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/dhcp/ha_group", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return ddi.ListHAGroups(ctx, argInt(args, "limit"))
			}),
		},
		{
			Name:        "get_ha_group",
			Description: "Get a DHCP HA group by ID.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"group_id": stringProp("HA group ID"),
			}, "group_id"),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceDDI,
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				resp, err := pipe.Upstream(ctx, domain.ServiceDDI, "/api/ddi/v1/dhcp/ha_group", func(ctx context.Context) (map[string]any, error) {
					return ddi.GetHAGroup(ctx, argString(args, "group_id"))
				})
				return translateNotFound(resp, err, "ha group")
			},
		},
		{
			Name:        "list_option_codes",
			Description: "List DHCP option codes.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"limit": intDefault("Maximum number of results", 100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/dhcp/option_code", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return ddi.ListOptionCodes(ctx, argInt(args, "limit"))
			}),
		},
		{
			Name:        "create_option_code",
			Description: "Define a DHCP option code.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"code": intProp("Numeric option code"),
				"name": stringProp("Option name"),
				"type": enumProp("Value type", "address4", "address6", "boolean", "empty", "fqdn", "int8", "int16", "int32", "text", "uint8", "uint16", "uint32"),
				"option_space": stringProp("Option space ID"),
				"comment":      stringProp("Description"),
			}, "code", "name", "type"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/dhcp/option_code", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{
					"code": argInt(args, "code"),
					"name": argString(args, "name"),
					"type": argString(args, "type"),
				}
				setIf(body, args, "option_space", "comment")
				return ddi.CreateOptionCode(ctx, body)
			}),
		},
		{
			Name:        "update_option_code",
			Description: "Update a DHCP option code.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"code_id": stringProp("Option code ID"),
				"comment": stringProp("Description"),
			}, "code_id"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/dhcp/option_code", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{}
				setIf(body, args, "comment")
				return ddi.UpdateOptionCode(ctx, argString(args, "code_id"), body)
			}),
		},
		{
			Name:        "delete_option_code",
			Description: "Delete a DHCP option code by ID.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"code_id": stringProp("Option code ID"),
			}, "code_id"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/dhcp/option_code", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return ddi.DeleteOptionCode(ctx, argString(args, "code_id"))
			}),
		},
		{
			Name:        "list_hardware_filters",
			Description: "List DHCP hardware filters.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"limit": intDefault("Maximum number of results", 100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/dhcp/hardware_filter", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return ddi.ListHardwareFilters(ctx, argInt(args, "limit"))
			}),
		},
		{
			Name:        "create_hardware_filter",
			Description: "Create a DHCP hardware filter.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"name":    stringProp("Filter name"),
				"comment": stringProp("Description"),
			}, "name"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/dhcp/hardware_filter", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{"name": argString(args, "name")}
				setIf(body, args, "comment")
				return ddi.CreateHardwareFilter(ctx, body)
			}),
		},
		{
			Name:        "update_hardware_filter",
			Description: "Update a DHCP hardware filter.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"filter_id": stringProp("Filter ID"),
				"comment":   stringProp("Description"),
			}, "filter_id"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/dhcp/hardware_filter", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{}
				setIf(body, args, "comment")
				return ddi.UpdateHardwareFilter(ctx, argString(args, "filter_id"), body)
			}),
		},
		{
			Name:        "delete_hardware_filter",
			Description: "Delete a DHCP hardware filter by ID.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"filter_id": stringProp("Filter ID"),
			}, "filter_id"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/dhcp/hardware_filter", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return ddi.DeleteHardwareFilter(ctx, argString(args, "filter_id"))
			}),
		},
		{
			Name:        "list_option_filters",
			Description: "List DHCP option filters.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"limit": intDefault("Maximum number of results", 100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/dhcp/option_filter", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return ddi.ListOptionFilters(ctx, argInt(args, "limit"))
			}),
		},
		{
			Name:        "create_option_filter",
			Description: "Create a DHCP option filter.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"name":    stringProp("Filter name"),
				"comment": stringProp("Description"),
			}, "name"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/dhcp/option_filter", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{"name": argString(args, "name")}
				setIf(body, args, "comment")
				return ddi.CreateOptionFilter(ctx, body)
			}),
		},
		{
			Name:        "update_option_filter",
			Description: "Update a DHCP option filter.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"filter_id": stringProp("Filter ID"),
				"comment":   stringProp("Description"),
			}, "filter_id"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/dhcp/option_filter", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{}
				setIf(body, args, "comment")
				return ddi.UpdateOptionFilter(ctx, argString(args, "filter_id"), body)
			}),
		},
		{
			Name:        "delete_option_filter",
			Description: "Delete a DHCP option filter by ID.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"filter_id": stringProp("Filter ID"),
			}, "filter_id"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/dhcp/option_filter", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return ddi.DeleteOptionFilter(ctx, argString(args, "filter_id"))
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
