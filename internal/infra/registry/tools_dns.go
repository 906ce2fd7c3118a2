package registry

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"ddigate/internal/domain"
)

// recordSpec describes one typed create_*_record tool: which arguments it
// takes beyond the shared name/zone/ttl/comment/view set, and how its rdata
// document is assembled.
type recordSpec struct {
	tool     string
	rtype    string
	props    map[string]*jsonschema.Schema
	required []string
	rdata    func(args map[string]any) map[string]any
}

var recordSpecs = []recordSpec{
	{
		tool:  "create_a_record",
		rtype: "A",
		props: map[string]*jsonschema.Schema{
			"ip_address": stringProp("IPv4 address, e.g. 192.168.1.100"),
		},
		required: []string{"ip_address"},
		rdata: func(args map[string]any) map[string]any {
			return map[string]any{"address": argString(args, "ip_address")}
		},
	},
	{
		tool:  "create_aaaa_record",
		rtype: "AAAA",
		props: map[string]*jsonschema.Schema{
			"ip_address": stringProp("IPv6 address, e.g. 2001:db8::1"),
		},
		required: []string{"ip_address"},
		rdata: func(args map[string]any) map[string]any {
			return map[string]any{"address": argString(args, "ip_address")}
		},
	},
	{
		tool:  "create_cname_record",
		rtype: "CNAME",
		props: map[string]*jsonschema.Schema{
			"target": stringProp("Target domain name, e.g. www.example.com."),
		},
		required: []string{"target"},
		rdata: func(args map[string]any) map[string]any {
			return map[string]any{"cname": argString(args, "target")}
		},
	},
	{
		tool:  "create_mx_record",
		rtype: "MX",
		props: map[string]*jsonschema.Schema{
			"mail_server": stringProp("Mail server domain name"),
			"priority":    intProp("Preference value, lower wins"),
		},
		required: []string{"mail_server", "priority"},
		rdata: func(args map[string]any) map[string]any {
			return map[string]any{
				"exchange":   argString(args, "mail_server"),
				"preference": argInt(args, "priority"),
			}
		},
	},
	{
		tool:  "create_txt_record",
		rtype: "TXT",
		props: map[string]*jsonschema.Schema{
			"text": stringProp("Text payload"),
		},
		required: []string{"text"},
		rdata: func(args map[string]any) map[string]any {
			return map[string]any{"text": argString(args, "text")}
		},
	},
	{
		tool:  "create_ptr_record",
		rtype: "PTR",
		props: map[string]*jsonschema.Schema{
			"dname": stringProp("Target domain name the pointer resolves to"),
		},
		required: []string{"dname"},
		rdata: func(args map[string]any) map[string]any {
			return map[string]any{"dname": argString(args, "dname")}
		},
	},
	{
		tool:  "create_srv_record",
		rtype: "SRV",
		props: map[string]*jsonschema.Schema{
			"target":   stringProp("Target host providing the service"),
			"port":     intProp("Service port"),
			"priority": intProp("Priority, lower wins"),
			"weight":   intDefault("Relative weight among same-priority targets", 0),
		},
		required: []string{"target", "port", "priority"},
		rdata: func(args map[string]any) map[string]any {
			return map[string]any{
				"target":   argString(args, "target"),
				"port":     argInt(args, "port"),
				"priority": argInt(args, "priority"),
				"weight":   argInt(args, "weight"),
			}
		},
	},
	{
		tool:  "create_ns_record",
		rtype: "NS",
		props: map[string]*jsonschema.Schema{
			"dname": stringProp("Authoritative name server"),
		},
		required: []string{"dname"},
		rdata: func(args map[string]any) map[string]any {
			return map[string]any{"dname": argString(args, "dname")}
		},
	},
	{
		tool:  "create_caa_record",
		rtype: "CAA",
		props: map[string]*jsonschema.Schema{
			"flags": intDefault("CAA flags, 0 or 128", 0),
			"tag":   enumProp("CAA property tag", "issue", "issuewild", "iodef"),
			"value": stringProp("CA domain or reporting URL"),
		},
		required: []string{"tag", "value"},
		rdata: func(args map[string]any) map[string]any {
			return map[string]any{
				"flags": argInt(args, "flags"),
				"tag":   argString(args, "tag"),
				"value": argString(args, "value"),
			}
		},
	},
	{
		tool:  "create_naptr_record",
		rtype: "NAPTR",
		props: map[string]*jsonschema.Schema{
			"order":       intProp("Processing order, lower first"),
			"preference":  intProp("Preference among same-order records"),
			"flags":       stringProp("Flags, e.g. S, A, U, P"),
			"services":    stringProp("Service parameters, e.g. E2U+sip"),
			"regexp":      stringProp("Substitution expression"),
			"replacement": stringDefault("Replacement domain name", "."),
		},
		required: []string{"order", "preference", "services"},
		rdata: func(args map[string]any) map[string]any {
			return map[string]any{
				"order":       argInt(args, "order"),
				"preference":  argInt(args, "preference"),
				"flags":       argString(args, "flags"),
				"services":    argString(args, "services"),
				"regexp":      argString(args, "regexp"),
				"replacement": argString(args, "replacement"),
			}
		},
	},
}

func registerDNSTools(r *Registry, deps Deps) error {
	ddi := deps.DDI
	pipe := deps.Pipeline

	for _, spec := range recordSpecs {
		spec := spec
		props := map[string]*jsonschema.Schema{
			"name":    stringProp("Record name within the zone, e.g. www"),
			"zone":    stringProp("Zone ID, e.g. dns/auth_zone/abc123"),
			"ttl":     intProp("Time to live in seconds; inherits from the zone when omitted"),
			"comment": stringProp("Description"),
			"view":    stringProp("DNS view ID"),
		}
		for key, value := range spec.props {
			props[key] = value
		}
		required := append([]string{"name", "zone"}, spec.required...)

		desc := domain.ToolDescriptor{
			Name:           spec.tool,
			Description:    fmt.Sprintf("Create a DNS %s record in an authoritative zone.", spec.rtype),
			InputSchema:    objectSchema(props, required...),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/dns/record", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{
					"name_in_zone": argString(args, "name"),
					"zone":         argString(args, "zone"),
					"type":         spec.rtype,
					"rdata":        spec.rdata(args),
				}
				if argInt(args, "ttl") > 0 {
					body["ttl"] = argInt(args, "ttl")
				}
				setIf(body, args, "comment", "view")
				return ddi.CreateDNSRecord(ctx, body)
			}),
		}
		if err := r.Register(desc); err != nil {
			return err
		}
	}

	tools := []domain.ToolDescriptor{
		{
			Name:        "list_dns_records",
			Description: "List DNS records with optional zone, name and type filters.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"zone_filter": stringProp("Filter by zone ID"),
				"name_filter": stringProp("Filter by record name (substring match)"),
				"type_filter": stringProp("Filter by record type, e.g. A, CNAME, MX"),
				"limit":       intDefault("Maximum number of results", 100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/dns/record", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				var zone, name, rtype string
				if has(args, "zone_filter") {
					zone = fmt.Sprintf("zone=='%s'", argString(args, "zone_filter"))
				}
				if has(args, "name_filter") {
					name = fmt.Sprintf("name_in_zone~'%s'", argString(args, "name_filter"))
				}
				if has(args, "type_filter") {
					rtype = fmt.Sprintf("type=='%s'", argString(args, "type_filter"))
				}
				return ddi.ListDNSRecords(ctx, combineFilters(zone, name, rtype), argInt(args, "limit"))
			}),
		},
		{
			Name:        "delete_dns_record",
			Description: "Delete a DNS record by its fully qualified ID.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"record_id": stringProp("Record ID as returned by list_dns_records, e.g. dns/record/abc123"),
			}, "record_id"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/dns/record", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return ddi.DeleteDNSRecord(ctx, argString(args, "record_id"))
			}),
		},
		{
			Name:        "list_dns_zones",
			Description: "List authoritative DNS zones.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"name_filter": stringProp("Filter by zone FQDN (substring match)"),
				"limit":       intDefault("Maximum number of results", 100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/dns/auth_zone", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				filter := ""
				if has(args, "name_filter") {
					filter = fmt.Sprintf("fqdn~'%s'", argString(args, "name_filter"))
				}
				return ddi.ListAuthZones(ctx, filter, argInt(args, "limit"))
			}),
		},
		{
			Name:        "list_auth_zones",
			Description: "List authoritative DNS zones (alias surface used by monitoring agents).",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"limit": intDefault("Maximum number of results", 100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/dns/auth_zone", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return ddi.ListAuthZones(ctx, "", argInt(args, "limit"))
			}),
		},
		{
			Name:        "create_dns_zone",
			Description: "Create an authoritative DNS zone.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"fqdn":         stringProp("Fully qualified zone name, e.g. example.com."),
				"view":         stringProp("DNS view ID"),
				"primary_type": enumProp("Primary server type", "cloud", "external"),
				"comment":      stringProp("Description"),
			}, "fqdn"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/dns/auth_zone", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{"fqdn": argString(args, "fqdn")}
				if has(args, "primary_type") {
					body["primary_type"] = argString(args, "primary_type")
				} else {
					body["primary_type"] = "cloud"
				}
				setIf(body, args, "view", "comment")
				return ddi.CreateAuthZone(ctx, body)
			}),
		},
		{
			Name:        "list_dns_views",
			Description: "List DNS views.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"name_filter": stringProp("Filter by view name (substring match)"),
				"limit":       intDefault("Maximum number of results", 100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/dns/view", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				filter := ""
				if has(args, "name_filter") {
					filter = fmt.Sprintf("name~'%s'", argString(args, "name_filter"))
				}
				return ddi.ListDNSViews(ctx, filter, argInt(args, "limit"))
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
