package registry

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"ddigate/internal/domain"
)

func registerSecurityTools(r *Registry, deps Deps) error {
	atcfw := deps.Atcfw
	pipe := deps.Pipeline

	tools := []domain.ToolDescriptor{
		{
			Name:        "list_security_policies",
			Description: "List DNS security policies.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"name_filter": stringProp("Filter by policy name (substring match)"),
				"limit":       intDefault("Maximum number of results", 100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceAtcfw,
			Handler: upstreamHandler(pipe, domain.ServiceAtcfw, "/api/atcfw/v1/security_policies", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				filter := ""
				if has(args, "name_filter") {
					filter = fmt.Sprintf("name~'%s'", argString(args, "name_filter"))
				}
				return atcfw.ListSecurityPolicies(ctx, filter, argInt(args, "limit"))
			}),
		},
		{
			Name:        "get_security_policy",
			Description: "Get a DNS security policy by ID.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"policy_id": stringProp("Security policy ID"),
			}, "policy_id"),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceAtcfw,
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				resp, err := pipe.Upstream(ctx, domain.ServiceAtcfw, "/api/atcfw/v1/security_policies", func(ctx context.Context) (map[string]any, error) {
					return atcfw.GetSecurityPolicy(ctx, argString(args, "policy_id"))
				})
				return translateNotFound(resp, err, "security policy")
			},
		},
		{
			Name:        "list_threat_named_lists",
			Description: "List custom threat-intelligence named lists.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"name_filter": stringProp("Filter by list name (substring match)"),
				"limit":       intDefault("Maximum number of results", 100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceAtcfw,
			Handler: upstreamHandler(pipe, domain.ServiceAtcfw, "/api/atcfw/v1/named_lists", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				filter := ""
				if has(args, "name_filter") {
					filter = fmt.Sprintf("name~'%s'", argString(args, "name_filter"))
				}
				return atcfw.ListNamedLists(ctx, filter, argInt(args, "limit"))
			}),
		},
		{
			Name:        "create_threat_named_list",
			Description: "Create a custom threat-intelligence named list of domains or IPs.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"name":        stringProp("List name"),
				"type":        stringDefault("List type", "custom_list"),
				"items":       stringListProp("Domains or IP addresses on the list"),
				"description": stringProp("List description"),
				"tags":        mappingProp("Key/value tags"),
			}, "name"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceAtcfw,
			Handler: upstreamHandler(pipe, domain.ServiceAtcfw, "/api/atcfw/v1/named_lists", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{
					"name": argString(args, "name"),
					"type": argString(args, "type"),
				}
				if items := argStrings(args, "items"); len(items) > 0 {
					body["items"] = items
				}
				if has(args, "description") {
					body["description"] = argString(args, "description")
				}
				setIf(body, args, "tags")
				return atcfw.CreateNamedList(ctx, body)
			}),
		},
		{
			Name:           "list_content_categories",
			Description:    "List the content filtering category catalog.",
			InputSchema:    objectSchema(nil),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceAtcfw,
			Handler: upstreamHandler(pipe, domain.ServiceAtcfw, "/api/atcfw/v1/content_categories", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return atcfw.ListContentCategories(ctx)
			}),
		},
		{
			Name:        "list_internal_domains",
			Description: "List internal domain lists (bypass lists).",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"name_filter": stringProp("Filter by list name (substring match)"),
				"limit":       intDefault("Maximum number of results", 100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceAtcfw,
			Handler: upstreamHandler(pipe, domain.ServiceAtcfw, "/api/atcfw/v1/internal_domain_lists", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				filter := ""
				if has(args, "name_filter") {
					filter = fmt.Sprintf("name~'%s'", argString(args, "name_filter"))
				}
				return atcfw.ListInternalDomainLists(ctx, filter, argInt(args, "limit"))
			}),
		},
		{
			Name:        "create_internal_domain_list",
			Description: "Create an internal domain list that bypasses DNS security filtering.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"name":             stringProp("List name"),
				"internal_domains": stringListProp("Domains to bypass filtering"),
				"description":      stringProp("List description"),
			}, "name", "internal_domains"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceAtcfw,
			Handler: upstreamHandler(pipe, domain.ServiceAtcfw, "/api/atcfw/v1/internal_domain_lists", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{
					"name":             argString(args, "name"),
					"internal_domains": argStrings(args, "internal_domains"),
				}
				if has(args, "description") {
					body["description"] = argString(args, "description")
				}
				return atcfw.CreateInternalDomainList(ctx, body)
			}),
		},
		{
			Name:        "list_category_filters",
			Description: "List content category filters.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"limit": intDefault("Maximum number of results", 100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceAtcfw,
			Handler: upstreamHandler(pipe, domain.ServiceAtcfw, "/api/atcfw/v1/category_filters", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return atcfw.ListCategoryFilters(ctx, "", argInt(args, "limit"))
			}),
		},
		{
			Name:        "list_application_filters",
			Description: "List application filters.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"limit": intDefault("Maximum number of results", 100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceAtcfw,
			Handler: upstreamHandler(pipe, domain.ServiceAtcfw, "/api/atcfw/v1/application_filters", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return atcfw.ListApplicationFilters(ctx, "", argInt(args, "limit"))
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
