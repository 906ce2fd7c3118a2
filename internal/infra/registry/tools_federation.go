package registry

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"ddigate/internal/domain"
)

func registerFederationTools(r *Registry, deps Deps) error {
	ddi := deps.DDI
	pipe := deps.Pipeline

	limitProp := func(limit int) *jsonschema.Schema {
		return intDefault("Maximum number of results", limit)
	}

	tools := []domain.ToolDescriptor{
		{
			Name:        "list_federated_realms",
			Description: "List federated realms.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"name_filter": stringProp("Filter by realm name (substring match)"),
				"limit":       limitProp(100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/federation/federated_realm", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				filter := ""
				if has(args, "name_filter") {
					filter = fmt.Sprintf("name~'%s'", argString(args, "name_filter"))
				}
				return ddi.ListFederatedRealms(ctx, filter, argInt(args, "limit"))
			}),
		},
		{
			Name:        "create_federated_realm",
			Description: "Create a federated realm.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"name":    stringProp("Realm name"),
				"comment": stringProp("Description"),
			}, "name"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/federation/federated_realm", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{"name": argString(args, "name")}
				setIf(body, args, "comment")
				return ddi.CreateFederatedRealm(ctx, body)
			}),
		},
		{
			Name:        "list_federated_blocks",
			Description: "List federated blocks, optionally scoped to a realm.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"realm_filter": stringProp("Federated realm ID to filter by"),
				"limit":        limitProp(100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/federation/federated_block", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				filter := ""
				if has(args, "realm_filter") {
					filter = fmt.Sprintf("federated_realm=='%s'", argString(args, "realm_filter"))
				}
				return ddi.ListFederatedBlocks(ctx, filter, argInt(args, "limit"))
			}),
		},
		{
			Name:        "create_federated_block",
			Description: "Create a federated block inside a realm.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"address":  stringProp("CIDR notation"),
				"realm_id": stringProp("Federated realm ID"),
				"comment":  stringProp("Description"),
			}, "address", "realm_id"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/federation/federated_block", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{
					"address":         argString(args, "address"),
					"federated_realm": argString(args, "realm_id"),
				}
				setIf(body, args, "comment")
				return ddi.CreateFederatedBlock(ctx, body)
			}),
		},
		{
			Name:        "allocate_next_federated_block",
			Description: "Allocate the next available sub-block inside a federated block.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"federated_block_id": stringProp("Parent federated block ID"),
				"cidr":               intProp("Prefix length of the allocation, e.g. 24"),
				"comment":            stringProp("Description"),
			}, "federated_block_id", "cidr"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/federation/federated_block", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{"cidr": argInt(args, "cidr")}
				setIf(body, args, "comment")
				return ddi.AllocateNextFederatedBlock(ctx, argString(args, "federated_block_id"), body)
			}),
		},
		{
			Name:        "list_federated_pools",
			Description: "List federated pools.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"name_filter": stringProp("Filter by pool name (substring match)"),
				"limit":       limitProp(100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/federation/federated_pool", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				filter := ""
				if has(args, "name_filter") {
					filter = fmt.Sprintf("name~'%s'", argString(args, "name_filter"))
				}
				return ddi.ListFederatedPools(ctx, filter, argInt(args, "limit"))
			}),
		},
		{
			Name:        "create_federated_pool",
			Description: "Create a federated pool.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"name":     stringProp("Pool name"),
				"realm_id": stringProp("Federated realm ID"),
				"comment":  stringProp("Description"),
			}, "name", "realm_id"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/federation/federated_pool", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{
					"name":            argString(args, "name"),
					"federated_realm": argString(args, "realm_id"),
				}
				setIf(body, args, "comment")
				return ddi.CreateFederatedPool(ctx, body)
			}),
		},
		{
			Name:        "list_delegations",
			Description: "List federation delegations.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"block_filter": stringProp("Federated block ID to filter by"),
				"limit":        limitProp(100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/federation/delegation", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				filter := ""
				if has(args, "block_filter") {
					filter = fmt.Sprintf("federated_block=='%s'", argString(args, "block_filter"))
				}
				return ddi.ListDelegations(ctx, filter, argInt(args, "limit"))
			}),
		},
		{
			Name:        "create_delegation",
			Description: "Delegate a block to a downstream administrator.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"address":  stringProp("CIDR notation of the delegated block"),
				"realm_id": stringProp("Federated realm ID"),
				"comment":  stringProp("Description"),
			}, "address", "realm_id"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/federation/delegation", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{
					"address":         argString(args, "address"),
					"federated_realm": argString(args, "realm_id"),
				}
				setIf(body, args, "comment")
				return ddi.CreateDelegation(ctx, body)
			}),
		},
		{
			Name:        "list_overlapping_blocks",
			Description: "List overlapping federated blocks.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"limit": limitProp(100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/federation/overlapping_block", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return ddi.ListOverlappingBlocks(ctx, "", argInt(args, "limit"))
			}),
		},
		{
			Name:        "create_overlapping_block",
			Description: "Register an overlapping block inside a realm.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"address":  stringProp("CIDR notation"),
				"realm_id": stringProp("Federated realm ID"),
				"comment":  stringProp("Description"),
			}, "address", "realm_id"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/federation/overlapping_block", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{
					"address":         argString(args, "address"),
					"federated_realm": argString(args, "realm_id"),
				}
				setIf(body, args, "comment")
				return ddi.CreateOverlappingBlock(ctx, body)
			}),
		},
		{
			Name:        "list_reserved_blocks",
			Description: "List reserved federated blocks.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"limit": limitProp(100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/federation/reserved_block", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return ddi.ListReservedBlocks(ctx, "", argInt(args, "limit"))
			}),
		},
		{
			Name:        "create_reserved_block",
			Description: "Reserve a federated block.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"address":  stringProp("CIDR notation"),
				"realm_id": stringProp("Federated realm ID"),
				"comment":  stringProp("Description"),
			}, "address", "realm_id"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/federation/reserved_block", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{
					"address":         argString(args, "address"),
					"federated_realm": argString(args, "realm_id"),
				}
				setIf(body, args, "comment")
				return ddi.CreateReservedBlock(ctx, body)
			}),
		},
		{
			Name:        "list_forward_delegations",
			Description: "List forward-looking delegations.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"limit": limitProp(100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/federation/forward_looking_delegation", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return ddi.ListForwardDelegations(ctx, "", argInt(args, "limit"))
			}),
		},
		{
			Name:        "create_forward_delegation",
			Description: "Create a forward-looking delegation.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"address":  stringProp("CIDR notation"),
				"realm_id": stringProp("Federated realm ID"),
				"comment":  stringProp("Description"),
			}, "address", "realm_id"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceDDI,
			Handler: upstreamHandler(pipe, domain.ServiceDDI, "/api/ddi/v1/federation/forward_looking_delegation", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{
					"address":         argString(args, "address"),
					"federated_realm": argString(args, "realm_id"),
				}
				setIf(body, args, "comment")
				return ddi.CreateForwardDelegation(ctx, body)
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
