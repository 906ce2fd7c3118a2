package registry

import (
	"context"
	"errors"
	"strings"

	"ddigate/internal/domain"
	"ddigate/internal/infra/pipeline"
)

// upstreamHandler wraps a single upstream interaction in the resilience
// pipeline's breaker/retry stage. Handlers composed of several upstream
// calls invoke pipe.Upstream once per call instead.
func upstreamHandler(pipe *pipeline.Pipeline, service, endpoint string, fn func(ctx context.Context, args map[string]any) (map[string]any, error)) domain.Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		return pipe.Upstream(ctx, service, endpoint, func(ctx context.Context) (map[string]any, error) {
			return fn(ctx, args)
		})
	}
}

// translateNotFound converts an upstream 404 into a semantic tool result
// instead of an error frame.
func translateNotFound(result map[string]any, err error, what string) (any, error) {
	if err == nil {
		return result, nil
	}
	var domainErr *domain.Error
	if errors.As(err, &domainErr) && domainErr.Kind == domain.KindNotFound {
		return map[string]any{"found": false, "error": what + " not found"}, nil
	}
	return nil, err
}

// combineFilters joins upstream filter expressions with "and".
func combineFilters(exprs ...string) string {
	parts := exprs[:0]
	for _, expr := range exprs {
		if expr != "" {
			parts = append(parts, expr)
		}
	}
	return strings.Join(parts, " and ")
}
