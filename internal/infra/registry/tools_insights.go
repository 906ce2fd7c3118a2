package registry

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"

	"ddigate/internal/domain"
)

func registerInsightTools(r *Registry, deps Deps) error {
	insights := deps.Insights
	pipe := deps.Pipeline

	tools := []domain.ToolDescriptor{
		{
			Name:        "list_security_insights",
			Description: "List SOC security insights with optional status and priority filters.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"status":   enumProp("Insight status", "Active", "Closed"),
				"priority": enumProp("Insight priority", "LOW", "MEDIUM", "HIGH", "CRITICAL"),
				"limit":    intDefault("Maximum number of results", 100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceInsights,
			Handler: upstreamHandler(pipe, domain.ServiceInsights, "/api/insights/v1/insights", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return insights.ListInsights(ctx, argString(args, "status"), argString(args, "priority"), argInt(args, "limit"))
			}),
		},
		{
			Name:        "get_security_insight_details",
			Description: "Get one SOC security insight by ID.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"insight_id": stringProp("Insight ID"),
			}, "insight_id"),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceInsights,
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				resp, err := pipe.Upstream(ctx, domain.ServiceInsights, "/api/insights/v1/insights", func(ctx context.Context) (map[string]any, error) {
					return insights.GetInsight(ctx, argString(args, "insight_id"))
				})
				return translateNotFound(resp, err, "insight")
			},
		},
		{
			Name:        "update_security_insight_status",
			Description: "Move a SOC insight through its triage workflow.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"insight_id": stringProp("Insight ID"),
				"status":     enumProp("New status", "Active", "Closed"),
				"comment":    stringProp("Triage comment"),
			}, "insight_id", "status"),
			Classification: domain.ToolMutate,
			Service:        domain.ServiceInsights,
			Handler: upstreamHandler(pipe, domain.ServiceInsights, "/api/insights/v1/insights/status", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				body := map[string]any{
					"insight_ids": []string{argString(args, "insight_id")},
					"status":      argString(args, "status"),
				}
				setIf(body, args, "comment")
				return insights.UpdateInsightStatus(ctx, body)
			}),
		},
		{
			Name:        "get_insight_threat_indicators",
			Description: "List threat indicators associated with one insight.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"insight_id": stringProp("Insight ID"),
				"limit":      intDefault("Maximum number of results", 100),
			}, "insight_id"),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceInsights,
			Handler: upstreamHandler(pipe, domain.ServiceInsights, "/api/insights/v1/insights/indicators", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return insights.GetInsightIndicators(ctx, argString(args, "insight_id"), argInt(args, "limit"))
			}),
		},
		{
			Name:        "get_insight_security_events",
			Description: "List raw security events behind one insight.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"insight_id": stringProp("Insight ID"),
				"limit":      intDefault("Maximum number of results", 100),
			}, "insight_id"),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceInsights,
			Handler: upstreamHandler(pipe, domain.ServiceInsights, "/api/insights/v1/insights/events", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return insights.GetInsightEvents(ctx, argString(args, "insight_id"), argInt(args, "limit"))
			}),
		},
		{
			Name:        "get_insight_affected_assets",
			Description: "List assets affected by one insight.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"insight_id": stringProp("Insight ID"),
				"limit":      intDefault("Maximum number of results", 100),
			}, "insight_id"),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceInsights,
			Handler: upstreamHandler(pipe, domain.ServiceInsights, "/api/insights/v1/insights/assets", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return insights.GetInsightAssets(ctx, argString(args, "insight_id"), argInt(args, "limit"))
			}),
		},
		{
			Name:        "get_insight_comments_history",
			Description: "List the triage comment history of one insight.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"insight_id": stringProp("Insight ID"),
				"limit":      intDefault("Maximum number of results", 100),
			}, "insight_id"),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceInsights,
			Handler: upstreamHandler(pipe, domain.ServiceInsights, "/api/insights/v1/insights/comments", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return insights.GetInsightComments(ctx, argString(args, "insight_id"), argInt(args, "limit"))
			}),
		},
		{
			Name:        "list_policy_analytics_insights",
			Description: "List configuration analytics insights.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"limit": intDefault("Maximum number of results", 100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceInsights,
			Handler: upstreamHandler(pipe, domain.ServiceInsights, "/api/insights/v1/config-insights/analytics", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return insights.ListAnalyticsInsights(ctx, argInt(args, "limit"))
			}),
		},
		{
			Name:        "get_policy_analytics_insight_details",
			Description: "Get one configuration analytics insight by ID.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"analytic_insight_id": stringProp("Analytics insight ID"),
			}, "analytic_insight_id"),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceInsights,
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				resp, err := pipe.Upstream(ctx, domain.ServiceInsights, "/api/insights/v1/config-insights/analytics", func(ctx context.Context) (map[string]any, error) {
					return insights.GetAnalyticsInsight(ctx, argString(args, "analytic_insight_id"))
				})
				return translateNotFound(resp, err, "analytics insight")
			},
		},
		{
			Name:        "list_policy_compliance_insights",
			Description: "List policy compliance check insights.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"limit": intDefault("Maximum number of results", 100),
			}),
			CachePolicy:    domain.CacheDefaultTTL(),
			Classification: domain.ToolRead,
			Service:        domain.ServiceInsights,
			Handler: upstreamHandler(pipe, domain.ServiceInsights, "/api/insights/v1/config-insights/policy-check", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return insights.ListPolicyCheckInsights(ctx, argInt(args, "limit"))
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
