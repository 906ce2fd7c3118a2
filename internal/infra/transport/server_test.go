package transport

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"ddigate/internal/domain"
	"ddigate/internal/infra/pipeline"
	"ddigate/internal/infra/registry"
)

func objectSchema(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
	}
}

func newTestGateway(t *testing.T, handlerCalls *atomic.Int64) (*Server, *mcp.ClientSession) {
	t.Helper()

	pipe := pipeline.New(pipeline.Config{CacheEnabled: true}, nil, nil, nil)
	reg := registry.New(pipe, nil)

	require.NoError(t, reg.Register(domain.ToolDescriptor{
		Name:        "list_widgets",
		Description: "List widgets.",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"limit": {Type: "integer", Default: json.RawMessage("10")},
		}),
		CachePolicy:    domain.CacheDefaultTTL(),
		Classification: domain.ToolRead,
		Service:        "upstream",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			handlerCalls.Add(1)
			return map[string]any{"count": 2, "widgets": []string{"a", "b"}}, nil
		},
	}))
	require.NoError(t, reg.Register(domain.ToolDescriptor{
		Name:        "delete_widget",
		Description: "Delete a widget.",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"widget_id": {Type: "string"},
		}, "widget_id"),
		Classification: domain.ToolMutate,
		Service:        "upstream",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			handlerCalls.Add(1)
			return map[string]any{"success": true}, nil
		},
	}))

	server := NewServer(Options{Registry: reg, Version: "test"})

	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(httpServer.Close)

	client := mcp.NewClient(&mcp.Implementation{Name: "ddigate-test", Version: "0.0.1"}, nil)
	session, err := client.Connect(context.Background(), &mcp.StreamableClientTransport{
		Endpoint: httpServer.URL + "/mcp",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	return server, session
}

func textContent(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestServer_InitializeAssignsSession(t *testing.T) {
	var calls atomic.Int64
	_, session := newTestGateway(t, &calls)
	require.NotEmpty(t, session.ID())
}

func TestServer_ListToolsReturnsCatalog(t *testing.T) {
	var calls atomic.Int64
	_, session := newTestGateway(t, &calls)

	names := map[string]bool{}
	for tool, err := range session.Tools(context.Background(), nil) {
		require.NoError(t, err)
		names[tool.Name] = true
	}
	require.True(t, names["list_widgets"])
	require.True(t, names["delete_widget"])
	require.Len(t, names, 2)
}

func TestServer_CallToolReturnsResult(t *testing.T) {
	var calls atomic.Int64
	_, session := newTestGateway(t, &calls)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "list_widgets",
		Arguments: map[string]any{"limit": 10},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &payload))
	require.EqualValues(t, 2, payload["count"])
	require.Equal(t, int64(1), calls.Load())
}

func TestServer_CacheHitByteEqualOverTheWire(t *testing.T) {
	var calls atomic.Int64
	_, session := newTestGateway(t, &calls)

	first, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "list_widgets",
		Arguments: map[string]any{"limit": 10},
	})
	require.NoError(t, err)
	second, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "list_widgets",
		Arguments: map[string]any{"limit": 10},
	})
	require.NoError(t, err)

	require.Equal(t, int64(1), calls.Load(), "second call served from cache")
	require.Equal(t, textContent(t, first), textContent(t, second))
}

func TestServer_DefaultedArgsShareCacheEntry(t *testing.T) {
	var calls atomic.Int64
	_, session := newTestGateway(t, &calls)

	_, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: "list_widgets"})
	require.NoError(t, err)
	_, err = session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "list_widgets",
		Arguments: map[string]any{"limit": 10},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), calls.Load())
}

func TestServer_SchemaViolationErrorFrame(t *testing.T) {
	var calls atomic.Int64
	_, session := newTestGateway(t, &calls)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "delete_widget",
		Arguments: map[string]any{},
	})
	// The SDK may reject the call against the declared schema before the
	// registry sees it; either way the handler must not run.
	if err == nil {
		require.True(t, result.IsError)
		var frame struct {
			Kind          string `json:"kind"`
			Message       string `json:"message"`
			CorrelationID string `json:"correlation_id"`
		}
		require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &frame))
		require.Equal(t, "SCHEMA_VIOLATION", frame.Kind)
		require.NotEmpty(t, frame.CorrelationID)
	}
	require.Zero(t, calls.Load())
}

func TestServer_UnknownToolRejected(t *testing.T) {
	var calls atomic.Int64
	_, session := newTestGateway(t, &calls)

	_, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: "no_such_tool"})
	require.Error(t, err)
	require.Zero(t, calls.Load())
}

func TestErrorResult_CarriesRetryAfter(t *testing.T) {
	err := &domain.Error{
		Kind:       domain.KindRateLimited,
		Message:    "HTTP 429",
		RetryAfter: 2_500_000_000, // 2.5s
	}
	result := errorResult(err, "corr-1")
	require.True(t, result.IsError)

	var frame struct {
		Kind          string `json:"kind"`
		RetryAfterSec int64  `json:"retry_after"`
		CorrelationID string `json:"correlation_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &frame))
	require.Equal(t, "RATE_LIMITED", frame.Kind)
	require.Equal(t, int64(3), frame.RetryAfterSec)
	require.Equal(t, "corr-1", frame.CorrelationID)
}
