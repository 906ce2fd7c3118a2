package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"ddigate/internal/domain"
	"ddigate/internal/infra/registry"
	"ddigate/internal/infra/telemetry"
)

const (
	mcpPath = "/mcp"
	// Deprecated event-stream framing kept for clients that cannot speak
	// the streamable transport yet.
	ssePath = "/sse"

	sessionGaugeInterval = 5 * time.Second
)

// Server exposes the tool registry over the MCP streamable HTTP transport,
// with a legacy SSE framing on a second path.
type Server struct {
	registry  *registry.Registry
	metrics   domain.Metrics
	tracer    trace.Tracer
	logger    *zap.Logger
	mcpServer *mcp.Server
}

type Options struct {
	Registry *registry.Registry
	Metrics  domain.Metrics
	Tracer   trace.Tracer
	Logger   *zap.Logger
	Version  string
}

func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = domain.NewNoopMetrics()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("ddigate")
	}
	version := opts.Version
	if version == "" {
		version = "0.1.0"
	}

	s := &Server{
		registry: opts.Registry,
		metrics:  metrics,
		tracer:   tracer,
		logger:   logger.Named("transport"),
	}

	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    "ddigate",
		Version: version,
	}, &mcp.ServerOptions{
		HasTools:           true,
		InitializedHandler: s.handleInitialized,
	})

	for _, desc := range opts.Registry.List() {
		tool := mcp.Tool{
			Name:        desc.Name,
			Description: desc.Description,
			InputSchema: desc.InputSchema,
		}
		s.mcpServer.AddTool(&tool, s.toolHandler(desc.Name))
	}

	return s
}

// Handler mounts the streamable transport at /mcp and the legacy SSE
// framing at /sse. Both serve the same protocol state machine.
func (s *Server) Handler() http.Handler {
	getServer := func(*http.Request) *mcp.Server { return s.mcpServer }

	mux := http.NewServeMux()
	mux.Handle(mcpPath, mcp.NewStreamableHTTPHandler(getServer, nil))
	mux.Handle(ssePath, mcp.NewSSEHandler(getServer, nil))
	return mux
}

// Run serves the RPC listener until ctx is cancelled, then drains with the
// given grace period.
func (s *Server) Run(ctx context.Context, addr string, grace time.Duration) error {
	server := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	go s.watchSessions(ctx)

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("rpc server listening", zap.String("addr", addr), zap.Int("tools", s.registry.Len()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("rpc server failed to start: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("rpc server shutdown error", zap.Error(err))
			_ = server.Close()
			return err
		}
		s.logger.Info("rpc server stopped")
		return nil
	}
}

func (s *Server) handleInitialized(ctx context.Context, req *mcp.InitializedRequest) {
	sessionID := ""
	if req != nil && req.Session != nil {
		sessionID = req.Session.ID()
	}
	s.logger.Info("client_initialized", zap.String("session", sessionID))
	s.metrics.SetActiveSessions(s.sessionCount())
}

// watchSessions keeps the active-session gauge current; the SDK owns
// session lifecycle, so the count is sampled rather than event-driven.
func (s *Server) watchSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionGaugeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.metrics.SetActiveSessions(s.sessionCount())
		}
	}
}

func (s *Server) sessionCount() int {
	count := 0
	for range s.mcpServer.Sessions() {
		count++
	}
	return count
}

func (s *Server) toolHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		correlationID := telemetry.NewCorrelationID()
		ctx = telemetry.WithCorrelationID(ctx, correlationID)

		sessionID := ""
		if req.Session != nil {
			sessionID = req.Session.ID()
		}

		ctx, span := s.tracer.Start(ctx, "call_tool", trace.WithAttributes(
			attribute.String("tool", name),
			attribute.String("session", sessionID),
			attribute.String("correlation_id", correlationID),
		))
		defer span.End()

		s.logger.Info("tool_invoked",
			zap.String("tool", name),
			zap.String("session", sessionID),
			zap.String("correlation_id", correlationID),
		)

		start := time.Now()
		result, err := s.registry.Invoke(ctx, name, json.RawMessage(req.Params.Arguments))
		elapsed := time.Since(start)

		if err != nil {
			kind := domain.KindFrom(err)
			s.metrics.ObserveRPC(name, "error", elapsed)
			s.metrics.ObserveRPCError(name, kind)
			span.SetAttributes(attribute.String("error_kind", string(kind)))
			span.SetStatus(otelcodes.Error, string(kind))
			s.logger.Warn("tool_failed",
				zap.String("tool", name),
				zap.String("session", sessionID),
				zap.String("correlation_id", correlationID),
				zap.String("error_kind", string(kind)),
				zap.Error(err),
			)
			return errorResult(err, correlationID), nil
		}

		payload, marshalErr := json.Marshal(result)
		if marshalErr != nil {
			s.metrics.ObserveRPC(name, "error", elapsed)
			s.metrics.ObserveRPCError(name, domain.KindInternal)
			span.SetStatus(otelcodes.Error, string(domain.KindInternal))
			return errorResult(domain.E(domain.KindInternal, name, "encode result", marshalErr), correlationID), nil
		}

		s.metrics.ObserveRPC(name, "success", elapsed)
		span.SetStatus(otelcodes.Ok, "")
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(payload)}},
		}, nil
	}
}

// errorFrame is the wire shape of a failed call.
type errorFrame struct {
	Kind          domain.ErrorKind `json:"kind"`
	Message       string           `json:"message"`
	RetryAfterSec int64            `json:"retry_after,omitempty"`
	CorrelationID string           `json:"correlation_id"`
}

// errorResult serializes a pipeline error into a tool error frame. Stack
// traces and cause chains stay server-side.
func errorResult(err error, correlationID string) *mcp.CallToolResult {
	frame := errorFrame{
		Kind:          domain.KindFrom(err),
		Message:       err.Error(),
		CorrelationID: correlationID,
	}
	if retryAfter := domain.RetryAfterFrom(err); retryAfter > 0 {
		frame.RetryAfterSec = int64(retryAfter.Seconds() + 0.5)
	}
	payload, marshalErr := json.Marshal(frame)
	if marshalErr != nil {
		payload = []byte(fmt.Sprintf(`{"kind":"INTERNAL","message":"encode error frame","correlation_id":%q}`, correlationID))
	}
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: string(payload)}},
	}
}
