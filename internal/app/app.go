package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ddigate/internal/domain"
	"ddigate/internal/infra/admin"
	"ddigate/internal/infra/pipeline"
	"ddigate/internal/infra/registry"
	"ddigate/internal/infra/telemetry"
	"ddigate/internal/infra/transport"
	"ddigate/internal/infra/upstream"
)

// Version is stamped at build time.
var Version = "0.1.0"

// App wires the gateway: upstream clients, resilience pipeline, tool
// registry, RPC transport and admin surface. All dependencies are
// constructed here and passed down explicitly.
type App struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{logger: logger}
}

// Serve runs the gateway until ctx is cancelled.
func (a *App) Serve(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	collector := telemetry.NewCollector()

	tracer, flushTraces, err := telemetry.InitTracing(ctx, cfg.TracingEndpoint, Version)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := flushTraces(flushCtx); err != nil {
			a.logger.Warn("trace exporter flush failed", zap.Error(err))
		}
	}()

	clients, err := a.buildUpstreamClients(cfg)
	if err != nil {
		return err
	}

	pipe := pipeline.New(pipeline.Config{
		CacheEnabled:            cfg.CacheEnabled,
		DefaultCacheTTL:         cfg.cacheTTL(),
		RequestTimeout:          cfg.requestTimeout(),
		BreakerFailureThreshold: cfg.BreakerFailureThreshold,
		BreakerResetTimeout:     cfg.breakerReset(),
	}, collector, tracer, a.logger)

	reg, err := registry.Build(registry.Deps{
		Pipeline: pipe,
		DDI:      clients[domain.ServiceDDI],
		Atcfw:    clients[domain.ServiceAtcfw],
		Insights: clients[domain.ServiceInsights],
		NIOSXaaS: clients[domain.ServiceNIOSXaaS],
		Logger:   a.logger,
	})
	if err != nil {
		return fmt.Errorf("build tool registry: %w", err)
	}

	rpcServer := transport.NewServer(transport.Options{
		Registry: reg,
		Metrics:  collector,
		Tracer:   tracer,
		Logger:   a.logger,
		Version:  Version,
	})

	health := telemetry.NewHealth(collector, func() map[string]telemetry.BreakerStatus {
		states := pipe.BreakerStates()
		out := make(map[string]telemetry.BreakerStatus, len(states))
		for service, status := range states {
			out[service] = telemetry.BreakerStatus{State: status.State, OpenFor: status.OpenFor}
		}
		return out
	}, cfg.CacheHitRateFloor)

	adminServer := admin.NewServer(collector, health, a.logger)

	a.logger.Info("gateway starting",
		zap.String("base_url", cfg.BaseURL),
		zap.String("rpc_addr", cfg.RPCListenAddress),
		zap.String("admin_addr", cfg.AdminListenAddress),
		zap.Bool("cache_enabled", cfg.CacheEnabled),
		zap.Int("tools", reg.Len()),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errChan := make(chan error, 2)
	go func() { errChan <- rpcServer.Run(runCtx, cfg.RPCListenAddress, domain.DefaultShutdownGrace) }()
	go func() { errChan <- adminServer.Run(runCtx, cfg.AdminListenAddress) }()

	var first error
	select {
	case first = <-errChan:
		cancel()
	case <-ctx.Done():
		cancel()
		first = <-errChan
	}
	second := <-errChan

	if first != nil {
		return first
	}
	return second
}

// ValidateConfig checks the configuration and upstream client wiring
// without binding any listener.
func (a *App) ValidateConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := a.buildUpstreamClients(cfg); err != nil {
		return err
	}
	a.logger.Info("configuration valid", zap.String("base_url", cfg.BaseURL))
	return nil
}

func (a *App) buildUpstreamClients(cfg Config) (map[string]*upstream.Client, error) {
	clients := make(map[string]*upstream.Client, 4)
	for _, service := range []string{
		domain.ServiceDDI,
		domain.ServiceAtcfw,
		domain.ServiceInsights,
		domain.ServiceNIOSXaaS,
	} {
		client, err := upstream.New(upstream.Options{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Service: service,
			Logger:  a.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("build %s client: %w", service, err)
		}
		clients[service] = client
	}
	return clients, nil
}
