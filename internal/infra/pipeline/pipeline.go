package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"ddigate/internal/domain"
)

// Config carries the resilience policies applied to every tool call.
type Config struct {
	CacheEnabled            bool
	CacheCapacityPerTool    int
	DefaultCacheTTL         time.Duration
	RequestTimeout          time.Duration
	BreakerFailureThreshold int
	BreakerResetTimeout     time.Duration
	RetryMaxAttempts        int
	RetryBackoffBase        time.Duration
	RetryBackoffCap         time.Duration
}

func (c Config) withDefaults() Config {
	if c.CacheCapacityPerTool <= 0 {
		c.CacheCapacityPerTool = domain.DefaultCacheCapacityPerTool
	}
	if c.DefaultCacheTTL <= 0 {
		c.DefaultCacheTTL = domain.DefaultCacheTTL
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = domain.DefaultRequestTimeout
	}
	if c.BreakerFailureThreshold <= 0 {
		c.BreakerFailureThreshold = domain.DefaultBreakerFailureThreshold
	}
	if c.BreakerResetTimeout <= 0 {
		c.BreakerResetTimeout = domain.DefaultBreakerResetTimeout
	}
	if c.RetryMaxAttempts <= 0 {
		c.RetryMaxAttempts = domain.DefaultRetryMaxAttempts
	}
	if c.RetryBackoffBase <= 0 {
		c.RetryBackoffBase = domain.DefaultRetryBackoffBase
	}
	if c.RetryBackoffCap <= 0 {
		c.RetryBackoffCap = domain.DefaultRetryBackoffCap
	}
	return c
}

// Pipeline composes timeout, circuit breaking, caching and retry around
// every upstream call. One instance serves all tools.
type Pipeline struct {
	cfg     Config
	cache   *Cache
	metrics domain.Metrics
	tracer  trace.Tracer
	logger  *zap.Logger

	mu       sync.Mutex
	breakers map[string]*Breaker

	// sleep is replaced in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(cfg Config, metrics domain.Metrics, tracer trace.Tracer, logger *zap.Logger) *Pipeline {
	cfg = cfg.withDefaults()
	if metrics == nil {
		metrics = domain.NewNoopMetrics()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("ddigate")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:      cfg,
		cache:    NewCache(cfg.CacheCapacityPerTool),
		metrics:  metrics,
		tracer:   tracer,
		logger:   logger.Named("pipeline"),
		breakers: make(map[string]*Breaker),
		sleep:    sleepContext,
	}
}

// Breaker returns the circuit breaker for an upstream service, creating it
// on first use.
func (p *Pipeline) Breaker(service string) *Breaker {
	p.mu.Lock()
	defer p.mu.Unlock()
	breaker, ok := p.breakers[service]
	if !ok {
		breaker = NewBreaker(service, p.cfg.BreakerFailureThreshold, p.cfg.BreakerResetTimeout, p.metrics, p.logger)
		p.breakers[service] = breaker
	}
	return breaker
}

// BreakerStatus is a health-facing snapshot of one breaker.
type BreakerStatus struct {
	State   domain.BreakerState
	OpenFor time.Duration
}

// BreakerStates snapshots every breaker for the health evaluator.
func (p *Pipeline) BreakerStates() map[string]BreakerStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	states := make(map[string]BreakerStatus, len(p.breakers))
	for service, breaker := range p.breakers {
		states[service] = BreakerStatus{State: breaker.State(), OpenFor: breaker.OpenedFor()}
	}
	return states
}

// CacheEntries returns the live cache entry count.
func (p *Pipeline) CacheEntries() int { return p.cache.Len() }

// Invoke runs one tool call: deadline guard, cache lookup for read tools,
// handler execution, cache insert. Arguments must already be validated
// with defaults applied so the canonical hash is stable.
func (p *Pipeline) Invoke(ctx context.Context, desc *domain.ToolDescriptor, args map[string]any) (any, error) {
	parent := ctx
	timeout := desc.Timeout
	if timeout <= 0 {
		timeout = p.cfg.RequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cacheable := p.cfg.CacheEnabled && desc.Classification == domain.ToolRead && desc.CachePolicy.Enabled()
	var cacheKey string
	if cacheable {
		key, err := CanonicalArgsHash(args)
		if err != nil {
			return nil, domain.E(domain.KindInternal, desc.Name, "hash arguments", err)
		}
		cacheKey = key
		if payload, ok := p.cache.Get(desc.Name, cacheKey); ok {
			p.metrics.CacheHit(desc.Name)
			trace.SpanFromContext(ctx).AddEvent("cache_hit")
			p.logger.Debug("cache_hit", zap.String("tool", desc.Name))
			return json.RawMessage(payload), nil
		}
		p.metrics.CacheMiss(desc.Name)
		trace.SpanFromContext(ctx).AddEvent("cache_miss")
		p.logger.Debug("cache_miss", zap.String("tool", desc.Name))
	}

	result, err := desc.Handler(ctx, args)
	if err != nil {
		return nil, classifyDeadline(parent, ctx, err)
	}

	if cacheable && ctx.Err() == nil {
		ttl := desc.CachePolicy.TTL
		if ttl <= 0 {
			ttl = p.cfg.DefaultCacheTTL
		}
		if payload, marshalErr := json.Marshal(result); marshalErr == nil {
			p.cache.Put(desc.Name, cacheKey, payload, ttl)
			p.metrics.SetCacheEntries(p.cache.Len())
		}
	}

	return result, nil
}

// Upstream guards one upstream HTTP interaction with the service breaker
// and the retry policy. The call func must issue exactly one request.
func (p *Pipeline) Upstream(ctx context.Context, service, endpoint string, call func(context.Context) (map[string]any, error)) (map[string]any, error) {
	breaker := p.Breaker(service)
	if err := breaker.Allow(); err != nil {
		return nil, err
	}

	ctx, span := p.tracer.Start(ctx, "upstream_request", trace.WithAttributes(
		attribute.String("service", service),
		attribute.String("path", endpoint),
		attribute.String("breaker_state", string(breaker.State())),
	))
	defer span.End()

	maxAttempts := p.cfg.RetryMaxAttempts
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		start := time.Now()
		result, err := call(ctx)
		elapsed := time.Since(start)

		if err == nil {
			breaker.RecordSuccess()
			p.metrics.ObserveUpstream(service, endpoint, http.StatusOK, elapsed)
			span.SetAttributes(attribute.Int("attempts", attempt), attribute.Int("status", http.StatusOK))
			span.SetStatus(codes.Ok, "")
			return result, nil
		}

		err = classifyDeadline(ctx, ctx, err)
		lastErr = err
		status := domain.StatusFrom(err)
		p.metrics.ObserveUpstream(service, endpoint, status, elapsed)

		if !retryable(err) || attempt == maxAttempts || ctx.Err() != nil {
			break
		}

		wait := p.backoff(attempt, domain.RetryAfterFrom(err))
		p.logger.Warn("api_retry",
			zap.Int("attempt", attempt),
			zap.Int("max", maxAttempts),
			zap.Duration("sleep", wait),
			zap.String("endpoint", endpoint),
			zap.Int("status", status),
		)
		p.metrics.ObserveRetry(service, endpoint)
		span.AddEvent("api_retry", trace.WithAttributes(
			attribute.Int("attempt", attempt),
			attribute.Int("status", status),
		))
		if sleepErr := p.sleep(ctx, wait); sleepErr != nil {
			lastErr = classifyDeadline(ctx, ctx, sleepErr)
			break
		}
	}

	breaker.RecordFailure(countsTowardBreaker(lastErr))
	kind := domain.KindFrom(lastErr)
	span.SetAttributes(attribute.String("error_kind", string(kind)))
	span.SetStatus(codes.Error, string(kind))
	return nil, lastErr
}

// backoff returns the wait before the next attempt: an explicit
// Retry-After wins, otherwise a linear ramp from the base, capped.
func (p *Pipeline) backoff(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return retryAfter
	}
	wait := p.cfg.RetryBackoffBase * time.Duration(attempt)
	if wait > p.cfg.RetryBackoffCap {
		wait = p.cfg.RetryBackoffCap
	}
	return wait
}

// retryable reports whether the gateway re-issues the request itself.
// Rate limits and upstream conflicts are retried in place; other failure
// kinds surface immediately with retry advice for the client.
func retryable(err error) bool {
	switch domain.KindFrom(err) {
	case domain.KindRateLimited:
		return true
	case domain.KindUpstreamClientError:
		return domain.StatusFrom(err) == http.StatusConflict
	}
	return false
}

// countsTowardBreaker implements the breaker exclusion set: client errors,
// timeouts, cancellations and parse errors never trip the breaker.
func countsTowardBreaker(err error) bool {
	switch domain.KindFrom(err) {
	case domain.KindUpstreamServerError, domain.KindTransportError, domain.KindRateLimited:
		return true
	}
	return false
}

// classifyDeadline maps context termination onto the outward taxonomy:
// an expired per-call deadline is a TIMEOUT, a cancelled parent (client
// disconnect) is CANCELLED.
func classifyDeadline(parent, ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if parent.Err() != nil && errors.Is(parent.Err(), context.Canceled) {
		if kind := domain.KindFrom(err); kind == domain.KindCancelled || kind == domain.KindTimeout || kind == domain.KindTransportError {
			return domain.E(domain.KindCancelled, "", "call cancelled", err)
		}
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) && domain.KindFrom(err) != domain.KindTimeout {
		return domain.E(domain.KindTimeout, "", "deadline exceeded", err)
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
