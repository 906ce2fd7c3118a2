package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ddigate/internal/domain"
)

func newTestPipeline(cfg Config, metrics domain.Metrics) *Pipeline {
	p := New(cfg, metrics, nil, nil)
	p.sleep = func(context.Context, time.Duration) error { return nil }
	return p
}

func readDescriptor(name string, calls *atomic.Int64, result map[string]any) *domain.ToolDescriptor {
	return &domain.ToolDescriptor{
		Name:           name,
		CachePolicy:    domain.CacheDefaultTTL(),
		Classification: domain.ToolRead,
		Service:        "upstream",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			calls.Add(1)
			return result, nil
		},
	}
}

func TestInvoke_CacheHitSkipsSecondHandlerCall(t *testing.T) {
	metrics := &recordingMetrics{}
	p := newTestPipeline(Config{CacheEnabled: true}, metrics)

	var calls atomic.Int64
	desc := readDescriptor("list_ip_spaces", &calls, map[string]any{"count": 2})
	args := map[string]any{"limit": float64(10)}

	first, err := p.Invoke(context.Background(), desc, args)
	require.NoError(t, err)
	second, err := p.Invoke(context.Background(), desc, args)
	require.NoError(t, err)

	require.Equal(t, int64(1), calls.Load(), "second call served from cache")
	require.Equal(t, 1, metrics.hits)
	require.Equal(t, 1, metrics.misses)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	require.Equal(t, firstJSON, secondJSON, "cached payload is byte-identical")
}

func TestInvoke_DistinctArgumentsMissSeparately(t *testing.T) {
	p := newTestPipeline(Config{CacheEnabled: true}, nil)

	var calls atomic.Int64
	desc := readDescriptor("list_subnets", &calls, map[string]any{"count": 0})

	_, err := p.Invoke(context.Background(), desc, map[string]any{"limit": float64(10)})
	require.NoError(t, err)
	_, err = p.Invoke(context.Background(), desc, map[string]any{"limit": float64(50)})
	require.NoError(t, err)
	require.Equal(t, int64(2), calls.Load())
}

func TestInvoke_MutationsBypassCache(t *testing.T) {
	metrics := &recordingMetrics{}
	p := newTestPipeline(Config{CacheEnabled: true}, metrics)

	var calls atomic.Int64
	desc := &domain.ToolDescriptor{
		Name:           "create_subnet",
		Classification: domain.ToolMutate,
		Service:        "upstream",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			calls.Add(1)
			return map[string]any{"id": "x"}, nil
		},
	}

	args := map[string]any{"address": "10.0.0.0/24"}
	_, err := p.Invoke(context.Background(), desc, args)
	require.NoError(t, err)
	_, err = p.Invoke(context.Background(), desc, args)
	require.NoError(t, err)

	require.Equal(t, int64(2), calls.Load())
	require.Zero(t, metrics.hits)
	require.Zero(t, metrics.misses, "mutations are not cache-eligible")
}

func TestInvoke_CacheDisabledDegradesToNone(t *testing.T) {
	p := newTestPipeline(Config{CacheEnabled: false}, nil)

	var calls atomic.Int64
	desc := readDescriptor("list_ip_spaces", &calls, map[string]any{"count": 1})
	args := map[string]any{"limit": float64(10)}

	_, err := p.Invoke(context.Background(), desc, args)
	require.NoError(t, err)
	_, err = p.Invoke(context.Background(), desc, args)
	require.NoError(t, err)
	require.Equal(t, int64(2), calls.Load())
}

func TestInvoke_CancelledCallDoesNotInsertCache(t *testing.T) {
	p := newTestPipeline(Config{CacheEnabled: true}, nil)

	var calls atomic.Int64
	desc := &domain.ToolDescriptor{
		Name:           "list_ip_spaces",
		CachePolicy:    domain.CacheDefaultTTL(),
		Classification: domain.ToolRead,
		Service:        "upstream",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			calls.Add(1)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := p.Invoke(ctx, desc, map[string]any{})
	require.Equal(t, domain.KindCancelled, domain.KindFrom(err))
	require.Zero(t, p.CacheEntries())
}

func TestInvoke_DeadlineClassifiedAsTimeout(t *testing.T) {
	p := newTestPipeline(Config{CacheEnabled: false}, nil)

	desc := &domain.ToolDescriptor{
		Name:           "slow_tool",
		Classification: domain.ToolRead,
		Service:        "upstream",
		Timeout:        20 * time.Millisecond,
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	_, err := p.Invoke(context.Background(), desc, map[string]any{})
	require.Equal(t, domain.KindTimeout, domain.KindFrom(err))
}

func TestUpstream_RetriesRateLimitHonoringRetryAfter(t *testing.T) {
	metrics := &recordingMetrics{}
	p := New(Config{}, metrics, nil, nil)

	var slept []time.Duration
	p.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	var attempts atomic.Int64
	result, err := p.Upstream(context.Background(), "upstream", "/api/ddi/v1/ipam/subnet", func(ctx context.Context) (map[string]any, error) {
		if attempts.Add(1) <= 4 {
			return nil, &domain.Error{
				Kind:       domain.KindRateLimited,
				Status:     http.StatusTooManyRequests,
				RetryAfter: 2 * time.Second,
			}
		}
		return map[string]any{"results": []any{}}, nil
	})

	require.NoError(t, err)
	require.Equal(t, map[string]any{"results": []any{}}, result)
	require.Equal(t, int64(5), attempts.Load())
	require.Equal(t, 4, metrics.retries)
	require.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second, 2 * time.Second}, slept)
	require.Equal(t, domain.BreakerClosed, p.Breaker("upstream").State(), "rate limits resolved by retry never trip the breaker")
}

func TestUpstream_LinearBackoffWhenNoRetryAfter(t *testing.T) {
	p := New(Config{RetryMaxAttempts: 4}, nil, nil, nil)

	var slept []time.Duration
	p.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	_, err := p.Upstream(context.Background(), "upstream", "/x", func(ctx context.Context) (map[string]any, error) {
		return nil, &domain.Error{Kind: domain.KindRateLimited, Status: http.StatusTooManyRequests}
	})

	require.Equal(t, domain.KindRateLimited, domain.KindFrom(err))
	require.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second}, slept)
}

func TestUpstream_BackoffCapped(t *testing.T) {
	p := New(Config{RetryMaxAttempts: 12}, nil, nil, nil)
	require.Equal(t, 30*time.Second, p.backoff(11, 0))
	require.Equal(t, 5*time.Second, p.backoff(1, 0))
	require.Equal(t, 7*time.Second, p.backoff(3, 7*time.Second), "explicit Retry-After wins")
}

func TestUpstream_ConflictIsRetryable(t *testing.T) {
	p := newTestPipeline(Config{}, nil)

	var attempts atomic.Int64
	_, err := p.Upstream(context.Background(), "niosxaas_api", "/configure", func(ctx context.Context) (map[string]any, error) {
		if attempts.Add(1) == 1 {
			return nil, &domain.Error{Kind: domain.KindUpstreamClientError, Status: http.StatusConflict}
		}
		return map[string]any{"success": true}, nil
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), attempts.Load())
}

func TestUpstream_ServerErrorsAreNotRetriedAndTripBreaker(t *testing.T) {
	metrics := &recordingMetrics{}
	p := newTestPipeline(Config{BreakerFailureThreshold: 5}, metrics)

	var attempts atomic.Int64
	fail := func(ctx context.Context) (map[string]any, error) {
		attempts.Add(1)
		return nil, &domain.Error{Kind: domain.KindUpstreamServerError, Status: http.StatusInternalServerError}
	}

	for i := 0; i < 5; i++ {
		_, err := p.Upstream(context.Background(), "upstream", "/api/ddi/v1/dns/auth_zone", fail)
		require.Equal(t, domain.KindUpstreamServerError, domain.KindFrom(err))
	}
	require.Equal(t, int64(5), attempts.Load(), "one upstream request per call")
	require.Equal(t, 1, metrics.opened)

	// Sixth call fast-fails without touching the upstream.
	start := time.Now()
	_, err := p.Upstream(context.Background(), "upstream", "/api/ddi/v1/dns/auth_zone", fail)
	require.Equal(t, domain.KindCircuitOpen, domain.KindFrom(err))
	require.Equal(t, int64(5), attempts.Load())
	require.Less(t, time.Since(start), 5*time.Millisecond)
}

func TestUpstream_BreakerRecoversAfterReset(t *testing.T) {
	p := newTestPipeline(Config{BreakerFailureThreshold: 1, BreakerResetTimeout: time.Minute}, nil)

	_, err := p.Upstream(context.Background(), "upstream", "/x", func(ctx context.Context) (map[string]any, error) {
		return nil, &domain.Error{Kind: domain.KindUpstreamServerError, Status: 500}
	})
	require.Equal(t, domain.KindUpstreamServerError, domain.KindFrom(err))

	breaker := p.Breaker("upstream")
	clock := &fakeClock{at: time.Now()}
	breaker.now = clock.Now
	clock.Advance(61 * time.Second)

	result, err := p.Upstream(context.Background(), "upstream", "/x", func(ctx context.Context) (map[string]any, error) {
		return map[string]any{"results": []any{}}, nil
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, domain.BreakerClosed, breaker.State())
}

func TestUpstream_ClientErrorsExcludedFromBreaker(t *testing.T) {
	p := newTestPipeline(Config{BreakerFailureThreshold: 2}, nil)

	for i := 0; i < 10; i++ {
		_, err := p.Upstream(context.Background(), "upstream", "/x", func(ctx context.Context) (map[string]any, error) {
			return nil, &domain.Error{Kind: domain.KindUpstreamClientError, Status: http.StatusBadRequest}
		})
		require.Equal(t, domain.KindUpstreamClientError, domain.KindFrom(err))
	}
	require.Equal(t, domain.BreakerClosed, p.Breaker("upstream").State())
}

func TestUpstream_CancelledCallDoesNotCountTowardBreaker(t *testing.T) {
	p := newTestPipeline(Config{BreakerFailureThreshold: 1}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Upstream(ctx, "upstream", "/x", func(ctx context.Context) (map[string]any, error) {
		return nil, ctx.Err()
	})
	require.Equal(t, domain.KindCancelled, domain.KindFrom(err))
	require.Equal(t, domain.BreakerClosed, p.Breaker("upstream").State())
}

func TestBreakerStatesSnapshot(t *testing.T) {
	p := newTestPipeline(Config{BreakerFailureThreshold: 1}, nil)
	_, _ = p.Upstream(context.Background(), "upstream", "/x", func(ctx context.Context) (map[string]any, error) {
		return nil, &domain.Error{Kind: domain.KindTransportError}
	})

	states := p.BreakerStates()
	require.Len(t, states, 1)
	require.Equal(t, domain.BreakerOpen, states["upstream"].State)
}
