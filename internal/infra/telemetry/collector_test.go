package telemetry

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"ddigate/internal/domain"
)

func TestCollector_CountersAndGauges(t *testing.T) {
	c := NewCollector()

	c.ObserveRPC("list_ip_spaces", "success", 12*time.Millisecond)
	c.ObserveRPC("list_ip_spaces", "error", 5*time.Millisecond)
	c.ObserveRPCError("list_ip_spaces", domain.KindUpstreamServerError)
	c.CacheHit("list_ip_spaces")
	c.CacheMiss("list_ip_spaces")
	c.BreakerOpened("infoblox_api")
	c.SetBreakerState("infoblox_api", domain.BreakerOpen)
	c.SetActiveSessions(3)
	c.SetCacheEntries(7)

	require.Equal(t, 1.0, testutil.ToFloat64(c.rpcRequests.WithLabelValues("list_ip_spaces", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.rpcRequests.WithLabelValues("list_ip_spaces", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.rpcErrors.WithLabelValues("list_ip_spaces", "UPSTREAM_SERVER_ERROR")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.cacheHits.WithLabelValues("list_ip_spaces")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.cacheMisses.WithLabelValues("list_ip_spaces")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.breakerOpens.WithLabelValues("infoblox_api")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.breakerState.WithLabelValues("infoblox_api")))
	require.Equal(t, 3.0, testutil.ToFloat64(c.activeSessions))
	require.Equal(t, 7.0, testutil.ToFloat64(c.cacheEntries))
	require.Equal(t, 0.5, testutil.ToFloat64(c.cacheHitRate))
}

func TestCollector_BreakerStateGaugeEncoding(t *testing.T) {
	c := NewCollector()

	c.SetBreakerState("svc", domain.BreakerClosed)
	require.Equal(t, 0.0, testutil.ToFloat64(c.breakerState.WithLabelValues("svc")))

	c.SetBreakerState("svc", domain.BreakerHalfOpen)
	require.Equal(t, 0.5, testutil.ToFloat64(c.breakerState.WithLabelValues("svc")))

	c.SetBreakerState("svc", domain.BreakerOpen)
	require.Equal(t, 1.0, testutil.ToFloat64(c.breakerState.WithLabelValues("svc")))
}

func TestCollector_ErrorRateWindow(t *testing.T) {
	c := NewCollector()
	now := time.Unix(1700000000, 0)
	c.now = func() time.Time { return now }

	for i := 0; i < 8; i++ {
		c.ObserveRPC("t", "success", time.Millisecond)
	}
	c.ObserveRPC("t", "error", time.Millisecond)
	c.ObserveRPC("t", "error", time.Millisecond)

	rate, observed := c.ErrorRate(5 * time.Minute)
	require.Equal(t, 10, observed)
	require.InDelta(t, 0.2, rate, 1e-9)

	// Outcomes age out of the window.
	now = now.Add(10 * time.Minute)
	rate, observed = c.ErrorRate(5 * time.Minute)
	require.Zero(t, observed)
	require.Zero(t, rate)
}

func TestCollector_SnapshotLatencyPercentiles(t *testing.T) {
	c := NewCollector()

	for i := 1; i <= 100; i++ {
		c.ObserveUpstream("infoblox_api", "/api/ddi/v1/ipam/subnet", 200, time.Duration(i)*time.Millisecond)
	}

	snapshot := c.Snapshot()
	stats, ok := snapshot.Latency["infoblox_api|/api/ddi/v1/ipam/subnet"]
	require.True(t, ok)
	require.Equal(t, 100, stats.Count)
	require.Equal(t, 1.0, stats.MinMs)
	require.Equal(t, 100.0, stats.MaxMs)
	require.InDelta(t, 50.5, stats.AvgMs, 0.01)
	require.InDelta(t, 51.0, stats.P50Ms, 1.0)
	require.InDelta(t, 96.0, stats.P95Ms, 1.0)
	require.InDelta(t, 100.0, stats.P99Ms, 1.0)
}

func TestCollector_SnapshotAPICallsByService(t *testing.T) {
	c := NewCollector()
	c.ObserveUpstream("infoblox_api", "/a", 200, time.Millisecond)
	c.ObserveUpstream("infoblox_api", "/a", 500, time.Millisecond)
	c.ObserveUpstream("atcfw_api", "/b", 200, time.Millisecond)

	snapshot := c.Snapshot()
	require.Equal(t, int64(3), snapshot.APICalls["total"])

	ddi, ok := snapshot.APICalls["infoblox_api"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, int64(2), ddi["total"])
}

func TestCollector_SampleRingKeepsLastN(t *testing.T) {
	ring := newSampleRing(3)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		ring.add(v)
	}
	stats, ok := ring.stats()
	require.True(t, ok)
	require.Equal(t, 3, stats.Count)
	require.Equal(t, 3.0, stats.MinMs)
	require.Equal(t, 5.0, stats.MaxMs)
}

func TestCollector_SnapshotBreakerAndRetryCounts(t *testing.T) {
	c := NewCollector()
	c.SetBreakerState("infoblox_api", domain.BreakerOpen)
	c.BreakerOpened("infoblox_api")
	c.ObserveRetry("infoblox_api", "/api/ddi/v1/ipam/subnet")
	c.ObserveRetry("infoblox_api", "/api/ddi/v1/ipam/subnet")

	snapshot := c.Snapshot()
	if diff := cmp.Diff(map[string]string{"infoblox_api": "OPEN"}, snapshot.Breakers); diff != "" {
		t.Fatalf("breakers mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]int64{"infoblox_api": 1}, snapshot.BreakerOpens); diff != "" {
		t.Fatalf("breaker opens mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]int64{"infoblox_api|/api/ddi/v1/ipam/subnet": 2}, snapshot.Retries); diff != "" {
		t.Fatalf("retries mismatch (-want +got):\n%s", diff)
	}
}

func TestCollector_CacheHitRate(t *testing.T) {
	c := NewCollector()
	rate, observed := c.CacheHitRate()
	require.Zero(t, observed)
	require.Zero(t, rate)

	c.CacheHit("a")
	c.CacheHit("a")
	c.CacheMiss("b")
	c.CacheMiss("b")

	rate, observed = c.CacheHitRate()
	require.Equal(t, int64(4), observed)
	require.InDelta(t, 0.5, rate, 1e-9)
}
