package telemetry

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ddigate/internal/domain"
)

// Collector is the process-wide metrics register. It feeds two surfaces:
// a prometheus registry for the text exposition and an internal sample
// store for read-time percentiles, the cache hit-rate gauge and the
// rolling error-rate window used by the health evaluator.
type Collector struct {
	registry *prometheus.Registry

	rpcRequests      *prometheus.CounterVec
	rpcErrors        *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	breakerOpens     *prometheus.CounterVec
	retries          *prometheus.CounterVec
	cacheHitRate     prometheus.Gauge
	cacheEntries     prometheus.Gauge
	activeSessions   prometheus.Gauge
	breakerState     *prometheus.GaugeVec
	rpcDuration      *prometheus.HistogramVec
	upstreamDuration *prometheus.HistogramVec

	mu            sync.Mutex
	start         time.Time
	now           func() time.Time
	sampleSize    int
	rpcSamples    map[string]*sampleRing
	upSamples     map[string]*sampleRing
	apiCalls      map[string]map[int]int64
	errorCounts   map[string]int64
	hitCounts     map[string]int64
	missCounts    map[string]int64
	breakerStates map[string]domain.BreakerState
	breakerOpened map[string]int64
	retryCounts   map[string]int64
	sessions      int
	entries       int
	outcomes      []outcome
}

type outcome struct {
	at time.Time
	ok bool
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	c := &Collector{
		registry: registry,
		rpcRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rpc_requests_total",
			Help: "Total tool calls by terminal status",
		}, []string{"tool", "status"}),
		rpcErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rpc_errors_total",
			Help: "Total tool call failures by error kind",
		}, []string{"tool", "error_kind"}),
		cacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Responses served from the tool response cache",
		}, []string{"tool"}),
		cacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Cache-eligible calls that reached the upstream",
		}, []string{"tool"}),
		breakerOpens: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "circuit_breaker_open_total",
			Help: "Cumulative breaker open transitions",
		}, []string{"service"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "api_retries_total",
			Help: "Upstream request retries",
		}, []string{"service", "endpoint"}),
		cacheHitRate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cache_hit_rate",
			Help: "Hit fraction across all cache-eligible calls",
		}),
		cacheEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Live cache entries",
		}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "active_sessions",
			Help: "Connected RPC sessions",
		}),
		breakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Breaker state (0=closed, 0.5=half-open, 1=open)",
		}, []string{"service"}),
		rpcDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rpc_request_duration_ms",
			Help:    "Tool call duration in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		}, []string{"tool"}),
		upstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "upstream_request_duration_ms",
			Help:    "Upstream HTTP request duration in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		}, []string{"service", "path"}),

		start:         time.Now(),
		now:           time.Now,
		sampleSize:    domain.DefaultLatencySampleSize,
		rpcSamples:    make(map[string]*sampleRing),
		upSamples:     make(map[string]*sampleRing),
		apiCalls:      make(map[string]map[int]int64),
		errorCounts:   make(map[string]int64),
		hitCounts:     make(map[string]int64),
		missCounts:    make(map[string]int64),
		breakerStates: make(map[string]domain.BreakerState),
		breakerOpened: make(map[string]int64),
		retryCounts:   make(map[string]int64),
	}

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "uptime_seconds",
		Help: "Seconds since process start",
	}, func() float64 { return time.Since(c.start).Seconds() })

	return c
}

// Gatherer exposes the prometheus registry for the admin /metrics handler.
func (c *Collector) Gatherer() prometheus.Gatherer { return c.registry }

// Uptime returns time since the collector was constructed.
func (c *Collector) Uptime() time.Duration { return c.now().Sub(c.start) }

func (c *Collector) ObserveRPC(tool, status string, duration time.Duration) {
	c.rpcRequests.WithLabelValues(tool, status).Inc()
	ms := float64(duration.Microseconds()) / 1000
	c.rpcDuration.WithLabelValues(tool).Observe(ms)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ringFor(c.rpcSamples, tool).add(ms)
	c.outcomes = append(c.outcomes, outcome{at: c.now(), ok: status == "success"})
	c.pruneOutcomesLocked()
}

func (c *Collector) ObserveRPCError(tool string, kind domain.ErrorKind) {
	c.rpcErrors.WithLabelValues(tool, string(kind)).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorCounts[tool+"/"+string(kind)]++
}

func (c *Collector) ObserveUpstream(service, path string, status int, duration time.Duration) {
	ms := float64(duration.Microseconds()) / 1000
	c.upstreamDuration.WithLabelValues(service, path).Observe(ms)

	c.mu.Lock()
	defer c.mu.Unlock()
	byStatus, ok := c.apiCalls[service]
	if !ok {
		byStatus = make(map[int]int64)
		c.apiCalls[service] = byStatus
	}
	byStatus[status]++
	c.ringFor(c.upSamples, service+"|"+path).add(ms)
}

func (c *Collector) ObserveRetry(service, endpoint string) {
	c.retries.WithLabelValues(service, endpoint).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.retryCounts[service+"|"+endpoint]++
}

func (c *Collector) CacheHit(tool string) {
	c.cacheHits.WithLabelValues(tool).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.hitCounts[tool]++
	c.cacheHitRate.Set(c.hitRateLocked())
}

func (c *Collector) CacheMiss(tool string) {
	c.cacheMisses.WithLabelValues(tool).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.missCounts[tool]++
	c.cacheHitRate.Set(c.hitRateLocked())
}

func (c *Collector) SetCacheEntries(count int) {
	c.cacheEntries.Set(float64(count))

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = count
}

func (c *Collector) BreakerOpened(service string) {
	c.breakerOpens.WithLabelValues(service).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.breakerOpened[service]++
}

func (c *Collector) SetBreakerState(service string, state domain.BreakerState) {
	c.breakerState.WithLabelValues(service).Set(state.GaugeValue())

	c.mu.Lock()
	defer c.mu.Unlock()
	c.breakerStates[service] = state
}

func (c *Collector) SetActiveSessions(count int) {
	c.activeSessions.Set(float64(count))

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions = count
}

var _ domain.Metrics = (*Collector)(nil)

// ErrorRate returns the failed fraction of tool calls inside the window,
// plus the number of calls observed.
func (c *Collector) ErrorRate(window time.Duration) (rate float64, observed int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-window)
	failed := 0
	for _, o := range c.outcomes {
		if o.at.Before(cutoff) {
			continue
		}
		observed++
		if !o.ok {
			failed++
		}
	}
	if observed == 0 {
		return 0, 0
	}
	return float64(failed) / float64(observed), observed
}

// CacheHitRate returns the overall hit fraction and the number of
// cache-eligible calls observed.
func (c *Collector) CacheHitRate() (rate float64, observed int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var hits, misses int64
	for _, v := range c.hitCounts {
		hits += v
	}
	for _, v := range c.missCounts {
		misses += v
	}
	if hits+misses == 0 {
		return 0, 0
	}
	return float64(hits) / float64(hits+misses), hits + misses
}

func (c *Collector) hitRateLocked() float64 {
	var hits, misses int64
	for _, v := range c.hitCounts {
		hits += v
	}
	for _, v := range c.missCounts {
		misses += v
	}
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

func (c *Collector) ringFor(rings map[string]*sampleRing, key string) *sampleRing {
	ring, ok := rings[key]
	if !ok {
		ring = newSampleRing(c.sampleSize)
		rings[key] = ring
	}
	return ring
}

func (c *Collector) pruneOutcomesLocked() {
	cutoff := c.now().Add(-2 * domain.DefaultHealthWindow)
	trim := 0
	for trim < len(c.outcomes) && c.outcomes[trim].at.Before(cutoff) {
		trim++
	}
	if trim > 0 {
		c.outcomes = append([]outcome(nil), c.outcomes[trim:]...)
	}
}

// ---- JSON snapshot ----

// LatencyStats are read-time percentiles over the last N samples.
type LatencyStats struct {
	Count int     `json:"count"`
	MinMs float64 `json:"min_ms"`
	MaxMs float64 `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

type CacheStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate_percent"`
}

// Snapshot is the /metrics/json document.
type Snapshot struct {
	Timestamp      string                  `json:"timestamp"`
	UptimeSeconds  int64                   `json:"uptime_seconds"`
	ActiveSessions int                     `json:"active_sessions"`
	APICalls       map[string]any          `json:"api_calls"`
	Cache          map[string]any          `json:"cache"`
	Latency        map[string]LatencyStats `json:"latency"`
	Breakers       map[string]string       `json:"circuit_breakers"`
	BreakerOpens   map[string]int64        `json:"circuit_breaker_opens"`
	Errors         map[string]int64        `json:"errors"`
	Retries        map[string]int64        `json:"retries"`
}

func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	apiCalls := map[string]any{}
	var totalCalls int64
	for service, byStatus := range c.apiCalls {
		statuses := map[string]int64{}
		var serviceTotal int64
		for status, count := range byStatus {
			statuses[strconv.Itoa(status)] = count
			serviceTotal += count
		}
		totalCalls += serviceTotal
		apiCalls[service] = map[string]any{"total": serviceTotal, "by_status": statuses}
	}
	apiCalls["total"] = totalCalls

	byTool := map[string]CacheStats{}
	var hits, misses int64
	for tool, count := range c.hitCounts {
		entry := byTool[tool]
		entry.Hits = count
		byTool[tool] = entry
		hits += count
	}
	for tool, count := range c.missCounts {
		entry := byTool[tool]
		entry.Misses = count
		byTool[tool] = entry
		misses += count
	}
	for tool, entry := range byTool {
		if total := entry.Hits + entry.Misses; total > 0 {
			entry.HitRate = round2(float64(entry.Hits) / float64(total) * 100)
		}
		byTool[tool] = entry
	}
	hitRate := 0.0
	if hits+misses > 0 {
		hitRate = round2(float64(hits) / float64(hits+misses) * 100)
	}

	latency := map[string]LatencyStats{}
	for key, ring := range c.upSamples {
		if stats, ok := ring.stats(); ok {
			latency[key] = stats
		}
	}
	for tool, ring := range c.rpcSamples {
		if stats, ok := ring.stats(); ok {
			latency["rpc|"+tool] = stats
		}
	}

	breakers := map[string]string{}
	for service, state := range c.breakerStates {
		breakers[service] = string(state)
	}

	return Snapshot{
		Timestamp:      c.now().UTC().Format(time.RFC3339),
		UptimeSeconds:  int64(c.now().Sub(c.start).Seconds()),
		ActiveSessions: c.sessions,
		APICalls:       apiCalls,
		Cache: map[string]any{
			"total_hits":       hits,
			"total_misses":     misses,
			"hit_rate_percent": hitRate,
			"entries":          c.entries,
			"by_tool":          byTool,
		},
		Latency:      latency,
		Breakers:     breakers,
		BreakerOpens: copyCounts(c.breakerOpened),
		Errors:       copyCounts(c.errorCounts),
		Retries:      copyCounts(c.retryCounts),
	}
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

// ---- sample ring ----

// sampleRing keeps the most recent N latency samples for percentile
// estimation at read time.
type sampleRing struct {
	samples []float64
	next    int
	full    bool
}

func newSampleRing(size int) *sampleRing {
	if size <= 0 {
		size = 1
	}
	return &sampleRing{samples: make([]float64, size)}
}

func (r *sampleRing) add(v float64) {
	r.samples[r.next] = v
	r.next++
	if r.next == len(r.samples) {
		r.next = 0
		r.full = true
	}
}

func (r *sampleRing) stats() (LatencyStats, bool) {
	count := r.next
	if r.full {
		count = len(r.samples)
	}
	if count == 0 {
		return LatencyStats{}, false
	}

	sorted := make([]float64, count)
	copy(sorted, r.samples[:count])
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}

	return LatencyStats{
		Count: count,
		MinMs: round2(sorted[0]),
		MaxMs: round2(sorted[count-1]),
		AvgMs: round2(sum / float64(count)),
		P50Ms: round2(percentile(sorted, 0.50)),
		P95Ms: round2(percentile(sorted, 0.95)),
		P99Ms: round2(percentile(sorted, 0.99)),
	}, true
}

func percentile(sorted []float64, q float64) float64 {
	idx := int(float64(len(sorted)) * q)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
