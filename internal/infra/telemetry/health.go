package telemetry

import (
	"fmt"
	"sort"
	"time"

	"ddigate/internal/domain"
)

// HealthStatus is the derived gateway condition.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// BreakerStatus mirrors one breaker for health evaluation.
type BreakerStatus struct {
	State   domain.BreakerState
	OpenFor time.Duration
}

// HealthReport is the /health response body.
type HealthReport struct {
	Status        HealthStatus   `json:"status"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Issues        []string       `json:"issues"`
	Metrics       map[string]any `json:"metrics"`
}

// Health derives a status from the metric registers and breaker states.
type Health struct {
	collector    *Collector
	breakers     func() map[string]BreakerStatus
	window       time.Duration
	hitRateFloor float64
	// openGrace is how long a breaker may stay OPEN before the gateway
	// reports unhealthy rather than degraded.
	openGrace time.Duration
	// minCacheObservations gates the hit-rate floor so cold starts are
	// not reported degraded.
	minCacheObservations int64
}

func NewHealth(collector *Collector, breakers func() map[string]BreakerStatus, hitRateFloor float64) *Health {
	if breakers == nil {
		breakers = func() map[string]BreakerStatus { return nil }
	}
	if hitRateFloor <= 0 {
		hitRateFloor = domain.DefaultCacheHitRateFloor
	}
	return &Health{
		collector:            collector,
		breakers:             breakers,
		window:               domain.DefaultHealthWindow,
		hitRateFloor:         hitRateFloor,
		openGrace:            60 * time.Second,
		minCacheObservations: 20,
	}
}

func (h *Health) Report() HealthReport {
	var issues []string
	status := HealthHealthy

	degrade := func(issue string) {
		issues = append(issues, issue)
		if status == HealthHealthy {
			status = HealthDegraded
		}
	}
	fail := func(issue string) {
		issues = append(issues, issue)
		status = HealthUnhealthy
	}

	states := h.breakers()
	services := make([]string, 0, len(states))
	for service := range states {
		services = append(services, service)
	}
	sort.Strings(services)
	for _, service := range services {
		breaker := states[service]
		switch breaker.State {
		case domain.BreakerOpen:
			if breaker.OpenFor > h.openGrace {
				fail(fmt.Sprintf("circuit breaker for %s open for %s", service, breaker.OpenFor.Round(time.Second)))
			} else {
				degrade(fmt.Sprintf("circuit breaker for %s open", service))
			}
		case domain.BreakerHalfOpen:
			degrade(fmt.Sprintf("circuit breaker for %s half-open", service))
		}
	}

	errorRate, observed := h.collector.ErrorRate(h.window)
	switch {
	case observed > 0 && errorRate >= domain.UnhealthyErrorRate:
		fail(fmt.Sprintf("error rate %.1f%% over the last %s", errorRate*100, h.window))
	case observed > 0 && errorRate >= domain.DegradedErrorRate:
		degrade(fmt.Sprintf("error rate %.1f%% over the last %s", errorRate*100, h.window))
	}

	hitRate, cacheObserved := h.collector.CacheHitRate()
	if cacheObserved >= h.minCacheObservations && hitRate < h.hitRateFloor {
		degrade(fmt.Sprintf("cache hit rate %.1f%% below %.1f%% floor", hitRate*100, h.hitRateFloor*100))
	}

	if issues == nil {
		issues = []string{}
	}

	snapshot := h.collector.Snapshot()
	return HealthReport{
		Status:        status,
		UptimeSeconds: snapshot.UptimeSeconds,
		Issues:        issues,
		Metrics: map[string]any{
			"error_rate":         round2(errorRate * 100),
			"requests_in_window": observed,
			"cache_hit_rate":     round2(hitRate * 100),
			"active_sessions":    snapshot.ActiveSessions,
			"circuit_breakers":   snapshot.Breakers,
		},
	}
}
