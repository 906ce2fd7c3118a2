package domain

import "time"

// BreakerState is the circuit breaker finite state machine state.
type BreakerState string

const (
	BreakerClosed   BreakerState = "CLOSED"
	BreakerOpen     BreakerState = "OPEN"
	BreakerHalfOpen BreakerState = "HALF_OPEN"
)

// GaugeValue maps the state onto the exported gauge encoding
// (0=closed, 0.5=half-open, 1=open).
func (s BreakerState) GaugeValue() float64 {
	switch s {
	case BreakerOpen:
		return 1
	case BreakerHalfOpen:
		return 0.5
	default:
		return 0
	}
}

// Metrics is the observability sink shared by the pipeline and the
// transport. Implementations must be safe for concurrent use.
type Metrics interface {
	ObserveRPC(tool, status string, duration time.Duration)
	ObserveRPCError(tool string, kind ErrorKind)
	ObserveUpstream(service, path string, status int, duration time.Duration)
	ObserveRetry(service, endpoint string)
	CacheHit(tool string)
	CacheMiss(tool string)
	SetCacheEntries(count int)
	BreakerOpened(service string)
	SetBreakerState(service string, state BreakerState)
	SetActiveSessions(count int)
}

// NoopMetrics discards every observation. Used in tests and as the default
// when no collector is wired.
type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics { return &NoopMetrics{} }

func (*NoopMetrics) ObserveRPC(string, string, time.Duration)           {}
func (*NoopMetrics) ObserveRPCError(string, ErrorKind)                  {}
func (*NoopMetrics) ObserveUpstream(string, string, int, time.Duration) {}
func (*NoopMetrics) ObserveRetry(string, string)                        {}
func (*NoopMetrics) CacheHit(string)                                    {}
func (*NoopMetrics) CacheMiss(string)                                   {}
func (*NoopMetrics) SetCacheEntries(int)                                {}
func (*NoopMetrics) BreakerOpened(string)                               {}
func (*NoopMetrics) SetBreakerState(string, BreakerState)               {}
func (*NoopMetrics) SetActiveSessions(int)                              {}

var _ Metrics = (*NoopMetrics)(nil)
