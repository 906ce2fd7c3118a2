package pipeline

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"ddigate/internal/domain"
)

// Breaker is the per-service circuit breaker. It trips to OPEN after a run
// of counted consecutive failures, fast-fails while open, and admits a
// single probe once the reset timeout has elapsed.
type Breaker struct {
	service      string
	threshold    int
	resetTimeout time.Duration
	metrics      domain.Metrics
	logger       *zap.Logger
	now          func() time.Time

	mu            sync.Mutex
	state         domain.BreakerState
	failures      int
	lastChange    time.Time
	openCount     int
	probeInFlight bool
}

func NewBreaker(service string, threshold int, resetTimeout time.Duration, metrics domain.Metrics, logger *zap.Logger) *Breaker {
	if threshold <= 0 {
		threshold = domain.DefaultBreakerFailureThreshold
	}
	if resetTimeout <= 0 {
		resetTimeout = domain.DefaultBreakerResetTimeout
	}
	if metrics == nil {
		metrics = domain.NewNoopMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Breaker{
		service:      service,
		threshold:    threshold,
		resetTimeout: resetTimeout,
		metrics:      metrics,
		logger:       logger.Named("breaker"),
		now:          time.Now,
		state:        domain.BreakerClosed,
	}
}

// Allow reports whether a call may proceed. While OPEN and before the reset
// timeout it returns a CIRCUIT_OPEN error without admitting the call; once
// the timeout elapses it transitions to HALF_OPEN and admits one probe.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case domain.BreakerClosed:
		return nil
	case domain.BreakerOpen:
		if b.now().Sub(b.lastChange) < b.resetTimeout {
			return b.openError()
		}
		b.transition(domain.BreakerHalfOpen)
		b.probeInFlight = true
		return nil
	default: // HALF_OPEN
		if b.probeInFlight {
			return b.openError()
		}
		b.probeInFlight = true
		return nil
	}
}

// RecordSuccess resets the consecutive-failure counter and closes the
// breaker after a successful half-open probe.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.probeInFlight = false
	if b.state != domain.BreakerClosed {
		b.transition(domain.BreakerClosed)
	}
}

// RecordFailure counts a failure toward the trip threshold when counted is
// true. Excluded failures release a half-open probe without reopening.
func (b *Breaker) RecordFailure(counted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probeInFlight = false
	if !counted {
		return
	}

	if b.state == domain.BreakerHalfOpen {
		b.open()
		return
	}

	b.failures++
	if b.state == domain.BreakerClosed && b.failures >= b.threshold {
		b.open()
	}
}

// State returns the current FSM state.
func (b *Breaker) State() domain.BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// OpenedFor returns how long the breaker has been OPEN, or zero.
func (b *Breaker) OpenedFor() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != domain.BreakerOpen {
		return 0
	}
	return b.now().Sub(b.lastChange)
}

func (b *Breaker) open() {
	b.failures = 0
	b.openCount++
	b.transition(domain.BreakerOpen)
	b.metrics.BreakerOpened(b.service)
}

func (b *Breaker) transition(next domain.BreakerState) {
	prev := b.state
	b.state = next
	b.lastChange = b.now()
	b.metrics.SetBreakerState(b.service, next)
	b.logger.Warn("circuit_breaker_state_change",
		zap.String("service", b.service),
		zap.String("from", string(prev)),
		zap.String("to", string(next)),
		zap.Int("open_count", b.openCount),
	)
}

func (b *Breaker) openError() error {
	return &domain.Error{
		Kind:       domain.KindCircuitOpen,
		Op:         b.service,
		Message:    "circuit breaker open",
		RetryAfter: b.resetTimeout - b.now().Sub(b.lastChange),
	}
}
