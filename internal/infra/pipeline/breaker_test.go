package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ddigate/internal/domain"
)

func newTestBreaker(threshold int, reset time.Duration) (*Breaker, *fakeClock) {
	clock := &fakeClock{at: time.Unix(1700000000, 0)}
	b := NewBreaker("upstream", threshold, reset, nil, nil)
	b.now = clock.Now
	return b, clock
}

type fakeClock struct {
	at time.Time
}

func (c *fakeClock) Now() time.Time          { return c.at }
func (c *fakeClock) Advance(d time.Duration) { c.at = c.at.Add(d) }

func TestBreaker_OpensOnExactlyThresholdFailures(t *testing.T) {
	b, _ := newTestBreaker(5, time.Minute)

	for i := 0; i < 4; i++ {
		require.NoError(t, b.Allow())
		b.RecordFailure(true)
	}
	require.Equal(t, domain.BreakerClosed, b.State(), "threshold-1 failures must not trip")

	require.NoError(t, b.Allow())
	b.RecordFailure(true)
	require.Equal(t, domain.BreakerOpen, b.State())
}

func TestBreaker_FastFailsWhileOpen(t *testing.T) {
	b, clock := newTestBreaker(1, time.Minute)
	require.NoError(t, b.Allow())
	b.RecordFailure(true)
	require.Equal(t, domain.BreakerOpen, b.State())

	clock.Advance(30 * time.Second)
	err := b.Allow()
	require.Error(t, err)
	require.Equal(t, domain.KindCircuitOpen, domain.KindFrom(err))
	require.Equal(t, 30*time.Second, domain.RetryAfterFrom(err))
}

func TestBreaker_ExcludedFailuresNeverCount(t *testing.T) {
	b, _ := newTestBreaker(2, time.Minute)

	for i := 0; i < 10; i++ {
		require.NoError(t, b.Allow())
		b.RecordFailure(false)
	}
	require.Equal(t, domain.BreakerClosed, b.State())
}

func TestBreaker_SuccessResetsConsecutiveCount(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	b.RecordFailure(true)
	b.RecordFailure(true)
	b.RecordSuccess()
	b.RecordFailure(true)
	b.RecordFailure(true)
	require.Equal(t, domain.BreakerClosed, b.State())

	b.RecordFailure(true)
	require.Equal(t, domain.BreakerOpen, b.State())
}

func TestBreaker_HalfOpenSingleProbe(t *testing.T) {
	b, clock := newTestBreaker(1, time.Minute)
	require.NoError(t, b.Allow())
	b.RecordFailure(true)

	clock.Advance(61 * time.Second)
	require.NoError(t, b.Allow(), "first call after reset timeout is the probe")
	require.Equal(t, domain.BreakerHalfOpen, b.State())

	err := b.Allow()
	require.Equal(t, domain.KindCircuitOpen, domain.KindFrom(err), "second concurrent call is rejected")
}

func TestBreaker_RecoveryClosesAfterProbeSuccess(t *testing.T) {
	b, clock := newTestBreaker(1, time.Minute)
	require.NoError(t, b.Allow())
	b.RecordFailure(true)

	clock.Advance(61 * time.Second)
	require.NoError(t, b.Allow())
	b.RecordSuccess()
	require.Equal(t, domain.BreakerClosed, b.State())
	require.NoError(t, b.Allow())
}

func TestBreaker_ProbeFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(3, time.Minute)
	for i := 0; i < 3; i++ {
		b.RecordFailure(true)
	}
	require.Equal(t, domain.BreakerOpen, b.State())

	clock.Advance(61 * time.Second)
	require.NoError(t, b.Allow())
	b.RecordFailure(true)
	require.Equal(t, domain.BreakerOpen, b.State(), "a single counted probe failure reopens")
}

func TestBreaker_OpenedForTracksAge(t *testing.T) {
	b, clock := newTestBreaker(1, time.Minute)
	require.Zero(t, b.OpenedFor())

	b.RecordFailure(true)
	clock.Advance(10 * time.Second)
	require.Equal(t, 10*time.Second, b.OpenedFor())
}

func TestBreaker_MetricsObserveTransitions(t *testing.T) {
	metrics := &recordingMetrics{}
	b := NewBreaker("svc", 1, time.Minute, metrics, nil)

	b.RecordFailure(true)
	require.Equal(t, 1, metrics.opened)
	require.Equal(t, domain.BreakerOpen, metrics.lastState)

	b.RecordSuccess()
	require.Equal(t, domain.BreakerClosed, metrics.lastState)
}

type recordingMetrics struct {
	domain.NoopMetrics
	opened    int
	lastState domain.BreakerState
	retries   int
	hits      int
	misses    int
}

func (m *recordingMetrics) BreakerOpened(string) { m.opened++ }
func (m *recordingMetrics) SetBreakerState(_ string, state domain.BreakerState) {
	m.lastState = state
}
func (m *recordingMetrics) ObserveRetry(string, string) { m.retries++ }
func (m *recordingMetrics) CacheHit(string)             { m.hits++ }
func (m *recordingMetrics) CacheMiss(string)            { m.misses++ }
