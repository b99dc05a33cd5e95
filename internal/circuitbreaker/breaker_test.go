package circuitbreaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestBreaker(cfg Config) (*Breaker, *time.Time) {
	b := New(cfg)
	now := time.Unix(1700000000, 0)
	b.now = func() time.Time { return now }
	return b, &now
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "CLOSED", StateClosed.String())
	assert.Equal(t, "OPEN", StateOpen.String())
	assert.Equal(t, "HALF_OPEN", StateHalfOpen.String())
	assert.Equal(t, "UNKNOWN", State(99).String())
}

func TestBreakerStartsClosed(t *testing.T) {
	b := New(Config{FailThreshold: 5, SuccessThreshold: 2, Timeout: 30 * time.Second})
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	b, _ := newTestBreaker(Config{FailThreshold: 3, SuccessThreshold: 2, Timeout: time.Second})

	b.Record(false)
	b.Record(false)
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 2, b.Failures())

	b.Record(false)
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreakerSuccessClearsFailureStreak(t *testing.T) {
	b, _ := newTestBreaker(Config{FailThreshold: 5, SuccessThreshold: 2, Timeout: time.Second})

	b.Record(false)
	b.Record(false)
	b.Record(false)
	assert.Equal(t, 3, b.Failures())

	b.Record(true)
	assert.Equal(t, 0, b.Failures())
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerProbesAfterCooldown(t *testing.T) {
	b, now := newTestBreaker(Config{FailThreshold: 2, SuccessThreshold: 2, Timeout: time.Second})

	b.Record(false)
	b.Record(false)
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())

	*now = now.Add(2 * time.Second)
	assert.True(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestBreakerClosesAfterProbeSuccesses(t *testing.T) {
	b, now := newTestBreaker(Config{FailThreshold: 2, SuccessThreshold: 2, Timeout: time.Second})

	b.Record(false)
	b.Record(false)
	*now = now.Add(2 * time.Second)

	b.Record(true)
	assert.Equal(t, StateHalfOpen, b.State())
	assert.Equal(t, 1, b.Successes())

	b.Record(true)
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 0, b.Successes())
}

func TestBreakerReopensOnProbeFailure(t *testing.T) {
	b, now := newTestBreaker(Config{FailThreshold: 2, SuccessThreshold: 2, Timeout: time.Second})

	b.Record(false)
	b.Record(false)
	*now = now.Add(2 * time.Second)

	b.Record(true)
	assert.Equal(t, StateHalfOpen, b.State())

	b.Record(false)
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())

	// Cooldown restarts from the probe failure.
	*now = now.Add(2 * time.Second)
	assert.True(t, b.Allow())
}

func TestBreakerReset(t *testing.T) {
	b, _ := newTestBreaker(Config{FailThreshold: 2, SuccessThreshold: 2, Timeout: time.Second})

	b.Record(false)
	b.Record(false)
	assert.Equal(t, StateOpen, b.State())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 0, b.Failures())
	assert.Equal(t, 0, b.Successes())
	assert.True(t, b.Allow())
}
