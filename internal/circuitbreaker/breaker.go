// Package circuitbreaker gates outbound requests behind a three-state
// breaker: consecutive failures trip it open, a cooldown lets a probe
// through, and consecutive probe successes close it again.
package circuitbreaker

import (
	"sync"
	"time"
)

// State is the breaker's position.
type State int

// Breaker states.
const (
	// StateClosed passes all requests through.
	StateClosed State = iota
	// StateOpen rejects requests until the cooldown elapses.
	StateOpen
	// StateHalfOpen passes probe requests while recovery is unconfirmed.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	}
	return "UNKNOWN"
}

// Config holds the breaker thresholds.
type Config struct {
	// FailThreshold is the number of consecutive failures that trip the
	// breaker open.
	FailThreshold int `json:"fail_threshold"`
	// SuccessThreshold is the number of consecutive probe successes that
	// close it again.
	SuccessThreshold int `json:"success_threshold"`
	// Timeout is the cooldown before an open breaker admits a probe.
	Timeout time.Duration `json:"timeout"`
}

// Breaker tracks request outcomes and decides whether the next request may
// proceed. Safe for concurrent use.
type Breaker struct {
	mu        sync.Mutex
	cfg       Config
	state     State
	failures  int
	successes int
	openedAt  time.Time

	now func() time.Time
}

// New returns a closed breaker with the given thresholds.
func New(cfg Config) *Breaker {
	return &Breaker{cfg: cfg, now: time.Now}
}

// Allow reports whether a request may proceed. An open breaker whose
// cooldown has elapsed moves to half-open and admits the request as a probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.maybeProbe() {
	case StateClosed, StateHalfOpen:
		return true
	}
	return false
}

// Record feeds a request outcome into the state machine.
func (b *Breaker) Record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.maybeProbe() {
	case StateClosed:
		if success {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.cfg.FailThreshold {
			b.trip()
		}
	case StateHalfOpen:
		if !success {
			b.trip()
			return
		}
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.state = StateClosed
			b.failures = 0
			b.successes = 0
		}
	}
}

// maybeProbe promotes an open breaker to half-open once the cooldown has
// elapsed. Caller holds the lock.
func (b *Breaker) maybeProbe() State {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.Timeout {
		b.state = StateHalfOpen
		b.successes = 0
	}
	return b.state
}

func (b *Breaker) trip() {
	b.state = StateOpen
	b.openedAt = b.now()
	b.successes = 0
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset forces the breaker closed and clears the counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
}

// Failures returns the current consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Successes returns the current consecutive probe success count.
func (b *Breaker) Successes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.successes
}
