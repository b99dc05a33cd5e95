package ws

import "sync/atomic"

// ConnState is the lifecycle state of a connection.
type ConnState int32

const (
	// StateDisconnected means no connection and no dial in flight.
	StateDisconnected ConnState = iota
	// StateConnecting means a dial is in flight.
	StateConnecting
	// StateConnected means the connection is up.
	StateConnected
	// StateReconnecting means the connection dropped and the retry loop
	// owns the next dial.
	StateReconnecting
	// StateClosed is terminal.
	StateClosed
)

func (s ConnState) String() string {
	return [...]string{
		"disconnected",
		"connecting",
		"connected",
		"reconnecting",
		"closed",
	}[s]
}

// State is an atomic ConnState cell. Transitions go through
// CompareAndSwap so concurrent close, drop, and dial events cannot race
// each other into an inconsistent state.
type State struct {
	state atomic.Int32
}

// Load returns the current state.
func (s *State) Load() ConnState {
	return ConnState(s.state.Load())
}

// Store sets the state unconditionally.
func (s *State) Store(state ConnState) {
	s.state.Store(int32(state))
}

// CompareAndSwap transitions from old to new, reporting whether it won.
func (s *State) CompareAndSwap(old, new ConnState) bool {
	return s.state.CompareAndSwap(int32(old), int32(new))
}
