// Package stream implements the platform-agnostic websocket client: the
// subscription state machine, delivery of canonical items to the caller,
// and order book reassembly from diff feeds. Platform specifics enter
// through the Adapter interface implemented by each exchange package.
package stream

import (
	"net/http"
	"time"

	"omniex/internal/ws"
	"omniex/pkg/core"
)

// ConnState re-exports the connection lifecycle states.
type ConnState = ws.ConnState

const (
	StateDisconnected = ws.StateDisconnected
	StateConnecting   = ws.StateConnecting
	StateConnected    = ws.StateConnected
	StateReconnecting = ws.StateReconnecting
	StateClosed       = ws.StateClosed
)

// Adapter is the platform-specific half of a stream client. The client owns
// connection and subscription bookkeeping; the adapter renders URLs, wire
// commands, and parses inbound frames into canonical items.
type Adapter interface {
	// URL returns the connection URL for the given active subscription
	// set. Platforms that bake subscriptions into the URL use the set;
	// others ignore it.
	URL(subscriptions []string) string
	// ConnectionHeaders returns extra dial headers, typically signed auth.
	ConnectionHeaders() (http.Header, error)
	// SubscribeCommand renders the wire command adding the given
	// subscriptions. ok is false when the platform has no subscribe
	// command and needs a URL reconnect instead.
	SubscribeCommand(subscriptions []string) (any, bool)
	// UnsubscribeCommand renders the wire command removing subscriptions.
	UnsubscribeCommand(subscriptions []string) (any, bool)
	// HandleMessage parses one raw frame into canonical items. Control
	// frames (acks, heartbeats) return no items; subscription acks are
	// reported through the client's MarkSubscription before returning.
	HandleMessage(client *Client, data []byte) ([]any, error)
	// KnownSymbols lists the platform's symbols, used when the caller
	// subscribes with a nil symbol list.
	KnownSymbols() []string
}

// Config holds stream client options.
type Config struct {
	Reconnect            bool
	ReconnectMaxAttempts int
	ReconnectBaseWait    time.Duration
	PingInterval         time.Duration
	PongWait             time.Duration
	// BufferSize is the capacity of the items channel.
	BufferSize int
}

// DefaultConfig returns the default stream options: reconnect forever with
// bounded backoff.
func DefaultConfig() Config {
	return Config{
		Reconnect:  true,
		BufferSize: 1024,
	}
}

// Subscription pairs a platform subscription string with its canonical
// origin, as reported by SubscriptionStates.
type Subscription struct {
	Key      string
	Endpoint core.Endpoint
	Symbol   string
	State    SubscriptionState
}

// SubscriptionState tracks one subscription through its lifecycle.
type SubscriptionState int

const (
	// SubscriptionPending is requested but not yet sent, either because
	// the connection is down or the command is in flight.
	SubscriptionPending SubscriptionState = iota
	// SubscriptionActive has been sent and, when the platform acks
	// subscriptions, confirmed.
	SubscriptionActive
	// SubscriptionFailed was rejected by the platform.
	SubscriptionFailed
)

func (s SubscriptionState) String() string {
	return [...]string{"pending", "active", "failed"}[s]
}
