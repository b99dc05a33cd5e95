package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lxzan/gws"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	return NewClient(Config{
		URL:               func() string { return "wss://example.test/stream" },
		ReconnectBaseWait: time.Second,
	}, nil, zerolog.Nop())
}

func TestBackoff(t *testing.T) {
	c := newTestClient()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{5, 32 * time.Second},
		// Exponent capped at 5: the wait stays bounded however long the
		// outage lasts.
		{6, 32 * time.Second},
		{100, 32 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.backoff(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestThrottleDelayGrowsWithinMinute(t *testing.T) {
	c := newTestClient()

	// First reconnect in a minute is free.
	assert.Equal(t, time.Duration(0), c.throttleDelay())

	// Subsequent reconnects in the same minute pay a growing pause.
	d2 := c.throttleDelay()
	assert.Greater(t, d2, time.Duration(0))
	var last time.Duration
	for i := 0; i < 20; i++ {
		last = c.throttleDelay()
	}
	assert.Greater(t, last, d2)
	assert.Less(t, last, 2*time.Second)
}

func TestThrottleDelayResetsOnNewMinute(t *testing.T) {
	c := newTestClient()
	for i := 0; i < 10; i++ {
		c.throttleDelay()
	}
	c.throttleMinute = 0 // simulate a minute boundary
	assert.Equal(t, time.Duration(0), c.throttleDelay())
}

func TestConnStateString(t *testing.T) {
	assert.Equal(t, "reconnecting", StateReconnecting.String())
	assert.Equal(t, "closed", StateClosed.String())
}

func TestStateTransitions(t *testing.T) {
	s := &State{}
	s.Store(StateDisconnected)

	assert.True(t, s.CompareAndSwap(StateDisconnected, StateConnecting))
	assert.False(t, s.CompareAndSwap(StateDisconnected, StateConnecting))
	s.Store(StateConnected)
	assert.Equal(t, StateConnected, s.Load())
}

func TestWriteTextRequiresConnection(t *testing.T) {
	c := newTestClient()
	assert.Error(t, c.WriteText([]byte("ping")))
}

func TestReconnectAfterDrop(t *testing.T) {
	var mu sync.Mutex
	var conns []*gws.Conn
	upgrader := gws.NewUpgrader(&gws.BuiltinEventHandler{}, &gws.ServerOption{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		socket, err := upgrader.Upgrade(w, r)
		if err != nil {
			return
		}
		mu.Lock()
		conns = append(conns, socket)
		mu.Unlock()
		go socket.ReadLoop()
	}))
	defer srv.Close()

	c := NewClient(Config{
		URL:               func() string { return "ws" + strings.TrimPrefix(srv.URL, "http") },
		ReconnectEnabled:  true,
		ReconnectBaseWait: 10 * time.Millisecond,
	}, nil, zerolog.Nop())
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	require.Equal(t, StateConnected, c.State())

	// Kill the transport out from under the client.
	mu.Lock()
	first := conns[0]
	mu.Unlock()
	_ = first.NetConn().Close()

	// State() alone can't signal recovery here: it still reads
	// StateConnected before the client notices the dropped transport, so
	// wait for the second dial to land as well.
	assert.Eventually(t, func() bool {
		mu.Lock()
		redialed := len(conns) >= 2
		mu.Unlock()
		return redialed && c.State() == StateConnected
	}, 5*time.Second, 20*time.Millisecond, "client did not recover after drop")

	mu.Lock()
	dials := len(conns)
	mu.Unlock()
	assert.GreaterOrEqual(t, dials, 2)
}
