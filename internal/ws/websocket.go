// Package ws provides the low-level websocket connection used by the stream
// layer: dialing with per-attempt URL and header providers, keepalive, and
// automatic reconnection with capped exponential backoff and a per-minute
// reconnect throttle.
package ws

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/lxzan/gws"
	"github.com/rs/zerolog"
)

// Handler receives connection lifecycle events and raw frames. All methods
// are called from the connection's read goroutine.
type Handler interface {
	// OnConnected fires after every successful dial. reconnected is false
	// on the first connect and true afterwards, so the owner knows when to
	// replay subscriptions.
	OnConnected(reconnected bool)
	// OnDisconnected fires when the connection drops or is closed.
	OnDisconnected(err error)
	// OnMessage delivers one raw text frame.
	OnMessage(data []byte)
}

// Config holds connection options. URL is evaluated on every dial because
// some platforms bake the subscription set into the connection URL; Headers
// likewise, because signed auth headers carry an expiry.
type Config struct {
	URL     func() string
	Headers func() (http.Header, error)

	ReconnectEnabled bool
	// ReconnectMaxAttempts bounds consecutive failed dials. Zero means
	// retry forever; the backoff cap keeps the wait bounded instead.
	ReconnectMaxAttempts int
	// ReconnectBaseWait is the backoff unit. The first retry after a drop
	// waits zero; attempt n then waits base doubled per attempt, with the
	// exponent capped.
	ReconnectBaseWait    time.Duration
	BackoffExponentCap   int
	PingInterval         time.Duration
	PongWait             time.Duration
}

// Client is a single reconnecting websocket connection.
type Client struct {
	config  Config
	state   *State
	handler Handler
	log     zerolog.Logger

	mu            sync.Mutex
	conn          *gws.Conn
	connectedChan chan struct{}
	stopChan      chan struct{}
	wasConnected  bool
	attempts      int

	throttleMu       sync.Mutex
	throttleMinute   int64
	reconnectsMinute int
}

// NewClient builds a client. Zero config fields get defaults.
func NewClient(config Config, handler Handler, log zerolog.Logger) *Client {
	if config.ReconnectBaseWait == 0 {
		config.ReconnectBaseWait = time.Second
	}
	if config.BackoffExponentCap == 0 {
		config.BackoffExponentCap = 5
	}
	if config.PingInterval == 0 {
		config.PingInterval = 10 * time.Second
	}
	if config.PongWait == 0 {
		config.PongWait = 20 * time.Second
	}
	c := &Client{
		config:        config,
		state:         &State{},
		handler:       handler,
		log:           log,
		connectedChan: make(chan struct{}),
		stopChan:      make(chan struct{}),
	}
	c.state.Store(StateDisconnected)
	return c
}

type eventHandler struct {
	client *Client
}

func (h *eventHandler) OnOpen(socket *gws.Conn) {
	c := h.client
	c.state.Store(StateConnected)

	c.mu.Lock()
	c.attempts = 0
	reconnected := c.wasConnected
	c.wasConnected = true
	select {
	case <-c.connectedChan:
	default:
		close(c.connectedChan)
	}
	c.mu.Unlock()

	c.log.Info().Str("url", c.config.URL()).Msg("websocket connected")
	_ = socket.SetDeadline(time.Now().Add(c.config.PingInterval + c.config.PongWait))

	if c.handler != nil {
		c.handler.OnConnected(reconnected)
	}
}

func (h *eventHandler) OnClose(socket *gws.Conn, err error) {
	c := h.client
	if c.state.Load() == StateClosed {
		if c.handler != nil {
			c.handler.OnDisconnected(err)
		}
		return
	}
	c.state.Store(StateDisconnected)

	c.mu.Lock()
	c.connectedChan = make(chan struct{})
	c.mu.Unlock()

	c.log.Warn().Err(err).Msg("websocket disconnected")
	if c.handler != nil {
		c.handler.OnDisconnected(err)
	}

	if c.config.ReconnectEnabled {
		select {
		case <-c.stopChan:
		default:
			go c.reconnectLoop()
		}
	}
}

func (h *eventHandler) OnPing(socket *gws.Conn, payload []byte) {
	_ = socket.SetDeadline(time.Now().Add(h.client.config.PingInterval + h.client.config.PongWait))
	_ = socket.WritePong(nil)
}

func (h *eventHandler) OnPong(socket *gws.Conn, payload []byte) {
	_ = socket.SetDeadline(time.Now().Add(h.client.config.PingInterval + h.client.config.PongWait))
}

func (h *eventHandler) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()
	data := message.Bytes()
	if len(data) == 0 {
		return
	}
	if h.client.handler != nil {
		h.client.handler.OnMessage(data)
	}
}

// Connect dials the configured URL and blocks until the connection is
// established, the context expires, or the client is closed. Connecting an
// already connected client is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	if !c.state.CompareAndSwap(StateDisconnected, StateConnecting) &&
		!c.state.CompareAndSwap(StateReconnecting, StateConnecting) {
		current := c.state.Load()
		if current == StateConnected {
			return nil
		}
		return fmt.Errorf("invalid state for connect: %s", current)
	}

	// Headers are built first: they may refresh auth material that the
	// URL embeds (listen keys, expiring tokens).
	option := &gws.ClientOption{}
	if c.config.Headers != nil {
		headers, err := c.config.Headers()
		if err != nil {
			c.state.Store(StateDisconnected)
			return fmt.Errorf("build connection headers: %w", err)
		}
		option.RequestHeader = headers
	}
	option.Addr = c.config.URL()

	socket, _, err := gws.NewClient(&eventHandler{client: c}, option)
	if err != nil {
		c.state.Store(StateDisconnected)
		return fmt.Errorf("connect websocket: %w", err)
	}

	c.mu.Lock()
	c.conn = socket
	connected := c.connectedChan
	c.mu.Unlock()

	go socket.ReadLoop()

	select {
	case <-connected:
		return nil
	case <-ctx.Done():
		_ = socket.NetConn().Close()
		c.state.Store(StateDisconnected)
		return ctx.Err()
	case <-c.stopChan:
		_ = socket.NetConn().Close()
		c.state.Store(StateClosed)
		return fmt.Errorf("client stopped")
	}
}

// Reconnect drops the current connection and dials again, picking up a
// fresh URL and headers. Used when the platform bakes subscriptions into
// the connection URL.
func (c *Client) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		_ = conn.NetConn().Close()
	}
	// Let the close event settle before redialing.
	for i := 0; i < 100 && c.state.Load() == StateConnected; i++ {
		time.Sleep(10 * time.Millisecond)
	}
	return c.Connect(ctx)
}

// Close shuts the connection down permanently.
func (c *Client) Close() error {
	if !c.state.CompareAndSwap(StateConnected, StateClosed) &&
		!c.state.CompareAndSwap(StateConnecting, StateClosed) &&
		!c.state.CompareAndSwap(StateReconnecting, StateClosed) &&
		!c.state.CompareAndSwap(StateDisconnected, StateClosed) {
		return nil
	}
	close(c.stopChan)

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		_ = conn.NetConn().Close()
	}
	return nil
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	return c.state.Load()
}

// IsConnected reports whether the connection is up.
func (c *Client) IsConnected() bool {
	return c.state.Load() == StateConnected
}

// WriteText sends one raw text frame.
func (c *Client) WriteText(data []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil || c.state.Load() != StateConnected {
		return fmt.Errorf("websocket not connected")
	}
	return conn.WriteMessage(gws.OpcodeText, data)
}

// SendJSON marshals v and sends it as a text frame.
func (c *Client) SendJSON(v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	return c.WriteText(data)
}

func (c *Client) reconnectLoop() {
	if !c.state.CompareAndSwap(StateDisconnected, StateReconnecting) {
		return
	}

	for {
		select {
		case <-c.stopChan:
			return
		default:
		}

		c.mu.Lock()
		attempt := c.attempts
		c.attempts++
		c.mu.Unlock()

		if c.config.ReconnectMaxAttempts > 0 && attempt >= c.config.ReconnectMaxAttempts {
			c.log.Error().Int("attempts", attempt).Msg("reconnect attempts exhausted")
			c.state.Store(StateDisconnected)
			return
		}

		wait := c.backoff(attempt) + c.throttleDelay()
		if wait > 0 {
			c.log.Info().Dur("wait", wait).Int("attempt", attempt+1).Msg("reconnecting")
			select {
			case <-time.After(wait):
			case <-c.stopChan:
				return
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.Connect(ctx)
		cancel()
		if err != nil {
			c.log.Error().Err(err).Int("attempt", attempt+1).Msg("reconnect failed")
			c.state.Store(StateReconnecting)
			continue
		}
		return
	}
}

// backoff returns the wait before a retry: zero for the first attempt after
// a drop, then the base doubled per attempt with the exponent capped, so
// the wait stays bounded without bounding the attempt count.
func (c *Client) backoff(attempt int) time.Duration {
	if attempt == 0 {
		return 0
	}
	exp := attempt
	if exp > c.config.BackoffExponentCap {
		exp = c.config.BackoffExponentCap
	}
	return c.config.ReconnectBaseWait * time.Duration(1<<uint(exp))
}

// throttleDelay adds a pause that grows with the number of reconnects in
// the current minute, guarding against tight reconnect storms that look
// fine to the backoff because each individual dial succeeds.
func (c *Client) throttleDelay() time.Duration {
	c.throttleMu.Lock()
	defer c.throttleMu.Unlock()

	minute := time.Now().Unix() / 60
	if minute != c.throttleMinute {
		c.throttleMinute = minute
		c.reconnectsMinute = 0
	}
	c.reconnectsMinute++

	n := c.reconnectsMinute
	if n > 59 {
		n = 59
	}
	if n <= 1 {
		return 0
	}
	return time.Duration(math.Log10(float64(n)) * float64(time.Second))
}
