package stream

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"omniex/internal/ws"
	"omniex/pkg/convert"
	"omniex/pkg/core"
)

// Client is a platform-agnostic websocket client. It tracks the requested
// subscription set across connects, disconnects, and platform rejections,
// and delivers parsed canonical items through a channel and optional
// callbacks.
type Client struct {
	cfg     Config
	conv    *convert.WSConverter
	adapter Adapter
	conn    *ws.Client
	log     zerolog.Logger

	mu                sync.Mutex
	subscriptions     map[string]SubscriptionState
	symbolsByEndpoint map[core.Endpoint][]string

	closeMu sync.RWMutex
	closed  bool
	items   chan any
	onItem  func(any)
	onBatch func([]any)
	onError func(error)
}

// NewClient builds a stream client around a platform adapter and its
// converter.
func NewClient(cfg Config, conv *convert.WSConverter, adapter Adapter, log zerolog.Logger) *Client {
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 1024
	}
	c := &Client{
		cfg:               cfg,
		conv:              conv,
		adapter:           adapter,
		log:               log,
		subscriptions:     make(map[string]SubscriptionState),
		symbolsByEndpoint: make(map[core.Endpoint][]string),
		items:             make(chan any, cfg.BufferSize),
	}
	c.conn = ws.NewClient(ws.Config{
		URL:                  c.connectionURL,
		Headers:              adapter.ConnectionHeaders,
		ReconnectEnabled:     cfg.Reconnect,
		ReconnectMaxAttempts: cfg.ReconnectMaxAttempts,
		ReconnectBaseWait:    cfg.ReconnectBaseWait,
		PingInterval:         cfg.PingInterval,
		PongWait:             cfg.PongWait,
	}, c, log)
	return c
}

func (c *Client) connectionURL() string {
	return c.adapter.URL(c.subscriptionKeys())
}

func (c *Client) subscriptionKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.subscriptions))
	for key := range c.subscriptions {
		keys = append(keys, key)
	}
	return keys
}

// Items returns the channel delivering parsed canonical items.
func (c *Client) Items() <-chan any {
	return c.items
}

// OnItem registers a per-item callback, invoked before the channel send.
func (c *Client) OnItem(fn func(any)) { c.onItem = fn }

// OnBatch registers a per-frame callback receiving each parsed batch.
func (c *Client) OnBatch(fn func([]any)) { c.onBatch = fn }

// OnError registers a callback for parse and dispatch errors.
func (c *Client) OnError(fn func(error)) { c.onError = fn }

// Connect dials the platform. Connecting an already connected client is a
// no-op; subscriptions requested while disconnected are sent once the
// connection is up.
func (c *Client) Connect(ctx context.Context) error {
	return c.conn.Connect(ctx)
}

// Close shuts the client down permanently. Closing twice is a no-op.
func (c *Client) Close() error {
	err := c.conn.Close()
	c.closeMu.Lock()
	if !c.closed {
		c.closed = true
		close(c.items)
	}
	c.closeMu.Unlock()
	return err
}

// State returns the connection state.
func (c *Client) State() ConnState {
	return c.conn.State()
}

// Subscribe requests the cartesian set of endpoints, symbols, and params.
// A nil symbol list means every symbol the platform knows. Already active
// subscriptions are kept; only the delta goes on the wire. While
// disconnected the request is recorded and flushed on connect.
func (c *Client) Subscribe(ctx context.Context, endpoints []core.Endpoint, symbols []string, params core.Params) error {
	if symbols == nil {
		symbols = c.adapter.KnownSymbols()
	}
	subs, err := c.conv.GenerateSubscriptions(endpoints, symbols, params)
	if err != nil {
		return err
	}

	c.mu.Lock()
	for _, endpoint := range endpoints {
		c.symbolsByEndpoint[endpoint] = symbols
	}
	delta := make([]string, 0, len(subs))
	for _, sub := range subs {
		if _, exists := c.subscriptions[sub]; !exists {
			c.subscriptions[sub] = SubscriptionPending
			delta = append(delta, sub)
		}
	}
	c.mu.Unlock()

	if len(delta) == 0 || !c.conn.IsConnected() {
		return nil
	}
	return c.sendSubscribe(ctx, delta)
}

// Unsubscribe removes the cartesian set and sends the delta that was
// actually subscribed.
func (c *Client) Unsubscribe(ctx context.Context, endpoints []core.Endpoint, symbols []string, params core.Params) error {
	if symbols == nil {
		symbols = c.adapter.KnownSymbols()
	}
	subs, err := c.conv.GenerateSubscriptions(endpoints, symbols, params)
	if err != nil {
		return err
	}

	c.mu.Lock()
	delta := make([]string, 0, len(subs))
	for _, sub := range subs {
		if _, exists := c.subscriptions[sub]; exists {
			delete(c.subscriptions, sub)
			delta = append(delta, sub)
		}
	}
	for _, endpoint := range endpoints {
		delete(c.symbolsByEndpoint, endpoint)
	}
	c.mu.Unlock()

	for _, sub := range delta {
		c.conv.ForgetSubscription(sub)
	}
	if len(delta) == 0 || !c.conn.IsConnected() {
		return nil
	}
	if cmd, ok := c.adapter.UnsubscribeCommand(delta); ok {
		return c.conn.SendJSON(cmd)
	}
	return c.conn.Reconnect(ctx)
}

func (c *Client) sendSubscribe(ctx context.Context, subs []string) error {
	cmd, ok := c.adapter.SubscribeCommand(subs)
	if !ok {
		// Subscriptions live in the connection URL: redial with the
		// expanded set.
		return c.conn.Reconnect(ctx)
	}
	if err := c.conn.SendJSON(cmd); err != nil {
		return err
	}
	c.mu.Lock()
	for _, sub := range subs {
		if _, exists := c.subscriptions[sub]; exists {
			c.subscriptions[sub] = SubscriptionActive
		}
	}
	c.mu.Unlock()
	return nil
}

// MarkSubscription records a platform ack or rejection for a subscription.
// Called by adapters from their control-frame handling.
func (c *Client) MarkSubscription(sub string, ok bool, reason string) {
	c.mu.Lock()
	if _, exists := c.subscriptions[sub]; exists {
		if ok {
			c.subscriptions[sub] = SubscriptionActive
		} else {
			c.subscriptions[sub] = SubscriptionFailed
		}
	}
	c.mu.Unlock()
	if !ok {
		c.log.Warn().Str("subscription", sub).Str("reason", reason).Msg("subscription rejected")
	}
}

// Subscriptions reports the tracked subscription set with canonical
// origins and lifecycle states.
func (c *Client) Subscriptions() []Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Subscription, 0, len(c.subscriptions))
	for key, state := range c.subscriptions {
		s := Subscription{Key: key, State: state}
		if info, ok := c.conv.LookupSubscription(key); ok {
			s.Endpoint = info.Endpoint
			s.Symbol = info.Symbol
		}
		out = append(out, s)
	}
	return out
}

// SymbolsFor returns the symbol list recorded for an endpoint's last
// subscribe call.
func (c *Client) SymbolsFor(endpoint core.Endpoint) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.symbolsByEndpoint[endpoint]
}

// OnConnected implements ws.Handler. On every connect the full tracked set
// is (re)played; on URL-based platforms the dial already carried it.
func (c *Client) OnConnected(reconnected bool) {
	subs := c.subscriptionKeys()
	if len(subs) == 0 {
		return
	}
	if cmd, ok := c.adapter.SubscribeCommand(subs); ok {
		if err := c.conn.SendJSON(cmd); err != nil {
			c.log.Error().Err(err).Msg("resubscribe failed")
			return
		}
	}
	c.mu.Lock()
	for sub, state := range c.subscriptions {
		if state == SubscriptionPending {
			c.subscriptions[sub] = SubscriptionActive
		}
	}
	c.mu.Unlock()
	if reconnected {
		c.log.Info().Int("subscriptions", len(subs)).Msg("resubscribed after reconnect")
	}
}

// OnDisconnected implements ws.Handler. Active subscriptions drop back to
// pending so the next connect replays them.
func (c *Client) OnDisconnected(err error) {
	c.mu.Lock()
	for sub, state := range c.subscriptions {
		if state == SubscriptionActive {
			c.subscriptions[sub] = SubscriptionPending
		}
	}
	c.mu.Unlock()
}

// OnMessage implements ws.Handler: parse the frame through the adapter and
// dispatch resulting items.
func (c *Client) OnMessage(data []byte) {
	items, err := c.adapter.HandleMessage(c, data)
	if err != nil {
		c.log.Error().Err(err).Msg("message handling failed")
		if c.onError != nil {
			c.onError(err)
		}
		return
	}
	if len(items) == 0 {
		return
	}
	c.Dispatch(items)
}

// Dispatch delivers a parsed batch to the registered callbacks and the
// items channel. A full channel drops the item rather than blocking the
// read loop; batches arriving after Close are dropped entirely.
func (c *Client) Dispatch(items []any) {
	c.closeMu.RLock()
	defer c.closeMu.RUnlock()
	if c.closed {
		return
	}
	if c.onBatch != nil {
		c.onBatch(items)
	}
	for _, item := range items {
		if c.onItem != nil {
			c.onItem(item)
		}
		select {
		case c.items <- item:
		default:
			c.log.Warn().Msg("items channel full, dropping item")
		}
	}
}
