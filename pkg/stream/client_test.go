package stream

import (
	"context"
	"net/http"
	"sort"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omniex/pkg/convert"
	"omniex/pkg/core"
)

type fakeAdapter struct {
	symbols []string
}

func (a *fakeAdapter) URL(subs []string) string {
	return "wss://example.test/stream"
}

func (a *fakeAdapter) ConnectionHeaders() (http.Header, error) {
	return nil, nil
}

func (a *fakeAdapter) SubscribeCommand(subs []string) (any, bool) {
	return map[string]any{"op": "subscribe", "args": subs}, true
}

func (a *fakeAdapter) UnsubscribeCommand(subs []string) (any, bool) {
	return map[string]any{"op": "unsubscribe", "args": subs}, true
}

func (a *fakeAdapter) HandleMessage(client *Client, data []byte) ([]any, error) {
	return nil, nil
}

func (a *fakeAdapter) KnownSymbols() []string {
	return a.symbols
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	conv, err := convert.NewWS(convert.Config{
		Platform:        core.PlatformBitMEX,
		Version:         "v1",
		BaseURL:         "https://api.example.test/{version}",
		SymbolDelimiter: "",
		Time:            core.TimeCodec{SourceInTimestring: true},
	}, convert.Tables{
		Endpoints: map[core.Endpoint]convert.EndpointRule{
			core.EndpointTrade: convert.Template("trade:{symbol}"),
			core.EndpointQuote: convert.Template("quote:{symbol}"),
		},
	}, convert.WSTables{}, zerolog.Nop())
	require.NoError(t, err)

	return NewClient(DefaultConfig(), conv, &fakeAdapter{
		symbols: []string{"XBTUSD", "ETHUSD"},
	}, zerolog.Nop())
}

func subscriptionKeys(c *Client) []string {
	subs := c.Subscriptions()
	keys := make([]string, 0, len(subs))
	for _, s := range subs {
		keys = append(keys, s.Key)
	}
	sort.Strings(keys)
	return keys
}

func TestSubscribeWhileDisconnected(t *testing.T) {
	c := newTestClient(t)

	err := c.Subscribe(context.Background(),
		[]core.Endpoint{core.EndpointTrade},
		[]string{"XBTUSD"}, nil)
	require.NoError(t, err)

	subs := c.Subscriptions()
	require.Len(t, subs, 1)
	assert.Equal(t, "trade:XBTUSD", subs[0].Key)
	assert.Equal(t, SubscriptionPending, subs[0].State)
	assert.Equal(t, core.EndpointTrade, subs[0].Endpoint)
}

func TestSubscribeNilSymbolsMeansAllKnown(t *testing.T) {
	c := newTestClient(t)

	err := c.Subscribe(context.Background(),
		[]core.Endpoint{core.EndpointTrade}, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"trade:ETHUSD", "trade:XBTUSD"}, subscriptionKeys(c))
	assert.Equal(t, []string{"XBTUSD", "ETHUSD"}, c.SymbolsFor(core.EndpointTrade))
}

func TestSubscribeIsIdempotent(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Subscribe(ctx, []core.Endpoint{core.EndpointTrade}, []string{"XBTUSD"}, nil))
	require.NoError(t, c.Subscribe(ctx, []core.Endpoint{core.EndpointTrade}, []string{"XBTUSD"}, nil))

	assert.Len(t, c.Subscriptions(), 1)
}

func TestUnsubscribeRemovesTracking(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Subscribe(ctx,
		[]core.Endpoint{core.EndpointTrade, core.EndpointQuote},
		[]string{"XBTUSD"}, nil))
	require.NoError(t, c.Unsubscribe(ctx,
		[]core.Endpoint{core.EndpointQuote}, []string{"XBTUSD"}, nil))

	assert.Equal(t, []string{"trade:XBTUSD"}, subscriptionKeys(c))
}

func TestMarkSubscription(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Subscribe(ctx, []core.Endpoint{core.EndpointTrade}, []string{"XBTUSD"}, nil))

	c.MarkSubscription("trade:XBTUSD", false, "symbol not supported")
	subs := c.Subscriptions()
	require.Len(t, subs, 1)
	assert.Equal(t, SubscriptionFailed, subs[0].State)

	c.MarkSubscription("trade:XBTUSD", true, "")
	assert.Equal(t, SubscriptionActive, c.Subscriptions()[0].State)
}

func TestDisconnectDemotesActiveSubscriptions(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Subscribe(ctx, []core.Endpoint{core.EndpointTrade}, []string{"XBTUSD"}, nil))
	c.MarkSubscription("trade:XBTUSD", true, "")

	c.OnDisconnected(nil)
	assert.Equal(t, SubscriptionPending, c.Subscriptions()[0].State)
}

func TestDispatch(t *testing.T) {
	c := newTestClient(t)

	var batches int
	var itemCount int
	c.OnBatch(func(items []any) { batches++ })
	c.OnItem(func(any) { itemCount++ })

	trade := &core.Trade{}
	quote := &core.Quote{}
	c.Dispatch([]any{trade, quote})

	assert.Equal(t, 1, batches)
	assert.Equal(t, 2, itemCount)
	assert.Same(t, trade, <-c.Items())
	assert.Same(t, quote, <-c.Items())
}

func TestCloseIsIdempotent(t *testing.T) {
	c := newTestClient(t)

	require.NoError(t, c.Close())
	assert.NotPanics(t, func() { _ = c.Close() })

	_, open := <-c.Items()
	assert.False(t, open)
}

func TestDispatchAfterCloseDropsItems(t *testing.T) {
	c := newTestClient(t)

	var batches int
	c.OnBatch(func([]any) { batches++ })
	require.NoError(t, c.Close())

	assert.NotPanics(t, func() { c.Dispatch([]any{&core.Trade{}}) })
	assert.Equal(t, 0, batches)
}
