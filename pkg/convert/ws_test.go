package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omniex/pkg/core"
)

func TestGenerateSubscriptionsCartesian(t *testing.T) {
	w := newTestWS(t)

	subs, err := w.GenerateSubscriptions(
		[]core.Endpoint{core.EndpointTrade, core.EndpointCandle},
		[]string{"BTC_USD", "ETH_USD"},
		core.Params{core.ParamInterval: core.Interval1m},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"XBT-USD@trade",
		"ETH-USD@trade",
		"XBT-USD@kline_1m",
		"ETH-USD@kline_1m",
	}, subs)
}

func TestGenerateSubscriptionsListParams(t *testing.T) {
	w := newTestWS(t)

	subs, err := w.GenerateSubscriptions(
		[]core.Endpoint{core.EndpointCandle},
		[]string{"ETH_USD"},
		core.Params{core.ParamInterval: []core.CandleInterval{core.Interval1m, core.Interval1h}},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"ETH-USD@kline_1m",
		"ETH-USD@kline_60m",
	}, subs)
}

func TestGenerateSubscriptionsGenericEndpoint(t *testing.T) {
	w := newTestWS(t)

	subs, err := w.GenerateSubscriptions(
		[]core.Endpoint{core.EndpointTickerAll},
		[]string{"BTC_USD", "ETH_USD"},
		nil,
	)
	require.NoError(t, err)

	// No symbol cross for whole-market feeds.
	assert.Equal(t, []string{"!ticker@arr"}, subs)
}

func TestSubscriptionReverseMap(t *testing.T) {
	w := newTestWS(t)

	_, err := w.GenerateSubscriptions(
		[]core.Endpoint{core.EndpointTrade},
		[]string{"BTC_USD"},
		nil,
	)
	require.NoError(t, err)

	info, ok := w.LookupSubscription("XBT-USD@trade")
	require.True(t, ok)
	assert.Equal(t, core.EndpointTrade, info.Endpoint)
	assert.Equal(t, "BTC_USD", info.Symbol)

	w.ForgetSubscription("XBT-USD@trade")
	_, ok = w.LookupSubscription("XBT-USD@trade")
	assert.False(t, ok)
}

func TestSubscriptionInfoFor(t *testing.T) {
	t.Run("echoed subscription identifier", func(t *testing.T) {
		w := newTestWS(t)
		_, err := w.GenerateSubscriptions(
			[]core.Endpoint{core.EndpointTrade, core.EndpointCandle},
			[]string{"BTC_USD"},
			core.Params{core.ParamInterval: core.Interval1m},
		)
		require.NoError(t, err)

		info, err := w.SubscriptionInfoFor(map[string]any{
			"stream": "XBT-USD@kline_1m",
			"data":   map[string]any{},
		})
		require.NoError(t, err)
		assert.Equal(t, core.EndpointCandle, info.Endpoint)
		assert.Equal(t, "BTC_USD", info.Symbol)
	})

	t.Run("single active subscription needs no identifier", func(t *testing.T) {
		w := newTestWS(t)
		_, err := w.GenerateSubscriptions(
			[]core.Endpoint{core.EndpointTrade},
			[]string{"BTC_USD"},
			nil,
		)
		require.NoError(t, err)

		info, err := w.SubscriptionInfoFor(map[string]any{"p": "1.5"})
		require.NoError(t, err)
		assert.Equal(t, core.EndpointTrade, info.Endpoint)
	})

	t.Run("event type fallback", func(t *testing.T) {
		w := newTestWS(t)
		_, err := w.GenerateSubscriptions(
			[]core.Endpoint{core.EndpointTrade, core.EndpointCandle},
			[]string{"BTC_USD"},
			core.Params{core.ParamInterval: core.Interval1m},
		)
		require.NoError(t, err)

		info, err := w.SubscriptionInfoFor(map[string]any{
			"e": "trade",
			"s": "eth-usd",
		})
		require.NoError(t, err)
		assert.Equal(t, core.EndpointTrade, info.Endpoint)
		assert.Equal(t, "ETH_USD", info.Symbol)
	})

	t.Run("unidentifiable message is rejected", func(t *testing.T) {
		w := newTestWS(t)
		_, err := w.GenerateSubscriptions(
			[]core.Endpoint{core.EndpointTrade, core.EndpointCandle},
			[]string{"BTC_USD"},
			core.Params{core.ParamInterval: core.Interval1m},
		)
		require.NoError(t, err)

		_, err = w.SubscriptionInfoFor(map[string]any{"p": "1.5"})
		assert.ErrorIs(t, err, core.ErrAmbiguousSubscription)
	})
}

func TestFanOutEndpoints(t *testing.T) {
	w := newTestWS(t)

	assert.Equal(t,
		[]core.Endpoint{core.EndpointOrder, core.EndpointTradeMy},
		w.FanOutEndpoints("order", ""))
	assert.Equal(t,
		[]core.Endpoint{core.EndpointTicker},
		w.FanOutEndpoints("unknown", core.EndpointTicker))
	assert.Nil(t, w.FanOutEndpoints("unknown", ""))
}

func TestPropagateContext(t *testing.T) {
	w := newTestWS(t)

	trade := &core.Trade{}
	candle := &core.Candle{Item: core.Item{Symbol: "ETH_USD"}}
	items := []any{trade, candle}

	w.PropagateContext(items, "XBT-USD@kline_1m", SubscriptionInfo{
		Endpoint: core.EndpointCandle,
		Symbol:   "BTC_USD",
		Params:   core.Params{core.ParamInterval: core.Interval1m},
	})

	assert.Equal(t, "BTC_USD", trade.Symbol)
	assert.Equal(t, "XBT-USD@kline_1m", trade.Subscription)
	// Payload symbol wins over subscription context.
	assert.Equal(t, "ETH_USD", candle.Symbol)
	assert.Equal(t, core.Interval1m, candle.Interval)
}
