package convert

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omniex/pkg/core"
)

func TestPrepareParams(t *testing.T) {
	c := newTestConverter(t)

	out := c.PrepareParams(core.Params{
		core.ParamSymbol:    "BTC_USD",
		core.ParamInterval:  core.Interval1h,
		core.ParamLimit:     100,
		core.ParamDirection: core.DirectionBuy,
		core.ParamFromTime:  int64(1_560_000_000_000),
		core.ParamPrice:     core.MustDecimal("0.001"),
		core.ParamLimitSkip: 10,
		core.ParamLevel:     nil,
	})

	assert.Equal(t, core.PlatformParams{
		"symbol":    "XBT-USD",
		"i":         "60m",
		"count":     100,
		"direction": "BUY",
		"from_time": int64(1_560_000_000_000),
		"price":     "0.001",
	}, out)
}

func TestPrepareParamsSymbolDelimiter(t *testing.T) {
	c := newTestConverter(t)

	// No alias in the table: only the delimiter rewrite applies.
	out := c.PrepareParams(core.Params{core.ParamSymbol: "ETH_USD"})
	assert.Equal(t, "ETH-USD", out["symbol"])
}

func TestPrepareParamsSecondsCodec(t *testing.T) {
	cfg := testConfig()
	cfg.Time = core.TimeCodec{}
	c, err := New(cfg, testTables(), zerolog.Nop())
	require.NoError(t, err)

	out := c.PrepareParams(core.Params{core.ParamToTime: int64(1_560_000_000_123)})
	assert.Equal(t, int64(1_560_000_000), out["to_time"])
}

func TestMakeRequest(t *testing.T) {
	c := newTestConverter(t)

	t.Run("literal path", func(t *testing.T) {
		req, err := c.MakeRequest(http.MethodGet, core.EndpointTrade, core.Params{
			core.ParamSymbol: "BTC_USD",
		})
		require.NoError(t, err)
		assert.Equal(t, "https://api.test.example/v1/trades", req.URL)
		assert.Equal(t, "XBT-USD", req.Query["symbol"])
		assert.False(t, req.RequireAuth)
	})

	t.Run("template consumes params", func(t *testing.T) {
		req, err := c.MakeRequest(http.MethodGet, core.EndpointCandle, core.Params{
			core.ParamSymbol:   "BTC_USD",
			core.ParamInterval: core.Interval1m,
		})
		require.NoError(t, err)
		assert.Equal(t, "https://api.test.example/v1/klines/XBT-USD", req.URL)
		assert.NotContains(t, req.Query, "symbol")
		assert.Equal(t, "1m", req.Query["i"])
	})

	t.Run("canceling rule", func(t *testing.T) {
		_, err := c.MakeRequest(http.MethodDelete, core.EndpointOrderCancel, nil)
		assert.ErrorIs(t, err, core.ErrRequestCanceled)
	})

	t.Run("unmapped endpoint falls back to canonical name", func(t *testing.T) {
		req, err := c.MakeRequest(http.MethodGet, core.EndpointPing, nil)
		require.NoError(t, err)
		assert.Equal(t, "https://api.test.example/v1/ping", req.URL)
	})

	t.Run("private endpoint requires auth", func(t *testing.T) {
		req, err := c.MakeRequest(http.MethodGet, core.EndpointBalance, nil)
		require.NoError(t, err)
		assert.True(t, req.RequireAuth)
	})
}

func TestParseItemKeyed(t *testing.T) {
	c := newTestConverter(t)

	payload, err := DecodeJSON([]byte(`{
		"id": 123456,
		"s": "XBT-USD",
		"T": 1560000000123,
		"p": "0.1",
		"q": "42.5",
		"side": "SELL",
		"ignored": true
	}`))
	require.NoError(t, err)

	item, err := c.ParseItem(core.EndpointTrade, payload)
	require.NoError(t, err)

	trade, ok := item.(*core.Trade)
	require.True(t, ok)
	assert.Equal(t, core.PlatformBinance, trade.Platform)
	assert.Equal(t, "BTC_USD", trade.Symbol)
	assert.Equal(t, "123456", trade.ItemID)
	assert.Equal(t, int64(1_560_000_000_123), trade.Timestamp)
	assert.Equal(t, "0.1", trade.Price.String())
	assert.Equal(t, "42.5", trade.Amount.String())
	assert.Equal(t, core.DirectionSell, trade.Direction)
}

func TestParseItemPositional(t *testing.T) {
	c := newTestConverter(t)

	payload, err := DecodeJSON([]byte(`[1560000000123, "100.1", "101", "99.9", "100.5", "1234.567"]`))
	require.NoError(t, err)

	item, err := c.ParseItem(core.EndpointCandle, payload)
	require.NoError(t, err)

	candle, ok := item.(*core.Candle)
	require.True(t, ok)
	assert.Equal(t, int64(1_560_000_000_123), candle.Timestamp)
	assert.Equal(t, "100.1", candle.PriceOpen.String())
	assert.Equal(t, "100.5", candle.PriceClose.String())
	assert.Equal(t, "1234.567", candle.Volume.String())
}

func TestParseItemUnmappedEndpoint(t *testing.T) {
	c := newTestConverter(t)

	_, err := c.ParseItem(core.EndpointPosition, map[string]any{})
	assert.Error(t, err)
}

func TestParseList(t *testing.T) {
	c := newTestConverter(t)

	payload, err := DecodeJSON([]byte(`[
		{"id": 1, "p": "1.5", "q": "2", "T": 1560000000000},
		null,
		{"id": 2, "p": "1.6", "q": "3", "T": 1560000001000}
	]`))
	require.NoError(t, err)

	items, err := c.Parse(core.EndpointTrade, payload)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "1", items[0].(*core.Trade).ItemID)
	assert.Equal(t, "2", items[1].(*core.Trade).ItemID)
}

func TestParseRoundTripDeterministic(t *testing.T) {
	c := newTestConverter(t)
	raw := []byte(`{"id": 7, "s": "XBT-USD", "T": 1560000000123, "p": "0.1", "q": "1", "side": "BUY"}`)

	var first *core.Trade
	for i := 0; i < 3; i++ {
		payload, err := DecodeJSON(raw)
		require.NoError(t, err)
		item, err := c.ParseItem(core.EndpointTrade, payload)
		require.NoError(t, err)
		trade := item.(*core.Trade)
		if first == nil {
			first = trade
			continue
		}
		assert.True(t, first.Equal(trade))
		assert.Equal(t, first.Price.String(), trade.Price.String())
	}
}

func TestParseError(t *testing.T) {
	c := newTestConverter(t)

	t.Run("mapped platform code", func(t *testing.T) {
		payload, err := DecodeJSON([]byte(`{"code": -1121, "msg": "Invalid symbol."}`))
		require.NoError(t, err)
		perr := c.ParseError(http.StatusBadRequest, payload)
		require.NotNil(t, perr)
		assert.Equal(t, core.ErrCodeWrongSymbol, perr.Code)
		assert.Equal(t, "-1121", perr.PlatformCode)
		assert.Equal(t, "Invalid symbol.", perr.PlatformMessage)
		assert.Contains(t, perr.Message, core.MessageByCode[core.ErrCodeWrongSymbol])
	})

	t.Run("http status fallback", func(t *testing.T) {
		perr := c.ParseError(http.StatusTooManyRequests, map[string]any{})
		require.NotNil(t, perr)
		assert.Equal(t, core.ErrCodeRateLimit, perr.Code)
	})

	t.Run("unknown everything is an app error", func(t *testing.T) {
		perr := c.ParseError(http.StatusBadGateway, map[string]any{"code": "999"})
		require.NotNil(t, perr)
		assert.Equal(t, core.ErrCodeAppError, perr.Code)
	})

	t.Run("success without payload", func(t *testing.T) {
		assert.Nil(t, c.ParseError(http.StatusOK, nil))
	})
}

func TestDecodeJSONPreservesNumbers(t *testing.T) {
	v, err := DecodeJSON([]byte(`{"p": 0.1000}`))
	require.NoError(t, err)
	obj := v.(map[string]any)
	n, ok := obj["p"].(json.Number)
	require.True(t, ok)
	assert.Equal(t, "0.1000", n.String())
}
