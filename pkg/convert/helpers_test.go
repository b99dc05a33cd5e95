package convert

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"omniex/pkg/core"
)

// The test platform is a small synthetic exchange exercising every table
// mechanism: literal, template and canceling endpoint rules, name
// translation and drops, flat and per-param value maps, keyed and
// positional item layouts.

func testConfig() Config {
	return Config{
		Platform:          core.PlatformBinance,
		Version:           "v1",
		BaseURL:           "https://api.test.example/{version}",
		SymbolDelimiter:   "-",
		Time:              core.TimeCodec{SourceInMillis: true},
		IsSortingEnabled:  true,
		DefaultSorting:    core.SortingDescending,
		SubscriptionParam: "stream",
		EventTypeParam:    "e",
	}
}

func testTables() Tables {
	return Tables{
		Endpoints: map[core.Endpoint]EndpointRule{
			core.EndpointTrade:  Literal("trades"),
			core.EndpointCandle: Template("klines/{symbol}"),
			core.EndpointOrderCancel: Func(func(core.PlatformParams) (string, bool) {
				return "", false
			}),
		},
		ParamNames: map[core.ParamName]ParamTarget{
			core.ParamInterval:  To("i"),
			core.ParamLimit:     To("count"),
			core.ParamSorting:   To("sort"),
			core.ParamLimitSkip: Dropped(),
		},
		Values: NewValueLookup(
			map[any]any{
				core.DirectionBuy:       "BUY",
				core.DirectionSell:      "SELL",
				core.SortingAscending:   "asc",
				core.SortingDescending:  "desc",
			},
			map[core.ParamName]map[any]any{
				core.ParamInterval: {
					core.Interval1m: "1m",
					core.Interval1h: "60m",
				},
				core.ParamSymbol: {
					"BTC_USD": "XBT-USD",
				},
			},
		),
		Items: map[core.Endpoint]ItemSpec{
			core.EndpointTrade: {
				New: func() core.Formattable { return &core.Trade{} },
				Fields: Keyed(map[string]core.ParamName{
					"id":   core.ParamItemID,
					"s":    core.ParamSymbol,
					"T":    core.ParamTimestamp,
					"p":    core.ParamPrice,
					"q":    core.ParamAmount,
					"side": core.ParamDirection,
				}),
			},
			core.EndpointCandle: {
				New: func() core.Formattable { return &core.Candle{} },
				Fields: Positional(
					core.ParamTimestamp,
					core.ParamPriceOpen, core.ParamPriceHigh,
					core.ParamPriceLow, core.ParamPriceClose,
					core.ParamVolume,
				),
			},
		},
		Error: ErrorSpec{
			CodeField:    "code",
			MessageField: "msg",
			CodeLookup: map[string]core.ErrorCode{
				"-1121": core.ErrCodeWrongSymbol,
			},
		},
		MaxLimitByEndpoint: map[core.Endpoint]int{
			core.EndpointTrade: 500,
		},
		SortingEndpoints: map[core.Endpoint]struct{}{
			core.EndpointTrade: {},
		},
	}
}

func newTestConverter(t *testing.T) *Converter {
	t.Helper()
	c, err := New(testConfig(), testTables(), zerolog.Nop())
	require.NoError(t, err)
	return c
}

func newTestREST(t *testing.T) *RESTConverter {
	t.Helper()
	r, err := NewREST(testConfig(), testTables(), nil, zerolog.Nop())
	require.NoError(t, err)
	return r
}

func testWSTables() WSTables {
	return WSTables{
		GenericEndpoints: map[core.Endpoint]struct{}{
			core.EndpointTickerAll: {},
		},
		EndpointsByEventType: map[string][]core.Endpoint{
			"trade": {core.EndpointTrade},
			"order": {core.EndpointOrder, core.EndpointTradeMy},
		},
		SymbolField: "s",
	}
}

func newTestWS(t *testing.T) *WSConverter {
	t.Helper()
	cfg := testConfig()
	tables := testTables()
	tables.Endpoints[core.EndpointTrade] = Template("{symbol}@trade")
	tables.Endpoints[core.EndpointCandle] = Template("{symbol}@kline_{i}")
	tables.Endpoints[core.EndpointTickerAll] = Literal("!ticker@arr")
	w, err := NewWS(cfg, tables, testWSTables(), zerolog.Nop())
	require.NoError(t, err)
	return w
}

func testTrade(id string, ts int64, price string) *core.Trade {
	return &core.Trade{
		Item: core.Item{
			Platform:  core.PlatformBinance,
			Symbol:    "BTC_USD",
			Timestamp: ts,
			ItemID:    id,
		},
		Price:     core.MustDecimal(price),
		Amount:    core.MustDecimal("1"),
		Direction: core.DirectionBuy,
	}
}
