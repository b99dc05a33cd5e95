package binance

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"omniex/pkg/convert"
	"omniex/pkg/core"
)

const (
	restBaseURL = "https://api.binance.com/api/v{version}"
	wsBaseURL   = "wss://stream.binance.com:9443/"
	apiVersion  = "3"
)

// bookLimits is the depth whitelist of the REST order book endpoint.
// Off-list values are replaced, not rejected.
var bookLimits = map[int]struct{}{5: {}, 10: {}, 20: {}, 50: {}, 100: {}, 500: {}, 1000: {}}

const bookLimitFallback = 20

func restConfig() convert.Config {
	return convert.Config{
		Platform:        core.PlatformBinance,
		Version:         apiVersion,
		BaseURL:         restBaseURL,
		SymbolDelimiter: "",
		Time:            core.TimeCodec{SourceInMillis: true},
		DefaultSorting:  core.SortingAscending,
		UseMaxLimit:     true,
	}
}

func wsConfig() convert.Config {
	return convert.Config{
		Platform:          core.PlatformBinance,
		Version:           apiVersion,
		BaseURL:           wsBaseURL,
		SymbolDelimiter:   "",
		Time:              core.TimeCodec{SourceInMillis: true},
		DefaultSorting:    core.SortingAscending,
		SubscriptionParam: "stream",
		EventTypeParam:    "e",
	}
}

// channel renders a "<symbol>@<suffix>" stream name from the translated
// symbol param. Stream names are lower case on the wire.
func channel(suffix func(core.PlatformParams) string) convert.EndpointRule {
	return convert.Func(func(p core.PlatformParams) (string, bool) {
		symbol, _ := p["symbol"].(string)
		if symbol == "" {
			return "", false
		}
		return strings.ToLower(symbol) + "@" + suffix(p), true
	})
}

func newWSTables() (convert.Tables, convert.WSTables) {
	tables := convert.Tables{
		Endpoints: map[core.Endpoint]convert.EndpointRule{
			core.EndpointTrade: channel(func(core.PlatformParams) string { return "trade" }),
			core.EndpointCandle: channel(func(p core.PlatformParams) string {
				return "kline_" + fmt.Sprint(p["interval"])
			}),
			core.EndpointTicker:    channel(func(core.PlatformParams) string { return "miniTicker" }),
			core.EndpointTickerAll: convert.Literal("!miniTicker@arr"),
			core.EndpointOrderBook: channel(func(p core.PlatformParams) string {
				depth := bookLimitFallback
				if limit, ok := p["limit"].(int); ok && (limit == 5 || limit == 10 || limit == 20) {
					depth = limit
				}
				return "depth" + strconv.Itoa(depth)
			}),
			core.EndpointOrderBookDiff: channel(func(core.PlatformParams) string { return "depth" }),
			core.EndpointQuote:         channel(func(core.PlatformParams) string { return "depth5" }),
			// Private streams share one listen-key connection; the names
			// below never reach the wire, they only key the dispatch.
			core.EndpointBalance: convert.Literal(subBalance),
			core.EndpointOrder:   convert.Literal(subOrder),
			core.EndpointTradeMy: convert.Literal(subTradeMy),
		},
		ParamNames: map[core.ParamName]convert.ParamTarget{
			core.ParamInterval: convert.To("interval"),
			core.ParamLevel:    convert.To("limit"),
		},
		Values: newValues(),
		Items: map[core.Endpoint]convert.ItemSpec{
			core.EndpointTrade: {
				New: func() core.Formattable { return &core.Trade{} },
				Fields: convert.Keyed(map[string]core.ParamName{
					"s": core.ParamSymbol,
					"T": core.ParamTimestamp,
					"t": core.ParamItemID,
					"p": core.ParamPrice,
					"q": core.ParamAmount,
				}),
			},
			core.EndpointCandle: {
				New: func() core.Formattable { return &core.Candle{} },
				Fields: convert.Keyed(map[string]core.ParamName{
					"s": core.ParamSymbol,
					"t": core.ParamTimestamp,
					"i": core.ParamInterval,
					"o": core.ParamPriceOpen,
					"c": core.ParamPriceClose,
					"h": core.ParamPriceHigh,
					"l": core.ParamPriceLow,
					"v": core.ParamVolume,
					"n": core.ParamTradesCount,
				}),
			},
			core.EndpointTicker: {
				New: func() core.Formattable { return &core.Ticker{} },
				Fields: convert.Keyed(map[string]core.ParamName{
					"s": core.ParamSymbol,
					"E": core.ParamTimestamp,
					"c": core.ParamPrice,
				}),
			},
			core.EndpointOrderBookDiff: {
				New: func() core.Formattable { return &core.OrderBookDiff{} },
				Fields: convert.Keyed(map[string]core.ParamName{
					"s": core.ParamSymbol,
					"E": core.ParamTimestamp,
					"u": core.ParamItemID,
					"b": core.ParamBids,
					"a": core.ParamAsks,
				}),
			},
			core.EndpointOrderBook: {
				New: func() core.Formattable { return &core.OrderBook{} },
				Fields: convert.Keyed(map[string]core.ParamName{
					"lastUpdateId": core.ParamItemID,
					"bids":         core.ParamBids,
					"asks":         core.ParamAsks,
				}),
			},
			core.EndpointOrder: {
				New: func() core.Formattable { return &core.Order{} },
				Fields: convert.Keyed(map[string]core.ParamName{
					"s": core.ParamSymbol,
					"T": core.ParamTimestamp,
					"i": core.ParamItemID,
					"c": core.ParamUserOrderID,
					"o": core.ParamOrderType,
					"q": core.ParamAmountOriginal,
					"z": core.ParamAmountExecuted,
					"p": core.ParamPrice,
					"S": core.ParamDirection,
					"X": core.ParamOrderStatus,
				}),
			},
			core.EndpointTradeMy: {
				New: func() core.Formattable { return &core.MyTrade{} },
				Fields: convert.Keyed(map[string]core.ParamName{
					"s": core.ParamSymbol,
					"E": core.ParamTimestamp,
					"t": core.ParamItemID,
					"l": core.ParamAmount,
					"L": core.ParamPrice,
					"S": core.ParamDirection,
					"n": core.ParamFee,
					"i": core.ParamOrderID,
				}),
			},
			core.EndpointBalance: {
				New: func() core.Formattable { return &core.Balance{} },
				Fields: convert.Keyed(map[string]core.ParamName{
					"a": core.ParamSymbol,
					"f": core.ParamAmountAvailable,
					"l": core.ParamAmountReserved,
				}),
			},
		},
	}
	ws := convert.WSTables{
		GenericEndpoints: map[core.Endpoint]struct{}{
			core.EndpointTickerAll: {},
			core.EndpointBalance:   {},
			core.EndpointOrder:     {},
			core.EndpointTradeMy:   {},
		},
		EndpointsByEventType: map[string][]core.Endpoint{
			"trade":               {core.EndpointTrade},
			"kline":               {core.EndpointCandle},
			"24hrMiniTicker":      {core.EndpointTicker},
			"24hrTicker":          {core.EndpointTicker},
			"depthUpdate":         {core.EndpointOrderBookDiff},
			"executionReport":     {core.EndpointOrder, core.EndpointTradeMy},
			"outboundAccountInfo": {core.EndpointBalance},
		},
		SymbolField: "s",
	}
	return tables, ws
}

func newValues() convert.ValueLookup {
	return convert.NewValueLookup(
		map[any]any{
			core.DirectionSell: "SELL",
			core.DirectionBuy:  "BUY",
		},
		map[core.ParamName]map[any]any{
			core.ParamInterval: {
				core.Interval1m: "1m", core.Interval3m: "3m", core.Interval5m: "5m",
				core.Interval15m: "15m", core.Interval30m: "30m",
				core.Interval1h: "1h", core.Interval2h: "2h", core.Interval4h: "4h",
				core.Interval6h: "6h", core.Interval8h: "8h", core.Interval12h: "12h",
				core.Interval1d: "1d", core.Interval3d: "3d",
				core.Interval1w: "1w", core.Interval1M: "1M",
			},
			core.ParamOrderType: {
				core.OrderTypeLimit:            "LIMIT",
				core.OrderTypeMarket:           "MARKET",
				core.OrderTypeStopMarket:       "STOP_LOSS",
				core.OrderTypeStopLimit:        "STOP_LOSS_LIMIT",
				core.OrderTypeTakeProfitMarket: "TAKE_PROFIT",
				core.OrderTypeTakeProfitLimit:  "TAKE_PROFIT_LIMIT",
			},
			core.ParamOrderStatus: {
				core.StatusNew:             "NEW",
				core.StatusPartiallyFilled: "PARTIALLY_FILLED",
				core.StatusFilled:          "FILLED",
				core.StatusCanceled:        "CANCELED",
				core.StatusRejected:        "REJECTED",
				core.StatusExpired:         "EXPIRED",
			},
			core.ParamTimeInForce: {
				core.GTC: "GTC",
				core.IOC: "IOC",
				core.FOK: "FOK",
			},
			// The platform delisted the USD pair; orders route to the
			// USDT market under the historical canonical name.
			core.ParamSymbol: {
				"BTC_USD": "BTCUSDT",
			},
		},
	)
}

func newRESTTables(log zerolog.Logger) convert.Tables {
	tradeSpec := convert.ItemSpec{
		New: func() core.Formattable { return &core.Trade{} },
		Fields: convert.Keyed(map[string]core.ParamName{
			"time":  core.ParamTimestamp,
			"id":    core.ParamItemID,
			"qty":   core.ParamAmount,
			"price": core.ParamPrice,
		}),
	}
	orderSpec := convert.ItemSpec{
		New: func() core.Formattable { return &core.Order{} },
		Fields: convert.Keyed(map[string]core.ParamName{
			"symbol":        core.ParamSymbol,
			"time":          core.ParamTimestamp,
			"updateTime":    core.ParamTimestamp,
			"transactTime":  core.ParamTimestamp,
			"orderId":       core.ParamItemID,
			"clientOrderId": core.ParamUserOrderID,
			"type":          core.ParamOrderType,
			"origQty":       core.ParamAmountOriginal,
			"executedQty":   core.ParamAmountExecuted,
			"price":         core.ParamPrice,
			"stopPrice":     core.ParamPriceStop,
			"side":          core.ParamDirection,
			"status":        core.ParamOrderStatus,
		}),
	}
	tickerSpec := convert.ItemSpec{
		New: func() core.Formattable { return &core.Ticker{} },
		Fields: convert.Keyed(map[string]core.ParamName{
			"symbol": core.ParamSymbol,
			"price":  core.ParamPrice,
		}),
	}

	return convert.Tables{
		Endpoints: map[core.Endpoint]convert.EndpointRule{
			core.EndpointPing:          convert.Literal("ping"),
			core.EndpointServerTime:    convert.Literal("time"),
			core.EndpointSymbols:       convert.Literal("exchangeInfo"),
			core.EndpointCurrencyPairs: convert.Literal("exchangeInfo"),
			core.EndpointTrade:         convert.Literal("trades"),
			core.EndpointTradeHistory:  convert.Literal("historicalTrades"),
			core.EndpointTradeMy:       convert.Literal("myTrades"),
			core.EndpointCandle:        convert.Literal("klines"),
			core.EndpointTicker:        convert.Literal("ticker/price"),
			core.EndpointTickerAll:     convert.Literal("ticker/price"),
			core.EndpointQuote:         convert.Literal("ticker/bookTicker"),
			core.EndpointOrderBook: convert.Func(func(p core.PlatformParams) (string, bool) {
				if limit, ok := p["limit"].(int); ok {
					if _, allowed := bookLimits[limit]; !allowed {
						log.Warn().Int("limit", limit).Int("fallback", bookLimitFallback).
							Msg("order book depth not supported, falling back")
						p["limit"] = bookLimitFallback
					}
				}
				return "depth", true
			}),
			core.EndpointAccount:     convert.Literal("account"),
			core.EndpointBalance:     convert.Literal("account"),
			core.EndpointOrder:       convert.Literal("order"),
			core.EndpointOrderCreate: convert.Literal("order"),
			core.EndpointOrderCancel: convert.Literal("order"),
			core.EndpointOrdersOpen:  convert.Literal("openOrders"),
			// Order history pages by time, not id; a from-bound order is
			// reduced to its timestamp upstream and renamed here.
			core.EndpointOrdersAll: convert.Func(func(p core.PlatformParams) (string, bool) {
				if v, ok := p["fromId"]; ok {
					delete(p, "fromId")
					p["startTime"] = v
				}
				return "allOrders", true
			}),
		},
		ParamNames: map[core.ParamName]convert.ParamTarget{
			core.ParamOrderID:       convert.To("orderId"),
			core.ParamUserOrderID:   convert.To("newClientOrderId"),
			core.ParamInterval:      convert.To("interval"),
			core.ParamDirection:     convert.To("side"),
			core.ParamOrderType:     convert.To("type"),
			core.ParamFromItem:      convert.To("fromId"),
			core.ParamFromTime:      convert.To("startTime"),
			core.ParamToTime:        convert.To("endTime"),
			core.ParamAmount:        convert.To("quantity"),
			core.ParamPriceStop:     convert.To("stopPrice"),
			core.ParamTimeInForce:   convert.To("timeInForce"),
			core.ParamLevel:         convert.To("limit"),
			core.ParamIsUseMaxLimit: convert.Dropped(),
			core.ParamToItem:        convert.Dropped(),
			core.ParamSorting:       convert.Dropped(),
			core.ParamLimitSkip:     convert.Dropped(),
		},
		Values: newValues(),
		Items: map[core.Endpoint]convert.ItemSpec{
			core.EndpointTrade:        tradeSpec,
			core.EndpointTradeHistory: tradeSpec,
			core.EndpointTradeMy: {
				New: func() core.Formattable { return &core.MyTrade{} },
				Fields: convert.Keyed(map[string]core.ParamName{
					"symbol":     core.ParamSymbol,
					"time":       core.ParamTimestamp,
					"id":         core.ParamItemID,
					"orderId":    core.ParamOrderID,
					"qty":        core.ParamAmount,
					"price":      core.ParamPrice,
					"commission": core.ParamFee,
				}),
			},
			core.EndpointCandle: {
				New: func() core.Formattable { return &core.Candle{} },
				Fields: convert.Positional(
					core.ParamTimestamp, core.ParamPriceOpen, core.ParamPriceHigh,
					core.ParamPriceLow, core.ParamPriceClose, core.ParamVolume,
					"", "", core.ParamTradesCount,
				),
			},
			core.EndpointTicker:    tickerSpec,
			core.EndpointTickerAll: tickerSpec,
			core.EndpointQuote: {
				New: func() core.Formattable { return &core.Quote{} },
				Fields: convert.Keyed(map[string]core.ParamName{
					"symbol":   core.ParamSymbol,
					"bidPrice": core.ParamBestBid,
					"askPrice": core.ParamBestAsk,
				}),
			},
			core.EndpointOrderBook: {
				New: func() core.Formattable { return &core.OrderBook{} },
				Fields: convert.Keyed(map[string]core.ParamName{
					"lastUpdateId": core.ParamItemID,
					"bids":         core.ParamBids,
					"asks":         core.ParamAsks,
				}),
			},
			core.EndpointAccount: {
				New: func() core.Formattable { return &core.Account{} },
				Fields: convert.Keyed(map[string]core.ParamName{
					"updateTime": core.ParamTimestamp,
					"balances":   core.ParamBalances,
				}),
			},
			core.EndpointBalance: {
				New: func() core.Formattable { return &core.Balance{} },
				Fields: convert.Keyed(map[string]core.ParamName{
					"asset":  core.ParamSymbol,
					"free":   core.ParamAmountAvailable,
					"locked": core.ParamAmountReserved,
				}),
			},
			core.EndpointCurrencyPairs: {
				New: func() core.Formattable { return &core.CurrencyPair{} },
				Fields: convert.Keyed(map[string]core.ParamName{
					"symbol":      core.ParamNameInPlatform,
					"baseAsset":   core.ParamSymbolBase,
					"quoteAsset":  core.ParamSymbolQuote,
					"minQty":      core.ParamLotSizeMin,
					"maxQty":      core.ParamLotSizeMax,
					"stepSize":    core.ParamLotSizeStep,
					"tickSize":    core.ParamPriceStep,
					"minNotional": core.ParamMinNotional,
				}),
			},
			core.EndpointOrder:       orderSpec,
			core.EndpointOrderCreate: orderSpec,
			core.EndpointOrderCancel: orderSpec,
			core.EndpointOrdersOpen:  orderSpec,
			core.EndpointOrdersAll:   orderSpec,
		},
		Error: convert.ErrorSpec{
			CodeField:    "code",
			MessageField: "msg",
			CodeLookup: map[string]core.ErrorCode{
				"-2014": core.ErrCodeUnauthorized,
				"-1121": core.ErrCodeWrongSymbol,
				"-1100": core.ErrCodeWrongParam,
			},
			StatusLookup: map[int]core.ErrorCode{
				429: core.ErrCodeRateLimit,
				418: core.ErrCodeIPBan,
				404: core.ErrCodeWrongURL,
			},
		},
		MaxLimitByEndpoint: map[core.Endpoint]int{
			core.EndpointTrade:        1000,
			core.EndpointTradeHistory: 1000,
			core.EndpointCandle:       1000,
			core.EndpointOrderBook:    1000,
		},
		IDRangeEndpoints: map[core.Endpoint]struct{}{
			core.EndpointTradeHistory: {},
			core.EndpointTradeMy:      {},
		},
		// The historical trades endpoint wants the API key header without
		// a signature.
		SecuredEndpoints: map[core.Endpoint]struct{}{
			core.EndpointTradeHistory: {},
		},
	}
}
