package bitmex

import (
	"fmt"

	"omniex/pkg/convert"
	"omniex/pkg/core"
)

const (
	restBaseURL = "https://www.bitmex.com/api/v{version}"
	wsURL       = "wss://www.bitmex.com/realtime"
	apiVersion  = "1"
)

func restConfig() convert.Config {
	return convert.Config{
		Platform:         core.PlatformBitMEX,
		Version:          apiVersion,
		BaseURL:          restBaseURL,
		SymbolDelimiter:  "",
		Time:             core.TimeCodec{SourceInTimestring: true},
		IsSortingEnabled: true,
		DefaultSorting:   core.SortingAscending,
		UseMaxLimit:      true,
	}
}

func wsConfig() convert.Config {
	return convert.Config{
		Platform:                     core.PlatformBitMEX,
		Version:                      apiVersion,
		BaseURL:                      wsURL,
		SymbolDelimiter:              "",
		Time:                         core.TimeCodec{SourceInTimestring: true},
		DefaultSorting:               core.SortingAscending,
		SubscriptionCommandSupported: true,
		SubscriptionParam:            "table",
		EventTypeParam:               "table",
	}
}

func newValues() convert.ValueLookup {
	return convert.NewValueLookup(
		map[any]any{
			core.DirectionSell: "Sell",
			core.DirectionBuy:  "Buy",
		},
		map[core.ParamName]map[any]any{
			core.ParamInterval: {
				core.Interval1m: "1m",
				core.Interval5m: "5m",
				core.Interval1h: "1h",
				core.Interval1d: "1d",
			},
			core.ParamOrderType: {
				core.OrderTypeLimit:            "Limit",
				core.OrderTypeMarket:           "Market",
				core.OrderTypeStopMarket:       "Stop",
				core.OrderTypeStopLimit:        "StopLimit",
				core.OrderTypeTakeProfitMarket: "MarketIfTouched",
				core.OrderTypeTakeProfitLimit:  "LimitIfTouched",
			},
			core.ParamTimeInForce: {
				core.GTC: "GoodTillCancel",
				core.IOC: "ImmediateOrCancel",
				core.FOK: "FillOrKill",
				core.Day: "Day",
			},
			core.ParamTransactionType: {
				core.TransactionDeposit:     "Deposit",
				core.TransactionWithdrawal:  "Withdrawal",
				core.TransactionRealisedPNL: "RealisedPNL",
			},
			core.ParamSorting: {
				core.SortingAscending:  "false",
				core.SortingDescending: "true",
			},
			// REST book depth and stream book channel width.
			core.ParamLevel: {
				core.DepthLight:  10,
				core.DepthMedium: 25,
				core.DepthDeep:   0,
			},
			core.ParamOrderStatus: {
				core.StatusNew:             "New",
				core.StatusPartiallyFilled: "PartiallyFilled",
				core.StatusFilled:          "Filled",
				core.StatusCanceled:        "Canceled",
				core.StatusRejected:        "Rejected",
				core.StatusExpired:         "Expired",
			},
		},
	).WithReverse(map[core.ParamName]map[any]any{
		// Working sub-states the canonical model folds into open.
		core.ParamOrderStatus: {
			"DoneForDay":    core.StatusOpen,
			"PendingCancel": core.StatusOpen,
			"Stopped":       core.StatusOpen,
			"Untriggered":   core.StatusOpen,
			"Triggered":     core.StatusOpen,
			"PendingNew":    core.StatusNew,
		},
	})
}

// itemSpecs is shared by the REST and stream tables: the platform reuses
// its row shapes between both transports.
func itemSpecs() map[core.Endpoint]convert.ItemSpec {
	tradeSpec := convert.ItemSpec{
		New: func() core.Formattable { return &core.Trade{} },
		Fields: convert.Keyed(map[string]core.ParamName{
			"trdMatchID": core.ParamItemID,
			"timestamp":  core.ParamTimestamp,
			"symbol":     core.ParamSymbol,
			"size":       core.ParamAmount,
			"price":      core.ParamPrice,
			"side":       core.ParamDirection,
		}),
	}
	orderSpec := convert.ItemSpec{
		New: func() core.Formattable { return &core.Order{} },
		Fields: convert.Keyed(map[string]core.ParamName{
			"symbol":    core.ParamSymbol,
			"timestamp": core.ParamTimestamp,
			"orderID":   core.ParamItemID,
			"clOrdID":   core.ParamUserOrderID,
			"ordType":   core.ParamOrderType,
			"orderQty":  core.ParamAmountOriginal,
			"cumQty":    core.ParamAmountExecuted,
			"price":     core.ParamPrice,
			"stopPx":    core.ParamPriceStop,
			"side":      core.ParamDirection,
			"ordStatus": core.ParamOrderStatus,
		}),
	}
	tickerSpec := convert.ItemSpec{
		New: func() core.Formattable { return &core.Ticker{} },
		Fields: convert.Keyed(map[string]core.ParamName{
			"symbol":    core.ParamSymbol,
			"timestamp": core.ParamTimestamp,
			"lastPrice": core.ParamPrice,
		}),
	}
	balanceSpec := convert.ItemSpec{
		New: func() core.Formattable { return &core.Balance{} },
		Fields: convert.Keyed(map[string]core.ParamName{
			"currency":        core.ParamSymbol,
			"availableMargin": core.ParamAmountAvailable,
			"reservedAmount":  core.ParamAmountReserved,
			"unrealisedPnl":   core.ParamPNL,
		}),
	}
	positionSpec := convert.ItemSpec{
		New: func() core.Formattable { return &core.Position{} },
		Fields: convert.Keyed(map[string]core.ParamName{
			"symbol":           core.ParamSymbol,
			"timestamp":        core.ParamTimestamp,
			"currentQty":       core.ParamAmount,
			"isOpen":           core.ParamIsOpen,
			"liquidationPrice": core.ParamPriceMarginCall,
			"avgEntryPrice":    core.ParamPriceAverage,
			"unrealisedPnl":    core.ParamProfitNLoss,
		}),
	}
	pairSpec := convert.ItemSpec{
		New: func() core.Formattable { return &core.CurrencyPair{} },
		Fields: convert.Keyed(map[string]core.ParamName{
			"symbol":        core.ParamNameInPlatform,
			"underlying":    core.ParamSymbolBase,
			"quoteCurrency": core.ParamSymbolQuote,
			"lotSize":       core.ParamLotSizeMin,
			"maxOrderQty":   core.ParamLotSizeMax,
			"tickSize":      core.ParamPriceStep,
		}),
	}
	bookSpec := convert.ItemSpec{
		New: func() core.Formattable { return &core.OrderBook{} },
		Fields: convert.Keyed(map[string]core.ParamName{
			"symbol": core.ParamSymbol,
			"asks":   core.ParamAsks,
			"bids":   core.ParamBids,
		}),
	}

	return map[core.Endpoint]convert.ItemSpec{
		core.EndpointTrade:        tradeSpec,
		core.EndpointTradeHistory: tradeSpec,
		core.EndpointTradeMy: {
			New: func() core.Formattable { return &core.MyTrade{} },
			Fields: convert.Keyed(map[string]core.ParamName{
				"execID":     core.ParamItemID,
				"orderID":    core.ParamOrderID,
				"timestamp":  core.ParamTimestamp,
				"symbol":     core.ParamSymbol,
				"lastQty":    core.ParamAmount,
				"lastPx":     core.ParamPrice,
				"commission": core.ParamFee,
				"side":       core.ParamDirection,
			}),
		},
		core.EndpointCandle: {
			New: func() core.Formattable { return &core.Candle{} },
			Fields: convert.Keyed(map[string]core.ParamName{
				"symbol":    core.ParamSymbol,
				"timestamp": core.ParamTimestamp,
				"open":      core.ParamPriceOpen,
				"high":      core.ParamPriceHigh,
				"low":       core.ParamPriceLow,
				"close":     core.ParamPriceClose,
				"volume":    core.ParamVolume,
				"trades":    core.ParamTradesCount,
			}),
		},
		core.EndpointTicker:    tickerSpec,
		core.EndpointTickerAll: tickerSpec,
		core.EndpointOrderBook: bookSpec,
		core.EndpointQuote: {
			New: func() core.Formattable { return &core.Quote{} },
			Fields: convert.Keyed(map[string]core.ParamName{
				"symbol":    core.ParamSymbol,
				"timestamp": core.ParamTimestamp,
				"bidPrice":  core.ParamBestBid,
				"askPrice":  core.ParamBestAsk,
			}),
		},
		core.EndpointAccount: {
			New: func() core.Formattable { return &core.Account{} },
			Fields: convert.Keyed(map[string]core.ParamName{
				"timestamp": core.ParamTimestamp,
				"balances":  core.ParamBalances,
			}),
		},
		core.EndpointBalance: balanceSpec,
		core.EndpointBalanceTransaction: {
			New: func() core.Formattable { return &core.BalanceTransaction{} },
			Fields: convert.Keyed(map[string]core.ParamName{
				"currency":     core.ParamSymbol,
				"transactTime": core.ParamTimestamp,
				"transactID":   core.ParamItemID,
				"transactType": core.ParamTransactionType,
				"amount":       core.ParamAmount,
				"fee":          core.ParamFee,
			}),
		},
		core.EndpointOrder:         orderSpec,
		core.EndpointOrderCreate:   orderSpec,
		core.EndpointOrderCancel:   orderSpec,
		core.EndpointOrdersOpen:    orderSpec,
		core.EndpointOrdersAll:     orderSpec,
		core.EndpointPosition:      positionSpec,
		core.EndpointLeverageSet:   positionSpec,
		core.EndpointCurrencyPairs: pairSpec,
		core.EndpointSymbolsActive: pairSpec,
	}
}

func newRESTTables() convert.Tables {
	return convert.Tables{
		Endpoints: map[core.Endpoint]convert.EndpointRule{
			core.EndpointSymbols:            convert.Literal("instrument/active"),
			core.EndpointSymbolsActive:      convert.Literal("instrument/active"),
			core.EndpointCurrencyPairs:      convert.Literal("instrument/active"),
			core.EndpointTicker:             convert.Literal("instrument"),
			core.EndpointTickerAll:          convert.Literal("instrument/active"),
			core.EndpointTrade:              convert.Literal("trade"),
			core.EndpointTradeHistory:       convert.Literal("trade"),
			core.EndpointTradeMy:            convert.Literal("execution/tradeHistory"),
			core.EndpointCandle:             convert.Literal("trade/bucketed"),
			core.EndpointOrderBook:          convert.Literal("orderBook/L2"),
			core.EndpointQuote:              convert.Literal("orderBook/L2"),
			core.EndpointAccount:            convert.Literal("user/margin"),
			core.EndpointBalance:            convert.Literal("user/margin"),
			core.EndpointBalanceTransaction: convert.Literal("user/walletHistory"),
			core.EndpointOrderCreate:        convert.Literal("order"),
			core.EndpointOrderCancel:        convert.Literal("order"),
			core.EndpointOrdersAll:          convert.Literal("order"),
			core.EndpointOrdersAllCancel:    convert.Literal("order/all"),
			// Single-order and open-order reads go through the filter
			// expression the platform expects instead of plain params.
			core.EndpointOrder: convert.Func(func(p core.PlatformParams) (string, bool) {
				if id, ok := p["orderID"]; ok {
					delete(p, "orderID")
					p["filter"] = fmt.Sprintf(`{"orderID": %q}`, fmt.Sprint(id))
				}
				return "order", true
			}),
			core.EndpointOrdersOpen: convert.Func(func(p core.PlatformParams) (string, bool) {
				p["filter"] = `{"open": true}`
				return "order", true
			}),
			core.EndpointPosition: convert.Func(func(p core.PlatformParams) (string, bool) {
				if symbol, ok := p["symbol"]; ok {
					delete(p, "symbol")
					p["filter"] = fmt.Sprintf(`{"symbol": %q}`, fmt.Sprint(symbol))
				}
				return "position", true
			}),
			core.EndpointLeverageSet: convert.Literal("position/leverage"),
		},
		ParamNames: map[core.ParamName]convert.ParamTarget{
			core.ParamOrderID:       convert.To("orderID"),
			core.ParamUserOrderID:   convert.To("clOrdID"),
			core.ParamLimit:         convert.To("count"),
			core.ParamLimitSkip:     convert.To("start"),
			core.ParamSorting:       convert.To("reverse"),
			core.ParamInterval:      convert.To("binSize"),
			core.ParamDirection:     convert.To("side"),
			core.ParamOrderType:     convert.To("ordType"),
			core.ParamAmount:        convert.To("orderQty"),
			core.ParamFromItem:      convert.To("startTime"),
			core.ParamFromTime:      convert.To("startTime"),
			core.ParamToTime:        convert.To("endTime"),
			core.ParamPriceStop:     convert.To("stopPx"),
			core.ParamTimeInForce:   convert.To("timeInForce"),
			core.ParamLevel:         convert.To("depth"),
			core.ParamIsUseMaxLimit: convert.Dropped(),
			core.ParamToItem:        convert.Dropped(),
		},
		Values: newValues(),
		Items:  itemSpecs(),
		Error: convert.ErrorSpec{
			Wrapper:      "error",
			CodeField:    "name",
			MessageField: "message",
			CodeLookup: map[string]core.ErrorCode{
				"Unknown symbol": core.ErrCodeWrongSymbol,
				"RateLimitError": core.ErrCodeRateLimit,
			},
			MessageLookup: map[string]core.ErrorCode{
				"Maximum result count is": core.ErrCodeWrongLimit,
			},
			StatusLookup: map[int]core.ErrorCode{
				400: core.ErrCodeWrongParam,
				401: core.ErrCodeUnauthorized,
				429: core.ErrCodeRateLimit,
			},
		},
		MaxLimitByEndpoint: map[core.Endpoint]int{
			core.EndpointTrade:        500,
			core.EndpointTradeHistory: 500,
			core.EndpointCandle:       500,
		},
		SortingEndpoints: map[core.Endpoint]struct{}{
			core.EndpointTrade:              {},
			core.EndpointTradeHistory:       {},
			core.EndpointTradeMy:            {},
			core.EndpointCandle:             {},
			core.EndpointOrdersOpen:         {},
			core.EndpointOrdersAll:          {},
			core.EndpointBalanceTransaction: {},
		},
	}
}

// Stream channel names. Private tables authenticate at dial time.
func newWSTables() (convert.Tables, convert.WSTables) {
	symbolChannel := func(table string) convert.EndpointRule {
		return convert.Func(func(p core.PlatformParams) (string, bool) {
			symbol, _ := p["symbol"].(string)
			if symbol == "" {
				return "", false
			}
			return table + ":" + symbol, true
		})
	}

	specs := itemSpecs()
	tables := convert.Tables{
		Endpoints: map[core.Endpoint]convert.EndpointRule{
			core.EndpointTrade:   symbolChannel("trade"),
			core.EndpointTradeMy: convert.Literal("execution"),
			core.EndpointCandle: convert.Func(func(p core.PlatformParams) (string, bool) {
				bin, _ := p["binSize"].(string)
				if bin == "" {
					bin = "1m"
				}
				return "tradeBin" + bin, true
			}),
			core.EndpointTicker:    convert.Literal("instrument"),
			core.EndpointTickerAll: convert.Literal("instrument"),
			core.EndpointOrderBook: convert.Func(func(p core.PlatformParams) (string, bool) {
				symbol, _ := p["symbol"].(string)
				if symbol == "" {
					return "", false
				}
				if depth, ok := p["depth"].(int); ok && depth > 0 && depth <= 25 {
					return "orderBookL2_25:" + symbol, true
				}
				return "orderBookL2:" + symbol, true
			}),
			core.EndpointOrderBookDiff: symbolChannel("orderBookL2"),
			core.EndpointQuote:         symbolChannel("quote"),
			core.EndpointBalance:       convert.Literal("margin"),
			core.EndpointPosition:      convert.Literal("position"),
			core.EndpointOrder:         convert.Literal("order"),
		},
		ParamNames: map[core.ParamName]convert.ParamTarget{
			core.ParamInterval: convert.To("binSize"),
			core.ParamLevel:    convert.To("depth"),
		},
		Values: newValues(),
		Items:  specs,
	}

	ws := convert.WSTables{
		GenericEndpoints: map[core.Endpoint]struct{}{
			core.EndpointCandle:    {},
			core.EndpointTicker:    {},
			core.EndpointTickerAll: {},
			core.EndpointTradeMy:   {},
			core.EndpointBalance:   {},
			core.EndpointPosition:  {},
			core.EndpointOrder:     {},
		},
		EndpointsByEventType: map[string][]core.Endpoint{
			"trade":          {core.EndpointTrade},
			"execution":      {core.EndpointTradeMy},
			"quote":          {core.EndpointQuote},
			"instrument":     {core.EndpointTicker},
			"margin":         {core.EndpointBalance},
			"position":       {core.EndpointPosition},
			"order":          {core.EndpointOrder},
			"orderBookL2":    {core.EndpointOrderBook},
			"orderBookL2_25": {core.EndpointOrderBook},
			"tradeBin1m":     {core.EndpointCandle},
			"tradeBin5m":     {core.EndpointCandle},
			"tradeBin1h":     {core.EndpointCandle},
			"tradeBin1d":     {core.EndpointCandle},
		},
		SymbolField: "symbol",
	}
	return tables, ws
}
