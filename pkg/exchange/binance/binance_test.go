package binance

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omniex/pkg/convert"
	"omniex/pkg/core"
)

func newTestREST(t *testing.T) *convert.RESTConverter {
	t.Helper()
	rest, err := convert.NewREST(restConfig(), newRESTTables(zerolog.Nop()), newSigner(), zerolog.Nop())
	require.NoError(t, err)
	return rest.WithHooks(preparePayload, postItem)
}

func newTestWS(t *testing.T) *convert.WSConverter {
	t.Helper()
	tables, dispatch := newWSTables()
	conv, err := convert.NewWS(wsConfig(), tables, dispatch, zerolog.Nop())
	require.NoError(t, err)
	return conv
}

func decode(t *testing.T, raw string) any {
	t.Helper()
	payload, err := convert.DecodeJSON([]byte(raw))
	require.NoError(t, err)
	return payload
}

func TestSignerSortsAndSigns(t *testing.T) {
	sgn := newSigner()
	sgn.now = func() int64 { return 1_499_827_319_559 }
	creds := core.Credentials{APIKey: "key", SecretKey: "secret"}

	req := core.NewRequest(http.MethodGet, "https://api.binance.com/api/v3/allOrders")
	req.SetQuery("symbol", "LTCBTC")
	req.SetQuery("limit", 10)
	require.NoError(t, sgn.Sign(req, creds))

	assert.Equal(t, "key", req.Headers[apiKeyHeader])
	assert.Nil(t, req.Query)

	base, sig, found := strings.Cut(req.URL, "&signature=")
	require.True(t, found)
	query := "limit=10&symbol=LTCBTC&timestamp=1499827319559"
	assert.Equal(t, "https://api.binance.com/api/v3/allOrders?"+query, base)

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte(query))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), sig)
}

func TestSignerHistoricalTradesHeaderOnly(t *testing.T) {
	sgn := newSigner()
	creds := core.Credentials{APIKey: "key"}

	req := core.NewRequest(http.MethodGet, "https://api.binance.com/api/v3/historicalTrades")
	req.Endpoint = core.EndpointTradeHistory
	req.SetQuery("symbol", "BTCUSDT")
	require.NoError(t, sgn.Sign(req, creds))

	assert.Equal(t, "key", req.Headers[apiKeyHeader])
	assert.NotContains(t, req.URL, "signature")
	assert.Equal(t, "BTCUSDT", req.Query["symbol"])
}

func TestSignerMissingCredentials(t *testing.T) {
	sgn := newSigner()
	req := core.NewRequest(http.MethodGet, "https://api.binance.com/api/v3/account")
	err := sgn.Sign(req, core.Credentials{})
	assert.True(t, core.IsErrorCode(err, core.ErrCodeUnauthorized))
}

func TestParseTrades(t *testing.T) {
	rest := newTestREST(t)
	payload := decode(t, `[
		{"id": 28457, "price": "4.00000100", "qty": "12.00000000", "time": 1499865549590, "isBuyerMaker": true},
		{"id": 28458, "price": "4.00000200", "qty": "1.00000000", "time": 1499865549600, "isBuyerMaker": false}
	]`)

	items, err := rest.Parse(core.EndpointTrade, payload)
	require.NoError(t, err)
	require.Len(t, items, 2)

	trade, ok := items[0].(*core.Trade)
	require.True(t, ok)
	assert.Equal(t, core.PlatformBinance, trade.Platform)
	assert.Equal(t, "28457", trade.ItemID)
	assert.Equal(t, int64(1499865549590), trade.Timestamp)
	assert.Equal(t, "4.00000100", trade.Price.String())
	assert.Equal(t, "12.00000000", trade.Amount.String())
}

func TestParseMyTradesDirection(t *testing.T) {
	rest := newTestREST(t)
	payload := decode(t, `[
		{"symbol": "BNBBTC", "id": 28457, "orderId": 100234, "price": "4.00000100",
		 "qty": "12.00000000", "commission": "10.10000000", "time": 1499865549590,
		 "isBuyer": true, "isMaker": false}
	]`)

	items, err := rest.Parse(core.EndpointTradeMy, payload)
	require.NoError(t, err)
	require.Len(t, items, 1)

	trade := items[0].(*core.MyTrade)
	assert.Equal(t, core.DirectionBuy, trade.Direction)
	assert.Equal(t, "100234", trade.OrderID)
	assert.Equal(t, "10.10000000", trade.Fee.String())
}

func TestParseCandles(t *testing.T) {
	rest := newTestREST(t)
	payload := decode(t, `[
		[1499040000000, "0.01634790", "0.80000000", "0.01575800", "0.01577100",
		 "148976.11427815", 1499644799999, "2434.19055334", 308, "1756.87", "28.46", "0"]
	]`)

	items, err := rest.Parse(core.EndpointCandle, payload)
	require.NoError(t, err)
	require.Len(t, items, 1)

	candle := items[0].(*core.Candle)
	assert.Equal(t, int64(1499040000000), candle.Timestamp)
	assert.Equal(t, "0.01634790", candle.PriceOpen.String())
	assert.Equal(t, "0.80000000", candle.PriceHigh.String())
	assert.Equal(t, "0.01575800", candle.PriceLow.String())
	assert.Equal(t, "0.01577100", candle.PriceClose.String())
	assert.Equal(t, "148976.11427815", candle.Volume.String())
	assert.Equal(t, int64(308), candle.TradesCount)
}

func TestServerTimeHook(t *testing.T) {
	rest := newTestREST(t)
	payload := decode(t, `{"serverTime": 1499827319559}`)

	items, err := rest.Parse(core.EndpointServerTime, payload)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(1499827319559), items[0])
}

func TestSymbolsHook(t *testing.T) {
	rest := newTestREST(t)
	payload := decode(t, `{"symbols": [
		{"symbol": "BTCUSDT", "baseAsset": "BTC", "quoteAsset": "USDT"},
		{"symbol": "ETHBTC", "baseAsset": "ETH", "quoteAsset": "BTC"}
	]}`)

	items, err := rest.Parse(core.EndpointSymbols, payload)
	require.NoError(t, err)
	assert.Equal(t, []any{"BTC_USDT", "ETH_BTC"}, items)
}

func TestParseCurrencyPairs(t *testing.T) {
	rest := newTestREST(t)
	payload := decode(t, `{"symbols": [
		{"symbol": "BTCUSDT", "baseAsset": "BTC", "quoteAsset": "USDT", "filters": [
			{"filterType": "LOT_SIZE", "minQty": "0.00001000", "maxQty": "9000.00000000", "stepSize": "0.00001000"},
			{"filterType": "PRICE_FILTER", "minPrice": "0.01000000", "tickSize": "0.01000000"},
			{"filterType": "MIN_NOTIONAL", "minNotional": "10.00000000"}
		]}
	]}`)

	items, err := rest.Parse(core.EndpointCurrencyPairs, payload)
	require.NoError(t, err)
	require.Len(t, items, 1)

	pair := items[0].(*core.CurrencyPair)
	assert.Equal(t, "BTC_USDT", pair.Symbol)
	assert.Equal(t, "BTC", pair.Base)
	assert.Equal(t, "USDT", pair.Quote)
	assert.Equal(t, "BTCUSDT", pair.NameInPlatform)
	assert.Equal(t, "0.00001000", pair.LotSizeMin.String())
	assert.Equal(t, "0.00001000", pair.LotSizeStep.String())
	assert.Equal(t, "0.01000000", pair.PriceStep.String())
	assert.Equal(t, "10.00000000", pair.MinNotional.String())
}

func TestParseBalancesUnwrap(t *testing.T) {
	rest := newTestREST(t)
	payload := decode(t, `{"updateTime": 123456789, "balances": [
		{"asset": "BTC", "free": "4723846.89208129", "locked": "0.00000000"},
		{"asset": "LTC", "free": "4763368.68006011", "locked": "1.00000000"}
	]}`)

	items, err := rest.Parse(core.EndpointBalance, payload)
	require.NoError(t, err)
	require.Len(t, items, 2)

	balance := items[0].(*core.Balance)
	assert.Equal(t, "BTC", balance.Symbol)
	assert.Equal(t, "4723846.89208129", balance.AmountAvailable.String())
	assert.Equal(t, "0.00000000", balance.AmountReserved.String())
}

func TestParseErrorTable(t *testing.T) {
	rest := newTestREST(t)
	payload := decode(t, `{"code": -1121, "msg": "Invalid symbol."}`)

	perr := rest.ParseError(400, payload)
	require.NotNil(t, perr)
	assert.Equal(t, core.ErrCodeWrongSymbol, perr.Code)
	assert.Equal(t, "-1121", perr.PlatformCode)
	assert.Equal(t, "Invalid symbol.", perr.PlatformMessage)
}

func TestOrderBookLimitFallback(t *testing.T) {
	rest := newTestREST(t)

	req, err := rest.BuildRequest(http.MethodGet, core.EndpointOrderBook, core.Params{
		core.ParamSymbol: "BTC_USDT",
		core.ParamLevel:  33,
	})
	require.NoError(t, err)
	assert.Equal(t, bookLimitFallback, req.Query["limit"])

	req, err = rest.BuildRequest(http.MethodGet, core.EndpointOrderBook, core.Params{
		core.ParamSymbol: "BTC_USDT",
		core.ParamLevel:  500,
	})
	require.NoError(t, err)
	assert.Equal(t, 500, req.Query["limit"])
}

func TestOrdersAllFromItemBecomesStartTime(t *testing.T) {
	rest := newTestREST(t)

	req, err := rest.BuildRequest(http.MethodGet, core.EndpointOrdersAll, core.Params{
		core.ParamSymbol:   "BTC_USDT",
		core.ParamFromItem: &core.Order{Item: core.Item{Timestamp: 1_560_000_000_000}},
	})
	require.NoError(t, err)
	assert.NotContains(t, req.Query, "fromId")
	assert.Equal(t, "https://api.binance.com/api/v3/allOrders", req.URL)
	assert.Contains(t, req.Query, "startTime")
}

func TestGenerateSubscriptions(t *testing.T) {
	conv := newTestWS(t)

	subs, err := conv.GenerateSubscriptions(
		[]core.Endpoint{core.EndpointTrade, core.EndpointCandle},
		[]string{"BTC_USDT", "ETH_USDT"},
		core.Params{core.ParamInterval: core.Interval1m},
	)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"btcusdt@trade", "ethusdt@trade",
		"btcusdt@kline_1m", "ethusdt@kline_1m",
	}, subs)

	info, found := conv.LookupSubscription("btcusdt@kline_1m")
	require.True(t, found)
	assert.Equal(t, core.EndpointCandle, info.Endpoint)
	assert.Equal(t, "BTC_USDT", info.Symbol)
}

func TestGenerateSubscriptionsGeneric(t *testing.T) {
	conv := newTestWS(t)

	subs, err := conv.GenerateSubscriptions(
		[]core.Endpoint{core.EndpointTickerAll},
		[]string{"BTC_USDT", "ETH_USDT"},
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"!miniTicker@arr"}, subs)
}

func TestAdapterURLForms(t *testing.T) {
	conv := newTestWS(t)
	keys := &listenKeys{}
	keys.key = "abc123"
	adapter := newWSAdapter(conv, keys, zerolog.Nop())

	assert.Equal(t, wsBaseURL+"ws", adapter.URL(nil))
	assert.Equal(t, wsBaseURL+"ws/btcusdt@trade", adapter.URL([]string{"btcusdt@trade"}))
	assert.Equal(t,
		wsBaseURL+"stream?streams=btcusdt@trade/ethusdt@trade",
		adapter.URL([]string{"ethusdt@trade", "btcusdt@trade"}))
	assert.Equal(t, wsBaseURL+"ws/abc123", adapter.URL([]string{subBalance, subOrder}))
}

func TestHandleTradeFrame(t *testing.T) {
	conv := newTestWS(t)
	_, err := conv.GenerateSubscriptions([]core.Endpoint{core.EndpointTrade}, []string{"BTC_USDT"}, nil)
	require.NoError(t, err)
	adapter := newWSAdapter(conv, &listenKeys{}, zerolog.Nop())

	frame := `{"stream": "btcusdt@trade", "data": {
		"e": "trade", "E": 123456789, "s": "BTCUSDT", "t": 12345,
		"p": "0.001", "q": "100", "T": 123456785, "m": true
	}}`
	items, err := adapter.HandleMessage(nil, []byte(frame))
	require.NoError(t, err)
	require.Len(t, items, 1)

	trade := items[0].(*core.Trade)
	assert.Equal(t, "12345", trade.ItemID)
	assert.Equal(t, int64(123456785), trade.Timestamp)
	assert.Equal(t, "0.001", trade.Price.String())
	assert.Equal(t, core.DirectionSell, trade.Direction)
	assert.Equal(t, "btcusdt@trade", trade.Subscription)
}

func TestHandleKlineFrame(t *testing.T) {
	conv := newTestWS(t)
	_, err := conv.GenerateSubscriptions(
		[]core.Endpoint{core.EndpointCandle}, []string{"BTC_USDT"},
		core.Params{core.ParamInterval: core.Interval1m})
	require.NoError(t, err)
	adapter := newWSAdapter(conv, &listenKeys{}, zerolog.Nop())

	frame := `{"e": "kline", "E": 123456789, "s": "BTCUSDT", "k": {
		"t": 123400000, "T": 123460000, "s": "BTCUSDT", "i": "1m",
		"o": "0.0010", "c": "0.0020", "h": "0.0025", "l": "0.0015",
		"v": "1000", "n": 100, "x": false
	}}`
	items, err := adapter.HandleMessage(nil, []byte(frame))
	require.NoError(t, err)
	require.Len(t, items, 1)

	candle := items[0].(*core.Candle)
	assert.Equal(t, core.Interval1m, candle.Interval)
	assert.Equal(t, int64(123400000), candle.Timestamp)
	assert.Equal(t, "0.0010", candle.PriceOpen.String())
	assert.Equal(t, "0.0020", candle.PriceClose.String())
	assert.Equal(t, int64(100), candle.TradesCount)
}

func TestHandleExecutionReportFanOut(t *testing.T) {
	conv := newTestWS(t)
	_, err := conv.GenerateSubscriptions(
		[]core.Endpoint{core.EndpointOrder, core.EndpointTradeMy}, nil, nil)
	require.NoError(t, err)
	adapter := newWSAdapter(conv, &listenKeys{}, zerolog.Nop())

	frame := `{"e": "executionReport", "E": 1499405658658, "s": "ETHBTC",
		"c": "mUvoqJxFIILMdfAW5iGSOW", "S": "BUY", "o": "LIMIT", "q": "1.00000000",
		"p": "0.10264410", "P": "0.00000000", "X": "NEW", "i": 4293153,
		"l": "0.00000000", "z": "0.00000000", "L": "0.00000000",
		"n": "0", "T": 1499405658657, "t": -1}`
	items, err := adapter.HandleMessage(nil, []byte(frame))
	require.NoError(t, err)
	require.Len(t, items, 1)

	order, ok := items[0].(*core.Order)
	require.True(t, ok)
	assert.Equal(t, "4293153", order.ItemID)
	assert.Equal(t, "mUvoqJxFIILMdfAW5iGSOW", order.UserOrderID)
	assert.Equal(t, core.OrderTypeLimit, order.OrderType)
	assert.Equal(t, core.StatusNew, order.OrderStatus)
	assert.Equal(t, core.DirectionBuy, order.Direction)
}

func TestHandleExecutionReportWithFill(t *testing.T) {
	conv := newTestWS(t)
	_, err := conv.GenerateSubscriptions(
		[]core.Endpoint{core.EndpointOrder, core.EndpointTradeMy}, nil, nil)
	require.NoError(t, err)
	adapter := newWSAdapter(conv, &listenKeys{}, zerolog.Nop())

	frame := `{"e": "executionReport", "E": 1499405658658, "s": "ETHBTC",
		"c": "abc", "S": "SELL", "o": "LIMIT", "q": "1.00000000",
		"p": "0.10264410", "X": "PARTIALLY_FILLED", "i": 4293153,
		"l": "0.50000000", "z": "0.50000000", "L": "0.10264410",
		"n": "0.001", "T": 1499405658657, "t": 77}`
	items, err := adapter.HandleMessage(nil, []byte(frame))
	require.NoError(t, err)
	require.Len(t, items, 2)

	trade, ok := items[1].(*core.MyTrade)
	require.True(t, ok)
	assert.Equal(t, "77", trade.ItemID)
	assert.Equal(t, "0.50000000", trade.Amount.String())
	assert.Equal(t, "0.10264410", trade.Price.String())
	assert.Equal(t, core.DirectionSell, trade.Direction)
}

func TestHandleBalanceFrame(t *testing.T) {
	conv := newTestWS(t)
	_, err := conv.GenerateSubscriptions([]core.Endpoint{core.EndpointBalance}, nil, nil)
	require.NoError(t, err)
	adapter := newWSAdapter(conv, &listenKeys{}, zerolog.Nop())

	frame := `{"e": "outboundAccountInfo", "E": 1499405658849, "B": [
		{"a": "LTC", "f": "17366.18538083", "l": "0.00000000"},
		{"a": "BTC", "f": "10537.85314051", "l": "2.19464093"}
	]}`
	items, err := adapter.HandleMessage(nil, []byte(frame))
	require.NoError(t, err)
	require.Len(t, items, 2)

	balance := items[1].(*core.Balance)
	assert.Equal(t, "BTC", balance.Symbol)
	assert.Equal(t, "10537.85314051", balance.AmountAvailable.String())
	assert.Equal(t, "2.19464093", balance.AmountReserved.String())
}
