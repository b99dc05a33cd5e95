package core

// Endpoint is a canonical named operation or data resource. Endpoints are the
// keys of every per-platform lookup table; translating an Endpoint to a
// platform path or channel name is the converter's job.
type Endpoint string

// Canonical endpoints. A platform converter maps each of these to its own
// path segment or subscription channel; an endpoint absent from a platform's
// table is passed through verbatim.
const (
	EndpointPing          Endpoint = "ping"
	EndpointServerTime    Endpoint = "server_time"
	EndpointSymbols       Endpoint = "symbols"
	EndpointSymbolsActive Endpoint = "symbols_active"
	EndpointCurrencyPairs Endpoint = "currency_pairs"

	EndpointTrade        Endpoint = "trade"
	EndpointTradeHistory Endpoint = "trade_history"
	EndpointTradeMy      Endpoint = "trade_my"
	EndpointCandle       Endpoint = "candle"
	EndpointTicker       Endpoint = "ticker"
	EndpointTickerAll    Endpoint = "ticker_all"
	EndpointOrderBook    Endpoint = "order_book"
	// EndpointOrderBookDiff delivers raw incremental book updates. Callers
	// subscribed to EndpointOrderBook instead receive reassembled full books.
	EndpointOrderBookDiff Endpoint = "order_book_diff"
	EndpointOrderBookAgg  Endpoint = "order_book_agg"
	EndpointQuote         Endpoint = "quote"

	EndpointAccount            Endpoint = "account"
	EndpointBalance            Endpoint = "balance"
	EndpointBalanceTransaction Endpoint = "balance_transaction"
	EndpointOrder              Endpoint = "order"
	EndpointOrderCreate        Endpoint = "order_create"
	EndpointOrderCancel        Endpoint = "order_cancel"
	EndpointOrdersOpen         Endpoint = "orders_open"
	EndpointOrdersAll          Endpoint = "orders_all"
	EndpointOrdersAllCancel    Endpoint = "orders_all_cancel"
	EndpointPosition           Endpoint = "position"
	EndpointPositionClose      Endpoint = "position_close"
	EndpointLeverageSet        Endpoint = "leverage_set"
	EndpointTransfer           Endpoint = "transfer"
)

// IsPrivate reports whether the endpoint touches account-scoped data and
// therefore requires signed requests or an authenticated stream.
func (e Endpoint) IsPrivate() bool {
	switch e {
	case EndpointTradeMy, EndpointAccount, EndpointBalance, EndpointBalanceTransaction,
		EndpointOrder, EndpointOrderCreate, EndpointOrderCancel, EndpointOrdersOpen,
		EndpointOrdersAll, EndpointOrdersAllCancel, EndpointPosition,
		EndpointPositionClose, EndpointLeverageSet, EndpointTransfer:
		return true
	}
	return false
}
