package exchange

import (
	"context"
	"net/http"
	"strings"

	"omniex/pkg/core"
	"omniex/pkg/session"
	"omniex/pkg/stream"
)

// Base implements the Exchange interface generically over a session and a
// stream client. Platform packages embed it and override only the calls
// their platform shapes differently.
type Base struct {
	name string
	sess *session.Session
	str  *stream.Client
}

// NewBase wires a facade over its session and stream client.
func NewBase(name string, sess *session.Session, str *stream.Client) *Base {
	return &Base{name: name, sess: sess, str: str}
}

// Platform returns the canonical platform identifier.
func (b *Base) Platform() core.Platform {
	return b.sess.Config().Platform
}

// Name returns the human-readable exchange name.
func (b *Base) Name() string {
	return b.name
}

// Session exposes the underlying REST session.
func (b *Base) Session() *session.Session {
	return b.sess
}

// Stream exposes the underlying stream client.
func (b *Base) Stream() *stream.Client {
	return b.str
}

// Close shuts down the REST session and the stream connection.
func (b *Base) Close() error {
	err := b.sess.Close()
	if b.str != nil {
		if serr := b.str.Close(); err == nil {
			err = serr
		}
	}
	return err
}

// Ping checks platform reachability.
func (b *Base) Ping(ctx context.Context) error {
	return b.sess.Ping(ctx)
}

// FetchSymbols lists the platform's tradable symbols in canonical form.
func (b *Base) FetchSymbols(ctx context.Context) ([]string, error) {
	items, err := b.sess.Fetch(ctx, http.MethodGet, core.EndpointSymbols, nil)
	if err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			symbols = append(symbols, s)
		}
	}
	return symbols, nil
}

// FetchCurrencyPairs returns instrument metadata with quantization rules.
func (b *Base) FetchCurrencyPairs(ctx context.Context, opts ...Option) ([]*core.CurrencyPair, error) {
	return collect[core.CurrencyPair](
		b.sess.Fetch(ctx, http.MethodGet, core.EndpointCurrencyPairs, ApplyOptions(opts...).Params()))
}

// FetchTrades returns recent public trades for a symbol.
func (b *Base) FetchTrades(ctx context.Context, symbol string, opts ...Option) ([]*core.Trade, error) {
	p := ApplyOptions(opts...).Params()
	p[core.ParamSymbol] = symbol
	return collect[core.Trade](b.sess.Fetch(ctx, http.MethodGet, core.EndpointTrade, p))
}

// FetchTradesHistory returns older public trades, paged by the platform's
// history mechanism.
func (b *Base) FetchTradesHistory(ctx context.Context, symbol string, opts ...Option) ([]*core.Trade, error) {
	p := ApplyOptions(opts...).Params()
	p[core.ParamSymbol] = symbol
	return collect[core.Trade](b.sess.Fetch(ctx, http.MethodGet, core.EndpointTradeHistory, p))
}

// FetchCandles returns OHLCV history for a symbol and interval.
func (b *Base) FetchCandles(ctx context.Context, symbol string, interval core.CandleInterval, opts ...Option) ([]*core.Candle, error) {
	p := ApplyOptions(opts...).Params()
	p[core.ParamSymbol] = symbol
	p[core.ParamInterval] = interval
	candles, err := collect[core.Candle](b.sess.Fetch(ctx, http.MethodGet, core.EndpointCandle, p))
	if err != nil {
		return nil, err
	}
	for _, c := range candles {
		if c.Interval == "" {
			c.Interval = interval
		}
		if c.Symbol == "" {
			c.Symbol = strings.ToUpper(symbol)
		}
	}
	return candles, nil
}

// FetchTicker returns the latest price for a symbol.
func (b *Base) FetchTicker(ctx context.Context, symbol string, opts ...Option) (*core.Ticker, error) {
	p := ApplyOptions(opts...).Params()
	p[core.ParamSymbol] = symbol
	return first[core.Ticker](b.sess.FetchOne(ctx, http.MethodGet, core.EndpointTicker, p))
}

// FetchTickers returns the latest price for every symbol.
func (b *Base) FetchTickers(ctx context.Context, opts ...Option) ([]*core.Ticker, error) {
	return collect[core.Ticker](
		b.sess.Fetch(ctx, http.MethodGet, core.EndpointTickerAll, ApplyOptions(opts...).Params()))
}

// FetchQuote returns the top of the book for a symbol.
func (b *Base) FetchQuote(ctx context.Context, symbol string, opts ...Option) (*core.Quote, error) {
	p := ApplyOptions(opts...).Params()
	p[core.ParamSymbol] = symbol
	return first[core.Quote](b.sess.FetchOne(ctx, http.MethodGet, core.EndpointQuote, p))
}

// FetchOrderBook returns a book snapshot for a symbol. Platforms that omit
// the symbol from the payload get it stamped from the request.
func (b *Base) FetchOrderBook(ctx context.Context, symbol string, opts ...Option) (*core.OrderBook, error) {
	p := ApplyOptions(opts...).Params()
	p[core.ParamSymbol] = symbol
	book, err := first[core.OrderBook](b.sess.FetchOne(ctx, http.MethodGet, core.EndpointOrderBook, p))
	if err != nil {
		return nil, err
	}
	if book.Symbol == "" {
		book.Symbol = strings.ToUpper(symbol)
		book.SetAsks(book.Asks)
		book.SetBids(book.Bids)
	}
	return book, nil
}

// FetchBalances returns the account's asset balances.
func (b *Base) FetchBalances(ctx context.Context, opts ...Option) ([]*core.Balance, error) {
	return collect[core.Balance](
		b.sess.Fetch(ctx, http.MethodGet, core.EndpointBalance, ApplyOptions(opts...).Params()))
}

// FetchMyTrades returns the account's own executions. An empty symbol
// fetches across all symbols on platforms that allow it.
func (b *Base) FetchMyTrades(ctx context.Context, symbol string, opts ...Option) ([]*core.MyTrade, error) {
	p := ApplyOptions(opts...).Params()
	if symbol != "" {
		p[core.ParamSymbol] = symbol
	}
	return collect[core.MyTrade](b.sess.Fetch(ctx, http.MethodGet, core.EndpointTradeMy, p))
}

// CreateOrder places a new order and returns the platform's view of it.
func (b *Base) CreateOrder(ctx context.Context, req *OrderRequest) (*core.Order, error) {
	p := core.Params{
		core.ParamSymbol:    req.Symbol,
		core.ParamDirection: req.Direction,
		core.ParamOrderType: req.OrderType,
		core.ParamAmount:    req.Amount,
	}
	if !req.Price.IsZero() {
		p[core.ParamPrice] = req.Price
	}
	if !req.PriceStop.IsZero() {
		p[core.ParamPriceStop] = req.PriceStop
	}
	if req.OrderType != core.OrderTypeMarket {
		p[core.ParamTimeInForce] = req.TimeInForce
	}
	if req.UserOrderID != "" {
		p[core.ParamUserOrderID] = req.UserOrderID
	}
	return first[core.Order](b.sess.FetchOne(ctx, http.MethodPost, core.EndpointOrderCreate, p))
}

// CancelOrder cancels a working order.
func (b *Base) CancelOrder(ctx context.Context, req *CancelRequest) (*core.Order, error) {
	p := core.Params{core.ParamOrderID: req.OrderID}
	if req.Symbol != "" {
		p[core.ParamSymbol] = req.Symbol
	}
	return first[core.Order](b.sess.FetchOne(ctx, http.MethodDelete, core.EndpointOrderCancel, p))
}

// FetchOrder looks up one order by its platform id.
func (b *Base) FetchOrder(ctx context.Context, q *OrderQuery) (*core.Order, error) {
	p := core.Params{core.ParamOrderID: q.OrderID}
	if q.Symbol != "" {
		p[core.ParamSymbol] = q.Symbol
	}
	return first[core.Order](b.sess.FetchOne(ctx, http.MethodGet, core.EndpointOrder, p))
}

// FetchOpenOrders returns the account's working orders.
func (b *Base) FetchOpenOrders(ctx context.Context, symbol string, opts ...Option) ([]*core.Order, error) {
	p := ApplyOptions(opts...).Params()
	if symbol != "" {
		p[core.ParamSymbol] = symbol
	}
	return collect[core.Order](b.sess.Fetch(ctx, http.MethodGet, core.EndpointOrdersOpen, p))
}

// SubscribeTrades streams public trades for the symbols. A nil slice means
// every symbol the platform knows.
func (b *Base) SubscribeTrades(ctx context.Context, symbols []string) error {
	return b.str.Subscribe(ctx, []core.Endpoint{core.EndpointTrade}, symbols, nil)
}

// SubscribeCandles streams candles at the interval.
func (b *Base) SubscribeCandles(ctx context.Context, symbols []string, interval core.CandleInterval) error {
	return b.str.Subscribe(ctx, []core.Endpoint{core.EndpointCandle}, symbols,
		core.Params{core.ParamInterval: interval})
}

// SubscribeTickers streams price updates. A nil slice subscribes the
// platform's all-symbols feed when it has one.
func (b *Base) SubscribeTickers(ctx context.Context, symbols []string) error {
	if symbols == nil {
		return b.str.Subscribe(ctx, []core.Endpoint{core.EndpointTickerAll}, nil, nil)
	}
	return b.str.Subscribe(ctx, []core.Endpoint{core.EndpointTicker}, symbols, nil)
}

// SubscribeQuotes streams top-of-book updates.
func (b *Base) SubscribeQuotes(ctx context.Context, symbols []string) error {
	return b.str.Subscribe(ctx, []core.Endpoint{core.EndpointQuote}, symbols, nil)
}

// SubscribeOrderBook streams book snapshots at the requested depth.
func (b *Base) SubscribeOrderBook(ctx context.Context, symbols []string, level core.DepthLevel) error {
	return b.str.Subscribe(ctx, []core.Endpoint{core.EndpointOrderBook}, symbols,
		core.Params{core.ParamLevel: level})
}

// SubscribeOrderBookDiff streams raw incremental book updates.
func (b *Base) SubscribeOrderBookDiff(ctx context.Context, symbols []string) error {
	return b.str.Subscribe(ctx, []core.Endpoint{core.EndpointOrderBookDiff}, symbols, nil)
}

// SubscribePrivate streams the account's balances, orders, and executions.
func (b *Base) SubscribePrivate(ctx context.Context) error {
	return b.str.Subscribe(ctx,
		[]core.Endpoint{core.EndpointBalance, core.EndpointOrder, core.EndpointTradeMy}, nil, nil)
}
