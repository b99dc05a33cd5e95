// Package bitmex adapts the BitMEX derivatives API to the canonical
// interface: expiring HMAC auth over REST v1 and the realtime table
// replication protocol over the socket.
package bitmex

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"omniex/pkg/convert"
	"omniex/pkg/core"
	"omniex/pkg/exchange"
	"omniex/pkg/session"
	"omniex/pkg/stream"
)

// maxTradeSubscriptions caps per-symbol trade channels on one connection.
const maxTradeSubscriptions = 50

// Exchange is the BitMEX implementation of exchange.Exchange, extended
// with the derivative-only operations (positions, leverage, ledger).
type Exchange struct {
	*exchange.Base
	adapter *wsAdapter
	prices  *core.InversePriceRegistry
	log     zerolog.Logger
}

var _ exchange.Exchange = (*Exchange)(nil)

// New builds a connected-but-idle exchange from the given configuration.
func New(cfg *core.Config, log zerolog.Logger) (*Exchange, error) {
	if cfg == nil {
		cfg = core.DefaultConfig(core.PlatformBitMEX)
	}
	log = log.With().Str("exchange", "bitmex").Logger()

	sgn := newSigner()
	rest, err := convert.NewREST(restConfig(), newRESTTables(), sgn, log)
	if err != nil {
		return nil, err
	}
	rest.WithHooks(preparePayload, postItem)

	sess, err := session.New(cfg, rest, log)
	if err != nil {
		return nil, err
	}
	sgn.now = sess.Now

	wsTables, wsDispatch := newWSTables()
	wsConv, err := convert.NewWS(wsConfig(), wsTables, wsDispatch, log)
	if err != nil {
		sess.Close()
		return nil, err
	}

	var creds core.Credentials
	if cfg.Credentials != nil {
		creds = *cfg.Credentials
	}
	adapter := newWSAdapter(wsConv, creds, sess.Now, log)
	str := stream.NewClient(stream.DefaultConfig(), wsConv, adapter, log)

	return &Exchange{
		Base:    exchange.NewBase("bitmex", sess, str),
		adapter: adapter,
		prices:  defaultInversePrices(),
		log:     log,
	}, nil
}

// defaultInversePrices registers the quanto and inverse contracts whose
// quoted price is not the settlement price.
func defaultInversePrices() *core.InversePriceRegistry {
	r := core.NewInversePriceRegistry()
	r.Register(core.PlatformBitMEX, "XBTUSD", core.ReciprocalTransform{Places: 8})
	r.Register(core.PlatformBitMEX, "ETHUSD", core.ScaleTransform{Scale: core.MustDecimal("0.000001")})
	return r
}

// InversePrices exposes the per-instrument price transforms.
func (e *Exchange) InversePrices() *core.InversePriceRegistry {
	return e.prices
}

// Ping probes the active instrument list: the platform has no dedicated
// ping endpoint.
func (e *Exchange) Ping(ctx context.Context) error {
	_, err := e.Session().Fetch(ctx, http.MethodGet, core.EndpointSymbolsActive,
		core.Params{core.ParamLimit: 1})
	return err
}

// FetchQuote reads the top of the book: the platform serves quotes as a
// depth-one L2 book.
func (e *Exchange) FetchQuote(ctx context.Context, symbol string, opts ...exchange.Option) (*core.Quote, error) {
	return e.Base.FetchQuote(ctx, symbol, append(opts, exchange.WithDepth(1))...)
}

// SubscribeTrades enforces the per-connection trade channel cap.
func (e *Exchange) SubscribeTrades(ctx context.Context, symbols []string) error {
	if len(symbols) > maxTradeSubscriptions {
		return core.NewError(core.PlatformBitMEX, core.ErrCodeWrongParam, "too many trade subscriptions for one connection")
	}
	return e.Base.SubscribeTrades(ctx, symbols)
}

// LoadSymbols fetches the tradable instruments and installs them as the
// default universe for nil-symbol stream subscriptions.
func (e *Exchange) LoadSymbols(ctx context.Context) ([]string, error) {
	symbols, err := e.FetchSymbols(ctx)
	if err != nil {
		return nil, err
	}
	e.adapter.SetKnownSymbols(symbols)
	return symbols, nil
}

// FetchPositions returns the account's positions, optionally narrowed to
// one instrument.
func (e *Exchange) FetchPositions(ctx context.Context, symbol string) ([]*core.Position, error) {
	params := core.Params{}
	if symbol != "" {
		params[core.ParamSymbol] = symbol
	}
	items, err := e.Session().Fetch(ctx, http.MethodGet, core.EndpointPosition, params)
	if err != nil {
		return nil, err
	}
	positions := make([]*core.Position, 0, len(items))
	for _, it := range items {
		if p, ok := it.(*core.Position); ok {
			positions = append(positions, p)
		}
	}
	return positions, nil
}

// SetLeverage sets the leverage of one instrument's position. Zero selects
// cross margin.
func (e *Exchange) SetLeverage(ctx context.Context, symbol string, leverage core.Decimal) (*core.Position, error) {
	item, err := e.Session().FetchOne(ctx, http.MethodPost, core.EndpointLeverageSet, core.Params{
		core.ParamSymbol:   symbol,
		core.ParamLeverage: leverage,
	})
	if err != nil {
		return nil, err
	}
	position, ok := item.(*core.Position)
	if !ok {
		return nil, core.NewError(core.PlatformBitMEX, core.ErrCodeAppError, "unexpected leverage response")
	}
	return position, nil
}

// FetchBalanceTransactions returns the wallet ledger.
func (e *Exchange) FetchBalanceTransactions(ctx context.Context, opts ...exchange.Option) ([]*core.BalanceTransaction, error) {
	items, err := e.Session().Fetch(ctx, http.MethodGet, core.EndpointBalanceTransaction,
		exchange.ApplyOptions(opts...).Params())
	if err != nil {
		return nil, err
	}
	txs := make([]*core.BalanceTransaction, 0, len(items))
	for _, it := range items {
		if tx, ok := it.(*core.BalanceTransaction); ok {
			txs = append(txs, tx)
		}
	}
	return txs, nil
}

// CancelAllOrders cancels every open order, optionally narrowed to one
// instrument.
func (e *Exchange) CancelAllOrders(ctx context.Context, symbol string) ([]*core.Order, error) {
	params := core.Params{}
	if symbol != "" {
		params[core.ParamSymbol] = symbol
	}
	items, err := e.Session().Fetch(ctx, http.MethodDelete, core.EndpointOrdersAllCancel, params)
	if err != nil {
		return nil, err
	}
	orders := make([]*core.Order, 0, len(items))
	for _, it := range items {
		if o, ok := it.(*core.Order); ok {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

// SubscribePositions streams position updates.
func (e *Exchange) SubscribePositions(ctx context.Context) error {
	return e.Stream().Subscribe(ctx, []core.Endpoint{core.EndpointPosition}, nil, nil)
}
