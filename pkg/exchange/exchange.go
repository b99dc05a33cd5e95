// Package exchange defines the unified typed surface over the per-platform
// packages: one interface for REST operations and stream subscriptions,
// expressed entirely in canonical types, plus a registry for running
// several platforms side by side.
package exchange

import (
	"context"
	"fmt"

	"omniex/pkg/core"
	"omniex/pkg/stream"
)

// Exchange is the unified interface every platform package implements.
// All symbols are canonical BASE_QUOTE strings; all values are canonical
// items with exact decimals.
type Exchange interface {
	Platform() core.Platform
	Name() string

	Ping(ctx context.Context) error
	FetchSymbols(ctx context.Context) ([]string, error)
	FetchCurrencyPairs(ctx context.Context, opts ...Option) ([]*core.CurrencyPair, error)
	FetchTrades(ctx context.Context, symbol string, opts ...Option) ([]*core.Trade, error)
	FetchTradesHistory(ctx context.Context, symbol string, opts ...Option) ([]*core.Trade, error)
	FetchCandles(ctx context.Context, symbol string, interval core.CandleInterval, opts ...Option) ([]*core.Candle, error)
	FetchTicker(ctx context.Context, symbol string, opts ...Option) (*core.Ticker, error)
	FetchTickers(ctx context.Context, opts ...Option) ([]*core.Ticker, error)
	FetchQuote(ctx context.Context, symbol string, opts ...Option) (*core.Quote, error)
	FetchOrderBook(ctx context.Context, symbol string, opts ...Option) (*core.OrderBook, error)

	FetchBalances(ctx context.Context, opts ...Option) ([]*core.Balance, error)
	FetchMyTrades(ctx context.Context, symbol string, opts ...Option) ([]*core.MyTrade, error)
	CreateOrder(ctx context.Context, req *OrderRequest) (*core.Order, error)
	CancelOrder(ctx context.Context, req *CancelRequest) (*core.Order, error)
	FetchOrder(ctx context.Context, q *OrderQuery) (*core.Order, error)
	FetchOpenOrders(ctx context.Context, symbol string, opts ...Option) ([]*core.Order, error)

	SubscribeTrades(ctx context.Context, symbols []string) error
	SubscribeCandles(ctx context.Context, symbols []string, interval core.CandleInterval) error
	SubscribeTickers(ctx context.Context, symbols []string) error
	SubscribeQuotes(ctx context.Context, symbols []string) error
	SubscribeOrderBook(ctx context.Context, symbols []string, level core.DepthLevel) error
	SubscribePrivate(ctx context.Context) error

	Stream() *stream.Client
	Close() error
}

// OrderRequest carries the parameters for placing a new order.
type OrderRequest struct {
	Symbol      string
	Direction   core.Direction
	OrderType   core.OrderType
	Amount      core.Decimal
	Price       core.Decimal
	PriceStop   core.Decimal
	TimeInForce core.TimeInForce
	UserOrderID string
}

// CancelRequest identifies the order to cancel.
type CancelRequest struct {
	Symbol  string
	OrderID string
}

// OrderQuery identifies the order to look up.
type OrderQuery struct {
	Symbol  string
	OrderID string
}

// collect narrows a parsed item slice to one concrete item type. Items of
// other types are skipped, not errors: fan-out parses legitimately mix
// types in one batch.
func collect[T any](items []any, err error) ([]*T, error) {
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(items))
	for _, it := range items {
		if t, ok := it.(*T); ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// first narrows a single fetched item.
func first[T any](item any, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	t, ok := item.(*T)
	if !ok {
		return nil, fmt.Errorf("unexpected item type %T", item)
	}
	return t, nil
}
