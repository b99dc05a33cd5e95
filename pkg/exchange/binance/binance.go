// Package binance adapts the Binance spot API to the canonical interface:
// signed REST over the v3 endpoints and the combined-stream plus
// listen-key socket protocol.
package binance

import (
	"context"

	"github.com/rs/zerolog"

	"omniex/internal/transport"
	"omniex/pkg/convert"
	"omniex/pkg/core"
	"omniex/pkg/exchange"
	"omniex/pkg/session"
	"omniex/pkg/stream"
)

// Exchange is the Binance spot implementation of exchange.Exchange.
type Exchange struct {
	*exchange.Base
	adapter *wsAdapter
	keys    *listenKeys
	log     zerolog.Logger
}

var _ exchange.Exchange = (*Exchange)(nil)

// New builds a connected-but-idle exchange from the given configuration.
func New(cfg *core.Config, log zerolog.Logger) (*Exchange, error) {
	if cfg == nil {
		cfg = core.DefaultConfig(core.PlatformBinance)
	}
	log = log.With().Str("exchange", "binance").Logger()

	sgn := newSigner()
	rest, err := convert.NewREST(restConfig(), newRESTTables(log), sgn, log)
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
	keys := newListenKeys(transport.NewClient(transport.Config{Timeout: cfg.Timeout}, log), creds, log)
	adapter := newWSAdapter(wsConv, keys, log)
	str := stream.NewClient(stream.DefaultConfig(), wsConv, adapter, log)

	return &Exchange{
		Base:    exchange.NewBase("binance", sess, str),
		adapter: adapter,
		keys:    keys,
		log:     log,
	}, nil
}

// LoadSymbols fetches the symbol universe and installs it as the default
// for nil-symbol stream subscriptions.
func (e *Exchange) LoadSymbols(ctx context.Context) ([]string, error) {
	symbols, err := e.FetchSymbols(ctx)
	if err != nil {
		return nil, err
	}
	e.adapter.SetKnownSymbols(symbols)
	return symbols, nil
}

// FetchTicker stamps the local synchronized time: the price endpoint
// returns no timestamp of its own.
func (e *Exchange) FetchTicker(ctx context.Context, symbol string, opts ...exchange.Option) (*core.Ticker, error) {
	ticker, err := e.Base.FetchTicker(ctx, symbol, opts...)
	if err != nil {
		return nil, err
	}
	if ticker.Timestamp == 0 {
		ticker.Timestamp = e.Session().Now()
	}
	return ticker, nil
}

// FetchTickers stamps the local synchronized time onto every ticker.
func (e *Exchange) FetchTickers(ctx context.Context, opts ...exchange.Option) ([]*core.Ticker, error) {
	tickers, err := e.Base.FetchTickers(ctx, opts...)
	if err != nil {
		return nil, err
	}
	now := e.Session().Now()
	for _, t := range tickers {
		if t.Timestamp == 0 {
			t.Timestamp = now
		}
	}
	return tickers, nil
}

// Close stops the listen-key keepalive on top of the base shutdown.
func (e *Exchange) Close() error {
	e.keys.Stop()
	return e.Base.Close()
}
