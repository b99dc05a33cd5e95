// Package aggregator combines market data from several live exchanges:
// cached reference data (symbols, currency pairs), cached quotes, and
// cross-platform fan-out queries. An Aggregator is constructed explicitly
// and holds no global state.
package aggregator

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"omniex/pkg/core"
	"omniex/pkg/exchange"
)

// Config sets the cache lifetimes. Zero fields take the defaults.
type Config struct {
	QuoteTTL time.Duration
	PairTTL  time.Duration
}

// DefaultConfig returns the standard cache lifetimes: quotes go stale in
// seconds, reference data in minutes.
func DefaultConfig() Config {
	return Config{
		QuoteTTL: 30 * time.Second,
		PairTTL:  5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.QuoteTTL <= 0 {
		c.QuoteTTL = d.QuoteTTL
	}
	if c.PairTTL <= 0 {
		c.PairTTL = d.PairTTL
	}
	return c
}

type cachedQuote struct {
	quote   *core.Quote
	fetched time.Time
}

type cachedPairs struct {
	pairs   map[string]*core.CurrencyPair // keyed by canonical symbol
	fetched time.Time
}

// Aggregator serves market data across the exchanges registered in its
// container, caching quotes and pair metadata per exchange. Concurrent
// refreshes of the same entry are allowed; the last write wins.
type Aggregator struct {
	exchanges *exchange.Container
	cfg       Config
	log       zerolog.Logger

	mu     sync.RWMutex
	quotes map[string]cachedQuote // keyed by exchange + "/" + symbol
	pairs  map[string]cachedPairs // keyed by exchange
	now    func() time.Time
}

// New builds an aggregator over the given container. The container stays
// owned by the caller; registering or removing exchanges later is fine.
func New(exchanges *exchange.Container, cfg Config, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		exchanges: exchanges,
		cfg:       cfg.withDefaults(),
		log:       log.With().Str("component", "aggregator").Logger(),
		quotes:    make(map[string]cachedQuote),
		pairs:     make(map[string]cachedPairs),
		now:       time.Now,
	}
}

// Exchanges returns the underlying container.
func (a *Aggregator) Exchanges() *exchange.Container {
	return a.exchanges
}

// Quote returns the top of book for a symbol on one exchange, served from
// cache while fresh.
func (a *Aggregator) Quote(ctx context.Context, name, symbol string) (*core.Quote, error) {
	key := name + "/" + strings.ToUpper(symbol)

	a.mu.RLock()
	entry, ok := a.quotes[key]
	a.mu.RUnlock()
	if ok && a.now().Sub(entry.fetched) < a.cfg.QuoteTTL {
		return entry.quote, nil
	}

	ex, err := a.exchanges.Get(name)
	if err != nil {
		return nil, err
	}
	quote, err := ex.FetchQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.quotes[key] = cachedQuote{quote: quote, fetched: a.now()}
	a.mu.Unlock()
	return quote, nil
}

// Symbols returns the tradable symbols of one exchange, served from the
// pair cache.
func (a *Aggregator) Symbols(ctx context.Context, name string) ([]string, error) {
	pairs, err := a.pairsFor(ctx, name)
	if err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(pairs))
	for symbol := range pairs {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// Pair returns the pair metadata for a canonical symbol on one exchange.
func (a *Aggregator) Pair(ctx context.Context, name, symbol string) (*core.CurrencyPair, error) {
	pairs, err := a.pairsFor(ctx, name)
	if err != nil {
		return nil, err
	}
	pair, ok := pairs[strings.ToUpper(symbol)]
	if !ok {
		return nil, core.NewError(core.PlatformUnknown, core.ErrCodeWrongSymbol, "unknown pair "+symbol+" on "+name)
	}
	return pair, nil
}

func (a *Aggregator) pairsFor(ctx context.Context, name string) (map[string]*core.CurrencyPair, error) {
	a.mu.RLock()
	entry, ok := a.pairs[name]
	a.mu.RUnlock()
	if ok && a.now().Sub(entry.fetched) < a.cfg.PairTTL {
		return entry.pairs, nil
	}

	ex, err := a.exchanges.Get(name)
	if err != nil {
		return nil, err
	}
	list, err := ex.FetchCurrencyPairs(ctx)
	if err != nil {
		// Serve stale reference data over failing outright.
		if ok {
			a.log.Warn().Err(err).Str("exchange", name).Msg("pair refresh failed, serving stale cache")
			return entry.pairs, nil
		}
		return nil, err
	}

	pairs := make(map[string]*core.CurrencyPair, len(list))
	for _, pair := range list {
		pairs[strings.ToUpper(pair.Name())] = pair
	}

	a.mu.Lock()
	a.pairs[name] = cachedPairs{pairs: pairs, fetched: a.now()}
	a.mu.Unlock()
	return pairs, nil
}

// Invalidate drops all cached entries for one exchange.
func (a *Aggregator) Invalidate(name string) {
	prefix := name + "/"
	a.mu.Lock()
	delete(a.pairs, name)
	for key := range a.quotes {
		if strings.HasPrefix(key, prefix) {
			delete(a.quotes, key)
		}
	}
	a.mu.Unlock()
}

// MinLot returns the smallest economically valid order amount for a symbol
// at the given price: the exchange lot minimum, raised to satisfy the
// minimal notional when one is set.
func (a *Aggregator) MinLot(ctx context.Context, name, symbol string, price core.Decimal) (core.Decimal, error) {
	pair, err := a.Pair(ctx, name, symbol)
	if err != nil {
		return core.Decimal{}, err
	}
	return minLot(pair, price), nil
}

func minLot(pair *core.CurrencyPair, price core.Decimal) core.Decimal {
	min := pair.LotSizeMin
	if pair.MinNotional.IsZero() || price.IsZero() {
		return min
	}
	byNotional := pair.MinNotional.Div(price)
	if byNotional.Cmp(&min.Decimal) > 0 {
		return byNotional
	}
	return min
}

// SymbolMinAmount returns MinLot rounded up to the pair's lot step, so the
// result is directly placeable as an order amount.
func (a *Aggregator) SymbolMinAmount(ctx context.Context, name, symbol string, price core.Decimal) (core.Decimal, error) {
	pair, err := a.Pair(ctx, name, symbol)
	if err != nil {
		return core.Decimal{}, err
	}
	return ceilToStep(minLot(pair, price), pair.LotSizeStep), nil
}

// ceilToStep rounds value up to the next multiple of step.
func ceilToStep(value, step core.Decimal) core.Decimal {
	if step.IsZero() {
		return value
	}
	floored := core.RoundToStep(value, step, true)
	if floored.Cmp(&value.Decimal) < 0 {
		return core.DropTrailingZeros(floored.Add(step))
	}
	return floored
}

// QuoteResult is one exchange's answer in a fan-out query.
type QuoteResult struct {
	Exchange string
	Quote    *core.Quote
	Err      error
}

// Quotes fetches the quote for a symbol from every registered exchange in
// parallel. Per-exchange failures are reported in the result, not resolved
// here: one slow or broken platform must not hide the others.
func (a *Aggregator) Quotes(ctx context.Context, symbol string) []QuoteResult {
	names := a.exchanges.Names()
	results := make(chan QuoteResult, len(names))

	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			quote, err := a.Quote(ctx, name, symbol)
			results <- QuoteResult{Exchange: name, Quote: quote, Err: err}
		}(name)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]QuoteResult, 0, len(names))
	for r := range results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Exchange < out[j].Exchange })
	return out
}

// BestQuote combines the fan-out results into the tightest cross-exchange
// market: the highest bid and the lowest ask with the exchanges carrying
// them.
type BestQuote struct {
	Symbol      string
	BestBid     core.Decimal
	BestAsk     core.Decimal
	BidExchange string
	AskExchange string
}

// FetchBestQuote queries every exchange and picks the best bid and ask.
func (a *Aggregator) FetchBestQuote(ctx context.Context, symbol string) (*BestQuote, error) {
	best := &BestQuote{Symbol: strings.ToUpper(symbol)}
	found := false

	for _, r := range a.Quotes(ctx, symbol) {
		if r.Err != nil {
			a.log.Warn().Err(r.Err).Str("exchange", r.Exchange).Str("symbol", symbol).
				Msg("quote fetch failed during fan-out")
			continue
		}
		if !found {
			best.BestBid = r.Quote.BestBid
			best.BestAsk = r.Quote.BestAsk
			best.BidExchange = r.Exchange
			best.AskExchange = r.Exchange
			found = true
			continue
		}
		if r.Quote.BestBid.Cmp(&best.BestBid.Decimal) > 0 {
			best.BestBid = r.Quote.BestBid
			best.BidExchange = r.Exchange
		}
		if r.Quote.BestAsk.Cmp(&best.BestAsk.Decimal) < 0 {
			best.BestAsk = r.Quote.BestAsk
			best.AskExchange = r.Exchange
		}
	}
	if !found {
		return nil, core.NewError(core.PlatformUnknown, core.ErrCodeAppError, "no exchange returned a quote for "+symbol)
	}
	return best, nil
}

// Spread returns ask minus bid of the combined market.
func (b *BestQuote) Spread() core.Decimal {
	return b.BestAsk.Sub(b.BestBid)
}
