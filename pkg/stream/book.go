package stream

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"omniex/pkg/core"
)

// BookAssembler reconstructs full order books from a snapshot feed plus a
// diff feed. Books are keyed by symbol; diffs arriving before the symbol's
// snapshot are dropped with a warning, because without the starting state
// they cannot be applied correctly.
type BookAssembler struct {
	log zerolog.Logger

	mu    sync.Mutex
	books map[string]*bookState
}

type bookState struct {
	platform core.Platform
	symbol   string
	ts       int64
	asks     map[string]core.OrderBookLevel // keyed by exact price text
	bids     map[string]core.OrderBookLevel
}

// NewBookAssembler returns an empty assembler.
func NewBookAssembler(log zerolog.Logger) *BookAssembler {
	return &BookAssembler{log: log, books: make(map[string]*bookState)}
}

// ApplySnapshot replaces the symbol's book with the snapshot and returns
// the resulting full book.
func (a *BookAssembler) ApplySnapshot(book *core.OrderBook) *core.OrderBook {
	a.mu.Lock()
	defer a.mu.Unlock()

	state := &bookState{
		platform: book.Platform,
		symbol:   book.Symbol,
		ts:       book.Timestamp,
		asks:     make(map[string]core.OrderBookLevel, len(book.Asks)),
		bids:     make(map[string]core.OrderBookLevel, len(book.Bids)),
	}
	for _, lvl := range book.Asks {
		state.asks[lvl.Price.String()] = lvl
	}
	for _, lvl := range book.Bids {
		state.bids[lvl.Price.String()] = lvl
	}
	a.books[book.Symbol] = state
	return state.snapshot()
}

// ApplyDiff applies one diff and returns the resulting full book. ok is
// false when no snapshot exists for the symbol yet; the diff is dropped.
// A level with zero amount removes the price level, any other amount
// replaces it.
func (a *BookAssembler) ApplyDiff(diff *core.OrderBookDiff) (*core.OrderBook, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	state, ok := a.books[diff.Symbol]
	if !ok {
		a.log.Warn().Str("symbol", diff.Symbol).Msg("order book diff before snapshot, dropping")
		return nil, false
	}
	if diff.Timestamp > state.ts {
		state.ts = diff.Timestamp
	}
	applyLevels(state.asks, diff.Asks)
	applyLevels(state.bids, diff.Bids)
	return state.snapshot(), true
}

// Book returns the current full book for a symbol, nil when no snapshot
// has arrived.
func (a *BookAssembler) Book(symbol string) *core.OrderBook {
	a.mu.Lock()
	defer a.mu.Unlock()
	state, ok := a.books[symbol]
	if !ok {
		return nil
	}
	return state.snapshot()
}

// Reset drops all accumulated books, typically on reconnect when the
// platform resends snapshots.
func (a *BookAssembler) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.books = make(map[string]*bookState)
}

func applyLevels(side map[string]core.OrderBookLevel, levels []core.OrderBookLevel) {
	for _, lvl := range levels {
		key := lvl.Price.String()
		if lvl.Amount.IsZero() {
			delete(side, key)
			continue
		}
		side[key] = lvl
	}
}

func (s *bookState) snapshot() *core.OrderBook {
	book := &core.OrderBook{
		Item: core.Item{
			Platform:  s.platform,
			Symbol:    s.symbol,
			Timestamp: s.ts,
		},
	}
	book.SetAsks(sortedLevels(s.asks, true))
	book.SetBids(sortedLevels(s.bids, false))
	return book
}

// sortedLevels orders a side for emission: asks ascending, bids descending.
func sortedLevels(side map[string]core.OrderBookLevel, ascending bool) []core.OrderBookLevel {
	levels := make([]core.OrderBookLevel, 0, len(side))
	for _, lvl := range side {
		levels = append(levels, lvl)
	}
	sort.Slice(levels, func(i, j int) bool {
		cmp := levels[i].Price.Cmp(&levels[j].Price.Decimal)
		if ascending {
			return cmp < 0
		}
		return cmp > 0
	})
	return levels
}
