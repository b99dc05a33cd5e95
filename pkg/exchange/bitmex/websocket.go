package bitmex

import (
	"bytes"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"omniex/pkg/convert"
	"omniex/pkg/core"
	"omniex/pkg/stream"
)

// maxTableLen bounds the replicated row stores. The order and book tables
// are exempt: dropping their rows would corrupt later updates.
const maxTableLen = 500

var unboundedTables = map[string]struct{}{
	"order":          {},
	"orderBookL2":    {},
	"orderBookL2_25": {},
}

// wsCommand is the subscribe/unsubscribe frame of the realtime API.
type wsCommand struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

// tableState replicates one platform table: the key columns announced by
// the partial and the current rows addressed by them.
type tableState struct {
	keys  []string
	order []string
	rows  map[string]map[string]any
}

func (t *tableState) keyFor(row map[string]any) string {
	parts := make([]string, len(t.keys))
	for i, k := range t.keys {
		parts[i] = stringifyNumber(row[k])
		if parts[i] == "" {
			if s, ok := row[k].(string); ok {
				parts[i] = s
			}
		}
	}
	return strings.Join(parts, "/")
}

// wsAdapter implements stream.Adapter for the realtime API: explicit
// subscribe commands, signed dial headers, and the partial/insert/update/
// delete table replication protocol.
type wsAdapter struct {
	conv  *convert.WSConverter
	creds core.Credentials
	now   func() int64
	log   zerolog.Logger

	mu      sync.Mutex
	tables  map[string]*tableState
	books   *bookTranslator
	symbols []string
}

func newWSAdapter(conv *convert.WSConverter, creds core.Credentials, now func() int64, log zerolog.Logger) *wsAdapter {
	return &wsAdapter{
		conv:   conv,
		creds:  creds,
		now:    now,
		log:    log,
		tables: make(map[string]*tableState),
		books:  newBookTranslator(log),
	}
}

func (a *wsAdapter) SetKnownSymbols(symbols []string) {
	a.mu.Lock()
	a.symbols = symbols
	a.mu.Unlock()
}

func (a *wsAdapter) KnownSymbols() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.symbols
}

func (a *wsAdapter) URL([]string) string { return wsURL }

// ConnectionHeaders signs the dial when any private table is registered.
func (a *wsAdapter) ConnectionHeaders() (http.Header, error) {
	if !a.needsAuth() {
		return nil, nil
	}
	if a.creds.APIKey == "" || a.creds.SecretKey == "" {
		return nil, core.NewError(core.PlatformBitMEX, core.ErrCodeUnauthorized, "private stream needs api credentials")
	}
	expires, sig := wsAuthHeaders(a.creds, a.now)
	h := make(http.Header)
	h.Set("api-expires", expires)
	h.Set("api-key", a.creds.APIKey)
	h.Set("api-signature", sig)
	return h, nil
}

func (a *wsAdapter) needsAuth() bool {
	for _, sub := range a.conv.RegisteredSubscriptions() {
		table, _, _ := strings.Cut(sub, ":")
		switch table {
		case "execution", "margin", "position", "order":
			return true
		}
	}
	return false
}

func (a *wsAdapter) SubscribeCommand(subs []string) (any, bool) {
	return wsCommand{Op: "subscribe", Args: subs}, true
}

func (a *wsAdapter) UnsubscribeCommand(subs []string) (any, bool) {
	return wsCommand{Op: "unsubscribe", Args: subs}, true
}

func (a *wsAdapter) HandleMessage(client *stream.Client, data []byte) ([]any, error) {
	if bytes.Equal(data, []byte("pong")) {
		return nil, nil
	}
	payload, err := convert.DecodeJSON(data)
	if err != nil {
		return nil, err
	}
	msg, ok := payload.(map[string]any)
	if !ok {
		return nil, nil
	}

	if _, ok := msg["info"]; ok {
		return nil, nil
	}
	if success, ok := msg["success"].(bool); ok {
		if sub, ok := msg["subscribe"].(string); ok && client != nil {
			client.MarkSubscription(sub, success, "")
		}
		return nil, nil
	}
	if errText, ok := msg["error"].(string); ok {
		a.markRequestFailed(client, msg, errText)
		return nil, nil
	}

	table, _ := msg["table"].(string)
	if table == "" {
		return nil, nil
	}
	action, _ := msg["action"].(string)
	rows := instrumentRows(msg["data"])

	if strings.HasPrefix(table, "orderBookL2") {
		return a.books.handle(action, rows), nil
	}
	return a.handleTable(client, table, action, msg, rows)
}

func (a *wsAdapter) markRequestFailed(client *stream.Client, msg map[string]any, reason string) {
	a.log.Warn().Str("error", reason).Msg("stream request rejected")
	if client == nil {
		return
	}
	request, _ := msg["request"].(map[string]any)
	args, _ := request["args"].([]any)
	for _, arg := range args {
		if sub, ok := arg.(string); ok {
			client.MarkSubscription(sub, false, reason)
		}
	}
}

func (a *wsAdapter) handleTable(client *stream.Client, table, action string, msg map[string]any, rows []map[string]any) ([]any, error) {
	endpoints := a.conv.FanOutEndpoints(table, "")
	if len(endpoints) == 0 {
		return nil, nil
	}
	endpoint := endpoints[0]

	a.mu.Lock()
	state := a.tables[table]
	if state == nil {
		state = &tableState{rows: make(map[string]map[string]any)}
		a.tables[table] = state
	}

	var out []map[string]any
	switch action {
	case "partial":
		state.keys = stringList(msg["keys"])
		state.order = state.order[:0]
		state.rows = make(map[string]map[string]any, len(rows))
		for _, row := range rows {
			key := state.keyFor(row)
			state.rows[key] = row
			state.order = append(state.order, key)
		}
		out = rows
	case "insert":
		for _, row := range rows {
			key := state.keyFor(row)
			state.rows[key] = row
			state.order = append(state.order, key)
		}
		a.evictLocked(table, state)
		out = rows
	case "update":
		for _, row := range rows {
			key := state.keyFor(row)
			stored, found := state.rows[key]
			if !found {
				// Update before the partial arrived; nothing to merge into.
				continue
			}
			for k, v := range row {
				stored[k] = v
			}
			if table == "order" && isFilled(stored) {
				delete(state.rows, key)
			}
			out = append(out, stored)
		}
	case "delete":
		for _, row := range rows {
			delete(state.rows, state.keyFor(row))
		}
	}
	a.mu.Unlock()

	return a.parseRows(client, endpoint, table, out)
}

// evictLocked halves an overgrown table, oldest rows first.
func (a *wsAdapter) evictLocked(table string, state *tableState) {
	if _, exempt := unboundedTables[table]; exempt || len(state.order) <= maxTableLen {
		return
	}
	cut := len(state.order) / 2
	for _, key := range state.order[:cut] {
		delete(state.rows, key)
	}
	state.order = append(state.order[:0], state.order[cut:]...)
}

func isFilled(row map[string]any) bool {
	leaves := decimalField(row, "leavesQty")
	if row["leavesQty"] == nil {
		return false
	}
	return leaves.IsZero() || leaves.Negative
}

func (a *wsAdapter) parseRows(client *stream.Client, endpoint core.Endpoint, table string, rows []map[string]any) ([]any, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	info, registered := a.conv.LookupSubscription(table)
	if !registered {
		info = convert.SubscriptionInfo{Endpoint: endpoint}
	}

	items := make([]any, 0, len(rows))
	for _, row := range rows {
		if endpoint == core.EndpointTicker && row["lastPrice"] == nil {
			continue
		}
		if endpoint == core.EndpointBalance {
			row = normalizeMargin(row)
		}
		item, err := a.conv.ParseItem(endpoint, row)
		if err != nil {
			a.log.Warn().Err(err).Str("table", table).Msg("dropping unparsable stream row")
			continue
		}
		if kept := postItem(endpoint, item, row); kept != nil {
			items = append(items, kept)
		}
	}
	a.conv.PropagateContext(items, table, info)
	return a.filterItems(client, endpoint, items), nil
}

// filterItems keeps only items for symbols the caller subscribed to.
// Account-wide tables pass unfiltered.
func (a *wsAdapter) filterItems(client *stream.Client, endpoint core.Endpoint, items []any) []any {
	if client == nil || endpoint == core.EndpointBalance {
		return items
	}
	wanted := client.SymbolsFor(endpoint)
	if len(wanted) == 0 {
		return items
	}
	set := make(map[string]struct{}, len(wanted))
	for _, s := range wanted {
		set[strings.ToUpper(s)] = struct{}{}
	}
	kept := items[:0]
	for _, item := range items {
		b, ok := item.(interface{ Base() *core.Item })
		if !ok {
			kept = append(kept, item)
			continue
		}
		if _, match := set[strings.ToUpper(b.Base().Symbol)]; match {
			kept = append(kept, item)
		}
	}
	return kept
}

// bookTranslator turns the id-keyed L2 replication protocol into
// price-keyed diffs for the shared book assembler. Updates and deletes
// carry only row ids; the id to price mapping is learned from partials
// and inserts.
type bookTranslator struct {
	assembler *stream.BookAssembler
	log       zerolog.Logger

	mu     sync.Mutex
	prices map[string]map[string]any
}

func newBookTranslator(log zerolog.Logger) *bookTranslator {
	return &bookTranslator{
		assembler: stream.NewBookAssembler(log),
		prices:    make(map[string]map[string]any),
	}
}

func (b *bookTranslator) handle(action string, rows []map[string]any) []any {
	bySymbol := make(map[string][]map[string]any)
	for _, row := range rows {
		symbol, _ := row["symbol"].(string)
		if symbol == "" {
			continue
		}
		bySymbol[symbol] = append(bySymbol[symbol], row)
	}

	var out []any
	for symbol, group := range bySymbol {
		if book := b.handleSymbol(action, symbol, group); book != nil {
			out = append(out, book)
		}
	}
	return out
}

func (b *bookTranslator) handleSymbol(action, symbol string, rows []map[string]any) *core.OrderBook {
	b.mu.Lock()
	ids := b.prices[symbol]
	if ids == nil {
		ids = make(map[string]any)
		b.prices[symbol] = ids
	}

	var asks, bids []core.OrderBookLevel
	for _, row := range rows {
		id := stringifyNumber(row["id"])
		var price any
		switch action {
		case "partial", "insert":
			price = row["price"]
			ids[id] = price
		case "update", "delete":
			known, found := ids[id]
			if !found {
				b.log.Warn().Str("symbol", symbol).Str("id", id).
					Msg("book row update before partial, dropping")
				continue
			}
			price = known
			if action == "delete" {
				delete(ids, id)
			}
		}

		level := core.OrderBookLevel{Price: decimalValue(price)}
		if action != "delete" {
			level.Amount = decimalField(row, "size")
		}
		if row["side"] == "Sell" {
			asks = append(asks, level)
		} else {
			bids = append(bids, level)
		}
	}
	b.mu.Unlock()

	if len(asks) == 0 && len(bids) == 0 {
		return nil
	}

	if action == "partial" {
		snapshot := &core.OrderBook{}
		snapshot.Platform = core.PlatformBitMEX
		snapshot.Symbol = symbol
		snapshot.SetAsks(asks)
		snapshot.SetBids(bids)
		return b.assembler.ApplySnapshot(snapshot)
	}

	diff := &core.OrderBookDiff{}
	diff.Platform = core.PlatformBitMEX
	diff.Symbol = symbol
	diff.SetAsks(asks)
	diff.SetBids(bids)
	book, ok := b.assembler.ApplyDiff(diff)
	if !ok {
		return nil
	}
	return book
}

func decimalValue(v any) core.Decimal {
	d, err := core.ParseDecimal(stringifyNumber(v))
	if err != nil {
		return core.Decimal{}
	}
	return d
}

func stringList(v any) []string {
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, entry := range list {
		if s, ok := entry.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
