package binance

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"omniex/internal/transport"
	"omniex/pkg/convert"
	"omniex/pkg/core"
	"omniex/pkg/stream"
)

// Names of the private virtual subscriptions. They key the dispatch of the
// listen-key stream and never appear on the wire.
const (
	subBalance = "balance"
	subOrder   = "order"
	subTradeMy = "trade_my"
)

const (
	listenKeyURL       = "https://api.binance.com/api/v1/userDataStream"
	listenKeyKeepalive = 30 * time.Minute
)

// listenKeys manages the user data stream key: creation on demand and the
// periodic keepalive the platform requires to keep the stream open.
type listenKeys struct {
	http  *transport.Client
	creds core.Credentials
	log   zerolog.Logger

	mu    sync.Mutex
	key   string
	timer *time.Timer
}

func newListenKeys(http *transport.Client, creds core.Credentials, log zerolog.Logger) *listenKeys {
	return &listenKeys{http: http, creds: creds, log: log}
}

// Refresh obtains a fresh listen key and schedules keepalives for it.
func (l *listenKeys) Refresh(ctx context.Context) (string, error) {
	req := core.NewRequest(http.MethodPost, listenKeyURL)
	req.Headers[apiKeyHeader] = l.creds.APIKey
	resp, err := l.http.Execute(ctx, req)
	if err != nil {
		return "", err
	}
	payload, err := convert.DecodeJSON(resp.Bytes())
	if err != nil {
		return "", err
	}
	obj, _ := payload.(map[string]any)
	key, _ := obj["listenKey"].(string)
	if key == "" {
		return "", core.NewError(core.PlatformBinance, core.ErrCodeAppError, "user data stream response has no listen key")
	}

	l.mu.Lock()
	l.key = key
	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(listenKeyKeepalive, l.keepalive)
	l.mu.Unlock()
	return key, nil
}

// Current returns the last obtained key, empty before the first Refresh.
func (l *listenKeys) Current() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.key
}

func (l *listenKeys) keepalive() {
	l.mu.Lock()
	key := l.key
	l.mu.Unlock()
	if key == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req := core.NewRequest(http.MethodPut, listenKeyURL)
	req.Headers[apiKeyHeader] = l.creds.APIKey
	req.SetQuery("listenKey", key)
	if _, err := l.http.Execute(ctx, req); err != nil {
		l.log.Error().Err(err).Msg("listen key keepalive failed")
	}

	l.mu.Lock()
	if l.timer != nil {
		l.timer.Reset(listenKeyKeepalive)
	}
	l.mu.Unlock()
}

// Stop cancels the keepalive schedule.
func (l *listenKeys) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.key = ""
}

// wsAdapter implements stream.Adapter for the platform's stream protocol:
// subscriptions baked into the connection URL, combined-stream envelopes,
// single-letter payload fields, and a listen-key user data stream for the
// private endpoints.
type wsAdapter struct {
	conv *convert.WSConverter
	keys *listenKeys
	log  zerolog.Logger

	mu      sync.RWMutex
	symbols []string
}

func newWSAdapter(conv *convert.WSConverter, keys *listenKeys, log zerolog.Logger) *wsAdapter {
	return &wsAdapter{conv: conv, keys: keys, log: log}
}

// SetKnownSymbols installs the symbol universe used for nil-symbol
// subscribe calls.
func (a *wsAdapter) SetKnownSymbols(symbols []string) {
	a.mu.Lock()
	a.symbols = symbols
	a.mu.Unlock()
}

func (a *wsAdapter) KnownSymbols() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.symbols
}

func isPrivateSub(sub string) bool {
	return sub == subBalance || sub == subOrder || sub == subTradeMy
}

func splitSubs(subs []string) (public, private []string) {
	for _, sub := range subs {
		if isPrivateSub(sub) {
			private = append(private, sub)
		} else {
			public = append(public, sub)
		}
	}
	return public, private
}

// URL bakes the subscription set into the connection URL. Private virtual
// subscriptions route the whole connection to the listen-key stream; the
// platform serves user data on a dedicated connection, so mixing them with
// market streams is rejected at dial time via a logged fallback.
func (a *wsAdapter) URL(subs []string) string {
	public, private := splitSubs(subs)
	if len(private) > 0 {
		if len(public) > 0 {
			a.log.Error().Strs("public", public).
				Msg("private stream cannot share a connection with market streams, ignoring market subscriptions")
		}
		return wsBaseURL + "ws/" + a.keys.Current()
	}
	switch len(public) {
	case 0:
		return wsBaseURL + "ws"
	case 1:
		return wsBaseURL + "ws/" + public[0]
	}
	sorted := make([]string, len(public))
	copy(sorted, public)
	sort.Strings(sorted)
	return wsBaseURL + "stream?streams=" + strings.Join(sorted, "/")
}

// ConnectionHeaders refreshes the listen key before a private dial. The
// dial sequence builds headers first, so URL sees the fresh key.
func (a *wsAdapter) ConnectionHeaders() (http.Header, error) {
	_, private := splitSubs(a.conv.RegisteredSubscriptions())
	if len(private) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := a.keys.Refresh(ctx); err != nil {
		return nil, err
	}
	return nil, nil
}

// SubscribeCommand reports false: subscriptions live in the URL and every
// change is a reconnect.
func (a *wsAdapter) SubscribeCommand([]string) (any, bool)   { return nil, false }
func (a *wsAdapter) UnsubscribeCommand([]string) (any, bool) { return nil, false }

// HandleMessage parses one frame. Combined-stream envelopes are unwrapped
// first; attribution then runs through the echoed stream name or the
// inline event type.
func (a *wsAdapter) HandleMessage(client *stream.Client, data []byte) ([]any, error) {
	payload, err := convert.DecodeJSON(data)
	if err != nil {
		return nil, err
	}

	switch msg := payload.(type) {
	case []any:
		// The all-symbols ticker feed sends its items as a bare array.
		return a.parseList(core.EndpointTickerAll, msg)
	case map[string]any:
		return a.handleObject(client, msg)
	}
	return nil, nil
}

func (a *wsAdapter) handleObject(client *stream.Client, msg map[string]any) ([]any, error) {
	sub := ""
	if name, ok := msg["stream"].(string); ok {
		sub = name
		if data, ok := msg["data"].(map[string]any); ok {
			msg = data
		} else if list, ok := msg["data"].([]any); ok {
			return a.parseList(core.EndpointTickerAll, list)
		}
	}

	// Command acks carry an id and no event type.
	if _, ok := msg["id"]; ok {
		return nil, nil
	}

	var info convert.SubscriptionInfo
	if registered, found := a.conv.LookupSubscription(sub); sub != "" && found {
		info = registered
	} else {
		resolved, err := a.conv.SubscriptionInfoFor(msg)
		if err != nil {
			return nil, err
		}
		info = resolved
		if sub == "" {
			sub = info.String()
		}
	}

	eventType, _ := msg["e"].(string)
	switch eventType {
	case "executionReport":
		return a.parseExecutionReport(msg)
	case "outboundAccountInfo":
		return a.parseBalances(msg)
	case "outboundAccountPosition":
		return nil, nil
	case "kline":
		if k, ok := msg["k"].(map[string]any); ok {
			// The symbol lives on the envelope, the payload in "k".
			if s, ok := msg["s"]; ok {
				k["s"] = s
			}
			msg = k
		}
	}

	if info.Endpoint == core.EndpointQuote {
		return a.parseQuote(msg, sub, info)
	}

	item, err := a.conv.ParseItem(info.Endpoint, msg)
	if err != nil {
		return nil, err
	}
	if trade, ok := item.(*core.Trade); ok {
		if maker, ok := msg["m"].(bool); ok {
			if maker {
				trade.Direction = core.DirectionSell
			} else {
				trade.Direction = core.DirectionBuy
			}
		}
	}
	a.conv.PostProcessItem(item)
	items := []any{item}
	a.conv.PropagateContext(items, sub, info)
	return items, nil
}

func (a *wsAdapter) parseList(endpoint core.Endpoint, list []any) ([]any, error) {
	items := make([]any, 0, len(list))
	for _, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		item, err := a.conv.ParseItem(endpoint, obj)
		if err != nil {
			a.log.Warn().Err(err).Msg("dropping unparsable stream item")
			continue
		}
		a.conv.PostProcessItem(item)
		items = append(items, item)
	}
	return items, nil
}

// parseExecutionReport fans one execution event out to the order and own
// trade endpoints, keeping only the shapes actually subscribed.
func (a *wsAdapter) parseExecutionReport(msg map[string]any) ([]any, error) {
	var items []any

	if info, ok := a.conv.LookupSubscription(subOrder); ok {
		order, err := a.conv.ParseItem(core.EndpointOrder, msg)
		if err != nil {
			return nil, err
		}
		a.conv.PostProcessItem(order)
		out := []any{order}
		a.conv.PropagateContext(out, subOrder, info)
		items = append(items, out...)
	}

	if info, ok := a.conv.LookupSubscription(subTradeMy); ok {
		// Non-trade execution events carry -1 in the trade id.
		if id, idErr := toInt64(msg["t"]); idErr == nil && id > 0 {
			trade, err := a.conv.ParseItem(core.EndpointTradeMy, msg)
			if err != nil {
				return nil, err
			}
			a.conv.PostProcessItem(trade)
			out := []any{trade}
			a.conv.PropagateContext(out, subTradeMy, info)
			items = append(items, out...)
		}
	}
	return items, nil
}

func (a *wsAdapter) parseBalances(msg map[string]any) ([]any, error) {
	list, ok := msg["B"].([]any)
	if !ok {
		return nil, nil
	}
	items, err := a.parseList(core.EndpointBalance, list)
	if err != nil {
		return nil, err
	}
	info := convert.SubscriptionInfo{Endpoint: core.EndpointBalance}
	if registered, ok := a.conv.LookupSubscription(subBalance); ok {
		info = registered
	}
	a.conv.PropagateContext(items, subBalance, info)
	return items, nil
}

// parseQuote reduces a shallow book frame to its best levels.
func (a *wsAdapter) parseQuote(msg map[string]any, sub string, info convert.SubscriptionInfo) ([]any, error) {
	item, err := a.conv.ParseItem(core.EndpointOrderBook, msg)
	if err != nil {
		return nil, err
	}
	book, ok := item.(*core.OrderBook)
	if !ok || (len(book.Asks) == 0 && len(book.Bids) == 0) {
		return nil, nil
	}
	quote := &core.Quote{}
	quote.Symbol = info.Symbol
	if len(book.Asks) > 0 {
		quote.BestAsk = book.Asks[0].Price
	}
	if len(book.Bids) > 0 {
		quote.BestBid = book.Bids[0].Price
	}
	a.conv.PostProcessItem(quote)
	items := []any{quote}
	a.conv.PropagateContext(items, sub, info)
	return items, nil
}
