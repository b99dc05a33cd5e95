package convert

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"omniex/pkg/core"
)

// SubscriptionInfo records the canonical origin of one platform
// subscription string.
type SubscriptionInfo struct {
	Endpoint core.Endpoint
	Symbol   string
	Params   core.Params
}

// WSTables carries the stream-specific lookup data on top of the shared
// Tables: which endpoints ignore the symbol cross, how inline event types
// resolve to endpoints (including the coarse private streams that fan out
// into several canonical endpoints), and where a payload carries its symbol.
type WSTables struct {
	// GenericEndpoints subscribe once regardless of symbols (an all-symbols
	// ticker feed, a private account stream).
	GenericEndpoints map[core.Endpoint]struct{}
	// EndpointsByEventType resolves an inline event type to the canonical
	// endpoint set it can produce. A single-element set is the common case;
	// coarse private events declare every endpoint they fan out to.
	EndpointsByEventType map[string][]core.Endpoint
	// SymbolField is the payload key carrying the symbol, used by the
	// event-type dispatch fallback.
	SymbolField string
}

// WSConverter extends the base converter with subscription-string
// generation and inbound subscription resolution. The reverse map is
// cumulative across subscribe calls; regenerating an existing subscription
// string with different params logs and overwrites rather than failing.
type WSConverter struct {
	*Converter
	ws WSTables

	mu             sync.RWMutex
	bySubscription map[string]SubscriptionInfo
}

// NewWS builds a stream converter.
func NewWS(cfg Config, tables Tables, ws WSTables, log zerolog.Logger) (*WSConverter, error) {
	base, err := New(cfg, tables, log)
	if err != nil {
		return nil, err
	}
	return &WSConverter{
		Converter:      base,
		ws:             ws,
		bySubscription: make(map[string]SubscriptionInfo),
	}, nil
}

// IsGeneric reports whether the endpoint subscribes without a symbol cross.
func (w *WSConverter) IsGeneric(endpoint core.Endpoint) bool {
	_, ok := w.ws.GenericEndpoints[endpoint]
	return ok
}

// GenerateSubscriptions expands (endpoints x symbols x params) into the
// flat, deterministic set of platform subscription strings and records each
// in the reverse map. List-valued params expand into the cartesian product
// of single-valued combinations; generic endpoints skip the symbol cross.
func (w *WSConverter) GenerateSubscriptions(endpoints []core.Endpoint, symbols []string, params core.Params) ([]string, error) {
	var subs []string
	for _, endpoint := range endpoints {
		combos := expandParamCombos(params)
		for _, combo := range combos {
			if w.IsGeneric(endpoint) {
				sub, err := w.renderSubscription(endpoint, "", combo)
				if err != nil {
					return nil, err
				}
				if sub != "" {
					subs = append(subs, sub)
				}
				continue
			}
			for _, symbol := range symbols {
				sub, err := w.renderSubscription(endpoint, symbol, combo)
				if err != nil {
					return nil, err
				}
				if sub != "" {
					subs = append(subs, sub)
				}
			}
		}
	}
	return subs, nil
}

func (w *WSConverter) renderSubscription(endpoint core.Endpoint, symbol string, params core.Params) (string, error) {
	translated := params.Clone()
	if translated == nil {
		translated = make(core.Params)
	}
	if symbol != "" {
		translated[core.ParamSymbol] = symbol
	}
	platformParams := w.PrepareParams(translated)
	sub, ok := w.tables.EndpointRuleFor(endpoint).Resolve(platformParams)
	if !ok || sub == "" {
		return "", nil
	}
	w.storeSubscription(sub, SubscriptionInfo{Endpoint: endpoint, Symbol: symbol, Params: params})
	return sub, nil
}

func (w *WSConverter) storeSubscription(sub string, info SubscriptionInfo) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if prev, exists := w.bySubscription[sub]; exists &&
		(prev.Endpoint != info.Endpoint || prev.Symbol != info.Symbol) {
		w.log.Warn().
			Str("subscription", sub).
			Str("previous_endpoint", string(prev.Endpoint)).
			Str("endpoint", string(info.Endpoint)).
			Msg("subscription regenerated with different origin, overwriting")
	}
	w.bySubscription[sub] = info
}

// LookupSubscription resolves a subscription string recorded earlier.
func (w *WSConverter) LookupSubscription(sub string) (SubscriptionInfo, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	info, ok := w.bySubscription[sub]
	return info, ok
}

// ForgetSubscription drops a reverse-map entry on unsubscribe.
func (w *WSConverter) ForgetSubscription(sub string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.bySubscription, sub)
}

// RegisteredSubscriptions returns the recorded subscription strings.
func (w *WSConverter) RegisteredSubscriptions() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	subs := make([]string, 0, len(w.bySubscription))
	for sub := range w.bySubscription {
		subs = append(subs, sub)
	}
	sort.Strings(subs)
	return subs
}

// SubscriptionInfoFor attributes an inbound message to its subscription.
// The chain is: the echoed subscription identifier when the wire protocol
// carries one; the single registered subscription when exactly one is
// active; finally the inline event type plus a payload symbol. When more
// than one subscription is active and none of these identify the message,
// it is rejected as ambiguous rather than guessed at.
func (w *WSConverter) SubscriptionInfoFor(msg map[string]any) (SubscriptionInfo, error) {
	if w.cfg.SubscriptionParam != "" {
		if raw, ok := msg[w.cfg.SubscriptionParam]; ok {
			sub := stringify(raw)
			if info, found := w.LookupSubscription(sub); found {
				return info, nil
			}
			// An echoed identifier we never generated still names the
			// channel; resolve the endpoint via the event-type table.
			if info, ok := w.infoFromEventType(sub, msg); ok {
				return info, nil
			}
		}
	}

	w.mu.RLock()
	var only SubscriptionInfo
	count := len(w.bySubscription)
	if count == 1 {
		for _, info := range w.bySubscription {
			only = info
		}
	}
	w.mu.RUnlock()
	if count == 1 {
		return only, nil
	}

	if w.cfg.EventTypeParam != "" {
		if raw, ok := msg[w.cfg.EventTypeParam]; ok {
			if info, ok := w.infoFromEventType(stringify(raw), msg); ok {
				return info, nil
			}
		}
	}
	return SubscriptionInfo{}, core.ErrAmbiguousSubscription
}

func (w *WSConverter) infoFromEventType(eventType string, msg map[string]any) (SubscriptionInfo, bool) {
	endpoints, ok := w.ws.EndpointsByEventType[eventType]
	if !ok || len(endpoints) == 0 {
		return SubscriptionInfo{}, false
	}
	info := SubscriptionInfo{Endpoint: endpoints[0]}
	if w.ws.SymbolField != "" {
		if raw, ok := msg[w.ws.SymbolField]; ok {
			info.Symbol = w.cfg.CanonicalSymbol(stringify(raw))
		}
	}
	return info, true
}

// FanOutEndpoints returns every canonical endpoint a coarse private event
// can produce, or just the resolved endpoint for ordinary events.
func (w *WSConverter) FanOutEndpoints(eventType string, fallback core.Endpoint) []core.Endpoint {
	if endpoints, ok := w.ws.EndpointsByEventType[eventType]; ok && len(endpoints) > 0 {
		return endpoints
	}
	if fallback != "" {
		return []core.Endpoint{fallback}
	}
	return nil
}

// PropagateContext stamps subscription-level context onto parsed items:
// the channel key, the symbol when the payload had none, and the candle
// interval requested at subscribe time.
func (w *WSConverter) PropagateContext(items []any, sub string, info SubscriptionInfo) {
	for _, it := range items {
		b, ok := it.(baseItem)
		if !ok {
			continue
		}
		base := b.Base()
		if base.Subscription == "" {
			base.Subscription = sub
		}
		if base.Symbol == "" && info.Symbol != "" {
			base.Symbol = strings.ToUpper(info.Symbol)
		}
		if candle, ok := it.(*core.Candle); ok && candle.Interval == "" {
			if iv, ok := info.Params[core.ParamInterval].(core.CandleInterval); ok {
				candle.Interval = iv
			}
		}
	}
}

// expandParamCombos breaks list-valued params into the cartesian product of
// single-valued combinations, in deterministic key order. Params without
// list values yield exactly one combo.
func expandParamCombos(params core.Params) []core.Params {
	if len(params) == 0 {
		return []core.Params{nil}
	}
	names := make([]core.ParamName, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	combos := []core.Params{{}}
	for _, name := range names {
		values := listValues(params[name])
		next := make([]core.Params, 0, len(combos)*len(values))
		for _, combo := range combos {
			for _, v := range values {
				c := combo.Clone()
				c[name] = v
				next = append(next, c)
			}
		}
		combos = next
	}
	return combos
}

func listValues(v any) []any {
	switch list := v.(type) {
	case []any:
		return list
	case []core.CandleInterval:
		out := make([]any, len(list))
		for i, iv := range list {
			out[i] = iv
		}
		return out
	case []core.DepthLevel:
		out := make([]any, len(list))
		for i, lv := range list {
			out[i] = lv
		}
		return out
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out
	}
	return []any{v}
}

// String renders the info for logs.
func (s SubscriptionInfo) String() string {
	return fmt.Sprintf("%s/%s", s.Endpoint, s.Symbol)
}
