package convert

import (
	"github.com/rs/zerolog"

	"omniex/pkg/core"
)

// Signer attaches a platform authentication signature to a request. The
// exact material being signed (parameter ordering, path inclusion, expiry
// headers) is a bit-exact per-platform contract.
type Signer interface {
	Sign(req *core.Request, creds core.Credentials) error
}

// RangePolicy names the handling of history range bounds. The legacy
// behavior reinterprets a lone from_item under descending sort as the upper
// bound, matching the pagination idiom of the platforms this layer grew up
// on; it conflates "ensure chronological order" with that reinterpretation
// and is kept behind this policy switch pending product confirmation.
type RangePolicy int

const (
	// RangeLegacyDescending swaps reversed bounds into chronological order
	// and treats a lone from_item with descending sort as a to_item.
	RangeLegacyDescending RangePolicy = iota
	// RangeStrict swaps reversed bounds but never reinterprets a lone
	// from_item.
	RangeStrict
)

// FilterSlackMillis is the inclusive slack added to the upper time bound
// when filtering locally, absorbing platforms that truncate sub-second
// precision.
const FilterSlackMillis = 1000

// PayloadHook reshapes a decoded REST payload before table-driven parsing:
// unwrapping envelopes, flattening nested filter arrays, and the like. When
// done is true the returned value is the final item slice and the tables are
// skipped entirely.
type PayloadHook func(endpoint core.Endpoint, payload any) (out any, done bool, err error)

// ItemHook post-processes one parsed item with its raw source data. It
// returns the item to keep, possibly replaced, or nil to drop it.
type ItemHook func(endpoint core.Endpoint, item any, raw any) any

// RESTConverter extends the base converter with history-range handling,
// sorting and limit normalization, local result filtering, request signing,
// and the platform payload hooks.
type RESTConverter struct {
	*Converter
	signer      Signer
	rangePolicy RangePolicy
	prepare     PayloadHook
	postItem    ItemHook
}

// NewREST builds a REST converter. signer may be nil for platforms whose
// public API is the only one used.
func NewREST(cfg Config, tables Tables, signer Signer, log zerolog.Logger) (*RESTConverter, error) {
	base, err := New(cfg, tables, log)
	if err != nil {
		return nil, err
	}
	return &RESTConverter{Converter: base, signer: signer, rangePolicy: RangeLegacyDescending}, nil
}

// WithRangePolicy overrides the range-bound policy.
func (r *RESTConverter) WithRangePolicy(p RangePolicy) *RESTConverter {
	r.rangePolicy = p
	return r
}

// WithHooks installs the payload and item hooks. Either may be nil.
func (r *RESTConverter) WithHooks(prepare PayloadHook, postItem ItemHook) *RESTConverter {
	r.prepare = prepare
	r.postItem = postItem
	return r
}

// Parse runs the payload hook, the table-driven parse, and the item hook.
func (r *RESTConverter) Parse(endpoint core.Endpoint, payload any) ([]any, error) {
	if r.prepare != nil {
		out, done, err := r.prepare(endpoint, payload)
		if err != nil {
			return nil, err
		}
		if done {
			items, _ := out.([]any)
			return items, nil
		}
		payload = out
	}
	if r.postItem == nil {
		return r.Converter.Parse(endpoint, payload)
	}

	list, ok := payload.([]any)
	if !ok {
		list = []any{payload}
	}
	items := make([]any, 0, len(list))
	for _, raw := range list {
		parsed, err := r.Converter.ParseItem(endpoint, raw)
		if err != nil {
			return nil, err
		}
		if kept := r.postItem(endpoint, parsed, raw); kept != nil {
			items = append(items, kept)
		}
	}
	return items, nil
}

// BuildRequest normalizes canonical params and translates them into an
// outbound request for the endpoint.
func (r *RESTConverter) BuildRequest(method string, endpoint core.Endpoint, params core.Params) (*core.Request, error) {
	return r.MakeRequest(method, endpoint, r.PreprocessParams(endpoint, params))
}

// Sign applies the platform signing strategy to the request.
func (r *RESTConverter) Sign(req *core.Request, creds core.Credentials) error {
	if r.signer == nil {
		return core.ErrNoCredentials
	}
	return r.signer.Sign(req, creds)
}

// PreprocessParams normalizes the generic REST params before translation:
// limit capping, sorting stripping or default injection, id-valued params
// reduced to bare identifiers, and from/to range normalization. The input
// map is not mutated.
func (r *RESTConverter) PreprocessParams(endpoint core.Endpoint, params core.Params) core.Params {
	if params == nil {
		return nil
	}
	out := params.Clone()

	r.normalizeLimit(endpoint, out)
	r.normalizeSorting(endpoint, out)

	for _, name := range []core.ParamName{core.ParamItemID, core.ParamOrderID, core.ParamTradeID} {
		if item, ok := out[name].(baseItem); ok {
			out[name] = item.Base().ItemID
		}
	}

	r.normalizeRange(endpoint, out)
	r.reduceRangeItems(endpoint, out)
	return out
}

// reduceRangeItems replaces item-valued bounds with the scalar the platform
// expects: the item id on id-paged endpoints, the timestamp elsewhere.
func (r *RESTConverter) reduceRangeItems(endpoint core.Endpoint, params core.Params) {
	_, byID := r.tables.IDRangeEndpoints[endpoint]
	for _, name := range []core.ParamName{core.ParamFromItem, core.ParamToItem} {
		item, ok := params[name].(baseItem)
		if !ok {
			continue
		}
		b := item.Base()
		if byID && b.ItemID != "" {
			params[name] = b.ItemID
		} else {
			params[name] = b.Timestamp
		}
	}
}

func (r *RESTConverter) normalizeLimit(endpoint core.Endpoint, params core.Params) {
	useMax, _ := params[core.ParamIsUseMaxLimit].(bool)
	delete(params, core.ParamIsUseMaxLimit)
	if max := r.tables.MaxLimit(endpoint); max > 0 {
		if useMax && params[core.ParamLimit] == nil {
			params[core.ParamLimit] = max
		}
		if limit, ok := params[core.ParamLimit].(int); ok && limit > max {
			params[core.ParamLimit] = max
		}
	}
}

func (r *RESTConverter) normalizeSorting(endpoint core.Endpoint, params core.Params) {
	_, sortable := r.tables.SortingEndpoints[endpoint]
	if !r.cfg.IsSortingEnabled || !sortable {
		delete(params, core.ParamSorting)
		return
	}
	if s, ok := params[core.ParamSorting].(core.Sorting); !ok || s == core.SortingDefault {
		params[core.ParamSorting] = r.cfg.DefaultSorting
	}
}

// normalizeRange orders the range old to new. Under the legacy policy a
// lone from_item with descending sort becomes the upper bound, except on
// id-paged endpoints where the bound must survive as a pagination id.
func (r *RESTConverter) normalizeRange(endpoint core.Endpoint, params core.Params) {
	from, hasFrom := params[core.ParamFromItem]
	to, hasTo := params[core.ParamToItem]

	fromTS, fromOK := rangeTimestamp(from)
	toTS, toOK := rangeTimestamp(to)

	if hasFrom && hasTo && fromOK && toOK && fromTS > toTS {
		params[core.ParamFromItem], params[core.ParamToItem] = to, from
		return
	}
	if _, byID := r.tables.IDRangeEndpoints[endpoint]; byID {
		return
	}
	if hasFrom && !hasTo && r.rangePolicy == RangeLegacyDescending {
		if s, ok := params[core.ParamSorting].(core.Sorting); ok && s == core.SortingDescending {
			params[core.ParamToItem] = from
			delete(params, core.ParamFromItem)
		}
	}
}

// rangeTimestamp extracts the comparable timestamp from a range bound,
// which may be a canonical item or a bare milliseconds value.
func rangeTimestamp(v any) (int64, bool) {
	switch t := v.(type) {
	case baseItem:
		return t.Base().Timestamp, true
	case int64:
		return t, true
	case int:
		return int64(t), true
	}
	return 0, false
}

// FilterResult locally enforces from/to bounds after parsing, for platforms
// without native upper-bound support. Items are scanned in platform order;
// bounds may match by identity or, failing that, by timestamp with an
// inclusive slack on the upper bound. With no bounds the input is returned
// unchanged.
func (r *RESTConverter) FilterResult(items []any, params core.Params) []any {
	from, hasFrom := params[core.ParamFromItem]
	to, hasTo := params[core.ParamToItem]
	fromTime, hasFromTime := rangeTimestamp(params[core.ParamFromTime])
	toTime, hasToTime := rangeTimestamp(params[core.ParamToTime])
	if !hasFrom && !hasTo && !hasFromTime && !hasToTime {
		return items
	}

	idxFrom := indexOfBound(items, from)
	idxTo := indexOfBound(items, to)

	switch {
	case idxFrom >= 0 && idxTo >= 0:
		lo, hi := idxFrom, idxTo
		if lo > hi {
			lo, hi = hi, lo
		}
		return items[lo : hi+1]
	case idxFrom >= 0:
		return r.boundByTime(items[idxFrom:], hasToTime, toTime)
	case idxTo >= 0:
		return items[:idxTo+1]
	}

	// Neither bound present in the list: fall back to pure time bounds.
	if ts, ok := rangeTimestamp(from); ok && !hasFromTime {
		hasFromTime, fromTime = true, ts
	}
	if ts, ok := rangeTimestamp(to); ok && !hasToTime {
		hasToTime, toTime = true, ts
	}
	if !hasFromTime && !hasToTime {
		return items
	}
	if hasFromTime && hasToTime && fromTime > toTime {
		fromTime, toTime = toTime, fromTime
	}
	filtered := make([]any, 0, len(items))
	for _, it := range items {
		ts, ok := itemTimestamp(it)
		if !ok {
			continue
		}
		if hasFromTime && ts < fromTime {
			continue
		}
		if hasToTime && ts > toTime+FilterSlackMillis {
			continue
		}
		filtered = append(filtered, it)
	}
	return filtered
}

func (r *RESTConverter) boundByTime(items []any, hasToTime bool, toTime int64) []any {
	if !hasToTime {
		return items
	}
	for i, it := range items {
		if ts, ok := itemTimestamp(it); ok && ts > toTime+FilterSlackMillis {
			return items[:i]
		}
	}
	return items
}

// indexOfBound finds the element matching a bound item: by item id when
// both carry one, otherwise by exact timestamp.
func indexOfBound(items []any, bound any) int {
	b, ok := bound.(baseItem)
	if !ok {
		return -1
	}
	bb := b.Base()
	for i, it := range items {
		cand, ok := it.(baseItem)
		if !ok {
			continue
		}
		cb := cand.Base()
		if bb.ItemID != "" && cb.ItemID != "" {
			if bb.ItemID == cb.ItemID {
				return i
			}
			continue
		}
		if bb.Timestamp != 0 && bb.Timestamp == cb.Timestamp {
			return i
		}
	}
	return -1
}

func itemTimestamp(it any) (int64, bool) {
	b, ok := it.(baseItem)
	if !ok {
		return 0, false
	}
	return b.Base().Timestamp, true
}
