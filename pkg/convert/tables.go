package convert

import (
	"strings"

	"omniex/pkg/core"
)

// EndpointRule resolves a canonical endpoint to a platform path segment or
// channel name. Exactly one of the three variants is set: a literal string,
// a {placeholder} template resolved against the already-translated params,
// or a function that may cancel the request entirely.
type EndpointRule struct {
	literal  string
	template string
	fn       func(core.PlatformParams) (string, bool)
}

// Literal returns a rule resolving to a fixed path segment.
func Literal(path string) EndpointRule {
	return EndpointRule{literal: path}
}

// Template returns a rule whose {placeholder} fields are filled from the
// translated platform params. Consumed params are removed from the map so
// they are not sent twice.
func Template(path string) EndpointRule {
	return EndpointRule{template: path}
}

// Func returns a rule computed from the translated params. Returning false
// cancels the request: the caller gets no URL rather than an error.
func Func(fn func(core.PlatformParams) (string, bool)) EndpointRule {
	return EndpointRule{fn: fn}
}

// IsZero reports whether the rule is unset.
func (r EndpointRule) IsZero() bool {
	return r.literal == "" && r.template == "" && r.fn == nil
}

// Resolve produces the platform path. ok is false when the rule cancels the
// request. Template placeholders consume their params from the map.
func (r EndpointRule) Resolve(params core.PlatformParams) (string, bool) {
	switch {
	case r.fn != nil:
		return r.fn(params)
	case r.template != "":
		return resolveTemplate(r.template, params), true
	default:
		return r.literal, true
	}
}

func resolveTemplate(tpl string, params core.PlatformParams) string {
	var b strings.Builder
	for {
		open := strings.IndexByte(tpl, '{')
		if open < 0 {
			b.WriteString(tpl)
			break
		}
		closing := strings.IndexByte(tpl[open:], '}')
		if closing < 0 {
			b.WriteString(tpl)
			break
		}
		b.WriteString(tpl[:open])
		key := tpl[open+1 : open+closing]
		if v, ok := params[key]; ok {
			b.WriteString(stringify(v))
			delete(params, key)
		}
		tpl = tpl[open+closing+1:]
	}
	return b.String()
}

// FieldMap is the tagged union describing how a platform payload maps onto
// an item: either keyed (object-shaped data, platform field name to
// canonical name) or positional (array-shaped data, canonical names by
// index, with empty names skipping a position).
type FieldMap struct {
	keyed      map[string]core.ParamName
	positional []core.ParamName
}

// Keyed builds a FieldMap for object-shaped platform data.
func Keyed(m map[string]core.ParamName) FieldMap {
	return FieldMap{keyed: m}
}

// Positional builds a FieldMap for array-shaped platform data. Use the
// empty name "" to skip a position.
func Positional(names ...core.ParamName) FieldMap {
	return FieldMap{positional: names}
}

// IsZero reports whether the map is unset.
func (f FieldMap) IsZero() bool {
	return f.keyed == nil && f.positional == nil
}

// ItemSpec binds an endpoint's payload to a canonical item type: a factory
// for a fresh item and the field map describing the platform layout.
// Assigning the same ItemSpec to several endpoints shares the (immutable)
// field map between them.
type ItemSpec struct {
	New    func() core.Formattable
	Fields FieldMap
}

// ErrorSpec describes how a platform's error payload is shaped and how its
// codes translate into the canonical taxonomy.
type ErrorSpec struct {
	// Wrapper, when set, names an envelope key holding the actual error
	// object ({"error": {...}}).
	Wrapper string
	// CodeField and MessageField name the error payload keys.
	CodeField    string
	MessageField string
	// CodeLookup translates platform error codes to canonical codes.
	// Unmapped codes pass through raw in Error.PlatformCode.
	CodeLookup map[string]core.ErrorCode
	// MessageLookup classifies errors the platform reports only through
	// message text; entries match by substring and win over status mapping.
	MessageLookup map[string]core.ErrorCode
	// StatusLookup overrides core.ErrorCodeByHTTPStatus per platform.
	StatusLookup map[int]core.ErrorCode
}

// Tables is the complete per-platform lookup table set, plain immutable
// data built once per platform and version.
type Tables struct {
	// Endpoints maps canonical endpoints to platform paths or channels.
	// An absent endpoint resolves to its own canonical name.
	Endpoints map[core.Endpoint]EndpointRule
	// ParamNames maps canonical param names to platform field names. An
	// explicit Drop target removes the param entirely; an absent entry
	// keeps the canonical name.
	ParamNames map[core.ParamName]ParamTarget
	// Values translates param values in both directions.
	Values ValueLookup
	// Items binds endpoints to the item types they deserialize into.
	Items map[core.Endpoint]ItemSpec
	// LevelFields maps a platform's order book level rows. Left zero, the
	// common [price, amount] positional layout is assumed.
	LevelFields FieldMap
	// Error describes the platform's error payload.
	Error ErrorSpec
	// MaxLimitByEndpoint is the platform's page-size cap per endpoint.
	MaxLimitByEndpoint map[core.Endpoint]int
	// SortingEndpoints lists endpoints accepting a sorting param.
	SortingEndpoints map[core.Endpoint]struct{}
	// IDRangeEndpoints lists endpoints whose from/to bounds translate to
	// item identifiers; everywhere else bounds translate to timestamps.
	IDRangeEndpoints map[core.Endpoint]struct{}
	// SecuredEndpoints lists endpoints needing signed requests beyond the
	// canonical private set.
	SecuredEndpoints map[core.Endpoint]struct{}
}

// ParamTarget is the translation target of a canonical param name.
type ParamTarget struct {
	Name string
	Drop bool
}

// To maps a canonical name to the given platform field name.
func To(name string) ParamTarget {
	return ParamTarget{Name: name}
}

// Dropped removes the param entirely from outbound requests.
func Dropped() ParamTarget {
	return ParamTarget{Drop: true}
}

// EndpointRuleFor returns the rule for the endpoint, defaulting to the
// canonical name as a literal path when the table has no entry.
func (t *Tables) EndpointRuleFor(endpoint core.Endpoint) EndpointRule {
	if r, ok := t.Endpoints[endpoint]; ok {
		return r
	}
	return Literal(string(endpoint))
}

// IsSecured reports whether the endpoint requires a signed request.
func (t *Tables) IsSecured(endpoint core.Endpoint) bool {
	if _, ok := t.SecuredEndpoints[endpoint]; ok {
		return true
	}
	return endpoint.IsPrivate()
}

// MaxLimit returns the platform page-size cap for the endpoint, zero when
// the platform declares none.
func (t *Tables) MaxLimit(endpoint core.Endpoint) int {
	return t.MaxLimitByEndpoint[endpoint]
}
