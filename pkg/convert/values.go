package convert

import (
	"encoding/json"
	"fmt"
	"strconv"

	"omniex/pkg/core"
)

// ValueLookup translates param values between the canonical and platform
// vocabularies. The forward direction holds a flat map applied to any param
// plus per-param maps for values whose translation depends on which param
// carries them. The reverse maps are derived once at construction by
// inverting every entry; on reverse lookups a per-param entry wins over a
// flat one.
type ValueLookup struct {
	flat    map[any]any
	byParam map[core.ParamName]map[any]any

	reverseFlat    map[any]any
	reverseByParam map[core.ParamName]map[any]any
}

// NewValueLookup builds a lookup with derived reverse maps.
func NewValueLookup(flat map[any]any, byParam map[core.ParamName]map[any]any) ValueLookup {
	v := ValueLookup{
		flat:           flat,
		byParam:        byParam,
		reverseFlat:    make(map[any]any, len(flat)),
		reverseByParam: make(map[core.ParamName]map[any]any, len(byParam)),
	}
	for canonical, platform := range flat {
		v.reverseFlat[platform] = canonical
	}
	for name, m := range byParam {
		rev := make(map[any]any, len(m))
		for canonical, platform := range m {
			rev[platform] = canonical
		}
		v.reverseByParam[name] = rev
	}
	return v
}

// WithReverse merges extra inbound-only entries into the per-param reverse
// maps. Platforms often report more states than can be requested, so several
// platform values may collapse onto one canonical value.
func (v ValueLookup) WithReverse(byParam map[core.ParamName]map[any]any) ValueLookup {
	for name, m := range byParam {
		rev := v.reverseByParam[name]
		if rev == nil {
			rev = make(map[any]any, len(m))
			v.reverseByParam[name] = rev
		}
		for platform, canonical := range m {
			rev[platform] = canonical
		}
	}
	return v
}

// ToPlatform translates a canonical value outbound. Unmapped values pass
// through unchanged.
func (v ValueLookup) ToPlatform(name core.ParamName, value any) any {
	if m, ok := v.byParam[name]; ok {
		if t, ok := m[value]; ok {
			return t
		}
	}
	if t, ok := v.flat[value]; ok {
		return t
	}
	return value
}

// ToCanonical translates a platform value inbound, keyed by the canonical
// field name it is being assigned to. The per-param reverse map is
// consulted first, then the flat reverse map.
func (v ValueLookup) ToCanonical(name core.ParamName, value any) any {
	switch value.(type) {
	case []any, map[string]any:
		// Composite payloads are parsed structurally and are never
		// table entries; they also cannot index a map.
		return value
	}
	key := comparableKey(value)
	if m, ok := v.reverseByParam[name]; ok {
		if t, ok := m[key]; ok {
			return t
		}
	}
	if t, ok := v.reverseFlat[key]; ok {
		return t
	}
	return value
}

// comparableKey normalizes decoded JSON scalars so they can hit map entries
// written as Go literals: json.Number integers become int, other numbers
// stay as their string form.
func comparableKey(value any) any {
	switch n := value.(type) {
	case json.Number:
		if i, err := strconv.Atoi(n.String()); err == nil {
			return i
		}
		return n.String()
	case float64:
		if i := int(n); float64(i) == n {
			return i
		}
		return n
	}
	return value
}

// stringify renders a platform param value for a URL or query string.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case core.Decimal:
		return t.String()
	case fmt.Stringer:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
