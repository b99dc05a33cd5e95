package convert

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"omniex/pkg/core"
)

func TestValueLookupForward(t *testing.T) {
	v := testTables().Values

	assert.Equal(t, "BUY", v.ToPlatform(core.ParamDirection, core.DirectionBuy))
	assert.Equal(t, "60m", v.ToPlatform(core.ParamInterval, core.Interval1h))
	// Unmapped values pass through.
	assert.Equal(t, 42, v.ToPlatform(core.ParamLimit, 42))
}

func TestValueLookupReverseDerived(t *testing.T) {
	v := testTables().Values

	assert.Equal(t, core.DirectionSell, v.ToCanonical(core.ParamDirection, "SELL"))
	assert.Equal(t, core.Interval1h, v.ToCanonical(core.ParamInterval, "60m"))
	assert.Equal(t, "BTC_USD", v.ToCanonical(core.ParamSymbol, "XBT-USD"))
}

func TestValueLookupPerParamWins(t *testing.T) {
	v := NewValueLookup(
		map[any]any{core.SortingAscending: "asc"},
		map[core.ParamName]map[any]any{
			core.ParamSorting: {core.SortingAscending: "1"},
		},
	)

	assert.Equal(t, "1", v.ToPlatform(core.ParamSorting, core.SortingAscending))
	assert.Equal(t, core.SortingAscending, v.ToCanonical(core.ParamSorting, "1"))
	// Other params still see the flat entry.
	assert.Equal(t, "asc", v.ToPlatform(core.ParamDirection, core.SortingAscending))
}

func TestValueLookupNumericKeys(t *testing.T) {
	v := NewValueLookup(nil, map[core.ParamName]map[any]any{
		core.ParamLevel: {core.DepthLight: 5},
	})

	// Decoded JSON integers hit entries written as Go int literals.
	assert.Equal(t, core.DepthLight, v.ToCanonical(core.ParamLevel, json.Number("5")))
	assert.Equal(t, core.DepthLight, v.ToCanonical(core.ParamLevel, float64(5)))
	assert.Equal(t, core.DepthLight, v.ToCanonical(core.ParamLevel, 5))
}

func TestValueLookupCompositePassthrough(t *testing.T) {
	v := NewValueLookup(nil, map[core.ParamName]map[any]any{
		core.ParamBalances: {"x": "y"},
	})

	// Nested lists and objects flow to the structural parser untouched.
	list := []any{map[string]any{"currency": "XBt"}}
	assert.Equal(t, list, v.ToCanonical(core.ParamBalances, list))

	obj := map[string]any{"currency": "XBt"}
	assert.Equal(t, obj, v.ToCanonical(core.ParamBalances, obj))
}

func TestResolveTemplate(t *testing.T) {
	params := core.PlatformParams{"symbol": "XBTUSD", "i": "1m", "count": 10}
	out := resolveTemplate("{symbol}@kline_{i}", params)

	assert.Equal(t, "XBTUSD@kline_1m", out)
	// Consumed placeholders leave the param map, the rest stay.
	assert.NotContains(t, params, "symbol")
	assert.NotContains(t, params, "i")
	assert.Contains(t, params, "count")
}

func TestResolveTemplateMissingPlaceholder(t *testing.T) {
	out := resolveTemplate("orders/{id}", core.PlatformParams{})
	assert.Equal(t, "orders/", out)
}
