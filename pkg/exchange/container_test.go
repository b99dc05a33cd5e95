package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omniex/pkg/core"
)

// mockExchange embeds the interface so only the methods under test need
// real implementations.
type mockExchange struct {
	Exchange
	name string
}

func (m *mockExchange) Name() string { return m.name }

func TestContainer_NewContainer(t *testing.T) {
	c := NewContainer()
	assert.NotNil(t, c)
	assert.NotNil(t, c.exchanges)
}

func TestContainer_Register(t *testing.T) {
	c := NewContainer()
	ex := &mockExchange{name: "test"}

	c.Register("test", ex)

	assert.True(t, c.Exists("test"))
}

func TestContainer_Get(t *testing.T) {
	c := NewContainer()
	ex := &mockExchange{name: "test"}
	c.Register("test", ex)

	got, err := c.Get("test")
	require.NoError(t, err)
	assert.Equal(t, "test", got.Name())

	_, err = c.Get("notfound")
	assert.Error(t, err)
}

func TestContainer_Names(t *testing.T) {
	c := NewContainer()
	c.Register("bitmex", &mockExchange{name: "bitmex"})
	c.Register("binance", &mockExchange{name: "binance"})

	assert.Equal(t, []string{"binance", "bitmex"}, c.Names())
}

func TestContainer_Unregister(t *testing.T) {
	c := NewContainer()
	c.Register("test", &mockExchange{name: "test"})

	c.Unregister("test")

	assert.False(t, c.Exists("test"))
}

func TestContainer_Clear(t *testing.T) {
	c := NewContainer()
	c.Register("a", &mockExchange{name: "a"})
	c.Register("b", &mockExchange{name: "b"})

	c.Clear()

	assert.Empty(t, c.Names())
}

func TestApplyOptions(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		opts := ApplyOptions()
		assert.Equal(t, 0, opts.Limit)
		assert.False(t, opts.UseMaxLimit)
		assert.Empty(t, opts.Params())
	})

	t.Run("with all options", func(t *testing.T) {
		opts := ApplyOptions(
			WithLimit(100),
			WithSorting(core.SortingDescending),
			WithTimeRange(1000, 2000),
		)
		p := opts.Params()
		assert.Equal(t, 100, p[core.ParamLimit])
		assert.Equal(t, core.SortingDescending, p[core.ParamSorting])
		assert.Equal(t, int64(1000), p[core.ParamFromTime])
		assert.Equal(t, int64(2000), p[core.ParamToTime])
	})

	t.Run("max limit", func(t *testing.T) {
		p := ApplyOptions(WithMaxLimit()).Params()
		assert.Equal(t, true, p[core.ParamIsUseMaxLimit])
	})
}

func TestOrderRequest(t *testing.T) {
	req := &OrderRequest{
		Symbol:      "BTC_USDT",
		Direction:   core.DirectionBuy,
		OrderType:   core.OrderTypeLimit,
		Price:       core.MustDecimal("50000.5"),
		Amount:      core.MustDecimal("0.25"),
		TimeInForce: core.GTC,
	}
	assert.Equal(t, "BTC_USDT", req.Symbol)
	assert.Equal(t, core.DirectionBuy, req.Direction)
	assert.Equal(t, "0.25", req.Amount.String())
}

func TestCancelRequest(t *testing.T) {
	req := &CancelRequest{Symbol: "BTC_USDT", OrderID: "123"}
	assert.Equal(t, "BTC_USDT", req.Symbol)
	assert.Equal(t, "123", req.OrderID)
}

func TestOrderQuery(t *testing.T) {
	q := &OrderQuery{Symbol: "BTC_USDT", OrderID: "123"}
	assert.Equal(t, "BTC_USDT", q.Symbol)
	assert.Equal(t, "123", q.OrderID)
}
