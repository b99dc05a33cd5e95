package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaleTransformQuanto(t *testing.T) {
	tr := ScaleTransform{Scale: MustDecimal("0.000001")}

	real := tr.ToReal(MustDecimal("307.41"))
	assert.Equal(t, "0.00030741", real.String())

	back := tr.FromReal(real)
	assert.Equal(t, "307.41", back.String())
}

func TestReciprocalTransform(t *testing.T) {
	tr := ReciprocalTransform{Places: 8}

	assert.Equal(t, "0.00014388", tr.ToReal(MustDecimal("6950")).String())
	assert.Equal(t, "0.0001", tr.ToReal(MustDecimal("10000")).String())
	assert.True(t, tr.ToReal(Decimal{}).IsZero())

	// Self-inverse up to rounding: exact reciprocals survive both directions.
	assert.Equal(t, "10000", tr.FromReal(MustDecimal("0.0001")).String())
}

func TestInversePriceRegistryLookup(t *testing.T) {
	reg := NewInversePriceRegistry()
	reg.Register(PlatformBitMEX, "XBTUSD", ReciprocalTransform{Places: 8})
	reg.Register(PlatformBitMEX, "ETHUSD", ScaleTransform{Scale: MustDecimal("0.000001")})

	_, ok := reg.Lookup(PlatformBitMEX, "XBTUSD")
	assert.True(t, ok)
	_, ok = reg.Lookup(PlatformBinance, "XBTUSD")
	assert.False(t, ok)

	t.Run("registered instruments transform", func(t *testing.T) {
		real := reg.RealPrice(PlatformBitMEX, "ETHUSD", MustDecimal("307.41"))
		assert.Equal(t, "0.00030741", real.String())

		stored := reg.PlatformPrice(PlatformBitMEX, "ETHUSD", real)
		assert.Equal(t, "307.41", stored.String())
	})

	t.Run("unregistered instruments pass through", func(t *testing.T) {
		p := MustDecimal("6950.5")
		assert.Equal(t, "6950.5", reg.RealPrice(PlatformBinance, "BTC_USDT", p).String())
		assert.Equal(t, "6950.5", reg.PlatformPrice(PlatformBinance, "BTC_USDT", p).String())
	})
}

func TestInversePriceAdjustableItems(t *testing.T) {
	reg := NewInversePriceRegistry()
	reg.Register(PlatformBitMEX, "ETHUSD", ScaleTransform{Scale: MustDecimal("0.000001")})

	trade := &Trade{
		Item:  Item{Platform: PlatformBitMEX, Symbol: "ETHUSD"},
		Price: MustDecimal("307.41"),
	}
	assert.Equal(t, "0.00030741", trade.PriceReal(reg).String())
	assert.Equal(t, "307.41", trade.Price.String())

	trade.SetPriceReal(reg, MustDecimal("0.00030741"))
	assert.Equal(t, "307.41", trade.Price.String())

	ticker := &Ticker{
		Item:  Item{Platform: PlatformBitMEX, Symbol: "ETHUSD"},
		Price: MustDecimal("307.5"),
	}
	assert.Equal(t, "0.0003075", ticker.PriceReal(reg).String())

	order := &Order{Item: Item{Platform: PlatformBitMEX, Symbol: "ETHUSD"}}
	order.SetPriceReal(reg, MustDecimal("0.0002"))
	assert.Equal(t, "200", order.Price.String())

	var adj InversePriceAdjustable = trade
	require.NotNil(t, adj)
}
