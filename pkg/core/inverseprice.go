package core

import "sync"

// Inverse contracts (BitMEX XBTUSD-style) quote a price whose real
// settlement value is the reciprocal or a fixed rescale of the stored field.
// The transform is keyed by (platform, symbol) and applied on read via
// PriceReal and inverted on write via SetPriceReal; the stored price field
// always holds the platform's native quotation.

// PriceTransform converts between a platform-native price and its real value.
type PriceTransform interface {
	// ToReal maps the stored platform price to the real price.
	ToReal(price Decimal) Decimal
	// FromReal maps a real price back to the stored platform price.
	FromReal(real Decimal) Decimal
}

// ScaleTransform multiplies by a fixed factor on read and divides on write.
type ScaleTransform struct {
	Scale Decimal
}

// ToReal returns price * Scale.
func (t ScaleTransform) ToReal(price Decimal) Decimal {
	return price.Mul(t.Scale)
}

// FromReal returns real / Scale.
func (t ScaleTransform) FromReal(real Decimal) Decimal {
	return real.Div(t.Scale)
}

// ReciprocalTransform inverts the price in both directions, rounding to a
// fixed number of decimal places.
type ReciprocalTransform struct {
	Places int32
}

// ToReal returns round(1/price, Places).
func (t ReciprocalTransform) ToReal(price Decimal) Decimal {
	return t.invert(price)
}

// FromReal returns round(1/real, Places). The transform is its own inverse.
func (t ReciprocalTransform) FromReal(real Decimal) Decimal {
	return t.invert(real)
}

func (t ReciprocalTransform) invert(v Decimal) Decimal {
	if v.IsZero() {
		return Decimal{}
	}
	one := NewDecimalInt64(1)
	return DropTrailingZeros(one.Div(v).Round(t.Places))
}

// InversePriceRegistry holds the per-(platform, symbol) price transforms.
// Reads dominate; registration normally happens once at startup.
type InversePriceRegistry struct {
	mu sync.RWMutex
	m  map[Platform]map[string]PriceTransform
}

// NewInversePriceRegistry returns an empty registry.
func NewInversePriceRegistry() *InversePriceRegistry {
	return &InversePriceRegistry{m: make(map[Platform]map[string]PriceTransform)}
}

// Register installs a transform for one instrument.
func (r *InversePriceRegistry) Register(p Platform, symbol string, t PriceTransform) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.m[p] == nil {
		r.m[p] = make(map[string]PriceTransform)
	}
	r.m[p][symbol] = t
}

// Lookup returns the transform for an instrument, if any.
func (r *InversePriceRegistry) Lookup(p Platform, symbol string) (PriceTransform, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.m[p][symbol]
	return t, ok
}

// RealPrice applies the registered transform for (platform, symbol) to a
// stored price. Instruments without a transform return the price unchanged.
func (r *InversePriceRegistry) RealPrice(p Platform, symbol string, price Decimal) Decimal {
	if t, ok := r.Lookup(p, symbol); ok {
		return t.ToReal(price)
	}
	return price
}

// PlatformPrice inverts RealPrice: it maps a real price back to the stored
// platform quotation.
func (r *InversePriceRegistry) PlatformPrice(p Platform, symbol string, real Decimal) Decimal {
	if t, ok := r.Lookup(p, symbol); ok {
		return t.FromReal(real)
	}
	return real
}

// InversePriceAdjustable is implemented by item types carrying a price field
// subject to inverse-contract adjustment.
type InversePriceAdjustable interface {
	PriceReal(reg *InversePriceRegistry) Decimal
	SetPriceReal(reg *InversePriceRegistry, real Decimal)
}

// PriceReal returns the trade's real price under the registry's transform.
func (t *Trade) PriceReal(reg *InversePriceRegistry) Decimal {
	return reg.RealPrice(t.Platform, t.Symbol, t.Price)
}

// SetPriceReal stores a real price as the platform-native quotation.
func (t *Trade) SetPriceReal(reg *InversePriceRegistry, real Decimal) {
	t.Price = reg.PlatformPrice(t.Platform, t.Symbol, real)
}

// PriceReal returns the ticker's real price under the registry's transform.
func (t *Ticker) PriceReal(reg *InversePriceRegistry) Decimal {
	return reg.RealPrice(t.Platform, t.Symbol, t.Price)
}

// SetPriceReal stores a real price as the platform-native quotation.
func (t *Ticker) SetPriceReal(reg *InversePriceRegistry, real Decimal) {
	t.Price = reg.PlatformPrice(t.Platform, t.Symbol, real)
}

// PriceReal returns the order's real price under the registry's transform.
func (o *Order) PriceReal(reg *InversePriceRegistry) Decimal {
	return reg.RealPrice(o.Platform, o.Symbol, o.Price)
}

// SetPriceReal stores a real price as the platform-native quotation.
func (o *Order) SetPriceReal(reg *InversePriceRegistry, real Decimal) {
	o.Price = reg.PlatformPrice(o.Platform, o.Symbol, real)
}
