package core

import (
	"github.com/cockroachdb/apd/v3"
)

// DecimalContext is the shared arithmetic context for all price and amount
// math. 34 digits matches IEEE decimal128 and is far beyond any exchange tick.
var DecimalContext = apd.BaseContext.WithPrecision(34)

// Decimal is an exact decimal number. It embeds apd.Decimal and adds a JSON
// codec that accepts both string-encoded and bare numeric literals and always
// emits a plain (non-scientific) number, so a value parsed from "0.1" is
// formatted back as exactly "0.1".
type Decimal struct {
	apd.Decimal
}

// ParseDecimal parses a decimal from its string form.
func ParseDecimal(s string) (Decimal, error) {
	var d Decimal
	if _, _, err := d.Decimal.SetString(s); err != nil {
		return Decimal{}, err
	}
	return d, nil
}

// MustDecimal parses a decimal and panics on malformed input. For use with
// literals in tables and tests.
func MustDecimal(s string) Decimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// NewDecimalInt64 returns a decimal holding the given integer.
func NewDecimalInt64(v int64) Decimal {
	var d Decimal
	d.Decimal.SetInt64(v)
	return d
}

// String returns the plain (non-scientific) decimal notation.
func (d Decimal) String() string {
	return d.Decimal.Text('f')
}

// IsZero reports whether the value is numerically zero.
func (d Decimal) IsZero() bool {
	return d.Decimal.IsZero()
}

// Equal reports numeric equality, ignoring exponent representation.
func (d Decimal) Equal(o Decimal) bool {
	return d.Decimal.Cmp(&o.Decimal) == 0
}

// Add returns d + o.
func (d Decimal) Add(o Decimal) Decimal {
	var r Decimal
	DecimalContext.Add(&r.Decimal, &d.Decimal, &o.Decimal)
	return r
}

// Sub returns d - o.
func (d Decimal) Sub(o Decimal) Decimal {
	var r Decimal
	DecimalContext.Sub(&r.Decimal, &d.Decimal, &o.Decimal)
	return r
}

// Mul returns d * o.
func (d Decimal) Mul(o Decimal) Decimal {
	var r Decimal
	DecimalContext.Mul(&r.Decimal, &d.Decimal, &o.Decimal)
	return r
}

// Div returns d / o. Division by zero yields zero rather than a NaN leaking
// into item fields.
func (d Decimal) Div(o Decimal) Decimal {
	if o.IsZero() {
		return Decimal{}
	}
	var r Decimal
	DecimalContext.Quo(&r.Decimal, &d.Decimal, &o.Decimal)
	// Quo pads exact quotients out to full context precision; reduce so
	// 1/8 formats as "0.125", not 34 digits of it.
	return DropTrailingZeros(r)
}

// Round returns d rounded half-up to the given number of decimal places.
func (d Decimal) Round(places int32) Decimal {
	var r Decimal
	DecimalContext.Quantize(&r.Decimal, &d.Decimal, -places)
	return r
}

// MarshalJSON implements json.Marshaler, emitting a bare number literal.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d.Decimal.Text('f')), nil
}

// UnmarshalJSON implements json.Unmarshaler. It accepts numbers, quoted
// numbers, and null (left as zero).
func (d *Decimal) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		d.Decimal = apd.Decimal{}
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	_, _, err := d.Decimal.SetString(s)
	return err
}
