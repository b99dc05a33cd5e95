package core

import "github.com/cockroachdb/apd/v3"

// RoundToStep quantizes value to an integral multiple of step. With down set
// the value is floored to the step (never exceeding the input), otherwise it
// is rounded half-up to the nearest multiple. A zero step returns the value
// unchanged.
func RoundToStep(value, step Decimal, down bool) Decimal {
	if step.IsZero() || value.IsZero() {
		return value
	}
	var q, iq apd.Decimal
	DecimalContext.Quo(&q, &value.Decimal, &step.Decimal)
	if down {
		DecimalContext.Floor(&iq, &q)
	} else {
		DecimalContext.RoundToIntegralValue(&iq, &q)
	}
	var r Decimal
	DecimalContext.Mul(&r.Decimal, &iq, &step.Decimal)
	return DropTrailingZeros(r)
}

// DropTrailingZeros normalizes the representation by removing trailing
// fractional zeros ("1.2300" becomes "1.23").
func DropTrailingZeros(d Decimal) Decimal {
	var r Decimal
	r.Decimal.Reduce(&d.Decimal)
	if r.Decimal.Exponent > 0 {
		// Keep integers in plain form ("120", not "1.2E+2").
		DecimalContext.Quantize(&r.Decimal, &r.Decimal, 0)
	}
	return r
}
