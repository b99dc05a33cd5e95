package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundToStepDown(t *testing.T) {
	cases := []struct {
		value, step, want string
	}{
		{"0.0023", "0.0005", "0.002"},
		{"10", "3", "9"},
		{"0.0004", "0.0005", "0"},
		{"6950.7", "0.5", "6950.5"},
		{"0.002", "0.0005", "0.002"},
	}
	for _, tc := range cases {
		got := RoundToStep(MustDecimal(tc.value), MustDecimal(tc.step), true)
		assert.Equal(t, tc.want, got.String(), "%s step %s", tc.value, tc.step)
	}
}

func TestRoundToStepNearest(t *testing.T) {
	cases := []struct {
		value, step, want string
	}{
		{"0.00225", "0.0005", "0.0025"},
		{"0.0022", "0.0005", "0.002"},
		{"6950.3", "0.5", "6950.5"},
		{"6950.2", "0.5", "6950"},
	}
	for _, tc := range cases {
		got := RoundToStep(MustDecimal(tc.value), MustDecimal(tc.step), false)
		assert.Equal(t, tc.want, got.String(), "%s step %s", tc.value, tc.step)
	}
}

func TestRoundToStepZeroStep(t *testing.T) {
	v := MustDecimal("1.2345")
	assert.Equal(t, "1.2345", RoundToStep(v, Decimal{}, true).String())
	assert.Equal(t, "0", RoundToStep(Decimal{}, MustDecimal("0.5"), true).String())
}

func TestDropTrailingZeros(t *testing.T) {
	cases := []struct{ in, want string }{
		{"1.2300", "1.23"},
		{"120.00", "120"},
		{"0.000", "0"},
		{"0.1", "0.1"},
		{"100", "100"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DropTrailingZeros(MustDecimal(tc.in)).String(), tc.in)
	}
}
