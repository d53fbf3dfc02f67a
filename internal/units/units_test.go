package units_test

import (
	"math/big"
	"testing"

	"github.com/Mohsinsiddi/ykp/internal/units"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimalToInteger(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"", "0"},
		{"0", "0"},
		{"1", "1000000000000000000"},
		{"1.5", "1500000000000000000"},
		{".5", "500000000000000000"},
		{"5.", "5000000000000000000"},
		{"0.000000000000000001", "1"},
		{"0.0000000000000000019", "1"}, // truncated, not rounded
		{"123456789.123456789123456789", "123456789123456789123456789"},
		{" 2.25 ", "2250000000000000000"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := units.DecimalToInteger(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got.String())
		})
	}
}

func TestDecimalToIntegerRejects(t *testing.T) {
	for _, in := range []string{".", "1.2.3", "-1", "1e18", "abc", "1,5", "+3"} {
		_, err := units.DecimalToInteger(in)
		assert.ErrorIs(t, err, units.ErrInvalidAmount, in)
	}
}

func TestDecimalToIntegerBeyondFloatPrecision(t *testing.T) {
	// 2^53 + 1 tokens with a full fraction: float64 would lose the trailing digits.
	got, err := units.DecimalToInteger("9007199254740993.000000000000000007")
	require.NoError(t, err)
	assert.Equal(t, "9007199254740993000000000000000007", got.String())
}

func TestIntegerToDecimal(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"0", "0"},
		{"1", "0.000000000000000001"},
		{"1000000000000000000", "1"},
		{"1500000000000000000", "1.5"},
		{"123456789123456789123456789", "123456789.123456789123456789"},
		{"-2500000000000000000", "-2.5"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n, _ := new(big.Int).SetString(tt.in, 10)
			assert.Equal(t, tt.expected, units.IntegerToDecimal(n))
		})
	}
	assert.Equal(t, "0", units.IntegerToDecimal(nil))
}

func TestRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "1", "0.1", "42.000000000000000001", "1000000", "3.14159", "99999999999999999999.999999999999999999"} {
		n, err := units.DecimalToInteger(s)
		require.NoError(t, err)
		back := units.IntegerToDecimal(n)
		again, err := units.DecimalToInteger(back)
		require.NoError(t, err)
		assert.Equal(t, n.String(), again.String(), s)

		want, _ := decimal.NewFromString(s)
		got, _ := decimal.NewFromString(back)
		assert.True(t, want.Equal(got), "%s → %s", s, back)
	}
}

func TestRoundTripTrailingZeros(t *testing.T) {
	n, err := units.DecimalToInteger("1.500000")
	require.NoError(t, err)
	assert.Equal(t, "1.5", units.IntegerToDecimal(n))
}

func TestFormatFixed(t *testing.T) {
	n := units.MustDecimalToInteger("4.87599")
	assert.Equal(t, "4.8759", units.FormatFixed(n, 4))
	assert.Equal(t, "4", units.FormatFixed(n, 0))
	assert.Equal(t, "0.0000", units.FormatFixed(big.NewInt(1), 4))
	assert.Equal(t, "0.00", units.FormatFixed(nil, 2))
	assert.Equal(t, "-1.25", units.FormatFixed(units.MustDecimalToInteger("1.25").Neg(units.MustDecimalToInteger("1.25")), 2))
}

func TestDecimalBridge(t *testing.T) {
	n := units.MustDecimalToInteger("10.123456789012345678")
	d := units.ToDecimal(n)
	assert.Equal(t, "10.123456789012345678", d.String())
	assert.Equal(t, n.String(), units.FromDecimal(d).String())

	// Extra precision beyond 18 digits is truncated.
	long := decimal.RequireFromString("1.0000000000000000019")
	assert.Equal(t, "1000000000000000001", units.FromDecimal(long).String())
}

func TestParseDecimal(t *testing.T) {
	d, err := units.ParseDecimal("2.5")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("2.5")))

	_, err = units.ParseDecimal("two")
	assert.ErrorIs(t, err, units.ErrInvalidAmount)
}
