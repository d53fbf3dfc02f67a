// Package units converts between human decimal amounts and 18-decimal
// base units. Conversions work on digit strings and big.Int only; binary
// floating point is never involved.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimals is the fractional precision of every token handled here.
const Decimals = 18

// ErrInvalidAmount is returned for input that is not a plain decimal number.
var ErrInvalidAmount = errors.New("invalid amount")

// DecimalToInteger converts "1.5" to 1500000000000000000. The fraction is
// right-padded or truncated to exactly 18 digits. Empty input is zero.
func DecimalToInteger(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), nil
	}

	whole, frac, hasDot := strings.Cut(s, ".")
	if hasDot && strings.Contains(frac, ".") {
		return nil, fmt.Errorf("%w: %q has more than one decimal point", ErrInvalidAmount, s)
	}
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !allDigits(whole) || !allDigits(frac) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	if len(frac) > Decimals {
		frac = frac[:Decimals]
	} else {
		frac += strings.Repeat("0", Decimals-len(frac))
	}

	n, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return n, nil
}

// MustDecimalToInteger is DecimalToInteger for constants; it panics on error.
func MustDecimalToInteger(s string) *big.Int {
	n, err := DecimalToInteger(s)
	if err != nil {
		panic(err)
	}
	return n
}

// IntegerToDecimal converts base units back to a trimmed decimal string:
// 1500000000000000000 → "1.5", 0 → "0".
func IntegerToDecimal(n *big.Int) string {
	if n == nil || n.Sign() == 0 {
		return "0"
	}
	neg := n.Sign() < 0
	digits := new(big.Int).Abs(n).String()
	if len(digits) < Decimals+1 {
		digits = strings.Repeat("0", Decimals+1-len(digits)) + digits
	}

	point := len(digits) - Decimals
	out := digits[:point] + "." + digits[point:]
	out = strings.TrimRight(out, "0")
	out = strings.TrimSuffix(out, ".")
	if neg {
		out = "-" + out
	}
	return out
}

// FormatFixed renders base units with exactly places fractional digits,
// truncating (never rounding up) the remainder.
func FormatFixed(n *big.Int, places int) string {
	if n == nil {
		n = new(big.Int)
	}
	if places < 0 {
		places = 0
	}
	if places > Decimals {
		places = Decimals
	}
	neg := n.Sign() < 0
	digits := new(big.Int).Abs(n).String()
	if len(digits) < Decimals+1 {
		digits = strings.Repeat("0", Decimals+1-len(digits)) + digits
	}
	point := len(digits) - Decimals
	out := digits[:point]
	if places > 0 {
		out += "." + digits[point:point+places]
	}
	if neg && strings.Trim(out, "0.") != "" {
		out = "-" + out
	}
	return out
}

// ToDecimal lifts base units into an exact decimal token amount.
func ToDecimal(n *big.Int) decimal.Decimal {
	if n == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n, -Decimals)
}

// FromDecimal converts a token amount to base units, truncating anything
// beyond 18 fractional digits.
func FromDecimal(d decimal.Decimal) *big.Int {
	return d.Shift(Decimals).Truncate(0).BigInt()
}

// ParseDecimal parses user input into a decimal amount using the same
// grammar and truncation as DecimalToInteger.
func ParseDecimal(s string) (decimal.Decimal, error) {
	n, err := DecimalToInteger(s)
	if err != nil {
		return decimal.Zero, err
	}
	return ToDecimal(n), nil
}

func allDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
