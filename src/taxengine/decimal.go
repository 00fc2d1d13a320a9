package taxengine

import (
	"fmt"
	"math/big"
	"strings"
)

// decimal is a non-negative fixed-point number: coef * 10^-scale. All money
// math runs on these so results are bit-exact regardless of platform; floats
// never touch the money path.
type decimal struct {
	coef  *big.Int
	scale int
}

// parseDecimal parses a plain decimal string ("5000", "0.5", "83.00").
// Signs, exponents, thousands separators and empty strings are rejected.
func parseDecimal(s string) (decimal, error) {
	if s == "" {
		return decimal{}, fmt.Errorf("empty decimal string")
	}
	if s[0] == '+' || s[0] == '-' {
		return decimal{}, fmt.Errorf("signed decimal %q not allowed", s)
	}
	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
		if strings.IndexByte(fracPart, '.') >= 0 {
			return decimal{}, fmt.Errorf("malformed decimal %q", s)
		}
	}
	if intPart == "" && fracPart == "" {
		return decimal{}, fmt.Errorf("malformed decimal %q", s)
	}
	digits := intPart + fracPart
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return decimal{}, fmt.Errorf("malformed decimal %q", s)
		}
	}
	coef, ok := new(big.Int).SetString("0"+digits, 10)
	if !ok {
		return decimal{}, fmt.Errorf("malformed decimal %q", s)
	}
	return decimal{coef: coef, scale: len(fracPart)}, nil
}

// mulToPaisa multiplies the given decimals exactly and rescales the product
// to two fractional digits (paisa), rounding half-up.
func mulToPaisa(ds ...decimal) *big.Int {
	coef := big.NewInt(1)
	scale := 0
	for _, d := range ds {
		coef.Mul(coef, d.coef)
		scale += d.scale
	}
	return rescaleToPaisa(coef, scale)
}

// rescaleToPaisa converts coef * 10^-scale to an integer paisa amount,
// rounding half-up when precision is dropped.
func rescaleToPaisa(coef *big.Int, scale int) *big.Int {
	switch {
	case scale == 2:
		return new(big.Int).Set(coef)
	case scale < 2:
		pow := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(2-scale)), nil)
		return new(big.Int).Mul(coef, pow)
	default:
		pow := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale-2)), nil)
		return divHalfUp(coef, pow)
	}
}

// divHalfUp divides n by d (both non-negative, d > 0) rounding half-up.
func divHalfUp(n, d *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(n, d, new(big.Int))
	r.Lsh(r, 1)
	if r.Cmp(d) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// applyBasisPoints returns amount * bp / 10000 in paisa, rounded half-up.
func applyBasisPoints(amount *big.Int, bp int64) *big.Int {
	n := new(big.Int).Mul(amount, big.NewInt(bp))
	return divHalfUp(n, big.NewInt(10000))
}

// formatINR renders an integer paisa amount as an INR decimal string with
// two fractional digits, e.g. 20750000 -> "207500.00".
func formatINR(paisa *big.Int) string {
	q, r := new(big.Int).QuoRem(paisa, big.NewInt(100), new(big.Int))
	return fmt.Sprintf("%s.%02d", q.String(), r.Int64())
}
