package budget

import "github.com/shopspring/decimal"

// Round2 rounds v to two decimal places, half away from zero. It is a
// presentation helper; the cascade itself never rounds.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// FormatMoney renders v with exactly two decimals, rounded like Round2.
func FormatMoney(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// EqualMoney reports whether a and b agree at two-decimal display precision.
func EqualMoney(a, b float64) bool {
	return FormatMoney(a) == FormatMoney(b)
}
