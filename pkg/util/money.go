package util

import "github.com/shopspring/decimal"

// Round2 rounds half away from zero to cents.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// Percent returns v * pct rounded to cents.
func Percent(v, pct float64) float64 {
	f, _ := decimal.NewFromFloat(v).Mul(decimal.NewFromFloat(pct)).Round(2).Float64()
	return f
}

// ClampNonNegative returns 0 for negative amounts.
func ClampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
