package tool

import "math"

// RoundCurrency rounds v to 2 decimal places. Monetary amounts are rounded
// at computation time, never at display time.
func RoundCurrency(v float64) float64 {
	return math.Round(v*100) / 100
}

// PercentOf returns rate percent of base, rounded to currency precision.
func PercentOf(base, rate float64) float64 {
	return RoundCurrency(base * rate / 100)
}
