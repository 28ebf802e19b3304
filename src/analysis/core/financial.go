package core

import (
	"math"

	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------

// Percent returns num/denom*100, or 0 for a non-positive denominator.
func Percent(num, denom float64) float64 {
	if denom <= 0 {
		return 0.0
	}
	return (num * 100.0) / denom
}

// -----------------------------------------------------------------------------

// DeviationPercent is how far current sits below reference, in percent.
// Positive means cheaper than the reference.
func DeviationPercent(reference, current float64) float64 {
	return Percent(reference-current, reference)
}

// -----------------------------------------------------------------------------

// NetSellPrice applies fee and slippage friction to a sell price and floors it.
func NetSellPrice(price int, feeSlippagePercent float64) int {
	fee := math.Max(0, feeSlippagePercent)
	return int(math.Floor(float64(price) * (1.0 - fee/100.0)))
}

// -----------------------------------------------------------------------------

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// -----------------------------------------------------------------------------

// Round2 rounds half away from zero to 2 decimal places. Presentation only.
func Round2(v float64) float64 {
	return roundPlaces(v, 2)
}

// Round4 rounds half away from zero to 4 decimal places. Presentation only.
func Round4(v float64) float64 {
	return roundPlaces(v, 4)
}

func roundPlaces(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
