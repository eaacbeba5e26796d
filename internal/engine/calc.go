package engine

import (
	"martinbot/internal/instruments"

	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// CalcStops places stop-loss below and take-profit above the entry for long
// orders, and mirrors both for short orders.
func CalcStops(entry decimal.Decimal, profile instruments.Profile, long bool) (sl, tp decimal.Decimal) {
	if long {
		return entry.Sub(profile.StopOffset), entry.Add(profile.TakeOffset)
	}
	return entry.Add(profile.StopOffset), entry.Sub(profile.TakeOffset)
}

// StepVolume returns base × 2^step.
func StepVolume(base decimal.Decimal, step int) decimal.Decimal {
	v := base
	for i := 0; i < step; i++ {
		v = v.Mul(two)
	}
	return v
}
