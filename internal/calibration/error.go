package calibration

import (
	"math"

	"instrupro-backend/internal/parse"
)

// TotalizerConvention selects the direction of the totaliser difference.
// Two screens of the plant use opposite directions and both are kept.
type TotalizerConvention int

const (
	// AfterMinusBefore is used by the tag model and the submitted report.
	AfterMinusBefore TotalizerConvention = iota
	// BeforeMinusAfter is used by the loss-of-weight row screen.
	BeforeMinusAfter
)

// Reading holds the four raw loss-of-weight values. A nil field has not been
// entered yet.
type Reading struct {
	BinBefore *float64
	BinAfter  *float64
	TotBefore *float64
	TotAfter  *float64
}

// ReadingFromText builds a Reading from decimal input fields.
func ReadingFromText(binBefore, binAfter, totBefore, totAfter string) Reading {
	return Reading{
		BinBefore: optional(binBefore),
		BinAfter:  optional(binAfter),
		TotBefore: optional(totBefore),
		TotAfter:  optional(totAfter),
	}
}

func optional(s string) *float64 {
	v, ok := parse.ParseDecimal(s)
	if !ok {
		return nil
	}
	return &v
}

func (r Reading) complete() bool {
	for _, v := range []*float64{r.BinBefore, r.BinAfter, r.TotBefore, r.TotAfter} {
		if v == nil || !(*v > 0) || math.IsInf(*v, 0) {
			return false
		}
	}
	return true
}

// BinDifference is binBefore - binAfter, or false when either side is missing.
func (r Reading) BinDifference() (float64, bool) {
	if r.BinBefore == nil || r.BinAfter == nil {
		return 0, false
	}
	return *r.BinBefore - *r.BinAfter, true
}

// TotDifference applies conv to the totaliser readings.
func (r Reading) TotDifference(conv TotalizerConvention) (float64, bool) {
	if r.TotBefore == nil || r.TotAfter == nil {
		return 0, false
	}
	if conv == BeforeMinusAfter {
		return *r.TotBefore - *r.TotAfter, true
	}
	return *r.TotAfter - *r.TotBefore, true
}

// WeighFeederError returns ((binDiff/totDiff) - 1) * 100 rounded to two
// decimals. It is undefined unless all four readings are present and strictly
// positive, and when the totaliser did not move.
func WeighFeederError(r Reading, conv TotalizerConvention) (float64, bool) {
	if !r.complete() {
		return 0, false
	}
	binDiff, _ := r.BinDifference()
	totDiff, _ := r.TotDifference(conv)
	if totDiff == 0 {
		return 0, false
	}
	e := Round2((binDiff/totDiff - 1) * 100)
	if math.IsNaN(e) || math.IsInf(e, 0) {
		return 0, false
	}
	return e, true
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
