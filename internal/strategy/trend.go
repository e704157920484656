package strategy

import "math"

// Trend is the direction of a series over a trailing window.
type Trend int

const (
	Flat Trend = iota
	Rising
	Falling
)

func (t Trend) String() string {
	switch t {
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	default:
		return "flat"
	}
}

// equalTolerance is the relative difference below which two values compare
// equal. Crossovers and trends ignore anything smaller.
const equalTolerance = 1e-9

func tolerance(a, b float64) float64 {
	return equalTolerance * math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func greater(a, b float64) bool { return a-b > tolerance(a, b) }

func less(a, b float64) bool { return b-a > tolerance(a, b) }

// TrendDirection compares the last value of series with the value window-1
// samples earlier. Windows shorter than 2 or longer than the series are Flat.
func TrendDirection(series []float64, window int) Trend {
	n := len(series)
	if window < 2 || n < window {
		return Flat
	}
	first, last := series[n-window], series[n-1]
	switch {
	case greater(last, first):
		return Rising
	case less(last, first):
		return Falling
	default:
		return Flat
	}
}

// Opposes reports whether two trends point in opposite directions.
func Opposes(a, b Trend) bool {
	return (a == Rising && b == Falling) || (a == Falling && b == Rising)
}

// crossedAbove reports whether a moved from at-or-below b to above b on the
// last sample. Both series are tail-aligned.
func crossedAbove(a, b []float64) bool {
	if len(a) < 2 || len(b) < 2 {
		return false
	}
	pa, pb := a[len(a)-2], b[len(b)-2]
	ca, cb := a[len(a)-1], b[len(b)-1]
	return !greater(pa, pb) && greater(ca, cb)
}

// crossedBelow is the mirror of crossedAbove.
func crossedBelow(a, b []float64) bool {
	if len(a) < 2 || len(b) < 2 {
		return false
	}
	pa, pb := a[len(a)-2], b[len(b)-2]
	ca, cb := a[len(a)-1], b[len(b)-1]
	return !less(pa, pb) && less(ca, cb)
}

func crossedAboveLevel(a []float64, level float64) bool {
	return crossedAbove(a, []float64{level, level})
}

func crossedBelowLevel(a []float64, level float64) bool {
	return crossedBelow(a, []float64{level, level})
}
