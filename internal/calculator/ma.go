// Package calculator implements the technical indicators used by the scorer.
//
// Every function is pure. Outputs are tail-aligned with their inputs: the
// last output value belongs to the last input value, and the output is
// shorter than the input by the indicator's warm-up. Input that is too short
// yields an empty slice rather than an error.
package calculator

import (
	"github.com/markcheno/go-talib"
)

// SMA returns the simple moving average, len(values)-period+1 values long.
func SMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	if period == 1 {
		return append([]float64(nil), values...)
	}
	// talib zero-fills the warm-up; drop it.
	return talib.Sma(values, period)[period-1:]
}

// EMA returns the exponential moving average with k = 2/(period+1), seeded
// with the SMA of the first period values. The output is
// len(values)-period+1 values long.
func EMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	if period == 1 {
		return append([]float64(nil), values...)
	}
	return talib.Ema(values, period)[period-1:]
}

// DEMA returns 2*EMA - EMA(EMA). It needs at least 2*period-1 values and is
// len(values)-2*period+2 values long.
func DEMA(values []float64, period int) []float64 {
	ema1 := EMA(values, period)
	ema2 := EMA(ema1, period)
	if len(ema2) == 0 {
		return nil
	}
	off := len(ema1) - len(ema2)
	out := make([]float64, len(ema2))
	for i := range ema2 {
		out[i] = 2*ema1[i+off] - ema2[i]
	}
	return out
}

// alignTails trims a and b to their common tail length.
func alignTails(a, b []float64) ([]float64, []float64) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	return a[len(a)-n:], b[len(b)-n:]
}
