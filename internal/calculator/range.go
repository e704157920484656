package calculator

import "math"

// HighestLowest scans values and returns its maximum and minimum.
// An empty slice returns (-Inf, +Inf).
func HighestLowest(values []float64) (high, low float64) {
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, v := range values {
		if v > high {
			high = v
		}
		if v < low {
			low = v
		}
	}
	return high, low
}

// Highest returns the maximum of values, or -Inf when empty.
func Highest(values []float64) float64 {
	h, _ := HighestLowest(values)
	return h
}

// Lowest returns the minimum of values, or +Inf when empty.
func Lowest(values []float64) float64 {
	_, l := HighestLowest(values)
	return l
}

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// PopulationStdDev returns the population standard deviation. A window whose
// values are all equal returns exactly 0.
func PopulationStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if h, l := HighestLowest(values); h == l {
		return 0
	}
	m := Mean(values)
	ss := 0.0
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}
