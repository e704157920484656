package calculator

// RVI is the relative volatility index. For each day j the population
// standard deviation of the period closes ending at j is counted as up
// volatility when close[j] >= close[j-1] and down volatility otherwise.
// Each output sums the last period days: up/(up+down)*100, or 50 when both
// are zero. The output is len(closes)-2*period+2 values long.
func RVI(closes []float64, period int) []float64 {
	n := len(closes)
	if period <= 1 || n < 2*period-1 {
		return nil
	}

	std := make([]float64, n)
	for j := period - 1; j < n; j++ {
		std[j] = PopulationStdDev(closes[j-period+1 : j+1])
	}

	out := make([]float64, 0, n-2*period+2)
	for i := 2*period - 2; i < n; i++ {
		var upSum, downSum float64
		for j := i - period + 1; j <= i; j++ {
			if closes[j] >= closes[j-1] {
				upSum += std[j]
			} else {
				downSum += std[j]
			}
		}
		if upSum+downSum == 0 {
			out = append(out, 50.0)
			continue
		}
		out = append(out, upSum/(upSum+downSum)*100)
	}
	return out
}

// SMI is the stochastic momentum index over a trailing window. The midpoint
// is (highest high + lowest low)/2 of the window; the output is
// sum(close-midpoint)/sum(highest-lowest)*100, and 0 when the window has no
// range.
func SMI(closes, high, low []float64, window int) []float64 {
	n := len(closes)
	if window <= 0 || n < window || len(high) != n || len(low) != n {
		return nil
	}
	out := make([]float64, 0, n-window+1)
	for i := window - 1; i < n; i++ {
		start := i - window + 1
		hi := Highest(high[start : i+1])
		lo := Lowest(low[start : i+1])
		mid := (hi + lo) / 2

		var cm, hl float64
		for j := start; j <= i; j++ {
			cm += closes[j] - mid
			hl += hi - lo
		}
		if hl == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, cm/hl*100)
	}
	return out
}

// VolumeOscillator returns SMA(volume, short) - SMA(volume, long), aligned to
// the shorter (long-period) series.
func VolumeOscillator(volumes []float64, short, long int) []float64 {
	s, l := alignTails(SMA(volumes, short), SMA(volumes, long))
	if len(l) == 0 {
		return nil
	}
	out := make([]float64, len(l))
	for i := range l {
		out[i] = s[i] - l[i]
	}
	return out
}
