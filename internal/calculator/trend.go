package calculator

// Aroon returns Aroon up/down for every index i >= period-1:
// (period - barsSinceExtreme)/period*100 over the period values ending at i.
// Ties resolve to the most recent extreme.
func Aroon(high, low []float64, period int) (up, down []float64) {
	n := len(high)
	if len(low) < n {
		n = len(low)
	}
	if period <= 0 || n < period {
		return nil, nil
	}
	high, low = high[len(high)-n:], low[len(low)-n:]

	up = make([]float64, 0, n-period+1)
	down = make([]float64, 0, n-period+1)
	for i := period - 1; i < n; i++ {
		hi, lo := high[i-period+1], low[i-period+1]
		sinceHigh, sinceLow := period-1, period-1
		for j := i - period + 1; j <= i; j++ {
			if high[j] >= hi {
				hi = high[j]
				sinceHigh = i - j
			}
			if low[j] <= lo {
				lo = low[j]
				sinceLow = i - j
			}
		}
		up = append(up, float64(period-sinceHigh)/float64(period)*100)
		down = append(down, float64(period-sinceLow)/float64(period)*100)
	}
	return up, down
}

// ElderRay returns bull power (high - EMA) and bear power (low - EMA) over
// the full input length. Indices before the EMA is defined are 0. The EMA
// series itself is returned as well.
func ElderRay(high, low, closes []float64, period int) (bull, bear, ema []float64) {
	n := len(closes)
	if len(high) != n || len(low) != n {
		return nil, nil, nil
	}
	bull = make([]float64, n)
	bear = make([]float64, n)
	ema = EMA(closes, period)
	off := n - len(ema)
	for j, e := range ema {
		i := j + off
		bull[i] = high[i] - e
		bear[i] = low[i] - e
	}
	return bull, bear, ema
}

// ForceIndex returns (close[i]-close[i-1])*volume[i], with 0 at index 0.
func ForceIndex(closes, volumes []float64) []float64 {
	n := len(closes)
	if n == 0 || len(volumes) != n {
		return nil
	}
	out := make([]float64, n)
	for i := 1; i < n; i++ {
		out[i] = (closes[i] - closes[i-1]) * volumes[i]
	}
	return out
}
