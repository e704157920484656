package calculator

// RSI computes the Wilder-smoothed relative strength index. The first value
// needs period+1 closes, so the output is len(closes)-period values long.
// A window with no movement at all reads 50; one without losses reads 100.
func RSI(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period+1 {
		return nil
	}

	// Initial average gain/loss over the first `period` changes
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	out := make([]float64, 0, len(closes)-period)
	out = append(out, rsiValue(avgGain, avgLoss))

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out = append(out, rsiValue(avgGain, avgLoss))
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgGain == 0 && avgLoss == 0 {
		return 50.0
	}
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// StochRSI normalises RSI(rsiPeriod) against the min/max of its trailing
// window values. A window with zero range reads 50.
func StochRSI(closes []float64, rsiPeriod, window int) []float64 {
	if window <= 0 {
		return nil
	}
	rsi := RSI(closes, rsiPeriod)
	if len(rsi) < window {
		return nil
	}
	out := make([]float64, 0, len(rsi)-window+1)
	for i := window - 1; i < len(rsi); i++ {
		hi, lo := HighestLowest(rsi[i-window+1 : i+1])
		if hi == lo {
			out = append(out, 50.0)
			continue
		}
		out = append(out, (rsi[i]-lo)/(hi-lo)*100)
	}
	return out
}
