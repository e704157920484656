package calculator

// Canonical MACD periods.
const (
	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
)

// MACD returns the MACD line (fast EMA minus slow EMA), its signal line (EMA
// of the MACD line) and the histogram. All three are aligned to the first
// index where the signal line exists, so each is
// len(values)-slow-signal+2 values long.
func MACD(values []float64, fast, slow, signal int) (line, sig, hist []float64) {
	if fast <= 0 || signal <= 0 || fast >= slow {
		return nil, nil, nil
	}
	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)
	if len(slowEMA) == 0 {
		return nil, nil, nil
	}
	fastEMA, slowEMA = alignTails(fastEMA, slowEMA)

	full := make([]float64, len(slowEMA))
	for i := range slowEMA {
		full[i] = fastEMA[i] - slowEMA[i]
	}
	sig = EMA(full, signal)
	if len(sig) == 0 {
		return nil, nil, nil
	}
	line = full[len(full)-len(sig):]
	hist = make([]float64, len(sig))
	for i := range sig {
		hist[i] = line[i] - sig[i]
	}
	return line, sig, hist
}
