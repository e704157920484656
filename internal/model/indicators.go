package model

import "time"

// MACDSeries holds the MACD line, its signal line and the histogram, all of
// equal length.
type MACDSeries struct {
	Line      []float64
	Signal    []float64
	Histogram []float64
}

// AroonSeries holds Aroon up/down of equal length.
type AroonSeries struct {
	Up   []float64
	Down []float64
}

// ElderRaySeries holds bull/bear power over the full bar range (zero where
// EMA13 is undefined) and the EMA13 series itself.
type ElderRaySeries struct {
	Bull  []float64
	Bear  []float64
	EMA13 []float64
}

// Snapshot bundles every indicator series computed from one bar sequence.
// All series are tail-aligned: the last element belongs to the last bar.
// A Snapshot is built once by the analyzer and must not be modified.
type Snapshot struct {
	Bars     int
	LastDate time.Time
	Closes   []float64

	SMA5   []float64
	SMA20  []float64
	SMA120 []float64

	DEMA5   []float64
	DEMA20  []float64
	DEMA120 []float64

	// LongPeriod is the period actually used for SMA120/DEMA120. It drops to
	// the short fallback period when the history is too short.
	LongPeriod int

	MACD       MACDSeries
	RSI        []float64
	Aroon      AroonSeries
	ElderRay   ElderRaySeries
	ForceIndex []float64
	StochRSI   []float64
	RVI        []float64
	SMI        []float64
	SMISignal  []float64
	VolumeOsc  []float64
}

// IndicatorSummary is the last value of every series, for display and JSON.
// Series that are unavailable report zero.
type IndicatorSummary struct {
	Close      float64 `json:"close"`
	SMA5       float64 `json:"sma5"`
	SMA20      float64 `json:"sma20"`
	SMA120     float64 `json:"sma120"`
	DEMA5      float64 `json:"dema5"`
	DEMA20     float64 `json:"dema20"`
	DEMA120    float64 `json:"dema120"`
	LongPeriod int     `json:"long_period"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_histogram"`
	RSI        float64 `json:"rsi"`
	AroonUp    float64 `json:"aroon_up"`
	AroonDown  float64 `json:"aroon_down"`
	BullPower  float64 `json:"bull_power"`
	BearPower  float64 `json:"bear_power"`
	ForceIndex float64 `json:"force_index"`
	StochRSI   float64 `json:"stoch_rsi"`
	RVI        float64 `json:"rvi"`
	SMI        float64 `json:"smi"`
	VolumeOsc  float64 `json:"volume_oscillator"`
}

// Latest extracts the last value of each series.
func (s *Snapshot) Latest() IndicatorSummary {
	return IndicatorSummary{
		Close:      last(s.Closes),
		SMA5:       last(s.SMA5),
		SMA20:      last(s.SMA20),
		SMA120:     last(s.SMA120),
		DEMA5:      last(s.DEMA5),
		DEMA20:     last(s.DEMA20),
		DEMA120:    last(s.DEMA120),
		LongPeriod: s.LongPeriod,
		MACD:       last(s.MACD.Line),
		MACDSignal: last(s.MACD.Signal),
		MACDHist:   last(s.MACD.Histogram),
		RSI:        last(s.RSI),
		AroonUp:    last(s.Aroon.Up),
		AroonDown:  last(s.Aroon.Down),
		BullPower:  last(s.ElderRay.Bull),
		BearPower:  last(s.ElderRay.Bear),
		ForceIndex: last(s.ForceIndex),
		StochRSI:   last(s.StochRSI),
		RVI:        last(s.RVI),
		SMI:        last(s.SMI),
		VolumeOsc:  last(s.VolumeOsc),
	}
}

func last(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return v[len(v)-1]
}
