// Package analyzer turns a bar sequence into an indicator snapshot.
package analyzer

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/BuyBio/BuyBio/internal/calculator"
	"github.com/BuyBio/BuyBio/internal/model"
)

// DefaultMinBars is the minimum history length accepted by Analyze.
const DefaultMinBars = 50

var (
	// ErrInsufficientData means the history is shorter than MinBars.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrMalformedBar means a bar failed validation or a date repeats.
	ErrMalformedBar = errors.New("malformed bar")
)

// Options controls the periods used by the analyzer.
type Options struct {
	MinBars        int
	MACDFast       int
	MACDSlow       int
	MACDSignal     int
	LongPeriod     int
	FallbackPeriod int
}

// DefaultOptions returns the canonical configuration.
func DefaultOptions() Options {
	return Options{
		MinBars:        DefaultMinBars,
		MACDFast:       calculator.MACDFast,
		MACDSlow:       calculator.MACDSlow,
		MACDSignal:     calculator.MACDSignal,
		LongPeriod:     120,
		FallbackPeriod: 20,
	}
}

// Analyzer computes snapshots with fixed options. It holds no mutable state
// and is safe for concurrent use.
type Analyzer struct {
	opts Options
}

// New creates an Analyzer. Zero fields fall back to DefaultOptions.
func New(opts Options) *Analyzer {
	def := DefaultOptions()
	if opts.MinBars <= 0 {
		opts.MinBars = def.MinBars
	}
	if opts.MACDFast <= 0 {
		opts.MACDFast = def.MACDFast
	}
	if opts.MACDSlow <= 0 {
		opts.MACDSlow = def.MACDSlow
	}
	if opts.MACDSignal <= 0 {
		opts.MACDSignal = def.MACDSignal
	}
	if opts.LongPeriod <= 0 {
		opts.LongPeriod = def.LongPeriod
	}
	if opts.FallbackPeriod <= 0 {
		opts.FallbackPeriod = def.FallbackPeriod
	}
	return &Analyzer{opts: opts}
}

// Options returns the analyzer's effective options.
func (a *Analyzer) Options() Options { return a.opts }

var defaultAnalyzer = New(DefaultOptions())

// Analyze runs the default analyzer.
func Analyze(bars []model.Bar) (*model.Snapshot, error) {
	return defaultAnalyzer.Analyze(bars)
}

// Analyze validates and sorts bars, then computes every indicator series.
// It returns ErrInsufficientData or ErrMalformedBar (wrapped) on failure.
func (a *Analyzer) Analyze(bars []model.Bar) (*model.Snapshot, error) {
	if len(bars) < a.opts.MinBars {
		return nil, fmt.Errorf("%w: %d bars, need %d", ErrInsufficientData, len(bars), a.opts.MinBars)
	}

	sorted, err := sortBars(bars)
	if err != nil {
		return nil, err
	}

	n := len(sorted)
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, b := range sorted {
		high[i] = b.High
		low[i] = b.Low
		closes[i] = b.Close
		volumes[i] = float64(b.Volume)
	}

	snap := &model.Snapshot{
		Bars:     n,
		LastDate: sorted[n-1].Date,
		Closes:   closes,
		SMA5:     calculator.SMA(closes, 5),
		SMA20:    calculator.SMA(closes, 20),
		DEMA5:    calculator.DEMA(closes, 5),
		DEMA20:   calculator.DEMA(closes, 20),
	}

	// Short histories use the fallback period for the long averages.
	snap.LongPeriod = a.opts.LongPeriod
	if n < a.opts.LongPeriod {
		snap.LongPeriod = a.opts.FallbackPeriod
	}
	snap.SMA120 = calculator.SMA(closes, snap.LongPeriod)
	snap.DEMA120 = calculator.DEMA(closes, snap.LongPeriod)

	line, sig, hist := calculator.MACD(closes, a.opts.MACDFast, a.opts.MACDSlow, a.opts.MACDSignal)
	snap.MACD = model.MACDSeries{Line: line, Signal: sig, Histogram: hist}
	snap.RSI = calculator.RSI(closes, 14)

	up, down := calculator.Aroon(high, low, 14)
	snap.Aroon = model.AroonSeries{Up: up, Down: down}

	bull, bear, ema13 := calculator.ElderRay(high, low, closes, 13)
	snap.ElderRay = model.ElderRaySeries{Bull: bull, Bear: bear, EMA13: ema13}

	snap.ForceIndex = calculator.ForceIndex(closes, volumes)
	snap.StochRSI = calculator.StochRSI(closes, 9, 5)
	snap.RVI = calculator.RVI(closes, 10)
	snap.SMI = calculator.SMI(closes, high, low, 5)
	snap.SMISignal = calculator.EMA(snap.SMI, 13)
	snap.VolumeOsc = calculator.VolumeOscillator(volumes, 5, 20)

	return snap, nil
}

// sortBars returns a validated copy of bars in ascending date order.
func sortBars(bars []model.Bar) ([]model.Bar, error) {
	for i, b := range bars {
		if err := validateBar(b); err != nil {
			return nil, fmt.Errorf("%w: bar %d (%s): %v", ErrMalformedBar, i, b.Date.Format("2006-01-02"), err)
		}
	}

	sorted := make([]model.Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Date.Equal(sorted[i-1].Date) {
			return nil, fmt.Errorf("%w: duplicate date %s", ErrMalformedBar, sorted[i].Date.Format("2006-01-02"))
		}
	}
	return sorted, nil
}

func validateBar(b model.Bar) error {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("price %v is not a positive finite number", v)
		}
	}
	switch {
	case b.Volume < 0:
		return fmt.Errorf("negative volume %d", b.Volume)
	case b.High < b.Low:
		return fmt.Errorf("high %v below low %v", b.High, b.Low)
	case b.High < math.Max(b.Open, b.Close):
		return fmt.Errorf("high %v below open/close", b.High)
	case b.Low > math.Min(b.Open, b.Close):
		return fmt.Errorf("low %v above open/close", b.Low)
	case b.Date.IsZero():
		return errors.New("missing date")
	}
	return nil
}
