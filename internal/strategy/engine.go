package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/BuyBio/BuyBio/internal/model"
)

// Params is the scoring configuration: per-indicator weights, per-level
// points and the thresholds the rules compare against.
type Params struct {
	Weights map[model.Indicator]float64
	Points  map[model.SignalLevel]float64

	// MACDPositionFactor scales the MACD weight for the persistent
	// MACD-vs-signal position rule.
	MACDPositionFactor float64

	StochLow  float64
	StochHigh float64

	RVIMid        float64
	RVIStrongBuy  float64
	RVIStrongSell float64

	// ForceChange is the minimum relative day-over-day Force Index move.
	ForceChange float64

	ElderLookback int
	TrendWindow   int
}

// DefaultWeights returns the canonical weight table.
func DefaultWeights() map[model.Indicator]float64 {
	return map[model.Indicator]float64{
		model.IndicatorDEMA:       4.0,
		model.IndicatorMACD:       7.0,
		model.IndicatorAroon:      3.0,
		model.IndicatorElderRay:   2.5,
		model.IndicatorForceIndex: 1.0,
		model.IndicatorStochRSI:   4.0,
		model.IndicatorRVI:        4.5,
		model.IndicatorSMI:        3.0,
		model.IndicatorVolumeOsc:  3.5,
	}
}

// DefaultPoints returns the points awarded per signal level.
func DefaultPoints() map[model.SignalLevel]float64 {
	return map[model.SignalLevel]float64{
		model.StrongBuy:  5,
		model.Buy:        5,
		model.WeakBuy:    3,
		model.Neutral:    0,
		model.WeakSell:   -3,
		model.Sell:       -5,
		model.StrongSell: -5,
	}
}

// DefaultParams returns the canonical scoring configuration.
func DefaultParams() Params {
	return Params{
		Weights:            DefaultWeights(),
		Points:             DefaultPoints(),
		MACDPositionFactor: 0.3,
		StochLow:           20,
		StochHigh:          80,
		RVIMid:             50,
		RVIStrongBuy:       60,
		RVIStrongSell:      40,
		ForceChange:        0.10,
		ElderLookback:      20,
		TrendWindow:        5,
	}
}

// WithWeights returns a copy of p whose weights are overridden by w.
// Unknown indicators and non-positive weights are ignored.
func (p Params) WithWeights(w map[string]float64) Params {
	merged := make(map[model.Indicator]float64, len(p.Weights))
	for k, v := range p.Weights {
		merged[k] = v
	}
	for name, v := range w {
		ind := model.Indicator(name)
		if _, ok := merged[ind]; ok && v > 0 {
			merged[ind] = v
		}
	}
	p.Weights = merged
	return p
}

// Scorer turns snapshots into score results. It is safe for concurrent use.
type Scorer struct {
	params Params
}

// NewScorer creates a Scorer with the given parameters.
func NewScorer(p Params) *Scorer {
	return &Scorer{params: p}
}

var defaultScorer = NewScorer(DefaultParams())

// Score evaluates snap with the default parameters.
func Score(snap *model.Snapshot) model.ScoreResult {
	return defaultScorer.Score(snap)
}

// Score evaluates every rule against snap and sums the weighted points into
// the short and mid/long horizons. A nil snapshot scores zero.
func (s *Scorer) Score(snap *model.Snapshot) model.ScoreResult {
	result := model.ScoreResult{Recommendation: model.RecommendSell}
	if snap == nil {
		return result
	}

	var short, midLong float64
	for _, r := range rules {
		level, note := r.eval(snap, &s.params)
		weight := r.weight(&s.params)
		points := s.params.Points[level] * weight

		f := model.FactorScore{
			Indicator:  r.indicator,
			Rule:       r.name,
			Level:      level,
			Weight:     weight,
			Commentary: note,
		}
		switch r.horizon {
		case model.Short:
			f.Short = points
		case model.MidLong:
			f.MidLong = points
		default:
			f.Short = points
			f.MidLong = points
		}
		short += f.Short
		midLong += f.MidLong
		result.Factors = append(result.Factors, f)
	}

	shortD := decimal.NewFromFloat(short).Round(2)
	midLongD := decimal.NewFromFloat(midLong).Round(2)
	totalD := shortD.Add(midLongD)

	result.ShortScore, _ = shortD.Float64()
	result.MidLongScore, _ = midLongD.Float64()
	result.TotalScore, _ = totalD.Float64()
	if totalD.IsPositive() {
		result.Recommendation = model.RecommendBuy
	}
	return result
}
