package model

import "fmt"

// Indicator names one weighted indicator category.
type Indicator string

const (
	IndicatorDEMA       Indicator = "DEMA"
	IndicatorMACD       Indicator = "MACD"
	IndicatorAroon      Indicator = "AROON"
	IndicatorElderRay   Indicator = "ELDER_RAY"
	IndicatorForceIndex Indicator = "FORCE_INDEX"
	IndicatorStochRSI   Indicator = "STOCH_RSI"
	IndicatorRVI        Indicator = "RVI"
	IndicatorSMI        Indicator = "SMI"
	IndicatorVolumeOsc  Indicator = "VOLUME_OSC"
)

// Indicators lists every weighted indicator in scoring order.
var Indicators = []Indicator{
	IndicatorDEMA, IndicatorMACD, IndicatorAroon, IndicatorVolumeOsc,
	IndicatorStochRSI, IndicatorElderRay, IndicatorForceIndex,
	IndicatorRVI, IndicatorSMI,
}

// SignalLevel is the discrete strength a rule assigns.
type SignalLevel int

const (
	Neutral SignalLevel = iota
	StrongBuy
	Buy
	WeakBuy
	WeakSell
	Sell
	StrongSell
)

var levelNames = map[SignalLevel]string{
	Neutral:    "NEUTRAL",
	StrongBuy:  "STRONG_BUY",
	Buy:        "BUY",
	WeakBuy:    "WEAK_BUY",
	WeakSell:   "WEAK_SELL",
	Sell:       "SELL",
	StrongSell: "STRONG_SELL",
}

func (l SignalLevel) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return fmt.Sprintf("SignalLevel(%d)", int(l))
}

// MarshalText encodes the level by name.
func (l SignalLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText decodes a level name.
func (l *SignalLevel) UnmarshalText(b []byte) error {
	for k, v := range levelNames {
		if v == string(b) {
			*l = k
			return nil
		}
	}
	return fmt.Errorf("unknown signal level %q", string(b))
}

// Bullish reports whether the level is on the buy side.
func (l SignalLevel) Bullish() bool {
	return l == StrongBuy || l == Buy || l == WeakBuy
}

// Horizon selects which score a rule contributes to.
type Horizon int

const (
	Short Horizon = iota
	MidLong
	BothHorizons
)

func (h Horizon) String() string {
	switch h {
	case Short:
		return "short"
	case MidLong:
		return "mid_long"
	default:
		return "both"
	}
}

// Recommendation is the final verdict for a symbol.
type Recommendation string

const (
	RecommendBuy  Recommendation = "BUY"
	RecommendSell Recommendation = "SELL"
)

// FactorScore is one rule's contribution.
type FactorScore struct {
	Indicator  Indicator   `json:"indicator"`
	Rule       string      `json:"rule"`
	Level      SignalLevel `json:"level"`
	Weight     float64     `json:"weight"`
	Short      float64     `json:"short"`
	MidLong    float64     `json:"mid_long"`
	Commentary string      `json:"commentary,omitempty"`
}

// ScoreResult is the scorer's output. TotalScore is ShortScore+MidLongScore,
// all rounded to two decimals.
type ScoreResult struct {
	ShortScore     float64        `json:"short_term"`
	MidLongScore   float64        `json:"mid_long_term"`
	TotalScore     float64        `json:"total"`
	Recommendation Recommendation `json:"recommendation"`
	Factors        []FactorScore  `json:"factors,omitempty"`
}

// Factor returns the factor produced by the named rule.
func (r *ScoreResult) Factor(rule string) (FactorScore, bool) {
	for _, f := range r.Factors {
		if f.Rule == rule {
			return f, true
		}
	}
	return FactorScore{}, false
}
