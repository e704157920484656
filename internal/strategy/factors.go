package strategy

import (
	"fmt"
	"math"

	"github.com/BuyBio/BuyBio/internal/calculator"
	"github.com/BuyBio/BuyBio/internal/model"
)

// Rule names as reported in FactorScore.Rule.
const (
	RuleDEMAShort    = "dema_short"
	RuleDEMAMid      = "dema_mid"
	RuleMACDCross    = "macd_cross"
	RuleMACDPosition = "macd_position"
	RuleAroonCross   = "aroon_cross"
	RuleVolumeOsc    = "volume_osc"
	RuleStochRSI     = "stoch_rsi"
	RuleElderRay     = "elder_ray"
	RuleForceIndex   = "force_index"
	RuleRVI          = "rvi"
	RuleSMICross     = "smi_cross"
)

type ruleFunc func(s *model.Snapshot, p *Params) (model.SignalLevel, string)

type rule struct {
	name      string
	indicator model.Indicator
	horizon   model.Horizon
	eval      ruleFunc
}

// weight is the indicator weight, scaled down for the MACD position rule.
func (r rule) weight(p *Params) float64 {
	w := p.Weights[r.indicator]
	if r.name == RuleMACDPosition {
		return w * p.MACDPositionFactor
	}
	return w
}

// rules is evaluated in order. Most rules feed both horizons with the same
// points; only the two DEMA crosses are horizon specific.
var rules = []rule{
	{RuleDEMAShort, model.IndicatorDEMA, model.Short, scoreDEMAShort},
	{RuleDEMAMid, model.IndicatorDEMA, model.MidLong, scoreDEMAMid},
	{RuleMACDCross, model.IndicatorMACD, model.BothHorizons, scoreMACDCross},
	{RuleMACDPosition, model.IndicatorMACD, model.BothHorizons, scoreMACDPosition},
	{RuleAroonCross, model.IndicatorAroon, model.BothHorizons, scoreAroon},
	{RuleVolumeOsc, model.IndicatorVolumeOsc, model.BothHorizons, scoreVolumeOsc},
	{RuleStochRSI, model.IndicatorStochRSI, model.BothHorizons, scoreStochRSI},
	{RuleElderRay, model.IndicatorElderRay, model.BothHorizons, scoreElderRay},
	{RuleForceIndex, model.IndicatorForceIndex, model.BothHorizons, scoreForceIndex},
	{RuleRVI, model.IndicatorRVI, model.BothHorizons, scoreRVI},
	{RuleSMICross, model.IndicatorSMI, model.BothHorizons, scoreSMI},
}

func crossLevel(a, b []float64, up, down string) (model.SignalLevel, string) {
	switch {
	case crossedAbove(a, b):
		return model.Buy, up
	case crossedBelow(a, b):
		return model.Sell, down
	}
	return model.Neutral, ""
}

func scoreDEMAShort(s *model.Snapshot, _ *Params) (model.SignalLevel, string) {
	return crossLevel(s.DEMA5, s.DEMA20, "DEMA5 상향 돌파 DEMA20", "DEMA5 하향 돌파 DEMA20")
}

func scoreDEMAMid(s *model.Snapshot, _ *Params) (model.SignalLevel, string) {
	return crossLevel(s.DEMA20, s.DEMA120,
		fmt.Sprintf("DEMA20 상향 돌파 DEMA%d", s.LongPeriod),
		fmt.Sprintf("DEMA20 하향 돌파 DEMA%d", s.LongPeriod))
}

func scoreMACDCross(s *model.Snapshot, _ *Params) (model.SignalLevel, string) {
	line, sig := s.MACD.Line, s.MACD.Signal
	switch {
	case crossedAbove(line, sig):
		if line[len(line)-1] < 0 {
			return model.StrongBuy, "MACD 0선 아래 골든크로스"
		}
		return model.Buy, "MACD 골든크로스"
	case crossedBelow(line, sig):
		if line[len(line)-1] > 0 {
			return model.StrongSell, "MACD 0선 위 데드크로스"
		}
		return model.Sell, "MACD 데드크로스"
	}
	return model.Neutral, ""
}

func scoreMACDPosition(s *model.Snapshot, _ *Params) (model.SignalLevel, string) {
	line, sig := s.MACD.Line, s.MACD.Signal
	if len(line) == 0 || len(sig) == 0 {
		return model.Neutral, ""
	}
	m, g := line[len(line)-1], sig[len(sig)-1]
	switch {
	case greater(m, g):
		return model.WeakBuy, "MACD > Signal"
	case less(m, g):
		return model.WeakSell, "MACD < Signal"
	}
	// Lines equal within tolerance carry no position signal.
	return model.Neutral, ""
}

func scoreAroon(s *model.Snapshot, _ *Params) (model.SignalLevel, string) {
	return crossLevel(s.Aroon.Up, s.Aroon.Down, "Aroon Up 상향 돌파", "Aroon Down 상향 돌파")
}

func scoreVolumeOsc(s *model.Snapshot, p *Params) (model.SignalLevel, string) {
	vo := s.VolumeOsc
	price := TrendDirection(s.Closes, p.TrendWindow)
	switch {
	case crossedAboveLevel(vo, 0):
		if price == Falling {
			return model.StrongBuy, "거래량 오실레이터 0선 상향, 가격 하락 다이버전스"
		}
		return model.Buy, "거래량 오실레이터 0선 상향"
	case crossedBelowLevel(vo, 0):
		if price == Rising {
			return model.StrongSell, "거래량 오실레이터 0선 하향, 가격 상승 다이버전스"
		}
		return model.Sell, "거래량 오실레이터 0선 하향"
	}
	return model.Neutral, ""
}

func scoreStochRSI(s *model.Snapshot, p *Params) (model.SignalLevel, string) {
	st := s.StochRSI
	n := len(st)
	if n < 6 {
		return model.Neutral, ""
	}
	// Fires when the 5-bar average itself leaves the band, not on a single
	// bar poking out of it.
	avg := calculator.Mean(st[n-5:])
	prev := calculator.Mean(st[n-6 : n-1])
	switch {
	case prev <= p.StochLow && avg > p.StochLow:
		return model.Buy, fmt.Sprintf("StochRSI 5일 평균 %.1f, 과매도 이탈", avg)
	case prev >= p.StochHigh && avg < p.StochHigh:
		return model.Sell, fmt.Sprintf("StochRSI 5일 평균 %.1f, 과매수 이탈", avg)
	}
	return model.Neutral, ""
}

func scoreElderRay(s *model.Snapshot, p *Params) (model.SignalLevel, string) {
	ema := s.ElderRay.EMA13
	n := len(ema)
	if n < 2 || len(s.ElderRay.Bull) < n || len(s.ElderRay.Bear) < n {
		return model.Neutral, ""
	}
	// Only the span where the EMA is defined carries meaningful power values.
	bull := s.ElderRay.Bull[len(s.ElderRay.Bull)-n:]
	bear := s.ElderRay.Bear[len(s.ElderRay.Bear)-n:]
	price := TrendDirection(s.Closes, p.TrendWindow)
	lb := p.ElderLookback

	switch {
	case greater(ema[n-1], ema[n-2]) && bear[n-1] < 0 && greater(bear[n-1], bear[n-2]):
		if lb > 0 && n > lb &&
			bull[n-1] > calculator.Highest(bull[n-1-lb:n-1]) &&
			Opposes(price, TrendDirection(bear, p.TrendWindow)) {
			return model.StrongBuy, "Bull Power 신고점, 베어 다이버전스"
		}
		return model.Buy, "EMA13 상승, Bear Power 회복"
	case less(ema[n-1], ema[n-2]) && bull[n-1] > 0 && less(bull[n-1], bull[n-2]):
		if lb > 0 && n > lb &&
			bear[n-1] < calculator.Lowest(bear[n-1-lb:n-1]) &&
			Opposes(price, TrendDirection(bull, p.TrendWindow)) {
			return model.StrongSell, "Bear Power 신저점, 불 다이버전스"
		}
		return model.Sell, "EMA13 하락, Bull Power 약화"
	}
	return model.Neutral, ""
}

func scoreForceIndex(s *model.Snapshot, p *Params) (model.SignalLevel, string) {
	fi := s.ForceIndex
	n := len(fi)
	if n < 2 || fi[n-2] == 0 {
		return model.Neutral, ""
	}
	change := (fi[n-1] - fi[n-2]) / math.Abs(fi[n-2])
	price := TrendDirection(s.Closes, p.TrendWindow)
	switch {
	case price == Falling && change >= p.ForceChange:
		return model.Buy, fmt.Sprintf("가격 하락 중 Force Index %+.0f%%", change*100)
	case price == Rising && change <= -p.ForceChange:
		return model.Sell, fmt.Sprintf("가격 상승 중 Force Index %+.0f%%", change*100)
	}
	return model.Neutral, ""
}

func scoreRVI(s *model.Snapshot, p *Params) (model.SignalLevel, string) {
	if len(s.RVI) == 0 {
		return model.Neutral, ""
	}
	rvi := s.RVI[len(s.RVI)-1]
	switch {
	case rvi > p.RVIMid && crossedAbove(s.SMA5, s.SMA20):
		if rvi >= p.RVIStrongBuy {
			return model.StrongBuy, fmt.Sprintf("RVI %.1f, 5일선 골든크로스", rvi)
		}
		return model.Buy, fmt.Sprintf("RVI %.1f, 5일선 골든크로스", rvi)
	case rvi < p.RVIMid && crossedBelow(s.SMA5, s.SMA20):
		if rvi <= p.RVIStrongSell {
			return model.StrongSell, fmt.Sprintf("RVI %.1f, 5일선 데드크로스", rvi)
		}
		return model.Sell, fmt.Sprintf("RVI %.1f, 5일선 데드크로스", rvi)
	}
	return model.Neutral, ""
}

func scoreSMI(s *model.Snapshot, _ *Params) (model.SignalLevel, string) {
	return crossLevel(s.SMI, s.SMISignal, "SMI 시그널 상향 돌파", "SMI 시그널 하향 돌파")
}
