package strategy

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/BuyBio/BuyBio/internal/analyzer"
	"github.com/BuyBio/BuyBio/internal/model"
)

func makeBars(closes []float64, spread float64) []model.Bar {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c + spread,
			Low:    c - spread,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

// quadCloses returns base + accel*i^2. A purely linear trend leaves the
// DEMA pairs and MACD/Signal tied, so the trend tests need curvature.
func quadCloses(n int, base, accel float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		x := float64(i)
		out[i] = base + accel*x*x
	}
	return out
}

func analyzeAndScore(t *testing.T, bars []model.Bar) (*model.Snapshot, model.ScoreResult) {
	t.Helper()
	snap, err := analyzer.Analyze(bars)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	return snap, Score(snap)
}

func lastOf(v []float64) float64 { return v[len(v)-1] }

func TestScore_RisingTrend(t *testing.T) {
	snap, res := analyzeAndScore(t, makeBars(quadCloses(60, 100, 0.02), 1))

	if lastOf(snap.DEMA5) <= lastOf(snap.DEMA20) {
		t.Errorf("expected DEMA5 > DEMA20, got %.4f <= %.4f", lastOf(snap.DEMA5), lastOf(snap.DEMA20))
	}
	if lastOf(snap.MACD.Line) <= lastOf(snap.MACD.Signal) {
		t.Errorf("expected MACD > Signal, got %.4f <= %.4f", lastOf(snap.MACD.Line), lastOf(snap.MACD.Signal))
	}
	if res.TotalScore <= 0 {
		t.Errorf("expected positive total, got %.2f", res.TotalScore)
	}
	if res.Recommendation != model.RecommendBuy {
		t.Errorf("expected BUY, got %s", res.Recommendation)
	}
	if f, _ := res.Factor(RuleMACDPosition); f.Level != model.WeakBuy {
		t.Errorf("expected MACD position WEAK_BUY, got %s", f.Level)
	}
}

func TestScore_FallingTrend(t *testing.T) {
	_, res := analyzeAndScore(t, makeBars(quadCloses(60, 160, -0.02), 1))
	if res.Recommendation != model.RecommendSell {
		t.Errorf("expected SELL, got %s (total=%.2f)", res.Recommendation, res.TotalScore)
	}
	if res.TotalScore >= 0 {
		t.Errorf("expected negative total, got %.2f", res.TotalScore)
	}
}

func TestScore_FlatSeries(t *testing.T) {
	closes := make([]float64, analyzer.DefaultMinBars)
	for i := range closes {
		closes[i] = 100
	}
	snap, res := analyzeAndScore(t, makeBars(closes, 0))
	if snap == nil {
		t.Fatal("expected a snapshot for exactly MinBars bars")
	}
	for _, f := range res.Factors {
		if f.Level != model.Neutral {
			t.Errorf("rule %s: expected NEUTRAL, got %s", f.Rule, f.Level)
		}
	}
	if res.TotalScore != 0 {
		t.Errorf("expected zero total, got %.2f", res.TotalScore)
	}
	if res.Recommendation != model.RecommendSell {
		t.Errorf("zero total must resolve to SELL, got %s", res.Recommendation)
	}
}

// A decline followed by a rebound produces exactly one MACD golden cross.
func TestScore_MACDCrossDetectedOnce(t *testing.T) {
	var closes []float64
	for i := 0; i < 70; i++ {
		closes = append(closes, 200-float64(i))
	}
	for i := 0; i < 20; i++ {
		closes = append(closes, 131+1.5*float64(i))
	}
	bars := makeBars(closes, 1)

	crosses := 0
	for k := analyzer.DefaultMinBars; k <= len(bars); k++ {
		_, res := analyzeAndScore(t, bars[:k])
		f, ok := res.Factor(RuleMACDCross)
		if !ok {
			t.Fatal("macd_cross factor missing")
		}
		switch f.Level {
		case model.Neutral:
		case model.StrongBuy, model.Buy:
			crosses++
			if k != 71 {
				t.Errorf("unexpected golden cross at bar %d", k-1)
			}
			if f.Level != model.StrongBuy {
				t.Errorf("cross below zero should be STRONG_BUY, got %s", f.Level)
			}
		default:
			t.Errorf("bar %d: unexpected MACD level %s", k-1, f.Level)
		}
	}
	if crosses != 1 {
		t.Errorf("expected exactly one cross, got %d", crosses)
	}
}

func TestScore_RoundingAndRecommendation(t *testing.T) {
	for _, n := range []int{50, 64, 90, 130, 260} {
		closes := make([]float64, n)
		for i := range closes {
			x := float64(i)
			closes[i] = 100 + 10*math.Sin(x*0.3) + 4*math.Cos(x*0.11) + 0.05*x
		}
		_, res := analyzeAndScore(t, makeBars(closes, 1.5))

		want := math.Round((res.ShortScore+res.MidLongScore)*100) / 100
		if math.Abs(res.TotalScore-want) > 1e-9 {
			t.Errorf("n=%d: total %.4f != round(short+mid) %.4f", n, res.TotalScore, want)
		}
		for _, v := range []float64{res.ShortScore, res.MidLongScore} {
			if math.Abs(v*100-math.Round(v*100)) > 1e-6 {
				t.Errorf("n=%d: %.6f is not rounded to 2 decimals", n, v)
			}
		}
		if (res.TotalScore > 0) != (res.Recommendation == model.RecommendBuy) {
			t.Errorf("n=%d: total %.2f with recommendation %s", n, res.TotalScore, res.Recommendation)
		}
	}
}

func TestScore_Deterministic(t *testing.T) {
	closes := make([]float64, 150)
	for i := range closes {
		closes[i] = 50 + 5*math.Sin(float64(i)*0.21)
	}
	bars := makeBars(closes, 0.8)
	_, a := analyzeAndScore(t, bars)
	_, b := analyzeAndScore(t, bars)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("scores differ between identical runs:\n%+v\n%+v", a, b)
	}
}

func TestScore_NilAndEmptySnapshot(t *testing.T) {
	if res := Score(nil); res.TotalScore != 0 || res.Recommendation != model.RecommendSell {
		t.Errorf("nil snapshot: got %+v", res)
	}
	res := Score(&model.Snapshot{})
	if len(res.Factors) != len(rules) {
		t.Fatalf("expected %d factors, got %d", len(rules), len(res.Factors))
	}
	for _, f := range res.Factors {
		if f.Level != model.Neutral {
			t.Errorf("rule %s on empty snapshot: got %s", f.Rule, f.Level)
		}
	}
}

func TestScore_Horizons(t *testing.T) {
	snap := &model.Snapshot{
		DEMA5:  []float64{9, 11},
		DEMA20: []float64{10, 10},
	}
	res := Score(snap)
	if res.ShortScore != 20 || res.MidLongScore != 0 {
		t.Errorf("DEMA short cross should only feed the short horizon, got short=%.2f mid=%.2f",
			res.ShortScore, res.MidLongScore)
	}

	snap = &model.Snapshot{
		DEMA20:     []float64{9, 11},
		DEMA120:    []float64{10, 10},
		LongPeriod: 120,
	}
	res = Score(snap)
	if res.ShortScore != 0 || res.MidLongScore != 20 {
		t.Errorf("DEMA mid cross should only feed the mid/long horizon, got short=%.2f mid=%.2f",
			res.ShortScore, res.MidLongScore)
	}

	snap = &model.Snapshot{Aroon: model.AroonSeries{Up: []float64{20, 80}, Down: []float64{60, 40}}}
	res = Score(snap)
	if res.ShortScore != 15 || res.MidLongScore != 15 || res.TotalScore != 30 {
		t.Errorf("aroon cross should feed both horizons, got %+v", res)
	}
}

func TestWithWeights(t *testing.T) {
	p := DefaultParams().WithWeights(map[string]float64{"MACD": 10, "UNKNOWN": 3, "SMI": -1})
	if p.Weights[model.IndicatorMACD] != 10 {
		t.Errorf("MACD weight not overridden: %.1f", p.Weights[model.IndicatorMACD])
	}
	if p.Weights[model.IndicatorSMI] != 3 {
		t.Errorf("non-positive override should be ignored, got %.1f", p.Weights[model.IndicatorSMI])
	}
	if _, ok := p.Weights["UNKNOWN"]; ok {
		t.Error("unknown indicator should not be added")
	}
	if DefaultWeights()[model.IndicatorMACD] != 7 {
		t.Error("defaults must not be mutated")
	}
}
