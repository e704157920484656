package collector

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"github.com/BuyBio/BuyBio/internal/analyzer"
	"github.com/BuyBio/BuyBio/internal/metrics"
	"github.com/BuyBio/BuyBio/internal/model"
	"github.com/BuyBio/BuyBio/internal/strategy"
)

// MockFetcher returns controllable fixed data for development and testing.
// Codes without Data get a deterministic synthetic series.
type MockFetcher struct {
	Price float64
	Data  map[string][]model.Bar
	Errs  map[string]error
	// End is the date of the last synthetic bar; zero means today.
	End time.Time
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, code string, days int) ([]model.Bar, error) {
	if err, ok := m.Errs[code]; ok {
		return nil, err
	}
	if bars, ok := m.Data[code]; ok {
		return normalize(append([]model.Bar(nil), bars...), days), nil
	}
	end := m.End
	if end.IsZero() {
		end = time.Now()
	}
	price := m.Price
	if price <= 0 {
		price = 10000
	}
	return generateMockBars(code, price, days, dayOf(end)), nil
}

// generateMockBars builds count weekday bars ending at end. The code seeds the
// phase of the wave so different symbols score differently.
func generateMockBars(code string, basePrice float64, count int, end time.Time) []model.Bar {
	h := fnv.New32a()
	h.Write([]byte(code))
	phase := float64(h.Sum32()%628) / 100

	dates := make([]time.Time, 0, count)
	for d := end; len(dates) < count; d = d.AddDate(0, 0, -1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		dates = append(dates, d)
	}

	bars := make([]model.Bar, count)
	for i := 0; i < count; i++ {
		x := float64(i)
		p := basePrice * (1 + 0.08*math.Sin(x/9+phase) + 0.03*math.Sin(x/3.7+2*phase))
		bars[i] = model.Bar{
			Date:   dates[count-1-i],
			Open:   p * 0.998,
			High:   p * 1.01,
			Low:    p * 0.99,
			Close:  p,
			Volume: int64(100000 * (1.5 + math.Sin(x/5+phase))),
		}
	}
	return bars
}

// Collector fetches, analyses and scores one instrument at a time.
type Collector struct {
	Fetcher  Fetcher
	Analyzer *analyzer.Analyzer
	Scorer   *strategy.Scorer
	Days     int
	Metrics  *metrics.Metrics

	now func() time.Time
}

// NewCollector creates a new Collector. Nil analyzer or scorer use defaults.
func NewCollector(fetcher Fetcher, an *analyzer.Analyzer, sc *strategy.Scorer, days int) *Collector {
	if an == nil {
		an = analyzer.New(analyzer.DefaultOptions())
	}
	if sc == nil {
		sc = strategy.NewScorer(strategy.DefaultParams())
	}
	return &Collector{Fetcher: fetcher, Analyzer: an, Scorer: sc, Days: days, now: time.Now}
}

func (c *Collector) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

// Collect fetches daily bars for inst and computes its candidate record.
// Analysis errors wrap analyzer.ErrInsufficientData / ErrMalformedBar.
func (c *Collector) Collect(ctx context.Context, inst model.Instrument) (*model.Candidate, error) {
	start := time.Now()
	bars, err := c.Fetcher.FetchDailyBars(ctx, inst.Code, c.Days)
	c.Metrics.ObserveFetch(c.Fetcher.Name(), time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("fetch daily bars %s: %w", inst.Code, err)
	}

	start = time.Now()
	snap, err := c.Analyzer.Analyze(bars)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", inst.Code, err)
	}
	result := c.Scorer.Score(snap)
	c.Metrics.ObserveAnalyze(time.Since(start))
	c.Metrics.SetScore(inst.Code, result.TotalScore)

	closes := snap.Closes
	price := closes[len(closes)-1]
	prev := price
	if len(closes) > 1 {
		prev = closes[len(closes)-2]
	}
	cand := &model.Candidate{
		Instrument: inst,
		Price:      price,
		Change:     price - prev,
		Bars:       snap.Bars,
		LastDate:   snap.LastDate,
		AnalyzedAt: c.clock(),
		Result:     result,
		Indicators: snap.Latest(),
	}
	if prev > 0 {
		cand.ChangeRate = math.Round((price-prev)/prev*10000) / 100
	}
	return cand, nil
}
