package collector

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/BuyBio/BuyBio/internal/analyzer"
	"github.com/BuyBio/BuyBio/internal/model"
)

var testEnd = time.Date(2024, 6, 28, 0, 0, 0, 0, kst)

func TestMockFetcher_Deterministic(t *testing.T) {
	m := &MockFetcher{Price: 50000, End: testEnd}
	a, err := m.FetchDailyBars(context.Background(), "005930", 120)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	b, _ := m.FetchDailyBars(context.Background(), "005930", 120)
	if !reflect.DeepEqual(a, b) {
		t.Error("mock bars differ between calls")
	}
	if len(a) != 120 || !a[119].Date.Equal(testEnd) {
		t.Fatalf("expected 120 bars ending %s, got %d ending %s", testEnd, len(a), a[len(a)-1].Date)
	}
	for i, bar := range a {
		if wd := bar.Date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Fatalf("bar %d falls on a weekend: %s", i, bar.Date)
		}
		if bar.High < bar.Close || bar.Low > bar.Open || bar.Volume <= 0 {
			t.Fatalf("bar %d is malformed: %+v", i, bar)
		}
	}
	other, _ := m.FetchDailyBars(context.Background(), "000660", 120)
	if other[119].Close == a[119].Close {
		t.Error("different codes should produce different series")
	}
}

func TestCollector_Collect(t *testing.T) {
	c := NewCollector(&MockFetcher{Price: 70000, End: testEnd}, nil, nil, 250)
	fixed := time.Date(2024, 6, 28, 16, 0, 0, 0, kst)
	c.now = func() time.Time { return fixed }

	inst := model.Instrument{Code: "005930", Name: "삼성전자", Keywords: []string{"반도체"}}
	cand, err := c.Collect(context.Background(), inst)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if cand.Code != "005930" || cand.Name != "삼성전자" {
		t.Errorf("instrument not carried: %+v", cand.Instrument)
	}
	if cand.Bars != 250 || !cand.LastDate.Equal(testEnd) || !cand.AnalyzedAt.Equal(fixed) {
		t.Errorf("unexpected bookkeeping: bars=%d last=%s analyzed=%s", cand.Bars, cand.LastDate, cand.AnalyzedAt)
	}
	if cand.Price != cand.Indicators.Close {
		t.Errorf("price %.2f should equal last close %.2f", cand.Price, cand.Indicators.Close)
	}
	prev := cand.Price - cand.Change
	if want := cand.Change / prev * 100; math.Abs(cand.ChangeRate-want) > 0.006 {
		t.Errorf("expected change rate %.2f, got %.2f", want, cand.ChangeRate)
	}
	if len(cand.Result.Factors) == 0 {
		t.Error("expected scored factors")
	}
	if cand.Indicators.LongPeriod != 120 {
		t.Errorf("250 bars should use the 120 long period, got %d", cand.Indicators.LongPeriod)
	}
}

func TestCollector_Errors(t *testing.T) {
	boom := errors.New("upstream down")
	m := &MockFetcher{
		End:  testEnd,
		Errs: map[string]error{"000001": boom},
	}

	c := NewCollector(m, nil, nil, 30)
	if _, err := c.Collect(context.Background(), model.Instrument{Code: "005930"}); !errors.Is(err, analyzer.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData for 30 bars, got %v", err)
	}

	c.Days = 100
	if _, err := c.Collect(context.Background(), model.Instrument{Code: "000001"}); !errors.Is(err, boom) {
		t.Errorf("expected fetch error to be wrapped, got %v", err)
	}
}
