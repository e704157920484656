package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/BuyBio/BuyBio/internal/model"
	"github.com/BuyBio/BuyBio/internal/recorder"
	"github.com/BuyBio/BuyBio/internal/screener"
)

type stubCollector struct {
	totals  map[string]float64
	entered chan struct{}
	release chan struct{}
}

func (c *stubCollector) Collect(_ context.Context, inst model.Instrument) (*model.Candidate, error) {
	if c.entered != nil {
		c.entered <- struct{}{}
		<-c.release
	}
	total, ok := c.totals[inst.Code]
	if !ok {
		return nil, errors.New("no quote")
	}
	rec := model.RecommendSell
	if total > 0 {
		rec = model.RecommendBuy
	}
	return &model.Candidate{
		Instrument: inst,
		Price:      1000,
		Result:     model.ScoreResult{TotalScore: total, Recommendation: rec},
	}, nil
}

type captureNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *captureNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, text)
	return nil
}

type captureRecorder struct {
	runs []*screener.Report
}

func (r *captureRecorder) RecordRun(report *screener.Report) error {
	r.runs = append(r.runs, report)
	return nil
}
func (r *captureRecorder) History(string, int) ([]recorder.ScoreRecord, error) { return nil, nil }
func (r *captureRecorder) Close() error                                        { return nil }

func newTestScheduler(col *stubCollector) (*Scheduler, *captureNotifier, *captureRecorder) {
	watchlist := []model.Instrument{
		{Code: "005930", Name: "삼성전자", Keywords: []string{"반도체"}},
		{Code: "068270", Name: "셀트리온", Keywords: []string{"바이오"}},
		{Code: "000660", Name: "SK하이닉스", Keywords: []string{"반도체"}},
	}
	n := &captureNotifier{}
	rec := &captureRecorder{}
	s := NewScheduler(context.Background(), screener.New(col, 2), col, n, rec, watchlist, screener.Options{
		TopK:     2,
		SectionK: 1,
		Keywords: []string{"반도체", "바이오"},
	})
	return s, n, rec
}

func TestRunNow(t *testing.T) {
	s, n, rec := newTestScheduler(&stubCollector{totals: map[string]float64{"005930": 12, "068270": -4, "000660": 20}})

	report, err := s.RunNow()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(report.Candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(report.Candidates))
	}
	if len(rec.runs) != 1 || rec.runs[0] != report {
		t.Error("report was not recorded")
	}
	if len(n.msgs) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(n.msgs))
	}
	msg := n.msgs[0]
	if !strings.Contains(msg, "1. <b>SK하이닉스(000660)</b>") || !strings.Contains(msg, "2. <b>삼성전자(005930)</b>") {
		t.Errorf("top picks missing:\n%s", msg)
	}
	if strings.Contains(msg, "3. ") {
		t.Errorf("top list should be capped at 2:\n%s", msg)
	}
	if !strings.Contains(msg, "#바이오</b>\n1. <b>셀트리온(068270)</b>") {
		t.Errorf("keyword section should include sell-rated members:\n%s", msg)
	}
}

func TestRunNow_Exclusive(t *testing.T) {
	col := &stubCollector{
		totals:  map[string]float64{"005930": 1, "068270": 1, "000660": 1},
		entered: make(chan struct{}, 3),
		release: make(chan struct{}),
	}
	s, _, _ := newTestScheduler(col)

	done := make(chan error, 1)
	go func() {
		_, err := s.RunNow()
		done <- err
	}()
	<-col.entered

	if _, err := s.RunNow(); !errors.Is(err, ErrRunning) {
		t.Errorf("expected ErrRunning, got %v", err)
	}
	if reply := s.HandleCommand("/screen"); !strings.Contains(reply, "진행 중") {
		t.Errorf("expected busy reply, got %q", reply)
	}
	close(col.release)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
}

func TestHandleCommand(t *testing.T) {
	s, _, _ := newTestScheduler(&stubCollector{totals: map[string]float64{"005930": 12, "068270": -4, "000660": 20}})

	if reply := s.HandleCommand("/top"); !strings.Contains(reply, "/screen") {
		t.Errorf("expected no-result hint before the first run, got %q", reply)
	}
	if _, err := s.RunNow(); err != nil {
		t.Fatalf("run: %v", err)
	}

	tests := []struct {
		cmd  string
		want string
		not  string
	}{
		{"/top 1", "1. <b>SK하이닉스(000660)</b>", "삼성전자(005930)</b> 1,000원"},
		{"/top@BuyBioBot", "2. <b>삼성전자(005930)</b>", ""},
		{"/top x", "사용법: /top", ""},
		{"/analyze 005930", "🔍 <b>삼성전자(005930)</b>", ""},
		{"/analyze 123456", "❌ 123456 분석 실패", ""},
		{"/analyze", "사용법: /analyze", ""},
		{"/help", "/analyze 종목코드", ""},
		{"hello", "BuyBio 명령어", ""},
		{"", "BuyBio 명령어", ""},
	}
	for _, tt := range tests {
		reply := s.HandleCommand(tt.cmd)
		if !strings.Contains(reply, tt.want) {
			t.Errorf("%q: expected %q in reply:\n%s", tt.cmd, tt.want, reply)
		}
		if tt.not != "" && strings.Contains(reply, tt.not) {
			t.Errorf("%q: unexpected %q in reply:\n%s", tt.cmd, tt.not, reply)
		}
	}
}

func TestRegister(t *testing.T) {
	s, _, _ := newTestScheduler(&stubCollector{})
	if err := s.Register("0 40 15 * * 1-5"); err != nil {
		t.Errorf("valid spec rejected: %v", err)
	}
	if err := s.Register("every day"); err == nil {
		t.Error("expected error for invalid spec")
	}
	if len(s.Cron.Entries()) != 1 {
		t.Errorf("expected 1 entry, got %d", len(s.Cron.Entries()))
	}
}
