// Package screener runs the collector over a watchlist and ranks the results.
package screener

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BuyBio/BuyBio/internal/analyzer"
	"github.com/BuyBio/BuyBio/internal/collector"
	"github.com/BuyBio/BuyBio/internal/metrics"
	"github.com/BuyBio/BuyBio/internal/model"
)

// MaxSections is the number of keyword sections a report can carry.
const MaxSections = 3

// ErrEmptyWatchlist is returned by Run when there is nothing to screen.
var ErrEmptyWatchlist = errors.New("empty watchlist")

// Collector produces one candidate per instrument.
type Collector interface {
	Collect(ctx context.Context, inst model.Instrument) (*model.Candidate, error)
}

// Failure records an instrument that did not produce a candidate.
type Failure struct {
	Instrument model.Instrument `json:"instrument"`
	Reason     string           `json:"reason"`
}

// Report is the outcome of one screening run. Candidates are sorted by total
// score, highest first.
type Report struct {
	ID         string            `json:"id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Candidates []model.Candidate `json:"candidates"`
	// Skipped instruments had too little or no history.
	Skipped []Failure `json:"skipped,omitempty"`
	Failed  []Failure `json:"failed,omitempty"`
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Screener fans a watchlist out over a bounded worker pool.
type Screener struct {
	collector Collector
	workers   int
	Metrics   *metrics.Metrics

	mu     sync.RWMutex
	latest *Report

	now func() time.Time
}

// New creates a Screener running at most workers collections concurrently.
func New(c Collector, workers int) *Screener {
	if workers < 1 {
		workers = 1
	}
	return &Screener{collector: c, workers: workers, now: time.Now}
}

type outcome struct {
	inst model.Instrument
	cand *model.Candidate
	err  error
}

// Run collects every instrument of the watchlist. Per-instrument errors are
// recorded in the report and never abort the run; a cancelled context does.
func (s *Screener) Run(ctx context.Context, watchlist []model.Instrument) (*Report, error) {
	if len(watchlist) == 0 {
		return nil, ErrEmptyWatchlist
	}
	report := &Report{ID: uuid.New().String(), StartedAt: s.now()}
	log.Printf("[INFO] screening run %s: %d instruments, %d workers", report.ID, len(watchlist), s.workers)

	jobs := make(chan model.Instrument)
	results := make(chan outcome)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for inst := range jobs {
				cand, err := s.collector.Collect(ctx, inst)
				results <- outcome{inst: inst, cand: cand, err: err}
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, inst := range watchlist {
			select {
			case jobs <- inst:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	for o := range results {
		switch {
		case o.err == nil:
			report.Candidates = append(report.Candidates, *o.cand)
			s.Metrics.SymbolOutcome(metrics.OutcomeScored)
		case errors.Is(o.err, analyzer.ErrInsufficientData) || errors.Is(o.err, collector.ErrNoData):
			report.Skipped = append(report.Skipped, Failure{Instrument: o.inst, Reason: o.err.Error()})
			s.Metrics.SymbolOutcome(metrics.OutcomeSkipped)
		default:
			log.Printf("[WARN] screening %s failed: %v", o.inst.Label(), o.err)
			report.Failed = append(report.Failed, Failure{Instrument: o.inst, Reason: o.err.Error()})
			s.Metrics.SymbolOutcome(metrics.OutcomeFailed)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("screening run %s: %w", report.ID, err)
	}

	sortCandidates(report.Candidates)
	sortFailures(report.Skipped)
	sortFailures(report.Failed)
	report.FinishedAt = s.now()
	s.Metrics.ObserveScreen(report.Duration())

	s.mu.Lock()
	s.latest = report
	s.mu.Unlock()

	log.Printf("[INFO] screening run %s done in %s: %d scored, %d skipped, %d failed",
		report.ID, report.Duration().Round(time.Millisecond), len(report.Candidates), len(report.Skipped), len(report.Failed))
	return report, nil
}

// Latest returns the most recent completed report, or nil.
func (s *Screener) Latest() *Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// sortCandidates orders by total score descending, then by code.
func sortCandidates(cands []model.Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i].Result.TotalScore, cands[j].Result.TotalScore
		if a != b {
			return a > b
		}
		return cands[i].Code < cands[j].Code
	})
}

func sortFailures(f []Failure) {
	sort.Slice(f, func(i, j int) bool { return f[i].Instrument.Code < f[j].Instrument.Code })
}

// Rank returns the k best candidates by total score. With buyOnly only BUY
// recommendations are considered. The input is not modified.
func Rank(cands []model.Candidate, k int, buyOnly bool) []model.Candidate {
	out := make([]model.Candidate, 0, len(cands))
	for _, c := range cands {
		if buyOnly && c.Result.Recommendation != model.RecommendBuy {
			continue
		}
		out = append(out, c)
	}
	sortCandidates(out)
	if k >= 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// Options controls how a report is cut down for display.
type Options struct {
	TopK        int
	SectionK    int
	IncludeSell bool
	Keywords    []string
}

// Top returns the best TopK candidates of a report, or k when k > 0.
func (o Options) Top(report *Report, k int) []model.Candidate {
	if k <= 0 {
		k = o.TopK
	}
	return Rank(report.Candidates, k, !o.IncludeSell)
}

// Sections returns the keyword sections of a report. Non-empty keywords
// replace the configured ones.
func (o Options) Sections(report *Report, keywords []string) []Section {
	if len(keywords) == 0 {
		keywords = o.Keywords
	}
	return Sections(report.Candidates, keywords, o.SectionK)
}

// Section is the top of one keyword group.
type Section struct {
	Keyword    string            `json:"keyword"`
	Candidates []model.Candidate `json:"candidates"`
}

// Sections groups candidates by keyword and keeps the k best of each. Only
// the first MaxSections distinct keywords are used.
func Sections(cands []model.Candidate, keywords []string, k int) []Section {
	var sections []Section
	seen := make(map[string]bool)
	for _, kw := range keywords {
		if kw == "" || seen[kw] {
			continue
		}
		if len(sections) == MaxSections {
			break
		}
		seen[kw] = true

		var group []model.Candidate
		for _, c := range cands {
			if c.HasKeyword(kw) {
				group = append(group, c)
			}
		}
		sections = append(sections, Section{Keyword: kw, Candidates: Rank(group, k, false)})
	}
	return sections
}
