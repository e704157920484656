// Package metrics exposes Prometheus instrumentation for screening, fetching
// and the HTTP API. Every method is safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Symbol outcomes recorded by SymbolOutcome.
const (
	OutcomeScored  = "scored"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Metrics holds all Prometheus collectors of the screener.
type Metrics struct {
	ScreenRuns      prometheus.Counter
	ScreenDuration  prometheus.Histogram
	SymbolOutcomes  *prometheus.CounterVec // labels: outcome
	FetchDuration   *prometheus.HistogramVec
	FetchErrors     *prometheus.CounterVec // labels: source
	AnalyzeDuration prometheus.Histogram
	CacheRequests   *prometheus.CounterVec // labels: source, result=hit|miss|error
	TotalScore      *prometheus.GaugeVec   // labels: code
	HTTPRequests    *prometheus.CounterVec // labels: route, status

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. A nil registry
// gets a fresh one.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		ScreenRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "buybio_screen_runs_total",
			Help: "Total screening runs",
		}),
		ScreenDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "buybio_screen_duration_seconds",
			Help:    "Wall time of a full watchlist screening",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		}),
		SymbolOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "buybio_symbols_total",
			Help: "Screened symbols by outcome",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "buybio_fetch_duration_seconds",
			Help:    "Daily bar fetch latency per source",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "buybio_fetch_errors_total",
			Help: "Failed daily bar fetches per source",
		}, []string{"source"}),
		AnalyzeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "buybio_analyze_duration_seconds",
			Help:    "Indicator computation and scoring time per symbol",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05},
		}),
		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "buybio_bar_cache_requests_total",
			Help: "Bar cache lookups by result",
		}, []string{"source", "result"}),
		TotalScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "buybio_total_score",
			Help: "Latest total score per symbol",
		}, []string{"code"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "buybio_http_requests_total",
			Help: "API requests by route and status",
		}, []string{"route", "status"}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.ScreenRuns,
		m.ScreenDuration,
		m.SymbolOutcomes,
		m.FetchDuration,
		m.FetchErrors,
		m.AnalyzeDuration,
		m.CacheRequests,
		m.TotalScore,
		m.HTTPRequests,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveScreen(d time.Duration) {
	if m == nil {
		return
	}
	m.ScreenRuns.Inc()
	m.ScreenDuration.Observe(d.Seconds())
}

func (m *Metrics) SymbolOutcome(outcome string) {
	if m == nil {
		return
	}
	m.SymbolOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveFetch(source string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(source).Observe(d.Seconds())
	if err != nil {
		m.FetchErrors.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) ObserveAnalyze(d time.Duration) {
	if m == nil {
		return
	}
	m.AnalyzeDuration.Observe(d.Seconds())
}

// CacheResult counts a bar cache lookup; result is hit, miss or error.
func (m *Metrics) CacheResult(source, result string) {
	if m == nil {
		return
	}
	m.CacheRequests.WithLabelValues(source, result).Inc()
}

func (m *Metrics) SetScore(code string, total float64) {
	if m == nil {
		return
	}
	m.TotalScore.WithLabelValues(code).Set(total)
}

func (m *Metrics) HTTPRequest(route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, http.StatusText(status)).Inc()
}
