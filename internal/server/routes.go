package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BuyBio/BuyBio/internal/analyzer"
	"github.com/BuyBio/BuyBio/internal/model"
	"github.com/BuyBio/BuyBio/internal/screener"
)

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	s.handle(mux, "GET /healthz", s.handleHealth)
	s.handle(mux, "GET /api/analyze/{code}", s.handleAnalyze)
	s.handle(mux, "GET /api/recommendations", s.handleRecommendations)
	s.handle(mux, "GET /api/history/{code}", s.handleHistory)
	if s.deps.Metrics != nil {
		mux.Handle("GET /metrics", s.deps.Metrics.Handler())
	}

	// 404 handler for unmatched API routes
	s.handle(mux, "/api/", s.handleNotFound)

	return mux
}

// handle registers h and counts its responses under the route pattern.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		h(rw, r)
		s.deps.Metrics.HTTPRequest(pattern, rw.statusCode)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "the requested endpoint does not exist")
}

// handleAnalyze scores one instrument on demand.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.PathValue("code"))
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing code")
		return
	}
	cand, err := s.deps.Collector.Collect(r.Context(), s.instrument(code))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, cand)
	case errors.Is(err, analyzer.ErrInsufficientData), errors.Is(err, analyzer.ErrMalformedBar):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

// instrument resolves code against the watchlist so names and keywords carry.
func (s *Server) instrument(code string) model.Instrument {
	for _, inst := range s.deps.Watchlist {
		if inst.Code == code {
			return inst
		}
	}
	return model.Instrument{Code: code}
}

type recommendationsResponse struct {
	RunID       string             `json:"run_id"`
	GeneratedAt time.Time          `json:"generated_at"`
	Scored      int                `json:"scored"`
	Skipped     int                `json:"skipped"`
	Failed      int                `json:"failed"`
	Top         []model.Candidate  `json:"top"`
	Sections    []screener.Section `json:"sections"`
}

// handleRecommendations serves the latest screening report, running one
// first when none exists or refresh=true.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	var keywords []string
	for _, kw := range strings.Split(q.Get("keywords"), ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}

	report, err := s.report(r, q.Get("refresh") == "true")
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	sections := s.deps.Options.Sections(report, keywords)
	if sections == nil {
		sections = []screener.Section{}
	}
	writeJSON(w, http.StatusOK, recommendationsResponse{
		RunID:       report.ID,
		GeneratedAt: report.FinishedAt,
		Scored:      len(report.Candidates),
		Skipped:     len(report.Skipped),
		Failed:      len(report.Failed),
		Top:         s.deps.Options.Top(report, limit),
		Sections:    sections,
	})
}

func (s *Server) report(r *http.Request, refresh bool) (*screener.Report, error) {
	if !refresh {
		if latest := s.deps.Screener.Latest(); latest != nil {
			return latest, nil
		}
	}
	s.runMu.Lock()
	defer s.runMu.Unlock()
	// Another request may have finished a run while we waited.
	if latest := s.deps.Screener.Latest(); latest != nil && !refresh {
		return latest, nil
	}

	report, err := s.deps.Screener.Run(r.Context(), s.deps.Watchlist)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Recorder.RecordRun(report); err != nil {
		log.Printf("[ERROR] record screening run: %v", err)
	}
	return report, nil
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 30
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	hist, err := s.deps.Recorder.History(r.PathValue("code"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if hist == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[WARN] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": http.StatusText(status), "message": msg})
}
