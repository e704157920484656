package model

import "time"

// Candidate is one analysed instrument ready for ranking.
type Candidate struct {
	Instrument
	Price      float64          `json:"price"`
	Change     float64          `json:"change"`
	ChangeRate float64          `json:"change_rate"`
	Bars       int              `json:"bars"`
	LastDate   time.Time        `json:"last_date"`
	AnalyzedAt time.Time        `json:"analyzed_at"`
	Result     ScoreResult      `json:"scores"`
	Indicators IndicatorSummary `json:"indicators"`
}
