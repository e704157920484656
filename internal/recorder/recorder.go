package recorder

import (
	"time"

	"github.com/BuyBio/BuyBio/internal/screener"
)

// ScoreRecord is one persisted score of an instrument.
type ScoreRecord struct {
	RunID          string    `json:"run_id"`
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	Price          float64   `json:"price"`
	ShortScore     float64   `json:"short_term"`
	MidLongScore   float64   `json:"mid_long_term"`
	TotalScore     float64   `json:"total"`
	Recommendation string    `json:"recommendation"`
	LastDate       time.Time `json:"last_date"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// Recorder persists screening history for later analysis.
type Recorder interface {
	RecordRun(report *screener.Report) error
	// History returns the most recent scores of code, newest first.
	History(code string, limit int) ([]ScoreRecord, error)
	Close() error
}
