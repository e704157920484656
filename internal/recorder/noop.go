package recorder

import "github.com/BuyBio/BuyBio/internal/screener"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *screener.Report) error             { return nil }
func (n *NoopRecorder) History(_ string, _ int) ([]ScoreRecord, error) { return nil, nil }
func (n *NoopRecorder) Close() error                                   { return nil }
