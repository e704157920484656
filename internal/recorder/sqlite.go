package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/BuyBio/BuyBio/internal/screener"
)

// SQLiteRecorder persists screening runs to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the API read history while a run is being written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS screen_runs (
			id          TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			scored      INTEGER,
			skipped     INTEGER,
			failed      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON screen_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS score_results (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id         TEXT NOT NULL REFERENCES screen_runs(id),
			recorded_at    INTEGER NOT NULL,
			code           TEXT NOT NULL,
			name           TEXT,
			price          REAL,
			change_rate    REAL,
			last_date      INTEGER,
			short_score    REAL,
			mid_long_score REAL,
			total_score    REAL,
			recommendation TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scores_code ON score_results(code, recorded_at)`,

		`CREATE TABLE IF NOT EXISTS factor_scores (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT NOT NULL REFERENCES screen_runs(id),
			code       TEXT NOT NULL,
			rule       TEXT,
			indicator  TEXT,
			level      TEXT,
			weight     REAL,
			short      REAL,
			mid_long   REAL,
			commentary TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_factors_run ON factor_scores(run_id, code)`,

		`CREATE TABLE IF NOT EXISTS screen_failures (
			id     INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES screen_runs(id),
			code   TEXT NOT NULL,
			kind   TEXT,
			reason TEXT
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores a report and all of its candidates in one transaction.
func (r *SQLiteRecorder) RecordRun(report *screener.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO screen_runs
		(id, started_at, finished_at, scored, skipped, failed)
		VALUES (?,?,?,?,?,?)`,
		report.ID, report.StartedAt.Unix(), report.FinishedAt.Unix(),
		len(report.Candidates), len(report.Skipped), len(report.Failed),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, c := range report.Candidates {
		res := c.Result
		if _, err := tx.Exec(`INSERT INTO score_results
			(run_id, recorded_at, code, name, price, change_rate, last_date,
			 short_score, mid_long_score, total_score, recommendation)
			VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
			report.ID, report.FinishedAt.Unix(), c.Code, c.Name, c.Price, c.ChangeRate, c.LastDate.Unix(),
			res.ShortScore, res.MidLongScore, res.TotalScore, string(res.Recommendation),
		); err != nil {
			return fmt.Errorf("insert score %s: %w", c.Code, err)
		}
		for _, f := range res.Factors {
			if _, err := tx.Exec(`INSERT INTO factor_scores
				(run_id, code, rule, indicator, level, weight, short, mid_long, commentary)
				VALUES (?,?,?,?,?,?,?,?,?)`,
				report.ID, c.Code, f.Rule, string(f.Indicator), f.Level.String(),
				f.Weight, f.Short, f.MidLong, f.Commentary,
			); err != nil {
				return fmt.Errorf("insert factor %s/%s: %w", c.Code, f.Rule, err)
			}
		}
	}

	for kind, list := range map[string][]screener.Failure{"skipped": report.Skipped, "failed": report.Failed} {
		for _, f := range list {
			if _, err := tx.Exec(`INSERT INTO screen_failures (run_id, code, kind, reason) VALUES (?,?,?,?)`,
				report.ID, f.Instrument.Code, kind, f.Reason,
			); err != nil {
				return fmt.Errorf("insert failure %s: %w", f.Instrument.Code, err)
			}
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) History(code string, limit int) ([]ScoreRecord, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := r.db.Query(`SELECT run_id, code, name, price, short_score, mid_long_score,
			total_score, recommendation, last_date, recorded_at
		FROM score_results WHERE code = ?
		ORDER BY recorded_at DESC, id DESC LIMIT ?`, code, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []ScoreRecord
	for rows.Next() {
		var (
			rec            ScoreRecord
			last, recorded int64
		)
		if err := rows.Scan(&rec.RunID, &rec.Code, &rec.Name, &rec.Price, &rec.ShortScore,
			&rec.MidLongScore, &rec.TotalScore, &rec.Recommendation, &last, &recorded); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		rec.LastDate = time.Unix(last, 0)
		rec.RecordedAt = time.Unix(recorded, 0)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
