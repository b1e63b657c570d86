// Package sqlite records pipeline runs and their tract scores in a local
// SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/couchcryptid/hail-risk-etl/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
  id           TEXT    PRIMARY KEY,
  report_date  TEXT    NOT NULL,
  started_at   TEXT    NOT NULL,
  finished_at  TEXT    NOT NULL,
  from_cache   INTEGER NOT NULL,
  tracts       INTEGER NOT NULL,
  points       INTEGER NOT NULL,
  assigned     INTEGER NOT NULL,
  seam         INTEGER NOT NULL,
  outside      INTEGER NOT NULL,
  risky        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tract_scores (
  run_id          TEXT    NOT NULL,
  geoid           TEXT    NOT NULL,
  state           TEXT    NOT NULL,
  hail_reports    INTEGER NOT NULL,
  hail_risk_score REAL    NOT NULL,
  car_ownership_density REAL,
  PRIMARY KEY (run_id, geoid),
  FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_tract_scores_score ON tract_scores(run_id, hail_risk_score DESC);
`

// Ledger stores one row per run and one row per tract with a positive score.
type Ledger struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the ledger database at path and applies the schema.
func Open(path string, logger *slog.Logger) (*Ledger, error) {
	dsn, err := buildDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	// Single writer; also keeps ":memory:" databases on one connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Ledger{db: db, logger: logger}, nil
}

func buildDSN(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	params := []string{
		"_foreign_keys=on",
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}
	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}

// Record stores the run and the scores of its risky tracts in one
// transaction.
func (l *Ledger) Record(ctx context.Context, run domain.RunSummary, tracts []domain.TractRecord) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
INSERT INTO runs (id, report_date, started_at, finished_at, from_cache, tracts, points, assigned, seam, outside, risky)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.ReportDate,
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.FromCache, run.Tracts, run.Points, run.Assigned, run.Seam, run.Outside, run.RiskyCount,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO tract_scores (run_id, geoid, state, hail_reports, hail_risk_score, car_ownership_density)
VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare scores: %w", err)
	}
	defer stmt.Close()

	risky := domain.RiskyTracts(tracts)
	for _, t := range risky {
		if _, err := stmt.ExecContext(ctx, run.ID, t.GEOID, t.State, t.HailReports, t.HailRiskScore, t.CarOwnershipDensity); err != nil {
			return fmt.Errorf("insert score %s: %w", t.GEOID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	l.logger.Info("recorded run", "run_id", run.ID, "risky_tracts", len(risky))
	return nil
}

// Name identifies the sink in logs.
func (l *Ledger) Name() string { return "sqlite" }

// Score is a stored tract score.
type Score struct {
	GEOID         string
	State         string
	HailReports   int
	HailRiskScore float64
}

// TopScores returns the n highest scores of a run, ties broken by GEOID.
func (l *Ledger) TopScores(ctx context.Context, runID string, n int) ([]Score, error) {
	rows, err := l.db.QueryContext(ctx, `
SELECT geoid, state, hail_reports, hail_risk_score
FROM tract_scores
WHERE run_id = ?
ORDER BY hail_risk_score DESC, geoid
LIMIT ?`, runID, n)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	var out []Score
	for rows.Next() {
		var s Score
		if err := rows.Scan(&s.GEOID, &s.State, &s.HailReports, &s.HailRiskScore); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RunCount returns the number of recorded runs.
func (l *Ledger) RunCount(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}
