// Package history persists per-run metric scores in a local SQLite
// database so quality drift stays visible across report runs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"msqc/domain/core"
	"msqc/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS qc_runs (
	run_id      TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS qc_scores (
	run_id    TEXT NOT NULL REFERENCES qc_runs(run_id) ON DELETE CASCADE,
	metric_id TEXT NOT NULL,
	status    TEXT NOT NULL,
	score     REAL,
	PRIMARY KEY (run_id, metric_id)
);

CREATE INDEX IF NOT EXISTS idx_qc_scores_metric ON qc_scores(metric_id);
`

// Store implements the history port on SQLite. The driver is pure Go,
// so the database needs no system dependencies.
type Store struct {
	db *sqlx.DB
}

// Open creates or opens the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply history schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// SaveRun stores one run and all its unit scores atomically. Unscored
// units persist with a NULL score and survive the NaN round trip.
func (s *Store) SaveRun(ctx context.Context, rec ports.RunRecord) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin history transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO qc_runs (run_id, source, started_at, finished_at)
		VALUES (?, ?, ?, ?)
	`, string(rec.RunID), rec.Source, rec.StartedAt.UTC(), rec.FinishedAt.UTC()); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", rec.RunID, err)
	}

	for _, sc := range rec.Scores {
		var score sql.NullFloat64
		if !math.IsNaN(sc.Score) {
			score = sql.NullFloat64{Float64: sc.Score, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO qc_scores (run_id, metric_id, status, score)
			VALUES (?, ?, ?, ?)
		`, string(rec.RunID), string(sc.MetricID), sc.Status, score); err != nil {
			return fmt.Errorf("failed to insert score %s: %w", sc.MetricID, err)
		}
	}
	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first, scores included.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]ports.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, source, started_at, finished_at
		FROM qc_runs
		ORDER BY finished_at DESC, run_id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []ports.RunRecord
	for rows.Next() {
		var (
			rec   ports.RunRecord
			runID string
		)
		if err := rows.Scan(&runID, &rec.Source, &rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, err
		}
		rec.RunID = core.RunID(runID)
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		scores, err := s.runScores(ctx, runs[i].RunID)
		if err != nil {
			return nil, err
		}
		runs[i].Scores = scores
	}
	return runs, nil
}

func (s *Store) runScores(ctx context.Context, id core.RunID) ([]ports.ScoreRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT metric_id, status, score
		FROM qc_scores
		WHERE run_id = ?
		ORDER BY rowid
	`, string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to load scores for %s: %w", id, err)
	}
	defer rows.Close()

	var scores []ports.ScoreRecord
	for rows.Next() {
		var (
			rec      ports.ScoreRecord
			metricID string
			score    sql.NullFloat64
		)
		if err := rows.Scan(&metricID, &rec.Status, &score); err != nil {
			return nil, err
		}
		rec.MetricID = core.MetricID(metricID)
		rec.Score = math.NaN()
		if score.Valid {
			rec.Score = score.Float64
		}
		scores = append(scores, rec)
	}
	return scores, rows.Err()
}

// Trend returns one metric's scored history over the most recent runs,
// reordered oldest first so the series plots left to right.
func (s *Store) Trend(ctx context.Context, id core.MetricID, limit int) ([]ports.TrendPoint, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.run_id, r.finished_at, s.score
		FROM qc_scores s
		JOIN qc_runs r ON r.run_id = s.run_id
		WHERE s.metric_id = ? AND s.score IS NOT NULL
		ORDER BY r.finished_at DESC, s.run_id
		LIMIT ?
	`, string(id), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load trend for %s: %w", id, err)
	}
	defer rows.Close()

	var points []ports.TrendPoint
	for rows.Next() {
		var (
			p     ports.TrendPoint
			runID string
		)
		if err := rows.Scan(&runID, &p.FinishedAt, &p.Score); err != nil {
			return nil, err
		}
		p.RunID = core.RunID(runID)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}
