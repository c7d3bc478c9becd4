package ports

import (
	"context"
	"time"

	"msqc/domain/core"
)

// RunRecord is one report run as persisted in the history store.
type RunRecord struct {
	RunID      core.RunID
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time
	Scores     []ScoreRecord
}

// ScoreRecord is one unit's outcome within a run. Score is the unit's
// mean quality score; NaN when the unit did not score.
type ScoreRecord struct {
	MetricID core.MetricID
	Status   string
	Score    float64
}

// TrendPoint is one run's score for a single metric.
type TrendPoint struct {
	RunID      core.RunID
	FinishedAt time.Time
	Score      float64
}

// HistoryPort persists per-run unit scores so quality drift across runs
// stays visible after individual reports are archived away.
type HistoryPort interface {
	SaveRun(ctx context.Context, rec RunRecord) error
	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
	// Trend returns one metric's score across the most recent runs,
	// oldest first so the series plots left to right.
	Trend(ctx context.Context, id core.MetricID, limit int) ([]TrendPoint, error)
	Close() error
}
