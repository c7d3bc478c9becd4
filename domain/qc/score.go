package qc

import (
	"math"

	"msqc/domain/core"
)

// ScoreSet is a unit's quality sub-scores: either one value per sample or
// a single aggregate broadcast across all samples in the heatmap.
type ScoreSet struct {
	PerSample    map[core.SampleID]float64
	Aggregate    float64
	HasAggregate bool
}

// Any reports whether the unit recorded at least one score.
func (s ScoreSet) Any() bool {
	return s.HasAggregate || len(s.PerSample) > 0
}

// Mean returns the average of all recorded scores, used as the unit's
// qualifying statistic in the interchange report.
func (s ScoreSet) Mean() float64 {
	if len(s.PerSample) == 0 {
		if s.HasAggregate {
			return s.Aggregate
		}
		return math.NaN()
	}
	sum := 0.0
	for _, v := range s.PerSample {
		sum += v
	}
	return sum / float64(len(s.PerSample))
}

// Clamp01 confines a score to [0,1]; NaN stays NaN so missing propagates.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Scoring helpers. Every metric reduces its statistic to [0,1] through one
// of these so sub-scores stay comparable across the heatmap.

// ScoreLinear maps x linearly between a worst and a best value, clamped.
// worst > best inverts the scale (smaller is better).
func ScoreLinear(x, worst, best float64) float64 {
	if math.IsNaN(x) {
		return math.NaN()
	}
	if worst == best {
		if x >= best {
			return 1
		}
		return 0
	}
	return Clamp01((x - worst) / (best - worst))
}

// ScoreBest scales x against the best observed value; the best sample
// scores 1 and an empty sample scores 0.
func ScoreBest(x, best float64) float64 {
	if math.IsNaN(x) || best <= 0 {
		return math.NaN()
	}
	return Clamp01(x / best)
}

// ScoreDeviation rewards closeness to a center: 1 at the center, 0 at or
// beyond tolerance.
func ScoreDeviation(x, center, tolerance float64) float64 {
	if math.IsNaN(x) || tolerance <= 0 {
		return math.NaN()
	}
	return Clamp01(1 - math.Abs(x-center)/tolerance)
}
