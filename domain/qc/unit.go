// Package qc defines the metric-unit contract the whole report pipeline is
// built around: independent computations that ingest canonical tables
// exactly once, emit statistics and visual artifacts, and record a quality
// sub-score per sample.
package qc

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"msqc/domain/core"
	"msqc/domain/table"
)

// Status is the lifecycle state of a metric unit within one report run.
type Status int

const (
	StatusUninitialized Status = iota
	StatusPopulated
	StatusScored
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPopulated:
		return "populated"
	case StatusScored:
		return "scored"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "uninitialized"
	}
}

// ErrSkip marks a unit degradation: a required optional column, table or
// upstream output is absent. Units return errors wrapping ErrSkip instead
// of raising; the orchestrator records them and moves on.
var ErrSkip = errors.New("metric skipped")

// Skipf builds an ErrSkip-wrapped degradation reason.
func Skipf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrSkip, fmt.Sprintf(format, args...))
}

// IsSkip reports whether err is a degradation rather than a failure.
func IsSkip(err error) bool {
	return errors.Is(err, ErrSkip)
}

// OutLookup resolves an earlier unit's published OutData value by metric
// identifier and key. Implementations return an ErrSkip-wrapped error when
// the producer did not reach Scored/Populated or never published the key,
// so dependents degrade instead of failing.
type OutLookup func(id core.MetricID, key string) (interface{}, error)

// Inputs is the bounded data a unit receives through its one Compute call.
// Only the fields relevant to the unit's declared table are populated.
type Inputs struct {
	// Table is the unit's primary canonical table. For evidence units this
	// is the genuine subset.
	Table *table.Table
	// Transferred is the match-between-runs evidence subset; nil when the
	// input carries no match-type column or no transferred rows.
	Transferred *table.Table
	// Evidence is the retained evidence keep-column subset handed to MSMS
	// units after the full evidence table was discarded.
	Evidence *table.Table
	// Groups are the condition/channel column groups detected on the
	// primary table, one entry per intensity family column.
	Groups []table.ColumnGroup
	// Samples maps canonical sample identifiers to short display names.
	Samples map[core.SampleID]string
	// SampleOrder fixes the report order of samples.
	SampleOrder []core.SampleID
	// Params carries the unit's resolved numeric thresholds from config.
	Params map[string]float64
	// Out resolves cross-unit OutData dependencies.
	Out OutLookup
	// Log is the run logger; units log sparingly (warnings only).
	Log *zap.SugaredLogger
}

// Param returns a configured threshold or the given default.
func (in Inputs) Param(key string, def float64) float64 {
	if v, ok := in.Params[key]; ok {
		return v
	}
	return def
}

// Metric is the capability interface every unit implements by embedding
// Base. The unexported accessor seals the interface to this module while
// keeping "any unit, any order of addition" extensibility.
type Metric interface {
	ID() core.MetricID
	Title() string
	// Help returns the unit's Markdown description for the rendered report.
	Help() string
	// Table names the canonical table the unit reads; the orchestrator runs
	// the unit immediately after that table is resolved.
	Table() table.Kind
	Status() Status
	Reason() error
	Artifacts() []Artifact
	OutData() map[string]interface{}
	Scores() ScoreSet
	// Compute ingests Inputs exactly once. A returned ErrSkip wrap records
	// degradation; any other error or panic records failure.
	Compute(in Inputs) error

	base() *Base
}

// Base carries the write-once state shared by all units. Embed it by value
// and initialize it with NewBase.
type Base struct {
	id     core.MetricID
	title  string
	help   string
	kind   table.Kind
	status Status
	reason error

	artifacts []Artifact
	out       map[string]interface{}
	scores    ScoreSet
}

// NewBase describes a unit: stable identifier, human title, Markdown help
// text and the canonical table it consumes.
func NewBase(id core.MetricID, title, help string, kind table.Kind) Base {
	return Base{id: id, title: title, help: help, kind: kind, out: make(map[string]interface{})}
}

func (b *Base) ID() core.MetricID               { return b.id }
func (b *Base) Title() string                   { return b.title }
func (b *Base) Help() string                    { return b.help }
func (b *Base) Table() table.Kind               { return b.kind }
func (b *Base) Status() Status                  { return b.status }
func (b *Base) Reason() error                   { return b.reason }
func (b *Base) Artifacts() []Artifact           { return b.artifacts }
func (b *Base) OutData() map[string]interface{} { return b.out }
func (b *Base) Scores() ScoreSet                { return b.scores }

func (b *Base) base() *Base { return b }

// AddArtifact records a visual artifact in report order.
func (b *Base) AddArtifact(a Artifact) {
	b.artifacts = append(b.artifacts, a)
}

// SetOut publishes a named statistic for later units and the exporter.
func (b *Base) SetOut(key string, value interface{}) {
	b.out[key] = value
}

// ScoreSample records a per-sample quality sub-score, clamped to [0,1].
func (b *Base) ScoreSample(sample core.SampleID, score float64) {
	if b.scores.PerSample == nil {
		b.scores.PerSample = make(map[core.SampleID]float64)
	}
	b.scores.PerSample[sample] = Clamp01(score)
}

// ScoreAggregate records one run-wide score applied uniformly across all
// sample columns of the heatmap.
func (b *Base) ScoreAggregate(score float64) {
	b.scores.Aggregate = Clamp01(score)
	b.scores.HasAggregate = true
}

// Execute drives a unit through its state machine. It is the only way a
// unit runs: the write-once guard, the panic recovery and the
// skip-versus-fail split all live here so no unit error can abort a run.
func Execute(m Metric, in Inputs) Status {
	b := m.base()
	if b.status != StatusUninitialized {
		return b.status
	}

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in %s: %v", b.id, r)
			}
		}()
		err = m.Compute(in)
	}()

	switch {
	case err == nil:
		if b.scores.Any() {
			b.status = StatusScored
		} else {
			b.status = StatusPopulated
		}
	case IsSkip(err):
		b.status = StatusSkipped
		b.reason = err
	default:
		b.status = StatusFailed
		b.reason = err
	}
	return b.status
}
