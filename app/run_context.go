package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"msqc/domain/core"
	"msqc/domain/qc"
	"msqc/domain/table"
	"msqc/internal/config"
	"msqc/internal/filemap"
)

// RunContext carries the state shared across one report run: the resolved
// configuration, the sample-name mapping, the unit registry and the
// warning list. Built once per run and passed by reference; nothing here
// is global.
type RunContext struct {
	RunID     core.RunID
	Config    *config.Config
	Log       *zap.SugaredLogger
	Registry  *qc.Registry
	FileMap   *filemap.Map
	OutDir    string
	Source    string
	StartedAt time.Time

	samples     map[core.SampleID]string
	sampleOrder []core.SampleID

	// evidenceKeep is the retained evidence keep-column subset handed to
	// MSMS units after the full evidence table is discarded.
	evidenceKeep *table.Table

	warnings []string
}

// NewRunContext seeds a context for one run.
func NewRunContext(cfg *config.Config, log *zap.SugaredLogger, reg *qc.Registry, fm *filemap.Map, outDir, source string) *RunContext {
	return &RunContext{
		RunID:     core.NewRunID(),
		Config:    cfg,
		Log:       log,
		Registry:  reg,
		FileMap:   fm,
		OutDir:    outDir,
		Source:    source,
		StartedAt: time.Now(),
		samples:   make(map[core.SampleID]string),
	}
}

// RegisterSamples folds newly seen sample long names into the mapping and
// the report order. Returns how many were new.
func (rc *RunContext) RegisterSamples(longNames []string) (int, error) {
	fresh := make([]string, 0, len(longNames))
	seen := make(map[string]bool, len(longNames))
	for _, name := range longNames {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if _, known := rc.samples[core.SampleID(name)]; !known {
			fresh = append(fresh, name)
		}
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	if err := rc.FileMap.Assign(fresh, rc.Config.Report.MinLabelLength); err != nil {
		return 0, fmt.Errorf("failed to assign sample short names: %w", err)
	}
	for _, name := range fresh {
		short, ok := rc.FileMap.Short(name)
		if !ok {
			short = name
		}
		rc.samples[core.SampleID(name)] = short
		rc.sampleOrder = append(rc.sampleOrder, core.SampleID(name))
	}
	return len(fresh), nil
}

// Samples maps canonical sample identifiers to short display names.
func (rc *RunContext) Samples() map[core.SampleID]string { return rc.samples }

// SampleOrder is the fixed report order, first seen first.
func (rc *RunContext) SampleOrder() []core.SampleID { return rc.sampleOrder }

// Warnf records a run-level warning surfaced at end of run.
func (rc *RunContext) Warnf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	rc.warnings = append(rc.warnings, msg)
	rc.Log.Warnw("run warning", "warning", msg)
}

// Warnings merges run-level warnings with the registry's per-unit ones.
func (rc *RunContext) Warnings() []string {
	out := append([]string{}, rc.warnings...)
	return append(out, rc.Registry.Warnings()...)
}
