package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"msqc/domain/core"
	"msqc/domain/qc"
	"msqc/domain/table"
	"msqc/internal/config"
	"msqc/internal/export"
	"msqc/internal/filemap"
	"msqc/internal/metrics"
	"msqc/internal/qclog"
	"msqc/internal/resolve"
	"msqc/ports"
)

// tableOrder fixes the processing sequence. Units run immediately after
// their table resolves, so a table can be discarded before the next loads.
var tableOrder = []table.Kind{
	table.KindParameters,
	table.KindSummary,
	table.KindProteinGroups,
	table.KindEvidence,
	table.KindMSMS,
	table.KindMSMSScans,
}

// RunService orchestrates one QC report run: table loading, unit
// execution, aggregation and output writing.
type RunService struct {
	source    ports.SourcePort
	renderers []ports.RenderPort
	history   ports.HistoryPort
	archive   ports.ArchivePort
}

// Option configures optional run collaborators.
type Option func(*RunService)

// WithRenderers attaches report renderers, one per requested format.
func WithRenderers(renderers ...ports.RenderPort) Option {
	return func(s *RunService) { s.renderers = append(s.renderers, renderers...) }
}

// WithHistory attaches the run-score history store.
func WithHistory(h ports.HistoryPort) Option {
	return func(s *RunService) { s.history = h }
}

// WithArchive attaches an archive publisher for the finished report.
func WithArchive(a ports.ArchivePort) Option {
	return func(s *RunService) { s.archive = a }
}

// NewRunService creates a run service over one input source.
func NewRunService(source ports.SourcePort, opts ...Option) *RunService {
	s := &RunService{source: source}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunRequest defines inputs for one report run.
type RunRequest struct {
	OutDir string
	Config *config.Config
	Log    *zap.SugaredLogger
}

// RunResult summarizes a completed run.
type RunResult struct {
	RunID       core.RunID
	Report      *ports.Report
	ScoredUnits int
	Warnings    []string
	Outputs     []string
	RuntimeMs   int64
}

// Run executes the pipeline end to end. Structural problems abort with an
// error; per-unit problems degrade and surface in the warning list.
func (s *RunService) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	startTime := time.Now()

	cfg := req.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := req.Log
	if log == nil {
		log = qclog.Nop()
	}

	if err := s.source.Check(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(req.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	mapPath := filepath.Join(req.OutDir, filemap.MappingFile)
	fm, err := filemap.Load(mapPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load sample mapping: %w", err)
	}

	reg, err := s.buildRegistry(cfg)
	if err != nil {
		return nil, err
	}

	rc := NewRunContext(cfg, log, reg, fm, req.OutDir, s.source.Describe())
	log.Infow("run started",
		"run_id", rc.RunID,
		"source", rc.Source,
		"out_dir", req.OutDir,
		"units", reg.Len(),
	)

	// The mapping persists even when the run aborts mid-way, so manual
	// naming corrections survive partial failures.
	defer func() {
		if err := fm.Save(mapPath); err != nil {
			log.Warnw("failed to save sample mapping", "path", mapPath, "error", err)
		}
	}()

	if err := s.processTables(rc); err != nil {
		return nil, err
	}

	scored := 0
	for _, m := range reg.All() {
		if m.Status() == qc.StatusScored {
			scored++
		}
	}
	if scored == 0 {
		return nil, fmt.Errorf("%w (source: %s)", core.ErrNoScorableUnits, rc.Source)
	}

	heat := qc.BuildHeatMap(reg, rc.Samples(), rc.SampleOrder())
	report := &ports.Report{
		RunID:       rc.RunID,
		Source:      rc.Source,
		GeneratedAt: time.Now().UTC(),
		Units:       reg.All(),
		HeatMap:     heat,
	}

	outputs, err := s.writeOutputs(rc, report)
	if err != nil {
		return nil, err
	}

	if s.history != nil && cfg.History.Enabled {
		if err := s.history.SaveRun(ctx, buildRunRecord(rc, startTime)); err != nil {
			rc.Warnf("history save failed: %v", err)
		}
	}
	if s.archive != nil {
		if err := s.archive.Publish(ctx, req.OutDir); err != nil {
			rc.Warnf("archive publish to %s failed: %v", s.archive.Describe(), err)
		}
	}

	report.Warnings = rc.Warnings()
	result := &RunResult{
		RunID:       rc.RunID,
		Report:      report,
		ScoredUnits: scored,
		Warnings:    report.Warnings,
		Outputs:     outputs,
		RuntimeMs:   time.Since(startTime).Milliseconds(),
	}
	log.Infow("run finished",
		"run_id", rc.RunID,
		"scored_units", scored,
		"warnings", len(result.Warnings),
		"runtime_ms", result.RuntimeMs,
	)
	return result, nil
}

// buildRegistry constructs the unit registry from configuration: disabled
// units are not registered, and every registered unit's thresholds are
// materialized so the re-emitted config lists them all.
func (s *RunService) buildRegistry(cfg *config.Config) (*qc.Registry, error) {
	reg := qc.NewRegistry()
	for _, m := range metrics.All() {
		id := m.ID().String()
		cfg.ResolveMetric(id, metrics.DefaultThresholds(m.ID()))
		if !cfg.MetricEnabled(id) {
			continue
		}
		if err := reg.Add(m); err != nil {
			return nil, fmt.Errorf("failed to build registry: %w", err)
		}
	}
	if reg.Len() == 0 {
		return nil, fmt.Errorf("%w: every metric unit is disabled in configuration", core.ErrNoScorableUnits)
	}
	return reg, nil
}

// processTables drives the fixed table sequence. Each table is read,
// resolved, handed to its units and then dropped; only the evidence
// keep-column subset survives for the MSMS units.
func (s *RunService) processTables(rc *RunContext) error {
	for _, kind := range tableOrder {
		if err := s.processTable(rc, kind); err != nil {
			return err
		}
	}
	return nil
}

func (s *RunService) processTable(rc *RunContext, kind table.Kind) error {
	units := rc.Registry.ByTable(kind)

	raw, err := s.source.Table(kind)
	if err != nil {
		return fmt.Errorf("failed to read %s table: %w", kind, err)
	}

	in := qc.Inputs{
		Out: rc.Registry.OutLookup(),
		Log: rc.Log,
	}
	if raw != nil {
		canonical, groups, err := resolve.Canonical(raw, rc.Config.Report.MinLabelLength)
		if err != nil {
			return fmt.Errorf("failed to resolve %s table: %w", kind, err)
		}
		if kind == table.KindSummary {
			canonical = dropAggregateRows(canonical)
		}
		if names := canonical.Strings("raw file"); names != nil {
			added, err := rc.RegisterSamples(names)
			if err != nil {
				return err
			}
			if added > 0 {
				// First persistence point: naming fixed as soon as
				// resolution knows the samples.
				mapPath := filepath.Join(rc.OutDir, filemap.MappingFile)
				if err := rc.FileMap.Save(mapPath); err != nil {
					return fmt.Errorf("failed to save sample mapping: %w", err)
				}
			}
		}

		in.Groups = groups
		switch kind {
		case table.KindEvidence:
			genuine, transferred := splitEvidence(canonical)
			rc.evidenceKeep = canonical.Select("id", "contaminant", "raw file")
			in.Table = genuine
			in.Transferred = transferred
		case table.KindMSMS:
			in.Table = canonical
			in.Evidence = rc.evidenceKeep
		default:
			in.Table = canonical
		}
		rc.Log.Infow("table resolved",
			"table", kind,
			"rows", canonical.Rows(),
			"groups", len(groups),
			"units", len(units),
		)
	} else {
		rc.Log.Infow("table absent", "table", kind, "units", len(units))
		if kind == table.KindMSMS {
			in.Evidence = rc.evidenceKeep
		}
	}
	in.Samples = rc.Samples()
	in.SampleOrder = rc.SampleOrder()

	for _, m := range units {
		in.Params = rc.Config.MetricThresholds(m.ID().String())
		status := qc.Execute(m, in)
		switch status {
		case qc.StatusFailed:
			rc.Log.Warnw("unit failed", "metric", m.ID(), "error", m.Reason())
		case qc.StatusSkipped:
			rc.Log.Debugw("unit skipped", "metric", m.ID(), "reason", m.Reason())
		default:
			rc.Log.Debugw("unit done", "metric", m.ID(), "status", status.String())
		}
	}
	return nil
}

// writeOutputs emits the aggregate files: score matrix, interchange
// report, resolved configuration and the requested renderings.
func (s *RunService) writeOutputs(rc *RunContext, report *ports.Report) ([]string, error) {
	var outputs []string

	heatPath := filepath.Join(rc.OutDir, export.HeatMapFile)
	if err := export.WriteHeatMap(heatPath, report.HeatMap); err != nil {
		return nil, err
	}
	outputs = append(outputs, heatPath)

	docPath := filepath.Join(rc.OutDir, export.InterchangeFile)
	doc, err := export.BuildInterchange(report, rc.Config.Report.InterchangeMinUnits)
	switch {
	case err == nil:
		if err := export.WriteInterchange(docPath, doc); err != nil {
			return nil, err
		}
		outputs = append(outputs, docPath)
	case errors.Is(err, export.ErrTooFewMetrics):
		rc.Warnf("interchange report not written: %v", err)
	default:
		return nil, err
	}

	cfgPath := filepath.Join(rc.OutDir, config.File)
	if err := rc.Config.Save(cfgPath); err != nil {
		return nil, err
	}
	outputs = append(outputs, cfgPath)

	for _, r := range s.renderers {
		if err := r.Render(rc.OutDir, report); err != nil {
			return nil, fmt.Errorf("failed to render %s report: %w", r.Format(), err)
		}
		outputs = append(outputs, filepath.Join(rc.OutDir, r.Format()))
	}
	return outputs, nil
}

// splitEvidence separates match-between-runs transfers from genuinely
// identified evidence on the match-type column. Without the column, or
// without any transfer, everything is genuine and Transferred stays nil.
func splitEvidence(t *table.Table) (genuine, transferred *table.Table) {
	types := t.Strings("type")
	if types == nil {
		return t, nil
	}
	keep := make([]bool, t.Rows())
	any := false
	for i, v := range types {
		moved := strings.HasPrefix(strings.ToUpper(strings.TrimSpace(v)), "MULTI-MATCH")
		keep[i] = !moved
		if moved {
			any = true
		}
	}
	if !any {
		return t, nil
	}
	inverse := make([]bool, len(keep))
	for i, k := range keep {
		inverse[i] = !k
	}
	return t.Filter(keep), t.Filter(inverse)
}

// dropAggregateRows removes the summary's whole-experiment total row so
// per-run statistics are not polluted by the aggregate.
func dropAggregateRows(t *table.Table) *table.Table {
	names := t.Strings("raw file")
	if names == nil {
		return t
	}
	keep := make([]bool, t.Rows())
	dropped := false
	for i, v := range names {
		total := strings.EqualFold(strings.TrimSpace(v), "total")
		keep[i] = !total
		if total {
			dropped = true
		}
	}
	if !dropped {
		return t
	}
	return t.Filter(keep)
}

// buildRunRecord reduces the registry to the history store's shape.
func buildRunRecord(rc *RunContext, startedAt time.Time) ports.RunRecord {
	rec := ports.RunRecord{
		RunID:      rc.RunID,
		Source:     rc.Source,
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
	}
	for _, m := range rc.Registry.All() {
		rec.Scores = append(rec.Scores, ports.ScoreRecord{
			MetricID: m.ID(),
			Status:   m.Status().String(),
			Score:    m.Scores().Mean(),
		})
	}
	return rec
}
