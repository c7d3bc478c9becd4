package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"msqc/domain/qc"
	"msqc/ports"
)

// SchemaVersion identifies the interchange document layout. Bump on any
// field change; consumers pin against it.
const SchemaVersion = "msqc-quality/1"

// InterchangeFile is the interchange report file name under the output
// directory.
const InterchangeFile = "quality_report.json"

// ErrTooFewMetrics marks an interchange build aborted because not enough
// units scored. The rest of the run is unaffected.
var ErrTooFewMetrics = errors.New("too few scorable metrics for interchange report")

// Document is the schema-versioned interchange report: one record per
// run, one entry per unit.
type Document struct {
	SchemaVersion string         `json:"schema_version"`
	RunID         string         `json:"run_id"`
	Source        string         `json:"source"`
	CreatedAt     time.Time      `json:"created_at"`
	Samples       []string       `json:"samples"`
	Metrics       []MetricRecord `json:"metrics"`
}

// MetricRecord is one unit's outcome. Score is the unit's qualifying
// statistic (mean quality score); absent unless the unit scored.
type MetricRecord struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	Status    string             `json:"status"`
	Reason    string             `json:"reason,omitempty"`
	Score     *float64           `json:"score,omitempty"`
	PerSample map[string]float64 `json:"per_sample,omitempty"`
}

// BuildInterchange assembles the document from a finished report.
// Fails with ErrTooFewMetrics when fewer than minUnits units scored.
func BuildInterchange(report *ports.Report, minUnits int) (*Document, error) {
	doc := &Document{
		SchemaVersion: SchemaVersion,
		RunID:         report.RunID.String(),
		Source:        report.Source,
		CreatedAt:     report.GeneratedAt,
		Samples:       report.HeatMap.Samples,
	}

	scored := 0
	for _, m := range report.Units {
		rec := MetricRecord{
			ID:     m.ID().String(),
			Title:  m.Title(),
			Status: m.Status().String(),
		}
		if reason := m.Reason(); reason != nil {
			rec.Reason = reason.Error()
		}
		if m.Status() == qc.StatusScored {
			scored++
			if mean := m.Scores().Mean(); !math.IsNaN(mean) {
				v := mean
				rec.Score = &v
			}
			rec.PerSample = rowCells(report.HeatMap, m)
		}
		doc.Metrics = append(doc.Metrics, rec)
	}
	if scored < minUnits {
		return nil, fmt.Errorf("%w: %d scored, %d required", ErrTooFewMetrics, scored, minUnits)
	}
	return doc, nil
}

// rowCells copies one metric's heatmap row, keyed by short sample name.
func rowCells(h *qc.HeatMap, m qc.Metric) map[string]float64 {
	out := make(map[string]float64)
	for _, sample := range h.Samples {
		if v, ok := h.Get(m.ID(), sample); ok {
			out[sample] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// WriteInterchange writes the document as indented JSON.
func WriteInterchange(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal interchange report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write interchange report: %w", err)
	}
	return nil
}
