package qc

import (
	"msqc/domain/core"
)

// HeatMap is the report's at-a-glance summary: one row per scored metric,
// one column per sample short name, nullable cells. A missing cell means
// the metric did not run for that sample; it is never coerced to zero.
type HeatMap struct {
	MetricIDs []core.MetricID
	Titles    map[core.MetricID]string
	Samples   []string
	cells     map[core.MetricID]map[string]float64
}

// NewHeatMap fixes the sample column axis.
func NewHeatMap(samples []string) *HeatMap {
	return &HeatMap{
		Titles:  make(map[core.MetricID]string),
		Samples: samples,
		cells:   make(map[core.MetricID]map[string]float64),
	}
}

// AddRow appends a metric row in report order.
func (h *HeatMap) AddRow(id core.MetricID, title string) {
	if _, ok := h.cells[id]; ok {
		return
	}
	h.MetricIDs = append(h.MetricIDs, id)
	h.Titles[id] = title
	h.cells[id] = make(map[string]float64)
}

// Set places a score; rows must be added first.
func (h *HeatMap) Set(id core.MetricID, sample string, score float64) {
	if row, ok := h.cells[id]; ok {
		row[sample] = Clamp01(score)
	}
}

// Get returns a cell and whether it is non-null.
func (h *HeatMap) Get(id core.MetricID, sample string) (float64, bool) {
	row, ok := h.cells[id]
	if !ok {
		return 0, false
	}
	v, ok := row[sample]
	return v, ok
}

// Rows returns the number of metric rows.
func (h *HeatMap) Rows() int { return len(h.MetricIDs) }

// BuildHeatMap reduces the registry's scored units into the matrix.
// Per-sample scores land in their sample's column (long names translated
// through samples); aggregate-only units broadcast across every column.
func BuildHeatMap(reg *Registry, samples map[core.SampleID]string, order []core.SampleID) *HeatMap {
	shorts := make([]string, 0, len(order))
	for _, id := range order {
		shorts = append(shorts, samples[id])
	}
	h := NewHeatMap(shorts)

	for _, m := range reg.All() {
		if m.Status() != StatusScored {
			continue
		}
		sc := m.Scores()
		h.AddRow(m.ID(), m.Title())
		if len(sc.PerSample) > 0 {
			for sample, v := range sc.PerSample {
				short, ok := samples[sample]
				if !ok {
					continue
				}
				h.Set(m.ID(), short, v)
			}
			continue
		}
		for _, short := range shorts {
			h.Set(m.ID(), short, sc.Aggregate)
		}
	}
	return h
}
