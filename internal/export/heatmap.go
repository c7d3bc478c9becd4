// Package export serializes the run's aggregate outputs: the score
// matrix as a delimited table and the schema-versioned interchange
// report.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"msqc/domain/core"
	"msqc/domain/qc"
)

// HeatMapFile is the score matrix file name under the output directory.
const HeatMapFile = "heatmap.txt"

// WriteHeatMap writes the score matrix as a tab-delimited table: one
// header row of sample short names, one row per metric. Null cells stay
// empty so a round trip preserves them.
func WriteHeatMap(path string, h *qc.HeatMap) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create heatmap file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'

	header := append([]string{"metric"}, h.Samples...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write heatmap header: %w", err)
	}
	for _, id := range h.MetricIDs {
		row := make([]string, 0, len(h.Samples)+1)
		row = append(row, string(id))
		for _, sample := range h.Samples {
			if v, ok := h.Get(id, sample); ok {
				row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
			} else {
				row = append(row, "")
			}
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write heatmap row %s: %w", id, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush heatmap: %w", err)
	}
	return nil
}

// ReadHeatMap reads a matrix written by WriteHeatMap. Empty cells load as
// null, not zero.
func ReadHeatMap(path string) (*qc.HeatMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open heatmap file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse heatmap file: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("heatmap file %s is empty", path)
	}
	header := records[0]
	if len(header) < 1 || header[0] != "metric" {
		return nil, fmt.Errorf("heatmap file %s: unexpected header", path)
	}
	h := qc.NewHeatMap(header[1:])
	for i, row := range records[1:] {
		if len(row) != len(header) {
			return nil, fmt.Errorf("heatmap file %s: row %d has %d fields, want %d", path, i+2, len(row), len(header))
		}
		id := core.MetricID(row[0])
		h.AddRow(id, "")
		for c, cell := range row[1:] {
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("heatmap file %s: row %d col %q: %w", path, i+2, header[c+1], err)
			}
			h.Set(id, header[c+1], v)
		}
	}
	return h, nil
}
