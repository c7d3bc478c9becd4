package render

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"msqc/domain/qc"
	"msqc/ports"
)

// XLSXFile is the workbook file name inside the output directory.
const XLSXFile = "report.xlsx"

// XLSX renders the finished report as a workbook: the score matrix on a
// color-scaled heatmap sheet and one status row per unit on a second.
type XLSX struct{}

func NewXLSX() *XLSX { return &XLSX{} }

func (x *XLSX) Format() string { return "xlsx" }

func (x *XLSX) Render(outDir string, report *ports.Report) error {
	f := excelize.NewFile()

	const heatSheet = "Heatmap"
	if err := f.SetSheetName("Sheet1", heatSheet); err != nil {
		return fmt.Errorf("failed to prepare heatmap sheet: %w", err)
	}
	if err := writeHeatSheet(f, heatSheet, report.HeatMap); err != nil {
		return err
	}
	if err := writeMetricsSheet(f, report.Units); err != nil {
		return err
	}

	path := filepath.Join(outDir, XLSXFile)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, v interface{}) error {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	return f.SetCellValue(sheet, cell, v)
}

func writeHeatSheet(f *excelize.File, sheet string, hm *qc.HeatMap) error {
	if hm == nil || hm.Rows() == 0 {
		return setCell(f, sheet, 1, 1, "No metric produced scores for this run.")
	}

	if err := setCell(f, sheet, 1, 1, "Metric"); err != nil {
		return err
	}
	for i, sample := range hm.Samples {
		if err := setCell(f, sheet, i+2, 1, sample); err != nil {
			return err
		}
	}
	for r, id := range hm.MetricIDs {
		if err := setCell(f, sheet, 1, r+2, hm.Titles[id]); err != nil {
			return err
		}
		for c, sample := range hm.Samples {
			score, ok := hm.Get(id, sample)
			if !ok {
				continue
			}
			if err := setCell(f, sheet, c+2, r+2, score); err != nil {
				return err
			}
		}
	}
	if err := f.SetColWidth(sheet, "A", "A", 42); err != nil {
		return err
	}

	if len(hm.Samples) == 0 {
		return nil
	}
	first, _ := excelize.CoordinatesToCellName(2, 2)
	last, _ := excelize.CoordinatesToCellName(len(hm.Samples)+1, hm.Rows()+1)
	return f.SetConditionalFormat(sheet, first+":"+last, []excelize.ConditionalFormatOptions{
		{
			Type:     "3_color_scale",
			MinType:  "num",
			MinValue: "0",
			MinColor: "#D73027",
			MidType:  "num",
			MidValue: "0.5",
			MidColor: "#FEE08B",
			MaxType:  "num",
			MaxValue: "1",
			MaxColor: "#1A9850",
		},
	})
}

func writeMetricsSheet(f *excelize.File, units []qc.Metric) error {
	const sheet = "Metrics"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to add metrics sheet: %w", err)
	}

	headers := []string{"ID", "Title", "Status", "Score", "Detail"}
	for i, h := range headers {
		if err := setCell(f, sheet, i+1, 1, h); err != nil {
			return err
		}
	}
	for r, m := range units {
		row := r + 2
		if err := setCell(f, sheet, 1, row, string(m.ID())); err != nil {
			return err
		}
		if err := setCell(f, sheet, 2, row, m.Title()); err != nil {
			return err
		}
		if err := setCell(f, sheet, 3, row, m.Status().String()); err != nil {
			return err
		}
		if m.Status() == qc.StatusScored {
			if mean := m.Scores().Mean(); !math.IsNaN(mean) {
				if err := setCell(f, sheet, 4, row, mean); err != nil {
					return err
				}
			}
		}
		if reason := m.Reason(); reason != nil {
			if err := setCell(f, sheet, 5, row, reason.Error()); err != nil {
				return err
			}
		}
	}
	if err := f.SetColWidth(sheet, "B", "B", 42); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "E", "E", 60)
}
