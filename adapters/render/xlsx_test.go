package render

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"msqc/ports"
)

func TestXLSXRenderWritesWorkbook(t *testing.T) {
	r := NewXLSX()
	assert.Equal(t, "xlsx", r.Format())

	dir := t.TempDir()
	require.NoError(t, r.Render(dir, sampleReport(t)))

	f, err := excelize.OpenFile(filepath.Join(dir, XLSXFile))
	require.NoError(t, err)
	defer f.Close()

	get := func(sheet, cell string) string {
		v, err := f.GetCellValue(sheet, cell)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "Metric", get("Heatmap", "A1"))
	assert.Equal(t, "a", get("Heatmap", "B1"))
	assert.Equal(t, "b", get("Heatmap", "C1"))
	assert.Equal(t, "MS/MS identification rate", get("Heatmap", "A2"))
	assert.Equal(t, "0.25", get("Heatmap", "B2"))
	// null cell stays empty rather than being coerced to zero
	assert.Equal(t, "", get("Heatmap", "C2"))

	assert.Equal(t, "ID", get("Metrics", "A1"))
	assert.Equal(t, "sum.msms_id_rate", get("Metrics", "A2"))
	assert.Equal(t, "scored", get("Metrics", "C2"))
	assert.Equal(t, "evd.mbr_transfer", get("Metrics", "A3"))
	assert.Equal(t, "skipped", get("Metrics", "C3"))
	assert.Contains(t, get("Metrics", "E3"), "no transferred evidence rows")
}

func TestXLSXRenderEmptyHeatmap(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewXLSX().Render(dir, &ports.Report{RunID: "run-x"}))

	f, err := excelize.OpenFile(filepath.Join(dir, XLSXFile))
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue("Heatmap", "A1")
	require.NoError(t, err)
	assert.Contains(t, v, "No metric produced scores")
}
