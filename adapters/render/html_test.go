package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msqc/domain/core"
	"msqc/domain/qc"
	"msqc/domain/table"
	"msqc/ports"
)

type stubMetric struct {
	qc.Base
	compute func(u *stubMetric, in qc.Inputs) error
}

func (u *stubMetric) Compute(in qc.Inputs) error { return u.compute(u, in) }

func newStub(id, title, help string, compute func(u *stubMetric, in qc.Inputs) error) *stubMetric {
	return &stubMetric{
		Base:    qc.NewBase(core.MetricID(id), title, help, table.KindSummary),
		compute: compute,
	}
}

func sampleReport(t *testing.T) *ports.Report {
	t.Helper()

	scored := newStub("sum.msms_id_rate", "MS/MS identification rate", "Share of spectra that were **identified**.",
		func(u *stubMetric, in qc.Inputs) error {
			u.ScoreSample("file_a", 0.25)
			u.ScoreSample("file_b", 0.9)
			u.AddArtifact(qc.Artifact{
				Kind:   qc.ArtifactBar,
				Title:  "Identification rate per file",
				Series: []qc.Series{{Name: "rate", Labels: []string{"a", "b"}, Y: []float64{25, 90}}},
			})
			u.AddArtifact(qc.Artifact{
				Kind:    qc.ArtifactTable,
				Title:   "Search settings",
				Headers: []string{"Parameter", "Value"},
				Rows:    [][]string{{"Enzyme", "Trypsin/P"}},
			})
			return nil
		})
	require.Equal(t, qc.StatusScored, qc.Execute(scored, qc.Inputs{}))

	skipped := newStub("evd.mbr_transfer", "Transferred identifications", "",
		func(u *stubMetric, in qc.Inputs) error {
			return qc.Skipf("no transferred evidence rows")
		})
	require.Equal(t, qc.StatusSkipped, qc.Execute(skipped, qc.Inputs{}))

	hm := qc.NewHeatMap([]string{"a", "b"})
	hm.AddRow("sum.msms_id_rate", "MS/MS identification rate")
	hm.Set("sum.msms_id_rate", "a", 0.25)

	return &ports.Report{
		RunID:       "run-1234",
		Source:      "maxquant txt directory testdata",
		GeneratedAt: time.Date(2024, 5, 14, 9, 30, 0, 0, time.UTC),
		Units:       []qc.Metric{scored, skipped},
		HeatMap:     hm,
		Warnings:    []string{"summary table absent"},
	}
}

func TestHTMLRenderWritesReport(t *testing.T) {
	r, err := NewHTML()
	require.NoError(t, err)
	assert.Equal(t, "html", r.Format())

	dir := t.TempDir()
	require.NoError(t, r.Render(dir, sampleReport(t)))

	raw, err := os.ReadFile(filepath.Join(dir, HTMLFile))
	require.NoError(t, err)
	page := string(raw)

	assert.Contains(t, page, "run-1234")
	assert.Contains(t, page, "MS/MS identification rate")
	assert.Contains(t, page, "summary table absent")
	assert.Contains(t, page, "no transferred evidence rows")
	assert.Contains(t, page, "<strong>identified</strong>")
	assert.Contains(t, page, "Trypsin/P")
	assert.Contains(t, page, "<svg")
	// one scored cell gets a background, the null cell stays plain
	assert.Equal(t, 1, strings.Count(page, "style=\"background:"))
}

func TestHTMLRenderEmptyHeatmap(t *testing.T) {
	r, err := NewHTML()
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, r.Render(dir, &ports.Report{RunID: "run-x", GeneratedAt: time.Now()}))

	raw, err := os.ReadFile(filepath.Join(dir, HTMLFile))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "No metric produced scores")
}

func TestScoreColorRamp(t *testing.T) {
	assert.Equal(t, "#d73027", scoreColor(0))
	assert.Equal(t, "#fee08b", scoreColor(0.5))
	assert.Equal(t, "#1a9850", scoreColor(1))
	// out-of-range input clamps instead of producing junk
	assert.Equal(t, "#d73027", scoreColor(-3))
	assert.Equal(t, "#1a9850", scoreColor(7))
}

func TestArtifactSVGByKind(t *testing.T) {
	bar := qc.Artifact{
		Kind:   qc.ArtifactBar,
		Series: []qc.Series{{Name: "n", Labels: []string{"x"}, Y: []float64{3}}},
	}
	assert.Contains(t, string(artifactSVG(bar)), "<rect")

	box := qc.Artifact{
		Kind:   qc.ArtifactBox,
		Series: []qc.Series{{Name: "b", Y: []float64{1, 2, 3, 4, 5}}},
	}
	assert.Contains(t, string(artifactSVG(box)), "<rect")

	line := qc.Artifact{
		Kind:   qc.ArtifactLine,
		Series: []qc.Series{{Name: "l", X: []float64{0, 1, 2}, Y: []float64{5, 6, 7}}},
	}
	assert.Contains(t, string(artifactSVG(line)), "<polyline")

	assert.Empty(t, artifactSVG(qc.Artifact{Kind: qc.ArtifactTable}))
	assert.Empty(t, artifactSVG(qc.Artifact{Kind: qc.ArtifactBar}))
}

func TestArtifactSVGEscapesLabels(t *testing.T) {
	bar := qc.Artifact{
		Kind:   qc.ArtifactBar,
		Series: []qc.Series{{Name: "n", Labels: []string{"<run&1>"}, Y: []float64{1}}},
	}
	svg := string(artifactSVG(bar))
	assert.NotContains(t, svg, "<run")
	assert.Contains(t, svg, "&lt;run&amp;1&gt;")
}
