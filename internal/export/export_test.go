package export

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
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

func newStub(id, title string, compute func(u *stubMetric, in qc.Inputs) error) *stubMetric {
	return &stubMetric{
		Base:    qc.NewBase(core.MetricID(id), title, "", table.KindSummary),
		compute: compute,
	}
}

func TestHeatMapRoundTripKeepsNulls(t *testing.T) {
	h := qc.NewHeatMap([]string{"file_a", "file_b"})
	h.AddRow("sum.msms_id_rate", "MS/MS identification rate")
	h.Set("sum.msms_id_rate", "file_a", 0.25)
	h.Set("sum.msms_id_rate", "file_b", 0.5)
	h.AddRow("evd.charge_dist", "Charge distribution")
	h.Set("evd.charge_dist", "file_b", 1)

	path := filepath.Join(t.TempDir(), HeatMapFile)
	require.NoError(t, WriteHeatMap(path, h))

	got, err := ReadHeatMap(path)
	require.NoError(t, err)

	assert.Equal(t, h.Samples, got.Samples)
	assert.Equal(t, h.MetricIDs, got.MetricIDs)

	v, ok := got.Get("sum.msms_id_rate", "file_a")
	require.True(t, ok)
	assert.InDelta(t, 0.25, v, 1e-12)

	// file_a never scored charge_dist, the cell must stay null
	_, ok = got.Get("evd.charge_dist", "file_a")
	assert.False(t, ok)
	v, ok = got.Get("evd.charge_dist", "file_b")
	require.True(t, ok)
	assert.InDelta(t, 1, v, 1e-12)
}

func TestReadHeatMapMissingFile(t *testing.T) {
	_, err := ReadHeatMap(filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
	// callers branch on not-exist, the wrap must keep it visible
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestReadHeatMapRejectsForeignHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "odd.txt")
	require.NoError(t, os.WriteFile(path, []byte("sample\tscore\n"), 0o644))

	_, err := ReadHeatMap(path)
	assert.ErrorContains(t, err, "unexpected header")
}

func interchangeReport(t *testing.T) *ports.Report {
	t.Helper()

	scored := newStub("sum.msms_id_rate", "MS/MS identification rate",
		func(u *stubMetric, in qc.Inputs) error {
			u.ScoreSample("file_a", 0.2)
			u.ScoreSample("file_b", 0.6)
			return nil
		})
	require.Equal(t, qc.StatusScored, qc.Execute(scored, qc.Inputs{}))

	skipped := newStub("evd.mbr_transfer", "Transferred identifications",
		func(u *stubMetric, in qc.Inputs) error {
			return qc.Skipf("match between runs disabled")
		})
	require.Equal(t, qc.StatusSkipped, qc.Execute(skipped, qc.Inputs{}))

	hm := qc.NewHeatMap([]string{"file_a", "file_b"})
	hm.AddRow("sum.msms_id_rate", "MS/MS identification rate")
	hm.Set("sum.msms_id_rate", "file_a", 0.2)
	hm.Set("sum.msms_id_rate", "file_b", 0.6)

	return &ports.Report{
		RunID:       "run-77",
		Source:      "mztab file testdata/run.mzTab",
		GeneratedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Units:       []qc.Metric{scored, skipped},
		HeatMap:     hm,
	}
}

func TestBuildInterchange(t *testing.T) {
	doc, err := BuildInterchange(interchangeReport(t), 1)
	require.NoError(t, err)

	assert.Equal(t, SchemaVersion, doc.SchemaVersion)
	assert.Equal(t, "run-77", doc.RunID)
	assert.Equal(t, []string{"file_a", "file_b"}, doc.Samples)
	require.Len(t, doc.Metrics, 2)

	scored := doc.Metrics[0]
	assert.Equal(t, "sum.msms_id_rate", scored.ID)
	assert.Equal(t, "scored", scored.Status)
	require.NotNil(t, scored.Score)
	assert.InDelta(t, 0.4, *scored.Score, 1e-12)
	assert.InDelta(t, 0.2, scored.PerSample["file_a"], 1e-12)

	skipped := doc.Metrics[1]
	assert.Equal(t, "skipped", skipped.Status)
	assert.Contains(t, skipped.Reason, "match between runs disabled")
	assert.Nil(t, skipped.Score)
	assert.Nil(t, skipped.PerSample)
}

func TestBuildInterchangeTooFewMetrics(t *testing.T) {
	_, err := BuildInterchange(interchangeReport(t), 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooFewMetrics))
	assert.ErrorContains(t, err, "1 scored, 2 required")
}

func TestWriteInterchange(t *testing.T) {
	doc, err := BuildInterchange(interchangeReport(t), 1)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), InterchangeFile)
	require.NoError(t, WriteInterchange(path, doc))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Document
	require.NoError(t, json.Unmarshal(raw, &got))
	if diff := cmp.Diff(doc, &got); diff != "" {
		t.Errorf("document changed across write/read (-want +got):\n%s", diff)
	}
}
