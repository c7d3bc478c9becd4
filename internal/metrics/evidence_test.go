package metrics

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msqc/domain/core"
	"msqc/domain/qc"
	"msqc/domain/table"
)

func TestPeptideCounts_ScoresAgainstBestRun(t *testing.T) {
	tbl := table.New(table.KindEvidence)
	require.NoError(t, tbl.AddStrings("raw file", []string{"run_a", "run_a", "run_a", "run_b"}))
	require.NoError(t, tbl.AddStrings("modified sequence", []string{"AAA", "BBB", "CCC", "AAA"}))

	transferred := table.New(table.KindEvidence)
	require.NoError(t, transferred.AddStrings("raw file", []string{"run_b"}))
	require.NoError(t, transferred.AddStrings("modified sequence", []string{"DDD"}))

	m := NewPeptideCounts()
	status := qc.Execute(m, qc.Inputs{Table: tbl, Transferred: transferred})
	require.Equal(t, qc.StatusScored, status)

	scores := m.Scores().PerSample
	assert.InDelta(t, 1.0, scores[core.SampleID("run_a")], 1e-9)
	assert.InDelta(t, 1.0/3, scores[core.SampleID("run_b")], 1e-9)

	arts := m.Artifacts()
	require.Len(t, arts, 1)
	require.Len(t, arts[0].Series, 2)
	assert.Equal(t, "transferred", arts[0].Series[1].Name)
	assert.Equal(t, []float64{0, 1}, arts[0].Series[1].Y)
}

func TestPeptideCounts_CountsDuplicateSequencesOnce(t *testing.T) {
	tbl := table.New(table.KindEvidence)
	require.NoError(t, tbl.AddStrings("raw file", []string{"run_a", "run_a", "run_b"}))
	require.NoError(t, tbl.AddStrings("modified sequence", []string{"AAA", "AAA", "BBB"}))

	m := NewPeptideCounts()
	qc.Execute(m, qc.Inputs{Table: tbl})

	counts, ok := m.OutData()["count.per_file"].(map[core.SampleID]float64)
	require.True(t, ok)
	assert.Equal(t, 1.0, counts[core.SampleID("run_a")])
	assert.Equal(t, 1.0, counts[core.SampleID("run_b")])
}

func TestPeptideIntensity_CentersOnPooledMedian(t *testing.T) {
	tbl := table.New(table.KindEvidence)
	require.NoError(t, tbl.AddStrings("raw file", []string{"run_a", "run_a", "run_b", "run_b"}))
	require.NoError(t, tbl.AddFloats("intensity", []float64{1e6, 1e6, 1e5, 1e5}))
	groups := []table.ColumnGroup{{Family: table.FamilyRaw, Column: "intensity", Short: "intensity"}}

	m := NewPeptideIntensity()
	status := qc.Execute(m, qc.Inputs{Table: tbl, Groups: groups})
	require.Equal(t, qc.StatusScored, status)

	scores := m.Scores().PerSample
	assert.InDelta(t, 0.5, scores[core.SampleID("run_a")], 1e-9)
	assert.InDelta(t, 0.5, scores[core.SampleID("run_b")], 1e-9)
}

func TestPeptideIntensity_SumsLabelChannels(t *testing.T) {
	tbl := table.New(table.KindEvidence)
	require.NoError(t, tbl.AddStrings("raw file", []string{"run_a"}))
	require.NoError(t, tbl.AddFloats("intensity h", []float64{600}))
	require.NoError(t, tbl.AddFloats("intensity l", []float64{400}))
	groups := []table.ColumnGroup{
		{Family: table.FamilyRaw, Column: "intensity h", Short: "h", Label: "h"},
		{Family: table.FamilyRaw, Column: "intensity l", Short: "l", Label: "l"},
	}

	m := NewPeptideIntensity()
	qc.Execute(m, qc.Inputs{Table: tbl, Groups: groups})

	medians, ok := m.OutData()["median.per_file"].(map[core.SampleID]float64)
	require.True(t, ok)
	assert.InDelta(t, 3.0, medians[core.SampleID("run_a")], 1e-9)
}

func TestChargeDistribution_ScoresCharge2Deviation(t *testing.T) {
	tbl := table.New(table.KindEvidence)
	require.NoError(t, tbl.AddStrings("raw file", []string{
		"run_a", "run_a",
		"run_b", "run_b",
		"run_c", "run_c", "run_c", "run_c",
	}))
	require.NoError(t, tbl.AddFloats("charge", []float64{2, 2, 2, 3, 2, 2, 2, 3}))

	m := NewChargeDistribution()
	status := qc.Execute(m, qc.Inputs{Table: tbl})
	require.Equal(t, qc.StatusScored, status)

	// Charge-2 fractions are 1.0, 0.5 and 0.75; the median run is run_c.
	scores := m.Scores().PerSample
	assert.InDelta(t, 0.0, scores[core.SampleID("run_a")], 1e-9)
	assert.InDelta(t, 0.0, scores[core.SampleID("run_b")], 1e-9)
	assert.InDelta(t, 1.0, scores[core.SampleID("run_c")], 1e-9)

	arts := m.Artifacts()
	require.Len(t, arts, 1)
	require.Len(t, arts[0].Series, 4)
	assert.Equal(t, "2", arts[0].Series[1].Name)
}

func TestMissedCleavages_ZeroFractionIsTheScore(t *testing.T) {
	tbl := table.New(table.KindEvidence)
	require.NoError(t, tbl.AddStrings("raw file", []string{"run_a", "run_a", "run_a", "run_a"}))
	require.NoError(t, tbl.AddFloats("missed cleavages", []float64{0, 0, 0, 2}))

	m := NewMissedCleavages()
	status := qc.Execute(m, qc.Inputs{Table: tbl})
	require.Equal(t, qc.StatusScored, status)

	assert.InDelta(t, 0.75, m.Scores().PerSample[core.SampleID("run_a")], 1e-9)

	arts := m.Artifacts()
	require.Len(t, arts, 1)
	require.Len(t, arts[0].Series, 3)
	assert.Equal(t, "2+", arts[0].Series[2].Name)
	assert.InDelta(t, 0.25, arts[0].Series[2].Y[0], 1e-9)
}

func TestMassError_PrefersUncalibratedColumn(t *testing.T) {
	tbl := table.New(table.KindEvidence)
	require.NoError(t, tbl.AddStrings("raw file", []string{"run_a", "run_a"}))
	require.NoError(t, tbl.AddFloats("uncalibrated mass error [ppm]", []float64{4, 6}))
	require.NoError(t, tbl.AddFloats("mass error [ppm]", []float64{0.1, 0.1}))

	m := NewMassError()
	status := qc.Execute(m, qc.Inputs{Table: tbl})
	require.Equal(t, qc.StatusScored, status)

	assert.InDelta(t, 0.5, m.Scores().PerSample[core.SampleID("run_a")], 1e-9)
	assert.Equal(t, "uncalibrated", m.OutData()["source"])
}

func TestMassError_FallsBackToCalibratedColumn(t *testing.T) {
	tbl := table.New(table.KindEvidence)
	require.NoError(t, tbl.AddStrings("raw file", []string{"run_a", "run_a"}))
	require.NoError(t, tbl.AddFloats("mass error [ppm]", []float64{2, 2}))

	m := NewMassError()
	qc.Execute(m, qc.Inputs{Table: tbl})

	assert.InDelta(t, 0.8, m.Scores().PerSample[core.SampleID("run_a")], 1e-9)
	assert.Equal(t, "calibrated", m.OutData()["source"])
}

func TestMassError_BinsErrorsIntoSharedHistogram(t *testing.T) {
	tbl := table.New(table.KindEvidence)
	require.NoError(t, tbl.AddStrings("raw file", []string{"run_a", "run_a", "run_b", "run_b"}))
	require.NoError(t, tbl.AddFloats("uncalibrated mass error [ppm]", []float64{-2, 2, 1, 3}))

	m := NewMassError()
	qc.Execute(m, qc.Inputs{Table: tbl})

	arts := m.Artifacts()
	require.Len(t, arts, 1)
	assert.Equal(t, qc.ArtifactHistogram, arts[0].Kind)
	require.Len(t, arts[0].Series, 2)
	for _, s := range arts[0].Series {
		assert.Len(t, s.Y, len(s.Labels))
		total := 0.0
		for _, v := range s.Y {
			total += v
		}
		assert.InDelta(t, 1.0, total, 1e-9, s.Name)
	}
}

func TestMassError_SkipsWhenAllValuesMissing(t *testing.T) {
	tbl := table.New(table.KindEvidence)
	require.NoError(t, tbl.AddStrings("raw file", []string{"run_a"}))
	require.NoError(t, tbl.AddFloats("uncalibrated mass error [ppm]", []float64{math.NaN()}))

	m := NewMassError()
	status := qc.Execute(m, qc.Inputs{Table: tbl})

	assert.Equal(t, qc.StatusSkipped, status)
	assert.True(t, qc.IsSkip(m.Reason()))
}

func TestPeakWidth_PublishesPerFileMedians(t *testing.T) {
	tbl := table.New(table.KindEvidence)
	require.NoError(t, tbl.AddStrings("raw file", []string{
		"run_a", "run_a", "run_a", "run_b", "run_b", "run_b",
	}))
	require.NoError(t, tbl.AddFloats("retention length", []float64{1, 1, 1, 3, 3, 3}))

	m := NewPeakWidth()
	status := qc.Execute(m, qc.Inputs{Table: tbl})
	require.Equal(t, qc.StatusScored, status)

	perFile, ok := m.OutData()["per_file"].(map[core.SampleID]float64)
	require.True(t, ok)
	assert.InDelta(t, 1.0, perFile[core.SampleID("run_a")], 1e-9)
	assert.InDelta(t, 3.0, perFile[core.SampleID("run_b")], 1e-9)

	scores := m.Scores().PerSample
	assert.InDelta(t, 0.5, scores[core.SampleID("run_a")], 1e-9)
	assert.InDelta(t, 0.5, scores[core.SampleID("run_b")], 1e-9)
}

func TestTransferQuality_WeighsShareByPeakWidth(t *testing.T) {
	tbl := table.New(table.KindEvidence)
	require.NoError(t, tbl.AddStrings("raw file", []string{
		"run_a", "run_a", "run_a", "run_b", "run_b", "run_b",
	}))
	transferred := table.New(table.KindEvidence)
	require.NoError(t, transferred.AddStrings("raw file", []string{"run_a", "run_b"}))

	widths := map[core.SampleID]float64{"run_a": 2, "run_b": 4}
	out := func(id core.MetricID, key string) (interface{}, error) {
		require.Equal(t, IDPeakWidth, id)
		require.Equal(t, "per_file", key)
		return widths, nil
	}

	m := NewTransferQuality()
	status := qc.Execute(m, qc.Inputs{Table: tbl, Transferred: transferred, Out: out})
	require.Equal(t, qc.StatusScored, status)

	// Both runs transferred a quarter of their evidence; the wide-peaked
	// run pays more for it.
	scores := m.Scores().PerSample
	assert.InDelta(t, 2.0/3, scores[core.SampleID("run_a")], 1e-9)
	assert.InDelta(t, 1.0/3, scores[core.SampleID("run_b")], 1e-9)

	shares, ok := m.OutData()["share.per_file"].(map[core.SampleID]float64)
	require.True(t, ok)
	assert.InDelta(t, 0.25, shares[core.SampleID("run_a")], 1e-9)
}

func TestTransferQuality_SkipsWithoutTransferredEvidence(t *testing.T) {
	tbl := table.New(table.KindEvidence)
	require.NoError(t, tbl.AddStrings("raw file", []string{"run_a"}))

	m := NewTransferQuality()
	status := qc.Execute(m, qc.Inputs{Table: tbl})

	assert.Equal(t, qc.StatusSkipped, status)
}

func TestTransferQuality_SkipsWhenPeakWidthUnavailable(t *testing.T) {
	tbl := table.New(table.KindEvidence)
	require.NoError(t, tbl.AddStrings("raw file", []string{"run_a"}))
	transferred := table.New(table.KindEvidence)
	require.NoError(t, transferred.AddStrings("raw file", []string{"run_a"}))

	out := func(id core.MetricID, key string) (interface{}, error) {
		return nil, errors.New("unit not computed")
	}

	m := NewTransferQuality()
	status := qc.Execute(m, qc.Inputs{Table: tbl, Transferred: transferred, Out: out})

	assert.Equal(t, qc.StatusSkipped, status)
	assert.True(t, qc.IsSkip(m.Reason()))
}

func TestEvidenceContaminants_ScoresFlaggedShare(t *testing.T) {
	tbl := table.New(table.KindEvidence)
	require.NoError(t, tbl.AddStrings("raw file", []string{"run_a", "run_a", "run_a", "run_a"}))
	require.NoError(t, tbl.AddBools("contaminant", []bool{true, false, false, false}))

	m := NewEvidenceContaminants()
	status := qc.Execute(m, qc.Inputs{
		Table:  tbl,
		Params: map[string]float64{"max_fraction": 0.5},
	})
	require.Equal(t, qc.StatusScored, status)

	assert.InDelta(t, 0.5, m.Scores().PerSample[core.SampleID("run_a")], 1e-9)
}
