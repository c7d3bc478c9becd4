package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msqc/domain/core"
	"msqc/domain/qc"
	"msqc/domain/table"
)

func TestMSMSMissedCleavages_ExcludesContaminantSpectra(t *testing.T) {
	tbl := table.New(table.KindMSMS)
	require.NoError(t, tbl.AddStrings("raw file", []string{"run_a", "run_a", "run_a", "run_a"}))
	require.NoError(t, tbl.AddFloats("evidence id", []float64{1, 1, 2, 2}))
	require.NoError(t, tbl.AddFloats("missed cleavages", []float64{0, 0, 1, 1}))

	evidence := table.New(table.KindEvidence)
	require.NoError(t, evidence.AddFloats("id", []float64{1, 2}))
	require.NoError(t, evidence.AddBools("contaminant", []bool{false, true}))

	m := NewMSMSMissedCleavages()
	status := qc.Execute(m, qc.Inputs{Table: tbl, Evidence: evidence})
	require.Equal(t, qc.StatusScored, status)

	// Both missed-cleavage spectra belong to the contaminant evidence, so
	// the remaining spectra are all fully cleaved.
	assert.InDelta(t, 1.0, m.Scores().PerSample[core.SampleID("run_a")], 1e-9)
}

func TestMSMSMissedCleavages_WithoutEvidenceSubsetCountsEverything(t *testing.T) {
	tbl := table.New(table.KindMSMS)
	require.NoError(t, tbl.AddStrings("raw file", []string{"run_a", "run_a", "run_a", "run_a"}))
	require.NoError(t, tbl.AddFloats("missed cleavages", []float64{0, 0, 1, 1}))

	m := NewMSMSMissedCleavages()
	status := qc.Execute(m, qc.Inputs{Table: tbl})
	require.Equal(t, qc.StatusScored, status)

	assert.InDelta(t, 0.5, m.Scores().PerSample[core.SampleID("run_a")], 1e-9)
}

func TestMSMSMissedCleavages_SkipsWithoutColumn(t *testing.T) {
	tbl := table.New(table.KindMSMS)
	require.NoError(t, tbl.AddStrings("raw file", []string{"run_a"}))

	m := NewMSMSMissedCleavages()
	status := qc.Execute(m, qc.Inputs{Table: tbl})

	assert.Equal(t, qc.StatusSkipped, status)
}

func TestFragmentMassError_ParsesDeviationLists(t *testing.T) {
	tbl := table.New(table.KindMSMS)
	require.NoError(t, tbl.AddStrings("raw file", []string{"run_a", "run_a"}))
	require.NoError(t, tbl.AddStrings("mass deviations [ppm]", []string{"1;-2", "3"}))

	m := NewFragmentMassError()
	status := qc.Execute(m, qc.Inputs{Table: tbl})
	require.Equal(t, qc.StatusScored, status)

	// Absolute deviations 1, 2, 3 give a median of 2 against max_ppm 20.
	assert.InDelta(t, 0.9, m.Scores().PerSample[core.SampleID("run_a")], 1e-9)
	assert.Equal(t, "ppm", m.OutData()["unit"])
}

func TestFragmentMassError_FallsBackToDaltons(t *testing.T) {
	tbl := table.New(table.KindMSMS)
	require.NoError(t, tbl.AddStrings("raw file", []string{"run_a"}))
	require.NoError(t, tbl.AddStrings("mass deviations [da]", []string{"0.25;0.25"}))

	m := NewFragmentMassError()
	status := qc.Execute(m, qc.Inputs{Table: tbl})
	require.Equal(t, qc.StatusScored, status)

	assert.InDelta(t, 0.5, m.Scores().PerSample[core.SampleID("run_a")], 1e-9)
	assert.Equal(t, "Da", m.OutData()["unit"])
}

func TestFragmentMassError_SkipsWhenListsHoldNoValues(t *testing.T) {
	tbl := table.New(table.KindMSMS)
	require.NoError(t, tbl.AddStrings("raw file", []string{"run_a"}))
	require.NoError(t, tbl.AddStrings("mass deviations [ppm]", []string{""}))

	m := NewFragmentMassError()
	status := qc.Execute(m, qc.Inputs{Table: tbl})

	assert.Equal(t, qc.StatusSkipped, status)
}

func TestSplitDeviations_SkipsJunkEntries(t *testing.T) {
	got := splitDeviations("1; x; -2;")
	assert.Equal(t, []float64{1, 2}, got)

	assert.Nil(t, splitDeviations("  "))
}
