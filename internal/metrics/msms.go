package metrics

import (
	"math"
	"strconv"
	"strings"

	"msqc/domain/core"
	"msqc/domain/qc"
	"msqc/domain/table"
)

// MSMSMissedCleavages scores digestion completeness over fragment spectra,
// with contaminant spectra excluded so abundant contaminants such as
// keratin cannot drag a run down.
type MSMSMissedCleavages struct {
	qc.Base
}

func NewMSMSMissedCleavages() *MSMSMissedCleavages {
	return &MSMSMissedCleavages{Base: qc.NewBase(
		IDMSMSMissedCleavages,
		"Missed cleavages (MS/MS)",
		"Fraction of MS/MS spectra per missed-cleavage count and run, with "+
			"spectra from contaminant evidence excluded. The "+
			"zero-missed-cleavage fraction is the score.",
		table.KindMSMS,
	)}
}

func (m *MSMSMissedCleavages) Compute(in qc.Inputs) error {
	if in.Table == nil {
		return qc.Skipf("msms table absent")
	}
	mc := in.Table.Floats("missed cleavages")
	if mc == nil {
		return qc.Skipf("msms lacks a missed cleavages column")
	}

	order, rows := rowsBySample(in.Table)
	order = sampleOrder(in.SampleOrder, order)

	if excluded := contaminantEvidenceIDs(in.Evidence); len(excluded) > 0 {
		if ids := in.Table.Floats("evidence id"); ids != nil {
			for s, idx := range rows {
				kept := idx[:0]
				for _, i := range idx {
					if v := ids[i]; math.IsNaN(v) || !excluded[int64(v)] {
						kept = append(kept, i)
					}
				}
				rows[s] = kept
			}
		}
	}

	series := cleavageFractions(in, mc, order, rows)
	for si, s := range order {
		zero := series[0].Y[si]
		if !math.IsNaN(zero) {
			m.ScoreSample(s, qc.Clamp01(zero))
		}
	}

	m.AddArtifact(qc.Artifact{
		Kind:   qc.ArtifactBar,
		Title:  "Missed cleavage fractions (MS/MS)",
		XLabel: "Run",
		YLabel: "Fraction",
		Series: series,
	})
	return nil
}

// contaminantEvidenceIDs collects the evidence ids flagged as contaminant
// from the retained evidence subset. Empty when the subset or its columns
// are unavailable.
func contaminantEvidenceIDs(evidence *table.Table) map[int64]bool {
	if evidence == nil {
		return nil
	}
	ids := evidence.Floats("id")
	flags := evidence.Bools("contaminant")
	if ids == nil || flags == nil {
		return nil
	}
	out := make(map[int64]bool)
	for i, flag := range flags {
		if flag && !math.IsNaN(ids[i]) {
			out[int64(ids[i])] = true
		}
	}
	return out
}

// FragmentMassError scores fragment ion mass accuracy per run. Prefers
// ppm deviations; falls back to Dalton readings with their own threshold
// when the search engine only recorded those.
type FragmentMassError struct {
	qc.Base
}

func NewFragmentMassError() *FragmentMassError {
	return &FragmentMassError{Base: qc.NewBase(
		IDFragmentMassError,
		"Fragment mass error",
		"Median absolute fragment mass deviation per run. The score falls "+
			"linearly and reaches zero at `max_ppm` (or `max_da` when only "+
			"Dalton deviations are available).",
		table.KindMSMS,
	)}
}

func (m *FragmentMassError) Compute(in qc.Inputs) error {
	if in.Table == nil {
		return qc.Skipf("msms table absent")
	}
	cells := in.Table.Strings("mass deviations [ppm]")
	limit := in.Param("max_ppm", 20)
	unit := "ppm"
	if cells == nil {
		cells = in.Table.Strings("mass deviations [da]")
		limit = in.Param("max_da", 0.5)
		unit = "Da"
	}
	if cells == nil {
		return qc.Skipf("msms lacks a mass deviations column")
	}

	order, rows := rowsBySample(in.Table)
	order = sampleOrder(in.SampleOrder, order)

	anyFinite := false
	var series []qc.Series
	medians := make(map[core.SampleID]float64, len(order))
	for _, s := range order {
		var devs []float64
		for _, i := range rows[s] {
			devs = append(devs, splitDeviations(cells[i])...)
		}
		med := medianOf(devs)
		medians[s] = med
		if !math.IsNaN(med) {
			anyFinite = true
			m.ScoreSample(s, qc.ScoreLinear(med, limit, 0))
		}
		series = append(series, qc.Series{Name: shortName(in, s), Y: fiveNumber(devs)})
	}
	if !anyFinite {
		return qc.Skipf("mass deviations column holds no values")
	}

	m.AddArtifact(qc.Artifact{
		Kind:   qc.ArtifactBox,
		Title:  "Fragment mass deviation [" + unit + "]",
		XLabel: "Run",
		YLabel: "Absolute deviation [" + unit + "]",
		Series: series,
	})
	m.SetOut("median.per_file", medians)
	m.SetOut("unit", unit)
	return nil
}

// splitDeviations parses a semicolon-separated deviation list into
// absolute values, skipping blanks and unparsable entries.
func splitDeviations(cell string) []float64 {
	if strings.TrimSpace(cell) == "" {
		return nil
	}
	parts := strings.Split(cell, ";")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			continue
		}
		out = append(out, math.Abs(v))
	}
	return out
}
