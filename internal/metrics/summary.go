package metrics

import (
	"math"

	"msqc/domain/core"
	"msqc/domain/qc"
	"msqc/domain/table"
)

// IdentificationRate scores the MS/MS identification rate per run.
// Instruments in good shape identify a third or more of their spectra;
// rates far below that point at acquisition or search trouble.
type IdentificationRate struct {
	qc.Base
}

func NewIdentificationRate() *IdentificationRate {
	return &IdentificationRate{Base: qc.NewBase(
		IDIdentificationRate,
		"MS/MS identification rate",
		"Fraction of acquired MS/MS spectra that were identified, per run. "+
			"The score ramps linearly between the `bad` and `good` thresholds "+
			"(percent); runs at or above `good` score 1.",
		table.KindSummary,
	)}
}

func (m *IdentificationRate) Compute(in qc.Inputs) error {
	if in.Table == nil {
		return qc.Skipf("summary table absent")
	}
	rates := in.Table.Floats("ms/ms identified [%]")
	if rates == nil {
		return qc.Skipf("summary lacks an identification rate column")
	}
	bad := in.Param("bad", 20)
	good := in.Param("good", 35)

	order, rows := rowsBySample(in.Table)
	order = sampleOrder(in.SampleOrder, order)

	perFile := make(map[core.SampleID]float64, len(order))
	labels := make([]string, 0, len(order))
	ys := make([]float64, 0, len(order))
	for _, s := range order {
		v := medianOf(pick(rates, rows[s]))
		perFile[s] = v
		labels = append(labels, shortName(in, s))
		ys = append(ys, v)
		if math.IsNaN(v) {
			continue
		}
		m.ScoreSample(s, qc.ScoreLinear(v, bad, good))
	}

	m.AddArtifact(qc.Artifact{
		Kind:   qc.ArtifactBar,
		Title:  "MS/MS identified [%]",
		XLabel: "Run",
		YLabel: "Identified [%]",
		Series: []qc.Series{{Name: "identified", Labels: labels, Y: ys}},
	})
	m.SetOut("rate.per_file", perFile)
	return nil
}
