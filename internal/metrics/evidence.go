package metrics

import (
	"fmt"
	"math"

	"msqc/domain/core"
	"msqc/domain/qc"
	"msqc/domain/table"
)

// PeptideCounts compares how many distinct peptides each run identified
// against the best run. Counts only genuinely identified evidence;
// transferred identifications are shown alongside but never counted.
type PeptideCounts struct {
	qc.Base
}

func NewPeptideCounts() *PeptideCounts {
	return &PeptideCounts{Base: qc.NewBase(
		IDPeptideCounts,
		"Identified peptides",
		"Distinct peptide sequences identified per run, scored against the "+
			"best run. Transferred identifications are plotted separately so "+
			"match-between-runs cannot mask a weak run.",
		table.KindEvidence,
	)}
}

func (m *PeptideCounts) Compute(in qc.Inputs) error {
	if in.Table == nil {
		return qc.Skipf("evidence table absent")
	}
	order, rows := rowsBySample(in.Table)
	order = sampleOrder(in.SampleOrder, order)

	counts := make(map[core.SampleID]float64, len(order))
	best := 0.0
	for _, s := range order {
		n := distinctPeptides(in.Table, rows[s])
		counts[s] = n
		if n > best {
			best = n
		}
	}
	if best == 0 {
		return qc.Skipf("no identified peptides")
	}

	labels := make([]string, 0, len(order))
	genuine := make([]float64, 0, len(order))
	for _, s := range order {
		labels = append(labels, shortName(in, s))
		genuine = append(genuine, counts[s])
		m.ScoreSample(s, qc.ScoreBest(counts[s], best))
	}
	series := []qc.Series{{Name: "identified", Labels: labels, Y: genuine}}

	if in.Transferred != nil && in.Transferred.Rows() > 0 {
		_, trows := rowsBySample(in.Transferred)
		transferred := make([]float64, 0, len(order))
		for _, s := range order {
			transferred = append(transferred, distinctPeptides(in.Transferred, trows[s]))
		}
		series = append(series, qc.Series{Name: "transferred", Labels: labels, Y: transferred})
	}

	m.AddArtifact(qc.Artifact{
		Kind:   qc.ArtifactBar,
		Title:  "Identified peptides",
		XLabel: "Run",
		YLabel: "Peptides",
		Series: series,
	})
	m.SetOut("count.per_file", counts)
	return nil
}

// distinctPeptides counts unique modified sequences over the given rows,
// falling back to the row count when the sequence column is absent.
func distinctPeptides(tbl *table.Table, rows []int) float64 {
	seqs := tbl.Strings("modified sequence")
	if seqs == nil {
		return float64(len(rows))
	}
	seen := make(map[string]bool, len(rows))
	for _, i := range rows {
		seen[seqs[i]] = true
	}
	return float64(len(seen))
}

// PeptideIntensity checks that each run's evidence intensity distribution
// sits where the others do.
type PeptideIntensity struct {
	qc.Base
}

func NewPeptideIntensity() *PeptideIntensity {
	return &PeptideIntensity{Base: qc.NewBase(
		IDPeptideIntensity,
		"Peptide intensity distribution",
		"Log10 evidence intensity distribution per run, scored by how far "+
			"each run's median sits from the overall median. A run drifting "+
			"`log10_tolerance` decades away scores zero.",
		table.KindEvidence,
	)}
}

func (m *PeptideIntensity) Compute(in qc.Inputs) error {
	if in.Table == nil {
		return qc.Skipf("evidence table absent")
	}
	groups := table.GroupsByFamily(in.Groups)[table.FamilyRaw]
	if len(groups) == 0 {
		return qc.Skipf("no evidence intensity columns")
	}
	tolerance := in.Param("log10_tolerance", 1)

	totals := rowTotals(in.Table, groups)
	order, rows := rowsBySample(in.Table)
	order = sampleOrder(in.SampleOrder, order)

	var pooled []float64
	logsPerFile := make(map[core.SampleID][]float64, len(order))
	for _, s := range order {
		logs := log10Positive(pick(totals, rows[s]))
		logsPerFile[s] = logs
		pooled = append(pooled, logs...)
	}
	center := medianOf(pooled)
	if math.IsNaN(center) {
		return qc.Skipf("no positive evidence intensities")
	}

	var series []qc.Series
	medians := make(map[core.SampleID]float64, len(order))
	for _, s := range order {
		med := medianOf(logsPerFile[s])
		medians[s] = med
		if !math.IsNaN(med) {
			m.ScoreSample(s, qc.ScoreDeviation(med, center, tolerance))
		}
		series = append(series, qc.Series{Name: shortName(in, s), Y: fiveNumber(logsPerFile[s])})
	}

	m.AddArtifact(qc.Artifact{
		Kind:   qc.ArtifactBox,
		Title:  "Evidence intensity (log10)",
		XLabel: "Run",
		YLabel: "log10 intensity",
		Series: series,
	})
	m.SetOut("median.per_file", medians)
	m.SetOut("median.overall", center)
	return nil
}

// rowTotals sums the group columns per row, treating missing as zero.
// A row with no finite value in any group totals NaN.
func rowTotals(tbl *table.Table, groups []table.ColumnGroup) []float64 {
	totals := make([]float64, tbl.Rows())
	seen := make([]bool, tbl.Rows())
	for _, g := range groups {
		values := tbl.Floats(g.Column)
		if values == nil {
			continue
		}
		for i, v := range values {
			if math.IsNaN(v) {
				continue
			}
			totals[i] += v
			seen[i] = true
		}
	}
	for i := range totals {
		if !seen[i] {
			totals[i] = math.NaN()
		}
	}
	return totals
}

// ChargeDistribution watches the precursor charge mix per run. Tryptic
// digests are dominated by doubly charged peptides; a shifted mix points
// at source instability or a digestion problem.
type ChargeDistribution struct {
	qc.Base
}

func NewChargeDistribution() *ChargeDistribution {
	return &ChargeDistribution{Base: qc.NewBase(
		IDChargeDistribution,
		"Precursor charge distribution",
		"Fraction of evidence at each precursor charge, per run. Runs are "+
			"scored by how far their charge-2 fraction deviates from the "+
			"median run; `tolerance` away scores zero.",
		table.KindEvidence,
	)}
}

func (m *ChargeDistribution) Compute(in qc.Inputs) error {
	if in.Table == nil {
		return qc.Skipf("evidence table absent")
	}
	charges := in.Table.Floats("charge")
	if charges == nil {
		return qc.Skipf("evidence lacks a charge column")
	}
	tolerance := in.Param("tolerance", 0.25)

	order, rows := rowsBySample(in.Table)
	order = sampleOrder(in.SampleOrder, order)

	buckets := []string{"1", "2", "3", "4+"}
	fracs := make(map[core.SampleID][]float64, len(order))
	charge2 := make([]float64, 0, len(order))
	for _, s := range order {
		counts := make([]float64, len(buckets))
		total := 0.0
		for _, i := range rows[s] {
			v := charges[i]
			if math.IsNaN(v) {
				continue
			}
			switch c := int(v); {
			case c <= 1:
				counts[0]++
			case c == 2:
				counts[1]++
			case c == 3:
				counts[2]++
			default:
				counts[3]++
			}
			total++
		}
		if total > 0 {
			for i := range counts {
				counts[i] /= total
			}
		} else {
			for i := range counts {
				counts[i] = math.NaN()
			}
		}
		fracs[s] = counts
		charge2 = append(charge2, counts[1])
	}
	center := medianOf(charge2)
	if math.IsNaN(center) {
		return qc.Skipf("no charge values")
	}

	labels := make([]string, 0, len(order))
	for _, s := range order {
		labels = append(labels, shortName(in, s))
		if !math.IsNaN(fracs[s][1]) {
			m.ScoreSample(s, qc.ScoreDeviation(fracs[s][1], center, tolerance))
		}
	}
	series := make([]qc.Series, 0, len(buckets))
	for bi, name := range buckets {
		ys := make([]float64, 0, len(order))
		for _, s := range order {
			ys = append(ys, fracs[s][bi])
		}
		series = append(series, qc.Series{Name: name, Labels: labels, Y: ys})
	}

	m.AddArtifact(qc.Artifact{
		Kind:   qc.ArtifactBar,
		Title:  "Precursor charge fractions",
		XLabel: "Run",
		YLabel: "Fraction",
		Series: series,
	})
	m.SetOut("charge2.median", center)
	return nil
}

// MissedCleavages scores digestion completeness. The fraction of evidence
// with no missed cleavage is the score itself.
type MissedCleavages struct {
	qc.Base
}

func NewMissedCleavages() *MissedCleavages {
	return &MissedCleavages{Base: qc.NewBase(
		IDMissedCleavages,
		"Missed cleavages (evidence)",
		"Fraction of evidence per missed-cleavage count and run. The "+
			"zero-missed-cleavage fraction is used as the score; a drop "+
			"against earlier runs means digestion is degrading.",
		table.KindEvidence,
	)}
}

func (m *MissedCleavages) Compute(in qc.Inputs) error {
	if in.Table == nil {
		return qc.Skipf("evidence table absent")
	}
	mc := in.Table.Floats("missed cleavages")
	if mc == nil {
		return qc.Skipf("evidence lacks a missed cleavages column")
	}

	order, rows := rowsBySample(in.Table)
	order = sampleOrder(in.SampleOrder, order)

	series := cleavageFractions(in, mc, order, rows)
	for si, s := range order {
		zero := series[0].Y[si]
		if !math.IsNaN(zero) {
			m.ScoreSample(s, qc.Clamp01(zero))
		}
	}

	m.AddArtifact(qc.Artifact{
		Kind:   qc.ArtifactBar,
		Title:  "Missed cleavage fractions",
		XLabel: "Run",
		YLabel: "Fraction",
		Series: series,
	})
	return nil
}

// cleavageFractions bins missed-cleavage counts into 0, 1 and 2+ per
// sample and returns one series per bin.
func cleavageFractions(in qc.Inputs, mc []float64, order []core.SampleID, rows map[core.SampleID][]int) []qc.Series {
	labels := make([]string, 0, len(order))
	bins := [][]float64{{}, {}, {}}
	for i := range bins {
		bins[i] = make([]float64, 0, len(order))
	}
	for _, s := range order {
		labels = append(labels, shortName(in, s))
		counts := [3]float64{}
		total := 0.0
		for _, i := range rows[s] {
			v := mc[i]
			if math.IsNaN(v) {
				continue
			}
			switch c := int(v); {
			case c <= 0:
				counts[0]++
			case c == 1:
				counts[1]++
			default:
				counts[2]++
			}
			total++
		}
		for bi := range counts {
			if total > 0 {
				bins[bi] = append(bins[bi], counts[bi]/total)
			} else {
				bins[bi] = append(bins[bi], math.NaN())
			}
		}
	}
	names := []string{"0", "1", "2+"}
	series := make([]qc.Series, 0, 3)
	for bi, name := range names {
		series = append(series, qc.Series{Name: name, Labels: labels, Y: bins[bi]})
	}
	return series
}

// MassError scores precursor mass accuracy per run from the uncalibrated
// mass error, falling back to the calibrated one when the search did not
// record uncalibrated values.
type MassError struct {
	qc.Base
}

func NewMassError() *MassError {
	return &MassError{Base: qc.NewBase(
		IDMassError,
		"Precursor mass error",
		"Median precursor mass error per run in ppm. The score falls "+
			"linearly and reaches zero at `max_ppm`. Uses uncalibrated errors "+
			"when present so recalibration cannot hide a drifting instrument.",
		table.KindEvidence,
	)}
}

func (m *MassError) Compute(in qc.Inputs) error {
	if in.Table == nil {
		return qc.Skipf("evidence table absent")
	}
	errs := in.Table.Floats("uncalibrated mass error [ppm]")
	source := "uncalibrated"
	if errs == nil {
		errs = in.Table.Floats("mass error [ppm]")
		source = "calibrated"
	}
	if errs == nil {
		return qc.Skipf("evidence lacks a mass error column")
	}
	maxPPM := in.Param("max_ppm", 10)

	order, rows := rowsBySample(in.Table)
	order = sampleOrder(in.SampleOrder, order)

	anyFinite := false
	lo, hi := math.Inf(1), math.Inf(-1)
	perSample := make(map[core.SampleID][]float64, len(order))
	medians := make(map[core.SampleID]float64, len(order))
	for _, s := range order {
		values := finite(pick(errs, rows[s]))
		perSample[s] = values
		med := medianOf(values)
		medians[s] = med
		if math.IsNaN(med) {
			continue
		}
		anyFinite = true
		m.ScoreSample(s, qc.ScoreLinear(math.Abs(med), maxPPM, 0))
		for _, v := range values {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if !anyFinite {
		return qc.Skipf("mass error column holds no values")
	}

	const bins = 20
	dividers := binDividers(lo, hi, bins)
	labels := make([]string, bins)
	for i := range labels {
		labels[i] = fmt.Sprintf("%.2f", (dividers[i]+dividers[i+1])/2)
	}
	var series []qc.Series
	for _, s := range order {
		shares := histogramShares(perSample[s], dividers)
		if shares == nil {
			continue
		}
		series = append(series, qc.Series{Name: shortName(in, s), Labels: labels, Y: shares})
	}

	m.AddArtifact(qc.Artifact{
		Kind:   qc.ArtifactHistogram,
		Title:  "Precursor mass error [ppm]",
		XLabel: "Mass error [ppm]",
		YLabel: "Share of evidence",
		Series: series,
	})
	m.SetOut("median.per_file", medians)
	m.SetOut("source", source)
	return nil
}

// PeakWidth tracks chromatographic peak width per run and publishes the
// per-run medians for downstream units.
type PeakWidth struct {
	qc.Base
}

func NewPeakWidth() *PeakWidth {
	return &PeakWidth{Base: qc.NewBase(
		IDPeakWidth,
		"RT peak width",
		"Distribution of retention lengths per run. Runs are scored by how "+
			"far their median peak width drifts from the median run; "+
			"`tolerance_factor` scales how much drift is tolerated. Broadening "+
			"peaks usually announce a degrading column.",
		table.KindEvidence,
	)}
}

func (m *PeakWidth) Compute(in qc.Inputs) error {
	if in.Table == nil {
		return qc.Skipf("evidence table absent")
	}
	widths := in.Table.Floats("retention length")
	if widths == nil {
		return qc.Skipf("evidence lacks a retention length column")
	}
	factor := in.Param("tolerance_factor", 1)

	order, rows := rowsBySample(in.Table)
	order = sampleOrder(in.SampleOrder, order)

	perFile := make(map[core.SampleID]float64, len(order))
	var all []float64
	for _, s := range order {
		values := finite(pick(widths, rows[s]))
		perFile[s] = medianOf(values)
		all = append(all, values...)
	}
	center := medianOf(all)
	if math.IsNaN(center) || center <= 0 {
		return qc.Skipf("retention length column holds no values")
	}

	var series []qc.Series
	for _, s := range order {
		med := perFile[s]
		if !math.IsNaN(med) {
			m.ScoreSample(s, qc.ScoreDeviation(med, center, factor*center))
		}
		series = append(series, qc.Series{Name: shortName(in, s), Y: fiveNumber(pick(widths, rows[s]))})
	}

	m.AddArtifact(qc.Artifact{
		Kind:   qc.ArtifactBox,
		Title:  "Retention length [min]",
		XLabel: "Run",
		YLabel: "Peak width [min]",
		Series: series,
	})
	m.SetOut("per_file", perFile)
	m.SetOut("median.overall", center)
	return nil
}

// TransferQuality judges how much a run leans on identifications
// transferred from other runs, weighted by its peak width. Wide peaks
// make transferred matches less trustworthy, so the same transfer share
// costs a wide-peaked run more.
type TransferQuality struct {
	qc.Base
}

func NewTransferQuality() *TransferQuality {
	return &TransferQuality{Base: qc.NewBase(
		IDTransferQuality,
		"Match-between-runs share",
		"Share of evidence per run that was transferred from other runs "+
			"rather than identified by its own spectra, weighted by relative "+
			"peak width. The score reaches zero at `max_share`.",
		table.KindEvidence,
	)}
}

func (m *TransferQuality) Compute(in qc.Inputs) error {
	if in.Transferred == nil || in.Transferred.Rows() == 0 {
		return qc.Skipf("no transferred evidence")
	}
	if in.Table == nil {
		return qc.Skipf("evidence table absent")
	}
	raw, err := in.Out(IDPeakWidth, "per_file")
	if err != nil {
		return qc.Skipf("peak width unavailable: %v", err)
	}
	widths, ok := raw.(map[core.SampleID]float64)
	if !ok {
		return qc.Skipf("peak width output has unexpected shape")
	}
	maxShare := in.Param("max_share", 0.5)

	gOrder, gRows := rowsBySample(in.Table)
	tOrder, tRows := rowsBySample(in.Transferred)
	order := sampleOrder(in.SampleOrder, mergeOrder(gOrder, tOrder))

	var widthValues []float64
	for _, w := range widths {
		if !math.IsNaN(w) {
			widthValues = append(widthValues, w)
		}
	}
	medianWidth := medianOf(widthValues)

	labels := make([]string, 0, len(order))
	ys := make([]float64, 0, len(order))
	shares := make(map[core.SampleID]float64, len(order))
	for _, s := range order {
		genuine := float64(len(gRows[s]))
		transferred := float64(len(tRows[s]))
		total := genuine + transferred
		if total == 0 {
			continue
		}
		share := transferred / total
		shares[s] = share
		labels = append(labels, shortName(in, s))
		ys = append(ys, share*100)

		weight := 1.0
		if w, ok := widths[s]; ok && !math.IsNaN(w) && medianWidth > 0 {
			weight = w / medianWidth
		}
		m.ScoreSample(s, qc.ScoreLinear(share*weight, maxShare, 0))
	}

	m.AddArtifact(qc.Artifact{
		Kind:   qc.ArtifactBar,
		Title:  "Transferred evidence share",
		XLabel: "Run",
		YLabel: "Transferred [%]",
		Series: []qc.Series{{Name: "transferred", Labels: labels, Y: ys}},
	})
	m.SetOut("share.per_file", shares)
	return nil
}

// mergeOrder unions two sample orders, first-seen wins.
func mergeOrder(a, b []core.SampleID) []core.SampleID {
	seen := make(map[core.SampleID]bool, len(a)+len(b))
	out := make([]core.SampleID, 0, len(a)+len(b))
	for _, list := range [][]core.SampleID{a, b} {
		for _, s := range list {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// EvidenceContaminants scores the contaminant share of evidence per run.
type EvidenceContaminants struct {
	qc.Base
}

func NewEvidenceContaminants() *EvidenceContaminants {
	return &EvidenceContaminants{Base: qc.NewBase(
		IDEvidenceContaminants,
		"Contaminant share (evidence)",
		"Fraction of evidence per run that maps to contaminant proteins. "+
			"The score falls linearly and reaches zero at `max_fraction`. "+
			"Rising contaminant shares across runs mean the sample prep or "+
			"the LC is picking up carry-over.",
		table.KindEvidence,
	)}
}

func (m *EvidenceContaminants) Compute(in qc.Inputs) error {
	if in.Table == nil {
		return qc.Skipf("evidence table absent")
	}
	flags := in.Table.Bools("contaminant")
	if flags == nil {
		return qc.Skipf("evidence lacks a contaminant column")
	}
	maxFraction := in.Param("max_fraction", 0.05)

	order, rows := rowsBySample(in.Table)
	order = sampleOrder(in.SampleOrder, order)

	labels := make([]string, 0, len(order))
	ys := make([]float64, 0, len(order))
	perFile := make(map[core.SampleID]float64, len(order))
	for _, s := range order {
		total := float64(len(rows[s]))
		if total == 0 {
			continue
		}
		flagged := 0.0
		for _, i := range rows[s] {
			if flags[i] {
				flagged++
			}
		}
		share := flagged / total
		perFile[s] = share
		labels = append(labels, shortName(in, s))
		ys = append(ys, share*100)
		m.ScoreSample(s, qc.Clamp01(1-share/maxFraction))
	}

	m.AddArtifact(qc.Artifact{
		Kind:   qc.ArtifactBar,
		Title:  "Contaminant evidence share",
		XLabel: "Run",
		YLabel: "Contaminant share [%]",
		Series: []qc.Series{{Name: "contaminants", Labels: labels, Y: ys}},
	})
	m.SetOut("share.per_file", perFile)
	return nil
}
