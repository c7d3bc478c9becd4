package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"msqc/domain/qc"
	"msqc/domain/table"
)

// quantGroups returns the column groups that carry quantitative protein
// intensities, preferring the LFQ family when it is present.
func quantGroups(groups []table.ColumnGroup) []table.ColumnGroup {
	fams := table.GroupsByFamily(groups)
	if lfq := fams[table.FamilyLFQ]; len(lfq) > 0 {
		return lfq
	}
	if raw := fams[table.FamilyRaw]; len(raw) > 0 {
		return raw
	}
	return fams[table.FamilyReporter]
}

// ProteinContaminants scores how much of the total protein intensity is
// attributed to contaminant entries, per intensity group.
type ProteinContaminants struct {
	qc.Base
}

func NewProteinContaminants() *ProteinContaminants {
	return &ProteinContaminants{Base: qc.NewBase(
		IDProteinContaminants,
		"Contaminant intensity share (proteins)",
		"Share of summed protein intensity carried by contaminant entries, "+
			"per quantification group. The score falls linearly and reaches "+
			"zero at `max_fraction`.",
		table.KindProteinGroups,
	)}
}

func (m *ProteinContaminants) Compute(in qc.Inputs) error {
	if in.Table == nil {
		return qc.Skipf("protein groups table absent")
	}
	flags := in.Table.Bools("contaminant")
	if flags == nil {
		return qc.Skipf("protein groups lack a contaminant column")
	}
	groups := quantGroups(in.Groups)
	if len(groups) == 0 {
		return qc.Skipf("no protein intensity columns")
	}
	maxFraction := in.Param("max_fraction", 0.05)

	labels := make([]string, 0, len(groups))
	shares := make([]float64, 0, len(groups))
	scores := make([]float64, 0, len(groups))
	perGroup := make(map[string]float64, len(groups))
	for _, g := range groups {
		values := in.Table.Floats(g.Column)
		if values == nil {
			return fmt.Errorf("group column %q missing from protein groups", g.Column)
		}
		var total, flagged float64
		for i, v := range values {
			if math.IsNaN(v) || v <= 0 {
				continue
			}
			total += v
			if flags[i] {
				flagged += v
			}
		}
		share := math.NaN()
		if total > 0 {
			share = flagged / total
		}
		labels = append(labels, g.Short)
		shares = append(shares, share*100)
		perGroup[g.Short] = share
		if !math.IsNaN(share) {
			scores = append(scores, qc.Clamp01(1-share/maxFraction))
		}
	}
	if len(scores) > 0 {
		m.ScoreAggregate(meanOf(scores))
	}

	m.AddArtifact(qc.Artifact{
		Kind:   qc.ArtifactBar,
		Title:  "Contaminant intensity share",
		XLabel: "Group",
		YLabel: "Contaminant share [%]",
		Series: []qc.Series{{Name: "contaminants", Labels: labels, Y: shares}},
	})
	m.SetOut("share.per_group", perGroup)
	return nil
}

// ProteinIntensity checks that each quantification group's intensity
// distribution sits where the others do. A group whose median drifts an
// order of magnitude from the rest was loaded or measured differently.
type ProteinIntensity struct {
	qc.Base
}

func NewProteinIntensity() *ProteinIntensity {
	return &ProteinIntensity{Base: qc.NewBase(
		IDProteinIntensity,
		"Protein intensity distribution",
		"Log10 protein intensity distribution per quantification group. "+
			"Each group is scored by how far its median sits from the overall "+
			"median; `log10_tolerance` decades away scores zero.",
		table.KindProteinGroups,
	)}
}

func (m *ProteinIntensity) Compute(in qc.Inputs) error {
	if in.Table == nil {
		return qc.Skipf("protein groups table absent")
	}
	groups := quantGroups(in.Groups)
	if len(groups) == 0 {
		return qc.Skipf("no protein intensity columns")
	}
	tolerance := in.Param("log10_tolerance", 1)

	var pooled []float64
	logs := make([][]float64, len(groups))
	for i, g := range groups {
		values := in.Table.Floats(g.Column)
		if values == nil {
			return fmt.Errorf("group column %q missing from protein groups", g.Column)
		}
		logs[i] = log10Positive(values)
		pooled = append(pooled, logs[i]...)
	}
	center := medianOf(pooled)
	if math.IsNaN(center) {
		return qc.Skipf("no positive protein intensities")
	}

	var series []qc.Series
	scores := make([]float64, 0, len(groups))
	for i, g := range groups {
		med := medianOf(logs[i])
		if !math.IsNaN(med) {
			scores = append(scores, qc.ScoreDeviation(med, center, tolerance))
		}
		series = append(series, qc.Series{Name: g.Short, Y: fiveNumber(logs[i])})
	}
	if len(scores) > 0 {
		m.ScoreAggregate(meanOf(scores))
	}

	m.AddArtifact(qc.Artifact{
		Kind:   qc.ArtifactBox,
		Title:  "Protein intensity (log10)",
		XLabel: "Group",
		YLabel: "log10 intensity",
		Series: series,
	})
	m.SetOut("median.overall", center)
	return nil
}

// ProteinCounts compares how many proteins each group quantified against
// the best group of the run.
type ProteinCounts struct {
	qc.Base
}

func NewProteinCounts() *ProteinCounts {
	return &ProteinCounts{Base: qc.NewBase(
		IDProteinCounts,
		"Quantified proteins",
		"Number of protein groups with a positive intensity, per "+
			"quantification group. Scored against the best group, so uneven "+
			"sample loading or a failing run shows up directly.",
		table.KindProteinGroups,
	)}
}

func (m *ProteinCounts) Compute(in qc.Inputs) error {
	if in.Table == nil {
		return qc.Skipf("protein groups table absent")
	}
	groups := quantGroups(in.Groups)
	if len(groups) == 0 {
		return qc.Skipf("no protein intensity columns")
	}

	labels := make([]string, 0, len(groups))
	counts := make([]float64, 0, len(groups))
	best := 0.0
	perGroup := make(map[string]float64, len(groups))
	for _, g := range groups {
		values := in.Table.Floats(g.Column)
		if values == nil {
			return fmt.Errorf("group column %q missing from protein groups", g.Column)
		}
		n := 0.0
		for _, v := range values {
			if v > 0 && !math.IsNaN(v) {
				n++
			}
		}
		labels = append(labels, g.Short)
		counts = append(counts, n)
		perGroup[g.Short] = n
		if n > best {
			best = n
		}
	}
	if best > 0 {
		scores := make([]float64, 0, len(counts))
		for _, n := range counts {
			scores = append(scores, qc.ScoreBest(n, best))
		}
		m.ScoreAggregate(meanOf(scores))
	}

	m.AddArtifact(qc.Artifact{
		Kind:   qc.ArtifactBar,
		Title:  "Quantified proteins",
		XLabel: "Group",
		YLabel: "Proteins",
		Series: []qc.Series{{Name: "proteins", Labels: labels, Y: counts}},
	})
	m.SetOut("count.per_group", perGroup)
	m.SetOut("rows.total", in.Table.Rows())
	return nil
}

// ProteinCorrelation measures how well quantification groups agree with
// each other. Replicates of one experiment should correlate tightly;
// a group that correlates poorly with every other one is suspect.
type ProteinCorrelation struct {
	qc.Base
}

func NewProteinCorrelation() *ProteinCorrelation {
	return &ProteinCorrelation{Base: qc.NewBase(
		IDProteinCorrelation,
		"Protein intensity correlation",
		"Pearson correlation of log10 protein intensities between every "+
			"pair of quantification groups. Each group is scored with the "+
			"median of its correlations against the others.",
		table.KindProteinGroups,
	)}
}

func (m *ProteinCorrelation) Compute(in qc.Inputs) error {
	if in.Table == nil {
		return qc.Skipf("protein groups table absent")
	}
	groups := quantGroups(in.Groups)
	if len(groups) < 2 {
		return qc.Skipf("need at least two protein intensity groups")
	}
	minRows := int(in.Param("min_rows", 3))

	columns := make([][]float64, len(groups))
	for i, g := range groups {
		values := in.Table.Floats(g.Column)
		if values == nil {
			return fmt.Errorf("group column %q missing from protein groups", g.Column)
		}
		columns[i] = values
	}

	corr := make([][]float64, len(groups))
	for i := range corr {
		corr[i] = make([]float64, len(groups))
		corr[i][i] = 1
	}
	for i := 0; i < len(groups); i++ {
		for j := i + 1; j < len(groups); j++ {
			r := pairCorrelation(columns[i], columns[j], minRows)
			corr[i][j] = r
			corr[j][i] = r
		}
	}

	scores := make([]float64, 0, len(groups))
	for i := range groups {
		others := make([]float64, 0, len(groups)-1)
		for j := range groups {
			if j != i && !math.IsNaN(corr[i][j]) {
				others = append(others, corr[i][j])
			}
		}
		med := medianOf(others)
		if !math.IsNaN(med) {
			scores = append(scores, qc.Clamp01(med))
		}
	}
	if len(scores) == 0 {
		return qc.Skipf("too few overlapping proteins to correlate")
	}
	m.ScoreAggregate(meanOf(scores))

	headers := append([]string{""}, shortLabels(groups)...)
	rows := make([][]string, 0, len(groups))
	for i, g := range groups {
		row := make([]string, 0, len(groups)+1)
		row = append(row, g.Short)
		for j := range groups {
			if math.IsNaN(corr[i][j]) {
				row = append(row, "")
			} else {
				row = append(row, fmt.Sprintf("%.3f", corr[i][j]))
			}
		}
		rows = append(rows, row)
	}
	m.AddArtifact(qc.Artifact{
		Kind:    qc.ArtifactTable,
		Title:   "Pairwise intensity correlation",
		Headers: headers,
		Rows:    rows,
	})
	return nil
}

// pairCorrelation computes Pearson correlation over the rows where both
// columns hold a positive intensity. NaN below the row floor.
func pairCorrelation(a, b []float64, minRows int) float64 {
	xs := make([]float64, 0, len(a))
	ys := make([]float64, 0, len(a))
	for i := range a {
		if a[i] > 0 && b[i] > 0 && !math.IsNaN(a[i]) && !math.IsNaN(b[i]) {
			xs = append(xs, math.Log10(a[i]))
			ys = append(ys, math.Log10(b[i]))
		}
	}
	if len(xs) < minRows {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

func shortLabels(groups []table.ColumnGroup) []string {
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.Short)
	}
	return out
}
