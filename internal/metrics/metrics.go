// Package metrics holds the built-in metric units, grouped by the
// canonical table they read. Units only transform data they are handed;
// table loading, ordering and degradation handling live in the
// orchestrator and the qc contract.
package metrics

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"msqc/domain/core"
	"msqc/domain/qc"
	"msqc/domain/table"
)

// Metric identifiers, in registry order.
const (
	IDParameterListing     = core.MetricID("par.settings")
	IDIdentificationRate   = core.MetricID("sum.msms_id_rate")
	IDProteinContaminants  = core.MetricID("pg.contaminants")
	IDProteinIntensity     = core.MetricID("pg.intensity")
	IDProteinCounts        = core.MetricID("pg.counts")
	IDProteinCorrelation   = core.MetricID("pg.correlation")
	IDPeptideCounts        = core.MetricID("evd.peptide_counts")
	IDPeptideIntensity     = core.MetricID("evd.intensity")
	IDChargeDistribution   = core.MetricID("evd.charge")
	IDMissedCleavages      = core.MetricID("evd.missed_cleavages")
	IDMassError            = core.MetricID("evd.mass_error")
	IDPeakWidth            = core.MetricID("evd.rt_peak_width")
	IDTransferQuality      = core.MetricID("evd.mbr_transfer")
	IDEvidenceContaminants = core.MetricID("evd.contaminants")
	IDMSMSMissedCleavages  = core.MetricID("msms.missed_cleavages")
	IDFragmentMassError    = core.MetricID("msms.frag_mass_error")
	IDTopN                 = core.MetricID("mss.topn")
	IDInjectionTime        = core.MetricID("mss.injection_time")
	IDScanIntensity        = core.MetricID("mss.intensity")
)

// All constructs every built-in unit in report order.
func All() []qc.Metric {
	return []qc.Metric{
		NewParameterListing(),
		NewIdentificationRate(),
		NewProteinContaminants(),
		NewProteinIntensity(),
		NewProteinCounts(),
		NewProteinCorrelation(),
		NewPeptideCounts(),
		NewPeptideIntensity(),
		NewChargeDistribution(),
		NewMissedCleavages(),
		NewMassError(),
		NewPeakWidth(),
		NewTransferQuality(),
		NewEvidenceContaminants(),
		NewMSMSMissedCleavages(),
		NewFragmentMassError(),
		NewTopN(),
		NewInjectionTime(),
		NewScanIntensity(),
	}
}

// NewRegistry builds a registry holding every built-in unit.
func NewRegistry() *qc.Registry {
	reg := qc.NewRegistry()
	for _, m := range All() {
		reg.MustAdd(m)
	}
	return reg
}

// defaultThresholds lists each unit's tunable thresholds. The resolver of
// the run configuration folds these under any user overrides so the
// re-emitted config shows every knob.
var defaultThresholds = map[core.MetricID]map[string]float64{
	IDIdentificationRate:   {"bad": 20, "good": 35},
	IDProteinContaminants:  {"max_fraction": 0.05},
	IDProteinIntensity:     {"log10_tolerance": 1},
	IDProteinCorrelation:   {"min_rows": 3},
	IDPeptideIntensity:     {"log10_tolerance": 1},
	IDChargeDistribution:   {"tolerance": 0.25},
	IDMassError:            {"max_ppm": 10},
	IDPeakWidth:            {"tolerance_factor": 1},
	IDTransferQuality:      {"max_share": 0.5},
	IDEvidenceContaminants: {"max_fraction": 0.05},
	IDFragmentMassError:    {"max_ppm": 20, "max_da": 0.5},
	IDInjectionTime:        {"max_ms": 100},
	IDScanIntensity:        {"log10_tolerance": 1},
}

// DefaultThresholds returns a copy of one unit's default thresholds.
func DefaultThresholds(id core.MetricID) map[string]float64 {
	out := make(map[string]float64)
	for k, v := range defaultThresholds[id] {
		out[k] = v
	}
	return out
}

// rowsBySample partitions a table's row indices by the raw file column,
// keeping first-seen order.
func rowsBySample(tbl *table.Table) ([]core.SampleID, map[core.SampleID][]int) {
	files := tbl.Strings("raw file")
	rows := make(map[core.SampleID][]int)
	var order []core.SampleID
	for i, f := range files {
		id := core.SampleID(f)
		if _, seen := rows[id]; !seen {
			order = append(order, id)
		}
		rows[id] = append(rows[id], i)
	}
	return order, rows
}

// sampleOrder filters the report sample order down to the samples present,
// appending any stragglers the report order does not know.
func sampleOrder(reportOrder, present []core.SampleID) []core.SampleID {
	seen := make(map[core.SampleID]bool, len(present))
	for _, s := range present {
		seen[s] = true
	}
	out := make([]core.SampleID, 0, len(present))
	for _, s := range reportOrder {
		if seen[s] {
			out = append(out, s)
			seen[s] = false
		}
	}
	for _, s := range present {
		if seen[s] {
			out = append(out, s)
		}
	}
	return out
}

// shortName translates a sample identifier for artifact labels.
func shortName(in qc.Inputs, s core.SampleID) string {
	if short, ok := in.Samples[s]; ok {
		return short
	}
	return string(s)
}

// finite drops NaN and infinite values.
func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// pick returns the values at the given row indices.
func pick(values []float64, idx []int) []float64 {
	out := make([]float64, 0, len(idx))
	for _, i := range idx {
		out = append(out, values[i])
	}
	return out
}

// medianOf returns the median of the finite values, NaN when none remain.
func medianOf(values []float64) float64 {
	vals := finite(values)
	if len(vals) == 0 {
		return math.NaN()
	}
	med, err := stats.Median(vals)
	if err != nil {
		return math.NaN()
	}
	return med
}

// meanOf returns the mean of the finite values, NaN when none remain.
func meanOf(values []float64) float64 {
	vals := finite(values)
	if len(vals) == 0 {
		return math.NaN()
	}
	mean, err := stats.Mean(vals)
	if err != nil {
		return math.NaN()
	}
	return mean
}

// log10Positive keeps strictly positive finite values, log10-transformed.
func log10Positive(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v > 0 && !math.IsInf(v, 0) {
			out = append(out, math.Log10(v))
		}
	}
	return out
}

// fiveNumber reduces values to min, lower quartile, median, upper
// quartile, max for box artifacts. Nil when no finite values remain.
func fiveNumber(values []float64) []float64 {
	vals := finite(values)
	if len(vals) == 0 {
		return nil
	}
	sort.Float64s(vals)
	q, err := stats.Quartile(vals)
	if err != nil {
		med, _ := stats.Median(vals)
		return []float64{vals[0], vals[0], med, vals[len(vals)-1], vals[len(vals)-1]}
	}
	return []float64{vals[0], q.Q1, q.Q2, q.Q3, vals[len(vals)-1]}
}

// binDividers spans [lo, hi] with n equal-width bins. The top divider is
// nudged above hi so the maximum value still lands inside the last bin.
func binDividers(lo, hi float64, n int) []float64 {
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	dividers := make([]float64, n+1)
	step := (hi - lo) / float64(n)
	for i := range dividers {
		dividers[i] = lo + step*float64(i)
	}
	dividers[n] = math.Nextafter(hi, math.Inf(1))
	return dividers
}

// histogramShares bins the finite values against shared dividers and
// returns each bin's share of the sample, nil when no finite values
// remain. Every value must lie within the divider range.
func histogramShares(values []float64, dividers []float64) []float64 {
	vals := finite(values)
	if len(vals) == 0 {
		return nil
	}
	sort.Float64s(vals)
	counts := stat.Histogram(nil, dividers, vals, nil)
	for i := range counts {
		counts[i] /= float64(len(vals))
	}
	return counts
}
