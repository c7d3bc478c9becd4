package metrics

import (
	"math"

	"msqc/domain/core"
	"msqc/domain/qc"
	"msqc/domain/table"
)

// TopN reconstructs how many MS/MS events each duty cycle fired. Cycles
// that never reach the configured TopN mean the instrument starved for
// precursors or the dynamic exclusion is set too wide.
type TopN struct {
	qc.Base
}

func NewTopN() *TopN {
	return &TopN{Base: qc.NewBase(
		IDTopN,
		"MS/MS per duty cycle (TopN)",
		"Highest scan event number reached per duty cycle and run. Runs are "+
			"scored against the best run's TopN, with the median cycle fill "+
			"plotted alongside to show how often the limit was actually hit.",
		table.KindMSMSScans,
	)}
}

func (m *TopN) Compute(in qc.Inputs) error {
	if in.Table == nil {
		return qc.Skipf("msmsScans table absent")
	}
	events := in.Table.Floats("scan event number")
	if events == nil {
		return qc.Skipf("msmsScans lacks a scan event number column")
	}

	order, rows := rowsBySample(in.Table)
	order = sampleOrder(in.SampleOrder, order)

	topn := make(map[core.SampleID]float64, len(order))
	fill := make(map[core.SampleID]float64, len(order))
	best := 0.0
	for _, s := range order {
		maxima := cycleMaxima(pick(events, rows[s]))
		if len(maxima) == 0 {
			topn[s] = math.NaN()
			fill[s] = math.NaN()
			continue
		}
		top := 0.0
		for _, v := range maxima {
			if v > top {
				top = v
			}
		}
		topn[s] = top
		fill[s] = medianOf(maxima)
		if top > best {
			best = top
		}
	}
	if best == 0 {
		return qc.Skipf("scan event number column holds no values")
	}

	labels := make([]string, 0, len(order))
	tops := make([]float64, 0, len(order))
	fills := make([]float64, 0, len(order))
	for _, s := range order {
		labels = append(labels, shortName(in, s))
		tops = append(tops, topn[s])
		fills = append(fills, fill[s])
		if !math.IsNaN(topn[s]) {
			m.ScoreSample(s, qc.ScoreBest(topn[s], best))
		}
	}

	m.AddArtifact(qc.Artifact{
		Kind:   qc.ArtifactBar,
		Title:  "MS/MS events per duty cycle",
		XLabel: "Run",
		YLabel: "Scan events",
		Series: []qc.Series{
			{Name: "TopN", Labels: labels, Y: tops},
			{Name: "median fill", Labels: labels, Y: fills},
		},
	})
	m.SetOut("topn.per_file", topn)
	return nil
}

// cycleMaxima splits a scan event sequence into duty cycles and returns
// each cycle's highest event number. A cycle ends when the event number
// stops increasing.
func cycleMaxima(events []float64) []float64 {
	var maxima []float64
	cur := math.NaN()
	for _, v := range events {
		if math.IsNaN(v) {
			continue
		}
		if !math.IsNaN(cur) && v <= cur {
			maxima = append(maxima, cur)
			cur = v
			continue
		}
		if math.IsNaN(cur) || v > cur {
			cur = v
		}
	}
	if !math.IsNaN(cur) {
		maxima = append(maxima, cur)
	}
	return maxima
}

// InjectionTime watches ion injection times per run. Medians creeping
// toward the configured maximum mean the ion source delivers fewer ions
// and spectra quality is about to fall.
type InjectionTime struct {
	qc.Base
}

func NewInjectionTime() *InjectionTime {
	return &InjectionTime{Base: qc.NewBase(
		IDInjectionTime,
		"Ion injection time",
		"Distribution of MS/MS ion injection times per run. The score falls "+
			"linearly with the median and reaches zero at `max_ms`.",
		table.KindMSMSScans,
	)}
}

func (m *InjectionTime) Compute(in qc.Inputs) error {
	if in.Table == nil {
		return qc.Skipf("msmsScans table absent")
	}
	times := in.Table.Floats("ion injection time")
	if times == nil {
		return qc.Skipf("msmsScans lacks an ion injection time column")
	}
	maxMS := in.Param("max_ms", 100)

	order, rows := rowsBySample(in.Table)
	order = sampleOrder(in.SampleOrder, order)

	anyFinite := false
	var series []qc.Series
	medians := make(map[core.SampleID]float64, len(order))
	for _, s := range order {
		values := pick(times, rows[s])
		med := medianOf(values)
		medians[s] = med
		if !math.IsNaN(med) {
			anyFinite = true
			m.ScoreSample(s, qc.ScoreLinear(med, maxMS, 0))
		}
		series = append(series, qc.Series{Name: shortName(in, s), Y: fiveNumber(values)})
	}
	if !anyFinite {
		return qc.Skipf("ion injection time column holds no values")
	}

	m.AddArtifact(qc.Artifact{
		Kind:   qc.ArtifactBox,
		Title:  "Ion injection time [ms]",
		XLabel: "Run",
		YLabel: "Injection time [ms]",
		Series: series,
	})
	m.SetOut("median.per_file", medians)
	return nil
}

// ScanIntensity tracks the total ion current per run so a fading spray
// or a clogged emitter shows up even when identifications still succeed.
type ScanIntensity struct {
	qc.Base
}

func NewScanIntensity() *ScanIntensity {
	return &ScanIntensity{Base: qc.NewBase(
		IDScanIntensity,
		"Total ion current",
		"Median log10 total ion current per run, scored by deviation from "+
			"the median run. A run drifting `log10_tolerance` decades away "+
			"scores zero.",
		table.KindMSMSScans,
	)}
}

func (m *ScanIntensity) Compute(in qc.Inputs) error {
	if in.Table == nil {
		return qc.Skipf("msmsScans table absent")
	}
	tic := in.Table.Floats("total ion current")
	if tic == nil {
		return qc.Skipf("msmsScans lacks a total ion current column")
	}
	tolerance := in.Param("log10_tolerance", 1)

	order, rows := rowsBySample(in.Table)
	order = sampleOrder(in.SampleOrder, order)

	var pooled []float64
	logsPerFile := make(map[core.SampleID][]float64, len(order))
	for _, s := range order {
		logs := log10Positive(pick(tic, rows[s]))
		logsPerFile[s] = logs
		pooled = append(pooled, logs...)
	}
	center := medianOf(pooled)
	if math.IsNaN(center) {
		return qc.Skipf("total ion current column holds no values")
	}

	labels := make([]string, 0, len(order))
	ys := make([]float64, 0, len(order))
	medians := make(map[core.SampleID]float64, len(order))
	for _, s := range order {
		med := medianOf(logsPerFile[s])
		medians[s] = med
		labels = append(labels, shortName(in, s))
		ys = append(ys, med)
		if !math.IsNaN(med) {
			m.ScoreSample(s, qc.ScoreDeviation(med, center, tolerance))
		}
	}

	m.AddArtifact(qc.Artifact{
		Kind:   qc.ArtifactLine,
		Title:  "Total ion current (log10)",
		XLabel: "Run",
		YLabel: "log10 TIC",
		Series: []qc.Series{{Name: "median TIC", Labels: labels, Y: ys}},
	})
	m.SetOut("median.per_file", medians)
	m.SetOut("median.overall", center)
	return nil
}
