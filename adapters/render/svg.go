package render

import (
	"fmt"
	"html/template"
	"math"
	"strings"

	"msqc/domain/qc"
)

// Plot geometry shared by every inline chart.
const (
	plotWidth  = 640
	plotHeight = 240
	padLeft    = 56
	padRight   = 16
	padTop     = 18
	padBottom  = 42
)

var seriesPalette = []string{
	"#4e79a7", "#f28e2b", "#59a14f", "#e15759",
	"#76b7b2", "#edc949", "#af7aa1", "#9c755f",
}

func seriesColor(i int) string {
	return seriesPalette[i%len(seriesPalette)]
}

// artifactSVG draws one declarative artifact as an inline chart. Table
// artifacts are rendered by the template instead and return empty markup.
func artifactSVG(a qc.Artifact) template.HTML {
	switch a.Kind {
	case qc.ArtifactBar, qc.ArtifactHistogram:
		return svgBars(a)
	case qc.ArtifactBox:
		return svgBoxes(a)
	case qc.ArtifactLine, qc.ArtifactScatter:
		return svgLines(a)
	default:
		return ""
	}
}

type canvas struct {
	b strings.Builder
}

func newCanvas() *canvas {
	c := &canvas{}
	fmt.Fprintf(&c.b, `<svg viewBox="0 0 %d %d" class="chart" role="img">`, plotWidth, plotHeight)
	return c
}

func (c *canvas) rect(x, y, w, h float64, fill string) {
	fmt.Fprintf(&c.b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>`, x, y, w, h, fill)
}

func (c *canvas) line(x1, y1, x2, y2 float64, stroke string, width float64) {
	fmt.Fprintf(&c.b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="%.1f"/>`, x1, y1, x2, y2, stroke, width)
}

func (c *canvas) text(x, y float64, anchor, s string) {
	fmt.Fprintf(&c.b, `<text x="%.1f" y="%.1f" text-anchor="%s">%s</text>`, x, y, anchor, template.HTMLEscapeString(s))
}

func (c *canvas) polyline(points []string, stroke string) {
	if len(points) < 2 {
		return
	}
	fmt.Fprintf(&c.b, `<polyline points="%s" fill="none" stroke="%s" stroke-width="1.5"/>`, strings.Join(points, " "), stroke)
}

func (c *canvas) done() template.HTML {
	c.b.WriteString(`</svg>`)
	return template.HTML(c.b.String())
}

// yScale maps a data range onto the vertical plot area, top-down.
type yScale struct {
	lo, hi float64
}

func newYScale(lo, hi float64) yScale {
	if hi <= lo {
		hi = lo + 1
	}
	return yScale{lo: lo, hi: hi}
}

func (s yScale) y(v float64) float64 {
	span := float64(plotHeight - padTop - padBottom)
	return float64(padTop) + span*(1-(v-s.lo)/(s.hi-s.lo))
}

func (s yScale) axis(c *canvas) {
	x0 := float64(padLeft)
	c.line(x0, float64(padTop), x0, float64(plotHeight-padBottom), "#999", 1)
	c.line(x0, float64(plotHeight-padBottom), float64(plotWidth-padRight), float64(plotHeight-padBottom), "#999", 1)
	for i := 0; i <= 4; i++ {
		v := s.lo + (s.hi-s.lo)*float64(i)/4
		c.text(x0-6, s.y(v)+4, "end", trimNumber(v))
	}
}

func trimNumber(v float64) string {
	if math.Abs(v) >= 10000 || (v != 0 && math.Abs(v) < 0.01) {
		return fmt.Sprintf("%.1e", v)
	}
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

func truncateLabel(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

// svgBars draws grouped vertical bars. Categories come from the first
// series' labels; every series contributes one bar per category.
func svgBars(a qc.Artifact) template.HTML {
	if len(a.Series) == 0 || len(a.Series[0].Labels) == 0 {
		return ""
	}
	labels := a.Series[0].Labels

	hi := 0.0
	for _, s := range a.Series {
		for _, v := range s.Y {
			if !math.IsNaN(v) && v > hi {
				hi = v
			}
		}
	}
	sc := newYScale(0, hi)

	c := newCanvas()
	sc.axis(c)

	span := float64(plotWidth - padLeft - padRight)
	group := span / float64(len(labels))
	bar := group * 0.8 / float64(len(a.Series))
	base := float64(plotHeight - padBottom)

	for gi, label := range labels {
		gx := float64(padLeft) + group*float64(gi) + group*0.1
		for si, s := range a.Series {
			if gi >= len(s.Y) || math.IsNaN(s.Y[gi]) {
				continue
			}
			top := sc.y(s.Y[gi])
			c.rect(gx+bar*float64(si), top, bar, base-top, seriesColor(si))
		}
		c.text(gx+group*0.4, base+14, "middle", truncateLabel(label, 14))
	}
	legend(c, a.Series)
	return c.done()
}

// svgBoxes draws one box per series from its five-number summary
// (min, lower quartile, median, upper quartile, max).
func svgBoxes(a qc.Artifact) template.HTML {
	type box struct {
		name string
		v    []float64
	}
	var boxes []box
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range a.Series {
		if len(s.Y) != 5 || math.IsNaN(s.Y[0]) {
			continue
		}
		boxes = append(boxes, box{name: s.Name, v: s.Y})
		lo = math.Min(lo, s.Y[0])
		hi = math.Max(hi, s.Y[4])
	}
	if len(boxes) == 0 {
		return ""
	}
	sc := newYScale(lo, hi)

	c := newCanvas()
	sc.axis(c)

	span := float64(plotWidth - padLeft - padRight)
	group := span / float64(len(boxes))
	width := math.Min(group*0.5, 48)
	base := float64(plotHeight - padBottom)

	for i, b := range boxes {
		cx := float64(padLeft) + group*(float64(i)+0.5)
		fill := seriesColor(i)
		c.line(cx, sc.y(b.v[0]), cx, sc.y(b.v[4]), "#666", 1)
		c.rect(cx-width/2, sc.y(b.v[3]), width, sc.y(b.v[1])-sc.y(b.v[3]), fill)
		c.line(cx-width/2, sc.y(b.v[2]), cx+width/2, sc.y(b.v[2]), "#222", 2)
		c.text(cx, base+14, "middle", truncateLabel(b.name, 14))
	}
	return c.done()
}

// svgLines draws each series as a polyline; NaN samples break the line.
// Series without explicit X values are spaced evenly and the first
// series' labels become the category axis.
func svgLines(a qc.Artifact) template.HTML {
	xAt := func(s qc.Series, i int) float64 {
		if i < len(s.X) {
			return s.X[i]
		}
		return float64(i)
	}

	xlo, xhi := math.Inf(1), math.Inf(-1)
	ylo, yhi := math.Inf(1), math.Inf(-1)
	for _, s := range a.Series {
		for i := range s.Y {
			x := xAt(s, i)
			if math.IsNaN(x) || math.IsNaN(s.Y[i]) {
				continue
			}
			xlo = math.Min(xlo, x)
			xhi = math.Max(xhi, x)
			ylo = math.Min(ylo, s.Y[i])
			yhi = math.Max(yhi, s.Y[i])
		}
	}
	if math.IsInf(xlo, 1) {
		return ""
	}
	if xhi <= xlo {
		xhi = xlo + 1
	}
	sc := newYScale(ylo, yhi)

	c := newCanvas()
	sc.axis(c)

	span := float64(plotWidth - padLeft - padRight)
	xpos := func(v float64) float64 {
		return float64(padLeft) + span*(v-xlo)/(xhi-xlo)
	}

	for si, s := range a.Series {
		var run []string
		for i := range s.Y {
			x := xAt(s, i)
			if math.IsNaN(x) || math.IsNaN(s.Y[i]) {
				c.polyline(run, seriesColor(si))
				run = nil
				continue
			}
			run = append(run, fmt.Sprintf("%.1f,%.1f", xpos(x), sc.y(s.Y[i])))
		}
		c.polyline(run, seriesColor(si))
	}

	if len(a.Series) > 0 && len(a.Series[0].X) == 0 {
		base := float64(plotHeight - padBottom)
		for i, label := range a.Series[0].Labels {
			c.text(xpos(float64(i)), base+14, "middle", truncateLabel(label, 14))
		}
	}
	legend(c, a.Series)
	return c.done()
}

func legend(c *canvas, series []qc.Series) {
	if len(series) < 2 {
		return
	}
	x := float64(padLeft) + 8
	y := float64(padTop) + 4
	for i, s := range series {
		if s.Name == "" {
			continue
		}
		c.rect(x, y, 10, 10, seriesColor(i))
		c.text(x+14, y+9, "start", truncateLabel(s.Name, 22))
		x += 14 + float64(len(truncateLabel(s.Name, 22)))*6.5 + 16
	}
}
