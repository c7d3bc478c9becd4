package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"msqc/domain/qc"
	"msqc/ports"
)

//go:embed templates/report.html.tmpl
var templateFiles embed.FS

// HTMLFile is the report file name inside the output directory.
const HTMLFile = "report.html"

// HTML renders the finished report as a single self-contained page:
// the score heatmap up top, one section per metric unit below it.
type HTML struct {
	tmpl *template.Template
}

// NewHTML parses the embedded report template.
func NewHTML() (*HTML, error) {
	funcMap := template.FuncMap{
		"chart": artifactSVG,
	}
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templateFiles, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse report template: %w", err)
	}
	return &HTML{tmpl: tmpl}, nil
}

func (h *HTML) Format() string { return "html" }

// Render writes report.html into the output directory.
func (h *HTML) Render(outDir string, report *ports.Report) error {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "report.html.tmpl", buildView(report)); err != nil {
		return fmt.Errorf("failed to render html report: %w", err)
	}
	path := filepath.Join(outDir, HTMLFile)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write html report: %w", err)
	}
	return nil
}

type reportView struct {
	RunID       string
	Source      string
	GeneratedAt string
	Samples     []string
	Heat        []heatRow
	Units       []unitView
	Warnings    []string
}

type heatRow struct {
	Title string
	Cells []heatCell
}

type heatCell struct {
	Text  string
	Color string
}

type unitView struct {
	Anchor    string
	Title     string
	Status    string
	Score     string
	Reason    string
	HelpHTML  template.HTML
	Artifacts []qc.Artifact
}

func buildView(report *ports.Report) reportView {
	v := reportView{
		RunID:       string(report.RunID),
		Source:      report.Source,
		GeneratedAt: report.GeneratedAt.UTC().Format(time.RFC3339),
		Warnings:    report.Warnings,
	}

	if hm := report.HeatMap; hm != nil {
		v.Samples = hm.Samples
		for _, id := range hm.MetricIDs {
			row := heatRow{Title: hm.Titles[id]}
			for _, sample := range hm.Samples {
				var cell heatCell
				if score, ok := hm.Get(id, sample); ok {
					cell.Text = fmt.Sprintf("%.2f", score)
					cell.Color = scoreColor(score)
				}
				row.Cells = append(row.Cells, cell)
			}
			v.Heat = append(v.Heat, row)
		}
	}

	for _, m := range report.Units {
		u := unitView{
			Anchor:    strings.ReplaceAll(string(m.ID()), ".", "-"),
			Title:     m.Title(),
			Status:    m.Status().String(),
			HelpHTML:  renderMarkdown(m.Help()),
			Artifacts: m.Artifacts(),
		}
		if m.Status() == qc.StatusScored {
			if mean := m.Scores().Mean(); !math.IsNaN(mean) {
				u.Score = fmt.Sprintf("%.2f", mean)
			}
		}
		if reason := m.Reason(); reason != nil {
			u.Reason = reason.Error()
		}
		v.Units = append(v.Units, u)
	}
	return v
}

func renderMarkdown(src string) template.HTML {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	return template.HTML(markdown.ToHTML([]byte(src), p, renderer))
}

// scoreColor maps a 0..1 score onto a red-yellow-green ramp, red at zero.
func scoreColor(score float64) string {
	score = math.Max(0, math.Min(1, score))
	var from, to [3]int
	t := score * 2
	if score < 0.5 {
		from, to = [3]int{0xd7, 0x30, 0x27}, [3]int{0xfe, 0xe0, 0x8b}
	} else {
		from, to = [3]int{0xfe, 0xe0, 0x8b}, [3]int{0x1a, 0x98, 0x50}
		t -= 1
	}
	var rgb [3]int
	for i := range rgb {
		rgb[i] = from[i] + int(math.Round(t*float64(to[i]-from[i])))
	}
	return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2])
}
