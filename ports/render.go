package ports

import (
	"time"

	"msqc/domain/core"
	"msqc/domain/qc"
)

// Report is the complete, ordered bundle a renderer consumes: every unit
// in registry order with its artifacts, plus the assembled score matrix.
type Report struct {
	RunID       core.RunID
	Source      string
	GeneratedAt time.Time
	Units       []qc.Metric
	HeatMap     *qc.HeatMap
	Warnings    []string
}

// RenderPort writes one human-facing rendering of a finished report.
type RenderPort interface {
	// Format names the output format this renderer produces ("html",
	// "xlsx").
	Format() string
	// Render writes the rendering into the output directory.
	Render(outDir string, report *Report) error
}
