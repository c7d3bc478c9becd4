package qc

// ArtifactKind names the plot family a renderer should use. The pipeline
// describes plots declaratively; rendering primitives live outside core.
type ArtifactKind string

const (
	ArtifactHistogram ArtifactKind = "histogram"
	ArtifactBox       ArtifactKind = "box"
	ArtifactLine      ArtifactKind = "line"
	ArtifactScatter   ArtifactKind = "scatter"
	ArtifactBar       ArtifactKind = "bar"
	ArtifactTable     ArtifactKind = "table"
)

// Series is one named data vector of a plot artifact. Labels carries the
// category axis for bar plots; X/Y carry numeric axes otherwise.
type Series struct {
	Name   string    `json:"name"`
	Labels []string  `json:"labels,omitempty"`
	X      []float64 `json:"x,omitempty"`
	Y      []float64 `json:"y,omitempty"`
}

// Artifact is a declarative visual artifact produced by a metric unit and
// handed, in registry order, to whatever renderer the report requested.
type Artifact struct {
	Kind   ArtifactKind `json:"kind"`
	Title  string       `json:"title"`
	XLabel string       `json:"x_label,omitempty"`
	YLabel string       `json:"y_label,omitempty"`
	Series []Series     `json:"series,omitempty"`

	// Headers/Rows carry tabular artifacts (Kind == ArtifactTable).
	Headers []string   `json:"headers,omitempty"`
	Rows    [][]string `json:"rows,omitempty"`
}
