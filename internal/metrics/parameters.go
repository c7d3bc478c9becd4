package metrics

import (
	"fmt"

	"msqc/domain/qc"
	"msqc/domain/table"
)

// ParameterListing reproduces the acquisition and search settings as a
// table so a reader can spot misconfigured runs. It never scores.
type ParameterListing struct {
	qc.Base
}

func NewParameterListing() *ParameterListing {
	return &ParameterListing{Base: qc.NewBase(
		IDParameterListing,
		"Search parameters",
		"Lists the search and quantification settings the run was produced "+
			"with. Review them against the acquisition protocol; unexpected "+
			"values here usually explain oddities in the metrics below.",
		table.KindParameters,
	)}
}

func (m *ParameterListing) Compute(in qc.Inputs) error {
	if in.Table == nil {
		return qc.Skipf("parameters table absent")
	}
	names := in.Table.Strings("parameter")
	values := in.Table.Strings("value")
	if names == nil || values == nil {
		return fmt.Errorf("parameters table lacks parameter/value columns")
	}
	rows := make([][]string, 0, len(names))
	for i := range names {
		rows = append(rows, []string{names[i], values[i]})
	}
	m.AddArtifact(qc.Artifact{
		Kind:    qc.ArtifactTable,
		Title:   "Search parameters",
		Headers: []string{"Parameter", "Value"},
		Rows:    rows,
	})
	m.SetOut("count", len(rows))
	return nil
}
