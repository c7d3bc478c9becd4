package mqtxt

import (
	"strings"

	"go.uber.org/zap"

	"msqc/domain/table"
)

// Source adapts the txt directory reader to the orchestrator's source
// port, folding mqpar.xml metadata into the parameters table.
type Source struct {
	r *Reader
}

// NewSource creates a source over a MaxQuant txt directory.
func NewSource(dir string, log *zap.SugaredLogger) *Source {
	return &Source{r: NewReader(dir, log)}
}

func (s *Source) Describe() string {
	return "maxquant txt directory " + s.r.Dir()
}

func (s *Source) Check() error {
	return s.r.Check()
}

// Table reads one canonical kind. The parameters table is supplemented
// with mqpar.xml metadata when that file sits next to the txt directory.
func (s *Source) Table(kind table.Kind) (*table.Table, error) {
	tbl, err := s.r.Read(kind)
	if err != nil || kind != table.KindParameters || tbl == nil {
		return tbl, err
	}
	return s.withAuxParameters(tbl), nil
}

// auxKeys maps mqpar.xml entries to the parameter rows they supplement.
// Only settings the txt parameters table routinely lacks are carried.
var auxKeys = []struct {
	mqpar, parameter string
}{
	{"maxQuantVersion", "mqpar version"},
	{"fastaFiles", "Fasta files"},
	{"matchBetweenRuns", "Match between runs (mqpar)"},
}

func (s *Source) withAuxParameters(tbl *table.Table) *table.Table {
	meta, err := s.r.ReadMQPar()
	if err != nil {
		// Auxiliary only; a broken mqpar.xml never blocks a run.
		s.r.log.Warnw("ignoring unreadable mqpar.xml", "error", err)
		return tbl
	}
	if len(meta) == 0 {
		return tbl
	}
	names := tbl.Strings("parameter")
	values := tbl.Strings("value")
	if names == nil || values == nil {
		return tbl
	}

	existing := make(map[string]bool, len(names))
	for _, n := range names {
		existing[strings.ToLower(strings.TrimSpace(n))] = true
	}

	outNames := append([]string{}, names...)
	outValues := append([]string{}, values...)
	for _, k := range auxKeys {
		v, ok := meta[k.mqpar]
		if !ok || existing[strings.ToLower(k.parameter)] {
			continue
		}
		outNames = append(outNames, k.parameter)
		outValues = append(outValues, v)
	}
	if len(outNames) == len(names) {
		return tbl
	}

	out := table.New(table.KindParameters)
	if err := out.AddStrings("parameter", outNames); err != nil {
		return tbl
	}
	if err := out.AddStrings("value", outValues); err != nil {
		return tbl
	}
	return out
}
