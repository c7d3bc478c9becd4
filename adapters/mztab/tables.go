package mztab

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"msqc/domain/core"
	"msqc/domain/table"
)

var (
	// plumbing keys wire sections together and are not run parameters.
	plumbingKey = regexp.MustCompile(`^(ms_run|assay|study_variable|sample|cv|fixed_mod|variable_mod|colunit)`)

	// customSummary carries per-run summary statistics in the metadata,
	// e.g. custom[ms_run[1] ms/ms identified [%]] = 42.5.
	customSummary = regexp.MustCompile(`^custom\[(ms_run\[\d+\]) (.+)\]$`)

	abundanceAssay = regexp.MustCompile(`^protein_abundance_assay\[(\d+)\]$`)
	spectraRefRun  = regexp.MustCompile(`ms_run\[(\d+)\]`)
)

// columnName maps a section column onto the normalized name the column
// resolver matches against. Optional-column prefixes carry no meaning of
// their own and are stripped first.
func columnName(raw string) string {
	s := strings.TrimPrefix(raw, "opt_global_")
	s = strings.TrimPrefix(s, "opt_")
	return table.NormalizeName(s)
}

// columnsToTable transposes section rows into a string-typed table.
func columnsToTable(kind table.Kind, names []string, rows [][]string) (*table.Table, error) {
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate column %q after normalization", core.ErrBadInput, name)
		}
		seen[name] = true
	}

	cells := make([][]string, len(names))
	for i := range cells {
		cells[i] = make([]string, len(rows))
	}
	for r, row := range rows {
		for i := range names {
			cells[i][r] = row[i]
		}
	}

	tbl := table.New(kind)
	for i, name := range names {
		if err := tbl.AddStrings(name, cells[i]); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrBadInput, err)
		}
	}
	return tbl, nil
}

// Parameters derives the parameters table from the metadata section.
// Plumbing keys and per-run summary statistics are excluded; custom[...]
// wrappers are unwrapped so the parameter names read naturally.
func (c *Container) Parameters() (*table.Table, error) {
	var keys, values []string
	for _, key := range c.metaOrder {
		if plumbingKey.MatchString(key) || customSummary.MatchString(key) {
			continue
		}
		name := key
		if strings.HasPrefix(name, "custom[") && strings.HasSuffix(name, "]") {
			name = strings.TrimSuffix(strings.TrimPrefix(name, "custom["), "]")
		}
		keys = append(keys, name)
		values = append(values, c.meta[key])
	}
	if len(keys) == 0 {
		return nil, nil
	}

	tbl := table.New(table.KindParameters)
	if err := tbl.AddStrings("parameter", keys); err != nil {
		return nil, err
	}
	if err := tbl.AddStrings("value", values); err != nil {
		return nil, err
	}
	return tbl, nil
}

// Summary derives the per-run summary table: one row per declared ms_run,
// with any custom[ms_run[N] <column>] metadata entries as columns.
func (c *Container) Summary() (*table.Table, error) {
	runs := c.runs()
	if len(runs) == 0 {
		return nil, nil
	}

	rowOf := make(map[string]int, len(runs))
	names := make([]string, len(runs))
	for i, r := range runs {
		rowOf[fmt.Sprintf("ms_run[%d]", r.index)] = i
		names[i] = r.name
	}

	cols := make(map[string][]string)
	var order []string
	for _, key := range c.metaOrder {
		m := customSummary.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		row, ok := rowOf[m[1]]
		if !ok {
			continue
		}
		col := table.NormalizeName(m[2])
		if _, seen := cols[col]; !seen {
			cols[col] = make([]string, len(runs))
			order = append(order, col)
		}
		cols[col][row] = c.meta[key]
	}

	tbl := table.New(table.KindSummary)
	if err := tbl.AddStrings("raw file", names); err != nil {
		return nil, err
	}
	for _, col := range order {
		if err := tbl.AddStrings(col, cols[col]); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

// Proteins derives the protein-groups table from the protein section.
// Per-assay abundance columns are renamed to intensity columns keyed by
// the referenced run, so condition grouping sees the same shape as in the
// delimited format.
func (c *Container) Proteins() (*table.Table, error) {
	s := c.sections[prefixProteinHeader]
	if s == nil {
		return nil, nil
	}

	names := make([]string, len(s.header))
	for i, raw := range s.header {
		if mapped, ok := c.abundanceColumn(raw); ok {
			names[i] = mapped
			continue
		}
		names[i] = columnName(raw)
	}
	return columnsToTable(table.KindProteinGroups, names, s.rows)
}

// abundanceColumn maps protein_abundance_assay[N] to "intensity <run>".
func (c *Container) abundanceColumn(raw string) (string, bool) {
	m := abundanceAssay.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	ref, ok := c.meta[fmt.Sprintf("assay[%s]-ms_run_ref", m[1])]
	if !ok {
		return "", false
	}
	name, ok := c.runByRef(ref)
	if !ok {
		return "", false
	}
	return "intensity " + table.NormalizeName(name), true
}

// Evidence derives the evidence table from the PSM section. The raw file
// column is computed from each row's spectra reference.
func (c *Container) Evidence() (*table.Table, error) {
	s := c.sections[prefixPSMHeader]
	if s == nil {
		return nil, nil
	}

	names := make([]string, len(s.header))
	specIdx := -1
	for i, raw := range s.header {
		names[i] = columnName(raw)
		if names[i] == "spectra ref" {
			specIdx = i
		}
	}

	tbl, err := columnsToTable(table.KindEvidence, names, s.rows)
	if err != nil {
		return nil, err
	}

	if specIdx >= 0 && !tbl.HasColumn("raw file") {
		nameOf := make(map[string]string)
		for _, r := range c.runs() {
			nameOf[strconv.Itoa(r.index)] = r.name
		}
		rawFiles := make([]string, len(s.rows))
		for r, row := range s.rows {
			if m := spectraRefRun.FindStringSubmatch(row[specIdx]); m != nil {
				rawFiles[r] = nameOf[m[1]]
			}
		}
		if err := tbl.AddStrings("raw file", rawFiles); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

// MSMSScans derives the scan table from the PSM section. The container
// only records scans that were identified, so identifiedOnly=false cannot
// widen the result; every row is marked identified.
func (c *Container) MSMSScans(identifiedOnly bool) (*table.Table, error) {
	full, err := c.Evidence()
	if err != nil {
		return nil, err
	}
	if full == nil {
		return nil, nil
	}

	out := table.New(table.KindMSMSScans)
	for _, name := range []string{"raw file", "retention time", "ion injection time", "total ion current", "scan event number"} {
		if col := full.Column(name); col != nil {
			if err := out.AddColumn(col); err != nil {
				return nil, err
			}
		}
	}
	marks := make([]string, full.Rows())
	for i := range marks {
		marks[i] = "+"
	}
	if err := out.AddStrings("identified", marks); err != nil {
		return nil, err
	}
	return out, nil
}
