// Package table holds the raw and canonical table model every pipeline
// stage works against: ordered, homogeneously typed columns of equal
// length, one row per observation (a peptide evidence, an MS/MS scan).
package table

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Kind enumerates the canonical table kinds a source can provide.
type Kind string

const (
	KindParameters    Kind = "parameters"
	KindSummary       Kind = "summary"
	KindProteinGroups Kind = "proteinGroups"
	KindEvidence      Kind = "evidence"
	KindMSMS          Kind = "msms"
	KindMSMSScans     Kind = "msmsScans"
)

// Kinds lists all canonical kinds in pipeline order.
func Kinds() []Kind {
	return []Kind{KindParameters, KindSummary, KindProteinGroups, KindEvidence, KindMSMS, KindMSMSScans}
}

// ColumnType is the homogeneous cell type of one column.
type ColumnType int

const (
	TypeString ColumnType = iota
	TypeNumeric
	TypeBool
)

func (t ColumnType) String() string {
	switch t {
	case TypeNumeric:
		return "numeric"
	case TypeBool:
		return "bool"
	default:
		return "string"
	}
}

// Column is a named, typed value sequence. Exactly one of the value
// slices is populated, matching Type. Missing numeric cells are NaN.
type Column struct {
	Name    string
	Type    ColumnType
	Strings []string
	Floats  []float64
	Bools   []bool
}

// Len returns the number of cells in the column.
func (c *Column) Len() int {
	switch c.Type {
	case TypeNumeric:
		return len(c.Floats)
	case TypeBool:
		return len(c.Bools)
	default:
		return len(c.Strings)
	}
}

// Table is an ordered collection of equally long columns. It is built once
// by a reader, rewritten once by the column resolver, and read-only for
// every metric unit after that.
type Table struct {
	Kind   Kind
	cols   []*Column
	byName map[string]int
	rows   int
}

// New creates an empty table of the given kind.
func New(kind Kind) *Table {
	return &Table{Kind: kind, byName: make(map[string]int)}
}

// Rows returns the observation count.
func (t *Table) Rows() int { return t.rows }

// ColumnNames returns the column names in insertion order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether a column with the exact name exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// Column returns the named column, or nil when absent.
func (t *Table) Column(name string) *Column {
	if i, ok := t.byName[name]; ok {
		return t.cols[i]
	}
	return nil
}

// Strings returns the named string column's values, or nil when the
// column is absent or not a string column.
func (t *Table) Strings(name string) []string {
	if c := t.Column(name); c != nil && c.Type == TypeString {
		return c.Strings
	}
	return nil
}

// Floats returns the named numeric column's values, or nil when the
// column is absent or not numeric.
func (t *Table) Floats(name string) []float64 {
	if c := t.Column(name); c != nil && c.Type == TypeNumeric {
		return c.Floats
	}
	return nil
}

// Bools returns the named boolean column's values, or nil when absent.
func (t *Table) Bools(name string) []bool {
	if c := t.Column(name); c != nil && c.Type == TypeBool {
		return c.Bools
	}
	return nil
}

// AddColumn appends a column. The first column fixes the row count; every
// later column must match it.
func (t *Table) AddColumn(c *Column) error {
	if c == nil || c.Name == "" {
		return fmt.Errorf("table %s: column must be named", t.Kind)
	}
	if _, dup := t.byName[c.Name]; dup {
		return fmt.Errorf("table %s: duplicate column %q", t.Kind, c.Name)
	}
	if len(t.cols) == 0 {
		t.rows = c.Len()
	} else if c.Len() != t.rows {
		return fmt.Errorf("table %s: column %q has %d rows, table has %d", t.Kind, c.Name, c.Len(), t.rows)
	}
	t.byName[c.Name] = len(t.cols)
	t.cols = append(t.cols, c)
	return nil
}

// AddStrings appends a string column.
func (t *Table) AddStrings(name string, values []string) error {
	return t.AddColumn(&Column{Name: name, Type: TypeString, Strings: values})
}

// AddFloats appends a numeric column.
func (t *Table) AddFloats(name string, values []float64) error {
	return t.AddColumn(&Column{Name: name, Type: TypeNumeric, Floats: values})
}

// AddBools appends a boolean column.
func (t *Table) AddBools(name string, values []bool) error {
	return t.AddColumn(&Column{Name: name, Type: TypeBool, Bools: values})
}

// Filter returns a new table holding only the rows where keep is true.
// The mask must cover every row.
func (t *Table) Filter(keep []bool) *Table {
	out := New(t.Kind)
	for _, c := range t.cols {
		nc := &Column{Name: c.Name, Type: c.Type}
		switch c.Type {
		case TypeNumeric:
			for i, v := range c.Floats {
				if i < len(keep) && keep[i] {
					nc.Floats = append(nc.Floats, v)
				}
			}
		case TypeBool:
			for i, v := range c.Bools {
				if i < len(keep) && keep[i] {
					nc.Bools = append(nc.Bools, v)
				}
			}
		default:
			for i, v := range c.Strings {
				if i < len(keep) && keep[i] {
					nc.Strings = append(nc.Strings, v)
				}
			}
		}
		_ = out.AddColumn(nc)
	}
	return out
}

// Select returns a new table holding only the named columns, in the given
// order. Unknown names are skipped. Used by the orchestrator to shrink a
// table to the keep-column subset later stages still need.
func (t *Table) Select(names ...string) *Table {
	out := New(t.Kind)
	for _, name := range names {
		if c := t.Column(name); c != nil {
			_ = out.AddColumn(c)
		}
	}
	return out
}

// Missing is the numeric missing-value sentinel.
func Missing() float64 { return math.NaN() }

// IsMissing reports whether a numeric cell is the missing sentinel.
func IsMissing(v float64) bool { return math.IsNaN(v) }

var spaceRun = regexp.MustCompile(`\s+`)

// NormalizeName case-folds and whitespace-normalizes a column header so
// heterogeneous sources ("Retention time", "retention_time", " Retention
// Time ") resolve identically. Underscores and dots count as separators.
func NormalizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, ".", " ")
	s = spaceRun.ReplaceAllString(s, " ")
	return s
}
