// Package resolve maps freeform source column names onto the canonical
// schema and infers experimental condition/channel groupings from
// column-name suffixes. All matching is driven by the declarative rule
// tables in patterns.go; nothing outside this package inspects raw
// column names.
package resolve

import (
	"fmt"
	"strconv"
	"strings"

	"msqc/domain/core"
	"msqc/domain/table"
)

// Resolve selects, renames, and type-casts raw columns into the canonical
// schema for the table's kind. Literal names are matched before pattern
// rules, first match wins per semantic name, and a raw column is claimed
// by at most one rule. A missing required column is a structural error;
// missing optional columns are simply absent from the result.
func Resolve(tbl *table.Table, rules []Rule) (*table.Table, error) {
	out := table.New(tbl.Kind)
	claimed := make(map[string]bool)

	for _, rule := range rules {
		src := matchRule(tbl, rule, claimed)
		if src == nil {
			if rule.Required {
				return nil, core.NewMissingColumnError(string(tbl.Kind), rule.Semantic)
			}
			continue
		}
		claimed[src.Name] = true

		col, err := coerceColumn(tbl.Kind, src, rule.Semantic, rule.Type)
		if err != nil {
			return nil, err
		}
		if err := out.AddColumn(col); err != nil {
			return nil, fmt.Errorf("failed to resolve table %s: %w", tbl.Kind, err)
		}
	}
	return out, nil
}

// matchRule finds the first unclaimed raw column the rule accepts.
func matchRule(tbl *table.Table, rule Rule, claimed map[string]bool) *table.Column {
	for _, name := range rule.Names {
		if claimed[name] {
			continue
		}
		if c := tbl.Column(name); c != nil {
			return c
		}
	}
	if rule.Match == nil {
		return nil
	}
	for _, name := range tbl.ColumnNames() {
		if claimed[name] {
			continue
		}
		if rule.Match.MatchString(name) {
			return tbl.Column(name)
		}
	}
	return nil
}

// coerceColumn converts a raw column to the rule's declared type under the
// canonical name. Unparsable numeric cells become the missing sentinel; a
// declared-numeric column with values but not a single parseable number is
// treated as a locale mismatch and aborts the run.
func coerceColumn(kind table.Kind, src *table.Column, semantic string, target table.ColumnType) (*table.Column, error) {
	if src.Type == target {
		out := *src
		out.Name = semantic
		return &out, nil
	}
	if src.Type != table.TypeString {
		return nil, fmt.Errorf("table %s: cannot coerce %s column %q to %s", kind, src.Type, src.Name, target)
	}

	switch target {
	case table.TypeNumeric:
		floats := make([]float64, len(src.Strings))
		parsed, nonEmpty := 0, 0
		for i, cell := range src.Strings {
			cell = strings.TrimSpace(cell)
			if cell == "" || strings.EqualFold(cell, "nan") || strings.EqualFold(cell, "na") {
				floats[i] = table.Missing()
				continue
			}
			nonEmpty++
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				floats[i] = table.Missing()
				continue
			}
			floats[i] = v
			parsed++
		}
		if nonEmpty > 0 && parsed == 0 {
			return nil, core.NewLocaleError(string(kind), src.Name)
		}
		return &table.Column{Name: semantic, Type: table.TypeNumeric, Floats: floats}, nil

	case table.TypeBool:
		bools := make([]bool, len(src.Strings))
		for i, cell := range src.Strings {
			bools[i] = parseFlag(cell)
		}
		return &table.Column{Name: semantic, Type: table.TypeBool, Bools: bools}, nil

	default:
		return &table.Column{Name: semantic, Type: table.TypeString, Strings: src.Strings}, nil
	}
}

// parseFlag reads the marker convention for boolean columns: the cell is
// either "+" or empty in delimited sources, textual in container sources.
func parseFlag(cell string) bool {
	cell = strings.TrimSpace(cell)
	if cell == "+" {
		return true
	}
	return strings.EqualFold(cell, "true") || cell == "1" || strings.EqualFold(cell, "yes")
}

// Canonical runs the full resolution for one raw table: semantic columns
// per the kind's rules, then condition/channel group detection with the
// grouped intensity columns appended (numeric, under their long names).
// minShort is the minimum short-name length for group labels.
func Canonical(tbl *table.Table, minShort int) (*table.Table, []table.ColumnGroup, error) {
	out, err := Resolve(tbl, RulesFor(tbl.Kind))
	if err != nil {
		return nil, nil, err
	}

	groups, err := BuildGroups(tbl, minShort)
	if err != nil {
		return nil, nil, err
	}
	for _, g := range groups {
		src := tbl.Column(g.Column)
		if src == nil {
			continue
		}
		col, err := coerceColumn(tbl.Kind, src, g.Column, table.TypeNumeric)
		if err != nil {
			return nil, nil, err
		}
		if err := out.AddColumn(col); err != nil {
			return nil, nil, fmt.Errorf("failed to resolve table %s: %w", tbl.Kind, err)
		}
	}
	return out, groups, nil
}
