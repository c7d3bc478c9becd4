package resolve

import (
	"fmt"
	"strings"

	"msqc/domain/core"
	"msqc/domain/table"
	"msqc/internal/shorten"
)

// familySpec describes how one intensity family's columns are recognized.
// Prefixes are tried in order and the first one with any member wins, so
// a corrected reporter series shadows the uncorrected one. skipTokens
// filters sibling series that share the prefix but carry different data.
type familySpec struct {
	family     table.IntensityFamily
	prefixes   []string
	skipTokens []string
	label      func(token string) bool
}

var familySpecs = []familySpec{
	{
		family:   table.FamilyRaw,
		prefixes: []string{"intensity"},
		label:    isLetterLabel,
	},
	{
		family:   table.FamilyLFQ,
		prefixes: []string{"lfq intensity"},
		label:    isLetterLabel,
	},
	{
		family:     table.FamilyReporter,
		prefixes:   []string{"reporter intensity corrected", "reporter intensity"},
		skipTokens: []string{"count"},
		label:      isChannelLabel,
	},
}

// isLetterLabel reports whether a suffix token is an isotopic label letter.
func isLetterLabel(token string) bool {
	return len(token) == 1 && token[0] >= 'a' && token[0] <= 'z'
}

// isChannelLabel reports whether a suffix token is a reporter channel
// number (one or two digits).
func isChannelLabel(token string) bool {
	if len(token) == 0 || len(token) > 2 {
		return false
	}
	for i := 0; i < len(token); i++ {
		if token[i] < '0' || token[i] > '9' {
			return false
		}
	}
	return true
}

// column suffix tiers, mutually exclusive per family
const (
	tierLabel     = 1 // suffix is a label/channel, optionally condition-qualified
	tierCondition = 2 // suffix is a plain condition name
	tierBare      = 3 // no suffix, the single family total column
)

type candidate struct {
	group table.ColumnGroup
	tier  int
}

// BuildGroups detects the condition/channel columns of every intensity
// family present in the table and assigns each a unique short name. Each
// family is partitioned into suffix tiers and exactly one tier survives:
// label columns when any exist, otherwise condition columns, otherwise
// the bare family column. Within the label tier, bare label columns are
// dropped when every one of them also appears condition-qualified, so the
// same physical channel is never counted under two names.
func BuildGroups(tbl *table.Table, minShort int) ([]table.ColumnGroup, error) {
	var all []table.ColumnGroup
	for _, spec := range familySpecs {
		groups := groupFamily(tbl, spec)
		if len(groups) == 0 {
			continue
		}
		named, err := assignShorts(groups, minShort)
		if err != nil {
			return nil, err
		}
		all = append(all, named...)
	}
	return all, nil
}

// groupFamily collects and tiers one family's columns, returning the
// surviving tier in table column order.
func groupFamily(tbl *table.Table, spec familySpec) []table.ColumnGroup {
	var cands []candidate
	for _, prefix := range spec.prefixes {
		cands = collectFamily(tbl, spec, prefix)
		if len(cands) > 0 {
			break
		}
	}
	if len(cands) == 0 {
		return nil
	}

	best := tierBare
	for _, c := range cands {
		if c.tier < best {
			best = c.tier
		}
	}

	var chosen []table.ColumnGroup
	for _, c := range cands {
		if c.tier == best {
			chosen = append(chosen, c.group)
		}
	}
	if best == tierLabel {
		chosen = dropRedundantBareLabels(chosen)
	}
	return chosen
}

// collectFamily classifies every column carrying the prefix into a tier.
func collectFamily(tbl *table.Table, spec familySpec, prefix string) []candidate {
	var cands []candidate
	for _, name := range tbl.ColumnNames() {
		if name != prefix && !strings.HasPrefix(name, prefix+" ") {
			continue
		}
		suffix := strings.TrimSpace(strings.TrimPrefix(name, prefix))
		tokens := strings.Fields(suffix)

		if len(tokens) > 0 && contains(spec.skipTokens, tokens[0]) {
			continue
		}

		g := table.ColumnGroup{Family: spec.family, Column: name}
		switch {
		case len(tokens) == 0:
			cands = append(cands, candidate{group: g, tier: tierBare})
		case spec.label(tokens[0]):
			g.Label = tokens[0]
			g.Condition = strings.Join(tokens[1:], " ")
			cands = append(cands, candidate{group: g, tier: tierLabel})
		default:
			g.Condition = suffix
			cands = append(cands, candidate{group: g, tier: tierCondition})
		}
	}
	return cands
}

// dropRedundantBareLabels removes bare label columns once every bare label
// also appears in condition-qualified form. If any bare label lacks a
// qualified sibling the whole set is kept, otherwise that channel's data
// would be lost.
func dropRedundantBareLabels(groups []table.ColumnGroup) []table.ColumnGroup {
	qualified := make(map[string]bool)
	bare := make(map[string]bool)
	for _, g := range groups {
		if g.Condition == "" {
			bare[g.Label] = true
		} else {
			qualified[g.Label] = true
		}
	}
	if len(bare) == 0 {
		return groups
	}
	for label := range bare {
		if !qualified[label] {
			return groups
		}
	}

	kept := groups[:0]
	for _, g := range groups {
		if g.Condition != "" {
			kept = append(kept, g)
		}
	}
	return kept
}

// assignShorts derives a unique short display name per group column. The
// long names of one family always share the family prefix, so shortening
// strips it and keeps the distinguishing suffix characters.
func assignShorts(groups []table.ColumnGroup, minShort int) ([]table.ColumnGroup, error) {
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Column
	}
	shorts, err := shorten.Shorten(names, minShort)
	if err != nil {
		return nil, fmt.Errorf("failed to shorten %s group names: %w", groups[0].Family, err)
	}

	seen := make(map[string]string)
	for i := range groups {
		short := strings.TrimSpace(shorts[groups[i].Column])
		if prev, dup := seen[short]; dup {
			return nil, fmt.Errorf("%w: %q and %q both shorten to %q",
				core.ErrNameCollision, prev, groups[i].Column, short)
		}
		seen[short] = groups[i].Column
		groups[i].Short = short
	}
	return groups, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
