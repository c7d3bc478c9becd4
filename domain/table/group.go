package table

// IntensityFamily distinguishes the three physically distinct abundance
// column families a dataset can carry simultaneously.
type IntensityFamily string

const (
	FamilyRaw      IntensityFamily = "raw"
	FamilyLFQ      IntensityFamily = "lfq"
	FamilyReporter IntensityFamily = "reporter"
)

// ColumnGroup is one detected condition/channel column of an intensity
// family: the long column name as present in the canonical table, the
// derived short display name, and the parsed suffix parts.
type ColumnGroup struct {
	Family IntensityFamily
	// Column is the full (normalized) column name, unique per table.
	Column string
	// Short is the human-readable unique label for report axes.
	Short string
	// Label is the isotopic label letter or reporter channel number;
	// empty for plain per-condition columns.
	Label string
	// Condition is the experimental condition suffix; empty for bare
	// label or no-condition columns.
	Condition string
}

// GroupsByFamily partitions groups per family, preserving order.
func GroupsByFamily(groups []ColumnGroup) map[IntensityFamily][]ColumnGroup {
	out := make(map[IntensityFamily][]ColumnGroup)
	for _, g := range groups {
		out[g.Family] = append(out[g.Family], g)
	}
	return out
}
