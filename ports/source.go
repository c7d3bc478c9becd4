package ports

import (
	"msqc/domain/table"
)

// SourcePort reads canonical-kind tables from one QC input source.
// Implementations exist for a MaxQuant txt directory and an mzTab-style
// container file.
type SourcePort interface {
	// Describe names the source for logs and diagnostics.
	Describe() string
	// Check verifies the source exists and looks like its format before
	// any table is read. A failed check is a structural error.
	Check() error
	// Table reads one canonical kind. A kind the source cannot produce
	// returns (nil, nil); downstream units treat the nil as a feature
	// gate, not an error.
	Table(kind table.Kind) (*table.Table, error)
}
