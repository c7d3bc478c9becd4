package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions.
//
// Structural errors abort a run immediately: they signal that the shared
// canonical-table resolution (or the input itself) cannot be trusted, and
// continuing would corrupt every downstream metric silently. Everything
// scoped to a single metric unit is handled locally and never escapes the
// orchestrator.
var (
	// ErrStructural is the root of all fatal input/configuration errors.
	ErrStructural = errors.New("structural error")

	ErrMissingTable    = fmt.Errorf("%w: required table missing", ErrStructural)
	ErrMissingColumn   = fmt.Errorf("%w: required column missing", ErrStructural)
	ErrLocale          = fmt.Errorf("%w: numeric locale mismatch", ErrStructural)
	ErrNameCollision   = fmt.Errorf("%w: short name collision", ErrStructural)
	ErrBadInput        = fmt.Errorf("%w: unreadable input", ErrStructural)
	ErrUnknownFormat   = fmt.Errorf("%w: unsupported output format", ErrStructural)
	ErrNoScorableUnits = fmt.Errorf("%w: no metric produced a score", ErrStructural)
)

// Error constructors with context

// NewMissingTableError names the table kind the input did not provide.
func NewMissingTableError(kind string, path string) error {
	return fmt.Errorf("%w: %s (looked in %s)", ErrMissingTable, kind, path)
}

// NewMissingColumnError names the semantic column a canonical table lacks.
func NewMissingColumnError(table, semantic string) error {
	return fmt.Errorf("%w: table %s has no column matching %q", ErrMissingColumn, table, semantic)
}

// NewLocaleError flags a declared-numeric column that parsed to nothing.
// An entirely non-numeric numeric column is the signature of a decimal
// separator mismatch, not of missing data.
func NewLocaleError(table, column string) error {
	return fmt.Errorf("%w: column %q of table %s contains no parseable numbers; "+
		"the file was probably written with a non-English decimal separator", ErrLocale, column, table)
}

// NewUnknownFormatError names a requested output format outside the
// supported enumeration.
func NewUnknownFormatError(format string, supported []string) error {
	return fmt.Errorf("%w: %q (supported: %v)", ErrUnknownFormat, format, supported)
}

// Error checking helpers

// IsStructural reports whether err belongs to the fatal taxonomy.
func IsStructural(err error) bool {
	return errors.Is(err, ErrStructural)
}
