package core

import (
	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered
// generation, falling back to v4 when v7 is unavailable.
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	// RunID identifies one end-to-end report run.
	RunID ID
	// MetricID is the stable identifier of a metric unit (e.g. "evd.mass_error").
	MetricID string
	// SampleID is the canonical long name of a sample (usually the raw file).
	SampleID string
)

func (id RunID) String() string    { return ID(id).String() }
func (id MetricID) String() string { return string(id) }
func (id SampleID) String() string { return string(id) }

// NewRunID mints the identifier embedded in the interchange report and the
// history store.
func NewRunID() RunID {
	return RunID(NewID())
}
