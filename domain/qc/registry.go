package qc

import (
	"fmt"

	"msqc/domain/core"
	"msqc/domain/table"
)

// Registry is the ordered collection of metric units for one report run.
// Insertion order is execution order within a canonical table and report
// order overall; it is fixed before any data is loaded.
type Registry struct {
	order []Metric
	byID  map[core.MetricID]Metric
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[core.MetricID]Metric)}
}

// Add appends a unit. Duplicate identifiers are a programming error.
func (r *Registry) Add(m Metric) error {
	if _, dup := r.byID[m.ID()]; dup {
		return fmt.Errorf("registry: duplicate metric %s", m.ID())
	}
	r.byID[m.ID()] = m
	r.order = append(r.order, m)
	return nil
}

// MustAdd is Add for registry construction literals.
func (r *Registry) MustAdd(m Metric) {
	if err := r.Add(m); err != nil {
		panic(err)
	}
}

// All returns every unit in insertion order.
func (r *Registry) All() []Metric {
	return r.order
}

// ByTable returns the units reading the given canonical table, preserving
// insertion order.
func (r *Registry) ByTable(kind table.Kind) []Metric {
	var out []Metric
	for _, m := range r.order {
		if m.Table() == kind {
			out = append(out, m)
		}
	}
	return out
}

// Lookup resolves a unit by identifier.
func (r *Registry) Lookup(id core.MetricID) (Metric, bool) {
	m, ok := r.byID[id]
	return m, ok
}

// Len returns the number of registered units.
func (r *Registry) Len() int { return len(r.order) }

// OutLookup builds the cross-unit dependency resolver over this registry.
// Readers of a unit that was skipped, failed or never published the key
// receive an ErrSkip wrap so they degrade instead of failing.
func (r *Registry) OutLookup() OutLookup {
	return func(id core.MetricID, key string) (interface{}, error) {
		m, ok := r.byID[id]
		if !ok {
			return nil, Skipf("dependency %s is not registered", id)
		}
		switch m.Status() {
		case StatusScored, StatusPopulated:
		default:
			return nil, Skipf("dependency %s did not run (%s)", id, m.Status())
		}
		v, ok := m.OutData()[key]
		if !ok {
			return nil, Skipf("dependency %s published no %q", id, key)
		}
		return v, nil
	}
}

// Warnings collects the post-run warning list: one line per skipped or
// failed unit, in report order.
func (r *Registry) Warnings() []string {
	var out []string
	for _, m := range r.order {
		switch m.Status() {
		case StatusSkipped:
			out = append(out, fmt.Sprintf("%s skipped: %v", m.ID(), m.Reason()))
		case StatusFailed:
			out = append(out, fmt.Sprintf("%s failed: %v", m.ID(), m.Reason()))
		}
	}
	return out
}
