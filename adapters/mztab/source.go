package mztab

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"msqc/domain/core"
	"msqc/domain/table"
	"msqc/internal/qclog"
)

// Source adapts an mzTab container to the orchestrator's source port.
// The file is parsed once, at Check, and the derived tables are served
// from the in-memory container afterwards.
type Source struct {
	path string
	log  *zap.SugaredLogger
	c    *Container
}

// NewSource creates a source over a single mzTab file.
func NewSource(path string, log *zap.SugaredLogger) *Source {
	if log == nil {
		log = qclog.Nop()
	}
	return &Source{path: path, log: log}
}

func (s *Source) Describe() string {
	return "mztab file " + s.path
}

// Check parses the file up front so that malformed input aborts the run
// before any metric unit executes.
func (s *Source) Check() error {
	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("failed to access mztab file: %w", err)
	}
	return s.load()
}

func (s *Source) load() error {
	if s.c != nil {
		return nil
	}
	c, err := ReadAll(s.path, s.log)
	if err != nil {
		return err
	}
	s.c = c
	return nil
}

// Table derives one canonical kind from the parsed container. mzTab has
// no fragment-level section, so the msms kind reports absent and its
// units degrade to skipped.
func (s *Source) Table(kind table.Kind) (*table.Table, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	switch kind {
	case table.KindParameters:
		return s.c.Parameters()
	case table.KindSummary:
		return s.c.Summary()
	case table.KindProteinGroups:
		return s.c.Proteins()
	case table.KindEvidence:
		return s.c.Evidence()
	case table.KindMSMSScans:
		return s.c.MSMSScans(false)
	case table.KindMSMS:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unknown table kind %q", core.ErrBadInput, kind)
	}
}
