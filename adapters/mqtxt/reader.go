// Package mqtxt reads the delimited-table directory layout: a fixed set
// of tab-separated files, one per canonical table kind, plus an optional
// run-parameters XML next to or above the directory. Tables come back
// with normalized headers and string cells; typing is the column
// resolver's job.
package mqtxt

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"msqc/domain/core"
	"msqc/domain/table"
	"msqc/internal/qclog"
)

// fileNames maps each canonical kind to its file in the input directory.
var fileNames = map[table.Kind]string{
	table.KindParameters:    "parameters.txt",
	table.KindSummary:       "summary.txt",
	table.KindProteinGroups: "proteinGroups.txt",
	table.KindEvidence:      "evidence.txt",
	table.KindMSMS:          "msms.txt",
	table.KindMSMSScans:     "msmsScans.txt",
}

// Reader reads one delimited-table directory.
type Reader struct {
	dir string
	log *zap.SugaredLogger
}

// NewReader creates a reader for the given directory.
func NewReader(dir string, log *zap.SugaredLogger) *Reader {
	if log == nil {
		log = qclog.Nop()
	}
	return &Reader{dir: dir, log: log}
}

// Dir returns the input directory.
func (r *Reader) Dir() string { return r.dir }

// Check verifies the directory exists and holds at least one known table
// file. An input directory with nothing to read is a structural error.
func (r *Reader) Check() error {
	info, err := os.Stat(r.dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: input directory %s", core.ErrBadInput, r.dir)
	}
	for _, name := range fileNames {
		if _, err := os.Stat(filepath.Join(r.dir, name)); err == nil {
			return nil
		}
	}
	return core.NewMissingTableError("any known table", r.dir)
}

// Read loads one table kind. A missing file yields (nil, nil): the kind
// simply produces no data and its dependent metrics degrade, it is not an
// error. An unreadable or malformed file is.
func (r *Reader) Read(kind table.Kind) (*table.Table, error) {
	name, ok := fileNames[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown table kind %q", core.ErrBadInput, kind)
	}
	path := filepath.Join(r.dir, name)

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		r.log.Debugw("table file absent", "kind", kind, "path", path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrBadInput, path, err)
	}
	defer f.Close()

	tbl, err := parseDelimited(kind, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.log.Infow("table read", "kind", kind, "rows", tbl.Rows(), "columns", len(tbl.ColumnNames()))
	return tbl, nil
}

// parseDelimited reads a tab-separated stream into a string-typed table.
func parseDelimited(kind table.Kind, src io.Reader) (*table.Table, error) {
	cr := csv.NewReader(src)
	cr.Comma = '\t'
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: file is empty", core.ErrBadInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrBadInput, err)
	}
	header[0] = strings.TrimPrefix(header[0], "﻿")

	names := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		name := table.NormalizeName(h)
		if name == "" {
			name = fmt.Sprintf("column %d", i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate column %q after normalization", core.ErrBadInput, name)
		}
		seen[name] = true
		names[i] = name
	}

	cells := make([][]string, len(names))
	row := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", core.ErrBadInput, row, err)
		}
		for i := range names {
			cells[i] = append(cells[i], record[i])
		}
	}

	tbl := table.New(kind)
	for i, name := range names {
		if cells[i] == nil {
			cells[i] = []string{}
		}
		if err := tbl.AddStrings(name, cells[i]); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrBadInput, err)
		}
	}
	return tbl, nil
}
