// Package mztab reads the single-file container format: one tab-separated
// document carrying metadata plus protein, peptide, and PSM sections. The
// logical tables the pipeline wants are derived from those sections
// rather than read verbatim; a kind the container cannot produce comes
// back as a typed nil.
package mztab

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"msqc/domain/core"
	"msqc/internal/qclog"
)

// Section line prefixes of the container format.
const (
	prefixMeta          = "MTD"
	prefixProteinHeader = "PRH"
	prefixProtein       = "PRT"
	prefixPeptideHeader = "PEH"
	prefixPeptide       = "PEP"
	prefixPSMHeader     = "PSH"
	prefixPSM           = "PSM"
	prefixComment       = "COM"
)

// section is one raw tabular section: header fields plus row fields.
type section struct {
	header []string
	rows   [][]string
}

// Container is a fully read container file. All sections are held as raw
// strings; the table getters derive canonical-kind tables on demand.
type Container struct {
	path string
	meta map[string]string
	// metaOrder keeps MTD keys in file order for derived parameter rows.
	metaOrder []string
	sections  map[string]*section
	log       *zap.SugaredLogger
}

var msRunLocation = regexp.MustCompile(`^ms_run\[(\d+)\]-location$`)

// ReadAll reads and sections the whole container file.
func ReadAll(path string, log *zap.SugaredLogger) (*Container, error) {
	if log == nil {
		log = qclog.Nop()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrBadInput, path, err)
	}
	defer f.Close()

	c := &Container{
		path:     path,
		meta:     make(map[string]string),
		sections: make(map[string]*section),
		log:      log,
	}
	if err := c.parse(f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Infow("container read",
		"path", path,
		"meta", len(c.meta),
		"proteins", c.sectionRows(prefixProtein),
		"peptides", c.sectionRows(prefixPeptide),
		"psms", c.sectionRows(prefixPSM))
	return c, nil
}

func (c *Container) parse(src io.Reader) error {
	headerFor := map[string]string{
		prefixProtein: prefixProteinHeader,
		prefixPeptide: prefixPeptideHeader,
		prefixPSM:     prefixPSMHeader,
	}

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if text == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		tag := fields[0]

		switch tag {
		case prefixComment:
			continue

		case prefixMeta:
			if len(fields) < 3 {
				return fmt.Errorf("%w: line %d: metadata needs key and value", core.ErrBadInput, line)
			}
			key := strings.TrimSpace(fields[1])
			if _, dup := c.meta[key]; !dup {
				c.metaOrder = append(c.metaOrder, key)
			}
			c.meta[key] = strings.TrimSpace(strings.Join(fields[2:], "\t"))

		case prefixProteinHeader, prefixPeptideHeader, prefixPSMHeader:
			if s := c.sections[tag]; s != nil {
				return fmt.Errorf("%w: line %d: repeated %s header", core.ErrBadInput, line, tag)
			}
			c.sections[tag] = &section{header: fields[1:]}

		case prefixProtein, prefixPeptide, prefixPSM:
			hdr := c.sections[headerFor[tag]]
			if hdr == nil {
				return fmt.Errorf("%w: line %d: %s row before its header", core.ErrBadInput, line, tag)
			}
			if len(fields)-1 != len(hdr.header) {
				return fmt.Errorf("%w: line %d: %s row has %d fields, header has %d",
					core.ErrBadInput, line, tag, len(fields)-1, len(hdr.header))
			}
			hdr.rows = append(hdr.rows, fields[1:])

		default:
			// unknown section tags are ignored, like unknown config keys
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrBadInput, err)
	}
	if len(c.meta) == 0 && len(c.sections) == 0 {
		return fmt.Errorf("%w: no recognizable sections", core.ErrBadInput)
	}
	return nil
}

func (c *Container) sectionRows(tag string) int {
	headerFor := map[string]string{
		prefixProtein: prefixProteinHeader,
		prefixPeptide: prefixPeptideHeader,
		prefixPSM:     prefixPSMHeader,
	}
	if s := c.sections[headerFor[tag]]; s != nil {
		return len(s.rows)
	}
	return 0
}

// run is one ms_run declaration: its index and the derived raw file name.
type run struct {
	index int
	name  string
}

// runs returns the declared ms_runs in index order. The raw file name is
// the location's base name without extension, which is how the delimited
// format identifies the same runs.
func (c *Container) runs() []run {
	var out []run
	for key, value := range c.meta {
		m := msRunLocation.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out = append(out, run{index: idx, name: runName(value)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].index < out[j].index })
	return out
}

// runName derives the raw file identifier from an ms_run location.
func runName(location string) string {
	s := strings.TrimPrefix(location, "file://")
	s = strings.ReplaceAll(s, "\\", "/")
	base := filepath.Base(s)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// runByRef resolves references like "ms_run[2]" to the run's name.
func (c *Container) runByRef(ref string) (string, bool) {
	for _, r := range c.runs() {
		if fmt.Sprintf("ms_run[%d]", r.index) == strings.TrimSpace(ref) {
			return r.name, true
		}
	}
	return "", false
}
