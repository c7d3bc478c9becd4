// Package filemap persists the mapping from long raw-file names to the
// short sample labels used on every report axis. The mapping survives
// across runs so manual edits to the short names are never lost.
package filemap

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"msqc/domain/core"
	"msqc/internal/shorten"
)

// MappingFile is the file name the map is persisted under, inside the
// report output directory.
const MappingFile = "sample_mapping.txt"

const header = "long name\tshort name"

// Map is a bijective long-to-short name mapping in first-seen order.
type Map struct {
	order  []string
	shorts map[string]string
	longs  map[string]string
}

// New creates an empty mapping.
func New() *Map {
	return &Map{
		shorts: make(map[string]string),
		longs:  make(map[string]string),
	}
}

// Load reads a persisted mapping. A missing file yields an empty map so
// first runs need no special casing; a malformed file is a structural
// error naming the offending line.
func Load(path string) (*Map, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrBadInput, path, err)
	}
	defer f.Close()

	m := New()
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r\n")
		if text == "" || strings.HasPrefix(text, "#") || text == header {
			continue
		}
		parts := strings.Split(text, "\t")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("%w: %s line %d: expected two tab-separated names", core.ErrBadInput, path, line)
		}
		if err := m.put(parts[0], parts[1]); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrBadInput, path, err)
	}
	return m, nil
}

// put inserts one pair, enforcing the bijection.
func (m *Map) put(long, short string) error {
	if _, dup := m.shorts[long]; dup {
		return fmt.Errorf("%w: long name %q mapped twice", core.ErrNameCollision, long)
	}
	if prev, dup := m.longs[short]; dup {
		return fmt.Errorf("%w: short name %q used by both %q and %q", core.ErrNameCollision, short, prev, long)
	}
	m.order = append(m.order, long)
	m.shorts[long] = short
	m.longs[short] = long
	return nil
}

// Assign ensures every given long name has a short name. Names already
// mapped keep their current short name, including manual edits; new names
// receive derived shorts, with a numeric suffix when a derived short is
// already taken.
func (m *Map) Assign(longNames []string, minShort int) error {
	var fresh []string
	for _, long := range longNames {
		if long == "" {
			return fmt.Errorf("%w: empty raw file name", core.ErrBadInput)
		}
		if _, ok := m.shorts[long]; !ok {
			fresh = append(fresh, long)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	// Shorten over the union so affix stripping stays stable as new raw
	// files join an existing mapping.
	union := make([]string, 0, len(m.order)+len(fresh))
	union = append(union, m.order...)
	union = append(union, fresh...)
	proposed, err := shorten.Shorten(union, minShort)
	if err != nil {
		return fmt.Errorf("failed to derive short names: %w", err)
	}

	for _, long := range fresh {
		short := strings.TrimSpace(proposed[long])
		if short == "" {
			short = long
		}
		candidate := short
		for n := 2; ; n++ {
			if _, taken := m.longs[candidate]; !taken {
				break
			}
			candidate = fmt.Sprintf("%s_%d", short, n)
		}
		if err := m.put(long, candidate); err != nil {
			return err
		}
	}
	return nil
}

// Short returns the short name for a long name.
func (m *Map) Short(long string) (string, bool) {
	s, ok := m.shorts[long]
	return s, ok
}

// Longs returns the long names in first-seen order.
func (m *Map) Longs() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Shorts returns a copy of the long-to-short mapping.
func (m *Map) Shorts() map[string]string {
	out := make(map[string]string, len(m.shorts))
	for k, v := range m.shorts {
		out[k] = v
	}
	return out
}

// Len returns the number of mapped names.
func (m *Map) Len() int { return len(m.order) }

// Save writes the mapping. The written file loads back to an identical
// mapping, and the leading comment tells users the short column is theirs
// to edit.
func (m *Map) Save(path string) error {
	var b strings.Builder
	b.WriteString("# Short names for raw files, used as sample labels in all report output.\n")
	b.WriteString("# Edit the second column to rename a sample; edits are kept on the next run.\n")
	b.WriteString(header)
	b.WriteByte('\n')
	for _, long := range m.order {
		b.WriteString(long)
		b.WriteByte('\t')
		b.WriteString(m.shorts[long])
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write sample mapping: %w", err)
	}
	return nil
}
