// Package shorten derives short, unique, human-readable labels from long
// redundant sample and column names. Raw-file names from one study share
// instrument, date and project boilerplate; stripping the shared affixes
// leaves the part a human actually distinguishes runs by.
package shorten

import (
	"fmt"
	"sort"

	"msqc/domain/core"
)

// DefaultMinLength is the floor below which stripped names are padded
// back from their stripped affixes.
const DefaultMinLength = 8

type parts struct {
	prefix []rune // stripped common prefix
	mid    []rune // surviving middle
	suffix []rune // stripped common suffix
	pre    int    // restored prefix chars
	suf    int    // restored suffix chars
}

func (p *parts) render() string {
	out := make([]rune, 0, p.pre+len(p.mid)+p.suf)
	out = append(out, p.prefix[len(p.prefix)-p.pre:]...)
	out = append(out, p.mid...)
	out = append(out, p.suffix[:p.suf]...)
	return string(out)
}

func (p *parts) full() bool {
	return p.pre == len(p.prefix) && p.suf == len(p.suffix)
}

// grow restores one character on each end where possible.
func (p *parts) grow() bool {
	grew := false
	if p.pre < len(p.prefix) {
		p.pre++
		grew = true
	}
	if p.suf < len(p.suffix) {
		p.suf++
		grew = true
	}
	return grew
}

// Shorten maps each unique input name to a unique short name: longest
// common prefix stripped, then longest common suffix, then padded back to
// minLen from the stripped ends, then grown from both ends until
// colliding results diverge. The output is a bijection; every short name
// is a subsequence of its source in original character order.
func Shorten(names []string, minLen int) (map[string]string, error) {
	if minLen <= 0 {
		minLen = DefaultMinLength
	}
	out := make(map[string]string, len(names))
	switch len(names) {
	case 0:
		return out, nil
	case 1:
		out[names[0]] = names[0]
		return out, nil
	}

	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return nil, fmt.Errorf("%w: duplicate input name %q", core.ErrNameCollision, n)
		}
		seen[n] = true
	}

	runes := make([][]rune, len(names))
	for i, n := range names {
		runes[i] = []rune(n)
	}
	lcp := commonPrefixLen(runes)
	stripped := make([][]rune, len(names))
	for i, r := range runes {
		stripped[i] = r[lcp:]
	}
	lcs := commonSuffixLen(stripped)

	ps := make([]*parts, len(names))
	for i, r := range runes {
		ps[i] = &parts{
			prefix: r[:lcp],
			mid:    r[lcp : len(r)-lcs],
			suffix: r[len(r)-lcs:],
		}
	}

	// Pad below-minimum names back up, suffix side first.
	for _, p := range ps {
		for len(p.mid)+p.pre+p.suf < minLen && !p.full() {
			if p.suf < len(p.suffix) {
				p.suf++
			} else {
				p.pre++
			}
		}
	}

	// Grow colliding names from both ends until they diverge. Inputs are
	// unique, so fully restored names cannot still collide.
	for i := 0; i < maxLen(runes); i++ {
		groups := collisions(ps)
		if len(groups) == 0 {
			break
		}
		progressed := false
		for _, group := range groups {
			for _, idx := range group {
				if ps[idx].grow() {
					progressed = true
				}
			}
		}
		if !progressed {
			break
		}
	}
	if len(collisions(ps)) > 0 {
		return nil, fmt.Errorf("%w: names %v cannot be disambiguated", core.ErrNameCollision, names)
	}

	for i, n := range names {
		out[n] = ps[i].render()
	}
	return out, nil
}

// collisions groups indices by identical rendering; only groups larger
// than one are returned, in deterministic order.
func collisions(ps []*parts) [][]int {
	byShort := make(map[string][]int)
	for i, p := range ps {
		s := p.render()
		byShort[s] = append(byShort[s], i)
	}
	keys := make([]string, 0, len(byShort))
	for k, idxs := range byShort {
		if len(idxs) > 1 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var out [][]int
	for _, k := range keys {
		out = append(out, byShort[k])
	}
	return out
}

func commonPrefixLen(names [][]rune) int {
	if len(names) == 0 {
		return 0
	}
	n := len(names[0])
	for _, r := range names[1:] {
		if len(r) < n {
			n = len(r)
		}
	}
	for i := 0; i < n; i++ {
		for _, r := range names[1:] {
			if r[i] != names[0][i] {
				return i
			}
		}
	}
	return n
}

func commonSuffixLen(names [][]rune) int {
	if len(names) == 0 {
		return 0
	}
	n := len(names[0])
	for _, r := range names[1:] {
		if len(r) < n {
			n = len(r)
		}
	}
	for i := 0; i < n; i++ {
		for _, r := range names[1:] {
			if r[len(r)-1-i] != names[0][len(names[0])-1-i] {
				return i
			}
		}
	}
	return n
}

func maxLen(names [][]rune) int {
	m := 0
	for _, r := range names {
		if len(r) > m {
			m = len(r)
		}
	}
	return m
}
