package checker

import (
	"fmt"
	"sort"

	ac "github.com/anknown/ahocorasick"
)

// linkIndex is an immutable compiled multi-pattern substring index over
// one snapshot of the link blocklist. It is never mutated after
// buildIndex returns; a refresh builds a whole new index.
type linkIndex struct {
	machine  *ac.Machine
	patterns int
}

// buildIndex compiles the pattern set into an Aho-Corasick automaton.
// Patterns are deduplicated and sorted first; the underlying double
// array trie requires ordered input. An empty list yields an index that
// matches nothing.
func buildIndex(links []string) (*linkIndex, error) {
	keywords := make([][]rune, 0, len(links))
	seen := make(map[string]struct{}, len(links))
	for _, l := range links {
		if l == "" {
			continue
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		keywords = append(keywords, []rune(l))
	}
	if len(keywords) == 0 {
		return &linkIndex{}, nil
	}

	sort.Slice(keywords, func(i, j int) bool {
		return lessRunes(keywords[i], keywords[j])
	})

	m := new(ac.Machine)
	if err := m.Build(keywords); err != nil {
		return nil, fmt.Errorf("build link index: %w", err)
	}
	return &linkIndex{machine: m, patterns: len(keywords)}, nil
}

// Match reports whether any blocked substring occurs in text, stopping
// at the first hit.
func (ix *linkIndex) Match(text string) bool {
	if ix.machine == nil || text == "" {
		return false
	}
	terms := ix.machine.MultiPatternSearch([]rune(text), true)
	return len(terms) > 0
}

// Patterns returns the number of compiled patterns.
func (ix *linkIndex) Patterns() int { return ix.patterns }

func lessRunes(a, b []rune) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
