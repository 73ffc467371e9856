package scanner

import (
	"errors"
	"fmt"
	"sort"
)

// ErrEmptyStart is returned when a rule has no start marker
var ErrEmptyStart = errors.New("rule start marker is empty")

// compiledRule is a Rule with its markers split into runes
type compiledRule struct {
	rule    Rule
	start   []rune
	end     []rune
	escapes []compiledEscape
}

type compiledEscape struct {
	marker      []rune
	replacement string
}

// Table is the deduplicated, priority-ordered rule set driving a scan.
// A Table is read-only once built and can be shared between goroutines.
type Table struct {
	rules   []*compiledRule
	byFirst map[rune][]*compiledRule
}

// NewTable normalizes rules into a Table. The first rule listed for a start
// marker wins, later duplicates are dropped. Rules are then ordered by
// descending start marker length so longer markers are tried first.
func NewTable(rules []Rule) (*Table, error) {
	for i, r := range rules {
		if r.Start == "" {
			return nil, fmt.Errorf("rule %d (end %q): %w", i, r.End, ErrEmptyStart)
		}
	}

	seen := make(map[string]bool, len(rules))
	compiled := make([]*compiledRule, 0, len(rules))
	for _, r := range rules {
		if seen[r.Start] {
			continue
		}
		seen[r.Start] = true
		compiled = append(compiled, compile(r))
	}

	sort.SliceStable(compiled, func(i, j int) bool {
		return len(compiled[i].start) > len(compiled[j].start)
	})

	t := &Table{
		rules:   compiled,
		byFirst: make(map[rune][]*compiledRule),
	}
	for _, c := range compiled {
		first := c.start[0]
		t.byFirst[first] = append(t.byFirst[first], c)
	}
	return t, nil
}

// MustTable is like NewTable but panics on an invalid rule set.
// Intended for package-level tables built from literals.
func MustTable(rules []Rule) *Table {
	t, err := NewTable(rules)
	if err != nil {
		panic(err)
	}
	return t
}

func compile(r Rule) *compiledRule {
	c := &compiledRule{
		rule:  r,
		start: []rune(r.Start),
		end:   []rune(r.End),
	}
	for _, e := range r.Escapes {
		if e.Marker == "" {
			continue
		}
		c.escapes = append(c.escapes, compiledEscape{
			marker:      []rune(e.Marker),
			replacement: e.Replacement,
		})
	}
	return c
}

// Rules returns the normalized rules in priority order
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	for i, c := range t.rules {
		out[i] = c.rule
	}
	return out
}

// Len returns the number of rules in the table
func (t *Table) Len() int {
	return len(t.rules)
}

// match returns the first rule whose start marker sits at input[pos]
func (t *Table) match(input []rune, pos int) *compiledRule {
	for _, c := range t.byFirst[input[pos]] {
		if hasAt(input, pos, c.start) {
			return c
		}
	}
	return nil
}

// hasAt reports whether marker occurs in input exactly at pos.
// An empty marker never matches.
func hasAt(input []rune, pos int, marker []rune) bool {
	if len(marker) == 0 || pos+len(marker) > len(input) {
		return false
	}
	for i, r := range marker {
		if input[pos+i] != r {
			return false
		}
	}
	return true
}
