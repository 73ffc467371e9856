// Package scanner extracts the content of delimited regions (comments,
// strings) from text in a single left-to-right pass.
//
// A region opens on a rule's start marker and closes on its end marker.
// While inside a region no other start marker is recognized, so regions
// never nest. Escape markers inside a region are replaced by their
// substitution and do not close it. Content of Keep regions is collected in
// discovery order; Discard regions are consumed and dropped.
//
// Reaching the end of input inside a region closes it implicitly: a Keep
// region is emitted with whatever was scanned, a Discard region is dropped.
package scanner

import "strings"

// State is the automaton state of a Scanner
type State int

const (
	// Outside means no region is open
	Outside State = iota
	// Inside means a region is open and the scanner looks for its end
	Inside
)

func (s State) String() string {
	if s == Inside {
		return "inside"
	}
	return "outside"
}

// Scanner walks one input against a Table. It is not safe for concurrent
// use; create one Scanner per input.
type Scanner struct {
	table *Table
	input []rune
	pos   int
	state State

	active *compiledRule
	mark   int             // first rune of content not yet flushed into region
	region strings.Builder // flushed fragments and substitutions

	results Result
}

// New creates a Scanner positioned at the start of input
func New(table *Table, input string) *Scanner {
	return &Scanner{
		table: table,
		input: []rune(input),
	}
}

// State returns the current automaton state
func (s *Scanner) State() State {
	return s.state
}

// Pos returns the cursor position as a rune index
func (s *Scanner) Pos() int {
	return s.pos
}

// Active returns the rule of the open region, if any
func (s *Scanner) Active() (Rule, bool) {
	if s.active == nil {
		return Rule{}, false
	}
	return s.active.rule, true
}

// Result returns the contents of the regions closed so far
func (s *Scanner) Result() Result {
	return s.results
}

// Step performs one transition. It returns false once the input is
// exhausted; an open region is closed by that final call.
func (s *Scanner) Step() bool {
	if s.pos >= len(s.input) {
		if s.state == Inside {
			s.close(len(s.input))
		}
		return false
	}

	switch s.state {
	case Outside:
		s.stepOutside()
	case Inside:
		s.stepInside()
	}
	return true
}

// Run steps until the input is exhausted and returns the result
func (s *Scanner) Run() Result {
	for s.Step() {
	}
	return s.results
}

func (s *Scanner) stepOutside() {
	rule := s.table.match(s.input, s.pos)
	if rule == nil {
		s.pos++
		return
	}

	s.pos += len(rule.start)
	s.state = Inside
	s.active = rule
	s.mark = s.pos
	s.region.Reset()
}

func (s *Scanner) stepInside() {
	rule := s.active

	if hasAt(s.input, s.pos, rule.end) {
		s.close(s.pos)
		s.pos += len(rule.end)
		return
	}

	for _, esc := range rule.escapes {
		if hasAt(s.input, s.pos, esc.marker) {
			s.region.WriteString(string(s.input[s.mark:s.pos]))
			s.region.WriteString(esc.replacement)
			s.pos += len(esc.marker)
			s.mark = s.pos
			return
		}
	}

	s.pos++
}

// close ends the open region with its content running up to end
func (s *Scanner) close(end int) {
	if s.active.rule.Action == Keep {
		s.region.WriteString(string(s.input[s.mark:end]))
		s.results = append(s.results, s.region.String())
	}

	s.region.Reset()
	s.active = nil
	s.state = Outside
}
