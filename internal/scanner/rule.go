package scanner

import (
	"fmt"
	"strings"
)

// Action decides what happens to the content of a region once it closes
type Action int

const (
	// Keep emits the region content to the result
	Keep Action = iota
	// Discard consumes the region without emitting anything
	Discard
)

// String returns the canonical name of the action
func (a Action) String() string {
	switch a {
	case Keep:
		return "keep"
	case Discard:
		return "discard"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// ParseAction parses an action name. "take" and "ignore" are accepted as
// aliases for keep and discard.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "keep", "take":
		return Keep, nil
	case "discard", "ignore":
		return Discard, nil
	default:
		return Keep, fmt.Errorf("unknown action %q (supported: keep, discard)", s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Escape is a marker that is replaced while scanning inside a region
type Escape struct {
	Marker      string
	Replacement string
}

// Rule describes one kind of delimited region
type Rule struct {
	Start   string   // Opens the region, never part of the output
	End     string   // Closes the region, never part of the output
	Escapes []Escape // Checked in order while looking for End
	Action  Action
}

// DefaultRules returns the comment/string table for C-family sources.
// Doc comments and line comments are kept, string literals are skipped so
// that comment markers inside them are not picked up.
func DefaultRules() []Rule {
	return []Rule{
		{Start: "/**", End: "*/", Action: Keep},
		{Start: "///", End: "\n", Action: Keep},
		{Start: "//", End: "\n", Action: Keep},
		{Start: `"""`, End: `"""`, Action: Discard},
		{Start: `"`, End: `"`, Escapes: []Escape{{Marker: `\"`, Replacement: `"`}}, Action: Discard},
	}
}
