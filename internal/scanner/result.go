package scanner

import "strings"

// Separator joins kept regions in the assembled output
const Separator = "\n"

// Result holds the content of every closed Keep region in discovery order
type Result []string

// String joins the regions with Separator. An empty result yields "".
func (r Result) String() string {
	return strings.Join(r, Separator)
}

// Scan runs a fresh Scanner over input and returns the kept regions
func (t *Table) Scan(input string) Result {
	return New(t, input).Run()
}

// Extract returns the kept regions of input joined with Separator
func (t *Table) Extract(input string) string {
	return t.Scan(input).String()
}

// ExtractRegions builds a Table from rules and extracts input with it.
// The only possible error is an invalid rule set.
func ExtractRegions(input string, rules []Rule) (string, error) {
	table, err := NewTable(rules)
	if err != nil {
		return "", err
	}
	return table.Extract(input), nil
}
