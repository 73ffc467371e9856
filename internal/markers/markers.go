// Package markers cross-references the story markers found in synced notes.
//
// A marker is a caret followed by dash separated name/number pairs, such as
// ^STORY-12 or ^STORY-12-solution-3-test-1. Markers are written inside
// source comments, end up in the notes after a sync, and are collected here
// into a marker table and per-solution summary files.
package markers

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// pattern matches a marker preceded by whitespace
var pattern = regexp.MustCompile(`\s\^[a-zA-Z]+[a-zA-Z0-9]+-[0-9]+(-[a-zA-Z]+[a-zA-Z0-9]+-[0-9]+)*`)

// Find returns the distinct markers in text, sorted
func Find(text string) []string {
	var found []string
	for _, m := range pattern.FindAllString(text, -1) {
		found = append(found, strings.TrimSpace(m))
	}
	slices.Sort(found)
	return slices.Compact(found)
}

// Index maps markers to the notes containing them and back
type Index struct {
	Markers map[string][]string // marker -> notes
	Notes   map[string][]string // note -> markers
}

// NewIndex creates an empty index
func NewIndex() *Index {
	return &Index{
		Markers: make(map[string][]string),
		Notes:   make(map[string][]string),
	}
}

// Add records the markers of one note. Notes without markers are ignored.
func (idx *Index) Add(note, text string) {
	found := Find(text)
	if len(found) == 0 {
		return
	}
	idx.Notes[note] = found
	for _, m := range found {
		notes := idx.Markers[m]
		if i, ok := slices.BinarySearch(notes, note); !ok {
			idx.Markers[m] = slices.Insert(notes, i, note)
		}
	}
}

// SortedMarkers returns every marker in order
func (idx *Index) SortedMarkers() []string {
	keys := make([]string, 0, len(idx.Markers))
	for m := range idx.Markers {
		keys = append(keys, m)
	}
	slices.Sort(keys)
	return keys
}

// SortedNotes returns every note with markers in order
func (idx *Index) SortedNotes() []string {
	keys := make([]string, 0, len(idx.Notes))
	for n := range idx.Notes {
		keys = append(keys, n)
	}
	slices.Sort(keys)
	return keys
}

// Collect indexes the markdown notes below docPath/folder. Notes are keyed
// by their slash separated path relative to docPath. A missing folder
// yields an empty index.
func Collect(docPath, folder string) (*Index, error) {
	idx := NewIndex()
	root := filepath.Join(docPath, folder)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading note %s: %w", path, err)
		}
		rel, err := filepath.Rel(docPath, path)
		if err != nil {
			return fmt.Errorf("computing relative path: %w", err)
		}
		idx.Add(filepath.ToSlash(rel), string(content))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collecting markers in %s: %w", root, err)
	}
	return idx, nil
}

// Table renders the marker table: one row per marker and note, linking to
// the marker inside the note
func Table(idx *Index) string {
	var b strings.Builder
	b.WriteString("|marker|document|\n")
	b.WriteString("|------|--------|\n")
	for _, m := range idx.SortedMarkers() {
		for _, note := range idx.Markers[m] {
			fmt.Fprintf(&b, "|%s|[[%s#%s]]|\n", strings.TrimPrefix(m, "^"), note, m)
		}
	}
	return b.String()
}

// NoteTable renders the reverse index: one row per note listing its markers
func NoteTable(idx *Index) string {
	var b strings.Builder
	b.WriteString("|document|markers|\n")
	b.WriteString("|--------|-------|\n")
	for _, note := range idx.SortedNotes() {
		names := make([]string, len(idx.Notes[note]))
		for i, m := range idx.Notes[note] {
			names[i] = strings.TrimPrefix(m, "^")
		}
		fmt.Fprintf(&b, "|[[%s]]|%s|\n", note, strings.Join(names, ", "))
	}
	return b.String()
}
