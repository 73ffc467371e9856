package markers

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Link points at a marker inside a note
type Link struct {
	Note   string
	Marker string
}

func (l Link) embed() string {
	return fmt.Sprintf("![[%s#%s]]\n", l.Note, l.Marker)
}

// Implementation is a marker found in source notes together with the test
// markers that refer to it
type Implementation struct {
	Marker string
	Notes  []string
	Tests  []Link
}

// Solution groups the implementations that share a solution path
type Solution struct {
	Path            string // slash separated, without extension
	Stories         []Link
	Implementations []Implementation
}

// SolutionPath maps a marker to the file its solution is written to. The
// trailing sequence number is dropped and the remaining name/number pairs
// become path segments: ^S-1 gives "S", ^S-1-api-2 gives "S-1/api".
func SolutionPath(marker string) string {
	parts := strings.Split(strings.TrimPrefix(marker, "^"), "-")
	parts = parts[:len(parts)-1]

	segments := make([]string, 0, len(parts)/2+1)
	for i := 0; i < len(parts); i += 2 {
		if i+1 < len(parts) {
			segments = append(segments, parts[i]+"-"+parts[i+1])
		} else {
			segments = append(segments, parts[i])
		}
	}
	return strings.Join(segments, "/")
}

// IsTestMarker reports whether marker names a test of an implementation
// marker (story, solution and test pairs)
func IsTestMarker(marker string) bool {
	return strings.Count(marker, "-") == 5
}

// testedMarker returns the implementation marker a test marker refers to
func testedMarker(marker string) string {
	parts := strings.Split(marker, "-")
	return strings.Join(parts[:len(parts)-2], "-")
}

// coversStory reports whether a story marker is marker itself or one of
// its leading pairs
func coversStory(marker, story string) bool {
	return marker == story || strings.HasPrefix(marker, story+"-")
}

// BuildSolutions groups the markers of source notes into solutions, linking
// the story notes that describe them and the test notes that verify them.
// Solutions are ordered by path.
func BuildSolutions(sources, tests, stories *Index) []Solution {
	testsOf := make(map[string][]Link)
	for _, m := range tests.SortedMarkers() {
		if !IsTestMarker(m) {
			continue
		}
		target := testedMarker(m)
		for _, note := range tests.Markers[m] {
			testsOf[target] = append(testsOf[target], Link{Note: note, Marker: m})
		}
	}

	byPath := make(map[string]*Solution)
	var paths []string
	for _, m := range sources.SortedMarkers() {
		path := SolutionPath(m)
		sol, ok := byPath[path]
		if !ok {
			sol = &Solution{Path: path}
			byPath[path] = sol
			paths = append(paths, path)
		}
		sol.Implementations = append(sol.Implementations, Implementation{
			Marker: m,
			Notes:  sources.Markers[m],
			Tests:  testsOf[m],
		})
	}

	storyMarkers := stories.SortedMarkers()
	slices.Sort(paths)
	solutions := make([]Solution, 0, len(paths))
	for _, path := range paths {
		sol := byPath[path]
		first := sol.Implementations[0].Marker
		for _, s := range storyMarkers {
			if !coversStory(first, s) {
				continue
			}
			for _, note := range stories.Markers[s] {
				sol.Stories = append(sol.Stories, Link{Note: note, Marker: s})
			}
		}
		solutions = append(solutions, *sol)
	}
	return solutions
}

// Render builds the markdown of a solution file. Linked sections are
// embedded so the file reads as one document.
func (s Solution) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", strings.ToUpper(strings.ReplaceAll(s.Path, "/", " ")))

	b.WriteString("## Functional Requirement\n")
	for _, l := range s.Stories {
		b.WriteString(l.embed())
	}

	b.WriteString("## Implementation Solution\n")
	for _, impl := range s.Implementations {
		for _, note := range impl.Notes {
			b.WriteString(Link{Note: note, Marker: impl.Marker}.embed())
		}
		if len(impl.Tests) > 0 {
			b.WriteString("### Unit Test Implementation\n")
			for _, l := range impl.Tests {
				b.WriteString(l.embed())
			}
		}
	}
	return b.String()
}

// clearNotes removes the markdown files below dir, leaving anything else
func clearNotes(dir string) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir && os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		return os.Remove(path)
	})
	if err != nil {
		return fmt.Errorf("clearing %s: %w", dir, err)
	}
	return nil
}
