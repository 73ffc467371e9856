package markers

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/gubarz/srcscan/internal/logging"
	"github.com/gubarz/srcscan/internal/output"
)

// Folders and files below the documentation root
const (
	MarkerFolder   = "marker"
	SolutionFolder = "solutions"
	StoryFolder    = "stories"
	TableFile      = "marker-table.md"
	NoteTableFile  = "document-markers.md"
)

// Report counts what a generation produced
type Report struct {
	Markers   int
	Notes     int
	Solutions int
}

// Generator writes the marker table, the note index and the solution files
// of a documentation folder
type Generator struct {
	docPath string
	logger  *zap.Logger
}

// NewGenerator creates a generator for the notes below docPath
func NewGenerator(docPath string, logger *zap.Logger) *Generator {
	return &Generator{
		docPath: docPath,
		logger:  logging.OrNop(logger),
	}
}

// Generate reads the synced notes and the story notes and rewrites every
// generated file. Solution files from earlier runs are removed first.
func (g *Generator) Generate() (*Report, error) {
	sources, err := Collect(g.docPath, output.SourceFolder)
	if err != nil {
		return nil, err
	}
	tests, err := Collect(g.docPath, output.TestFolder)
	if err != nil {
		return nil, err
	}
	stories, err := Collect(g.docPath, StoryFolder)
	if err != nil {
		return nil, err
	}

	markerDir := filepath.Join(g.docPath, MarkerFolder)
	if err := g.write(filepath.Join(markerDir, TableFile), Table(sources)); err != nil {
		return nil, err
	}
	if err := g.write(filepath.Join(markerDir, NoteTableFile), NoteTable(sources)); err != nil {
		return nil, err
	}

	solutionDir := filepath.Join(g.docPath, SolutionFolder)
	if err := clearNotes(solutionDir); err != nil {
		return nil, err
	}
	solutions := BuildSolutions(sources, tests, stories)
	for _, sol := range solutions {
		target := filepath.Join(solutionDir, filepath.FromSlash(sol.Path)+".md")
		if err := g.write(target, sol.Render()); err != nil {
			return nil, err
		}
	}

	report := &Report{
		Markers:   len(sources.Markers),
		Notes:     len(sources.Notes),
		Solutions: len(solutions),
	}
	g.logger.Info("markers generated",
		zap.Int("markers", report.Markers),
		zap.Int("notes", report.Notes),
		zap.Int("solutions", report.Solutions))
	return report, nil
}

func (g *Generator) write(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	g.logger.Debug("file written", zap.String("path", path))
	return nil
}
