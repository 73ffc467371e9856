package output

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/gubarz/srcscan/internal/parser"
)

// Folder names below the documentation root
const (
	SourceFolder = "comments"
	TestFolder   = "test comments"
)

// continuation matches the leading " *" of doc comment continuation lines
var continuation = regexp.MustCompile(`\n\s+\*`)

// SyncResult counts what a sync changed
type SyncResult struct {
	Written   int
	Unchanged int
	Removed   int
}

// FolderFor returns the note folder of a document kind
func (w *Writer) FolderFor(kind parser.Kind) string {
	if kind == parser.KindTest {
		return filepath.Join(w.docPath, TestFolder)
	}
	return filepath.Join(w.docPath, SourceFolder)
}

// NotePath returns where the note of doc is written
func (w *Writer) NotePath(doc *parser.Doc) string {
	return filepath.Join(w.FolderFor(doc.Kind), doc.Name)
}

// NoteContent builds the markdown note for doc: a link back to the source,
// a rule, then the extracted text with doc comment prefixes removed
func NoteContent(doc *parser.Doc) string {
	header := fmt.Sprintf("[Source](file://%s)\n\n---\n", filepath.ToSlash(doc.Source))
	return header + TidyComments(doc.Content)
}

// TidyComments strips the "*" that continues multi-line doc comments
func TidyComments(text string) string {
	return continuation.ReplaceAllString(text, "\n")
}

// Sync writes a note for every document that is missing or older than its
// source, then removes notes in the scanned folders that no longer have a
// source.
func (w *Writer) Sync(index *parser.DocIndex) (*SyncResult, error) {
	res := &SyncResult{}
	expected := make(map[string]bool, len(index.Docs))

	for _, doc := range index.Docs {
		expected[w.NotePath(doc)] = true
		written, err := w.syncDoc(doc)
		if err != nil {
			return nil, err
		}
		if written {
			res.Written++
		} else {
			res.Unchanged++
		}
	}

	for _, kind := range []parser.Kind{parser.KindSource, parser.KindTest} {
		if !index.Kinds[kind] {
			continue
		}
		removed, err := w.prune(w.FolderFor(kind), expected)
		if err != nil {
			return nil, err
		}
		res.Removed += removed
	}

	w.logger.Info("sync finished",
		zap.Int("written", res.Written),
		zap.Int("unchanged", res.Unchanged),
		zap.Int("removed", res.Removed))
	return res, nil
}

// syncDoc writes the note of doc when it is missing or stale
func (w *Writer) syncDoc(doc *parser.Doc) (bool, error) {
	target := w.NotePath(doc)

	if info, err := os.Stat(target); err == nil && !info.ModTime().Before(doc.ModTime) {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return false, fmt.Errorf("creating note folder: %w", err)
	}
	if err := os.WriteFile(target, []byte(NoteContent(doc)), 0o644); err != nil {
		return false, fmt.Errorf("writing note %s: %w", target, err)
	}

	w.logger.Debug("note written", zap.String("note", target), zap.String("source", doc.Source))
	return true, nil
}

// prune removes markdown notes in folder that are not expected
func (w *Writer) prune(folder string, expected map[string]bool) (int, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("listing %s: %w", folder, err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		path := filepath.Join(folder, entry.Name())
		if expected[path] {
			continue
		}
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("removing orphan note %s: %w", path, err)
		}
		w.logger.Debug("orphan note removed", zap.String("note", path))
		removed++
	}
	return removed, nil
}
