package parser

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gubarz/srcscan/internal/logging"
	"github.com/gubarz/srcscan/internal/scanner"
)

// Kind tells whether a document comes from application or test sources
type Kind int

const (
	KindSource Kind = iota
	KindTest
)

func (k Kind) String() string {
	if k == KindTest {
		return "test"
	}
	return "source"
}

// Doc is the extracted documentation of one source file
type Doc struct {
	Source  string    // Absolute source path
	RelPath string    // Source path relative to its root
	Name    string    // Documentation note file name
	Kind    Kind      // Application or test source
	Content string    // Kept regions joined by newlines
	Regions int       // Number of kept regions
	ModTime time.Time // Source modification time
}

// Duplicate records two sources that map to the same note name
type Duplicate struct {
	Name  string
	File1 string
	File2 string
}

// DocIndex holds all scanned documents
type DocIndex struct {
	Docs       []*Doc
	Duplicates []Duplicate
	Kinds      map[Kind]bool // Kinds whose roots were scanned
}

// NewDocIndex creates an empty document index
func NewDocIndex() *DocIndex {
	return &DocIndex{
		Docs:  make([]*Doc, 0),
		Kinds: make(map[Kind]bool),
	}
}

// defaultSkipDirs are never descended into
var defaultSkipDirs = map[string]bool{
	".git":         true,
	".svn":         true,
	".hg":          true,
	"node_modules": true,
	"vendor":       true,
	".idea":        true,
	".vscode":      true,
	".cache":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
}

// SkipDir reports whether a directory name is excluded from scanning
func SkipDir(name string) bool {
	return defaultSkipDirs[name]
}

// Option configures a Parser
type Option func(*Parser)

// WithExtensions limits scanning to files with the given suffixes.
// No extensions means every file is scanned.
func WithExtensions(exts ...string) Option {
	return func(p *Parser) {
		p.extensions = exts
	}
}

// WithGroupSize sets how many files are scanned together
func WithGroupSize(n int) Option {
	return func(p *Parser) {
		p.groupSize = max(n, 1)
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(p *Parser) {
		p.logger = logging.OrNop(l)
	}
}

// Parser scans source trees with a delimiter table
type Parser struct {
	table      *scanner.Table
	extensions []string
	groupSize  int
	logger     *zap.Logger
	index      *DocIndex
	names      map[string]string // note name -> source, per kind
}

// NewParser creates a new parser
func NewParser(table *scanner.Table, opts ...Option) *Parser {
	p := &Parser{
		table:     table,
		groupSize: 10,
		logger:    zap.NewNop(),
		index:     NewDocIndex(),
		names:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Index returns everything parsed so far
func (p *Parser) Index() *DocIndex {
	return p.index
}

// Matches reports whether path has one of the configured extensions
func (p *Parser) Matches(path string) bool {
	if len(p.extensions) == 0 {
		return true
	}
	lower := strings.ToLower(path)
	for _, ext := range p.extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// ParseDirectory recursively scans all matching files below dir
func (p *Parser) ParseDirectory(ctx context.Context, dir string, kind Kind) (*DocIndex, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}

	files, err := p.collect(root)
	if err != nil {
		return nil, err
	}
	p.index.Kinds[kind] = true

	batches := Batch(files, p.groupSize)
	p.logger.Debug("scanning directory",
		zap.String("root", root),
		zap.Stringer("kind", kind),
		zap.Int("files", len(files)),
		zap.Int("batches", len(batches)))

	for _, batch := range batches {
		docs, err := p.scanBatch(ctx, root, batch, kind)
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			if doc != nil {
				p.add(doc)
			}
		}
	}
	return p.index, nil
}

// ParseSingleFile scans one file. Its note name is derived from the file
// name alone. The source kind is not marked as scanned, so a sync of the
// result never prunes the notes of other files.
func (p *Parser) ParseSingleFile(ctx context.Context, path string) (*DocIndex, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	doc, err := p.parseFile(ctx, filepath.Dir(abs), abs, KindSource)
	if err != nil {
		return nil, err
	}
	if doc != nil {
		p.add(doc)
	}
	return p.index, nil
}

// collect lists matching files below root in lexical order
func (p *Parser) collect(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if p.Matches(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return files, nil
}

// scanBatch scans the files of one batch concurrently. The returned slice
// keeps the order of files; skipped files leave a nil entry.
func (p *Parser) scanBatch(ctx context.Context, root string, files []string, kind Kind) ([]*Doc, error) {
	docs := make([]*Doc, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.groupSize)
	for i, file := range files {
		g.Go(func() error {
			doc, err := p.parseFile(ctx, root, file, kind)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (p *Parser) parseFile(ctx context.Context, root, path string, kind Kind) (*Doc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	// Skip binary files (invalid UTF-8)
	if !utf8.Valid(content) {
		p.logger.Debug("skipping binary file", zap.String("file", path))
		return nil, nil
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return nil, fmt.Errorf("computing relative path: %w", err)
	}

	result := p.table.Scan(string(content))
	return &Doc{
		Source:  path,
		RelPath: rel,
		Name:    DocName(rel),
		Kind:    kind,
		Content: result.String(),
		Regions: len(result),
		ModTime: info.ModTime(),
	}, nil
}

// add appends doc unless another source already claimed its note name
func (p *Parser) add(doc *Doc) {
	key := doc.Kind.String() + "/" + doc.Name
	if prev, ok := p.names[key]; ok {
		if prev != doc.Source {
			p.index.Duplicates = append(p.index.Duplicates, Duplicate{
				Name:  doc.Name,
				File1: prev,
				File2: doc.Source,
			})
			p.logger.Warn("duplicate note name",
				zap.String("name", doc.Name),
				zap.String("kept", prev),
				zap.String("dropped", doc.Source))
		}
		return
	}
	p.names[key] = doc.Source
	p.index.Docs = append(p.index.Docs, doc)
}

// DocName turns a source path relative to its root into a flat note name:
// the extension becomes .md and path separators become dots.
func DocName(rel string) string {
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, filepath.Ext(rel)) + ".md"
	return strings.ReplaceAll(rel, "/", ".")
}

// Batch splits files into consecutive groups of at most size entries
func Batch(files []string, size int) [][]string {
	size = max(size, 1)
	var batches [][]string
	for i := 0; i < len(files); i += size {
		end := min(i+size, len(files))
		batches = append(batches, files[i:end])
	}
	return batches
}
