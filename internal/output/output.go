package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"

	"github.com/gubarz/srcscan/internal/logging"
	"github.com/gubarz/srcscan/internal/parser"
)

// ============================================================================
// Clipboard Interface
// ============================================================================

// Clipboard defines the interface for clipboard operations
type Clipboard interface {
	Copy(text string) error
}

// systemClipboard implements Clipboard with the platform clipboard
type systemClipboard struct {
	fallback io.Writer
}

// Copy copies text to the system clipboard
func (c *systemClipboard) Copy(text string) error {
	if clipboard.Unsupported {
		// No clipboard tool found, just print
		_, err := fmt.Fprintln(c.fallback, text)
		return err
	}
	return clipboard.WriteAll(text)
}

// ============================================================================
// Writer
// ============================================================================

// OutputMode represents how extracted documentation is delivered
type OutputMode string

const (
	OutputPrint OutputMode = "print"
	OutputCopy  OutputMode = "copy"
	OutputSync  OutputMode = "sync"
)

// ErrUnknownMode is returned for an unsupported output mode
var ErrUnknownMode = errors.New("unknown output mode")

// ParseMode validates an output mode name
func ParseMode(s string) (OutputMode, error) {
	switch mode := OutputMode(strings.ToLower(s)); mode {
	case OutputPrint, OutputCopy, OutputSync:
		return mode, nil
	case "":
		return OutputPrint, nil
	default:
		return "", fmt.Errorf("%w: %s (supported: print, copy, sync)", ErrUnknownMode, s)
	}
}

// Writer delivers a document index to stdout, the clipboard or the
// documentation folder
type Writer struct {
	out       io.Writer
	clipboard Clipboard
	docPath   string
	logger    *zap.Logger
}

// NewWriter creates a writer that syncs notes below docPath
func NewWriter(docPath string) *Writer {
	return &Writer{
		out:       os.Stdout,
		clipboard: &systemClipboard{fallback: os.Stdout},
		docPath:   docPath,
		logger:    zap.NewNop(),
	}
}

// WithClipboard sets a custom clipboard implementation (useful for testing)
func (w *Writer) WithClipboard(c Clipboard) *Writer {
	w.clipboard = c
	return w
}

// WithOutput redirects printed output
func (w *Writer) WithOutput(out io.Writer) *Writer {
	w.out = out
	if sc, ok := w.clipboard.(*systemClipboard); ok {
		sc.fallback = out
	}
	return w
}

// WithLogger sets the logger
func (w *Writer) WithLogger(l *zap.Logger) *Writer {
	w.logger = logging.OrNop(l)
	return w
}

// DocPath returns the documentation root
func (w *Writer) DocPath() string {
	return w.docPath
}

// Render formats an index as plain text. A single document is rendered as
// its bare content; several documents get a header line each and documents
// without regions are left out.
func Render(index *parser.DocIndex) string {
	if len(index.Docs) == 1 {
		return index.Docs[0].Content
	}

	var b strings.Builder
	for _, doc := range index.Docs {
		if doc.Regions == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "==> %s <==\n", doc.RelPath)
		b.WriteString(doc.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// Output delivers index with the given mode
func (w *Writer) Output(index *parser.DocIndex, mode OutputMode) error {
	switch mode {
	case OutputSync:
		res, err := w.Sync(index)
		if err != nil {
			return err
		}
		fmt.Fprintf(w.out, "%d written, %d unchanged, %d removed\n", res.Written, res.Unchanged, res.Removed)
		return nil
	case OutputCopy:
		return w.clipboard.Copy(Render(index))
	case OutputPrint:
		text := Render(index)
		if text == "" {
			return nil
		}
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		_, err := io.WriteString(w.out, text)
		return err
	default:
		return fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
}

// OutputDoc delivers a single document's content
func (w *Writer) OutputDoc(doc *parser.Doc, mode OutputMode) error {
	if mode == OutputSync {
		// a single document must not prune its siblings
		_, err := w.syncDoc(doc)
		return err
	}
	index := parser.NewDocIndex()
	index.Docs = append(index.Docs, doc)
	return w.Output(index, mode)
}
