// Package ui implements the interactive browser over scanned documentation.
package ui

import (
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gubarz/srcscan/internal/output"
	"github.com/gubarz/srcscan/internal/parser"
)

// ErrNoDocs is returned when there is nothing to browse
var ErrNoDocs = errors.New("no documentation found")

// browsable returns the documents that kept at least one region
func browsable(index *parser.DocIndex) []*parser.Doc {
	docs := make([]*parser.Doc, 0, len(index.Docs))
	for _, doc := range index.Docs {
		if doc.Regions > 0 {
			docs = append(docs, doc)
		}
	}
	return docs
}

// getTTY returns input/output files for the TUI. When stdout is captured
// the terminal is opened directly so the output stays clean.
func getTTY() (in *os.File, out *os.File, cleanup func()) {
	var closers []func()

	if fileInfo, _ := os.Stdout.Stat(); (fileInfo.Mode() & os.ModeCharDevice) == 0 {
		out, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0)
		if err != nil {
			out = os.Stderr
		} else {
			closers = append(closers, func() { out.Close() })
		}

		in, err := os.OpenFile("/dev/tty", os.O_RDONLY, 0)
		if err != nil {
			in = os.Stdin
		} else {
			closers = append(closers, func() { in.Close() })
		}

		lipgloss.SetDefaultRenderer(lipgloss.NewRenderer(out))

		return in, out, func() {
			for _, c := range closers {
				c()
			}
		}
	}

	return os.Stdin, os.Stdout, func() {}
}

// Run opens the browser over index and delivers the chosen document with
// mode. Quitting without a choice is not an error.
func Run(index *parser.DocIndex, w *output.Writer, mode output.OutputMode, initialQuery string) error {
	docs := browsable(index)
	if len(docs) == 0 {
		return ErrNoDocs
	}

	m := newModel(docs)
	if initialQuery != "" {
		m.textInput.SetValue(initialQuery)
		m.filter()
	}

	ttyIn, ttyOut, cleanup := getTTY()
	refreshStyles()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithOutput(ttyOut), tea.WithInput(ttyIn))
	finalModel, err := p.Run()
	cleanup()
	if err != nil {
		return err
	}

	result := finalModel.(model)
	if result.selected == nil {
		return nil
	}
	return w.OutputDoc(result.selected, mode)
}
