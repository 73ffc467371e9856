package ui

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/gubarz/srcscan/internal/config"
)

// palette is the set of colors the browser is drawn with
type palette struct {
	header   lipgloss.Color
	path     lipgloss.Color
	border   lipgloss.Color
	cursor   lipgloss.Color
	selected lipgloss.Color
	dim      lipgloss.Color
}

func defaultPalette() palette {
	return palette{
		header:   "6",
		path:     "2",
		border:   "240",
		cursor:   "212",
		selected: "236",
		dim:      "241",
	}
}

// configPalette reads the color_* settings, keeping the default for
// any color left empty
func configPalette() palette {
	p := defaultPalette()
	pick := func(dst *lipgloss.Color, code string) {
		if code != "" {
			*dst = ansiColor(code)
		}
	}
	pick(&p.header, config.GetColorHeader())
	pick(&p.path, config.GetColorPath())
	pick(&p.border, config.GetColorBorder())
	pick(&p.cursor, config.GetColorCursor())
	pick(&p.selected, config.GetColorSelected())
	pick(&p.dim, config.GetColorDim())
	return p
}

// theme holds the rendered styles of a palette
type theme struct {
	folder  lipgloss.Style
	file    lipgloss.Style
	cursor  lipgloss.Style
	dim     lipgloss.Style
	divider lipgloss.Style

	previewFolder lipgloss.Style
	previewFile   lipgloss.Style

	selectedBg lipgloss.Color
}

func newTheme(p palette) theme {
	return theme{
		folder:        lipgloss.NewStyle().Foreground(p.path),
		file:          lipgloss.NewStyle().Foreground(p.header),
		cursor:        lipgloss.NewStyle().Foreground(p.cursor),
		dim:           lipgloss.NewStyle().Foreground(p.dim),
		divider:       lipgloss.NewStyle().Foreground(p.border),
		previewFolder: lipgloss.NewStyle().Foreground(p.path),
		previewFile:   lipgloss.NewStyle().Bold(true).Foreground(p.header),
		selectedBg:    p.selected,
	}
}

// selected returns style drawn on the selected row background
func (t theme) selected(style lipgloss.Style) lipgloss.Style {
	return style.Background(t.selectedBg)
}

// ansiColor maps the 16 ANSI foreground codes (30-37, 90-97) to their
// palette index. Anything else is passed through as a lipgloss color.
func ansiColor(code string) lipgloss.Color {
	n, err := strconv.Atoi(code)
	switch {
	case err != nil || len(code) != 2:
	case n >= 30 && n <= 37:
		return lipgloss.Color(strconv.Itoa(n - 30))
	case n >= 90 && n <= 97:
		return lipgloss.Color(strconv.Itoa(n - 90 + 8))
	}
	return lipgloss.Color(code)
}

var styles = newTheme(defaultPalette())

// refreshStyles rebuilds the styles from the configured colors
func refreshStyles() {
	styles = newTheme(configPalette())
}
