package ui

import (
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gubarz/srcscan/internal/parser"
)

const (
	previewHeight = 8
	maxResults    = 1000
)

// docItem is a document prepared for display and searching
type docItem struct {
	doc    *parser.Doc
	folder string
	file   string
	search string // lowercased path and content
}

func newDocItem(doc *parser.Doc) docItem {
	rel := filepath.ToSlash(doc.RelPath)
	folder, file := path.Split(rel)
	return docItem{
		doc:    doc,
		folder: strings.TrimSuffix(folder, "/"),
		file:   file,
		search: strings.ToLower(rel + "\n" + doc.Content),
	}
}

// matchesQuery reports whether every word occurs in the item
func (item *docItem) matchesQuery(words []string) bool {
	for _, word := range words {
		if !strings.Contains(item.search, word) {
			return false
		}
	}
	return true
}

// filterMsg triggers filtering after debounce
type filterMsg struct{}

func debounceFilter() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(time.Time) tea.Msg {
		return filterMsg{}
	})
}

// pagerDoneMsg is sent when the pager opened with ctrl+o exits
type pagerDoneMsg struct{ err error }

// model is the Bubble Tea model of the document browser
type model struct {
	width     int
	height    int
	textInput textinput.Model
	preview   viewport.Model
	quitting  bool

	items    []docItem
	filtered []docItem
	cursor   int
	offset   int
	shown    *parser.Doc // document currently in the preview
	selected *parser.Doc
	err      error
}

func newModel(docs []*parser.Doc) model {
	ti := textinput.New()
	ti.Placeholder = "Type to search..."
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 50

	items := make([]docItem, len(docs))
	for i, doc := range docs {
		items[i] = newDocItem(doc)
	}

	m := model{
		items:     items,
		filtered:  items,
		textInput: ti,
		preview:   viewport.New(80, previewHeight),
	}
	m.syncPreview()
	return m
}

// Init implements tea.Model
func (m model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = msg.Width - 4
		m.preview.Width = msg.Width
	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	case filterMsg:
		m.filter()
		return m, nil
	case pagerDoneMsg:
		m.err = msg.err
		return m, nil
	}

	prevQuery := m.textInput.Value()
	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)

	if m.textInput.Value() != prevQuery {
		return m, tea.Batch(cmd, debounceFilter())
	}
	return m, cmd
}

// handleKey processes navigation keys; everything else goes to the input
func (m *model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return tea.Quit, true
	case "enter":
		if m.cursor < len(m.filtered) {
			m.selected = m.filtered[m.cursor].doc
			return tea.Quit, true
		}
		return nil, true
	case "up", "ctrl+p":
		m.moveCursor(-1)
	case "down", "ctrl+n":
		m.moveCursor(1)
	case "pgup":
		m.moveCursor(-10)
	case "pgdown":
		m.moveCursor(10)
	case "home":
		m.moveCursor(-len(m.filtered))
	case "end":
		m.moveCursor(len(m.filtered))
	case "ctrl+u":
		m.preview.SetYOffset(m.preview.YOffset - m.preview.Height/2)
	case "ctrl+d":
		m.preview.SetYOffset(m.preview.YOffset + m.preview.Height/2)
	case "ctrl+o":
		if m.cursor < len(m.filtered) {
			return openSource(m.filtered[m.cursor].doc.Source), true
		}
		return nil, true
	default:
		return nil, false
	}
	return nil, true
}

// moveCursor moves the cursor by delta, clamping to valid range
func (m *model) moveCursor(delta int) {
	m.cursor = clamp(m.cursor+delta, 0, max(0, len(m.filtered)-1))
	m.syncPreview()
}

// filter narrows the list to items containing all query words
func (m *model) filter() {
	query := strings.TrimSpace(m.textInput.Value())

	if query == "" {
		m.filtered = m.items
	} else {
		words := strings.Fields(strings.ToLower(query))
		m.filtered = make([]docItem, 0, min(len(m.items), maxResults))
		for i := range m.items {
			if m.items[i].matchesQuery(words) {
				m.filtered = append(m.filtered, m.items[i])
				if len(m.filtered) >= maxResults {
					break
				}
			}
		}
	}

	m.cursor = 0
	m.offset = 0
	m.syncPreview()
}

// syncPreview loads the document under the cursor into the preview
func (m *model) syncPreview() {
	var doc *parser.Doc
	if m.cursor < len(m.filtered) {
		doc = m.filtered[m.cursor].doc
	}
	if doc == m.shown {
		return
	}
	m.shown = doc
	if doc == nil {
		m.preview.SetContent("")
	} else {
		m.preview.SetContent(doc.Content)
	}
	m.preview.GotoTop()
}

// View implements tea.Model
func (m model) View() string {
	if m.quitting && m.selected == nil {
		return ""
	}

	width := max(m.width, 80)
	height := max(m.height, 24)

	var b strings.Builder
	b.WriteString(m.renderPreview(width))

	inputLines := 3
	listHeight := max(height-previewHeight-2-inputLines, 3)
	list := m.renderList(listHeight)
	b.WriteString(list)
	b.WriteString(strings.Repeat("\n", max(listHeight-countLines(list), 0)))
	b.WriteString(m.renderInput(width))

	return b.String()
}

// renderPreview renders the path of the current document and its text
func (m model) renderPreview(width int) string {
	var b strings.Builder
	if m.shown != nil {
		folder, file := path.Split(filepath.ToSlash(m.shown.RelPath))
		b.WriteString(styles.previewFolder.Render(folder))
		b.WriteString(styles.previewFile.Render(file))
		b.WriteString(styles.dim.Render(fmt.Sprintf("  %d regions", m.shown.Regions)))
	}
	b.WriteString("\n")
	b.WriteString(m.preview.View())
	b.WriteString("\n")
	b.WriteString(styles.divider.Render(strings.Repeat("─", width)))
	b.WriteString("\n")
	return b.String()
}

// renderList renders the scrollable list of documents
func (m *model) renderList(maxHeight int) string {
	if len(m.filtered) == 0 {
		return ""
	}

	start, end := scrollWindow(m.cursor, len(m.filtered), maxHeight, &m.offset)

	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(m.renderListItem(m.filtered[i], i == m.cursor))
		b.WriteString("\n")
	}
	return b.String()
}

func (m model) renderListItem(item docItem, selected bool) string {
	pathStyle, fileStyle, dimStyle := styles.folder, styles.file, styles.dim
	marker := "  "
	if selected {
		pathStyle = styles.selected(pathStyle)
		fileStyle = styles.selected(fileStyle)
		dimStyle = styles.selected(dimStyle)
		marker = styles.cursor.Render("▌ ")
	}

	line := marker
	if item.folder != "" {
		line += pathStyle.Render(item.folder + "/")
	}
	line += fileStyle.Render(item.file)
	line += dimStyle.Render("  " + firstLine(item.doc.Content))
	return line
}

func (m model) renderInput(width int) string {
	var b strings.Builder
	b.WriteString(styles.divider.Render(strings.Repeat("─", width)))
	b.WriteString("\n")
	b.WriteString(styles.dim.Render(fmt.Sprintf("%d/%d", len(m.filtered), len(m.items))))
	if m.err != nil {
		b.WriteString(styles.dim.Render("  " + m.err.Error()))
	}
	b.WriteString("\n")
	b.WriteString(m.textInput.View())
	return b.String()
}

// openSource shows path in the user's pager and resumes the browser after
func openSource(path string) tea.Cmd {
	pager := os.Getenv("PAGER")
	if pager == "" {
		pager = "less"
	}
	args := strings.Fields(pager)
	cmd := exec.Command(args[0], append(args[1:], path)...)
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return pagerDoneMsg{err: err}
	})
}

func clamp(v, minV, maxV int) int {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(strings.TrimSuffix(s, "\n"), "\n") + 1
}

// scrollWindow calculates the visible range for a scrollable list
func scrollWindow(cursor, total, height int, offset *int) (start, end int) {
	if cursor < *offset {
		*offset = cursor
	}
	if cursor >= *offset+height {
		*offset = cursor - height + 1
	}
	*offset = clamp(*offset, 0, max(0, total-height))

	start = *offset
	end = min(start+height, total)
	return
}

// firstLine returns the first non-blank line of s, trimmed
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
