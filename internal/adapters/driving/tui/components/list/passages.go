// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
)

// Passage is a retrieved context chunk and the file it came from.
type Passage struct {
	Text   string
	Source string
}

// PassageList displays the passages an answer was grounded in.
type PassageList struct {
	passages []Passage
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewPassageList creates a new passage list component.
func NewPassageList(s *styles.Styles) *PassageList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &PassageList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the passage list.
func (p *PassageList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (p *PassageList) Update(msg tea.Msg) (*PassageList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			p.MoveUp()
		case "down", "j":
			p.MoveDown()
		}
	}
	return p, nil
}

// View renders the passage list.
func (p *PassageList) View() string {
	if len(p.passages) == 0 {
		return p.styles.Muted.Render("No passages retrieved")
	}

	lines := make([]string, 0, len(p.passages)+2)
	lines = append(lines, p.styles.Subtitle.Render(fmt.Sprintf("Passages (%d)", len(p.passages))), "")

	// Each passage takes three lines: source, preview and a blank separator.
	visibleCount := (p.height - 2) / 3
	if visibleCount < 1 {
		visibleCount = 1
	}

	start := 0
	if p.selected >= visibleCount {
		start = p.selected - visibleCount + 1
	}
	end := start + visibleCount
	if end > len(p.passages) {
		end = len(p.passages)
	}

	for i := start; i < end; i++ {
		lines = append(lines, p.renderPassage(i, p.passages[i]))
	}

	return strings.Join(lines, "\n")
}

// renderPassage formats a single passage: its rank and source, then a preview.
func (p *PassageList) renderPassage(index int, passage Passage) string {
	indicator := "  "
	if index == p.selected {
		indicator = "> "
	}

	source := passage.Source
	if source == "" {
		source = "(unknown source)"
	}
	header := fmt.Sprintf("%s#%d %s", indicator, index+1, source)
	if index == p.selected {
		header = p.styles.Selected.Render(header)
	} else {
		header = p.styles.Normal.Render(header)
	}

	return header + "\n" + p.styles.Muted.Render("    "+truncate(passage.Text, p.width-6))
}

// truncate shortens s to max runes on a single line.
func truncate(s string, max int) string {
	if max < 20 {
		max = 20
	}
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

// SetPassages replaces the passages from index-aligned context and sources.
func (p *PassageList) SetPassages(context, sources []string) {
	p.passages = make([]Passage, len(context))
	for i, text := range context {
		p.passages[i] = Passage{Text: text}
		if i < len(sources) {
			p.passages[i].Source = sources[i]
		}
	}
	p.selected = 0
}

// Passages returns the current passages.
func (p *PassageList) Passages() []Passage {
	return p.passages
}

// Selected returns the index of the selected passage.
func (p *PassageList) Selected() int {
	return p.selected
}

// SelectedPassage returns the currently selected passage, or nil if none.
func (p *PassageList) SelectedPassage() *Passage {
	if len(p.passages) == 0 || p.selected < 0 || p.selected >= len(p.passages) {
		return nil
	}
	return &p.passages[p.selected]
}

// MoveUp moves selection up.
func (p *PassageList) MoveUp() {
	if p.selected > 0 {
		p.selected--
	}
}

// MoveDown moves selection down.
func (p *PassageList) MoveDown() {
	if p.selected < len(p.passages)-1 {
		p.selected++
	}
}

// SetDimensions sets the component dimensions.
func (p *PassageList) SetDimensions(width, height int) {
	p.width = width
	p.height = height
}

// Count returns the number of passages.
func (p *PassageList) Count() int {
	return len(p.passages)
}

// IsEmpty returns whether the list is empty.
func (p *PassageList) IsEmpty() bool {
	return len(p.passages) == 0
}
