package list

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFilledList() *PassageList {
	l := NewPassageList(nil)
	l.SetPassages(
		[]string{"The capital of France is Paris.", "France is a country in Europe.", "Lyon is in France."},
		[]string{"france.txt", "europe.pdf", "cities.txt"},
	)
	return l
}

func TestNewPassageList(t *testing.T) {
	l := NewPassageList(nil)

	require.NotNil(t, l)
	assert.True(t, l.IsEmpty())
	assert.Nil(t, l.SelectedPassage())
	assert.Contains(t, l.View(), "No passages")
}

func TestPassageList_SetPassages(t *testing.T) {
	l := newFilledList()

	assert.Equal(t, 3, l.Count())
	assert.Equal(t, Passage{Text: "The capital of France is Paris.", Source: "france.txt"}, l.Passages()[0])
	assert.Equal(t, 0, l.Selected())
}

func TestPassageList_SetPassages_MissingSources(t *testing.T) {
	l := NewPassageList(nil)
	l.SetPassages([]string{"a", "b"}, []string{"a.txt"})

	assert.Equal(t, "a.txt", l.Passages()[0].Source)
	assert.Empty(t, l.Passages()[1].Source)
	l.MoveDown()
	assert.Contains(t, l.View(), "(unknown source)")
}

func TestPassageList_Navigation(t *testing.T) {
	l := newFilledList()

	l.MoveUp()
	assert.Equal(t, 0, l.Selected())

	l.MoveDown()
	l.MoveDown()
	l.MoveDown()
	assert.Equal(t, 2, l.Selected())
	assert.Equal(t, "cities.txt", l.SelectedPassage().Source)

	l.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	assert.Equal(t, 1, l.Selected())

	l.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, l.Selected())

	l.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, l.Selected())
}

func TestPassageList_View(t *testing.T) {
	l := newFilledList()
	l.SetDimensions(80, 20)

	view := l.View()

	assert.Contains(t, view, "Passages (3)")
	assert.Contains(t, view, "#1 france.txt")
	assert.Contains(t, view, "The capital of France is Paris.")
}

func TestPassageList_View_Scrolls(t *testing.T) {
	l := newFilledList()
	l.SetDimensions(80, 5)

	l.MoveDown()
	l.MoveDown()
	view := l.View()

	assert.Contains(t, view, "cities.txt")
	assert.NotContains(t, view, "france.txt")
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("word ", 40)

	out := truncate(long, 30)

	assert.Equal(t, 30, len([]rune(out)))
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.Equal(t, "a b", truncate("a\n\n b", 30))
}
