// Package chat provides the question and answer view for the TUI.
package chat

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// maxTranscript is the number of exchanges rendered above the input.
const maxTranscript = 3

// Exchange is one question and the answer it received.
type Exchange struct {
	Question string
	Answer   *domain.Answer
}

// View represents the chat view with a transcript, passages, input and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.Input
	passages  *list.PassageList
	statusbar *status.Bar

	queryService driving.QueryService
	ctx          context.Context
	topK         int

	transcript  []Exchange
	pending     string
	width       int
	height      int
	ready       bool
	err         error
	focusInput  bool // true = typing a question, false = reading the answer
	showContext bool
}

// NewView creates a new chat view.
func NewView(s *styles.Styles, km *keymap.KeyMap, queryService driving.QueryService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:       s,
		keymap:       km,
		input:        input.NewQuestionInput(s),
		passages:     list.NewPassageList(s),
		statusbar:    status.NewBar(s, km),
		queryService: queryService,
		ctx:          context.Background(),
		width:        80,
		height:       24,
		focusInput:   true,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// WithTopK sets the number of passages retrieved per question. Zero uses the configured default.
func (v *View) WithTopK(k int) *View {
	v.topK = k
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerReceived:
		v.handleAnswer(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	if v.focusInput {
		if msg.Type == tea.KeyEnter {
			return v, v.submit()
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	// Answer mode
	key := msg.String()
	switch {
	case keymap.Matches(key, v.keymap.NewQuestion):
		v.focusInput = true
		v.input.Reset()
		return v, v.input.Focus()
	case keymap.Matches(key, v.keymap.ToggleContext):
		v.showContext = !v.showContext
	case keymap.Matches(key, v.keymap.Up):
		v.passages.MoveUp()
	case keymap.Matches(key, v.keymap.Down):
		v.passages.MoveDown()
	}
	return v, nil
}

// submit sends the typed question to the query service.
func (v *View) submit() tea.Cmd {
	question := strings.TrimSpace(v.input.Value())
	if question == "" || v.pending != "" {
		return nil
	}

	v.pending = question
	v.err = nil
	v.focusInput = false
	v.input.Blur()
	v.statusbar.SetState(status.StateThinking)
	v.statusbar.SetMessage("")
	return v.ask(question)
}

// ask runs the question against the query service.
func (v *View) ask(question string) tea.Cmd {
	opts := domain.QueryOptions{TopK: v.topK}
	return func() tea.Msg {
		if v.queryService == nil {
			return messages.AnswerReceived{Question: question, Err: ErrNoQueryService}
		}
		answer, err := v.queryService.Answer(v.ctx, question, opts)
		return messages.AnswerReceived{Question: question, Answer: answer, Err: err}
	}
}

// handleAnswer appends the answer to the transcript.
func (v *View) handleAnswer(msg messages.AnswerReceived) {
	v.pending = ""
	if msg.Err == nil && msg.Answer == nil {
		msg.Err = ErrNoAnswer
	}
	if msg.Err != nil {
		v.setError(msg.Err)
		v.focusInput = true
		v.input.Focus()
		return
	}

	v.err = nil
	v.transcript = append(v.transcript, Exchange{Question: msg.Question, Answer: msg.Answer})
	v.passages.SetPassages(msg.Answer.Context, msg.Answer.Sources)
	v.statusbar.SetState(status.StateAnswered)
	v.statusbar.SetPassageCount(len(msg.Answer.Context))
	v.input.Reset()
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// View renders the chat view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 12)
	sections = append(sections, v.styles.Title.Render("docqa"), "")

	start := 0
	if len(v.transcript) > maxTranscript {
		start = len(v.transcript) - maxTranscript
	}
	for _, ex := range v.transcript[start:] {
		sections = append(sections, v.renderExchange(ex), "")
	}

	if v.pending != "" {
		sections = append(sections,
			v.styles.Question.Render("Q: "+v.pending),
			v.styles.Muted.Render("Thinking..."), "")
	}

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	if v.showContext && !v.focusInput {
		sections = append(sections, v.passages.View(), "")
	}

	sections = append(sections, v.input.View(), "", v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderExchange formats a question, its answer and the distinct sources cited.
func (v *View) renderExchange(ex Exchange) string {
	wrap := lipgloss.NewStyle().Width(v.width - 2)
	lines := []string{
		v.styles.Question.Render("Q: " + ex.Question),
		wrap.Render(v.styles.Answer.Render(ex.Answer.Text)),
	}
	if sources := distinct(ex.Answer.Sources); len(sources) > 0 {
		lines = append(lines, v.styles.Citation.Render("Sources: "+strings.Join(sources, ", ")))
	}
	return strings.Join(lines, "\n")
}

// distinct returns non-empty values in first-seen order.
func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, s := range values {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.passages.SetDimensions(width, height/2)
	v.statusbar.SetWidth(width)
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Question returns the question being typed.
func (v *View) Question() string {
	return v.input.Value()
}

// SetQuestion sets the question being typed.
func (v *View) SetQuestion(q string) {
	v.input.SetValue(q)
}

// Transcript returns the answered exchanges.
func (v *View) Transcript() []Exchange {
	return v.transcript
}

// Pending returns the question awaiting an answer, if any.
func (v *View) Pending() string {
	return v.pending
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// ContextVisible returns whether retrieved passages are shown.
func (v *View) ContextVisible() bool {
	return v.showContext
}

// Reset clears the transcript and returns to input mode.
func (v *View) Reset() {
	v.transcript = nil
	v.pending = ""
	v.err = nil
	v.focusInput = true
	v.showContext = false
	v.input.Reset()
	v.input.Focus()
	v.passages.SetPassages(nil, nil)
	v.statusbar.Clear()
}
