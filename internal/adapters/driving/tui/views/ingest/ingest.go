// Package ingest provides the view that adds documents to the index.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/extractors"
)

// ErrNoIngestService indicates that no ingest service was provided.
var ErrNoIngestService = errors.New("ingest service is required")

// ErrNoFiles indicates the given paths contained nothing to index.
var ErrNoFiles = errors.New("no supported files found")

// View lets the user type file or directory paths and index them.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.Input
	statusbar *status.Bar

	ingestService driving.IngestService
	ctx           context.Context

	running bool
	paths   []string
	report  *domain.IngestReport
	err     error
	width   int
	height  int
	ready   bool
}

// NewView creates a new ingest view.
func NewView(s *styles.Styles, km *keymap.KeyMap, ingestService driving.IngestService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:        s,
		keymap:        km,
		input:         input.NewPathInput(s),
		statusbar:     status.NewBar(s, km),
		ingestService: ingestService,
		ctx:           context.Background(),
		width:         80,
		height:        24,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the ingest view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		//nolint:exhaustive // handling only relevant key types
		switch msg.Type {
		case tea.KeyEsc:
			return v, func() tea.Msg {
				return messages.ViewChanged{View: messages.ViewMenu}
			}
		case tea.KeyEnter:
			return v, v.submit()
		default:
			var cmd tea.Cmd
			v.input, cmd = v.input.Update(msg)
			return v, cmd
		}

	case messages.IngestCompleted:
		v.handleCompleted(msg)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit starts indexing the typed paths.
func (v *View) submit() tea.Cmd {
	fields := strings.Fields(v.input.Value())
	if len(fields) == 0 || v.running {
		return nil
	}

	v.running = true
	v.err = nil
	v.report = nil
	v.statusbar.SetState(status.StateIndexing)
	v.statusbar.SetMessage("")
	return v.ingest(fields)
}

// ingest expands, loads and indexes the paths.
func (v *View) ingest(args []string) tea.Cmd {
	return func() tea.Msg {
		if v.ingestService == nil {
			return messages.IngestCompleted{Paths: args, Err: ErrNoIngestService}
		}
		paths, err := extractors.ExpandPaths(args)
		if err != nil {
			return messages.IngestCompleted{Paths: args, Err: err}
		}
		if len(paths) == 0 {
			return messages.IngestCompleted{Paths: args, Err: ErrNoFiles}
		}
		docs, err := extractors.LoadDocuments(paths)
		if err != nil {
			return messages.IngestCompleted{Paths: paths, Err: err}
		}
		report, err := v.ingestService.Ingest(v.ctx, docs)
		return messages.IngestCompleted{Paths: paths, Report: report, Err: err}
	}
}

// handleCompleted records the outcome of an ingestion.
func (v *View) handleCompleted(msg messages.IngestCompleted) {
	v.running = false
	v.paths = msg.Paths
	v.report = msg.Report
	v.err = msg.Err

	if msg.Err != nil {
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return
	}

	indexed := 0
	if msg.Report != nil {
		indexed = msg.Report.DocumentsIndexed
	}
	v.input.Reset()
	v.statusbar.SetState(status.StateReady)
	v.statusbar.SetMessage(fmt.Sprintf("Indexed %d documents", indexed))
}

// View renders the ingest view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := []string{
		v.styles.Title.Render("Add documents"),
		"",
		v.styles.Muted.Render("Enter PDF or text files, or directories, separated by spaces."),
		"",
		v.input.View(),
		"",
	}

	if v.running {
		sections = append(sections, v.styles.Muted.Render("Indexing..."), "")
	}
	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}
	if v.report != nil {
		sections = append(sections, v.renderReport(), "")
	}

	sections = append(sections, v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderReport summarises the last ingestion.
func (v *View) renderReport() string {
	r := v.report
	lines := []string{
		v.styles.Success.Render(fmt.Sprintf("%d documents, %d chunks indexed", r.DocumentsIndexed, r.ChunksIndexed)),
	}
	if r.BatchID != "" {
		lines = append(lines, v.styles.Muted.Render("batch "+r.BatchID))
	}
	for _, s := range r.Skipped {
		lines = append(lines, v.styles.Warning.Render(fmt.Sprintf("skipped %s: %s", s.Filename, s.Reason)))
	}
	return strings.Join(lines, "\n")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
}

// Running returns whether an ingestion is in flight.
func (v *View) Running() bool {
	return v.running
}

// Report returns the last ingestion report, if any.
func (v *View) Report() *domain.IngestReport {
	return v.report
}

// Paths returns the files considered by the last ingestion.
func (v *View) Paths() []string {
	return v.paths
}

// Err returns the last error, if any.
func (v *View) Err() error {
	return v.err
}

// SetInput sets the paths being typed.
func (v *View) SetInput(value string) {
	v.input.SetValue(value)
}
