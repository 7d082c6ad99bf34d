// Package settings provides the settings configuration view for the TUI.
package settings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// ErrNoSettingsService indicates that no settings service was provided.
var ErrNoSettingsService = errors.New("settings service not available")

// Section tracks which settings section is active.
type Section int

const (
	SectionOverview Section = iota
	SectionEmbedding
	SectionLLM
)

// Key constants for key handling.
const (
	keyDown  = "down"
	keyEnter = "enter"
	keyTab   = "tab"
)

// overviewItems is the number of editable entries on the overview.
const overviewItems = 2

// View is the settings configuration view.
type View struct {
	styles          *styles.Styles
	settingsService driving.SettingsService

	settings *domain.AppSettings
	err      error
	saved    bool

	section     Section
	selected    int
	keyFocused  bool
	apiKeyInput textinput.Model

	width  int
	height int
	ready  bool
}

// NewView creates a new settings view.
func NewView(s *styles.Styles, settingsService driving.SettingsService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	apiKeyInput := textinput.New()
	apiKeyInput.Placeholder = "Enter API key"
	apiKeyInput.EchoMode = textinput.EchoPassword
	apiKeyInput.CharLimit = 256

	return &View{
		styles:          s,
		settingsService: settingsService,
		section:         SectionOverview,
		apiKeyInput:     apiKeyInput,
	}
}

// Init initialises the view and loads settings.
func (v *View) Init() tea.Cmd {
	return v.loadSettings()
}

// loadSettings returns a command that loads current settings.
func (v *View) loadSettings() tea.Cmd {
	svc := v.settingsService
	return func() tea.Msg {
		if svc == nil {
			return messages.SettingsLoaded{Err: ErrNoSettingsService}
		}
		settings, err := svc.Get()
		return messages.SettingsLoaded{Settings: settings, Err: err}
	}
}

// Update handles messages for the settings view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.SettingsLoaded:
		v.err = msg.Err
		if msg.Err == nil {
			v.settings = msg.Settings
		}
		return v, nil

	case messages.SettingsSaved:
		v.err = msg.Err
		if msg.Err != nil {
			return v, nil
		}
		v.saved = true
		v.backToOverview()
		return v, v.loadSettings()

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)
	}

	return v, nil
}

// handleKeyMsg handles key presses based on current section.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.String() == "esc" {
		if v.section == SectionOverview {
			return v, func() tea.Msg {
				return messages.ViewChanged{View: messages.ViewMenu}
			}
		}
		v.backToOverview()
		return v, nil
	}

	if v.section == SectionOverview {
		return v.handleOverviewKeys(msg)
	}
	return v.handleProviderKeys(msg)
}

func (v *View) handleOverviewKeys(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case keyDown, "j":
		if v.selected < overviewItems-1 {
			v.selected++
		}
	case keyEnter:
		if v.selected == 0 {
			v.section = SectionEmbedding
		} else {
			v.section = SectionLLM
		}
		v.selected = v.currentProviderIndex()
		v.saved = false
	}
	return v, nil
}

// handleProviderKeys drives the embedding and LLM provider pickers.
func (v *View) handleProviderKeys(msg tea.KeyMsg) (*View, tea.Cmd) {
	providers := v.providers()

	if v.keyFocused {
		switch msg.String() {
		case keyTab, "shift+tab":
			v.keyFocused = false
			v.apiKeyInput.Blur()
			return v, nil
		case keyEnter:
			return v, v.save(providers[v.selected], v.apiKeyInput.Value())
		default:
			var cmd tea.Cmd
			v.apiKeyInput, cmd = v.apiKeyInput.Update(msg)
			return v, cmd
		}
	}

	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case keyDown, "j":
		if v.selected < len(providers)-1 {
			v.selected++
		}
	case keyTab:
		if providers[v.selected].RequiresAPIKey() {
			v.keyFocused = true
			return v, v.apiKeyInput.Focus()
		}
	case keyEnter:
		provider := providers[v.selected]
		if provider.RequiresAPIKey() && !v.hasStoredKey(provider) {
			v.keyFocused = true
			return v, v.apiKeyInput.Focus()
		}
		return v, v.save(provider, "")
	}
	return v, nil
}

// providers lists the choices for the active section.
func (v *View) providers() []domain.AIProvider {
	if v.section == SectionLLM {
		return domain.AllLLMProviders()
	}
	return domain.AllEmbeddingProviders()
}

// defaultModels lists the default model per provider for the active section.
func (v *View) defaultModels() map[domain.AIProvider]string {
	if v.section == SectionLLM {
		return domain.DefaultLLMModels()
	}
	return domain.DefaultEmbeddingModels()
}

// currentProvider returns the configured provider for the active section.
func (v *View) currentProvider() domain.AIProvider {
	if v.settings == nil {
		return ""
	}
	if v.section == SectionLLM {
		return v.settings.LLM.Provider
	}
	return v.settings.Embedding.Provider
}

func (v *View) currentProviderIndex() int {
	current := v.currentProvider()
	for i, p := range v.providers() {
		if p == current {
			return i
		}
	}
	return 0
}

// hasStoredKey reports whether re-selecting the current provider can reuse its key.
func (v *View) hasStoredKey(provider domain.AIProvider) bool {
	if v.settings == nil || provider != v.currentProvider() {
		return false
	}
	if v.section == SectionLLM {
		return v.settings.LLM.APIKey != ""
	}
	return v.settings.Embedding.APIKey != ""
}

// save persists the provider choice with its default model.
func (v *View) save(provider domain.AIProvider, apiKey string) tea.Cmd {
	svc := v.settingsService
	section := v.section
	model := v.defaultModels()[provider]
	return func() tea.Msg {
		if svc == nil {
			return messages.SettingsSaved{Err: ErrNoSettingsService}
		}
		var err error
		if section == SectionLLM {
			err = svc.SetLLMProvider(provider, model, apiKey)
		} else {
			err = svc.SetEmbeddingProvider(provider, model, apiKey)
		}
		return messages.SettingsSaved{Err: err}
	}
}

func (v *View) backToOverview() {
	v.section = SectionOverview
	v.selected = 0
	v.keyFocused = false
	v.apiKeyInput.SetValue("")
	v.apiKeyInput.Blur()
}

// View renders the settings view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Settings"))
	b.WriteString("\n\n")

	if v.err != nil {
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n\n")
	}

	if v.settings == nil {
		b.WriteString(v.styles.Muted.Render("Loading settings..."))
		return b.String()
	}

	if v.section == SectionOverview {
		b.WriteString(v.renderOverview())
	} else {
		b.WriteString(v.renderProviderSelect())
	}

	b.WriteString("\n")
	b.WriteString(v.renderHelp())

	return b.String()
}

func (v *View) renderOverview() string {
	var b strings.Builder
	s := v.settings

	items := []struct {
		label      string
		provider   domain.AIProvider
		model      string
		configured bool
	}{
		{"Embedding Provider", s.Embedding.Provider, s.Embedding.Model, s.Embedding.IsConfigured()},
		{"LLM Provider", s.LLM.Provider, s.LLM.Model, s.LLM.IsConfigured()},
	}

	for i, item := range items {
		indicator := "  "
		if i == v.selected {
			indicator = "> "
		}

		value := "Not Set"
		if item.provider != "" {
			value = fmt.Sprintf("%s (%s)", item.provider.Description(), item.model)
		}
		line := fmt.Sprintf("%s%s: %s", indicator, item.label, value)

		if i == v.selected {
			b.WriteString(v.styles.Selected.Render(line))
		} else {
			b.WriteString(v.styles.Normal.Render(line))
		}
		if item.configured {
			b.WriteString(" " + v.styles.Success.Render("[configured]"))
		} else {
			b.WriteString(" " + v.styles.Warning.Render("[needs API key]"))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Subtitle.Render("Index"))
	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  Vector store: %s  collection %q  metric %s",
		s.VectorStore.Kind, s.VectorStore.Collection, s.VectorStore.Metric)))
	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  Retrieval: top_k %d  chunk_size %d  chunk_overlap %d",
		s.Retrieval.TopK, s.Retrieval.ChunkSize, s.Retrieval.ChunkOverlap)))
	b.WriteString("\n\n")

	if v.settingsService != nil {
		if err := v.settingsService.Validate(); err != nil {
			b.WriteString(v.styles.Warning.Render(fmt.Sprintf("Warning: %s", err.Error())))
		} else {
			b.WriteString(v.styles.Success.Render("Configuration is valid"))
		}
		b.WriteString("\n")
	}
	if v.saved {
		b.WriteString(v.styles.Muted.Render("Saved. Restart docqa for provider changes to take effect."))
		b.WriteString("\n")
	}

	return b.String()
}

func (v *View) renderProviderSelect() string {
	var b strings.Builder

	title := "Select Embedding Provider"
	if v.section == SectionLLM {
		title = "Select LLM Provider"
	}
	b.WriteString(v.styles.Subtitle.Render(title))
	b.WriteString("\n\n")

	providers := v.providers()
	defaults := v.defaultModels()
	current := v.currentProvider()
	for i, provider := range providers {
		active := i == v.selected && !v.keyFocused
		indicator := "  "
		if active {
			indicator = "> "
		}

		suffix := ""
		if provider == current {
			suffix = v.styles.Success.Render(" (current)")
		}

		line := indicator + provider.Description()
		if active {
			b.WriteString(v.styles.Selected.Render(line))
		} else {
			b.WriteString(v.styles.Normal.Render(line))
		}
		b.WriteString(suffix)
		b.WriteString("\n")

		if model, ok := defaults[provider]; ok {
			b.WriteString(v.styles.Muted.Render(fmt.Sprintf("    Model: %s", model)))
			b.WriteString("\n")
		}
	}

	if providers[v.selected].RequiresAPIKey() {
		b.WriteString("\n")
		b.WriteString(v.styles.Normal.Render("API Key:"))
		b.WriteString("\n")
		b.WriteString(v.apiKeyInput.View())
		b.WriteString("\n")
	}

	return b.String()
}

func (v *View) renderHelp() string {
	switch {
	case v.section == SectionOverview:
		return v.styles.Help.Render("[j/k] navigate  [enter] edit  [esc] back")
	case v.keyFocused:
		return v.styles.Help.Render("[tab] back to list  [enter] save  [esc] back")
	default:
		return v.styles.Help.Render("[j/k] navigate  [tab] API key  [enter] select  [esc] back")
	}
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Section returns the active section.
func (v *View) Section() Section {
	return v.section
}

// Reset resets the view to initial state.
func (v *View) Reset() {
	v.backToOverview()
	v.err = nil
	v.saved = false
}
