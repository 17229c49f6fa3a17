package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"nathanbeddoewebdev/actionmgr/internal/config"
	"nathanbeddoewebdev/actionmgr/internal/tui/components"
	"nathanbeddoewebdev/actionmgr/internal/tui/styles"
)

type configSavedMsg struct{ key string }

type configSaveErrorMsg struct {
	err error
}

// configViewModel edits the config file key by key. Keys feeding the
// session context are listed first, under their own heading.
type configViewModel struct {
	cfg  *config.Config
	path string
	keys []config.KeySpec

	cursor  int
	editing bool
	editor  textinput.Model

	width  int
	height int

	status  string
	isError bool
}

// RunConfigView starts the interactive config editor on the file at path.
// Values are validated by their key before being written.
func RunConfigView(path string) error {
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	p := tea.NewProgram(newConfigViewModel(cfg, path), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func newConfigViewModel(cfg *config.Config, path string) configViewModel {
	keys := make([]config.KeySpec, 0, len(config.Keys))
	for _, k := range config.Keys {
		if k.Session {
			keys = append(keys, k)
		}
	}
	for _, k := range config.Keys {
		if !k.Session {
			keys = append(keys, k)
		}
	}
	return configViewModel{cfg: cfg, path: path, keys: keys}
}

func (m configViewModel) Init() tea.Cmd {
	return nil
}

func (m configViewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m.handleEditKey(msg)
		}
		return m.handleKey(msg)

	case configSavedMsg:
		m.editing = false
		m.status = fmt.Sprintf("Saved %s to %s", msg.key, m.path)
		m.isError = false
		return m, nil

	case configSaveErrorMsg:
		m.status = "Error: " + msg.err.Error()
		m.isError = true
		return m, nil
	}

	if m.editing {
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m configViewModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.keys)-1 {
			m.cursor++
		}
	case "enter", "e":
		spec := m.keys[m.cursor]
		ti := textinput.New()
		ti.SetValue(spec.Get(m.cfg))
		ti.Placeholder = spec.Default
		ti.Prompt = "› "
		ti.Width = 32
		ti.Focus()
		m.editor = ti
		m.editing = true
		m.status = ""
		m.isError = false
		return m, textinput.Blink
	case "x":
		return m.apply("")
	}
	return m, nil
}

func (m configViewModel) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editing = false
		m.status = ""
		m.isError = false
		return m, nil
	case "enter":
		return m.apply(strings.TrimSpace(m.editor.Value()))
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

// apply validates value for the selected key and saves. A rejected value
// keeps the editor open with the error.
func (m configViewModel) apply(value string) (tea.Model, tea.Cmd) {
	spec := m.keys[m.cursor]
	if err := spec.Set(m.cfg, value); err != nil {
		m.status = err.Error()
		m.isError = true
		return m, nil
	}

	cfg, path, key := m.cfg, m.path, spec.Name
	return m, func() tea.Msg {
		if err := cfg.SaveTo(path); err != nil {
			return configSaveErrorMsg{err: err}
		}
		return configSavedMsg{key: key}
	}
}

func (m configViewModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	header := components.Header(m.width, []string{"config"}, m.path)

	bindings := []components.KeyBinding{
		{Key: "j/k", Desc: "navigate"},
		{Key: "e", Desc: "edit"},
		{Key: "x", Desc: "clear"},
		{Key: "q", Desc: "quit"},
	}
	if m.editing {
		bindings = []components.KeyBinding{
			{Key: "enter", Desc: "save"},
			{Key: "esc", Desc: "cancel"},
		}
	}
	footer := components.Footer(m.width, bindings)

	statusBar := ""
	if m.status != "" {
		level := components.StatusInfo
		if m.isError {
			level = components.StatusError
		}
		statusBar = components.StatusBar(m.width, m.status, level)
	}

	contentH := m.height - lipgloss.Height(header) - lipgloss.Height(footer) - lipgloss.Height(statusBar)
	sections := []string{header, m.renderContent(max(contentH, 1))}
	if statusBar != "" {
		sections = append(sections, statusBar)
	}
	sections = append(sections, footer)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m configViewModel) renderContent(height int) string {
	const labelWidth = 18

	var rows []string
	for i, spec := range m.keys {
		if i == 0 || spec.Session != m.keys[i-1].Session {
			if i > 0 {
				rows = append(rows, "")
			}
			heading := "Engine"
			if spec.Session {
				heading = "Session context"
			}
			rows = append(rows, styles.Subtitle.Render(heading))
		}

		selected := i == m.cursor
		value, valueStyle := spec.Get(m.cfg), styles.Value
		if value == "" {
			value, valueStyle = "(not set)", styles.MutedText
			if spec.Default != "" {
				value = spec.Default + " (default)"
			}
		}

		switch {
		case selected && m.editing:
			rows = append(rows, styles.AccentText.Render("> ")+styles.Label.Width(labelWidth).Render(spec.Name)+m.editor.View())
			if m.isError {
				rows = append(rows, "    "+styles.ErrorText.Render(m.status))
			}
		case selected:
			rows = append(rows, styles.AccentText.Render("> ")+styles.Label.Width(labelWidth).Render(spec.Name)+valueStyle.Bold(true).Render(value))
			rows = append(rows, "    "+styles.MutedText.Italic(true).Render(spec.Description))
		default:
			rows = append(rows, "  "+styles.MutedText.Width(labelWidth).Render(spec.Name)+valueStyle.Render(value))
		}
	}
	if len(rows) == 0 {
		rows = append(rows, styles.MutedText.Render("No configuration keys defined."))
	}

	card := styles.Card.Width(min(64, max(m.width-4, 20))).Render(strings.Join(rows, "\n"))
	combined := lipgloss.JoinVertical(lipgloss.Center, styles.Title.Render("Configuration"), "", card)
	return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, combined)
}
