package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"nathanbeddoewebdev/actionmgr/internal/actions"
	"nathanbeddoewebdev/actionmgr/internal/domain"
	"nathanbeddoewebdev/actionmgr/internal/tui/components"
	"nathanbeddoewebdev/actionmgr/internal/tui/styles"
)

// AppResult holds the outcome of a browse session.
type AppResult struct {
	// RedirectURL is set when an action left the client for a URL.
	RedirectURL string
	// Opened lists the URLs actions asked to open next to the client.
	Opened []string
}

// appModel mirrors what the engine mounted: the attached controller, the
// dialog and the breadcrumbs. Every navigation goes through the engine;
// the model only renders its reports.
type appModel struct {
	session *Session
	start   Start

	main       view
	dialog     view
	dialogOpts actions.DialogOptions
	crumbs     []actions.Breadcrumb

	confirm   *confirmMsg
	searching bool
	search    textinput.Model
	spinner   spinner.Model

	status      string
	statusLevel int
	banner      string

	result AppResult
	width  int
	height int
}

func newAppModel(s *Session, start Start) appModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Blue)

	ti := textinput.New()
	ti.Placeholder = "name contains…"
	ti.Prompt = "/ "
	ti.CharLimit = 64

	return appModel{session: s, start: start, spinner: sp, search: ti}
}

// Start fills the screen when the client opens.
type Start func(ctx context.Context, m *actions.Manager) error

// StartAction opens ref with fresh breadcrumbs.
func StartAction(ref actions.Ref) Start {
	return func(ctx context.Context, m *actions.Manager) error {
		return m.DoAction(ctx, ref, actions.Options{ClearBreadcrumbs: true})
	}
}

// Run opens the terminal client with start, or on the home menu when start
// is nil. It returns when the user quits or an action redirects.
func Run(ctx context.Context, s *Session, start Start) (*AppResult, error) {
	if s.manager == nil {
		return nil, errors.New("tui: session is not bound to a manager")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.ctx = ctx

	p := tea.NewProgram(newAppModel(s, start), tea.WithAltScreen(), tea.WithContext(ctx))
	s.surface.Connect(ctx, p.Send)

	result, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return nil, fmt.Errorf("failed to run browser: %w", err)
	}
	final, ok := result.(appModel)
	if !ok {
		return &AppResult{}, nil
	}
	return &final.result, nil
}

func (m appModel) Init() tea.Cmd {
	start := m.start
	if start == nil {
		start = StartAction(actions.ByName("home"))
	}
	manager := m.session.manager
	return tea.Batch(m.spinner.Tick, m.session.do(func(ctx context.Context) error {
		return start(ctx, manager)
	}))
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	// --- Surface reports ---

	case attachMsg:
		if v, ok := msg.widget.(view); ok {
			m.main = v
		}
		return m, nil

	case detachMsg:
		if m.main != nil && actions.Widget(m.main) == msg.widget {
			m.main = nil
		}
		return m, nil

	case breadcrumbsMsg:
		m.crumbs = msg.crumbs
		return m, nil

	case openDialogMsg:
		if v, ok := msg.widget.(view); ok {
			m.dialog = v
			m.dialogOpts = msg.opts
		}
		return m, nil

	case closeDialogMsg:
		m.dialog = nil
		return m, nil

	case effectMsg:
		m.banner = effectText(msg.effect)
		return m, nil

	case warnMsg:
		m.setStatus(fmt.Sprintf("%s: %s", msg.title, msg.message), components.StatusWarn)
		return m, nil

	case navigateMsg:
		if msg.redirect {
			m.result.RedirectURL = msg.url
			return m, tea.Quit
		}
		m.result.Opened = append(m.result.Opened, msg.url)
		m.setStatus("Open in your browser: "+msg.url, components.StatusInfo)
		return m, nil

	case confirmMsg:
		m.confirm = &msg
		return m, nil

	// --- Widget and engine results ---

	case statusMsg:
		m.setStatus(msg.text, msg.level)
		return m, nil

	case engineDoneMsg:
		switch {
		case msg.err == nil:
		case errors.Is(msg.err, domain.ErrDiscardDeclined):
			m.setStatus("Kept your changes.", components.StatusInfo)
		default:
			m.setStatus(msg.err.Error(), components.StatusError)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *appModel) setStatus(text string, level int) {
	m.status = text
	m.statusLevel = level
}

// effectText is the banner shown for an action effect.
func effectText(e domain.Effect) string {
	if msg, ok := e["message"].(string); ok && msg != "" {
		return msg
	}
	if t, ok := e["type"].(string); ok && t != "" {
		return t
	}
	return "Done"
}

// active is the controller receiving keys: the dialog when one is open.
func (m appModel) active() view {
	if m.dialog != nil {
		return m.dialog
	}
	return m.main
}

func (m appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.banner = ""

	if m.confirm != nil {
		switch msg.String() {
		case "y", "Y", "enter":
			m.confirm.reply <- true
			m.confirm = nil
		case "n", "N", "esc":
			m.confirm.reply <- false
			m.confirm = nil
		}
		return m, nil
	}

	if m.searching {
		return m.handleSearchKey(msg)
	}

	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if a := m.active(); a != nil {
		if cmd, handled := a.HandleKey(msg); handled {
			return m, cmd
		}
	}

	manager := m.session.manager
	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "esc":
		if m.dialog != nil {
			return m, m.session.do(func(context.Context) error {
				manager.CloseDialog()
				return nil
			})
		}
		if len(m.crumbs) > 1 {
			id := m.crumbs[len(m.crumbs)-2].ControllerID
			return m, m.session.do(func(ctx context.Context) error {
				return manager.Restore(ctx, id)
			})
		}

	case "v":
		if next := m.nextView(); next != "" {
			return m, m.session.do(func(ctx context.Context) error {
				return manager.SwitchView(ctx, next, actions.SwitchOptions{})
			})
		}

	case "h":
		return m, m.session.do(func(ctx context.Context) error {
			return manager.SwitchToPreviousView(ctx)
		})

	case "/":
		if m.main != nil && m.main.ViewType() != "" && m.dialog == nil {
			m.searching = true
			m.search.SetValue("")
			return m, m.search.Focus()
		}
	}

	return m, nil
}

// nextView cycles through the multi-record views of the attached window
// action. Mono-record views are reached by opening a record.
func (m appModel) nextView() string {
	if m.main == nil || m.main.ViewType() == "" {
		return ""
	}
	views := slices.DeleteFunc(m.session.manager.Views(m.main.ControllerID()), func(v string) bool {
		spec, ok := m.session.views.Get(v)
		return !ok || !spec.MultiRecord
	})
	if len(views) < 2 {
		return ""
	}
	i := slices.Index(views, m.main.ViewType())
	return views[(i+1)%len(views)]
}

func (m appModel) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searching = false
		m.search.Blur()
		return m, nil
	case "enter":
		m.searching = false
		m.search.Blur()
		q := actions.SearchQuery{Domain: nameSearch(m.search.Value())}
		manager := m.session.manager
		return m, m.session.do(func(ctx context.Context) error {
			return manager.Search(ctx, q)
		})
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

// nameSearch is the domain of a free text search. Empty text clears the
// search.
func nameSearch(text string) domain.Domain {
	if text == "" {
		return domain.Domain{}
	}
	return domain.Domain{{Field: "name", Operator: "ilike", Value: text}}
}

func (m appModel) View() string {
	if m.width == 0 {
		return ""
	}

	titles := make([]string, len(m.crumbs))
	for i, c := range m.crumbs {
		titles[i] = c.Title
	}
	hint := ""
	if m.main != nil {
		hint = m.main.ViewType()
	}
	header := components.Header(m.width, titles, hint)

	footer := components.Footer(m.width, m.bindings())

	var status string
	switch {
	case m.banner != "":
		status = lipgloss.NewStyle().Padding(0, 2).Render(styles.Banner.Render(m.banner))
	case m.session.Busy():
		status = components.StatusBar(m.width, m.spinner.View()+" Working…", components.StatusInfo)
	default:
		status = components.StatusBar(m.width, m.status, m.statusLevel)
	}

	var search string
	if m.searching {
		search = lipgloss.NewStyle().Padding(0, 2).Render(m.search.View())
	}

	contentH := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer)-lipgloss.Height(status)-lipgloss.Height(search), 1)

	var content string
	switch {
	case m.confirm != nil:
		box := styles.CardActive.Render(styles.WarningText.Render(m.confirm.question) + "\n\n" +
			styles.FormatKeyBinding("y", "yes") + "   " + styles.FormatKeyBinding("n", "no"))
		content = lipgloss.Place(m.width, contentH, lipgloss.Center, lipgloss.Center, box)
	case m.dialog != nil:
		w := styles.DialogWidth(m.dialogOpts.Size, m.width)
		title := styles.Title.Render(m.dialogOpts.Title)
		box := styles.CardActive.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, m.dialog.View(w-6, contentH-4)))
		content = lipgloss.Place(m.width, contentH, lipgloss.Center, lipgloss.Center, box)
	case m.main != nil:
		content = m.main.View(m.width, contentH)
	default:
		content = fmt.Sprintf("\n  %s Loading…", m.spinner.View())
	}

	if lines := lipgloss.Height(content); lines < contentH {
		content += lipgloss.NewStyle().Height(contentH - lines).Render("")
	}

	parts := []string{header}
	if search != "" {
		parts = append(parts, search)
	}
	parts = append(parts, content, status, footer)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m appModel) bindings() []components.KeyBinding {
	if m.confirm != nil {
		return []components.KeyBinding{{Key: "y", Desc: "yes"}, {Key: "n", Desc: "no"}}
	}
	if m.searching {
		return []components.KeyBinding{{Key: "enter", Desc: "search"}, {Key: "esc", Desc: "cancel"}}
	}

	var out []components.KeyBinding
	if a := m.active(); a != nil {
		out = append(out, a.Bindings()...)
	}
	if m.dialog != nil {
		return append(out, components.KeyBinding{Key: "esc", Desc: "close"})
	}
	if m.nextView() != "" {
		out = append(out, components.KeyBinding{Key: "v", Desc: "view"})
	}
	if m.main != nil && m.main.ViewType() != "" {
		out = append(out, components.KeyBinding{Key: "/", Desc: "search"})
	}
	if len(m.crumbs) > 1 {
		out = append(out, components.KeyBinding{Key: "esc", Desc: "back"})
	}
	return append(out, components.KeyBinding{Key: "q", Desc: "quit"})
}
