package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"nathanbeddoewebdev/actionmgr/internal/actions"
	"nathanbeddoewebdev/actionmgr/internal/catalog"
	"nathanbeddoewebdev/actionmgr/internal/domain"
	"nathanbeddoewebdev/actionmgr/internal/tui/components"
	"nathanbeddoewebdev/actionmgr/internal/tui/styles"
)

// homeView is the "home" client action: a menu of the catalog actions.
type homeView struct {
	base
	actions []catalog.Summary
	cursor  int
}

func (s *Session) newHome(opts actions.ClientOptions) (actions.Widget, error) {
	return &homeView{base: base{session: s, id: opts.ControllerID, action: opts.Action}}, nil
}

func (h *homeView) Start(ctx context.Context) error {
	list, err := h.session.source.List(ctx)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
	if err != nil {
		return err
	}
	// The home action itself is not a menu entry.
	h.actions = h.actions[:0]
	for _, a := range list {
		if a.Kind == domain.KindClient && a.ID == h.action.ID {
			continue
		}
		h.actions = append(h.actions, a)
	}
	h.cursor = min(h.cursor, max(len(h.actions)-1, 0))
	return nil
}

func (h *homeView) Reload(ctx context.Context, _ domain.Environment) error { return h.Start(ctx) }

// Show implements actions.Shower: the catalog may have changed while the
// menu was stacked.
func (h *homeView) Show(ctx context.Context) error { return h.Start(ctx) }

func (h *homeView) Title() string { return "Home" }

func (h *homeView) HandleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch msg.String() {
	case "up", "k":
		if h.cursor > 0 {
			h.cursor--
		}
		return nil, true
	case "down", "j":
		if h.cursor < len(h.actions)-1 {
			h.cursor++
		}
		return nil, true
	case "enter":
		if len(h.actions) == 0 {
			return nil, true
		}
		id := h.actions[h.cursor].ID
		m := h.session.manager
		return h.session.do(func(ctx context.Context) error {
			return m.DoAction(ctx, actions.ByID(id), actions.Options{})
		}), true
	}
	return nil, false
}

func (h *homeView) Bindings() []components.KeyBinding {
	return []components.KeyBinding{
		{Key: "j/k", Desc: "nav"},
		{Key: "enter", Desc: "run"},
	}
}

func (h *homeView) View(width, _ int) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.err != nil {
		return fmt.Sprintf("\n  %s", styles.ErrorText.Render(h.err.Error()))
	}
	if len(h.actions) == 0 {
		return "\n  " + styles.MutedText.Render("The catalog is empty. Import a bundle with: actionmgr catalog import <file>")
	}

	rows := []string{styles.TableHeader.Render(fmt.Sprintf("  %-5s %-10s %-32s %s", "ID", "TYPE", "NAME", "XML ID"))}
	for i, a := range h.actions {
		cursor := " "
		rowStyle := styles.TableCell
		if i == h.cursor {
			cursor = styles.AccentText.Render(">")
			rowStyle = styles.TableSelectedRow
		}
		rows = append(rows, rowStyle.Render(fmt.Sprintf("%s %-5d %-10s %-32s %s",
			cursor, a.ID, a.Kind, truncate(a.Name, 32), truncate(a.XMLID, max(width-60, 10)))))
	}
	return "\n" + lipgloss.JoinVertical(lipgloss.Left, rows...)
}
