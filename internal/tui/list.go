package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"nathanbeddoewebdev/actionmgr/internal/actions"
	"nathanbeddoewebdev/actionmgr/internal/catalog"
	"nathanbeddoewebdev/actionmgr/internal/domain"
	"nathanbeddoewebdev/actionmgr/internal/tui/components"
	"nathanbeddoewebdev/actionmgr/internal/tui/styles"
)

// maxListColumns caps the value columns shown after the name.
const maxListColumns = 3

// listView shows the records matching the environment domain. Enter opens
// the selected record in the form view of the same action.
type listView struct {
	base
	records   []catalog.Record
	cursor    int
	listStart int
}

func (s *Session) newList(opts actions.ViewOptions) (actions.Widget, error) {
	return &listView{base: newBase(s, opts)}, nil
}

func (l *listView) Start(ctx context.Context) error {
	l.mu.Lock()
	env := l.env
	l.mu.Unlock()
	return l.Reload(ctx, env)
}

func (l *listView) Reload(ctx context.Context, env domain.Environment) error {
	records, err := l.session.source.SearchRecords(ctx, env.Model, env.Domain, 0)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.env = env
	l.err = err
	if err != nil {
		return err
	}
	l.records = records
	l.cursor = 0
	if i := slices.IndexFunc(records, func(r catalog.Record) bool { return r.ID == env.CurrentID }); i >= 0 {
		l.cursor = i
	}
	return nil
}

// columns are the value fields shown: the action's list_fields context key
// (comma separated), or the first keys of the first record.
func (l *listView) columns() []string {
	if fields := l.contextString("list_fields"); fields != "" {
		return strings.Split(fields, ",")
	}
	if len(l.records) == 0 {
		return nil
	}
	keys := sortedKeys(l.records[0].Values)
	return keys[:min(len(keys), maxListColumns)]
}

func (l *listView) HandleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch msg.String() {
	case "up", "k":
		if l.cursor > 0 {
			l.cursor--
		}
		return nil, true
	case "down", "j":
		if l.cursor < len(l.records)-1 {
			l.cursor++
		}
		return nil, true
	case "g", "home":
		l.cursor = 0
		return nil, true
	case "G", "end":
		l.cursor = max(len(l.records)-1, 0)
		return nil, true
	case "enter":
		if len(l.records) == 0 {
			return nil, true
		}
		return l.openCmd(l.records[l.cursor].ID), true
	}
	return nil, false
}

// openCmd makes the listed records the pager of the form view and opens id
// in it.
func (l *listView) openCmd(id int64) tea.Cmd {
	ids := make([]int64, len(l.records))
	for i, r := range l.records {
		ids[i] = r.ID
	}
	m, controllerID := l.session.manager, l.id
	return l.session.do(func(ctx context.Context) error {
		if !slices.Contains(m.Views(controllerID), "form") {
			return nil
		}
		if err := m.UpdateEnvironment(controllerID, domain.EnvironmentPatch{IDs: ids}); err != nil {
			return err
		}
		return m.SwitchView(ctx, "form", actions.SwitchOptions{ResID: &id})
	})
}

func (l *listView) Bindings() []components.KeyBinding {
	return []components.KeyBinding{
		{Key: "j/k", Desc: "nav"},
		{Key: "enter", Desc: "open"},
	}
}

func (l *listView) View(width, height int) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err != nil {
		return fmt.Sprintf("\n  %s", styles.ErrorText.Render(l.err.Error()))
	}
	if len(l.records) == 0 {
		return "\n  " + styles.MutedText.Render("No records match the current search.")
	}
	return l.renderTable(width, height)
}

func (l *listView) renderTable(width, height int) string {
	fields := l.columns()
	idW := 6
	nameW := 28
	colW := 18
	if n := len(fields); n > 0 {
		colW = max((width-idW-nameW-6)/n-2, 8)
	}

	headerCols := []string{fmt.Sprintf("  %-*s %-*s", idW, "ID", nameW, "NAME")}
	for _, f := range fields {
		headerCols = append(headerCols, fmt.Sprintf("%-*s", colW, strings.ToUpper(truncate(f, colW))))
	}
	rows := []string{styles.TableHeader.Render(strings.Join(headerCols, " "))}

	visible := max(height-2, 1)
	if l.cursor < l.listStart {
		l.listStart = l.cursor
	} else if l.cursor >= l.listStart+visible {
		l.listStart = l.cursor - visible + 1
	}
	end := min(l.listStart+visible, len(l.records))

	for i := l.listStart; i < end; i++ {
		r := l.records[i]

		cursor := " "
		rowStyle := styles.TableCell
		if i == l.cursor {
			cursor = styles.AccentText.Render(">")
			rowStyle = styles.TableSelectedRow
		}

		cols := []string{fmt.Sprintf("%s %-*d %-*s", cursor, idW, r.ID, nameW, truncate(r.Name, nameW))}
		for _, f := range fields {
			v, _ := r.Field(f)
			cell := fmt.Sprintf("%-*s", colW, truncate(displayValue(v), colW))
			if f == "state" {
				cell = styles.StateStyle(displayValue(v)).Render(cell)
			}
			cols = append(cols, cell)
		}
		rows = append(rows, rowStyle.Render(strings.Join(cols, " ")))
	}

	footer := styles.MutedText.Render(fmt.Sprintf("  %d of %d", l.cursor+1, len(l.records)))
	return lipgloss.JoinVertical(lipgloss.Left, append(rows, "", footer)...)
}
