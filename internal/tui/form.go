package tui

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"nathanbeddoewebdev/actionmgr/internal/actions"
	"nathanbeddoewebdev/actionmgr/internal/catalog"
	"nathanbeddoewebdev/actionmgr/internal/domain"
	"nathanbeddoewebdev/actionmgr/internal/tui/components"
	"nathanbeddoewebdev/actionmgr/internal/tui/styles"
)

// formButton is a button declared in the form_buttons context key of an
// action, e.g. {"type": "object", "name": "action_confirm", "string": "Confirm"}.
type formButton struct {
	Type    string
	Name    string
	Label   string
	Special string
}

func parseButtons(raw any) []formButton {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	var out []formButton
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		b := formButton{}
		b.Type, _ = m["type"].(string)
		b.Name, _ = m["name"].(string)
		b.Label, _ = m["string"].(string)
		b.Special, _ = m["special"].(string)
		if b.Label == "" {
			b.Label = b.Name
		}
		out = append(out, b)
	}
	return out
}

// formView shows one record. Only the record name is editable; edits are
// kept until saved and the engine asks before dropping them.
type formView struct {
	base
	mode    string
	record  *catalog.Record
	buttons []formButton

	editing bool
	dirty   bool
	pending string
	input   textinput.Model
}

func (s *Session) newForm(opts actions.ViewOptions) (actions.Widget, error) {
	ti := textinput.New()
	ti.Placeholder = "Name"
	ti.CharLimit = 128
	ti.Width = 40
	ti.Prompt = "› "

	return &formView{
		base:    newBase(s, opts),
		mode:    opts.Mode,
		buttons: parseButtons(opts.Action.Context["form_buttons"]),
		input:   ti,
	}, nil
}

func (f *formView) Start(ctx context.Context) error {
	f.mu.Lock()
	env := f.env
	f.mu.Unlock()
	return f.Reload(ctx, env)
}

// recordID is the record to show: the current one, else the active_id of a
// dialog opened on a record.
func recordID(env domain.Environment, act *domain.Action) int64 {
	if env.CurrentID != 0 {
		return env.CurrentID
	}
	if act.ResID != 0 {
		return act.ResID
	}
	switch v := act.Context["active_id"].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func (f *formView) Reload(ctx context.Context, env domain.Environment) error {
	f.mu.Lock()
	act := f.action
	f.mu.Unlock()

	var rec *catalog.Record
	var err error
	if id := recordID(env, act); id != 0 {
		rec, err = f.session.source.ReadRecord(ctx, env.Model, id)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.env = env
	f.err = err
	if err != nil {
		return err
	}
	f.record = rec
	if rec != nil {
		f.mode = actions.ModeReadonly
	}
	f.dirty = false
	f.editing = false
	f.pending = ""
	return nil
}

// Title implements actions.Titled.
func (f *formView) Title() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.record == nil {
		return "New"
	}
	return f.record.Name
}

// CanBeDiscarded implements actions.Discarder.
func (f *formView) CanBeDiscarded(ctx context.Context) (bool, error) {
	f.mu.Lock()
	dirty, name := f.dirty, f.pending
	f.mu.Unlock()
	if !dirty {
		return true, nil
	}
	return f.session.surface.Confirm(ctx, fmt.Sprintf("Discard unsaved changes to %q?", name))
}

func (f *formView) HandleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.editing {
		switch msg.String() {
		case "enter":
			f.editing = false
			f.input.Blur()
			if v := strings.TrimSpace(f.input.Value()); v != "" && (f.record == nil || v != f.record.Name) {
				f.pending = v
				f.dirty = true
			}
			return nil, true
		case "esc":
			f.editing = false
			f.input.Blur()
			return nil, true
		}
		var cmd tea.Cmd
		f.input, cmd = f.input.Update(msg)
		return cmd, true
	}

	switch msg.String() {
	case "e":
		if f.record == nil {
			return statusCmd("Nothing to edit.", components.StatusWarn), true
		}
		f.mode = actions.ModeEdit
		f.editing = true
		f.input.SetValue(f.currentName())
		f.input.CursorEnd()
		return f.input.Focus(), true
	case "ctrl+s":
		if !f.dirty {
			return statusCmd("Nothing to save.", components.StatusInfo), true
		}
		return f.saveCmd(), true
	case "u":
		if f.dirty {
			f.dirty = false
			f.pending = ""
			return statusCmd("Changes discarded.", components.StatusInfo), true
		}
		return nil, true
	case "n", "p":
		return f.pageCmd(msg.String() == "n"), true
	}

	if n, err := strconv.Atoi(msg.String()); err == nil && n >= 1 && n <= len(f.buttons) {
		return f.buttonCmd(f.buttons[n-1]), true
	}
	return nil, false
}

func (f *formView) currentName() string {
	if f.dirty {
		return f.pending
	}
	if f.record == nil {
		return ""
	}
	return f.record.Name
}

func (f *formView) saveCmd() tea.Cmd {
	model, id, name := f.env.Model, f.record.ID, f.pending
	return f.session.do(func(ctx context.Context) error {
		return f.save(ctx, model, id, name)
	})
}

func (f *formView) save(ctx context.Context, model string, id int64, name string) error {
	if err := f.session.source.WriteRecord(ctx, model, id, map[string]any{"name": name}); err != nil {
		return fmt.Errorf("saving %s/%d: %w", model, id, err)
	}
	f.mu.Lock()
	env := f.env
	f.mu.Unlock()
	if err := f.Reload(ctx, env); err != nil {
		return err
	}
	// Republish the breadcrumbs, the record name may have changed.
	return f.session.manager.UpdateEnvironment(f.id, domain.EnvironmentPatch{})
}

// pageCmd moves to the next or previous record of the pager.
func (f *formView) pageCmd(next bool) tea.Cmd {
	if f.dirty {
		return statusCmd("Save (ctrl+s) or undo (u) your changes first.", components.StatusWarn)
	}
	ids := f.env.IDs
	if f.record == nil || len(ids) < 2 {
		return nil
	}
	i := slices.Index(ids, f.record.ID)
	if i < 0 {
		return nil
	}
	if next {
		i = (i + 1) % len(ids)
	} else {
		i = (i - 1 + len(ids)) % len(ids)
	}
	id := ids[i]
	m := f.session.manager
	return f.session.do(func(ctx context.Context) error {
		return m.SwitchView(ctx, "form", actions.SwitchOptions{ResID: &id})
	})
}

// buttonCmd saves pending changes, then runs the button.
func (f *formView) buttonCmd(b formButton) tea.Cmd {
	m, controllerID := f.session.manager, f.id
	dirty := f.dirty
	var model, name string
	var id int64
	if dirty {
		model, id, name = f.env.Model, f.record.ID, f.pending
	}
	return f.session.do(func(ctx context.Context) error {
		if dirty {
			if err := f.save(ctx, model, id, name); err != nil {
				return err
			}
		}
		return m.ExecuteButton(ctx, controllerID, actions.Button{Type: b.Type, Name: b.Name, Special: b.Special})
	})
}

func (f *formView) Bindings() []components.KeyBinding {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.editing {
		return []components.KeyBinding{
			{Key: "enter", Desc: "apply"},
			{Key: "esc", Desc: "cancel"},
		}
	}
	bindings := []components.KeyBinding{
		{Key: "n/p", Desc: "next/prev"},
	}
	if f.record != nil {
		bindings = append(bindings, components.KeyBinding{Key: "e", Desc: "edit name"})
	}
	if f.dirty {
		bindings = append(bindings,
			components.KeyBinding{Key: "ctrl+s", Desc: "save"},
			components.KeyBinding{Key: "u", Desc: "undo"},
		)
	}
	if len(f.buttons) > 0 {
		bindings = append(bindings, components.KeyBinding{Key: fmt.Sprintf("1-%d", len(f.buttons)), Desc: "buttons"})
	}
	return bindings
}

func (f *formView) View(width, height int) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return fmt.Sprintf("\n  %s", styles.ErrorText.Render(f.err.Error()))
	}

	var lines []string
	title := styles.Title.Render("New record")
	if f.record != nil {
		title = styles.Title.Render(f.currentName())
		if f.dirty {
			title += " " + styles.WarningText.Render("●")
		} else if f.mode == actions.ModeEdit {
			title += " " + styles.MutedText.Render("editing")
		}
	}
	lines = append(lines, title, "")

	if f.editing {
		lines = append(lines, styles.Label.Render("Name"), f.input.View(), "")
	}

	if f.record != nil {
		labelW := 14
		for _, k := range append([]string{"id"}, sortedKeys(f.record.Values)...) {
			v, _ := f.record.Field(k)
			val := styles.Value.Render(displayValue(v))
			if k == "state" {
				val = styles.StateStyle(displayValue(v)).Render(displayValue(v))
			}
			lines = append(lines, fmt.Sprintf("%s %s", styles.Label.Render(fmt.Sprintf("%-*s", labelW, k)), val))
		}
	}

	if len(f.buttons) > 0 {
		var bs []string
		for i, b := range f.buttons {
			bs = append(bs, styles.KeyStyle.Render(strconv.Itoa(i+1))+" "+styles.AccentText.Render(b.Label))
		}
		lines = append(lines, "", strings.Join(bs, "   "))
	}

	if pos := f.position(); pos != "" {
		lines = append(lines, "", styles.MutedText.Render(pos))
	}

	card := styles.Card.Width(max(min(width-4, 80), 20)).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	return "\n" + card
}

func (f *formView) position() string {
	if f.record == nil || len(f.env.IDs) < 2 {
		return ""
	}
	i := slices.Index(f.env.IDs, f.record.ID)
	if i < 0 {
		return ""
	}
	return fmt.Sprintf("%d / %d", i+1, len(f.env.IDs))
}
