package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"nathanbeddoewebdev/actionmgr/internal/actions"
	"nathanbeddoewebdev/actionmgr/internal/catalog"
	"nathanbeddoewebdev/actionmgr/internal/domain"
	"nathanbeddoewebdev/actionmgr/internal/tui/components"
	"nathanbeddoewebdev/actionmgr/internal/tui/styles"
)

// graphView charts record counts per value of a group field.
type graphView struct {
	base
	field  string
	groups []catalog.Group
}

func (s *Session) newGraph(opts actions.ViewOptions) (actions.Widget, error) {
	return &graphView{base: newBase(s, opts)}, nil
}

// groupField is the first group-by of the search, else the action's
// graph_groupby context key, else the record name.
func groupField(env domain.Environment, act *domain.Action) string {
	if len(env.GroupBy) > 0 {
		return env.GroupBy[0]
	}
	if f, ok := act.Context["graph_groupby"].(string); ok && f != "" {
		return f
	}
	return "name"
}

func (g *graphView) Start(ctx context.Context) error {
	g.mu.Lock()
	env := g.env
	g.mu.Unlock()
	return g.Reload(ctx, env)
}

func (g *graphView) Reload(ctx context.Context, env domain.Environment) error {
	field := groupField(env, g.action)
	groups, err := g.session.source.CountBy(ctx, env.Model, env.Domain, field)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.env = env
	g.err = err
	if err != nil {
		return err
	}
	g.field = field
	g.groups = groups
	return nil
}

func (g *graphView) HandleKey(tea.KeyMsg) (tea.Cmd, bool) { return nil, false }

func (g *graphView) Bindings() []components.KeyBinding { return nil }

func (g *graphView) View(width, _ int) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.err != nil {
		return fmt.Sprintf("\n  %s", styles.ErrorText.Render(g.err.Error()))
	}
	bars := make([]components.Bar, len(g.groups))
	for i, grp := range g.groups {
		bars[i] = components.Bar{Label: grp.Key, Value: float64(grp.Count)}
	}
	return "\n" + components.Chart(fmt.Sprintf("Count by %s", g.field), bars, width-4)
}
