package tui

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-logr/logr/testr"

	"nathanbeddoewebdev/actionmgr/internal/actions"
	"nathanbeddoewebdev/actionmgr/internal/catalog"
	"nathanbeddoewebdev/actionmgr/internal/domain"
)

// fakeSource serves records from memory.
type fakeSource struct {
	mu      sync.Mutex
	records []catalog.Record
	writes  []map[string]any
	summary []catalog.Summary
}

func (s *fakeSource) SearchRecords(_ context.Context, model string, d domain.Domain, _ int) ([]catalog.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []catalog.Record
	for _, r := range s.records {
		if r.Model != model {
			continue
		}
		ok, err := catalog.Match(d, r)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeSource) ReadRecord(_ context.Context, model string, id int64) (*catalog.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.Model == model && r.ID == id {
			return &r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *fakeSource) WriteRecord(_ context.Context, model string, id int64, vals map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, vals)
	for i, r := range s.records {
		if r.Model == model && r.ID == id {
			if name, ok := vals["name"].(string); ok {
				s.records[i].Name = name
			}
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *fakeSource) CountBy(_ context.Context, model string, _ domain.Domain, field string) ([]catalog.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[string]int{}
	for _, r := range s.records {
		if r.Model != model {
			continue
		}
		v, _ := r.Field(field)
		counts[displayValue(v)]++
	}
	var out []catalog.Group
	for k, n := range counts {
		out = append(out, catalog.Group{Key: k, Count: n})
	}
	slices.SortFunc(out, func(a, b catalog.Group) int {
		if a.Key < b.Key {
			return -1
		}
		if a.Key > b.Key {
			return 1
		}
		return 0
	})
	return out, nil
}

func (s *fakeSource) List(context.Context) ([]catalog.Summary, error) {
	return s.summary, nil
}

func partnerSource() *fakeSource {
	return &fakeSource{
		records: []catalog.Record{
			{Model: "res.partner", ID: 1, Name: "Azure Interior", Values: map[string]any{"country": "BE"}},
			{Model: "res.partner", ID: 2, Name: "Deco Addict", Values: map[string]any{"country": "BE"}},
			{Model: "res.partner", ID: 3, Name: "Gemini Furniture", Values: map[string]any{"country": "US"}},
		},
		summary: []catalog.Summary{
			{ID: 1, XMLID: "base.action_home", Kind: domain.KindClient, Name: "Home"},
			{ID: 2, XMLID: "base.action_partners", Kind: domain.KindWindow, Name: "Contacts"},
		},
	}
}

func partnersAction() *domain.Action {
	return &domain.Action{
		ID:    2,
		Kind:  domain.KindWindow,
		Name:  "Contacts",
		Model: "res.partner",
		Views: []domain.ViewRef{{Type: "list"}, {Type: "graph"}, {Type: "form"}},
		Context: domain.Context{
			"graph_groupby": "country",
			"form_buttons": []any{
				map[string]any{"type": "object", "name": "action_archive", "string": "Archive"},
			},
		},
	}
}

// harness drives an appModel against a real Manager. Surface messages are
// taken from the queue directly instead of through a program.
type harness struct {
	t       *testing.T
	source  *fakeSource
	buttons *fakeButtons
	session *Session
	model   appModel
}

type fakeButtons struct {
	mu    sync.Mutex
	calls []string
}

func (b *fakeButtons) CallButton(_ context.Context, model, method string, _ []int64, _ []any, _ domain.Context) (*domain.Action, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, model+"."+method)
	return nil, nil
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	source := partnerSource()
	buttons := &fakeButtons{}
	s := NewSession(source, testr.New(t))
	cfg := actions.Config{Buttons: buttons, Logger: testr.New(t)}
	s.Configure(&cfg)
	s.Bind(actions.New(cfg))

	h := &harness{t: t, source: source, buttons: buttons, session: s, model: newAppModel(s, nil)}
	h.update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return h
}

// drain takes the queued surface messages.
func (h *harness) drain() []tea.Msg {
	q := h.session.surface
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.queue
	q.queue = nil
	return out
}

func (h *harness) update(msg tea.Msg) tea.Cmd {
	next, cmd := h.model.Update(msg)
	h.model = next.(appModel)
	return cmd
}

// flush applies the queued surface messages to the model.
func (h *harness) flush() {
	for _, msg := range h.drain() {
		h.update(msg)
	}
}

// open runs the partners action and flushes.
func (h *harness) open() {
	h.t.Helper()
	err := h.session.manager.DoAction(context.Background(), actions.Inline(partnersAction()), actions.Options{})
	if err != nil {
		h.t.Fatalf("DoAction: %v", err)
	}
	h.flush()
}

// press sends a key and runs the engine command it produced, if any.
func (h *harness) press(key string) {
	h.t.Helper()
	cmd := h.update(keyMsg(key))
	if cmd == nil {
		h.flush()
		return
	}
	msg := cmd()
	if done, ok := msg.(engineDoneMsg); ok {
		h.update(done)
		if done.err != nil {
			h.t.Fatalf("key %q: %v", key, done.err)
		}
	} else if st, ok := msg.(statusMsg); ok {
		h.update(st)
	}
	h.flush()
}

func (h *harness) crumbs() []string {
	out := make([]string, len(h.model.crumbs))
	for i, c := range h.model.crumbs {
		out[i] = c.Title
	}
	return out
}

func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}
