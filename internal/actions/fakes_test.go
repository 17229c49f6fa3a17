package actions

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"

	"nathanbeddoewebdev/actionmgr/internal/domain"
)

// fakeWidget records its lifecycle. A non-nil gate blocks Start until it is
// closed; entered is closed when Start begins.
type fakeWidget struct {
	name string

	mu        sync.Mutex
	starts    int
	reloads   int
	shows     int
	destroyed int
	lastEnv   domain.Environment
	startErr  error
	gate      chan struct{}
	entered   chan struct{}
	title     string
}

func (w *fakeWidget) Start(ctx context.Context) error {
	w.mu.Lock()
	w.starts++
	gate, entered, err := w.gate, w.entered, w.startErr
	w.mu.Unlock()
	if entered != nil {
		close(entered)
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (w *fakeWidget) Reload(_ context.Context, env domain.Environment) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reloads++
	w.lastEnv = env
	return nil
}

func (w *fakeWidget) Destroy() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.destroyed++
}

func (w *fakeWidget) Show(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.shows++
	return nil
}

func (w *fakeWidget) Title() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.title
}

func (w *fakeWidget) counts() (starts, reloads, destroyed int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.starts, w.reloads, w.destroyed
}

func (w *fakeWidget) env() domain.Environment {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastEnv
}

// dirtyWidget holds unsaved changes and answers discard requests with allow.
type dirtyWidget struct {
	*fakeWidget
	allow bool
	asked int
}

func (w *dirtyWidget) CanBeDiscarded(context.Context) (bool, error) {
	w.asked++
	return w.allow, nil
}

// heldDiscarder blocks its first CanBeDiscarded until release is closed;
// asked is closed when that first call begins. Later calls allow at once.
type heldDiscarder struct {
	*fakeWidget
	asked   chan struct{}
	release chan struct{}
	once    sync.Once
}

func (w *heldDiscarder) CanBeDiscarded(ctx context.Context) (bool, error) {
	first := false
	w.once.Do(func() { first = true })
	if !first {
		return true, nil
	}
	close(w.asked)
	select {
	case <-w.release:
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// fakeSurface records every call as "verb:widget".
type fakeSurface struct {
	mu       sync.Mutex
	events   []string
	crumbs   []Breadcrumb
	dialog   Widget
	dialogs  []DialogOptions
	effects  []domain.Effect
	warnings []string
}

func nameOf(w Widget) string {
	switch v := w.(type) {
	case *fakeWidget:
		return v.name
	case *dirtyWidget:
		return v.name
	case *heldDiscarder:
		return v.name
	}
	return fmt.Sprintf("%T", w)
}

func (s *fakeSurface) record(verb string, w Widget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, verb+":"+nameOf(w))
}

func (s *fakeSurface) Attach(w Widget) { s.record("attach", w) }
func (s *fakeSurface) Detach(w Widget) { s.record("detach", w) }

func (s *fakeSurface) UpdateBreadcrumbs(crumbs []Breadcrumb) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.crumbs = crumbs
}

func (s *fakeSurface) OpenDialog(w Widget, opts DialogOptions) {
	s.record("dialog", w)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialog = w
	s.dialogs = append(s.dialogs, opts)
}

func (s *fakeSurface) CloseDialog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "close-dialog")
	s.dialog = nil
}

func (s *fakeSurface) ShowEffect(e domain.Effect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.effects = append(s.effects, e)
}

func (s *fakeSurface) Warn(title, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, title+": "+message)
}

func (s *fakeSurface) attached(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.events, "attach:"+name)
}

func (s *fakeSurface) warningCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.warnings)
}

// fakeLoader serves descriptors from maps. A gate blocks the load of that
// id until closed; entered[id] is closed when the load begins.
type fakeLoader struct {
	mu      sync.Mutex
	byID    map[int64]*domain.Action
	byName  map[string]*domain.Action
	gates   map[int64]chan struct{}
	entered map[int64]chan struct{}
	calls   []Ref
	actives []domain.Context
}

func (l *fakeLoader) LoadAction(ctx context.Context, ref Ref, active domain.Context) (*domain.Action, error) {
	l.mu.Lock()
	l.calls = append(l.calls, ref)
	l.actives = append(l.actives, active)
	gate, entered := l.gates[ref.ID], l.entered[ref.ID]
	act, ok := l.byID[ref.ID]
	if ref.Name != "" {
		act, ok = l.byName[ref.Name]
	}
	l.mu.Unlock()

	if entered != nil {
		close(entered)
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	return act.Clone(), nil
}

type fakeRunner struct {
	results map[int64]*domain.Action
	ctxs    []domain.Context
}

func (r *fakeRunner) RunServerAction(_ context.Context, id int64, c domain.Context) (*domain.Action, error) {
	r.ctxs = append(r.ctxs, c)
	res, ok := r.results[id]
	if !ok {
		return nil, errors.New("no such server action")
	}
	return res.Clone(), nil
}

type fakeNavigator struct {
	mu        sync.Mutex
	redirects []string
	opened    []string
}

func (n *fakeNavigator) Redirect(u string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.redirects = append(n.redirects, u)
}

func (n *fakeNavigator) Open(u string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.opened = append(n.opened, u)
}

// harness wires a Manager to fakes. Views "list" and "graph" are
// multi-record, "form" is mono-record. Every created widget is kept by
// controller id; onNew may adjust a widget before it starts.
type harness struct {
	t         *testing.T
	m         *Manager
	surface   *fakeSurface
	loader    *fakeLoader
	runner    *fakeRunner
	navigator *fakeNavigator
	clients   map[string]ClientAction

	mu      sync.Mutex
	widgets map[string]*fakeWidget
	onNew   func(opts ViewOptions, w *fakeWidget)
	states  []State
}

func newHarness(t *testing.T, cfg ...func(*Config)) *harness {
	t.Helper()
	h := &harness{
		t:         t,
		surface:   &fakeSurface{},
		loader:    &fakeLoader{byID: map[int64]*domain.Action{}, byName: map[string]*domain.Action{}, gates: map[int64]chan struct{}{}, entered: map[int64]chan struct{}{}},
		runner:    &fakeRunner{results: map[int64]*domain.Action{}},
		navigator: &fakeNavigator{},
		widgets:   map[string]*fakeWidget{},
	}

	views := NewViewRegistry()
	for _, v := range []struct {
		name  string
		multi bool
	}{{"list", true}, {"graph", true}, {"form", false}} {
		views.Register(v.name, ViewSpec{MultiRecord: v.multi, New: h.newView})
	}

	c := Config{
		Loader:         h.loader,
		Runner:         h.runner,
		Surface:        h.surface,
		Navigator:      h.navigator,
		Views:          views,
		Clients:        NewClientRegistry(),
		SessionContext: domain.Context{"lang": "en_US"},
		Logger:         testr.New(t),
	}
	for _, fn := range cfg {
		fn(&c)
	}
	h.m = New(c)
	h.m.OnChange(func(s State) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.states = append(h.states, s)
	})
	return h
}

func (h *harness) newView(opts ViewOptions) (Widget, error) {
	w := &fakeWidget{name: fmt.Sprintf("%s/%s", opts.Action.DisplayName(), opts.ViewType), lastEnv: opts.Env}
	h.mu.Lock()
	onNew := h.onNew
	h.widgets[opts.ControllerID] = w
	h.mu.Unlock()
	if onNew != nil {
		onNew(opts, w)
	}
	return w, nil
}

func (h *harness) widget(controllerID string) *fakeWidget {
	h.t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.widgets[controllerID]
	if !ok {
		h.t.Fatalf("no widget for controller %q", controllerID)
	}
	return w
}

func (h *harness) widgetNamed(name string) []*fakeWidget {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*fakeWidget
	for _, w := range h.widgets {
		if w.name == name {
			out = append(out, w)
		}
	}
	return out
}

func (h *harness) lastState() State {
	h.t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.states) == 0 {
		h.t.Fatal("no state published")
	}
	return h.states[len(h.states)-1]
}

// addWindow registers a window action with the loader.
func (h *harness) addWindow(id int64, name, model string, views ...string) *domain.Action {
	act := &domain.Action{ID: id, Kind: domain.KindWindow, Name: name, Model: model}
	for _, v := range views {
		act.Views = append(act.Views, domain.ViewRef{Type: v})
	}
	h.loader.mu.Lock()
	h.loader.byID[id] = act
	h.loader.mu.Unlock()
	return act
}

func (h *harness) do(ref Ref, opts Options) {
	h.t.Helper()
	if err := h.m.DoAction(context.Background(), ref, opts); err != nil {
		h.t.Fatalf("DoAction(%s): %v", ref, err)
	}
}

// top returns the top controller, failing the test on an empty stack.
func (h *harness) top() *Controller {
	h.t.Helper()
	c, ok := h.m.Stack().Top()
	if !ok {
		h.t.Fatal("stack is empty")
	}
	return c
}

// checkInvariants verifies that ids are unique and only the top is
// mounted.
func (h *harness) checkInvariants() {
	h.t.Helper()
	ids := h.m.Stack().IDs()
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			h.t.Fatalf("duplicate controller %q in stack %v", id, ids)
		}
		seen[id] = true
	}
	want := ""
	if len(ids) > 0 {
		want = ids[len(ids)-1]
	}
	if got := h.m.Stack().Attached(); got != want {
		h.t.Fatalf("attached controller = %q, want top %q", got, want)
	}
}

// eventually polls cond for a short while.
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
