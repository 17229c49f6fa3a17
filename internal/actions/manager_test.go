package actions

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nathanbeddoewebdev/actionmgr/internal/domain"
)

func TestListFormBreadcrumbRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.addWindow(1, "Partners", "res.partner", "list", "form")
	ctx := context.Background()

	h.do(ByID(1), Options{})
	list := h.top()
	if list.ViewType != "list" {
		t.Fatalf("first controller view = %q, want list", list.ViewType)
	}

	id := int64(7)
	if err := h.m.SwitchView(ctx, "form", SwitchOptions{ResID: &id}); err != nil {
		t.Fatalf("SwitchView(form): %v", err)
	}
	form := h.top()
	if diff := cmp.Diff([]string{list.ID, form.ID}, h.m.Stack().IDs()); diff != "" {
		t.Fatalf("stack mismatch (-want +got):\n%s", diff)
	}
	if got := h.widget(form.ID).env().CurrentID; got != 7 {
		t.Errorf("form environment CurrentID = %d, want 7", got)
	}
	h.checkInvariants()

	if err := h.m.Restore(ctx, list.ID); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if diff := cmp.Diff([]string{list.ID}, h.m.Stack().IDs()); diff != "" {
		t.Fatalf("stack after restore mismatch (-want +got):\n%s", diff)
	}
	if _, reloads, _ := h.widget(list.ID).counts(); reloads != 1 {
		t.Errorf("list reloads = %d, want 1", reloads)
	}
	if _, _, destroyed := h.widget(form.ID).counts(); destroyed != 0 {
		t.Error("form of a live action must not be destroyed when spliced off")
	}
	h.checkInvariants()

	id = 8
	if err := h.m.SwitchView(ctx, "form", SwitchOptions{ResID: &id}); err != nil {
		t.Fatalf("second SwitchView(form): %v", err)
	}
	again := h.top()
	if again.ID != form.ID {
		t.Fatalf("form controller was rebuilt: got %q, want reuse of %q", again.ID, form.ID)
	}
	starts, reloads, _ := h.widget(form.ID).counts()
	if starts != 1 || reloads != 1 {
		t.Errorf("form starts=%d reloads=%d, want 1 and 1", starts, reloads)
	}
	if got := h.widget(form.ID).env().CurrentID; got != 8 {
		t.Errorf("reloaded CurrentID = %d, want 8", got)
	}

	want := []Breadcrumb{
		{Title: "Partners", ControllerID: list.ID},
		{Title: "Partners", ControllerID: form.ID},
	}
	if diff := cmp.Diff(want, h.m.Breadcrumbs()); diff != "" {
		t.Errorf("breadcrumbs mismatch (-want +got):\n%s", diff)
	}
	h.checkInvariants()
}

func TestSlowLoadIsSupersededByFastOne(t *testing.T) {
	h := newHarness(t)
	h.addWindow(1, "Slow", "a", "list")
	h.addWindow(2, "Fast", "b", "list")
	gate := make(chan struct{})
	entered := make(chan struct{})
	h.loader.gates[1] = gate
	h.loader.entered[1] = entered

	var wg sync.WaitGroup
	var slowErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		slowErr = h.m.DoAction(context.Background(), ByID(1), Options{})
	}()
	<-entered

	h.do(ByID(2), Options{})
	close(gate)
	wg.Wait()

	if slowErr != nil {
		t.Fatalf("superseded DoAction returned %v, want nil", slowErr)
	}
	if got := h.top(); h.widget(got.ID).name != "Fast/list" {
		t.Errorf("top widget = %q, want Fast/list", h.widget(got.ID).name)
	}
	if len(h.widgetNamed("Slow/list")) != 0 {
		t.Error("superseded action must not build controllers")
	}
	if h.m.Stack().Len() != 1 {
		t.Errorf("stack length = %d, want 1", h.m.Stack().Len())
	}
	h.checkInvariants()
}

func TestSlowStartIsDestroyedWhenSuperseded(t *testing.T) {
	h := newHarness(t)
	h.addWindow(1, "Slow", "a", "list")
	h.addWindow(2, "Fast", "b", "list")
	gate := make(chan struct{})
	entered := make(chan struct{})
	h.onNew = func(opts ViewOptions, w *fakeWidget) {
		if opts.Action.ID == 1 {
			w.gate, w.entered = gate, entered
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := h.m.DoAction(context.Background(), ByID(1), Options{}); err != nil {
			t.Errorf("superseded DoAction: %v", err)
		}
	}()
	<-entered

	h.do(ByID(2), Options{})
	close(gate)
	wg.Wait()

	slow := h.widgetNamed("Slow/list")
	if len(slow) != 1 {
		t.Fatalf("expected one slow widget, got %d", len(slow))
	}
	if _, _, destroyed := slow[0].counts(); destroyed != 1 {
		t.Errorf("stale widget destroyed %d times, want 1", destroyed)
	}
	if h.surface.attached("Slow/list") {
		t.Error("stale widget was attached")
	}
	if h.m.Stack().ActionCount() != 1 {
		t.Errorf("live actions = %d, want 1", h.m.Stack().ActionCount())
	}
	h.checkInvariants()
}

func TestLoadStateDualLoadsListBeneathForm(t *testing.T) {
	h := newHarness(t)
	h.addWindow(5, "Orders", "sale.order", "list", "form")

	if err := h.m.LoadState(context.Background(), State{Action: 5, ViewType: "form", ID: 7}); err != nil {
		t.Fatalf("LoadState: %v", err)
	}

	ids := h.m.Stack().IDs()
	if len(ids) != 2 {
		t.Fatalf("stack = %v, want list and form", ids)
	}
	lower, _ := h.m.Stack().Controller(ids[0])
	upper, _ := h.m.Stack().Controller(ids[1])
	if lower.ViewType != "list" || upper.ViewType != "form" {
		t.Fatalf("stack views = %s/%s, want list/form", lower.ViewType, upper.ViewType)
	}
	if h.surface.attached("Orders/list") {
		t.Error("list loaded beneath the form must not be shown")
	}
	if got := h.widget(upper.ID).env().CurrentID; got != 7 {
		t.Errorf("form CurrentID = %d, want 7", got)
	}
	want := State{Action: 5, Model: "sale.order", ViewType: "form", ID: 7, Title: "Orders"}
	if diff := cmp.Diff(want, h.lastState()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
	h.checkInvariants()

	if err := h.m.SwitchToPreviousView(context.Background()); err != nil {
		t.Fatalf("SwitchToPreviousView: %v", err)
	}
	if diff := cmp.Diff([]string{lower.ID}, h.m.Stack().IDs()); diff != "" {
		t.Errorf("stack after going back (-want +got):\n%s", diff)
	}
	h.checkInvariants()
}

func TestLoadStateOnCurrentActionOnlySwitches(t *testing.T) {
	h := newHarness(t)
	h.addWindow(5, "Orders", "sale.order", "list", "form")
	h.do(ByID(5), Options{})
	list := h.top()

	if err := h.m.LoadState(context.Background(), State{Action: 5, ID: 3}); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	form := h.top()
	if form.ViewType != "form" || form.ActionID != list.ActionID {
		t.Fatalf("expected a form of the same action, got %+v", form)
	}
	if len(h.loader.calls) != 1 {
		t.Errorf("loader called %d times, want 1", len(h.loader.calls))
	}
}

func TestDeclinedDiscardKeepsStack(t *testing.T) {
	h := newHarness(t)
	h.addWindow(1, "Partners", "res.partner", "list")
	editor := &dirtyWidget{fakeWidget: &fakeWidget{name: "editor"}}
	h.m.clients.Register("editor", ClientAction{New: func(ClientOptions) (Widget, error) { return editor, nil }})

	h.do(ByName("editor"), Options{})
	before := h.m.Stack().IDs()

	err := h.m.DoAction(context.Background(), ByID(1), Options{})
	if !errors.Is(err, domain.ErrDiscardDeclined) {
		t.Fatalf("DoAction error = %v, want ErrDiscardDeclined", err)
	}
	if editor.asked != 1 {
		t.Errorf("editor asked %d times, want 1", editor.asked)
	}
	if diff := cmp.Diff(before, h.m.Stack().IDs()); diff != "" {
		t.Errorf("stack changed (-want +got):\n%s", diff)
	}
	if len(h.widgetNamed("Partners/list")) != 0 {
		t.Error("declined navigation must not build controllers")
	}
	if _, _, destroyed := editor.counts(); destroyed != 0 {
		t.Error("editor destroyed after declined navigation")
	}

	editor.allow = true
	h.do(ByID(1), Options{})
	if _, _, destroyed := editor.counts(); destroyed != 0 {
		t.Error("pushing over the editor must keep it alive in the breadcrumbs")
	}
	h.checkInvariants()
}

func TestClearBreadcrumbsTearsDownEvictedActions(t *testing.T) {
	h := newHarness(t)
	h.addWindow(1, "A", "a", "list", "form")
	h.addWindow(2, "B", "b", "list")

	h.do(ByID(1), Options{})
	if err := h.m.SwitchView(context.Background(), "form", SwitchOptions{}); err != nil {
		t.Fatalf("SwitchView: %v", err)
	}
	aIDs := h.m.Stack().IDs()

	h.do(ByID(2), Options{ClearBreadcrumbs: true})

	if h.m.Stack().Len() != 1 {
		t.Fatalf("stack = %v, want only B", h.m.Stack().IDs())
	}
	for _, id := range aIDs {
		if _, _, destroyed := h.widget(id).counts(); destroyed != 1 {
			t.Errorf("controller %s destroyed %d times, want 1", id, destroyed)
		}
		if _, ok := h.m.Stack().Controller(id); ok {
			t.Errorf("controller %s still registered", id)
		}
	}
	if h.m.Stack().ActionCount() != 1 {
		t.Errorf("live actions = %d, want 1", h.m.Stack().ActionCount())
	}
	h.checkInvariants()
}

func TestReplaceLastAction(t *testing.T) {
	h := newHarness(t)
	h.addWindow(1, "A", "a", "list")
	h.addWindow(2, "B", "b", "list")
	h.addWindow(3, "C", "c", "list")

	h.do(ByID(1), Options{})
	h.do(ByID(2), Options{})
	b := h.top()
	h.do(ByID(3), Options{ReplaceLastAction: true})

	got := make([]string, 0)
	for _, c := range h.m.Breadcrumbs() {
		got = append(got, c.Title)
	}
	if diff := cmp.Diff([]string{"A", "C"}, got); diff != "" {
		t.Errorf("breadcrumbs mismatch (-want +got):\n%s", diff)
	}
	if _, _, destroyed := h.widget(b.ID).counts(); destroyed != 1 {
		t.Error("replaced action must be destroyed")
	}
	h.checkInvariants()
}

func TestTargetMainClearsBreadcrumbs(t *testing.T) {
	h := newHarness(t)
	h.addWindow(1, "A", "a", "list")
	main := h.addWindow(2, "Home", "b", "list")
	main.Target = domain.TargetMain

	h.do(ByID(1), Options{})
	h.do(ByID(2), Options{})

	if h.m.Stack().Len() != 1 {
		t.Errorf("stack = %v, want only Home", h.m.Stack().IDs())
	}
}

func TestDialogLifecycle(t *testing.T) {
	h := newHarness(t)
	h.addWindow(1, "Partners", "res.partner", "list")
	h.do(ByID(1), Options{})
	stack := h.m.Stack().IDs()

	closed := 0
	wizard := &domain.Action{
		Kind:    domain.KindWindow,
		Name:    "Wizard",
		Model:   "wizard",
		Target:  domain.TargetNew,
		Views:   []domain.ViewRef{{Type: "form"}},
		Context: domain.Context{"dialog_size": "medium"},
	}
	h.do(Inline(wizard), Options{OnClose: func() { closed++ }})

	d, ok := h.m.Stack().Dialog()
	if !ok {
		t.Fatal("expected a dialog")
	}
	if diff := cmp.Diff(stack, h.m.Stack().IDs()); diff != "" {
		t.Errorf("opening a dialog changed the stack (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]DialogOptions{{Title: "Wizard", Size: "medium"}}, h.surface.dialogs); diff != "" {
		t.Errorf("dialog options mismatch (-want +got):\n%s", diff)
	}
	if got := h.widget(d.ID).env().CurrentID; got != 0 {
		t.Errorf("new record dialog CurrentID = %d", got)
	}
	if st := h.lastState(); st.Model != "res.partner" {
		t.Errorf("dialog leaked into navigation state: %+v", st)
	}

	effect := domain.Effect{"message": "Done"}
	h.do(Inline(&domain.Action{Kind: domain.KindClose, Effect: effect}), Options{})

	if _, ok := h.m.Stack().Dialog(); ok {
		t.Error("dialog still open after close action")
	}
	if closed != 1 {
		t.Errorf("OnClose called %d times, want 1", closed)
	}
	if _, _, destroyed := h.widget(d.ID).counts(); destroyed != 1 {
		t.Error("dialog controller not destroyed")
	}
	if diff := cmp.Diff([]domain.Effect{effect}, h.surface.effects); diff != "" {
		t.Errorf("effects mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(stack, h.m.Stack().IDs()); diff != "" {
		t.Errorf("closing the dialog changed the stack (-want +got):\n%s", diff)
	}
	h.checkInvariants()
}

func TestMainActionClosesDialog(t *testing.T) {
	h := newHarness(t)
	h.addWindow(1, "Partners", "res.partner", "list")
	h.do(Inline(&domain.Action{Kind: domain.KindWindow, Model: "w", Target: domain.TargetNew, Views: []domain.ViewRef{{Type: "form"}}}), Options{})

	h.do(ByID(1), Options{})

	if _, ok := h.m.Stack().Dialog(); ok {
		t.Error("dialog survived a main navigation")
	}
	if h.m.Stack().ActionCount() != 1 {
		t.Errorf("live actions = %d, want 1", h.m.Stack().ActionCount())
	}
}

func TestServerActionResults(t *testing.T) {
	h := newHarness(t)
	h.runner.results[10] = &domain.Action{Kind: domain.KindWindow, Name: "Result", Model: "r", Views: []domain.ViewRef{{Type: "list"}}}
	h.runner.results[11] = nil

	h.do(Inline(&domain.Action{Kind: domain.KindServer, ID: 10, Context: domain.Context{"active_id": 3}}), Options{})
	if h.widget(h.top().ID).name != "Result/list" {
		t.Errorf("server action result not displayed")
	}
	if got := h.runner.ctxs[0]; got["active_id"] != 3 || got["lang"] != "en_US" {
		t.Errorf("runner context = %v", got)
	}

	h.do(Inline(&domain.Action{Kind: domain.KindWindow, Model: "w", Target: domain.TargetNew, Views: []domain.ViewRef{{Type: "form"}}}), Options{})
	h.do(Inline(&domain.Action{Kind: domain.KindServer, ID: 11}), Options{})
	if _, ok := h.m.Stack().Dialog(); ok {
		t.Error("empty server result must close the dialog")
	}

	err := h.m.DoAction(context.Background(), Inline(&domain.Action{Kind: domain.KindServer, ID: 99}), Options{})
	if err == nil {
		t.Error("expected runner failure to propagate")
	}
}

func TestUnknownClientTagWarns(t *testing.T) {
	h := newHarness(t)
	h.addWindow(1, "A", "a", "list")
	h.do(ByID(1), Options{})
	before := h.m.Stack().IDs()

	h.do(Inline(&domain.Action{Kind: domain.KindClient, Tag: "missing"}), Options{})

	if h.surface.warningCount() != 1 {
		t.Errorf("warnings = %v, want one", h.surface.warnings)
	}
	if diff := cmp.Diff(before, h.m.Stack().IDs()); diff != "" {
		t.Errorf("stack changed (-want +got):\n%s", diff)
	}
}

func TestClientFunctionActionChains(t *testing.T) {
	h := newHarness(t)
	h.addWindow(1, "Partners", "res.partner", "list")
	h.m.clients.Register("reload", ClientAction{Run: func(_ context.Context, act *domain.Action) (*Ref, error) {
		if act.Params["menu"] != "partners" {
			return nil, errors.New("missing params")
		}
		next := ByID(1)
		return &next, nil
	}})

	h.do(Inline(&domain.Action{Kind: domain.KindClient, Tag: "reload", Params: map[string]any{"menu": "partners"}}), Options{})

	if h.widget(h.top().ID).name != "Partners/list" {
		t.Error("function client action did not chain to its result")
	}
}

func TestUnsupportedKind(t *testing.T) {
	h := newHarness(t)
	err := h.m.DoAction(context.Background(), Inline(&domain.Action{Kind: "report"}), Options{})
	if !errors.Is(err, domain.ErrUnsupportedKind) {
		t.Fatalf("error = %v, want ErrUnsupportedKind", err)
	}
	err = h.m.DoAction(context.Background(), Inline(&domain.Action{Name: "no kind"}), Options{})
	if !errors.Is(err, domain.ErrUnsupportedKind) {
		t.Fatalf("error = %v, want ErrUnsupportedKind", err)
	}
	if h.m.Stack().Len() != 0 {
		t.Error("stack changed")
	}
}

func TestLookupFailureWarns(t *testing.T) {
	h := newHarness(t)
	err := h.m.DoAction(context.Background(), ByID(404), Options{})
	if !errors.Is(err, domain.ErrLookup) || !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrLookup wrapping ErrNotFound", err)
	}
	if h.surface.warningCount() != 1 {
		t.Errorf("expected a warning, got %v", h.surface.warnings)
	}
}

func TestControllerStartFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	h.addWindow(1, "Partners", "res.partner", "list", "form")
	h.do(ByID(1), Options{})
	list := h.top()

	fail := true
	h.onNew = func(opts ViewOptions, w *fakeWidget) {
		if opts.ViewType == "form" && fail {
			w.startErr = errors.New("rpc failed")
		}
	}
	err := h.m.SwitchView(context.Background(), "form", SwitchOptions{})
	if !errors.Is(err, domain.ErrControllerStart) {
		t.Fatalf("error = %v, want ErrControllerStart", err)
	}
	broken := h.widgetNamed("Partners/form")
	if len(broken) != 1 {
		t.Fatalf("expected one form widget, got %d", len(broken))
	}
	if _, _, destroyed := broken[0].counts(); destroyed != 1 {
		t.Error("failed widget not destroyed")
	}
	if diff := cmp.Diff([]string{list.ID}, h.m.Stack().IDs()); diff != "" {
		t.Errorf("stack changed (-want +got):\n%s", diff)
	}

	fail = false
	if err := h.m.SwitchView(context.Background(), "form", SwitchOptions{}); err != nil {
		t.Fatalf("retry SwitchView: %v", err)
	}
	if len(h.widgetNamed("Partners/form")) != 2 {
		t.Error("retry must build a fresh controller")
	}
	h.checkInvariants()
}

func TestStaleSwitchIsDropped(t *testing.T) {
	h := newHarness(t)
	h.addWindow(1, "Partners", "res.partner", "list", "form")
	h.addWindow(2, "Other", "o", "list")
	h.do(ByID(1), Options{})

	gate := make(chan struct{})
	entered := make(chan struct{})
	h.onNew = func(opts ViewOptions, w *fakeWidget) {
		if opts.ViewType == "form" {
			w.gate, w.entered = gate, entered
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := h.m.SwitchView(context.Background(), "form", SwitchOptions{}); err != nil {
			t.Errorf("stale SwitchView: %v", err)
		}
	}()
	<-entered
	h.do(ByID(2), Options{})
	close(gate)
	wg.Wait()

	if h.widget(h.top().ID).name != "Other/list" {
		t.Error("stale switch overwrote the newer navigation")
	}
	if h.surface.attached("Partners/form") {
		t.Error("stale form was attached")
	}
	h.checkInvariants()
}

func TestSwitchOnRemovedActionBuildsNothing(t *testing.T) {
	h := newHarness(t)
	h.addWindow(1, "A", "a", "kanban", "graph")
	h.addWindow(2, "B", "b", "list")
	held := &heldDiscarder{
		fakeWidget: &fakeWidget{name: "A/kanban"},
		asked:      make(chan struct{}),
		release:    make(chan struct{}),
	}
	h.m.views.Register("kanban", ViewSpec{MultiRecord: true, New: func(ViewOptions) (Widget, error) { return held, nil }})
	h.do(ByID(1), Options{})

	var wg sync.WaitGroup
	var switchErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		switchErr = h.m.SwitchView(context.Background(), "graph", SwitchOptions{})
	}()
	<-held.asked

	h.do(ByID(2), Options{ClearBreadcrumbs: true})
	close(held.release)
	wg.Wait()

	if switchErr != nil {
		t.Fatalf("SwitchView on a removed action = %v, want nil", switchErr)
	}
	for _, w := range h.widgetNamed("A/graph") {
		if _, _, destroyed := w.counts(); destroyed != 1 {
			t.Errorf("graph of a removed action destroyed %d times, want 1", destroyed)
		}
	}
	if _, _, destroyed := held.counts(); destroyed != 1 {
		t.Errorf("kanban destroyed %d times, want 1", destroyed)
	}
	if h.surface.attached("A/graph") {
		t.Error("graph of a removed action was attached")
	}
	if got := h.m.Stack().ActionCount(); got != 1 {
		t.Errorf("live actions = %d, want 1", got)
	}
	if h.widget(h.top().ID).name != "B/list" {
		t.Errorf("top = %q, want B/list", h.widget(h.top().ID).name)
	}
	h.checkInvariants()
}

func TestSwitchDoesNotDropLoadingAction(t *testing.T) {
	h := newHarness(t)
	h.addWindow(1, "A", "a", "list", "form")
	h.addWindow(2, "B", "b", "list")
	h.do(ByID(1), Options{})

	gate := make(chan struct{})
	entered := make(chan struct{})
	h.loader.gates[2] = gate
	h.loader.entered[2] = entered

	var wg sync.WaitGroup
	var doErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		doErr = h.m.DoAction(context.Background(), ByID(2), Options{})
	}()
	<-entered

	if err := h.m.SwitchView(context.Background(), "form", SwitchOptions{}); err != nil {
		t.Fatalf("SwitchView(form): %v", err)
	}
	if h.widget(h.top().ID).name != "A/form" {
		t.Fatalf("top after switch = %q, want A/form", h.widget(h.top().ID).name)
	}
	close(gate)
	wg.Wait()

	if doErr != nil {
		t.Fatalf("DoAction(B): %v", doErr)
	}
	if h.widget(h.top().ID).name != "B/list" {
		t.Errorf("top = %q, want B/list", h.widget(h.top().ID).name)
	}
	if h.m.Stack().Len() != 3 {
		t.Errorf("stack length = %d, want 3", h.m.Stack().Len())
	}
	h.checkInvariants()
}

func TestDroppedSwitchKeepsCurrentRecord(t *testing.T) {
	h := newHarness(t)
	h.addWindow(1, "Partners", "res.partner", "list", "form")
	h.addWindow(2, "Other", "o", "list")
	h.do(ByID(1), Options{})
	list := h.top()

	gate := make(chan struct{})
	entered := make(chan struct{})
	h.onNew = func(opts ViewOptions, w *fakeWidget) {
		if opts.ViewType == "form" {
			w.gate, w.entered = gate, entered
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		id := int64(7)
		if err := h.m.SwitchView(context.Background(), "form", SwitchOptions{ResID: &id}); err != nil {
			t.Errorf("dropped SwitchView: %v", err)
		}
	}()
	<-entered
	h.do(ByID(2), Options{})
	close(gate)
	wg.Wait()

	env, err := h.m.Environment(list.ID)
	if err != nil {
		t.Fatalf("Environment: %v", err)
	}
	if env.CurrentID != 0 {
		t.Errorf("CurrentID after a dropped switch = %d, want 0", env.CurrentID)
	}

	if err := h.m.Restore(context.Background(), list.ID); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got := h.widget(list.ID).env().CurrentID; got != 0 {
		t.Errorf("restored list reloaded with CurrentID %d, want 0", got)
	}
	h.checkInvariants()
}

func TestLoadedDialogKeepsMainNavigation(t *testing.T) {
	h := newHarness(t)
	h.addWindow(1, "Orders", "sale.order", "list")
	wizard := h.addWindow(3, "Wizard", "sale.wizard", "form")
	wizard.Target = domain.TargetNew

	gate := make(chan struct{})
	entered := make(chan struct{})
	h.onNew = func(opts ViewOptions, w *fakeWidget) {
		if opts.Action.ID == 1 {
			w.gate, w.entered = gate, entered
		}
	}

	var wg sync.WaitGroup
	var mainErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		mainErr = h.m.DoAction(context.Background(), ByID(1), Options{})
	}()
	<-entered

	h.do(ByID(3), Options{})
	if _, ok := h.m.Stack().Dialog(); !ok {
		t.Fatal("loaded target=new action did not open a dialog")
	}
	close(gate)
	wg.Wait()

	if mainErr != nil {
		t.Fatalf("main DoAction: %v", mainErr)
	}
	if h.widget(h.top().ID).name != "Orders/list" {
		t.Errorf("top = %q, want Orders/list", h.widget(h.top().ID).name)
	}
	h.checkInvariants()
}

func TestOlderDispatchSettlingFirstIsInert(t *testing.T) {
	h := newHarness(t)
	h.addWindow(1, "Old", "a", "list")
	h.addWindow(2, "New", "b", "list")
	gates := map[int64]chan struct{}{1: make(chan struct{}), 2: make(chan struct{})}
	for id, gate := range gates {
		h.loader.gates[id] = gate
		h.loader.entered[id] = make(chan struct{})
	}

	errs := map[int64]chan error{1: make(chan error, 1), 2: make(chan error, 1)}
	start := func(id int64) {
		entered := h.loader.entered[id]
		go func() { errs[id] <- h.m.DoAction(context.Background(), ByID(id), Options{}) }()
		<-entered
	}
	start(1)
	start(2)

	close(gates[1])
	if err := <-errs[1]; err != nil {
		t.Fatalf("older DoAction = %v, want nil", err)
	}
	if h.m.Stack().Len() != 0 {
		t.Fatalf("older dispatch touched the stack: %v", h.m.Stack().IDs())
	}
	if len(h.widgetNamed("Old/list")) != 0 {
		t.Error("older dispatch built controllers")
	}

	close(gates[2])
	if err := <-errs[2]; err != nil {
		t.Fatalf("newer DoAction: %v", err)
	}
	if h.widget(h.top().ID).name != "New/list" {
		t.Errorf("top = %q, want New/list", h.widget(h.top().ID).name)
	}
	h.checkInvariants()
}

func TestURLActions(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.Debug = "assets" })

	h.do(Inline(&domain.Action{Kind: domain.KindURL, URL: "/web/content?id=3"}), Options{})
	h.do(Inline(&domain.Action{Kind: domain.KindURL, URL: "https://example.com/x"}), Options{})
	want := []string{"/web/content?debug=assets&id=3", "https://example.com/x"}
	if diff := cmp.Diff(want, h.navigator.opened); diff != "" {
		t.Errorf("opened URLs mismatch (-want +got):\n%s", diff)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- h.m.DoAction(ctx, Inline(&domain.Action{Kind: domain.KindURL, URL: "/logout", Target: domain.TargetSelf}), Options{})
	}()
	eventually(t, func() bool {
		h.navigator.mu.Lock()
		defer h.navigator.mu.Unlock()
		return len(h.navigator.redirects) == 1
	}, "redirect never issued")
	select {
	case err := <-done:
		t.Fatalf("self redirect returned early: %v", err)
	default:
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("redirect result = %v, want context.Canceled", err)
	}
}

func TestRegisterKind(t *testing.T) {
	h := newHarness(t)
	h.m.RegisterKind("report", func(ctx context.Context, act *domain.Action, opts Options) error {
		return h.m.Mount(ctx, act, func(o ClientOptions) (Widget, error) {
			return &fakeWidget{name: "report:" + o.Action.Name}, nil
		}, opts)
	})

	h.do(Inline(&domain.Action{Kind: "report", Name: "Invoice"}), Options{})
	if h.m.Stack().Len() != 1 || !h.surface.attached("report:Invoice") {
		t.Error("custom kind handler did not mount its widget")
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate kind")
		}
	}()
	h.m.RegisterKind(domain.KindWindow, nil)
}

func TestRestoreNonWindowShowsAndFiresCallback(t *testing.T) {
	h := newHarness(t)
	h.addWindow(1, "A", "a", "list")
	home := &fakeWidget{name: "home"}
	h.m.clients.Register("home", ClientAction{New: func(ClientOptions) (Widget, error) { return home, nil }})

	reversed := 0
	h.do(ByName("home"), Options{OnReverseBreadcrumb: func() { reversed++ }})
	homeID := h.top().ID
	h.do(ByID(1), Options{})

	if err := h.m.Restore(context.Background(), homeID); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if home.shows != 1 {
		t.Errorf("home shown %d times, want 1", home.shows)
	}
	if reversed != 1 {
		t.Errorf("OnReverseBreadcrumb called %d times, want 1", reversed)
	}
	if h.m.Stack().ActionCount() != 1 {
		t.Errorf("restoring must tear down the actions above, live = %d", h.m.Stack().ActionCount())
	}
	if err := h.m.Restore(context.Background(), "controller_999"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Restore(unknown) = %v, want ErrNotFound", err)
	}
	h.checkInvariants()
}

func TestSearchReloadsTopWithMergedDomain(t *testing.T) {
	h := newHarness(t)
	act := h.addWindow(1, "Partners", "res.partner", "list")
	act.Domain = domain.Domain{{Field: "active", Operator: "=", Value: true}}
	h.do(ByID(1), Options{})

	q := SearchQuery{
		Domain:  domain.Domain{{Field: "name", Operator: "ilike", Value: "acme"}},
		Context: domain.Context{"search_mode": "simple"},
		GroupBy: []string{"country_id"},
	}
	if err := h.m.Search(context.Background(), q); err != nil {
		t.Fatalf("Search: %v", err)
	}

	env := h.widget(h.top().ID).env()
	wantDomain := domain.Domain{
		{Field: "active", Operator: "=", Value: true},
		{Field: "name", Operator: "ilike", Value: "acme"},
	}
	if diff := cmp.Diff(wantDomain, env.Domain); diff != "" {
		t.Errorf("domain mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"country_id"}, env.GroupBy); diff != "" {
		t.Errorf("group by mismatch (-want +got):\n%s", diff)
	}
	if env.Context["search_mode"] != "simple" || env.Context["lang"] != "en_US" {
		t.Errorf("context = %v", env.Context)
	}
}

func TestUpdateEnvironmentRepublishesState(t *testing.T) {
	h := newHarness(t)
	h.addWindow(1, "Partners", "res.partner", "list", "form")
	h.do(ByID(1), Options{})
	id := int64(4)
	if err := h.m.SwitchView(context.Background(), "form", SwitchOptions{ResID: &id}); err != nil {
		t.Fatalf("SwitchView: %v", err)
	}

	next := int64(5)
	if err := h.m.UpdateEnvironment(h.top().ID, domain.EnvironmentPatch{CurrentID: &next}); err != nil {
		t.Fatalf("UpdateEnvironment: %v", err)
	}
	if got := h.lastState().ID; got != 5 {
		t.Errorf("state ID = %d, want 5", got)
	}
	env, err := h.m.Environment(h.top().ID)
	if err != nil || env.CurrentID != 5 {
		t.Errorf("Environment = %+v, %v", env, err)
	}
}
