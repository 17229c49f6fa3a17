package actions

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"nathanbeddoewebdev/actionmgr/internal/domain"
)

// stackFixture builds instances and controllers directly against a Stack.
type stackFixture struct {
	t       *testing.T
	s       *Stack
	surface *fakeSurface
	seq     int
}

func newStackFixture(t *testing.T) *stackFixture {
	surface := &fakeSurface{}
	return &stackFixture{t: t, s: newStack(surface), surface: surface}
}

func (f *stackFixture) action(name string) *instance {
	f.seq++
	return &instance{
		key:    name,
		action: &domain.Action{Kind: domain.KindClient, Name: name},
		slots:  map[string]*pending{},
	}
}

// controller creates a settled controller of inst in slot.
func (f *stackFixture) controller(inst *instance, slot string) (*Controller, *fakeWidget) {
	f.seq++
	w := &fakeWidget{name: inst.key + "/" + slot}
	c := &Controller{ID: w.name, ActionID: inst.key, ViewType: slot, Widget: w}
	p, _, err := f.s.reserve(inst, slot)
	if err != nil {
		f.t.Fatalf("reserve %s: %v", c.ID, err)
	}
	if err := f.s.settle(inst, slot, p, c, nil); err != nil {
		f.t.Fatalf("settle %s: %v", c.ID, err)
	}
	return c, w
}

func (f *stackFixture) push(c *Controller, inst *instance, opts PushOptions) {
	f.t.Helper()
	if err := f.s.push(c, inst, opts); err != nil {
		f.t.Fatalf("push %s: %v", c.ID, err)
	}
}

func TestStackPush_SpliceKeepsControllersOfSurvivingActions(t *testing.T) {
	f := newStackFixture(t)
	a, b := f.action("a"), f.action("b")
	a1, _ := f.controller(a, "list")
	a2, a2w := f.controller(a, "form")
	b1, b1w := f.controller(b, "")

	f.push(a1, a, noSplice())
	f.push(a2, a, noSplice())
	f.push(b1, b, noSplice())
	f.push(a1, a, PushOptions{SpliceAt: 0})

	if diff := cmp.Diff([]string{a1.ID}, f.s.IDs()); diff != "" {
		t.Fatalf("stack mismatch (-want +got):\n%s", diff)
	}
	if _, _, destroyed := b1w.counts(); destroyed != 1 {
		t.Error("evicted action b must be destroyed")
	}
	if _, _, destroyed := a2w.counts(); destroyed != 0 {
		t.Error("a2 belongs to a live action and must survive")
	}
	if _, ok := f.s.Controller(a2.ID); !ok {
		t.Error("a2 must stay registered for reuse")
	}
	if f.s.ActionCount() != 1 {
		t.Errorf("live actions = %d, want 1", f.s.ActionCount())
	}
}

func TestStackPush_BelowIsInsertedWithoutAttaching(t *testing.T) {
	f := newStackFixture(t)
	a := f.action("a")
	list, _ := f.controller(a, "list")
	form, _ := f.controller(a, "form")

	f.push(form, a, PushOptions{SpliceAt: -1, Below: []*Controller{list}})

	if diff := cmp.Diff([]string{list.ID, form.ID}, f.s.IDs()); diff != "" {
		t.Fatalf("stack mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"attach:a/form"}, f.surface.events); diff != "" {
		t.Errorf("surface events mismatch (-want +got):\n%s", diff)
	}
}

func TestStackPush_NoDuplicates(t *testing.T) {
	f := newStackFixture(t)
	a, b := f.action("a"), f.action("b")
	a1, _ := f.controller(a, "")
	b1, _ := f.controller(b, "")

	f.push(a1, a, noSplice())
	f.push(b1, b, noSplice())
	f.push(a1, a, noSplice())

	if diff := cmp.Diff([]string{b1.ID, a1.ID}, f.s.IDs()); diff != "" {
		t.Errorf("stack mismatch (-want +got):\n%s", diff)
	}
	if got := f.s.Attached(); got != a1.ID {
		t.Errorf("attached = %q, want %q", got, a1.ID)
	}
	want := []string{"attach:a/", "detach:a/", "attach:b/", "detach:b/", "attach:a/"}
	if diff := cmp.Diff(want, f.surface.events); diff != "" {
		t.Errorf("surface events mismatch (-want +got):\n%s", diff)
	}
}

func TestStackRemove_PendingControllerIsDestroyedWhenSettled(t *testing.T) {
	f := newStackFixture(t)
	a, b := f.action("a"), f.action("b")
	a1, _ := f.controller(a, "list")
	b1, _ := f.controller(b, "")
	f.push(a1, a, noSplice())

	p, created, err := f.s.reserve(a, "form")
	if err != nil || !created {
		t.Fatalf("reserve = created %v, err %v; want a fresh slot", created, err)
	}

	f.push(b1, b, PushOptions{ClearAll: true})

	late := &fakeWidget{name: "late"}
	if err := f.s.settle(a, "form", p, &Controller{ID: "late", ActionID: a.key, ViewType: "form", Widget: late}, nil); !isStale(err) {
		t.Errorf("settle on a removed action = %v, want stale", err)
	}

	eventually(t, func() bool {
		_, _, destroyed := late.counts()
		return destroyed == 1
	}, "pending controller of a removed action was never destroyed")
	eventually(t, func() bool {
		_, ok := f.s.Controller("late")
		return !ok
	}, "pending controller of a removed action stayed registered")

	if err := f.s.push(a1, a, noSplice()); !isStale(err) {
		t.Errorf("push onto a removed action = %v, want stale", err)
	}
}

func isStale(err error) bool { return err != nil && err == errInstanceGone }

func TestStackReserve_RemovedActionGetsNoSlot(t *testing.T) {
	f := newStackFixture(t)
	a, b := f.action("a"), f.action("b")
	a1, _ := f.controller(a, "list")
	b1, _ := f.controller(b, "")
	f.push(a1, a, noSplice())
	f.push(b1, b, PushOptions{ClearAll: true})

	if _, _, err := f.s.reserve(a, "graph"); !isStale(err) {
		t.Fatalf("reserve on a removed action = %v, want stale", err)
	}
	if _, ok := a.slots["graph"]; ok {
		t.Error("removed action gained a slot")
	}
}
