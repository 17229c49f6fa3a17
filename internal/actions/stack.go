package actions

import (
	"slices"
	"sync"

	"nathanbeddoewebdev/actionmgr/internal/concurrency"
	"nathanbeddoewebdev/actionmgr/internal/domain"
)

// Controller binds a widget to the action instance that owns it.
type Controller struct {
	ID       string
	ActionID string
	ViewType string
	Widget   Widget
}

// pending is a memoized controller slot. done is closed once the
// controller has started (ctrl set) or failed (err set).
type pending struct {
	done chan struct{}
	ctrl *Controller
	err  error
	// orphaned is set when ctrl settled after its instance was removed.
	orphaned bool
}

func (p *pending) settled() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// viewEntry is one resolved view of a window action.
type viewEntry struct {
	ref  domain.ViewRef
	spec ViewSpec
}

// instance is one execution of an action. Window instances carry the
// resolved views and the environment shared by their controllers.
type instance struct {
	key    string
	action *domain.Action
	opts   Options

	window bool
	views  []viewEntry
	env    domain.Environment

	// slots holds one controller per view type; non-window actions use the
	// empty key.
	slots   map[string]*pending
	removed bool

	// switches orders the view switches of this instance.
	switches concurrency.DropPrevious
}

func (inst *instance) view(viewType string) (viewEntry, bool) {
	for _, v := range inst.views {
		if v.ref.Type == viewType {
			return v, true
		}
	}
	return viewEntry{}, false
}

func (inst *instance) multiRecord(viewType string) bool {
	v, ok := inst.view(viewType)
	return ok && v.spec.MultiRecord
}

// PushOptions select how a push rearranges the stack. At most one of
// ClearAll, ReplaceTop and SpliceAt applies, in that order of precedence.
type PushOptions struct {
	ClearAll   bool
	ReplaceTop bool
	// SpliceAt truncates the stack at the given index before pushing.
	// Negative means no splice.
	SpliceAt int
	// Below are inserted beneath the pushed controller without being
	// attached.
	Below []*Controller
}

func noSplice() PushOptions { return PushOptions{SpliceAt: -1} }

// StateHook receives the navigation state after every stack mutation that
// leaves a pushable controller on top.
type StateHook func(State)

// Stack is the ordered breadcrumb trail of controllers plus an independent
// dialog slot. It owns every registered action instance and controller and
// is the only place they are added or forgotten.
type Stack struct {
	surface Surface

	mu          sync.Mutex
	actions     map[string]*instance
	controllers map[string]*Controller
	order       []string
	dialog      *Controller
	attached    string
	hooks       []StateHook
}

func newStack(surface Surface) *Stack {
	return &Stack{
		surface:     surface,
		actions:     map[string]*instance{},
		controllers: map[string]*Controller{},
	}
}

// OnChange registers a hook run after every mutation.
func (s *Stack) OnChange(h StateHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, h)
}

// IDs returns the controller ids from bottom to top.
func (s *Stack) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.order)
}

// Len returns the number of stacked controllers.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Top returns the controller on top of the stack.
func (s *Stack) Top() (*Controller, bool) {
	c, _ := s.top()
	return c, c != nil
}

// Dialog returns the controller in the dialog slot.
func (s *Stack) Dialog() (*Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dialog, s.dialog != nil
}

// Attached returns the id of the controller mounted in the content area.
func (s *Stack) Attached() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}

// Controller looks up any live controller, stacked or not.
func (s *Stack) Controller(id string) (*Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.controllers[id]
	return c, ok
}

// ActionCount returns the number of live action instances.
func (s *Stack) ActionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.actions)
}

// Breadcrumbs returns one entry per stacked controller.
func (s *Stack) Breadcrumbs() []Breadcrumb {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.breadcrumbsLocked()
}

func (s *Stack) breadcrumbsLocked() []Breadcrumb {
	crumbs := make([]Breadcrumb, 0, len(s.order))
	for _, id := range s.order {
		c := s.controllers[id]
		crumbs = append(crumbs, Breadcrumb{Title: s.titleLocked(c), ControllerID: id})
	}
	return crumbs
}

func (s *Stack) titleLocked(c *Controller) string {
	if t, ok := c.Widget.(Titled); ok {
		if title := t.Title(); title != "" {
			return title
		}
	}
	if inst := s.actions[c.ActionID]; inst != nil {
		return inst.action.DisplayName()
	}
	return ""
}

func (s *Stack) top() (*Controller, *instance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topLocked()
}

func (s *Stack) topLocked() (*Controller, *instance) {
	if len(s.order) == 0 {
		return nil, nil
	}
	c := s.controllers[s.order[len(s.order)-1]]
	return c, s.actions[c.ActionID]
}

func (s *Stack) lookup(id string) (*Controller, *instance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.controllers[id]
	if !ok {
		return nil, nil, false
	}
	inst, ok := s.actions[c.ActionID]
	return c, inst, ok
}

func (s *Stack) indexOf(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Index(s.order, id)
}

// environment returns a snapshot of inst's environment.
func (s *Stack) environment(inst *instance) domain.Environment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return inst.env.Clone()
}

func (s *Stack) updateEnvironment(inst *instance, p domain.EnvironmentPatch) domain.Environment {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst.env.Apply(p)
	return inst.env.Clone()
}

// reserve returns the controller slot of inst for viewType, creating an
// unsettled one when none exists. created reports whether the caller owns
// the new slot and must settle it. A removed instance gets no new slots.
func (s *Stack) reserve(inst *instance, viewType string) (p *pending, created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inst.removed {
		return nil, false, errInstanceGone
	}
	if p, ok := inst.slots[viewType]; ok {
		return p, false, nil
	}
	p = &pending{done: make(chan struct{})}
	inst.slots[viewType] = p
	return p, true, nil
}

// settle completes a reserved slot. A failed slot is forgotten so the
// next request starts over. A controller settling after its instance was
// removed is not registered and settle returns errInstanceGone; the
// teardown that removed the instance waits on the slot and destroys it.
func (s *Stack) settle(inst *instance, viewType string, p *pending, c *Controller, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer close(p.done)
	p.ctrl, p.err = c, err
	switch {
	case err != nil:
		if inst.slots[viewType] == p {
			delete(inst.slots, viewType)
		}
		return nil
	case inst.removed:
		p.orphaned = true
		return errInstanceGone
	}
	s.controllers[c.ID] = c
	return nil
}

// push mounts c on top of the stack and registers inst when needed.
func (s *Stack) push(c *Controller, inst *instance, opts PushOptions) error {
	return s.apply(c, inst, func() (PushOptions, error) { return opts, nil })
}

// apply runs plan under the lock and performs the push it describes. plan
// may abort the push by returning an error, e.g. when the state it was
// computed against is gone.
func (s *Stack) apply(c *Controller, inst *instance, plan func() (PushOptions, error)) error {
	s.mu.Lock()
	if inst.removed {
		s.mu.Unlock()
		return errInstanceGone
	}
	opts, err := plan()
	if err != nil {
		s.mu.Unlock()
		return err
	}

	s.actions[inst.key] = inst
	s.controllers[c.ID] = c
	below := make(map[string]bool, len(opts.Below))
	for _, b := range opts.Below {
		s.controllers[b.ID] = b
		below[b.ID] = true
	}

	if prev, _ := s.topLocked(); prev != nil && prev.ID != c.ID && s.attached == prev.ID {
		s.surface.Detach(prev.Widget)
		s.attached = ""
	}

	var evicted []string
	switch {
	case opts.ClearAll:
		evicted, s.order = s.order, nil
	case opts.ReplaceTop && len(s.order) > 0:
		evicted = []string{s.order[len(s.order)-1]}
		s.order = slices.Clone(s.order[:len(s.order)-1])
	case opts.SpliceAt >= 0 && opts.SpliceAt <= len(s.order):
		evicted = slices.Clone(s.order[opts.SpliceAt:])
		s.order = slices.Clone(s.order[:opts.SpliceAt])
	}
	s.order = slices.DeleteFunc(s.order, func(id string) bool {
		return id == c.ID || below[id]
	})
	for _, b := range opts.Below {
		s.order = append(s.order, b.ID)
	}
	s.order = append(s.order, c.ID)

	if s.attached != c.ID {
		s.surface.Attach(c.Widget)
		s.attached = c.ID
	}

	var td teardown
	for _, id := range evicted {
		owner := s.controllers[id]
		if owner == nil || slices.Contains(s.order, id) {
			continue
		}
		if gone := s.actions[owner.ActionID]; gone != nil && !s.referencedLocked(gone.key) {
			td.add(s.removeLocked(gone))
		}
	}
	s.finishLocked(td)
	return nil
}

// referencedLocked reports whether any stacked or dialog controller belongs
// to the action instance key.
func (s *Stack) referencedLocked(key string) bool {
	for _, id := range s.order {
		if s.controllers[id].ActionID == key {
			return true
		}
	}
	return s.dialog != nil && s.dialog.ActionID == key
}

// openDialog mounts c in the dialog slot, closing any previous dialog.
func (s *Stack) openDialog(c *Controller, inst *instance, opts DialogOptions) error {
	s.mu.Lock()
	if inst.removed {
		s.mu.Unlock()
		return errInstanceGone
	}
	var td teardown
	if s.dialog != nil {
		td.add(s.closeDialogLocked())
	}
	s.actions[inst.key] = inst
	s.controllers[c.ID] = c
	s.dialog = c
	s.surface.OpenDialog(c.Widget, opts)
	s.finishLocked(td)
	return nil
}

// closeDialog tears down the dialog action, if any, and fires its OnClose.
func (s *Stack) closeDialog() {
	s.mu.Lock()
	if s.dialog == nil {
		s.mu.Unlock()
		return
	}
	s.finishLocked(s.closeDialogLocked())
}

func (s *Stack) closeDialogLocked() teardown {
	d := s.dialog
	s.dialog = nil
	s.surface.CloseDialog()
	inst := s.actions[d.ActionID]
	if inst == nil {
		return teardown{widgets: []Widget{d.Widget}}
	}
	td := s.removeLocked(inst)
	if inst.opts.OnClose != nil {
		td.callbacks = append(td.callbacks, inst.opts.OnClose)
	}
	return td
}

// discard tears down an instance that never made it onto the stack, e.g.
// because its navigation went stale. Registered instances are left alone.
func (s *Stack) discard(inst *instance) {
	s.mu.Lock()
	if _, registered := s.actions[inst.key]; registered {
		s.mu.Unlock()
		return
	}
	td := s.removeLocked(inst)
	s.mu.Unlock()
	td.run(s)
}

// removeLocked forgets inst and returns what must be destroyed once the
// lock is released.
func (s *Stack) removeLocked(inst *instance) teardown {
	var td teardown
	inst.removed = true
	delete(s.actions, inst.key)
	for viewType, p := range inst.slots {
		delete(inst.slots, viewType)
		if !p.settled() {
			td.waits = append(td.waits, p)
			continue
		}
		if p.ctrl != nil {
			delete(s.controllers, p.ctrl.ID)
			if s.attached == p.ctrl.ID {
				s.surface.Detach(p.ctrl.Widget)
				s.attached = ""
			}
			td.widgets = append(td.widgets, p.ctrl.Widget)
		}
	}
	return td
}

// finishLocked publishes breadcrumbs and state, releases the lock, then
// runs the teardown and hooks.
func (s *Stack) finishLocked(td teardown) {
	s.surface.UpdateBreadcrumbs(s.breadcrumbsLocked())
	var st *State
	if c, inst := s.topLocked(); c != nil && inst.action.Pushable() {
		projected := project(c, inst, s.titleLocked(c))
		st = &projected
	}
	hooks := slices.Clone(s.hooks)
	s.mu.Unlock()

	td.run(s)
	if st != nil {
		for _, h := range hooks {
			h(*st)
		}
	}
}

// refresh republishes breadcrumbs and state without changing the stack.
func (s *Stack) refresh() {
	s.mu.Lock()
	s.finishLocked(teardown{})
}

// forget drops a controller that settled after its action was removed.
func (s *Stack) forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.controllers, id)
}

// teardown collects the side effects of removing actions so they can run
// outside the lock.
type teardown struct {
	widgets   []Widget
	waits     []*pending
	callbacks []func()
}

func (td *teardown) add(other teardown) {
	td.widgets = append(td.widgets, other.widgets...)
	td.waits = append(td.waits, other.waits...)
	td.callbacks = append(td.callbacks, other.callbacks...)
}

func (td teardown) run(s *Stack) {
	for _, w := range td.widgets {
		w.Destroy()
	}
	for _, p := range td.waits {
		go func() {
			<-p.done
			if p.ctrl != nil {
				s.forget(p.ctrl.ID)
				p.ctrl.Widget.Destroy()
			}
		}()
	}
	for _, fn := range td.callbacks {
		fn()
	}
}
