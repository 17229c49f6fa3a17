package actions

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"nathanbeddoewebdev/actionmgr/internal/concurrency"
	"nathanbeddoewebdev/actionmgr/internal/domain"
	"nathanbeddoewebdev/actionmgr/internal/logging"
)

// Modes handed to mono-record views.
const (
	ModeEdit     = "edit"
	ModeReadonly = "readonly"
)

// SwitchOptions tune SwitchView.
type SwitchOptions struct {
	// ResID makes this record current before switching.
	ResID *int64
	// Mode overrides the default mode of mono-record views.
	Mode string
}

// SearchQuery is a search submitted against the top window action.
type SearchQuery struct {
	Domain  domain.Domain
	Context domain.Context
	GroupBy []string
}

// executeWindowAction opens a window action on its first view, or on
// opts.ViewType. A mono-record view whose action starts with a
// multi-record one also gets that view loaded beneath it, so the
// breadcrumbs lead back to the list.
func (m *Manager) executeWindowAction(ctx context.Context, act *domain.Action, opts Options) error {
	inst, err := m.windowInstance(act, opts)
	if err != nil {
		return err
	}
	popup := act.Target == domain.TargetNew
	if !popup {
		if err := m.clearUncommittedChanges(ctx); err != nil {
			return err
		}
	}

	first := inst.views[0]
	requested := first
	if opts.ViewType != "" {
		if v, ok := inst.view(opts.ViewType); ok {
			requested = v
		}
	}

	var main *Controller
	var below []*Controller
	if !popup && first.spec.MultiRecord && !requested.spec.MultiRecord {
		var lower *Controller
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			main, err = m.windowController(gctx, inst, requested, "")
			return err
		})
		g.Go(func() (err error) {
			lower, err = m.windowController(gctx, inst, first, "")
			return err
		})
		if err := g.Wait(); err != nil {
			m.stack.discard(inst)
			return err
		}
		below = []*Controller{lower}
	} else {
		main, err = m.windowController(ctx, inst, requested, "")
		if err != nil {
			m.stack.discard(inst)
			return err
		}
	}
	return m.commit(inst, main, below, opts)
}

// windowInstance builds the instance of a window action. View types the
// registry does not know are skipped; an action left without views fails.
func (m *Manager) windowInstance(act *domain.Action, opts Options) (*instance, error) {
	var views []viewEntry
	for _, ref := range act.Views {
		spec, ok := m.views.Get(ref.Type)
		if !ok {
			m.logger.Info("skipping unknown view type", "view", ref.Type, "action", act.DisplayName())
			continue
		}
		views = append(views, viewEntry{ref: ref, spec: spec})
	}
	if len(views) == 0 {
		return nil, fmt.Errorf("%w: window action %q has no usable view", domain.ErrUnknownViewType, act.DisplayName())
	}

	inst := m.newInstance(act, opts)
	inst.window = true
	inst.views = views
	inst.env = domain.Environment{
		Model:     act.Model,
		Domain:    act.Domain,
		Context:   act.Context,
		GroupBy:   act.Context.GroupBy(),
		CurrentID: act.ResID,
	}.Clone()
	if opts.ResID != 0 {
		inst.env.CurrentID = opts.ResID
	}
	return inst, nil
}

// windowController returns the controller of inst for view v, starting it
// if it does not exist yet.
func (m *Manager) windowController(ctx context.Context, inst *instance, v viewEntry, mode string) (*Controller, error) {
	c, _, err := m.viewController(ctx, inst, v, mode, m.stack.environment(inst))
	return c, err
}

// viewController is windowController building the widget on env and
// reporting whether the controller already existed.
func (m *Manager) viewController(ctx context.Context, inst *instance, v viewEntry, mode string, env domain.Environment) (*Controller, bool, error) {
	return m.startController(ctx, inst, v.ref.Type, func(id string) (Widget, error) {
		if mode == "" {
			mode = defaultMode(v, env)
		}
		return v.spec.New(ViewOptions{
			ControllerID: id,
			ViewID:       v.ref.ID,
			ViewType:     v.ref.Type,
			Mode:         mode,
			Action:       inst.action.Clone(),
			Env:          env,
		})
	})
}

func defaultMode(v viewEntry, env domain.Environment) string {
	switch {
	case v.spec.MultiRecord:
		return ""
	case env.CurrentID == 0:
		return ModeEdit
	default:
		return ModeReadonly
	}
}

// startController returns the memoized controller of inst for slot, or
// builds and starts one. Concurrent callers for the same slot share a
// single start. A widget that fails to start is destroyed and the slot
// freed before the error is returned.
func (m *Manager) startController(ctx context.Context, inst *instance, slot string, build func(id string) (Widget, error)) (*Controller, bool, error) {
	p, created, err := m.stack.reserve(inst, slot)
	if err != nil {
		return nil, false, err
	}
	if !created {
		select {
		case <-p.done:
			if p.orphaned {
				return nil, false, errInstanceGone
			}
			return p.ctrl, true, p.err
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}

	c := &Controller{ID: m.newControllerID(), ActionID: inst.key, ViewType: slot}
	w, err := build(c.ID)
	if err == nil {
		if err = w.Start(ctx); err != nil {
			w.Destroy()
		}
	}
	if err != nil {
		name := inst.action.DisplayName()
		if slot != "" {
			name = fmt.Sprintf("%s (%s)", name, slot)
		}
		err = fmt.Errorf("%w: %s: %w", domain.ErrControllerStart, name, err)
		m.stack.settle(inst, slot, p, nil, err)
		return nil, false, err
	}
	c.Widget = w
	if err := m.stack.settle(inst, slot, p, c, nil); err != nil {
		return nil, false, err
	}
	m.logger.V(logging.DEBUG).Info("controller started", "controller", c.ID, "action", inst.key, "view", slot)
	return c, false, nil
}

// SwitchView shows another view of the top window action. An existing
// controller for the view is reloaded in place; otherwise one is created.
// Switches of one action supersede each other but not other navigations:
// the switch is dropped if the stack top changed while it was loading.
// opts.ResID only becomes current once the switch is shown.
func (m *Manager) SwitchView(ctx context.Context, viewType string, opts SwitchOptions) error {
	top, inst := m.stack.top()
	if top == nil || !inst.window {
		return domain.ErrNoWindowAction
	}
	ticket := inst.switches.Issue()
	v, ok := inst.view(viewType)
	if !ok {
		return fmt.Errorf("%w %q in action %q", domain.ErrUnknownViewType, viewType, inst.action.DisplayName())
	}
	if top.ViewType != viewType {
		if err := m.clearUncommittedChanges(ctx); err != nil {
			return err
		}
	}

	patch := domain.EnvironmentPatch{CurrentID: opts.ResID}
	env := m.stack.environment(inst)
	env.Apply(patch)
	c, reused, err := m.viewController(ctx, inst, v, opts.Mode, env)
	if err == nil && reused {
		err = c.Widget.Reload(ctx, env)
	}
	if ticket.Stale() || concurrency.IsStale(err) {
		m.logger.V(logging.VERBOSE).Info("dropped superseded view switch", "view", viewType)
		return nil
	}
	if err != nil {
		return err
	}

	err = m.stack.apply(c, inst, func() (PushOptions, error) {
		if err := ticket.Check(); err != nil {
			return PushOptions{}, err
		}
		if cur, _ := m.stack.topLocked(); cur == nil || cur.ID != top.ID {
			return PushOptions{}, concurrency.ErrStale
		}
		inst.env.Apply(patch)
		return m.stack.switchPlanLocked(inst, v.spec.MultiRecord), nil
	})
	if concurrency.IsStale(err) {
		m.logger.V(logging.VERBOSE).Info("dropped view switch on a changed stack", "view", viewType)
		return nil
	}
	return err
}

// switchPlanLocked places a controller of inst: a multi-record view goes
// back to the first entry of the action, a mono-record view replaces a
// mono-record top of the same action or is pushed.
func (s *Stack) switchPlanLocked(inst *instance, multi bool) PushOptions {
	opts := noSplice()
	if multi {
		for i, id := range s.order {
			if s.controllers[id].ActionID == inst.key {
				opts.SpliceAt = i
				break
			}
		}
		return opts
	}
	if top, topInst := s.topLocked(); top != nil && topInst == inst && !inst.multiRecord(top.ViewType) {
		opts.ReplaceTop = true
	}
	return opts
}

// Search replaces the top window action's search and reloads its
// controller.
func (m *Manager) Search(ctx context.Context, q SearchQuery) error {
	top, inst := m.stack.top()
	if top == nil || !inst.window {
		return domain.ErrNoWindowAction
	}
	d := append(domain.Domain{}, inst.action.Domain...)
	d = append(d, q.Domain...)
	groupBy := append([]string{}, q.GroupBy...)
	env := m.stack.updateEnvironment(inst, domain.EnvironmentPatch{
		Domain:  d,
		Context: domain.MergeContexts(inst.action.Context, q.Context),
		GroupBy: groupBy,
	})

	_, err := concurrency.Run(ctx, &m.search, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, top.Widget.Reload(ctx, env)
	})
	if concurrency.IsStale(err) {
		return nil
	}
	return err
}

// UpdateEnvironment applies p to the environment of the window action
// owning controllerID and republishes the navigation state.
func (m *Manager) UpdateEnvironment(controllerID string, p domain.EnvironmentPatch) error {
	_, inst, ok := m.stack.lookup(controllerID)
	if !ok {
		return fmt.Errorf("controller %q: %w", controllerID, domain.ErrNotFound)
	}
	if !inst.window {
		return domain.ErrNoWindowAction
	}
	m.stack.updateEnvironment(inst, p)
	m.stack.refresh()
	return nil
}

// Environment returns a snapshot of the environment of the window action
// owning controllerID.
func (m *Manager) Environment(controllerID string) (domain.Environment, error) {
	_, inst, ok := m.stack.lookup(controllerID)
	if !ok {
		return domain.Environment{}, fmt.Errorf("controller %q: %w", controllerID, domain.ErrNotFound)
	}
	if !inst.window {
		return domain.Environment{}, domain.ErrNoWindowAction
	}
	return m.stack.environment(inst), nil
}

// Views returns the view types of the window action owning controllerID.
func (m *Manager) Views(controllerID string) []string {
	_, inst, ok := m.stack.lookup(controllerID)
	if !ok || !inst.window {
		return nil
	}
	out := make([]string, len(inst.views))
	for i, v := range inst.views {
		out[i] = v.ref.Type
	}
	return out
}
