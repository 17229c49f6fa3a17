package actions

import (
	"context"
	"fmt"
	"slices"

	"nathanbeddoewebdev/actionmgr/internal/concurrency"
	"nathanbeddoewebdev/actionmgr/internal/domain"
	"nathanbeddoewebdev/actionmgr/internal/logging"
)

// Restore brings back the stacked controller controllerID, dropping every
// controller above it. Window controllers are reloaded with their action's
// environment first; other widgets are only re-shown. Like a view switch,
// a restore is dropped when the top changed before it settled.
func (m *Manager) Restore(ctx context.Context, controllerID string) error {
	ticket := m.restore.Issue()
	c, inst, ok := m.stack.lookup(controllerID)
	if !ok || m.stack.indexOf(controllerID) < 0 {
		return fmt.Errorf("breadcrumb %q: %w", controllerID, domain.ErrNotFound)
	}
	top, ok := m.stack.Top()
	if !ok {
		return fmt.Errorf("breadcrumb %q: %w", controllerID, domain.ErrNotFound)
	}
	if top.ID == controllerID {
		return nil
	}
	if err := m.clearUncommittedChanges(ctx); err != nil {
		return err
	}

	var err error
	if inst.window {
		err = c.Widget.Reload(ctx, m.stack.environment(inst))
	} else if s, ok := c.Widget.(Shower); ok {
		err = s.Show(ctx)
	}
	if ticket.Stale() {
		m.logger.V(logging.VERBOSE).Info("dropped superseded restore", "controller", controllerID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("restoring %q: %w", controllerID, err)
	}

	err = m.stack.apply(c, inst, func() (PushOptions, error) {
		if err := ticket.Check(); err != nil {
			return PushOptions{}, err
		}
		if cur, _ := m.stack.topLocked(); cur == nil || cur.ID != top.ID {
			return PushOptions{}, concurrency.ErrStale
		}
		i := slices.Index(m.stack.order, controllerID)
		if i < 0 {
			return PushOptions{}, concurrency.ErrStale
		}
		return PushOptions{SpliceAt: i}, nil
	})
	if concurrency.IsStale(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if inst.opts.OnReverseBreadcrumb != nil {
		inst.opts.OnReverseBreadcrumb()
	}
	return nil
}

// SwitchToPreviousView goes back to the controller below the top when it
// belongs to the same window action, e.g. from a form to its list. It does
// nothing otherwise.
func (m *Manager) SwitchToPreviousView(ctx context.Context) error {
	ids := m.stack.IDs()
	if len(ids) < 2 {
		return nil
	}
	top, topInst, _ := m.stack.lookup(ids[len(ids)-1])
	prev, prevInst, ok := m.stack.lookup(ids[len(ids)-2])
	if !ok || topInst != prevInst || !prevInst.window {
		return nil
	}
	if prev.ViewType == top.ViewType {
		return m.Restore(ctx, prev.ID)
	}
	return m.SwitchView(ctx, prev.ViewType, SwitchOptions{})
}
