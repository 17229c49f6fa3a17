package actions

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"nathanbeddoewebdev/actionmgr/internal/concurrency"
	"nathanbeddoewebdev/actionmgr/internal/domain"
)

// executeClientAction mounts a widget client action or runs a function one.
// Unknown tags warn the user and leave the stack alone.
func (m *Manager) executeClientAction(ctx context.Context, act *domain.Action, opts Options) error {
	entry, ok := m.clients.Get(act.Tag)
	if !ok {
		m.surface.Warn("Action Error", fmt.Sprintf("Could not find client action %q.", act.Tag))
		m.logger.Info("unknown client action", "tag", act.Tag)
		return nil
	}

	if entry.Run != nil {
		next, err := entry.Run(ctx, act.Clone())
		if err != nil {
			return fmt.Errorf("client action %q: %w", act.Tag, err)
		}
		if next == nil {
			return nil
		}
		return m.DoAction(ctx, *next, opts)
	}
	if entry.New == nil {
		return fmt.Errorf("%w: client action %q has neither a widget nor a function", domain.ErrUnsupportedKind, act.Tag)
	}
	return m.Mount(ctx, act, entry.New, opts)
}

// Mount shows the widget built by newWidget as the only controller of act.
// Custom kind handlers use it to reach the stack; the client kind is built
// on it.
func (m *Manager) Mount(ctx context.Context, act *domain.Action, newWidget func(ClientOptions) (Widget, error), opts Options) error {
	if act.Target != domain.TargetNew {
		if err := m.clearUncommittedChanges(ctx); err != nil {
			return err
		}
	}
	inst := m.newInstance(act, opts)
	c, _, err := m.startController(ctx, inst, "", func(id string) (Widget, error) {
		return newWidget(ClientOptions{ControllerID: id, Action: act.Clone()})
	})
	if err != nil {
		m.stack.discard(inst)
		return err
	}
	return m.commit(inst, c, nil, opts)
}

// executeServerAction runs the action on the server and executes whatever
// it returns; nothing means close.
func (m *Manager) executeServerAction(ctx context.Context, act *domain.Action, opts Options) error {
	if m.runner == nil {
		return fmt.Errorf("server action %d: no runner configured", act.ID)
	}
	next, err := concurrency.RunTicket(ctx, opts.ticket, func(ctx context.Context) (*domain.Action, error) {
		return m.runner.RunServerAction(ctx, act.ID, act.Context)
	})
	if err != nil {
		if concurrency.IsStale(err) {
			return err
		}
		return fmt.Errorf("server action %d: %w", act.ID, err)
	}
	return m.follow(ctx, next, opts)
}

// executeURLAction leaves for a URL. Redirecting the client itself never
// completes before ctx ends.
func (m *Manager) executeURLAction(ctx context.Context, act *domain.Action, _ Options) error {
	target := m.withDebug(act.URL)
	if act.Target == domain.TargetSelf {
		m.navigator.Redirect(target)
		<-ctx.Done()
		return ctx.Err()
	}
	m.navigator.Open(target)
	return nil
}

// withDebug appends the debug mode to site-relative URLs.
func (m *Manager) withDebug(raw string) string {
	if m.debug == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Has("debug") {
		return raw
	}
	q.Set("debug", m.debug)
	u.RawQuery = q.Encode()
	return u.String()
}

// executeCloseAction closes the dialog and forwards the action's effect.
func (m *Manager) executeCloseAction(_ context.Context, act *domain.Action, _ Options) error {
	m.stack.closeDialog()
	if len(act.Effect) > 0 {
		m.surface.ShowEffect(act.Effect)
	}
	return nil
}

// commit hands a started controller to the dialog slot or the stack. It is
// the last step of every successful navigation; a superseded one tears
// down what it built instead.
func (m *Manager) commit(inst *instance, c *Controller, below []*Controller, opts Options) error {
	if err := opts.ticket.Check(); err != nil {
		m.stack.discard(inst)
		return err
	}

	var err error
	if inst.action.Target == domain.TargetNew {
		err = m.stack.openDialog(c, inst, DialogOptions{
			Title: inst.action.Name,
			Size:  inst.action.Context.String("dialog_size"),
		})
	} else {
		m.stack.closeDialog()
		err = m.stack.apply(c, inst, func() (PushOptions, error) {
			if err := opts.ticket.Check(); err != nil {
				return PushOptions{}, err
			}
			return PushOptions{
				ClearAll:   opts.ClearBreadcrumbs,
				ReplaceTop: opts.ReplaceLastAction,
				SpliceAt:   -1,
				Below:      below,
			}, nil
		})
	}
	if err != nil {
		m.stack.discard(inst)
		return err
	}
	return nil
}
