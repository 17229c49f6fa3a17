package actions

import (
	"context"
	"fmt"

	"nathanbeddoewebdev/actionmgr/internal/domain"
)

// Button types.
const (
	ButtonObject = "object"
	ButtonAction = "action"
)

// Button is a button clicked in a controller.
type Button struct {
	// Type is ButtonObject (call Name on the model) or ButtonAction (run
	// the action Name designates).
	Type string
	Name string
	// Special buttons ("cancel", "save") only close the dialog.
	Special string
	Context domain.Context
	Args    []any
	// Effect overrides the effect of the follow-up action.
	Effect domain.Effect
	// OnClosed runs when the follow-up dialog closes, or right away when
	// the button closes the current one.
	OnClosed func()
}

// ExecuteButton runs the follow-up of a button clicked in controllerID.
// The record context of the controller is passed along as active_model,
// active_id and active_ids, minus its one-shot keys.
func (m *Manager) ExecuteButton(ctx context.Context, controllerID string, b Button) error {
	_, inst, ok := m.stack.lookup(controllerID)
	if !ok {
		return fmt.Errorf("controller %q: %w", controllerID, domain.ErrNotFound)
	}

	var env domain.Environment
	if inst.window {
		env = m.stack.environment(inst)
	} else {
		env.Context = inst.action.Context.Clone()
	}
	ids := env.IDs
	if env.CurrentID != 0 {
		ids = []int64{env.CurrentID}
	}
	record := domain.Context{}
	if env.Model != "" {
		record["active_model"] = env.Model
	}
	if len(ids) > 0 {
		record["active_id"] = ids[0]
		active := make([]any, len(ids))
		for i, id := range ids {
			active[i] = id
		}
		record["active_ids"] = active
	}
	buttonCtx := domain.MergeContexts(env.Context.WithoutOneShotKeys(), b.Context, record)

	if b.Special != "" {
		return m.closeFromButton(ctx, b)
	}

	var next *domain.Action
	var err error
	switch b.Type {
	case ButtonObject:
		if m.buttons == nil {
			return fmt.Errorf("button %q: no button caller configured", b.Name)
		}
		next, err = m.buttons.CallButton(ctx, env.Model, b.Name, ids, b.Args, buttonCtx)
		if err != nil {
			return fmt.Errorf("button %q: %w", b.Name, err)
		}
	case ButtonAction:
		next, err = m.resolver.load(ctx, ParseRef(b.Name), buttonCtx)
		if err != nil {
			m.surface.Warn("Action Error", err.Error())
			return err
		}
	default:
		return fmt.Errorf("button %q: unknown type %q", b.Name, b.Type)
	}

	if next == nil {
		return m.closeFromButton(ctx, b)
	}
	next = next.Clone()
	next.Context = domain.MergeContexts(buttonCtx, next.Context)
	if b.Effect != nil {
		next.Effect = b.Effect
	}
	return m.follow(ctx, next, Options{OnClose: b.OnClosed})
}

func (m *Manager) closeFromButton(ctx context.Context, b Button) error {
	err := m.follow(ctx, &domain.Action{Kind: domain.KindClose, Effect: b.Effect}, Options{})
	if b.OnClosed != nil {
		b.OnClosed()
	}
	return err
}
