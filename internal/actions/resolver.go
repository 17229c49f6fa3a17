package actions

import (
	"context"
	"fmt"

	"nathanbeddoewebdev/actionmgr/internal/domain"
	"nathanbeddoewebdev/actionmgr/internal/registry"
)

// activeKeys are forwarded from the caller's context to the loader so
// server-side defaults can depend on the selection.
var activeKeys = []string{"active_id", "active_ids", "active_model"}

// resolver turns a Ref into a fresh, context-merged descriptor.
type resolver struct {
	loader  Loader
	clients *registry.Registry[ClientAction]
	session domain.Context
}

func (r *resolver) resolve(ctx context.Context, ref Ref, opts Options) (*domain.Action, Options, error) {
	var act *domain.Action
	switch {
	case ref.Inline != nil:
		act = ref.Inline.Clone()
	case ref.Name != "" && r.clients.Contains(ref.Name):
		act = &domain.Action{Kind: domain.KindClient, Tag: ref.Name}
	case ref.ID != 0 || ref.Name != "":
		loaded, err := r.load(ctx, ref, opts.AdditionalContext)
		if err != nil {
			return nil, opts, err
		}
		act = loaded
	default:
		return nil, opts, fmt.Errorf("%w: empty action reference", domain.ErrLookup)
	}

	if act.Kind == "" {
		return nil, opts, fmt.Errorf("%w: %s has no type", domain.ErrUnsupportedKind, ref)
	}
	if act.Target == domain.TargetMain {
		opts.ClearBreadcrumbs = true
	}
	act.Context = domain.MergeContexts(r.session, opts.AdditionalContext, act.Context)
	act.Domain = act.Domain.Evaluate(act.Context)
	return act, opts, nil
}

func (r *resolver) load(ctx context.Context, ref Ref, additional domain.Context) (*domain.Action, error) {
	if r.loader == nil {
		return nil, fmt.Errorf("%w %s: no action loader configured", domain.ErrLookup, ref)
	}
	active := domain.Context{}
	for _, k := range activeKeys {
		if v, ok := additional[k]; ok {
			active[k] = v
		}
	}
	loaded, err := r.loader.LoadAction(ctx, ref, active)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w %s: %w", domain.ErrLookup, ref, err)
	}
	if loaded == nil {
		return nil, fmt.Errorf("%w %s: %w", domain.ErrLookup, ref, domain.ErrNotFound)
	}
	return loaded.Clone(), nil
}
