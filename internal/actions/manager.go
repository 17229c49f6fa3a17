// Package actions is the navigation engine: it resolves action references
// into descriptors, dispatches them by kind, and keeps the breadcrumb stack
// of controllers that display them.
//
// A Manager is safe for concurrent use. Overlapping navigations are not
// cancelled; the newest one wins and older ones become inert, destroying
// whatever they created without ever showing it.
package actions

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/go-logr/logr"

	"nathanbeddoewebdev/actionmgr/internal/concurrency"
	"nathanbeddoewebdev/actionmgr/internal/domain"
	"nathanbeddoewebdev/actionmgr/internal/logging"
	"nathanbeddoewebdev/actionmgr/internal/registry"
)

// errInstanceGone is returned when a commit targets an action instance that
// was torn down meanwhile. It is stale, never a failure.
var errInstanceGone = fmt.Errorf("action instance removed: %w", concurrency.ErrStale)

// Options tune a single DoAction call.
type Options struct {
	// AdditionalContext is merged over the session context and under the
	// action's own context.
	AdditionalContext domain.Context
	// ClearBreadcrumbs replaces the whole stack.
	ClearBreadcrumbs bool
	// ReplaceLastAction replaces the top controller.
	ReplaceLastAction bool
	// ViewType opens a window action on this view instead of the first.
	ViewType string
	// ResID opens a window action on this record.
	ResID int64
	// OnClose runs when a dialog opened by this call closes.
	OnClose func()
	// OnReverseBreadcrumb runs when a controller of this action is restored
	// from the breadcrumbs.
	OnReverseBreadcrumb func()

	ticket concurrency.Ticket
}

// Handler executes a resolved action of one kind.
type Handler func(ctx context.Context, act *domain.Action, opts Options) error

// Config wires a Manager to its collaborators. Nil collaborators get inert
// defaults; Views and Clients default to empty registries.
type Config struct {
	Loader    Loader
	Runner    Runner
	Buttons   ButtonCaller
	Surface   Surface
	Navigator Navigator

	Views   *registry.Registry[ViewSpec]
	Clients *registry.Registry[ClientAction]

	// SessionContext is the lowest-priority context of every action.
	SessionContext domain.Context
	// Debug is appended as debug=<mode> to site-relative URLs.
	Debug string

	Logger logr.Logger
}

// Manager is the navigation engine.
type Manager struct {
	loader    Loader
	runner    Runner
	buttons   ButtonCaller
	surface   Surface
	navigator Navigator
	views     *registry.Registry[ViewSpec]
	clients   *registry.Registry[ClientAction]
	handlers  *registry.Registry[Handler]
	resolver  *resolver
	debug     string
	logger    logr.Logger

	stack   *Stack
	main    concurrency.DropPrevious
	dialog  concurrency.DropPrevious
	restore concurrency.DropPrevious
	search  concurrency.DropPrevious

	controllerSeq atomic.Uint64
	actionSeq     atomic.Uint64
}

// New returns a Manager with the built-in kinds registered.
func New(cfg Config) *Manager {
	m := &Manager{
		loader:    cfg.Loader,
		runner:    cfg.Runner,
		buttons:   cfg.Buttons,
		surface:   cfg.Surface,
		navigator: cfg.Navigator,
		views:     cfg.Views,
		clients:   cfg.Clients,
		handlers:  registry.New[Handler]("action kind"),
		debug:     cfg.Debug,
		logger:    cfg.Logger,
	}
	if m.surface == nil {
		m.surface = nopSurface{}
	}
	if m.navigator == nil {
		m.navigator = nopNavigator{}
	}
	if m.views == nil {
		m.views = NewViewRegistry()
	}
	if m.clients == nil {
		m.clients = NewClientRegistry()
	}
	if m.logger.GetSink() == nil {
		m.logger = logr.Discard()
	}
	m.logger = m.logger.WithName("actions")
	m.stack = newStack(m.surface)
	m.resolver = &resolver{loader: m.loader, clients: m.clients, session: cfg.SessionContext.Clone()}

	m.RegisterKind(domain.KindWindow, m.executeWindowAction)
	m.RegisterKind(domain.KindClient, m.executeClientAction)
	m.RegisterKind(domain.KindServer, m.executeServerAction)
	m.RegisterKind(domain.KindURL, m.executeURLAction)
	m.RegisterKind(domain.KindClose, m.executeCloseAction)
	return m
}

// RegisterKind adds a handler for an action kind. Registering a kind twice
// panics.
func (m *Manager) RegisterKind(kind domain.Kind, h Handler) {
	m.handlers.Register(string(kind), h)
}

// Stack exposes the controller stack for inspection.
func (m *Manager) Stack() *Stack { return m.stack }

// OnChange registers a hook receiving the navigation state after each
// stack change.
func (m *Manager) OnChange(h StateHook) { m.stack.OnChange(h) }

// Breadcrumbs returns the current breadcrumb trail.
func (m *Manager) Breadcrumbs() []Breadcrumb { return m.stack.Breadcrumbs() }

// DoAction resolves ref and executes it. A navigation superseded by a newer
// one returns nil without touching the stack.
func (m *Manager) DoAction(ctx context.Context, ref Ref, opts Options) error {
	lane := &m.main
	if ref.Inline != nil && ref.Inline.Target == domain.TargetNew {
		lane = &m.dialog
	}
	opts.ticket = lane.Issue()
	logger := m.logger.WithValues("ref", ref.String())

	act, opts, err := m.resolver.resolve(ctx, ref, opts)
	if opts.ticket.Stale() {
		logger.V(logging.VERBOSE).Info("dropped superseded action")
		return nil
	}
	if err != nil {
		if errors.Is(err, domain.ErrLookup) {
			m.surface.Warn("Action Error", err.Error())
		}
		logger.Error(err, "action resolution failed")
		return err
	}
	if lane == &m.main && act.Target == domain.TargetNew {
		// A loaded dialog hands the main lane back to the navigation it
		// superseded while loading.
		opts.ticket.Release()
		opts.ticket = m.dialog.Issue()
	}

	err = m.dispatch(ctx, act, opts)
	switch {
	case err == nil:
		return nil
	case concurrency.IsStale(err):
		logger.V(logging.VERBOSE).Info("dropped superseded action", "reason", err.Error())
		return nil
	case errors.Is(err, domain.ErrDiscardDeclined):
		logger.V(logging.VERBOSE).Info("navigation declined by the current controller")
		return err
	case errors.Is(err, context.Canceled):
		return err
	default:
		logger.Error(err, "action failed", "kind", string(act.Kind))
		return err
	}
}

// dispatch runs the handler registered for act's kind.
func (m *Manager) dispatch(ctx context.Context, act *domain.Action, opts Options) error {
	h, ok := m.handlers.Get(string(act.Kind))
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedKind, act.Kind)
	}
	m.logger.V(logging.DEBUG).Info("dispatching action", "kind", string(act.Kind), "name", act.DisplayName())
	return h(ctx, act, opts)
}

// follow dispatches an action produced by another one (server result,
// client function, button). A nil action closes the dialog.
func (m *Manager) follow(ctx context.Context, next *domain.Action, opts Options) error {
	if next == nil {
		next = &domain.Action{Kind: domain.KindClose}
	}
	return m.DoAction(ctx, Inline(next), opts)
}

func (m *Manager) newControllerID() string {
	return fmt.Sprintf("controller_%d", m.controllerSeq.Add(1))
}

func (m *Manager) newInstance(act *domain.Action, opts Options) *instance {
	return &instance{
		key:    fmt.Sprintf("action_%d", m.actionSeq.Add(1)),
		action: act,
		opts:   opts,
		slots:  map[string]*pending{},
	}
}

// clearUncommittedChanges asks the top controller whether it may be left.
func (m *Manager) clearUncommittedChanges(ctx context.Context) error {
	top, ok := m.stack.Top()
	if !ok {
		return nil
	}
	d, ok := top.Widget.(Discarder)
	if !ok {
		return nil
	}
	can, err := d.CanBeDiscarded(ctx)
	if err != nil {
		return err
	}
	if !can {
		return domain.ErrDiscardDeclined
	}
	return nil
}

// CloseDialog closes the dialog, if any.
func (m *Manager) CloseDialog() { m.stack.closeDialog() }
