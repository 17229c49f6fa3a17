// Package tui is the terminal client of the navigation engine. The engine
// decides what is displayed; this package renders it with Bubbletea and
// turns key presses back into engine calls.
package tui

import (
	"context"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-logr/logr"

	"nathanbeddoewebdev/actionmgr/internal/actions"
	"nathanbeddoewebdev/actionmgr/internal/catalog"
	"nathanbeddoewebdev/actionmgr/internal/domain"
	"nathanbeddoewebdev/actionmgr/internal/registry"
	"nathanbeddoewebdev/actionmgr/internal/tui/components"
)

// RecordSource is the data the views display. *catalog.Catalog satisfies
// it.
type RecordSource interface {
	SearchRecords(ctx context.Context, model string, d domain.Domain, limit int) ([]catalog.Record, error)
	ReadRecord(ctx context.Context, model string, id int64) (*catalog.Record, error)
	WriteRecord(ctx context.Context, model string, id int64, vals map[string]any) error
	CountBy(ctx context.Context, model string, d domain.Domain, field string) ([]catalog.Group, error)
	List(ctx context.Context) ([]catalog.Summary, error)
}

// view is a widget the app can render and drive with keys.
type view interface {
	actions.Widget
	ControllerID() string
	ViewType() string
	View(width, height int) string
	// HandleKey returns handled=false to let the app apply its own binding.
	HandleKey(msg tea.KeyMsg) (cmd tea.Cmd, handled bool)
	Bindings() []components.KeyBinding
}

// Session ties the terminal widgets to one Manager: it owns the view and
// client registries and the surface the Manager reports to.
type Session struct {
	source  RecordSource
	surface *Surface
	logger  logr.Logger
	manager *actions.Manager
	ctx     context.Context
	busy    atomic.Int32

	views   *registry.Registry[actions.ViewSpec]
	clients *registry.Registry[actions.ClientAction]
}

// NewSession registers the list, form and graph views and the home client
// action.
func NewSession(source RecordSource, logger logr.Logger) *Session {
	s := &Session{
		source:  source,
		surface: NewSurface(),
		logger:  logger.WithName("tui"),
		ctx:     context.Background(),
		views:   actions.NewViewRegistry(),
		clients: actions.NewClientRegistry(),
	}
	s.views.Register("list", actions.ViewSpec{MultiRecord: true, New: s.newList})
	s.views.Register("graph", actions.ViewSpec{MultiRecord: true, New: s.newGraph})
	s.views.Register("form", actions.ViewSpec{New: s.newForm})
	s.clients.Register("home", actions.ClientAction{New: s.newHome})
	return s
}

// Configure fills the display side of cfg.
func (s *Session) Configure(cfg *actions.Config) {
	cfg.Views = s.views
	cfg.Clients = s.clients
	cfg.Surface = s.surface
	cfg.Navigator = s.surface
}

// Bind attaches the Manager widgets call back into.
func (s *Session) Bind(m *actions.Manager) { s.manager = m }

// Manager returns the bound Manager.
func (s *Session) Manager() *actions.Manager { return s.manager }

// Surface returns the surface handed to the Manager.
func (s *Session) Surface() *Surface { return s.surface }

// --- Widget messages ---

// statusMsg shows a line in the status bar.
type statusMsg struct {
	text  string
	level int
}

// engineDoneMsg reports the end of an engine call started from a key.
type engineDoneMsg struct{ err error }

// engineCmd runs fn as a Bubbletea command. Engine calls block while views
// load, so they never run on the update loop.
func engineCmd(ctx context.Context, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return engineDoneMsg{err: fn(ctx)}
	}
}

// do runs fn against the session context, counting it as in flight.
func (s *Session) do(fn func(ctx context.Context) error) tea.Cmd {
	return engineCmd(s.ctx, func(ctx context.Context) error {
		s.busy.Add(1)
		defer s.busy.Add(-1)
		return fn(ctx)
	})
}

// Busy reports whether an engine call is in flight.
func (s *Session) Busy() bool { return s.busy.Load() > 0 }

func statusCmd(text string, level int) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text, level: level} }
}
