package actions

import (
	"context"
	"fmt"
	"strconv"

	"nathanbeddoewebdev/actionmgr/internal/domain"
)

// Widget is the renderable unit behind a controller. Start runs before the
// widget is handed to the surface, so implementations can fetch data without
// showing partially rendered content.
type Widget interface {
	Start(ctx context.Context) error
	Reload(ctx context.Context, env domain.Environment) error
	Destroy()
}

// Titled widgets provide their own breadcrumb title.
type Titled interface {
	Title() string
}

// Discarder widgets may hold unsaved changes. CanBeDiscarded returns false
// when the user declines to abandon them.
type Discarder interface {
	CanBeDiscarded(ctx context.Context) (bool, error)
}

// Shower widgets are notified when they are restored from the breadcrumbs
// without being reloaded (non-window actions).
type Shower interface {
	Show(ctx context.Context) error
}

// ViewOptions are handed to a view constructor.
type ViewOptions struct {
	ControllerID string
	ViewID       int64
	ViewType     string
	Mode         string
	Action       *domain.Action
	Env          domain.Environment
}

// ViewSpec describes a view type: whether it shows many records, and how to
// build a widget for it.
type ViewSpec struct {
	MultiRecord bool
	New         func(opts ViewOptions) (Widget, error)
}

// ClientOptions are handed to a client action constructor.
type ClientOptions struct {
	ControllerID string
	Action       *domain.Action
}

// ClientAction is a registered client action. Widget actions set New;
// function actions set Run and may return a follow-up action.
type ClientAction struct {
	New func(opts ClientOptions) (Widget, error)
	Run func(ctx context.Context, action *domain.Action) (*Ref, error)
}

// Loader fetches action descriptors by database id or xml id.
type Loader interface {
	LoadAction(ctx context.Context, ref Ref, active domain.Context) (*domain.Action, error)
}

// Runner executes server actions. A nil action means "close".
type Runner interface {
	RunServerAction(ctx context.Context, id int64, c domain.Context) (*domain.Action, error)
}

// ButtonCaller invokes a model method bound to a button. A nil action
// means "close".
type ButtonCaller interface {
	CallButton(ctx context.Context, model, method string, ids []int64, args []any, c domain.Context) (*domain.Action, error)
}

// Breadcrumb is one entry of the breadcrumb bar.
type Breadcrumb struct {
	Title        string
	ControllerID string
}

// DialogOptions describe how a target=new controller is framed.
type DialogOptions struct {
	Title string
	Size  string
}

// Surface is where controllers are mounted. Calls are made while the
// navigation state is locked: implementations must not call back into the
// Manager synchronously.
type Surface interface {
	Attach(w Widget)
	Detach(w Widget)
	UpdateBreadcrumbs(crumbs []Breadcrumb)
	OpenDialog(w Widget, opts DialogOptions)
	CloseDialog()
	ShowEffect(effect domain.Effect)
	Warn(title, message string)
}

// Navigator leaves the client for a URL.
type Navigator interface {
	Redirect(url string)
	Open(url string)
}

// Ref designates an action: a database id, an xml id or client tag, or an
// inline descriptor.
type Ref struct {
	ID     int64
	Name   string
	Inline *domain.Action
}

// ByID refers to an action by database id.
func ByID(id int64) Ref { return Ref{ID: id} }

// ByName refers to an action by xml id or client action tag.
func ByName(name string) Ref { return Ref{Name: name} }

// Inline wraps a descriptor built by the caller.
func Inline(a *domain.Action) Ref { return Ref{Inline: a} }

// ParseRef turns command-line input into a Ref: digits are ids, anything
// else is a name.
func ParseRef(s string) Ref {
	if id, err := strconv.ParseInt(s, 10, 64); err == nil && id > 0 {
		return ByID(id)
	}
	return ByName(s)
}

func (r Ref) String() string {
	switch {
	case r.Inline != nil:
		if r.Inline.Name != "" {
			return fmt.Sprintf("inline %s action %q", r.Inline.Kind, r.Inline.Name)
		}
		return fmt.Sprintf("inline %s action", r.Inline.Kind)
	case r.ID != 0:
		return fmt.Sprintf("action %d", r.ID)
	default:
		return fmt.Sprintf("action %q", r.Name)
	}
}

type nopSurface struct{}

func (nopSurface) Attach(Widget) {}
func (nopSurface) Detach(Widget) {}
func (nopSurface) UpdateBreadcrumbs([]Breadcrumb) {}
func (nopSurface) OpenDialog(Widget, DialogOptions) {}
func (nopSurface) CloseDialog() {}
func (nopSurface) ShowEffect(domain.Effect) {}
func (nopSurface) Warn(string, string) {}

type nopNavigator struct{}

func (nopNavigator) Redirect(string) {}
func (nopNavigator) Open(string) {}
