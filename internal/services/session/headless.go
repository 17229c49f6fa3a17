package session

import (
	"context"
	"sync"

	"nathanbeddoewebdev/actionmgr/internal/actions"
	"nathanbeddoewebdev/actionmgr/internal/domain"
)

// headlessViews are the view types a headless run can open.
var headlessViews = map[string]bool{
	"list":     true,
	"kanban":   true,
	"graph":    true,
	"pivot":    true,
	"calendar": true,
	"form":     false,
}

// Event is something an action asked the surface to show.
type Event struct {
	Kind    string `json:"kind"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
	URL     string `json:"url,omitempty"`
}

// Headless drives a Manager without a display: widgets hold nothing and
// surface calls are collected as events.
type Headless struct {
	mu     sync.Mutex
	events []Event
	dialog bool
}

// Configure fills the display side of cfg with inert widgets for the common
// view types and the home client action.
func (h *Headless) Configure(cfg *actions.Config) {
	views := actions.NewViewRegistry()
	for name, multi := range headlessViews {
		views.Register(name, actions.ViewSpec{
			MultiRecord: multi,
			New:         func(actions.ViewOptions) (actions.Widget, error) { return blankWidget{}, nil },
		})
	}
	clients := actions.NewClientRegistry()
	clients.Register("home", actions.ClientAction{
		New: func(actions.ClientOptions) (actions.Widget, error) { return blankWidget{}, nil },
	})

	cfg.Views = views
	cfg.Clients = clients
	cfg.Surface = h
	cfg.Navigator = h
}

// Events returns the collected events in order.
func (h *Headless) Events() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.events...)
}

// DialogOpen reports whether an action left a dialog open.
func (h *Headless) DialogOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dialog
}

func (h *Headless) add(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *Headless) Attach(actions.Widget) {}

func (h *Headless) Detach(actions.Widget) {}

func (h *Headless) UpdateBreadcrumbs([]actions.Breadcrumb) {}

func (h *Headless) OpenDialog(_ actions.Widget, opts actions.DialogOptions) {
	h.mu.Lock()
	h.dialog = true
	h.mu.Unlock()
	h.add(Event{Kind: "dialog", Title: opts.Title})
}

func (h *Headless) CloseDialog() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dialog = false
}

func (h *Headless) ShowEffect(effect domain.Effect) {
	msg, _ := effect["message"].(string)
	h.add(Event{Kind: "effect", Message: msg})
}

func (h *Headless) Warn(title, message string) {
	h.add(Event{Kind: "warning", Title: title, Message: message})
}

func (h *Headless) Redirect(url string) { h.add(Event{Kind: "redirect", URL: url}) }

func (h *Headless) Open(url string) { h.add(Event{Kind: "open", URL: url}) }

type blankWidget struct{}

func (blankWidget) Start(context.Context) error { return nil }

func (blankWidget) Reload(context.Context, domain.Environment) error { return nil }

func (blankWidget) Destroy() {}
