package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"nathanbeddoewebdev/actionmgr/internal/actions"
	"nathanbeddoewebdev/actionmgr/internal/domain"
)

// --- Surface messages ---
//
// The navigation engine reports what to display through these. They reach
// the app model in the order the engine emitted them.

type attachMsg struct{ widget actions.Widget }

type detachMsg struct{ widget actions.Widget }

type breadcrumbsMsg struct{ crumbs []actions.Breadcrumb }

type openDialogMsg struct {
	widget actions.Widget
	opts   actions.DialogOptions
}

type closeDialogMsg struct{}

type effectMsg struct{ effect domain.Effect }

type warnMsg struct {
	title   string
	message string
}

// navigateMsg asks to leave the client (redirect) or to open a URL next to
// it.
type navigateMsg struct {
	url      string
	redirect bool
}

// confirmMsg asks the user a yes/no question. The answer is sent on reply.
type confirmMsg struct {
	question string
	reply    chan bool
}

// Surface implements actions.Surface and actions.Navigator on top of a
// Bubbletea program. The engine calls it with its navigation lock held, so
// every call only appends to a queue; a pump goroutine delivers the queue
// to the program in order.
type Surface struct {
	mu    sync.Mutex
	queue []tea.Msg
	wake  chan struct{}
}

// NewSurface returns a Surface that buffers messages until Connect.
func NewSurface() *Surface {
	return &Surface{wake: make(chan struct{}, 1)}
}

// Connect starts delivering queued messages through send until ctx is
// done. send may block; the engine never waits on it.
func (s *Surface) Connect(ctx context.Context, send func(tea.Msg)) {
	go s.pump(ctx, send)
}

func (s *Surface) pump(ctx context.Context, send func(tea.Msg)) {
	for {
		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		s.mu.Unlock()

		for _, msg := range batch {
			if ctx.Err() != nil {
				return
			}
			send(msg)
		}

		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}
	}
}

func (s *Surface) post(msg tea.Msg) {
	s.mu.Lock()
	s.queue = append(s.queue, msg)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Attach implements actions.Surface.
func (s *Surface) Attach(w actions.Widget) { s.post(attachMsg{widget: w}) }

// Detach implements actions.Surface.
func (s *Surface) Detach(w actions.Widget) { s.post(detachMsg{widget: w}) }

// UpdateBreadcrumbs implements actions.Surface.
func (s *Surface) UpdateBreadcrumbs(crumbs []actions.Breadcrumb) {
	s.post(breadcrumbsMsg{crumbs: crumbs})
}

// OpenDialog implements actions.Surface.
func (s *Surface) OpenDialog(w actions.Widget, opts actions.DialogOptions) {
	s.post(openDialogMsg{widget: w, opts: opts})
}

// CloseDialog implements actions.Surface.
func (s *Surface) CloseDialog() { s.post(closeDialogMsg{}) }

// ShowEffect implements actions.Surface.
func (s *Surface) ShowEffect(effect domain.Effect) { s.post(effectMsg{effect: effect}) }

// Warn implements actions.Surface.
func (s *Surface) Warn(title, message string) {
	s.post(warnMsg{title: title, message: message})
}

// Redirect implements actions.Navigator.
func (s *Surface) Redirect(url string) { s.post(navigateMsg{url: url, redirect: true}) }

// Open implements actions.Navigator.
func (s *Surface) Open(url string) { s.post(navigateMsg{url: url}) }

// Confirm asks question through the app and waits for the answer.
func (s *Surface) Confirm(ctx context.Context, question string) (bool, error) {
	reply := make(chan bool, 1)
	s.post(confirmMsg{question: question, reply: reply})
	select {
	case ok := <-reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
