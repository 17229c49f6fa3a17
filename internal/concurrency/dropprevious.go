// Package concurrency holds the staleness primitives the navigation engine
// uses in place of cancellation: a newer request makes older ones inert
// instead of aborting them.
package concurrency

import (
	"context"
	"errors"
	"sync"
)

// ErrStale is returned in place of the result of a superseded submission.
// It never describes a real failure and callers must not surface it.
var ErrStale = errors.New("superseded by a newer request")

// DropPrevious honours only the most recently issued submission. Issuing a
// ticket marks every earlier ticket stale; their results are discarded when
// they eventually settle. The zero value is ready to use.
type DropPrevious struct {
	mu  sync.Mutex
	seq uint64
	cur uint64
}

// Ticket identifies one submission to a DropPrevious.
type Ticket struct {
	guard *DropPrevious
	seq   uint64
	prev  uint64
}

// Issue starts a new submission, superseding all earlier ones.
func (d *DropPrevious) Issue() Ticket {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	t := Ticket{guard: d, seq: d.seq, prev: d.cur}
	d.cur = d.seq
	return t
}

// Release withdraws t. If t is still the newest submission, the one it
// superseded becomes current again; otherwise nothing changes. A released
// ticket is never current.
func (t Ticket) Release() {
	if t.guard == nil {
		return
	}
	t.guard.mu.Lock()
	defer t.guard.mu.Unlock()
	if t.guard.cur == t.seq {
		t.guard.cur = t.prev
	}
}

// Current reports whether t is still the newest submission. The zero Ticket
// is never current.
func (t Ticket) Current() bool {
	if t.guard == nil {
		return false
	}
	t.guard.mu.Lock()
	defer t.guard.mu.Unlock()
	return t.guard.cur == t.seq
}

// Stale is the negation of Current.
func (t Ticket) Stale() bool { return !t.Current() }

// Check returns ErrStale when t has been superseded.
func (t Ticket) Check() error {
	if t.Current() {
		return nil
	}
	return ErrStale
}

// Run executes fn as a new submission on d. If another submission is issued
// before fn returns, fn's value and error are both dropped and ErrStale is
// returned instead.
func Run[T any](ctx context.Context, d *DropPrevious, fn func(context.Context) (T, error)) (T, error) {
	return RunTicket(ctx, d.Issue(), fn)
}

// RunTicket is Run for a ticket the caller already holds.
func RunTicket[T any](ctx context.Context, t Ticket, fn func(context.Context) (T, error)) (T, error) {
	v, err := fn(ctx)
	if t.Stale() {
		var zero T
		return zero, ErrStale
	}
	return v, err
}

// IsStale reports whether err (or anything it wraps) is ErrStale.
func IsStale(err error) bool {
	return errors.Is(err, ErrStale)
}
