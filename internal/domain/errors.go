package domain

import "errors"

// Sentinel errors for navigation failures. Callers wrap these so the CLI and
// the terminal client can classify failures without knowing which component
// raised them.
//
//	return fmt.Errorf("%w %s: %w", domain.ErrLookup, ref, err)
var (
	// ErrNotFound indicates the requested action, record or entry does not exist.
	ErrNotFound = errors.New("not found")

	// ErrLookup indicates an action reference (id, xml id or tag) could not
	// be resolved into a descriptor. The pending navigation is abandoned.
	ErrLookup = errors.New("action lookup failed")

	// ErrUnsupportedKind indicates an action whose kind has no registered
	// handler, or no kind at all.
	ErrUnsupportedKind = errors.New("unsupported action kind")

	// ErrDiscardDeclined indicates the user refused to abandon unsaved
	// changes. The operation that asked is simply not performed.
	ErrDiscardDeclined = errors.New("discard declined")

	// ErrControllerStart indicates a controller failed to start. The partial
	// controller has already been destroyed when this is returned.
	ErrControllerStart = errors.New("controller failed to start")

	// ErrUnknownViewType indicates a window action declared a view type that
	// is not present in the view registry.
	ErrUnknownViewType = errors.New("unknown view type")

	// ErrNoWindowAction indicates a view operation was requested while the
	// current controller does not belong to a window action.
	ErrNoWindowAction = errors.New("current controller is not a window action")
)
