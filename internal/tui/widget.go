package tui

import (
	"fmt"
	"sort"
	"sync"

	"nathanbeddoewebdev/actionmgr/internal/actions"
	"nathanbeddoewebdev/actionmgr/internal/domain"
)

// base holds what every window widget shares. Engine calls (Start, Reload)
// run on command goroutines while View runs on the update loop, so the
// fields are guarded by mu.
type base struct {
	mu       sync.Mutex
	session  *Session
	id       string
	viewType string
	action   *domain.Action
	env      domain.Environment
	err      error
}

func newBase(s *Session, opts actions.ViewOptions) base {
	return base{
		session:  s,
		id:       opts.ControllerID,
		viewType: opts.ViewType,
		action:   opts.Action,
		env:      opts.Env,
	}
}

func (b *base) ControllerID() string { return b.id }

func (b *base) ViewType() string { return b.viewType }

func (b *base) Destroy() {}

// contextString reads a string key of the action context.
func (b *base) contextString(key string) string {
	s, _ := b.action.Context[key].(string)
	return s
}

// displayValue renders a record value for a cell. Many2one values come as
// [id, name] pairs; false means unset.
func displayValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		if !x {
			return ""
		}
		return "yes"
	case []any:
		if len(x) == 2 {
			if name, ok := x[1].(string); ok {
				return name
			}
		}
		return fmt.Sprint(x...)
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%.2f", x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
