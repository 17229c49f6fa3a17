package history

import (
	"time"

	"nathanbeddoewebdev/actionmgr/internal/actions"
)

// Entry is one recorded navigation state.
type Entry struct {
	ID          int64         `json:"id"`
	SessionID   string        `json:"session_id"`
	Timestamp   time.Time     `json:"timestamp"`
	Title       string        `json:"title,omitempty"`
	Breadcrumbs string        `json:"breadcrumbs,omitempty"`
	State       actions.State `json:"state"`
}
