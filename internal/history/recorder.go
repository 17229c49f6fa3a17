package history

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"nathanbeddoewebdev/actionmgr/internal/actions"
	"nathanbeddoewebdev/actionmgr/internal/logging"
)

// Recorder saves every navigation state published by a Manager under one
// session id. Consecutive identical states are recorded once.
type Recorder struct {
	repo      Repository
	sessionID string
	logger    logr.Logger

	mu     sync.Mutex
	last   []byte
	crumbs func() []actions.Breadcrumb
}

// NewRecorder returns a recorder writing to repo under a fresh session id.
func NewRecorder(repo Repository, logger logr.Logger) *Recorder {
	return &Recorder{repo: repo, sessionID: uuid.NewString(), logger: logger.WithName("history")}
}

// SessionID identifies the entries written by this recorder.
func (r *Recorder) SessionID() string { return r.sessionID }

// Attach subscribes the recorder to m's state changes.
func (r *Recorder) Attach(m *actions.Manager) {
	r.mu.Lock()
	r.crumbs = m.Breadcrumbs
	r.mu.Unlock()
	m.OnChange(r.Record)
}

// Record saves st. Storage failures are logged, never returned: history must
// not break navigation.
func (r *Recorder) Record(st actions.State) {
	st.Params = SanitizeParams(st.Params)
	key, err := json.Marshal(st)
	if err != nil {
		r.logger.Error(err, "encoding state")
		return
	}

	r.mu.Lock()
	if string(key) == string(r.last) {
		r.mu.Unlock()
		return
	}
	r.last = key
	crumbs := r.crumbs
	r.mu.Unlock()

	entry := &Entry{SessionID: r.sessionID, Title: st.Title, State: st}
	if crumbs != nil {
		entry.Breadcrumbs = joinCrumbs(crumbs())
	}
	if err := r.repo.Save(entry); err != nil {
		r.logger.Error(err, "saving navigation state")
		return
	}
	r.logger.V(logging.DEBUG).Info("recorded state", "id", entry.ID, "title", st.Title)
}

func joinCrumbs(crumbs []actions.Breadcrumb) string {
	titles := make([]string, len(crumbs))
	for i, c := range crumbs {
		titles[i] = c.Title
	}
	return strings.Join(titles, " / ")
}
