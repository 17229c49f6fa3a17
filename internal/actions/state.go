package actions

import (
	"context"
	"maps"
	"strconv"
	"strings"

	"nathanbeddoewebdev/actionmgr/internal/domain"
)

// State is the serializable navigation state of the top controller. It
// carries enough to rebuild the screen through LoadState.
type State struct {
	Action    int64          `json:"action,omitempty"`
	Tag       string         `json:"tag,omitempty"`
	Model     string         `json:"model,omitempty"`
	ViewType  string         `json:"view_type,omitempty"`
	ID        int64          `json:"id,omitempty"`
	ActiveID  int64          `json:"active_id,omitempty"`
	ActiveIDs string         `json:"active_ids,omitempty"`
	Title     string         `json:"title,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
}

// IsZero reports whether s designates nothing.
func (s State) IsZero() bool {
	return s.Action == 0 && s.Tag == "" && s.Model == ""
}

// project computes the state of controller c of inst. Called with the stack
// lock held.
func project(c *Controller, inst *instance, title string) State {
	act := inst.action
	st := State{Title: title}
	switch {
	case inst.window:
		st.Action = act.ID
		st.Model = inst.env.Model
		st.ViewType = c.ViewType
		if !inst.multiRecord(c.ViewType) {
			st.ID = inst.env.CurrentID
		}
		if id, ok := inst.env.Context.Int64("active_id"); ok {
			st.ActiveID = id
		}
		if ids := inst.env.Context.Int64s("active_ids"); len(ids) > 0 && !(len(ids) == 1 && ids[0] == st.ActiveID) {
			st.ActiveIDs = joinIDs(ids)
		}
	case act.Kind == domain.KindClient:
		st.Action = act.ID
		st.Tag = act.Tag
		st.Params = projectParams(act.Params)
	default:
		st.Action = act.ID
	}
	return st
}

// projectParams keeps the string and number params that are not one-shot
// initialization keys.
func projectParams(params map[string]any) map[string]any {
	out := map[string]any{}
	for k, v := range params {
		if domain.IsOneShotKey(k) {
			continue
		}
		switch v.(type) {
		case string, float64, float32, int, int32, int64:
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func splitIDs(s string) []any {
	var out []any
	for _, part := range strings.Split(s, ",") {
		if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
			out = append(out, id)
		}
	}
	return out
}

// State returns the navigation state of the top controller. ok is false
// when the stack is empty or the top action keeps out of history.
func (m *Manager) State() (State, bool) {
	s := m.stack
	s.mu.Lock()
	defer s.mu.Unlock()
	c, inst := s.topLocked()
	if c == nil || !inst.action.Pushable() {
		return State{}, false
	}
	return project(c, inst, s.titleLocked(c)), true
}

// LoadState rebuilds the screen described by st. When st names the action
// already on top, only the record and view change; otherwise the action is
// dispatched again with the breadcrumbs cleared.
func (m *Manager) LoadState(ctx context.Context, st State) error {
	if st.Action != 0 {
		if c, inst := m.stack.top(); c != nil && inst.window && inst.action.ID == st.Action {
			viewType := st.ViewType
			if viewType == "" {
				viewType = c.ViewType
				if st.ID != 0 {
					viewType = firstMono(inst, viewType)
				}
			}
			var opts SwitchOptions
			if st.ID != 0 {
				id := st.ID
				opts.ResID = &id
			}
			return m.SwitchView(ctx, viewType, opts)
		}

		additional := domain.Context{}
		if st.ActiveID != 0 {
			additional["active_id"] = st.ActiveID
		}
		if st.ActiveIDs != "" {
			additional["active_ids"] = splitIDs(st.ActiveIDs)
		}
		return m.DoAction(ctx, ByID(st.Action), Options{
			AdditionalContext: additional,
			ClearBreadcrumbs:  true,
			ViewType:          st.ViewType,
			ResID:             st.ID,
		})
	}

	if st.Tag != "" {
		return m.DoAction(ctx, Inline(&domain.Action{
			Kind:   domain.KindClient,
			Tag:    st.Tag,
			Params: maps.Clone(st.Params),
		}), Options{ClearBreadcrumbs: true})
	}

	if st.Model != "" {
		act := &domain.Action{
			Kind:  domain.KindWindow,
			Model: st.Model,
			ResID: st.ID,
			Views: m.defaultViews(st.ID != 0),
		}
		return m.DoAction(ctx, Inline(act), Options{ClearBreadcrumbs: true})
	}
	return nil
}

// firstMono returns the first mono-record view of inst, or fallback.
func firstMono(inst *instance, fallback string) string {
	for _, v := range inst.views {
		if !v.spec.MultiRecord {
			return v.ref.Type
		}
	}
	return fallback
}

// defaultViews picks views for a bare model: a mono-record view alone when
// a record is given, else a multi-record view followed by it. "list" and
// "form" are preferred when registered.
func (m *Manager) defaultViews(record bool) []domain.ViewRef {
	multi, mono := m.pickView("list", true), m.pickView("form", false)
	var views []domain.ViewRef
	if !record && multi != "" {
		views = append(views, domain.ViewRef{Type: multi})
	}
	if mono != "" {
		views = append(views, domain.ViewRef{Type: mono})
	}
	return views
}

func (m *Manager) pickView(preferred string, multi bool) string {
	if spec, ok := m.views.Get(preferred); ok && spec.MultiRecord == multi {
		return preferred
	}
	for _, name := range m.views.Names() {
		if spec, _ := m.views.Get(name); spec.MultiRecord == multi {
			return name
		}
	}
	return ""
}
