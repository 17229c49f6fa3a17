package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Kind discriminates the action union. The set is closed: every kind the
// engine can execute has a handler registered at construction time.
type Kind string

const (
	KindWindow Kind = "window"
	KindClient Kind = "client"
	KindServer Kind = "server"
	KindURL    Kind = "url"
	KindClose  Kind = "close"
)

// legacyKinds maps the long-form type names found in exported action
// catalogs to their Kind.
var legacyKinds = map[string]Kind{
	"ir.actions.act_window":       KindWindow,
	"ir.actions.client":           KindClient,
	"ir.actions.server":           KindServer,
	"ir.actions.act_url":          KindURL,
	"ir.actions.act_window_close": KindClose,
}

// ParseKind normalizes a kind name. Unknown names are returned unchanged so
// the dispatcher can report them.
func ParseKind(s string) Kind {
	s = strings.TrimSpace(s)
	if k, ok := legacyKinds[s]; ok {
		return k
	}
	return Kind(strings.ToLower(s))
}

// UnmarshalJSON accepts both short and long-form kind names.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("kind: %w", err)
	}
	*k = ParseKind(s)
	return nil
}

// Target says where an action's controller is displayed.
type Target string

const (
	TargetCurrent Target = "current"
	TargetNew     Target = "new"
	TargetInline  Target = "inline"
	// TargetMain behaves like TargetCurrent but clears the breadcrumbs.
	TargetMain Target = "main"
	// TargetSelf is only meaningful for url actions: redirect the client.
	TargetSelf Target = "self"
)

// Effect is a decorative payload (e.g. a celebration banner) carried by an
// action and forwarded to the mount surface.
type Effect map[string]any

// Flags tune how a window action is presented.
type Flags struct {
	Headless      bool `json:"headless,omitempty"`
	HasSearchView bool `json:"has_search_view,omitempty"`
	HasSidebar    bool `json:"has_sidebar,omitempty"`
}

// ViewRef is one entry of a window action's view sequence. It encodes to
// the two-element form [id|false, "type"].
type ViewRef struct {
	ID   int64
	Type string
}

// MarshalJSON encodes the view as [id|false, type].
func (v ViewRef) MarshalJSON() ([]byte, error) {
	var id any = false
	if v.ID != 0 {
		id = v.ID
	}
	return json.Marshal([]any{id, v.Type})
}

// UnmarshalJSON decodes [id|false, type].
func (v *ViewRef) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("view: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("view: expected [id, type], got %d elements", len(pair))
	}
	var id any
	if err := json.Unmarshal(pair[0], &id); err != nil {
		return fmt.Errorf("view id: %w", err)
	}
	switch n := id.(type) {
	case float64:
		v.ID = int64(n)
	case bool, nil:
		v.ID = 0
	default:
		return fmt.Errorf("view id: unexpected %T", id)
	}
	if err := json.Unmarshal(pair[1], &v.Type); err != nil {
		return fmt.Errorf("view type: %w", err)
	}
	return nil
}

// Action is the normalized action descriptor. The resolver produces a fresh
// copy for every navigation; controllers never mutate it.
type Action struct {
	ID     int64  `json:"id,omitempty"`
	XMLID  string `json:"xml_id,omitempty"`
	Kind   Kind   `json:"type"`
	Name   string `json:"name,omitempty"`
	Target Target `json:"target,omitempty"`

	Context Context `json:"context,omitempty"`

	// Window actions.
	Model  string    `json:"res_model,omitempty"`
	ResID  int64     `json:"res_id,omitempty"`
	Domain Domain    `json:"domain,omitempty"`
	Views  []ViewRef `json:"views,omitempty"`
	Flags  Flags     `json:"flags,omitempty"`

	// Client actions.
	Tag    string         `json:"tag,omitempty"`
	Params map[string]any `json:"params,omitempty"`

	// Url actions.
	URL string `json:"url,omitempty"`

	Effect Effect `json:"effect,omitempty"`

	// PushState set to false keeps the action out of navigation history.
	PushState *bool `json:"push_state,omitempty"`
}

// Clone returns a copy that shares no mutable state with a.
func (a *Action) Clone() *Action {
	if a == nil {
		return nil
	}
	c := *a
	c.Context = a.Context.Clone()
	c.Domain = slices.Clone(a.Domain)
	c.Views = slices.Clone(a.Views)
	c.Params = maps.Clone(a.Params)
	c.Effect = maps.Clone(a.Effect)
	if a.PushState != nil {
		v := *a.PushState
		c.PushState = &v
	}
	return &c
}

// DisplayName is the title used when a controller has none of its own.
func (a *Action) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	if a.Tag != "" {
		return a.Tag
	}
	return a.Model
}

// Pushable reports whether the action may appear in navigation history.
func (a *Action) Pushable() bool {
	if a.Target == TargetNew {
		return false
	}
	return a.PushState == nil || *a.PushState
}
