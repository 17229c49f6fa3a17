package domain

import (
	"encoding/json"
	"fmt"
)

// Domain is a record filter in prefix notation: a list of logical operators
// ("&", "|", "!") and (field, operator, value) leaves.
type Domain []Term

// Term is either a logical operator or a leaf condition.
type Term struct {
	Logic    string
	Field    string
	Operator string
	Value    any
}

// IsLeaf reports whether t is a (field, operator, value) condition.
func (t Term) IsLeaf() bool { return t.Logic == "" }

// MarshalJSON encodes operators as strings and leaves as 3-arrays.
func (t Term) MarshalJSON() ([]byte, error) {
	if !t.IsLeaf() {
		return json.Marshal(t.Logic)
	}
	return json.Marshal([]any{t.Field, t.Operator, t.Value})
}

// UnmarshalJSON accepts "&" / "|" / "!" or [field, operator, value].
func (t *Term) UnmarshalJSON(data []byte) error {
	var logic string
	if err := json.Unmarshal(data, &logic); err == nil {
		switch logic {
		case "&", "|", "!":
			*t = Term{Logic: logic}
			return nil
		}
		return fmt.Errorf("domain: unknown operator %q", logic)
	}
	var leaf []any
	if err := json.Unmarshal(data, &leaf); err != nil {
		return fmt.Errorf("domain: %w", err)
	}
	if len(leaf) != 3 {
		return fmt.Errorf("domain: expected [field, operator, value], got %d elements", len(leaf))
	}
	field, ok1 := leaf[0].(string)
	op, ok2 := leaf[1].(string)
	if !ok1 || !ok2 {
		return fmt.Errorf("domain: field and operator must be strings")
	}
	*t = Term{Field: field, Operator: op, Value: leaf[2]}
	return nil
}

// contextRefKey marks a leaf value that must be read from the evaluation
// context, e.g. ["partner_id", "=", {"context": "active_id"}].
const contextRefKey = "context"

// Evaluate substitutes context references in leaf values. Anything more
// elaborate is left to the server.
func (d Domain) Evaluate(ctx Context) Domain {
	if d == nil {
		return nil
	}
	out := make(Domain, len(d))
	for i, t := range d {
		if t.IsLeaf() {
			t.Value = resolveRef(t.Value, ctx)
		}
		out[i] = t
	}
	return out
}

func resolveRef(v any, ctx Context) any {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return v
	}
	key, ok := m[contextRefKey].(string)
	if !ok {
		return v
	}
	return ctx[key]
}
