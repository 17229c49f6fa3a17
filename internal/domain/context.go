package domain

import (
	"maps"
	"strings"
)

// Context is the free-form key/value bag carried by actions and
// environments. Nested maps are merged recursively.
type Context map[string]any

// Clone returns a deep copy of nested maps; leaves are shared.
func (c Context) Clone() Context {
	if c == nil {
		return nil
	}
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Context:
		return t.Clone()
	case map[string]any:
		return map[string]any(Context(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// MergeContexts deep-merges contexts in increasing priority: keys of later
// contexts win, nested maps are merged rather than replaced.
func MergeContexts(contexts ...Context) Context {
	out := Context{}
	for _, c := range contexts {
		mergeInto(out, c)
	}
	return out
}

func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		srcMap, srcIsMap := asMap(v)
		dstMap, dstIsMap := asMap(dst[k])
		if srcIsMap && dstIsMap {
			merged := maps.Clone(dstMap)
			mergeInto(merged, srcMap)
			dst[k] = merged
			continue
		}
		dst[k] = cloneValue(v)
	}
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case Context:
		return t, true
	case map[string]any:
		return t, true
	}
	return nil, false
}

// Int64 reads a numeric key, accepting the float64 produced by JSON decoding.
func (c Context) Int64(key string) (int64, bool) {
	return AsInt64(c[key])
}

// AsInt64 converts JSON-ish numbers to int64.
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), n == float64(int64(n))
	case float32:
		return int64(n), true
	}
	return 0, false
}

// Int64s reads a list of ids.
func (c Context) Int64s(key string) []int64 {
	switch list := c[key].(type) {
	case []int64:
		return list
	case []any:
		out := make([]int64, 0, len(list))
		for _, v := range list {
			if n, ok := AsInt64(v); ok {
				out = append(out, n)
			}
		}
		return out
	}
	return nil
}

// String reads a string key.
func (c Context) String(key string) string {
	s, _ := c[key].(string)
	return s
}

// GroupBy returns the group_by key as a list, accepting a single string.
func (c Context) GroupBy() []string {
	switch v := c["group_by"].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// oneShotPrefixes and oneShotKeys name the context keys that encode
// initialization intent for a single action rather than navigation state.
var (
	oneShotPrefixes = []string{"default_", "search_default_", "show_"}
	oneShotKeys     = map[string]struct{}{
		"group_by":         {},
		"group_by_no_leaf": {},
		"active_id":        {},
		"active_ids":       {},
	}
)

// IsOneShotKey reports whether key only makes sense for the action that
// declared it and must not leak into follow-up actions or saved state.
func IsOneShotKey(key string) bool {
	if _, ok := oneShotKeys[key]; ok {
		return true
	}
	for _, p := range oneShotPrefixes {
		if strings.HasPrefix(key, p) && len(key) > len(p) {
			return true
		}
	}
	return strings.HasSuffix(key, "_view_ref") && len(key) > len("_view_ref")
}

// WithoutOneShotKeys returns a copy of c minus every IsOneShotKey entry.
func (c Context) WithoutOneShotKeys() Context {
	out := Context{}
	for k, v := range c {
		if IsOneShotKey(k) {
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}
