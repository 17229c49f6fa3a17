package history

import (
	"maps"
	"strings"
)

var sensitiveParams = []string{"token", "password", "secret", "api_key"}

// SanitizeParams redacts state parameters whose names look like
// credentials before they are written to disk.
func SanitizeParams(params map[string]any) map[string]any {
	if len(params) == 0 {
		return params
	}
	out := maps.Clone(params)
	for key := range out {
		lower := strings.ToLower(key)
		for _, s := range sensitiveParams {
			if strings.Contains(lower, s) {
				out[key] = "<redacted>"
				break
			}
		}
	}
	return out
}
