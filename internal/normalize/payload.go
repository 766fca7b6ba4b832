// Package normalize shapes heterogeneously typed LLM-extraction output into
// the concrete types the Memory Tool Facade and Policy Engine expect. This
// coercion belongs at the facade boundary only — the engine itself never
// sees an untyped value.
package normalize

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Content coerces a dynamically typed content field to a string. A list
// becomes its first element (recursively coerced); a map becomes its
// string form rendered as sorted "key: value" pairs so the result is
// deterministic across calls.
func Content(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		if len(t) == 0 {
			return ""
		}
		return Content(t[0])
	case []string:
		if len(t) == 0 {
			return ""
		}
		return t[0]
	case map[string]any:
		return mapToString(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

func mapToString(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, Content(m[k])))
	}
	return strings.Join(parts, ", ")
}

// Importance coerces a dynamically typed importance field to an int.
// Numeric values pass through (truncated); non-numeric keyword strings map
// {"high": 5, "low": 1, else: 3}; the caller is still expected to clamp
// into [1,5].
func Importance(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "high":
			return 5
		case "low":
			return 1
		default:
			return 3
		}
	default:
		return 3
	}
}
