// Package interpolate implements the State Interpolator (C3): it replaces
// every `{{ dot.path }}` placeholder in a node's configuration with the
// string form of the value at that path in the accumulated workflow state.
package interpolate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// placeholderPattern matches `{{ path }}`, non-greedy against the closing
// `}}` so two adjacent placeholders on one line never merge into a single
// match. Whitespace around the path is trimmed.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// missingValueLiteral is substituted for a path that does not resolve
// against state. spec.md §9 documents this as a preserved quirk, not a bug
// to fix.
const missingValueLiteral = "None"

// Config walks config recursively and returns a new value with every
// string's `{{path}}` placeholders substituted against state. Maps recurse
// on values, slices element-wise, scalars are returned unchanged.
// Interpolation never mutates config or state.
func Config(config any, state map[string]any) any {
	switch v := config.(type) {
	case string:
		return interpolateString(v, state)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = Config(val, state)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = Config(val, state)
		}
		return out
	default:
		return v
	}
}

func interpolateString(s string, state map[string]any) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		sub := placeholderPattern.FindStringSubmatch(match)
		path := strings.TrimSpace(sub[1])
		val, ok := resolvePath(state, path)
		if !ok {
			return missingValueLiteral
		}
		return stringify(val)
	})
}

// resolvePath walks a dot-separated path (e.g. "results.node_3.data.file_url")
// against nested maps. Any non-map intermediate or missing key is "not found".
func resolvePath(state map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	parts := strings.Split(path, ".")
	var cur any = state
	for _, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return missingValueLiteral
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
