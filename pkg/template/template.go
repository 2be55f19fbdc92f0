// Package template substitutes {{name}} variable placeholders in message
// content and in the parameter trees of action and webhook nodes.
package template

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Interpolate replaces every {{name}} placeholder with the string form of
// the corresponding variable. Placeholders without a matching variable are
// left untouched, so flows can surface authoring mistakes verbatim.
func Interpolate(text string, variables map[string]any) string {
	if text == "" || len(variables) == 0 {
		return text
	}

	for name, value := range variables {
		placeholder := "{{" + name + "}}"
		if strings.Contains(text, placeholder) {
			text = strings.ReplaceAll(text, placeholder, Stringify(value))
		}
	}

	return text
}

// InterpolateTree applies Interpolate to every string leaf of a decoded
// JSON parameter tree (objects, arrays, scalars). Non-string leaves are
// returned unchanged.
func InterpolateTree(value any, variables map[string]any) any {
	switch v := value.(type) {
	case string:
		return Interpolate(v, variables)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = InterpolateTree(item, variables)
		}

		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = InterpolateTree(item, variables)
		}

		return out
	default:
		return value
	}
}

// Stringify renders a variable value for substitution into text. Structured
// values become pretty-printed JSON.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		pretty, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return ""
		}

		return string(pretty)
	}
}
