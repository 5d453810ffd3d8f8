package util

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var statePlaceholder = regexp.MustCompile(`\{\{\s*sessionState\.([A-Za-z0-9_\-]+)\s*\}\}`)

// InterpolateState replaces every {{sessionState.<key>}} placeholder in text
// with the rendered value of state[key]. Placeholders whose key is absent (or
// nil) are left verbatim; their keys are returned sorted and de-duplicated.
// This lives in internal to avoid committing to public API stability prematurely.
func InterpolateState(text string, state map[string]any) (string, []string) {
	if !strings.Contains(text, "{{") { // fast path: no template markers
		return text, nil
	}

	missing := map[string]struct{}{}
	out := statePlaceholder.ReplaceAllStringFunc(text, func(match string) string {
		key := statePlaceholder.FindStringSubmatch(match)[1]
		v, ok := state[key]
		if !ok || v == nil {
			missing[key] = struct{}{}
			return match
		}
		return RenderValue(v)
	})

	if len(missing) == 0 {
		return out, nil
	}
	keys := make([]string, 0, len(missing))
	for k := range missing {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return out, keys
}

// RenderValue turns a state value into prompt text. Scalars render plainly;
// composite values render as compact JSON.
func RenderValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case fmt.Stringer:
		return t.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
