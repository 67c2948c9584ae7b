package recovery

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	jsonFence = regexp.MustCompile("(?is)```json\\s*(.*?)```")
	anyFence  = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*\\s*(.*?)```")
)

// arrayKeys are wrapper keys accepted when the oracle returns an object
// around the array, e.g. {"tactics": [...]}.
var arrayKeys = []string{"tactics", "items", "data", "results"}

// Direct locates a fenced block or a balanced bracketed array and parses it.
type Direct struct{}

func (Direct) Name() string { return "direct" }

func (Direct) Extract(_ context.Context, in Input) ([]map[string]any, error) {
	return ParseArray(in.Raw)
}

// ErrNoArray means no parseable array was found in the text.
var ErrNoArray = errors.New("no JSON array found")

// ParseArray extracts the first parseable array of objects from text.
// Lookup order: ```json fences, any fence, then balanced [...] substrings.
func ParseArray(text string) ([]map[string]any, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoArray
	}
	for _, m := range jsonFence.FindAllStringSubmatch(text, -1) {
		if arr, ok := decodeArray(m[1]); ok {
			return arr, nil
		}
	}
	for _, m := range anyFence.FindAllStringSubmatch(text, -1) {
		if arr, ok := decodeArray(m[1]); ok {
			return arr, nil
		}
	}
	if arr, ok := decodeArray(text); ok {
		return arr, nil
	}
	for _, sub := range balancedArrays(text) {
		if arr, ok := decodeArray(sub); ok {
			return arr, nil
		}
	}
	return nil, ErrNoArray
}

// decodeArray parses a JSON array (or an object wrapping one) and keeps the
// object elements.
func decodeArray(s string) ([]map[string]any, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	if obj, ok := v.(map[string]any); ok {
		for _, k := range arrayKeys {
			if inner, ok := obj[k].([]any); ok {
				v = inner
				break
			}
		}
	}
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]map[string]any, 0, len(list))
	for _, el := range list {
		if m, ok := el.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, len(out) > 0
}

// balancedArrays returns every top-level [...] substring, honouring JSON
// string literals so brackets inside strings do not count.
func balancedArrays(s string) []string {
	var out []string
	depth, start := 0, -1
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '[':
			if depth == 0 {
				start = i
			}
			depth++
		case ']':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					out = append(out, s[start:i+1])
					start = -1
				}
			}
		}
	}
	return out
}
