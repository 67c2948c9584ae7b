// Package prompt builds oracle requests and decodes their structured replies.
package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/archguide/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Task builds a two-part prompt. The task name travels on the system message
// so adapters and test oracles can tell the requests apart.
func Task(name, system, user string) []domain.Message {
	sys := domain.System(strings.TrimSpace(system))
	sys.Name = name
	return []domain.Message{sys, domain.User(strings.TrimSpace(user))}
}

// Decode maps a loosely typed oracle object onto out using weak typing
// ("0.8" → float, "true" → bool, single value → slice).
func Decode(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("decode oracle reply: %w", err)
	}
	return nil
}

// Object builds a JSON schema object with the given title, properties and required keys.
func Object(title string, props map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"title":      title,
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// String is a string property, optionally constrained to an enum.
func String(description string, enum ...string) map[string]any {
	p := map[string]any{"type": "string"}
	if description != "" {
		p["description"] = description
	}
	if len(enum) > 0 {
		p["enum"] = enum
	}
	return p
}

// Bool is a boolean property.
func Bool(description string) map[string]any {
	return map[string]any{"type": "boolean", "description": description}
}

// Clip shortens text to max runes, appending an ellipsis when cut.
func Clip(text string, max int) string {
	r := []rune(text)
	if max <= 0 || len(r) <= max {
		return text
	}
	return string(r[:max]) + "…"
}

// Section renders a titled block, or nothing when body is blank.
func Section(title, body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}
	return title + ":\n" + body + "\n\n"
}

var fence = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*\\s*(.*?)```")

// ErrNoObject means no JSON object could be read from the reply.
var ErrNoObject = errors.New("no JSON object found")

// ExtractObject reads the first JSON object from a free-text reply: a fenced
// block, the whole text, or the outermost {...} span.
func ExtractObject(text string) (map[string]any, error) {
	var candidates []string
	for _, m := range fence.FindAllStringSubmatch(text, -1) {
		candidates = append(candidates, m[1])
	}
	candidates = append(candidates, text)
	if i, j := strings.Index(text, "{"), strings.LastIndex(text, "}"); i >= 0 && j > i {
		candidates = append(candidates, text[i:j+1])
	}
	for _, c := range candidates {
		var out map[string]any
		if err := json.Unmarshal([]byte(strings.TrimSpace(c)), &out); err == nil && out != nil {
			return out, nil
		}
	}
	return nil, ErrNoObject
}
