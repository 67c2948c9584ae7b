package recovery

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

var (
	bulletLine = regexp.MustCompile(`^(\s*)(?:[-*+•]|\d{1,2}[.)])\s+(.+?)\s*$`)
	fenceLine  = regexp.MustCompile("^\\s*```")
	nameSplit  = regexp.MustCompile(`\s*(?::|\s—\s|\s–\s|\s-\s)\s*`)
	emphasis   = regexp.MustCompile(`[*_` + "`" + `]{1,3}`)
	percent    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	decimal    = regexp.MustCompile(`\d*\.?\d+`)
)

// fieldLabels maps lower-cased bullet labels to canonical item keys.
var fieldLabels = map[string]string{
	"rationale":           "rationale",
	"why":                 "rationale",
	"purpose":             "purpose",
	"categories":          "categories",
	"category":            "categories",
	"risks":               "risks",
	"risk":                "risks",
	"tradeoffs":           "tradeoffs",
	"trade-offs":          "tradeoffs",
	"consequences":        "tradeoffs",
	"success probability": "successProbability",
	"sucess probability":  "successProbability",
	"probability":         "successProbability",
	"traces to asr":       "tracesToArtifact",
	"traces to artifact":  "tracesToArtifact",
	"expected effect":     "expectedEffect",
}

// Reconstruct builds one candidate per top-level markdown bullet or numbered
// item. Label bullets ("Rationale: ...", "Risks: ...") fill fields of the
// preceding item. Unspecified fields are left for normalization defaults.
type Reconstruct struct{}

func (Reconstruct) Name() string { return "reconstruct" }

func (Reconstruct) Extract(_ context.Context, in Input) ([]map[string]any, error) {
	return ReconstructItems(in.Raw), nil
}

// ReconstructItems parses markdown bullets into loosely typed candidates.
func ReconstructItems(text string) []map[string]any {
	var (
		items   []map[string]any
		current map[string]any
		inFence bool
	)
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if fenceLine.MatchString(line) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		m := bulletLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		indent, body := m[1], cleanInline(m[2])
		if body == "" {
			continue
		}

		if key, value, ok := labelled(body); ok {
			if current != nil {
				setField(current, key, value)
			}
			continue
		}
		if len(strings.ReplaceAll(indent, "\t", "  ")) >= 2 {
			if current != nil {
				appendRationale(current, body)
			}
			continue
		}

		current = map[string]any{}
		parts := nameSplit.Split(body, 2)
		current["name"] = strings.TrimSpace(parts[0])
		if len(parts) == 2 {
			current["rationale"] = strings.TrimSpace(parts[1])
		}
		items = append(items, current)
	}
	return items
}

func cleanInline(s string) string {
	return strings.TrimSpace(emphasis.ReplaceAllString(s, ""))
}

// labelled recognises "Label: value" and "Label — value" bullets.
func labelled(body string) (string, string, bool) {
	parts := nameSplit.Split(body, 2)
	if len(parts) != 2 {
		return "", "", false
	}
	label := strings.ToLower(strings.TrimSpace(parts[0]))
	key, ok := fieldLabels[label]
	if !ok && strings.Contains(label, "trade") {
		key, ok = "tradeoffs", true
	}
	if !ok {
		return "", "", false
	}
	return key, strings.TrimSpace(parts[1]), true
}

func setField(item map[string]any, key, value string) {
	switch key {
	case "categories", "risks", "tradeoffs":
		item[key] = splitList(value)
	case "successProbability":
		if p, ok := parseProbability(value); ok {
			item[key] = p
		}
	default:
		item[key] = value
	}
}

func appendRationale(item map[string]any, text string) {
	if prev, _ := item["rationale"].(string); prev != "" {
		item["rationale"] = prev + " " + text
		return
	}
	item["rationale"] = text
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseProbability reads "0.82", "82%" or ".8" from free text.
func parseProbability(s string) (float64, bool) {
	if m := percent.FindStringSubmatch(s); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		return v / 100, err == nil
	}
	if m := decimal.FindString(s); m != "" {
		v, err := strconv.ParseFloat(m, 64)
		return v, err == nil
	}
	return 0, false
}
