package recovery

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/aretw0/archguide/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// keyAliases maps squashed keys (lower-case, no separators) onto the
// canonical field names of domain.TacticItem.
var keyAliases = map[string]string{
	"name":               "name",
	"tactic":             "name",
	"title":              "name",
	"purpose":            "purpose",
	"rationale":          "rationale",
	"categories":         "categories",
	"category":           "categories",
	"risks":              "risks",
	"tradeoffs":          "tradeoffs",
	"consequences":       "tradeoffs",
	"tracestoasr":        "tracesToArtifact",
	"tracestoartifact":   "tracesToArtifact",
	"expectedeffect":     "expectedEffect",
	"successprobability": "successProbability",
	"probability":        "successProbability",
	"sucessprobability":  "successProbability",
	"rank":               "rank",
}

// Normalize turns raw candidates into exactly k tactic items.
//
// Candidates without a usable name are dropped, duplicates by name keep the
// first occurrence, the list is cut to k, probabilities are clamped into
// [0,1] and ranks are rewritten to 1..k in array order unless they already
// form a valid permutation. Fewer than k survivors is
// domain.ErrParseFailure; items are never invented.
func Normalize(cands []map[string]any, k int) ([]domain.TacticItem, error) {
	seen := make(map[string]bool, len(cands))
	items := make([]domain.TacticItem, 0, k)
	for _, raw := range cands {
		item, ok := decodeItem(canonicalKeys(raw))
		if !ok {
			continue
		}
		item.Name = strings.TrimSpace(item.Name)
		if item.Name == "" {
			continue
		}
		// Names compare case-insensitively: "Cache" and "cache " are one tactic.
		key := strings.ToLower(item.Name)
		if seen[key] {
			continue
		}
		seen[key] = true

		item.SuccessProbability = clamp01(item.SuccessProbability)
		item.Categories = nonNil(item.Categories)
		item.Risks = nonNil(item.Risks)
		item.Tradeoffs = nonNil(item.Tradeoffs)
		items = append(items, item)
		if len(items) == k {
			break
		}
	}

	if len(items) < k {
		return nil, fmt.Errorf("%w: %d of %d items after normalization", domain.ErrParseFailure, len(items), k)
	}
	if !validRanks(items) {
		for i := range items {
			items[i].Rank = i + 1
		}
	}
	return items, nil
}

// canonicalKeys renames known keys to their canonical form. An exact
// canonical key wins over an alias for the same field.
func canonicalKeys(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	aliased := make(map[string]any)
	for k, v := range raw {
		canon, ok := keyAliases[squash(k)]
		if !ok {
			continue
		}
		if k == canon {
			out[canon] = v
			continue
		}
		if prev, dup := aliased[canon]; !dup || prev == nil {
			aliased[canon] = v
		}
	}
	for canon, v := range aliased {
		if _, ok := out[canon]; !ok {
			out[canon] = v
		}
	}
	return out
}

func squash(k string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ':
			return -1
		}
		return r
	}, strings.ToLower(k))
}

// decodeItem decodes each field on its own. Only the name is mandatory; any
// other field that does not decode keeps its zero value, so a bad rank falls
// back to reassignment and a bad probability to the default.
func decodeItem(in map[string]any) (domain.TacticItem, bool) {
	var item domain.TacticItem
	if !decodeField(in["name"], &item.Name) {
		return item, false
	}
	decodeField(in["purpose"], &item.Purpose)
	decodeField(in["rationale"], &item.Rationale)
	decodeField(in["categories"], &item.Categories)
	decodeField(in["risks"], &item.Risks)
	decodeField(in["tradeoffs"], &item.Tradeoffs)
	decodeField(in["tracesToArtifact"], &item.TracesToArtifact)
	decodeField(in["expectedEffect"], &item.ExpectedEffect)
	decodeField(in["rank"], &item.Rank)
	if !decodeField(in["successProbability"], &item.SuccessProbability) {
		item.SuccessProbability = domain.DefaultSuccessProbability
	}
	return item, true
}

// decodeField weakly decodes v into out. A nil v counts as missing. out is
// left untouched unless the decode succeeds.
func decodeField[T any](v any, out *T) bool {
	if v == nil {
		return false
	}
	var tmp T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &tmp,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			percentHook,
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return false
	}
	if err := dec.Decode(v); err != nil {
		return false
	}
	*out = tmp
	return true
}

// percentHook accepts "82%" and "0.82" strings for float fields.
func percentHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Float64 {
		return data, nil
	}
	s := strings.TrimSpace(data.(string))
	if strings.HasSuffix(s, "%") {
		v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
		if err != nil {
			return data, nil
		}
		return v / 100, nil
	}
	if p, ok := parseProbability(s); ok {
		return p, nil
	}
	return domain.DefaultSuccessProbability, nil
}

func clamp01(v float64) float64 {
	switch {
	case v != v:
		return domain.DefaultSuccessProbability
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	out := s[:0:0]
	for _, v := range s {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func validRanks(items []domain.TacticItem) bool {
	seen := make([]bool, len(items)+1)
	for _, it := range items {
		if it.Rank < 1 || it.Rank > len(items) || seen[it.Rank] {
			return false
		}
		seen[it.Rank] = true
	}
	return true
}
