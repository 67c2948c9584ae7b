// Package rules evaluates ordered keyword/pattern tables.
//
// Routing and classification precedence is expressed as data: a Table is a
// slice of rules checked in order, and callers choose between "first match
// wins" (First) and "each match overrides the previous result" (Override).
package rules

import (
	"regexp"
	"strings"
)

// Rule maps a set of trigger phrases and patterns to a result.
type Rule[T comparable] struct {
	// Name identifies the rule in logs and route events.
	Name string

	// Phrases are matched as substrings of the lower-cased text.
	Phrases []string

	// Patterns are matched against the lower-cased, trimmed text.
	Patterns []*regexp.Regexp

	Result T

	// Keep lists current values this rule must not replace (Override only).
	Keep []T
}

// Matches reports whether any phrase or pattern hits the text.
func (r Rule[T]) Matches(text string) bool {
	low := strings.ToLower(text)
	for _, p := range r.Phrases {
		if p != "" && strings.Contains(low, p) {
			return true
		}
	}
	trimmed := strings.TrimSpace(low)
	for _, re := range r.Patterns {
		if re.MatchString(trimmed) {
			return true
		}
	}
	return false
}

func (r Rule[T]) keeps(v T) bool {
	for _, k := range r.Keep {
		if k == v {
			return true
		}
	}
	return false
}

// Table is an ordered rule list. Earlier rules have higher precedence in
// First; later rules win in Override.
type Table[T comparable] []Rule[T]

// First returns the first rule that matches the text.
func (t Table[T]) First(text string) (Rule[T], bool) {
	for _, r := range t {
		if r.Matches(text) {
			return r, true
		}
	}
	return Rule[T]{}, false
}

// Override applies every matching rule in order, each replacing the current
// value unless the current value is listed in the rule's Keep set.
// It returns the final value and the names of the rules that fired.
func (t Table[T]) Override(text string, current T) (T, []string) {
	var fired []string
	for _, r := range t {
		if !r.Matches(text) || r.keeps(current) {
			continue
		}
		current = r.Result
		fired = append(fired, r.Name)
	}
	return current, fired
}

// ContainsAny reports whether the lower-cased text contains one of the phrases.
func ContainsAny(text string, phrases ...string) bool {
	low := strings.ToLower(text)
	for _, p := range phrases {
		if p != "" && strings.Contains(low, p) {
			return true
		}
	}
	return false
}

// MustCompile compiles a list of patterns, panicking on invalid input.
// Intended for package-level tables.
func MustCompile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}
