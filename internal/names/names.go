// Package names canonicalizes free-typed member names so the same person is
// recognized across full/half-width forms, casing and stray spaces, while the
// originally typed spelling is kept for display.
package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize returns the canonical comparison key for a name: NFKC folding,
// all whitespace removed, lower-cased. Total over all strings.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return strings.ToLower(s)
}

// Dedupe keeps one name per normalized key, in first-seen order. The first
// literal spelling encountered wins.
func Dedupe(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, n := range list {
		k := Normalize(n)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, n)
	}
	return out
}

// ContainsNormalized reports whether name is present in list under the
// normalized comparison.
func ContainsNormalized(list []string, name string) bool {
	k := Normalize(name)
	for _, n := range list {
		if Normalize(n) == k {
			return true
		}
	}
	return false
}

// Remove returns list without entries matching name under normalization,
// preserving order.
func Remove(list []string, name string) []string {
	k := Normalize(name)
	out := make([]string, 0, len(list))
	for _, n := range list {
		if Normalize(n) != k {
			out = append(out, n)
		}
	}
	return out
}
