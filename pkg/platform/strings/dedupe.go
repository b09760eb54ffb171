// Package strings holds small list helpers shared by config parsing and
// token claims.
package strings

import (
	"strings"
)

// SplitList splits a comma separated value into trimmed, non-empty,
// unique entries in first-seen order. An empty input returns nil.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return dedupe(strings.Split(s, ","), strings.TrimSpace)
}

// Dedupe trims entries and drops blanks and repeats, keeping order.
func Dedupe(values []string) []string {
	return dedupe(values, strings.TrimSpace)
}

// DedupeFold is Dedupe with case folding, so "Admin" and "admin" collapse
// into a single lowercased entry.
func DedupeFold(values []string) []string {
	return dedupe(values, func(v string) string {
		return strings.ToLower(strings.TrimSpace(v))
	})
}

func dedupe(values []string, norm func(string) string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = norm(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
