// Package strings holds small string helpers shared by config and handlers.
package strings

import (
	"strings"
)

// SplitList splits a comma separated value into trimmed, unique, non-empty
// items in first-seen order. It returns nil when nothing remains.
func SplitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	out := DedupeAndTrim(strings.Split(v, ","))
	if len(out) == 0 {
		return nil
	}
	return out
}

// DedupeAndTrim trims each value and drops blanks and repeats, keeping order.
func DedupeAndTrim(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
