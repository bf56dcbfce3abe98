// Package textutil cleans up string lists read from configuration and
// query strings.
package textutil

import "strings"

// CleanList trims each element, drops empties and duplicates, and keeps
// the first occurrence's position. With fold, elements are lowercased
// before comparison and in the result.
func CleanList(values []string, fold bool) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if fold {
			v = strings.ToLower(v)
		}
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
