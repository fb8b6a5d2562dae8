package util

import (
	"cmp"
	"maps"
	"slices"
	"strings"
)

// SortedKeys returns the keys of m in ascending order. Config fields,
// resources and nodes are always walked this way so output is stable.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}

// Map applies fn to every element of in.
func Map[T, U any](in []T, fn func(T) U) []U {
	out := make([]U, len(in))
	for i := range in {
		out[i] = fn(in[i])
	}
	return out
}

// Unique drops repeated values, keeping the first occurrence of each.
func Unique[T comparable](in []T) []T {
	seen := make(map[T]bool, len(in))
	return slices.DeleteFunc(slices.Clone(in), func(v T) bool {
		dup := seen[v]
		seen[v] = true
		return dup
	})
}

// SplitList splits a comma separated list, trimming blanks and dropping
// empty entries. An empty string yields nil.
func SplitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
