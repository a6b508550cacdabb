package listing

import "strings"

// All is the filter value that disables a categorical filter
const All = "all"

// Disabled reports whether value turns a categorical filter off
func Disabled(value string) bool {
	return value == "" || strings.EqualFold(value, All)
}

// Where keeps the records satisfying keep
func Where[T any](records []T, keep func(T) bool) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// ApplyFilter keeps the records whose key equals value exactly. The sentinel
// "all" or an empty value returns records unchanged.
func ApplyFilter[T any](records []T, key func(T) string, value string) []T {
	if Disabled(value) {
		return records
	}
	return Where(records, func(r T) bool { return key(r) == value })
}
