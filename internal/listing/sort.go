package listing

import (
	"slices"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Compare orders two records; negative means a sorts first
type Compare[T any] func(a, b T) int

// Collators keep per-comparison buffers, so the shared one is guarded
var (
	collatorMu sync.Mutex
	collator   = collate.New(language.English)
)

// CompareText compares two strings with locale-aware collation
func CompareText(a, b string) int {
	collatorMu.Lock()
	defer collatorMu.Unlock()
	return collator.CompareString(a, b)
}

// ParseNumber parses s as a float; unparsable input counts as zero
func ParseNumber(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

// CompareNumeric compares two numeric strings by value
func CompareNumeric(a, b string) int {
	x, y := ParseNumber(a), ParseNumber(b)
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

// ByText builds a comparator over a text field
func ByText[T any](field func(T) string) Compare[T] {
	return func(a, b T) int { return CompareText(field(a), field(b)) }
}

// ByNumber builds a comparator over a numeric string field
func ByNumber[T any](field func(T) string) Compare[T] {
	return func(a, b T) int { return CompareNumeric(field(a), field(b)) }
}

// Reverse flips the order of cmp
func (cmp Compare[T]) Reverse() Compare[T] {
	return func(a, b T) int { return cmp(b, a) }
}

// SortRecords returns a stably sorted copy of records. The input is never
// modified.
func SortRecords[T any](records []T, cmp Compare[T]) []T {
	out := slices.Clone(records)
	if cmp == nil {
		return out
	}
	slices.SortStableFunc(out, cmp)
	return out
}
