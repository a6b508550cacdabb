// Package listing implements the in-memory search, filter, sort and paginate
// pipeline that turns a fully fetched record list into one table page.
package listing

import "strings"

// SearchTerms splits text on whitespace into lowercase terms
func SearchTerms(text string) []string {
	terms := strings.Fields(text)
	for i, t := range terms {
		terms[i] = strings.ToLower(t)
	}
	return terms
}

// Matches reports whether every term is a substring of the record's fields
// joined by a space, compared case-insensitively
func Matches(terms []string, fields []string) bool {
	haystack := strings.ToLower(strings.Join(fields, " "))
	for _, term := range terms {
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}

// ApplySearch keeps the records matching every term of text. Blank text
// returns records unchanged.
func ApplySearch[T any](records []T, text string, fields func(T) []string) []T {
	terms := SearchTerms(text)
	if len(terms) == 0 {
		return records
	}

	out := make([]T, 0, len(records))
	for _, r := range records {
		if Matches(terms, fields(r)) {
			out = append(out, r)
		}
	}
	return out
}
