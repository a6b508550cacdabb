package listing

import (
	"github.com/vault-console/internal/types"
)

// DefaultPageSize is the table page size used across the console
const DefaultPageSize = 15

// State is the filter, sort and pagination state of one list view
type State struct {
	SearchText  string
	Filters     map[string]string
	SortKey     string
	SortOrder   types.SortOrder
	CurrentPage int
	PageSize    int
}

// NewState returns the state of a freshly opened list view
func NewState(pageSize int) *State {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &State{Filters: map[string]string{}, CurrentPage: 1, PageSize: pageSize}
}

// SetSearch updates the search text; a change resets to the first page
func (s *State) SetSearch(text string) {
	if text != s.SearchText {
		s.SearchText = text
		s.CurrentPage = 1
	}
}

// SetFilter updates a categorical filter; a change resets to the first page
func (s *State) SetFilter(key, value string) {
	if s.Filters == nil {
		s.Filters = map[string]string{}
	}
	if s.Filters[key] != value {
		s.Filters[key] = value
		s.CurrentPage = 1
	}
}

// SetSort updates the active sort column and order
func (s *State) SetSort(key string, order types.SortOrder) {
	s.SortKey = key
	s.SortOrder = order
}

// SetPage moves to page; values below one select the first page
func (s *State) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	s.CurrentPage = page
}

// SetPageSize changes the page size. The current page is kept unless reset
// is requested.
func (s *State) SetPageSize(size int, reset bool) {
	if size < 1 {
		return
	}
	s.PageSize = size
	if reset {
		s.CurrentPage = 1
	}
}

// Page is one rendered slice of a filtered list
type Page[T any] struct {
	Items       []T `json:"items"`
	Total       int `json:"total"`
	CurrentPage int `json:"currentPage"`
	PageSize    int `json:"pageSize"`
	TotalPages  int `json:"totalPages"`
}

// FilterFunc narrows records by the value of one categorical filter
type FilterFunc[T any] func(records []T, value string) []T

// NamedFilter binds a filter to the state key it reads
type NamedFilter[T any] struct {
	Key   string
	Apply FilterFunc[T]
}

// Pipeline describes how a record type is searched, filtered and sorted
type Pipeline[T any] struct {
	SearchFields func(T) []string
	Filters      []NamedFilter[T]
	Sorters      map[string]Compare[T]
}

// Filtered runs search then every filter, without sorting or paging
func (p *Pipeline[T]) Filtered(records []T, st *State) []T {
	out := records
	if p.SearchFields != nil {
		out = ApplySearch(out, st.SearchText, p.SearchFields)
	}
	for _, f := range p.Filters {
		value := st.Filters[f.Key]
		if Disabled(value) {
			continue
		}
		out = f.Apply(out, value)
	}
	return out
}

// Apply runs search, filters, the active sort and pagination in that order
func (p *Pipeline[T]) Apply(records []T, st *State) Page[T] {
	filtered := p.Filtered(records, st)

	if cmp, ok := p.Sorters[st.SortKey]; ok && st.SortKey != "" {
		if st.SortOrder == types.SortDesc {
			cmp = cmp.Reverse()
		}
		filtered = SortRecords(filtered, cmp)
	}

	return Page[T]{
		Items:       Paginate(filtered, st.CurrentPage, st.PageSize),
		Total:       len(filtered),
		CurrentPage: st.CurrentPage,
		PageSize:    st.PageSize,
		TotalPages:  TotalPages(len(filtered), st.PageSize),
	}
}

// EqualsFilter builds an exact-match filter on a string field
func EqualsFilter[T any](key string, field func(T) string) NamedFilter[T] {
	return NamedFilter[T]{
		Key:   key,
		Apply: func(records []T, value string) []T { return ApplyFilter(records, field, value) },
	}
}

// ScoreFilter builds a score bucket filter on a numeric field
func ScoreFilter[T any](key string, score func(T) float64) NamedFilter[T] {
	return NamedFilter[T]{
		Key: key,
		Apply: func(records []T, value string) []T {
			return ApplyScoreBucket(records, ScoreBucket(value), score)
		},
	}
}
