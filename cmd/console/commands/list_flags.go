package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vault-console/internal/listing"
	"github.com/vault-console/internal/printer"
	"github.com/vault-console/internal/types"
)

// listFlags are the search, sort and pagination flags of the list commands
type listFlags struct {
	search   string
	sort     string
	order    string
	page     int
	pageSize int
}

func (f *listFlags) register(cmd *cobra.Command, sortKeys string) {
	cmd.Flags().StringVarP(&f.search, "search", "s", "", "Search text; every word must match")
	cmd.Flags().StringVar(&f.sort, "sort", "", "Sort column: "+sortKeys)
	cmd.Flags().StringVar(&f.order, "order", "asc", "Sort order: asc or desc")
	cmd.Flags().IntVarP(&f.page, "page", "p", 1, "Page number")
	cmd.Flags().IntVar(&f.pageSize, "page-size", 0, "Rows per page (default LIST_PAGE_SIZE)")
}

// state builds the list state; filters maps pipeline filter keys to values
func (f *listFlags) state(filters map[string]string) (*listing.State, error) {
	order := types.SortOrder(f.order)
	if !order.IsValid() {
		return nil, fmt.Errorf("--order must be asc or desc")
	}
	if f.page < 1 {
		return nil, fmt.Errorf("--page must be at least 1")
	}

	size := f.pageSize
	if size < 1 {
		size = app.cfg.List.PageSize
	}

	st := listing.NewState(size)
	st.SetSearch(f.search)
	for k, v := range filters {
		st.SetFilter(k, v)
	}
	st.SetSort(f.sort, order)
	st.SetPage(f.page)
	return st, nil
}

// renderPage prints a page as a table followed by its footer
func renderPage[T any](page listing.Page[T], headers []string, row func(T) []string) error {
	if page.Total == 0 {
		printer.Warning("No records found")
		return nil
	}
	rows := make([][]string, len(page.Items))
	for i, item := range page.Items {
		rows[i] = row(item)
	}
	if err := printer.Table(headers, rows); err != nil {
		return err
	}
	printer.PageFooter(page.CurrentPage, page.TotalPages, page.Total)
	return nil
}
