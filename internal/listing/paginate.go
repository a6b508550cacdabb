package listing

// Paginate returns the slice [(page-1)*size, page*size) of records. Pages
// past the end, and non-positive page or size, yield an empty slice.
func Paginate[T any](records []T, page, size int) []T {
	if page < 1 || size < 1 {
		return []T{}
	}
	// Compare page counts first; (page-1)*size can overflow
	if page-1 >= TotalPages(len(records), size) {
		return []T{}
	}

	start := (page - 1) * size
	end := start + min(size, len(records)-start)
	return records[start:end:end]
}

// TotalPages returns how many pages of size hold total records
func TotalPages(total, size int) int {
	if size < 1 || total <= 0 {
		return 0
	}
	pages := total / size
	if total%size != 0 {
		pages++
	}
	return pages
}
