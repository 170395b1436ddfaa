package query

// PageCount is the number of pages needed for n entries.
func PageCount(n, perPage int) int {
	if perPage <= 0 || n == 0 {
		return 1
	}
	return (n + perPage - 1) / perPage
}

// Page returns the entries on the zero-based page, clamping page into range.
func Page(entries []Entry, page, perPage int) ([]Entry, int) {
	if perPage <= 0 {
		return entries, 0
	}
	last := PageCount(len(entries), perPage) - 1
	page = max(0, min(page, last))
	start := page * perPage
	end := min(start+perPage, len(entries))
	return entries[start:end], page
}
