package domain

// PaginationParams selects one page of an in-document list such as a guestlist.
// A zero PageSize means the whole list.
type PaginationParams struct {
	Page     int
	PageSize int
}

// Window returns the half-open [start, end) slice bounds of the page within a
// list of n items. Pages past the end yield an empty window at n.
func (p PaginationParams) Window(n int) (start, end int) {
	if p.PageSize <= 0 {
		return 0, n
	}
	skip := max(p.Page, 1) - 1
	// Compared before multiplying so a huge page cannot overflow into a negative offset.
	if skip > n/p.PageSize {
		return n, n
	}
	start = min(skip*p.PageSize, n)
	end = min(start+p.PageSize, n)
	return start, end
}
