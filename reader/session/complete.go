package session

// IsComplete reports whether reaching currentPage finishes a book of
// totalPages pages. It is evaluated as part of a page transition, not
// polled, and is deliberately not sticky: leaving the last page and
// returning completes the session again.
func IsComplete(currentPage, totalPages int) bool {
	return totalPages > 0 && currentPage == totalPages
}
