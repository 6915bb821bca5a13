// Package progress synchronizes per-book reading progress (current page,
// bookmarks, notes) with the remote progress service.
package progress

import "context"

// Note is a per-page reader note. The id is assigned by the persistence
// layer on creation; several notes may share a page.
type Note struct {
	ID         string `json:"id"`
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

// Record is the durable (currentPage, bookmarks, notes) tuple for one
// (user, book) pair.
type Record struct {
	CurrentPage int    `json:"current_page"`
	Bookmarks   []int  `json:"bookmarks"`
	Notes       []Note `json:"notes"`
}

// DefaultRecord is the record a book starts with the first time it is
// opened: page 1, no bookmarks, no notes.
func DefaultRecord() Record {
	return Record{CurrentPage: 1}
}

// Store is the persistence boundary for reading progress. Implementations
// must tolerate failure: a session is never blocked by an unavailable
// store, so Load degrades to a default record instead of failing, and
// write errors are reported for logging but carry no rollback obligation.
type Store interface {
	// Load returns the progress record for bookID, or a fresh default
	// record when none exists or the fetch fails.
	Load(ctx context.Context, bookID string) Record
	// UpdatePage persists the current page and returns the record as the
	// server now sees it. Callers decide whether the response still
	// matches their local state before applying anything from it.
	UpdatePage(ctx context.Context, bookID string, page int) (Record, error)
	AddBookmark(ctx context.Context, bookID string, page int) error
	RemoveBookmark(ctx context.Context, bookID string, page int) error
	// AddNote persists a note and returns it with its durable id.
	AddNote(ctx context.Context, bookID string, page int, text string) (Note, error)
	DeleteNote(ctx context.Context, bookID, noteID string) error
}
