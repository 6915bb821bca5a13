package store

import (
	"context"
	"errors"
	"time"
)

// Progress is the full per-(user, book) reading state: current page plus
// the bookmark and note annotations attached to it.
type Progress struct {
	UserID      string    `json:"-"`
	BookID      string    `json:"book_id"`
	CurrentPage int       `json:"current_page"`
	Bookmarks   []int     `json:"bookmarks"`
	Notes       []Note    `json:"notes"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Note is one reader note. Several notes may share a page.
type Note struct {
	ID         string    `json:"id"`
	PageNumber int       `json:"page_number"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

// ErrNotFound signals a missing bookmark or note.
var ErrNotFound = errors.New("not found")

// ProgressStore defines the contract for reading-progress persistence.
// GetOrCreate materializes a record at page 1 the first time a (user, book)
// pair is seen; every other method assumes the record may not exist yet
// and creates it as needed.
type ProgressStore interface {
	GetOrCreate(ctx context.Context, userID, bookID string) (Progress, error)
	UpdatePage(ctx context.Context, userID, bookID string, page int) (Progress, error)
	// AddBookmark is idempotent: bookmarking an already-bookmarked page
	// succeeds without effect.
	AddBookmark(ctx context.Context, userID, bookID string, page int) error
	// RemoveBookmark returns ErrNotFound when the page is not bookmarked.
	RemoveBookmark(ctx context.Context, userID, bookID string, page int) error
	AddNote(ctx context.Context, userID, bookID string, page int, text string) (Note, error)
	// DeleteNote returns ErrNotFound when the note does not exist or
	// belongs to a different user or book.
	DeleteNote(ctx context.Context, userID, bookID, noteID string) error
}
