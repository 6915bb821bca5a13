// Package reader holds the domain types shared by the reading-session
// subsystem: books, their pages, and the philosophy questions attached to
// them.
package reader

import "errors"

// ErrNotReadable marks a book that lacks page data and therefore cannot
// be opened in reading mode.
var ErrNotReadable = errors.New("reader: book is not readable")

// ErrNotFound is returned by catalog lookups that miss.
var ErrNotFound = errors.New("reader: not found")

// TOCItem is a jump target in a book's table of contents.
type TOCItem struct {
	Title      string `json:"title"`
	PageNumber int    `json:"page_number"`
}

// PageItem is a single illustrated page. QuestionID, when set, links the
// page to a philosophy question surfaced while reading.
type PageItem struct {
	PageNumber int    `json:"page_number"`
	ImageURL   string `json:"image_url"`
	AudioURL   string `json:"audio_url,omitempty"`
	QuestionID string `json:"question_id,omitempty"`
}

type Book struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	AuthorName      string     `json:"author_name"`
	CoverURL        string     `json:"cover_url,omitempty"`
	AgeRange        string     `json:"age_range,omitempty"`
	IsPremium       bool       `json:"is_premium,omitempty"`
	TotalPages      int        `json:"total_pages,omitempty"`
	Pages           []PageItem `json:"pages,omitempty"`
	TableOfContents []TOCItem  `json:"table_of_contents,omitempty"`
}

// Readable reports whether the book carries enough page data to be opened
// in reading mode.
func (b *Book) Readable() bool {
	return b != nil && b.TotalPages > 0 && len(b.Pages) > 0
}

// Page returns the page item for the given page number. Page numbers are
// unique within a book but not required to be contiguous, so this scans
// rather than indexes.
func (b *Book) Page(n int) (PageItem, bool) {
	if b == nil {
		return PageItem{}, false
	}
	for _, p := range b.Pages {
		if p.PageNumber == n {
			return p, true
		}
	}
	return PageItem{}, false
}

// Question is a philosophy question; looked up by id, never mutated by a
// reading session.
type Question struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Type       string   `json:"type,omitempty"`       // MultipleChoice or OpenEnded
	Difficulty string   `json:"difficulty,omitempty"` // Easy or Hard
	Options    []string `json:"options,omitempty"`
}
