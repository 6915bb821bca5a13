package store

import (
	"context"
	"errors"

	"github.com/example/reading-platform/reader"
)

// ErrNotFound signals a missing book or question.
var ErrNotFound = errors.New("not found")

// CatalogStore defines all persistence operations for the book catalog.
// Books are served with their full page list; ListBooks returns summaries
// without pages.
type CatalogStore interface {
	ListBooks(ctx context.Context, limit, offset int) ([]reader.Book, error)
	GetBook(ctx context.Context, id string) (*reader.Book, error)
	CreateBook(ctx context.Context, b reader.Book) (reader.Book, error)
	GetQuestion(ctx context.Context, id string) (reader.Question, error)
	CreateQuestion(ctx context.Context, q reader.Question) (reader.Question, error)
}
