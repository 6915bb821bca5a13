package store

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/example/reading-platform/reader"
)

// InMemoryCatalogStore is a development-only in-memory implementation,
// optionally pre-seeded with sample books.
type InMemoryCatalogStore struct {
	mu        sync.RWMutex
	books     map[string]reader.Book
	questions map[string]reader.Question
	order     []string // insertion order for stable listing
}

func NewInMemoryCatalogStore() *InMemoryCatalogStore {
	return &InMemoryCatalogStore{
		books:     make(map[string]reader.Book),
		questions: make(map[string]reader.Question),
	}
}

// NewSeededCatalogStore returns a store with a small development catalog.
func NewSeededCatalogStore() *InMemoryCatalogStore {
	s := NewInMemoryCatalogStore()
	ctx := context.Background()

	q1, _ := s.CreateQuestion(ctx, reader.Question{
		Text:       "Why do you think the bear shared his honey?",
		Type:       "OpenEnded",
		Difficulty: "Easy",
	})
	q2, _ := s.CreateQuestion(ctx, reader.Question{
		Text:       "Can something be fair for one friend and unfair for another?",
		Type:       "OpenEnded",
		Difficulty: "Hard",
	})

	bear := reader.Book{
		Title:      "The Bear Who Shared",
		AuthorName: "M. Ishikawa",
		AgeRange:   "4-6",
		TotalPages: 12,
	}
	for i := 1; i <= 12; i++ {
		p := reader.PageItem{PageNumber: i, ImageURL: "https://cdn.example.com/bear/" + pageName(i)}
		if i == 6 {
			p.QuestionID = q1.ID
		}
		bear.Pages = append(bear.Pages, p)
	}
	bear.TableOfContents = []reader.TOCItem{
		{Title: "The Hollow Tree", PageNumber: 1},
		{Title: "Honey for Everyone", PageNumber: 7},
	}
	_, _ = s.CreateBook(ctx, bear)

	moon := reader.Book{
		Title:      "A Lantern for the Moon",
		AuthorName: "R. Okafor",
		AgeRange:   "6-8",
		IsPremium:  true,
		TotalPages: 16,
	}
	for i := 1; i <= 16; i++ {
		p := reader.PageItem{PageNumber: i, ImageURL: "https://cdn.example.com/moon/" + pageName(i)}
		if i == 11 {
			p.QuestionID = q2.ID
		}
		moon.Pages = append(moon.Pages, p)
	}
	_, _ = s.CreateBook(ctx, moon)

	return s
}

func pageName(n int) string {
	return "page-" + strconv.Itoa(n) + ".png"
}

func (s *InMemoryCatalogStore) ListBooks(_ context.Context, limit, offset int) ([]reader.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	ids := make([]string, len(s.order))
	copy(ids, s.order)
	sort.Strings(ids)

	if offset >= len(ids) {
		return []reader.Book{}, nil
	}
	ids = ids[offset:]
	if len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]reader.Book, 0, len(ids))
	for _, id := range ids {
		b := s.books[id]
		// summaries only
		b.Pages = nil
		b.TableOfContents = nil
		out = append(out, b)
	}
	return out, nil
}

func (s *InMemoryCatalogStore) GetBook(_ context.Context, id string) (*reader.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := b
	return &out, nil
}

func (s *InMemoryCatalogStore) CreateBook(_ context.Context, b reader.Book) (reader.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.TotalPages == 0 {
		b.TotalPages = len(b.Pages)
	}
	s.books[b.ID] = b
	s.order = append(s.order, b.ID)
	return b, nil
}

func (s *InMemoryCatalogStore) GetQuestion(_ context.Context, id string) (reader.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return reader.Question{}, ErrNotFound
	}
	return q, nil
}

func (s *InMemoryCatalogStore) CreateQuestion(_ context.Context, q reader.Question) (reader.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	s.questions[q.ID] = q
	return q, nil
}
