package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryProgressStore is a development-only in-memory implementation.
type InMemoryProgressStore struct {
	mu      sync.RWMutex
	records map[progressKey]*memProgress
}

type progressKey struct {
	userID string
	bookID string
}

type memProgress struct {
	currentPage int
	bookmarks   map[int]struct{}
	notes       []Note
	updatedAt   time.Time
}

func NewInMemoryProgressStore() *InMemoryProgressStore {
	return &InMemoryProgressStore{records: make(map[progressKey]*memProgress)}
}

// getOrCreateLocked assumes the write lock is held.
func (s *InMemoryProgressStore) getOrCreateLocked(userID, bookID string) *memProgress {
	key := progressKey{userID, bookID}
	rec, ok := s.records[key]
	if !ok {
		rec = &memProgress{
			currentPage: 1,
			bookmarks:   make(map[int]struct{}),
			updatedAt:   time.Now().UTC(),
		}
		s.records[key] = rec
	}
	return rec
}

func (s *InMemoryProgressStore) snapshot(userID, bookID string, rec *memProgress) Progress {
	pages := make([]int, 0, len(rec.bookmarks))
	for p := range rec.bookmarks {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	notes := make([]Note, len(rec.notes))
	copy(notes, rec.notes)

	return Progress{
		UserID:      userID,
		BookID:      bookID,
		CurrentPage: rec.currentPage,
		Bookmarks:   pages,
		Notes:       notes,
		UpdatedAt:   rec.updatedAt,
	}
}

func (s *InMemoryProgressStore) GetOrCreate(_ context.Context, userID, bookID string) (Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.getOrCreateLocked(userID, bookID)
	return s.snapshot(userID, bookID, rec), nil
}

func (s *InMemoryProgressStore) UpdatePage(_ context.Context, userID, bookID string, page int) (Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.getOrCreateLocked(userID, bookID)
	rec.currentPage = page
	rec.updatedAt = time.Now().UTC()
	return s.snapshot(userID, bookID, rec), nil
}

func (s *InMemoryProgressStore) AddBookmark(_ context.Context, userID, bookID string, page int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.getOrCreateLocked(userID, bookID)
	rec.bookmarks[page] = struct{}{}
	return nil
}

func (s *InMemoryProgressStore) RemoveBookmark(_ context.Context, userID, bookID string, page int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.getOrCreateLocked(userID, bookID)
	if _, ok := rec.bookmarks[page]; !ok {
		return ErrNotFound
	}
	delete(rec.bookmarks, page)
	return nil
}

func (s *InMemoryProgressStore) AddNote(_ context.Context, userID, bookID string, page int, text string) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.getOrCreateLocked(userID, bookID)
	note := Note{
		ID:         uuid.New().String(),
		PageNumber: page,
		Text:       text,
		CreatedAt:  time.Now().UTC(),
	}
	rec.notes = append(rec.notes, note)
	return note, nil
}

func (s *InMemoryProgressStore) DeleteNote(_ context.Context, userID, bookID, noteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.getOrCreateLocked(userID, bookID)
	for i, n := range rec.notes {
		if n.ID == noteID {
			rec.notes = append(rec.notes[:i], rec.notes[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
