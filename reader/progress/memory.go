package progress

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-memory Store used by tests and offline sessions.
type Memory struct {
	mu      sync.Mutex
	records map[string]*memRecord
}

type memRecord struct {
	currentPage int
	bookmarks   map[int]struct{}
	notes       []Note
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]*memRecord)}
}

func (m *Memory) get(bookID string) *memRecord {
	r, ok := m.records[bookID]
	if !ok {
		r = &memRecord{currentPage: 1, bookmarks: make(map[int]struct{})}
		m.records[bookID] = r
	}
	return r
}

func (m *Memory) snapshot(r *memRecord) Record {
	out := Record{CurrentPage: r.currentPage}
	for p := range r.bookmarks {
		out.Bookmarks = append(out.Bookmarks, p)
	}
	sort.Ints(out.Bookmarks)
	out.Notes = append(out.Notes, r.notes...)
	return out
}

func (m *Memory) Load(_ context.Context, bookID string) Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot(m.get(bookID))
}

func (m *Memory) UpdatePage(_ context.Context, bookID string, page int) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.get(bookID)
	r.currentPage = page
	return m.snapshot(r), nil
}

func (m *Memory) AddBookmark(_ context.Context, bookID string, page int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(bookID).bookmarks[page] = struct{}{}
	return nil
}

func (m *Memory) RemoveBookmark(_ context.Context, bookID string, page int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.get(bookID).bookmarks, page)
	return nil
}

func (m *Memory) AddNote(_ context.Context, bookID string, page int, text string) (Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	note := Note{ID: uuid.NewString(), PageNumber: page, Text: text}
	r := m.get(bookID)
	r.notes = append(r.notes, note)
	return note, nil
}

func (m *Memory) DeleteNote(_ context.Context, bookID, noteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.get(bookID)
	for i, n := range r.notes {
		if n.ID == noteID {
			r.notes = append(r.notes[:i], r.notes[i+1:]...)
			break
		}
	}
	return nil
}
