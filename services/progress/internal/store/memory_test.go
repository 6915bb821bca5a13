package store

import (
	"context"
	"errors"
	"testing"
)

func TestGetOrCreate_StartsAtPageOne(t *testing.T) {
	s := NewInMemoryProgressStore()
	ctx := context.Background()

	p, err := s.GetOrCreate(ctx, "user-a", "book-1")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if p.CurrentPage != 1 {
		t.Fatalf("expected new record at page 1, got %d", p.CurrentPage)
	}
	if len(p.Bookmarks) != 0 || len(p.Notes) != 0 {
		t.Fatalf("expected empty annotations, got %+v", p)
	}

	// Second call returns the same record, not a reset one.
	if _, err := s.UpdatePage(ctx, "user-a", "book-1", 8); err != nil {
		t.Fatalf("update page: %v", err)
	}
	p, _ = s.GetOrCreate(ctx, "user-a", "book-1")
	if p.CurrentPage != 8 {
		t.Fatalf("expected existing record at page 8, got %d", p.CurrentPage)
	}
}

func TestBookmarks_IdempotentAddSortedList(t *testing.T) {
	s := NewInMemoryProgressStore()
	ctx := context.Background()

	_ = s.AddBookmark(ctx, "user-a", "book-1", 9)
	_ = s.AddBookmark(ctx, "user-a", "book-1", 2)
	_ = s.AddBookmark(ctx, "user-a", "book-1", 9) // duplicate

	p, _ := s.GetOrCreate(ctx, "user-a", "book-1")
	if len(p.Bookmarks) != 2 || p.Bookmarks[0] != 2 || p.Bookmarks[1] != 9 {
		t.Fatalf("expected sorted bookmarks [2 9], got %v", p.Bookmarks)
	}

	if err := s.RemoveBookmark(ctx, "user-a", "book-1", 9); err != nil {
		t.Fatalf("remove bookmark: %v", err)
	}
	if err := s.RemoveBookmark(ctx, "user-a", "book-1", 9); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second removal, got %v", err)
	}
}

func TestNotes_Lifecycle(t *testing.T) {
	s := NewInMemoryProgressStore()
	ctx := context.Background()

	n1, err := s.AddNote(ctx, "user-a", "book-1", 3, "first")
	if err != nil {
		t.Fatalf("add note: %v", err)
	}
	n2, _ := s.AddNote(ctx, "user-a", "book-1", 3, "second")
	if n1.ID == "" || n1.ID == n2.ID {
		t.Fatalf("expected distinct note ids, got %q and %q", n1.ID, n2.ID)
	}

	p, _ := s.GetOrCreate(ctx, "user-a", "book-1")
	if len(p.Notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(p.Notes))
	}

	if err := s.DeleteNote(ctx, "user-a", "book-1", n1.ID); err != nil {
		t.Fatalf("delete note: %v", err)
	}
	if err := s.DeleteNote(ctx, "user-a", "book-1", n1.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for deleted note, got %v", err)
	}
	if err := s.DeleteNote(ctx, "user-b", "book-1", n2.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another user's note, got %v", err)
	}
}

func TestRecords_ScopedPerUserAndBook(t *testing.T) {
	s := NewInMemoryProgressStore()
	ctx := context.Background()

	_, _ = s.UpdatePage(ctx, "user-a", "book-1", 5)
	_ = s.AddBookmark(ctx, "user-a", "book-1", 5)

	for _, tc := range []struct{ user, book string }{
		{"user-b", "book-1"},
		{"user-a", "book-2"},
	} {
		p, _ := s.GetOrCreate(ctx, tc.user, tc.book)
		if p.CurrentPage != 1 || len(p.Bookmarks) != 0 {
			t.Fatalf("%s/%s: expected fresh record, got %+v", tc.user, tc.book, p)
		}
	}
}
