package session

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/reading-platform/reader/progress"
)

// localIDPrefix marks note ids that have not yet been confirmed by the
// store. They are valid list keys but must not be sent to the server.
const localIDPrefix = "local-"

// Annotations manages the bookmark set and note list for the book
// currently open, mirroring every local change to the progress store.
// Local mutations apply immediately and are never rolled back when the
// corresponding write fails; the failure is logged and the reading
// session continues.
type Annotations struct {
	c      *Controller
	bookID string

	mu        sync.Mutex
	bookmarks map[int]struct{}
	notes     []progress.Note
}

func newAnnotations(c *Controller, bookID string, rec progress.Record) *Annotations {
	a := &Annotations{c: c, bookID: bookID, bookmarks: make(map[int]struct{})}
	for _, p := range rec.Bookmarks {
		a.bookmarks[p] = struct{}{}
	}
	a.notes = append(a.notes, rec.Notes...)
	return a
}

// ToggleBookmark adds page to the bookmark set, or removes it when
// already present, and reports whether the page is now bookmarked. The
// toggle is its own inverse.
func (a *Annotations) ToggleBookmark(ctx context.Context, page int) bool {
	a.mu.Lock()
	_, had := a.bookmarks[page]
	if had {
		delete(a.bookmarks, page)
	} else {
		a.bookmarks[page] = struct{}{}
	}
	a.mu.Unlock()

	a.c.dispatch(func() {
		var err error
		if had {
			err = a.c.store.RemoveBookmark(ctx, a.bookID, page)
		} else {
			err = a.c.store.AddBookmark(ctx, a.bookID, page)
		}
		if err != nil {
			a.c.log.Warn("persist bookmark failed",
				zap.String("book_id", a.bookID), zap.Int("page", page),
				zap.Bool("removed", had), zap.Error(err))
		}
	})
	return !had
}

// Bookmarked reports whether page is in the bookmark set.
func (a *Annotations) Bookmarked(page int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.bookmarks[page]
	return ok
}

// Bookmarks returns the bookmarked pages in ascending order.
func (a *Annotations) Bookmarks() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]int, 0, len(a.bookmarks))
	for p := range a.bookmarks {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// AddNote records a note against page. Blank or whitespace-only text is
// rejected without touching the store. The note appears immediately under
// a temporary local id; the durable id replaces it once the store
// responds.
func (a *Annotations) AddNote(ctx context.Context, page int, text string) (progress.Note, bool) {
	if strings.TrimSpace(text) == "" {
		return progress.Note{}, false
	}

	local := progress.Note{ID: localIDPrefix + uuid.NewString(), PageNumber: page, Text: text}
	a.mu.Lock()
	a.notes = append(a.notes, local)
	a.mu.Unlock()

	a.c.dispatch(func() {
		persisted, err := a.c.store.AddNote(ctx, a.bookID, page, text)
		if err != nil {
			a.c.log.Warn("persist note failed",
				zap.String("book_id", a.bookID), zap.Int("page", page), zap.Error(err))
			return
		}
		a.mu.Lock()
		for i := range a.notes {
			if a.notes[i].ID == local.ID {
				a.notes[i].ID = persisted.ID
				break
			}
		}
		a.mu.Unlock()
	})
	return local, true
}

// DeleteNote removes the note locally and from the store. Notes still
// carrying a temporary id are removed locally only, since the server
// never assigned them an id to delete by.
func (a *Annotations) DeleteNote(ctx context.Context, noteID string) {
	a.mu.Lock()
	found := false
	for i, n := range a.notes {
		if n.ID == noteID {
			a.notes = append(a.notes[:i], a.notes[i+1:]...)
			found = true
			break
		}
	}
	a.mu.Unlock()
	if !found || strings.HasPrefix(noteID, localIDPrefix) {
		return
	}

	a.c.dispatch(func() {
		if err := a.c.store.DeleteNote(ctx, a.bookID, noteID); err != nil {
			a.c.log.Warn("delete note failed",
				zap.String("book_id", a.bookID), zap.String("note_id", noteID), zap.Error(err))
		}
	})
}

// NotesForPage filters the note list by page. It is a read-only
// projection of the single note sequence, not a separate store.
func (a *Annotations) NotesForPage(page int) []progress.Note {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []progress.Note
	for _, n := range a.notes {
		if n.PageNumber == page {
			out = append(out, n)
		}
	}
	return out
}

// Notes returns all notes in insertion order.
func (a *Annotations) Notes() []progress.Note {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]progress.Note, len(a.notes))
	copy(out, a.notes)
	return out
}
