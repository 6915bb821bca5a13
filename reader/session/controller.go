// Package session implements the reading-session state machine: page
// navigation, bookmarks and notes, contextual question triggering, and
// completion detection, kept in sync with a remote progress store.
package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/example/reading-platform/reader"
	"github.com/example/reading-platform/reader/progress"
)

// Events carries the callbacks raised on page transitions. All fields are
// optional. Events fire synchronously on the goroutine that performed the
// navigation, before the corresponding persistence call is dispatched, so
// consumers can react on the same tick even while the write is in flight.
type Events struct {
	PageChanged     func(page int)
	QuestionDue     func(q reader.Question)
	SessionComplete func()
}

// Controller is the single source of truth for the page the reader is
// on. Every navigation passes through it: inputs outside the book's page
// range are ignored, side effects are evaluated synchronously, and
// persistence runs in the background with stale responses discarded.
type Controller struct {
	store  progress.Store
	events Events
	log    *zap.Logger

	mu      sync.Mutex
	book    *reader.Book
	page    int
	gen     uint64 // bumped on Reset; async results from older sessions are dropped
	trigger *QuestionTrigger
	annots  *Annotations

	pending sync.WaitGroup
}

// Start opens a reading session for book. The stored progress record
// determines the starting page (1 when no record exists or the load
// fails). Books without page data fail with reader.ErrNotReadable and no
// session state is established.
func Start(ctx context.Context, book *reader.Book, store progress.Store, questions QuestionSource, events Events, log *zap.Logger) (*Controller, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Controller{store: store, events: events, log: log}
	if err := c.init(ctx, book, questions); err != nil {
		return nil, err
	}
	return c, nil
}

// Reset tears down the previous book's session state and re-initializes
// the controller for a new book. Results of in-flight persistence calls
// and trigger evaluations tied to the previous book are discarded.
func (c *Controller) Reset(ctx context.Context, book *reader.Book, questions QuestionSource) error {
	return c.init(ctx, book, questions)
}

func (c *Controller) init(ctx context.Context, book *reader.Book, questions QuestionSource) error {
	if !book.Readable() {
		id := ""
		if book != nil {
			id = book.ID
		}
		return fmt.Errorf("open book %q: %w", id, reader.ErrNotReadable)
	}

	rec := c.store.Load(ctx, book.ID)
	page := rec.CurrentPage
	if page < 1 {
		page = 1
	}
	if page > book.TotalPages {
		page = book.TotalPages
	}

	c.mu.Lock()
	c.book = book
	c.page = page
	c.gen++
	c.trigger = NewQuestionTrigger(book, questions, c.log)
	c.annots = newAnnotations(c, book.ID, rec)
	c.mu.Unlock()

	c.log.Info("reading session started",
		zap.String("book_id", book.ID), zap.Int("page", page), zap.Int("total_pages", book.TotalPages))
	return nil
}

// Book returns the book currently open.
func (c *Controller) Book() *reader.Book {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.book
}

// CurrentPage returns the page the reader is on.
func (c *Controller) CurrentPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// Annotations returns the bookmark and note manager for the open book.
func (c *Controller) Annotations() *Annotations {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.annots
}

// GoToPage navigates to page n. Requests outside [1, TotalPages] are
// silently ignored, as is navigation to the page already shown; the
// navigation buttons are expected to be disabled at the boundaries, so an
// out-of-range request is not an error. A valid transition updates local
// state, evaluates the question and completion triggers on the calling
// goroutine, and then persists the new page in the background.
func (c *Controller) GoToPage(ctx context.Context, n int) {
	c.mu.Lock()
	book := c.book
	if book == nil || n < 1 || n > book.TotalPages || n == c.page {
		c.mu.Unlock()
		return
	}
	c.page = n
	gen := c.gen
	trigger := c.trigger
	c.mu.Unlock()

	if c.events.PageChanged != nil {
		c.events.PageChanged(n)
	}
	if q, ok := trigger.Check(ctx, n); ok && c.events.QuestionDue != nil {
		c.events.QuestionDue(q)
	}
	if IsComplete(n, book.TotalPages) && c.events.SessionComplete != nil {
		c.events.SessionComplete()
	}

	c.dispatch(func() {
		rec, err := c.store.UpdatePage(ctx, book.ID, n)
		if err != nil {
			// The local page stays where the reader put it; an unsynced
			// position beats yanking the page out from under them.
			c.log.Warn("persist page failed",
				zap.String("book_id", book.ID), zap.Int("page", n), zap.Error(err))
			return
		}
		c.reconcile(gen, rec)
	})
}

// NextPage advances one page.
func (c *Controller) NextPage(ctx context.Context) {
	c.GoToPage(ctx, c.CurrentPage()+1)
}

// PrevPage goes back one page.
func (c *Controller) PrevPage(ctx context.Context) {
	c.GoToPage(ctx, c.CurrentPage()-1)
}

// Wait blocks until all background persistence calls have finished.
// Intended for shutdown and tests.
func (c *Controller) Wait() {
	c.pending.Wait()
}

// reconcile applies a server progress record only when it confirms the
// current local page of the current session. Responses arriving out of
// order, or after a Reset, are dropped: the local page is authoritative
// regardless of response arrival order.
func (c *Controller) reconcile(gen uint64, rec progress.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || rec.CurrentPage != c.page {
		c.log.Debug("dropping stale progress response",
			zap.Int("server_page", rec.CurrentPage), zap.Int("local_page", c.page))
		return
	}
	// The server confirmed the local value; there is nothing to apply.
}

func (c *Controller) dispatch(fn func()) {
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		fn()
	}()
}
