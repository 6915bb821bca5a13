package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/reading-platform/internal/platform/api"
	"github.com/example/reading-platform/internal/platform/auth"
	"github.com/example/reading-platform/internal/platform/events"
	"github.com/example/reading-platform/services/progress/internal/store"
)

type updateProgressRequest struct {
	CurrentPage int `json:"current_page"`
}

type bookmarkRequest struct {
	PageNumber int `json:"page_number"`
}

type createNoteRequest struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

// Routes mounts the per-user progress API under /v1/users/me/books.
// Every route requires a valid bearer token; the user id comes from the
// token subject, never from the URL.
func Routes(r chi.Router, ps store.ProgressStore, pub *events.Publisher, verifier auth.JWTVerifier) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(verifier))
		r.Get("/v1/users/me/books/{book_id}/progress", GetProgress(ps))
		r.Put("/v1/users/me/books/{book_id}/progress", UpdateProgress(ps, pub))
		r.Post("/v1/users/me/books/{book_id}/bookmarks", AddBookmark(ps))
		r.Delete("/v1/users/me/books/{book_id}/bookmarks/{page_number}", RemoveBookmark(ps))
		r.Post("/v1/users/me/books/{book_id}/notes", AddNote(ps, pub))
		r.Delete("/v1/users/me/books/{book_id}/notes/{note_id}", DeleteNote(ps))
	})
}

// GetProgress handles GET /v1/users/me/books/{book_id}/progress.
// A book never seen before gets a record at page 1, so the client can
// treat first-open and resume identically.
func GetProgress(ps store.ProgressStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, bookID, ok := requestScope(w, r)
		if !ok {
			return
		}
		p, err := ps.GetOrCreate(r.Context(), userID, bookID)
		if err != nil {
			api.Internal(w, "")
			return
		}
		api.WriteJSON(w, http.StatusOK, p)
	}
}

// UpdateProgress handles PUT /v1/users/me/books/{book_id}/progress.
func UpdateProgress(ps store.ProgressStore, pub *events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, bookID, ok := requestScope(w, r)
		if !ok {
			return
		}

		var req updateProgressRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", "", nil)
			return
		}
		if req.CurrentPage < 1 {
			api.BadRequest(w, "INVALID_PAGE", "current_page must be >= 1", "", nil)
			return
		}

		p, err := ps.UpdatePage(r.Context(), userID, bookID, req.CurrentPage)
		if err != nil {
			api.Internal(w, "")
			return
		}

		pub.Publish(events.SubjectPageUpdated, "page_updated", userID, bookID,
			map[string]any{"page": req.CurrentPage})

		api.WriteJSON(w, http.StatusOK, p)
	}
}

// AddBookmark handles POST /v1/users/me/books/{book_id}/bookmarks.
// Bookmarking an already-bookmarked page succeeds, so the client can
// retry or race toggles without special handling.
func AddBookmark(ps store.ProgressStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, bookID, ok := requestScope(w, r)
		if !ok {
			return
		}

		var req bookmarkRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", "", nil)
			return
		}
		if req.PageNumber < 1 {
			api.BadRequest(w, "INVALID_PAGE", "page_number must be >= 1", "", nil)
			return
		}

		if err := ps.AddBookmark(r.Context(), userID, bookID, req.PageNumber); err != nil {
			api.Internal(w, "")
			return
		}
		api.WriteJSON(w, http.StatusCreated, req)
	}
}

// RemoveBookmark handles DELETE /v1/users/me/books/{book_id}/bookmarks/{page_number}.
func RemoveBookmark(ps store.ProgressStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, bookID, ok := requestScope(w, r)
		if !ok {
			return
		}

		page, err := strconv.Atoi(chi.URLParam(r, "page_number"))
		if err != nil || page < 1 {
			api.BadRequest(w, "INVALID_PAGE", "page_number must be a positive integer", "", nil)
			return
		}

		if err := ps.RemoveBookmark(r.Context(), userID, bookID, page); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NOT_FOUND", "bookmark not found", "")
				return
			}
			api.Internal(w, "")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// AddNote handles POST /v1/users/me/books/{book_id}/notes.
func AddNote(ps store.ProgressStore, pub *events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, bookID, ok := requestScope(w, r)
		if !ok {
			return
		}

		var req createNoteRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", "", nil)
			return
		}
		if req.PageNumber < 1 {
			api.BadRequest(w, "INVALID_PAGE", "page_number must be >= 1", "", nil)
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			api.BadRequest(w, "EMPTY_TEXT", "text must not be empty", "", nil)
			return
		}

		note, err := ps.AddNote(r.Context(), userID, bookID, req.PageNumber, req.Text)
		if err != nil {
			api.Internal(w, "")
			return
		}

		pub.Publish(events.SubjectNoteAdded, "note_added", userID, bookID,
			map[string]any{"page": req.PageNumber})

		api.WriteJSON(w, http.StatusCreated, note)
	}
}

// DeleteNote handles DELETE /v1/users/me/books/{book_id}/notes/{note_id}.
func DeleteNote(ps store.ProgressStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, bookID, ok := requestScope(w, r)
		if !ok {
			return
		}

		noteID := strings.TrimSpace(chi.URLParam(r, "note_id"))
		if noteID == "" {
			api.BadRequest(w, "MISSING_ID", "note_id is required", "", nil)
			return
		}

		if err := ps.DeleteNote(r.Context(), userID, bookID, noteID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NOT_FOUND", "note not found", "")
				return
			}
			api.Internal(w, "")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// requestScope pulls the authenticated user and the book id out of the
// request, writing the error response itself on failure.
func requestScope(w http.ResponseWriter, r *http.Request) (userID, bookID string, ok bool) {
	userID, found := auth.UserIDFromContext(r.Context())
	if !found || userID == "" {
		api.Unauthorized(w, "UNAUTHORIZED", "authentication required", "")
		return "", "", false
	}
	bookID = strings.TrimSpace(chi.URLParam(r, "book_id"))
	if bookID == "" {
		api.BadRequest(w, "MISSING_ID", "book_id is required", "", nil)
		return "", "", false
	}
	return userID, bookID, true
}
