package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/reading-platform/internal/platform/api"
	"github.com/example/reading-platform/internal/platform/auth"
	"github.com/example/reading-platform/internal/platform/events"
	"github.com/example/reading-platform/internal/platform/signing"
	"github.com/example/reading-platform/reader"
	"github.com/example/reading-platform/services/catalog/internal/store"
)

// imageSignTTL bounds how long a signed premium page-image URL stays valid.
const imageSignTTL = 4 * time.Hour

type listBooksResponse struct {
	Books []reader.Book `json:"books"`
}

// Books wires the catalog routes. signer and imageProxyURL enable signed
// URLs for premium page images; leave signer nil to serve raw URLs.
type Books struct {
	Store         store.CatalogStore
	Publisher     *events.Publisher
	Signer        *signing.Signer
	ImageProxyURL string
	Log           *zap.Logger
}

// Routes mounts the catalog API. Reads require a user; book creation
// additionally requires the admin role.
func (h *Books) Routes(r chi.Router, verifier auth.JWTVerifier) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(verifier))
		r.Get("/v1/books", h.ListBooks)
		r.Get("/v1/books/{book_id}", h.GetBook)
		r.Get("/v1/questions/{question_id}", h.GetQuestion)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Post("/v1/admin/books", h.CreateBook)
			r.Post("/v1/admin/questions", h.CreateQuestion)
		})
	})
}

// ListBooks handles GET /v1/books. Returns summaries without page content.
func (h *Books) ListBooks(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	offset := 0
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	books, err := h.Store.ListBooks(r.Context(), limit, offset)
	if err != nil {
		api.Internal(w, "")
		return
	}
	api.WriteJSON(w, http.StatusOK, listBooksResponse{Books: books})
}

// GetBook handles GET /v1/books/{book_id}. Premium books get their page
// image URLs rewritten through the signing proxy, bound to the requesting
// user.
func (h *Books) GetBook(w http.ResponseWriter, r *http.Request) {
	bookID := strings.TrimSpace(chi.URLParam(r, "book_id"))
	if bookID == "" {
		api.BadRequest(w, "MISSING_ID", "book_id is required", "", nil)
		return
	}

	book, err := h.Store.GetBook(r.Context(), bookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			api.NotFound(w, "NOT_FOUND", "book not found", "")
			return
		}
		api.Internal(w, "")
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	if book.IsPremium && h.Signer != nil {
		h.signPages(book, userID)
	}

	h.Publisher.Publish(events.SubjectBookViewed, "book_viewed", userID, book.ID, nil)

	api.WriteJSON(w, http.StatusOK, book)
}

// signPages rewrites every page image URL through the image proxy with an
// HMAC binding it to the user. A rewrite failure keeps the raw URL.
func (h *Books) signPages(book *reader.Book, userID string) {
	exp := time.Now().Add(imageSignTTL)
	for i, p := range book.Pages {
		if p.ImageURL == "" {
			continue
		}
		signed := h.Signer.Sign(p.ImageURL, userID, exp)
		u, err := signing.BuildSignedURL(h.ImageProxyURL, signed)
		if err != nil {
			if h.Log != nil {
				h.Log.Warn("sign page image", zap.String("book_id", book.ID), zap.Error(err))
			}
			continue
		}
		book.Pages[i].ImageURL = u
	}
}

// GetQuestion handles GET /v1/questions/{question_id}.
func (h *Books) GetQuestion(w http.ResponseWriter, r *http.Request) {
	questionID := strings.TrimSpace(chi.URLParam(r, "question_id"))
	if questionID == "" {
		api.BadRequest(w, "MISSING_ID", "question_id is required", "", nil)
		return
	}

	q, err := h.Store.GetQuestion(r.Context(), questionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			api.NotFound(w, "NOT_FOUND", "question not found", "")
			return
		}
		api.Internal(w, "")
		return
	}
	api.WriteJSON(w, http.StatusOK, q)
}

// CreateBook handles POST /v1/admin/books.
func (h *Books) CreateBook(w http.ResponseWriter, r *http.Request) {
	var book reader.Book
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 8<<20)).Decode(&book); err != nil {
		api.BadRequest(w, "INVALID_JSON", "invalid JSON", "", nil)
		return
	}
	if strings.TrimSpace(book.Title) == "" {
		api.BadRequest(w, "MISSING_TITLE", "title is required", "", nil)
		return
	}
	for _, p := range book.Pages {
		if p.PageNumber < 1 {
			api.BadRequest(w, "INVALID_PAGE", "page numbers must be >= 1", "", nil)
			return
		}
	}

	created, err := h.Store.CreateBook(r.Context(), book)
	if err != nil {
		api.Internal(w, "")
		return
	}
	api.WriteJSON(w, http.StatusCreated, created)
}

// CreateQuestion handles POST /v1/admin/questions.
func (h *Books) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	var q reader.Question
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&q); err != nil {
		api.BadRequest(w, "INVALID_JSON", "invalid JSON", "", nil)
		return
	}
	if strings.TrimSpace(q.Text) == "" {
		api.BadRequest(w, "MISSING_TEXT", "text is required", "", nil)
		return
	}

	created, err := h.Store.CreateQuestion(r.Context(), q)
	if err != nil {
		api.Internal(w, "")
		return
	}
	api.WriteJSON(w, http.StatusCreated, created)
}
