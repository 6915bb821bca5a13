package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/example/reading-platform/internal/platform/auth"
	"github.com/example/reading-platform/internal/platform/signing"
	"github.com/example/reading-platform/reader"
	"github.com/example/reading-platform/services/catalog/internal/store"
)

func setupReq(method, target, body string, params map[string]string, userID string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if userID != "" {
		ctx = auth.WithUserID(ctx, userID)
	}
	return req.WithContext(ctx)
}

func makeToken(t *testing.T, secret []byte, subject, role string) string {
	t.Helper()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role: role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func seededHandler() (*Books, *store.InMemoryCatalogStore) {
	cs := store.NewSeededCatalogStore()
	return &Books{Store: cs}, cs
}

func TestListBooks(t *testing.T) {
	h, _ := seededHandler()

	req := setupReq(http.MethodGet, "/v1/books?limit=10", "", nil, "user-a")
	rr := httptest.NewRecorder()
	h.ListBooks(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp listBooksResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Books) != 2 {
		t.Fatalf("expected 2 seeded books, got %d", len(resp.Books))
	}
	for _, b := range resp.Books {
		if len(b.Pages) != 0 {
			t.Fatalf("expected list to omit page content, got %d pages for %s", len(b.Pages), b.ID)
		}
	}
}

func TestGetBook(t *testing.T) {
	h, cs := seededHandler()
	books, _ := cs.ListBooks(context.Background(), 10, 0)
	var free reader.Book
	for _, b := range books {
		if !b.IsPremium {
			free = b
		}
	}

	req := setupReq(http.MethodGet, "/v1/books/"+free.ID, "",
		map[string]string{"book_id": free.ID}, "user-a")
	rr := httptest.NewRecorder()
	h.GetBook(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var got reader.Book
	_ = json.NewDecoder(rr.Body).Decode(&got)
	if !got.Readable() {
		t.Fatalf("expected readable book with pages, got %+v", got)
	}
	if got.TotalPages != len(got.Pages) {
		t.Fatalf("expected %d pages, got %d", got.TotalPages, len(got.Pages))
	}
}

func TestGetBook_NotFound(t *testing.T) {
	h, _ := seededHandler()
	req := setupReq(http.MethodGet, "/v1/books/nope", "",
		map[string]string{"book_id": "nope"}, "user-a")
	rr := httptest.NewRecorder()
	h.GetBook(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestGetBook_PremiumPagesAreSigned(t *testing.T) {
	h, cs := seededHandler()
	h.Signer = signing.New("image-secret")
	h.ImageProxyURL = "https://images.example.com/proxy"

	books, _ := cs.ListBooks(context.Background(), 10, 0)
	var premium reader.Book
	for _, b := range books {
		if b.IsPremium {
			premium = b
		}
	}

	req := setupReq(http.MethodGet, "/v1/books/"+premium.ID, "",
		map[string]string{"book_id": premium.ID}, "user-a")
	rr := httptest.NewRecorder()
	h.GetBook(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var got reader.Book
	_ = json.NewDecoder(rr.Body).Decode(&got)

	for _, p := range got.Pages {
		if !strings.HasPrefix(p.ImageURL, h.ImageProxyURL) {
			t.Fatalf("expected signed proxy URL, got %q", p.ImageURL)
		}
		u, err := url.Parse(p.ImageURL)
		if err != nil {
			t.Fatalf("parse signed url: %v", err)
		}
		rawURL, uid, exp, sig, err := signing.ExtractSigned(u.Query())
		if err != nil {
			t.Fatalf("extract signed params: %v", err)
		}
		if uid != "user-a" {
			t.Fatalf("expected signature bound to user-a, got %q", uid)
		}
		if !h.Signer.Verify(rawURL, uid, exp, sig) {
			t.Fatal("expected signature to verify")
		}
	}
}

func TestGetBook_FreeBookKeepsRawURLs(t *testing.T) {
	h, cs := seededHandler()
	h.Signer = signing.New("image-secret")
	h.ImageProxyURL = "https://images.example.com/proxy"

	books, _ := cs.ListBooks(context.Background(), 10, 0)
	var free reader.Book
	for _, b := range books {
		if !b.IsPremium {
			free = b
		}
	}

	req := setupReq(http.MethodGet, "/v1/books/"+free.ID, "",
		map[string]string{"book_id": free.ID}, "user-a")
	rr := httptest.NewRecorder()
	h.GetBook(rr, req)

	var got reader.Book
	_ = json.NewDecoder(rr.Body).Decode(&got)
	for _, p := range got.Pages {
		if strings.HasPrefix(p.ImageURL, h.ImageProxyURL) {
			t.Fatalf("free book pages should not be proxied, got %q", p.ImageURL)
		}
	}
}

func TestGetQuestion(t *testing.T) {
	h, cs := seededHandler()
	q, _ := cs.CreateQuestion(context.Background(), reader.Question{Text: "What is kindness?", Difficulty: "Easy"})

	req := setupReq(http.MethodGet, "/v1/questions/"+q.ID, "",
		map[string]string{"question_id": q.ID}, "user-a")
	rr := httptest.NewRecorder()
	h.GetQuestion(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var got reader.Question
	_ = json.NewDecoder(rr.Body).Decode(&got)
	if got.ID != q.ID || got.Text != "What is kindness?" {
		t.Fatalf("unexpected question %+v", got)
	}

	req = setupReq(http.MethodGet, "/v1/questions/missing", "",
		map[string]string{"question_id": "missing"}, "user-a")
	rr = httptest.NewRecorder()
	h.GetQuestion(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown question, got %d", rr.Code)
	}
}

func TestCreateBook(t *testing.T) {
	h := &Books{Store: store.NewInMemoryCatalogStore()}

	body := `{"title":"New Book","author_name":"A. Writer","pages":[{"page_number":1,"image_url":"1.png"},{"page_number":2,"image_url":"2.png"}]}`
	req := setupReq(http.MethodPost, "/v1/admin/books", body, nil, "admin-1")
	rr := httptest.NewRecorder()
	h.CreateBook(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created reader.Book
	_ = json.NewDecoder(rr.Body).Decode(&created)
	if created.ID == "" || created.TotalPages != 2 {
		t.Fatalf("unexpected created book %+v", created)
	}
}

func TestCreateBook_Invalid(t *testing.T) {
	h := &Books{Store: store.NewInMemoryCatalogStore()}
	for _, body := range []string{
		`{"title":""}`,
		`{"title":"x","pages":[{"page_number":0}]}`,
		`not json`,
	} {
		req := setupReq(http.MethodPost, "/v1/admin/books", body, nil, "admin-1")
		rr := httptest.NewRecorder()
		h.CreateBook(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, rr.Code)
		}
	}
}

func TestRoutes_AdminGateOnCreate(t *testing.T) {
	secret := []byte("test-secret-key-32-bytes-long!!!")
	h, _ := seededHandler()

	r := chi.NewRouter()
	h.Routes(r, auth.JWTVerifier{Secret: secret})
	srv := httptest.NewServer(r)
	defer srv.Close()

	token := makeToken(t, secret, "user-a", "user")
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/admin/books",
		strings.NewReader(`{"title":"x"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", resp.StatusCode)
	}

	adminToken := makeToken(t, secret, "admin-1", "admin")
	req, _ = http.NewRequest(http.MethodPost, srv.URL+"/v1/admin/books",
		strings.NewReader(`{"title":"Admin Book","pages":[{"page_number":1,"image_url":"1.png"}]}`))
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for admin, got %d", resp.StatusCode)
	}
}
