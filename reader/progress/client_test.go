package progress

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-token", nil)
}

func TestClient_Load(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/v1/users/me/books/b1/progress" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Fatalf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		_ = json.NewEncoder(w).Encode(Record{
			CurrentPage: 12,
			Bookmarks:   []int{3, 7},
			Notes:       []Note{{ID: "n1", PageNumber: 3, Text: "memo"}},
		})
	})

	rec := c.Load(context.Background(), "b1")
	if rec.CurrentPage != 12 {
		t.Fatalf("expected current page 12, got %d", rec.CurrentPage)
	}
	if len(rec.Bookmarks) != 2 || rec.Bookmarks[0] != 3 {
		t.Fatalf("unexpected bookmarks %v", rec.Bookmarks)
	}
	if len(rec.Notes) != 1 || rec.Notes[0].ID != "n1" {
		t.Fatalf("unexpected notes %v", rec.Notes)
	}
}

func TestClient_Load_DegradesToDefault(t *testing.T) {
	// Server errors must not block the session: Load falls back to a
	// fresh record at page 1.
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	rec := c.Load(context.Background(), "b1")
	if rec.CurrentPage != 1 || len(rec.Bookmarks) != 0 || len(rec.Notes) != 0 {
		t.Fatalf("expected default record, got %+v", rec)
	}

	// Unreachable server behaves the same.
	dead := NewClient("http://127.0.0.1:1", "tok", nil)
	rec = dead.Load(context.Background(), "b1")
	if rec.CurrentPage != 1 {
		t.Fatalf("expected default record from unreachable server, got %+v", rec)
	}
}

func TestClient_UpdatePage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Fatalf("expected PUT, got %s", r.Method)
		}
		var body map[string]int
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["current_page"] != 9 {
			t.Fatalf("expected current_page 9, got %d", body["current_page"])
		}
		_ = json.NewEncoder(w).Encode(Record{CurrentPage: 9})
	})

	rec, err := c.UpdatePage(context.Background(), "b1", 9)
	if err != nil {
		t.Fatalf("update page: %v", err)
	}
	if rec.CurrentPage != 9 {
		t.Fatalf("expected echoed page 9, got %d", rec.CurrentPage)
	}
}

func TestClient_UpdatePage_Error(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	if _, err := c.UpdatePage(context.Background(), "b1", 9); err == nil {
		t.Fatal("expected error on 503")
	}
}

func TestClient_Bookmarks(t *testing.T) {
	var gotPath, gotMethod string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		switch r.Method {
		case http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]int{"page_number": 5})
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})

	ctx := context.Background()
	if err := c.AddBookmark(ctx, "b1", 5); err != nil {
		t.Fatalf("add bookmark: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/v1/users/me/books/b1/bookmarks" {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}

	if err := c.RemoveBookmark(ctx, "b1", 5); err != nil {
		t.Fatalf("remove bookmark: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/v1/users/me/books/b1/bookmarks/5" {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
}

func TestClient_RemoveBookmark_404IsFine(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	if err := c.RemoveBookmark(context.Background(), "b1", 5); err != nil {
		t.Fatalf("expected 404 to be tolerated, got %v", err)
	}
}

func TestClient_Notes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(Note{
				ID:         "n-42",
				PageNumber: int(body["page_number"].(float64)),
				Text:       body["text"].(string),
			})
		case http.MethodDelete:
			if r.URL.Path != "/v1/users/me/books/b1/notes/n-42" {
				t.Fatalf("unexpected delete path %s", r.URL.Path)
			}
			w.WriteHeader(http.StatusNoContent)
		}
	})

	ctx := context.Background()
	note, err := c.AddNote(ctx, "b1", 6, "omoshiroi")
	if err != nil {
		t.Fatalf("add note: %v", err)
	}
	if note.ID != "n-42" || note.PageNumber != 6 || note.Text != "omoshiroi" {
		t.Fatalf("unexpected note %+v", note)
	}
	if err := c.DeleteNote(ctx, "b1", "n-42"); err != nil {
		t.Fatalf("delete note: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	rec := m.Load(ctx, "b1")
	if rec.CurrentPage != 1 {
		t.Fatalf("expected fresh record at page 1, got %d", rec.CurrentPage)
	}

	if _, err := m.UpdatePage(ctx, "b1", 4); err != nil {
		t.Fatalf("update page: %v", err)
	}
	_ = m.AddBookmark(ctx, "b1", 9)
	_ = m.AddBookmark(ctx, "b1", 2)
	note, err := m.AddNote(ctx, "b1", 4, "x")
	if err != nil {
		t.Fatalf("add note: %v", err)
	}

	rec = m.Load(ctx, "b1")
	if rec.CurrentPage != 4 {
		t.Fatalf("expected page 4, got %d", rec.CurrentPage)
	}
	if len(rec.Bookmarks) != 2 || rec.Bookmarks[0] != 2 || rec.Bookmarks[1] != 9 {
		t.Fatalf("expected sorted bookmarks [2 9], got %v", rec.Bookmarks)
	}
	if len(rec.Notes) != 1 || rec.Notes[0].ID != note.ID {
		t.Fatalf("unexpected notes %v", rec.Notes)
	}

	_ = m.RemoveBookmark(ctx, "b1", 9)
	_ = m.DeleteNote(ctx, "b1", note.ID)
	rec = m.Load(ctx, "b1")
	if len(rec.Bookmarks) != 1 || len(rec.Notes) != 0 {
		t.Fatalf("expected bookmark 2 only and no notes, got %+v", rec)
	}

	// Books are isolated.
	if rec := m.Load(ctx, "b2"); rec.CurrentPage != 1 || len(rec.Bookmarks) != 0 {
		t.Fatalf("expected fresh record for other book, got %+v", rec)
	}
}
