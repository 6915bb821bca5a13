package progress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client talks to the progress service over its REST boundary. All
// requests are scoped to the authenticated user via the bearer token.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Log        *zap.Logger
}

func NewClient(baseURL, token string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Log:        log,
	}
}

// Load fetches the progress record for bookID. Any failure degrades to a
// fresh default record: a missing or unreachable progress store must not
// keep the book from opening.
func (c *Client) Load(ctx context.Context, bookID string) Record {
	var rec Record
	status, err := c.do(ctx, http.MethodGet, c.progressPath(bookID), nil, &rec)
	if err != nil {
		c.Log.Warn("progress load failed, starting fresh",
			zap.String("book_id", bookID), zap.Error(err))
		return DefaultRecord()
	}
	if status != http.StatusOK {
		c.Log.Warn("progress load returned unexpected status, starting fresh",
			zap.String("book_id", bookID), zap.Int("status", status))
		return DefaultRecord()
	}
	if rec.CurrentPage < 1 {
		rec.CurrentPage = 1
	}
	return rec
}

func (c *Client) UpdatePage(ctx context.Context, bookID string, page int) (Record, error) {
	body := map[string]int{"current_page": page}
	var rec Record
	status, err := c.do(ctx, http.MethodPut, c.progressPath(bookID), body, &rec)
	if err != nil {
		return Record{}, err
	}
	if status != http.StatusOK {
		return Record{}, fmt.Errorf("progress: update page status %d", status)
	}
	return rec, nil
}

func (c *Client) AddBookmark(ctx context.Context, bookID string, page int) error {
	body := map[string]int{"page_number": page}
	status, err := c.do(ctx, http.MethodPost, c.bookmarksPath(bookID), body, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return fmt.Errorf("progress: add bookmark status %d", status)
	}
	return nil
}

func (c *Client) RemoveBookmark(ctx context.Context, bookID string, page int) error {
	path := c.bookmarksPath(bookID) + "/" + strconv.Itoa(page)
	status, err := c.do(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		return err
	}
	// 404 means the bookmark is already gone; the desired state holds.
	if status != http.StatusNoContent && status != http.StatusNotFound {
		return fmt.Errorf("progress: remove bookmark status %d", status)
	}
	return nil
}

func (c *Client) AddNote(ctx context.Context, bookID string, page int, text string) (Note, error) {
	body := map[string]any{"page_number": page, "text": text}
	var note Note
	status, err := c.do(ctx, http.MethodPost, c.notesPath(bookID), body, &note)
	if err != nil {
		return Note{}, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return Note{}, fmt.Errorf("progress: add note status %d", status)
	}
	return note, nil
}

func (c *Client) DeleteNote(ctx context.Context, bookID, noteID string) error {
	path := c.notesPath(bookID) + "/" + url.PathEscape(noteID)
	status, err := c.do(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent && status != http.StatusNotFound {
		return fmt.Errorf("progress: delete note status %d", status)
	}
	return nil
}

func (c *Client) progressPath(bookID string) string {
	return "/v1/users/me/books/" + url.PathEscape(bookID) + "/progress"
}

func (c *Client) bookmarksPath(bookID string) string {
	return "/v1/users/me/books/" + url.PathEscape(bookID) + "/bookmarks"
}

func (c *Client) notesPath(bookID string) string {
	return "/v1/users/me/books/" + url.PathEscape(bookID) + "/notes"
}

// do issues one request and decodes a JSON body into out when out is
// non-nil and the response carries one. It returns the HTTP status so
// callers can apply their own status policy.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, err
	}
	if out != nil && resp.StatusCode < 300 && len(b) > 0 {
		if err := json.Unmarshal(b, out); err != nil {
			return resp.StatusCode, fmt.Errorf("progress: decode error: %w body=%q", err, string(b[:min(len(b), 200)]))
		}
	}
	return resp.StatusCode, nil
}
