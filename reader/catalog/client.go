// Package catalog is the HTTP client for the book catalog service.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/reading-platform/reader"
)

type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// BookByID fetches the full book, including pages and table of contents.
func (c *Client) BookByID(ctx context.Context, id string) (*reader.Book, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("catalog: book id required")
	}
	var book reader.Book
	if err := c.get(ctx, "/v1/books/"+url.PathEscape(id), &book); err != nil {
		return nil, err
	}
	return &book, nil
}

type listResponse struct {
	Books []reader.Book `json:"books"`
}

// ListBooks returns a page of the catalog, without page content.
func (c *Client) ListBooks(ctx context.Context, limit, offset int) ([]reader.Book, error) {
	path := "/v1/books?limit=" + strconv.Itoa(limit) + "&offset=" + strconv.Itoa(offset)
	var out listResponse
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Books, nil
}

// QuestionByID looks up a philosophy question. A 404 maps to
// reader.ErrNotFound so a stale question reference on a page degrades to
// "no question" rather than an error.
func (c *Client) QuestionByID(ctx context.Context, id string) (reader.Question, error) {
	if strings.TrimSpace(id) == "" {
		return reader.Question{}, reader.ErrNotFound
	}
	var q reader.Question
	if err := c.get(ctx, "/v1/questions/"+url.PathEscape(id), &q); err != nil {
		return reader.Question{}, err
	}
	return q, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusNotFound {
		return reader.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog: status %d body=%q", resp.StatusCode, string(b[:min(len(b), 200)]))
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("catalog: decode error: %w body=%q", err, string(b[:min(len(b), 200)]))
	}
	return nil
}
