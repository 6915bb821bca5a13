package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/reading-platform/reader"
)

// PostgresCatalogStore is the production Postgres-backed implementation.
//
// Schema:
//
//	books     (id uuid, title, author_name, cover_url, age_range, is_premium,
//	           total_pages, pages jsonb, table_of_contents jsonb, created_at, updated_at)
//	questions (id uuid, text, type, difficulty, options jsonb, created_at)
type PostgresCatalogStore struct {
	db *pgxpool.Pool
}

func NewPostgresCatalogStore(db *pgxpool.Pool) *PostgresCatalogStore {
	return &PostgresCatalogStore{db: db}
}

func (s *PostgresCatalogStore) ListBooks(ctx context.Context, limit, offset int) ([]reader.Book, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.Query(ctx, `
SELECT id, title, author_name, cover_url, age_range, is_premium, total_pages
FROM books ORDER BY title ASC, id ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []reader.Book{}
	for rows.Next() {
		var b reader.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.AuthorName, &b.CoverURL,
			&b.AgeRange, &b.IsPremium, &b.TotalPages); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *PostgresCatalogStore) GetBook(ctx context.Context, id string) (*reader.Book, error) {
	var b reader.Book
	var pagesJSON, tocJSON []byte
	err := s.db.QueryRow(ctx, `
SELECT id, title, author_name, cover_url, age_range, is_premium, total_pages, pages, table_of_contents
FROM books WHERE id = $1::uuid`, id).Scan(
		&b.ID, &b.Title, &b.AuthorName, &b.CoverURL, &b.AgeRange,
		&b.IsPremium, &b.TotalPages, &pagesJSON, &tocJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(pagesJSON) > 0 {
		if err := json.Unmarshal(pagesJSON, &b.Pages); err != nil {
			return nil, err
		}
	}
	if len(tocJSON) > 0 {
		if err := json.Unmarshal(tocJSON, &b.TableOfContents); err != nil {
			return nil, err
		}
	}
	return &b, nil
}

func (s *PostgresCatalogStore) CreateBook(ctx context.Context, b reader.Book) (reader.Book, error) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.TotalPages == 0 {
		b.TotalPages = len(b.Pages)
	}
	pagesJSON, err := json.Marshal(b.Pages)
	if err != nil {
		return reader.Book{}, err
	}
	tocJSON, err := json.Marshal(b.TableOfContents)
	if err != nil {
		return reader.Book{}, err
	}
	now := time.Now().UTC()
	_, err = s.db.Exec(ctx, `
INSERT INTO books (id, title, author_name, cover_url, age_range, is_premium, total_pages, pages, table_of_contents, created_at, updated_at)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
ON CONFLICT (id) DO UPDATE SET
	title = EXCLUDED.title,
	author_name = EXCLUDED.author_name,
	cover_url = EXCLUDED.cover_url,
	age_range = EXCLUDED.age_range,
	is_premium = EXCLUDED.is_premium,
	total_pages = EXCLUDED.total_pages,
	pages = EXCLUDED.pages,
	table_of_contents = EXCLUDED.table_of_contents,
	updated_at = EXCLUDED.updated_at`,
		b.ID, b.Title, b.AuthorName, b.CoverURL, b.AgeRange, b.IsPremium,
		b.TotalPages, pagesJSON, tocJSON, now)
	if err != nil {
		return reader.Book{}, err
	}
	return b, nil
}

func (s *PostgresCatalogStore) GetQuestion(ctx context.Context, id string) (reader.Question, error) {
	var q reader.Question
	var optionsJSON []byte
	err := s.db.QueryRow(ctx, `
SELECT id, text, type, difficulty, options FROM questions WHERE id = $1::uuid`, id).Scan(
		&q.ID, &q.Text, &q.Type, &q.Difficulty, &optionsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return reader.Question{}, ErrNotFound
	}
	if err != nil {
		return reader.Question{}, err
	}
	if len(optionsJSON) > 0 {
		if err := json.Unmarshal(optionsJSON, &q.Options); err != nil {
			return reader.Question{}, err
		}
	}
	return q, nil
}

func (s *PostgresCatalogStore) CreateQuestion(ctx context.Context, q reader.Question) (reader.Question, error) {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	optionsJSON, err := json.Marshal(q.Options)
	if err != nil {
		return reader.Question{}, err
	}
	_, err = s.db.Exec(ctx, `
INSERT INTO questions (id, text, type, difficulty, options)
VALUES ($1::uuid, $2, $3, $4, $5)`,
		q.ID, q.Text, q.Type, q.Difficulty, optionsJSON)
	if err != nil {
		return reader.Question{}, err
	}
	return q, nil
}
