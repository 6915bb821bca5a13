package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresProgressStore persists reading progress in Postgres.
//
// Schema:
//
//	user_book_progress  (user_id, book_id, current_page, updated_at)  PK (user_id, book_id)
//	user_book_bookmarks (user_id, book_id, page_number, created_at)   PK (user_id, book_id, page_number)
//	user_book_notes     (id uuid, user_id, book_id, page_number, text, created_at)
type PostgresProgressStore struct {
	pool *pgxpool.Pool
}

func NewPostgresProgressStore(pool *pgxpool.Pool) *PostgresProgressStore {
	return &PostgresProgressStore{pool: pool}
}

func (s *PostgresProgressStore) GetOrCreate(ctx context.Context, userID, bookID string) (Progress, error) {
	const q = `INSERT INTO user_book_progress (user_id, book_id, current_page)
	           VALUES ($1, $2, 1)
	           ON CONFLICT (user_id, book_id) DO NOTHING`
	if _, err := s.pool.Exec(ctx, q, userID, bookID); err != nil {
		return Progress{}, err
	}
	return s.load(ctx, userID, bookID)
}

func (s *PostgresProgressStore) UpdatePage(ctx context.Context, userID, bookID string, page int) (Progress, error) {
	const q = `INSERT INTO user_book_progress (user_id, book_id, current_page)
	           VALUES ($1, $2, $3)
	           ON CONFLICT (user_id, book_id)
	           DO UPDATE SET current_page = EXCLUDED.current_page, updated_at = now()`
	if _, err := s.pool.Exec(ctx, q, userID, bookID, page); err != nil {
		return Progress{}, err
	}
	return s.load(ctx, userID, bookID)
}

func (s *PostgresProgressStore) AddBookmark(ctx context.Context, userID, bookID string, page int) error {
	const q = `INSERT INTO user_book_bookmarks (user_id, book_id, page_number)
	           VALUES ($1, $2, $3)
	           ON CONFLICT (user_id, book_id, page_number) DO NOTHING`
	_, err := s.pool.Exec(ctx, q, userID, bookID, page)
	return err
}

func (s *PostgresProgressStore) RemoveBookmark(ctx context.Context, userID, bookID string, page int) error {
	const q = `DELETE FROM user_book_bookmarks
	           WHERE user_id = $1 AND book_id = $2 AND page_number = $3`
	tag, err := s.pool.Exec(ctx, q, userID, bookID, page)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresProgressStore) AddNote(ctx context.Context, userID, bookID string, page int, text string) (Note, error) {
	const q = `INSERT INTO user_book_notes (user_id, book_id, page_number, text)
	           VALUES ($1, $2, $3, $4)
	           RETURNING id, page_number, text, created_at`
	row := s.pool.QueryRow(ctx, q, userID, bookID, page, text)
	var n Note
	err := row.Scan(&n.ID, &n.PageNumber, &n.Text, &n.CreatedAt)
	return n, err
}

func (s *PostgresProgressStore) DeleteNote(ctx context.Context, userID, bookID, noteID string) error {
	const q = `DELETE FROM user_book_notes
	           WHERE id = $1 AND user_id = $2 AND book_id = $3`
	tag, err := s.pool.Exec(ctx, q, noteID, userID, bookID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresProgressStore) load(ctx context.Context, userID, bookID string) (Progress, error) {
	p := Progress{UserID: userID, BookID: bookID, Bookmarks: []int{}, Notes: []Note{}}

	const progressQ = `SELECT current_page, updated_at
	                   FROM user_book_progress
	                   WHERE user_id = $1 AND book_id = $2`
	err := s.pool.QueryRow(ctx, progressQ, userID, bookID).Scan(&p.CurrentPage, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		p.CurrentPage = 1
		return p, nil
	}
	if err != nil {
		return Progress{}, err
	}

	const marksQ = `SELECT page_number FROM user_book_bookmarks
	                WHERE user_id = $1 AND book_id = $2
	                ORDER BY page_number ASC`
	rows, err := s.pool.Query(ctx, marksQ, userID, bookID)
	if err != nil {
		return Progress{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var page int
		if err := rows.Scan(&page); err != nil {
			return Progress{}, err
		}
		p.Bookmarks = append(p.Bookmarks, page)
	}
	if err := rows.Err(); err != nil {
		return Progress{}, err
	}

	const notesQ = `SELECT id, page_number, text, created_at FROM user_book_notes
	                WHERE user_id = $1 AND book_id = $2
	                ORDER BY created_at ASC, id ASC`
	noteRows, err := s.pool.Query(ctx, notesQ, userID, bookID)
	if err != nil {
		return Progress{}, err
	}
	defer noteRows.Close()
	for noteRows.Next() {
		var n Note
		if err := noteRows.Scan(&n.ID, &n.PageNumber, &n.Text, &n.CreatedAt); err != nil {
			return Progress{}, err
		}
		p.Notes = append(p.Notes, n)
	}
	return p, noteRows.Err()
}
