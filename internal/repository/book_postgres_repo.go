package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-bookshelf/internal/model"
)

const bookColumns = `b.id, b.title, b.author, b.year, b.description, b.created_by, b.created_at, b.updated_at,
	COALESCE((SELECT array_agg(f.username ORDER BY f.created_at) FROM favorites f WHERE f.book_id = b.id), '{}')`

type BookPostgresRepository struct {
	pool *pgxpool.Pool
}

func NewBookPostgresRepository(pool *pgxpool.Pool) *BookPostgresRepository {
	return &BookPostgresRepository{pool: pool}
}

func (r *BookPostgresRepository) List(ctx context.Context) ([]model.Book, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+bookColumns+` FROM books b ORDER BY b.id`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return collectBooks(rows)
}

func (r *BookPostgresRepository) FindByID(ctx context.Context, id string) (model.Book, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+bookColumns+` FROM books b WHERE b.id = $1`, id)
	if err != nil {
		return model.Book{}, fmt.Errorf("find book: %w", err)
	}

	book, err := pgx.CollectExactlyOneRow(rows, scanBook)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Book{}, model.ErrBookNotFound
	}
	if err != nil {
		return model.Book{}, fmt.Errorf("find book: %w", err)
	}
	return book, nil
}

func (r *BookPostgresRepository) Create(ctx context.Context, b model.Book) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO books (id, title, author, year, description, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		b.ID, b.Title, b.Author, b.Year, b.Description, b.CreatedBy, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

func (r *BookPostgresRepository) Update(ctx context.Context, b model.Book) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE books SET title = $2, author = $3, year = $4, description = $5, updated_at = $6
		 WHERE id = $1`,
		b.ID, b.Title, b.Author, b.Year, b.Description, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrBookNotFound
	}
	return nil
}

func (r *BookPostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrBookNotFound
	}
	return nil
}

func (r *BookPostgresRepository) SetFavorite(ctx context.Context, bookID string, username string, favorite bool) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM books WHERE id = $1)`, bookID).Scan(&exists); err != nil {
		return fmt.Errorf("check book exists: %w", err)
	}
	if !exists {
		return model.ErrBookNotFound
	}

	var err error
	if favorite {
		_, err = r.pool.Exec(ctx,
			`INSERT INTO favorites (username, book_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			username, bookID)
	} else {
		_, err = r.pool.Exec(ctx, `DELETE FROM favorites WHERE username = $1 AND book_id = $2`, username, bookID)
	}
	if err != nil {
		return fmt.Errorf("set favorite: %w", err)
	}
	return nil
}

func (r *BookPostgresRepository) ListFavorites(ctx context.Context, username string) ([]model.Book, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+bookColumns+` FROM books b
		 JOIN favorites fav ON fav.book_id = b.id AND fav.username = $1
		 ORDER BY b.id`, username)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return collectBooks(rows)
}

func collectBooks(rows pgx.Rows) ([]model.Book, error) {
	books, err := pgx.CollectRows(rows, scanBook)
	if err != nil {
		return nil, fmt.Errorf("scan books: %w", err)
	}
	if books == nil {
		books = []model.Book{}
	}
	return books, nil
}

func scanBook(row pgx.CollectableRow) (model.Book, error) {
	var b model.Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Year, &b.Description, &b.CreatedBy,
		&b.CreatedAt, &b.UpdatedAt, &b.FavoritedBy)
	if len(b.FavoritedBy) == 0 {
		b.FavoritedBy = nil
	}
	return b, err
}
