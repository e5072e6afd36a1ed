package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"go-bookshelf/internal/model"
)

// BookFileRepository stores the catalogue, favorites included, as one JSON
// array rewritten on each mutation.
type BookFileRepository struct {
	file  *jsonFile[model.Book]
	mu    sync.RWMutex
	books []model.Book
}

func NewBookFileRepository(path string) (*BookFileRepository, error) {
	file, err := newJSONFile[model.Book](path)
	if err != nil {
		return nil, err
	}

	books, err := file.load()
	if err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}

	return &BookFileRepository{file: file, books: books}, nil
}

func (r *BookFileRepository) List(_ context.Context) ([]model.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := cloneBooks(r.books)
	slices.SortFunc(out, func(a, b model.Book) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *BookFileRepository) FindByID(_ context.Context, id string) (model.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexLocked(id)
	if i < 0 {
		return model.Book{}, model.ErrBookNotFound
	}
	return cloneBook(r.books[i]), nil
}

func (r *BookFileRepository) Create(_ context.Context, book model.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexLocked(book.ID) >= 0 {
		return fmt.Errorf("book %s already stored", book.ID)
	}

	return r.commitLocked(append(cloneBooks(r.books), cloneBook(book)))
}

func (r *BookFileRepository) Update(_ context.Context, book model.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(book.ID)
	if i < 0 {
		return model.ErrBookNotFound
	}

	next := cloneBooks(r.books)
	book.FavoritedBy = slices.Clone(next[i].FavoritedBy)
	next[i] = book
	return r.commitLocked(next)
}

func (r *BookFileRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(id)
	if i < 0 {
		return model.ErrBookNotFound
	}

	next := cloneBooks(r.books)
	next = slices.Delete(next, i, i+1)
	return r.commitLocked(next)
}

func (r *BookFileRepository) SetFavorite(_ context.Context, bookID string, username string, favorite bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(bookID)
	if i < 0 {
		return model.ErrBookNotFound
	}

	current := r.books[i]
	if current.IsFavoriteOf(username) == favorite {
		return nil
	}

	next := cloneBooks(r.books)
	if favorite {
		next[i].FavoritedBy = append(next[i].FavoritedBy, username)
	} else {
		next[i].FavoritedBy = slices.DeleteFunc(next[i].FavoritedBy, func(u string) bool { return u == username })
	}

	return r.commitLocked(next)
}

func (r *BookFileRepository) ListFavorites(_ context.Context, username string) ([]model.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Book, 0)
	for _, book := range r.books {
		if book.IsFavoriteOf(username) {
			out = append(out, cloneBook(book))
		}
	}
	slices.SortFunc(out, func(a, b model.Book) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *BookFileRepository) commitLocked(next []model.Book) error {
	if err := r.file.save(next); err != nil {
		return fmt.Errorf("save books: %w", err)
	}
	r.books = next
	return nil
}

func (r *BookFileRepository) indexLocked(id string) int {
	return slices.IndexFunc(r.books, func(b model.Book) bool { return b.ID == id })
}

func cloneBooks(books []model.Book) []model.Book {
	out := make([]model.Book, len(books))
	for i, book := range books {
		out[i] = cloneBook(book)
	}
	return out
}

func cloneBook(book model.Book) model.Book {
	book.FavoritedBy = slices.Clone(book.FavoritedBy)
	return book
}
