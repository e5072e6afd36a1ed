package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"go-bookshelf/internal/model"
	"go-bookshelf/pkg/apierror"
)

type BookRepository interface {
	List(ctx context.Context) ([]model.Book, error)
	FindByID(ctx context.Context, id string) (model.Book, error)
	Create(ctx context.Context, book model.Book) error
	Update(ctx context.Context, book model.Book) error
	Delete(ctx context.Context, id string) error
	SetFavorite(ctx context.Context, bookID string, username string, favorite bool) error
	ListFavorites(ctx context.Context, username string) ([]model.Book, error)
}

type BookService struct {
	repo BookRepository
	now  func() time.Time
}

func NewBookService(repo BookRepository) *BookService {
	return &BookService{repo: repo, now: time.Now}
}

func (s *BookService) List(ctx context.Context) ([]model.Book, error) {
	books, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

func (s *BookService) Get(ctx context.Context, id string) (model.Book, error) {
	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return model.Book{}, notFoundOr(err, id)
	}
	return book, nil
}

func (s *BookService) Create(ctx context.Context, username string, req model.BookRequest) (model.Book, error) {
	if field := req.Validate(); field != "" {
		return model.Book{}, apierror.BadRequest("invalid book field", field)
	}

	now := s.now().UTC()
	book := model.Book{
		ID:          ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Title:       req.Title,
		Author:      req.Author,
		Year:        req.Year,
		Description: req.Description,
		CreatedBy:   username,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, book); err != nil {
		return model.Book{}, fmt.Errorf("create book: %w", err)
	}

	return book, nil
}

func (s *BookService) Update(ctx context.Context, id string, req model.BookRequest) (model.Book, error) {
	if field := req.Validate(); field != "" {
		return model.Book{}, apierror.BadRequest("invalid book field", field)
	}

	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return model.Book{}, notFoundOr(err, id)
	}

	book.Title = req.Title
	book.Author = req.Author
	book.Year = req.Year
	book.Description = req.Description
	book.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, book); err != nil {
		return model.Book{}, notFoundOr(err, id)
	}

	return book, nil
}

func (s *BookService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, id)
	}
	return nil
}

func (s *BookService) AddFavorite(ctx context.Context, username string, bookID string) error {
	if err := s.repo.SetFavorite(ctx, bookID, username, true); err != nil {
		return notFoundOr(err, bookID)
	}
	return nil
}

func (s *BookService) RemoveFavorite(ctx context.Context, username string, bookID string) error {
	if err := s.repo.SetFavorite(ctx, bookID, username, false); err != nil {
		return notFoundOr(err, bookID)
	}
	return nil
}

func (s *BookService) Favorites(ctx context.Context, username string) ([]model.Book, error) {
	books, err := s.repo.ListFavorites(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return books, nil
}

func notFoundOr(err error, id string) error {
	if errors.Is(err, model.ErrBookNotFound) {
		return apierror.NotFound("book not found", id)
	}
	return err
}
