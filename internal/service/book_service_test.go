package service

import (
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-bookshelf/internal/model"
	"go-bookshelf/internal/repository"
)

func newTestBookService(t *testing.T) *BookService {
	t.Helper()

	repo, err := repository.NewBookFileRepository(filepath.Join(t.TempDir(), "books.json"))
	require.NoError(t, err)
	return NewBookService(repo)
}

func TestBookService_CRUD(t *testing.T) {
	t.Parallel()

	svc := newTestBookService(t)
	ctx := t.Context()

	created, err := svc.Create(ctx, "reader", model.BookRequest{Title: " Dune ", Author: "Frank Herbert", Year: 1965})
	require.NoError(t, err)
	assert.Len(t, created.ID, 26)
	assert.Equal(t, "Dune", created.Title)
	assert.Equal(t, "reader", created.CreatedBy)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, got.Title)

	updated, err := svc.Update(ctx, created.ID, model.BookRequest{Title: "Dune Messiah", Author: "Frank Herbert", Year: 1969})
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", updated.Title)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	books, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Dune Messiah", books[0].Title)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	requireAPIStatus(t, err, http.StatusNotFound)
	requireAPIStatus(t, svc.Delete(ctx, created.ID), http.StatusNotFound)
}

func TestBookService_Validation(t *testing.T) {
	t.Parallel()

	svc := newTestBookService(t)

	_, err := svc.Create(t.Context(), "reader", model.BookRequest{Author: "Anon"})
	apiErr := requireAPIStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "title", apiErr.Details)

	_, err = svc.Create(t.Context(), "reader", model.BookRequest{Title: "Untitled"})
	apiErr = requireAPIStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "author", apiErr.Details)

	_, err = svc.Create(t.Context(), "reader", model.BookRequest{Title: "T", Author: "A", Year: -3})
	apiErr = requireAPIStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "year", apiErr.Details)

	_, err = svc.Update(t.Context(), "missing", model.BookRequest{Title: "T", Author: "A"})
	requireAPIStatus(t, err, http.StatusNotFound)
}

func TestBookService_Favorites(t *testing.T) {
	t.Parallel()

	svc := newTestBookService(t)
	ctx := t.Context()

	dune, err := svc.Create(ctx, "alice", model.BookRequest{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)
	emma, err := svc.Create(ctx, "alice", model.BookRequest{Title: "Emma", Author: "Jane Austen"})
	require.NoError(t, err)

	require.NoError(t, svc.AddFavorite(ctx, "bob", dune.ID))
	require.NoError(t, svc.AddFavorite(ctx, "bob", dune.ID))
	require.NoError(t, svc.AddFavorite(ctx, "carol", emma.ID))

	favorites, err := svc.Favorites(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, dune.ID, favorites[0].ID)
	assert.Equal(t, []string{"bob"}, favorites[0].FavoritedBy)

	require.NoError(t, svc.RemoveFavorite(ctx, "bob", dune.ID))
	favorites, err = svc.Favorites(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, favorites)

	requireAPIStatus(t, svc.AddFavorite(ctx, "bob", "nope"), http.StatusNotFound)
}
