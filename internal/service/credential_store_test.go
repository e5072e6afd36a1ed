package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-bookshelf/internal/model"
	"go-bookshelf/pkg/apierror"
)

type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]model.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: map[string]model.User{}}
}

func (r *memoryUserRepo) FindByUsername(_ context.Context, username string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[strings.TrimSpace(username)]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return user, nil
}

func (r *memoryUserRepo) Create(_ context.Context, user model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.TrimSpace(user.Username)
	if _, ok := r.users[key]; ok {
		return model.ErrUserAlreadyExists
	}
	r.users[key] = user
	return nil
}

func (r *memoryUserRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users), nil
}

func newTestCredentialStore() (*CredentialStore, *memoryUserRepo) {
	repo := newMemoryUserRepo()
	return NewCredentialStore(repo, bcrypt.MinCost), repo
}

func TestCredentialStore_CreateStoresHashOnly(t *testing.T) {
	t.Parallel()

	store, repo := newTestCredentialStore()

	user, err := store.CreateUser(t.Context(), "  testuser ", "testpass")
	require.NoError(t, err)
	assert.Equal(t, "testuser", user.Username)
	assert.NotEmpty(t, user.ID)
	assert.NotEqual(t, "testpass", user.PasswordHash)
	assert.True(t, strings.HasPrefix(user.PasswordHash, "$2"))

	stored, err := repo.FindByUsername(t.Context(), "testuser")
	require.NoError(t, err)
	assert.Equal(t, user, stored)
}

func TestCredentialStore_CreateConflict(t *testing.T) {
	t.Parallel()

	store, _ := newTestCredentialStore()

	_, err := store.CreateUser(t.Context(), "testuser", "testpass")
	require.NoError(t, err)

	_, err = store.CreateUser(t.Context(), " testuser ", "other")
	var apiErr *apierror.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apierror.CodeConflict, apiErr.Code)
}

func TestCredentialStore_CreateRejectsEmptyAndOversized(t *testing.T) {
	t.Parallel()

	store, _ := newTestCredentialStore()

	_, err := store.CreateUser(t.Context(), "", "pw")
	var apiErr *apierror.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apierror.CodeBadRequest, apiErr.Code)

	_, err = store.CreateUser(t.Context(), "long", strings.Repeat("x", 73))
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "password", apiErr.Details)
}

func TestCredentialStore_FindUser(t *testing.T) {
	t.Parallel()

	store, _ := newTestCredentialStore()

	_, err := store.FindUser(t.Context(), "ghost")
	require.ErrorIs(t, err, model.ErrUserNotFound)

	_, err = store.CreateUser(t.Context(), "reader", "pw")
	require.NoError(t, err)

	user, err := store.FindUser(t.Context(), " reader ")
	require.NoError(t, err)
	assert.Equal(t, "reader", user.Username)
}

func TestCredentialStore_VerifyPassword(t *testing.T) {
	t.Parallel()

	store, _ := newTestCredentialStore()

	user, err := store.CreateUser(t.Context(), "reader", "correct horse")
	require.NoError(t, err)

	require.NoError(t, store.VerifyPassword(user, "correct horse"))
	require.ErrorIs(t, store.VerifyPassword(user, "wrong"), model.ErrInvalidCredentials)
	require.ErrorIs(t, store.VerifyPassword(model.User{Username: "x", PasswordHash: "correct horse"}, "correct horse"), model.ErrInvalidCredentials)
	require.ErrorIs(t, store.VerifyPassword(model.User{Username: "x"}, ""), model.ErrInvalidCredentials)
}

func TestNewCredentialStore_ClampsCost(t *testing.T) {
	t.Parallel()

	assert.Equal(t, bcrypt.DefaultCost, NewCredentialStore(newMemoryUserRepo(), 0).bcryptCost)
	assert.Equal(t, bcrypt.DefaultCost, NewCredentialStore(newMemoryUserRepo(), 99).bcryptCost)
	assert.Equal(t, 12, NewCredentialStore(newMemoryUserRepo(), 12).bcryptCost)
}
