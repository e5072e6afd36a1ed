package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go-bookshelf/internal/model"
)

// UserFileRepository keeps the user collection in memory and rewrites the
// whole JSON array on every create. The writer lock covers the check, the
// append and the file write, so concurrent registrations cannot lose updates.
type UserFileRepository struct {
	file  *jsonFile[model.User]
	mu    sync.RWMutex
	users []model.User
	index map[string]int
}

func NewUserFileRepository(path string) (*UserFileRepository, error) {
	file, err := newJSONFile[model.User](path)
	if err != nil {
		return nil, err
	}

	users, err := file.load()
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	index := make(map[string]int, len(users))
	for i, user := range users {
		index[usernameKey(user.Username)] = i
	}

	return &UserFileRepository{file: file, users: users, index: index}, nil
}

func (r *UserFileRepository) FindByUsername(_ context.Context, username string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, exists := r.index[usernameKey(username)]
	if !exists {
		return model.User{}, model.ErrUserNotFound
	}

	return r.users[i], nil
}

func (r *UserFileRepository) Create(ctx context.Context, user model.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := usernameKey(user.Username)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[key]; exists {
		return model.ErrUserAlreadyExists
	}

	next := append(slices.Clone(r.users), user)
	if err := r.file.save(next); err != nil {
		return fmt.Errorf("save users: %w", err)
	}

	r.users = next
	r.index[key] = len(next) - 1

	return nil
}

func (r *UserFileRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.users), nil
}

func usernameKey(username string) string {
	return strings.TrimSpace(username)
}
