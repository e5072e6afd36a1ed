package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"go-bookshelf/internal/model"
	"go-bookshelf/pkg/apierror"
)

// UserRepository is the durable unique-key record store behind the
// CredentialStore. Create must fail with model.ErrUserAlreadyExists when the
// username is taken, atomically with the insert. Usernames compare exactly
// after trimming surrounding whitespace.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (model.User, error)
	Create(ctx context.Context, user model.User) error
	Count(ctx context.Context) (int, error)
}

type CredentialStore struct {
	repo       UserRepository
	bcryptCost int
}

func NewCredentialStore(repo UserRepository, bcryptCost int) *CredentialStore {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}

	return &CredentialStore{repo: repo, bcryptCost: bcryptCost}
}

// FindUser returns model.ErrUserNotFound for unknown usernames.
func (s *CredentialStore) FindUser(ctx context.Context, username string) (model.User, error) {
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return model.User{}, model.ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("find user: %w", err)
	}

	return user, nil
}

func (s *CredentialStore) CreateUser(ctx context.Context, username string, password string) (model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return model.User{}, apierror.BadRequest("username and password are required", "")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return model.User{}, apierror.BadRequest("password is too long", "password")
		}
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := model.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrUserAlreadyExists) {
			return model.User{}, apierror.Conflict("username already exists", username)
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// VerifyPassword compares password against the stored bcrypt hash.
func (s *CredentialStore) VerifyPassword(user model.User, password string) error {
	if user.PasswordHash == "" {
		return model.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return model.ErrInvalidCredentials
	}

	return nil
}

func (s *CredentialStore) CountUsers(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
