package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserExists         = errors.New("username or email already registered")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", minPasswordLength)
	ErrInvalidEmail       = errors.New("invalid email address")
)

type UserStore interface {
	CreateUser(ctx context.Context, arg storage.CreateUserParams) (core.User, error)
	GetUser(ctx context.Context, id int64) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
	GetUserByUsername(ctx context.Context, username string) (core.User, error)
	UpdateUserPassword(ctx context.Context, id int64, hash string) error
}

// UserService registers users and checks their passwords. Sessions are
// handled upstream.
type UserService struct {
	store UserStore
	cost  int
}

func NewUserService(store UserStore) *UserService {
	return &UserService{store: store, cost: bcrypt.DefaultCost}
}

func (s *UserService) Register(ctx context.Context, username, email, password string) (core.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return core.User{}, fmt.Errorf("%w: username is required", core.ErrMissingUser)
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Name != "" {
		return core.User{}, fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	if len(password) < minPasswordLength {
		return core.User{}, ErrWeakPassword
	}

	if _, err := s.store.GetUserByUsername(ctx, username); err == nil {
		return core.User{}, ErrUserExists
	} else if !isNotFound(err) {
		return core.User{}, err
	}
	if _, err := s.store.GetUserByEmail(ctx, addr.Address); err == nil {
		return core.User{}, ErrUserExists
	} else if !isNotFound(err) {
		return core.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	return s.store.CreateUser(ctx, storage.CreateUserParams{
		Username:     username,
		Email:        addr.Address,
		PasswordHash: string(hash),
	})
}

// Authenticate returns the user when password matches. Unknown emails and
// wrong passwords yield the same error.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (core.User, error) {
	u, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if isNotFound(err) {
			return core.User{}, ErrInvalidCredentials
		}
		return core.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return core.User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *UserService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	if len(next) < minPasswordLength {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.UpdateUserPassword(ctx, userID, string(hash))
}

func (s *UserService) Get(ctx context.Context, id int64) (core.User, error) {
	return s.store.GetUser(ctx, id)
}
