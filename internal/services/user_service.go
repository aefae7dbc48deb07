package services

import (
	"context"
	"errors"
	"strings"

	"spendly/internal/auth"
	"spendly/internal/core"
	"spendly/internal/log"
	"spendly/internal/storage"
)

// UserService registers and authenticates accounts.
type UserService struct {
	store  Store
	logger *log.Logger
}

func NewUserService(store Store, logger *log.Logger) *UserService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &UserService{store: store, logger: logger.WithComponent(log.ComponentAuth)}
}

// Register creates an account with a bcrypt-hashed password.
func (s *UserService) Register(ctx context.Context, username, email, password string) (core.User, error) {
	username = strings.TrimSpace(username)
	email = core.NormalizeEmail(email)
	if err := core.ValidateRegistration(username, email, password); err != nil {
		return core.User{}, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.User{}, err
	}

	var created core.User
	err = s.store.InTx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetUserByEmail(ctx, email); err == nil {
			return core.AlreadyExists("Email already registered")
		} else if !errors.Is(err, core.ErrNotFound) {
			return err
		}
		if _, err := q.GetUserByUsername(ctx, username); err == nil {
			return core.AlreadyExists("Username already taken")
		} else if !errors.Is(err, core.ErrNotFound) {
			return err
		}

		u, err := q.CreateUser(ctx, core.User{Username: username, Email: email, HashedPassword: hash})
		if errors.Is(err, core.ErrAlreadyExists) {
			return core.AlreadyExists("Username or email already registered")
		}
		created = u
		return err
	})
	if err != nil {
		return core.User{}, err
	}

	s.logger.InfoContext(ctx, "User registered", log.FieldUserID, created.ID, log.FieldEmail, created.Email)
	return created, nil
}

// Authenticate checks credentials and returns the matching user.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (core.User, error) {
	u, err := s.store.GetUserByEmail(ctx, core.NormalizeEmail(email))
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, core.Unauthorized("Invalid email or password")
	}
	if err != nil {
		return core.User{}, err
	}

	ok, err := auth.CheckPassword(u.HashedPassword, password)
	if err != nil {
		return core.User{}, err
	}
	if !ok {
		s.logger.WarnContext(ctx, "Failed login attempt", log.FieldUserID, u.ID)
		return core.User{}, core.Unauthorized("Invalid email or password")
	}
	return u, nil
}

// Get returns the user by id.
func (s *UserService) Get(ctx context.Context, id int64) (core.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return core.User{}, userErr(err)
	}
	return u, nil
}
