// Package users is the user directory: account creation, lookup and
// profile updates.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"attendtrack/internal/apperr"
	"attendtrack/internal/model"
	"attendtrack/internal/store"
)

// Hasher is the one-way credential hash applied before a user is stored.
type Hasher interface {
	Hash(plaintext string) (string, error)
}

// Profile is the input to CreateUser. Password is plaintext and never stored.
type Profile struct {
	Username   string
	RollNumber string
	Password   string
	Year       int
	Program    string
	Section    string
}

// Patch carries the fields UpdateUser may overwrite.
type Patch struct {
	Username string
	Year     int
	Program  string
	Section  string
}

// Service owns user lifecycle rules.
type Service struct {
	store  store.UserStore
	hasher Hasher
	log    *slog.Logger
}

// NewService creates a user service.
func NewService(st store.UserStore, hasher Hasher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: st, hasher: hasher, log: log.With("component", "users")}
}

// CreateUser checks username and roll number are free, hashes the password
// and stores the user. The store's unique keys remain the final authority.
func (s *Service) CreateUser(ctx context.Context, p Profile) (model.User, error) {
	p.Username = strings.TrimSpace(p.Username)
	p.RollNumber = strings.TrimSpace(p.RollNumber)
	if p.Username == "" || p.RollNumber == "" {
		return model.User{}, apperr.Invalid(errors.New("username and roll number required"))
	}
	if p.Password == "" {
		return model.User{}, apperr.Invalid(errors.New("password required"))
	}

	taken, err := s.store.ExistsByUsername(ctx, p.Username)
	if err != nil {
		return model.User{}, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return model.User{}, apperr.Conflictf("username %q is already taken", p.Username)
	}
	taken, err = s.store.ExistsByRollNumber(ctx, p.RollNumber)
	if err != nil {
		return model.User{}, fmt.Errorf("check roll number: %w", err)
	}
	if taken {
		return model.User{}, apperr.Conflictf("roll number %q is already registered", p.RollNumber)
	}

	hash, err := s.hasher.Hash(p.Password)
	if err != nil {
		return model.User{}, fmt.Errorf("hash credential: %w", err)
	}
	u, err := s.store.SaveUser(ctx, model.User{
		Username:     p.Username,
		RollNumber:   p.RollNumber,
		PasswordHash: hash,
		Year:         p.Year,
		Program:      p.Program,
		Section:      p.Section,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return model.User{}, apperr.Conflictf("username or roll number already registered")
		}
		return model.User{}, fmt.Errorf("save user: %w", err)
	}
	s.log.InfoContext(ctx, "user created", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// GetUserByID fails with a UserNotFoundError when id is unknown.
func (s *Service) GetUserByID(ctx context.Context, id string) (model.User, error) {
	u, err := s.store.FindUserByID(ctx, id)
	if err != nil {
		return model.User{}, fmt.Errorf("find user %s: %w", id, err)
	}
	if u == nil {
		return model.User{}, apperr.UserNotFound(id)
	}
	return *u, nil
}

// GetUserByUsername fails with a UserNotFoundError when name is unknown.
func (s *Service) GetUserByUsername(ctx context.Context, name string) (model.User, error) {
	u, err := s.store.FindUserByUsername(ctx, name)
	if err != nil {
		return model.User{}, fmt.Errorf("find user %q: %w", name, err)
	}
	if u == nil {
		return model.User{}, &apperr.UserNotFoundError{Key: "username", Value: name}
	}
	return *u, nil
}

// UpdateUser overwrites username, year, program and section. The credential
// and roll number cannot be changed here.
func (s *Service) UpdateUser(ctx context.Context, id string, p Patch) (model.User, error) {
	u, err := s.GetUserByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	p.Username = strings.TrimSpace(p.Username)
	if p.Username == "" {
		return model.User{}, apperr.Invalid(errors.New("username required"))
	}
	u.Username = p.Username
	u.Year = p.Year
	u.Program = p.Program
	u.Section = p.Section

	saved, err := s.store.SaveUser(ctx, u)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return model.User{}, apperr.Conflictf("username %q is already taken", u.Username)
		}
		return model.User{}, fmt.Errorf("save user: %w", err)
	}
	return saved, nil
}
