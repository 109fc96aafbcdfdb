package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"trivia-service/internal/domain"
)

// UserService manages user identities. Score fields are never written here.
type UserService struct {
	users UserRepository
	log   *slog.Logger
}

func NewUserService(users UserRepository, log *slog.Logger) *UserService {
	if log == nil {
		log = slog.Default()
	}
	return &UserService{users: users, log: log}
}

func (s *UserService) Create(ctx context.Context, username, email string) (domain.User, error) {
	username, email, err := normalizeIdentity(username, email)
	if err != nil {
		return domain.User{}, err
	}
	u, err := s.users.CreateUser(ctx, username, email)
	if err != nil {
		return domain.User{}, err
	}
	s.log.Info("user created", slog.Int64("id", u.ID), slog.String("username", u.Username))
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (domain.User, error) {
	return s.users.GetUser(ctx, id)
}

func (s *UserService) Update(ctx context.Context, id int64, username, email string) (domain.User, error) {
	username, email, err := normalizeIdentity(username, email)
	if err != nil {
		return domain.User{}, err
	}
	return s.users.UpdateUser(ctx, id, username, email)
}

// Delete removes the user and returns its last state.
func (s *UserService) Delete(ctx context.Context, id int64) (domain.User, error) {
	u, err := s.users.DeleteUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	s.log.Info("user deleted", slog.Int64("id", u.ID), slog.String("username", u.Username))
	return u, nil
}

func normalizeIdentity(username, email string) (string, string, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" {
		return "", "", fmt.Errorf("%w: missing username", domain.ErrInvalidUser)
	}
	if email == "" {
		return "", "", fmt.Errorf("%w: missing email", domain.ErrInvalidUser)
	}
	return username, email, nil
}
