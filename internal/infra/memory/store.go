package memory

import (
	"context"
	"fmt"
	"sync"

	"trivia-service/internal/domain"
)

// Store is an in-memory implementation of app.Store. A single mutex makes
// SettleAnswer atomic with respect to every other operation.
type Store struct {
	mu        sync.RWMutex
	nextID    int64
	users     map[int64]domain.User
	questions map[string]domain.TriviaQuestion
}

func NewStore() *Store {
	return &Store{
		users:     make(map[int64]domain.User),
		questions: make(map[string]domain.TriviaQuestion),
	}
}

func (s *Store) CreateUser(_ context.Context, username, email string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identityTakenLocked(0, username, email) {
		return domain.User{}, domain.ErrDuplicateIdentity
	}
	s.nextID++
	u := domain.User{ID: s.nextID, Username: username, Email: email}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("user %d: %w", id, domain.ErrUserNotFound)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, fmt.Errorf("user %q: %w", username, domain.ErrUserNotFound)
}

func (s *Store) UpdateUser(_ context.Context, id int64, username, email string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("user %d: %w", id, domain.ErrUserNotFound)
	}
	if s.identityTakenLocked(id, username, email) {
		return domain.User{}, domain.ErrDuplicateIdentity
	}
	u.Username = username
	u.Email = email
	s.users[id] = u
	return u, nil
}

func (s *Store) DeleteUser(_ context.Context, id int64) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("user %d: %w", id, domain.ErrUserNotFound)
	}
	delete(s.users, id)
	return u, nil
}

func (s *Store) CreateQuestion(_ context.Context, q domain.TriviaQuestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.questions[q.SecretKey]; exists {
		return fmt.Errorf("question %s already exists", q.SecretKey)
	}
	q.Options = append([]string(nil), q.Options...)
	s.questions[q.SecretKey] = q
	return nil
}

func (s *Store) GetQuestion(_ context.Context, key string) (domain.TriviaQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[key]
	if !ok {
		return domain.TriviaQuestion{}, fmt.Errorf("question %s: %w", key, domain.ErrQuestionNotFound)
	}
	q.Options = append([]string(nil), q.Options...)
	return q, nil
}

func (s *Store) DeleteQuestion(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[key]; !ok {
		return fmt.Errorf("question %s: %w", key, domain.ErrQuestionNotFound)
	}
	delete(s.questions, key)
	return nil
}

func (s *Store) SettleAnswer(_ context.Context, key string, userID int64, outcome domain.Outcome) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[key]; !ok {
		return domain.User{}, fmt.Errorf("question %s: %w", key, domain.ErrQuestionNotFound)
	}
	u, ok := s.users[userID]
	if !ok {
		return domain.User{}, fmt.Errorf("user %d: %w", userID, domain.ErrUserNotFound)
	}
	delete(s.questions, key)
	u.Questions++
	if outcome.Correct {
		u.CorrectAnswers++
		u.Score += outcome.Points
	}
	s.users[userID] = u
	return u, nil
}

func (s *Store) identityTakenLocked(self int64, username, email string) bool {
	for id, u := range s.users {
		if id == self {
			continue
		}
		if u.Username == username || u.Email == email {
			return true
		}
	}
	return false
}
