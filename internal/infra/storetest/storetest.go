// Package storetest checks an app.Store implementation against the shared contract.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"trivia-service/internal/app"
	"trivia-service/internal/domain"
)

// Run executes the contract suite; newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) app.Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("duplicate identity", func(t *testing.T) { testDuplicates(t, newStore(t)) })
	t.Run("questions", func(t *testing.T) { testQuestions(t, newStore(t)) })
	t.Run("settle answer", func(t *testing.T) { testSettle(t, newStore(t)) })
	t.Run("settle concurrently", func(t *testing.T) { testSettleConcurrent(t, newStore(t)) })
}

// Question builds a pending question for tests.
func Question(key, correct string, value int, incorrect ...string) domain.TriviaQuestion {
	return domain.TriviaQuestion{
		SecretKey:     key,
		Question:      "Question " + key,
		Options:       append(append([]string(nil), incorrect...), correct),
		CorrectAnswer: correct,
		Value:         value,
		Difficulty:    domain.Hard,
		Category:      22,
		CreatedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func testUsers(t *testing.T, s app.Store) {
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID == 0 || u.Score != 0 || u.Questions != 0 || u.CorrectAnswers != 0 {
		t.Fatalf("unexpected new user %+v", u)
	}

	got, err := s.GetUser(ctx, u.ID)
	if err != nil || got != u {
		t.Fatalf("get: %+v, %v", got, err)
	}
	byName, err := s.GetUserByUsername(ctx, "alice")
	if err != nil || byName.ID != u.ID {
		t.Fatalf("get by username: %+v, %v", byName, err)
	}

	updated, err := s.UpdateUser(ctx, u.ID, "alicia", "alicia@example.com")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Username != "alicia" || updated.Email != "alicia@example.com" {
		t.Fatalf("unexpected update %+v", updated)
	}
	if _, err := s.GetUserByUsername(ctx, "alice"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected old username gone, got %v", err)
	}

	deleted, err := s.DeleteUser(ctx, u.ID)
	if err != nil || deleted.Username != "alicia" {
		t.Fatalf("delete: %+v, %v", deleted, err)
	}
	if _, err := s.GetUser(ctx, u.ID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if _, err := s.DeleteUser(ctx, u.ID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if _, err := s.UpdateUser(ctx, 999999, "x", "x@example.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected not found on update, got %v", err)
	}
}

func testDuplicates(t *testing.T, s app.Store) {
	ctx := context.Background()

	a, err := s.CreateUser(ctx, "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateUser(ctx, "alice", "other@example.com"); !errors.Is(err, domain.ErrDuplicateIdentity) {
		t.Fatalf("expected duplicate username error, got %v", err)
	}
	if _, err := s.CreateUser(ctx, "bob", "alice@example.com"); !errors.Is(err, domain.ErrDuplicateIdentity) {
		t.Fatalf("expected duplicate email error, got %v", err)
	}
	b, err := s.CreateUser(ctx, "bob", "bob@example.com")
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}
	if _, err := s.UpdateUser(ctx, b.ID, "alice", "bob@example.com"); !errors.Is(err, domain.ErrDuplicateIdentity) {
		t.Fatalf("expected duplicate on update, got %v", err)
	}
	if _, err := s.UpdateUser(ctx, a.ID, "alice", "alice@example.com"); err != nil {
		t.Fatalf("updating to own identity should succeed: %v", err)
	}
}

func testQuestions(t *testing.T, s app.Store) {
	ctx := context.Background()

	q := Question("k1", "Paris", 300, "Lyon", "Nice")
	if err := s.CreateQuestion(ctx, q); err != nil {
		t.Fatalf("create question: %v", err)
	}
	got, err := s.GetQuestion(ctx, "k1")
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if got.CorrectAnswer != "Paris" || got.Value != 300 || len(got.Options) != 3 || got.Difficulty != domain.Hard || got.Category != 22 {
		t.Fatalf("unexpected question %+v", got)
	}
	if err := s.DeleteQuestion(ctx, "k1"); err != nil {
		t.Fatalf("delete question: %v", err)
	}
	if _, err := s.GetQuestion(ctx, "k1"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.DeleteQuestion(ctx, "k1"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func testSettle(t *testing.T, s app.Store) {
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, q := range []domain.TriviaQuestion{
		Question("k1", "Paris", 300, "Lyon"),
		Question("k2", "Rome", 100, "Milan"),
	} {
		if err := s.CreateQuestion(ctx, q); err != nil {
			t.Fatalf("create question: %v", err)
		}
	}

	after, err := s.SettleAnswer(ctx, "k1", u.ID, domain.Outcome{Correct: false})
	if err != nil {
		t.Fatalf("settle k1: %v", err)
	}
	if after.Questions != 1 || after.CorrectAnswers != 0 || after.Score != 0 {
		t.Fatalf("unexpected counters after incorrect answer %+v", after)
	}

	after, err = s.SettleAnswer(ctx, "k2", u.ID, domain.Outcome{Correct: true, Points: 100})
	if err != nil {
		t.Fatalf("settle k2: %v", err)
	}
	if after.Questions != 2 || after.CorrectAnswers != 1 || after.Score != 100 {
		t.Fatalf("unexpected counters after correct answer %+v", after)
	}

	if _, err := s.SettleAnswer(ctx, "k2", u.ID, domain.Outcome{Correct: true, Points: 100}); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found on replay, got %v", err)
	}
	stored, err := s.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Questions != 2 || stored.Score != 100 {
		t.Fatalf("replay must not change the user, got %+v", stored)
	}

	if err := s.CreateQuestion(ctx, Question("k3", "Oslo", 200)); err != nil {
		t.Fatalf("create question: %v", err)
	}
	if _, err := s.SettleAnswer(ctx, "k3", 999999, domain.Outcome{Correct: true, Points: 200}); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
	if _, err := s.GetQuestion(ctx, "k3"); err != nil {
		t.Fatalf("question must survive a failed settlement: %v", err)
	}
}

func testSettleConcurrent(t *testing.T, s app.Store) {
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	const keys = 5
	const attempts = 8
	for i := 0; i < keys; i++ {
		if err := s.CreateQuestion(ctx, Question(fmt.Sprintf("c%d", i), "Paris", 100)); err != nil {
			t.Fatalf("create question: %v", err)
		}
	}

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < keys; i++ {
		for j := 0; j < attempts; j++ {
			wg.Add(1)
			go func(key string) {
				defer wg.Done()
				_, err := s.SettleAnswer(ctx, key, u.ID, domain.Outcome{Correct: true, Points: 100})
				switch {
				case err == nil:
					wins.Add(1)
				case errors.Is(err, domain.ErrQuestionNotFound):
				default:
					t.Errorf("settle %s: %v", key, err)
				}
			}(fmt.Sprintf("c%d", i))
		}
	}
	wg.Wait()

	if wins.Load() != keys {
		t.Fatalf("expected exactly %d successful settlements, got %d", keys, wins.Load())
	}
	got, err := s.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Questions != keys || got.CorrectAnswers != keys || got.Score != keys*100 {
		t.Fatalf("unexpected counters %+v", got)
	}
}
