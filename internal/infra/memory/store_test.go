package memory

import (
	"context"
	"testing"

	"trivia-service/internal/app"
	"trivia-service/internal/infra/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) app.Store { return NewStore() })
}

func TestQuestionOptionsAreCopied(t *testing.T) {
	s := NewStore()
	q := storetest.Question("k1", "Paris", 300, "Lyon")
	if err := s.CreateQuestion(context.Background(), q); err != nil {
		t.Fatalf("create: %v", err)
	}
	q.Options[0] = "mutated"

	got, err := s.GetQuestion(context.Background(), "k1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Options[0] != "Lyon" {
		t.Fatalf("stored options changed through caller slice: %v", got.Options)
	}
	got.Options[0] = "mutated again"
	again, _ := s.GetQuestion(context.Background(), "k1")
	if again.Options[0] != "Lyon" {
		t.Fatalf("stored options changed through returned slice: %v", again.Options)
	}
}
