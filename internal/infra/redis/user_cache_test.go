package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"trivia-service/internal/app"
	"trivia-service/internal/domain"
	"trivia-service/internal/infra/memory"
	"trivia-service/internal/infra/storetest"
)

func TestUserCacheContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) app.Store {
		_, client := newMiniredis(t)
		return NewUserCache(memory.NewStore(), client, time.Minute)
	})
}

func TestUserCacheServesRepeatedReads(t *testing.T) {
	mr, client := newMiniredis(t)
	store := &countingStore{Store: memory.NewStore()}
	cache := NewUserCache(store, client, time.Minute)
	ctx := context.Background()

	u, err := cache.CreateUser(ctx, "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := cache.GetUser(ctx, u.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
	if store.gets != 1 {
		t.Fatalf("expected store read once, got %d", store.gets)
	}
	if _, err := cache.GetUser(ctx, u.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := cache.GetUserByUsername(ctx, "alice"); err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if store.gets != 1 || store.byName != 0 {
		t.Fatalf("expected cache hits, store gets=%d byName=%d", store.gets, store.byName)
	}
	if !mr.Exists("trivia:user:1") || !mr.Exists("trivia:username:alice") {
		t.Fatalf("expected cache keys, have %v", mr.Keys())
	}
	if ttl := mr.TTL("trivia:user:1"); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("expected jittered ttl, got %v", ttl)
	}
}

func TestUserCacheDropsEntryOnSettlement(t *testing.T) {
	mr, client := newMiniredis(t)
	cache := NewUserCache(memory.NewStore(), client, time.Minute)
	ctx := context.Background()

	u, _ := cache.CreateUser(ctx, "alice", "alice@example.com")
	if _, err := cache.GetUser(ctx, u.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := cache.CreateQuestion(ctx, storetest.Question("k1", "Paris", 300, "Lyon")); err != nil {
		t.Fatalf("create question: %v", err)
	}
	if _, err := cache.SettleAnswer(ctx, "k1", u.ID, domain.Outcome{Correct: true, Points: 300}); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if mr.Exists("trivia:user:1") {
		t.Fatalf("expected cached user dropped after settlement")
	}

	got, err := cache.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Score != 300 || got.Questions != 1 {
		t.Fatalf("expected fresh counters, got %+v", got)
	}
	if !mr.Exists("trivia:user:1") {
		t.Fatalf("expected a read after the write to fill the cache again")
	}
	if ttl := mr.TTL("trivia:user:1:gen"); ttl != 2*time.Minute {
		t.Fatalf("expected generation key to outlive entries, got ttl %v", ttl)
	}
}

func TestUserCacheSkipsFillRacingAWrite(t *testing.T) {
	cases := []struct {
		name  string
		write func(ctx context.Context, cache *UserCache, id int64) error
		check func(u domain.User) bool
	}{
		{
			name: "settlement",
			write: func(ctx context.Context, cache *UserCache, id int64) error {
				if err := cache.CreateQuestion(ctx, storetest.Question("k1", "Paris", 300, "Lyon")); err != nil {
					return err
				}
				_, err := cache.SettleAnswer(ctx, "k1", id, domain.Outcome{Correct: true, Points: 300})
				return err
			},
			check: func(u domain.User) bool { return u.Score == 300 && u.Questions == 1 && u.CorrectAnswers == 1 },
		},
		{
			name: "profile update",
			write: func(ctx context.Context, cache *UserCache, id int64) error {
				_, err := cache.UpdateUser(ctx, id, "alice", "new@example.com")
				return err
			},
			check: func(u domain.User) bool { return u.Email == "new@example.com" },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mr, client := newMiniredis(t)
			store := &interleavingStore{Store: memory.NewStore()}
			cache := NewUserCache(store, client, time.Minute)
			ctx := context.Background()

			u, err := cache.CreateUser(ctx, "alice", "alice@example.com")
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			store.afterLoad = func() {
				if err := tc.write(ctx, cache, u.ID); err != nil {
					t.Errorf("write during load: %v", err)
				}
			}

			stale, err := cache.GetUser(ctx, u.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if tc.check(stale) {
				t.Fatalf("expected the racing read to return the pre-write user, got %+v", stale)
			}
			if mr.Exists("trivia:user:1") {
				t.Fatalf("pre-write user was cached over a concurrent write")
			}

			fresh, err := cache.GetUser(ctx, u.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if !tc.check(fresh) {
				t.Fatalf("expected post-write user, got %+v", fresh)
			}
		})
	}
}

func TestUserCacheFollowsRename(t *testing.T) {
	_, client := newMiniredis(t)
	cache := NewUserCache(memory.NewStore(), client, time.Minute)
	ctx := context.Background()

	u, _ := cache.CreateUser(ctx, "alice", "alice@example.com")
	if _, err := cache.GetUserByUsername(ctx, "alice"); err != nil {
		t.Fatalf("warm: %v", err)
	}
	if _, err := cache.UpdateUser(ctx, u.ID, "alicia", "alice@example.com"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := cache.GetUserByUsername(ctx, "alice"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected old name gone, got %v", err)
	}
	got, err := cache.GetUserByUsername(ctx, "alicia")
	if err != nil || got.ID != u.ID {
		t.Fatalf("expected renamed user, got %+v, %v", got, err)
	}
}

type countingStore struct {
	app.Store
	gets   int
	byName int
}

func (s *countingStore) GetUser(ctx context.Context, id int64) (domain.User, error) {
	s.gets++
	return s.Store.GetUser(ctx, id)
}

func (s *countingStore) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	s.byName++
	return s.Store.GetUserByUsername(ctx, username)
}

// interleavingStore runs afterLoad once, between loading a user and returning it.
type interleavingStore struct {
	app.Store
	afterLoad func()
}

func (s *interleavingStore) GetUser(ctx context.Context, id int64) (domain.User, error) {
	u, err := s.Store.GetUser(ctx, id)
	if hook := s.afterLoad; hook != nil {
		s.afterLoad = nil
		hook()
	}
	return u, err
}
