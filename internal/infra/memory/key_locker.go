package memory

import (
	"context"
	"sync"
)

// KeyLocker is an in-process implementation of app.KeyLocker. Each key gets
// its own lock, created on first use and dropped once nobody holds or waits on it.
type KeyLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func NewKeyLocker() *KeyLocker {
	return &KeyLocker{
		locks: make(map[string]*keyLock),
	}
}

// Lock blocks until key is free or ctx is done.
func (l *KeyLocker) Lock(ctx context.Context, key string) (func(), error) {
	kl := l.getOrCreate(key)
	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.deleteIfUnused(key)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			l.deleteIfUnused(key)
		})
	}, nil
}

// Len reports how many keys currently have a lock entry.
func (l *KeyLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *KeyLocker) getOrCreate(key string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	return kl
}

func (l *KeyLocker) deleteIfUnused(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.locks[key]
	if !ok {
		return
	}
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}
