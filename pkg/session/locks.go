package session

import (
	"context"
	"sync"
)

// ThreadLocks serializes work per thread ID. Entries exist only while a
// holder or waiter references them.
type ThreadLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

func NewThreadLocks() *ThreadLocks {
	return &ThreadLocks{entries: make(map[string]*lockEntry)}
}

// Lock blocks until the lock for key is held or ctx is done. The returned
// func releases the lock and must be called exactly once.
func (l *ThreadLocks) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.release(key, e)
		})
	}, nil
}

func (l *ThreadLocks) release(key string, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}
