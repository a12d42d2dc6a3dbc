package services

import "sync"

// scopeLocks serialises work per scope. Entries are dropped once unused so
// the map does not grow with every scope ever seen.
type scopeLocks struct {
	mu    sync.Mutex
	locks map[string]*scopeLock
}

type scopeLock struct {
	sync.Mutex
	refs int
}

func newScopeLocks() *scopeLocks {
	return &scopeLocks{locks: make(map[string]*scopeLock)}
}

// lock acquires the scope's mutex and returns its release function.
func (l *scopeLocks) lock(scope string) func() {
	l.mu.Lock()
	sl, ok := l.locks[scope]
	if !ok {
		sl = &scopeLock{}
		l.locks[scope] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.Lock()
	return func() {
		sl.Unlock()
		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.locks, scope)
		}
		l.mu.Unlock()
	}
}

func (l *scopeLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
