package runtime

import (
	"sync"
)

// accountLocks hands out account locks without blocking. A writable lock is
// exclusive, read-only locks are shared.
type accountLocks struct {
	mu       sync.Mutex
	writable map[string]struct{}
	readonly map[string]int
}

func newAccountLocks() *accountLocks {
	return &accountLocks{
		writable: make(map[string]struct{}),
		readonly: make(map[string]int),
	}
}

// tryLock acquires every lock or none of them.
func (l *accountLocks) tryLock(writable, readonly []string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, key := range writable {
		if _, ok := l.writable[key]; ok {
			return false
		}
		if l.readonly[key] > 0 {
			return false
		}
	}
	for _, key := range readonly {
		if _, ok := l.writable[key]; ok {
			return false
		}
	}

	for _, key := range writable {
		l.writable[key] = struct{}{}
	}
	for _, key := range readonly {
		l.readonly[key]++
	}
	return true
}

func (l *accountLocks) unlock(writable, readonly []string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, key := range writable {
		delete(l.writable, key)
	}
	for _, key := range readonly {
		l.readonly[key]--
		if l.readonly[key] <= 0 {
			delete(l.readonly, key)
		}
	}
}
