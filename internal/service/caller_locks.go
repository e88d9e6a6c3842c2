package service

import "sync"

// callerLocks serializa eventos del mismo caller sin bloquear a los demás.
type callerLocks struct {
	mu    sync.Mutex
	locks map[string]*callerLock
}

type callerLock struct {
	mu   sync.Mutex
	refs int
}

func newCallerLocks() *callerLocks {
	return &callerLocks{locks: make(map[string]*callerLock)}
}

// Lock bloquea al caller y devuelve la función de liberación.
func (l *callerLocks) Lock(callerID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[callerID]
	if !ok {
		lock = &callerLock{}
		l.locks[callerID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, callerID)
		}
		l.mu.Unlock()
	}
}

func (l *callerLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
