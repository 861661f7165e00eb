package service

import "sync"

// AccountLocker serializes load-modify-save cycles on one account within
// this process. Writers in other processes are caught by the version check
// on save.
type AccountLocker struct {
	mu    sync.Mutex
	locks map[string]*accountLock
}

type accountLock struct {
	mu   sync.Mutex
	refs int
}

func NewAccountLocker() *AccountLocker {
	return &AccountLocker{locks: make(map[string]*accountLock)}
}

// Lock blocks until key is free and returns the matching unlock. Calling
// unlock more than once is a no-op.
func (l *AccountLocker) Lock(key string) (unlock func()) {
	l.mu.Lock()
	lk, ok := l.locks[key]
	if !ok {
		lk = &accountLock{}
		l.locks[key] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			lk.mu.Unlock()

			l.mu.Lock()
			lk.refs--
			if lk.refs == 0 {
				delete(l.locks, key)
			}
			l.mu.Unlock()
		})
	}
}

// held reports how many callers hold or wait for key.
func (l *AccountLocker) held(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lk, ok := l.locks[key]; ok {
		return lk.refs
	}
	return 0
}
