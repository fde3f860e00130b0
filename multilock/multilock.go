package multilock

import (
	"context"

	golock "github.com/viney-shih/go-lock"
)

// MultiLock is a system for locking of individual string-keyed resources.
type MultiLock struct {
	l     *golock.CASMutex
	locks map[string]*golock.CASMutex
}

// New instantiates a new MultiLock.
func New() *MultiLock {
	return &MultiLock{l: golock.NewCASMutex(), locks: map[string]*golock.CASMutex{}}
}

// Acquire acquires the lock for the given key, returning true on success and false once ctx is done.
func (m *MultiLock) Acquire(ctx context.Context, key string) bool {
	if !m.l.TryLockWithContext(ctx) {
		return false
	}
	keyLock, ok := m.locks[key]
	if !ok {
		keyLock = golock.NewCASMutex()
		m.locks[key] = keyLock
	}
	m.l.Unlock()

	return keyLock.TryLockWithContext(ctx)
}

// Release releases the lock for the given key. It must only be called by the holder of the key.
func (m *MultiLock) Release(key string) {
	m.l.Lock()
	keyLock, ok := m.locks[key]
	m.l.Unlock()
	if ok {
		keyLock.Unlock()
	}
}
