/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package table

import "sync"

// keyLocks hands out one mutex per key; entries are dropped when unused.
type keyLocks struct {
	mu sync.Mutex
	m  map[any]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{m: make(map[any]*keyLock)}
}

// lock acquires the mutex of k and returns its release func.
func (l *keyLocks) lock(k any) func() {
	l.mu.Lock()
	kl, ok := l.m[k]
	if !ok {
		kl = &keyLock{}
		l.m[k] = kl
	}
	kl.refs++
	l.mu.Unlock()

	kl.Lock()
	return func() {
		kl.Unlock()

		l.mu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(l.m, k)
		}
		l.mu.Unlock()
	}
}

// size reports how many keys currently hold or wait for a lock.
func (l *keyLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
