// Package keymutex provides a mutex keyed by id, used to serialize
// read-modify-write cycles per account and per request. The store has no
// multi-document transactions we rely on, so correctness of check-then-write
// sequences depends on this process being the only writer for a given key.
package keymutex

import "sync"

type KeyMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func New() *KeyMutex {
	return &KeyMutex{locks: make(map[string]*entry)}
}

// Lock acquires the mutex for key and returns the matching unlock func.
// Distinct keys never contend; entries are dropped once unreferenced.
func (k *KeyMutex) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
