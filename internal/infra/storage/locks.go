package storage

import "sync"

// keyedMutex hands out one mutex per key instead of a global lock, so trades
// on different symbols or accounts never contend with each other.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() keyedMutex {
	return keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for key, creating it on first use, and returns the
// unlock function.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
