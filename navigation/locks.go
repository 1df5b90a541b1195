package navigation

import "sync"

type lockKey struct {
	tenantID int64
	userID   int64
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// keyedLocks serializes work per (tenant, user) inside the process. Entries
// are reference-counted and removed once idle, so the map never grows with
// the total user population, only with in-flight keys.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[lockKey]*lockEntry
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[lockKey]*lockEntry)}
}

// Lock blocks until the key is exclusively held and returns the release func.
func (k *keyedLocks) Lock(tenantID, userID int64) func() {
	key := lockKey{tenantID: tenantID, userID: userID}

	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &lockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
