package ledger

import "sync"

// vaultLocks serializes operations per vault id. Entries are reference
// counted and dropped once no goroutine holds or waits on them.
type vaultLocks struct {
	mu    sync.Mutex
	locks map[Hash]*vaultLock
}

type vaultLock struct {
	mu   sync.Mutex
	refs int
}

func newVaultLocks() *vaultLocks {
	return &vaultLocks{locks: make(map[Hash]*vaultLock)}
}

// lock acquires the mutex for id and returns its release function.
func (v *vaultLocks) lock(id Hash) func() {
	v.mu.Lock()
	l, ok := v.locks[id]
	if !ok {
		l = &vaultLock{}
		v.locks[id] = l
	}
	l.refs++
	v.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		v.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(v.locks, id)
		}
		v.mu.Unlock()
	}
}

// size returns the number of live entries.
func (v *vaultLocks) size() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return len(v.locks)
}
