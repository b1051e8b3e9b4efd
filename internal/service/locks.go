package service

import "sync"

// addressLocks serializes claim requests per address. Two concurrent claims
// for the same address must not both pass the rewarded pre-check before
// either broadcasts. Entries are refcounted so the map does not grow with
// every address ever seen.
type addressLocks struct {
	mu    sync.Mutex
	locks map[string]*addressLock
}

type addressLock struct {
	sync.Mutex
	refs int
}

func newAddressLocks() *addressLocks {
	return &addressLocks{locks: make(map[string]*addressLock)}
}

// acquire blocks until the per-address lock is held and returns the release
// function.
func (a *addressLocks) acquire(address string) func() {
	a.mu.Lock()
	lock, ok := a.locks[address]
	if !ok {
		lock = &addressLock{}
		a.locks[address] = lock
	}
	lock.refs++
	a.mu.Unlock()

	lock.Lock()
	return func() {
		lock.Unlock()
		a.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(a.locks, address)
		}
		a.mu.Unlock()
	}
}
