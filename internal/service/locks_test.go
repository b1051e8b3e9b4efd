package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddressLocksSerializePerKey(t *testing.T) {
	locks := newAddressLocks()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
	)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.acquire("0xabc")
			defer release()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen, "only one goroutine holds a given address lock at a time")
}

func TestAddressLocksReleaseCleansUp(t *testing.T) {
	locks := newAddressLocks()

	release := locks.acquire("0xabc")
	release()

	locks.mu.Lock()
	defer locks.mu.Unlock()
	assert.Empty(t, locks.locks, "released locks are dropped from the map")
}

func TestAddressLocksIndependentKeys(t *testing.T) {
	locks := newAddressLocks()

	releaseA := locks.acquire("0xaaa")
	done := make(chan struct{})
	go func() {
		releaseB := locks.acquire("0xbbb")
		releaseB()
		close(done)
	}()

	// a held lock on one address must not block another address
	<-done
	releaseA()
}
