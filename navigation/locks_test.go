package navigation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedLocksSerializePerKey(t *testing.T) {
	locks := newKeyedLocks()

	const n = 50
	counter := 0
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			unlock := locks.Lock(1, 100)
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, n, counter)
	locks.mu.Lock()
	assert.Empty(t, locks.locks, "idle entries must be released")
	locks.mu.Unlock()
}

func TestKeyedLocksIndependentKeys(t *testing.T) {
	locks := newKeyedLocks()

	unlockA := locks.Lock(1, 100)
	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock(1, 101)
		unlockB()
		close(done)
	}()
	<-done
	unlockA()
}
