package halt

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalStartsUntripped(t *testing.T) {
	t.Parallel()

	s := NewSignal()
	assert.False(t, s.Stopped())
}

func TestTripLatchesAndRunsWakers(t *testing.T) {
	t.Parallel()

	s := NewSignal()
	var calls atomic.Int32
	s.Notify(func() { calls.Add(1) })
	s.Notify(func() { calls.Add(1) })

	s.Trip()
	require.True(t, s.Stopped())
	assert.Equal(t, int32(2), calls.Load())

	// Second trip must not re-run wakers.
	s.Trip()
	assert.Equal(t, int32(2), calls.Load())
}

func TestNotifyAfterTripRunsImmediately(t *testing.T) {
	t.Parallel()

	s := NewSignal()
	s.Trip()

	called := false
	s.Notify(func() { called = true })
	assert.True(t, called)
}

func TestTripWakesBlockedCondWaiter(t *testing.T) {
	t.Parallel()

	s := NewSignal()
	var mu sync.Mutex
	cond := sync.NewCond(&mu)
	s.Notify(cond.Broadcast)

	done := make(chan struct{})
	ready := make(chan struct{})
	go func() {
		mu.Lock()
		close(ready)
		for !s.Stopped() {
			cond.Wait()
		}
		mu.Unlock()
		close(done)
	}()

	<-ready
	// The waiter may not have entered Wait yet; locking the mutex first
	// guarantees it has released it inside cond.Wait.
	mu.Lock()
	mu.Unlock() //nolint:staticcheck
	s.Trip()
	<-done
}

func TestConcurrentTrip(t *testing.T) {
	t.Parallel()

	s := NewSignal()
	var calls atomic.Int32
	s.Notify(func() { calls.Add(1) })

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Trip()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}
