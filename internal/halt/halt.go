// Package halt provides the process-wide cooperative stop signal shared by
// all coordinators.
//
// The signal is a latch: once tripped it stays tripped. Every timed wait in
// the coordinators checks Stopped on each wakeup and returns a failure result
// promptly when the signal is set. Monitors register wake callbacks so that
// tripping the signal broadcasts every condition variable and cancels every
// pending semaphore acquisition without forced preemption.
package halt

import (
	"sync"
	"sync/atomic"
)

// Signal is a latched cooperative cancellation token. The zero value is not
// usable; construct with NewSignal. Signal is safe for concurrent use.
type Signal struct {
	tripped atomic.Bool

	mu     sync.Mutex
	wakers []func()
}

// NewSignal creates an untripped Signal.
func NewSignal() *Signal {
	return &Signal{}
}

// Stopped reports whether the signal has been tripped.
func (s *Signal) Stopped() bool {
	return s.tripped.Load()
}

// Trip latches the signal and invokes every registered waker. Wakers are
// called outside the signal's lock so they may broadcast condition variables
// that in turn re-check Stopped. Trip is idempotent: only the first call runs
// the wakers.
func (s *Signal) Trip() {
	if s.tripped.Swap(true) {
		return
	}

	s.mu.Lock()
	wakers := make([]func(), len(s.wakers))
	copy(wakers, s.wakers)
	s.mu.Unlock()

	for _, wake := range wakers {
		wake()
	}
}

// Notify registers a waker invoked when the signal trips. If the signal has
// already tripped, the waker runs immediately so late registrants cannot
// miss the wakeup.
func (s *Signal) Notify(wake func()) {
	s.mu.Lock()
	s.wakers = append(s.wakers, wake)
	tripped := s.tripped.Load()
	s.mu.Unlock()

	if tripped {
		wake()
	}
}
