package capacity

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlsim/transitsync/internal/errors"
	"github.com/mtlsim/transitsync/internal/halt"
	"github.com/mtlsim/transitsync/internal/metrics"
	"github.com/mtlsim/transitsync/internal/seed"
)

func testSeed() *seed.Seed {
	return &seed.Seed{
		Buses: map[string]seed.Bus{
			"B1": {Capacity: 3},
			"B2": {Capacity: 1},
			"B3": {Capacity: 2},
		},
		Stops: map[string]seed.Stop{
			"S1": {Capacity: 10},
			"S2": {Capacity: 10},
		},
		Passengers: map[string]seed.Passenger{
			"P1": {Balance: 10},
		},
		Fare:            3.50,
		PassPrice:       45.00,
		StopConcurrency: 2,
	}
}

func newTestGate(t *testing.T, opts ...Option) *Gate {
	t.Helper()

	g := New(testSeed(), opts...)
	require.NoError(t, g.Initialize())
	t.Cleanup(func() { _ = g.Cleanup() })
	return g
}

func TestInitializeTwice(t *testing.T) {
	t.Parallel()

	g := newTestGate(t)
	assert.ErrorIs(t, g.Initialize(), errors.ErrAlreadyInitialized)
}

func TestBoardUpToCapacityThenTimeout(t *testing.T) {
	t.Parallel()

	g := newTestGate(t)

	// B1 seats three.
	for range 3 {
		require.True(t, g.BoardPassenger("B1", "P1", time.Second))
	}

	// A fourth board attempt must time out, not succeed.
	startAt := time.Now()
	assert.False(t, g.BoardPassenger("B1", "P1", 50*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(startAt), 50*time.Millisecond)

	// One alight frees exactly one further board.
	require.True(t, g.AlightPassenger("B1", "P1"))
	assert.True(t, g.BoardPassenger("B1", "P1", time.Second))
	assert.False(t, g.BoardPassenger("B1", "P1", 20*time.Millisecond))
}

func TestZeroTimeoutBoardIsImmediateAttempt(t *testing.T) {
	t.Parallel()

	g := newTestGate(t)

	// A free seat is taken without blocking.
	require.True(t, g.BoardPassenger("B2", "P1", 0))

	// B2 is now full; the non-blocking attempt fails instead of waiting.
	assert.False(t, g.BoardPassenger("B2", "P1", 0))
	assert.False(t, g.BoardPassenger("B2", "P1", -time.Second))

	require.True(t, g.AlightPassenger("B2", "P1"))
	assert.True(t, g.BoardPassenger("B2", "P1", 0))
}

func TestBoardUnknownBus(t *testing.T) {
	t.Parallel()

	g := newTestGate(t)
	assert.False(t, g.BoardPassenger("B9", "P1", 10*time.Millisecond))
}

func TestAlightWithNoSeatHeld(t *testing.T) {
	t.Parallel()

	g := newTestGate(t)
	assert.False(t, g.AlightPassenger("B1", "P1"))
	assert.False(t, g.AlightPassenger("B9", "P1"))
}

func TestSeatFreedUnblocksWaiter(t *testing.T) {
	t.Parallel()

	g := newTestGate(t)
	require.True(t, g.BoardPassenger("B2", "P1", time.Second)) // capacity 1

	done := make(chan bool, 1)
	go func() {
		done <- g.BoardPassenger("B2", "P1", 2*time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	require.True(t, g.AlightPassenger("B2", "P1"))

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("blocked board never completed")
	}
}

func TestStopAdmissionCeiling(t *testing.T) {
	t.Parallel()

	g := newTestGate(t)

	// Ceiling 2: two buses admitted immediately, the third only after a
	// departure.
	require.True(t, g.BusArriveAtStop("B1", "S1", time.Second))
	require.True(t, g.BusArriveAtStop("B2", "S1", time.Second))

	third := make(chan bool, 1)
	go func() {
		third <- g.BusArriveAtStop("B3", "S1", 2*time.Second)
	}()

	// The third bus must still be queued shortly after.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, g.QueueLength("S1"))

	require.True(t, g.BusDepartFromStop("B1", "S1"))

	select {
	case ok := <-third:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("third bus never admitted")
	}
	assert.Equal(t, 0, g.QueueLength("S1"))
}

func TestStopAdmissionFIFO(t *testing.T) {
	t.Parallel()

	sd := testSeed()
	sd.StopConcurrency = 1
	g := New(sd, WithPollInterval(time.Millisecond))
	require.NoError(t, g.Initialize())
	t.Cleanup(func() { _ = g.Cleanup() })

	// Occupy the single berth so arrivals queue behind each other.
	require.True(t, g.BusArriveAtStop("B1", "S1", time.Second))

	var mu sync.Mutex
	var order []string
	var wg sync.WaitGroup
	enqueue := func(bus string) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.BusArriveAtStop(bus, "S1", 5*time.Second) {
				mu.Lock()
				order = append(order, bus)
				mu.Unlock()
				// Hold briefly, then free the berth for the next bus.
				time.Sleep(5 * time.Millisecond)
				g.BusDepartFromStop(bus, "S1")
			}
		}()
		// Stagger enqueues so the queue order is deterministic.
		time.Sleep(20 * time.Millisecond)
	}

	enqueue("B2")
	enqueue("B3")

	require.True(t, g.BusDepartFromStop("B1", "S1"))
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"B2", "B3"}, order)
}

func TestQueuedBusTimesOutAndSelfCleans(t *testing.T) {
	t.Parallel()

	g := newTestGate(t)
	require.True(t, g.BusArriveAtStop("B1", "S1", time.Second))
	require.True(t, g.BusArriveAtStop("B2", "S1", time.Second))

	// Stop is full: the third arrival times out and must remove its queue
	// entry so later arrivals are not blocked behind a ghost.
	assert.False(t, g.BusArriveAtStop("B3", "S1", 40*time.Millisecond))
	assert.Equal(t, 0, g.QueueLength("S1"))

	require.True(t, g.BusDepartFromStop("B1", "S1"))
	assert.True(t, g.BusArriveAtStop("B3", "S1", time.Second))
}

func TestDepartWithoutAdmission(t *testing.T) {
	t.Parallel()

	g := newTestGate(t)
	assert.False(t, g.BusDepartFromStop("B1", "S1"))
}

func TestUnknownStopOrBusArrival(t *testing.T) {
	t.Parallel()

	g := newTestGate(t)
	assert.False(t, g.BusArriveAtStop("B1", "S9", 10*time.Millisecond))
	assert.False(t, g.BusArriveAtStop("B9", "S1", 10*time.Millisecond))
}

func TestHaltWakesBlockedOperations(t *testing.T) {
	t.Parallel()

	sig := halt.NewSignal()
	g := New(testSeed(), WithHaltSignal(sig), WithPollInterval(time.Millisecond))
	require.NoError(t, g.Initialize())

	require.True(t, g.BoardPassenger("B2", "P1", time.Second)) // fill the one seat
	require.True(t, g.BusArriveAtStop("B1", "S1", time.Second))
	require.True(t, g.BusArriveAtStop("B2", "S1", time.Second))

	results := make(chan bool, 2)
	go func() { results <- g.BoardPassenger("B2", "P1", 10*time.Second) }()
	go func() { results <- g.BusArriveAtStop("B3", "S1", 10*time.Second) }()

	time.Sleep(30 * time.Millisecond)
	sig.Trip()

	for range 2 {
		select {
		case ok := <-results:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("halt did not wake blocked operation")
		}
	}

	// New operations fail promptly after the halt.
	assert.False(t, g.BoardPassenger("B1", "P1", 10*time.Second))
	require.NoError(t, g.Cleanup())
}

func TestCleanupDrainsWaiters(t *testing.T) {
	t.Parallel()

	g := New(testSeed(), WithPollInterval(time.Millisecond))
	require.NoError(t, g.Initialize())

	require.True(t, g.BoardPassenger("B2", "P1", time.Second))
	blocked := make(chan bool, 1)
	go func() { blocked <- g.BoardPassenger("B2", "P1", 30*time.Second) }()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, g.Cleanup())
	select {
	case ok := <-blocked:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("cleanup returned before the waiter drained")
	}

	assert.False(t, g.BoardPassenger("B1", "P1", time.Millisecond))
}

func TestMetricsWaitRecorded(t *testing.T) {
	t.Parallel()

	rec := metrics.NewRecorder()
	g := New(testSeed(), WithCollector(rec))
	require.NoError(t, g.Initialize())
	t.Cleanup(func() { _ = g.Cleanup() })

	require.True(t, g.BoardPassenger("B2", "P1", time.Second))
	require.False(t, g.BoardPassenger("B2", "P1", 50*time.Millisecond))

	cs, ok := rec.Stats("capacity.board_passenger")
	require.True(t, ok)
	assert.Equal(t, 2, cs.Count)
	assert.Equal(t, 1, cs.Successes)
	assert.GreaterOrEqual(t, cs.MaxWait, 50*time.Millisecond)
}
