// Package capacity implements the semaphore-bounded capacity gate: a hard
// passenger ceiling per bus and a hard concurrency ceiling per stop, the
// latter with FIFO admission ordering among contending buses.
//
// The gate tracks counts only, never identity: a successful BoardPassenger
// reserves a seat, nothing more. Stop admission is fair: arriving buses join
// a per-stop FIFO queue and only the head of the queue ever attempts to
// acquire the stop's admission semaphore, so a bus cannot overtake an earlier
// arrival no matter how the scheduler interleaves the pollers. A bus that
// times out removes its own queue entry, so a vanished bus cannot block the
// buses behind it.
package capacity

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/mtlsim/transitsync/internal/errors"
	"github.com/mtlsim/transitsync/internal/event"
	"github.com/mtlsim/transitsync/internal/halt"
	"github.com/mtlsim/transitsync/internal/logging"
	"github.com/mtlsim/transitsync/internal/metrics"
	"github.com/mtlsim/transitsync/internal/seed"
)

// defaultPollInterval is how often a queued bus re-checks head-of-queue
// admission.
const defaultPollInterval = 2 * time.Millisecond

// defaultJoinTimeout bounds how long Cleanup waits for blocked operations to
// drain after the halt signal trips.
const defaultJoinTimeout = 5 * time.Second

type busGate struct {
	sem *semaphore.Weighted

	mu   sync.Mutex
	held int64
}

type stopGate struct {
	sem *semaphore.Weighted

	mu       sync.Mutex
	queue    []string // FIFO of bus IDs awaiting admission; duplicates possible
	admitted int64
}

// Gate enforces per-bus seat ceilings and per-stop admission ceilings.
// Construct with New, then call Initialize before use.
type Gate struct {
	mu          sync.RWMutex
	initialized bool

	sd    *seed.Seed
	buses map[string]*busGate
	stops map[string]*stopGate

	sig          *halt.Signal
	ctx          context.Context
	cancel       context.CancelFunc
	waiters      sync.WaitGroup
	pollInterval time.Duration
	joinTimeout  time.Duration

	collector metrics.Collector
	bus       *event.Bus
	log       *logging.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithCollector sets the metrics collector invoked after each operation.
func WithCollector(c metrics.Collector) Option {
	return func(g *Gate) { g.collector = c }
}

// WithEventBus sets the bus on which state-change events are published.
func WithEventBus(b *event.Bus) Option {
	return func(g *Gate) { g.bus = b }
}

// WithLogger sets the structured logger.
func WithLogger(lg *logging.Logger) Option {
	return func(g *Gate) { g.log = lg.WithComponent("capacity") }
}

// WithHaltSignal shares an external stop signal; by default the Gate owns one.
func WithHaltSignal(sig *halt.Signal) Option {
	return func(g *Gate) { g.sig = sig }
}

// WithPollInterval tunes how often a queued bus re-checks admission.
func WithPollInterval(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.pollInterval = d
		}
	}
}

// WithJoinTimeout bounds the Cleanup wait for blocked operations to drain.
func WithJoinTimeout(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.joinTimeout = d
		}
	}
}

// New creates a Gate over the given seed. The seed is read at Initialize.
func New(sd *seed.Seed, opts ...Option) *Gate {
	g := &Gate{
		sd:           sd,
		collector:    metrics.Nop(),
		log:          logging.Nop(),
		pollInterval: defaultPollInterval,
		joinTimeout:  defaultJoinTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.sig == nil {
		g.sig = halt.NewSignal()
	}
	return g
}

// Initialize builds the per-bus and per-stop semaphores from the seed and
// wires the halt signal into pending acquisitions. A second call returns
// ErrAlreadyInitialized.
func (g *Gate) Initialize() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.initialized {
		return errors.ErrAlreadyInitialized
	}
	if err := g.sd.Validate(); err != nil {
		return err
	}

	g.buses = make(map[string]*busGate, len(g.sd.Buses))
	for id, b := range g.sd.Buses {
		g.buses[id] = &busGate{sem: semaphore.NewWeighted(int64(b.Capacity))}
	}
	g.stops = make(map[string]*stopGate, len(g.sd.Stops))
	for id := range g.sd.Stops {
		g.stops[id] = &stopGate{sem: semaphore.NewWeighted(int64(g.sd.StopConcurrency))}
	}

	g.ctx, g.cancel = context.WithCancel(context.Background())
	// Tripping the halt signal cancels every pending and future timed
	// acquisition.
	g.sig.Notify(g.cancel)

	g.initialized = true
	g.log.Info("capacity gate initialized",
		"buses", len(g.buses), "stops", len(g.stops), "stop_concurrency", g.sd.StopConcurrency)
	return nil
}

// Cleanup trips the halt signal, waits (bounded) for blocked operations to
// drain, and clears the registries. It is idempotent; it returns
// ErrCleanupTimeout if waiters did not drain in time.
func (g *Gate) Cleanup() error {
	g.sig.Trip()

	done := make(chan struct{})
	go func() {
		g.waiters.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-time.After(g.joinTimeout):
		err = errors.ErrCleanupTimeout
	}

	g.mu.Lock()
	g.buses = nil
	g.stops = nil
	g.initialized = false
	g.mu.Unlock()
	return err
}

// BoardPassenger reserves one seat on the bus, blocking up to timeout for a
// seat to free. A timeout of zero or less means a single non-blocking
// attempt: the seat is taken if one is free right now. Failure (timeout,
// halt, unknown bus) is reported as false and never retried internally.
func (g *Gate) BoardPassenger(busID, passengerID string, timeout time.Duration) bool {
	start := time.Now()
	md := map[string]any{"bus": busID, "passenger": passengerID}

	bg, ctx, ok := g.busGate(busID)
	if !ok || g.sig.Stopped() {
		g.record("capacity.board_passenger", false, 0, start, md)
		return false
	}

	g.waiters.Add(1)
	defer g.waiters.Done()

	waitStart := time.Now()
	var err error
	if timeout <= 0 {
		if !bg.sem.TryAcquire(1) {
			err = context.DeadlineExceeded
		}
	} else {
		acquireCtx, cancel := context.WithTimeout(ctx, timeout)
		err = bg.sem.Acquire(acquireCtx, 1)
		cancel()
	}
	wait := time.Since(waitStart)
	if err != nil {
		g.log.Debug("seat acquisition failed",
			"bus", busID, "passenger", passengerID, "wait", wait)
		g.record("capacity.board_passenger", false, wait, start, md)
		return false
	}

	bg.mu.Lock()
	bg.held++
	bg.mu.Unlock()

	g.publish(event.NewSeatReservedEvent(busID, passengerID))
	g.record("capacity.board_passenger", true, wait, start, md)
	return true
}

// AlightPassenger frees one seat on the bus. The gate cannot tell which seat
// belonged to whom; it only refuses to free a seat when none are held, so a
// stray release cannot inflate the bus's capacity.
func (g *Gate) AlightPassenger(busID, passengerID string) bool {
	start := time.Now()
	md := map[string]any{"bus": busID, "passenger": passengerID}

	bg, _, ok := g.busGate(busID)
	if !ok {
		g.record("capacity.alight_passenger", false, 0, start, md)
		return false
	}

	bg.mu.Lock()
	if bg.held == 0 {
		bg.mu.Unlock()
		g.record("capacity.alight_passenger", false, 0, start, md)
		return false
	}
	bg.held--
	bg.mu.Unlock()

	bg.sem.Release(1)
	g.publish(event.NewSeatReleasedEvent(busID, passengerID))
	g.record("capacity.alight_passenger", true, 0, start, md)
	return true
}

// BusArriveAtStop queues the bus for admission to the stop and blocks up to
// timeout for a berth. Admission is FIFO: only the bus at the head of the
// queue attempts the non-blocking acquire. On timeout or halt the bus removes
// its own queue entry (exactly one, wherever it sits) and reports failure.
func (g *Gate) BusArriveAtStop(busID, stopID string, timeout time.Duration) bool {
	start := time.Now()
	md := map[string]any{"bus": busID, "stop": stopID}

	sg, ctx, ok := g.stopGateFor(stopID)
	if !ok || !g.busKnown(busID) || g.sig.Stopped() {
		g.record("capacity.bus_arrive", false, 0, start, md)
		return false
	}

	g.waiters.Add(1)
	defer g.waiters.Done()

	deadline := time.Now().Add(timeout)
	sg.mu.Lock()
	sg.queue = append(sg.queue, busID)
	sg.mu.Unlock()

	waitStart := time.Now()
	for {
		sg.mu.Lock()
		if len(sg.queue) > 0 && sg.queue[0] == busID && sg.sem.TryAcquire(1) {
			sg.queue = sg.queue[1:]
			sg.admitted++
			sg.mu.Unlock()

			wait := time.Since(waitStart)
			g.publish(event.NewStopAdmittedEvent(busID, stopID))
			g.log.Debug("bus admitted", "bus", busID, "stop", stopID, "wait", wait)
			g.record("capacity.bus_arrive", true, wait, start, md)
			return true
		}
		sg.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 || g.sig.Stopped() {
			g.dequeueOnce(sg, busID)
			wait := time.Since(waitStart)
			g.log.Debug("bus admission timed out", "bus", busID, "stop", stopID, "wait", wait)
			g.record("capacity.bus_arrive", false, wait, start, md)
			return false
		}

		poll := g.pollInterval
		if poll > remaining {
			poll = remaining
		}
		timer := time.NewTimer(poll)
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
		timer.Stop()
	}
}

// BusDepartFromStop releases the bus's berth at the stop, allowing the next
// queued bus to attempt admission. It refuses when the stop has no admitted
// bus, so a stray departure cannot inflate the stop's ceiling.
func (g *Gate) BusDepartFromStop(busID, stopID string) bool {
	start := time.Now()
	md := map[string]any{"bus": busID, "stop": stopID}

	sg, _, ok := g.stopGateFor(stopID)
	if !ok || !g.busKnown(busID) {
		g.record("capacity.bus_depart", false, 0, start, md)
		return false
	}

	sg.mu.Lock()
	if sg.admitted == 0 {
		sg.mu.Unlock()
		g.record("capacity.bus_depart", false, 0, start, md)
		return false
	}
	sg.admitted--
	sg.mu.Unlock()

	sg.sem.Release(1)
	g.publish(event.NewStopReleasedEvent(busID, stopID))
	g.record("capacity.bus_depart", true, 0, start, md)
	return true
}

// QueueLength returns how many buses are queued for admission at the stop.
func (g *Gate) QueueLength(stopID string) int {
	sg, _, ok := g.stopGateFor(stopID)
	if !ok {
		return 0
	}
	sg.mu.Lock()
	defer sg.mu.Unlock()
	return len(sg.queue)
}

// dequeueOnce removes the first occurrence of busID from the stop queue.
// The same bus may legitimately appear more than once (concurrent arrivals);
// a timed-out arrival owns exactly one entry and removes exactly one.
func (g *Gate) dequeueOnce(sg *stopGate, busID string) {
	sg.mu.Lock()
	defer sg.mu.Unlock()

	for i, id := range sg.queue {
		if id == busID {
			sg.queue = append(sg.queue[:i], sg.queue[i+1:]...)
			return
		}
	}
}

func (g *Gate) busGate(id string) (*busGate, context.Context, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.initialized {
		return nil, nil, false
	}
	bg, ok := g.buses[id]
	return bg, g.ctx, ok
}

func (g *Gate) stopGateFor(id string) (*stopGate, context.Context, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.initialized {
		return nil, nil, false
	}
	sg, ok := g.stops[id]
	return sg, g.ctx, ok
}

func (g *Gate) busKnown(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.buses[id]
	return ok
}

func (g *Gate) publish(e event.Event) {
	if g.bus != nil {
		g.bus.Publish(e)
	}
}

func (g *Gate) record(category string, success bool, wait time.Duration, start time.Time, md map[string]any) {
	g.collector.Record(metrics.Sample{
		Category:   category,
		Success:    success,
		Wait:       wait,
		Processing: time.Since(start) - wait,
		Metadata:   md,
	})
}
