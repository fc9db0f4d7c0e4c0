// Package rendezvous implements the condition-variable coordinator: per-stop
// and per-bus monitors plus one global transfer monitor, coordinating bus
// arrivals and departures, boarding and alighting completion, and passenger
// transfers between buses.
//
// Every timed wait follows the same pattern: capture the deadline, loop
// re-checking the predicate, recompute the remaining time after every wake
// to guard against spurious wakeups, and treat the shared halt signal as an
// immediate wake-and-fail. Notifications are broadcasts: all waiters on a
// monitor are released together and re-check their predicate; no ordering is
// guaranteed among them.
package rendezvous

import (
	"sync"
	"time"

	"github.com/mtlsim/transitsync/internal/errors"
	"github.com/mtlsim/transitsync/internal/event"
	"github.com/mtlsim/transitsync/internal/halt"
	"github.com/mtlsim/transitsync/internal/logging"
	"github.com/mtlsim/transitsync/internal/metrics"
	"github.com/mtlsim/transitsync/internal/seed"
)

// NoBus is the sentinel returned by WaitForBus on timeout, halt, or unknown
// identifiers.
const NoBus = ""

// defaultJoinTimeout bounds how long Cleanup waits for waiters to drain
// after the halt signal trips.
const defaultJoinTimeout = 5 * time.Second

// stopMonitor tracks which buses are present at one stop.
type stopMonitor struct {
	mu      sync.Mutex
	cond    *sync.Cond
	present map[string]struct{}
}

// busMonitor tracks one bus's boarding and alighting cycle. The "done" flags
// survive until an explicit reset: once a cycle completes, a new start is
// rejected until ResetBusFlags clears the flags.
type busMonitor struct {
	mu   sync.Mutex
	cond *sync.Cond

	boardingActive  bool
	boardingDone    bool
	alightingActive bool
	alightingDone   bool
}

// transferMonitor is the single global monitor for in-flight transfers,
// keyed by passenger. Transfers span two buses, so no per-entity monitor can
// own them.
type transferMonitor struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending map[string]transfer
}

type transfer struct {
	from string
	to   string
}

// Coordinator is the condition-variable rendezvous coordinator. Construct
// with New, then call Initialize before use.
type Coordinator struct {
	mu          sync.RWMutex
	initialized bool

	sd        *seed.Seed
	stops     map[string]*stopMonitor
	buses     map[string]*busMonitor
	transfers *transferMonitor

	sig         *halt.Signal
	waiters     sync.WaitGroup
	joinTimeout time.Duration

	collector metrics.Collector
	bus       *event.Bus
	log       *logging.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithCollector sets the metrics collector invoked after each operation.
func WithCollector(c metrics.Collector) Option {
	return func(co *Coordinator) { co.collector = c }
}

// WithEventBus sets the bus on which state-change events are published.
func WithEventBus(b *event.Bus) Option {
	return func(co *Coordinator) { co.bus = b }
}

// WithLogger sets the structured logger.
func WithLogger(lg *logging.Logger) Option {
	return func(co *Coordinator) { co.log = lg.WithComponent("rendezvous") }
}

// WithHaltSignal shares an external stop signal; by default the Coordinator
// owns one.
func WithHaltSignal(sig *halt.Signal) Option {
	return func(co *Coordinator) { co.sig = sig }
}

// WithJoinTimeout bounds the Cleanup wait for waiters to drain.
func WithJoinTimeout(d time.Duration) Option {
	return func(co *Coordinator) {
		if d > 0 {
			co.joinTimeout = d
		}
	}
}

// New creates a Coordinator over the given seed. The seed is read at
// Initialize.
func New(sd *seed.Seed, opts ...Option) *Coordinator {
	co := &Coordinator{
		sd:          sd,
		collector:   metrics.Nop(),
		log:         logging.Nop(),
		joinTimeout: defaultJoinTimeout,
	}
	for _, opt := range opts {
		opt(co)
	}
	if co.sig == nil {
		co.sig = halt.NewSignal()
	}
	return co
}

// Initialize builds the per-stop and per-bus monitors and the global
// transfer monitor from the seed, and registers a halt waker that broadcasts
// every monitor. A second call returns ErrAlreadyInitialized.
func (co *Coordinator) Initialize() error {
	co.mu.Lock()
	defer co.mu.Unlock()

	if co.initialized {
		return errors.ErrAlreadyInitialized
	}
	if err := co.sd.Validate(); err != nil {
		return err
	}

	co.stops = make(map[string]*stopMonitor, len(co.sd.Stops))
	for id := range co.sd.Stops {
		m := &stopMonitor{present: make(map[string]struct{})}
		m.cond = sync.NewCond(&m.mu)
		co.stops[id] = m
	}
	co.buses = make(map[string]*busMonitor, len(co.sd.Buses))
	for id := range co.sd.Buses {
		m := &busMonitor{}
		m.cond = sync.NewCond(&m.mu)
		co.buses[id] = m
	}
	co.transfers = &transferMonitor{pending: make(map[string]transfer)}
	co.transfers.cond = sync.NewCond(&co.transfers.mu)

	co.sig.Notify(co.broadcastAll)

	co.initialized = true
	co.log.Info("rendezvous coordinator initialized",
		"stops", len(co.stops), "buses", len(co.buses))
	return nil
}

// Cleanup trips the halt signal, wakes every monitor, waits (bounded) for
// waiters to drain, and clears the registries. It is idempotent; it returns
// ErrCleanupTimeout if waiters did not drain in time.
func (co *Coordinator) Cleanup() error {
	co.sig.Trip()

	done := make(chan struct{})
	go func() {
		co.waiters.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-time.After(co.joinTimeout):
		err = errors.ErrCleanupTimeout
	}

	co.mu.Lock()
	co.stops = nil
	co.buses = nil
	co.transfers = nil
	co.initialized = false
	co.mu.Unlock()
	return err
}

// broadcastAll wakes every waiter on every monitor. Registered as the halt
// waker so a trip releases all blocked waits promptly. Each broadcast is
// bracketed by its monitor's lock: a waiter holds that lock from its
// predicate check until cond.Wait registers it, so an unlocked broadcast
// landing inside that window would be lost and the waiter would sleep until
// its own deadline.
func (co *Coordinator) broadcastAll() {
	co.mu.RLock()
	defer co.mu.RUnlock()

	for _, m := range co.stops {
		m.mu.Lock()
		m.cond.Broadcast()
		m.mu.Unlock()
	}
	for _, m := range co.buses {
		m.mu.Lock()
		m.cond.Broadcast()
		m.mu.Unlock()
	}
	if co.transfers != nil {
		co.transfers.mu.Lock()
		co.transfers.cond.Broadcast()
		co.transfers.mu.Unlock()
	}
}

// awaitCond blocks on cond until pred reports true, the halt signal trips,
// or timeout elapses. The monitor's mutex must be held on entry and is held
// on return. A timer broadcast guarantees a wake at the deadline; the
// remaining time is recomputed on every wake so spurious wakeups cannot
// terminate the wait early. Reports whether pred was observed true.
func (co *Coordinator) awaitCond(cond *sync.Cond, timeout time.Duration, pred func() bool) bool {
	if co.sig.Stopped() {
		return false
	}
	if timeout <= 0 {
		return pred()
	}

	deadline := time.Now().Add(timeout)
	// The deadline wake must broadcast: sync.Cond has no timed wait, and a
	// Signal could be consumed by a different waiter on the same monitor.
	// Broadcasting under the monitor's lock is load-bearing: an unlocked
	// timer fire can land entirely between this waiter's deadline check and
	// cond.Wait registering it, and that wake is lost with no later notify
	// to recover it.
	timer := time.AfterFunc(timeout, func() {
		cond.L.Lock()
		cond.Broadcast()
		cond.L.Unlock()
	})
	defer timer.Stop()

	for {
		if co.sig.Stopped() {
			return false
		}
		if pred() {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		cond.Wait()
	}
}

func (co *Coordinator) stopMon(id string) (*stopMonitor, bool) {
	co.mu.RLock()
	defer co.mu.RUnlock()
	if !co.initialized {
		return nil, false
	}
	m, ok := co.stops[id]
	return m, ok
}

func (co *Coordinator) busMon(id string) (*busMonitor, bool) {
	co.mu.RLock()
	defer co.mu.RUnlock()
	if !co.initialized {
		return nil, false
	}
	m, ok := co.buses[id]
	return m, ok
}

func (co *Coordinator) transferMon() (*transferMonitor, bool) {
	co.mu.RLock()
	defer co.mu.RUnlock()
	if !co.initialized {
		return nil, false
	}
	return co.transfers, true
}

func (co *Coordinator) busKnown(id string) bool {
	co.mu.RLock()
	defer co.mu.RUnlock()
	if !co.initialized {
		return false
	}
	_, ok := co.buses[id]
	return ok
}

func (co *Coordinator) passengerKnown(id string) bool {
	co.mu.RLock()
	defer co.mu.RUnlock()
	if !co.initialized {
		return false
	}
	_, ok := co.sd.Passengers[id]
	return ok
}

func (co *Coordinator) publish(e event.Event) {
	if co.bus != nil {
		co.bus.Publish(e)
	}
}

func (co *Coordinator) record(category string, success bool, wait time.Duration, start time.Time, md map[string]any) {
	co.collector.Record(metrics.Sample{
		Category:   category,
		Success:    success,
		Wait:       wait,
		Processing: time.Since(start) - wait,
		Metadata:   md,
	})
}
