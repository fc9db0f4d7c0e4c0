package coordination

import (
	"context"
	"errors"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/mtlsim/transitsync/internal/capacity"
	"github.com/mtlsim/transitsync/internal/event"
	"github.com/mtlsim/transitsync/internal/halt"
	"github.com/mtlsim/transitsync/internal/ledger"
	"github.com/mtlsim/transitsync/internal/metrics"
	"github.com/mtlsim/transitsync/internal/rendezvous"
	"github.com/mtlsim/transitsync/internal/seed"
)

// Config holds required dependencies for creating a Hub.
type Config struct {
	Seed *seed.Seed
	Bus  *event.Bus
}

// Hub wires the three coordinators together for a single network run. All
// three share one event bus, one metrics collector, and one halt signal, so
// tripping the signal drains every blocked wait across the whole network.
// It owns the coordinator lifecycles: NewHub builds them, Start initializes
// them, and Stop cleans them up.
type Hub struct {
	mu      sync.RWMutex
	started bool
	cancel  context.CancelFunc

	// watchDone is closed when the context-watch goroutine exits.
	watchDone chan struct{}

	sig       *halt.Signal
	bus       *event.Bus
	collector metrics.Collector
	recorder  *metrics.Recorder

	rdv *rendezvous.Coordinator
	led *ledger.Ledger
	gt  *capacity.Gate
}

// NewHub creates a Hub wiring the three coordinators to a shared event bus,
// collector, and halt signal. The configuration's seed is validated by
// Start, not here.
func NewHub(cfg Config, opts ...Option) (*Hub, error) {
	if cfg.Seed == nil {
		return nil, errors.New("coordination: Seed is required")
	}
	if cfg.Bus == nil {
		return nil, errors.New("coordination: Bus is required")
	}

	hc := &hubConfig{}
	for _, opt := range opts {
		opt(hc)
	}

	h := &Hub{
		sig: halt.NewSignal(),
		bus: cfg.Bus,
	}

	// Default collector: an aggregating recorder the caller can snapshot
	// through Metrics. A caller-supplied collector replaces it.
	if hc.collector != nil {
		h.collector = hc.collector
	} else {
		h.recorder = metrics.NewRecorder()
		h.collector = h.recorder
	}

	rdvOpts := []rendezvous.Option{
		rendezvous.WithEventBus(cfg.Bus),
		rendezvous.WithCollector(h.collector),
		rendezvous.WithHaltSignal(h.sig),
	}
	ledOpts := []ledger.Option{
		ledger.WithEventBus(cfg.Bus),
		ledger.WithCollector(h.collector),
	}
	gtOpts := []capacity.Option{
		capacity.WithEventBus(cfg.Bus),
		capacity.WithCollector(h.collector),
		capacity.WithHaltSignal(h.sig),
	}

	if hc.logger != nil {
		rdvOpts = append(rdvOpts, rendezvous.WithLogger(hc.logger))
		ledOpts = append(ledOpts, ledger.WithLogger(hc.logger))
		gtOpts = append(gtOpts, capacity.WithLogger(hc.logger))
	}
	if hc.joinTimeout > 0 {
		rdvOpts = append(rdvOpts, rendezvous.WithJoinTimeout(hc.joinTimeout))
		gtOpts = append(gtOpts, capacity.WithJoinTimeout(hc.joinTimeout))
	}
	if hc.pollInterval > 0 {
		gtOpts = append(gtOpts, capacity.WithPollInterval(hc.pollInterval))
	}

	h.rdv = rendezvous.New(cfg.Seed, rdvOpts...)
	h.led = ledger.New(cfg.Seed, ledOpts...)
	h.gt = capacity.New(cfg.Seed, gtOpts...)

	return h, nil
}

// Rendezvous returns the bus/passenger rendezvous coordinator.
func (h *Hub) Rendezvous() *rendezvous.Coordinator { return h.rdv }

// Ledger returns the balance-and-roster ledger.
func (h *Hub) Ledger() *ledger.Ledger { return h.led }

// Gate returns the seat and stop capacity gate.
func (h *Hub) Gate() *capacity.Gate { return h.gt }

// Events returns the shared event bus.
func (h *Hub) Events() *event.Bus { return h.bus }

// Halt returns the shared halt signal. Tripping it fails all blocked waits
// on every coordinator; Stop trips it as part of cleanup.
func (h *Hub) Halt() *halt.Signal { return h.sig }

// Metrics returns a snapshot of per-category statistics. It returns nil if
// the Hub was built with a caller-supplied collector.
func (h *Hub) Metrics() map[string]metrics.CategoryStats {
	if h.recorder == nil {
		return nil
	}
	return h.recorder.Snapshot()
}

// Start initializes all three coordinators and watches ctx: cancellation
// trips the shared halt signal. Returns an error if the hub is already
// started or any coordinator rejects its seed.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		return errors.New("coordination: hub already started")
	}

	if err := h.rdv.Initialize(); err != nil {
		return err
	}
	if err := h.led.Initialize(); err != nil {
		_ = h.rdv.Cleanup()
		return err
	}
	if err := h.gt.Initialize(); err != nil {
		_ = h.rdv.Cleanup()
		_ = h.led.Cleanup()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.started = true
	h.watchDone = make(chan struct{})

	go func() {
		defer close(h.watchDone)
		<-ctx.Done()
		h.sig.Trip()
	}()

	return nil
}

// Stop trips the halt signal, waits for all coordinator waiters to drain,
// and cleans up in reverse initialization order. It is idempotent; cleanup
// errors from the three coordinators are aggregated.
func (h *Hub) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started {
		return nil
	}

	h.cancel()
	<-h.watchDone

	var result *multierror.Error
	if err := h.gt.Cleanup(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := h.led.Cleanup(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := h.rdv.Cleanup(); err != nil {
		result = multierror.Append(result, err)
	}

	h.started = false
	return result.ErrorOrNil()
}

// Running returns whether the hub is currently started.
func (h *Hub) Running() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.started
}
