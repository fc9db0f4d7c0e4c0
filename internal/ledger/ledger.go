// Package ledger implements the mutex-serialized balance and roster
// coordinator: fare payments, recharges, refunds, monthly passes, and the
// movement of passengers between stop and bus rosters.
//
// Each account has its own mutex, as does each stop and bus roster. The lock
// discipline is fixed: roster operations take the stop lock first, then the
// bus lock, then individual account locks one passenger at a time. No code
// path acquires a roster lock while holding an account lock, so no cycle can
// form. All business failures (insufficient funds, capacity exceeded,
// unknown identifiers) are normal boolean outcomes.
package ledger

import (
	"slices"
	"sync"
	"time"

	"github.com/mtlsim/transitsync/internal/errors"
	"github.com/mtlsim/transitsync/internal/event"
	"github.com/mtlsim/transitsync/internal/logging"
	"github.com/mtlsim/transitsync/internal/metrics"
	"github.com/mtlsim/transitsync/internal/seed"
)

type account struct {
	mu      sync.Mutex
	balance float64
}

type roster struct {
	mu         sync.Mutex
	capacity   int
	passengers []string
}

// Ledger serializes read-modify-write operations on shared balances and
// passenger rosters. Construct with New, then call Initialize before use.
type Ledger struct {
	mu          sync.RWMutex
	initialized bool

	sd        *seed.Seed
	fare      float64
	passPrice float64

	accounts map[string]*account
	stops    map[string]*roster
	buses    map[string]*roster

	collector metrics.Collector
	bus       *event.Bus
	log       *logging.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithCollector sets the metrics collector invoked after each operation.
func WithCollector(c metrics.Collector) Option {
	return func(l *Ledger) { l.collector = c }
}

// WithEventBus sets the bus on which state-change events are published.
func WithEventBus(b *event.Bus) Option {
	return func(l *Ledger) { l.bus = b }
}

// WithLogger sets the structured logger.
func WithLogger(lg *logging.Logger) Option {
	return func(l *Ledger) { l.log = lg.WithComponent("ledger") }
}

// New creates a Ledger over the given seed. The seed is read at Initialize.
func New(sd *seed.Seed, opts ...Option) *Ledger {
	l := &Ledger{
		sd:        sd,
		collector: metrics.Nop(),
		log:       logging.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Initialize builds the account and roster registries from the seed.
// A second call returns ErrAlreadyInitialized. An invalid seed aborts the
// whole initialization, leaving the Ledger unusable until retried.
func (l *Ledger) Initialize() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.initialized {
		return errors.ErrAlreadyInitialized
	}
	if err := l.sd.Validate(); err != nil {
		return err
	}

	l.fare = l.sd.Fare
	l.passPrice = l.sd.PassPrice

	l.accounts = make(map[string]*account, len(l.sd.Passengers))
	for id, p := range l.sd.Passengers {
		l.accounts[id] = &account{balance: p.Balance}
	}
	l.stops = make(map[string]*roster, len(l.sd.Stops))
	for id, st := range l.sd.Stops {
		l.stops[id] = &roster{capacity: st.Capacity}
	}
	l.buses = make(map[string]*roster, len(l.sd.Buses))
	for id, b := range l.sd.Buses {
		l.buses[id] = &roster{capacity: b.Capacity}
	}

	l.initialized = true
	l.log.Info("ledger initialized",
		"accounts", len(l.accounts), "stops", len(l.stops), "buses", len(l.buses))
	return nil
}

// Cleanup clears all registries. The Ledger owns no background workers, so
// cleanup is immediate. It is idempotent.
func (l *Ledger) Cleanup() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.accounts = nil
	l.stops = nil
	l.buses = nil
	l.initialized = false
	return nil
}

// PayFare deducts one fare from the passenger's balance. It succeeds only if
// the balance covers the fare; insufficient funds leave the balance unchanged
// and return false.
func (l *Ledger) PayFare(passengerID string) bool {
	start := time.Now()
	acct, ok := l.account(passengerID)
	if !ok {
		l.record("ledger.pay_fare", false, start, map[string]any{"passenger": passengerID})
		return false
	}

	balance, paid := debit(acct, l.fare)
	if paid {
		l.publish(event.NewFarePaidEvent(passengerID, l.fare, balance))
		l.log.Debug("fare paid", "passenger", passengerID, "balance", balance)
	} else {
		l.log.Debug("insufficient funds for fare", "passenger", passengerID, "balance", balance)
	}
	l.record("ledger.pay_fare", paid, start, map[string]any{"passenger": passengerID})
	return paid
}

// Recharge credits amount to the passenger's balance. The amount must be
// positive; it is validated before any lock is taken.
func (l *Ledger) Recharge(passengerID string, amount float64) bool {
	return l.credit("ledger.recharge", "recharge", passengerID, amount)
}

// Refund credits amount to the passenger's balance. The amount must be
// positive; it is validated before any lock is taken.
func (l *Ledger) Refund(passengerID string, amount float64) bool {
	return l.credit("ledger.refund", "refund", passengerID, amount)
}

func (l *Ledger) credit(category, reason, passengerID string, amount float64) bool {
	start := time.Now()
	if amount <= 0 {
		l.record(category, false, start, map[string]any{"passenger": passengerID})
		return false
	}
	acct, ok := l.account(passengerID)
	if !ok {
		l.record(category, false, start, map[string]any{"passenger": passengerID})
		return false
	}

	acct.mu.Lock()
	acct.balance += amount
	balance := acct.balance
	acct.mu.Unlock()

	l.publish(event.NewBalanceCreditedEvent(passengerID, amount, balance, reason))
	l.log.Debug("balance credited",
		"passenger", passengerID, "amount", amount, "balance", balance, "reason", reason)
	l.record(category, true, start, map[string]any{"passenger": passengerID})
	return true
}

// BuyMonthlyPass deducts the monthly pass price from the passenger's balance.
// Like PayFare it requires sufficient funds; the original simulation enforced
// the same check, keeping the non-negative balance invariant unconditional.
func (l *Ledger) BuyMonthlyPass(passengerID string) bool {
	start := time.Now()
	acct, ok := l.account(passengerID)
	if !ok {
		l.record("ledger.buy_monthly_pass", false, start, map[string]any{"passenger": passengerID})
		return false
	}

	balance, bought := debit(acct, l.passPrice)
	if bought {
		l.publish(event.NewPassPurchasedEvent(passengerID, l.passPrice, balance))
		l.log.Debug("monthly pass purchased", "passenger", passengerID, "balance", balance)
	}
	l.record("ledger.buy_monthly_pass", bought, start, map[string]any{"passenger": passengerID})
	return bought
}

// BoardPassengers moves waiting passengers from the stop roster onto the bus
// roster, collecting one fare from each. It rejects outright if the bus
// cannot accept the stop's entire waiting count. Passengers whose payment
// fails stay at the stop. Returns true iff at least one passenger boarded.
func (l *Ledger) BoardPassengers(stopID, busID string) bool {
	start := time.Now()
	md := map[string]any{"stop": stopID, "bus": busID}

	stop, okStop := l.stop(stopID)
	bus, okBus := l.busRoster(busID)
	if !okStop || !okBus {
		l.record("ledger.board_passengers", false, start, md)
		return false
	}

	// Stop lock first, then bus lock. Account locks are taken one at a
	// time below, never the other way around.
	stop.mu.Lock()
	bus.mu.Lock()

	waiting := len(stop.passengers)
	if bus.capacity-len(bus.passengers) < waiting {
		bus.mu.Unlock()
		stop.mu.Unlock()
		l.log.Debug("bus cannot accept waiting passengers",
			"stop", stopID, "bus", busID, "waiting", waiting)
		l.record("ledger.board_passengers", false, start, md)
		return false
	}

	// Snapshot before mutating: the roster slice is rebuilt as passengers
	// either board or stay behind.
	snapshot := slices.Clone(stop.passengers)
	var events []event.Event
	var remaining []string
	boarded := 0
	for _, pid := range snapshot {
		acct, ok := l.account(pid)
		if !ok {
			remaining = append(remaining, pid)
			continue
		}
		balance, paid := debit(acct, l.fare)
		if !paid {
			remaining = append(remaining, pid)
			continue
		}
		bus.passengers = append(bus.passengers, pid)
		events = append(events, event.NewFarePaidEvent(pid, l.fare, balance))
		boarded++
	}
	stop.passengers = remaining

	bus.mu.Unlock()
	stop.mu.Unlock()

	if boarded > 0 {
		events = append(events, event.NewPassengersMovedEvent(stopID, busID, "boarded", boarded))
	}
	for _, e := range events {
		l.publish(e)
	}
	l.log.Debug("passengers boarded", "stop", stopID, "bus", busID, "count", boarded)
	l.record("ledger.board_passengers", boarded > 0, start, md)
	return boarded > 0
}

// AlightPassengers moves every bus passenger onto the stop roster, with no
// payment check. It rejects outright if the stop cannot accept the bus's
// entire occupant count. Returns true iff at least one passenger moved.
func (l *Ledger) AlightPassengers(stopID, busID string) bool {
	start := time.Now()
	md := map[string]any{"stop": stopID, "bus": busID}

	stop, okStop := l.stop(stopID)
	bus, okBus := l.busRoster(busID)
	if !okStop || !okBus {
		l.record("ledger.alight_passengers", false, start, md)
		return false
	}

	stop.mu.Lock()
	bus.mu.Lock()

	occupants := len(bus.passengers)
	if stop.capacity-len(stop.passengers) < occupants {
		bus.mu.Unlock()
		stop.mu.Unlock()
		l.log.Debug("stop cannot accept occupants",
			"stop", stopID, "bus", busID, "occupants", occupants)
		l.record("ledger.alight_passengers", false, start, md)
		return false
	}

	snapshot := slices.Clone(bus.passengers)
	stop.passengers = append(stop.passengers, snapshot...)
	bus.passengers = bus.passengers[:0]

	bus.mu.Unlock()
	stop.mu.Unlock()

	if occupants > 0 {
		l.publish(event.NewPassengersMovedEvent(stopID, busID, "alighted", occupants))
	}
	l.log.Debug("passengers alighted", "stop", stopID, "bus", busID, "count", occupants)
	l.record("ledger.alight_passengers", occupants > 0, start, md)
	return occupants > 0
}

// Balance returns the passenger's current balance.
func (l *Ledger) Balance(passengerID string) (float64, bool) {
	acct, ok := l.account(passengerID)
	if !ok {
		return 0, false
	}
	acct.mu.Lock()
	defer acct.mu.Unlock()
	return acct.balance, true
}

// WaitingAt returns a copy of the stop's current passenger roster.
func (l *Ledger) WaitingAt(stopID string) []string {
	stop, ok := l.stop(stopID)
	if !ok {
		return nil
	}
	stop.mu.Lock()
	defer stop.mu.Unlock()
	return slices.Clone(stop.passengers)
}

// Onboard returns a copy of the bus's current passenger roster.
func (l *Ledger) Onboard(busID string) []string {
	bus, ok := l.busRoster(busID)
	if !ok {
		return nil
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	return slices.Clone(bus.passengers)
}

// DepositAt places a passenger on a stop's roster directly, without payment.
// Scenario drivers use it to position passengers before exercising
// BoardPassengers. It fails if the stop is at capacity or unknown.
func (l *Ledger) DepositAt(stopID, passengerID string) bool {
	stop, okStop := l.stop(stopID)
	_, okAcct := l.account(passengerID)
	if !okStop || !okAcct {
		return false
	}

	stop.mu.Lock()
	defer stop.mu.Unlock()
	if len(stop.passengers) >= stop.capacity {
		return false
	}
	stop.passengers = append(stop.passengers, passengerID)
	return true
}

// debit deducts amount from the account if the balance covers it.
// Returns the resulting balance and whether the deduction happened.
func debit(acct *account, amount float64) (float64, bool) {
	acct.mu.Lock()
	defer acct.mu.Unlock()

	if acct.balance < amount {
		return acct.balance, false
	}
	acct.balance -= amount
	return acct.balance, true
}

func (l *Ledger) account(id string) (*account, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.initialized {
		return nil, false
	}
	a, ok := l.accounts[id]
	return a, ok
}

func (l *Ledger) stop(id string) (*roster, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.initialized {
		return nil, false
	}
	r, ok := l.stops[id]
	return r, ok
}

func (l *Ledger) busRoster(id string) (*roster, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.initialized {
		return nil, false
	}
	r, ok := l.buses[id]
	return r, ok
}

func (l *Ledger) publish(e event.Event) {
	if l.bus != nil {
		l.bus.Publish(e)
	}
}

func (l *Ledger) record(category string, success bool, start time.Time, md map[string]any) {
	l.collector.Record(metrics.Sample{
		Category:   category,
		Success:    success,
		Processing: time.Since(start),
		Metadata:   md,
	})
}
