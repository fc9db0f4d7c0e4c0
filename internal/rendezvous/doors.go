package rendezvous

import (
	"time"

	"github.com/mtlsim/transitsync/internal/event"
)

// StartBoarding marks the bus's boarding cycle as in progress and wakes
// bus-monitor waiters. It is single-flight: a start while boarding is
// already in progress is rejected. It is also rejected once boarding has
// been marked complete; the completion flag persists until ResetBusFlags,
// so a finished cycle cannot silently restart.
func (co *Coordinator) StartBoarding(busID, stopID string) bool {
	start := time.Now()
	md := map[string]any{"bus": busID, "stop": stopID}

	m, ok := co.busMon(busID)
	if !ok || !co.stopKnown(stopID) {
		co.record("rendezvous.start_boarding", false, 0, start, md)
		return false
	}

	m.mu.Lock()
	if m.boardingDone || m.boardingActive {
		m.mu.Unlock()
		co.log.Debug("boarding start rejected", "bus", busID, "stop", stopID)
		co.record("rendezvous.start_boarding", false, 0, start, md)
		return false
	}
	m.boardingActive = true
	m.cond.Broadcast()
	m.mu.Unlock()

	co.publish(event.NewBoardingStartedEvent(busID, stopID))
	co.log.Debug("boarding started", "bus", busID, "stop", stopID)
	co.record("rendezvous.start_boarding", true, 0, start, md)
	return true
}

// CompleteBoarding marks boarding complete and wakes bus-monitor waiters.
// It always succeeds if the bus exists and is idempotent: repeated calls
// re-set the flag and re-notify.
func (co *Coordinator) CompleteBoarding(busID string) bool {
	start := time.Now()
	md := map[string]any{"bus": busID}

	m, ok := co.busMon(busID)
	if !ok {
		co.record("rendezvous.complete_boarding", false, 0, start, md)
		return false
	}

	m.mu.Lock()
	m.boardingDone = true
	m.boardingActive = false
	m.cond.Broadcast()
	m.mu.Unlock()

	co.publish(event.NewBoardingCompletedEvent(busID))
	co.log.Debug("boarding completed", "bus", busID)
	co.record("rendezvous.complete_boarding", true, 0, start, md)
	return true
}

// WaitForBoardingCompletion blocks until the bus's boarding-complete flag is
// set, the halt signal trips, or timeout elapses. Reports whether completion
// was observed.
func (co *Coordinator) WaitForBoardingCompletion(busID string, timeout time.Duration) bool {
	return co.waitForFlag("rendezvous.wait_boarding", busID, timeout,
		func(m *busMonitor) bool { return m.boardingDone })
}

// StartAlighting marks the bus's alighting cycle as in progress and wakes
// bus-monitor waiters. The precondition mirrors StartBoarding exactly:
// rejected while already in progress, and rejected once the alighting
// completion flag is set, until ResetBusFlags clears it.
func (co *Coordinator) StartAlighting(busID, stopID string) bool {
	start := time.Now()
	md := map[string]any{"bus": busID, "stop": stopID}

	m, ok := co.busMon(busID)
	if !ok || !co.stopKnown(stopID) {
		co.record("rendezvous.start_alighting", false, 0, start, md)
		return false
	}

	m.mu.Lock()
	if m.alightingDone || m.alightingActive {
		m.mu.Unlock()
		co.log.Debug("alighting start rejected", "bus", busID, "stop", stopID)
		co.record("rendezvous.start_alighting", false, 0, start, md)
		return false
	}
	m.alightingActive = true
	m.cond.Broadcast()
	m.mu.Unlock()

	co.publish(event.NewAlightingStartedEvent(busID, stopID))
	co.log.Debug("alighting started", "bus", busID, "stop", stopID)
	co.record("rendezvous.start_alighting", true, 0, start, md)
	return true
}

// CompleteAlighting marks alighting complete and wakes bus-monitor waiters.
// Idempotent, like CompleteBoarding.
func (co *Coordinator) CompleteAlighting(busID string) bool {
	start := time.Now()
	md := map[string]any{"bus": busID}

	m, ok := co.busMon(busID)
	if !ok {
		co.record("rendezvous.complete_alighting", false, 0, start, md)
		return false
	}

	m.mu.Lock()
	m.alightingDone = true
	m.alightingActive = false
	m.cond.Broadcast()
	m.mu.Unlock()

	co.publish(event.NewAlightingCompletedEvent(busID))
	co.log.Debug("alighting completed", "bus", busID)
	co.record("rendezvous.complete_alighting", true, 0, start, md)
	return true
}

// WaitForAlightingCompletion blocks until the bus's alighting-complete flag
// is set, the halt signal trips, or timeout elapses. Reports whether
// completion was observed.
func (co *Coordinator) WaitForAlightingCompletion(busID string, timeout time.Duration) bool {
	return co.waitForFlag("rendezvous.wait_alighting", busID, timeout,
		func(m *busMonitor) bool { return m.alightingDone })
}

// ResetBusFlags clears the bus's boarding and alighting flags so a new stop
// cycle can begin, and wakes bus-monitor waiters.
func (co *Coordinator) ResetBusFlags(busID string) bool {
	m, ok := co.busMon(busID)
	if !ok {
		return false
	}

	m.mu.Lock()
	m.boardingActive = false
	m.boardingDone = false
	m.alightingActive = false
	m.alightingDone = false
	m.cond.Broadcast()
	m.mu.Unlock()
	return true
}

func (co *Coordinator) waitForFlag(category, busID string, timeout time.Duration, flag func(*busMonitor) bool) bool {
	start := time.Now()
	md := map[string]any{"bus": busID}

	m, ok := co.busMon(busID)
	if !ok {
		co.record(category, false, 0, start, md)
		return false
	}

	co.waiters.Add(1)
	defer co.waiters.Done()

	m.mu.Lock()
	waitStart := time.Now()
	ok = co.awaitCond(m.cond, timeout, func() bool { return flag(m) })
	wait := time.Since(waitStart)
	m.mu.Unlock()

	co.record(category, ok, wait, start, md)
	return ok
}

func (co *Coordinator) stopKnown(id string) bool {
	co.mu.RLock()
	defer co.mu.RUnlock()
	if !co.initialized {
		return false
	}
	_, ok := co.stops[id]
	return ok
}
