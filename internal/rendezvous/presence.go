package rendezvous

import (
	"time"

	"github.com/mtlsim/transitsync/internal/event"
)

// WaitForBus blocks until a bus is present at the stop, the halt signal
// trips, or timeout elapses. If targetBus is non-empty only that bus
// satisfies the wait; otherwise any present bus does, chosen arbitrarily.
// Returns the found bus ID, or (NoBus, false) on timeout, halt, or unknown
// identifiers.
func (co *Coordinator) WaitForBus(passengerID, stopID, targetBus string, timeout time.Duration) (string, bool) {
	start := time.Now()
	md := map[string]any{"passenger": passengerID, "stop": stopID, "target": targetBus}

	m, ok := co.stopMon(stopID)
	if !ok || !co.passengerKnown(passengerID) {
		co.record("rendezvous.wait_for_bus", false, 0, start, md)
		return NoBus, false
	}
	if targetBus != "" && !co.busKnown(targetBus) {
		co.record("rendezvous.wait_for_bus", false, 0, start, md)
		return NoBus, false
	}

	co.waiters.Add(1)
	defer co.waiters.Done()

	var found string
	m.mu.Lock()
	waitStart := time.Now()
	ok = co.awaitCond(m.cond, timeout, func() bool {
		if targetBus != "" {
			if _, present := m.present[targetBus]; present {
				found = targetBus
				return true
			}
			return false
		}
		for id := range m.present {
			found = id
			return true
		}
		return false
	})
	wait := time.Since(waitStart)
	m.mu.Unlock()

	if !ok {
		co.log.Debug("wait for bus gave up",
			"passenger", passengerID, "stop", stopID, "wait", wait)
		co.record("rendezvous.wait_for_bus", false, wait, start, md)
		return NoBus, false
	}

	co.log.Debug("bus found",
		"passenger", passengerID, "stop", stopID, "bus", found, "wait", wait)
	co.record("rendezvous.wait_for_bus", true, wait, start, md)
	return found, true
}

// NotifyBusArrival adds the bus to the stop's present-set and wakes all
// waiters on that stop's monitor. Fails if the stop or bus is unknown.
func (co *Coordinator) NotifyBusArrival(busID, stopID string) bool {
	start := time.Now()
	md := map[string]any{"bus": busID, "stop": stopID}

	m, ok := co.stopMon(stopID)
	if !ok || !co.busKnown(busID) {
		co.record("rendezvous.notify_arrival", false, 0, start, md)
		return false
	}

	m.mu.Lock()
	m.present[busID] = struct{}{}
	m.cond.Broadcast()
	m.mu.Unlock()

	co.publish(event.NewBusArrivedEvent(busID, stopID))
	co.log.Debug("bus arrival", "bus", busID, "stop", stopID)
	co.record("rendezvous.notify_arrival", true, 0, start, md)
	return true
}

// NotifyBusDeparture removes the bus from the stop's present-set and wakes
// all waiters on that stop's monitor. Fails if the stop or bus is unknown.
// Departure of a bus that is not present still succeeds: the present-set
// simply stays without it, and waiters re-check their predicates.
func (co *Coordinator) NotifyBusDeparture(busID, stopID string) bool {
	start := time.Now()
	md := map[string]any{"bus": busID, "stop": stopID}

	m, ok := co.stopMon(stopID)
	if !ok || !co.busKnown(busID) {
		co.record("rendezvous.notify_departure", false, 0, start, md)
		return false
	}

	m.mu.Lock()
	delete(m.present, busID)
	m.cond.Broadcast()
	m.mu.Unlock()

	co.publish(event.NewBusDepartedEvent(busID, stopID))
	co.log.Debug("bus departure", "bus", busID, "stop", stopID)
	co.record("rendezvous.notify_departure", true, 0, start, md)
	return true
}

// BusesPresent returns a copy of the stop's current present-set.
func (co *Coordinator) BusesPresent(stopID string) []string {
	m, ok := co.stopMon(stopID)
	if !ok {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.present))
	for id := range m.present {
		out = append(out, id)
	}
	return out
}
