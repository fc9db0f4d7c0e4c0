package rendezvous

import (
	"time"

	"github.com/mtlsim/transitsync/internal/event"
)

// StartTransfer registers a pending transfer for the passenger between the
// two buses and wakes all transfer-monitor waiters. It fails if either bus
// or the passenger is unknown, or if a transfer for this passenger is
// already pending: a second transfer must fail, not queue.
func (co *Coordinator) StartTransfer(passengerID, fromBus, toBus string) bool {
	start := time.Now()
	md := map[string]any{"passenger": passengerID, "from": fromBus, "to": toBus}

	tm, ok := co.transferMon()
	if !ok || !co.passengerKnown(passengerID) || !co.busKnown(fromBus) || !co.busKnown(toBus) {
		co.record("rendezvous.start_transfer", false, 0, start, md)
		return false
	}

	tm.mu.Lock()
	if _, pending := tm.pending[passengerID]; pending {
		tm.mu.Unlock()
		co.log.Debug("duplicate transfer rejected", "passenger", passengerID)
		co.record("rendezvous.start_transfer", false, 0, start, md)
		return false
	}
	tm.pending[passengerID] = transfer{from: fromBus, to: toBus}
	tm.cond.Broadcast()
	tm.mu.Unlock()

	co.publish(event.NewTransferStartedEvent(passengerID, fromBus, toBus))
	co.log.Debug("transfer started", "passenger", passengerID, "from", fromBus, "to", toBus)
	co.record("rendezvous.start_transfer", true, 0, start, md)
	return true
}

// CompleteTransfer resolves the passenger's pending transfer and wakes all
// transfer-monitor waiters. It fails unless a pending transfer exists and
// matches (fromBus, toBus) exactly.
func (co *Coordinator) CompleteTransfer(passengerID, fromBus, toBus string) bool {
	start := time.Now()
	md := map[string]any{"passenger": passengerID, "from": fromBus, "to": toBus}

	tm, ok := co.transferMon()
	if !ok {
		co.record("rendezvous.complete_transfer", false, 0, start, md)
		return false
	}

	tm.mu.Lock()
	tr, pending := tm.pending[passengerID]
	if !pending || tr.from != fromBus || tr.to != toBus {
		tm.mu.Unlock()
		co.log.Debug("transfer completion rejected",
			"passenger", passengerID, "from", fromBus, "to", toBus)
		co.record("rendezvous.complete_transfer", false, 0, start, md)
		return false
	}
	delete(tm.pending, passengerID)
	tm.cond.Broadcast()
	tm.mu.Unlock()

	co.publish(event.NewTransferCompletedEvent(passengerID, fromBus, toBus))
	co.log.Debug("transfer completed", "passenger", passengerID, "from", fromBus, "to", toBus)
	co.record("rendezvous.complete_transfer", true, 0, start, md)
	return true
}

// WaitForTransferCompletion blocks until no pending transfer references the
// bus as source or destination, the halt signal trips, or timeout elapses.
// For a bus with no pending transfers it returns true immediately.
func (co *Coordinator) WaitForTransferCompletion(busID string, timeout time.Duration) bool {
	start := time.Now()
	md := map[string]any{"bus": busID}

	tm, ok := co.transferMon()
	if !ok || !co.busKnown(busID) {
		co.record("rendezvous.wait_transfers", false, 0, start, md)
		return false
	}

	co.waiters.Add(1)
	defer co.waiters.Done()

	tm.mu.Lock()
	waitStart := time.Now()
	ok = co.awaitCond(tm.cond, timeout, func() bool {
		for _, tr := range tm.pending {
			if tr.from == busID || tr.to == busID {
				return false
			}
		}
		return true
	})
	wait := time.Since(waitStart)
	tm.mu.Unlock()

	co.record("rendezvous.wait_transfers", ok, wait, start, md)
	return ok
}

// PendingTransfers returns how many transfers are currently in flight.
func (co *Coordinator) PendingTransfers() int {
	tm, ok := co.transferMon()
	if !ok {
		return 0
	}
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return len(tm.pending)
}
