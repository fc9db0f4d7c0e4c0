// Package internal contains integration tests that verify the coordinator
// packages work together correctly. These tests drive a full arrival,
// boarding, payment and departure cycle through the Hub the way the
// scenario driver does.
package internal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mtlsim/transitsync/internal/coordination"
	"github.com/mtlsim/transitsync/internal/event"
	"github.com/mtlsim/transitsync/internal/seed"
)

func startedHub(t *testing.T, sd *seed.Seed, bus *event.Bus) *coordination.Hub {
	t.Helper()

	hub, err := coordination.NewHub(coordination.Config{Seed: sd, Bus: bus})
	if err != nil {
		t.Fatalf("NewHub failed: %v", err)
	}
	if err := hub.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { _ = hub.Stop() })
	return hub
}

// TestEventBusIntegration verifies that events from all three coordinators
// route through one shared bus, simulating the state-change monitor a UI
// would attach.
func TestEventBusIntegration(t *testing.T) {
	bus := event.NewBus()

	var mu sync.Mutex
	received := make(map[string]int)
	for _, et := range []string{"bus.arrived", "ledger.fare_paid", "seat.reserved", "bus.departed"} {
		bus.Subscribe(et, func(e event.Event) {
			mu.Lock()
			received[e.EventType()]++
			mu.Unlock()
		})
	}

	sd := seed.Default()
	hub := startedHub(t, sd, bus)

	if !hub.Gate().BusArriveAtStop("B1", "S1", time.Second) {
		t.Fatal("stop admission failed")
	}
	if !hub.Rendezvous().NotifyBusArrival("B1", "S1") {
		t.Fatal("arrival notify failed")
	}
	if !hub.Ledger().PayFare("P1") {
		t.Fatal("fare payment failed")
	}
	if !hub.Gate().BoardPassenger("B1", "P1", time.Second) {
		t.Fatal("seat reservation failed")
	}
	if !hub.Rendezvous().NotifyBusDeparture("B1", "S1") {
		t.Fatal("departure notify failed")
	}
	if !hub.Gate().BusDepartFromStop("B1", "S1") {
		t.Fatal("stop release failed")
	}

	mu.Lock()
	defer mu.Unlock()
	for _, et := range []string{"bus.arrived", "ledger.fare_paid", "seat.reserved", "bus.departed"} {
		if received[et] != 1 {
			t.Errorf("event %s received %d times, want 1", et, received[et])
		}
	}
}

// TestPassengerBusHandshake runs a passenger goroutine against a bus
// goroutine through a complete rendezvous: the passenger waits for the bus,
// the bus runs its boarding phase, and the roster moves exactly once.
func TestPassengerBusHandshake(t *testing.T) {
	sd := seed.Default()
	hub := startedHub(t, sd, event.NewBus())

	rdv := hub.Rendezvous()
	led := hub.Ledger()
	gt := hub.Gate()

	if !led.DepositAt("S1", "P1") {
		t.Fatal("deposit failed")
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() { // passenger
		defer wg.Done()
		busID, ok := rdv.WaitForBus("P1", "S1", "", 3*time.Second)
		if !ok {
			t.Error("passenger never saw the bus")
			return
		}
		if !gt.BoardPassenger(busID, "P1", 3*time.Second) {
			t.Error("seat reservation failed")
		}
		rdv.WaitForBoardingCompletion(busID, 3*time.Second)
	}()

	go func() { // bus
		defer wg.Done()
		if !gt.BusArriveAtStop("B1", "S1", 3*time.Second) {
			t.Error("stop admission failed")
			return
		}
		rdv.NotifyBusArrival("B1", "S1")
		if rdv.StartBoarding("B1", "S1") {
			led.BoardPassengers("S1", "B1")
			rdv.CompleteBoarding("B1")
		}
		rdv.NotifyBusDeparture("B1", "S1")
		gt.BusDepartFromStop("B1", "S1")
	}()

	wg.Wait()

	onboard := led.Onboard("B1")
	if len(onboard) != 1 || onboard[0] != "P1" {
		t.Errorf("Onboard(B1) = %v, want [P1]", onboard)
	}
	if waiting := led.WaitingAt("S1"); len(waiting) != 0 {
		t.Errorf("WaitingAt(S1) = %v, want empty", waiting)
	}
}

// TestStopDrainsEverything trips the whole network mid-flight and verifies
// no goroutine is left blocked.
func TestStopDrainsEverything(t *testing.T) {
	sd := seed.Default()
	hub, err := coordination.NewHub(coordination.Config{Seed: sd, Bus: event.NewBus()})
	if err != nil {
		t.Fatalf("NewHub failed: %v", err)
	}
	if err := hub.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				hub.Rendezvous().WaitForBus("P1", "S2", "", 30*time.Second)
			}()
		}
		wg.Wait()
	}()

	time.Sleep(50 * time.Millisecond)
	if err := hub.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("waiters still blocked after Stop")
	}
}
