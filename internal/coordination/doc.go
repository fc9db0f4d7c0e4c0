// Package coordination provides a Hub that wires the transit coordinators
// together for a single network run.
//
// The Hub creates and manages three coordinators over one seeded network:
//
//   - Rendezvous Coordinator (bus/passenger meeting points, door phases,
//     transfers)
//   - Ledger (fare balances and stop/bus rosters)
//   - Capacity Gate (bounded seats and stop admission)
//
// All three share one event bus, one metrics collector, and one halt
// signal. Cancelling the Start context or calling Stop trips the signal,
// which fails every blocked wait across the network.
//
// Usage:
//
//	hub, err := coordination.NewHub(coordination.Config{
//	    Seed: sd,
//	    Bus:  bus,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := hub.Start(ctx); err != nil {
//	    return err
//	}
//	defer hub.Stop()
//
//	// Use the coordinators directly:
//	bus, ok := hub.Rendezvous().WaitForBus("P1", "S1", "", 5*time.Second)
package coordination
