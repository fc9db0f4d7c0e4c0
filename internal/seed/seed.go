// Package seed supplies the static transit network description consumed by
// the coordinators at initialization: bus capacities, stop ceilings,
// passenger opening balances, and the fare schedule.
//
// A Seed is read-only once handed to a coordinator. It carries identity and
// capacity only; all mutable coordination state (presence sets, rosters,
// flags, queues) lives in the coordinators themselves.
package seed

import (
	"github.com/mtlsim/transitsync/internal/errors"
)

// Default prices and ceilings, matching the STM fare schedule the original
// simulation used.
const (
	DefaultFare            = 3.50
	DefaultPassPrice       = 45.00
	DefaultStopConcurrency = 2
)

// Bus describes one bus in the network.
type Bus struct {
	// Capacity is the hard passenger ceiling for the bus.
	Capacity int `mapstructure:"capacity"`
}

// Stop describes one stop in the network.
type Stop struct {
	// Capacity is the passenger ceiling for alighting at the stop.
	Capacity int `mapstructure:"capacity"`
}

// Passenger describes one fare account.
type Passenger struct {
	// Balance is the opening account balance.
	Balance float64 `mapstructure:"balance"`
}

// Seed is the complete network description.
type Seed struct {
	Buses      map[string]Bus       `mapstructure:"buses"`
	Stops      map[string]Stop      `mapstructure:"stops"`
	Passengers map[string]Passenger `mapstructure:"passengers"`

	// Fare is the price of a single trip.
	Fare float64 `mapstructure:"fare"`
	// PassPrice is the price of a monthly pass.
	PassPrice float64 `mapstructure:"pass_price"`
	// StopConcurrency is how many buses may be present at a stop at once.
	StopConcurrency int `mapstructure:"stop_concurrency"`
}

// Default returns a small demonstration network: three buses, three stops,
// and six passengers with mixed balances.
func Default() *Seed {
	return &Seed{
		Buses: map[string]Bus{
			"B1": {Capacity: 4},
			"B2": {Capacity: 6},
			"B3": {Capacity: 2},
		},
		Stops: map[string]Stop{
			"S1": {Capacity: 10},
			"S2": {Capacity: 8},
			"S3": {Capacity: 6},
		},
		Passengers: map[string]Passenger{
			"P1": {Balance: 20.00},
			"P2": {Balance: 12.25},
			"P3": {Balance: 3.00},
			"P4": {Balance: 50.00},
			"P5": {Balance: 7.00},
			"P6": {Balance: 0.00},
		},
		Fare:            DefaultFare,
		PassPrice:       DefaultPassPrice,
		StopConcurrency: DefaultStopConcurrency,
	}
}

// Validate checks that the seed describes a usable network. Coordinators call
// this from Initialize and abort on the first violation.
func (s *Seed) Validate() error {
	if s == nil {
		return errors.ErrInvalidSeed
	}
	if len(s.Buses) == 0 {
		return errors.NewValidationError("buses", "at least one bus is required")
	}
	if len(s.Stops) == 0 {
		return errors.NewValidationError("stops", "at least one stop is required")
	}
	for id, b := range s.Buses {
		if id == "" {
			return errors.NewValidationError("buses", "empty bus identifier")
		}
		if b.Capacity <= 0 {
			return errors.NewValidationError("buses."+id, "capacity must be positive")
		}
	}
	for id, st := range s.Stops {
		if id == "" {
			return errors.NewValidationError("stops", "empty stop identifier")
		}
		if st.Capacity <= 0 {
			return errors.NewValidationError("stops."+id, "capacity must be positive")
		}
	}
	for id, p := range s.Passengers {
		if id == "" {
			return errors.NewValidationError("passengers", "empty passenger identifier")
		}
		if p.Balance < 0 {
			return errors.NewValidationError("passengers."+id, "balance must not be negative")
		}
	}
	if s.Fare <= 0 {
		return errors.NewValidationError("fare", "must be positive")
	}
	if s.PassPrice <= 0 {
		return errors.NewValidationError("pass_price", "must be positive")
	}
	if s.StopConcurrency <= 0 {
		return errors.NewValidationError("stop_concurrency", "must be positive")
	}
	return nil
}

// BusIDs returns the bus identifiers in unspecified order.
func (s *Seed) BusIDs() []string {
	ids := make([]string, 0, len(s.Buses))
	for id := range s.Buses {
		ids = append(ids, id)
	}
	return ids
}

// StopIDs returns the stop identifiers in unspecified order.
func (s *Seed) StopIDs() []string {
	ids := make([]string, 0, len(s.Stops))
	for id := range s.Stops {
		ids = append(ids, id)
	}
	return ids
}

// PassengerIDs returns the passenger identifiers in unspecified order.
func (s *Seed) PassengerIDs() []string {
	ids := make([]string, 0, len(s.Passengers))
	for id := range s.Passengers {
		ids = append(ids, id)
	}
	return ids
}
