package event

import "time"

// Event is the interface all transit events implement.
type Event interface {
	// EventType returns a string identifier, convention "category.action"
	// (e.g. "bus.arrived", "transfer.started").
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides the common fields; embed it in concrete event types.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{eventType: eventType, timestamp: time.Now()}
}

// -----------------------------------------------------------------------------
// Bus presence events (rendezvous coordinator)
// -----------------------------------------------------------------------------

// BusArrivedEvent is emitted when a bus is registered present at a stop.
type BusArrivedEvent struct {
	baseEvent
	BusID  string
	StopID string
}

// NewBusArrivedEvent creates a BusArrivedEvent.
func NewBusArrivedEvent(busID, stopID string) BusArrivedEvent {
	return BusArrivedEvent{baseEvent: newBaseEvent("bus.arrived"), BusID: busID, StopID: stopID}
}

// BusDepartedEvent is emitted when a bus leaves a stop's present-set.
type BusDepartedEvent struct {
	baseEvent
	BusID  string
	StopID string
}

// NewBusDepartedEvent creates a BusDepartedEvent.
func NewBusDepartedEvent(busID, stopID string) BusDepartedEvent {
	return BusDepartedEvent{baseEvent: newBaseEvent("bus.departed"), BusID: busID, StopID: stopID}
}

// -----------------------------------------------------------------------------
// Boarding / alighting cycle events (rendezvous coordinator)
// -----------------------------------------------------------------------------

// BoardingStartedEvent is emitted when a bus opens its doors for boarding.
type BoardingStartedEvent struct {
	baseEvent
	BusID  string
	StopID string
}

// NewBoardingStartedEvent creates a BoardingStartedEvent.
func NewBoardingStartedEvent(busID, stopID string) BoardingStartedEvent {
	return BoardingStartedEvent{baseEvent: newBaseEvent("boarding.started"), BusID: busID, StopID: stopID}
}

// BoardingCompletedEvent is emitted when boarding is marked complete.
type BoardingCompletedEvent struct {
	baseEvent
	BusID string
}

// NewBoardingCompletedEvent creates a BoardingCompletedEvent.
func NewBoardingCompletedEvent(busID string) BoardingCompletedEvent {
	return BoardingCompletedEvent{baseEvent: newBaseEvent("boarding.completed"), BusID: busID}
}

// AlightingStartedEvent is emitted when a bus begins letting passengers off.
type AlightingStartedEvent struct {
	baseEvent
	BusID  string
	StopID string
}

// NewAlightingStartedEvent creates an AlightingStartedEvent.
func NewAlightingStartedEvent(busID, stopID string) AlightingStartedEvent {
	return AlightingStartedEvent{baseEvent: newBaseEvent("alighting.started"), BusID: busID, StopID: stopID}
}

// AlightingCompletedEvent is emitted when alighting is marked complete.
type AlightingCompletedEvent struct {
	baseEvent
	BusID string
}

// NewAlightingCompletedEvent creates an AlightingCompletedEvent.
func NewAlightingCompletedEvent(busID string) AlightingCompletedEvent {
	return AlightingCompletedEvent{baseEvent: newBaseEvent("alighting.completed"), BusID: busID}
}

// -----------------------------------------------------------------------------
// Transfer events (rendezvous coordinator)
// -----------------------------------------------------------------------------

// TransferStartedEvent is emitted when a passenger transfer is registered.
type TransferStartedEvent struct {
	baseEvent
	PassengerID string
	FromBusID   string
	ToBusID     string
}

// NewTransferStartedEvent creates a TransferStartedEvent.
func NewTransferStartedEvent(passengerID, fromBusID, toBusID string) TransferStartedEvent {
	return TransferStartedEvent{
		baseEvent:   newBaseEvent("transfer.started"),
		PassengerID: passengerID,
		FromBusID:   fromBusID,
		ToBusID:     toBusID,
	}
}

// TransferCompletedEvent is emitted when a pending transfer is resolved.
type TransferCompletedEvent struct {
	baseEvent
	PassengerID string
	FromBusID   string
	ToBusID     string
}

// NewTransferCompletedEvent creates a TransferCompletedEvent.
func NewTransferCompletedEvent(passengerID, fromBusID, toBusID string) TransferCompletedEvent {
	return TransferCompletedEvent{
		baseEvent:   newBaseEvent("transfer.completed"),
		PassengerID: passengerID,
		FromBusID:   fromBusID,
		ToBusID:     toBusID,
	}
}

// -----------------------------------------------------------------------------
// Ledger events
// -----------------------------------------------------------------------------

// FarePaidEvent is emitted when a fare deduction succeeds.
type FarePaidEvent struct {
	baseEvent
	PassengerID string
	Amount      float64
	Balance     float64
}

// NewFarePaidEvent creates a FarePaidEvent.
func NewFarePaidEvent(passengerID string, amount, balance float64) FarePaidEvent {
	return FarePaidEvent{
		baseEvent:   newBaseEvent("ledger.fare_paid"),
		PassengerID: passengerID,
		Amount:      amount,
		Balance:     balance,
	}
}

// BalanceCreditedEvent is emitted on recharge or refund.
type BalanceCreditedEvent struct {
	baseEvent
	PassengerID string
	Amount      float64
	Balance     float64
	// Reason is "recharge" or "refund".
	Reason string
}

// NewBalanceCreditedEvent creates a BalanceCreditedEvent.
func NewBalanceCreditedEvent(passengerID string, amount, balance float64, reason string) BalanceCreditedEvent {
	return BalanceCreditedEvent{
		baseEvent:   newBaseEvent("ledger.credited"),
		PassengerID: passengerID,
		Amount:      amount,
		Balance:     balance,
		Reason:      reason,
	}
}

// PassPurchasedEvent is emitted when a monthly pass purchase succeeds.
type PassPurchasedEvent struct {
	baseEvent
	PassengerID string
	Price       float64
	Balance     float64
}

// NewPassPurchasedEvent creates a PassPurchasedEvent.
func NewPassPurchasedEvent(passengerID string, price, balance float64) PassPurchasedEvent {
	return PassPurchasedEvent{
		baseEvent:   newBaseEvent("ledger.pass_purchased"),
		PassengerID: passengerID,
		Price:       price,
		Balance:     balance,
	}
}

// PassengersMovedEvent is emitted when the ledger moves passengers between a
// stop and a bus.
type PassengersMovedEvent struct {
	baseEvent
	StopID string
	BusID  string
	// Direction is "boarded" or "alighted".
	Direction string
	Count     int
}

// NewPassengersMovedEvent creates a PassengersMovedEvent.
func NewPassengersMovedEvent(stopID, busID, direction string, count int) PassengersMovedEvent {
	return PassengersMovedEvent{
		baseEvent: newBaseEvent("ledger.passengers_moved"),
		StopID:    stopID,
		BusID:     busID,
		Direction: direction,
		Count:     count,
	}
}

// -----------------------------------------------------------------------------
// Capacity gate events
// -----------------------------------------------------------------------------

// SeatReservedEvent is emitted when a passenger acquires a seat.
type SeatReservedEvent struct {
	baseEvent
	BusID       string
	PassengerID string
}

// NewSeatReservedEvent creates a SeatReservedEvent.
func NewSeatReservedEvent(busID, passengerID string) SeatReservedEvent {
	return SeatReservedEvent{baseEvent: newBaseEvent("seat.reserved"), BusID: busID, PassengerID: passengerID}
}

// SeatReleasedEvent is emitted when a passenger frees a seat.
type SeatReleasedEvent struct {
	baseEvent
	BusID       string
	PassengerID string
}

// NewSeatReleasedEvent creates a SeatReleasedEvent.
func NewSeatReleasedEvent(busID, passengerID string) SeatReleasedEvent {
	return SeatReleasedEvent{baseEvent: newBaseEvent("seat.released"), BusID: busID, PassengerID: passengerID}
}

// StopAdmittedEvent is emitted when a bus is admitted to a stop's berth.
type StopAdmittedEvent struct {
	baseEvent
	BusID  string
	StopID string
}

// NewStopAdmittedEvent creates a StopAdmittedEvent.
func NewStopAdmittedEvent(busID, stopID string) StopAdmittedEvent {
	return StopAdmittedEvent{baseEvent: newBaseEvent("stop.admitted"), BusID: busID, StopID: stopID}
}

// StopReleasedEvent is emitted when a bus releases a stop's berth.
type StopReleasedEvent struct {
	baseEvent
	BusID  string
	StopID string
}

// NewStopReleasedEvent creates a StopReleasedEvent.
func NewStopReleasedEvent(busID, stopID string) StopReleasedEvent {
	return StopReleasedEvent{baseEvent: newBaseEvent("stop.released"), BusID: busID, StopID: stopID}
}
