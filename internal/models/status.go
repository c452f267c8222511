package models

import "fmt"

type FlightStatus string

const (
	FlightStatusActive    FlightStatus = "Active"
	FlightStatusFull      FlightStatus = "Full"
	FlightStatusCompleted FlightStatus = "Completed"
	FlightStatusCanceled  FlightStatus = "Canceled"
)

// Bookable reports whether tickets may be sold in this status.
func (s FlightStatus) Bookable() bool {
	return s == FlightStatusActive || s == FlightStatusFull
}

// Terminal reports whether no further transition is possible.
func (s FlightStatus) Terminal() bool {
	return s == FlightStatusCompleted || s == FlightStatusCanceled
}

var flightTransitions = map[FlightStatus][]FlightStatus{
	FlightStatusActive: {FlightStatusFull, FlightStatusCompleted, FlightStatusCanceled},
	FlightStatusFull:   {FlightStatusActive, FlightStatusCompleted, FlightStatusCanceled},
}

// ValidateFlightTransition rejects any flight status change not in the
// state machine.
func ValidateFlightTransition(from, to FlightStatus) error {
	for _, next := range flightTransitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: flight %s -> %s", ErrIllegalTransition, from, to)
}

type OrderStatus string

const (
	OrderStatusActive               OrderStatus = "Active"
	OrderStatusCompleted            OrderStatus = "Completed"
	OrderStatusCustomerCancellation OrderStatus = "Customer Cancellation"
	OrderStatusSystemCancellation   OrderStatus = "System Cancellation"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusActive, OrderStatusCompleted, OrderStatusCustomerCancellation, OrderStatusSystemCancellation:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return s.Valid() && s != OrderStatusActive
}

// ValidateOrderTransition rejects any order status change not in the state
// machine. Every non-Active status is terminal.
func ValidateOrderTransition(from, to OrderStatus) error {
	if from == OrderStatusActive && to.Terminal() {
		return nil
	}
	if from != OrderStatusActive {
		return fmt.Errorf("%w: order is %s", ErrOrderNotActive, from)
	}
	return fmt.Errorf("%w: order %s -> %s", ErrIllegalTransition, from, to)
}
