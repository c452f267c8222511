package models

import "time"

// Routing keys for domain events
const (
	EventOrderCreated      = "order.created"
	EventOrderCancelled    = "order.cancelled"
	EventFlightCreated     = "flight.created"
	EventFlightCancelled   = "flight.cancelled"
	EventFlightStatus      = "flight.status"
	EventStatusesRefreshed = "statuses.refreshed"
)

// SeatEvent is published whenever seats on a flight change hands
type SeatEvent struct {
	FlightID     string       `json:"flightId"`
	OrderID      int64        `json:"orderId,omitempty"`
	Seats        []SeatKey    `json:"seats,omitempty"`
	Available    bool         `json:"available"`
	FlightStatus FlightStatus `json:"flightStatus,omitempty"`
	OccurredAt   time.Time    `json:"occurredAt"`
}

// FlightEvent is published when a flight is created or cancelled
type FlightEvent struct {
	FlightID       string       `json:"flightId"`
	Status         FlightStatus `json:"status"`
	AffectedOrders []int64      `json:"affectedOrders,omitempty"`
	OccurredAt     time.Time    `json:"occurredAt"`
}
