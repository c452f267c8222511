package models

import "time"

// BookRequest represents a checkout for one or more seats on a flight
type BookRequest struct {
	FlightID string    `json:"flightId"`
	Quantity int       `json:"quantity"`
	Seats    []SeatKey `json:"seats"`
	Buyer    Buyer     `json:"buyer"`
}

// FlightDraft is the first step of flight creation: schedule and route
// resolved, no aircraft or crew picked yet
type FlightDraft struct {
	Origin          string     `json:"origin"`
	Destination     string     `json:"destination"`
	DepartureAt     time.Time  `json:"departureAt"`
	ArrivalAt       time.Time  `json:"arrivalAt"`
	DurationMinutes int        `json:"durationMinutes"`
	Type            FlightType `json:"type"`
}

// CreateFlightRequest carries the manager's final aircraft and crew choice
type CreateFlightRequest struct {
	Origin       string    `json:"origin"`
	Destination  string    `json:"destination"`
	DepartureAt  time.Time `json:"departureAt"`
	AircraftID   int64     `json:"aircraftId"`
	CrewIDs      []int64   `json:"crewIds"`
	PriceRegular float64   `json:"priceRegular"`
	PriceFirst   *float64  `json:"priceFirst,omitempty"`
}

// AssignmentPlan lists every aircraft and crew member eligible for a draft
type AssignmentPlan struct {
	Draft      FlightDraft  `json:"draft"`
	Aircraft   []Aircraft   `json:"aircraft"`
	Pilots     []CrewMember `json:"pilots"`
	Attendants []CrewMember `json:"attendants"`

	RecommendedAircraft   *Aircraft    `json:"recommendedAircraft,omitempty"`
	RecommendedPilots     []CrewMember `json:"recommendedPilots,omitempty"`
	RecommendedAttendants []CrewMember `json:"recommendedAttendants,omitempty"`
}

// AddAircraftRequest registers a plane and generates its seat map
type AddAircraftRequest struct {
	ID           int64        `json:"id"`
	Manufacturer string       `json:"manufacturer"`
	Size         AircraftSize `json:"size"`
	PurchaseDate time.Time    `json:"purchaseDate"`
	RegularRows  int          `json:"regularRows"`
	RegularCols  int          `json:"regularCols"`
	FirstRows    int          `json:"firstRows"`
	FirstCols    int          `json:"firstCols"`
}

// RefreshResult counts the rows a status refresh moved to Completed
type RefreshResult struct {
	FlightsCompleted int64     `json:"flightsCompleted"`
	OrdersCompleted  int64     `json:"ordersCompleted"`
	RanAt            time.Time `json:"ranAt"`
}
