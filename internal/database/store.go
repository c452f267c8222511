package database

import (
	"context"
	"time"

	"github.com/flytau/flight-booking/internal/models"
)

// Lock selects the row-locking mode of a read inside a transaction
type Lock int

const (
	LockNone Lock = iota
	LockShare
	LockUpdate
)

func (l Lock) clause() string {
	switch l {
	case LockShare:
		return " FOR SHARE"
	case LockUpdate:
		return " FOR UPDATE"
	}
	return ""
}

// Store opens transactions against the relational state. fn runs inside a
// single transaction: returning nil commits, returning an error rolls back
// every write fn made.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
	Close()
}

// Tx is the set of queries available inside a transaction. Reads that take a
// Lock hold the row until the transaction ends.
type Tx interface {
	FlightQueries
	TicketQueries
	OrderQueries
	FleetQueries
	IdentityQueries
}

type FlightQueries interface {
	GetFlight(ctx context.Context, id string, lock Lock) (*models.Flight, error)
	UpdateFlightStatus(ctx context.Context, id string, status models.FlightStatus) error
	// InsertFlight returns false when the id is already taken.
	InsertFlight(ctx context.Context, f *models.Flight) (bool, error)
	MaxFlightNumber(ctx context.Context, prefix string) (int, error)
	SearchFlights(ctx context.Context, filter models.FlightFilter, now time.Time) ([]models.FlightSummary, error)
	GetRoute(ctx context.Context, origin, destination string) (*models.Route, error)
	ListRoutes(ctx context.Context) ([]models.Route, error)
	CompleteDepartedFlights(ctx context.Context, now time.Time) (int64, error)
}

type TicketQueries interface {
	GetTicket(ctx context.Context, flightID string, seat models.SeatKey, lock Lock) (*models.Ticket, error)
	SetTicketAvailability(ctx context.Context, flightID string, seat models.SeatKey, available bool) error
	SetFlightTicketsUnavailable(ctx context.Context, flightID string) (int64, error)
	InsertTickets(ctx context.Context, tickets []models.Ticket) error
	CountAvailableTickets(ctx context.Context, flightID string) (int, error)
	FlightTickets(ctx context.Context, flightID string) ([]models.Ticket, error)
	// HasActiveLink reports whether an Active order other than excludeOrder
	// is linked to the seat.
	HasActiveLink(ctx context.Context, flightID string, seat models.SeatKey, excludeOrder int64) (bool, error)
	LinkTicket(ctx context.Context, orderID int64, t models.Ticket) error
}

type OrderQueries interface {
	NextOrderID(ctx context.Context) (int64, error)
	InsertOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, id int64, lock Lock) (*models.Order, error)
	UpdateOrder(ctx context.Context, o *models.Order) error
	OrderTickets(ctx context.Context, orderID int64) ([]models.Ticket, error)
	// ActiveOrderIDsForFlight locks and returns every Active order holding
	// a ticket on the flight.
	ActiveOrderIDsForFlight(ctx context.Context, flightID string) ([]int64, error)
	ListMemberOrders(ctx context.Context, email string, status models.OrderStatus) ([]models.OrderSummary, error)
	CompleteDepartedOrders(ctx context.Context, now time.Time) (int64, error)
}

type FleetQueries interface {
	GetAircraft(ctx context.Context, id int64) (*models.Aircraft, error)
	// InsertAircraft returns false when the id is already taken.
	InsertAircraft(ctx context.Context, a *models.Aircraft, seats []models.SeatKey) (bool, error)
	AircraftSeats(ctx context.Context, id int64) ([]models.SeatKey, error)
	ListAircraft(ctx context.Context) ([]models.Aircraft, error)
	// AircraftScheduledAt ignores Canceled flights.
	AircraftScheduledAt(ctx context.Context, id int64, departure time.Time) (bool, error)

	// InsertCrewMember returns false when the id is already taken.
	InsertCrewMember(ctx context.Context, c *models.CrewMember) (bool, error)
	ListCrew(ctx context.Context) ([]models.CrewMember, error)
	GetCrewMembers(ctx context.Context, ids []int64) ([]models.CrewMember, error)
	InsertCrewAssignments(ctx context.Context, flightID string, crewIDs []int64) error
	// BusyCrewAt returns crew assigned to a non-Canceled flight departing at
	// exactly departure.
	BusyCrewAt(ctx context.Context, departure time.Time) (map[int64]bool, error)
	// CrewLocations maps each crew member who has flown to the arrival
	// airport of their latest Completed flight.
	CrewLocations(ctx context.Context) (map[int64]string, error)
	AssignedCrew(ctx context.Context) (map[int64]bool, error)
	// EarliestCrewArrival is the first arrival after the given time of an
	// Active or Full flight with crew aboard landing at airport.
	EarliestCrewArrival(ctx context.Context, airport string, after time.Time) (*time.Time, error)
}

type IdentityQueries interface {
	MemberExists(ctx context.Context, email string) (bool, error)
	// UpsertGuest creates or updates the guest profile and records the phone.
	UpsertGuest(ctx context.Context, b models.Buyer) error
	// UpdateMember updates an existing member's profile and records the
	// phone. It returns the email as registered, or models.ErrNotFound for
	// an unknown member.
	UpdateMember(ctx context.Context, b models.Buyer) (string, error)
}
