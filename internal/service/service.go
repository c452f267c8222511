package service

import (
	"context"
	"time"

	"github.com/facebookgo/clock"
	"github.com/flytau/flight-booking/internal/booking"
	"github.com/flytau/flight-booking/internal/fleet"
	"github.com/flytau/flight-booking/internal/flights"
	"github.com/flytau/flight-booking/internal/models"
	"github.com/flytau/flight-booking/internal/planner"
	"github.com/flytau/flight-booking/internal/refresh"
)

// Service is everything the HTTP layer can ask of the booking core
type Service interface {
	// Customer side
	SearchFlights(ctx context.Context, filter models.FlightFilter) ([]models.FlightSummary, error)
	GetSeatMap(ctx context.Context, flightID string) (*models.SeatMap, error)
	ListRoutes(ctx context.Context) ([]models.Route, error)
	Book(ctx context.Context, req models.BookRequest) (*models.Order, error)
	GetOrder(ctx context.Context, orderID int64, who models.Requester) (*models.OrderDetails, error)
	CancelOrder(ctx context.Context, orderID int64, who models.Requester) (*models.Order, error)
	ListMemberOrders(ctx context.Context, email string, status models.OrderStatus) ([]models.OrderSummary, error)

	// Manager side
	DraftFlight(ctx context.Context, origin, destination string, departure time.Time) (*models.FlightDraft, error)
	PlanAssignment(ctx context.Context, origin, destination string, departure time.Time) (*models.AssignmentPlan, error)
	CreateFlight(ctx context.Context, req models.CreateFlightRequest) (*models.Flight, error)
	CancelFlight(ctx context.Context, flightID string) ([]int64, error)
	AddAircraft(ctx context.Context, req models.AddAircraftRequest) (*models.Aircraft, error)
	AddCrewMember(ctx context.Context, c models.CrewMember) (*models.CrewMember, error)
	ListAircraft(ctx context.Context) ([]models.Aircraft, error)
	ListCrew(ctx context.Context) ([]models.CrewMember, error)
	RefreshStatuses(ctx context.Context) (models.RefreshResult, error)
}

// Deps are the managers a service is composed of
type Deps struct {
	Booking *booking.Manager
	Flights *flights.Manager
	Planner *planner.Planner
	Fleet   *fleet.Registry
	Refresh *refresh.Job
	Clock   clock.Clock
}

type serviceImpl struct {
	booking *booking.Manager
	flights *flights.Manager
	planner *planner.Planner
	fleet   *fleet.Registry
	refresh *refresh.Job
	clock   clock.Clock
}

// New creates a new Service
func New(d Deps) Service {
	c := d.Clock
	if c == nil {
		c = clock.New()
	}
	return &serviceImpl{
		booking: d.Booking,
		flights: d.Flights,
		planner: d.Planner,
		fleet:   d.Fleet,
		refresh: d.Refresh,
		clock:   c,
	}
}

func (s *serviceImpl) SearchFlights(ctx context.Context, filter models.FlightFilter) ([]models.FlightSummary, error) {
	return s.flights.Search(ctx, filter)
}

func (s *serviceImpl) GetSeatMap(ctx context.Context, flightID string) (*models.SeatMap, error) {
	return s.flights.SeatMap(ctx, flightID)
}

func (s *serviceImpl) ListRoutes(ctx context.Context) ([]models.Route, error) {
	return s.flights.Routes(ctx)
}

func (s *serviceImpl) Book(ctx context.Context, req models.BookRequest) (*models.Order, error) {
	return s.booking.Book(ctx, req)
}

func (s *serviceImpl) GetOrder(ctx context.Context, orderID int64, who models.Requester) (*models.OrderDetails, error) {
	return s.booking.GetOrder(ctx, orderID, who)
}

func (s *serviceImpl) CancelOrder(ctx context.Context, orderID int64, who models.Requester) (*models.Order, error) {
	return s.booking.CancelOrder(ctx, orderID, who)
}

func (s *serviceImpl) ListMemberOrders(ctx context.Context, email string, status models.OrderStatus) ([]models.OrderSummary, error) {
	return s.booking.ListMemberOrders(ctx, email, status)
}

func (s *serviceImpl) DraftFlight(ctx context.Context, origin, destination string, departure time.Time) (*models.FlightDraft, error) {
	return s.planner.Draft(ctx, origin, destination, departure)
}

func (s *serviceImpl) PlanAssignment(ctx context.Context, origin, destination string, departure time.Time) (*models.AssignmentPlan, error) {
	return s.planner.Plan(ctx, origin, destination, departure)
}

func (s *serviceImpl) CreateFlight(ctx context.Context, req models.CreateFlightRequest) (*models.Flight, error) {
	return s.flights.CreateFlight(ctx, req)
}

func (s *serviceImpl) CancelFlight(ctx context.Context, flightID string) ([]int64, error) {
	return s.flights.CancelFlight(ctx, flightID)
}

func (s *serviceImpl) AddAircraft(ctx context.Context, req models.AddAircraftRequest) (*models.Aircraft, error) {
	return s.fleet.AddAircraft(ctx, req)
}

func (s *serviceImpl) AddCrewMember(ctx context.Context, c models.CrewMember) (*models.CrewMember, error) {
	return s.fleet.AddCrewMember(ctx, c)
}

func (s *serviceImpl) ListAircraft(ctx context.Context) ([]models.Aircraft, error) {
	return s.fleet.ListAircraft(ctx)
}

func (s *serviceImpl) ListCrew(ctx context.Context) ([]models.CrewMember, error) {
	return s.fleet.ListCrew(ctx)
}

// RefreshStatuses runs the refresh immediately, bypassing the throttle.
func (s *serviceImpl) RefreshStatuses(ctx context.Context) (models.RefreshResult, error) {
	return s.refresh.Refresh(ctx, s.clock.Now())
}
