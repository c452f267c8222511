package mocks

import (
	"context"
	"time"

	"github.com/flytau/flight-booking/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockService is a mock implementation of service.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) SearchFlights(ctx context.Context, filter models.FlightFilter) ([]models.FlightSummary, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FlightSummary), args.Error(1)
}

func (m *MockService) GetSeatMap(ctx context.Context, flightID string) (*models.SeatMap, error) {
	args := m.Called(ctx, flightID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SeatMap), args.Error(1)
}

func (m *MockService) ListRoutes(ctx context.Context) ([]models.Route, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Route), args.Error(1)
}

func (m *MockService) Book(ctx context.Context, req models.BookRequest) (*models.Order, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockService) GetOrder(ctx context.Context, orderID int64, who models.Requester) (*models.OrderDetails, error) {
	args := m.Called(ctx, orderID, who)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OrderDetails), args.Error(1)
}

func (m *MockService) CancelOrder(ctx context.Context, orderID int64, who models.Requester) (*models.Order, error) {
	args := m.Called(ctx, orderID, who)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockService) ListMemberOrders(ctx context.Context, email string, status models.OrderStatus) ([]models.OrderSummary, error) {
	args := m.Called(ctx, email, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.OrderSummary), args.Error(1)
}

func (m *MockService) DraftFlight(ctx context.Context, origin, destination string, departure time.Time) (*models.FlightDraft, error) {
	args := m.Called(ctx, origin, destination, departure)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FlightDraft), args.Error(1)
}

func (m *MockService) PlanAssignment(ctx context.Context, origin, destination string, departure time.Time) (*models.AssignmentPlan, error) {
	args := m.Called(ctx, origin, destination, departure)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AssignmentPlan), args.Error(1)
}

func (m *MockService) CreateFlight(ctx context.Context, req models.CreateFlightRequest) (*models.Flight, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Flight), args.Error(1)
}

func (m *MockService) CancelFlight(ctx context.Context, flightID string) ([]int64, error) {
	args := m.Called(ctx, flightID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockService) AddAircraft(ctx context.Context, req models.AddAircraftRequest) (*models.Aircraft, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Aircraft), args.Error(1)
}

func (m *MockService) AddCrewMember(ctx context.Context, c models.CrewMember) (*models.CrewMember, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CrewMember), args.Error(1)
}

func (m *MockService) ListAircraft(ctx context.Context) ([]models.Aircraft, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Aircraft), args.Error(1)
}

func (m *MockService) ListCrew(ctx context.Context) ([]models.CrewMember, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CrewMember), args.Error(1)
}

func (m *MockService) RefreshStatuses(ctx context.Context) (models.RefreshResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.RefreshResult), args.Error(1)
}
