// Package flights is the flight lifecycle: creating a staffed flight with
// its tickets, cancelling a flight together with every order on it, and the
// public flight read side.
package flights

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/facebookgo/clock"
	"github.com/flytau/flight-booking/internal/booking"
	"github.com/flytau/flight-booking/internal/database"
	"github.com/flytau/flight-booking/internal/events"
	"github.com/flytau/flight-booking/internal/ledger"
	"github.com/flytau/flight-booking/internal/models"
	"github.com/flytau/flight-booking/internal/planner"
	"github.com/sirupsen/logrus"
)

const (
	DefaultCancelWindow = 72 * time.Hour
	DefaultIDPrefix     = "F"

	idAttempts = 5
)

// Options configures a Manager
type Options struct {
	Store     database.Store
	Planner   *planner.Planner
	Ledger    *ledger.Ledger
	Clock     clock.Clock
	Publisher events.Publisher
	Logger    *logrus.Logger

	// CancelWindow is the minimum time before departure a manager may
	// cancel a flight.
	CancelWindow time.Duration
	IDPrefix     string
}

// Manager is the flight lifecycle manager
type Manager struct {
	store        database.Store
	planner      *planner.Planner
	ledger       *ledger.Ledger
	clock        clock.Clock
	publisher    events.Publisher
	logger       *logrus.Logger
	cancelWindow time.Duration
	idPrefix     string
}

// NewManager creates a new Manager
func NewManager(opts Options) *Manager {
	m := &Manager{
		store:        opts.Store,
		planner:      opts.Planner,
		ledger:       opts.Ledger,
		clock:        opts.Clock,
		publisher:    opts.Publisher,
		logger:       opts.Logger,
		cancelWindow: opts.CancelWindow,
		idPrefix:     opts.IDPrefix,
	}
	if m.clock == nil {
		m.clock = clock.New()
	}
	if m.logger == nil {
		m.logger = logrus.StandardLogger()
	}
	if m.planner == nil {
		m.planner = planner.New(planner.Options{Store: m.store, Clock: m.clock, Logger: m.logger})
	}
	if m.ledger == nil {
		m.ledger = ledger.New()
	}
	if m.publisher == nil {
		m.publisher = events.Noop{}
	}
	if m.cancelWindow == 0 {
		m.cancelWindow = DefaultCancelWindow
	}
	if m.idPrefix == "" {
		m.idPrefix = DefaultIDPrefix
	}
	return m
}

// CreateFlight schedules a flight with the manager's chosen aircraft and
// crew and opens one ticket per aircraft seat for sale. The assignment is
// re-validated here; nothing from an earlier plan is trusted.
func (m *Manager) CreateFlight(ctx context.Context, req models.CreateFlightRequest) (*models.Flight, error) {
	if req.PriceRegular <= 0 {
		return nil, fmt.Errorf("%w: regular price must be positive", models.ErrInvalidInput)
	}
	if req.PriceFirst != nil && *req.PriceFirst <= 0 {
		return nil, fmt.Errorf("%w: first class price must be positive", models.ErrInvalidInput)
	}

	var flight *models.Flight
	err := m.store.WithTx(ctx, func(tx database.Tx) error {
		draft, err := m.planner.DraftTx(ctx, tx, req.Origin, req.Destination, req.DepartureAt)
		if err != nil {
			return err
		}
		aircraft, crew, err := m.planner.Validate(ctx, tx, draft, req.AircraftID, req.CrewIDs)
		if err != nil {
			return err
		}
		seats, err := tx.AircraftSeats(ctx, aircraft.ID)
		if err != nil {
			return fmt.Errorf("failed to load seat map: %w", err)
		}
		if len(seats) == 0 {
			return fmt.Errorf("%w: aircraft %d has no seats", models.ErrInfeasibleAircraft, aircraft.ID)
		}

		flight = &models.Flight{
			Origin:      draft.Origin,
			Destination: draft.Destination,
			DepartureAt: draft.DepartureAt,
			ArrivalAt:   draft.ArrivalAt,
			AircraftID:  aircraft.ID,
			Type:        draft.Type,
			Status:      models.FlightStatusActive,
		}
		if err := m.insertWithNextID(ctx, tx, flight); err != nil {
			return err
		}

		tickets := make([]models.Ticket, 0, len(seats))
		for _, seat := range seats {
			tickets = append(tickets, models.Ticket{
				AircraftID: aircraft.ID,
				FlightID:   flight.ID,
				Seat:       seat,
				Price:      price(seat.Class, req.PriceRegular, req.PriceFirst),
				Available:  true,
			})
		}
		if err := tx.InsertTickets(ctx, tickets); err != nil {
			return fmt.Errorf("failed to open tickets: %w", err)
		}

		ids := make([]int64, 0, len(crew))
		for _, c := range crew {
			ids = append(ids, c.ID)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		if err := tx.InsertCrewAssignments(ctx, flight.ID, ids); err != nil {
			return fmt.Errorf("failed to assign crew: %w", err)
		}
		return nil
	})
	if err != nil {
		m.logFailure(ctx, err, logrus.Fields{"origin": req.Origin, "destination": req.Destination}, "flight creation failed")
		return nil, models.AsStorageError(err)
	}

	m.logger.WithContext(ctx).WithFields(logrus.Fields{
		"flight_id":   flight.ID,
		"aircraft_id": flight.AircraftID,
		"departure":   flight.DepartureAt.Format(time.RFC3339),
		"type":        flight.Type,
	}).Info("flight created")

	events.Emit(ctx, m.logger, m.publisher, models.EventFlightCreated, models.FlightEvent{
		FlightID:   flight.ID,
		Status:     flight.Status,
		OccurredAt: m.clock.Now(),
	})
	return flight, nil
}

// insertWithNextID numbers the flight after the highest existing id and
// retries when a concurrent creation took that number first.
func (m *Manager) insertWithNextID(ctx context.Context, tx database.Tx, f *models.Flight) error {
	for attempt := 0; attempt < idAttempts; attempt++ {
		n, err := tx.MaxFlightNumber(ctx, m.idPrefix)
		if err != nil {
			return fmt.Errorf("failed to number flight: %w", err)
		}
		f.ID = fmt.Sprintf("%s%05d", m.idPrefix, n+1+attempt)
		inserted, err := tx.InsertFlight(ctx, f)
		if err != nil {
			return fmt.Errorf("failed to insert flight: %w", err)
		}
		if inserted {
			return nil
		}
		m.logger.WithContext(ctx).WithField("flight_id", f.ID).Debug("flight id taken, retrying")
	}
	return fmt.Errorf("failed to allocate a flight id after %d attempts", idAttempts)
}

func price(class models.SeatClass, regular float64, first *float64) float64 {
	if class == models.SeatClassRegular || first == nil {
		return regular
	}
	return *first
}

// CancelFlight withdraws a flight from sale. Every Active order on it is
// system-cancelled with a full refund and every ticket becomes unavailable,
// all in one transaction. It returns the cancelled order ids.
func (m *Manager) CancelFlight(ctx context.Context, flightID string) ([]int64, error) {
	var affected []int64
	var withdrawn int64
	err := m.store.WithTx(ctx, func(tx database.Tx) error {
		now := m.clock.Now()

		f, err := tx.GetFlight(ctx, flightID, database.LockUpdate)
		if err != nil {
			return err
		}
		if err := models.ValidateFlightTransition(f.Status, models.FlightStatusCanceled); err != nil {
			return err
		}
		if f.DepartureAt.Sub(now) < m.cancelWindow {
			return fmt.Errorf("%w: flight %s departs in %s, cancellation closes %s before departure",
				models.ErrTooCloseToDeparture, f.ID, f.DepartureAt.Sub(now).Round(time.Minute), m.cancelWindow)
		}

		affected, err = tx.ActiveOrderIDsForFlight(ctx, f.ID)
		if err != nil {
			return fmt.Errorf("failed to load orders: %w", err)
		}
		for _, id := range affected {
			if err := booking.SystemCancel(ctx, tx, id); err != nil {
				return fmt.Errorf("failed to cancel order %d: %w", id, err)
			}
		}

		withdrawn, err = m.ledger.Withdraw(ctx, tx, f.ID)
		if err != nil {
			return err
		}
		return tx.UpdateFlightStatus(ctx, f.ID, models.FlightStatusCanceled)
	})
	if err != nil {
		m.logFailure(ctx, err, logrus.Fields{"flight_id": flightID}, "flight cancellation failed")
		return nil, models.AsStorageError(err)
	}

	m.logger.WithContext(ctx).WithFields(logrus.Fields{
		"flight_id": flightID,
		"orders":    len(affected),
		"tickets":   withdrawn,
	}).Info("flight cancelled")

	events.Emit(ctx, m.logger, m.publisher, models.EventFlightCancelled, models.FlightEvent{
		FlightID:       flightID,
		Status:         models.FlightStatusCanceled,
		AffectedOrders: affected,
		OccurredAt:     m.clock.Now(),
	})
	return affected, nil
}

func (m *Manager) logFailure(ctx context.Context, err error, fields logrus.Fields, msg string) {
	entry := m.logger.WithContext(ctx).WithError(err).WithFields(fields)
	if models.IsDomainError(err) {
		entry.Info(msg)
		return
	}
	entry.Error(msg)
}
