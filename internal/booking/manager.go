// Package booking is the order lifecycle: checkout, customer cancellation,
// airline-initiated cancellation of an order, and the order read side.
package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/facebookgo/clock"
	"github.com/flytau/flight-booking/internal/database"
	"github.com/flytau/flight-booking/internal/events"
	"github.com/flytau/flight-booking/internal/ledger"
	"github.com/flytau/flight-booking/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	DefaultFeeRate      = 0.05
	DefaultCancelWindow = 36 * time.Hour
)

// Options configures a Manager
type Options struct {
	Store     database.Store
	Ledger    *ledger.Ledger
	Clock     clock.Clock
	Publisher events.Publisher
	Logger    *logrus.Logger

	// FeeRate is the share of the order total kept on customer cancellation.
	FeeRate float64
	// CancelWindow is the minimum time before departure a customer may cancel.
	CancelWindow time.Duration
}

// Manager is the order lifecycle manager
type Manager struct {
	store        database.Store
	ledger       *ledger.Ledger
	clock        clock.Clock
	publisher    events.Publisher
	logger       *logrus.Logger
	feeRate      float64
	cancelWindow time.Duration
}

// NewManager creates a new Manager
func NewManager(opts Options) *Manager {
	m := &Manager{
		store:        opts.Store,
		ledger:       opts.Ledger,
		clock:        opts.Clock,
		publisher:    opts.Publisher,
		logger:       opts.Logger,
		feeRate:      opts.FeeRate,
		cancelWindow: opts.CancelWindow,
	}
	if m.ledger == nil {
		m.ledger = ledger.New()
	}
	if m.clock == nil {
		m.clock = clock.New()
	}
	if m.publisher == nil {
		m.publisher = events.Noop{}
	}
	if m.logger == nil {
		m.logger = logrus.StandardLogger()
	}
	if m.feeRate == 0 {
		m.feeRate = DefaultFeeRate
	}
	if m.cancelWindow == 0 {
		m.cancelWindow = DefaultCancelWindow
	}
	return m
}

// Book sells the requested seats to the buyer as one new Active order. Every
// check and write happens in one transaction; if any seat cannot be reserved
// nothing is kept.
func (m *Manager) Book(ctx context.Context, req models.BookRequest) (*models.Order, error) {
	req.Buyer = req.Buyer.Normalized()
	if err := validateBookRequest(req); err != nil {
		return nil, err
	}

	// Seats are locked in key order so two checkouts sharing seats cannot
	// deadlock.
	seats := append([]models.SeatKey(nil), req.Seats...)
	sort.Slice(seats, func(i, j int) bool { return seats[i].Less(seats[j]) })

	var order *models.Order
	var flightStatus models.FlightStatus
	err := m.store.WithTx(ctx, func(tx database.Tx) error {
		now := m.clock.Now()

		f, err := tx.GetFlight(ctx, req.FlightID, database.LockUpdate)
		if err != nil {
			return err
		}
		if !f.Status.Bookable() || f.Departed(now) {
			return fmt.Errorf("%w: flight %s is %s departing %s", models.ErrFlightNotBookable,
				f.ID, f.Status, f.DepartureAt.Format(time.RFC3339))
		}

		left, err := m.ledger.AvailabilityCount(ctx, tx, f.ID)
		if err != nil {
			return err
		}
		if req.Quantity > left {
			return fmt.Errorf("%w: only %d seats left on flight %s", models.ErrSeatUnavailable, left, f.ID)
		}

		email, err := m.saveBuyer(ctx, tx, req.Buyer)
		if err != nil {
			return err
		}

		var total float64
		for _, seat := range seats {
			ok, err := m.ledger.IsAvailable(ctx, tx, f.ID, seat)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s", models.ErrSeatUnavailable, seat)
			}
			tk, err := tx.GetTicket(ctx, f.ID, seat, database.LockNone)
			if err != nil {
				return err
			}
			total += tk.Price
		}
		total = models.RoundCents(total)

		id, err := tx.NextOrderID(ctx)
		if err != nil {
			return err
		}
		order = &models.Order{
			ID:              id,
			Status:          models.OrderStatusActive,
			TotalPrice:      total,
			PurchaseDate:    now,
			CancellationFee: models.CancellationFee(total, m.feeRate),
		}
		if req.Buyer.IsMember() {
			order.MemberEmail = &email
		} else {
			order.GuestEmail = &email
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}

		for _, seat := range seats {
			if _, err := m.ledger.Reserve(ctx, tx, f.ID, seat, order.ID); err != nil {
				return err
			}
		}

		flightStatus = f.Status
		if f.Status == models.FlightStatusActive && left == len(seats) {
			if err := setFlightStatus(ctx, tx, f, models.FlightStatusFull); err != nil {
				return err
			}
			flightStatus = models.FlightStatusFull
		}
		return nil
	})
	if err != nil {
		m.logFailure(ctx, err, logrus.Fields{"flight_id": req.FlightID}, "booking failed")
		return nil, models.AsStorageError(err)
	}

	m.logger.WithContext(ctx).WithFields(logrus.Fields{
		"flight_id": req.FlightID,
		"order_id":  order.ID,
		"seats":     len(seats),
		"total":     order.TotalPrice,
	}).Info("order created")

	events.Emit(ctx, m.logger, m.publisher, models.EventOrderCreated, models.SeatEvent{
		FlightID:     req.FlightID,
		OrderID:      order.ID,
		Seats:        seats,
		Available:    false,
		FlightStatus: flightStatus,
		OccurredAt:   order.PurchaseDate,
	})
	return order, nil
}

// CancelOrder is a customer cancellation. The order keeps only its stored
// fee as the charged total and its seats return to sale.
func (m *Manager) CancelOrder(ctx context.Context, orderID int64, who models.Requester) (*models.Order, error) {
	var order *models.Order
	var freed []models.SeatKey
	var flightID string
	var flightStatus models.FlightStatus

	err := m.store.WithTx(ctx, func(tx database.Tx) error {
		now := m.clock.Now()

		o, err := tx.GetOrder(ctx, orderID, database.LockNone)
		if err != nil {
			return err
		}
		if !o.OwnedBy(who) {
			return fmt.Errorf("%w: order %d belongs to another buyer", models.ErrNotAuthorized, orderID)
		}

		tickets, err := tx.OrderTickets(ctx, orderID)
		if err != nil {
			return err
		}
		flightID, err = singleFlight(orderID, tickets)
		if err != nil {
			return err
		}

		// Flight before order, the same order a flight cancellation locks in.
		f, err := tx.GetFlight(ctx, flightID, database.LockUpdate)
		if err != nil {
			return err
		}
		o, err = tx.GetOrder(ctx, orderID, database.LockUpdate)
		if err != nil {
			return err
		}
		if err := models.ValidateOrderTransition(o.Status, models.OrderStatusCustomerCancellation); err != nil {
			return err
		}
		if f.DepartureAt.Sub(now) < m.cancelWindow {
			return fmt.Errorf("%w: flight %s departs in %s, cancellation closes %s before departure",
				models.ErrTooCloseToDeparture, f.ID, f.DepartureAt.Sub(now).Round(time.Minute), m.cancelWindow)
		}

		o.Status = models.OrderStatusCustomerCancellation
		o.TotalPrice = o.CancellationFee
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return err
		}
		order = o

		for _, tk := range tickets {
			ok, err := m.ledger.Release(ctx, tx, tk.FlightID, tk.Seat, orderID)
			if err != nil {
				return err
			}
			if ok {
				freed = append(freed, tk.Seat)
			}
		}

		flightStatus = f.Status
		if f.Status == models.FlightStatusFull && len(freed) > 0 {
			if err := setFlightStatus(ctx, tx, f, models.FlightStatusActive); err != nil {
				return err
			}
			flightStatus = models.FlightStatusActive
		}
		return nil
	})
	if err != nil {
		m.logFailure(ctx, err, logrus.Fields{"order_id": orderID}, "order cancellation failed")
		return nil, models.AsStorageError(err)
	}

	m.logger.WithContext(ctx).WithFields(logrus.Fields{
		"order_id":  orderID,
		"flight_id": flightID,
		"fee":       order.CancellationFee,
		"released":  len(freed),
	}).Info("order cancelled by customer")

	events.Emit(ctx, m.logger, m.publisher, models.EventOrderCancelled, models.SeatEvent{
		FlightID:     flightID,
		OrderID:      orderID,
		Seats:        freed,
		Available:    true,
		FlightStatus: flightStatus,
		OccurredAt:   m.clock.Now(),
	})
	return order, nil
}

// SystemCancel is the airline-initiated cancellation of one order, run inside
// the caller's flight cancellation. The buyer is refunded in full and the
// seats stay linked and unavailable.
func SystemCancel(ctx context.Context, tx database.Tx, orderID int64) error {
	o, err := tx.GetOrder(ctx, orderID, database.LockUpdate)
	if err != nil {
		return err
	}
	if err := models.ValidateOrderTransition(o.Status, models.OrderStatusSystemCancellation); err != nil {
		return err
	}
	o.Status = models.OrderStatusSystemCancellation
	o.TotalPrice = 0
	o.CancellationFee = 0
	return tx.UpdateOrder(ctx, o)
}

// saveBuyer records the buyer's profile and returns the email the order is
// filed under. For members that is the address as registered.
func (m *Manager) saveBuyer(ctx context.Context, tx database.Tx, b models.Buyer) (string, error) {
	if b.IsMember() {
		email, err := tx.UpdateMember(ctx, b)
		if errors.Is(err, models.ErrNotFound) {
			return "", fmt.Errorf("%w: unknown member %s", models.ErrNotAuthorized, b.MemberEmail)
		}
		return email, err
	}

	isMember, err := tx.MemberExists(ctx, b.GuestEmail)
	if err != nil {
		return "", err
	}
	if isMember {
		return "", models.ErrMemberLoginRequired
	}
	return b.GuestEmail, tx.UpsertGuest(ctx, b)
}

func setFlightStatus(ctx context.Context, tx database.Tx, f *models.Flight, to models.FlightStatus) error {
	if err := models.ValidateFlightTransition(f.Status, to); err != nil {
		return err
	}
	if err := tx.UpdateFlightStatus(ctx, f.ID, to); err != nil {
		return err
	}
	f.Status = to
	return nil
}

func singleFlight(orderID int64, tickets []models.Ticket) (string, error) {
	if len(tickets) == 0 {
		return "", fmt.Errorf("%w: order %d holds no tickets", models.ErrOrderNotActive, orderID)
	}
	flightID := tickets[0].FlightID
	for _, tk := range tickets[1:] {
		if tk.FlightID != flightID {
			return "", fmt.Errorf("%w: order %d spans more than one flight", models.ErrInvalidInput, orderID)
		}
	}
	return flightID, nil
}

func (m *Manager) logFailure(ctx context.Context, err error, fields logrus.Fields, msg string) {
	entry := m.logger.WithContext(ctx).WithError(err).WithFields(fields)
	if models.IsDomainError(err) {
		entry.Info(msg)
		return
	}
	entry.Error(msg)
}
