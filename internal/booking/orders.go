package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/flytau/flight-booking/internal/database"
	"github.com/flytau/flight-booking/internal/models"
)

// GetOrder returns an order with its tickets to its owner, along with
// whether a customer cancellation would currently be accepted.
func (m *Manager) GetOrder(ctx context.Context, orderID int64, who models.Requester) (*models.OrderDetails, error) {
	var details *models.OrderDetails
	err := m.store.View(ctx, func(tx database.Tx) error {
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

		now := m.clock.Now()
		details = &models.OrderDetails{Order: o, Tickets: tickets, CheckedAt: now}
		if len(tickets) > 0 {
			f, err := tx.GetFlight(ctx, tickets[0].FlightID, database.LockNone)
			if err != nil {
				return err
			}
			details.Flight = f
		}
		details.CanCancel, details.CancelReason = m.cancellable(o, details.Flight, now)
		return nil
	})
	if err != nil {
		return nil, models.AsStorageError(err)
	}
	return details, nil
}

// ListMemberOrders returns a member's order history, newest first. An empty
// status lists every order.
func (m *Manager) ListMemberOrders(ctx context.Context, email string, status models.OrderStatus) ([]models.OrderSummary, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: member login required", models.ErrNotAuthorized)
	}
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown order status %q", models.ErrInvalidInput, status)
	}
	var orders []models.OrderSummary
	err := m.store.View(ctx, func(tx database.Tx) error {
		var err error
		orders, err = tx.ListMemberOrders(ctx, email, status)
		return err
	})
	if err != nil {
		return nil, models.AsStorageError(err)
	}
	return orders, nil
}

func (m *Manager) cancellable(o *models.Order, f *models.Flight, now time.Time) (bool, string) {
	switch {
	case o.Status != models.OrderStatusActive:
		return false, "order is " + string(o.Status)
	case f == nil:
		return false, "order holds no tickets"
	case f.DepartureAt.Sub(now) < m.cancelWindow:
		return false, fmt.Sprintf("cancellation closes %s before departure", m.cancelWindow)
	}
	return true, ""
}
