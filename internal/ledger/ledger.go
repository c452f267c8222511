// Package ledger owns the per-seat availability flag of every ticket. All
// operations run inside a caller's transaction and take the ticket row lock
// before reading the flag, so a check and the write that follows it cannot
// interleave with another booking of the same seat.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/flytau/flight-booking/internal/database"
	"github.com/flytau/flight-booking/internal/models"
)

// Ledger is the seat/ticket ledger
type Ledger struct{}

func New() *Ledger {
	return &Ledger{}
}

// AvailabilityCount returns how many tickets of the flight are bookable.
func (l *Ledger) AvailabilityCount(ctx context.Context, tx database.Tx, flightID string) (int, error) {
	n, err := tx.CountAvailableTickets(ctx, flightID)
	if err != nil {
		return 0, fmt.Errorf("failed to count availability: %w", err)
	}
	return n, nil
}

// IsAvailable locks the ticket and reports whether it can be sold: the flag
// is set and no Active order holds it.
func (l *Ledger) IsAvailable(ctx context.Context, tx database.Tx, flightID string, seat models.SeatKey) (bool, error) {
	tk, err := l.lockTicket(ctx, tx, flightID, seat)
	if err != nil {
		if errors.Is(err, models.ErrSeatUnavailable) {
			return false, nil
		}
		return false, err
	}
	if !tk.Available {
		return false, nil
	}
	held, err := tx.HasActiveLink(ctx, flightID, seat, 0)
	if err != nil {
		return false, err
	}
	return !held, nil
}

// Reserve links the seat to the order and clears its flag. It fails with
// ErrSeatUnavailable when the flag is clear or another Active order already
// holds the seat.
func (l *Ledger) Reserve(ctx context.Context, tx database.Tx, flightID string, seat models.SeatKey, orderID int64) (*models.Ticket, error) {
	tk, err := l.lockTicket(ctx, tx, flightID, seat)
	if err != nil {
		return nil, err
	}
	if !tk.Available {
		return nil, fmt.Errorf("%w: %s", models.ErrSeatUnavailable, seat)
	}

	held, err := tx.HasActiveLink(ctx, flightID, seat, orderID)
	if err != nil {
		return nil, err
	}
	if held {
		return nil, fmt.Errorf("%w: %s is held by another order", models.ErrSeatUnavailable, seat)
	}

	if err := tx.LinkTicket(ctx, orderID, *tk); err != nil {
		return nil, err
	}
	if err := tx.SetTicketAvailability(ctx, flightID, seat, false); err != nil {
		return nil, err
	}
	tk.Available = false
	return tk, nil
}

// Release sets the seat's flag again unless some other Active order still
// holds it. It reports whether the seat became available.
func (l *Ledger) Release(ctx context.Context, tx database.Tx, flightID string, seat models.SeatKey, orderID int64) (bool, error) {
	if _, err := tx.GetTicket(ctx, flightID, seat, database.LockUpdate); err != nil {
		return false, fmt.Errorf("failed to lock ticket %s: %w", seat, err)
	}

	held, err := tx.HasActiveLink(ctx, flightID, seat, orderID)
	if err != nil {
		return false, err
	}
	if held {
		return false, nil
	}
	if err := tx.SetTicketAvailability(ctx, flightID, seat, true); err != nil {
		return false, err
	}
	return true, nil
}

// Withdraw clears the flag of every ticket on the flight regardless of
// links. The flight can no longer be sold.
func (l *Ledger) Withdraw(ctx context.Context, tx database.Tx, flightID string) (int64, error) {
	n, err := tx.SetFlightTicketsUnavailable(ctx, flightID)
	if err != nil {
		return 0, fmt.Errorf("failed to withdraw flight %s: %w", flightID, err)
	}
	return n, nil
}

func (l *Ledger) lockTicket(ctx context.Context, tx database.Tx, flightID string, seat models.SeatKey) (*models.Ticket, error) {
	tk, err := tx.GetTicket(ctx, flightID, seat, database.LockUpdate)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s does not exist on flight %s", models.ErrSeatUnavailable, seat, flightID)
		}
		return nil, fmt.Errorf("failed to lock ticket %s: %w", seat, err)
	}
	return tk, nil
}
