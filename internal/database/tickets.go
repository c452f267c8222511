package database

import (
	"context"
	"fmt"

	"github.com/flytau/flight-booking/internal/models"
	"github.com/jackc/pgx/v5"
)

const ticketColumns = `aircraft_id, flight_id, class, seat_row, seat_col, price::float8, available = 1`

func scanTicket(row pgx.Row) (models.Ticket, error) {
	var tk models.Ticket
	err := row.Scan(&tk.AircraftID, &tk.FlightID, &tk.Seat.Class, &tk.Seat.Row, &tk.Seat.Column,
		&tk.Price, &tk.Available)
	return tk, err
}

func collectTickets(rows pgx.Rows, err error) ([]models.Ticket, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	tickets, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Ticket, error) {
		return scanTicket(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan ticket: %w", err)
	}
	return tickets, nil
}

// GetTicket returns one seat of a flight, optionally locking its row
func (t *pgTx) GetTicket(ctx context.Context, flightID string, seat models.SeatKey, lock Lock) (*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
		WHERE flight_id = $1 AND class = $2 AND seat_row = $3 AND seat_col = $4` + lock.clause()
	tk, err := scanTicket(t.q.QueryRow(ctx, query, flightID, seat.Class, seat.Row, seat.Column))
	if err != nil {
		return nil, notFound(err, "ticket "+seat.String())
	}
	return &tk, nil
}

func (t *pgTx) SetTicketAvailability(ctx context.Context, flightID string, seat models.SeatKey, available bool) error {
	flag := 0
	if available {
		flag = 1
	}
	result, err := t.q.Exec(ctx, `
		UPDATE tickets SET available = $1
		WHERE flight_id = $2 AND class = $3 AND seat_row = $4 AND seat_col = $5
	`, flag, flightID, seat.Class, seat.Row, seat.Column)
	if err != nil {
		return fmt.Errorf("failed to update ticket: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("ticket %s: %w", seat, models.ErrNotFound)
	}
	return nil
}

func (t *pgTx) SetFlightTicketsUnavailable(ctx context.Context, flightID string) (int64, error) {
	result, err := t.q.Exec(ctx, `UPDATE tickets SET available = 0 WHERE flight_id = $1 AND available = 1`, flightID)
	if err != nil {
		return 0, fmt.Errorf("failed to withdraw tickets: %w", err)
	}
	return result.RowsAffected(), nil
}

// InsertTickets bulk-loads a flight's tickets with COPY
func (t *pgTx) InsertTickets(ctx context.Context, tickets []models.Ticket) error {
	copier, ok := t.q.(interface {
		CopyFrom(ctx context.Context, table pgx.Identifier, cols []string, src pgx.CopyFromSource) (int64, error)
	})
	if !ok {
		return fmt.Errorf("failed to insert tickets: connection does not support COPY")
	}

	_, err := copier.CopyFrom(ctx,
		pgx.Identifier{"tickets"},
		[]string{"aircraft_id", "flight_id", "class", "seat_row", "seat_col", "price", "available"},
		pgx.CopyFromSlice(len(tickets), func(i int) ([]any, error) {
			tk := tickets[i]
			flag := 0
			if tk.Available {
				flag = 1
			}
			return []any{tk.AircraftID, tk.FlightID, string(tk.Seat.Class), tk.Seat.Row, tk.Seat.Column, tk.Price, flag}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to insert tickets: %w", err)
	}
	return nil
}

func (t *pgTx) CountAvailableTickets(ctx context.Context, flightID string) (int, error) {
	var n int
	err := t.q.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE flight_id = $1 AND available = 1`, flightID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count tickets: %w", err)
	}
	return n, nil
}

func (t *pgTx) FlightTickets(ctx context.Context, flightID string) ([]models.Ticket, error) {
	return collectTickets(t.q.Query(ctx, `
		SELECT `+ticketColumns+` FROM tickets
		WHERE flight_id = $1
		ORDER BY class, seat_row, seat_col
	`, flightID))
}

func (t *pgTx) HasActiveLink(ctx context.Context, flightID string, seat models.SeatKey, excludeOrder int64) (bool, error) {
	var exists bool
	err := t.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM order_tickets ot
			JOIN orders o ON o.id = ot.order_id
			WHERE ot.flight_id = $1 AND ot.class = $2 AND ot.seat_row = $3 AND ot.seat_col = $4
			  AND o.status = 'Active' AND o.id <> $5
		)
	`, flightID, seat.Class, seat.Row, seat.Column, excludeOrder).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check seat links: %w", err)
	}
	return exists, nil
}

func (t *pgTx) LinkTicket(ctx context.Context, orderID int64, tk models.Ticket) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO order_tickets (order_id, aircraft_id, flight_id, class, seat_row, seat_col)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, orderID, tk.AircraftID, tk.FlightID, tk.Seat.Class, tk.Seat.Row, tk.Seat.Column)
	if err != nil {
		return fmt.Errorf("failed to link ticket: %w", err)
	}
	return nil
}
