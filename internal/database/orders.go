package database

import (
	"context"
	"fmt"
	"time"

	"github.com/flytau/flight-booking/internal/models"
	"github.com/jackc/pgx/v5"
)

const orderColumns = `id, status, total_price::float8, purchase_date, cancellation_fee::float8, guest_email, member_email`

func scanOrder(row pgx.Row) (*models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.Status, &o.TotalPrice, &o.PurchaseDate, &o.CancellationFee,
		&o.GuestEmail, &o.MemberEmail)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// NextOrderID draws the next id from the order sequence
func (t *pgTx) NextOrderID(ctx context.Context) (int64, error) {
	var id int64
	if err := t.q.QueryRow(ctx, `SELECT nextval('order_id_seq')`).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to allocate order id: %w", err)
	}
	return id, nil
}

func (t *pgTx) InsertOrder(ctx context.Context, o *models.Order) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO orders (id, status, total_price, purchase_date, cancellation_fee, guest_email, member_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, o.ID, o.Status, o.TotalPrice, o.PurchaseDate, o.CancellationFee, o.GuestEmail, o.MemberEmail)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetOrder returns an order, optionally locking its row
func (t *pgTx) GetOrder(ctx context.Context, id int64, lock Lock) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1` + lock.clause()
	o, err := scanOrder(t.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("order %d", id))
	}
	return o, nil
}

// UpdateOrder writes the mutable order fields: status, total and fee
func (t *pgTx) UpdateOrder(ctx context.Context, o *models.Order) error {
	result, err := t.q.Exec(ctx, `
		UPDATE orders SET status = $1, total_price = $2, cancellation_fee = $3
		WHERE id = $4
	`, o.Status, o.TotalPrice, o.CancellationFee, o.ID)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("order %d: %w", o.ID, models.ErrNotFound)
	}
	return nil
}

func (t *pgTx) OrderTickets(ctx context.Context, orderID int64) ([]models.Ticket, error) {
	return collectTickets(t.q.Query(ctx, `
		SELECT t.aircraft_id, t.flight_id, t.class, t.seat_row, t.seat_col, t.price::float8, t.available = 1
		FROM order_tickets ot
		JOIN tickets t ON t.flight_id = ot.flight_id AND t.class = ot.class
		             AND t.seat_row = ot.seat_row AND t.seat_col = ot.seat_col
		WHERE ot.order_id = $1
		ORDER BY t.class, t.seat_row, t.seat_col
	`, orderID))
}

func (t *pgTx) ActiveOrderIDsForFlight(ctx context.Context, flightID string) ([]int64, error) {
	rows, err := t.q.Query(ctx, `
		SELECT o.id FROM orders o
		WHERE o.status = 'Active'
		  AND EXISTS (SELECT 1 FROM order_tickets ot WHERE ot.order_id = o.id AND ot.flight_id = $1)
		ORDER BY o.id
		FOR UPDATE
	`, flightID)
	if err != nil {
		return nil, fmt.Errorf("failed to query flight orders: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to scan order id: %w", err)
	}
	return ids, nil
}

func (t *pgTx) ListMemberOrders(ctx context.Context, email string, status models.OrderStatus) ([]models.OrderSummary, error) {
	query := `
		SELECT o.id, o.status, o.total_price::float8, o.purchase_date, o.cancellation_fee::float8,
		       o.guest_email, o.member_email,
		       COUNT(ot.order_id), MIN(f.id), MIN(f.departure_at), MIN(f.origin), MIN(f.destination)
		FROM orders o
		LEFT JOIN order_tickets ot ON ot.order_id = o.id
		LEFT JOIN flights f ON f.id = ot.flight_id
		WHERE lower(o.member_email) = lower($1) AND ($2::text = '' OR o.status = $2::text)
		GROUP BY o.id
		ORDER BY o.purchase_date DESC, o.id DESC
	`
	rows, err := t.q.Query(ctx, query, email, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.OrderSummary
	for rows.Next() {
		var s models.OrderSummary
		var flightID, origin, destination *string
		err := rows.Scan(&s.ID, &s.Status, &s.TotalPrice, &s.PurchaseDate, &s.CancellationFee,
			&s.GuestEmail, &s.MemberEmail, &s.TicketCount, &flightID, &s.DepartureAt, &origin, &destination)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		if flightID != nil {
			s.FlightID, s.Origin, s.Destination = *flightID, *origin, *destination
		}
		orders = append(orders, s)
	}
	return orders, rows.Err()
}

// CompleteDepartedOrders moves Active orders to Completed once every flight
// they hold tickets on has departed.
func (t *pgTx) CompleteDepartedOrders(ctx context.Context, now time.Time) (int64, error) {
	result, err := t.q.Exec(ctx, `
		UPDATE orders o SET status = 'Completed'
		WHERE o.status = 'Active'
		  AND EXISTS (SELECT 1 FROM order_tickets ot WHERE ot.order_id = o.id)
		  AND NOT EXISTS (
			SELECT 1 FROM order_tickets ot
			JOIN flights f ON f.id = ot.flight_id
			WHERE ot.order_id = o.id AND f.departure_at > $1
		  )
	`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to complete orders: %w", err)
	}
	return result.RowsAffected(), nil
}
