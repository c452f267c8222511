package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/flytau/flight-booking/internal/models"
	"github.com/jackc/pgx/v5"
)

const flightColumns = `id, origin, destination, departure_at, arrival_at, aircraft_id, type, status`

func scanFlight(row pgx.Row) (*models.Flight, error) {
	var f models.Flight
	err := row.Scan(&f.ID, &f.Origin, &f.Destination, &f.DepartureAt, &f.ArrivalAt,
		&f.AircraftID, &f.Type, &f.Status)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// GetFlight returns a flight, optionally locking its row
func (t *pgTx) GetFlight(ctx context.Context, id string, lock Lock) (*models.Flight, error) {
	query := `SELECT ` + flightColumns + ` FROM flights WHERE id = $1` + lock.clause()
	f, err := scanFlight(t.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "flight "+id)
	}
	return f, nil
}

func (t *pgTx) UpdateFlightStatus(ctx context.Context, id string, status models.FlightStatus) error {
	result, err := t.q.Exec(ctx, `UPDATE flights SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update flight status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("flight %s: %w", id, models.ErrNotFound)
	}
	return nil
}

func (t *pgTx) InsertFlight(ctx context.Context, f *models.Flight) (bool, error) {
	result, err := t.q.Exec(ctx, `
		INSERT INTO flights (`+flightColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, f.ID, f.Origin, f.Destination, f.DepartureAt, f.ArrivalAt, f.AircraftID, f.Type, f.Status)
	if err != nil {
		return false, fmt.Errorf("failed to insert flight: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// MaxFlightNumber returns the highest numeric suffix among ids carrying the
// prefix, or 0 when there are none.
func (t *pgTx) MaxFlightNumber(ctx context.Context, prefix string) (int, error) {
	var n int
	err := t.q.QueryRow(ctx, `
		SELECT COALESCE(MAX(CAST(SUBSTRING(id FROM $2) AS INTEGER)), 0)
		FROM flights
		WHERE id LIKE $1 || '%' AND SUBSTRING(id FROM $2) ~ '^[0-9]+$'
	`, prefix, len(prefix)+1).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to read max flight number: %w", err)
	}
	return n, nil
}

// SearchFlights lists bookable flights with ticket counts and lowest prices
func (t *pgTx) SearchFlights(ctx context.Context, filter models.FlightFilter, now time.Time) ([]models.FlightSummary, error) {
	where := []string{"f.departure_at >= $1"}
	args := []any{now}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.Status != "" {
		add("f.status = $%d", filter.Status)
	} else {
		where = append(where, "f.status IN ('Active', 'Full')")
	}
	if filter.Origin != "" {
		add("f.origin = $%d", filter.Origin)
	}
	if filter.Destination != "" {
		add("f.destination = $%d", filter.Destination)
	}
	if filter.Date != nil {
		add("f.departure_at::date = $%d::date", *filter.Date)
	}

	query := `
		SELECT f.id, f.origin, f.destination, f.departure_at, f.arrival_at, f.aircraft_id, f.type, f.status,
		       a.size, a.manufacturer,
		       COUNT(t.flight_id),
		       COUNT(t.flight_id) FILTER (WHERE t.available = 1),
		       (MIN(t.price) FILTER (WHERE t.class = 'Regular'))::float8,
		       (MIN(t.price) FILTER (WHERE t.class = 'First'))::float8
		FROM flights f
		JOIN aircraft a ON a.id = f.aircraft_id
		LEFT JOIN tickets t ON t.flight_id = f.id
		WHERE ` + strings.Join(where, " AND ") + `
		GROUP BY f.id, a.size, a.manufacturer
		ORDER BY f.departure_at, f.id
	`

	rows, err := t.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query flights: %w", err)
	}
	defer rows.Close()

	var flights []models.FlightSummary
	for rows.Next() {
		var s models.FlightSummary
		err := rows.Scan(
			&s.ID, &s.Origin, &s.Destination, &s.DepartureAt, &s.ArrivalAt, &s.AircraftID, &s.Type, &s.Status,
			&s.AircraftSize, &s.Manufacturer, &s.TotalTickets, &s.AvailableTickets, &s.PriceRegular, &s.PriceFirst,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flight: %w", err)
		}
		flights = append(flights, s)
	}
	return flights, rows.Err()
}

func (t *pgTx) GetRoute(ctx context.Context, origin, destination string) (*models.Route, error) {
	var r models.Route
	err := t.q.QueryRow(ctx, `
		SELECT origin, destination, duration_minutes FROM routes
		WHERE origin = $1 AND destination = $2
	`, origin, destination).Scan(&r.Origin, &r.Destination, &r.DurationMinutes)
	if err != nil {
		return nil, notFound(err, "route "+origin+"-"+destination)
	}
	return &r, nil
}

func (t *pgTx) ListRoutes(ctx context.Context) ([]models.Route, error) {
	rows, err := t.q.Query(ctx, `SELECT origin, destination, duration_minutes FROM routes ORDER BY origin, destination`)
	if err != nil {
		return nil, fmt.Errorf("failed to query routes: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Route, error) {
		var r models.Route
		err := row.Scan(&r.Origin, &r.Destination, &r.DurationMinutes)
		return r, err
	})
}

// CompleteDepartedFlights moves Active and Full flights whose departure has
// passed to Completed.
func (t *pgTx) CompleteDepartedFlights(ctx context.Context, now time.Time) (int64, error) {
	result, err := t.q.Exec(ctx, `
		UPDATE flights SET status = 'Completed'
		WHERE status IN ('Active', 'Full') AND departure_at <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to complete flights: %w", err)
	}
	return result.RowsAffected(), nil
}
