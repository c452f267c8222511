package database

import (
	"context"
	"fmt"
	"time"

	"github.com/flytau/flight-booking/internal/models"
	"github.com/jackc/pgx/v5"
)

const aircraftColumns = `a.id, a.manufacturer, a.size, a.purchase_date,
	(SELECT COUNT(*) FROM aircraft_seats s WHERE s.aircraft_id = a.id)`

func scanAircraft(row pgx.Row) (models.Aircraft, error) {
	var a models.Aircraft
	err := row.Scan(&a.ID, &a.Manufacturer, &a.Size, &a.PurchaseDate, &a.SeatCount)
	return a, err
}

func (t *pgTx) GetAircraft(ctx context.Context, id int64) (*models.Aircraft, error) {
	a, err := scanAircraft(t.q.QueryRow(ctx, `SELECT `+aircraftColumns+` FROM aircraft a WHERE a.id = $1`, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("aircraft %d", id))
	}
	return &a, nil
}

// InsertAircraft stores the aircraft and its full seat map
func (t *pgTx) InsertAircraft(ctx context.Context, a *models.Aircraft, seats []models.SeatKey) (bool, error) {
	result, err := t.q.Exec(ctx, `
		INSERT INTO aircraft (id, manufacturer, size, purchase_date)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, a.ID, a.Manufacturer, a.Size, a.PurchaseDate)
	if err != nil {
		return false, fmt.Errorf("failed to insert aircraft: %w", err)
	}
	if result.RowsAffected() == 0 {
		return false, nil
	}

	batch := &pgx.Batch{}
	for _, s := range seats {
		batch.Queue(`INSERT INTO aircraft_seats (aircraft_id, class, seat_row, seat_col) VALUES ($1, $2, $3, $4)`,
			a.ID, s.Class, s.Row, s.Column)
	}
	sender, ok := t.q.(interface {
		SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	})
	if !ok {
		return false, fmt.Errorf("failed to insert seats: connection does not support batches")
	}
	if err := sender.SendBatch(ctx, batch).Close(); err != nil {
		return false, fmt.Errorf("failed to insert seats: %w", err)
	}
	return true, nil
}

func (t *pgTx) AircraftSeats(ctx context.Context, id int64) ([]models.SeatKey, error) {
	rows, err := t.q.Query(ctx, `
		SELECT class, seat_row, seat_col FROM aircraft_seats
		WHERE aircraft_id = $1
		ORDER BY class, seat_row, seat_col
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query seats: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.SeatKey, error) {
		var k models.SeatKey
		err := row.Scan(&k.Class, &k.Row, &k.Column)
		return k, err
	})
}

// ListAircraft returns the fleet, Big aircraft first
func (t *pgTx) ListAircraft(ctx context.Context) ([]models.Aircraft, error) {
	rows, err := t.q.Query(ctx, `SELECT `+aircraftColumns+` FROM aircraft a ORDER BY a.size, a.manufacturer, a.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query aircraft: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Aircraft, error) {
		return scanAircraft(row)
	})
}

func (t *pgTx) AircraftScheduledAt(ctx context.Context, id int64, departure time.Time) (bool, error) {
	var exists bool
	err := t.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM flights
			WHERE aircraft_id = $1 AND departure_at = $2 AND status <> 'Canceled'
		)
	`, id, departure).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check aircraft schedule: %w", err)
	}
	return exists, nil
}

func (t *pgTx) InsertCrewMember(ctx context.Context, c *models.CrewMember) (bool, error) {
	result, err := t.q.Exec(ctx, `
		INSERT INTO crew (id, first_name, last_name, role, long_haul)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, c.ID, c.FirstName, c.LastName, c.Role, c.LongHaulCertified)
	if err != nil {
		return false, fmt.Errorf("failed to insert crew member: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

func collectCrew(rows pgx.Rows, err error) ([]models.CrewMember, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query crew: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.CrewMember, error) {
		var c models.CrewMember
		err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Role, &c.LongHaulCertified)
		return c, err
	})
}

// ListCrew returns every crew member, certified first then by id
func (t *pgTx) ListCrew(ctx context.Context) ([]models.CrewMember, error) {
	return collectCrew(t.q.Query(ctx, `
		SELECT id, first_name, last_name, role, long_haul FROM crew
		ORDER BY long_haul DESC, id
	`))
}

func (t *pgTx) GetCrewMembers(ctx context.Context, ids []int64) ([]models.CrewMember, error) {
	return collectCrew(t.q.Query(ctx, `
		SELECT id, first_name, last_name, role, long_haul FROM crew
		WHERE id = ANY($1)
		ORDER BY id
	`, ids))
}

func (t *pgTx) InsertCrewAssignments(ctx context.Context, flightID string, crewIDs []int64) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO crew_assignments (crew_id, flight_id)
		SELECT unnest($1::bigint[]), $2
	`, crewIDs, flightID)
	if err != nil {
		return fmt.Errorf("failed to assign crew: %w", err)
	}
	return nil
}

func (t *pgTx) collectIDSet(ctx context.Context, query string, args ...any) (map[int64]bool, error) {
	rows, err := t.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query crew ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to scan crew id: %w", err)
	}
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

func (t *pgTx) BusyCrewAt(ctx context.Context, departure time.Time) (map[int64]bool, error) {
	return t.collectIDSet(ctx, `
		SELECT DISTINCT ca.crew_id FROM crew_assignments ca
		JOIN flights f ON f.id = ca.flight_id
		WHERE f.departure_at = $1 AND f.status <> 'Canceled'
	`, departure)
}

func (t *pgTx) AssignedCrew(ctx context.Context) (map[int64]bool, error) {
	return t.collectIDSet(ctx, `SELECT DISTINCT crew_id FROM crew_assignments`)
}

func (t *pgTx) CrewLocations(ctx context.Context) (map[int64]string, error) {
	rows, err := t.q.Query(ctx, `
		SELECT DISTINCT ON (ca.crew_id) ca.crew_id, f.destination
		FROM crew_assignments ca
		JOIN flights f ON f.id = ca.flight_id
		WHERE f.status = 'Completed'
		ORDER BY ca.crew_id, f.arrival_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query crew locations: %w", err)
	}
	defer rows.Close()

	locations := make(map[int64]string)
	for rows.Next() {
		var id int64
		var airport string
		if err := rows.Scan(&id, &airport); err != nil {
			return nil, fmt.Errorf("failed to scan crew location: %w", err)
		}
		locations[id] = airport
	}
	return locations, rows.Err()
}

func (t *pgTx) EarliestCrewArrival(ctx context.Context, airport string, after time.Time) (*time.Time, error) {
	var at *time.Time
	err := t.q.QueryRow(ctx, `
		SELECT MIN(f.arrival_at) FROM flights f
		WHERE f.destination = $1 AND f.status IN ('Active', 'Full') AND f.arrival_at > $2
		  AND EXISTS (SELECT 1 FROM crew_assignments ca WHERE ca.flight_id = f.id)
	`, airport, after).Scan(&at)
	if err != nil {
		return nil, fmt.Errorf("failed to query crew arrivals: %w", err)
	}
	return at, nil
}
