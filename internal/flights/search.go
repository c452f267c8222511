package flights

import (
	"context"
	"fmt"
	"strings"

	"github.com/flytau/flight-booking/internal/database"
	"github.com/flytau/flight-booking/internal/models"
)

// Search lists flights departing from now on. Without a status filter only
// bookable flights are returned.
func (m *Manager) Search(ctx context.Context, filter models.FlightFilter) ([]models.FlightSummary, error) {
	filter.Origin = strings.ToUpper(strings.TrimSpace(filter.Origin))
	filter.Destination = strings.ToUpper(strings.TrimSpace(filter.Destination))
	if filter.Status != "" && !filter.Status.Bookable() && !filter.Status.Terminal() {
		return nil, fmt.Errorf("%w: unknown flight status %q", models.ErrInvalidInput, filter.Status)
	}

	var flights []models.FlightSummary
	err := m.store.View(ctx, func(tx database.Tx) error {
		var err error
		flights, err = tx.SearchFlights(ctx, filter, m.clock.Now())
		return err
	})
	if err != nil {
		return nil, models.AsStorageError(err)
	}
	return flights, nil
}

// SeatMap returns a flight with all its tickets in seat order.
func (m *Manager) SeatMap(ctx context.Context, flightID string) (*models.SeatMap, error) {
	var sm *models.SeatMap
	err := m.store.View(ctx, func(tx database.Tx) error {
		f, err := tx.GetFlight(ctx, flightID, database.LockNone)
		if err != nil {
			return err
		}
		tickets, err := tx.FlightTickets(ctx, flightID)
		if err != nil {
			return err
		}
		sm = &models.SeatMap{Flight: *f, Tickets: tickets}
		for _, tk := range tickets {
			if tk.Available {
				sm.Available++
			}
		}
		return nil
	})
	if err != nil {
		return nil, models.AsStorageError(err)
	}
	return sm, nil
}

// Routes lists the origin and destination pairs flights can be scheduled on.
func (m *Manager) Routes(ctx context.Context) ([]models.Route, error) {
	var routes []models.Route
	err := m.store.View(ctx, func(tx database.Tx) error {
		var err error
		routes, err = tx.ListRoutes(ctx)
		return err
	})
	if err != nil {
		return nil, models.AsStorageError(err)
	}
	return routes, nil
}
