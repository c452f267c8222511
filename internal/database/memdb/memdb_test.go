package memdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flytau/flight-booking/internal/database"
	"github.com/flytau/flight-booking/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seatA = models.SeatKey{Class: models.SeatClassRegular, Row: 1, Column: "A"}

func seeded(t *testing.T) *DB {
	t.Helper()
	db := New()
	db.AddRoute(models.Route{Origin: "TLV", Destination: "ATH", DurationMinutes: 120})
	db.AddAircraft(models.Aircraft{ID: 1, Manufacturer: "Airbus", Size: models.AircraftSizeSmall},
		[]models.SeatKey{seatA, {Class: models.SeatClassRegular, Row: 1, Column: "B"}})
	db.AddFlight(models.Flight{
		ID: "F00001", Origin: "TLV", Destination: "ATH", AircraftID: 1,
		DepartureAt: time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC),
		ArrivalAt:   time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC),
		Type:        models.FlightTypeShort, Status: models.FlightStatusActive,
	}, map[models.SeatClass]float64{models.SeatClassRegular: 100})
	return db
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db := seeded(t)

	err := db.WithTx(context.Background(), func(tx database.Tx) error {
		return tx.SetTicketAvailability(context.Background(), "F00001", seatA, false)
	})
	require.NoError(t, err)

	tickets := db.Tickets("F00001")
	require.Len(t, tickets, 2)
	assert.False(t, tickets[0].Available)
	assert.True(t, tickets[1].Available)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db := seeded(t)
	boom := errors.New("boom")
	guest := "g@example.com"

	err := db.WithTx(context.Background(), func(tx database.Tx) error {
		ctx := context.Background()
		id, err := tx.NextOrderID(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.InsertOrder(ctx, &models.Order{ID: id, Status: models.OrderStatusActive, GuestEmail: &guest}))
		require.NoError(t, tx.SetTicketAvailability(ctx, "F00001", seatA, false))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, 0, db.OrderCount())
	for _, tk := range db.Tickets("F00001") {
		assert.True(t, tk.Available)
	}
}

func TestWithTx_CanceledContext(t *testing.T) {
	db := seeded(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := db.WithTx(ctx, func(tx database.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestActiveLinksAndCompletion(t *testing.T) {
	db := seeded(t)
	ctx := context.Background()
	member := "m@example.com"

	var orderID int64
	require.NoError(t, db.WithTx(ctx, func(tx database.Tx) error {
		id, _ := tx.NextOrderID(ctx)
		orderID = id
		require.NoError(t, tx.InsertOrder(ctx, &models.Order{ID: id, Status: models.OrderStatusActive, MemberEmail: &member}))
		tk, err := tx.GetTicket(ctx, "F00001", seatA, database.LockUpdate)
		require.NoError(t, err)
		return tx.LinkTicket(ctx, id, *tk)
	}))

	require.NoError(t, db.View(ctx, func(tx database.Tx) error {
		linked, err := tx.HasActiveLink(ctx, "F00001", seatA, 0)
		require.NoError(t, err)
		assert.True(t, linked)

		linked, err = tx.HasActiveLink(ctx, "F00001", seatA, orderID)
		require.NoError(t, err)
		assert.False(t, linked)

		ids, err := tx.ActiveOrderIDsForFlight(ctx, "F00001")
		require.NoError(t, err)
		assert.Equal(t, []int64{orderID}, ids)
		return nil
	}))

	after := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, db.WithTx(ctx, func(tx database.Tx) error {
		n, err := tx.CompleteDepartedOrders(ctx, after)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		n, err = tx.CompleteDepartedOrders(ctx, after)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
		return nil
	}))

	o, ok := db.Order(orderID)
	require.True(t, ok)
	assert.Equal(t, models.OrderStatusCompleted, o.Status)
}

func TestMaxFlightNumber(t *testing.T) {
	db := seeded(t)
	db.AddFlight(models.Flight{ID: "F00042", AircraftID: 1}, nil)
	db.AddFlight(models.Flight{ID: "X00099", AircraftID: 1}, nil)

	require.NoError(t, db.View(context.Background(), func(tx database.Tx) error {
		n, err := tx.MaxFlightNumber(context.Background(), "F")
		require.NoError(t, err)
		assert.Equal(t, 42, n)
		return nil
	}))
}

func TestSeedDemo(t *testing.T) {
	db := New()
	SeedDemo(db, "demo@flytau.test")

	var routes []models.Route
	var member bool
	err := db.View(context.Background(), func(tx database.Tx) error {
		var err error
		if routes, err = tx.ListRoutes(context.Background()); err != nil {
			return err
		}
		member, err = tx.MemberExists(context.Background(), "DEMO@flytau.test")
		return err
	})
	require.NoError(t, err)
	assert.Len(t, routes, len(DemoRoutes))
	assert.True(t, member)
}
