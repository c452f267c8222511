package database_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/flytau/flight-booking/internal/booking"
	"github.com/flytau/flight-booking/internal/database"
	"github.com/flytau/flight-booking/internal/ledger"
	"github.com/flytau/flight-booking/internal/models"
	"github.com/flytau/flight-booking/internal/refresh"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	flightID    = "F00001"
	memberEmail = "Alice@Example.com"
)

var seats = []models.SeatKey{
	{Class: models.SeatClassRegular, Row: 1, Column: "A"},
	{Class: models.SeatClassRegular, Row: 1, Column: "B"},
}

// openRepository connects to TEST_DATABASE_URL, applies the schema and
// empties every table. Tests are skipped when the variable is unset.
func openRepository(t *testing.T) *database.Repository {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := database.Connect(ctx, url)
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	repo := database.NewRepository(pool, logger)
	t.Cleanup(repo.Close)
	require.NoError(t, repo.Migrate(ctx))
	require.NoError(t, repo.Migrate(ctx), "schema must be idempotent")

	_, err = pool.Exec(ctx, `TRUNCATE order_tickets, orders, phone_numbers, guests, members,
		tickets, crew_assignments, flights, crew, aircraft_seats, aircraft, routes CASCADE`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO routes (origin, destination, duration_minutes) VALUES ('TLV', 'ATH', 120)`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO members (email, first_name, last_name) VALUES ($1, 'Alice', 'Mizrahi')`, memberEmail)
	require.NoError(t, err)
	return repo
}

func seedFlight(t *testing.T, repo *database.Repository, departure time.Time) {
	t.Helper()
	ctx := context.Background()
	err := repo.WithTx(ctx, func(tx database.Tx) error {
		inserted, err := tx.InsertAircraft(ctx, &models.Aircraft{
			ID: 1, Manufacturer: "Airbus", Size: models.AircraftSizeSmall,
			PurchaseDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		}, seats)
		if err != nil {
			return err
		}
		if !inserted {
			return errors.New("aircraft not inserted")
		}

		inserted, err = tx.InsertFlight(ctx, &models.Flight{
			ID: flightID, Origin: "TLV", Destination: "ATH",
			DepartureAt: departure, ArrivalAt: departure.Add(2 * time.Hour),
			AircraftID: 1, Type: models.FlightTypeShort, Status: models.FlightStatusActive,
		})
		if err != nil {
			return err
		}
		if !inserted {
			return errors.New("flight not inserted")
		}

		tickets := make([]models.Ticket, len(seats))
		for i, s := range seats {
			tickets[i] = models.Ticket{AircraftID: 1, FlightID: flightID, Seat: s, Price: 100, Available: true}
		}
		return tx.InsertTickets(ctx, tickets)
	})
	require.NoError(t, err)
}

func newBooking(repo database.Store, clk clock.Clock) *booking.Manager {
	logger, _ := test.NewNullLogger()
	return booking.NewManager(booking.Options{Store: repo, Ledger: ledger.New(), Clock: clk, Logger: logger})
}

func guest(email string) models.Buyer {
	return models.Buyer{GuestEmail: email, FirstName: "Dana", LastName: "Cohen", Phone: "050-1234567"}
}

func TestRepository_DuplicateInsertsReportFalse(t *testing.T) {
	repo := openRepository(t)
	seedFlight(t, repo, time.Now().Add(72*time.Hour))
	ctx := context.Background()

	err := repo.WithTx(ctx, func(tx database.Tx) error {
		inserted, err := tx.InsertFlight(ctx, &models.Flight{
			ID: flightID, Origin: "TLV", Destination: "ATH", AircraftID: 1,
			DepartureAt: time.Now(), ArrivalAt: time.Now(),
			Type: models.FlightTypeShort, Status: models.FlightStatusActive,
		})
		require.NoError(t, err)
		assert.False(t, inserted)

		n, err := tx.MaxFlightNumber(ctx, "F")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = tx.GetFlight(ctx, "F99999", database.LockNone)
		assert.ErrorIs(t, err, models.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestRepository_ConcurrentBookingsOfOneSeat(t *testing.T) {
	repo := openRepository(t)
	seedFlight(t, repo, time.Now().Add(72*time.Hour))
	bm := newBooking(repo, clock.New())

	const buyers = 8
	var wg sync.WaitGroup
	results := make(chan error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := bm.Book(context.Background(), models.BookRequest{
				FlightID: flightID, Quantity: 1, Seats: seats[:1],
				Buyer: guest("buyer" + string(rune('a'+i)) + "@example.com"),
			})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var ok, taken int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, models.ErrSeatUnavailable):
			taken++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, buyers-1, taken)
}

func TestRepository_BookCancelAndRefresh(t *testing.T) {
	repo := openRepository(t)
	clk := clock.NewMock()
	clk.Add(time.Now().Truncate(time.Second).Sub(clk.Now()))
	seedFlight(t, repo, clk.Now().Add(72*time.Hour))
	bm := newBooking(repo, clk)
	ctx := context.Background()

	order, err := bm.Book(ctx, models.BookRequest{
		FlightID: flightID, Quantity: 2, Seats: seats, Buyer: guest("pair@example.com"),
	})
	require.NoError(t, err)
	assert.Equal(t, 200.0, order.TotalPrice)
	assert.Equal(t, 10.0, order.CancellationFee)

	var status models.FlightStatus
	require.NoError(t, repo.View(ctx, func(tx database.Tx) error {
		f, err := tx.GetFlight(ctx, flightID, database.LockNone)
		if err != nil {
			return err
		}
		status = f.Status
		return nil
	}))
	assert.Equal(t, models.FlightStatusFull, status)

	cancelled, err := bm.CancelOrder(ctx, order.ID, models.Requester{GuestEmail: "pair@example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCustomerCancellation, cancelled.Status)
	assert.Equal(t, 10.0, cancelled.TotalPrice)

	again, err := bm.Book(ctx, models.BookRequest{
		FlightID: flightID, Quantity: 1, Seats: seats[:1], Buyer: guest("solo@example.com"),
	})
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	job := refresh.NewJob(refresh.Options{Store: repo, Clock: clk, Logger: logger})
	res, err := job.Refresh(ctx, clk.Now().Add(73*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.FlightsCompleted)
	assert.Equal(t, int64(1), res.OrdersCompleted)

	details, err := bm.GetOrder(ctx, again.ID, models.Requester{GuestEmail: "solo@example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, details.Order.Status)

	res, err = job.Refresh(ctx, clk.Now().Add(73*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, res.FlightsCompleted)
	assert.Zero(t, res.OrdersCompleted)
}

func TestRepository_BuyerEmailsAreCaseInsensitive(t *testing.T) {
	repo := openRepository(t)
	seedFlight(t, repo, time.Now().Add(72*time.Hour))
	bm := newBooking(repo, clock.New())
	ctx := context.Background()

	_, err := bm.Book(ctx, models.BookRequest{
		FlightID: flightID, Quantity: 1, Seats: seats[:1], Buyer: guest("ALICE@example.com"),
	})
	assert.ErrorIs(t, err, models.ErrMemberLoginRequired)

	order, err := bm.Book(ctx, models.BookRequest{
		FlightID: flightID, Quantity: 1, Seats: seats[:1], Buyer: guest("  G@Example.COM "),
	})
	require.NoError(t, err)
	require.NotNil(t, order.GuestEmail)
	assert.Equal(t, "g@example.com", *order.GuestEmail)

	order, err = bm.Book(ctx, models.BookRequest{
		FlightID: flightID, Quantity: 1, Seats: seats[1:],
		Buyer: models.Buyer{MemberEmail: " alice@EXAMPLE.com", Phone: "052-1111111"},
	})
	require.NoError(t, err)
	require.NotNil(t, order.MemberEmail)
	assert.Equal(t, memberEmail, *order.MemberEmail)

	orders, err := bm.ListMemberOrders(ctx, "alice@example.com", "")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)
}
