package refresh

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/flytau/flight-booking/internal/booking"
	"github.com/flytau/flight-booking/internal/database"
	"github.com/flytau/flight-booking/internal/database/memdb"
	"github.com/flytau/flight-booking/internal/models"
	"github.com/flytau/flight-booking/internal/testfixtures"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenStore struct{}

func (brokenStore) WithTx(context.Context, func(database.Tx) error) error {
	return errors.New("connection refused")
}

func (brokenStore) View(context.Context, func(database.Tx) error) error {
	return errors.New("connection refused")
}

func (brokenStore) Close() {}

func TestThrottle(t *testing.T) {
	clk := clock.NewMock()
	th := NewThrottle(clk, 5*time.Minute)

	assert.True(t, th.Allow())
	assert.False(t, th.Allow())
	assert.Equal(t, clk.Now(), th.Last())

	clk.Add(4 * time.Minute)
	assert.False(t, th.Allow())
	clk.Add(time.Minute)
	assert.True(t, th.Allow())

	th.Reset()
	assert.True(t, th.Allow())
}

func TestRefresh_CompletesDepartedFlightsAndOrders(t *testing.T) {
	db := memdb.New()
	clk := clock.NewMock()
	testfixtures.Seed(db, clk.Now())
	logger, _ := test.NewNullLogger()

	bm := booking.NewManager(booking.Options{Store: db, Clock: clk, Logger: logger})
	short, err := bm.Book(context.Background(), models.BookRequest{
		FlightID: testfixtures.ShortFlight, Quantity: 1,
		Seats: []models.SeatKey{testfixtures.Regular(1, "A")},
		Buyer: testfixtures.GuestBuyer("a@example.com"),
	})
	require.NoError(t, err)
	long, err := bm.Book(context.Background(), models.BookRequest{
		FlightID: testfixtures.LongFlight, Quantity: 1,
		Seats: []models.SeatKey{testfixtures.Regular(1, "A")},
		Buyer: testfixtures.GuestBuyer("a@example.com"),
	})
	require.NoError(t, err)

	job := NewJob(Options{Store: db, Clock: clk, Logger: logger})
	now := clk.Now().Add(48 * time.Hour)

	res, err := job.Refresh(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.FlightsCompleted)
	assert.Equal(t, int64(1), res.OrdersCompleted)
	assert.Equal(t, now, res.RanAt)

	f, _ := db.Flight(testfixtures.ShortFlight)
	assert.Equal(t, models.FlightStatusCompleted, f.Status)
	f, _ = db.Flight(testfixtures.LongFlight)
	assert.Equal(t, models.FlightStatusActive, f.Status)
	o, _ := db.Order(short.ID)
	assert.Equal(t, models.OrderStatusCompleted, o.Status)
	o, _ = db.Order(long.ID)
	assert.Equal(t, models.OrderStatusActive, o.Status)

	res, err = job.Refresh(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, res.FlightsCompleted)
	assert.Zero(t, res.OrdersCompleted)
}

func TestRefresh_LeavesCanceledFlights(t *testing.T) {
	db := memdb.New()
	clk := clock.NewMock()
	testfixtures.Seed(db, clk.Now())
	logger, _ := test.NewNullLogger()
	db.SetFlightStatus(testfixtures.LongFlight, models.FlightStatusCanceled)

	job := NewJob(Options{Store: db, Clock: clk, Logger: logger})
	res, err := job.Refresh(context.Background(), clk.Now().Add(200*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.FlightsCompleted)

	f, _ := db.Flight(testfixtures.LongFlight)
	assert.Equal(t, models.FlightStatusCanceled, f.Status)
}

func TestMaybeRun_Throttled(t *testing.T) {
	db := memdb.New()
	clk := clock.NewMock()
	testfixtures.Seed(db, clk.Now())
	logger, _ := test.NewNullLogger()
	job := NewJob(Options{Store: db, Clock: clk, Logger: logger})

	_, ran := job.MaybeRun(context.Background())
	assert.True(t, ran)
	_, ran = job.MaybeRun(context.Background())
	assert.False(t, ran)

	clk.Add(49 * time.Hour)
	res, ran := job.MaybeRun(context.Background())
	assert.True(t, ran)
	assert.Equal(t, int64(1), res.FlightsCompleted)
}

func TestMaybeRun_SwallowsFailures(t *testing.T) {
	clk := clock.NewMock()
	logger, hook := test.NewNullLogger()
	job := NewJob(Options{Store: brokenStore{}, Clock: clk, Logger: logger})

	_, ran := job.MaybeRun(context.Background())
	assert.False(t, ran)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.ErrorIs(t, hook.LastEntry().Data[logrus.ErrorKey].(error), models.ErrStorage)
	assert.NotEmpty(t, hook.LastEntry().Data["run_id"])
}

func TestMiddleware(t *testing.T) {
	db := memdb.New()
	clk := clock.NewMock()
	testfixtures.Seed(db, clk.Now())
	clk.Add(49 * time.Hour)
	logger, _ := test.NewNullLogger()
	job := NewJob(Options{Store: db, Clock: clk, Logger: logger})

	handler := job.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/flights", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)

	assert.Eventually(t, func() bool {
		f, _ := db.Flight(testfixtures.ShortFlight)
		return f.Status == models.FlightStatusCompleted
	}, time.Second, 10*time.Millisecond)
}
