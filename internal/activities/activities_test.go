package activities

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/flytau/flight-booking/internal/database"
	"github.com/flytau/flight-booking/internal/database/memdb"
	"github.com/flytau/flight-booking/internal/models"
	"github.com/flytau/flight-booking/internal/refresh"
	"github.com/flytau/flight-booking/internal/testfixtures"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
)

type brokenStore struct{}

func (brokenStore) WithTx(context.Context, func(database.Tx) error) error {
	return errors.New("connection refused")
}

func (brokenStore) View(context.Context, func(database.Tx) error) error {
	return errors.New("connection refused")
}

func (brokenStore) Close() {}

func newEnv(t *testing.T, store database.Store, clk clock.Clock) *testsuite.TestActivityEnvironment {
	t.Helper()
	logger, _ := test.NewNullLogger()
	job := refresh.NewJob(refresh.Options{Store: store, Clock: clk, Logger: logger})
	acts := NewActivities(job, clk)

	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	env.RegisterActivityWithOptions(acts.RefreshStatuses, activity.RegisterOptions{Name: RefreshStatusesName})
	return env
}

func TestRefreshStatuses_ExplicitTime(t *testing.T) {
	db := memdb.New()
	clk := clock.NewMock()
	testfixtures.Seed(db, clk.Now())
	env := newEnv(t, db, clk)

	now := clk.Now().Add(49 * time.Hour)
	val, err := env.ExecuteActivity(RefreshStatusesName, RefreshStatusesInput{Now: now})
	require.NoError(t, err)

	var res models.RefreshResult
	require.NoError(t, val.Get(&res))
	assert.Equal(t, int64(1), res.FlightsCompleted)
	assert.True(t, res.RanAt.Equal(now))

	f, _ := db.Flight(testfixtures.ShortFlight)
	assert.Equal(t, models.FlightStatusCompleted, f.Status)
}

func TestRefreshStatuses_WorkerClock(t *testing.T) {
	db := memdb.New()
	clk := clock.NewMock()
	testfixtures.Seed(db, clk.Now())
	clk.Add(200 * time.Hour)
	env := newEnv(t, db, clk)

	val, err := env.ExecuteActivity(RefreshStatusesName, RefreshStatusesInput{})
	require.NoError(t, err)

	var res models.RefreshResult
	require.NoError(t, val.Get(&res))
	assert.Equal(t, int64(2), res.FlightsCompleted)
	assert.True(t, res.RanAt.Equal(clk.Now()))
}

func TestRefreshStatuses_StorageFailure(t *testing.T) {
	env := newEnv(t, brokenStore{}, clock.NewMock())

	_, err := env.ExecuteActivity(RefreshStatusesName, RefreshStatusesInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to refresh statuses")
}
