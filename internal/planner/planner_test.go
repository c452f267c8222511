package planner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/flytau/flight-booking/internal/database"
	"github.com/flytau/flight-booking/internal/database/memdb"
	"github.com/flytau/flight-booking/internal/models"
	"github.com/flytau/flight-booking/internal/testfixtures"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*memdb.DB, *clock.Mock, *Planner) {
	t.Helper()
	db := memdb.New()
	clk := clock.NewMock()
	testfixtures.Seed(db, clk.Now())
	logger, _ := test.NewNullLogger()
	return db, clk, New(Options{Store: db, Clock: clk, Logger: logger})
}

func crewIDs(crew []models.CrewMember) []int64 {
	ids := make([]int64, 0, len(crew))
	for _, c := range crew {
		ids = append(ids, c.ID)
	}
	return ids
}

func aircraftIDs(aircraft []models.Aircraft) []int64 {
	ids := make([]int64, 0, len(aircraft))
	for _, a := range aircraft {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestDraft(t *testing.T) {
	_, clk, p := setup(t)
	dep := clk.Now().Add(200 * time.Hour)

	draft, err := p.Draft(context.Background(), "tlv", "JFK", dep)
	require.NoError(t, err)
	assert.Equal(t, "TLV", draft.Origin)
	assert.Equal(t, models.FlightTypeLong, draft.Type)
	assert.Equal(t, 720, draft.DurationMinutes)
	assert.Equal(t, dep.Add(12*time.Hour), draft.ArrivalAt)

	draft, err = p.Draft(context.Background(), "TLV", "ATH", dep)
	require.NoError(t, err)
	assert.Equal(t, models.FlightTypeShort, draft.Type)

	_, err = p.Draft(context.Background(), "ATH", "JFK", dep)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	_, err = p.Draft(context.Background(), "TLV", "TLV", dep)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	_, err = p.Draft(context.Background(), "TLV", "ATH", clk.Now())
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestPlan_OnlyStaffableAircraft(t *testing.T) {
	db, clk, p := setup(t)
	testfixtures.AddCrew(db, 100, 2, 3, false)

	plan, err := p.Plan(context.Background(), "TLV", "ATH", clk.Now().Add(200*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, []int64{testfixtures.SmallAircraft}, aircraftIDs(plan.Aircraft))
	require.NotNil(t, plan.RecommendedAircraft)
	assert.Equal(t, testfixtures.SmallAircraft, plan.RecommendedAircraft.ID)
	assert.Equal(t, []int64{100, 101}, crewIDs(plan.RecommendedPilots))
	assert.Equal(t, []int64{102, 103, 104}, crewIDs(plan.RecommendedAttendants))
}

func TestPlan_BigAircraftRecommendedFirst(t *testing.T) {
	db, clk, p := setup(t)
	testfixtures.AddCrew(db, 100, 3, 6, false)

	plan, err := p.Plan(context.Background(), "TLV", "ATH", clk.Now().Add(200*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, []int64{testfixtures.BigAircraft, testfixtures.SmallAircraft}, aircraftIDs(plan.Aircraft))
	assert.Equal(t, testfixtures.BigAircraft, plan.RecommendedAircraft.ID)
	assert.Len(t, plan.RecommendedPilots, 3)
	assert.Len(t, plan.RecommendedAttendants, 6)
}

func TestPlan_LongHaulNeedsCertifiedCrew(t *testing.T) {
	db, clk, p := setup(t)
	testfixtures.AddCrew(db, 100, 3, 6, false)
	dep := clk.Now().Add(200 * time.Hour)

	_, err := p.Plan(context.Background(), "TLV", "JFK", dep)
	require.ErrorIs(t, err, models.ErrNoFeasibleAssignment)
	var nfe *models.NoFeasibleAssignmentError
	require.True(t, errors.As(err, &nfe))
	assert.Nil(t, nfe.EarliestArrival)

	testfixtures.AddCrew(db, 200, 3, 6, true)
	plan, err := p.Plan(context.Background(), "TLV", "JFK", dep)
	require.NoError(t, err)
	assert.Equal(t, []int64{testfixtures.BigAircraft}, aircraftIDs(plan.Aircraft))
	assert.Equal(t, []int64{200, 201, 202}, crewIDs(plan.Pilots))
}

func TestPlan_SkipsAircraftScheduledAtSameTime(t *testing.T) {
	db, clk, p := setup(t)
	testfixtures.AddCrew(db, 100, 3, 6, false)

	// ShortFlight already uses the small aircraft at this departure.
	plan, err := p.Plan(context.Background(), "TLV", "ATH", clk.Now().Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []int64{testfixtures.BigAircraft}, aircraftIDs(plan.Aircraft))
}

func TestPlan_IgnoresCanceledFlightsWhenScheduling(t *testing.T) {
	db, clk, p := setup(t)
	testfixtures.AddCrew(db, 100, 2, 3, false)
	db.SetFlightStatus(testfixtures.ShortFlight, models.FlightStatusCanceled)

	plan, err := p.Plan(context.Background(), "TLV", "ATH", clk.Now().Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, testfixtures.SmallAircraft, plan.RecommendedAircraft.ID)
}

func TestPlan_CrewLocation(t *testing.T) {
	db, clk, p := setup(t)
	now := clk.Now()
	testfixtures.AddCrew(db, 100, 2, 3, false)

	landed := func(id, origin, destination string, arrival time.Time, crew ...int64) {
		db.AddFlight(models.Flight{
			ID: id, Origin: origin, Destination: destination,
			DepartureAt: arrival.Add(-2 * time.Hour), ArrivalAt: arrival,
			AircraftID: testfixtures.BigAircraft, Type: models.FlightTypeShort,
			Status: models.FlightStatusCompleted,
		}, nil)
		db.Assign(id, crew...)
	}
	landed("F00003", "ATH", "TLV", now.Add(-20*time.Hour), 100)
	landed("F00004", "TLV", "ATH", now.Add(-10*time.Hour), 101)
	// 102 is booked on ShortFlight and has not landed anywhere yet.
	db.Assign(testfixtures.ShortFlight, 102)

	_, err := p.Plan(context.Background(), "ATH", "TLV", now.Add(300*time.Hour))
	var nfe *models.NoFeasibleAssignmentError
	require.True(t, errors.As(err, &nfe))
	require.NotNil(t, nfe.EarliestArrival)
	short, _ := db.Flight(testfixtures.ShortFlight)
	assert.Equal(t, short.ArrivalAt, *nfe.EarliestArrival)

	testfixtures.AddCrew(db, 300, 1, 1, false)
	plan, err := p.Plan(context.Background(), "TLV", "ATH", now.Add(300*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 300}, crewIDs(plan.Pilots))
	assert.Equal(t, []int64{103, 104, 301}, crewIDs(plan.Attendants))
}

func TestPlan_BusyCrew(t *testing.T) {
	db, _, p := setup(t)
	pilots, _ := testfixtures.AddCrew(db, 100, 2, 3, false)
	db.Assign(testfixtures.LongFlight, pilots[0])
	long, _ := db.Flight(testfixtures.LongFlight)

	_, err := p.Plan(context.Background(), "ATH", "TLV", long.DepartureAt)
	assert.ErrorIs(t, err, models.ErrNoFeasibleAssignment)
}

func TestValidate(t *testing.T) {
	db, clk, p := setup(t)
	pilots, attendants := testfixtures.AddCrew(db, 100, 3, 6, false)
	certPilots, certAttendants := testfixtures.AddCrew(db, 200, 3, 6, true)
	dep := clk.Now().Add(200 * time.Hour)

	validate := func(origin, destination string, aircraftID int64, crew ...[]int64) error {
		var ids []int64
		for _, c := range crew {
			ids = append(ids, c...)
		}
		return db.View(context.Background(), func(tx database.Tx) error {
			draft, err := p.DraftTx(context.Background(), tx, origin, destination, dep)
			if err != nil {
				return err
			}
			_, _, err = p.Validate(context.Background(), tx, draft, aircraftID, ids)
			return err
		})
	}

	assert.NoError(t, validate("TLV", "ATH", testfixtures.SmallAircraft, pilots[:2], attendants[:3]))
	assert.NoError(t, validate("TLV", "ATH", testfixtures.BigAircraft, pilots, attendants))
	assert.NoError(t, validate("TLV", "JFK", testfixtures.BigAircraft, certPilots, certAttendants))

	assert.ErrorIs(t, validate("TLV", "JFK", testfixtures.SmallAircraft, certPilots[:2], certAttendants[:3]), models.ErrInfeasibleAircraft)
	assert.ErrorIs(t, validate("TLV", "ATH", 99, pilots[:2], attendants[:3]), models.ErrInfeasibleAircraft)
	assert.ErrorIs(t, validate("TLV", "JFK", testfixtures.BigAircraft, pilots, attendants), models.ErrInfeasibleCrew)
	assert.ErrorIs(t, validate("TLV", "ATH", testfixtures.SmallAircraft, pilots[:2], attendants[:2]), models.ErrInfeasibleCrew)
	assert.ErrorIs(t, validate("TLV", "ATH", testfixtures.SmallAircraft, pilots[:3], attendants[:3]), models.ErrInfeasibleCrew)
	assert.ErrorIs(t, validate("TLV", "ATH", testfixtures.SmallAircraft, pilots[:2], attendants[:2], []int64{999}), models.ErrInfeasibleCrew)
	assert.ErrorIs(t, validate("TLV", "ATH", testfixtures.SmallAircraft, pilots[:2], attendants[:2], attendants[:1]), models.ErrInfeasibleCrew)
}
