// Package planner works out which aircraft and crew can staff a new flight.
// It only reads state; the chosen assignment is written by flight creation,
// which re-runs the same checks through Validate inside its own transaction.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/facebookgo/clock"
	"github.com/flytau/flight-booking/internal/database"
	"github.com/flytau/flight-booking/internal/models"
	"github.com/sirupsen/logrus"
)

// Options configures a Planner
type Options struct {
	Store  database.Store
	Clock  clock.Clock
	Logger *logrus.Logger

	// LongHaulMinutes is the route duration above which a flight is Long.
	LongHaulMinutes int
}

// Planner is the crew and aircraft assignment planner
type Planner struct {
	store    database.Store
	clock    clock.Clock
	logger   *logrus.Logger
	longHaul int
}

func New(opts Options) *Planner {
	p := &Planner{
		store:    opts.Store,
		clock:    opts.Clock,
		logger:   opts.Logger,
		longHaul: opts.LongHaulMinutes,
	}
	if p.clock == nil {
		p.clock = clock.New()
	}
	if p.logger == nil {
		p.logger = logrus.StandardLogger()
	}
	if p.longHaul == 0 {
		p.longHaul = models.LongHaulMinutes
	}
	return p
}

// Draft resolves a schedule and route into arrival time and flight type.
func (p *Planner) Draft(ctx context.Context, origin, destination string, departure time.Time) (*models.FlightDraft, error) {
	var draft *models.FlightDraft
	err := p.store.View(ctx, func(tx database.Tx) error {
		var err error
		draft, err = p.DraftTx(ctx, tx, origin, destination, departure)
		return err
	})
	if err != nil {
		return nil, models.AsStorageError(err)
	}
	return draft, nil
}

// DraftTx is Draft inside the caller's transaction.
func (p *Planner) DraftTx(ctx context.Context, tx database.Tx, origin, destination string, departure time.Time) (*models.FlightDraft, error) {
	origin = strings.ToUpper(strings.TrimSpace(origin))
	destination = strings.ToUpper(strings.TrimSpace(destination))
	if origin == "" || destination == "" {
		return nil, fmt.Errorf("%w: origin and destination are required", models.ErrInvalidInput)
	}
	if origin == destination {
		return nil, fmt.Errorf("%w: origin and destination must differ", models.ErrInvalidInput)
	}
	if !departure.After(p.clock.Now()) {
		return nil, fmt.Errorf("%w: departure must be in the future", models.ErrInvalidInput)
	}

	route, err := tx.GetRoute(ctx, origin, destination)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: no route from %s to %s", models.ErrInvalidInput, origin, destination)
	}
	if err != nil {
		return nil, err
	}

	return &models.FlightDraft{
		Origin:          origin,
		Destination:     destination,
		DepartureAt:     departure,
		ArrivalAt:       departure.Add(route.Duration()),
		DurationMinutes: route.DurationMinutes,
		Type:            models.ClassifyFlight(route.DurationMinutes, p.longHaul),
	}, nil
}

// Plan lists the aircraft and crew eligible for a new flight and recommends
// a complete assignment. It fails with a *models.NoFeasibleAssignmentError
// when no aircraft can be fully staffed.
func (p *Planner) Plan(ctx context.Context, origin, destination string, departure time.Time) (*models.AssignmentPlan, error) {
	var plan *models.AssignmentPlan
	err := p.store.View(ctx, func(tx database.Tx) error {
		draft, err := p.DraftTx(ctx, tx, origin, destination, departure)
		if err != nil {
			return err
		}
		plan, err = p.plan(ctx, tx, draft)
		return err
	})
	if err != nil {
		entry := p.logger.WithContext(ctx).WithError(err).WithFields(logrus.Fields{
			"origin":      origin,
			"destination": destination,
		})
		if models.IsDomainError(err) {
			entry.Info("no assignment planned")
		} else {
			entry.Error("assignment planning failed")
		}
		return nil, models.AsStorageError(err)
	}
	return plan, nil
}

func (p *Planner) plan(ctx context.Context, tx database.Tx, draft *models.FlightDraft) (*models.AssignmentPlan, error) {
	fleet, err := tx.ListAircraft(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list aircraft: %w", err)
	}
	var aircraft []models.Aircraft
	for _, a := range fleet {
		if draft.Type == models.FlightTypeLong && a.Size != models.AircraftSizeBig {
			continue
		}
		scheduled, err := tx.AircraftScheduledAt(ctx, a.ID, draft.DepartureAt)
		if err != nil {
			return nil, fmt.Errorf("failed to check aircraft schedule: %w", err)
		}
		if !scheduled {
			aircraft = append(aircraft, a)
		}
	}
	if len(aircraft) == 0 {
		return nil, &models.NoFeasibleAssignmentError{
			Reason: fmt.Sprintf("no %s-haul capable aircraft is free at %s", strings.ToLower(string(draft.Type)),
				draft.DepartureAt.Format("2006-01-02 15:04")),
		}
	}

	crew, err := tx.ListCrew(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list crew: %w", err)
	}
	av, err := loadAvailability(ctx, tx, draft)
	if err != nil {
		return nil, err
	}
	var pilots, attendants []models.CrewMember
	for _, c := range crew {
		if av.check(c, draft) != nil {
			continue
		}
		switch c.Role {
		case models.CrewRolePilot:
			pilots = append(pilots, c)
		case models.CrewRoleAttendant:
			attendants = append(attendants, c)
		}
	}

	plan := &models.AssignmentPlan{Draft: *draft, Pilots: pilots, Attendants: attendants}
	for _, a := range aircraft {
		need := models.RequiredCrew(a.Size)
		if len(pilots) >= need.Pilots && len(attendants) >= need.Attendants {
			plan.Aircraft = append(plan.Aircraft, a)
		}
	}
	if len(plan.Aircraft) == 0 {
		return nil, p.infeasible(ctx, tx, draft, len(pilots), len(attendants))
	}

	rec := plan.Aircraft[0]
	need := models.RequiredCrew(rec.Size)
	plan.RecommendedAircraft = &rec
	plan.RecommendedPilots = pilots[:need.Pilots]
	plan.RecommendedAttendants = attendants[:need.Attendants]
	return plan, nil
}

func (p *Planner) infeasible(ctx context.Context, tx database.Tx, draft *models.FlightDraft, pilots, attendants int) error {
	nfe := &models.NoFeasibleAssignmentError{
		Reason: fmt.Sprintf("only %d pilots and %d attendants are available at %s", pilots, attendants, draft.Origin),
	}
	at, err := tx.EarliestCrewArrival(ctx, draft.Origin, p.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to project crew arrivals: %w", err)
	}
	nfe.EarliestArrival = at
	return nfe
}

// crewAvailability is the crew state a single departure is checked against.
type crewAvailability struct {
	busy      map[int64]bool
	locations map[int64]string
	assigned  map[int64]bool
}

func loadAvailability(ctx context.Context, tx database.Tx, draft *models.FlightDraft) (*crewAvailability, error) {
	busy, err := tx.BusyCrewAt(ctx, draft.DepartureAt)
	if err != nil {
		return nil, fmt.Errorf("failed to load crew schedule: %w", err)
	}
	locations, err := tx.CrewLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load crew locations: %w", err)
	}
	assigned, err := tx.AssignedCrew(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load crew assignments: %w", err)
	}
	return &crewAvailability{busy: busy, locations: locations, assigned: assigned}, nil
}

// check returns why c cannot fly the draft, or nil. Crew who have never been
// assigned are available anywhere; everyone else must be at the origin.
func (av *crewAvailability) check(c models.CrewMember, draft *models.FlightDraft) error {
	if draft.Type == models.FlightTypeLong && !c.LongHaulCertified {
		return fmt.Errorf("crew member %d is not long-haul certified", c.ID)
	}
	if av.busy[c.ID] {
		return fmt.Errorf("crew member %d already flies at %s", c.ID, draft.DepartureAt.Format("2006-01-02 15:04"))
	}
	if loc, ok := av.locations[c.ID]; ok {
		if loc != draft.Origin {
			return fmt.Errorf("crew member %d is at %s, not %s", c.ID, loc, draft.Origin)
		}
		return nil
	}
	if av.assigned[c.ID] {
		return fmt.Errorf("crew member %d has not landed at %s", c.ID, draft.Origin)
	}
	return nil
}
