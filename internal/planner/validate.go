package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/flytau/flight-booking/internal/database"
	"github.com/flytau/flight-booking/internal/models"
)

// Validate re-checks a manager's final aircraft and crew choice for a draft
// inside the caller's transaction. The aircraft must suit the flight type and
// be free at the departure; the crew must match the aircraft's exact pilot
// and attendant counts and each member must pass the same checks Plan uses.
func (p *Planner) Validate(ctx context.Context, tx database.Tx, draft *models.FlightDraft, aircraftID int64, crewIDs []int64) (*models.Aircraft, []models.CrewMember, error) {
	a, err := tx.GetAircraft(ctx, aircraftID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: aircraft %d does not exist", models.ErrInfeasibleAircraft, aircraftID)
	}
	if err != nil {
		return nil, nil, err
	}
	if draft.Type == models.FlightTypeLong && a.Size != models.AircraftSizeBig {
		return nil, nil, fmt.Errorf("%w: long-haul flights need a big aircraft, %d is %s",
			models.ErrInfeasibleAircraft, a.ID, a.Size)
	}
	scheduled, err := tx.AircraftScheduledAt(ctx, a.ID, draft.DepartureAt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check aircraft schedule: %w", err)
	}
	if scheduled {
		return nil, nil, fmt.Errorf("%w: aircraft %d already departs at %s",
			models.ErrInfeasibleAircraft, a.ID, draft.DepartureAt.Format("2006-01-02 15:04"))
	}

	seen := make(map[int64]bool, len(crewIDs))
	for _, id := range crewIDs {
		if seen[id] {
			return nil, nil, fmt.Errorf("%w: crew member %d listed twice", models.ErrInfeasibleCrew, id)
		}
		seen[id] = true
	}
	crew, err := tx.GetCrewMembers(ctx, crewIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load crew: %w", err)
	}
	if len(crew) != len(crewIDs) {
		return nil, nil, fmt.Errorf("%w: unknown crew member selected", models.ErrInfeasibleCrew)
	}

	need := models.RequiredCrew(a.Size)
	var pilots, attendants int
	for _, c := range crew {
		switch c.Role {
		case models.CrewRolePilot:
			pilots++
		case models.CrewRoleAttendant:
			attendants++
		}
	}
	if pilots != need.Pilots || attendants != need.Attendants {
		return nil, nil, fmt.Errorf("%w: a %s aircraft needs %d pilots and %d attendants, got %d and %d",
			models.ErrInfeasibleCrew, a.Size, need.Pilots, need.Attendants, pilots, attendants)
	}

	av, err := loadAvailability(ctx, tx, draft)
	if err != nil {
		return nil, nil, err
	}
	for _, c := range crew {
		if err := av.check(c, draft); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", models.ErrInfeasibleCrew, err)
		}
	}
	return a, crew, nil
}
