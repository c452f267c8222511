package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrSeatUnavailable     = errors.New("seat not available")
	ErrFlightNotBookable   = errors.New("flight is not bookable")
	ErrOrderNotActive      = errors.New("order is not active")
	ErrTooCloseToDeparture = errors.New("too close to departure")
	ErrNotAuthorized       = errors.New("not authorized")
	ErrInfeasibleCrew      = errors.New("infeasible crew")
	ErrInfeasibleAircraft  = errors.New("infeasible aircraft")
	ErrIllegalTransition   = errors.New("illegal status transition")
	ErrMemberLoginRequired = errors.New("email belongs to a registered member, log in to purchase")
	ErrStorage             = errors.New("storage failure, please retry")

	ErrNoFeasibleAssignment = errors.New("no feasible assignment")
)

// NoFeasibleAssignmentError explains why the planner found nothing.
// EarliestArrival, when set, is the next projected arrival of a qualifying
// crew member at the origin airport.
type NoFeasibleAssignmentError struct {
	Reason          string
	EarliestArrival *time.Time
}

func (e *NoFeasibleAssignmentError) Error() string {
	if e.EarliestArrival != nil {
		return fmt.Sprintf("no feasible assignment: %s (earliest crew arrival %s)",
			e.Reason, e.EarliestArrival.Format("2006-01-02 15:04"))
	}
	return "no feasible assignment: " + e.Reason
}

func (e *NoFeasibleAssignmentError) Is(target error) bool {
	return target == ErrNoFeasibleAssignment
}

var domainErrors = []error{
	ErrNotFound, ErrInvalidInput, ErrSeatUnavailable, ErrFlightNotBookable,
	ErrOrderNotActive, ErrTooCloseToDeparture, ErrNotAuthorized,
	ErrInfeasibleCrew, ErrInfeasibleAircraft, ErrIllegalTransition,
	ErrMemberLoginRequired, ErrStorage, ErrNoFeasibleAssignment,
}

// IsDomainError reports whether err wraps one of the typed domain errors.
func IsDomainError(err error) bool {
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return true
		}
	}
	return false
}

// AsStorageError passes domain errors through and turns anything else into
// ErrStorage, keeping the cause text in the message.
func AsStorageError(err error) error {
	if err == nil || IsDomainError(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}
