// Package fleet registers aircraft with their seat maps and crew members.
package fleet

import (
	"context"
	"fmt"
	"strings"

	"github.com/facebookgo/clock"
	"github.com/flytau/flight-booking/internal/database"
	"github.com/flytau/flight-booking/internal/models"
	"github.com/sirupsen/logrus"
)

const maxColumns = 26

// Registry manages the fleet and crew
type Registry struct {
	store  database.Store
	clock  clock.Clock
	logger *logrus.Logger
}

func NewRegistry(store database.Store, c clock.Clock, logger *logrus.Logger) *Registry {
	if c == nil {
		c = clock.New()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Registry{store: store, clock: c, logger: logger}
}

// SeatLayout generates the seat map of an aircraft. Big aircraft must have
// a First class block; a Small aircraft's First class block is ignored.
func SeatLayout(req models.AddAircraftRequest) ([]models.SeatKey, error) {
	if err := checkBlock("regular", req.RegularRows, req.RegularCols); err != nil {
		return nil, err
	}
	seats := grid(models.SeatClassRegular, req.RegularRows, req.RegularCols)
	if req.Size != models.AircraftSizeBig {
		return seats, nil
	}
	if err := checkBlock("first class", req.FirstRows, req.FirstCols); err != nil {
		return nil, err
	}
	return append(grid(models.SeatClassFirst, req.FirstRows, req.FirstCols), seats...), nil
}

func checkBlock(name string, rows, cols int) error {
	if rows < 1 || cols < 1 {
		return fmt.Errorf("%w: %s seating needs at least one row and one column", models.ErrInvalidInput, name)
	}
	if cols > maxColumns {
		return fmt.Errorf("%w: %s seating has more than %d columns", models.ErrInvalidInput, name, maxColumns)
	}
	return nil
}

func grid(class models.SeatClass, rows, cols int) []models.SeatKey {
	seats := make([]models.SeatKey, 0, rows*cols)
	for r := 1; r <= rows; r++ {
		for c := 0; c < cols; c++ {
			seats = append(seats, models.SeatKey{Class: class, Row: r, Column: string(rune('A' + c))})
		}
	}
	return seats
}

// AddAircraft registers an aircraft and its full seat map in one
// transaction.
func (r *Registry) AddAircraft(ctx context.Context, req models.AddAircraftRequest) (*models.Aircraft, error) {
	if req.ID <= 0 {
		return nil, fmt.Errorf("%w: aircraft id must be positive", models.ErrInvalidInput)
	}
	manufacturer, ok := canonicalManufacturer(req.Manufacturer)
	if !ok {
		return nil, fmt.Errorf("%w: manufacturer must be one of %s", models.ErrInvalidInput,
			strings.Join(models.Manufacturers, ", "))
	}
	if !req.Size.Valid() {
		return nil, fmt.Errorf("%w: unknown aircraft size %q", models.ErrInvalidInput, req.Size)
	}
	if req.PurchaseDate.IsZero() || req.PurchaseDate.After(r.clock.Now()) {
		return nil, fmt.Errorf("%w: purchase date cannot be in the future", models.ErrInvalidInput)
	}
	seats, err := SeatLayout(req)
	if err != nil {
		return nil, err
	}

	a := &models.Aircraft{
		ID:           req.ID,
		Manufacturer: manufacturer,
		Size:         req.Size,
		PurchaseDate: req.PurchaseDate,
		SeatCount:    len(seats),
	}
	err = r.store.WithTx(ctx, func(tx database.Tx) error {
		inserted, err := tx.InsertAircraft(ctx, a, seats)
		if err != nil {
			return fmt.Errorf("failed to insert aircraft: %w", err)
		}
		if !inserted {
			return fmt.Errorf("%w: aircraft %d already exists", models.ErrInvalidInput, a.ID)
		}
		return nil
	})
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("aircraft_id", req.ID).Info("aircraft not added")
		return nil, models.AsStorageError(err)
	}

	r.logger.WithContext(ctx).WithFields(logrus.Fields{
		"aircraft_id": a.ID,
		"size":        a.Size,
		"seats":       a.SeatCount,
	}).Info("aircraft added")
	return a, nil
}

func canonicalManufacturer(name string) (string, bool) {
	for _, m := range models.Manufacturers {
		if strings.EqualFold(m, strings.TrimSpace(name)) {
			return m, true
		}
	}
	return "", false
}

// AddCrewMember registers a pilot or flight attendant.
func (r *Registry) AddCrewMember(ctx context.Context, c models.CrewMember) (*models.CrewMember, error) {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	switch {
	case c.ID <= 0:
		return nil, fmt.Errorf("%w: crew id must be positive", models.ErrInvalidInput)
	case c.FirstName == "" || c.LastName == "":
		return nil, fmt.Errorf("%w: crew first and last name are required", models.ErrInvalidInput)
	case !c.Role.Valid():
		return nil, fmt.Errorf("%w: unknown crew role %q", models.ErrInvalidInput, c.Role)
	}

	err := r.store.WithTx(ctx, func(tx database.Tx) error {
		inserted, err := tx.InsertCrewMember(ctx, &c)
		if err != nil {
			return fmt.Errorf("failed to insert crew member: %w", err)
		}
		if !inserted {
			return fmt.Errorf("%w: crew member %d already exists", models.ErrInvalidInput, c.ID)
		}
		return nil
	})
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("crew_id", c.ID).Info("crew member not added")
		return nil, models.AsStorageError(err)
	}

	r.logger.WithContext(ctx).WithFields(logrus.Fields{
		"crew_id":   c.ID,
		"role":      c.Role,
		"long_haul": c.LongHaulCertified,
	}).Info("crew member added")
	return &c, nil
}

// ListAircraft returns the fleet with seat counts.
func (r *Registry) ListAircraft(ctx context.Context) ([]models.Aircraft, error) {
	var out []models.Aircraft
	err := r.store.View(ctx, func(tx database.Tx) error {
		var err error
		out, err = tx.ListAircraft(ctx)
		return err
	})
	if err != nil {
		return nil, models.AsStorageError(err)
	}
	return out, nil
}

// ListCrew returns every crew member.
func (r *Registry) ListCrew(ctx context.Context) ([]models.CrewMember, error) {
	var out []models.CrewMember
	err := r.store.View(ctx, func(tx database.Tx) error {
		var err error
		out, err = tx.ListCrew(ctx)
		return err
	})
	if err != nil {
		return nil, models.AsStorageError(err)
	}
	return out, nil
}
