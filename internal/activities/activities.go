package activities

import (
	"context"
	"fmt"
	"time"

	"github.com/facebookgo/clock"
	"github.com/flytau/flight-booking/internal/models"
	"github.com/flytau/flight-booking/internal/refresh"
	"go.temporal.io/sdk/activity"
)

// RefreshStatusesName is the registered activity type name
const RefreshStatusesName = "RefreshStatuses"

// RefreshStatusesInput is the input of the refresh activity. A zero Now
// means the worker's current time.
type RefreshStatusesInput struct {
	Now time.Time `json:"now"`
}

// Activities holds the dependencies of every activity
type Activities struct {
	job   *refresh.Job
	clock clock.Clock
}

// NewActivities creates a new Activities instance
func NewActivities(job *refresh.Job, c clock.Clock) *Activities {
	if c == nil {
		c = clock.New()
	}
	return &Activities{job: job, clock: c}
}

// RefreshStatuses completes departed flights and their active orders. It is
// idempotent, so a storage failure is returned and left to the retry policy.
func (a *Activities) RefreshStatuses(ctx context.Context, in RefreshStatusesInput) (*models.RefreshResult, error) {
	logger := activity.GetLogger(ctx)

	now := in.Now
	if now.IsZero() {
		now = a.clock.Now()
	}
	logger.Info("Refreshing statuses", "now", now)

	res, err := a.job.Refresh(ctx, now)
	if err != nil {
		logger.Warn("Status refresh failed", "error", err)
		return nil, fmt.Errorf("failed to refresh statuses: %w", err)
	}

	logger.Info("Statuses refreshed",
		"flightsCompleted", res.FlightsCompleted,
		"ordersCompleted", res.OrdersCompleted)
	return &res, nil
}
