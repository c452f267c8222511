package workflows

import (
	"time"

	"github.com/flytau/flight-booking/internal/activities"
	"github.com/flytau/flight-booking/internal/models"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	// RefreshWorkflowID identifies the single scheduled refresh run
	RefreshWorkflowID = "flight-status-refresh"
	// RefreshActivityTimeout bounds one refresh transaction
	RefreshActivityTimeout = 30 * time.Second
)

// RefreshWorkflow completes departed flights and orders. It is started on a
// cron schedule so the statuses stay current when nobody calls the API.
func RefreshWorkflow(ctx workflow.Context) (*models.RefreshResult, error) {
	logger := workflow.GetLogger(ctx)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: RefreshActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	})

	var res models.RefreshResult
	err := workflow.ExecuteActivity(ctx, activities.RefreshStatusesName, activities.RefreshStatusesInput{
		Now: workflow.Now(ctx),
	}).Get(ctx, &res)
	if err != nil {
		logger.Warn("Status refresh failed, next scheduled run will retry", "error", err)
		return nil, err
	}

	logger.Info("Status refresh completed",
		"flightsCompleted", res.FlightsCompleted,
		"ordersCompleted", res.OrdersCompleted)
	return &res, nil
}

// RefreshStartOptions returns the options that schedule RefreshWorkflow
// every interval on the given task queue.
func RefreshStartOptions(taskQueue string, interval time.Duration) client.StartWorkflowOptions {
	return client.StartWorkflowOptions{
		ID:           RefreshWorkflowID,
		TaskQueue:    taskQueue,
		CronSchedule: "@every " + interval.String(),
	}
}
