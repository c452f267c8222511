package main

import (
	"context"
	"os"

	"github.com/facebookgo/clock"
	"github.com/flytau/flight-booking/internal/activities"
	"github.com/flytau/flight-booking/internal/applogger"
	"github.com/flytau/flight-booking/internal/config"
	"github.com/flytau/flight-booking/internal/database"
	"github.com/flytau/flight-booking/internal/events"
	"github.com/flytau/flight-booking/internal/mq"
	"github.com/flytau/flight-booking/internal/refresh"
	"github.com/flytau/flight-booking/internal/workflows"
	"github.com/sirupsen/logrus"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	cfg, err := config.LoadWithFlags("worker", os.Args[1:])
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	logger, err := applogger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid logger configuration")
	}
	if cfg.StoreDriver != config.DriverPostgres {
		logger.WithField("store", cfg.StoreDriver).Fatal("The worker needs the shared PostgreSQL store")
	}

	ctx := context.Background()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	repo := database.NewRepository(pool, logger)
	defer repo.Close()
	if cfg.Migrate {
		if err := repo.Migrate(ctx); err != nil {
			logger.WithError(err).Fatal("Failed to apply schema")
		}
	}
	logger.Info("Connected to database")

	// Refresh results reach the API servers' websocket clients through the
	// broker
	var publisher events.Publisher = events.Log{Logger: logger}
	if cfg.RabbitURL != "" {
		pub, err := mq.NewPublisher(cfg.RabbitURL, cfg.EventsExchange)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to RabbitMQ")
		}
		defer pub.Close()
		publisher = events.Fanout{pub, publisher}
	}

	clk := clock.New()
	job := refresh.NewJob(refresh.Options{
		Store:     repo,
		Clock:     clk,
		Publisher: publisher,
		Logger:    logger,
	})

	// Connect to Temporal
	logger.WithField("host", cfg.TemporalHost).Info("Connecting to Temporal...")
	c, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalHost,
		Namespace: cfg.TemporalNamespace,
		Logger:    applogger.NewTemporalLogger(logger),
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Temporal")
	}
	defer c.Close()
	logger.Info("Connected to Temporal")

	// Create worker
	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})

	// Register workflows
	w.RegisterWorkflow(workflows.RefreshWorkflow)

	// Create and register activities
	acts := activities.NewActivities(job, clk)
	w.RegisterActivityWithOptions(acts.RefreshStatuses, activity.RegisterOptions{Name: activities.RefreshStatusesName})

	// Schedule the refresh. Starting it again while a run exists returns the
	// existing run.
	run, err := c.ExecuteWorkflow(ctx, workflows.RefreshStartOptions(cfg.TemporalTaskQueue, cfg.RefreshInterval), workflows.RefreshWorkflow)
	if err != nil {
		logger.WithError(err).Fatal("Failed to schedule status refresh")
	}
	logger.WithFields(logrus.Fields{
		"workflow_id": run.GetID(),
		"run_id":      run.GetRunID(),
		"interval":    cfg.RefreshInterval,
	}).Info("Status refresh scheduled")

	// Start worker
	logger.Info("Starting Temporal worker...")
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.WithError(err).Fatal("Worker failed")
	}
}
