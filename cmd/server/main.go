package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/facebookgo/clock"
	"github.com/flytau/flight-booking/internal/applogger"
	"github.com/flytau/flight-booking/internal/booking"
	"github.com/flytau/flight-booking/internal/config"
	"github.com/flytau/flight-booking/internal/database"
	"github.com/flytau/flight-booking/internal/database/memdb"
	"github.com/flytau/flight-booking/internal/events"
	"github.com/flytau/flight-booking/internal/fleet"
	"github.com/flytau/flight-booking/internal/flights"
	"github.com/flytau/flight-booking/internal/handlers"
	"github.com/flytau/flight-booking/internal/ledger"
	"github.com/flytau/flight-booking/internal/mq"
	"github.com/flytau/flight-booking/internal/obs"
	"github.com/flytau/flight-booking/internal/planner"
	"github.com/flytau/flight-booking/internal/refresh"
	"github.com/flytau/flight-booking/internal/router"
	"github.com/flytau/flight-booking/internal/service"
	"github.com/flytau/flight-booking/internal/websocket"
	"github.com/sirupsen/logrus"
)

const (
	version         = "0.1.0"
	demoMemberEmail = "member@flytau.dev"
	shutdownTimeout = 30 * time.Second
)

func main() {
	cfg, err := config.LoadWithFlags("server", os.Args[1:])
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	logger, err := applogger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid logger configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := obs.InitTracer(ctx, obs.Config{
		ServiceName: cfg.ServiceName,
		Version:     version,
		Environment: cfg.Environment,
		Endpoint:    cfg.OTLPEndpoint,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialise tracing")
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open store")
	}
	defer store.Close()

	// WebSocket hub
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	publisher, closeEvents, err := wireEvents(ctx, cfg, logger, hub)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to RabbitMQ")
	}
	defer closeEvents()

	// Initialize services
	clk := clock.New()
	seats := ledger.New()
	pl := planner.New(planner.Options{
		Store:           store,
		Clock:           clk,
		Logger:          logger,
		LongHaulMinutes: cfg.LongHaulMinutes,
	})
	job := refresh.NewJob(refresh.Options{
		Store:     store,
		Clock:     clk,
		Throttle:  refresh.NewThrottle(clk, cfg.RefreshInterval),
		Publisher: publisher,
		Logger:    logger,
	})
	svc := service.New(service.Deps{
		Booking: booking.NewManager(booking.Options{
			Store:        store,
			Ledger:       seats,
			Clock:        clk,
			Publisher:    publisher,
			Logger:       logger,
			FeeRate:      cfg.CancellationFee,
			CancelWindow: cfg.OrderCancelWindow,
		}),
		Flights: flights.NewManager(flights.Options{
			Store:        store,
			Planner:      pl,
			Ledger:       seats,
			Clock:        clk,
			Publisher:    publisher,
			Logger:       logger,
			CancelWindow: cfg.FlightCancelWindow,
			IDPrefix:     cfg.FlightIDPrefix,
		}),
		Planner: pl,
		Fleet:   fleet.NewRegistry(store, clk, logger),
		Refresh: job,
		Clock:   clk,
	})

	// Create router
	h := handlers.NewHandler(svc, logger)
	r := router.SetupRouter(router.Options{
		Handler:        h,
		ServiceName:    cfg.ServiceName,
		Logger:         logger,
		WebSocket:      hub.ServeWS,
		Refresh:        job.Middleware,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.APIAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.WithFields(logrus.Fields{
			"addr":  cfg.APIAddr,
			"store": cfg.StoreDriver,
		}).Info("API server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	cancel()
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Tracer shutdown failed")
	}

	logger.Info("Server stopped")
}

func openStore(ctx context.Context, cfg config.App, logger *logrus.Logger) (database.Store, error) {
	if cfg.StoreDriver == config.DriverMemory {
		db := memdb.New()
		memdb.SeedDemo(db, demoMemberEmail)
		logger.WithField("member", demoMemberEmail).Warn("Using in-memory store, data is lost on exit")
		return db, nil
	}

	logger.Info("Connecting to database...")
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	repo := database.NewRepository(pool, logger)
	if cfg.Migrate {
		if err := repo.Migrate(ctx); err != nil {
			repo.Close()
			return nil, err
		}
		logger.Info("Database schema applied")
	}
	return repo, nil
}

// wireEvents decides how events reach the hub. With a broker, managers
// publish only to RabbitMQ and the hub is fed from this process's own queue,
// so every replica and the worker's refreshes reach every connected browser.
// Without one, events go straight to the hub.
func wireEvents(ctx context.Context, cfg config.App, logger *logrus.Logger, hub *websocket.Hub) (events.Publisher, func(), error) {
	if cfg.RabbitURL == "" {
		logger.Info("RABBIT_URL not set, events are delivered in-process only")
		return events.Fanout{hub, events.Log{Logger: logger}}, func() {}, nil
	}

	pub, err := mq.NewPublisher(cfg.RabbitURL, cfg.EventsExchange)
	if err != nil {
		return nil, nil, err
	}
	consumer, err := mq.NewConsumer(cfg.RabbitURL, cfg.EventsExchange, "", websocket.RelayKeys)
	if err != nil {
		pub.Close()
		return nil, nil, err
	}
	go func() {
		if err := consumer.Run(ctx, logger, hub.Relay); err != nil {
			logger.WithError(err).Error("Event relay stopped, live seat updates are disabled")
		}
	}()

	return events.Fanout{pub, events.Log{Logger: logger}}, func() {
		consumer.Close()
		pub.Close()
	}, nil
}
