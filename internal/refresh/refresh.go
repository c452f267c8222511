// Package refresh advances flights and orders to Completed once their
// departure has passed. It runs best-effort from the HTTP middleware, at
// most once per throttle interval, and from the scheduled worker.
package refresh

import (
	"context"
	"net/http"
	"time"

	"github.com/facebookgo/clock"
	"github.com/flytau/flight-booking/internal/database"
	"github.com/flytau/flight-booking/internal/events"
	"github.com/flytau/flight-booking/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultInterval = 5 * time.Minute

	runTimeout = 30 * time.Second
)

// Options configures a Job
type Options struct {
	Store     database.Store
	Clock     clock.Clock
	Throttle  *Throttle
	Publisher events.Publisher
	Logger    *logrus.Logger
}

// Job is the availability refresh job
type Job struct {
	store     database.Store
	clock     clock.Clock
	throttle  *Throttle
	publisher events.Publisher
	logger    *logrus.Logger
}

func NewJob(opts Options) *Job {
	j := &Job{
		store:     opts.Store,
		clock:     opts.Clock,
		throttle:  opts.Throttle,
		publisher: opts.Publisher,
		logger:    opts.Logger,
	}
	if j.clock == nil {
		j.clock = clock.New()
	}
	if j.throttle == nil {
		j.throttle = NewThrottle(j.clock, DefaultInterval)
	}
	if j.publisher == nil {
		j.publisher = events.Noop{}
	}
	if j.logger == nil {
		j.logger = logrus.StandardLogger()
	}
	return j
}

// Refresh completes every bookable flight that departed at or before now
// and every Active order whose flights have all departed. Running it again
// with the same now changes nothing.
func (j *Job) Refresh(ctx context.Context, now time.Time) (models.RefreshResult, error) {
	res := models.RefreshResult{RanAt: now}
	err := j.store.WithTx(ctx, func(tx database.Tx) error {
		var err error
		// Orders are read against flight departure times, not statuses, so
		// the order of these two updates does not matter.
		if res.FlightsCompleted, err = tx.CompleteDepartedFlights(ctx, now); err != nil {
			return err
		}
		res.OrdersCompleted, err = tx.CompleteDepartedOrders(ctx, now)
		return err
	})
	if err != nil {
		return models.RefreshResult{RanAt: now}, models.AsStorageError(err)
	}

	if res.FlightsCompleted > 0 || res.OrdersCompleted > 0 {
		events.Emit(ctx, j.logger, j.publisher, models.EventStatusesRefreshed, res)
	}
	return res, nil
}

// MaybeRun refreshes if the throttle admits a run. Failures are logged and
// swallowed; the next interval tries again.
func (j *Job) MaybeRun(ctx context.Context) (models.RefreshResult, bool) {
	if !j.throttle.Allow() {
		return models.RefreshResult{}, false
	}
	return j.run(ctx)
}

func (j *Job) run(ctx context.Context) (models.RefreshResult, bool) {
	logger := j.logger.WithContext(ctx).WithField("run_id", uuid.NewString())
	res, err := j.Refresh(ctx, j.clock.Now())
	if err != nil {
		logger.WithError(err).Warn("status refresh failed")
		return res, false
	}
	logger.WithFields(logrus.Fields{
		"flights_completed": res.FlightsCompleted,
		"orders_completed":  res.OrdersCompleted,
	}).Debug("statuses refreshed")
	return res, true
}

// Middleware triggers a throttled refresh in the background on every
// request. The request never waits for it.
func (j *Job) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if j.throttle.Allow() {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
				defer cancel()
				j.run(ctx)
			}()
		}
		next.ServeHTTP(w, r)
	})
}
