// Package events carries domain events out of the managers after commit.
package events

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// Publisher delivers one event under a routing key
type Publisher interface {
	Publish(ctx context.Context, key string, v any) error
}

// Noop discards every event
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }

// Fanout delivers each event to every publisher and joins their errors
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, key string, v any) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, key, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log records every event at debug level
type Log struct {
	Logger *logrus.Logger
}

func (l Log) Publish(ctx context.Context, key string, v any) error {
	l.Logger.WithContext(ctx).WithFields(logrus.Fields{
		"event":   key,
		"payload": v,
	}).Debug("domain event")
	return nil
}

// Emit publishes best-effort: a failure is logged and never returned, since
// the state change it describes is already committed.
func Emit(ctx context.Context, logger *logrus.Logger, p Publisher, key string, v any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, key, v); err != nil {
		logger.WithContext(ctx).WithError(err).WithField("event", key).Warn("failed to publish event")
	}
}
