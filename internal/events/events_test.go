package events

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	keys []string
	err  error
}

func (r *recorder) Publish(_ context.Context, key string, _ any) error {
	r.keys = append(r.keys, key)
	return r.err
}

func TestFanout(t *testing.T) {
	a := &recorder{}
	b := &recorder{err: errors.New("broker down")}
	c := &recorder{}

	err := Fanout{a, b, c}.Publish(context.Background(), "order.created", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")

	assert.Equal(t, []string{"order.created"}, a.keys)
	assert.Equal(t, []string{"order.created"}, c.keys)
}

func TestEmit_LogsFailure(t *testing.T) {
	logger, hook := test.NewNullLogger()
	p := &recorder{err: errors.New("broker down")}

	Emit(context.Background(), logger, p, "flight.cancelled", nil)

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "flight.cancelled", hook.LastEntry().Data["event"])
}

func TestEmit_NilPublisher(t *testing.T) {
	logger, hook := test.NewNullLogger()
	Emit(context.Background(), logger, nil, "order.created", nil)
	assert.Empty(t, hook.Entries)
	assert.NoError(t, Noop{}.Publish(context.Background(), "x", nil))
}

func TestLog(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	err := Fanout{Log{Logger: logger}, Noop{}}.Publish(context.Background(), "order.cancelled", map[string]int64{"orderId": 3})
	require.NoError(t, err)
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
	assert.Equal(t, "order.cancelled", hook.LastEntry().Data["event"])
}
