package refresh

import (
	"sync"
	"time"

	"github.com/facebookgo/clock"
)

// Throttle admits at most one run per interval of wall-clock time.
type Throttle struct {
	mu       sync.Mutex
	clock    clock.Clock
	interval time.Duration
	last     time.Time
}

func NewThrottle(c clock.Clock, interval time.Duration) *Throttle {
	if c == nil {
		c = clock.New()
	}
	return &Throttle{clock: c, interval: interval}
}

// Allow reports whether a run may start now and, if so, records it.
func (t *Throttle) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	if !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}

// Reset forgets the last run so the next Allow succeeds.
func (t *Throttle) Reset() {
	t.mu.Lock()
	t.last = time.Time{}
	t.mu.Unlock()
}

// Last returns when the last admitted run started.
func (t *Throttle) Last() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}
